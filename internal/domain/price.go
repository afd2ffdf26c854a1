package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePrice converts a decimal amount such as "9.99" into cents.
// At most two fractional digits are accepted.
func ParsePrice(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, Validation("price is required")
	}
	raw := s
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if !isDigits(whole) || !isDigits(frac) || (whole == "" && frac == "") {
		return 0, Validation("invalid price %q", raw)
	}
	if hasDot && (len(frac) == 0 || len(frac) > 2) {
		return 0, Validation("price %q must have one or two decimal places", raw)
	}
	if whole == "" {
		whole = "0"
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 {
		return 0, Validation("invalid price %q", raw)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || cents < 0 {
		return 0, Validation("invalid price %q", raw)
	}
	if units > (1<<63-1-cents)/100 {
		return 0, Validation("price %q is too large", raw)
	}

	total := units*100 + cents
	if neg {
		total = -total
	}
	return total, nil
}

func isDigits(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) < 0
}

// FormatPrice renders cents as a decimal amount.
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
