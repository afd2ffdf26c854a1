package domain

import (
	"regexp"
	"strings"
	"time"
)

// Role tags a user as buyer, seller or admin.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Roles returns the recognized roles.
func Roles() []Role {
	return []Role{RoleBuyer, RoleSeller, RoleAdmin}
}

// ParseRole accepts a role name in any letter case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", Validation("invalid role %q: must be one of buyer, seller, admin", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// CanSell reports whether the role may create catalog entries.
func (r Role) CanSell() bool {
	return r == RoleSeller
}

// CanAdminister reports whether the role may manage users and see the
// catalog oversight views.
func (r Role) CanAdminister() bool {
	return r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}

// User represents a registered account. ID is zero until storage assigns one.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Email        string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Persisted reports whether storage has assigned the user an id.
func (u *User) Persisted() bool {
	return u != nil && u.ID > 0
}

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@.+$`)

func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return Validation("username cannot be empty")
	}
	return nil
}

func ValidatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return Validation("password cannot be empty")
	}
	return nil
}

func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return Validation("invalid email format")
	}
	return nil
}
