package domain

import (
	"strings"
	"time"
)

// Product is a catalog entry owned by a single seller. Price is kept in
// minor units (cents).
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       int64
	Quantity    int
	SellerID    int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewProduct builds a transient product, rejecting invalid fields.
func NewProduct(name, description string, price int64, quantity int, sellerID int64) (*Product, error) {
	p := &Product{
		Name:        name,
		Description: description,
		Price:       price,
		Quantity:    quantity,
		SellerID:    sellerID,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the mutable fields.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return Validation("product name cannot be empty")
	}
	if strings.TrimSpace(p.Description) == "" {
		return Validation("product description cannot be empty")
	}
	if p.Price <= 0 {
		return Validation("price must be greater than 0")
	}
	if p.Quantity < 0 {
		return Validation("quantity cannot be negative")
	}
	return nil
}

// OwnedBy reports whether the given user id is the product's seller.
func (p *Product) OwnedBy(userID int64) bool {
	return p.SellerID == userID
}
