package repository

import (
	"context"

	"marketplace/internal/domain"
)

// ProductRepository exposes persistence operations for catalog products.
// All listings are ordered by ascending id, which is insertion order.
type ProductRepository interface {
	Init(ctx context.Context) error
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	ListAll(ctx context.Context) ([]domain.Product, error)
	ListBySeller(ctx context.Context, sellerID int64) ([]domain.Product, error)
	// Search matches keyword case-insensitively as a substring of the name
	// or the description.
	Search(ctx context.Context, keyword string) ([]domain.Product, error)
	Insert(ctx context.Context, product *domain.Product) (*domain.Product, error)
	// Update writes name, description, price and quantity only; the seller
	// and id are never changed.
	Update(ctx context.Context, product *domain.Product) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
