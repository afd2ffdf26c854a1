package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"marketplace/internal/domain"
	"marketplace/internal/repository"
)

type ProductRepository struct {
	mu       sync.RWMutex
	nextID   int64
	products map[int64]domain.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[int64]domain.Product)}
}

func (r *ProductRepository) Init(context.Context) error {
	return nil
}

func (r *ProductRepository) FindByID(_ context.Context, id int64) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *ProductRepository) ListAll(context.Context) ([]domain.Product, error) {
	return r.filter(func(domain.Product) bool { return true }), nil
}

func (r *ProductRepository) ListBySeller(_ context.Context, sellerID int64) ([]domain.Product, error) {
	return r.filter(func(p domain.Product) bool { return p.SellerID == sellerID }), nil
}

func (r *ProductRepository) Search(_ context.Context, keyword string) ([]domain.Product, error) {
	needle := strings.ToLower(keyword)
	return r.filter(func(p domain.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle)
	}), nil
}

func (r *ProductRepository) Insert(_ context.Context, product *domain.Product) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now().UTC()
	stored := *product
	stored.ID = r.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.products[stored.ID] = stored

	out := stored
	return &out, nil
}

func (r *ProductRepository) Update(_ context.Context, product *domain.Product) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.products[product.ID]
	if !ok {
		return false, nil
	}
	existing.Name = product.Name
	existing.Description = product.Description
	existing.Price = product.Price
	existing.Quantity = product.Quantity
	existing.UpdatedAt = time.Now().UTC()
	r.products[product.ID] = existing
	return true, nil
}

func (r *ProductRepository) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return false, nil
	}
	delete(r.products, id)
	return true, nil
}

func (r *ProductRepository) filter(keep func(domain.Product) bool) []domain.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var _ repository.ProductRepository = (*ProductRepository)(nil)
