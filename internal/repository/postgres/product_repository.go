package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"marketplace/internal/domain"
	"marketplace/internal/repository"
)

const createProductsSchema = `
CREATE TABLE IF NOT EXISTS products (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL,
	price BIGINT NOT NULL CHECK (price > 0),
	quantity INTEGER NOT NULL CHECK (quantity >= 0),
	seller_id BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_seller_id ON products (seller_id);`

const selectProductColumns = `
		SELECT id, name, description, price, quantity, seller_id, created_at, updated_at
		FROM products`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// Init creates the products table when missing.
func (r *ProductRepository) Init(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createProductsSchema); err != nil {
		return fmt.Errorf("create products schema: %w", err)
	}
	return nil
}

// Insert stores a new product and returns it with the generated id.
func (r *ProductRepository) Insert(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO products (name, description, price, quantity, seller_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	var id int64
	err := r.db.QueryRow(ctx, query,
		p.Name,
		p.Description,
		p.Price,
		p.Quantity,
		p.SellerID,
		now,
		now,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}

	created := *p
	created.ID = id
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

// FindByID retrieves a product by id.
func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.db.QueryRow(ctx, selectProductColumns+`
		WHERE id = $1`, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Quantity, &p.SellerID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return &p, nil
}

// ListAll returns every product in insertion order.
func (r *ProductRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	return r.list(ctx, selectProductColumns+`
		ORDER BY id ASC`)
}

// ListBySeller returns the products owned by sellerID.
func (r *ProductRepository) ListBySeller(ctx context.Context, sellerID int64) ([]domain.Product, error) {
	return r.list(ctx, selectProductColumns+`
		WHERE seller_id = $1
		ORDER BY id ASC`, sellerID)
}

// Search matches keyword against name OR description, ignoring case.
func (r *ProductRepository) Search(ctx context.Context, keyword string) ([]domain.Product, error) {
	return r.list(ctx, selectProductColumns+`
		WHERE name ILIKE $1 OR description ILIKE $1
		ORDER BY id ASC`, repository.LikePattern(keyword))
}

// Update writes the mutable product columns. seller_id is not part of the statement.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (bool, error) {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, quantity = $4, updated_at = $5
		WHERE id = $6`

	tag, err := r.db.Exec(ctx, query,
		p.Name,
		p.Description,
		p.Price,
		p.Quantity,
		time.Now().UTC(),
		p.ID,
	)
	if err != nil {
		return false, fmt.Errorf("update product: %w", err)
	}
	return affected(tag), nil
}

// Delete removes a product by id.
func (r *ProductRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete product: %w", err)
	}
	return affected(tag), nil
}

func (r *ProductRepository) list(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Quantity, &p.SellerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

var _ repository.ProductRepository = (*ProductRepository)(nil)
