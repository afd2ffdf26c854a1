package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketplace/internal/domain"
	"marketplace/internal/repository"
)

// seller_id carries no foreign key: deleting a seller leaves their products
// in place.
const createProductsTable = `
CREATE TABLE IF NOT EXISTS products (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	description TEXT NOT NULL,
	price INTEGER NOT NULL CHECK (price > 0),
	quantity INTEGER NOT NULL CHECK (quantity >= 0),
	seller_id INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_seller_id ON products(seller_id);
`

const selectProductColumns = `SELECT id, name, description, price, quantity, seller_id, created_at, updated_at FROM products`

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createProductsTable); err != nil {
		return fmt.Errorf("create products table: %w", err)
	}
	return nil
}

func (r *ProductRepository) Insert(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO products (name, description, price, quantity, seller_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		product.Name,
		product.Description,
		product.Price,
		product.Quantity,
		product.SellerID,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("product last insert id: %w", err)
	}

	created := *product
	created.ID = id
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, selectProductColumns+`
WHERE id = ?`,
		id,
	)
	return scanProduct(row)
}

func (r *ProductRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	return r.list(ctx, "query products", selectProductColumns+`
ORDER BY id ASC`)
}

func (r *ProductRepository) ListBySeller(ctx context.Context, sellerID int64) ([]domain.Product, error) {
	return r.list(ctx, "query seller products", selectProductColumns+`
WHERE seller_id = ?
ORDER BY id ASC`, sellerID)
}

func (r *ProductRepository) Search(ctx context.Context, keyword string) ([]domain.Product, error) {
	pattern := repository.LikePattern(keyword)
	return r.list(ctx, "search products", selectProductColumns+`
WHERE ulower(name) LIKE ulower(?) ESCAPE '\' OR ulower(description) LIKE ulower(?) ESCAPE '\'
ORDER BY id ASC`, pattern, pattern)
}

func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE products
SET name=?, description=?, price=?, quantity=?, updated_at=?
WHERE id=?`,
		product.Name,
		product.Description,
		product.Price,
		product.Quantity,
		time.Now().UTC(),
		product.ID,
	)
	if err != nil {
		return false, fmt.Errorf("update product: %w", err)
	}
	return affected(res, "update product")
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id=?`, id)
	if err != nil {
		return false, fmt.Errorf("delete product: %w", err)
	}
	return affected(res, "delete product")
}

func (r *ProductRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

func scanProduct(row interface {
	Scan(dest ...any) error
}) (*domain.Product, error) {
	var product domain.Product
	if err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Quantity,
		&product.SellerID,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return &product, nil
}

var _ repository.ProductRepository = (*ProductRepository)(nil)
