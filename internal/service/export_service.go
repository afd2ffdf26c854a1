package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"marketplace/internal/domain"
	"marketplace/internal/storage"
)

// ExportResult describes an uploaded catalog snapshot.
type ExportResult struct {
	Location    string    `json:"location"`
	Key         string    `json:"key"`
	Products    int       `json:"products"`
	GeneratedAt time.Time `json:"generated_at"`
}

// CatalogExporter writes admin snapshots of the catalog to object storage.
type CatalogExporter interface {
	Export(ctx context.Context, acting domain.User) (*ExportResult, error)
	ListExports(ctx context.Context, acting domain.User) ([]storage.ObjectInfo, error)
}

type catalogSnapshot struct {
	GeneratedAt  time.Time         `json:"generated_at"`
	ProductCount int               `json:"product_count"`
	Products     []snapshotProduct `json:"products"`
}

type snapshotProduct struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Price          string `json:"price"`
	Quantity       int    `json:"quantity"`
	SellerID       int64  `json:"seller_id"`
	SellerUsername string `json:"seller_username,omitempty"`
	SellerEmail    string `json:"seller_email,omitempty"`
	SellerFound    bool   `json:"seller_found"`
}

type catalogExporter struct {
	products  ProductService
	store     storage.Service
	bucket    string
	keyPrefix string
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewCatalogExporter(products ProductService, store storage.Service, bucket, keyPrefix string, log logrus.FieldLogger) CatalogExporter {
	return &catalogExporter{
		products:  products,
		store:     store,
		bucket:    bucket,
		keyPrefix: keyPrefix,
		log:       log,
		now:       time.Now,
	}
}

func (e *catalogExporter) Export(ctx context.Context, acting domain.User) (*ExportResult, error) {
	if !acting.Role.CanAdminister() {
		return nil, domain.Forbidden("only admins can export the catalog")
	}

	listings, err := e.products.ListProductsWithSellers(ctx, acting)
	if err != nil {
		return nil, err
	}

	generated := e.now().UTC()
	snapshot := catalogSnapshot{
		GeneratedAt:  generated,
		ProductCount: len(listings),
		Products:     make([]snapshotProduct, 0, len(listings)),
	}
	for _, l := range listings {
		snapshot.Products = append(snapshot.Products, snapshotProduct{
			ID:             l.Product.ID,
			Name:           l.Product.Name,
			Description:    l.Product.Description,
			Price:          domain.FormatPrice(l.Product.Price),
			Quantity:       l.Product.Quantity,
			SellerID:       l.Product.SellerID,
			SellerUsername: l.SellerUsername,
			SellerEmail:    l.SellerEmail,
			SellerFound:    l.SellerFound,
		})
	}

	body, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode catalog snapshot: %w", err)
	}

	key := storage.JoinKey(e.keyPrefix, fmt.Sprintf("catalog-%s-%s.json", generated.Format("20060102T150405Z"), uuid.NewString()))
	location, err := e.store.PutObject(ctx, e.bucket, key, bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, domain.Storage("upload catalog export", err)
	}

	e.log.WithFields(logrus.Fields{
		"user_id":  acting.ID,
		"location": location,
		"products": len(listings),
	}).Info("catalog exported")

	return &ExportResult{
		Location:    location,
		Key:         key,
		Products:    len(listings),
		GeneratedAt: generated,
	}, nil
}

func (e *catalogExporter) ListExports(ctx context.Context, acting domain.User) ([]storage.ObjectInfo, error) {
	if !acting.Role.CanAdminister() {
		return nil, domain.Forbidden("only admins can list catalog exports")
	}

	prefix := storage.JoinKey(e.keyPrefix)
	if prefix != "" {
		prefix += "/"
	}
	objects, err := e.store.ListObjects(ctx, e.bucket, prefix)
	if err != nil {
		return nil, domain.Storage("list catalog exports", err)
	}
	return objects, nil
}
