package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/domain"
	"marketplace/internal/storage"
)

type fakeStore struct {
	bucket      string
	key         string
	body        []byte
	contentType string
	listPrefix  string
	objects     []storage.ObjectInfo
	err         error
}

func (s *fakeStore) PutObject(_ context.Context, bucket, key string, body io.Reader, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.bucket, s.key, s.body, s.contentType = bucket, key, data, contentType
	return "s3://" + bucket + "/" + key, nil
}

func (s *fakeStore) ListObjects(_ context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.bucket, s.listPrefix = bucket, prefix
	return s.objects, nil
}

func TestCatalogExporter_Export(t *testing.T) {
	f := newFixture(t)
	admin := f.register(t, "ada", domain.RoleAdmin)
	seller := f.register(t, "sam", domain.RoleSeller)
	f.product(t, "Widget", "blue", seller)

	store := &fakeStore{}
	exp := NewCatalogExporter(f.catalog, store, "exports", "/catalog/", f.logger).(*catalogExporter)
	exp.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

	_, err := exp.Export(f.ctx, seller)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	res, err := exp.Export(f.ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Products)
	assert.True(t, strings.HasPrefix(res.Key, "catalog/catalog-20260304T050607Z-"), res.Key)
	assert.True(t, strings.HasSuffix(res.Key, ".json"))
	assert.Equal(t, "s3://exports/"+res.Key, res.Location)
	assert.Equal(t, "exports", store.bucket)
	assert.Equal(t, "application/json", store.contentType)

	var doc struct {
		ProductCount int `json:"product_count"`
		Products     []struct {
			Name           string `json:"name"`
			Price          string `json:"price"`
			SellerUsername string `json:"seller_username"`
			SellerFound    bool   `json:"seller_found"`
		} `json:"products"`
	}
	require.NoError(t, json.Unmarshal(store.body, &doc))
	assert.Equal(t, 1, doc.ProductCount)
	require.Len(t, doc.Products, 1)
	assert.Equal(t, "Widget", doc.Products[0].Name)
	assert.Equal(t, "9.99", doc.Products[0].Price)
	assert.Equal(t, "sam", doc.Products[0].SellerUsername)
	assert.True(t, doc.Products[0].SellerFound)
}

func TestCatalogExporter_UploadFailure(t *testing.T) {
	f := newFixture(t)
	admin := f.register(t, "ada", domain.RoleAdmin)
	exp := NewCatalogExporter(f.catalog, &fakeStore{err: errors.New("503")}, "exports", "catalog", f.logger)

	_, err := exp.Export(f.ctx, admin)
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestCatalogExporter_ListExports(t *testing.T) {
	f := newFixture(t)
	admin := f.register(t, "ada", domain.RoleAdmin)
	buyer := f.register(t, "bella", domain.RoleBuyer)
	store := &fakeStore{objects: []storage.ObjectInfo{{Key: "catalog/catalog-1.json", Size: 10}}}
	exp := NewCatalogExporter(f.catalog, store, "exports", "catalog", f.logger)

	_, err := exp.ListExports(f.ctx, buyer)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	objects, err := exp.ListExports(f.ctx, admin)
	require.NoError(t, err)
	assert.Len(t, objects, 1)
	assert.Equal(t, "catalog/", store.listPrefix)
}
