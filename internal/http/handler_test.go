package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"marketplace/internal/credential"
	"marketplace/internal/event"
	"marketplace/internal/repository/memory"
	"marketplace/internal/service"
	"marketplace/internal/storage"
)

type memoryStore struct {
	keys []string
}

func (s *memoryStore) PutObject(_ context.Context, bucket, key string, body io.Reader, _ string) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	s.keys = append(s.keys, key)
	return "s3://" + bucket + "/" + key, nil
}

func (s *memoryStore) ListObjects(context.Context, string, string) ([]storage.ObjectInfo, error) {
	out := make([]storage.ObjectInfo, len(s.keys))
	for i, k := range s.keys {
		out[i] = storage.ObjectInfo{Key: k, Size: 1}
	}
	return out, nil
}

type testAPI struct {
	t      *testing.T
	router *gin.Engine
}

func newTestAPI(t *testing.T, withExports bool) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	codec, err := credential.NewBcryptCodec(bcrypt.MinCost)
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()

	users := service.NewUserService(memory.NewUserRepository(), codec, event.NopPublisher{}, logger)
	products := service.NewProductService(memory.NewProductRepository(), users, event.NopPublisher{}, logger)
	var exporter service.CatalogExporter
	if withExports {
		exporter = service.NewCatalogExporter(products, &memoryStore{}, "exports", "catalog", logger)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	handler, err := NewHandler(users, products, exporter, logger)
	require.NoError(t, err)
	handler.RegisterRoutes(router)
	return &testAPI{t: t, router: router}
}

type creds struct{ user, pass string }

func (a *testAPI) do(method, path string, auth *creds, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != nil {
		req.SetBasicAuth(auth.user, auth.pass)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) register(username, role string) *creds {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/register", nil, gin.H{
		"username": username,
		"password": "pw-" + username,
		"email":    username + "@example.com",
		"role":     role,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return &creds{user: username, pass: "pw-" + username}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// ==== Identity ====

func TestRegister(t *testing.T) {
	api := newTestAPI(t, false)

	w := api.do(http.MethodPost, "/api/register", nil, gin.H{
		"username": "alice", "password": "secret", "email": "alice@example.com", "role": "SELLER",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	user := decode[UserResponse](t, w)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "seller", user.Role)
	assert.NotContains(t, w.Body.String(), "password")

	w = api.do(http.MethodPost, "/api/register", nil, gin.H{
		"username": "alice", "password": "x", "email": "a@example.com", "role": "buyer",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(http.MethodPost, "/api/register", nil, gin.H{
		"username": "bob", "password": "x", "email": "b@example.com", "role": "wizard",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "role must be one of")

	w = api.do(http.MethodPost, "/api/register", nil, gin.H{
		"username": "bob", "password": "x", "email": "nope", "role": "buyer",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthentication(t *testing.T) {
	api := newTestAPI(t, false)
	alice := api.register("alice", "buyer")

	w := api.do(http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, authRealm, w.Header().Get("WWW-Authenticate"))

	wrong := api.do(http.MethodGet, "/api/me", &creds{user: "alice", pass: "bad"}, nil)
	unknown := api.do(http.MethodGet, "/api/me", &creds{user: "ghost", pass: "bad"}, nil)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())

	w = api.do(http.MethodGet, "/api/me", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", decode[UserResponse](t, w).Username)
}

func TestUpdateMe(t *testing.T) {
	api := newTestAPI(t, false)
	alice := api.register("alice", "buyer")

	w := api.do(http.MethodPatch, "/api/me", alice, gin.H{"field": "role", "value": "admin"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(http.MethodPatch, "/api/me", alice, gin.H{"field": "nickname", "value": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPatch, "/api/me", alice, gin.H{"field": "Email", "value": "new@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "new@example.com", decode[UserResponse](t, w).Email)

	w = api.do(http.MethodPatch, "/api/me", alice, gin.H{"field": "password", "value": "changed"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/me", alice, nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/me", &creds{user: "alice", pass: "changed"}, nil).Code)
}

// ==== Catalog ====

func TestProductLifecycle(t *testing.T) {
	api := newTestAPI(t, false)
	s1 := api.register("s1", "seller")
	s2 := api.register("s2", "seller")
	buyer := api.register("bella", "buyer")

	widget := gin.H{"name": "Widget", "description": "a blue widget", "price": "9.99", "quantity": 3}

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/products", nil, widget).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/products", buyer, widget).Code)

	w := api.do(http.MethodPost, "/api/products", s1, widget)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[ProductResponse](t, w)
	assert.Equal(t, "9.99", created.Price)
	path := "/api/products/" + strconv.FormatInt(created.ID, 10)

	edit := gin.H{"name": "Stolen", "description": "mine now", "price": "1.00", "quantity": 1, "seller_id": 2}
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPut, path, s2, edit).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, path, s2, nil).Code)
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPatch, path+"/quantity", s2, gin.H{"quantity": 9}).Code)

	w = api.do(http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Widget", decode[ProductResponse](t, w).Name)

	w = api.do(http.MethodPut, path, s1, edit)
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[ProductResponse](t, w)
	assert.Equal(t, "Stolen", updated.Name)
	assert.Equal(t, created.SellerID, updated.SellerID)

	w = api.do(http.MethodPatch, path+"/quantity", s1, gin.H{"quantity": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[ProductResponse](t, w).Quantity)

	w = api.do(http.MethodGet, "/api/sellers/me/products", s1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]ProductResponse](t, w), 1)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, path, s1, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, path, nil, nil).Code)
}

func TestProductValidation(t *testing.T) {
	api := newTestAPI(t, false)
	seller := api.register("sam", "seller")

	cases := []gin.H{
		{"name": "W", "description": "d", "price": "abc", "quantity": 1},
		{"name": "W", "description": "d", "price": "0.00", "quantity": 1},
		{"name": "W", "description": "d", "price": "1.999", "quantity": 1},
		{"name": "W", "description": "d", "price": "1.00"},
		{"name": "W", "description": "d", "price": "1.00", "quantity": -1},
		{"description": "d", "price": "1.00", "quantity": 1},
	}
	for _, body := range cases {
		w := api.do(http.MethodPost, "/api/products", seller, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%v: %s", body, w.Body.String())
	}

	w := api.do(http.MethodPost, "/api/products", seller, gin.H{"name": "Penny", "description": "d", "price": "0.01", "quantity": 0})
	assert.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/products/abc", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/products/77", nil, nil).Code)
}

func TestSearch(t *testing.T) {
	api := newTestAPI(t, false)
	seller := api.register("sam", "seller")
	for _, name := range []string{"Blue Widget", "Gadget", "widget pro"} {
		w := api.do(http.MethodPost, "/api/products", seller, gin.H{"name": name, "description": "d", "price": "1.00", "quantity": 1})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := api.do(http.MethodGet, "/api/products/search?q=WIDGET", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	found := decode[[]ProductResponse](t, w)
	require.Len(t, found, 2)
	assert.Equal(t, "Blue Widget", found[0].Name)
	assert.Equal(t, "widget pro", found[1].Name)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/products/search?q=+", nil, nil).Code)
}

// ==== Admin ====

func TestAdminRoutes(t *testing.T) {
	api := newTestAPI(t, false)
	admin := api.register("ada", "admin")
	seller := api.register("sam", "seller")
	buyer := api.register("bella", "buyer")

	w := api.do(http.MethodPost, "/api/products", seller, gin.H{"name": "Widget", "description": "d", "price": "2.50", "quantity": 1})
	require.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/admin/users", buyer, nil).Code)

	w = api.do(http.MethodGet, "/api/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]UserResponse](t, w), 3)

	w = api.do(http.MethodPatch, "/api/admin/users/3", admin, gin.H{"field": "role", "value": "seller"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "seller", decode[UserResponse](t, w).Role)

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/admin/users/2", admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/api/admin/users/2", admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/admin/users/2", admin, nil).Code)

	w = api.do(http.MethodGet, "/api/admin/products", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	listings := decode[[]SellerListingResponse](t, w)
	require.Len(t, listings, 1)
	assert.False(t, listings[0].SellerFound)
	assert.Equal(t, "2.50", listings[0].Price)
}

func TestExports(t *testing.T) {
	disabled := newTestAPI(t, false)
	admin := disabled.register("ada", "admin")
	assert.Equal(t, http.StatusServiceUnavailable, disabled.do(http.MethodPost, "/api/admin/exports", admin, nil).Code)

	api := newTestAPI(t, true)
	admin = api.register("ada", "admin")

	w := api.do(http.MethodPost, "/api/admin/exports", admin, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[service.ExportResult](t, w)
	assert.Contains(t, res.Location, "s3://exports/catalog/catalog-")

	w = api.do(http.MethodGet, "/api/admin/exports", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	objects := decode[[]StorageObjectResponse](t, w)
	require.Len(t, objects, 1)
	assert.Equal(t, res.Key, objects[0].Key)
}

// ==== Middleware ====

func TestRequestIDAndMetrics(t *testing.T) {
	api := newTestAPI(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, "req-123")
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-123", w.Header().Get(requestIDHeader))

	w = api.do(http.MethodGet, "/api/health", nil, nil)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	w = api.do(http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "marketplace_http_requests_total")

	w = api.do(http.MethodOptions, "/api/products", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
