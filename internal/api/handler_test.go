package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminToken = "secret-token"

type testServer struct {
	router *gin.Engine
	repo   *store.MemoryStore
	h      *Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := store.NewMemoryStore()
	locker := service.NewLocalLocker(time.Second)
	pub := service.NopPublisher{}

	h := NewHandler(Services{
		Catalog:  service.NewCatalogService(repo, pub),
		Carts:    service.NewCartService(repo, locker, false),
		Checkout: service.NewCheckoutService(repo, locker, pub),
		Orders:   service.NewOrderService(repo),
	}, testAdminToken)

	router := gin.New()
	h.SetupRoutes(router)
	return &testServer{router: router, repo: repo, h: h}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) product(t *testing.T, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock, Category: "Test"}
	require.NoError(t, s.repo.CreateProduct(context.Background(), p))
	return p
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestBannerAndHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "E-commerce Terminal API", body["message"])
	assert.Equal(t, "running", body["status"])

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/ready", nil).Code)

	s.h.AddReadinessCheck("database", func(context.Context) error { return errors.New("down") })
	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodGet, "/ready", nil).Code)
}

func TestListProductsFilters(t *testing.T) {
	s := newTestServer(t)
	_, err := store.SeedSampleData(context.Background(), s.repo)
	require.NoError(t, err)

	w := s.do(t, http.MethodGet, "/api/v1/products?category=electronics&min_price=50", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["count"])

	w = s.do(t, http.MethodGet, "/api/v1/products?q=mouse", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = s.do(t, http.MethodGet, "/api/v1/products?max_price=cheap", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProductAndStock(t *testing.T) {
	s := newTestServer(t)
	p := s.product(t, "Mouse", "29.99", 0)

	w := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", p.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["in_stock"])

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/products/%d/stock", p.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.StockSourceDatabase, decode(t, w)["source"])

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/products/999", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/v1/products/abc", nil).Code)
}

// memMirror honours row versions the way the Redis mirror does
type memMirror struct {
	mu      sync.Mutex
	stock   map[int64]int
	version map[int64]int64
}

func (m *memMirror) SetStock(_ context.Context, productID int64, stock int, version int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if version < m.version[productID] {
		return nil
	}
	m.stock[productID] = stock
	m.version[productID] = version
	return nil
}

func (m *memMirror) GetStock(_ context.Context, productID int64) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stock[productID]
	return s, ok, nil
}

func (m *memMirror) DeleteStock(_ context.Context, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stock, productID)
	delete(m.version, productID)
	return nil
}

func TestStockEndpointReflectsCheckout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := store.NewMemoryStore()
	locker := service.NewLocalLocker(time.Second)
	cache := service.NewStockCache(repo, &memMirror{stock: map[int64]int{}, version: map[int64]int64{}})
	pub := service.NewSyncingPublisher(service.NopPublisher{}, cache)

	h := NewHandler(Services{
		Catalog:  service.NewCatalogService(repo, pub),
		Carts:    service.NewCartService(repo, locker, false),
		Checkout: service.NewCheckoutService(repo, locker, pub),
		Orders:   service.NewOrderService(repo),
		Stock:    cache,
	}, testAdminToken)
	router := gin.New()
	h.SetupRoutes(router)
	s := &testServer{router: router, repo: repo, h: h}

	p := s.product(t, "Mouse", "29.99", 5)
	path := fmt.Sprintf("/api/v1/products/%d/stock", p.ID)

	w := s.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 5, decode(t, w)["stock"])

	w = s.do(t, http.MethodGet, path, nil)
	assert.Equal(t, service.StockSourceCache, decode(t, w)["source"])

	w = s.do(t, http.MethodPost, "/api/v1/carts/s1/items", gin.H{"product_id": p.ID, "quantity": 4})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/api/v1/carts/s1/checkout", gin.H{"customer_name": "Ann"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["stock"])
	assert.Equal(t, service.StockSourceCache, body["source"])

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/products/%d/stock", p.ID), gin.H{"delta": 9},
		"Authorization", "Bearer "+testAdminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 10, decode(t, s.do(t, http.MethodGet, path, nil))["stock"])
}

func TestCartAndCheckoutFlow(t *testing.T) {
	s := newTestServer(t)
	a := s.product(t, "A", "10.00", 10)
	b := s.product(t, "B", "5.50", 10)

	w := s.do(t, http.MethodPost, "/api/v1/carts/s1/items", gin.H{"product_id": a.ID, "quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/api/v1/carts/s1/items", gin.H{"product_id": b.ID, "quantity": 3})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/carts/s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cart models.Cart
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	require.Len(t, cart.Lines, 2)
	assert.True(t, decimal.RequireFromString("36.50").Equal(cart.Total))

	w = s.do(t, http.MethodPost, "/api/v1/carts/s1/checkout", gin.H{"customer_name": "Ann"}, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "36.50", body["total"])
	orderID := body["order_id"]

	w = s.do(t, http.MethodPost, "/api/v1/carts/s1/checkout", gin.H{"customer_name": "Ann"}, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, orderID, decode(t, w)["order_id"])

	w = s.do(t, http.MethodPost, "/api/v1/carts/s1/checkout", gin.H{"customer_name": "Ann"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/orders/%v", orderID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var order models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Len(t, order.Items, 2)

	w = s.do(t, http.MethodGet, "/api/v1/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])
}

func TestCartErrorMapping(t *testing.T) {
	s := newTestServer(t)
	p := s.product(t, "Lamp", "34.99", 2)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"unknown product", http.MethodPost, "/api/v1/carts/s1/items", gin.H{"product_id": 999, "quantity": 1}, http.StatusNotFound},
		{"zero quantity", http.MethodPost, "/api/v1/carts/s1/items", gin.H{"product_id": p.ID, "quantity": 0}, http.StatusBadRequest},
		{"over stock", http.MethodPost, "/api/v1/carts/s1/items", gin.H{"product_id": p.ID, "quantity": 3}, http.StatusConflict},
		{"missing product id", http.MethodPost, "/api/v1/carts/s1/items", gin.H{"quantity": 1}, http.StatusBadRequest},
		{"update unknown item", http.MethodPut, "/api/v1/carts/s1/items/77", gin.H{"quantity": 1}, http.StatusNotFound},
		{"remove unknown item", http.MethodDelete, "/api/v1/carts/s1/items/77", nil, http.StatusNotFound},
		{"checkout empty cart", http.MethodPost, "/api/v1/carts/s1/checkout", gin.H{"customer_name": "Ann"}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	w := s.do(t, http.MethodPost, "/api/v1/carts/s1/items", gin.H{"product_id": p.ID, "quantity": 3})
	body := decode(t, w)
	assert.EqualValues(t, p.ID, body["product_id"])
	assert.EqualValues(t, 2, body["available"])
}

func TestCartOwnershipOverHTTP(t *testing.T) {
	s := newTestServer(t)
	p := s.product(t, "Shirt", "19.99", 10)

	w := s.do(t, http.MethodPost, "/api/v1/carts/x/items", gin.H{"product_id": p.ID, "quantity": 1})
	require.Equal(t, http.StatusCreated, w.Code)
	itemID := decode(t, w)["id"]

	path := fmt.Sprintf("/api/v1/carts/y/items/%v", itemID)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPut, path, gin.H{"quantity": 2}).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, path, nil).Code)

	path = fmt.Sprintf("/api/v1/carts/x/items/%v", itemID)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodPut, path, gin.H{"quantity": 2}).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, path, nil).Code)

	w = s.do(t, http.MethodDelete, "/api/v1/carts/x", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["removed"])
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	auth := []string{"Authorization", "Bearer " + testAdminToken}

	w := s.do(t, http.MethodPost, "/api/v1/admin/products", gin.H{"name": "Desk Lamp", "price": "34.99", "stock": 25})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/admin/products", gin.H{"name": "Desk Lamp", "price": "34.99", "stock": 25}, auth...)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["id"]

	w = s.do(t, http.MethodPost, "/api/v1/admin/products", gin.H{"name": "Bad", "price": "-1"}, auth...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/admin/products/%v", id), gin.H{"stock": 30}, auth...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Desk Lamp", decode(t, w)["name"])

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/products/%v/stock", id), gin.H{"delta": -31}, auth...)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/products/%v/stock", id), gin.H{"delta": -5}, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 25, decode(t, w)["stock"])

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/admin/products/%v", id), nil, auth...)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/admin/products/%v", id), nil, auth...)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := store.NewMemoryStore()
	h := NewHandler(Services{Catalog: service.NewCatalogService(repo, service.NopPublisher{})}, "")
	router := gin.New()
	h.SetupRoutes(router)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/products/1", nil)
	req.Header.Set("Authorization", "Bearer ")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
