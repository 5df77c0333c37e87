package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavanhd360/bakery-web/config"
	"github.com/pavanhd360/bakery-web/models"
	"github.com/pavanhd360/bakery-web/obs"
	"github.com/pavanhd360/bakery-web/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Fresh SQLite file per test, migrated and seeded
func getTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(config.Database{
		Driver:       config.DriverSQLite,
		DSN:          filepath.Join(t.TempDir(), "bakery.db"),
		MaxOpenConns: 1,
	}, obs.NewLogger(io.Discard, "error"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func newRouter(t *testing.T) (*gin.Engine, *store.Store) {
	st := getTestStore(t)
	return SetupRouter(st, obs.NewLogger(io.Discard, "error")), st
}

func postJSON(router http.Handler, path string, payload any) *httptest.ResponseRecorder {
	var body []byte
	switch p := payload.(type) {
	case string:
		body = []byte(p)
	default:
		body, _ = json.Marshal(p)
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

type checkoutResponse struct {
	Success bool   `json:"success"`
	OrderID uint   `json:"order_id"`
	Error   string `json:"error"`
}

func checkoutPayload(items ...map[string]any) map[string]any {
	if items == nil {
		items = []map[string]any{}
	}
	return map[string]any{
		"name":    "June Jun",
		"email":   "junejun@gmail.com",
		"address": "12 Rye Street",
		"total":   33.97,
		"items":   items,
	}
}

// ----------------------- TESTS ----------------------- //

func TestHealth(t *testing.T) {
	router, _ := newRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHealthHidesDriverError(t *testing.T) {
	router, st := newRouter(t)
	require.NoError(t, st.Close())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unavailable","error":"database unavailable"}`, w.Body.String())
}

func TestRequestIDHeader(t *testing.T) {
	router, _ := newRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-Id"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)
	assert.Len(t, w.Header().Get("X-Request-Id"), 36)
}

func TestListProducts(t *testing.T) {
	router, _ := newRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/products", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"price":25.99`)
	assert.Contains(t, w.Body.String(), `"image_url":"images/product1.jpg"`)

	var resp []models.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 4)
	assert.Equal(t, "Chocolate Cake", resp[0].Name)
	assert.Equal(t, "Cupcakes (6)", resp[3].Name)
	assert.True(t, decimal.RequireFromString("3.99").Equal(resp[1].Price))
}

func TestCheckout(t *testing.T) {
	router, st := newRouter(t)

	w := postJSON(router, "/api/cart/checkout", checkoutPayload(
		map[string]any{"id": 1, "quantity": 1, "price": 25.99},
		map[string]any{"id": 2, "quantity": 2, "price": 3.99},
	))

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp checkoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotZero(t, resp.OrderID)

	order, err := st.FindOrder(context.Background(), resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "June Jun", order.CustomerName)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.True(t, decimal.RequireFromString("33.97").Equal(order.TotalAmount))
	require.Len(t, order.Items, 2)
	assert.Equal(t, uint(2), order.Items[1].ProductID)
	assert.Equal(t, 2, order.Items[1].Quantity)
}

// The storefront posts its cart as-is: string ids from data-id and extra fields.
func TestCheckoutStorefrontCart(t *testing.T) {
	router, st := newRouter(t)

	w := postJSON(router, "/api/cart/checkout", `{
		"name": "June Jun", "email": "junejun@gmail.com", "address": "12 Rye Street",
		"total": 11.97,
		"items": [{"id": "3", "name": "Sourdough Bread", "price": 5.99, "quantity": 2, "total": 11.98}]
	}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp checkoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	order, err := st.FindOrder(context.Background(), resp.OrderID)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, uint(3), order.Items[0].ProductID)
}

func TestCheckoutRejectsEmptyCart(t *testing.T) {
	router, _ := newRouter(t)

	w := postJSON(router, "/api/cart/checkout", checkoutPayload())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp checkoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestCheckoutMissingFields(t *testing.T) {
	router, _ := newRouter(t)
	item := map[string]any{"id": 1, "quantity": 1, "price": 25.99}

	cases := map[string]func(p map[string]any){
		"name":          func(p map[string]any) { delete(p, "name") },
		"email":         func(p map[string]any) { delete(p, "email") },
		"bad email":     func(p map[string]any) { p["email"] = "not-an-email" },
		"address":       func(p map[string]any) { delete(p, "address") },
		"total":         func(p map[string]any) { delete(p, "total") },
		"items":         func(p map[string]any) { delete(p, "items") },
		"item id":       func(p map[string]any) { p["items"] = []map[string]any{{"quantity": 1, "price": 1}} },
		"item quantity": func(p map[string]any) { p["items"] = []map[string]any{{"id": 1, "price": 1}} },
		"item price":    func(p map[string]any) { p["items"] = []map[string]any{{"id": 1, "quantity": 1}} },
		"negative":      func(p map[string]any) { p["total"] = -5 },
		"huge total":    func(p map[string]any) { p["total"] = 123456789.5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := checkoutPayload(item)
			mutate(p)
			w := postJSON(router, "/api/cart/checkout", p)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"success":false`)
		})
	}

	w := postJSON(router, "/api/cart/checkout", `{"name": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutUnknownProduct(t *testing.T) {
	router, st := newRouter(t)

	w := postJSON(router, "/api/cart/checkout", checkoutPayload(
		map[string]any{"id": 1, "quantity": 1, "price": 25.99},
		map[string]any{"id": 404, "quantity": 1, "price": 1.50},
	))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	_, err := st.FindOrder(context.Background(), 1)
	assert.Error(t, err)
}

func TestCheckoutConcurrent(t *testing.T) {
	router, st := newRouter(t)

	const n = 50
	responses := make([]*httptest.ResponseRecorder, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			responses[i] = postJSON(router, "/api/cart/checkout", checkoutPayload(
				map[string]any{"id": 1, "quantity": i + 1, "price": 25.99},
				map[string]any{"id": 4, "quantity": 1, "price": 12.99},
			))
		}(i)
	}
	wg.Wait()

	seen := make(map[uint]bool, n)
	for i, w := range responses {
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var resp checkoutResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, seen[resp.OrderID], fmt.Sprintf("order id %d returned twice", resp.OrderID))
		seen[resp.OrderID] = true

		order, err := st.FindOrder(context.Background(), resp.OrderID)
		require.NoError(t, err)
		require.Len(t, order.Items, 2)
		assert.Equal(t, i+1, order.Items[0].Quantity)
	}
}

func TestSubmitFeedback(t *testing.T) {
	router, _ := newRouter(t)

	w := postJSON(router, "/api/feedback", map[string]any{
		"name":    "June Jun",
		"email":   "junejun@gmail.com",
		"message": "Newsletter subscription",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
}

func TestSubmitFeedbackMissingMessage(t *testing.T) {
	router, _ := newRouter(t)

	w := postJSON(router, "/api/feedback", map[string]any{
		"name":  "June Jun",
		"email": "junejun@gmail.com",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestGinMode(t *testing.T) {
	assert.Equal(t, gin.DebugMode, ginMode("debug"))
	assert.Equal(t, gin.ReleaseMode, ginMode("loud"))
}
