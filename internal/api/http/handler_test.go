package httpapi

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FreetimeMaker/freetime-shop/internal/catalog"
	"github.com/FreetimeMaker/freetime-shop/internal/repository/memory"
	"github.com/FreetimeMaker/freetime-shop/internal/service"
)

// instantSleeper не ждёт: оплата в тестах проходит мгновенно
type instantSleeper struct{}

func (instantSleeper) Sleep(_ context.Context, _ time.Duration) error { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	cat := catalog.Default()
	carts := service.NewCartRegistry()
	directory := service.NewStaticWalletDirectory(nil)
	orders := service.NewOrderService(logger, memory.NewOrderRepository())
	payments := service.NewPaymentManagerWithClock(
		logger,
		memory.NewPaymentRepository(),
		memory.NewWalletRepository(),
		directory,
		service.PaymentConfig{FailureThreshold: 0.000001},
		instantSleeper{},
		rand.New(rand.NewSource(1)),
	)
	checkout := service.NewCheckoutService(logger, orders, payments, nil, "BTC")
	handler := NewHandler(logger, cat, carts, orders, payments, checkout, directory)
	return NewRouter(handler, func() bool { return true }, nil)
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_Products(t *testing.T) {
	router := newTestRouter(t)

	t.Run("lists the full catalog", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var products []ProductResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
		require.Len(t, products, 10)
	})

	t.Run("filters by category", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/products?category=bundles", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var products []ProductResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
		require.Len(t, products, 2)
	})

	t.Run("unknown product id returns 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/products/nope", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRouter_CartRequiresSession(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_CartAndCheckoutFlow(t *testing.T) {
	router := newTestRouter(t)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var reader *strings.Reader
		if body == "" {
			reader = strings.NewReader("{}")
		} else {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("x-session-id", "session-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	// Добавляем два товара
	rec := do(http.MethodPost, "/cart/items", `{"product_id":"platformer_android","quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodPost, "/cart/items", `{"product_id":"cat_clicker_android","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var cart CartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	require.Len(t, cart.Items, 2)
	require.Equal(t, "70.00", cart.Total) // 20 + 2*25

	// Неизвестный товар отклоняется
	rec = do(http.MethodPost, "/cart/items", `{"product_id":"nope"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Checkout без email — 400
	rec = do(http.MethodPost, "/checkout", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Email is required")

	// Checkout с email — успех (порог отказа практически нулевой)
	rec = do(http.MethodPost, "/checkout", `{"email":"buyer@example.com","currency":"BTC"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result CheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, "success", result.Outcome)
	require.NotNil(t, result.Order)
	require.Equal(t, "paid", result.Order.Status)
	require.NotEmpty(t, result.PaymentID)

	// Корзина после checkout пуста
	rec = do(http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	require.Empty(t, cart.Items)

	// Заказ виден в истории
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	recOrders := httptest.NewRecorder()
	router.ServeHTTP(recOrders, req)
	require.Equal(t, http.StatusOK, recOrders.Code)

	var orders []OrderResponse
	require.NoError(t, json.Unmarshal(recOrders.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	require.Equal(t, result.Order.ID, orders[0].ID)

	// Статус платежа
	req = httptest.NewRequest(http.MethodGet, "/payments/"+result.PaymentID+"/status", nil)
	recStatus := httptest.NewRecorder()
	router.ServeHTTP(recStatus, req)
	require.Equal(t, http.StatusOK, recStatus.Code)
	require.Contains(t, recStatus.Body.String(), "completed")
}

func TestRouter_Currencies(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/currencies", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "BTC")
}

func TestRouter_Wallets(t *testing.T) {
	router := newTestRouter(t)

	t.Run("filter by currency", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/wallets?currency=TRX", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var wallets []WalletAppResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wallets))
		require.Len(t, wallets, 2)
	})

	t.Run("configure merchant address", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/wallets/BTC", strings.NewReader(`{"address":"bc1custom"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)

		req = httptest.NewRequest(http.MethodGet, "/wallets/configured", nil)
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "bc1custom")
	})
}

func TestRouter_UnknownPayment(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/payments/missing/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
