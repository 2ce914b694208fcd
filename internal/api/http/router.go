package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/FreetimeMaker/freetime-shop/internal/api/http/middleware"
	platformhealth "github.com/FreetimeMaker/freetime-shop/platform/health/http"
	platformobservability "github.com/FreetimeMaker/freetime-shop/platform/observability"
)

// NewRouter создаёт и настраивает HTTP роутер витрины
// readiness - функция для проверки готовности сервиса (например, проверка БД).
// Если readiness возвращает false, health endpoint вернёт 503 Service Unavailable.
// logger используется для observability HTTP middleware (trace_id в логах).
func NewRouter(handler *Handler, readiness func() bool, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	// Observability: trace context + span на каждый запрос, logger с trace_id в контексте
	if logger != nil {
		router.Use(platformobservability.HTTPMiddleware("shop", logger))
	}

	// Каталог и справочники не требуют сессии
	router.Get("/products", handler.GetProducts)
	router.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		handler.GetProductsId(w, r, chi.URLParam(r, "id"))
	})
	router.Get("/currencies", handler.GetCurrencies)
	router.Get("/wallets", handler.GetWallets)
	router.Get("/wallets/configured", handler.GetWalletsConfigured)
	router.Put("/wallets/{currency}", func(w http.ResponseWriter, r *http.Request) {
		handler.PutWalletsCurrency(w, r, chi.URLParam(r, "currency"))
	})

	// /cart* и /checkout требуют x-session-id (middleware возвращает 401 при отсутствии)
	router.Group(func(r chi.Router) {
		r.Use(middleware.WithSessionID)
		r.Get("/cart", handler.GetCart)
		r.Delete("/cart", handler.DeleteCart)
		r.Post("/cart/items", handler.PostCartItems)
		r.Put("/cart/items/{productID}", func(w http.ResponseWriter, req *http.Request) {
			handler.PutCartItemsId(w, req, chi.URLParam(req, "productID"))
		})
		r.Delete("/cart/items/{productID}", func(w http.ResponseWriter, req *http.Request) {
			handler.DeleteCartItemsId(w, req, chi.URLParam(req, "productID"))
		})
		r.Post("/checkout", handler.PostCheckout)
	})

	// История заказов и платежи
	router.Get("/orders", handler.GetOrders)
	router.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		handler.GetOrdersId(w, r, chi.URLParam(r, "id"))
	})
	router.Get("/payments/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		handler.GetPaymentsIdStatus(w, r, chi.URLParam(r, "id"))
	})
	router.Post("/payments/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		handler.PostPaymentsIdCancel(w, r, chi.URLParam(r, "id"))
	})
	router.Post("/payments/{id}/refund", func(w http.ResponseWriter, r *http.Request) {
		handler.PostPaymentsIdRefund(w, r, chi.URLParam(r, "id"))
	})
	router.Post("/payments/{id}/deeplink", func(w http.ResponseWriter, r *http.Request) {
		handler.PostPaymentsIdDeeplink(w, r, chi.URLParam(r, "id"))
	})

	// Health без middleware (не требует сессии)
	router.Get("/health", platformhealth.Handler(readiness))

	return router
}
