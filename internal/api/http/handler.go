package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/FreetimeMaker/freetime-shop/internal/authctx"
	"github.com/FreetimeMaker/freetime-shop/internal/catalog"
	"github.com/FreetimeMaker/freetime-shop/internal/repository"
	"github.com/FreetimeMaker/freetime-shop/internal/service"
	"github.com/FreetimeMaker/freetime-shop/platform/observability"
)

// Handler содержит HTTP-обработчики витрины
// Зависит от service слоя, но не знает о деталях реализации (БД, Kafka и т.д.)
type Handler struct {
	logger   *zap.Logger
	catalog  *catalog.Catalog
	carts    *service.CartRegistry
	orders   *service.OrderService
	payments *service.PaymentManager
	checkout *service.CheckoutService
	wallets  service.WalletDirectory
}

// NewHandler создаёт новый HTTP handler
func NewHandler(
	logger *zap.Logger,
	cat *catalog.Catalog,
	carts *service.CartRegistry,
	orders *service.OrderService,
	payments *service.PaymentManager,
	checkout *service.CheckoutService,
	wallets service.WalletDirectory,
) *Handler {
	return &Handler{
		logger:   logger,
		catalog:  cat,
		carts:    carts,
		orders:   orders,
		payments: payments,
		checkout: checkout,
		wallets:  wallets,
	}
}

// ProductResponse представляет товар в HTTP ответе
type ProductResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	Currency    string   `json:"currency"`
	Category    string   `json:"category"`
	Platform    string   `json:"platform"`
	ImageURL    string   `json:"image_url,omitempty"`
	PurchaseURL string   `json:"purchase_url,omitempty"`
	Features    []string `json:"features,omitempty"`
}

// CartItemRequest представляет HTTP запрос на добавление/изменение позиции корзины
type CartItemRequest struct {
	ProductID *string `json:"product_id"`
	Quantity  *int    `json:"quantity"`
}

// CartItemResponse представляет позицию корзины в HTTP ответе
type CartItemResponse struct {
	Product  ProductResponse `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal string          `json:"subtotal"`
}

// CartResponse представляет корзину в HTTP ответе
type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total string             `json:"total"`
}

// CheckoutRequest представляет HTTP запрос на оформление заказа
type CheckoutRequest struct {
	Email    *string `json:"email"`
	Currency *string `json:"currency"`
}

// CheckoutResponse представляет HTTP ответ оформления заказа
type CheckoutResponse struct {
	Outcome       string         `json:"outcome"`
	Order         *OrderResponse `json:"order,omitempty"`
	PaymentID     string         `json:"payment_id,omitempty"`
	TransactionID string         `json:"transaction_id,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
}

// OrderItemResponse представляет позицию заказа в HTTP ответе
type OrderItemResponse struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// OrderResponse представляет заказ в HTTP ответе
type OrderResponse struct {
	ID            string              `json:"id"`
	Items         []OrderItemResponse `json:"items"`
	TotalAmount   string              `json:"total_amount"`
	Currency      string              `json:"currency"`
	Status        string              `json:"status"`
	CreatedAt     string              `json:"created_at"`
	CustomerEmail string              `json:"customer_email"`
	PaymentID     string              `json:"payment_id,omitempty"`
}

// PaymentStatusResponse представляет статус платежа в HTTP ответе
type PaymentStatusResponse struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

// WalletAppResponse представляет приложение-кошелёк в HTTP ответе
type WalletAppResponse struct {
	Name           string   `json:"name"`
	PackageName    string   `json:"package_name"`
	SupportedCoins []string `json:"supported_coins"`
	IconURL        string   `json:"icon_url,omitempty"`
	Installed      bool     `json:"installed"`
}

// WalletAddressRequest представляет HTTP запрос на настройку merchant-адреса
type WalletAddressRequest struct {
	Address *string `json:"address"`
}

// DeepLinkRequest представляет HTTP запрос на deep link для оплаты
type DeepLinkRequest struct {
	PackageName *string `json:"package_name"`
}

// DeepLinkResponse представляет deep link в HTTP ответе
type DeepLinkResponse struct {
	PaymentID string `json:"payment_id"`
	URI       string `json:"uri"`
}

// GetProducts обрабатывает GET /products - список товаров каталога
// Поддерживает фильтры ?category= и ?platform=
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	var products []repository.Product
	switch {
	case r.URL.Query().Get("category") != "":
		products = h.catalog.ProductsByCategory(repository.ProductCategory(r.URL.Query().Get("category")))
	case r.URL.Query().Get("platform") != "":
		products = h.catalog.ProductsByPlatform(repository.Platform(r.URL.Query().Get("platform")))
	default:
		products = h.catalog.Products()
	}

	resp := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}
	h.writeJSON(r, w, http.StatusOK, resp)
}

// GetProductsId обрабатывает GET /products/{id} - товар по ID
func (h *Handler) GetProductsId(w http.ResponseWriter, r *http.Request, id string) {
	product, ok := h.catalog.ProductByID(id)
	if !ok {
		http.Error(w, fmt.Sprintf("product %s not found", id), http.StatusNotFound)
		return
	}
	h.writeJSON(r, w, http.StatusOK, toProductResponse(product))
}

// GetCart обрабатывает GET /cart - корзина текущей сессии
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart := h.sessionCart(r)
	h.writeJSON(r, w, http.StatusOK, toCartResponse(cart))
}

// PostCartItems обрабатывает POST /cart/items - добавление товара в корзину
func (h *Handler) PostCartItems(w http.ResponseWriter, r *http.Request) {
	var reqBody CartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	if reqBody.ProductID == nil || *reqBody.ProductID == "" {
		http.Error(w, "Invalid payload: product_id is required", http.StatusBadRequest)
		return
	}

	product, ok := h.catalog.ProductByID(*reqBody.ProductID)
	if !ok {
		http.Error(w, fmt.Sprintf("product %s not found", *reqBody.ProductID), http.StatusNotFound)
		return
	}

	quantity := 1
	if reqBody.Quantity != nil {
		quantity = *reqBody.Quantity
	}

	cart := h.sessionCart(r)
	cart.Add(product, quantity)
	h.writeJSON(r, w, http.StatusOK, toCartResponse(cart))
}

// PutCartItemsId обрабатывает PUT /cart/items/{productID} - изменение количества
// Количество <= 0 удаляет позицию
func (h *Handler) PutCartItemsId(w http.ResponseWriter, r *http.Request, productID string) {
	var reqBody CartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	if reqBody.Quantity == nil {
		http.Error(w, "Invalid payload: quantity is required", http.StatusBadRequest)
		return
	}

	cart := h.sessionCart(r)
	cart.SetQuantity(productID, *reqBody.Quantity)
	h.writeJSON(r, w, http.StatusOK, toCartResponse(cart))
}

// DeleteCartItemsId обрабатывает DELETE /cart/items/{productID} - удаление позиции
func (h *Handler) DeleteCartItemsId(w http.ResponseWriter, r *http.Request, productID string) {
	cart := h.sessionCart(r)
	cart.Remove(productID)
	h.writeJSON(r, w, http.StatusOK, toCartResponse(cart))
}

// DeleteCart обрабатывает DELETE /cart - очистка корзины
func (h *Handler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	cart := h.sessionCart(r)
	cart.Clear()
	h.writeJSON(r, w, http.StatusOK, toCartResponse(cart))
}

// PostCheckout обрабатывает POST /checkout - оформление заказа с оплатой
func (h *Handler) PostCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqBody CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	email := ""
	if reqBody.Email != nil {
		email = *reqBody.Email
	}
	currency := ""
	if reqBody.Currency != nil {
		currency = *reqBody.Currency
	}

	cart := h.sessionCart(r)
	result, err := h.checkout.Checkout(ctx, cart, email, currency)
	if err != nil {
		h.writeError(r, w, err)
		return
	}

	orderResp := toOrderResponse(result.Order)
	resp := CheckoutResponse{
		Outcome:       string(result.Outcome),
		Order:         &orderResp,
		PaymentID:     result.PaymentID,
		TransactionID: result.TransactionID,
		ErrorMessage:  result.ErrorMessage,
	}
	status := http.StatusOK
	if result.Outcome == service.CheckoutPaymentFailed {
		status = http.StatusPaymentRequired
	}
	h.writeJSON(r, w, status, resp)
}

// GetOrders обрабатывает GET /orders - история заказов (новые первыми)
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.History(r.Context())
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	resp := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		resp = append(resp, toOrderResponse(order))
	}
	h.writeJSON(r, w, http.StatusOK, resp)
}

// GetOrdersId обрабатывает GET /orders/{id} - заказ по ID
func (h *Handler) GetOrdersId(w http.ResponseWriter, r *http.Request, id string) {
	order, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	h.writeJSON(r, w, http.StatusOK, toOrderResponse(order))
}

// GetPaymentsIdStatus обрабатывает GET /payments/{id}/status - статус платежа
func (h *Handler) GetPaymentsIdStatus(w http.ResponseWriter, r *http.Request, id string) {
	status, err := h.payments.Status(r.Context(), id)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	h.writeJSON(r, w, http.StatusOK, PaymentStatusResponse{PaymentID: id, Status: string(status)})
}

// PostPaymentsIdCancel обрабатывает POST /payments/{id}/cancel - отмена платежа
func (h *Handler) PostPaymentsIdCancel(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.payments.Cancel(r.Context(), id); err != nil {
		h.writeError(r, w, err)
		return
	}
	h.writeJSON(r, w, http.StatusOK, PaymentStatusResponse{
		PaymentID: id,
		Status:    string(repository.PaymentStatusCancelled),
	})
}

// PostPaymentsIdRefund обрабатывает POST /payments/{id}/refund - возврат платежа
func (h *Handler) PostPaymentsIdRefund(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.payments.Refund(r.Context(), id); err != nil {
		h.writeError(r, w, err)
		return
	}
	h.writeJSON(r, w, http.StatusOK, PaymentStatusResponse{
		PaymentID: id,
		Status:    string(repository.PaymentStatusRefunded),
	})
}

// PostPaymentsIdDeeplink обрабатывает POST /payments/{id}/deeplink - deep link для оплаты
func (h *Handler) PostPaymentsIdDeeplink(w http.ResponseWriter, r *http.Request, id string) {
	var reqBody DeepLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	packageName := ""
	if reqBody.PackageName != nil {
		packageName = *reqBody.PackageName
	}

	uri, err := h.payments.DeepLink(r.Context(), id, packageName)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	h.writeJSON(r, w, http.StatusOK, DeepLinkResponse{PaymentID: id, URI: uri})
}

// GetCurrencies обрабатывает GET /currencies - поддерживаемые валюты
func (h *Handler) GetCurrencies(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(r, w, http.StatusOK, map[string][]string{
		"currencies": h.wallets.SupportedCurrencies(),
	})
}

// GetWallets обрабатывает GET /wallets - приложения-кошельки (?currency= фильтр)
func (h *Handler) GetWallets(w http.ResponseWriter, r *http.Request) {
	var apps []service.WalletApp
	if currency := r.URL.Query().Get("currency"); currency != "" {
		apps = h.wallets.WalletsForCurrency(currency)
	} else {
		apps = h.wallets.Wallets()
	}
	resp := make([]WalletAppResponse, 0, len(apps))
	for _, app := range apps {
		resp = append(resp, WalletAppResponse{
			Name:           app.Name,
			PackageName:    app.PackageName,
			SupportedCoins: app.SupportedCoins,
			IconURL:        app.IconURL,
			Installed:      app.Installed,
		})
	}
	h.writeJSON(r, w, http.StatusOK, resp)
}

// GetWalletsConfigured обрабатывает GET /wallets/configured - merchant-адреса
func (h *Handler) GetWalletsConfigured(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.payments.ConfiguredWallets(r.Context())
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	h.writeJSON(r, w, http.StatusOK, addresses)
}

// PutWalletsCurrency обрабатывает PUT /wallets/{currency} - настройка merchant-адреса
func (h *Handler) PutWalletsCurrency(w http.ResponseWriter, r *http.Request, currency string) {
	var reqBody WalletAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	address := ""
	if reqBody.Address != nil {
		address = *reqBody.Address
	}

	if err := h.payments.SetWalletAddress(r.Context(), currency, address); err != nil {
		h.writeError(r, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sessionCart возвращает корзину текущей сессии
// Middleware гарантирует наличие session id в контексте
func (h *Handler) sessionCart(r *http.Request) *service.CartStore {
	sid, _ := authctx.SessionIDFromContext(r.Context())
	return h.carts.Cart(sid)
}

// writeJSON сериализует ответ в JSON
func (h *Handler) writeJSON(r *http.Request, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		observability.L(r.Context(), h.logger).Error("failed to encode response", zap.Error(err))
	}
}

// writeError отображает классификацию service ошибки в HTTP статус
func (h *Handler) writeError(r *http.Request, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrPaymentNotFound),
		errors.Is(err, repository.ErrWalletNotFound):
		status = http.StatusNotFound
	default:
		switch service.KindOf(err) {
		case service.KindValidation:
			status = http.StatusBadRequest
		case service.KindNotFound:
			status = http.StatusNotFound
		case service.KindGateway:
			status = http.StatusBadGateway
		}
	}
	if status >= http.StatusInternalServerError {
		observability.L(r.Context(), h.logger).Error("request failed", zap.Error(err))
	}
	http.Error(w, err.Error(), status)
}

func toProductResponse(p repository.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Currency:    p.Currency,
		Category:    string(p.Category),
		Platform:    string(p.Platform),
		ImageURL:    p.ImageURL,
		PurchaseURL: p.PurchaseURL,
		Features:    p.Features,
	}
}

func toCartResponse(cart *service.CartStore) CartResponse {
	items := cart.Items()
	resp := CartResponse{
		Items: make([]CartItemResponse, 0, len(items)),
		Total: cart.Total().StringFixed(2),
	}
	for _, item := range items {
		subtotal := item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		resp.Items = append(resp.Items, CartItemResponse{
			Product:  toProductResponse(item.Product),
			Quantity: item.Quantity,
			Subtotal: subtotal.StringFixed(2),
		})
	}
	return resp
}

func toOrderResponse(order repository.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			ProductID: item.Product.ID,
			Title:     item.Product.Title,
			UnitPrice: item.Product.Price.StringFixed(2),
			Quantity:  item.Quantity,
		})
	}
	return OrderResponse{
		ID:            order.ID,
		Items:         items,
		TotalAmount:   order.TotalAmount.StringFixed(2),
		Currency:      order.Currency,
		Status:        string(order.Status),
		CreatedAt:     order.CreatedAt.UTC().Format(time.RFC3339),
		CustomerEmail: order.CustomerEmail,
		PaymentID:     order.PaymentID,
	}
}
