package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ProductCategory категория товара в каталоге
type ProductCategory string

const (
	CategoryGames        ProductCategory = "games"
	CategoryClickerGames ProductCategory = "clicker_games"
	CategoryBundles      ProductCategory = "bundles"
	CategoryUtilities    ProductCategory = "utilities"
	CategoryTokens       ProductCategory = "tokens"
	CategoryDonations    ProductCategory = "donations"
)

// Platform платформа, для которой продаётся товар
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformWindows Platform = "windows"
	PlatformLinux   Platform = "linux"
	PlatformAll     Platform = "all"
)

// Product представляет товар каталога
// Каталог формируется один раз при старте процесса и не изменяется
type Product struct {
	ID          string
	Title       string
	Description string
	Price       decimal.Decimal
	Currency    string
	Category    ProductCategory
	Platform    Platform
	ImageURL    string
	PurchaseURL string
	Features    []string
}

// CartItem представляет позицию корзины: снимок товара и количество (всегда >= 1)
type CartItem struct {
	Product  Product
	Quantity int
}

// OrderStatus статус заказа
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order представляет доменную модель заказа
// Создаётся при checkout из снимка корзины; после создания изменяются только Status и PaymentID
type Order struct {
	ID            string
	Items         []CartItem
	TotalAmount   decimal.Decimal
	Currency      string
	Status        OrderStatus
	CreatedAt     time.Time
	CustomerEmail string
	PaymentID     string
}

// PaymentStatus статус платёжной сессии
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusExpired    PaymentStatus = "expired"
)

// Terminal возвращает true для статусов, из которых платёж уже не продолжается
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled,
		PaymentStatusRefunded, PaymentStatusExpired:
		return true
	}
	return false
}

// PaymentSession представляет платёжную сессию: запрос на оплату суммы
// в конкретной криптовалюте на конкретный merchant-адрес, с дедлайном
type PaymentSession struct {
	ID            string          `json:"id"`
	OrderID       string          `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	MerchantID    string          `json:"merchant_id"`
	WalletAddress string          `json:"wallet_address"`
	CustomerEmail string          `json:"customer_email"`
	Description   string          `json:"description"`
	PaymentURL    string          `json:"payment_url,omitempty"`
	ExpiresAt     time.Time       `json:"expires_at"`
	Status        PaymentStatus   `json:"status"`
}

// OrderRepository определяет интерфейс для работы с хранилищем заказов
// Service слой зависит от этого интерфейса, а не от конкретной реализации
type OrderRepository interface {
	// Save сохраняет заказ в хранилище
	Save(ctx context.Context, order Order) error

	// GetByID получает заказ по ID
	// Возвращает ErrOrderNotFound, если заказ не найден
	GetByID(ctx context.Context, id string) (Order, error)

	// List возвращает все заказы, отсортированные по времени создания (новые первыми)
	List(ctx context.Context) ([]Order, error)

	// SetPaid переводит заказ в статус paid и записывает payment id
	// Возвращает ErrOrderNotFound, если заказ не найден
	SetPaid(ctx context.Context, orderID, paymentID string) error
}

// WalletRepository определяет интерфейс durable key-value хранилища merchant-адресов
// Ключ — код валюты (нормализован в uppercase), значение — адрес кошелька
type WalletRepository interface {
	// SetAddress сохраняет адрес кошелька для валюты
	SetAddress(ctx context.Context, currency, address string) error

	// GetAddress возвращает адрес кошелька для валюты
	// Возвращает ErrWalletNotFound, если адрес не настроен
	GetAddress(ctx context.Context, currency string) (string, error)

	// ListAddresses возвращает все настроенные адреса (currency -> address)
	ListAddresses(ctx context.Context) (map[string]string, error)
}

// PaymentRepository определяет интерфейс хранилища платёжных сессий
type PaymentRepository interface {
	// SaveSession сохраняет платёжную сессию (create или update)
	SaveSession(ctx context.Context, session PaymentSession) error

	// GetSession получает платёжную сессию по ID
	// Возвращает ErrPaymentNotFound, если сессия не найдена
	GetSession(ctx context.Context, id string) (PaymentSession, error)
}

// ErrOrderNotFound возвращается, когда заказ не найден в хранилище
var ErrOrderNotFound = errors.New("order not found")

// ErrWalletNotFound возвращается, когда адрес кошелька для валюты не настроен
var ErrWalletNotFound = errors.New("wallet address not found")

// ErrPaymentNotFound возвращается, когда платёжная сессия не найдена
var ErrPaymentNotFound = errors.New("payment not found")
