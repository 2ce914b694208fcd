package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/FreetimeMaker/freetime-shop/internal/repository"
)

// OrderRepository реализует repository.OrderRepository используя in-memory хранилище
// Используется для разработки и тестирования
// В production заменяется на реализацию с PostgreSQL
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]repository.Order
}

// NewOrderRepository создаёт новый in-memory репозиторий заказов
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]repository.Order),
	}
}

// Save сохраняет заказ в памяти
// Защищён мьютексом для безопасного доступа из разных горутин
func (r *OrderRepository) Save(ctx context.Context, order repository.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Если у заказа нет CreatedAt, устанавливаем текущее время
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	r.orders[order.ID] = order
	return nil
}

// GetByID получает заказ по ID из памяти
func (r *OrderRepository) GetByID(ctx context.Context, id string) (repository.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, exists := r.orders[id]
	if !exists {
		return repository.Order{}, repository.ErrOrderNotFound
	}

	return order, nil
}

// List возвращает все заказы, отсортированные по времени создания (новые первыми)
func (r *OrderRepository) List(ctx context.Context) ([]repository.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]repository.Order, 0, len(r.orders))
	for _, order := range r.orders {
		orders = append(orders, order)
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	return orders, nil
}

// SetPaid переводит заказ в статус paid и записывает payment id
func (r *OrderRepository) SetPaid(ctx context.Context, orderID, paymentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, exists := r.orders[orderID]
	if !exists {
		return repository.ErrOrderNotFound
	}

	order.Status = repository.OrderStatusPaid
	order.PaymentID = paymentID
	r.orders[orderID] = order
	return nil
}

// WalletRepository реализует repository.WalletRepository используя in-memory map
// Durable вариант — Redis (internal/repository/redis)
type WalletRepository struct {
	mu        sync.RWMutex
	addresses map[string]string // currency (uppercase) -> address
}

// NewWalletRepository создаёт новый in-memory репозиторий адресов кошельков
func NewWalletRepository() *WalletRepository {
	return &WalletRepository{
		addresses: make(map[string]string),
	}
}

// SetAddress сохраняет адрес кошелька для валюты
func (r *WalletRepository) SetAddress(ctx context.Context, currency, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.addresses[strings.ToUpper(currency)] = address
	return nil
}

// GetAddress возвращает адрес кошелька для валюты
func (r *WalletRepository) GetAddress(ctx context.Context, currency string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	address, exists := r.addresses[strings.ToUpper(currency)]
	if !exists {
		return "", repository.ErrWalletNotFound
	}

	return address, nil
}

// ListAddresses возвращает копию всех настроенных адресов
func (r *WalletRepository) ListAddresses(ctx context.Context) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.addresses))
	for currency, address := range r.addresses {
		out[currency] = address
	}
	return out, nil
}

// PaymentRepository реализует repository.PaymentRepository используя in-memory map
type PaymentRepository struct {
	mu       sync.RWMutex
	sessions map[string]repository.PaymentSession
}

// NewPaymentRepository создаёт новый in-memory репозиторий платёжных сессий
func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{
		sessions: make(map[string]repository.PaymentSession),
	}
}

// SaveSession сохраняет платёжную сессию
func (r *PaymentRepository) SaveSession(ctx context.Context, session repository.PaymentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = session
	return nil
}

// GetSession получает платёжную сессию по ID
func (r *PaymentRepository) GetSession(ctx context.Context, id string) (repository.PaymentSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return repository.PaymentSession{}, repository.ErrPaymentNotFound
	}

	return session, nil
}
