package service

import (
	"context"
	"time"
)

// Sleeper определяет интерфейс для задержки (используется для тестирования)
type Sleeper interface {
	// Sleep выполняет задержку на указанное время или до отмены контекста
	Sleep(ctx context.Context, d time.Duration) error
}

// DefaultSleeper реализует Sleeper используя time.After
type DefaultSleeper struct{}

// Sleep выполняет задержку используя time.After
func (s *DefaultSleeper) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// OrderPaidEvent представляет событие успешной оплаты заказа (исходящее в Kafka)
type OrderPaidEvent struct {
	EventID       string
	EventType     string // "order.payment.completed"
	EventVersion  int
	OccurredAt    time.Time
	OrderID       string
	PaymentID     string
	TransactionID string
	CustomerEmail string
	Amount        string // сумма с двумя знаками после запятой
	Currency      string
}

// PaymentEventPublisher определяет интерфейс для публикации событий оплаты
type PaymentEventPublisher interface {
	// PublishOrderPaid публикует событие успешной оплаты заказа
	PublishOrderPaid(ctx context.Context, event OrderPaidEvent) error
}

// PackageChecker определяет интерфейс для проверки установленных приложений кошельков
// Реальная проверка пакетов — забота клиентской платформы, сервер по умолчанию
// считает, что ничего не установлено
type PackageChecker interface {
	// IsInstalled возвращает true, если приложение с указанным package name установлено
	IsInstalled(packageName string) bool
}

// NoInstalledPackages реализует PackageChecker: ни одно приложение не установлено
type NoInstalledPackages struct{}

// IsInstalled всегда возвращает false
func (NoInstalledPackages) IsInstalled(string) bool {
	return false
}
