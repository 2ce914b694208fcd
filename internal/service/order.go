package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/FreetimeMaker/freetime-shop/internal/repository"
)

// OrderService содержит бизнес-логику работы с заказами
// Зависит от интерфейса OrderRepository, а не от конкретной реализации
type OrderService struct {
	logger *zap.Logger
	repo   repository.OrderRepository
}

// NewOrderService создаёт новый экземпляр OrderService
func NewOrderService(logger *zap.Logger, repo repository.OrderRepository) *OrderService {
	return &OrderService{
		logger: logger,
		repo:   repo,
	}
}

// Create создаёт заказ из текущего снимка корзины
// Side effect: после успешного сохранения заказа корзина очищается
// Транзакционности между корзиной и хранилищем заказов нет: упавший после
// создания заказа платёж не возвращает товары в корзину
func (s *OrderService) Create(ctx context.Context, cart *CartStore, customerEmail string) (repository.Order, error) {
	items := cart.Items()
	if len(items) == 0 {
		return repository.Order{}, ErrEmptyCart
	}

	// Сумма заказа: Σ price × quantity, округление до 2 знаков (half-up)
	total := decimal.Zero
	currency := "USD"
	for _, item := range items {
		total = total.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		if item.Product.Currency != "" {
			currency = item.Product.Currency
		}
	}

	order := repository.Order{
		ID:            uuid.NewString(),
		Items:         items,
		TotalAmount:   total.Round(2),
		Currency:      currency,
		Status:        repository.OrderStatusPending,
		CreatedAt:     time.Now().UTC(),
		CustomerEmail: customerEmail,
	}

	if err := s.repo.Save(ctx, order); err != nil {
		s.logger.Error("failed to save order",
			zap.Error(err),
			zap.String("order_id", order.ID),
		)
		return repository.Order{}, NewGatewayError(err, "failed to create order")
	}

	// Корзина очищается только после успешного сохранения заказа
	cart.Clear()

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.String("currency", order.Currency),
		zap.Int("items", len(order.Items)),
	)

	return order, nil
}

// GetByID возвращает заказ по ID
func (s *OrderService) GetByID(ctx context.Context, id string) (repository.Order, error) {
	return s.repo.GetByID(ctx, id)
}

// History возвращает все заказы, новые первыми
func (s *OrderService) History(ctx context.Context) ([]repository.Order, error) {
	return s.repo.List(ctx)
}

// MarkPaid переводит заказ в статус paid с указанным payment id
func (s *OrderService) MarkPaid(ctx context.Context, orderID, paymentID string) error {
	if err := s.repo.SetPaid(ctx, orderID, paymentID); err != nil {
		s.logger.Error("failed to mark order as paid",
			zap.Error(err),
			zap.String("order_id", orderID),
			zap.String("payment_id", paymentID),
		)
		return err
	}

	s.logger.Info("order marked as paid",
		zap.String("order_id", orderID),
		zap.String("payment_id", paymentID),
	)
	return nil
}
