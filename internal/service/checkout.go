package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FreetimeMaker/freetime-shop/internal/repository"
)

// emailPattern валидирует email на уровне "похоже на адрес"
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// CheckoutOutcome — исход оформления заказа
type CheckoutOutcome string

const (
	// CheckoutSuccess платёж прошёл, заказ оплачен
	CheckoutSuccess CheckoutOutcome = "success"
	// CheckoutPaymentFailed платёж отклонён, заказ остаётся pending
	CheckoutPaymentFailed CheckoutOutcome = "payment_failed"
	// CheckoutPaymentPending платёж не дошёл до терминального статуса
	CheckoutPaymentPending CheckoutOutcome = "payment_pending"
)

// CheckoutResult — результат оформления заказа
// TransactionID заполнен только при success; ErrorMessage — при payment_failed
type CheckoutResult struct {
	Outcome       CheckoutOutcome
	Order         repository.Order
	PaymentID     string
	TransactionID string
	ErrorMessage  string
}

// CheckoutService оркестрирует оформление заказа: валидация покупателя,
// создание заказа из корзины, платёжная сессия, обработка платежа,
// отметка об оплате и публикация события
type CheckoutService struct {
	logger          *zap.Logger
	orders          *OrderService
	payments        *PaymentManager
	publisher       PaymentEventPublisher
	defaultCurrency string
}

// NewCheckoutService создаёт сервис оформления заказа
// Publisher может быть nil: тогда события оплаты не публикуются
func NewCheckoutService(
	logger *zap.Logger,
	orders *OrderService,
	payments *PaymentManager,
	publisher PaymentEventPublisher,
	defaultCurrency string,
) *CheckoutService {
	if defaultCurrency == "" {
		defaultCurrency = "BTC"
	}
	return &CheckoutService{
		logger:          logger,
		orders:          orders,
		payments:        payments,
		publisher:       publisher,
		defaultCurrency: defaultCurrency,
	}
}

// Checkout оформляет заказ из корзины с оплатой в указанной криптовалюте
// Email валидируется до создания заказа; при отклонённом платеже заказ
// остаётся pending и может быть оплачен повторно
func (s *CheckoutService) Checkout(ctx context.Context, cart *CartStore, email, currency string) (CheckoutResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return CheckoutResult{}, NewValidationError("Email is required")
	}
	if !emailPattern.MatchString(email) {
		return CheckoutResult{}, NewValidationError("Please enter a valid email address")
	}
	if currency == "" {
		currency = s.defaultCurrency
	}

	order, err := s.orders.Create(ctx, cart, email)
	if err != nil {
		return CheckoutResult{}, OrFallback(err, "Failed to create order")
	}

	session, err := s.payments.Initialize(ctx, InitializeRequest{
		OrderID:       order.ID,
		Amount:        order.TotalAmount,
		Currency:      currency,
		CustomerEmail: email,
		Description:   orderDescription(order),
	})
	if err != nil {
		return CheckoutResult{}, OrFallback(err, "Failed to start payment")
	}

	result, err := s.payments.Process(ctx, session.ID)
	if err != nil {
		return CheckoutResult{}, OrFallback(err, "Payment processing failed")
	}

	switch result.Status {
	case repository.PaymentStatusCompleted:
		if err := s.orders.MarkPaid(ctx, order.ID, session.ID); err != nil {
			return CheckoutResult{}, OrFallback(err, "Failed to mark order as paid")
		}
		order.Status = repository.OrderStatusPaid
		order.PaymentID = session.ID
		s.publishOrderPaid(ctx, order, session.ID, result.TransactionID)
		return CheckoutResult{
			Outcome:       CheckoutSuccess,
			Order:         order,
			PaymentID:     session.ID,
			TransactionID: result.TransactionID,
		}, nil

	case repository.PaymentStatusFailed, repository.PaymentStatusExpired,
		repository.PaymentStatusCancelled:
		s.logger.Warn("checkout payment not completed",
			zap.String("order_id", order.ID),
			zap.String("payment_id", session.ID),
			zap.String("status", string(result.Status)),
		)
		return CheckoutResult{
			Outcome:      CheckoutPaymentFailed,
			Order:        order,
			PaymentID:    session.ID,
			ErrorMessage: result.ErrorMessage,
		}, nil

	default:
		return CheckoutResult{
			Outcome:   CheckoutPaymentPending,
			Order:     order,
			PaymentID: session.ID,
		}, nil
	}
}

// publishOrderPaid публикует событие оплаты заказа best-effort
// Отказ брокера не откатывает оплату: заказ уже помечен paid
func (s *CheckoutService) publishOrderPaid(ctx context.Context, order repository.Order, paymentID, txID string) {
	if s.publisher == nil {
		return
	}
	event := OrderPaidEvent{
		EventID:       uuid.NewString(),
		EventType:     "order.payment.completed",
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		OrderID:       order.ID,
		PaymentID:     paymentID,
		TransactionID: txID,
		CustomerEmail: order.CustomerEmail,
		Amount:        order.TotalAmount.StringFixed(2),
		Currency:      order.Currency,
	}
	if err := s.publisher.PublishOrderPaid(ctx, event); err != nil {
		s.logger.Error("failed to publish order paid event",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
}

// orderDescription строит краткое описание заказа для платёжной сессии
func orderDescription(order repository.Order) string {
	titles := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		titles = append(titles, item.Product.Title)
	}
	return "Order " + order.ID + ": " + strings.Join(titles, ", ")
}
