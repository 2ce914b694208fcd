package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FreetimeMaker/freetime-shop/internal/repository"
	"github.com/FreetimeMaker/freetime-shop/internal/repository/memory"
)

// mockEventPublisher — hand-written testify mock для PaymentEventPublisher
type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) PublishOrderPaid(ctx context.Context, event OrderPaidEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newCheckoutFixture(t *testing.T, seed int64, success bool, publisher PaymentEventPublisher) (*CheckoutService, *OrderService, *CartStore) {
	t.Helper()
	logger := zap.NewNop()
	orders := NewOrderService(logger, memory.NewOrderRepository())
	payments := NewPaymentManagerWithClock(
		logger,
		memory.NewPaymentRepository(),
		memory.NewWalletRepository(),
		NewStaticWalletDirectory(nil),
		PaymentConfig{FailureThreshold: thresholdFor(seed, success)},
		&fakeSleeper{},
		rand.New(rand.NewSource(seed)),
	)
	checkout := NewCheckoutService(logger, orders, payments, publisher, "BTC")

	cart := NewCartStore()
	cart.Add(testProduct("p1", "19.99"), 2)
	cart.Add(testProduct("p2", "0.02"), 1)
	return checkout, orders, cart
}

func TestCheckoutService_Checkout(t *testing.T) {
	ctx := context.Background()

	t.Run("blank email fails before the order is created", func(t *testing.T) {
		// Arrange
		checkout, orders, cart := newCheckoutFixture(t, 1, true, nil)

		// Act
		_, err := checkout.Checkout(ctx, cart, "   ", "BTC")

		// Assert
		require.Error(t, err)
		require.Equal(t, "Email is required", err.Error())
		require.Equal(t, KindValidation, KindOf(err))
		require.Len(t, cart.Items(), 2, "cart must be untouched")

		history, err := orders.History(ctx)
		require.NoError(t, err)
		require.Empty(t, history, "no order must be created")
	})

	t.Run("malformed email is rejected", func(t *testing.T) {
		// Arrange
		checkout, _, cart := newCheckoutFixture(t, 1, true, nil)

		// Act
		_, err := checkout.Checkout(ctx, cart, "not-an-email", "BTC")

		// Assert
		require.Error(t, err)
		require.Equal(t, "Please enter a valid email address", err.Error())
	})

	t.Run("empty cart is rejected", func(t *testing.T) {
		// Arrange
		checkout, _, _ := newCheckoutFixture(t, 1, true, nil)

		// Act
		_, err := checkout.Checkout(ctx, NewCartStore(), "buyer@example.com", "BTC")

		// Assert
		require.ErrorIs(t, err, ErrEmptyCart)
	})

	t.Run("successful payment marks order paid and publishes event", func(t *testing.T) {
		// Arrange
		publisher := new(mockEventPublisher)
		publisher.On("PublishOrderPaid", ctx, mock.MatchedBy(func(event OrderPaidEvent) bool {
			return event.EventType == "order.payment.completed" &&
				event.EventVersion == 1 &&
				event.EventID != "" &&
				event.OrderID != "" &&
				event.PaymentID != "" &&
				event.TransactionID != "" &&
				event.CustomerEmail == "buyer@example.com" &&
				event.Amount == "40.00" &&
				event.Currency == "USD"
		})).Return(nil).Once()

		checkout, orders, cart := newCheckoutFixture(t, 7, true, publisher)

		// Act
		result, err := checkout.Checkout(ctx, cart, "buyer@example.com", "BTC")

		// Assert
		require.NoError(t, err)
		require.Equal(t, CheckoutSuccess, result.Outcome)
		require.NotEmpty(t, result.TransactionID)
		require.Equal(t, repository.OrderStatusPaid, result.Order.Status)
		require.Equal(t, result.PaymentID, result.Order.PaymentID)
		require.Empty(t, cart.Items(), "cart is cleared by order creation")

		// Заказ в хранилище тоже помечен оплаченным
		stored, err := orders.GetByID(ctx, result.Order.ID)
		require.NoError(t, err)
		require.Equal(t, repository.OrderStatusPaid, stored.Status)
		require.Equal(t, result.PaymentID, stored.PaymentID)

		publisher.AssertExpectations(t)
	})

	t.Run("failed payment keeps the order pending", func(t *testing.T) {
		// Arrange
		publisher := new(mockEventPublisher)
		checkout, orders, cart := newCheckoutFixture(t, 7, false, publisher)

		// Act
		result, err := checkout.Checkout(ctx, cart, "buyer@example.com", "BTC")

		// Assert
		require.NoError(t, err)
		require.Equal(t, CheckoutPaymentFailed, result.Outcome)
		require.Equal(t, "Payment failed. Please try again.", result.ErrorMessage)
		require.Empty(t, result.TransactionID)

		stored, err := orders.GetByID(ctx, result.Order.ID)
		require.NoError(t, err)
		require.Equal(t, repository.OrderStatusPending, stored.Status)

		publisher.AssertNotCalled(t, "PublishOrderPaid")
	})

	t.Run("unsupported currency fails after order creation", func(t *testing.T) {
		// Arrange
		checkout, orders, cart := newCheckoutFixture(t, 1, true, nil)

		// Act
		_, err := checkout.Checkout(ctx, cart, "buyer@example.com", "XRP")

		// Assert
		require.Error(t, err)
		require.Equal(t, KindValidation, KindOf(err))

		// Заказ уже создан и остаётся pending: оплату можно повторить
		history, err := orders.History(ctx)
		require.NoError(t, err)
		require.Len(t, history, 1)
		require.Equal(t, repository.OrderStatusPending, history[0].Status)
	})

	t.Run("empty currency falls back to the default", func(t *testing.T) {
		// Arrange
		checkout, _, cart := newCheckoutFixture(t, 7, true, nil)

		// Act
		result, err := checkout.Checkout(ctx, cart, "buyer@example.com", "")

		// Assert
		require.NoError(t, err)
		require.Equal(t, CheckoutSuccess, result.Outcome)
	})

	t.Run("publisher failure does not fail the checkout", func(t *testing.T) {
		// Arrange
		publisher := new(mockEventPublisher)
		publisher.On("PublishOrderPaid", ctx, mock.Anything).
			Return(context.DeadlineExceeded).Once()

		checkout, _, cart := newCheckoutFixture(t, 7, true, publisher)

		// Act
		result, err := checkout.Checkout(ctx, cart, "buyer@example.com", "BTC")

		// Assert: заказ оплачен, отказ брокера только залогирован
		require.NoError(t, err)
		require.Equal(t, CheckoutSuccess, result.Outcome)
		publisher.AssertExpectations(t)
	})

	t.Run("unclassified payment fault surfaces as a generic message", func(t *testing.T) {
		// Arrange
		logger := zap.NewNop()
		orders := NewOrderService(logger, memory.NewOrderRepository())
		sleepErr := errors.New("gateway timeout")
		payments := NewPaymentManagerWithClock(
			logger,
			memory.NewPaymentRepository(),
			memory.NewWalletRepository(),
			NewStaticWalletDirectory(nil),
			PaymentConfig{},
			&errSleeper{err: sleepErr},
			rand.New(rand.NewSource(1)),
		)
		checkout := NewCheckoutService(logger, orders, payments, nil, "BTC")
		cart := NewCartStore()
		cart.Add(testProduct("p1", "19.99"), 1)

		// Act
		_, err := checkout.Checkout(ctx, cart, "buyer@example.com", "BTC")

		// Assert: причина сохраняется, но наружу идёт generic сообщение
		require.ErrorIs(t, err, sleepErr)
		require.Equal(t, KindGeneric, KindOf(err))
		require.Equal(t, "Payment processing failed: gateway timeout", err.Error())
	})
}
