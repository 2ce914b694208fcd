package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FreetimeMaker/freetime-shop/internal/repository"
)

// mockOrderRepository — hand-written testify mock для repository.OrderRepository
type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Save(ctx context.Context, order repository.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (repository.Order, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(repository.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context) ([]repository.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.Order), args.Error(1)
}

func (m *mockOrderRepository) SetPaid(ctx context.Context, orderID, paymentID string) error {
	args := m.Called(ctx, orderID, paymentID)
	return args.Error(0)
}

func TestOrderService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("empty cart returns ErrEmptyCart, repo not called", func(t *testing.T) {
		// Arrange
		mockRepo := new(mockOrderRepository)
		service := NewOrderService(zap.NewNop(), mockRepo)
		cart := NewCartStore()

		// Act
		_, err := service.Create(ctx, cart, "buyer@example.com")

		// Assert
		require.ErrorIs(t, err, ErrEmptyCart)
		require.Equal(t, KindValidation, KindOf(err))
		mockRepo.AssertNotCalled(t, "Save")
	})

	t.Run("creates pending order with rounded total and clears cart", func(t *testing.T) {
		// Arrange
		mockRepo := new(mockOrderRepository)
		service := NewOrderService(zap.NewNop(), mockRepo)

		cart := NewCartStore()
		cart.Add(testProduct("p1", "19.99"), 2)
		cart.Add(testProduct("p2", "0.02"), 1)

		mockRepo.On("Save", ctx, mock.MatchedBy(func(order repository.Order) bool {
			return order.ID != "" &&
				order.Status == repository.OrderStatusPending &&
				order.TotalAmount.StringFixed(2) == "40.00" &&
				order.Currency == "USD" &&
				order.CustomerEmail == "buyer@example.com" &&
				len(order.Items) == 2 &&
				!order.CreatedAt.IsZero()
		})).Return(nil).Once()

		// Act
		order, err := service.Create(ctx, cart, "buyer@example.com")

		// Assert
		require.NoError(t, err)
		require.Equal(t, "40.00", order.TotalAmount.StringFixed(2))
		require.Empty(t, cart.Items(), "cart must be cleared after successful order creation")
		mockRepo.AssertExpectations(t)
	})

	t.Run("save error keeps cart intact", func(t *testing.T) {
		// Arrange
		mockRepo := new(mockOrderRepository)
		service := NewOrderService(zap.NewNop(), mockRepo)

		cart := NewCartStore()
		cart.Add(testProduct("p1", "10.00"), 1)

		saveErr := errors.New("database connection failed")
		mockRepo.On("Save", ctx, mock.Anything).Return(saveErr).Once()

		// Act
		_, err := service.Create(ctx, cart, "buyer@example.com")

		// Assert
		require.Error(t, err)
		require.Equal(t, KindGateway, KindOf(err))
		require.ErrorIs(t, err, saveErr)
		require.Len(t, cart.Items(), 1, "cart must survive a failed save")
		mockRepo.AssertExpectations(t)
	})
}

func TestOrderService_MarkPaid(t *testing.T) {
	ctx := context.Background()

	t.Run("delegates to repository", func(t *testing.T) {
		// Arrange
		mockRepo := new(mockOrderRepository)
		service := NewOrderService(zap.NewNop(), mockRepo)
		mockRepo.On("SetPaid", ctx, "order-1", "payment-1").Return(nil).Once()

		// Act
		err := service.MarkPaid(ctx, "order-1", "payment-1")

		// Assert
		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("unknown order propagates ErrOrderNotFound", func(t *testing.T) {
		// Arrange
		mockRepo := new(mockOrderRepository)
		service := NewOrderService(zap.NewNop(), mockRepo)
		mockRepo.On("SetPaid", ctx, "missing", "payment-1").Return(repository.ErrOrderNotFound).Once()

		// Act
		err := service.MarkPaid(ctx, "missing", "payment-1")

		// Assert
		require.ErrorIs(t, err, repository.ErrOrderNotFound)
		mockRepo.AssertExpectations(t)
	})
}

func TestOrderService_History(t *testing.T) {
	// Arrange
	ctx := context.Background()
	mockRepo := new(mockOrderRepository)
	service := NewOrderService(zap.NewNop(), mockRepo)

	stored := []repository.Order{
		{ID: "newer"},
		{ID: "older"},
	}
	mockRepo.On("List", ctx).Return(stored, nil).Once()

	// Act
	orders, err := service.History(ctx)

	// Assert
	require.NoError(t, err)
	require.Equal(t, stored, orders)
	mockRepo.AssertExpectations(t)
}
