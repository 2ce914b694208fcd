//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	_ "github.com/jackc/pgx/v5/stdlib" //для goose миграций

	"github.com/FreetimeMaker/freetime-shop/internal/repository"
)

func TestOrderRepository_Integration(t *testing.T) {
	ctx := context.Background()

	// Поднимаем PostgreSQL контейнер через testcontainers
	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("shop"),
		postgres.WithUsername("shop_user"),
		postgres.WithPassword("shop_password"),
	)
	require.NoError(t, err)
	defer func() {
		err := postgresContainer.Terminate(ctx)
		require.NoError(t, err)
	}()

	// Получаем DSN из контейнера (включая реальный порт, который может быть не 5432)
	dsn, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Открываем *sql.DB через pgx stdlib для goose миграций
	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer db.Close()

	// Ждём готовности БД через ping с retry
	var pingErr error
	for i := 0; i < 10; i++ {
		pingErr = db.PingContext(ctx)
		if pingErr == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, pingErr, "Failed to ping database after retries")

	// Вычисляем путь к migrations относительно текущего файла
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "Failed to get current file path")

	// Текущий файл: internal/repository/postgres/repository_integration_test.go
	// Нужно получить: migrations в корне модуля
	testDir := filepath.Dir(filename)
	repoDir := filepath.Dir(testDir)     // internal/repository
	internalDir := filepath.Dir(repoDir) // internal
	moduleDir := filepath.Dir(internalDir)
	migrationsDir := filepath.Join(moduleDir, "migrations")

	// Накатываем миграции через goose
	err = goose.UpContext(ctx, db, migrationsDir)
	require.NoError(t, err, "Failed to run migrations")

	// Создаём pgxpool для repository
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	// Создаём repository
	repo := NewOrderRepository(pool)

	t.Run("Save and GetByID", func(t *testing.T) {
		order := repository.Order{
			ID:            "order-1",
			TotalAmount:   decimal.RequireFromString("45.00"),
			Currency:      "USD",
			Status:        repository.OrderStatusPending,
			CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
			CustomerEmail: "buyer@example.com",
			Items: []repository.CartItem{
				{
					Product: repository.Product{
						ID:       "platformer_android",
						Title:    "2D Platformer",
						Price:    decimal.RequireFromString("20.00"),
						Currency: "USD",
					},
					Quantity: 1,
				},
				{
					Product: repository.Product{
						ID:       "cat_clicker_android",
						Title:    "Cat Clicker",
						Price:    decimal.RequireFromString("25.00"),
						Currency: "USD",
					},
					Quantity: 1,
				},
			},
		}

		// Сохраняем заказ
		err := repo.Save(ctx, order)
		require.NoError(t, err)

		// Получаем заказ по ID
		got, err := repo.GetByID(ctx, "order-1")
		require.NoError(t, err)

		// Проверяем основные поля
		require.Equal(t, order.ID, got.ID)
		require.Equal(t, order.CustomerEmail, got.CustomerEmail)
		require.Equal(t, order.Status, got.Status)
		require.True(t, order.TotalAmount.Equal(got.TotalAmount))
		require.Empty(t, got.PaymentID)

		// Проверяем items: снимок товара восстанавливается из order_items
		require.Len(t, got.Items, 2)
		require.Equal(t, "cat_clicker_android", got.Items[0].Product.ID)
		require.Equal(t, "Cat Clicker", got.Items[0].Product.Title)
		require.True(t, got.Items[0].Product.Price.Equal(decimal.RequireFromString("25.00")))
		require.Equal(t, 1, got.Items[0].Quantity)
	})

	t.Run("Save is idempotent", func(t *testing.T) {
		order := repository.Order{
			ID:            "order-2",
			TotalAmount:   decimal.RequireFromString("20.00"),
			Currency:      "USD",
			Status:        repository.OrderStatusPending,
			CreatedAt:     time.Now().UTC(),
			CustomerEmail: "buyer@example.com",
			Items: []repository.CartItem{
				{
					Product:  repository.Product{ID: "p1", Title: "P1", Price: decimal.RequireFromString("20.00"), Currency: "USD"},
					Quantity: 1,
				},
			},
		}
		require.NoError(t, repo.Save(ctx, order))

		// Повторное сохранение с изменённым количеством перезаписывает items
		order.Items[0].Quantity = 3
		require.NoError(t, repo.Save(ctx, order))

		got, err := repo.GetByID(ctx, "order-2")
		require.NoError(t, err)
		require.Len(t, got.Items, 1)
		require.Equal(t, 3, got.Items[0].Quantity)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "missing")
		require.Error(t, err)
		require.True(t, errors.Is(err, repository.ErrOrderNotFound), "Expected ErrOrderNotFound, got: %v", err)
	})

	t.Run("List newest first", func(t *testing.T) {
		older := repository.Order{
			ID:            "order-older",
			TotalAmount:   decimal.RequireFromString("15.00"),
			Currency:      "USD",
			Status:        repository.OrderStatusPending,
			CreatedAt:     time.Now().UTC().Add(-time.Hour),
			CustomerEmail: "buyer@example.com",
		}
		require.NoError(t, repo.Save(ctx, older))

		orders, err := repo.List(ctx)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(orders), 2)
		require.Equal(t, "order-older", orders[len(orders)-1].ID)
	})

	t.Run("SetPaid", func(t *testing.T) {
		require.NoError(t, repo.SetPaid(ctx, "order-1", "payment-1"))

		got, err := repo.GetByID(ctx, "order-1")
		require.NoError(t, err)
		require.Equal(t, repository.OrderStatusPaid, got.Status)
		require.Equal(t, "payment-1", got.PaymentID)

		// Неизвестный заказ
		require.ErrorIs(t, repo.SetPaid(ctx, "missing", "payment-1"), repository.ErrOrderNotFound)
	})
}
