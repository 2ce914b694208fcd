package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/FreetimeMaker/freetime-shop/internal/repository"
)

// OrderRepository реализует repository.OrderRepository используя PostgreSQL
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository создаёт новый PostgreSQL репозиторий заказов
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{
		pool: pool,
	}
}

// Save сохраняет заказ в PostgreSQL
// Использует транзакцию для атомарного сохранения orders и order_items
// Save идемпотентен: повторное сохранение заказа с тем же ID перезаписывает его
func (r *OrderRepository) Save(ctx context.Context, order repository.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	// Гарантируем откат транзакции в случае ошибки
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO orders (id, customer_email, total_amount, currency, status, payment_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   customer_email = EXCLUDED.customer_email,
		   total_amount = EXCLUDED.total_amount,
		   currency = EXCLUDED.currency,
		   status = EXCLUDED.status,
		   payment_id = EXCLUDED.payment_id,
		   created_at = EXCLUDED.created_at`,
		order.ID, order.CustomerEmail, order.TotalAmount, order.Currency,
		string(order.Status), nullable(order.PaymentID), order.CreatedAt)
	if err != nil {
		return err
	}

	// Удаляем старые items перед вставкой новых
	_, err = tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, order.ID)
	if err != nil {
		return err
	}

	// Сохраняем снимок позиций корзины: цена и название фиксируются на момент заказа
	for _, item := range order.Items {
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (order_id, product_id, title, unit_price, currency, quantity)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			order.ID, item.Product.ID, item.Product.Title, item.Product.Price,
			item.Product.Currency, item.Quantity)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetByID получает заказ по ID из PostgreSQL
// Собирает orders и order_items в доменную модель
func (r *OrderRepository) GetByID(ctx context.Context, id string) (repository.Order, error) {
	var order repository.Order
	var status string
	var paymentID *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, customer_email, total_amount, currency, status, payment_id, created_at
		 FROM orders
		 WHERE id = $1`,
		id).Scan(&order.ID, &order.CustomerEmail, &order.TotalAmount, &order.Currency,
		&status, &paymentID, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.Order{}, repository.ErrOrderNotFound
		}
		return repository.Order{}, err
	}
	order.Status = repository.OrderStatus(status)
	if paymentID != nil {
		order.PaymentID = *paymentID
	}

	items, err := r.loadItems(ctx, id)
	if err != nil {
		return repository.Order{}, err
	}
	order.Items = items

	return order, nil
}

// List возвращает все заказы, отсортированные по времени создания (новые первыми)
func (r *OrderRepository) List(ctx context.Context) ([]repository.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, customer_email, total_amount, currency, status, payment_id, created_at
		 FROM orders
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]repository.Order, 0)
	for rows.Next() {
		var order repository.Order
		var status string
		var paymentID *string
		if err := rows.Scan(&order.ID, &order.CustomerEmail, &order.TotalAmount,
			&order.Currency, &status, &paymentID, &order.CreatedAt); err != nil {
			return nil, err
		}
		order.Status = repository.OrderStatus(status)
		if paymentID != nil {
			order.PaymentID = *paymentID
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Подгружаем items отдельными запросами: история заказов короткая, N+1 здесь не болит
	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

// SetPaid переводит заказ в статус paid и записывает payment id
func (r *OrderRepository) SetPaid(ctx context.Context, orderID, paymentID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $1, payment_id = $2 WHERE id = $3`,
		string(repository.OrderStatusPaid), paymentID, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrOrderNotFound
	}
	return nil
}

// loadItems загружает позиции заказа и восстанавливает снимок товара
func (r *OrderRepository) loadItems(ctx context.Context, orderID string) ([]repository.CartItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, title, unit_price, currency, quantity
		 FROM order_items
		 WHERE order_id = $1
		 ORDER BY product_id`,
		orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]repository.CartItem, 0)
	for rows.Next() {
		var item repository.CartItem
		var price decimal.Decimal
		if err := rows.Scan(&item.Product.ID, &item.Product.Title, &price,
			&item.Product.Currency, &item.Quantity); err != nil {
			return nil, err
		}
		item.Product.Price = price
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// nullable возвращает nil вместо пустой строки (для nullable колонок)
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
