package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/FreetimeMaker/freetime-shop/internal/repository"
)

// PaymentRepository реализует repository.PaymentRepository используя Redis
// Сессия сериализуется в JSON и хранится под ключом payment:<id> с TTL
type PaymentRepository struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewPaymentRepository создаёт новый Redis репозиторий платёжных сессий
// ttl определяет время жизни записи; сессии живут заметно дольше своего
// платёжного дедлайна, чтобы их статус оставался доступным для истории
func NewPaymentRepository(client *redis.Client, logger *zap.Logger, ttl time.Duration) *PaymentRepository {
	return &PaymentRepository{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

func paymentKey(id string) string {
	return fmt.Sprintf("payment:%s", id)
}

// SaveSession сохраняет платёжную сессию
func (r *PaymentRepository) SaveSession(ctx context.Context, session repository.PaymentSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal payment session: %w", err)
	}

	if err := r.client.Set(ctx, paymentKey(session.ID), payload, r.ttl).Err(); err != nil {
		r.logger.Error("failed to save payment session in redis",
			zap.Error(err),
			zap.String("payment_id", session.ID),
		)
		return fmt.Errorf("failed to save payment session: %w", err)
	}

	return nil
}

// GetSession получает платёжную сессию по ID
func (r *PaymentRepository) GetSession(ctx context.Context, id string) (repository.PaymentSession, error) {
	payload, err := r.client.Get(ctx, paymentKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return repository.PaymentSession{}, repository.ErrPaymentNotFound
		}
		r.logger.Error("failed to get payment session from redis",
			zap.Error(err),
			zap.String("payment_id", id),
		)
		return repository.PaymentSession{}, fmt.Errorf("failed to get payment session: %w", err)
	}

	var session repository.PaymentSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return repository.PaymentSession{}, fmt.Errorf("failed to unmarshal payment session: %w", err)
	}

	return session, nil
}
