package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/FreetimeMaker/freetime-shop/internal/repository"
)

// WalletRepository реализует repository.WalletRepository используя Redis
// Адреса хранятся в одном hash: поле — код валюты (uppercase), значение — адрес
// Это durable key-value хранилище: адреса переживают рестарт сервиса
type WalletRepository struct {
	client *redis.Client
	logger *zap.Logger
}

const walletHashKey = "shop:wallets"

// NewWalletRepository создаёт новый Redis репозиторий адресов кошельков
func NewWalletRepository(client *redis.Client, logger *zap.Logger) *WalletRepository {
	return &WalletRepository{
		client: client,
		logger: logger,
	}
}

// SetAddress сохраняет адрес кошелька для валюты
func (r *WalletRepository) SetAddress(ctx context.Context, currency, address string) error {
	field := strings.ToUpper(currency)

	if err := r.client.HSet(ctx, walletHashKey, field, address).Err(); err != nil {
		r.logger.Error("failed to save wallet address in redis",
			zap.Error(err),
			zap.String("currency", field),
		)
		return fmt.Errorf("failed to save wallet address: %w", err)
	}

	r.logger.Info("wallet address saved",
		zap.String("currency", field),
	)

	return nil
}

// GetAddress возвращает адрес кошелька для валюты
func (r *WalletRepository) GetAddress(ctx context.Context, currency string) (string, error) {
	field := strings.ToUpper(currency)

	address, err := r.client.HGet(ctx, walletHashKey, field).Result()
	if err != nil {
		if err == redis.Nil {
			return "", repository.ErrWalletNotFound
		}
		r.logger.Error("failed to get wallet address from redis",
			zap.Error(err),
			zap.String("currency", field),
		)
		return "", fmt.Errorf("failed to get wallet address: %w", err)
	}

	if address == "" {
		return "", repository.ErrWalletNotFound
	}

	return address, nil
}

// ListAddresses возвращает все настроенные адреса (currency -> address)
func (r *WalletRepository) ListAddresses(ctx context.Context) (map[string]string, error) {
	addresses, err := r.client.HGetAll(ctx, walletHashKey).Result()
	if err != nil {
		r.logger.Error("failed to list wallet addresses from redis",
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to list wallet addresses: %w", err)
	}

	return addresses, nil
}
