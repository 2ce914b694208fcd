package app

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"

	httpapi "github.com/FreetimeMaker/freetime-shop/internal/api/http"
	"github.com/FreetimeMaker/freetime-shop/internal/catalog"
	"github.com/FreetimeMaker/freetime-shop/internal/config"
	kafkaevent "github.com/FreetimeMaker/freetime-shop/internal/event/kafka"
	"github.com/FreetimeMaker/freetime-shop/internal/repository"
	"github.com/FreetimeMaker/freetime-shop/internal/repository/memory"
	"github.com/FreetimeMaker/freetime-shop/internal/repository/postgres"
	redisrepo "github.com/FreetimeMaker/freetime-shop/internal/repository/redis"
	"github.com/FreetimeMaker/freetime-shop/internal/service"
	platformlogging "github.com/FreetimeMaker/freetime-shop/platform/logging"
	platformobservability "github.com/FreetimeMaker/freetime-shop/platform/observability"
	platformshutdown "github.com/FreetimeMaker/freetime-shop/platform/shutdown"
)

// App содержит все зависимости для запуска и корректного shutdown storefront сервиса
type App struct {
	logger      *zap.Logger
	httpServer  *http.Server
	shutdownMgr *platformshutdown.Manager
	readiness   func() bool
	wg          sync.WaitGroup
}

// Build создаёт и настраивает все зависимости сервиса
func Build(cfg config.Config) (*App, error) {
	const op = "app.Build"

	// Создаём logger
	logger, err := platformlogging.New(platformlogging.Config{
		ServiceName: "shop",
		Env:         string(cfg.AppEnv),
		Level:       os.Getenv("LOG_LEVEL"),
		Format:      os.Getenv("LOG_FORMAT"),
	})
	if err != nil {
		return nil, err
	}

	logger = logger.With(zap.String("op", op))
	logger.Info("Building shop service", zap.String("http_addr", cfg.HTTPAddr))

	// OpenTelemetry
	otelCfg := platformobservability.Config{
		Enabled:               cfg.OTelEnabled,
		OTLPEndpoint:          cfg.OTelEndpoint,
		SamplingRatio:         cfg.OTelSamplingRatio,
		ServiceName:           "shop",
		DeploymentEnvironment: string(cfg.AppEnv),
	}
	otelShutdown, err := platformobservability.Init(context.Background(), otelCfg)
	if err != nil {
		return nil, err
	}

	// Создаём shutdown manager
	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	shutdownMgr.Add("otel", otelShutdown)

	// Хранилище заказов: memory или postgres
	var orderRepo repository.OrderRepository
	readiness := func() bool { return true }

	switch cfg.Storage {
	case config.StoragePostgres:
		logger.Info("Connecting to PostgreSQL")
		pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(context.Background()); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("PostgreSQL connection established")

		// Применяем миграции
		logger.Info("Applying database migrations")
		db, err := goose.OpenDBWithDriver("pgx", cfg.PostgresDSN)
		if err != nil {
			pool.Close()
			return nil, err
		}
		defer db.Close()

		wd, err := os.Getwd()
		if err != nil {
			pool.Close()
			return nil, err
		}
		migrationsDir := filepath.Join(wd, "migrations")
		if err := goose.Up(db, migrationsDir); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("Database migrations applied successfully")

		orderRepo = postgres.NewOrderRepository(pool)
		readiness = func() bool {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Ping(ctx) == nil
		}
		shutdownMgr.Add("postgres_pool", platformshutdown.ClosePool(pool))
	default:
		orderRepo = memory.NewOrderRepository()
	}

	// Хранилище merchant-адресов и платёжных сессий: memory или redis
	var walletRepo repository.WalletRepository
	var paymentRepo repository.PaymentRepository

	switch cfg.WalletStorage {
	case config.WalletStorageRedis:
		logger.Info("Connecting to Redis", zap.String("addr", cfg.RedisAddr))
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   0,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			return nil, err
		}
		logger.Info("Redis connection established")

		walletRepo = redisrepo.NewWalletRepository(redisClient, logger)
		paymentRepo = redisrepo.NewPaymentRepository(redisClient, logger, cfg.PaymentTTL)
		shutdownMgr.Add("redis_client", platformshutdown.CloseWriter(redisClient))
	default:
		walletRepo = memory.NewWalletRepository()
		paymentRepo = memory.NewPaymentRepository()
	}

	// Каталог и корзины
	cat := catalog.Default()
	carts := service.NewCartRegistry()

	// Справочник кошельков и платёжный менеджер
	directory := service.NewStaticWalletDirectory(service.NoInstalledPackages{})
	payments := service.NewPaymentManager(logger, paymentRepo, walletRepo, directory, service.PaymentConfig{
		MerchantID:       cfg.MerchantID,
		PaymentBaseURL:   cfg.PaymentBaseURL,
		SessionTTL:       cfg.PaymentTTL,
		ProcessingDelay:  cfg.ProcessingDelay,
		FailureThreshold: cfg.FailureThreshold,
	})

	// Service слой
	orders := service.NewOrderService(logger, orderRepo)

	// Kafka publisher для событий оплаты (опционально)
	var publisher service.PaymentEventPublisher
	if cfg.KafkaEnabled {
		kafkaPublisher := kafkaevent.NewKafkaPaymentEventPublisher(logger, cfg.Kafka.Brokers, cfg.Kafka.PaymentTopic)
		publisher = kafkaPublisher
		shutdownMgr.Add("kafka_writer", platformshutdown.CloseWriter(kafkaPublisher))
		logger.Info("Kafka publisher enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.PaymentTopic),
		)
	}

	checkout := service.NewCheckoutService(logger, orders, payments, publisher, cfg.DefaultCurrency)

	// HTTP handler и роутер
	handler := httpapi.NewHandler(logger, cat, carts, orders, payments, checkout, directory)
	router := httpapi.NewRouter(handler, readiness, logger)

	// Создаём HTTP сервер
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // checkout держит запрос на время обработки платежа
		IdleTimeout:  60 * time.Second,
	}

	shutdownMgr.Add("http_server", platformshutdown.ShutdownHTTPServer(httpServer))

	return &App{
		logger:      logger,
		httpServer:  httpServer,
		shutdownMgr: shutdownMgr,
		readiness:   readiness,
	}, nil
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	defer platformlogging.Sync(a.logger)

	a.logger.Info("Starting shop service", zap.String("addr", a.httpServer.Addr))
	a.logger.Info("Health check available", zap.String("url", "http://"+a.httpServer.Addr+"/health"))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Ожидаем сигнал и выполняем shutdown
	a.shutdownMgr.Wait()

	a.wg.Wait()
	a.logger.Info("Shop service stopped")
	return nil
}
