package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/FreetimeMaker/freetime-shop/internal/repository"
)

// failureMessage — сообщение, которое видит покупатель при отклонённом платеже
const failureMessage = "Payment failed. Please try again."

// PaymentConfig задаёт параметры симуляции платёжного шлюза
type PaymentConfig struct {
	MerchantID       string
	PaymentBaseURL   string
	SessionTTL       time.Duration
	ProcessingDelay  time.Duration
	FailureThreshold float64 // доля отклоняемых платежей [0, 1]; 0 — без отказов, < 0 — дефолт 0.1
}

// ProcessResult — итог обработки платежа
type ProcessResult struct {
	Status        repository.PaymentStatus
	TransactionID string
	ErrorMessage  string
}

// PaymentManager реализует симулированный платёжный шлюз: создание сессий,
// обработку с задержкой и случайным исходом, отмену и возврат
// Живые статусы и подписчики держатся в памяти; сессии дублируются в PaymentRepository
type PaymentManager struct {
	logger    *zap.Logger
	sessions  repository.PaymentRepository
	wallets   repository.WalletRepository
	directory WalletDirectory
	sleeper   Sleeper
	cfg       PaymentConfig

	rngMu sync.Mutex
	rng   *rand.Rand

	mu       sync.RWMutex
	statuses map[string]repository.PaymentStatus
	watchers map[string][]chan repository.PaymentStatus
}

// NewPaymentManager создаёт менеджер платежей с реальными задержками и rng
func NewPaymentManager(
	logger *zap.Logger,
	sessions repository.PaymentRepository,
	wallets repository.WalletRepository,
	directory WalletDirectory,
	cfg PaymentConfig,
) *PaymentManager {
	return NewPaymentManagerWithClock(logger, sessions, wallets, directory, cfg,
		&DefaultSleeper{}, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewPaymentManagerWithClock создаёт менеджер с внешними Sleeper и rng
// Используется в тестах для детерминированных задержек и исходов
func NewPaymentManagerWithClock(
	logger *zap.Logger,
	sessions repository.PaymentRepository,
	wallets repository.WalletRepository,
	directory WalletDirectory,
	cfg PaymentConfig,
	sleeper Sleeper,
	rng *rand.Rand,
) *PaymentManager {
	if cfg.MerchantID == "" {
		cfg.MerchantID = "freetime_maker_shop"
	}
	if cfg.PaymentBaseURL == "" {
		cfg.PaymentBaseURL = "https://freetimemaker.github.io/Freetime-Maker-Shop/payment"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.ProcessingDelay <= 0 {
		cfg.ProcessingDelay = 2 * time.Second
	}
	// порог 0 валиден (каждый платёж успешен); "не задан" кодируется отрицательным значением
	if cfg.FailureThreshold < 0 {
		cfg.FailureThreshold = 0.1
	}
	return &PaymentManager{
		logger:    logger,
		sessions:  sessions,
		wallets:   wallets,
		directory: directory,
		sleeper:   sleeper,
		cfg:       cfg,
		rng:       rng,
		statuses:  make(map[string]repository.PaymentStatus),
		watchers:  make(map[string][]chan repository.PaymentStatus),
	}
}

// InitializeRequest описывает параметры создания платёжной сессии
type InitializeRequest struct {
	OrderID       string
	Amount        decimal.Decimal
	Currency      string
	CustomerEmail string
	Description   string
}

// Initialize создаёт платёжную сессию в статусе pending
// Валюта должна поддерживаться хотя бы одним кошельком из справочника;
// merchant-адрес резолвится: хранилище -> baked-in defaults -> детерминированный fallback
func (m *PaymentManager) Initialize(ctx context.Context, req InitializeRequest) (repository.PaymentSession, error) {
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		return repository.PaymentSession{}, NewValidationError("currency is required")
	}
	if !m.directory.Supports(currency) {
		supported := strings.Join(m.directory.SupportedCurrencies(), ", ")
		return repository.PaymentSession{}, NewValidationError("unsupported currency %s, supported: %s", currency, supported)
	}
	if req.Amount.Sign() <= 0 {
		return repository.PaymentSession{}, NewValidationError("amount must be positive")
	}

	address := m.resolveWalletAddress(ctx, currency)

	session := repository.PaymentSession{
		ID:            uuid.NewString(),
		OrderID:       req.OrderID,
		Amount:        req.Amount,
		Currency:      currency,
		MerchantID:    m.cfg.MerchantID,
		WalletAddress: address,
		CustomerEmail: req.CustomerEmail,
		Description:   req.Description,
		ExpiresAt:     time.Now().Add(m.cfg.SessionTTL),
		Status:        repository.PaymentStatusPending,
	}
	session.PaymentURL = fmt.Sprintf("%s/%s", strings.TrimRight(m.cfg.PaymentBaseURL, "/"), session.ID)

	if err := m.sessions.SaveSession(ctx, session); err != nil {
		return repository.PaymentSession{}, NewGatewayError(err, "failed to save payment session")
	}

	m.mu.Lock()
	m.statuses[session.ID] = session.Status
	m.mu.Unlock()

	m.logger.Info("payment session initialized",
		zap.String("payment_id", session.ID),
		zap.String("order_id", session.OrderID),
		zap.String("currency", session.Currency),
		zap.String("amount", session.Amount.String()),
	)
	return session, nil
}

// resolveWalletAddress подбирает merchant-адрес для валюты
// Порядок: настроенный в хранилище -> дефолтный адрес -> детерминированный fallback
func (m *PaymentManager) resolveWalletAddress(ctx context.Context, currency string) string {
	address, err := m.wallets.GetAddress(ctx, currency)
	if err == nil && address != "" {
		return address
	}
	if err != nil && !errors.Is(err, repository.ErrWalletNotFound) {
		m.logger.Warn("wallet address lookup failed, using default",
			zap.String("currency", currency), zap.Error(err))
	}
	if address, ok := defaultMerchantWallets[currency]; ok {
		return address
	}
	return fmt.Sprintf("%s_%s_wallet", m.cfg.MerchantID, strings.ToLower(currency))
}

// Process выполняет симуляцию обработки платежа: переводит сессию в processing,
// ждёт ProcessingDelay, затем завершает её completed либо failed
// Истёкшая сессия завершается expired без задержки; терминальная — возвращается как есть
func (m *PaymentManager) Process(ctx context.Context, paymentID string) (ProcessResult, error) {
	session, err := m.GetSession(ctx, paymentID)
	if err != nil {
		return ProcessResult{}, err
	}
	if session.Status.Terminal() {
		return ProcessResult{Status: session.Status}, nil
	}
	if time.Now().After(session.ExpiresAt) {
		m.finish(ctx, session, repository.PaymentStatusExpired)
		return ProcessResult{Status: repository.PaymentStatusExpired, ErrorMessage: "payment session expired"}, nil
	}

	m.setStatus(ctx, &session, repository.PaymentStatusProcessing)

	if err := m.sleeper.Sleep(ctx, m.cfg.ProcessingDelay); err != nil {
		// любой внутренний сбой шлюза переводит платёж в failed, сама ошибка идёт наверх
		m.finish(ctx, session, repository.PaymentStatusFailed)
		m.logger.Warn("payment processing interrupted",
			zap.String("payment_id", session.ID),
			zap.Error(err),
		)
		return ProcessResult{Status: repository.PaymentStatusFailed, ErrorMessage: failureMessage}, err
	}

	m.rngMu.Lock()
	roll := m.rng.Float64()
	m.rngMu.Unlock()

	if roll > m.cfg.FailureThreshold {
		txID := uuid.NewString()
		m.finish(ctx, session, repository.PaymentStatusCompleted)
		m.logger.Info("payment completed",
			zap.String("payment_id", session.ID),
			zap.String("transaction_id", txID),
		)
		return ProcessResult{Status: repository.PaymentStatusCompleted, TransactionID: txID}, nil
	}

	m.finish(ctx, session, repository.PaymentStatusFailed)
	m.logger.Warn("payment failed", zap.String("payment_id", session.ID))
	return ProcessResult{Status: repository.PaymentStatusFailed, ErrorMessage: failureMessage}, nil
}

// Status возвращает текущий статус платёжной сессии
// Возвращает ErrPaymentNotFound для неизвестного id
func (m *PaymentManager) Status(ctx context.Context, paymentID string) (repository.PaymentStatus, error) {
	m.mu.RLock()
	status, ok := m.statuses[paymentID]
	m.mu.RUnlock()
	if ok {
		return status, nil
	}
	session, err := m.sessions.GetSession(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return "", repository.ErrPaymentNotFound
		}
		return "", NewGatewayError(err, "failed to load payment session")
	}
	return session.Status, nil
}

// GetSession возвращает платёжную сессию по id с актуальным live-статусом
func (m *PaymentManager) GetSession(ctx context.Context, paymentID string) (repository.PaymentSession, error) {
	session, err := m.sessions.GetSession(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return repository.PaymentSession{}, repository.ErrPaymentNotFound
		}
		return repository.PaymentSession{}, NewGatewayError(err, "failed to load payment session")
	}
	m.mu.RLock()
	if status, ok := m.statuses[paymentID]; ok {
		session.Status = status
	}
	m.mu.RUnlock()
	return session, nil
}

// Cancel отменяет платёж; допустима только для нетерминальных статусов
func (m *PaymentManager) Cancel(ctx context.Context, paymentID string) error {
	session, err := m.GetSession(ctx, paymentID)
	if err != nil {
		return err
	}
	if session.Status.Terminal() {
		return NewValidationError("cannot cancel payment in status %s", session.Status)
	}
	m.finish(ctx, session, repository.PaymentStatusCancelled)
	m.logger.Info("payment cancelled", zap.String("payment_id", paymentID))
	return nil
}

// Refund выполняет возврат; допустим только из статуса completed
func (m *PaymentManager) Refund(ctx context.Context, paymentID string) error {
	session, err := m.GetSession(ctx, paymentID)
	if err != nil {
		return err
	}
	if session.Status != repository.PaymentStatusCompleted {
		return NewValidationError("cannot refund payment in status %s", session.Status)
	}
	m.finish(ctx, session, repository.PaymentStatusRefunded)
	m.logger.Info("payment refunded", zap.String("payment_id", paymentID))
	return nil
}

// Watch подписывает на обновления статуса платежа
// Канал буферизован; медленный подписчик пропускает промежуточные статусы
func (m *PaymentManager) Watch(paymentID string) <-chan repository.PaymentStatus {
	ch := make(chan repository.PaymentStatus, 8)
	m.mu.Lock()
	m.watchers[paymentID] = append(m.watchers[paymentID], ch)
	m.mu.Unlock()
	return ch
}

// Unwatch отписывает канал от обновлений и закрывает его
func (m *PaymentManager) Unwatch(paymentID string, ch <-chan repository.PaymentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	watchers := m.watchers[paymentID]
	for i, w := range watchers {
		if (<-chan repository.PaymentStatus)(w) == ch {
			m.watchers[paymentID] = append(watchers[:i], watchers[i+1:]...)
			close(w)
			break
		}
	}
	if len(m.watchers[paymentID]) == 0 {
		delete(m.watchers, paymentID)
	}
}

// SetWalletAddress настраивает merchant-адрес для валюты
func (m *PaymentManager) SetWalletAddress(ctx context.Context, currency, address string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return NewValidationError("currency is required")
	}
	if strings.TrimSpace(address) == "" {
		return NewValidationError("wallet address is required")
	}
	if err := m.wallets.SetAddress(ctx, currency, address); err != nil {
		return NewGatewayError(err, "failed to save wallet address")
	}
	return nil
}

// ConfiguredWallets возвращает merchant-адреса: дефолты, перекрытые настройками из хранилища
func (m *PaymentManager) ConfiguredWallets(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string, len(defaultMerchantWallets))
	for currency, address := range defaultMerchantWallets {
		out[currency] = address
	}
	stored, err := m.wallets.ListAddresses(ctx)
	if err != nil {
		return nil, NewGatewayError(err, "failed to list wallet addresses")
	}
	for currency, address := range stored {
		out[currency] = address
	}
	return out, nil
}

// DeepLink строит URI для открытия платежа во внешнем кошельке
// Формат следует схеме BIP-21 и её аналогам для остальных монет
func (m *PaymentManager) DeepLink(ctx context.Context, paymentID, packageName string) (string, error) {
	session, err := m.GetSession(ctx, paymentID)
	if err != nil {
		return "", err
	}
	if packageName != "" {
		app, ok := m.directory.WalletByPackage(packageName)
		if !ok {
			return "", NewNotFoundError("unknown wallet app %s", packageName)
		}
		if !coinSupported(app, session.Currency) {
			return "", NewValidationError("%s does not support %s", app.Name, session.Currency)
		}
	}
	scheme, ok := paymentURISchemes[session.Currency]
	if !ok {
		return session.PaymentURL, nil
	}
	return fmt.Sprintf("%s:%s?amount=%s&label=%s",
		scheme, session.WalletAddress, session.Amount.StringFixed(2), session.MerchantID), nil
}

// setStatus обновляет live-статус, уведомляет подписчиков и best-effort сохраняет сессию
func (m *PaymentManager) setStatus(ctx context.Context, session *repository.PaymentSession, status repository.PaymentStatus) {
	m.mu.Lock()
	m.statuses[session.ID] = status
	watchers := append([]chan repository.PaymentStatus(nil), m.watchers[session.ID]...)
	m.mu.Unlock()

	session.Status = status
	for _, ch := range watchers {
		select {
		case ch <- status:
		default:
		}
	}
	if err := m.sessions.SaveSession(ctx, *session); err != nil {
		m.logger.Warn("failed to persist payment status",
			zap.String("payment_id", session.ID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

// finish переводит платёж в терминальный статус
// Если другой терминальный статус успел записаться раньше (например cancel
// во время processing), итог обработки отбрасывается
func (m *PaymentManager) finish(ctx context.Context, session repository.PaymentSession, status repository.PaymentStatus) {
	m.mu.Lock()
	if current, ok := m.statuses[session.ID]; ok && current.Terminal() && current != status {
		// допускаем только completed -> refunded
		if !(current == repository.PaymentStatusCompleted && status == repository.PaymentStatusRefunded) {
			m.mu.Unlock()
			return
		}
	}
	m.statuses[session.ID] = status
	watchers := append([]chan repository.PaymentStatus(nil), m.watchers[session.ID]...)
	m.mu.Unlock()

	session.Status = status
	for _, ch := range watchers {
		select {
		case ch <- status:
		default:
		}
	}
	if err := m.sessions.SaveSession(ctx, session); err != nil {
		m.logger.Warn("failed to persist payment status",
			zap.String("payment_id", session.ID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

// coinSupported возвращает true, если кошелёк поддерживает монету
func coinSupported(app WalletApp, currency string) bool {
	for _, coin := range app.SupportedCoins {
		if coin == currency {
			return true
		}
	}
	return false
}

// defaultMerchantWallets — дефолтные merchant-адреса по валютам
var defaultMerchantWallets = map[string]string{
	"BTC":   "1DsCAVrzvGokrzXpe6YR33QuTo5EppiKRE",
	"ETH":   "0x3d3eee5b542975839d2dccbf2f97139debc711bc",
	"LTC":   "LU2ERRXKTeKnzpuieQcpsBteViEY7ff5Wg",
	"BCH":   "qz5klapp9c4kq97psu5rg7sq9quu3vcv7qan8dn6ts",
	"DOGE":  "DFZtQ1SedQFGijrR7LJ55RFBNFVQpbGULn",
	"SOL":   "6K6gpBF9nyrSL2vzSaFDZgAJQurkoEzPGtK67WAg6FjX",
	"MATIC": "0x3d3eee5b542975839d2dccbf2f97139debc711bc",
	"BNB":   "0x3d3eee5b542975839d2dccbf2f97139debc711bc",
	"TRX":   "TKUNwoQMyLuJzUzWPKwA7yw4qujz2Pz6gS",
}

// paymentURISchemes — URI-схемы платёжных deep link по валютам
var paymentURISchemes = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"LTC":   "litecoin",
	"BCH":   "bitcoincash",
	"DOGE":  "dogecoin",
	"SOL":   "solana",
	"MATIC": "polygon",
	"BNB":   "bnb",
	"TRX":   "tron",
}
