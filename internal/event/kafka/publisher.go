package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/FreetimeMaker/freetime-shop/internal/service"
)

// KafkaPaymentEventPublisher реализует PaymentEventPublisher используя Kafka
type KafkaPaymentEventPublisher struct {
	logger *zap.Logger
	writer *kafka.Writer //writer для отправки сообщений в Kafka
	topic  string
}

// NewKafkaPaymentEventPublisher создаёт новый Kafka publisher для событий оплаты заказа
func NewKafkaPaymentEventPublisher(logger *zap.Logger, brokers []string, topic string) *KafkaPaymentEventPublisher {
	writer := &kafka.Writer{ //создаём writer для отправки сообщений в Kafka
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{}, //алгоритм балансировки нагрузки
	}

	return &KafkaPaymentEventPublisher{
		logger: logger,
		writer: writer,
		topic:  topic,
	}
}

// Close закрывает Kafka writer
func (p *KafkaPaymentEventPublisher) Close() error {
	return p.writer.Close()
}

// PublishOrderPaid публикует событие успешной оплаты заказа в Kafka
func (p *KafkaPaymentEventPublisher) PublishOrderPaid(ctx context.Context, event service.OrderPaidEvent) error {
	// Генерируем event_id, если он не задан
	eventID := event.EventID
	if eventID == "" {
		eventID = uuid.New().String() //генерируем уникальный ID для события
	}

	// Формируем JSON payload события
	payload := map[string]interface{}{
		"event_id":       eventID,
		"event_type":     event.EventType,
		"event_version":  event.EventVersion,
		"occurred_at":    event.OccurredAt.Format(time.RFC3339),
		"order_id":       event.OrderID,
		"payment_id":     event.PaymentID,
		"transaction_id": event.TransactionID,
		"customer_email": event.CustomerEmail,
		"amount":         event.Amount,
		"currency":       event.Currency,
	}

	valueBytes, err := json.Marshal(payload) //преобразуем данные события в JSON
	if err != nil {
		p.logger.Error("failed to marshal order paid event",
			zap.Error(err),
			zap.String("order_id", event.OrderID),
		)
		return err
	}

	// Отправляем сообщение в Kafka, ключ — order_id для упорядочивания по заказу
	message := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: valueBytes,
	}

	err = p.writer.WriteMessages(ctx, message)
	if err != nil {
		p.logger.Error("failed to publish order paid event",
			zap.Error(err),
			zap.String("topic", p.topic),
			zap.String("order_id", event.OrderID),
			zap.String("payment_id", event.PaymentID),
		)
		return err
	}

	p.logger.Info("order paid event published",
		zap.String("topic", p.topic),
		zap.String("event_id", eventID),
		zap.String("order_id", event.OrderID),
		zap.String("payment_id", event.PaymentID),
	)

	return nil
}
