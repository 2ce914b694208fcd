package kafka

// Config содержит конфигурацию для подключения к Kafka
type Config struct {
	// Brokers — список брокеров Kafka.
	// Значение зависит от среды выполнения:
	//   - локальная разработка (go run): localhost:19092
	//   - запуск в Docker: kafka:9092
	// Можно указать несколько брокеров через запятую: "broker1:9092,broker2:9092"
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	// PaymentTopic — топик для событий успешной оплаты заказа
	PaymentTopic string `env:"KAFKA_PAYMENT_TOPIC" envDefault:"order.payment.completed"`
}

// DefaultConfig возвращает конфигурацию с дефолтными значениями для локальной разработки.
// Актуальные значения приходят через переменные окружения (KAFKA_BROKERS, KAFKA_PAYMENT_TOPIC).
func DefaultConfig() Config {
	return Config{
		Brokers:      []string{"localhost:19092"},
		PaymentTopic: "order.payment.completed",
	}
}
