package brokers

import (
	"context"
	"fmt"
)

// Message - одна единица импорта в брокере
type Message struct {
	// Key определяет партицию Kafka: единицы одной таблицы идут в одну партицию
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Publisher публикует единицы импорта каталога в очередь, откуда их
// применяет отдельный потребитель (например, Lambda с доступом к Glue)
type Publisher interface {
	// Connect устанавливает соединение с брокером
	Connect(ctx context.Context) error

	// Close закрывает соединение с брокером
	Close() error

	// Publish отправляет сообщения; порядок внутри вызова сохраняется
	Publish(ctx context.Context, msgs ...Message) error

	// Ping проверяет доступность брокера
	Ping(ctx context.Context) error

	// GetBrokerType возвращает тип брокера (rabbitmq, kafka)
	GetBrokerType() string
}

// Config содержит параметры подключения к брокеру
type Config struct {
	Type string `yaml:"type"` // rabbitmq, kafka

	// RabbitMQ
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Queue      string `yaml:"queue"`
	VHost      string `yaml:"vhost"`
	UseTLS     bool   `yaml:"tls"`
	Exchange   string `yaml:"exchange"`    // пустая строка = default exchange
	RoutingKey string `yaml:"routing_key"` // по умолчанию имя очереди
	Durable    bool   `yaml:"durable"`     // должно совпадать с существующей очередью

	// Kafka
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// New создает Publisher на основе конфигурации
func New(cfg Config) (Publisher, error) {
	switch cfg.Type {
	case "rabbitmq":
		return NewRabbitMQ(cfg)
	case "kafka":
		return NewKafka(cfg)
	default:
		return nil, fmt.Errorf("unsupported broker type: %s (supported: rabbitmq, kafka)", cfg.Type)
	}
}
