package brokers

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter - часть kafka.Writer, используемая публикацией
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Stats() kafka.WriterStats
	Close() error
}

// Kafka публикует единицы импорта в topic
type Kafka struct {
	config Config
	writer messageWriter
}

// NewKafka создает новый Kafka publisher
func NewKafka(cfg Config) (*Kafka, error) {
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic name is required for Kafka")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required for Kafka")
	}
	return &Kafka{config: cfg}, nil
}

// Connect создает writer и проверяет доступность topic
func (k *Kafka) Connect(ctx context.Context) error {
	k.writer = &kafka.Writer{
		Addr:         kafka.TCP(k.config.Brokers...),
		Topic:        k.config.Topic,
		Balancer:     &kafka.Hash{}, // ключ = таблица, порядок батчей одной таблицы сохраняется
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		MaxAttempts:  3,
		BatchBytes:   16 << 20, // таблицы с большими схемами
		WriteTimeout: 10 * time.Second,
	}
	return k.Ping(ctx)
}

// Close закрывает writer
func (k *Kafka) Close() error {
	if k.writer == nil {
		return nil
	}
	if err := k.writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return nil
}

// Publish отправляет сообщения одним вызовом WriteMessages
func (k *Kafka) Publish(ctx context.Context, msgs ...Message) error {
	if k.writer == nil {
		return fmt.Errorf("not connected to Kafka")
	}
	if len(msgs) == 0 {
		return nil
	}

	now := time.Now()
	out := make([]kafka.Message, len(msgs))
	for i, m := range msgs {
		headers := make([]kafka.Header, 0, len(m.Headers)+1)
		headers = append(headers, kafka.Header{Key: "content-type", Value: []byte("application/json")})
		for key, v := range m.Headers {
			headers = append(headers, kafka.Header{Key: key, Value: []byte(v)})
		}
		out[i] = kafka.Message{Key: m.Key, Value: m.Value, Headers: headers, Time: now}
	}

	if err := k.writer.WriteMessages(ctx, out...); err != nil {
		return fmt.Errorf("failed to write %d messages to Kafka: %w", len(out), err)
	}
	return nil
}

// Ping проверяет, что topic существует
func (k *Kafka) Ping(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", k.config.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial Kafka broker: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ReadPartitions(k.config.Topic); err != nil {
		return fmt.Errorf("failed to read topic partitions: %w", err)
	}
	return nil
}

// GetBrokerType возвращает тип брокера
func (k *Kafka) GetBrokerType() string {
	return "kafka"
}

// GetStats возвращает статистику writer
func (k *Kafka) GetStats() kafka.WriterStats {
	if k.writer == nil {
		return kafka.WriterStats{}
	}
	return k.writer.Stats()
}
