package resultlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config - публикация результата миграции в Redis
type Config struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// Name - имя миграции в ключах Redis
	Name string `yaml:"name"`

	// TTL ключа состояния в секундах, 0 = без срока
	TTL int `yaml:"ttl"`
}

// Validate проверяет обязательные поля
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Address == "" {
		return fmt.Errorf("result_log.address is required")
	}
	if c.Name == "" {
		return fmt.Errorf("result_log.name is required")
	}
	if c.TTL < 0 {
		return fmt.Errorf("result_log.ttl must be >= 0")
	}
	return nil
}

// MigrationResult - итог прогона, публикуемый в Redis.
//
// Ключи:
//
//	SET  hms:migration:<name>:state  <JSON>  EX <ttl>  (опрос оркестратором)
//	PUB  hms:migration:<name>                          (подписка на события)
type MigrationResult struct {
	Name       string    `json:"name"`
	RunID      string    `json:"run_id"`
	Mode       string    `json:"mode"`
	Status     string    `json:"status"` // success | partial | failed
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`

	Databases  int `json:"databases"`
	Tables     int `json:"tables"`
	Partitions int `json:"partitions"`
	Batches    int `json:"batches"`
	Failed     int `json:"failed_units"`

	Error *string `json:"error,omitempty"`
}

// StateKey - ключ состояния миграции
func StateKey(name string) string {
	return "hms:migration:" + name + ":state"
}

// EventChannel - канал событий миграции
func EventChannel(name string) string {
	return "hms:migration:" + name
}

// RedisPublisher публикует результат миграции
type RedisPublisher struct {
	client *redis.Client
	config Config
}

// NewRedisPublisher создает publisher на основе конфигурации
func NewRedisPublisher(config Config) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})
	return &RedisPublisher{client: client, config: config}
}

// Publish записывает состояние и публикует событие. execErr == nil - успех
// (или partial, если часть единиц ушла в DLQ).
func (p *RedisPublisher) Publish(ctx context.Context, result MigrationResult, execErr error) error {
	result.Name = p.config.Name
	result.DurationMs = result.FinishedAt.Sub(result.StartedAt).Milliseconds()

	switch {
	case execErr != nil:
		result.Status = "failed"
		msg := execErr.Error()
		result.Error = &msg
	case result.Failed > 0:
		result.Status = "partial"
	default:
		result.Status = "success"
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	ttl := time.Duration(p.config.TTL) * time.Second
	if err := p.client.Set(ctx, StateKey(p.config.Name), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	if err := p.client.Publish(ctx, EventChannel(p.config.Name), payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}
	return nil
}

// Last возвращает последний опубликованный результат, nil если его нет
func (p *RedisPublisher) Last(ctx context.Context) (*MigrationResult, error) {
	payload, err := p.client.Get(ctx, StateKey(p.config.Name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis GET failed: %w", err)
	}

	var result MigrationResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("invalid state payload: %w", err)
	}
	return &result, nil
}

// Close закрывает соединение с Redis
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
