package resilience

import (
	"fmt"
	"time"
)

// Config - конфигурация Circuit Breaker вокруг вызовов целевого каталога
type Config struct {
	Enabled bool `yaml:"enabled"`

	// Name - имя для логов и метрик ("glue", "kafka")
	Name string `yaml:"name"`

	// MaxFailures - последовательных ошибок до открытия
	MaxFailures uint32 `yaml:"max_failures"`

	// Timeout - время в Open перед переходом в Half-Open
	Timeout time.Duration `yaml:"timeout"`

	// MaxConcurrentCalls - лимит одновременных вызовов, 0 = без ограничений
	MaxConcurrentCalls uint32 `yaml:"max_concurrent_calls"`

	// SuccessThreshold - успешных вызовов в Half-Open для закрытия
	SuccessThreshold uint32 `yaml:"success_threshold"`

	OnStateChange func(name string, from State, to State) `yaml:"-"`

	// IsFailure решает, считается ли ошибка отказом сервиса.
	// nil = любая ошибка. Ошибки данных (InvalidInput, AlreadyExists)
	// не должны открывать circuit.
	IsFailure func(err error) bool `yaml:"-"`
}

// Counts - счетчики запросов
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Validate - валидация конфигурации
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MaxFailures == 0 {
		return fmt.Errorf("max_failures must be greater than 0")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	if c.SuccessThreshold == 0 {
		c.SuccessThreshold = 1
	}
	if c.Name == "" {
		c.Name = "circuit-breaker"
	}
	return nil
}

// DefaultConfig - конфигурация по умолчанию
func DefaultConfig(name string) Config {
	return Config{
		Enabled:          true,
		Name:             name,
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		SuccessThreshold: 2,
	}
}
