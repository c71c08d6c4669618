package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCircuitOpen - circuit breaker открыт
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrTooManyCalls - слишком много одновременных вызовов
	ErrTooManyCalls = errors.New("too many concurrent calls")
)

// ExecuteFunc - функция для выполнения с circuit breaker
type ExecuteFunc func(ctx context.Context) error

// CircuitBreaker останавливает загрузку, когда целевой сервис стабильно
// отвечает ошибками, вместо того чтобы тратить retry на каждую единицу импорта
type CircuitBreaker struct {
	config       Config
	stateManager *stateManager
}

// New - создать новый Circuit Breaker
func New(config Config) (*CircuitBreaker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid circuit breaker config: %w", err)
	}
	return &CircuitBreaker{config: config, stateManager: newStateManager(config)}, nil
}

// Execute - выполнить функцию с защитой circuit breaker
func (cb *CircuitBreaker) Execute(ctx context.Context, fn ExecuteFunc) error {
	if !cb.config.Enabled {
		return fn(ctx)
	}

	generation, err := cb.stateManager.beforeRequest()
	if err != nil {
		return fmt.Errorf("%s: %w", cb.config.Name, err)
	}

	defer func() {
		if r := recover(); r != nil {
			cb.stateManager.afterRequest(generation, false)
			panic(r)
		}
	}()

	err = fn(ctx)
	cb.stateManager.afterRequest(generation, !cb.isFailure(err))
	return err
}

func (cb *CircuitBreaker) isFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if cb.config.IsFailure != nil {
		return cb.config.IsFailure(err)
	}
	return true
}

// State - текущее состояние
func (cb *CircuitBreaker) State() State {
	return cb.stateManager.getState()
}

// Counts - счетчики текущего поколения
func (cb *CircuitBreaker) Counts() Counts {
	return cb.stateManager.getCounts()
}

// Stats - полная статистика
func (cb *CircuitBreaker) Stats() Stats {
	return cb.stateManager.getStats()
}

// Reset - сбросить состояние в Closed
func (cb *CircuitBreaker) Reset() {
	cb.stateManager.reset()
}

// Name - имя Circuit Breaker
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// WaitUntilReady блокирует, пока circuit открыт
func (cb *CircuitBreaker) WaitUntilReady(ctx context.Context) error {
	if !cb.config.Enabled {
		return nil
	}

	for {
		stats := cb.Stats()
		if stats.State != StateOpen {
			return nil
		}

		wait := max(stats.TimeUntilHalfOpen, 10*time.Millisecond)
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			// переход Open -> HalfOpen происходит при следующем запросе
			if cb.Stats().TimeUntilHalfOpen == 0 {
				return nil
			}
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (cb *CircuitBreaker) String() string {
	stats := cb.Stats()
	return fmt.Sprintf("CircuitBreaker(%s state=%s failures=%d/%d)",
		cb.config.Name, stats.State, stats.Counts.ConsecutiveFailures, cb.config.MaxFailures)
}
