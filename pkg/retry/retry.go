package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

// Типы отказов в DLQ
const (
	FailureMaxAttempts  = "max_attempts_exceeded"
	FailureNonRetryable = "non_retryable"
	FailureRejected     = "rejected"
)

// RetryableFunc - функция, которую можно повторить
type RetryableFunc func(ctx context.Context) error

// Retryer выполняет retry логику
type Retryer struct {
	config Config
	dlq    *DLQ
}

// NewRetryer создает новый Retryer
func NewRetryer(config Config) (*Retryer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}

	var dlq *DLQ
	if config.DLQ.Enabled {
		var err error
		dlq, err = NewDLQ(config.DLQ)
		if err != nil {
			return nil, fmt.Errorf("failed to create DLQ: %w", err)
		}
	}

	return &Retryer{config: config, dlq: dlq}, nil
}

// Do выполняет функцию с retry
func (r *Retryer) Do(ctx context.Context, fn RetryableFunc) error {
	return r.DoUnit(ctx, "", nil, fn)
}

// DoUnit выполняет функцию с retry; при окончательном отказе единица импорта
// unit с данными data попадает в DLQ
func (r *Retryer) DoUnit(ctx context.Context, unit string, data any, fn RetryableFunc) error {
	if !r.config.Enabled {
		err := fn(ctx)
		if err != nil {
			r.deadLetter(unit, data, 1, err, FailureNonRetryable)
		}
		return err
	}

	attempts := 0
	for {
		attempts++

		err := fn(ctx)
		if err == nil {
			return nil
		}

		if !r.isRetryableError(err) {
			r.deadLetter(unit, data, attempts, err, FailureNonRetryable)
			return fmt.Errorf("non-retryable error: %w", err)
		}

		if r.config.MaxAttempts > 0 && attempts >= r.config.MaxAttempts {
			r.deadLetter(unit, data, attempts, err, FailureMaxAttempts)
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", r.config.MaxAttempts, err)
		}

		if ctx.Err() != nil {
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		}

		delay := r.calculateDelay(attempts)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempts, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}
}

// Reject записывает в DLQ единицу, которую сервис принял, но отклонил
// поэлементно (ошибки внутри ответа пакетного вызова)
func (r *Retryer) Reject(unit string, data any, err error) {
	r.deadLetter(unit, data, 1, err, FailureRejected)
}

func (r *Retryer) deadLetter(unit string, data any, attempts int, err error, failure string) {
	if r.dlq == nil {
		return
	}
	r.dlq.Add(DLQEntry{
		Timestamp:   time.Now(),
		Unit:        unit,
		Attempts:    attempts,
		LastError:   err.Error(),
		FailureType: failure,
		Data:        data,
	})
}

// calculateDelay вычисляет задержку для текущей попытки
func (r *Retryer) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch r.config.BackoffStrategy {
	case BackoffLinear:
		delay = r.config.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		// initial * multiplier^(attempt-1)
		multiplier := math.Pow(r.config.BackoffMultiplier, float64(attempt-1))
		delay = time.Duration(float64(r.config.InitialDelay) * multiplier)
	default:
		delay = r.config.InitialDelay
	}

	if delay > r.config.MaxDelay || delay < 0 {
		delay = r.config.MaxDelay
	}

	if r.config.Jitter > 0 {
		delay += time.Duration(float64(delay) * r.config.Jitter * (rand.Float64()*2 - 1))
		if delay < 0 {
			delay = r.config.InitialDelay
		}
	}

	return delay
}

// isRetryableError проверяет нужен ли retry для ошибки
func (r *Retryer) isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if r.config.Classifier != nil {
		return r.config.Classifier(err)
	}
	if len(r.config.RetryableErrors) == 0 {
		return true
	}

	errStr := err.Error()
	for _, pattern := range r.config.RetryableErrors {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// GetDLQ возвращает DLQ если он включен
func (r *Retryer) GetDLQ() *DLQ {
	return r.dlq
}

// Close сохраняет DLQ
func (r *Retryer) Close() error {
	if r.dlq != nil {
		return r.dlq.Save()
	}
	return nil
}
