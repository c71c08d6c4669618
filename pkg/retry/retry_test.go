package retry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/smithy-go"
)

func TestRetryer_Success(t *testing.T) {
	retryer, err := NewRetryer(EnableRetry(3, 10*time.Millisecond))
	if err != nil {
		t.Fatalf("Failed to create retryer: %v", err)
	}

	attempts := 0
	err = retryer.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestRetryer_SuccessAfterRetries(t *testing.T) {
	config := EnableRetry(5, 5*time.Millisecond)
	config.Jitter = 0
	retryer, err := NewRetryer(config)
	if err != nil {
		t.Fatalf("Failed to create retryer: %v", err)
	}

	attempts := 0
	err = retryer.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("ThrottlingException: rate exceeded")
		}
		return nil
	})
	if err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryer_MaxAttemptsExceeded(t *testing.T) {
	retryer, err := NewRetryer(EnableRetry(3, time.Millisecond))
	if err != nil {
		t.Fatalf("Failed to create retryer: %v", err)
	}

	attempts := 0
	persistent := errors.New("persistent error")
	err = retryer.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return persistent
	})
	if !errors.Is(err, persistent) {
		t.Errorf("Expected wrapped persistent error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryer_CalculateDelay(t *testing.T) {
	tests := []struct {
		strategy BackoffStrategy
		want     []time.Duration
	}{
		{BackoffConstant, []time.Duration{100, 100, 100, 100}},
		{BackoffLinear, []time.Duration{100, 200, 300, 400}},
		{BackoffExponential, []time.Duration{100, 200, 400, 500}}, // 800 ограничено MaxDelay
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			config := EnableRetry(5, 100*time.Millisecond)
			config.MaxDelay = 500 * time.Millisecond
			config.BackoffStrategy = tt.strategy
			config.Jitter = 0
			retryer, err := NewRetryer(config)
			if err != nil {
				t.Fatal(err)
			}
			for i, want := range tt.want {
				if got := retryer.calculateDelay(i + 1); got != want*time.Millisecond {
					t.Errorf("attempt %d: delay = %v, want %v", i+1, got, want*time.Millisecond)
				}
			}
		})
	}
}

func TestRetryer_JitterBounds(t *testing.T) {
	config := EnableRetry(5, 100*time.Millisecond)
	config.BackoffStrategy = BackoffConstant
	config.Jitter = 0.5
	retryer, err := NewRetryer(config)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 100; i++ {
		d := retryer.calculateDelay(1)
		if d < 50*time.Millisecond || d > 150*time.Millisecond {
			t.Fatalf("delay %v outside jitter bounds", d)
		}
	}
}

func TestRetryer_ContextCancellation(t *testing.T) {
	retryer, err := NewRetryer(EnableRetry(10, 50*time.Millisecond))
	if err != nil {
		t.Fatalf("Failed to create retryer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err = retryer.Do(ctx, func(ctx context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}

func TestRetryer_OnRetryCallback(t *testing.T) {
	callbackCalls := 0
	config := EnableRetry(3, time.Millisecond)
	config.OnRetry = func(attempt int, err error, delay time.Duration) {
		callbackCalls++
	}

	retryer, err := NewRetryer(config)
	if err != nil {
		t.Fatalf("Failed to create retryer: %v", err)
	}

	_ = retryer.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("error")
	})

	// 3 попытки = 2 повтора
	if callbackCalls != 2 {
		t.Errorf("Expected 2 callback calls, got %d", callbackCalls)
	}
}

func TestRetryer_WithDLQ(t *testing.T) {
	dlqFile := filepath.Join(t.TempDir(), "dlq.json")

	retryer, err := NewRetryer(EnableRetryWithDLQ(2, time.Millisecond, dlqFile))
	if err != nil {
		t.Fatalf("Failed to create retryer: %v", err)
	}

	batch := map[string]any{"database": "sales", "table": "orders", "partitions": 100}
	err = retryer.DoUnit(context.Background(), "partitions sales.orders[0:100]", batch, func(ctx context.Context) error {
		return errors.New("persistent error")
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if err := retryer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	entries := retryer.GetDLQ().Get()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 DLQ entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Unit != "partitions sales.orders[0:100]" || e.Attempts != 2 || e.FailureType != FailureMaxAttempts {
		t.Errorf("unexpected entry: %+v", e)
	}

	reloaded, err := NewDLQ(DLQConfig{FilePath: dlqFile})
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Size() != 1 {
		t.Errorf("Expected DLQ to persist 1 entry, got %d", reloaded.Size())
	}
}

func TestRetryer_RetryableErrors(t *testing.T) {
	config := EnableRetry(3, time.Millisecond)
	config.RetryableErrors = []string{"timeout", "connection refused"}

	retryer, err := NewRetryer(config)
	if err != nil {
		t.Fatalf("Failed to create retryer: %v", err)
	}

	attempts := 0
	_ = retryer.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("connection refused")
	})
	if attempts != 3 {
		t.Errorf("Expected 3 attempts for retryable error, got %d", attempts)
	}

	attempts = 0
	_ = retryer.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("invalid input")
	})
	if attempts != 1 {
		t.Errorf("Expected 1 attempt for non-retryable error, got %d", attempts)
	}
}

func TestRetryer_Classifier(t *testing.T) {
	config := EnableRetryWithDLQ(4, time.Millisecond, "")
	config.Classifier = IsRetryableAWS

	retryer, err := NewRetryer(config)
	if err != nil {
		t.Fatal(err)
	}

	attempts := 0
	err = retryer.DoUnit(context.Background(), "table sales.orders", nil, func(ctx context.Context) error {
		attempts++
		return &smithy.GenericAPIError{Code: "InvalidInputException", Message: "bad column type", Fault: smithy.FaultClient}
	})
	if err == nil || attempts != 1 {
		t.Errorf("client fault should not be retried: attempts=%d err=%v", attempts, err)
	}
	if entries := retryer.GetDLQ().Get(); len(entries) != 1 || entries[0].FailureType != FailureNonRetryable {
		t.Errorf("expected non_retryable DLQ entry, got %+v", entries)
	}
}

func TestIsRetryableAWS(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"throttling", &smithy.GenericAPIError{Code: "ThrottlingException", Fault: smithy.FaultClient}, true},
		{"concurrent modification", &smithy.GenericAPIError{Code: "ConcurrentModificationException"}, true},
		{"server fault", &smithy.GenericAPIError{Code: "Whatever", Fault: smithy.FaultServer}, true},
		{"invalid input", &smithy.GenericAPIError{Code: "InvalidInputException", Fault: smithy.FaultClient}, false},
		{"entity not found", &smithy.GenericAPIError{Code: "EntityNotFoundException"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableAWS(tt.err); got != tt.want {
				t.Errorf("IsRetryableAWS(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryer_Disabled(t *testing.T) {
	retryer, err := NewRetryer(DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create retryer: %v", err)
	}

	attempts := 0
	err = retryer.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("error")
	})
	if err == nil {
		t.Error("Expected error when retry disabled")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt when retry disabled, got %d", attempts)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default enabled", func(c *Config) {}, false},
		{"negative attempts", func(c *Config) { c.MaxAttempts = -1 }, true},
		{"max below initial", func(c *Config) { c.MaxDelay = time.Millisecond; c.InitialDelay = time.Second }, true},
		{"unknown backoff", func(c *Config) { c.BackoffStrategy = "fibonacci" }, true},
		{"jitter too large", func(c *Config) { c.Jitter = 1.5 }, true},
		{"zero multiplier defaulted", func(c *Config) { c.BackoffMultiplier = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := EnableRetry(3, 100*time.Millisecond)
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
