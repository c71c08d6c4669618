package loader

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ruslano69/hms-migrator/pkg/resilience"
	"github.com/ruslano69/hms-migrator/pkg/retry"
)

// Guard оборачивает вызов целевого сервиса: retry с DLQ снаружи,
// circuit breaker внутри каждой попытки. Нулевые поля отключают слой.
type Guard struct {
	Retryer *retry.Retryer
	Breaker *resilience.CircuitBreaker
}

// Call выполняет fn для единицы импорта unit. После исчерпания попыток
// data попадает в DLQ retryer'а.
func (g *Guard) Call(ctx context.Context, unit string, data any, fn func(ctx context.Context) error) error {
	attempt := fn
	if g != nil && g.Breaker != nil {
		attempt = func(ctx context.Context) error {
			return g.Breaker.Execute(ctx, fn)
		}
	}
	if g == nil || g.Retryer == nil {
		return attempt(ctx)
	}
	return g.Retryer.DoUnit(ctx, unit, data, attempt)
}

// Fault отличает сбой загрузки коллекции от отказа одной единицы импорта:
// открытый circuit breaker или отмененный контекст. Отказы единиц
// считаются в Result.Failed и уходят в DLQ, загрузка продолжается.
func Fault(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	return ctx.Err() != nil ||
		errors.Is(err, resilience.ErrCircuitOpen) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// tally - потокобезопасный Result
type tally struct {
	mu  sync.Mutex
	res Result
}

func (t *tally) add(r Result) {
	t.mu.Lock()
	t.res.add(r)
	t.mu.Unlock()
}

func (t *tally) result() Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.res
}

// forEach вызывает fn для индексов 0..n-1 не более чем в workers горутинах.
// Ошибка одного элемента не останавливает остальные; ошибки объединяются
// в порядке индексов. Отмена ctx прекращает запуск новых элементов.
func forEach(ctx context.Context, workers, n int, fn func(ctx context.Context, i int) error) error {
	if workers <= 0 {
		workers = 1
	}
	errs := make([]error, n)

	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			break
		}
		g.Go(func() error {
			errs[i] = fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
