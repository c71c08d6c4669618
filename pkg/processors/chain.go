package processors

import (
	"context"
	"fmt"
	"strings"

	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
)

// Chain - процессоры снапшота в порядке конфигурации
type Chain []Processor

// NewChain собирает цепочку
func NewChain(processors ...Processor) Chain {
	return Chain(processors)
}

// Process прогоняет снапшот через все процессоры по очереди.
// Отмена контекста проверяется между процессорами.
func (c Chain) Process(ctx context.Context, snap *catalog.Snapshot) (*catalog.Snapshot, error) {
	for i, proc := range c {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := proc.Process(ctx, snap)
		if err != nil {
			return nil, fmt.Errorf("processor %d (%s) failed: %w", i, proc.Name(), err)
		}
		snap = out
	}
	return snap, nil
}

// Len возвращает количество процессоров
func (c Chain) Len() int { return len(c) }

// String - имена процессоров через "->" для логов
func (c Chain) String() string {
	names := make([]string, len(c))
	for i, proc := range c {
		names[i] = proc.Name()
	}
	return strings.Join(names, "->")
}
