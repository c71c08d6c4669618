package processors

import (
	"context"

	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
)

// Processor обрабатывает извлеченный снапшот перед трансформацией.
// Реализации не изменяют входной снапшот, а возвращают новый.
type Processor interface {
	// Name возвращает имя процессора
	Name() string

	// Process обрабатывает записи снапшота
	Process(ctx context.Context, snap *catalog.Snapshot) (*catalog.Snapshot, error)
}

// BlockProcessor определяет интерфейс для блочной обработки данных
// (файлы снапшота: сжатие, контрольные суммы).
type BlockProcessor interface {
	ProcessBlock(ctx context.Context, input []byte) ([]byte, error)
}

// Config содержит конфигурацию процессора
type Config struct {
	Type   string         `yaml:"type"`   // Тип процессора (redact_parameters)
	Params map[string]any `yaml:"params"` // Параметры процессора
}
