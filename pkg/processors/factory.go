package processors

import (
	"fmt"
)

// Factory создает процессоры по их типу и конфигурации
type Factory struct {
	creators map[string]CreatorFunc
}

// CreatorFunc функция для создания процессора из конфигурации
type CreatorFunc func(params map[string]any) (Processor, error)

// NewFactory создает новую фабрику процессоров
func NewFactory() *Factory {
	f := &Factory{
		creators: make(map[string]CreatorFunc),
	}

	// Регистрируем встроенные процессоры
	f.Register(RedactorType, func(params map[string]any) (Processor, error) {
		return NewParameterRedactorFromConfig(params)
	})

	return f
}

// Register регистрирует новый тип процессора
func (f *Factory) Register(processorType string, creator CreatorFunc) {
	f.creators[processorType] = creator
}

// Create создает процессор по конфигурации
func (f *Factory) Create(cfg Config) (Processor, error) {
	creator, ok := f.creators[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown processor type: %s", cfg.Type)
	}
	return creator(cfg.Params)
}

// CreateChain создает цепочку из списка конфигураций
func (f *Factory) CreateChain(configs []Config) (Chain, error) {
	chain := make(Chain, 0, len(configs))
	for i, cfg := range configs {
		p, err := f.Create(cfg)
		if err != nil {
			return nil, fmt.Errorf("processor %d: %w", i, err)
		}
		chain = append(chain, p)
	}
	return chain, nil
}
