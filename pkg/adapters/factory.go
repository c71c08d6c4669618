package adapters

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Constructor создает неподключенный адаптер
type Constructor func() Adapter

// typeAliases - имена СУБД из JDBC URL и конфигов Hive
var typeAliases = map[string]string{
	"postgresql": "postgres",
	"pg":         "postgres",
	"sqlserver":  "mssql",
	"mariadb":    "mysql",
	"sqlite3":    "sqlite",
}

// CanonicalType приводит имя СУБД к имени зарегистрированного бэкенда.
// Принимает и подпротокол JDBC: "jdbc:postgresql" -> "postgres".
func CanonicalType(dbType string) string {
	t := strings.ToLower(strings.TrimSpace(dbType))
	t = strings.TrimPrefix(t, "jdbc:")
	if canonical, ok := typeAliases[t]; ok {
		return canonical
	}
	return t
}

// Registry хранит конструкторы бэкендов метастора по типу СУБД
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry создает пустой реестр
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register регистрирует бэкенд; повторная регистрация заменяет конструктор
func (r *Registry) Register(dbType string, constructor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[CanonicalType(dbType)] = constructor
}

// IsRegistered проверяет тип с учетом псевдонимов
func (r *Registry) IsRegistered(dbType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.constructors[CanonicalType(dbType)]
	return ok
}

// Types возвращает зарегистрированные типы по алфавиту
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.constructors))
	for t := range r.constructors {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Open создает и подключает адаптер.
// Config.Timeout ограничивает только подключение, не последующие запросы.
func (r *Registry) Open(ctx context.Context, cfg Config) (Adapter, error) {
	cfg.Type = CanonicalType(cfg.Type)

	r.mu.RLock()
	constructor, ok := r.constructors[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown database type: %s (available types: %v)", cfg.Type, r.Types())
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	adapter := constructor()
	if err := adapter.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to %s metastore: %w", cfg.Type, err)
	}
	return adapter, nil
}

var defaultRegistry = NewRegistry()

// Register регистрирует бэкенд в реестре по умолчанию; вызывается из init() адаптеров
func Register(dbType string, constructor Constructor) {
	defaultRegistry.Register(dbType, constructor)
}

// IsRegistered проверяет реестр по умолчанию
func IsRegistered(dbType string) bool {
	return defaultRegistry.IsRegistered(dbType)
}

// GetRegisteredTypes возвращает типы реестра по умолчанию
func GetRegisteredTypes() []string {
	return defaultRegistry.Types()
}

// New подключается к метастору через реестр по умолчанию
func New(ctx context.Context, cfg Config) (Adapter, error) {
	return defaultRegistry.Open(ctx, cfg)
}
