package audit

import (
	"encoding/json"
	"fmt"
	"maps"
	"sync/atomic"
	"time"
)

// Level - уровень детализации логирования
type Level int

const (
	// LevelMinimal - только основная информация
	LevelMinimal Level = iota

	// LevelStandard - без данных операции
	LevelStandard

	// LevelFull - полная информация включая данные
	LevelFull
)

func (l Level) String() string {
	switch l {
	case LevelMinimal:
		return "minimal"
	case LevelStandard:
		return "standard"
	case LevelFull:
		return "full"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}

// ParseLevel разбирает уровень из конфигурации
func ParseLevel(s string) (Level, error) {
	switch s {
	case "minimal":
		return LevelMinimal, nil
	case "", "standard":
		return LevelStandard, nil
	case "full":
		return LevelFull, nil
	default:
		return LevelStandard, fmt.Errorf("unknown audit level %q", s)
	}
}

// Operation - этап миграции
type Operation string

const (
	OpConnect   Operation = "connect"
	OpExtract   Operation = "extract"       // чтение метастора по JDBC
	OpRead      Operation = "read_snapshot" // чтение снапшота
	OpProcess   Operation = "process"       // цепочка процессоров (редактирование параметров)
	OpTransform Operation = "transform"
	OpLoad      Operation = "load"
	OpExport    Operation = "export" // запись снапшота
	OpMigrate   Operation = "migrate"
)

// Status - статус выполнения операции
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusPartial Status = "partial" // часть единиц импорта ушла в DLQ
)

// Entry - запись в audit логе
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id,omitempty"`
	Operation Operation `json:"operation"`
	Status    Status    `json:"status"`

	// Mode - connection, snapshot или export
	Mode string `json:"mode,omitempty"`

	Source string `json:"source,omitempty"` // JDBC DSN без пароля или путь снапшота
	Target string `json:"target,omitempty"` // glue, kafka, s3://...

	// Resource - база, таблица или набор данных
	Resource string `json:"resource,omitempty"`

	RecordsAffected int64          `json:"records_affected,omitempty"`
	Duration        time.Duration  `json:"duration,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`

	// Data - данные операции (только для LevelFull)
	Data any `json:"data,omitempty"`
}

// NewEntry - создать новую audit запись
func NewEntry(operation Operation, status Status) *Entry {
	return &Entry{
		ID:        generateID(),
		Timestamp: time.Now(),
		Operation: operation,
		Status:    status,
	}
}

func (e *Entry) WithRunID(id string) *Entry {
	e.RunID = id
	return e
}

func (e *Entry) WithMode(mode string) *Entry {
	e.Mode = mode
	return e
}

func (e *Entry) WithSource(source string) *Entry {
	e.Source = source
	return e
}

func (e *Entry) WithTarget(target string) *Entry {
	e.Target = target
	return e
}

func (e *Entry) WithResource(resource string) *Entry {
	e.Resource = resource
	return e
}

func (e *Entry) WithRecordsAffected(count int64) *Entry {
	e.RecordsAffected = count
	return e
}

func (e *Entry) WithDuration(duration time.Duration) *Entry {
	e.Duration = duration
	return e
}

// WithError - установить ошибку и статус failure
func (e *Entry) WithError(err error) *Entry {
	if err != nil {
		e.ErrorMessage = err.Error()
		e.Status = StatusFailure
	}
	return e
}

func (e *Entry) WithMetadata(key string, value any) *Entry {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

func (e *Entry) WithData(data any) *Entry {
	e.Data = data
	return e
}

// ToJSON - преобразовать в JSON
func (e *Entry) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func (e *Entry) String() string {
	return fmt.Sprintf("[%s] %s %s (run=%s, resource=%s, records=%d, duration=%v)",
		e.Timestamp.Format(time.RFC3339),
		e.Operation,
		e.Status,
		e.RunID,
		e.Resource,
		e.RecordsAffected,
		e.Duration,
	)
}

// Clone - копия записи (Metadata копируется, Data разделяется)
func (e *Entry) Clone() *Entry {
	clone := *e
	clone.Metadata = maps.Clone(e.Metadata)
	return &clone
}

// FilterByLevel - копия записи без полей, скрытых уровнем
func (e *Entry) FilterByLevel(level Level) *Entry {
	filtered := e.Clone()

	switch level {
	case LevelMinimal:
		filtered.Metadata = nil
		filtered.Data = nil
	case LevelStandard:
		filtered.Data = nil
	}

	return filtered
}

var idCounter atomic.Uint64

func generateID() string {
	return fmt.Sprintf("audit-%d-%d", time.Now().UnixNano(), idCounter.Add(1))
}
