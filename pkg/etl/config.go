package etl

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ruslano69/hms-migrator/pkg/adapters"
	"github.com/ruslano69/hms-migrator/pkg/awsconf"
	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
	"github.com/ruslano69/hms-migrator/pkg/loader"
	"github.com/ruslano69/hms-migrator/pkg/metrics"
	"github.com/ruslano69/hms-migrator/pkg/processors"
	"github.com/ruslano69/hms-migrator/pkg/resilience"
	"github.com/ruslano69/hms-migrator/pkg/resultlog"
	"github.com/ruslano69/hms-migrator/pkg/retry"
	"github.com/ruslano69/hms-migrator/pkg/snapshot"
	"github.com/ruslano69/hms-migrator/pkg/transform"
)

// Режимы миграции
const (
	// ModeConnection - чтение живого метастора и загрузка в каталог
	ModeConnection = "connection"
	// ModeSnapshot - чтение JSON Lines снапшота и загрузка в каталог
	ModeSnapshot = "snapshot"
	// ModeExport - чтение живого метастора и запись снапшота
	ModeExport = "export"
)

// modeAliases - имена режимов исходного инструмента
var modeAliases = map[string]string{
	"from-jdbc": ModeConnection,
	"from-s3":   ModeSnapshot,
	"to-s3":     ModeExport,
}

// NormalizeMode приводит псевдоним режима к каноническому имени
func NormalizeMode(mode string) (string, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if canonical, ok := modeAliases[mode]; ok {
		return canonical, nil
	}
	switch mode {
	case ModeConnection, ModeSnapshot, ModeExport:
		return mode, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q (supported: connection, snapshot, export)", catalog.ErrInvalidConfiguration, mode)
}

// MigrationConfig содержит полную конфигурацию миграции
type MigrationConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Mode        string `yaml:"mode"`

	// Source - подключение к базе метастора (connection, export)
	Source SourceConfig `yaml:"source"`

	// Input - пути снапшота (snapshot)
	Input snapshot.Paths `yaml:"input"`

	// Export - куда писать снапшот (export)
	Export ExportConfig `yaml:"export"`

	// Filter - "db1.table1,db2.table2%"
	Filter         string `yaml:"filter"`
	DatabasePrefix string `yaml:"database_prefix"`
	TablePrefix    string `yaml:"table_prefix"`

	AWS    awsconf.Config `yaml:"aws"`
	Target loader.Config  `yaml:"target"`

	Performance PerformanceConfig   `yaml:"performance"`
	Processors  []processors.Config `yaml:"processors"`

	Retry          retry.Config      `yaml:"retry"`
	CircuitBreaker resilience.Config `yaml:"circuit_breaker"`

	Audit     AuditConfig      `yaml:"audit"`
	ResultLog resultlog.Config `yaml:"result_log"`
	Metrics   metrics.Config   `yaml:"metrics"`

	// Report - путь XLSX-отчета (пусто = без отчета)
	Report string `yaml:"report"`

	// DryRun - трансформация без загрузки
	DryRun bool `yaml:"dry_run"`
}

// SourceConfig определяет подключение к базе метастора
type SourceConfig struct {
	Type     string        `yaml:"type"` // mysql, postgres, mssql, sqlite
	DSN      string        `yaml:"dsn"`
	Schema   string        `yaml:"schema"`
	Timeout  time.Duration `yaml:"timeout"`
	MaxConns int           `yaml:"max_conns"`
}

// AdapterConfig возвращает конфигурацию адаптера
func (s SourceConfig) AdapterConfig() adapters.Config {
	return adapters.Config{
		Type:     s.Type,
		DSN:      s.DSN,
		Schema:   s.Schema,
		Timeout:  s.Timeout,
		MaxConns: s.MaxConns,
	}
}

// ExportConfig определяет запись снапшота
type ExportConfig struct {
	OutputPath     string `yaml:"output_path"` // каталог или s3://bucket/prefix
	Compress       bool   `yaml:"compress"`    // zstd
	RecordsPerFile int    `yaml:"records_per_file"`
}

// PerformanceConfig определяет параметры производительности
type PerformanceConfig struct {
	BatchSize int `yaml:"batch_size"` // партиций в батче
	Workers   int `yaml:"workers"`    // 0 = GOMAXPROCS
}

// AuditConfig определяет параметры аудита
type AuditConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Level      string `yaml:"level"`   // minimal, standard, full
	File       string `yaml:"file"`    // JSON Lines файл
	Console    bool   `yaml:"console"` // записи в лог приложения
	MaxSizeMB  int64  `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`

	// Database - SQLite файл с таблицей migration_audit
	Database string `yaml:"database"`
}

// LoadConfig загружает конфигурацию из YAML файла
func LoadConfig(path string) (*MigrationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return config, nil
}

// DefaultConfig возвращает конфигурацию со значениями по умолчанию
// для секций, которые YAML дополняет, а не заменяет
func DefaultConfig() *MigrationConfig {
	return &MigrationConfig{
		Retry:          retry.DefaultConfig(),
		CircuitBreaker: disabled(resilience.DefaultConfig("catalog")),
	}
}

// SetDefaults устанавливает значения по умолчанию для необязательных полей
func (c *MigrationConfig) SetDefaults() {
	if c.Name == "" {
		c.Name = "hms-migration"
	}
	if mode, err := NormalizeMode(c.Mode); err == nil {
		c.Mode = mode
	}

	c.AWS.SetDefaults()
	c.Target.SetDefaults()

	if c.Performance.BatchSize == 0 {
		c.Performance.BatchSize = transform.DefaultMaxBatchSize
	}

	if c.Source.Type != "" {
		c.Source.Type = adapters.CanonicalType(c.Source.Type)
	}
	if c.Source.Timeout == 0 {
		c.Source.Timeout = 30 * time.Second
	}

	if c.Audit.Level == "" {
		c.Audit.Level = "standard"
	}
	if c.Audit.MaxBackups == 0 {
		c.Audit.MaxBackups = 5
	}

	if c.ResultLog.Enabled && c.ResultLog.Name == "" {
		c.ResultLog.Name = c.Name
	}
	if c.ResultLog.Enabled && c.ResultLog.TTL == 0 {
		c.ResultLog.TTL = 3600
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = strings.ReplaceAll(c.Name, "-", "_")
	}
}

// Validate проверяет корректность конфигурации.
// Наборы параметров режимов взаимоисключающие.
func (c *MigrationConfig) Validate() error {
	mode, err := NormalizeMode(c.Mode)
	if err != nil {
		return err
	}

	switch mode {
	case ModeConnection, ModeExport:
		if err := c.Source.Validate(); err != nil {
			return invalid("source: %v", err)
		}
		if c.Input != (snapshot.Paths{}) {
			return invalid("input paths are not allowed in %s mode", mode)
		}
	case ModeSnapshot:
		if c.Input.Databases == "" || c.Input.Tables == "" || c.Input.Partitions == "" {
			return invalid("snapshot mode requires input.databases, input.tables and input.partitions")
		}
		if c.DatabasePrefix != "" || c.TablePrefix != "" {
			return invalid("database_prefix and table_prefix are not allowed in snapshot mode")
		}
		if c.Source.DSN != "" {
			return invalid("source is not allowed in snapshot mode")
		}
	}

	if mode == ModeExport {
		if c.Export.OutputPath == "" {
			return invalid("export mode requires export.output_path")
		}
	} else if c.Export.OutputPath != "" {
		return invalid("export.output_path is only allowed in export mode")
	}

	if c.Performance.BatchSize <= 0 {
		return invalid("performance.batch_size must be positive, got %d", c.Performance.BatchSize)
	}
	if c.Performance.Workers < 0 {
		return invalid("performance.workers must not be negative, got %d", c.Performance.Workers)
	}
	if c.Target.Target == loader.TargetGlue && c.Performance.BatchSize > loader.MaxGlueBatch {
		return invalid("performance.batch_size %d exceeds Glue BatchCreatePartition limit %d", c.Performance.BatchSize, loader.MaxGlueBatch)
	}

	if _, err := transform.ParseFilter(c.Filter); err != nil {
		return err
	}

	if err := c.AWS.Validate(); err != nil {
		return invalid("aws: %v", err)
	}
	if mode != ModeExport && !c.DryRun {
		if err := c.Target.Validate(); err != nil {
			return fmt.Errorf("target: %w", err)
		}
	}
	if err := c.Retry.Validate(); err != nil {
		return invalid("retry: %v", err)
	}
	if err := c.CircuitBreaker.Validate(); err != nil {
		return invalid("circuit_breaker: %v", err)
	}
	if err := c.Audit.Validate(); err != nil {
		return invalid("audit: %v", err)
	}
	if err := c.ResultLog.Validate(); err != nil {
		return invalid("result_log: %v", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return invalid("metrics: %v", err)
	}

	return nil
}

// Validate проверяет корректность SourceConfig
func (s *SourceConfig) Validate() error {
	if s.Type == "" {
		return fmt.Errorf("type is required")
	}
	if s.DSN == "" {
		return fmt.Errorf("dsn is required")
	}

	switch adapters.CanonicalType(s.Type) {
	case "postgres", "mssql", "mysql", "sqlite":
		return nil
	}
	return fmt.Errorf("unsupported type '%s', must be one of: postgres, mssql, mysql, sqlite", s.Type)
}

// Validate проверяет корректность AuditConfig
func (a *AuditConfig) Validate() error {
	if !a.Enabled {
		return nil
	}
	switch a.Level {
	case "", "minimal", "standard", "full":
	default:
		return fmt.Errorf("level must be one of: minimal, standard, full")
	}
	return nil
}

func disabled(c resilience.Config) resilience.Config {
	c.Enabled = false
	return c
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", catalog.ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
