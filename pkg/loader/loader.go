// Package loader передает ImportSet в целевой каталог: Glue Data Catalog,
// брокер сообщений или файлы. Порядок загрузки фиксирован: базы, таблицы,
// батчи партиций.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
)

// Сущности для статистики и DLQ
const (
	EntityDatabase  = "database"
	EntityTable     = "table"
	EntityPartition = "partition"
)

// Loader - получатель единиц импорта. Отказ отдельной единицы учитывается
// в Result.Failed, ошибка возвращается только при сбое коллекции.
type Loader interface {
	LoadDatabases(ctx context.Context, units []catalog.ImportDatabase) (Result, error)
	LoadTables(ctx context.Context, units []catalog.ImportTable) (Result, error)
	LoadPartitions(ctx context.Context, units []catalog.ImportPartitions) (Result, error)

	// Target возвращает описание получателя для логов и аудита
	Target() string

	Close() error
}

// Result - итог загрузки одной коллекции. Для партиций счетчики
// ведутся по партициям, Units - по батчам.
type Result struct {
	Units   int
	Created int
	Skipped int
	Failed  int
}

func (r *Result) add(o Result) {
	r.Units += o.Units
	r.Created += o.Created
	r.Skipped += o.Skipped
	r.Failed += o.Failed
}

// Summary - итог загрузки ImportSet
type Summary struct {
	Databases  Result
	Tables     Result
	Partitions Result
	Duration   time.Duration
}

// Failed возвращает общее число незагруженных элементов
func (s Summary) Failed() int {
	return s.Databases.Failed + s.Tables.Failed + s.Partitions.Failed
}

// Run загружает ImportSet по порядку: базы, таблицы, партиции.
// Отклоненные единицы попадают в Summary.Failed и не мешают остальным;
// ошибка загрузчика означает сбой коллекции и прерывает загрузку следующих.
func Run(ctx context.Context, l Loader, set *catalog.ImportSet, logger zerolog.Logger) (Summary, error) {
	start := time.Now()
	var summary Summary
	defer func() { summary.Duration = time.Since(start) }()

	res, err := l.LoadDatabases(ctx, set.Databases)
	summary.Databases = res
	logResult(logger, EntityDatabase, res)
	if err != nil {
		return summary, fmt.Errorf("load databases: %w", err)
	}

	res, err = l.LoadTables(ctx, set.Tables)
	summary.Tables = res
	logResult(logger, EntityTable, res)
	if err != nil {
		return summary, fmt.Errorf("load tables: %w", err)
	}

	res, err = l.LoadPartitions(ctx, set.Partitions)
	summary.Partitions = res
	logResult(logger, EntityPartition, res)
	if err != nil {
		return summary, fmt.Errorf("load partitions: %w", err)
	}

	return summary, nil
}

func logResult(logger zerolog.Logger, entity string, r Result) {
	ev := logger.Info()
	if r.Failed > 0 {
		ev = logger.Warn()
	}
	ev.Str("entity", entity).
		Int("units", r.Units).
		Int("created", r.Created).
		Int("skipped", r.Skipped).
		Int("failed", r.Failed).
		Msg("load finished")
}

// Имена единиц импорта для DLQ и логов
func databaseUnit(u catalog.ImportDatabase) string {
	return "database " + firstName(u.Items)
}

func tableUnit(u catalog.ImportTable) string {
	return "table " + u.Database + "." + firstName(u.Items)
}

func partitionUnit(u catalog.ImportPartitions, index int) string {
	return fmt.Sprintf("partitions %s.%s#%d (%d)", u.Database, u.Table, index, len(u.Items))
}

func firstName(items []catalog.Item) string {
	if len(items) == 0 {
		return ""
	}
	return items[0].Name()
}
