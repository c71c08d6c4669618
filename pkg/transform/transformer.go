package transform

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
)

// Options - параметры трансформации
type Options struct {
	// Filter - строка фильтра "db1.table1,db2.table2%"
	Filter string

	// Prefix добавляется к шаблонам фильтра
	Prefix PrefixConfig

	// MaxBatchSize - максимум партиций в батче (обязателен, > 0)
	MaxBatchSize int

	// Workers - параллелизм дедупликации и батчинга; 0 = GOMAXPROCS
	Workers int

	// SkipFilter отключает фильтр и префиксы (импорт снапшота)
	SkipFilter bool
}

// Stats - счетчики по стадиям
type Stats struct {
	DatabasesIn       int
	DatabasesFiltered int
	DatabasesOut      int

	TablesIn       int
	TablesFiltered int
	TablesOut      int

	PartitionsIn       int
	PartitionsFiltered int
	PartitionsOut      int
	Batches            int

	Duration time.Duration
}

// Transformer выполняет filter -> dedupe -> batch -> project
type Transformer struct {
	opts    Options
	expr    FilterExpression
	matcher *Matcher
}

// NewTransformer проверяет параметры до обработки каких-либо данных
func NewTransformer(opts Options) (*Transformer, error) {
	if err := validateBatchSize(opts.MaxBatchSize); err != nil {
		return nil, err
	}
	if opts.Workers < 0 {
		return nil, fmt.Errorf("%w: workers must not be negative, got %d", catalog.ErrInvalidConfiguration, opts.Workers)
	}
	if opts.Workers == 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	t := &Transformer{opts: opts}
	if !opts.SkipFilter {
		expr, err := ParseFilter(opts.Filter)
		if err != nil {
			return nil, err
		}
		t.expr = expr
		t.matcher = CompileFilter(expr, opts.Prefix)
	}
	return t, nil
}

// Expression возвращает разобранное выражение фильтра
func (t *Transformer) Expression() FilterExpression {
	return t.expr
}

// Transform обрабатывает три коллекции снапшота независимо и проецирует
// результат. При ошибке частичный ImportSet не возвращается.
func (t *Transformer) Transform(ctx context.Context, snap *catalog.Snapshot) (*catalog.ImportSet, Stats, error) {
	start := time.Now()
	stats := Stats{
		DatabasesIn:  len(snap.Databases),
		TablesIn:     len(snap.Tables),
		PartitionsIn: len(snap.Partitions),
	}

	var (
		databases []catalog.DatabaseRecord
		tables    []catalog.TableRecord
		batches   []catalog.PartitionBatch
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		filtered := FilterWith(snap.Databases, t.matcher, DatabaseNames)
		stats.DatabasesFiltered = len(filtered)
		out, err := DedupeParallel(gctx, filtered, DatabaseKey, t.opts.Workers)
		if err != nil {
			return fmt.Errorf("databases: %w", err)
		}
		databases = out
		return nil
	})

	g.Go(func() error {
		filtered := FilterWith(snap.Tables, t.matcher, TableNames)
		stats.TablesFiltered = len(filtered)
		out, err := DedupeParallel(gctx, filtered, TableKey, t.opts.Workers)
		if err != nil {
			return fmt.Errorf("tables: %w", err)
		}
		tables = out
		return nil
	})

	g.Go(func() error {
		filtered := FilterWith(snap.Partitions, t.matcher, PartitionNames)
		stats.PartitionsFiltered = len(filtered)
		deduped, err := DedupeParallel(gctx, filtered, PartitionKey, t.opts.Workers)
		if err != nil {
			return fmt.Errorf("partitions: %w", err)
		}
		stats.PartitionsOut = len(deduped)
		out, err := BatchPartitionsParallel(gctx, deduped, t.opts.MaxBatchSize, t.opts.Workers)
		if err != nil {
			return fmt.Errorf("partitions: %w", err)
		}
		batches = out
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	stats.DatabasesOut = len(databases)
	stats.TablesOut = len(tables)
	stats.Batches = len(batches)

	set := Project(databases, tables, batches)
	stats.Duration = time.Since(start)
	return &set, stats, nil
}
