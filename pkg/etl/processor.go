package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/hms-migrator/pkg/adapters"
	"github.com/ruslano69/hms-migrator/pkg/audit"
	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
	"github.com/ruslano69/hms-migrator/pkg/loader"
	"github.com/ruslano69/hms-migrator/pkg/metastore"
	"github.com/ruslano69/hms-migrator/pkg/metrics"
	"github.com/ruslano69/hms-migrator/pkg/processors"
	"github.com/ruslano69/hms-migrator/pkg/snapshot"
	"github.com/ruslano69/hms-migrator/pkg/transform"
)

// ErrPartialLoad - целевой каталог отклонил часть единиц импорта
var ErrPartialLoad = errors.New("some import units were rejected by the target")

// State - состояние оркестратора
type State string

const (
	StateInit                  State = "Init"
	StateExtractFromConnection State = "ExtractFromConnection"
	StateExtractFromSnapshot   State = "ExtractFromSnapshot"
	StateProcess               State = "Process"
	StateTransformAndLoad      State = "TransformAndLoad"
	StateExportToSnapshot      State = "ExportToSnapshot"
	StateDone                  State = "Done"
)

// Extractor - источник записей живого метастора
type Extractor interface {
	Extract(ctx context.Context) (*catalog.Snapshot, error)
}

// Runtime - контекст выполнения миграции. Передается явно, глобального
// состояния у оркестратора нет.
type Runtime struct {
	RunID  string
	Logger zerolog.Logger

	// User - пользователь ОС в записях аудита, пусто = не писать
	User string

	// Audit - nil = без аудита
	Audit audit.Logger

	// Metrics - nil = без метрик
	Metrics *metrics.Recorder

	// Extractor - nil = подключиться к метастору по MigrationConfig.Source
	Extractor Extractor

	// Store - хранилище снапшота, nil = выбрать по пути (локально или s3://)
	Store snapshot.Store

	// Loader - коллаборатор загрузки; не нужен в export и dry-run
	Loader loader.Loader
}

// ProcessorStats представляет статистику выполнения миграции
type ProcessorStats struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// State - последнее достигнутое состояние
	State State
	// FailedState - состояние, в котором произошла ошибка
	FailedState State

	Extracted Counts
	Transform transform.Stats
	Load      loader.Summary
	Exported  snapshot.Paths
}

// Counts - количество записей по сущностям
type Counts struct {
	Databases  int
	Tables     int
	Partitions int
}

// Processor - оркестратор миграции:
//
//	ExtractFromConnection | ExtractFromSnapshot -> Process -> TransformAndLoad
//	ExtractFromConnection -> Process -> ExportToSnapshot
//
// Ошибка в любом состоянии завершает прогон.
type Processor struct {
	config *MigrationConfig
	rt     Runtime
	log    zerolog.Logger
	stats  ProcessorStats
	set    *catalog.ImportSet
}

// NewProcessor создает оркестратор
func NewProcessor(config *MigrationConfig, rt Runtime) *Processor {
	if rt.Audit == nil {
		rt.Audit = audit.NewNullLogger()
	}
	return &Processor{
		config: config,
		rt:     rt,
		log:    rt.Logger.With().Str("component", "orchestrator").Logger(),
		stats:  ProcessorStats{State: StateInit},
	}
}

// Execute выполняет миграцию от извлечения до загрузки или экспорта
func (p *Processor) Execute(ctx context.Context) (err error) {
	p.stats.StartTime = time.Now()
	defer func() {
		p.stats.EndTime = time.Now()
		p.stats.Duration = p.stats.EndTime.Sub(p.stats.StartTime)
		if err != nil && !errors.Is(err, ErrPartialLoad) {
			p.stats.FailedState = p.stats.State
		} else {
			p.enter(StateDone)
		}
		p.audit(ctx, audit.OpMigrate, int64(p.stats.Load.Partitions.Created), p.stats.Duration, err)
	}()

	if err := p.config.Validate(); err != nil {
		return err
	}
	mode, _ := NormalizeMode(p.config.Mode)

	// 1. Извлечение
	var snap *catalog.Snapshot
	if mode == ModeSnapshot {
		snap, err = p.extractFromSnapshot(ctx)
	} else {
		snap, err = p.extractFromConnection(ctx)
	}
	if err != nil {
		return err
	}
	p.countExtracted(snap)

	// 2. Цепочка процессоров
	if snap, err = p.process(ctx, snap); err != nil {
		return err
	}

	// 3. Экспорт или трансформация с загрузкой
	if mode == ModeExport {
		return p.exportToSnapshot(ctx, snap)
	}
	return p.transformAndLoad(ctx, snap, mode == ModeSnapshot)
}

// extractFromConnection читает живой метастор
func (p *Processor) extractFromConnection(ctx context.Context) (*catalog.Snapshot, error) {
	p.enter(StateExtractFromConnection)
	start := time.Now()

	extractor := p.rt.Extractor
	if extractor == nil {
		adapter, err := adapters.New(ctx, p.config.Source.AdapterConfig())
		if err != nil {
			p.audit(ctx, audit.OpConnect, 0, time.Since(start), err)
			return nil, fmt.Errorf("connect to metastore: %w", err)
		}
		defer adapter.Close(ctx)
		p.audit(ctx, audit.OpConnect, 0, time.Since(start), nil)

		extractor = metastore.NewExtractor(adapter, metastore.Options{
			Prefix: p.prefix(),
			Logger: p.rt.Logger,
		})
	}

	snap, err := extractor.Extract(ctx)
	p.finishStage(ctx, metrics.StageExtract, audit.OpExtract, snapSize(snap), start, err)
	if err != nil {
		return nil, fmt.Errorf("extract metastore: %w", err)
	}
	return snap, nil
}

// extractFromSnapshot читает три набора JSON Lines. Фильтр и префиксы не
// применяются: снапшот считается уже отфильтрованным.
func (p *Processor) extractFromSnapshot(ctx context.Context) (*catalog.Snapshot, error) {
	p.enter(StateExtractFromSnapshot)
	start := time.Now()

	if p.config.Filter != "" {
		p.log.Warn().Str("filter", p.config.Filter).Msg("filter is ignored in snapshot mode")
	}

	store := p.rt.Store
	if store == nil {
		var err error
		if store, err = snapshot.OpenStore(ctx, p.config.Input.Databases, p.config.AWS); err != nil {
			return nil, fmt.Errorf("open snapshot store: %w", err)
		}
	}

	snap, err := snapshot.NewReader(store, p.rt.Logger).Read(ctx, p.config.Input)
	p.finishStage(ctx, metrics.StageExtract, audit.OpRead, snapSize(snap), start, err)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return snap, nil
}

// process применяет цепочку процессоров из конфигурации
func (p *Processor) process(ctx context.Context, snap *catalog.Snapshot) (*catalog.Snapshot, error) {
	if len(p.config.Processors) == 0 {
		return snap, nil
	}
	p.enter(StateProcess)
	start := time.Now()

	chain, err := processors.NewFactory().CreateChain(p.config.Processors)
	if err != nil {
		return nil, fmt.Errorf("%w: processors: %v", catalog.ErrInvalidConfiguration, err)
	}
	p.log.Debug().Stringer("chain", chain).Msg("processing snapshot")
	out, err := chain.Process(ctx, snap)
	p.audit(ctx, audit.OpProcess, snapSize(out), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("process snapshot: %w", err)
	}
	return out, nil
}

// transformAndLoad: filter -> dedupe -> batch -> project, затем загрузка.
// Загрузка начинается только после полной материализации ImportSet.
func (p *Processor) transformAndLoad(ctx context.Context, snap *catalog.Snapshot, skipFilter bool) error {
	p.enter(StateTransformAndLoad)
	start := time.Now()

	tr, err := transform.NewTransformer(transform.Options{
		Filter:       p.config.Filter,
		Prefix:       p.prefix(),
		MaxBatchSize: p.config.Performance.BatchSize,
		Workers:      p.config.Performance.Workers,
		SkipFilter:   skipFilter,
	})
	if err != nil {
		return err
	}

	set, stats, err := tr.Transform(ctx, snap)
	p.stats.Transform = stats
	p.finishStage(ctx, metrics.StageTransform, audit.OpTransform, int64(stats.DatabasesOut+stats.TablesOut+stats.PartitionsOut), start, err)
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	p.set = set

	m := p.rt.Metrics
	m.AddRecords(loader.EntityDatabase, metrics.StageFilter, stats.DatabasesFiltered)
	m.AddRecords(loader.EntityTable, metrics.StageFilter, stats.TablesFiltered)
	m.AddRecords(loader.EntityPartition, metrics.StageFilter, stats.PartitionsFiltered)
	m.AddRecords(loader.EntityDatabase, metrics.StageDedupe, stats.DatabasesOut)
	m.AddRecords(loader.EntityTable, metrics.StageDedupe, stats.TablesOut)
	m.AddRecords(loader.EntityPartition, metrics.StageDedupe, stats.PartitionsOut)
	m.AddBatches(stats.Batches)

	p.log.Info().
		Int("databases", stats.DatabasesOut).
		Int("tables", stats.TablesOut).
		Int("partitions", stats.PartitionsOut).
		Int("batches", stats.Batches).
		Dur("duration", stats.Duration).
		Msg("import set ready")

	if p.config.DryRun || p.rt.Loader == nil {
		p.log.Info().Msg("dry run, load skipped")
		return nil
	}

	start = time.Now()
	summary, err := loader.Run(ctx, p.rt.Loader, set, p.rt.Logger)
	p.stats.Load = summary
	p.recordLoad(summary)
	loaded := int64(summary.Databases.Created + summary.Tables.Created + summary.Partitions.Created)
	if err == nil && summary.Failed() > 0 {
		err = fmt.Errorf("%w: %d failed", ErrPartialLoad, summary.Failed())
	}
	p.finishStage(ctx, metrics.StageLoad, audit.OpLoad, loaded, start, err)
	if err != nil {
		if errors.Is(err, ErrPartialLoad) {
			return err
		}
		return fmt.Errorf("load %s: %w", p.rt.Loader.Target(), err)
	}
	return nil
}

// exportToSnapshot применяет фильтр и пишет снапшот без дедупликации
func (p *Processor) exportToSnapshot(ctx context.Context, snap *catalog.Snapshot) error {
	p.enter(StateExportToSnapshot)
	start := time.Now()

	expr, err := transform.ParseFilter(p.config.Filter)
	if err != nil {
		return err
	}
	prefix := p.prefix()
	filtered := &catalog.Snapshot{
		Databases:  transform.FilterDatabases(snap.Databases, expr, prefix),
		Tables:     transform.FilterTables(snap.Tables, expr, prefix),
		Partitions: transform.FilterPartitions(snap.Partitions, expr, prefix),
	}
	p.stats.Transform = transform.Stats{
		DatabasesIn: len(snap.Databases), DatabasesFiltered: len(filtered.Databases), DatabasesOut: len(filtered.Databases),
		TablesIn: len(snap.Tables), TablesFiltered: len(filtered.Tables), TablesOut: len(filtered.Tables),
		PartitionsIn: len(snap.Partitions), PartitionsFiltered: len(filtered.Partitions), PartitionsOut: len(filtered.Partitions),
	}

	store := p.rt.Store
	if store == nil {
		if store, err = snapshot.OpenStore(ctx, p.config.Export.OutputPath, p.config.AWS); err != nil {
			return fmt.Errorf("open snapshot store: %w", err)
		}
	}
	writer := snapshot.NewWriter(store, snapshot.WriterOptions{
		Compress:       p.config.Export.Compress,
		RecordsPerFile: p.config.Export.RecordsPerFile,
		Logger:         p.rt.Logger,
	})

	paths, err := writer.Write(ctx, p.config.Export.OutputPath, filtered)
	p.stats.Exported = paths
	p.finishStage(ctx, metrics.StageExport, audit.OpExport, snapSize(filtered), start, err)
	if err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}

	p.log.Info().
		Str("databases", paths.Databases).
		Str("tables", paths.Tables).
		Str("partitions", paths.Partitions).
		Msg("snapshot exported")
	return nil
}

// Stats возвращает статистику выполнения
func (p *Processor) Stats() ProcessorStats {
	return p.stats
}

// ImportSet возвращает спроецированный набор (nil до TransformAndLoad)
func (p *Processor) ImportSet() *catalog.ImportSet {
	return p.set
}

func (p *Processor) enter(s State) {
	if p.stats.State == s {
		return
	}
	p.log.Debug().Str("from", string(p.stats.State)).Str("to", string(s)).Msg("state transition")
	p.stats.State = s
}

func (p *Processor) prefix() transform.PrefixConfig {
	return transform.PrefixConfig{
		DatabasePrefix: p.config.DatabasePrefix,
		TablePrefix:    p.config.TablePrefix,
	}
}

func (p *Processor) countExtracted(snap *catalog.Snapshot) {
	p.stats.Extracted = Counts{
		Databases:  len(snap.Databases),
		Tables:     len(snap.Tables),
		Partitions: len(snap.Partitions),
	}

	p.rt.Metrics.AddRecords(loader.EntityDatabase, metrics.StageExtract, len(snap.Databases))
	p.rt.Metrics.AddRecords(loader.EntityTable, metrics.StageExtract, len(snap.Tables))
	p.rt.Metrics.AddRecords(loader.EntityPartition, metrics.StageExtract, len(snap.Partitions))

	p.log.Info().
		Str("state", string(p.stats.State)).
		Int("databases", len(snap.Databases)).
		Int("tables", len(snap.Tables)).
		Int("partitions", len(snap.Partitions)).
		Msg("records extracted")
}

func (p *Processor) recordLoad(s loader.Summary) {
	for entity, r := range map[string]loader.Result{
		loader.EntityDatabase:  s.Databases,
		loader.EntityTable:     s.Tables,
		loader.EntityPartition: s.Partitions,
	} {
		p.rt.Metrics.AddLoadUnits(entity, metrics.ResultCreated, r.Created)
		p.rt.Metrics.AddLoadUnits(entity, metrics.ResultSkipped, r.Skipped)
		p.rt.Metrics.AddLoadUnits(entity, metrics.ResultFailed, r.Failed)
	}
}

func (p *Processor) finishStage(ctx context.Context, stage string, op audit.Operation, records int64, start time.Time, err error) {
	d := time.Since(start)
	p.rt.Metrics.ObserveStage(stage, d, err)
	p.audit(ctx, op, records, d, err)
}

func (p *Processor) audit(ctx context.Context, op audit.Operation, records int64, d time.Duration, err error) {
	status := audit.StatusSuccess
	switch {
	case errors.Is(err, ErrPartialLoad):
		status = audit.StatusPartial
	case err != nil:
		status = audit.StatusFailure
	}

	entry := audit.NewEntry(op, status).
		WithRunID(p.rt.RunID).
		WithMode(p.config.Mode).
		WithSource(p.Source()).
		WithTarget(p.Target()).
		WithRecordsAffected(records).
		WithDuration(d)
	if err != nil {
		entry.WithError(err)
	}
	if p.stats.State != "" {
		entry.WithMetadata("state", string(p.stats.State))
	}
	if p.rt.User != "" {
		entry.WithMetadata("user", p.rt.User)
	}
	if logErr := p.rt.Audit.Log(ctx, entry); logErr != nil {
		p.log.Warn().Err(logErr).Str("operation", string(op)).Msg("audit write failed")
	}
}

// Source - описание источника без учетных данных
func (p *Processor) Source() string {
	mode, _ := NormalizeMode(p.config.Mode)
	if mode == ModeSnapshot {
		return p.config.Input.Databases
	}
	if p.config.Source.Type == "" {
		return "metastore"
	}
	return "metastore:" + p.config.Source.Type
}

// Target - описание цели: каталог, путь экспорта или dry-run
func (p *Processor) Target() string {
	mode, _ := NormalizeMode(p.config.Mode)
	switch {
	case mode == ModeExport:
		return p.config.Export.OutputPath
	case p.config.DryRun || p.rt.Loader == nil:
		return "dry-run"
	default:
		return p.rt.Loader.Target()
	}
}

func snapSize(snap *catalog.Snapshot) int64 {
	if snap == nil {
		return 0
	}
	return int64(len(snap.Databases) + len(snap.Tables) + len(snap.Partitions))
}
