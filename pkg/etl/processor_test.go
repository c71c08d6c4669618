package etl

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/ruslano69/hms-migrator/pkg/audit"
	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
	"github.com/ruslano69/hms-migrator/pkg/loader"
	"github.com/ruslano69/hms-migrator/pkg/processors"
	"github.com/ruslano69/hms-migrator/pkg/retry"
	"github.com/ruslano69/hms-migrator/pkg/snapshot"
)

// staticExtractor возвращает заранее собранный снапшот
type staticExtractor struct {
	snap *catalog.Snapshot
	err  error
}

func (e staticExtractor) Extract(context.Context) (*catalog.Snapshot, error) {
	return e.snap, e.err
}

// memoryLoader запоминает полученные единицы импорта
type memoryLoader struct {
	set              catalog.ImportSet
	rejectPartitions int
}

func (m *memoryLoader) LoadDatabases(_ context.Context, u []catalog.ImportDatabase) (loader.Result, error) {
	m.set.Databases = append(m.set.Databases, u...)
	return loader.Result{Units: len(u), Created: len(u)}, nil
}

func (m *memoryLoader) LoadTables(_ context.Context, u []catalog.ImportTable) (loader.Result, error) {
	m.set.Tables = append(m.set.Tables, u...)
	return loader.Result{Units: len(u), Created: len(u)}, nil
}

func (m *memoryLoader) LoadPartitions(_ context.Context, u []catalog.ImportPartitions) (loader.Result, error) {
	m.set.Partitions = append(m.set.Partitions, u...)
	n := 0
	for _, b := range u {
		n += len(b.Items)
	}
	return loader.Result{Units: len(u), Created: n - m.rejectPartitions, Failed: m.rejectPartitions}, nil
}

func (m *memoryLoader) Target() string { return "memory" }
func (m *memoryLoader) Close() error { return nil }

// captureAppender собирает записи аудита
type captureAppender struct {
	mu      sync.Mutex
	entries []*audit.Entry
}

func (c *captureAppender) Append(_ context.Context, e *audit.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	return nil
}

func (c *captureAppender) Close() error { return nil }

func (c *captureAppender) operations() []audit.Operation {
	c.mu.Lock()
	defer c.mu.Unlock()
	ops := make([]audit.Operation, len(c.entries))
	for i, e := range c.entries {
		ops[i] = e.Operation
	}
	return ops
}

func metastoreSnapshot() *catalog.Snapshot {
	snap := &catalog.Snapshot{
		Databases: []catalog.DatabaseRecord{
			catalog.NewDatabaseRecord(catalog.Item{"name": "sales"}),
			catalog.NewDatabaseRecord(catalog.Item{"name": "salesbackup"}),
			catalog.NewDatabaseRecord(catalog.Item{"name": "sales"}),
		},
		Tables: []catalog.TableRecord{
			catalog.NewTableRecord("sales", catalog.Item{"name": "orders", "parameters": map[string]any{"jdbc.password": "hunter2"}}),
			catalog.NewTableRecord("salesbackup", catalog.Item{"name": "orders"}),
		},
	}
	for i := 0; i < 250; i++ {
		snap.Partitions = append(snap.Partitions,
			catalog.NewPartitionRecord("sales", "orders", catalog.Item{"values": []string{fmt.Sprintf("2024-%03d", i)}}))
	}
	snap.Partitions = append(snap.Partitions,
		catalog.NewPartitionRecord("salesbackup", "orders", catalog.Item{"values": []string{"2024-000"}}))
	return snap
}

func connectionConfig() *MigrationConfig {
	c := validConnection()
	c.Filter = "sales.%"
	return c
}

func TestProcessor_ConnectionToLoader(t *testing.T) {
	target := &memoryLoader{}
	capture := &captureAppender{}
	auditLog := audit.NewLogger(audit.LoggerConfig{RunID: "run-1"}, capture)
	defer auditLog.Close()

	p := NewProcessor(connectionConfig(), Runtime{
		RunID:     "run-1",
		Logger:    zerolog.Nop(),
		Audit:     auditLog,
		Extractor: staticExtractor{snap: metastoreSnapshot()},
		Loader:    target,
	})

	if err := p.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(target.set.Databases) != 1 || target.set.Databases[0].Items[0].Name() != "sales" {
		t.Errorf("databases = %+v, want only deduplicated sales", target.set.Databases)
	}
	if len(target.set.Tables) != 1 || target.set.Tables[0].Database != "sales" {
		t.Errorf("tables = %+v", target.set.Tables)
	}

	sizes := make([]int, len(target.set.Partitions))
	for i, b := range target.set.Partitions {
		sizes[i] = len(b.Items)
	}
	if fmt.Sprint(sizes) != "[100 100 50]" {
		t.Errorf("batch sizes = %v, want [100 100 50]", sizes)
	}

	stats := p.Stats()
	if stats.State != StateDone || stats.FailedState != "" {
		t.Errorf("state = %s, failed = %s", stats.State, stats.FailedState)
	}
	if stats.Extracted.Partitions != 251 || stats.Transform.PartitionsOut != 250 || stats.Transform.Batches != 3 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Load.Partitions.Created != 250 {
		t.Errorf("loaded partitions = %d", stats.Load.Partitions.Created)
	}

	want := []audit.Operation{audit.OpExtract, audit.OpTransform, audit.OpLoad, audit.OpMigrate}
	if got := capture.operations(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("audit operations = %v, want %v", got, want)
	}
	for _, e := range capture.entries {
		if e.RunID != "run-1" || e.Target != "memory" || e.Source != "metastore:postgres" {
			t.Errorf("audit entry %s = %+v", e.Operation, e)
		}
	}
}

func TestProcessor_Report(t *testing.T) {
	p := NewProcessor(connectionConfig(), Runtime{
		RunID:     "run-2",
		Logger:    zerolog.Nop(),
		Extractor: staticExtractor{snap: metastoreSnapshot()},
		Loader:    &memoryLoader{},
	})
	err := p.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	r := p.Report(nil, err)
	if r.Status != StatusSuccess || r.Target != "memory" || r.RunID != "run-2" {
		t.Errorf("report header = %+v", r)
	}
	if len(r.Stages) != 3 {
		t.Fatalf("stages = %d", len(r.Stages))
	}
	part := r.Stages[2]
	if part.In != 251 || part.Filtered != 250 || part.Out != 250 || part.Units != 3 || part.Created != 250 {
		t.Errorf("partition stage = %+v", part)
	}
	if r.Set == nil || len(r.Set.Partitions) != 3 {
		t.Errorf("report set = %+v", r.Set)
	}

	res := p.Result()
	if res.Partitions != 250 || res.Batches != 3 || res.Failed != 0 || res.RunID != "run-2" {
		t.Errorf("result = %+v", res)
	}
}

func TestProcessor_ExtractFailure(t *testing.T) {
	target := &memoryLoader{}
	p := NewProcessor(connectionConfig(), Runtime{
		Logger:    zerolog.Nop(),
		Extractor: staticExtractor{err: errors.New("connection refused")},
		Loader:    target,
	})

	err := p.Execute(context.Background())
	if err == nil {
		t.Fatal("Execute() should fail")
	}
	if p.Stats().FailedState != StateExtractFromConnection {
		t.Errorf("FailedState = %s", p.Stats().FailedState)
	}
	if Status(err) != StatusFailed {
		t.Errorf("Status() = %s", Status(err))
	}
	if len(target.set.Databases) != 0 {
		t.Error("nothing must be loaded after a failed extraction")
	}
}

func TestProcessor_InvalidBatchSizeBeforeData(t *testing.T) {
	c := connectionConfig()
	c.Performance.BatchSize = -5
	p := NewProcessor(c, Runtime{
		Logger:    zerolog.Nop(),
		Extractor: staticExtractor{snap: metastoreSnapshot()},
		Loader:    &memoryLoader{},
	})

	err := p.Execute(context.Background())
	if !errors.Is(err, catalog.ErrInvalidConfiguration) {
		t.Fatalf("Execute() error = %v, want ErrInvalidConfiguration", err)
	}
	if p.Stats().FailedState != StateInit {
		t.Errorf("FailedState = %s, want Init", p.Stats().FailedState)
	}
}

func TestProcessor_PartialLoad(t *testing.T) {
	p := NewProcessor(connectionConfig(), Runtime{
		Logger:    zerolog.Nop(),
		Extractor: staticExtractor{snap: metastoreSnapshot()},
		Loader:    &memoryLoader{rejectPartitions: 2},
	})

	err := p.Execute(context.Background())
	if !errors.Is(err, ErrPartialLoad) {
		t.Fatalf("Execute() error = %v, want ErrPartialLoad", err)
	}
	if Status(err) != StatusPartial {
		t.Errorf("Status() = %s", Status(err))
	}
	if p.Stats().State != StateDone {
		t.Errorf("State = %s, partial load still completes the run", p.Stats().State)
	}
	if p.Result().Failed != 2 {
		t.Errorf("Result().Failed = %d, want 2", p.Result().Failed)
	}
}

// rejectingGlue - GlueAPI в памяти, отклоняющий CreateDatabase для rejectDB
type rejectingGlue struct {
	mu         sync.Mutex
	rejectDB   string
	databases  []string
	tables     []string
	partitions int
}

func (g *rejectingGlue) CreateDatabase(_ context.Context, in *glue.CreateDatabaseInput, _ ...func(*glue.Options)) (*glue.CreateDatabaseOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	name := aws.ToString(in.DatabaseInput.Name)
	if name == g.rejectDB {
		return nil, &smithy.GenericAPIError{Code: "InvalidInputException", Message: "bad location", Fault: smithy.FaultClient}
	}
	g.databases = append(g.databases, name)
	return &glue.CreateDatabaseOutput{}, nil
}

func (g *rejectingGlue) CreateTable(_ context.Context, in *glue.CreateTableInput, _ ...func(*glue.Options)) (*glue.CreateTableOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tables = append(g.tables, aws.ToString(in.DatabaseName)+"."+aws.ToString(in.TableInput.Name))
	return &glue.CreateTableOutput{}, nil
}

func (g *rejectingGlue) BatchCreatePartition(_ context.Context, in *glue.BatchCreatePartitionInput, _ ...func(*glue.Options)) (*glue.BatchCreatePartitionOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.partitions += len(in.PartitionInputList)
	return &glue.BatchCreatePartitionOutput{}, nil
}

func TestProcessor_GlueRejectedDatabase(t *testing.T) {
	cfg := retry.EnableRetryWithDLQ(3, time.Millisecond, "")
	cfg.Classifier = retry.IsRetryableAWS
	retryer, err := retry.NewRetryer(cfg)
	if err != nil {
		t.Fatalf("NewRetryer() error = %v", err)
	}
	defer retryer.Close()

	client := &rejectingGlue{rejectDB: "sales"}
	target := loader.NewGlueLoader(client, loader.GlueConfig{}, "us-east-1", loader.Options{
		Guard:  &loader.Guard{Retryer: retryer},
		Logger: zerolog.Nop(),
	})

	c := validConnection()
	c.Filter = "sales%.%"
	p := NewProcessor(c, Runtime{
		Logger:    zerolog.Nop(),
		Extractor: staticExtractor{snap: metastoreSnapshot()},
		Loader:    target,
	})

	err = p.Execute(context.Background())
	if !errors.Is(err, ErrPartialLoad) {
		t.Fatalf("Execute() error = %v, want ErrPartialLoad", err)
	}
	if Status(err) != StatusPartial {
		t.Errorf("Status() = %s, want partial", Status(err))
	}
	if p.Stats().State != StateDone || p.Stats().FailedState != "" {
		t.Errorf("state = %s, failed = %s", p.Stats().State, p.Stats().FailedState)
	}

	// остальные базы, таблицы и партиции загружаются после отказа
	if fmt.Sprint(client.databases) != "[salesbackup]" {
		t.Errorf("databases = %v, want [salesbackup]", client.databases)
	}
	if !slices.Contains(client.tables, "salesbackup.orders") {
		t.Errorf("tables = %v, salesbackup.orders was not created", client.tables)
	}
	if client.partitions != 251 {
		t.Errorf("partitions = %d, want 251", client.partitions)
	}

	load := p.Stats().Load
	if load.Databases.Failed != 1 || load.Databases.Created != 1 {
		t.Errorf("databases result = %+v", load.Databases)
	}
	entries := retryer.GetDLQ().Get()
	if len(entries) != 1 || entries[0].Unit != "database sales" {
		t.Errorf("DLQ entries = %+v, want database sales", entries)
	}
}

func TestProcessor_DryRun(t *testing.T) {
	c := connectionConfig()
	c.DryRun = true
	target := &memoryLoader{}
	p := NewProcessor(c, Runtime{
		Logger:    zerolog.Nop(),
		Extractor: staticExtractor{snap: metastoreSnapshot()},
		Loader:    target,
	})

	if err := p.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(target.set.Databases) != 0 {
		t.Error("dry run must not load")
	}
	if p.ImportSet() == nil || len(p.ImportSet().Partitions) != 3 {
		t.Errorf("ImportSet() = %+v", p.ImportSet())
	}
	if p.Target() != "dry-run" {
		t.Errorf("Target() = %q", p.Target())
	}
}

func TestProcessor_Processors(t *testing.T) {
	c := connectionConfig()
	c.Processors = []processors.Config{{Type: processors.RedactorType}}
	target := &memoryLoader{}
	p := NewProcessor(c, Runtime{
		Logger:    zerolog.Nop(),
		Extractor: staticExtractor{snap: metastoreSnapshot()},
		Loader:    target,
	})

	if err := p.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	params, _ := target.set.Tables[0].Items[0]["parameters"].(map[string]any)
	if params["jdbc.password"] == "hunter2" {
		t.Errorf("password survived redaction: %v", params)
	}
}

func TestProcessor_UnknownProcessor(t *testing.T) {
	c := connectionConfig()
	c.Processors = []processors.Config{{Type: "encrypt"}}
	p := NewProcessor(c, Runtime{Logger: zerolog.Nop(), Extractor: staticExtractor{snap: metastoreSnapshot()}})

	err := p.Execute(context.Background())
	if !errors.Is(err, catalog.ErrInvalidConfiguration) {
		t.Fatalf("Execute() error = %v, want ErrInvalidConfiguration", err)
	}
	if p.Stats().FailedState != StateProcess {
		t.Errorf("FailedState = %s", p.Stats().FailedState)
	}
}

// Экспорт со фильтром, затем импорт снапшота: фильтр в snapshot режиме игнорируется
func TestProcessor_ExportThenSnapshot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "export")
	store := snapshot.NewLocalStore()

	export := validConnection()
	export.Mode = ModeExport
	export.Filter = "sales.%"
	export.Export.OutputPath = root

	exporter := NewProcessor(export, Runtime{
		Logger:    zerolog.Nop(),
		Extractor: staticExtractor{snap: metastoreSnapshot()},
		Store:     store,
	})
	if err := exporter.Execute(context.Background()); err != nil {
		t.Fatalf("export Execute() error = %v", err)
	}
	paths := exporter.Stats().Exported
	if paths.Databases != filepath.Join(root, "databases") {
		t.Errorf("exported paths = %+v", paths)
	}
	// экспорт не дедуплицирует
	if exporter.Stats().Transform.DatabasesOut != 2 || exporter.Stats().Transform.PartitionsOut != 250 {
		t.Errorf("export stats = %+v", exporter.Stats().Transform)
	}

	imp := DefaultConfig()
	imp.Mode = ModeSnapshot
	imp.Input = paths
	imp.Filter = "nothing.matches"
	imp.SetDefaults()

	target := &memoryLoader{}
	importer := NewProcessor(imp, Runtime{Logger: zerolog.Nop(), Store: store, Loader: target})
	if err := importer.Execute(context.Background()); err != nil {
		t.Fatalf("snapshot Execute() error = %v", err)
	}

	if len(target.set.Databases) != 1 {
		t.Errorf("databases = %d, want 1 after dedupe", len(target.set.Databases))
	}
	if len(target.set.Partitions) != 3 {
		t.Errorf("partition batches = %d, want 3", len(target.set.Partitions))
	}
	if importer.Source() != paths.Databases {
		t.Errorf("Source() = %q", importer.Source())
	}
}

func TestProcessor_SnapshotSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	store := snapshot.NewLocalStore()
	ctx := context.Background()
	for _, name := range []string{"databases.jsonl", "tables.jsonl", "partitions.jsonl"} {
		if err := store.Write(ctx, filepath.Join(dir, name), []byte(`{"type":"database"}`+"\n")); err != nil {
			t.Fatal(err)
		}
	}

	c := DefaultConfig()
	c.Mode = ModeSnapshot
	c.Input = snapshot.Paths{
		Databases:  filepath.Join(dir, "databases.jsonl"),
		Tables:     filepath.Join(dir, "tables.jsonl"),
		Partitions: filepath.Join(dir, "partitions.jsonl"),
	}
	c.SetDefaults()

	p := NewProcessor(c, Runtime{Logger: zerolog.Nop(), Store: store, Loader: &memoryLoader{}})
	err := p.Execute(ctx)
	if !errors.Is(err, catalog.ErrSchemaMismatch) {
		t.Fatalf("Execute() error = %v, want ErrSchemaMismatch", err)
	}
	if p.Stats().FailedState != StateExtractFromSnapshot {
		t.Errorf("FailedState = %s", p.Stats().FailedState)
	}
}
