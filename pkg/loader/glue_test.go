package loader

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
	"github.com/ruslano69/hms-migrator/pkg/resilience"
	"github.com/ruslano69/hms-migrator/pkg/retry"
)

// fakeGlue - Glue в памяти; errs задает ошибки по имени объекта
type fakeGlue struct {
	mu         sync.Mutex
	databases  []string
	tables     []string
	partitions map[string][][]string
	errs       map[string][]error
	rejected   map[string]string // values[0] -> код ошибки в ответе
}

func newFakeGlue() *fakeGlue {
	return &fakeGlue{
		partitions: make(map[string][][]string),
		errs:       make(map[string][]error),
		rejected:   make(map[string]string),
	}
}

// nextErr снимает очередную ошибку для объекта
func (f *fakeGlue) nextErr(name string) error {
	queue := f.errs[name]
	if len(queue) == 0 {
		return nil
	}
	f.errs[name] = queue[1:]
	return queue[0]
}

func (f *fakeGlue) CreateDatabase(_ context.Context, in *glue.CreateDatabaseInput, _ ...func(*glue.Options)) (*glue.CreateDatabaseOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.DatabaseInput.Name)
	if err := f.nextErr(name); err != nil {
		return nil, err
	}
	f.databases = append(f.databases, name)
	return &glue.CreateDatabaseOutput{}, nil
}

func (f *fakeGlue) CreateTable(_ context.Context, in *glue.CreateTableInput, _ ...func(*glue.Options)) (*glue.CreateTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.DatabaseName) + "." + aws.ToString(in.TableInput.Name)
	if err := f.nextErr(name); err != nil {
		return nil, err
	}
	f.tables = append(f.tables, name)
	return &glue.CreateTableOutput{}, nil
}

func (f *fakeGlue) BatchCreatePartition(_ context.Context, in *glue.BatchCreatePartitionInput, _ ...func(*glue.Options)) (*glue.BatchCreatePartitionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.ToString(in.DatabaseName) + "." + aws.ToString(in.TableName)
	if err := f.nextErr(name); err != nil {
		return nil, err
	}
	out := &glue.BatchCreatePartitionOutput{}
	for _, p := range in.PartitionInputList {
		if code, ok := f.rejected[p.Values[0]]; ok {
			out.Errors = append(out.Errors, types.PartitionError{
				PartitionValues: p.Values,
				ErrorDetail:     &types.ErrorDetail{ErrorCode: aws.String(code), ErrorMessage: aws.String("rejected")},
			})
			continue
		}
		f.partitions[name] = append(f.partitions[name], p.Values)
	}
	return out, nil
}

func throttling() error {
	return &smithy.GenericAPIError{Code: "ThrottlingException", Message: "Rate exceeded", Fault: smithy.FaultClient}
}

func invalidInput() error {
	return &smithy.GenericAPIError{Code: "InvalidInputException", Message: "bad input", Fault: smithy.FaultClient}
}

func testGuard(t *testing.T) *Guard {
	t.Helper()
	cfg := retry.EnableRetryWithDLQ(3, time.Millisecond, "")
	cfg.MaxDelay = 5 * time.Millisecond
	cfg.Jitter = 0
	cfg.Classifier = retry.IsRetryableAWS
	r, err := retry.NewRetryer(cfg)
	if err != nil {
		t.Fatalf("NewRetryer() error = %v", err)
	}
	breakerCfg := resilience.DefaultConfig("glue")
	breakerCfg.IsFailure = IsServiceFailure
	cb, err := resilience.New(breakerCfg)
	if err != nil {
		t.Fatalf("resilience.New() error = %v", err)
	}
	return &Guard{Retryer: r, Breaker: cb}
}

func TestGlueLoader_Databases(t *testing.T) {
	fake := newFakeGlue()
	fake.errs["sales"] = []error{throttling(), throttling()}
	fake.errs["hr"] = []error{&types.AlreadyExistsException{Message: aws.String("Database already exists.")}}

	guard := testGuard(t)
	l := NewGlueLoader(fake, GlueConfig{CatalogID: "123456789012"}, "eu-west-1", Options{Guard: guard, Logger: zerolog.Nop()})

	units := []catalog.ImportDatabase{
		{Type: catalog.TypeDatabase, Items: []catalog.Item{{"name": "sales", "locationUri": "s3://wh/sales"}}},
		{Type: catalog.TypeDatabase, Items: []catalog.Item{{"name": "hr"}}},
	}
	res, err := l.LoadDatabases(context.Background(), units)
	if err != nil {
		t.Fatalf("LoadDatabases() error = %v", err)
	}
	want := Result{Units: 2, Created: 1, Skipped: 1}
	if res != want {
		t.Errorf("result = %+v, want %+v", res, want)
	}
	if len(fake.databases) != 1 || fake.databases[0] != "sales" {
		t.Errorf("created databases = %v", fake.databases)
	}
	if n := guard.Retryer.GetDLQ().Size(); n != 0 {
		t.Errorf("DLQ size = %d, want 0", n)
	}
	if got := l.Target(); got != "glue:eu-west-1/123456789012" {
		t.Errorf("Target() = %q", got)
	}
}

func TestGlueLoader_TablesNonRetryable(t *testing.T) {
	fake := newFakeGlue()
	fake.errs["sales.orders"] = []error{invalidInput()}

	guard := testGuard(t)
	l := NewGlueLoader(fake, GlueConfig{}, "us-east-1", Options{Guard: guard, Workers: 4, Logger: zerolog.Nop()})

	units := []catalog.ImportTable{
		{Type: catalog.TypeTable, Database: "sales", Items: []catalog.Item{{"name": "orders"}}},
		{Type: catalog.TypeTable, Database: "sales", Items: []catalog.Item{{"name": "customers", "lastAccessTime": float64(1700000000)}}},
	}
	res, err := l.LoadTables(context.Background(), units)
	if err != nil {
		t.Fatalf("LoadTables() error = %v, a rejected table must not fail the collection", err)
	}
	if res.Created != 1 || res.Failed != 1 {
		t.Errorf("result = %+v", res)
	}

	entries := guard.Retryer.GetDLQ().Get()
	if len(entries) != 1 {
		t.Fatalf("DLQ entries = %d, want 1", len(entries))
	}
	if entries[0].Unit != "table sales.orders" || entries[0].FailureType != retry.FailureNonRetryable {
		t.Errorf("DLQ entry = %+v", entries[0])
	}
	if !strings.Contains(entries[0].LastError, "InvalidInputException") {
		t.Errorf("DLQ entry lost API error: %q", entries[0].LastError)
	}
	if guard.Breaker.State() != resilience.StateClosed {
		t.Errorf("data error opened the circuit: %s", guard.Breaker.State())
	}
}

func TestGlueLoader_Partitions(t *testing.T) {
	fake := newFakeGlue()
	fake.rejected["2024-01-02"] = "AlreadyExistsException"
	fake.rejected["2024-01-03"] = "InvalidInputException"

	guard := testGuard(t)
	l := NewGlueLoader(fake, GlueConfig{}, "us-east-1", Options{Guard: guard, Workers: 2, Logger: zerolog.Nop()})

	batch := catalog.ImportPartitions{Database: "sales", Table: "orders", Items: []catalog.Item{
		{"values": []any{"2024-01-01"}},
		{"values": []any{"2024-01-02"}},
		{"values": []any{"2024-01-03"}},
	}}
	res, err := l.LoadPartitions(context.Background(), []catalog.ImportPartitions{batch})
	if err != nil {
		t.Fatalf("LoadPartitions() error = %v", err)
	}
	want := Result{Units: 1, Created: 1, Skipped: 1, Failed: 1}
	if res != want {
		t.Errorf("result = %+v, want %+v", res, want)
	}
	entries := guard.Retryer.GetDLQ().Get()
	if len(entries) != 1 || entries[0].FailureType != retry.FailureRejected {
		t.Errorf("DLQ entries = %+v", entries)
	}
}

func TestGlueLoader_BatchTooLarge(t *testing.T) {
	l := NewGlueLoader(newFakeGlue(), GlueConfig{}, "us-east-1", Options{Logger: zerolog.Nop()})

	items := make([]catalog.Item, MaxGlueBatch+1)
	for i := range items {
		items[i] = catalog.Item{"values": []any{"v"}}
	}
	_, err := l.LoadPartitions(context.Background(), []catalog.ImportPartitions{{Database: "db", Table: "t", Items: items}})
	if !errors.Is(err, catalog.ErrInvalidConfiguration) {
		t.Errorf("error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestGlueLoader_CircuitOpens(t *testing.T) {
	fake := newFakeGlue()
	serverErr := &smithy.GenericAPIError{Code: "InternalServiceException", Message: "boom", Fault: smithy.FaultServer}
	for _, name := range []string{"a", "b", "c"} {
		fake.errs[name] = []error{serverErr}
	}

	cb, err := resilience.New(resilience.Config{Enabled: true, Name: "glue", MaxFailures: 2, Timeout: time.Minute})
	if err != nil {
		t.Fatalf("resilience.New() error = %v", err)
	}
	l := NewGlueLoader(fake, GlueConfig{}, "us-east-1", Options{Guard: &Guard{Breaker: cb}, Logger: zerolog.Nop()})

	var units []catalog.ImportDatabase
	for _, name := range []string{"a", "b", "c"} {
		units = append(units, catalog.ImportDatabase{Type: catalog.TypeDatabase, Items: []catalog.Item{{"name": name}}})
	}
	res, err := l.LoadDatabases(context.Background(), units)
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("error = %v, want ErrCircuitOpen for the third call", err)
	}
	if res.Failed != 3 {
		t.Errorf("failed = %d, want 3", res.Failed)
	}
}

func TestToTableInput(t *testing.T) {
	it, err := catalog.ToItem(catalog.TableInput{
		Name:           "orders",
		Owner:          "hive",
		LastAccessTime: 1700000000,
		Retention:      7,
		TableType:      "EXTERNAL_TABLE",
		StorageDescriptor: &catalog.StorageDescriptor{
			Columns:         []catalog.Column{{Name: "id", Type: "bigint"}},
			Location:        "s3://wh/sales/orders",
			NumberOfBuckets: -1,
			SerdeInfo:       &catalog.SerDeInfo{SerializationLibrary: "org.apache.hadoop.hive.ql.io.parquet.serde.ParquetHiveSerDe"},
			SortColumns:     []catalog.Order{{Column: "id", SortOrder: 1}},
		},
		PartitionKeys: []catalog.Column{{Name: "dt", Type: "string"}},
		Parameters:    map[string]string{"EXTERNAL": "TRUE"},
	})
	if err != nil {
		t.Fatalf("ToItem() error = %v", err)
	}

	in, err := toTableInput(it)
	if err != nil {
		t.Fatalf("toTableInput() error = %v", err)
	}
	if aws.ToString(in.Name) != "orders" || aws.ToString(in.Owner) != "hive" || in.Retention != 7 {
		t.Errorf("table input = %+v", in)
	}
	if in.LastAccessTime == nil || in.LastAccessTime.Unix() != 1700000000 {
		t.Errorf("LastAccessTime = %v", in.LastAccessTime)
	}
	if in.Description != nil {
		t.Errorf("empty description should stay nil")
	}
	sd := in.StorageDescriptor
	if sd == nil || aws.ToString(sd.Location) != "s3://wh/sales/orders" || sd.NumberOfBuckets != -1 {
		t.Fatalf("storage descriptor = %+v", sd)
	}
	if len(sd.SortColumns) != 1 || aws.ToString(sd.SortColumns[0].Column) != "id" || sd.SortColumns[0].SortOrder != 1 {
		t.Errorf("sort columns = %+v", sd.SortColumns)
	}
	if len(in.PartitionKeys) != 1 || aws.ToString(in.PartitionKeys[0].Name) != "dt" {
		t.Errorf("partition keys = %+v", in.PartitionKeys)
	}
}

func TestIsServiceFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"invalid input", invalidInput(), false},
		{"already exists", &types.AlreadyExistsException{Message: aws.String("x")}, false},
		{"throttling", throttling(), true},
		{"plain", errors.New("connection reset"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsServiceFailure(tt.err); got != tt.want {
				t.Errorf("IsServiceFailure() = %v, want %v", got, tt.want)
			}
		})
	}
}
