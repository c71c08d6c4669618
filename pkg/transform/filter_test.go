package transform

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    FilterExpression
		wantErr bool
	}{
		{name: "empty", input: "", want: nil},
		{name: "blank", input: "  ", want: nil},
		{name: "single", input: "db1.table1", want: FilterExpression{{"db1", "table1"}}},
		{
			name:  "several with spaces",
			input: "db1.table1, db2.table2%",
			want:  FilterExpression{{"db1", "table1"}, {"db2", "table2%"}},
		},
		{name: "split at first dot", input: "db.t.x", want: FilterExpression{{"db", "t.x"}}},
		{name: "trailing comma", input: "a.b,", want: FilterExpression{{"a", "b"}}},
		{name: "missing separator", input: "db1", wantErr: true},
		{name: "second token broken", input: "db1.t1,db2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilter(tt.input)
			if tt.wantErr {
				if !errors.Is(err, catalog.ErrInvalidFilterSyntax) {
					t.Fatalf("expected ErrInvalidFilterSyntax, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseFilter(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFilter_Identity(t *testing.T) {
	dbs := []catalog.DatabaseRecord{dbRec("a"), dbRec("b"), dbRec("a")}
	tables := []catalog.TableRecord{tblRec("a", "x"), tblRec("b", "y")}
	parts := []catalog.PartitionRecord{partRec("a", "x", "1")}

	if got := FilterDatabases(dbs, nil, PrefixConfig{DatabasePrefix: "p_"}); !reflect.DeepEqual(got, dbs) {
		t.Errorf("databases changed by empty filter: %v", got)
	}
	if got := FilterTables(tables, nil, PrefixConfig{}); !reflect.DeepEqual(got, tables) {
		t.Errorf("tables changed by empty filter: %v", got)
	}
	if got := FilterPartitions(parts, nil, PrefixConfig{}); !reflect.DeepEqual(got, parts) {
		t.Errorf("partitions changed by empty filter: %v", got)
	}
}

func TestFilter_Union(t *testing.T) {
	expr, err := ParseFilter("a.x,b.y")
	if err != nil {
		t.Fatal(err)
	}

	tables := []catalog.TableRecord{
		tblRec("a", "x"),
		tblRec("a", "y"),
		tblRec("b", "y"),
		tblRec("b", "x"),
		tblRec("a", "x"), // входной дубликат сохраняется
	}

	got := FilterTables(tables, expr, PrefixConfig{})
	want := []catalog.TableRecord{tblRec("a", "x"), tblRec("b", "y"), tblRec("a", "x")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", names(got), names(want))
	}
}

func TestFilter_MatchingSeveralTermsAppearsOnce(t *testing.T) {
	expr, _ := ParseFilter("sales.%,sal%.orders")
	got := FilterTables([]catalog.TableRecord{tblRec("sales", "orders")}, expr, PrefixConfig{})
	if len(got) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(got))
	}
}

func TestFilter_Wildcards(t *testing.T) {
	expr, _ := ParseFilter("db%.tbl_")
	tables := []catalog.TableRecord{
		tblRec("db1", "tbla"),
		tblRec("dbprod", "tblz"),
		tblRec("db1", "tblab"),
		tblRec("xdb", "tbla"),
	}

	got := FilterTables(tables, expr, PrefixConfig{})
	if want := []string{"db1.tbla", "dbprod.tblz"}; !reflect.DeepEqual(names(got), want) {
		t.Errorf("got %v, want %v", names(got), want)
	}
}

func TestFilter_DatabasesUseDatabasePattern(t *testing.T) {
	expr, _ := ParseFilter("sales.orders")
	got := FilterDatabases([]catalog.DatabaseRecord{dbRec("sales"), dbRec("salesbackup")}, expr, PrefixConfig{})
	if len(got) != 1 || got[0].QualifiedName != "sales" {
		t.Errorf("unexpected databases: %v", got)
	}
}

func TestFilter_PrefixAppliedToPattern(t *testing.T) {
	expr, _ := ParseFilter("sales.orders")
	prefix := PrefixConfig{DatabasePrefix: "hive_", TablePrefix: "t_"}

	tables := []catalog.TableRecord{
		tblRec("hive_sales", "t_orders"),
		tblRec("sales", "orders"),
		tblRec("hive_sales", "orders"),
	}
	got := FilterTables(tables, expr, prefix)
	if want := []string{"hive_sales.t_orders"}; !reflect.DeepEqual(names(got), want) {
		t.Errorf("got %v, want %v", names(got), want)
	}

	parts := []catalog.PartitionRecord{partRec("hive_sales", "t_orders", "1"), partRec("sales", "orders", "1")}
	if gotParts := FilterPartitions(parts, expr, prefix); len(gotParts) != 1 || gotParts[0].DatabaseName != "hive_sales" {
		t.Errorf("unexpected partitions: %v", gotParts)
	}
}

func TestFilter_DoesNotAliasInput(t *testing.T) {
	in := []catalog.DatabaseRecord{dbRec("a")}
	out := FilterDatabases(in, nil, PrefixConfig{})
	out[0].QualifiedName = "changed"
	if in[0].QualifiedName != "a" {
		t.Error("filter output shares backing array with input")
	}
}

func names(tables []catalog.TableRecord) []string {
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = t.FullName()
	}
	return out
}
