package transform

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
)

func TestBatchPartitions_Sizes(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		maxSize   int
		wantSizes []int
	}{
		{"empty", 0, 100, nil},
		{"single", 1, 100, []int{1}},
		{"exact", 100, 100, []int{100}},
		{"one over", 101, 100, []int{100, 1}},
		{"250 by 100", 250, 100, []int{100, 100, 50}},
		{"size one", 3, 1, []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches, err := BatchPartitions(nPartitions("sales", "orders", tt.count), tt.maxSize)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var sizes []int
			for _, b := range batches {
				sizes = append(sizes, b.Len())
			}
			if !reflect.DeepEqual(sizes, tt.wantSizes) {
				t.Errorf("sizes = %v, want %v", sizes, tt.wantSizes)
			}
		})
	}
}

func TestBatchPartitions_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := BatchPartitions(nPartitions("a", "b", 3), size)
		if !errors.Is(err, catalog.ErrInvalidConfiguration) {
			t.Errorf("size %d: expected ErrInvalidConfiguration, got %v", size, err)
		}
		_, err = BatchPartitionsParallel(context.Background(), nil, size, 4)
		if !errors.Is(err, catalog.ErrInvalidConfiguration) {
			t.Errorf("parallel size %d: expected ErrInvalidConfiguration, got %v", size, err)
		}
	}
}

func TestBatchPartitions_GroupingPurityAndCompleteness(t *testing.T) {
	// таблицы перемешаны во входе
	var parts []catalog.PartitionRecord
	a := nPartitions("sales", "orders", 7)
	b := nPartitions("sales", "items", 5)
	c := nPartitions("hr", "orders", 4)
	for i := 0; i < 7; i++ {
		parts = append(parts, a[i])
		if i < len(b) {
			parts = append(parts, b[i])
		}
		if i < len(c) {
			parts = append(parts, c[i])
		}
	}

	batches, err := BatchPartitions(parts, 3)
	if err != nil {
		t.Fatal(err)
	}

	regrouped := make(map[string][]catalog.PartitionRecord)
	for _, bt := range batches {
		if bt.Len() < 1 || bt.Len() > 3 {
			t.Errorf("batch size out of bounds: %d", bt.Len())
		}
		for _, p := range bt.Partitions {
			if p.DatabaseName != bt.DatabaseName || p.TableName != bt.TableName {
				t.Errorf("partition %s.%s in batch %s.%s", p.DatabaseName, p.TableName, bt.DatabaseName, bt.TableName)
			}
		}
		key := bt.DatabaseName + "." + bt.TableName
		regrouped[key] = append(regrouped[key], bt.Partitions...)
	}

	for key, want := range map[string][]catalog.PartitionRecord{"sales.orders": a, "sales.items": b, "hr.orders": c} {
		if !reflect.DeepEqual(regrouped[key], want) {
			t.Errorf("%s: batches lost order or items", key)
		}
	}

	// группы в порядке первого появления
	if batches[0].TableName != "orders" || batches[0].DatabaseName != "sales" {
		t.Errorf("first batch = %s.%s", batches[0].DatabaseName, batches[0].TableName)
	}
}

func TestBatchPartitions_Reproducible(t *testing.T) {
	parts := append(nPartitions("a", "x", 250), nPartitions("b", "y", 120)...)

	first, err := BatchPartitions(parts, 100)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := BatchPartitions(parts, 100)
	if !reflect.DeepEqual(first, second) {
		t.Error("batching is not deterministic")
	}

	parallel, err := BatchPartitionsParallel(context.Background(), parts, 100, 8)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, parallel) {
		t.Error("parallel batching differs from sequential")
	}
}

func TestBatchPartitions_DoesNotAliasInput(t *testing.T) {
	parts := nPartitions("a", "x", 5)
	batches, _ := BatchPartitions(parts, 2)
	batches[0].Partitions[0].TableName = "changed"
	if parts[0].TableName != "x" {
		t.Error("batch shares backing array with input")
	}
}
