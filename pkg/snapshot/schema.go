package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
)

// Dataset - один из трех наборов данных снапшота
type Dataset string

const (
	Databases  Dataset = "databases"
	Tables     Dataset = "tables"
	Partitions Dataset = "partitions"
)

type databaseLine struct {
	Type *string      `json:"type"`
	Item catalog.Item `json:"item"`
}

type tableLine struct {
	Type     *string      `json:"type"`
	Database *string      `json:"database"`
	Item     catalog.Item `json:"item"`
}

type partitionLine struct {
	Database *string      `json:"database"`
	Table    *string      `json:"table"`
	Item     catalog.Item `json:"item"`
}

func mismatch(format string, args ...any) error {
	return fmt.Errorf("%w: %s", catalog.ErrSchemaMismatch, fmt.Sprintf(format, args...))
}

func decodeStrict(line []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return mismatch("%v", err)
	}
	if dec.More() {
		return mismatch("trailing data after record")
	}
	return nil
}

func requireString(field string, v *string) error {
	if v == nil {
		return mismatch("missing %q", field)
	}
	if *v == "" {
		return mismatch("empty %q", field)
	}
	return nil
}

func requireName(item catalog.Item) error {
	if item == nil {
		return mismatch(`missing "item"`)
	}
	name, ok := item["name"].(string)
	if !ok || name == "" {
		return mismatch(`"item.name" must be a non-empty string`)
	}
	return nil
}

func parseDatabase(line []byte) (catalog.DatabaseRecord, error) {
	var l databaseLine
	if err := decodeStrict(line, &l); err != nil {
		return catalog.DatabaseRecord{}, err
	}
	if err := requireString("type", l.Type); err != nil {
		return catalog.DatabaseRecord{}, err
	}
	if err := requireName(l.Item); err != nil {
		return catalog.DatabaseRecord{}, err
	}
	return catalog.DatabaseRecord{Type: *l.Type, QualifiedName: l.Item.Name(), Item: l.Item}, nil
}

func parseTable(line []byte) (catalog.TableRecord, error) {
	var l tableLine
	if err := decodeStrict(line, &l); err != nil {
		return catalog.TableRecord{}, err
	}
	if err := requireString("type", l.Type); err != nil {
		return catalog.TableRecord{}, err
	}
	if err := requireString("database", l.Database); err != nil {
		return catalog.TableRecord{}, err
	}
	if err := requireName(l.Item); err != nil {
		return catalog.TableRecord{}, err
	}
	return catalog.TableRecord{Type: *l.Type, DatabaseName: *l.Database, QualifiedName: l.Item.Name(), Item: l.Item}, nil
}

func parsePartition(line []byte) (catalog.PartitionRecord, error) {
	var l partitionLine
	if err := decodeStrict(line, &l); err != nil {
		return catalog.PartitionRecord{}, err
	}
	if err := requireString("database", l.Database); err != nil {
		return catalog.PartitionRecord{}, err
	}
	if err := requireString("table", l.Table); err != nil {
		return catalog.PartitionRecord{}, err
	}
	if l.Item == nil {
		return catalog.PartitionRecord{}, mismatch(`missing "item"`)
	}
	values, ok := l.Item["values"].([]any)
	if !ok {
		return catalog.PartitionRecord{}, mismatch(`"item.values" must be an array`)
	}
	for i, v := range values {
		if _, ok := v.(string); !ok {
			return catalog.PartitionRecord{}, mismatch(`"item.values[%d]" must be a string, got %T`, i, v)
		}
	}
	return catalog.NewPartitionRecord(*l.Database, *l.Table, l.Item), nil
}

// lines для записи снапшота
type databaseOut struct {
	Type string       `json:"type"`
	Item catalog.Item `json:"item"`
}

type tableOut struct {
	Type     string       `json:"type"`
	Database string       `json:"database"`
	Item     catalog.Item `json:"item"`
}

type partitionOut struct {
	Database string       `json:"database"`
	Table    string       `json:"table"`
	Item     catalog.Item `json:"item"`
}
