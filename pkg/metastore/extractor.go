package metastore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/hms-migrator/pkg/adapters"
	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
	"github.com/ruslano69/hms-migrator/pkg/security"
	"github.com/ruslano69/hms-migrator/pkg/transform"
)

// Options - параметры извлечения
type Options struct {
	// Prefix добавляется к именам баз и таблиц в извлеченных записях
	Prefix transform.PrefixConfig

	Logger zerolog.Logger
}

// Extractor читает метастор через адаптер
type Extractor struct {
	adapter adapters.Adapter
	opts    Options
}

// NewExtractor создает экстрактор поверх подключенного адаптера
func NewExtractor(adapter adapters.Adapter, opts Options) *Extractor {
	return &Extractor{adapter: adapter, opts: opts}
}

type paramMap map[int64]map[string]string

type indexed[T any] struct {
	idx int64
	v   T
}

type sdRow struct {
	cdID            int64
	serdeID         int64
	location        string
	inputFormat     string
	outputFormat    string
	compressed      bool
	numBuckets      int64
	storedAsSubDirs bool
}

type serdeRow struct {
	name, lib string
}

// state - содержимое таблиц метастора, нужное для сборки записей
type state struct {
	dbParams, tblParams, sdParams, serdeParams, partParams paramMap

	sds       map[int64]sdRow
	serdes    map[int64]serdeRow
	columns   map[int64][]indexed[catalog.Column]
	buckets   map[int64][]indexed[string]
	sorts     map[int64][]indexed[catalog.Order]
	partKeys  map[int64][]indexed[catalog.Column]
	partVals  map[int64][]indexed[string]
	dbNames   map[int64]string
	tblOwners map[int64][2]string
}

// Extract читает все базы, таблицы и партиции метастора.
// Префиксы применяются к именам баз и таблиц.
func (e *Extractor) Extract(ctx context.Context) (*catalog.Snapshot, error) {
	start := time.Now()
	log := e.opts.Logger.With().Str("backend", e.adapter.GetDatabaseType()).Logger()

	if err := e.adapter.Ping(ctx); err != nil {
		return nil, fmt.Errorf("metastore is unreachable: %w", err)
	}
	if version, err := e.adapter.GetDatabaseVersion(ctx); err != nil {
		log.Warn().Err(err).Msg("metastore version unknown")
	} else {
		log.Info().Str("version", version).Msg("metastore connected")
	}

	st := &state{}
	var err error

	// 1. Справочные таблицы
	if st.dbParams, err = e.readParams(ctx, tblDatabaseParams); err != nil {
		return nil, err
	}
	if st.tblParams, err = e.readParams(ctx, tblTableParams); err != nil {
		return nil, err
	}
	if st.sdParams, err = e.readParams(ctx, tblSDParams); err != nil {
		return nil, err
	}
	if st.serdeParams, err = e.readParams(ctx, tblSerdeParams); err != nil {
		return nil, err
	}
	if st.partParams, err = e.readParams(ctx, tblPartitionParam); err != nil {
		return nil, err
	}
	if err := e.readStorage(ctx, st); err != nil {
		return nil, err
	}
	log.Debug().Int("storage_descriptors", len(st.sds)).Msg("metastore reference tables loaded")

	// 2. Базы, таблицы, партиции
	snap := &catalog.Snapshot{}
	if snap.Databases, err = e.readDatabases(ctx, st); err != nil {
		return nil, err
	}
	if snap.Tables, err = e.readTables(ctx, st); err != nil {
		return nil, err
	}
	if snap.Partitions, err = e.readPartitions(ctx, st); err != nil {
		return nil, err
	}

	log.Info().
		Int("databases", len(snap.Databases)).
		Int("tables", len(snap.Tables)).
		Int("partitions", len(snap.Partitions)).
		Dur("duration", time.Since(start)).
		Msg("metastore extracted")

	return snap, nil
}

// scan выполняет SELECT всех колонок таблицы и вызывает fn для каждой строки
func (e *Extractor) scan(ctx context.Context, t table, fn func(row []any) error) error {
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		cols[i] = e.adapter.Quote(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), e.adapter.Quote(t.name))
	if err := security.CheckReadOnly(query); err != nil {
		return fmt.Errorf("%s: %w", t.name, err)
	}

	rows, err := e.adapter.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", t.name, err)
	}
	defer rows.Close()

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", t.name, err)
		}
		if len(values) != len(t.columns) {
			return fmt.Errorf("%s: expected %d columns, got %d", t.name, len(t.columns), len(values))
		}
		if err := fn(values); err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating %s: %w", t.name, err)
	}
	return nil
}

// ints разбирает целочисленные колонки строки по индексам
func ints(row []any, idx ...int) ([]int64, error) {
	out := make([]int64, len(idx))
	for i, j := range idx {
		v, err := asInt64(row[j])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *Extractor) readParams(ctx context.Context, t table) (paramMap, error) {
	params := make(paramMap)
	err := e.scan(ctx, t, func(row []any) error {
		id, err := asInt64(row[0])
		if err != nil {
			return err
		}
		m, ok := params[id]
		if !ok {
			m = make(map[string]string)
			params[id] = m
		}
		m[asString(row[1])] = asString(row[2])
		return nil
	})
	return params, err
}

func (e *Extractor) readStorage(ctx context.Context, st *state) error {
	st.sds = make(map[int64]sdRow)
	err := e.scan(ctx, tblSDS, func(row []any) error {
		n, err := ints(row, 0, 1, 2, 7)
		if err != nil {
			return err
		}
		st.sds[n[0]] = sdRow{
			cdID:            n[1],
			serdeID:         n[2],
			location:        asString(row[3]),
			inputFormat:     asString(row[4]),
			outputFormat:    asString(row[5]),
			compressed:      asBool(row[6]),
			numBuckets:      n[3],
			storedAsSubDirs: asBool(row[8]),
		}
		return nil
	})
	if err != nil {
		return err
	}

	st.serdes = make(map[int64]serdeRow)
	err = e.scan(ctx, tblSerdes, func(row []any) error {
		id, err := asInt64(row[0])
		if err != nil {
			return err
		}
		st.serdes[id] = serdeRow{name: asString(row[1]), lib: asString(row[2])}
		return nil
	})
	if err != nil {
		return err
	}

	st.columns = make(map[int64][]indexed[catalog.Column])
	err = e.scan(ctx, tblColumns, func(row []any) error {
		n, err := ints(row, 0, 4)
		if err != nil {
			return err
		}
		st.columns[n[0]] = append(st.columns[n[0]], indexed[catalog.Column]{n[1], catalog.Column{
			Name:    asString(row[1]),
			Type:    asString(row[2]),
			Comment: asString(row[3]),
		}})
		return nil
	})
	if err != nil {
		return err
	}

	st.buckets = make(map[int64][]indexed[string])
	err = e.scan(ctx, tblBucketingCols, func(row []any) error {
		n, err := ints(row, 0, 2)
		if err != nil {
			return err
		}
		st.buckets[n[0]] = append(st.buckets[n[0]], indexed[string]{n[1], asString(row[1])})
		return nil
	})
	if err != nil {
		return err
	}

	st.sorts = make(map[int64][]indexed[catalog.Order])
	return e.scan(ctx, tblSortCols, func(row []any) error {
		n, err := ints(row, 0, 2, 3)
		if err != nil {
			return err
		}
		st.sorts[n[0]] = append(st.sorts[n[0]], indexed[catalog.Order]{n[2], catalog.Order{
			Column:    asString(row[1]),
			SortOrder: int32(n[1]),
		}})
		return nil
	})
}

func (e *Extractor) readDatabases(ctx context.Context, st *state) ([]catalog.DatabaseRecord, error) {
	st.dbNames = make(map[int64]string)
	var out []catalog.DatabaseRecord

	err := e.scan(ctx, tblDBS, func(row []any) error {
		id, err := asInt64(row[0])
		if err != nil {
			return err
		}
		name := e.opts.Prefix.DatabasePrefix + asString(row[1])
		st.dbNames[id] = name

		item, err := catalog.ToItem(catalog.DatabaseInput{
			Name:        name,
			Description: asString(row[2]),
			LocationURI: asString(row[3]),
			Parameters:  st.dbParams[id],
		})
		if err != nil {
			return err
		}
		out = append(out, catalog.NewDatabaseRecord(item))
		return nil
	})
	return out, err
}

func (e *Extractor) readTables(ctx context.Context, st *state) ([]catalog.TableRecord, error) {
	st.partKeys = make(map[int64][]indexed[catalog.Column])
	err := e.scan(ctx, tblPartitionKeys, func(row []any) error {
		n, err := ints(row, 0, 4)
		if err != nil {
			return err
		}
		st.partKeys[n[0]] = append(st.partKeys[n[0]], indexed[catalog.Column]{n[1], catalog.Column{
			Name:    asString(row[1]),
			Type:    asString(row[2]),
			Comment: asString(row[3]),
		}})
		return nil
	})
	if err != nil {
		return nil, err
	}

	st.tblOwners = make(map[int64][2]string)
	var out []catalog.TableRecord

	err = e.scan(ctx, tblTBLS, func(row []any) error {
		n, err := ints(row, 0, 1, 2, 6, 7, 8)
		if err != nil {
			return err
		}
		tblID, dbID, sdID := n[0], n[1], n[2]

		dbName, ok := st.dbNames[dbID]
		if !ok {
			e.opts.Logger.Warn().Int64("tbl_id", tblID).Int64("db_id", dbID).Msg("table references unknown database, skipped")
			return nil
		}
		name := e.opts.Prefix.TablePrefix + asString(row[3])
		st.tblOwners[tblID] = [2]string{dbName, name}

		item, err := catalog.ToItem(catalog.TableInput{
			Name:              name,
			Owner:             asString(row[5]),
			CreateTime:        n[3],
			LastAccessTime:    n[4],
			Retention:         int32(n[5]),
			StorageDescriptor: st.storageDescriptor(sdID),
			PartitionKeys:     sorted(st.partKeys[tblID]),
			ViewOriginalText:  asString(row[9]),
			ViewExpandedText:  asString(row[10]),
			TableType:         asString(row[4]),
			Parameters:        st.tblParams[tblID],
		})
		if err != nil {
			return err
		}
		out = append(out, catalog.NewTableRecord(dbName, item))
		return nil
	})
	return out, err
}

func (e *Extractor) readPartitions(ctx context.Context, st *state) ([]catalog.PartitionRecord, error) {
	st.partVals = make(map[int64][]indexed[string])
	err := e.scan(ctx, tblPartitionVals, func(row []any) error {
		n, err := ints(row, 0, 2)
		if err != nil {
			return err
		}
		st.partVals[n[0]] = append(st.partVals[n[0]], indexed[string]{n[1], asString(row[1])})
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []catalog.PartitionRecord
	err = e.scan(ctx, tblPartitions, func(row []any) error {
		n, err := ints(row, 0, 1, 2, 3, 4)
		if err != nil {
			return err
		}
		partID, tblID, sdID := n[0], n[1], n[2]

		owner, ok := st.tblOwners[tblID]
		if !ok {
			e.opts.Logger.Warn().Int64("part_id", partID).Int64("tbl_id", tblID).Msg("partition references unknown table, skipped")
			return nil
		}

		values := sorted(st.partVals[partID])
		if values == nil {
			values = []string{}
		}
		item, err := catalog.ToItem(catalog.PartitionInput{
			Values:            values,
			CreationTime:      n[3],
			LastAccessTime:    n[4],
			StorageDescriptor: st.storageDescriptor(sdID),
			Parameters:        st.partParams[partID],
		})
		if err != nil {
			return err
		}
		out = append(out, catalog.NewPartitionRecord(owner[0], owner[1], item))
		return nil
	})
	return out, err
}

func (st *state) storageDescriptor(sdID int64) *catalog.StorageDescriptor {
	sd, ok := st.sds[sdID]
	if !ok {
		return nil
	}

	out := &catalog.StorageDescriptor{
		Columns:                sorted(st.columns[sd.cdID]),
		Location:               sd.location,
		InputFormat:            sd.inputFormat,
		OutputFormat:           sd.outputFormat,
		Compressed:             sd.compressed,
		NumberOfBuckets:        int32(sd.numBuckets),
		BucketColumns:          sorted(st.buckets[sdID]),
		SortColumns:            sorted(st.sorts[sdID]),
		Parameters:             st.sdParams[sdID],
		StoredAsSubDirectories: sd.storedAsSubDirs,
	}
	if serde, ok := st.serdes[sd.serdeID]; ok {
		out.SerdeInfo = &catalog.SerDeInfo{
			Name:                 serde.name,
			SerializationLibrary: serde.lib,
			Parameters:           st.serdeParams[sd.serdeID],
		}
	}
	return out
}

// sorted упорядочивает значения по INTEGER_IDX
func sorted[T any](in []indexed[T]) []T {
	if len(in) == 0 {
		return nil
	}
	s := slices.Clone(in)
	slices.SortStableFunc(s, func(a, b indexed[T]) int {
		switch {
		case a.idx < b.idx:
			return -1
		case a.idx > b.idx:
			return 1
		}
		return 0
	})
	out := make([]T, len(s))
	for i, v := range s {
		out[i] = v.v
	}
	return out
}
