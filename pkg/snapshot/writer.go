package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
	"github.com/ruslano69/hms-migrator/pkg/processors"
)

// DefaultRecordsPerFile - строк в одном part-файле
const DefaultRecordsPerFile = 50000

// WriterOptions - параметры записи снапшота
type WriterOptions struct {
	// Compress включает zstd (.jsonl.zst)
	Compress bool

	// CompressionLevel - уровень zstd, по умолчанию 3
	CompressionLevel int

	// RecordsPerFile - строк в part-файле
	RecordsPerFile int

	Logger zerolog.Logger
}

// Writer пишет снапшот в хранилище: root/{databases,tables,partitions}/part-NNNNN.jsonl
// и _manifest.json с контрольными суммами в каждом каталоге
type Writer struct {
	store Store
	opts  WriterOptions
}

// NewWriter создает писателя
func NewWriter(store Store, opts WriterOptions) *Writer {
	if opts.RecordsPerFile <= 0 {
		opts.RecordsPerFile = DefaultRecordsPerFile
	}
	if opts.CompressionLevel <= 0 {
		opts.CompressionLevel = 3
	}
	return &Writer{store: store, opts: opts}
}

// Write пишет три набора данных и возвращает их пути
func (w *Writer) Write(ctx context.Context, root string, snap *catalog.Snapshot) (Paths, error) {
	paths := Paths{
		Databases:  w.store.Join(root, string(Databases)),
		Tables:     w.store.Join(root, string(Tables)),
		Partitions: w.store.Join(root, string(Partitions)),
	}

	dbLines := make([]any, len(snap.Databases))
	for i, d := range snap.Databases {
		dbLines[i] = databaseOut{Type: d.Type, Item: d.Item}
	}
	if err := w.writeDataset(ctx, Databases, paths.Databases, dbLines); err != nil {
		return Paths{}, err
	}

	tblLines := make([]any, len(snap.Tables))
	for i, t := range snap.Tables {
		tblLines[i] = tableOut{Type: t.Type, Database: t.DatabaseName, Item: t.Item}
	}
	if err := w.writeDataset(ctx, Tables, paths.Tables, tblLines); err != nil {
		return Paths{}, err
	}

	partLines := make([]any, len(snap.Partitions))
	for i, p := range snap.Partitions {
		partLines[i] = partitionOut{Database: p.DatabaseName, Table: p.TableName, Item: p.Item}
	}
	if err := w.writeDataset(ctx, Partitions, paths.Partitions, partLines); err != nil {
		return Paths{}, err
	}

	return paths, nil
}

// WriteLines пишет произвольные JSON-записи как набор данных (используется
// файловым загрузчиком для единиц импорта)
func (w *Writer) WriteLines(ctx context.Context, ds Dataset, dir string, records []any) error {
	return w.writeDataset(ctx, ds, dir, records)
}

func (w *Writer) writeDataset(ctx context.Context, ds Dataset, dir string, records []any) error {
	manifest := Manifest{Dataset: ds, Records: len(records), Files: make(map[string]string)}

	ext := ".jsonl"
	if w.opts.Compress {
		ext += ".zst"
	}

	for part, start := 0, 0; start < len(records) || part == 0; part, start = part+1, start+w.opts.RecordsPerFile {
		end := min(start+w.opts.RecordsPerFile, len(records))

		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		for _, rec := range records[start:end] {
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("%s: failed to encode record: %w", ds, err)
			}
		}

		data := buf.Bytes()
		if w.opts.Compress {
			var err error
			if data, err = processors.Compress(data, w.opts.CompressionLevel); err != nil {
				return fmt.Errorf("%s: %w", ds, err)
			}
		}

		name := fmt.Sprintf("part-%05d%s", part, ext)
		if err := w.store.Write(ctx, w.store.Join(dir, name), data); err != nil {
			return fmt.Errorf("%s: %w", ds, err)
		}
		manifest.Files[name] = processors.ComputeChecksum(data)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: failed to encode manifest: %w", ds, err)
	}
	if err := w.store.Write(ctx, w.store.Join(dir, ManifestName), data); err != nil {
		return fmt.Errorf("%s: %w", ds, err)
	}

	w.opts.Logger.Debug().Str("dataset", string(ds)).Int("records", len(records)).Int("files", len(manifest.Files)).Msg("dataset written")
	return nil
}
