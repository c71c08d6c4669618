package snapshot

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
	"github.com/ruslano69/hms-migrator/pkg/processors"
)

// maxLineSize - максимальная длина строки JSON (таблицы с тысячами колонок)
const maxLineSize = 64 << 20

// Paths - пути трех наборов данных
type Paths struct {
	Databases  string `yaml:"databases"`
	Tables     string `yaml:"tables"`
	Partitions string `yaml:"partitions"`
}

// Reader читает снапшот из хранилища
type Reader struct {
	store  Store
	logger zerolog.Logger
}

// NewReader создает читателя
func NewReader(store Store, logger zerolog.Logger) *Reader {
	return &Reader{store: store, logger: logger}
}

// Read читает три набора данных параллельно. Ошибка схемы любого набора
// прерывает чтение; частичный снапшот не возвращается.
func (r *Reader) Read(ctx context.Context, paths Paths) (*catalog.Snapshot, error) {
	start := time.Now()
	snap := &catalog.Snapshot{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Databases, err = readDataset(gctx, r, Databases, paths.Databases, parseDatabase)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Tables, err = readDataset(gctx, r, Tables, paths.Tables, parseTable)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Partitions, err = readDataset(gctx, r, Partitions, paths.Partitions, parsePartition)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Info().
		Int("databases", len(snap.Databases)).
		Int("tables", len(snap.Tables)).
		Int("partitions", len(snap.Partitions)).
		Dur("duration", time.Since(start)).
		Msg("snapshot read")
	return snap, nil
}

func readDataset[T any](ctx context.Context, r *Reader, ds Dataset, p string, parse func([]byte) (T, error)) ([]T, error) {
	files, err := r.store.List(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ds, err)
	}

	var manifest *Manifest
	if !(len(files) == 1 && files[0] == p) {
		if manifest, err = loadManifest(ctx, r.store, p); err != nil {
			return nil, fmt.Errorf("%s: %w", ds, err)
		}
		if manifest != nil {
			if err := manifest.checkComplete(files); err != nil {
				return nil, fmt.Errorf("%s: %w", ds, err)
			}
		}
	}

	var out []T
	for _, file := range files {
		raw, err := r.store.Read(ctx, file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ds, err)
		}
		if manifest != nil {
			if err := manifest.verify(file, raw); err != nil {
				return nil, fmt.Errorf("%s: %w", ds, err)
			}
		}
		data, err := decode(file, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ds, err)
		}

		sc := bufio.NewScanner(bytes.NewReader(data))
		sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		lineNo := 0
		for sc.Scan() {
			lineNo++
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			rec, err := parse(line)
			if err != nil {
				return nil, fmt.Errorf("%s: %s:%d: %w", ds, file, lineNo, err)
			}
			out = append(out, rec)
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("%s: failed to scan %s: %w", ds, file, err)
		}
	}

	if manifest != nil && manifest.Records != len(out) {
		return nil, fmt.Errorf("%s: %w: manifest lists %d records, read %d", ds, ErrChecksumMismatch, manifest.Records, len(out))
	}

	r.logger.Debug().Str("dataset", string(ds)).Int("files", len(files)).Int("records", len(out)).Msg("dataset read")
	return out, nil
}

// decode распаковывает файл по расширению
func decode(file string, raw []byte) ([]byte, error) {
	switch {
	case strings.HasSuffix(file, ".zst"):
		return processors.Decompress(raw)
	case strings.HasSuffix(file, ".gz"):
		return processors.GunzipBlock(raw)
	default:
		return raw, nil
	}
}
