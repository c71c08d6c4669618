package loader

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
	"github.com/ruslano69/hms-migrator/pkg/snapshot"
)

// FileConfig - каталог или s3:// префикс для единиц импорта
type FileConfig struct {
	Path     string `yaml:"path"`
	Compress bool   `yaml:"compress"`
}

// FileLoader пишет единицы импорта в JSON Lines: path/databases,
// path/tables, path/partitions (part-файлы и _manifest.json).
// Используется для dry-run и передачи набора другому процессу.
type FileLoader struct {
	store  snapshot.Store
	writer *snapshot.Writer
	root   string
	logger zerolog.Logger
}

// NewFileLoader создает загрузчик поверх хранилища
func NewFileLoader(store snapshot.Store, cfg FileConfig, opts Options) *FileLoader {
	return &FileLoader{
		store:  store,
		writer: snapshot.NewWriter(store, snapshot.WriterOptions{Compress: cfg.Compress, Logger: opts.Logger}),
		root:   cfg.Path,
		logger: opts.Logger.With().Str("component", "file").Logger(),
	}
}

// Target - корневой путь
func (l *FileLoader) Target() string {
	return "file:" + l.root
}

// LoadDatabases пишет единицы баз в path/databases
func (l *FileLoader) LoadDatabases(ctx context.Context, units []catalog.ImportDatabase) (Result, error) {
	lines := make([]any, len(units))
	items := 0
	for i, u := range units {
		lines[i] = u
		items += len(u.Items)
	}
	return l.write(ctx, snapshot.Databases, lines, items)
}

// LoadTables пишет единицы таблиц в path/tables
func (l *FileLoader) LoadTables(ctx context.Context, units []catalog.ImportTable) (Result, error) {
	lines := make([]any, len(units))
	items := 0
	for i, u := range units {
		lines[i] = u
		items += len(u.Items)
	}
	return l.write(ctx, snapshot.Tables, lines, items)
}

// LoadPartitions пишет батчи в path/partitions, по батчу в строке
func (l *FileLoader) LoadPartitions(ctx context.Context, units []catalog.ImportPartitions) (Result, error) {
	lines := make([]any, len(units))
	items := 0
	for i, u := range units {
		lines[i] = u
		items += len(u.Items)
	}
	return l.write(ctx, snapshot.Partitions, lines, items)
}

func (l *FileLoader) write(ctx context.Context, ds snapshot.Dataset, lines []any, items int) (Result, error) {
	dir := l.store.Join(l.root, string(ds))
	if err := l.writer.WriteLines(ctx, ds, dir, lines); err != nil {
		return Result{Units: len(lines), Failed: items}, fmt.Errorf("write %s: %w", dir, err)
	}
	l.logger.Debug().Str("dir", dir).Int("units", len(lines)).Msg("written")
	return Result{Units: len(lines), Created: items}, nil
}

// Close - файлы закрываются после каждой записи
func (l *FileLoader) Close() error {
	return nil
}
