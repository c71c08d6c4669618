package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// LocalStore - файлы снапшота на локальном диске
type LocalStore struct{}

// NewLocalStore создает локальное хранилище
func NewLocalStore() *LocalStore {
	return &LocalStore{}
}

// List возвращает файл или все файлы каталога (рекурсивно)
func (s *LocalStore) List(ctx context.Context, p string) ([]string, error) {
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	if !info.IsDir() {
		return []string{p}, nil
	}

	var files []string
	err = filepath.WalkDir(p, func(fp string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if fp != p && hidden(fp) {
				return filepath.SkipDir
			}
			return nil
		}
		if !hidden(fp) {
			files = append(files, fp)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", p, err)
	}
	sort.Strings(files)
	return files, nil
}

// Read читает файл
func (s *LocalStore) Read(ctx context.Context, p string) ([]byte, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return data, nil
}

// Write пишет файл, создавая каталоги
func (s *LocalStore) Write(ctx context.Context, p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", p, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	return nil
}

// Join соединяет элементы пути
func (s *LocalStore) Join(elem ...string) string {
	return filepath.Join(elem...)
}
