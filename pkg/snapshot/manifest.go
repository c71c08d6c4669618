package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/ruslano69/hms-migrator/pkg/processors"
)

// ManifestName - имя манифеста в каталоге набора данных
const ManifestName = "_manifest.json"

// ErrChecksumMismatch - файл снапшота не совпадает с манифестом
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Manifest - описание набора данных, записанного Writer
type Manifest struct {
	Dataset Dataset           `json:"dataset"`
	Records int               `json:"records"`
	Files   map[string]string `json:"files"` // имя файла -> xxh3
}

func baseName(p string) string {
	return path.Base(strings.ReplaceAll(p, "\\", "/"))
}

// loadManifest читает манифест каталога; nil, если его нет
func loadManifest(ctx context.Context, store Store, dir string) (*Manifest, error) {
	data, err := store.Read(ctx, store.Join(dir, ManifestName))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest in %s: %w", dir, err)
	}
	return &m, nil
}

// verify проверяет файл по манифесту
func (m *Manifest) verify(file string, data []byte) error {
	expected, ok := m.Files[baseName(file)]
	if !ok {
		return fmt.Errorf("%w: %s is not listed in manifest", ErrChecksumMismatch, file)
	}
	if err := processors.ValidateChecksum(data, expected); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrChecksumMismatch, file, err)
	}
	return nil
}

// checkComplete проверяет, что все файлы манифеста присутствуют
func (m *Manifest) checkComplete(files []string) error {
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[baseName(f)] = true
	}
	for name := range m.Files {
		if !present[name] {
			return fmt.Errorf("%w: %s listed in manifest is missing", ErrChecksumMismatch, name)
		}
	}
	return nil
}
