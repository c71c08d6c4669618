package snapshot

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/ruslano69/hms-migrator/pkg/awsconf"
)

// ErrNotFound - объект или файл отсутствует
var ErrNotFound = errors.New("not found")

// Store - хранилище файлов снапшота
type Store interface {
	// List возвращает отсортированные пути файлов данных: сам путь, если это
	// файл, или содержимое каталога/префикса без служебных файлов (_*, .*)
	List(ctx context.Context, p string) ([]string, error)

	// Read читает файл целиком
	Read(ctx context.Context, p string) ([]byte, error)

	// Write создает или перезаписывает файл
	Write(ctx context.Context, p string, data []byte) error

	// Join соединяет элементы пути по правилам хранилища
	Join(elem ...string) string
}

// OpenStore выбирает хранилище по схеме пути: s3:// или локальная ФС
func OpenStore(ctx context.Context, p string, aws awsconf.Config) (Store, error) {
	if awsconf.IsS3Path(p) {
		return NewS3StoreFromConfig(ctx, aws)
	}
	return NewLocalStore(), nil
}

// hidden - служебные файлы Spark/Hadoop (_SUCCESS, .crc) и манифест
func hidden(p string) bool {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.HasPrefix(base, "_") || strings.HasPrefix(base, ".")
}
