package transform

import (
	"context"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
)

// KeyFunc возвращает натуральный ключ записи
type KeyFunc[T any] func(T) string

// parallelThreshold - ниже этого размера шардирование не окупается
var parallelThreshold = 4096

// Dedupe оставляет первую встреченную запись для каждого ключа.
// Порядок выхода совпадает с порядком входа.
func Dedupe[T any](records []T, key KeyFunc[T]) []T {
	seen := make(map[string]struct{}, len(records))
	out := make([]T, 0, len(records))
	for _, r := range records {
		k := key(r)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

// DedupeParallel дает тот же результат, что Dedupe, но распределяет записи
// по workers шардам по xxh3-хешу ключа. Все дубликаты ключа попадают в один
// шард, поэтому шарды обрабатываются независимо, без общего состояния.
func DedupeParallel[T any](ctx context.Context, records []T, key KeyFunc[T], workers int) ([]T, error) {
	if workers <= 1 || len(records) < parallelThreshold {
		return Dedupe(records, key), nil
	}

	keys := make([]string, len(records))
	g, gctx := errgroup.WithContext(ctx)
	chunk := (len(records) + workers - 1) / workers
	for start := 0; start < len(records); start += chunk {
		end := min(start+chunk, len(records))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if i%1024 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				keys[i] = key(records[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	shards := make([][]int, workers)
	for i, k := range keys {
		s := xxh3.HashString(k) % uint64(workers)
		shards[s] = append(shards[s], i)
	}

	// каждый индекс принадлежит ровно одному шарду
	keep := make([]bool, len(records))
	g, gctx = errgroup.WithContext(ctx)
	for _, shard := range shards {
		g.Go(func() error {
			seen := make(map[string]struct{}, len(shard))
			for n, i := range shard {
				if n%1024 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				if _, dup := seen[keys[i]]; dup {
					continue
				}
				seen[keys[i]] = struct{}{}
				keep[i] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]T, 0, len(records))
	for i, ok := range keep {
		if ok {
			out = append(out, records[i])
		}
	}
	return out, nil
}

// compositeKey склеивает поля с префиксом длины, чтобы разные кортежи
// ("ab","c") и ("a","bc") не давали одинаковый ключ
func compositeKey(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strconv.Itoa(len(p)))
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

// DatabaseKey - ключ базы: имя
func DatabaseKey(r catalog.DatabaseRecord) string {
	return r.QualifiedName
}

// TableKey - ключ таблицы: (база, имя)
func TableKey(r catalog.TableRecord) string {
	return compositeKey(r.DatabaseName, r.QualifiedName)
}

// PartitionKey - ключ партиции: (база, таблица, значения...)
func PartitionKey(r catalog.PartitionRecord) string {
	parts := make([]string, 0, len(r.Values)+2)
	parts = append(parts, r.DatabaseName, r.TableName)
	parts = append(parts, r.Values...)
	return compositeKey(parts...)
}
