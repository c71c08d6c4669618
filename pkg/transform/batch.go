package transform

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
)

// DefaultMaxBatchSize - максимум партиций в одном вызове BatchCreatePartition
const DefaultMaxBatchSize = 100

type tableKey struct {
	database string
	table    string
}

// groupPartitions группирует партиции по (база, таблица).
// Группы идут в порядке первого появления, внутри группы порядок входа.
func groupPartitions(partitions []catalog.PartitionRecord) [][]catalog.PartitionRecord {
	index := make(map[tableKey]int)
	var groups [][]catalog.PartitionRecord
	for _, p := range partitions {
		k := tableKey{p.DatabaseName, p.TableName}
		gi, ok := index[k]
		if !ok {
			gi = len(groups)
			index[k] = gi
			groups = append(groups, nil)
		}
		groups[gi] = append(groups[gi], p)
	}
	return groups
}

// chunkGroup разбивает партиции одной таблицы на последовательные куски
// не больше maxBatchSize; последний кусок может быть меньше
func chunkGroup(group []catalog.PartitionRecord, maxBatchSize int) []catalog.PartitionBatch {
	if len(group) == 0 {
		return nil
	}
	batches := make([]catalog.PartitionBatch, 0, (len(group)+maxBatchSize-1)/maxBatchSize)
	for start := 0; start < len(group); start += maxBatchSize {
		end := min(start+maxBatchSize, len(group))
		batches = append(batches, catalog.PartitionBatch{
			DatabaseName: group[0].DatabaseName,
			TableName:    group[0].TableName,
			Partitions:   slices.Clone(group[start:end]),
		})
	}
	return batches
}

func validateBatchSize(maxBatchSize int) error {
	if maxBatchSize <= 0 {
		return fmt.Errorf("%w: max batch size must be positive, got %d", catalog.ErrInvalidConfiguration, maxBatchSize)
	}
	return nil
}

// BatchPartitions группирует партиции по таблицам и режет каждую группу
// на батчи не больше maxBatchSize. Пустые батчи не создаются.
func BatchPartitions(partitions []catalog.PartitionRecord, maxBatchSize int) ([]catalog.PartitionBatch, error) {
	if err := validateBatchSize(maxBatchSize); err != nil {
		return nil, err
	}

	var batches []catalog.PartitionBatch
	for _, group := range groupPartitions(partitions) {
		batches = append(batches, chunkGroup(group, maxBatchSize)...)
	}
	return batches, nil
}

// BatchPartitionsParallel - BatchPartitions с нарезкой групп в workers горутинах.
// Каждая группа пишет только в свой слот, результат склеивается в порядке групп,
// поэтому выход идентичен последовательной версии.
func BatchPartitionsParallel(ctx context.Context, partitions []catalog.PartitionRecord, maxBatchSize, workers int) ([]catalog.PartitionBatch, error) {
	if err := validateBatchSize(maxBatchSize); err != nil {
		return nil, err
	}
	if workers <= 1 {
		return BatchPartitions(partitions, maxBatchSize)
	}

	groups := groupPartitions(partitions)
	slots := make([][]catalog.PartitionBatch, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for gi, group := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[gi] = chunkGroup(group, maxBatchSize)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var batches []catalog.PartitionBatch
	for _, s := range slots {
		batches = append(batches, s...)
	}
	return batches, nil
}
