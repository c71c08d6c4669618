package transform

import (
	"fmt"

	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
)

func dbRec(name string) catalog.DatabaseRecord {
	return catalog.NewDatabaseRecord(catalog.Item{"name": name})
}

func tblRec(db, name string) catalog.TableRecord {
	return catalog.NewTableRecord(db, catalog.Item{"name": name})
}

func partRec(db, table string, values ...string) catalog.PartitionRecord {
	return catalog.NewPartitionRecord(db, table, catalog.Item{"values": values})
}

// nPartitions генерирует n партиций с уникальными значениями
func nPartitions(db, table string, n int) []catalog.PartitionRecord {
	out := make([]catalog.PartitionRecord, n)
	for i := range out {
		out[i] = partRec(db, table, fmt.Sprintf("2024-%04d", i))
	}
	return out
}
