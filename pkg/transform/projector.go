package transform

import "github.com/ruslano69/hms-migrator/pkg/core/catalog"

// Project перекладывает отфильтрованные и дедуплицированные записи
// в конверты bulk-импорта. Чистое преобразование: без фильтрации,
// дедупликации и проверки ссылок между коллекциями.
func Project(databases []catalog.DatabaseRecord, tables []catalog.TableRecord, batches []catalog.PartitionBatch) catalog.ImportSet {
	set := catalog.ImportSet{
		Databases:  make([]catalog.ImportDatabase, 0, len(databases)),
		Tables:     make([]catalog.ImportTable, 0, len(tables)),
		Partitions: make([]catalog.ImportPartitions, 0, len(batches)),
	}

	for _, d := range databases {
		set.Databases = append(set.Databases, catalog.ImportDatabase{
			Type:  d.Type,
			Items: []catalog.Item{d.Item},
		})
	}

	for _, t := range tables {
		set.Tables = append(set.Tables, catalog.ImportTable{
			Type:     t.Type,
			Database: t.DatabaseName,
			Items:    []catalog.Item{t.Item},
		})
	}

	for _, b := range batches {
		items := make([]catalog.Item, len(b.Partitions))
		for i, p := range b.Partitions {
			items[i] = p.Item
		}
		set.Partitions = append(set.Partitions, catalog.ImportPartitions{
			Database: b.DatabaseName,
			Table:    b.TableName,
			Items:    items,
		})
	}

	return set
}
