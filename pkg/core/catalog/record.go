package catalog

// Discriminators of the import envelopes
const (
	TypeDatabase = "database"
	TypeTable    = "table"
)

// DatabaseRecord - извлеченная запись базы данных
type DatabaseRecord struct {
	Type          string
	QualifiedName string
	Item          Item
}

// TableRecord - извлеченная запись таблицы.
// QualifiedName - item.name, то есть имя таблицы внутри базы.
type TableRecord struct {
	Type          string
	DatabaseName  string
	QualifiedName string
	Item          Item
}

// FullName возвращает "database.table"
func (r TableRecord) FullName() string {
	return r.DatabaseName + "." + r.QualifiedName
}

// PartitionRecord - извлеченная запись партиции
type PartitionRecord struct {
	DatabaseName string
	TableName    string
	Values       []string
	Item         Item
}

// NewDatabaseRecord строит запись из payload, имя берется из item.name
func NewDatabaseRecord(item Item) DatabaseRecord {
	return DatabaseRecord{Type: TypeDatabase, QualifiedName: item.Name(), Item: item}
}

// NewTableRecord строит запись таблицы базы database
func NewTableRecord(database string, item Item) TableRecord {
	return TableRecord{Type: TypeTable, DatabaseName: database, QualifiedName: item.Name(), Item: item}
}

// NewPartitionRecord строит запись партиции, значения берутся из item.values
func NewPartitionRecord(database, table string, item Item) PartitionRecord {
	return PartitionRecord{DatabaseName: database, TableName: table, Values: item.Values(), Item: item}
}

// Snapshot - три коллекции записей одного источника
type Snapshot struct {
	Databases  []DatabaseRecord
	Tables     []TableRecord
	Partitions []PartitionRecord
}

// Counts возвращает размеры коллекций
func (s *Snapshot) Counts() (databases, tables, partitions int) {
	return len(s.Databases), len(s.Tables), len(s.Partitions)
}

// PartitionBatch - группа партиций одной таблицы для одного вызова bulk-импорта.
// Содержит от 1 до MaxBatchSize партиций.
type PartitionBatch struct {
	DatabaseName string
	TableName    string
	Partitions   []PartitionRecord
}

// Len возвращает количество партиций в батче
func (b PartitionBatch) Len() int {
	return len(b.Partitions)
}
