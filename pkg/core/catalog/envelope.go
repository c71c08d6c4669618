package catalog

// ImportDatabase - единица импорта базы: {type, items:[payload]}
type ImportDatabase struct {
	Type  string `json:"type"`
	Items []Item `json:"items"`
}

// ImportTable - единица импорта таблицы: {type, database, items:[payload]}
type ImportTable struct {
	Type     string `json:"type"`
	Database string `json:"database"`
	Items    []Item `json:"items"`
}

// ImportPartitions - единица импорта батча партиций: {database, table, items:[...]}
type ImportPartitions struct {
	Database string `json:"database"`
	Table    string `json:"table"`
	Items    []Item `json:"items"`
}

// ImportSet - три независимые коллекции, готовые к загрузке
type ImportSet struct {
	Databases  []ImportDatabase
	Tables     []ImportTable
	Partitions []ImportPartitions
}

// PartitionCount возвращает суммарное число партиций во всех батчах
func (s *ImportSet) PartitionCount() int {
	n := 0
	for _, p := range s.Partitions {
		n += len(p.Items)
	}
	return n
}

// Empty reports whether there is nothing to load.
func (s *ImportSet) Empty() bool {
	return len(s.Databases) == 0 && len(s.Tables) == 0 && len(s.Partitions) == 0
}
