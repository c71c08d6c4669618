package catalog

// Типизированная модель payload. Метастор-экстрактор строит эти структуры
// и превращает их в Item через ToItem; Glue-загрузчик декодирует Item обратно
// через DecodeItem. JSON-теги совпадают с ключами контракта импорта.

// DatabaseInput - payload базы данных
type DatabaseInput struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	LocationURI string            `json:"locationUri,omitempty"`
	Parameters  map[string]string `json:"parameters,omitempty"`
}

// TableInput - payload таблицы
type TableInput struct {
	Name              string             `json:"name"`
	Description       string             `json:"description,omitempty"`
	Owner             string             `json:"owner,omitempty"`
	CreateTime        int64              `json:"createTime,omitempty"`
	LastAccessTime    int64              `json:"lastAccessTime,omitempty"`
	Retention         int32              `json:"retention,omitempty"`
	StorageDescriptor *StorageDescriptor `json:"storageDescriptor,omitempty"`
	PartitionKeys     []Column           `json:"partitionKeys,omitempty"`
	ViewOriginalText  string             `json:"viewOriginalText,omitempty"`
	ViewExpandedText  string             `json:"viewExpandedText,omitempty"`
	TableType         string             `json:"tableType,omitempty"`
	Parameters        map[string]string  `json:"parameters,omitempty"`
}

// PartitionInput - payload партиции
type PartitionInput struct {
	Values            []string           `json:"values"`
	CreationTime      int64              `json:"creationTime,omitempty"`
	LastAccessTime    int64              `json:"lastAccessTime,omitempty"`
	StorageDescriptor *StorageDescriptor `json:"storageDescriptor,omitempty"`
	Parameters        map[string]string  `json:"parameters,omitempty"`
}

// StorageDescriptor - физическое хранение таблицы или партиции
type StorageDescriptor struct {
	Columns                []Column          `json:"columns,omitempty"`
	Location               string            `json:"location,omitempty"`
	InputFormat            string            `json:"inputFormat,omitempty"`
	OutputFormat           string            `json:"outputFormat,omitempty"`
	Compressed             bool              `json:"compressed"`
	NumberOfBuckets        int32             `json:"numberOfBuckets"`
	SerdeInfo              *SerDeInfo        `json:"serdeInfo,omitempty"`
	BucketColumns          []string          `json:"bucketColumns,omitempty"`
	SortColumns            []Order           `json:"sortColumns,omitempty"`
	Parameters             map[string]string `json:"parameters,omitempty"`
	StoredAsSubDirectories bool              `json:"storedAsSubDirectories"`
}

// Column - колонка или ключ партиционирования
type Column struct {
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// SerDeInfo - сериализатор
type SerDeInfo struct {
	Name                 string            `json:"name,omitempty"`
	SerializationLibrary string            `json:"serializationLibrary,omitempty"`
	Parameters           map[string]string `json:"parameters,omitempty"`
}

// Order - колонка сортировки; SortOrder 1 = ASC, 0 = DESC
type Order struct {
	Column    string `json:"column"`
	SortOrder int32  `json:"sortOrder"`
}
