package metastore

// Таблицы и колонки схемы Hive metastore, которые читает экстрактор
type table struct {
	name    string
	columns []string
}

var (
	tblDBS            = table{"DBS", []string{"DB_ID", "NAME", "DESC", "DB_LOCATION_URI"}}
	tblDatabaseParams = table{"DATABASE_PARAMS", []string{"DB_ID", "PARAM_KEY", "PARAM_VALUE"}}

	tblTBLS = table{"TBLS", []string{
		"TBL_ID", "DB_ID", "SD_ID", "TBL_NAME", "TBL_TYPE", "OWNER",
		"CREATE_TIME", "LAST_ACCESS_TIME", "RETENTION", "VIEW_ORIGINAL_TEXT", "VIEW_EXPANDED_TEXT",
	}}
	tblTableParams   = table{"TABLE_PARAMS", []string{"TBL_ID", "PARAM_KEY", "PARAM_VALUE"}}
	tblPartitionKeys = table{"PARTITION_KEYS", []string{"TBL_ID", "PKEY_NAME", "PKEY_TYPE", "PKEY_COMMENT", "INTEGER_IDX"}}

	tblSDS = table{"SDS", []string{
		"SD_ID", "CD_ID", "SERDE_ID", "LOCATION", "INPUT_FORMAT", "OUTPUT_FORMAT",
		"IS_COMPRESSED", "NUM_BUCKETS", "IS_STOREDASSUBDIRECTORIES",
	}}
	tblSDParams       = table{"SD_PARAMS", []string{"SD_ID", "PARAM_KEY", "PARAM_VALUE"}}
	tblSerdes         = table{"SERDES", []string{"SERDE_ID", "NAME", "SLIB"}}
	tblSerdeParams    = table{"SERDE_PARAMS", []string{"SERDE_ID", "PARAM_KEY", "PARAM_VALUE"}}
	tblColumns        = table{"COLUMNS_V2", []string{"CD_ID", "COLUMN_NAME", "TYPE_NAME", "COMMENT", "INTEGER_IDX"}}
	tblBucketingCols  = table{"BUCKETING_COLS", []string{"SD_ID", "BUCKET_COL_NAME", "INTEGER_IDX"}}
	tblSortCols       = table{"SORT_COLS", []string{"SD_ID", "COLUMN_NAME", "ORDER", "INTEGER_IDX"}}
	tblPartitions     = table{"PARTITIONS", []string{"PART_ID", "TBL_ID", "SD_ID", "CREATE_TIME", "LAST_ACCESS_TIME"}}
	tblPartitionParam = table{"PARTITION_PARAMS", []string{"PART_ID", "PARAM_KEY", "PARAM_VALUE"}}
	tblPartitionVals  = table{"PARTITION_KEY_VALS", []string{"PART_ID", "PART_KEY_VAL", "INTEGER_IDX"}}
)
