package main

import (
	"fmt"
	"io"
)

const version = "1.0.0"

// PrintVersion prints version information
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "hmsmigrate version %s\n", version)
	fmt.Fprintln(w, "Hive metastore to data catalog migration")
}

// PrintHelp prints comprehensive help information
func PrintHelp(w io.Writer) {
	fmt.Fprintln(w, "hmsmigrate - migrate Hive metastore databases, tables and partitions into a data catalog")
	fmt.Fprintf(w, "Version: %s\n\n", version)

	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  hmsmigrate -mode <mode> [options]")
	fmt.Fprintln(w, "  hmsmigrate -config migration.yaml [options]")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "MODES:")
	fmt.Fprintln(w, "  connection (from-jdbc)   Read the live metastore database and load the catalog")
	fmt.Fprintln(w, "  snapshot   (from-s3)     Read a JSON Lines snapshot and load the catalog")
	fmt.Fprintln(w, "  export     (to-s3)       Read the live metastore database and write a snapshot")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "OPTIONS:")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  General:")
	fmt.Fprintln(w, "    -config <file>                 YAML configuration (source, target, retry, audit...)")
	fmt.Fprintln(w, "    -region <name>                 AWS region (default: us-east-1)")
	fmt.Fprintln(w, "    -target <name>                 glue, kafka, rabbitmq, file (default: glue)")
	fmt.Fprintln(w, "    -batch-size <n>                Partitions per import batch (default: 100)")
	fmt.Fprintln(w, "    -workers <n>                   Parallel workers (default: number of CPUs)")
	fmt.Fprintln(w, "    -dry-run                       Transform only, do not load")
	fmt.Fprintln(w, "    -report <file.xlsx>            Write an XLSX run report")
	fmt.Fprintln(w, "    -log-json                      JSON logs on stderr")
	fmt.Fprintln(w, "    -verbose                       Debug logs")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  Connection and export modes:")
	fmt.Fprintln(w, "    -source-type <type>            Metastore database: mysql, postgres, mssql, sqlite")
	fmt.Fprintln(w, "    -source-dsn <dsn>              Metastore database DSN")
	fmt.Fprintln(w, "    -source-schema <name>          Schema of the metastore tables")
	fmt.Fprintln(w, "    -filter <patterns>             database.table LIKE patterns, '%' and '_' wildcards")
	fmt.Fprintln(w, "    -database-prefix <prefix>      Prefix for database names")
	fmt.Fprintln(w, "    -table-prefix <prefix>         Prefix for table names")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  Snapshot mode:")
	fmt.Fprintln(w, "    -database-input-path <path>    Databases dataset (file, directory or s3://)")
	fmt.Fprintln(w, "    -table-input-path <path>       Tables dataset")
	fmt.Fprintln(w, "    -partition-input-path <path>   Partitions dataset")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  Export mode:")
	fmt.Fprintln(w, "    -output-path <path>            Directory or s3://bucket/prefix")
	fmt.Fprintln(w, "    -compress                      zstd-compress snapshot files")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "EXAMPLES:")
	fmt.Fprintln(w, "  hmsmigrate -config prod.yaml -mode connection -filter 'sales.%,finance.ledger'")
	fmt.Fprintln(w, "  hmsmigrate -mode from-jdbc -source-type mysql \\")
	fmt.Fprintln(w, "      -source-dsn 'hive:secret@tcp(metastore:3306)/hive' -filter 'sales.%' -dry-run")
	fmt.Fprintln(w, "  hmsmigrate -mode snapshot -config glue.yaml \\")
	fmt.Fprintln(w, "      -database-input-path s3://bucket/hms/databases \\")
	fmt.Fprintln(w, "      -table-input-path s3://bucket/hms/tables \\")
	fmt.Fprintln(w, "      -partition-input-path s3://bucket/hms/partitions")
	fmt.Fprintln(w, "  hmsmigrate -mode export -config prod.yaml -output-path s3://bucket/hms -compress")
}
