package main

import (
	"flag"
	"io"
)

// Flags holds all command-line flags
type Flags struct {
	// Mode and config
	Mode   *string
	Config *string

	// Metastore database (connection/export)
	SourceType   *string
	SourceDSN    *string
	SourceSchema *string

	// Filter and prefixes (connection/export)
	Filter         *string
	DatabasePrefix *string
	TablePrefix    *string

	// AWS
	Region *string

	// Snapshot input (snapshot mode)
	DatabaseInputPath  *string
	TableInputPath     *string
	PartitionInputPath *string

	// Export output (export mode)
	OutputPath *string
	Compress   *bool

	// Load
	Target    *string
	BatchSize *int
	Workers   *int
	DryRun    *bool

	// Output
	Report  *string
	LogJSON *bool
	Verbose *bool

	// Misc
	Version *bool
	Help    *bool

	// set records the flags given explicitly on the command line
	set map[string]bool
}

// IsSet reports whether the flag was given on the command line
func (f *Flags) IsSet(name string) bool {
	return f.set[name]
}

// ParseFlags defines and parses all command-line flags
func ParseFlags(args []string, output io.Writer) (*Flags, error) {
	fs := flag.NewFlagSet("hmsmigrate", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() { PrintHelp(output) }

	f := &Flags{set: make(map[string]bool)}

	f.Mode = fs.String("mode", "", "Migration mode: connection (from-jdbc), snapshot (from-s3), export (to-s3)")
	f.Config = fs.String("config", "", "YAML configuration file")

	f.SourceType = fs.String("source-type", "", "Metastore database type: mysql, postgres, mssql, sqlite (connection/export)")
	f.SourceDSN = fs.String("source-dsn", "", "Metastore database DSN (connection/export)")
	f.SourceSchema = fs.String("source-schema", "", "Schema holding the metastore tables (connection/export)")

	f.Filter = fs.String("filter", "", "Comma-separated database.table LIKE patterns, e.g. 'sales.%,hr.emp_'")
	f.DatabasePrefix = fs.String("database-prefix", "", "Prefix added to database names (connection/export)")
	f.TablePrefix = fs.String("table-prefix", "", "Prefix added to table names (connection/export)")

	f.Region = fs.String("region", "", "AWS region of the target catalog (default: us-east-1)")

	f.DatabaseInputPath = fs.String("database-input-path", "", "Databases dataset of the snapshot (snapshot)")
	f.TableInputPath = fs.String("table-input-path", "", "Tables dataset of the snapshot (snapshot)")
	f.PartitionInputPath = fs.String("partition-input-path", "", "Partitions dataset of the snapshot (snapshot)")

	f.OutputPath = fs.String("output-path", "", "Directory or s3://bucket/prefix for the exported snapshot (export)")
	f.Compress = fs.Bool("compress", false, "Compress exported snapshot files with zstd (export)")

	f.Target = fs.String("target", "", "Load target: glue, kafka, rabbitmq, file")
	f.BatchSize = fs.Int("batch-size", 0, "Partitions per import batch (default: 100)")
	f.Workers = fs.Int("workers", 0, "Parallel workers (default: number of CPUs)")
	f.DryRun = fs.Bool("dry-run", false, "Transform without loading into the target")

	f.Report = fs.String("report", "", "Write an XLSX run report to this path")
	f.LogJSON = fs.Bool("log-json", false, "Log as JSON instead of console text")
	f.Verbose = fs.Bool("verbose", false, "Enable debug logging")

	f.Version = fs.Bool("version", false, "Show version information")
	f.Help = fs.Bool("help", false, "Show detailed help with examples")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })

	return f, nil
}
