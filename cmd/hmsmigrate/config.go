package main

import (
	"fmt"

	"github.com/ruslano69/hms-migrator/pkg/etl"
)

// LoadConfig reads the YAML config (if any), overlays explicit flags,
// applies defaults and validates the result
func LoadConfig(flags *Flags) (*etl.MigrationConfig, error) {
	config := etl.DefaultConfig()
	if *flags.Config != "" {
		loaded, err := etl.LoadConfig(*flags.Config)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	applyFlags(config, flags)
	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// applyFlags overrides config values with flags given on the command line
func applyFlags(config *etl.MigrationConfig, flags *Flags) {
	if flags.IsSet("mode") {
		config.Mode = *flags.Mode
	}
	if flags.IsSet("source-type") {
		config.Source.Type = *flags.SourceType
	}
	if flags.IsSet("source-dsn") {
		config.Source.DSN = *flags.SourceDSN
	}
	if flags.IsSet("source-schema") {
		config.Source.Schema = *flags.SourceSchema
	}
	if flags.IsSet("filter") {
		config.Filter = *flags.Filter
	}
	if flags.IsSet("database-prefix") {
		config.DatabasePrefix = *flags.DatabasePrefix
	}
	if flags.IsSet("table-prefix") {
		config.TablePrefix = *flags.TablePrefix
	}
	if flags.IsSet("region") {
		config.AWS.Region = *flags.Region
	}

	if flags.IsSet("database-input-path") {
		config.Input.Databases = *flags.DatabaseInputPath
	}
	if flags.IsSet("table-input-path") {
		config.Input.Tables = *flags.TableInputPath
	}
	if flags.IsSet("partition-input-path") {
		config.Input.Partitions = *flags.PartitionInputPath
	}

	if flags.IsSet("output-path") {
		config.Export.OutputPath = *flags.OutputPath
	}
	if flags.IsSet("compress") {
		config.Export.Compress = *flags.Compress
	}

	if flags.IsSet("target") {
		config.Target.Target = *flags.Target
	}
	if flags.IsSet("batch-size") {
		config.Performance.BatchSize = *flags.BatchSize
	}
	if flags.IsSet("workers") {
		config.Performance.Workers = *flags.Workers
	}
	if flags.IsSet("dry-run") {
		config.DryRun = *flags.DryRun
	}
	if flags.IsSet("report") {
		config.Report = *flags.Report
	}
}
