package etl

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ruslano69/hms-migrator/pkg/core/catalog"
	"github.com/ruslano69/hms-migrator/pkg/loader"
	"github.com/ruslano69/hms-migrator/pkg/resultlog"
	"github.com/ruslano69/hms-migrator/pkg/snapshot"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(t *testing.T, c *MigrationConfig)
	}{
		{
			name: "connection to glue",
			yaml: `
name: "nightly"
mode: "from-jdbc"
source:
  type: "mysql"
  dsn: "hive:secret@tcp(metastore:3306)/hive"
  timeout: 45s
filter: "sales.%,finance.ledger"
database_prefix: "prod_"
aws:
  region: "eu-west-1"
target:
  target: "glue"
  glue:
    catalog_id: "123456789012"
performance:
  batch_size: 50
  workers: 4
retry:
  enabled: true
  max_attempts: 3
  initial_delay: 100ms
  max_delay: 2s
`,
			check: func(t *testing.T, c *MigrationConfig) {
				if c.Mode != ModeConnection {
					t.Errorf("Mode = %q, want connection", c.Mode)
				}
				if c.Source.Timeout != 45*time.Second {
					t.Errorf("Source.Timeout = %v", c.Source.Timeout)
				}
				if c.Target.Glue.CatalogID != "123456789012" {
					t.Errorf("Glue.CatalogID = %q", c.Target.Glue.CatalogID)
				}
				if c.Retry.MaxAttempts != 3 || c.Retry.BackoffMultiplier != 2.0 {
					t.Errorf("Retry = %+v, defaults must survive partial section", c.Retry)
				}
				if c.Performance.BatchSize != 50 {
					t.Errorf("BatchSize = %d", c.Performance.BatchSize)
				}
			},
		},
		{
			name: "snapshot to kafka",
			yaml: `
mode: "snapshot"
input:
  databases: "s3://bucket/export/databases"
  tables: "s3://bucket/export/tables"
  partitions: "s3://bucket/export/partitions"
target:
  target: "kafka"
  broker:
    brokers: ["kafka:9092"]
    topic: "catalog"
`,
			check: func(t *testing.T, c *MigrationConfig) {
				if c.Input.Partitions != "s3://bucket/export/partitions" {
					t.Errorf("Input = %+v", c.Input)
				}
				if c.Target.Broker.Type != loader.TargetKafka {
					t.Errorf("Broker.Type = %q, want kafka", c.Target.Broker.Type)
				}
				if c.Performance.BatchSize != 100 {
					t.Errorf("BatchSize default = %d, want 100", c.Performance.BatchSize)
				}
			},
		},
		{
			name:    "broken yaml",
			yaml:    "mode: [connection",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tmpDir, strings.ReplaceAll(tt.name, " ", "_")+".yaml")
			if err := os.WriteFile(configPath, []byte(tt.yaml), 0644); err != nil {
				t.Fatalf("Failed to write test config: %v", err)
			}

			config, err := LoadConfig(configPath)
			if tt.wantErr {
				if err == nil {
					t.Errorf("LoadConfig() should return error for config: %s", tt.name)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig() unexpected error: %v", err)
			}

			config.SetDefaults()
			if err := config.Validate(); err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
			tt.check(t, config)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadConfig() should fail for a missing file")
	}
}

func validConnection() *MigrationConfig {
	c := DefaultConfig()
	c.Mode = ModeConnection
	c.Source = SourceConfig{Type: "postgres", DSN: "postgresql://hive@metastore/hive"}
	c.SetDefaults()
	return c
}

func TestMigrationConfig_Validate(t *testing.T) {
	snapshotPaths := snapshot.Paths{Databases: "in/db", Tables: "in/tbl", Partitions: "in/part"}

	tests := []struct {
		name   string
		modify func(c *MigrationConfig)
		errMsg string
	}{
		{"valid connection", func(c *MigrationConfig) {}, ""},
		{"unknown mode", func(c *MigrationConfig) { c.Mode = "from-hdfs" }, "unknown mode"},
		{"connection without source", func(c *MigrationConfig) { c.Source = SourceConfig{} }, "type is required"},
		{"unsupported source", func(c *MigrationConfig) { c.Source.Type = "oracle" }, "unsupported type 'oracle'"},
		{"connection with input paths", func(c *MigrationConfig) { c.Input = snapshotPaths }, "input paths are not allowed"},
		{
			"valid snapshot",
			func(c *MigrationConfig) {
				c.Mode = ModeSnapshot
				c.Source = SourceConfig{}
				c.Input = snapshotPaths
			},
			"",
		},
		{
			"snapshot missing partitions",
			func(c *MigrationConfig) {
				c.Mode = ModeSnapshot
				c.Source = SourceConfig{}
				c.Input = snapshot.Paths{Databases: "a", Tables: "b"}
			},
			"requires input.databases",
		},
		{
			"snapshot with prefix",
			func(c *MigrationConfig) {
				c.Mode = ModeSnapshot
				c.Source = SourceConfig{}
				c.Input = snapshotPaths
				c.TablePrefix = "x_"
			},
			"not allowed in snapshot mode",
		},
		{"export without output", func(c *MigrationConfig) { c.Mode = ModeExport }, "requires export.output_path"},
		{"output outside export", func(c *MigrationConfig) { c.Export.OutputPath = "out" }, "only allowed in export mode"},
		{"zero batch size", func(c *MigrationConfig) { c.Performance.BatchSize = 0 }, "batch_size must be positive"},
		{"glue batch limit", func(c *MigrationConfig) { c.Performance.BatchSize = 500 }, "exceeds Glue"},
		{"negative workers", func(c *MigrationConfig) { c.Performance.Workers = -1 }, "workers must not be negative"},
		{"bad region", func(c *MigrationConfig) { c.AWS.Region = "mars-north-1" }, "aws"},
		{"bad audit level", func(c *MigrationConfig) { c.Audit = AuditConfig{Enabled: true, Level: "verbose"} }, "audit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConnection()
			tt.modify(c)
			err := c.Validate()

			if tt.errMsg == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() should fail with %q", tt.errMsg)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, should contain %q", err, tt.errMsg)
			}
			if !errors.Is(err, catalog.ErrInvalidConfiguration) {
				t.Errorf("Validate() error %v is not ErrInvalidConfiguration", err)
			}
		})
	}
}

func TestMigrationConfig_ValidateFilter(t *testing.T) {
	c := validConnection()
	c.Filter = "sales"
	err := c.Validate()
	if !errors.Is(err, catalog.ErrInvalidFilterSyntax) {
		t.Errorf("Validate() error = %v, want ErrInvalidFilterSyntax", err)
	}
}

func TestNormalizeMode(t *testing.T) {
	tests := map[string]string{
		"from-jdbc":  ModeConnection,
		"from-s3":    ModeSnapshot,
		"TO-S3":      ModeExport,
		" snapshot ": ModeSnapshot,
		"export":     ModeExport,
	}
	for in, want := range tests {
		got, err := NormalizeMode(in)
		if err != nil || got != want {
			t.Errorf("NormalizeMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := NormalizeMode(""); err == nil {
		t.Error("NormalizeMode(\"\") should fail")
	}
}

func TestMigrationConfig_SetDefaults(t *testing.T) {
	c := &MigrationConfig{Mode: "to-s3", ResultLog: resultlog.Config{Enabled: true, Address: "localhost:6379"}}
	c.SetDefaults()

	if c.Name != "hms-migration" {
		t.Errorf("Name default = %q", c.Name)
	}
	if c.Mode != ModeExport {
		t.Errorf("Mode = %q, want export", c.Mode)
	}
	if c.AWS.Region != "us-east-1" {
		t.Errorf("Region default = %q", c.AWS.Region)
	}
	if c.Target.Target != loader.TargetGlue {
		t.Errorf("Target default = %q", c.Target.Target)
	}
	if c.Source.Timeout != 30*time.Second {
		t.Errorf("Source.Timeout default = %v", c.Source.Timeout)
	}
	if c.ResultLog.Name != "hms-migration" || c.ResultLog.TTL != 3600 {
		t.Errorf("ResultLog defaults = %+v", c.ResultLog)
	}
	if c.Metrics.Job != "hms_migration" {
		t.Errorf("Metrics.Job default = %q", c.Metrics.Job)
	}
}

func TestMigrationConfig_BatchSize(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		want    int
		wantErr bool
	}{
		{"zero means default", 0, 100, false},
		{"explicit size kept", 25, 25, false},
		{"glue limit", 100, 100, false},
		{"negative", -1, -1, true},
		{"over glue limit", 101, 101, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			c.Mode = ModeConnection
			c.Source = SourceConfig{Type: "postgres", DSN: "postgresql://hive@metastore/hive"}
			c.Performance.BatchSize = tt.size
			c.SetDefaults()

			if c.Performance.BatchSize != tt.want {
				t.Errorf("BatchSize = %d, want %d", c.Performance.BatchSize, tt.want)
			}
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, catalog.ErrInvalidConfiguration) {
				t.Errorf("error %v is not ErrInvalidConfiguration", err)
			}
		})
	}
}
