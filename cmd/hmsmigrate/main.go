package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	_ "github.com/ruslano69/hms-migrator/pkg/adapters/mssql"
	_ "github.com/ruslano69/hms-migrator/pkg/adapters/mysql"
	_ "github.com/ruslano69/hms-migrator/pkg/adapters/postgres"
	_ "github.com/ruslano69/hms-migrator/pkg/adapters/sqlite"

	"github.com/ruslano69/hms-migrator/pkg/etl"
	"github.com/ruslano69/hms-migrator/pkg/loader"
	"github.com/ruslano69/hms-migrator/pkg/report"
	"github.com/ruslano69/hms-migrator/pkg/security"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags, err := ParseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *flags.Version {
		PrintVersion(stdout)
		return 0
	}
	if *flags.Help {
		PrintHelp(stdout)
		return 0
	}

	logger := newLogger(stderr, *flags.LogJSON, *flags.Verbose)

	config, err := LoadConfig(flags)
	if err != nil {
		logger.Error().Err(err).Msg("config load failed")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	logger = logger.With().Str("run_id", runID).Str("mode", config.Mode).Logger()

	if security.IsAdmin() {
		logger.Warn().Str("user", security.CurrentUser()).Msg("running with administrative privileges; a read-only account is enough for migration")
	}

	if err := migrate(ctx, config, runID, logger); err != nil {
		if errors.Is(err, etl.ErrPartialLoad) {
			logger.Warn().Err(err).Msg("migration finished with failed import units")
		} else {
			logger.Error().Err(err).Msg("migration failed")
		}
		return 1
	}
	return 0
}

// migrate wires production features, the loader and the orchestrator for one run
func migrate(ctx context.Context, config *etl.MigrationConfig, runID string, logger zerolog.Logger) (err error) {
	features, err := InitProductionFeatures(config, runID, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := features.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("failed to close production features")
		}
	}()

	rt := etl.Runtime{
		RunID:   runID,
		Logger:  logger,
		User:    security.CurrentUser(),
		Metrics: features.Metrics,
	}
	if features.AuditLogger != nil {
		rt.Audit = features.AuditLogger
	}

	if config.Mode != etl.ModeExport && !config.DryRun {
		l, err := loader.New(ctx, config.Target, config.AWS, loader.Options{
			Guard:   features.Guard(),
			Workers: config.Performance.Workers,
			Logger:  logger.With().Str("component", "loader").Logger(),
		})
		if err != nil {
			return err
		}
		defer func() {
			if cerr := l.Close(); cerr != nil {
				logger.Warn().Err(cerr).Msg("failed to close loader")
			}
		}()
		rt.Loader = l
	}

	logger.Info().
		Str("source", config.Source.Type).
		Str("target", config.Target.Target).
		Str("filter", config.Filter).
		Bool("dry_run", config.DryRun).
		Msg("migration started")

	p := etl.NewProcessor(config, rt)
	err = p.Execute(ctx)

	stats := p.Stats()
	logger.Info().
		Str("status", etl.Status(err)).
		Int("databases", stats.Transform.DatabasesOut).
		Int("tables", stats.Transform.TablesOut).
		Int("partitions", stats.Transform.PartitionsOut).
		Int("batches", stats.Transform.Batches).
		Int("failed", stats.Load.Failed()).
		Dur("duration", stats.Duration).
		Msg("migration finished")

	if config.Report != "" {
		if rerr := report.Write(config.Report, p.Report(features.Failures(), err)); rerr != nil {
			logger.Warn().Err(rerr).Str("path", config.Report).Msg("report write failed")
		} else {
			logger.Info().Str("path", config.Report).Msg("report written")
		}
	}

	// Publishing must outlive a cancelled run
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	features.Publish(pubCtx, p, err)

	return err
}

// newLogger builds the application logger: console text by default, JSON for log shippers
func newLogger(w io.Writer, json, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if !json {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
