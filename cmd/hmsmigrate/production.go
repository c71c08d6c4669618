package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/ruslano69/hms-migrator/pkg/audit"
	"github.com/ruslano69/hms-migrator/pkg/etl"
	"github.com/ruslano69/hms-migrator/pkg/loader"
	"github.com/ruslano69/hms-migrator/pkg/metrics"
	"github.com/ruslano69/hms-migrator/pkg/resilience"
	"github.com/ruslano69/hms-migrator/pkg/resultlog"
	"github.com/ruslano69/hms-migrator/pkg/retry"
)

// ProductionFeatures holds the run-scoped infrastructure around the orchestrator
type ProductionFeatures struct {
	AuditLogger    *audit.AuditLogger
	CircuitBreaker *resilience.CircuitBreaker
	Retryer        *retry.Retryer
	Metrics        *metrics.Recorder
	ResultLog      *resultlog.RedisPublisher

	auditDB *sql.DB
	logger  zerolog.Logger
}

// InitProductionFeatures initializes all production features from config
func InitProductionFeatures(config *etl.MigrationConfig, runID string, logger zerolog.Logger) (*ProductionFeatures, error) {
	pf := &ProductionFeatures{logger: logger}

	if config.Audit.Enabled {
		if err := pf.initAuditLogger(config, runID); err != nil {
			pf.Close()
			return nil, fmt.Errorf("failed to initialize audit logger: %w", err)
		}
	}

	if config.CircuitBreaker.Enabled {
		cb, err := initCircuitBreaker(config.CircuitBreaker, logger)
		if err != nil {
			pf.Close()
			return nil, fmt.Errorf("failed to initialize circuit breaker: %w", err)
		}
		pf.CircuitBreaker = cb
	}

	if config.Retry.Enabled {
		r, err := initRetryer(config.Retry, logger)
		if err != nil {
			pf.Close()
			return nil, fmt.Errorf("failed to initialize retryer: %w", err)
		}
		pf.Retryer = r
	}

	if config.Metrics.Enabled {
		m, err := metrics.New(config.Metrics, map[string]string{"run_id": runID, "mode": config.Mode})
		if err != nil {
			pf.Close()
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
		pf.Metrics = m
	}

	if config.ResultLog.Enabled {
		pf.ResultLog = resultlog.NewRedisPublisher(config.ResultLog)
	}

	return pf, nil
}

// Guard returns the retry/circuit breaker wrapper for catalog calls
func (pf *ProductionFeatures) Guard() *loader.Guard {
	return &loader.Guard{Retryer: pf.Retryer, Breaker: pf.CircuitBreaker}
}

// Failures returns dead-lettered import units of this run
func (pf *ProductionFeatures) Failures() []retry.DLQEntry {
	if pf.Retryer == nil || pf.Retryer.GetDLQ() == nil {
		return nil
	}
	return pf.Retryer.GetDLQ().Get()
}

// Publish pushes metrics and publishes the run result. Errors are logged,
// they never change the exit status of the run.
func (pf *ProductionFeatures) Publish(ctx context.Context, p *etl.Processor, execErr error) {
	if err := pf.Metrics.Push(); err != nil {
		pf.logger.Warn().Err(err).Msg("metrics push failed")
	}

	if pf.ResultLog != nil {
		// partial load is not a failed run for the result log
		if errors.Is(execErr, etl.ErrPartialLoad) {
			execErr = nil
		}
		if err := pf.ResultLog.Publish(ctx, p.Result(), execErr); err != nil {
			pf.logger.Warn().Err(err).Msg("result publish failed")
		}
	}
}

// Close closes all production features
func (pf *ProductionFeatures) Close() error {
	var errs []error
	if pf.Retryer != nil {
		if err := pf.Retryer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close retryer: %w", err))
		}
	}
	if pf.AuditLogger != nil {
		if err := pf.AuditLogger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close audit logger: %w", err))
		}
	}
	if pf.auditDB != nil {
		if err := pf.auditDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close audit database: %w", err))
		}
	}
	if pf.ResultLog != nil {
		if err := pf.ResultLog.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close result log: %w", err))
		}
	}
	return errors.Join(errs...)
}

// initAuditLogger initializes audit logger from config
func (pf *ProductionFeatures) initAuditLogger(config *etl.MigrationConfig, runID string) error {
	cfg := config.Audit
	level, err := audit.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}

	var appenders []audit.Appender

	if cfg.Console {
		appenders = append(appenders, audit.NewLogAppender(pf.logger.With().Str("component", "audit").Logger()))
	}

	if cfg.File != "" {
		fileAppender, err := audit.NewFileAppender(audit.FileAppenderConfig{
			FilePath:   cfg.File,
			MaxSizeMB:  cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Level:      level,
		})
		if err != nil {
			return fmt.Errorf("failed to create file appender: %w", err)
		}
		appenders = append(appenders, fileAppender)
	}

	if cfg.Database != "" {
		db, err := sql.Open("sqlite", cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to open audit database: %w", err)
		}
		db.SetMaxOpenConns(1)
		pf.auditDB = db

		dbAppender, err := audit.NewDatabaseAppender(audit.DatabaseAppenderConfig{
			DB:              db,
			Level:           level,
			BatchSize:       100,
			AutoCreateTable: true,
		})
		if err != nil {
			return fmt.Errorf("failed to create database appender: %w", err)
		}
		appenders = append(appenders, dbAppender)
	}

	// If no appenders configured, log through the application logger
	if len(appenders) == 0 {
		appenders = append(appenders, audit.NewLogAppender(pf.logger))
	}

	pf.AuditLogger = audit.NewLogger(audit.LoggerConfig{
		AsyncMode:  true,
		BufferSize: 1000,
		RunID:      runID,
		Mode:       config.Mode,
		OnError: func(err error) {
			pf.logger.Warn().Err(err).Msg("audit write failed")
		},
	}, appenders...)
	return nil
}

// initCircuitBreaker initializes circuit breaker from config.
// Data errors of the catalog (AlreadyExists, InvalidInput) do not open it.
func initCircuitBreaker(cfg resilience.Config, logger zerolog.Logger) (*resilience.CircuitBreaker, error) {
	cfg.IsFailure = loader.IsServiceFailure
	cfg.OnStateChange = func(name string, from, to resilience.State) {
		logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
	}
	return resilience.New(cfg)
}

// initRetryer initializes retryer from config, classifying AWS SDK errors
func initRetryer(cfg retry.Config, logger zerolog.Logger) (*retry.Retryer, error) {
	if cfg.Classifier == nil && len(cfg.RetryableErrors) == 0 {
		cfg.Classifier = retry.IsRetryableAWS
	}
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Debug().Int("attempt", attempt).Dur("delay", delay).Err(err).Msg("retrying catalog call")
	}
	return retry.NewRetryer(cfg)
}
