package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DatabaseAppender пишет записи в SQL таблицу (SQLite/MySQL, плейсхолдеры "?")
type DatabaseAppender struct {
	mu         sync.Mutex
	db         *sql.DB
	tableName  string
	level      Level
	batchSize  int
	batchQueue []*Entry
	insertStmt *sql.Stmt
}

// DatabaseAppenderConfig - конфигурация database appender
type DatabaseAppenderConfig struct {
	DB        *sql.DB
	TableName string
	Level     Level

	// BatchSize - размер пакета вставки в одной транзакции (0 = без пакетов)
	BatchSize int

	AutoCreateTable bool
}

// NewDatabaseAppender - создать database appender
func NewDatabaseAppender(config DatabaseAppenderConfig) (*DatabaseAppender, error) {
	if config.DB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if config.TableName == "" {
		config.TableName = "migration_audit"
	}

	da := &DatabaseAppender{
		db:        config.DB,
		tableName: config.TableName,
		level:     config.Level,
		batchSize: config.BatchSize,
	}

	if config.AutoCreateTable {
		if err := da.createTable(); err != nil {
			return nil, fmt.Errorf("failed to create audit table: %w", err)
		}
	}

	stmt, err := da.db.Prepare(fmt.Sprintf(`
		INSERT INTO %s (
			id, timestamp, run_id, operation, status, mode, source, target, resource,
			records_affected, duration_ms, error_message, metadata, data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, da.tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	da.insertStmt = stmt

	return da, nil
}

func (da *DatabaseAppender) createTable() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL,
			run_id VARCHAR(64),
			operation VARCHAR(50) NOT NULL,
			status VARCHAR(20) NOT NULL,
			mode VARCHAR(20),
			source VARCHAR(1024),
			target VARCHAR(1024),
			resource VARCHAR(1024),
			records_affected BIGINT DEFAULT 0,
			duration_ms BIGINT DEFAULT 0,
			error_message TEXT,
			metadata TEXT,
			data TEXT
		)`, da.tableName)
	if _, err := da.db.Exec(query); err != nil {
		return err
	}

	for _, col := range []string{"timestamp", "run_id", "status"} {
		// индексы поддерживаются не везде
		_, _ = da.db.Exec(fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", da.tableName, col, da.tableName, col))
	}
	return nil
}

// Append - записать entry (или поставить в пакет)
func (da *DatabaseAppender) Append(ctx context.Context, entry *Entry) error {
	filtered := entry.FilterByLevel(da.level)

	da.mu.Lock()
	defer da.mu.Unlock()

	if da.batchSize > 0 {
		da.batchQueue = append(da.batchQueue, filtered)
		if len(da.batchQueue) >= da.batchSize {
			return da.flushBatch(ctx)
		}
		return nil
	}

	return da.insert(ctx, da.insertStmt, filtered)
}

func (da *DatabaseAppender) insert(ctx context.Context, stmt *sql.Stmt, entry *Entry) error {
	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		metadataJSON = []byte("{}")
	}
	dataJSON, err := json.Marshal(entry.Data)
	if err != nil {
		dataJSON = []byte("null")
	}

	_, err = stmt.ExecContext(ctx,
		entry.ID,
		entry.Timestamp.UTC(),
		entry.RunID,
		string(entry.Operation),
		string(entry.Status),
		entry.Mode,
		entry.Source,
		entry.Target,
		entry.Resource,
		entry.RecordsAffected,
		entry.Duration.Milliseconds(),
		entry.ErrorMessage,
		string(metadataJSON),
		string(dataJSON),
	)
	return err
}

func (da *DatabaseAppender) flushBatch(ctx context.Context) error {
	if len(da.batchQueue) == 0 {
		return nil
	}

	tx, err := da.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt := tx.StmtContext(ctx, da.insertStmt)
	defer stmt.Close()

	for _, entry := range da.batchQueue {
		if err := da.insert(ctx, stmt, entry); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	da.batchQueue = da.batchQueue[:0]
	return nil
}

// Flush - записать неполный пакет
func (da *DatabaseAppender) Flush() error {
	da.mu.Lock()
	defer da.mu.Unlock()
	return da.flushBatch(context.Background())
}

// Close - записать остаток и закрыть statement
func (da *DatabaseAppender) Close() error {
	if err := da.Flush(); err != nil {
		return err
	}
	return da.insertStmt.Close()
}

// QueryFilter - фильтр для выборки записей
type QueryFilter struct {
	RunID     string
	Operation Operation
	Status    Status
	Since     time.Time
	Limit     int
}

func (f QueryFilter) where() (string, []any) {
	var conds []string
	var args []any

	if f.RunID != "" {
		conds = append(conds, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.Operation != "" {
		conds = append(conds, "operation = ?")
		args = append(args, string(f.Operation))
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if !f.Since.IsZero() {
		conds = append(conds, "timestamp >= ?")
		args = append(args, f.Since.UTC())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Query - записи по фильтру, новые первыми
func (da *DatabaseAppender) Query(ctx context.Context, filter QueryFilter) ([]*Entry, error) {
	where, args := filter.where()
	query := fmt.Sprintf(`SELECT id, timestamp, run_id, operation, status, mode, source, target, resource,
		records_affected, duration_ms, error_message, metadata, data FROM %s%s ORDER BY timestamp DESC`, da.tableName, where)
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := da.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var (
			entry                  Entry
			operation, status      string
			metadataJSON, dataJSON sql.NullString
			durationMs             int64
		)
		err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.RunID, &operation, &status, &entry.Mode,
			&entry.Source, &entry.Target, &entry.Resource, &entry.RecordsAffected, &durationMs,
			&entry.ErrorMessage, &metadataJSON, &dataJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		entry.Operation = Operation(operation)
		entry.Status = Status(status)
		entry.Duration = time.Duration(durationMs) * time.Millisecond
		if metadataJSON.Valid && metadataJSON.String != "null" {
			_ = json.Unmarshal([]byte(metadataJSON.String), &entry.Metadata)
		}
		if dataJSON.Valid && dataJSON.String != "null" {
			_ = json.Unmarshal([]byte(dataJSON.String), &entry.Data)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return entries, nil
}

// Count - количество записей по фильтру
func (da *DatabaseAppender) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	where, args := filter.where()

	var count int64
	err := da.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s%s", da.tableName, where), args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}

// DeleteOlderThan - удалить записи старше before
func (da *DatabaseAppender) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := da.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE timestamp < ?", da.tableName), before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old entries: %w", err)
	}
	return result.RowsAffected()
}
