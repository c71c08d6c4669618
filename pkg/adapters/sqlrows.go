package adapters

import (
	"database/sql"
	"fmt"
)

// SQLRows адаптирует *sql.Rows к интерфейсу Rows
type SQLRows struct {
	rows *sql.Rows
	cols int
}

// NewSQLRows оборачивает результат database/sql
func NewSQLRows(rows *sql.Rows) (*SQLRows, error) {
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	return &SQLRows{rows: rows, cols: len(cols)}, nil
}

func (r *SQLRows) Next() bool { return r.rows.Next() }

// Values сканирует текущую строку в []any
func (r *SQLRows) Values() ([]any, error) {
	values := make([]any, r.cols)
	ptrs := make([]any, r.cols)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}
	return values, nil
}

func (r *SQLRows) Err() error   { return r.rows.Err() }
func (r *SQLRows) Close() error { return r.rows.Close() }
