package store

import (
	"context"
	"database/sql"
	"log/slog"
)

// Rows is the subset of *sql.Rows that scanRows needs.
type Rows interface {
	Next() bool
	Columns() ([]string, error)
	Scan(dest ...any) error
	Err() error
	Close() error
}

// QueryExecutor runs one read query.
type QueryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
}

// dbExecutor runs queries on the pool and logs each statement at debug.
type dbExecutor struct {
	db     *sql.DB
	logger *slog.Logger
}

func newExecutor(db *sql.DB, logger *slog.Logger) *dbExecutor {
	return &dbExecutor{db: db, logger: logger}
}

func (e *dbExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	e.logger.DebugContext(ctx, "sql", slog.String("statement", query), slog.Int("args", len(args)))
	return e.db.QueryContext(ctx, query, args...)
}
