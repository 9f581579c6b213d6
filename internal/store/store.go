// Package store reads inventory rows from Postgres using SQL rendered by
// sqlfilter. It owns the connection pool and the embedded migrations.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/jackc/pgx/v5/stdlib"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/TakashiAihara/preppin-sub000/internal/model"
	"github.com/TakashiAihara/preppin-sub000/internal/sqlfilter"
)

// ErrNotConfigured is returned by every operation of a store opened
// without a DSN.
var ErrNotConfigured = errors.New("database not configured")

// Config holds connection parameters.
type Config struct {
	DSN            string
	MaxOpen        int
	MaxIdle        int
	MaxLifetime    time.Duration
	ConnectTimeout time.Duration
	RetryInterval  time.Duration
	Tracing        bool
	Metrics        bool
	SQLCommenter   bool
}

// Store executes rendered queries against one database.
type Store struct {
	db       *sql.DB
	exec     QueryExecutor
	model    *model.Schema
	compiler *sqlfilter.Compiler
	stats    interface{ Unregister() error }
	logger   *slog.Logger
}

// New wraps an open database handle.
func New(db *sql.DB, m *model.Schema, compiler *sqlfilter.Compiler, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:       db,
		exec:     newExecutor(db, logger),
		model:    m,
		compiler: compiler,
		logger:   logger,
	}
}

// Disabled returns a store whose operations fail with ErrNotConfigured.
func Disabled() *Store {
	return &Store{logger: slog.Default()}
}

// Open connects to cfg.DSN through the pgx driver, instrumented with
// otelsql when tracing or metrics are on, and waits for the database to
// answer. An empty DSN yields a disabled store.
func Open(ctx context.Context, cfg Config, m *model.Schema, compiler *sqlfilter.Compiler, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DSN == "" {
		logger.Info("no database configured, entity queries disabled")
		return &Store{logger: logger}, nil
	}

	var (
		db    *sql.DB
		stats interface{ Unregister() error }
		err   error
	)
	if cfg.Tracing || cfg.Metrics {
		opts := []otelsql.Option{otelsql.WithAttributes(semconv.DBSystemPostgreSQL)}
		if cfg.Tracing {
			opts = append(opts, otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}))
			if cfg.SQLCommenter {
				opts = append(opts, otelsql.WithSQLCommenter(true))
			}
		}
		db, err = otelsql.Open("pgx", cfg.DSN, opts...)
		if err != nil {
			return nil, err
		}
		if cfg.Metrics {
			stats, err = otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(semconv.DBSystemPostgreSQL))
			if err != nil {
				logger.Warn("failed to register DB stats metrics", slog.String("error", err.Error()))
			}
		}
	} else {
		db, err = sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, err
		}
	}

	if cfg.MaxOpen > 0 {
		db.SetMaxOpenConns(cfg.MaxOpen)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	if cfg.MaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxLifetime)
	}

	if err := waitForDatabase(ctx, db, cfg.ConnectTimeout, cfg.RetryInterval, logger); err != nil {
		_ = db.Close()
		if stats != nil {
			_ = stats.Unregister()
		}
		return nil, err
	}

	s := New(db, m, compiler, logger)
	s.stats = stats
	logger.Info("connected to database",
		slog.Int("pool_max_open", cfg.MaxOpen),
		slog.Int("pool_max_idle", cfg.MaxIdle),
		slog.Duration("pool_max_lifetime", cfg.MaxLifetime),
		slog.Bool("tracing", cfg.Tracing),
		slog.Bool("metrics", cfg.Metrics),
	)
	return s, nil
}

func waitForDatabase(ctx context.Context, db *sql.DB, timeout, interval time.Duration, logger *slog.Logger) error {
	if timeout == 0 {
		return db.PingContext(ctx)
	}
	if interval <= 0 {
		interval = time.Second
	}

	deadline := time.Now().Add(timeout)
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		attempt++
		err := db.PingContext(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("database connection established", slog.Int("attempts", attempt))
			}
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("database not available after %v: %w", timeout, err)
		}
		logger.Warn("database not ready, retrying...",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", interval),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		interval = min(interval*2, 30*time.Second)
	}
}

// Enabled reports whether the store has a database behind it.
func (s *Store) Enabled() bool {
	return s != nil && s.db != nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	return s.db.PingContext(ctx)
}

// Close releases the pool and the stats registration.
func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	if s.stats != nil {
		if err := s.stats.Unregister(); err != nil {
			s.logger.Warn("failed to unregister DB stats metrics", slog.String("error", err.Error()))
		}
	}
	return s.db.Close()
}

// FindMany runs validated FindManyArgs of entity and returns one map per
// row keyed by field name.
func (s *Store) FindMany(ctx context.Context, entity string, args map[string]any) ([]map[string]any, error) {
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}
	e, ok := s.model.Entity(entity)
	if !ok {
		return nil, fmt.Errorf("%w: %s", sqlfilter.ErrUnknownEntity, entity)
	}
	q, err := s.compiler.FindManySQL(entity, args)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := s.exec.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", entity, err)
	}
	defer rows.Close()

	out, err := scanRows(e, rows)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", entity, err)
	}
	s.logger.DebugContext(ctx, "find many",
		slog.String("entity", entity),
		slog.Int("rows", len(out)),
		slog.Duration("duration", time.Since(start)),
	)
	return out, nil
}
