package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

const (
	maxRetries   = 3
	retryBackoff = 100 * time.Millisecond
)

// PostgresStore persists formulas in a PostgreSQL table. Writes retry a
// bounded number of times with linear backoff before giving up.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore connects to databaseURL, verifies the connection and
// ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string, logger *slog.Logger) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("database URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{db: db, logger: logger}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS formulas (
    formula    TEXT PRIMARY KEY,
    tipo       TEXT NOT NULL,
    usos       INTEGER NOT NULL DEFAULT 0,
    first_seen TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_seen  TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Upsert inserts the formula with a use count of 1, or bumps the counter of
// the existing row. The stored type is set at first insert and never changed
// afterwards.
func (s *PostgresStore) Upsert(ctx context.Context, formula, problemType string) (*Record, error) {
	const query = `
INSERT INTO formulas (formula, tipo, usos) VALUES ($1, $2, 1)
ON CONFLICT (formula)
DO UPDATE SET usos = formulas.usos + 1, last_seen = now()
RETURNING formula, tipo, usos, first_seen, last_seen`

	var rec Record
	err := s.withRetry(ctx, "upsert", func() error {
		row := s.db.QueryRowContext(ctx, query, formula, problemType)
		return row.Scan(&rec.Formula, &rec.Type, &rec.Uses, &rec.FirstSeen, &rec.LastSeen)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert formula: %w", err)
	}
	return &rec, nil
}

// Get returns the stored record for a formula, or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, formula string) (*Record, error) {
	const query = `
SELECT formula, tipo, usos, first_seen, last_seen FROM formulas WHERE formula = $1`

	var rec Record
	row := s.db.QueryRowContext(ctx, query, formula)
	err := row.Scan(&rec.Formula, &rec.Type, &rec.Uses, &rec.FirstSeen, &rec.LastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query formula: %w", err)
	}
	return &rec, nil
}

// Top returns the most frequently recognized formulas.
func (s *PostgresStore) Top(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
SELECT formula, tipo, usos, first_seen, last_seen FROM formulas
ORDER BY usos DESC, formula ASC LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top formulas: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Formula, &rec.Type, &rec.Uses, &rec.FirstSeen, &rec.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan formula row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading formula rows: %w", err)
	}
	return out, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// withRetry runs op up to maxRetries times with linear backoff. Context
// cancellation stops retrying immediately.
func (s *PostgresStore) withRetry(ctx context.Context, name string, op func() error) error {
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if attempt < maxRetries {
			s.logger.Warn("store operation failed, retrying",
				"op", name, "attempt", attempt, "error", err)
			select {
			case <-time.After(time.Duration(attempt) * retryBackoff):
			case <-ctx.Done():
				return err
			}
		}
	}
	return err
}
