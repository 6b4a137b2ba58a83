// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"storefront/internal/domain"
)

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql *sql.DB
	now func() time.Time
}

var _ domain.CartRepository = (*DB)(nil)
var _ domain.SessionRepository = (*DB)(nil)

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d := &DB{sql: s, now: time.Now}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cart_snapshots (
			key TEXT PRIMARY KEY,
			body JSONB NOT NULL,
			total_items INTEGER NOT NULL CHECK (total_items >= 0),
			total_price NUMERIC(14, 4) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_entries (
			session_id TEXT NOT NULL,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			expires_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (session_id, name)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_session_entries_expires_at ON session_entries(expires_at);`,
	}

	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
