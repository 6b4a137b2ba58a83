package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"storefront/internal/domain"
)

// GetEntry retrieves a live session entry.
func (d *DB) GetEntry(ctx context.Context, sessionID, name string) (*domain.SessionEntry, error) {
	var (
		e       domain.SessionEntry
		expires sql.NullTime
	)
	err := d.sql.QueryRowContext(ctx,
		"SELECT name, value, expires_at FROM session_entries WHERE session_id = $1 AND name = $2 AND (expires_at IS NULL OR expires_at > $3)",
		sessionID, name, d.now().UTC(),
	).Scan(&e.Name, &e.Value, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if expires.Valid {
		e.ExpiresAt = expires.Time
	}
	return &e, nil
}

// PutEntry creates or replaces a session entry.
func (d *DB) PutEntry(ctx context.Context, sessionID string, e domain.SessionEntry) error {
	var expires sql.NullTime
	if !e.ExpiresAt.IsZero() {
		expires = sql.NullTime{Time: e.ExpiresAt.UTC(), Valid: true}
	}
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO session_entries (session_id, name, value, expires_at, created_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id, name) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		sessionID, e.Name, e.Value, expires, d.now().UTC(),
	)
	return err
}

// DeleteEntries deletes the named entries, or every entry of the session
// when no names are given.
func (d *DB) DeleteEntries(ctx context.Context, sessionID string, names ...string) error {
	if len(names) == 0 {
		_, err := d.sql.ExecContext(ctx, "DELETE FROM session_entries WHERE session_id = $1", sessionID)
		return err
	}
	_, err := d.sql.ExecContext(ctx,
		"DELETE FROM session_entries WHERE session_id = $1 AND name = ANY($2)",
		sessionID, pq.Array(names),
	)
	return err
}

// DeleteExpired deletes all expired session entries.
func (d *DB) DeleteExpired(ctx context.Context) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM session_entries WHERE expires_at IS NOT NULL AND expires_at <= $1", d.now().UTC())
	return err
}
