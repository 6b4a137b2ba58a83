package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"storefront/internal/domain"
)

// LoadCart returns the snapshot stored under key.
func (d *DB) LoadCart(ctx context.Context, key string) (*domain.CartSnapshot, error) {
	var body []byte
	err := d.sql.QueryRowContext(ctx, "SELECT body FROM cart_snapshots WHERE key = $1;", key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s domain.CartSnapshot
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", key, err)
	}
	return &s, nil
}

// SaveCart upserts the snapshot. The totals are duplicated into columns for
// reporting queries.
func (d *DB) SaveCart(ctx context.Context, key string, s domain.CartSnapshot) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", key, err)
	}
	_, err = d.sql.ExecContext(ctx,
		`INSERT INTO cart_snapshots(key, body, total_items, total_price, updated_at) VALUES($1, $2, $3, $4, $5)
		 ON CONFLICT (key) DO UPDATE SET body = EXCLUDED.body, total_items = EXCLUDED.total_items,
		 total_price = EXCLUDED.total_price, updated_at = EXCLUDED.updated_at;`,
		key, body, s.TotalItems, s.TotalPrice.String(), d.now().UTC(),
	)
	return err
}

// DeleteCart removes the snapshot stored under key.
func (d *DB) DeleteCart(ctx context.Context, key string) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM cart_snapshots WHERE key = $1;", key)
	return err
}
