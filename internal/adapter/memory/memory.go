// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"sync"
	"time"

	"storefront/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.Mutex
	carts    map[string]domain.CartSnapshot
	sessions map[string]map[string]domain.SessionEntry
	now      func() time.Time
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		carts:    make(map[string]domain.CartSnapshot),
		sessions: make(map[string]map[string]domain.SessionEntry),
		now:      time.Now,
	}
}

// WithClock replaces the clock used for entry expiry.
func (db *DB) WithClock(now func() time.Time) *DB {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
	return db
}

// Ensure interfaces are met.
var _ domain.CartRepository = (*DB)(nil)
var _ domain.SessionRepository = (*DB)(nil)

// --- CartRepository ---

// LoadCart returns a copy of the stored snapshot.
func (db *DB) LoadCart(ctx context.Context, key string) (*domain.CartSnapshot, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	s, ok := db.carts[key]
	if !ok {
		return nil, nil
	}
	s.Items = append([]domain.CartLine(nil), s.Items...)
	return &s, nil
}

// SaveCart stores a copy of the snapshot.
func (db *DB) SaveCart(ctx context.Context, key string, s domain.CartSnapshot) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	s.Items = append([]domain.CartLine(nil), s.Items...)
	db.carts[key] = s
	return nil
}

// DeleteCart removes a stored cart.
func (db *DB) DeleteCart(ctx context.Context, key string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.carts, key)
	return nil
}

// --- SessionRepository ---

// GetEntry returns a live entry, dropping it if it has expired.
func (db *DB) GetEntry(ctx context.Context, sessionID, name string) (*domain.SessionEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	e, ok := db.sessions[sessionID][name]
	if !ok {
		return nil, nil
	}
	if !e.Live(db.now()) {
		delete(db.sessions[sessionID], name)
		return nil, nil
	}
	return &e, nil
}

// PutEntry creates or replaces an entry.
func (db *DB) PutEntry(ctx context.Context, sessionID string, e domain.SessionEntry) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	entries, ok := db.sessions[sessionID]
	if !ok {
		entries = make(map[string]domain.SessionEntry)
		db.sessions[sessionID] = entries
	}
	entries[e.Name] = e
	return nil
}

// DeleteEntries removes the named entries, or all of them when none are named.
func (db *DB) DeleteEntries(ctx context.Context, sessionID string, names ...string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if len(names) == 0 {
		delete(db.sessions, sessionID)
		return nil
	}
	for _, n := range names {
		delete(db.sessions[sessionID], n)
	}
	if len(db.sessions[sessionID]) == 0 {
		delete(db.sessions, sessionID)
	}
	return nil
}

// DeleteExpired deletes all expired entries.
func (db *DB) DeleteExpired(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := db.now()
	for id, entries := range db.sessions {
		for name, e := range entries {
			if !e.Live(now) {
				delete(entries, name)
			}
		}
		if len(entries) == 0 {
			delete(db.sessions, id)
		}
	}
	return nil
}
