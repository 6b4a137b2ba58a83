// Package redis implements the domain repositories on top of Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"storefront/internal/domain"
)

// Store keeps carts as JSON strings without expiry and session entries as
// individual keys whose TTL mirrors the entry expiry.
type Store struct {
	client *goredis.Client
	prefix string
}

var _ domain.CartRepository = (*Store)(nil)
var _ domain.SessionRepository = (*Store)(nil)

// Open connects to addr and pings it.
func Open(addr, password string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewStore(client, "storefront:"), nil
}

// NewStore wraps an existing client. Every key is prefixed with prefix.
func NewStore(client *goredis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) cartKey(key string) string {
	return s.prefix + key
}

func (s *Store) entryKey(sessionID, name string) string {
	return s.prefix + "session:" + sessionID + ":" + name
}

// LoadCart returns the snapshot stored under key, or nil when there is none.
func (s *Store) LoadCart(ctx context.Context, key string) (*domain.CartSnapshot, error) {
	val, err := s.client.Get(ctx, s.cartKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap domain.CartSnapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return nil, fmt.Errorf("cart: failed to unmarshal: %w", err)
	}
	return &snap, nil
}

// SaveCart stores snap under key without expiry.
func (s *Store) SaveCart(ctx context.Context, key string, snap domain.CartSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cart: failed to marshal: %w", err)
	}
	return s.client.Set(ctx, s.cartKey(key), data, 0).Err()
}

// DeleteCart removes the snapshot stored under key.
func (s *Store) DeleteCart(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.cartKey(key)).Err()
}

type storedEntry struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// GetEntry returns a live session entry, or nil when it is missing or
// expired.
func (s *Store) GetEntry(ctx context.Context, sessionID, name string) (*domain.SessionEntry, error) {
	val, err := s.client.Get(ctx, s.entryKey(sessionID, name)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st storedEntry
	if err := json.Unmarshal(val, &st); err != nil {
		return nil, fmt.Errorf("session: failed to unmarshal: %w", err)
	}
	e := domain.SessionEntry{Name: name, Value: st.Value, ExpiresAt: st.ExpiresAt}
	if !e.Live(time.Now()) {
		return nil, nil
	}
	return &e, nil
}

// PutEntry stores e. An entry that is already expired deletes the key
// instead.
func (s *Store) PutEntry(ctx context.Context, sessionID string, e domain.SessionEntry) error {
	if sessionID == "" || e.Name == "" {
		return fmt.Errorf("session: missing session id or entry name")
	}
	var ttl time.Duration
	if !e.ExpiresAt.IsZero() {
		ttl = time.Until(e.ExpiresAt)
		if ttl <= 0 {
			return s.client.Del(ctx, s.entryKey(sessionID, e.Name)).Err()
		}
	}
	data, err := json.Marshal(storedEntry{Value: e.Value, ExpiresAt: e.ExpiresAt})
	if err != nil {
		return fmt.Errorf("session: failed to marshal: %w", err)
	}
	return s.client.Set(ctx, s.entryKey(sessionID, e.Name), data, ttl).Err()
}

// DeleteEntries removes the named entries of a session, or all of them when
// no names are given.
func (s *Store) DeleteEntries(ctx context.Context, sessionID string, names ...string) error {
	var keys []string
	if len(names) == 0 {
		iter := s.client.Scan(ctx, 0, s.entryKey(sessionID, "*"), 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return err
		}
	} else {
		for _, n := range names {
			keys = append(keys, s.entryKey(sessionID, n))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// DeleteExpired is a no-op; Redis evicts expired keys on its own.
func (s *Store) DeleteExpired(context.Context) error {
	return nil
}
