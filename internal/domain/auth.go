// Package domain contains the core storefront entities and ports.
package domain

import (
	"context"
	"time"
)

// Names of the cookie-like session entries.
const (
	EntryAccess  = "access"
	EntryRefresh = "refresh"
	EntryUser    = "user"
)

// Token is a credential with an optional expiry. A zero ExpiresAt means the
// expiry is unknown and the token is used until the server rejects it.
type Token struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether t is empty or past its expiry at now.
func (t Token) Expired(now time.Time) bool {
	if t.Value == "" {
		return true
	}
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// AuthSession is the pair of credentials held for a signed-in visitor.
type AuthSession struct {
	Access  Token `json:"access"`
	Refresh Token `json:"refresh"`
}

// SessionEntry is one cookie-like value stored for a visitor.
type SessionEntry struct {
	Name      string
	Value     string
	ExpiresAt time.Time
}

// Live reports whether the entry has not expired at now.
func (e SessionEntry) Live(now time.Time) bool {
	return e.ExpiresAt.IsZero() || now.Before(e.ExpiresAt)
}

// SessionRepository is the port for per-visitor session entries. Each entry
// expires independently; expired entries read as absent.
type SessionRepository interface {
	// GetEntry returns nil, nil when the entry is absent or expired.
	GetEntry(ctx context.Context, sessionID, name string) (*SessionEntry, error)
	PutEntry(ctx context.Context, sessionID string, e SessionEntry) error
	DeleteEntries(ctx context.Context, sessionID string, names ...string) error
	DeleteExpired(ctx context.Context) error
}
