package app

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/adapter/remote"
	"storefront/internal/domain"
)

// Sealer encrypts values before they reach the session store.
type Sealer interface {
	Seal(plaintext, ad string) (string, error)
	Open(sealed, ad string) (string, error)
}

// SessionTokens is one visitor's credential store, backed by session
// entries. Token values are sealed with the visitor id and entry name as
// associated data, so an entry cannot be replayed under another visitor.
type SessionTokens struct {
	visitor  string
	sessions domain.SessionRepository
	sealer   Sealer
}

var _ remote.TokenStore = (*SessionTokens)(nil)

// NewSessionTokens binds a token store to visitor.
func NewSessionTokens(visitor string, sessions domain.SessionRepository, sealer Sealer) *SessionTokens {
	return &SessionTokens{visitor: visitor, sessions: sessions, sealer: sealer}
}

// AccessToken returns the stored access token, if any.
func (t *SessionTokens) AccessToken(ctx context.Context) (domain.Token, bool, error) {
	return t.get(ctx, domain.EntryAccess)
}

// RefreshToken returns the stored refresh token, if any.
func (t *SessionTokens) RefreshToken(ctx context.Context) (domain.Token, bool, error) {
	return t.get(ctx, domain.EntryRefresh)
}

// SetAccessToken seals and stores tok as the access token.
func (t *SessionTokens) SetAccessToken(ctx context.Context, tok domain.Token) error {
	return t.put(ctx, domain.EntryAccess, tok.Value, tok.ExpiresAt)
}

// SetRefreshToken seals and stores tok as the refresh token.
func (t *SessionTokens) SetRefreshToken(ctx context.Context, tok domain.Token) error {
	return t.put(ctx, domain.EntryRefresh, tok.Value, tok.ExpiresAt)
}

// Clear removes the tokens and the cached profile.
func (t *SessionTokens) Clear(ctx context.Context) error {
	return t.sessions.DeleteEntries(ctx, t.visitor, domain.EntryAccess, domain.EntryRefresh, domain.EntryUser)
}

func (t *SessionTokens) ad(name string) string {
	return t.visitor + "/" + name
}

func (t *SessionTokens) get(ctx context.Context, name string) (domain.Token, bool, error) {
	v, e, err := t.getValue(ctx, name)
	if err != nil || e == nil {
		return domain.Token{}, false, err
	}
	return domain.Token{Value: v, ExpiresAt: e.ExpiresAt}, true, nil
}

func (t *SessionTokens) getValue(ctx context.Context, name string) (string, *domain.SessionEntry, error) {
	e, err := t.sessions.GetEntry(ctx, t.visitor, name)
	if err != nil {
		return "", nil, fmt.Errorf("read %s entry: %w", name, err)
	}
	if e == nil {
		return "", nil, nil
	}
	v, err := t.sealer.Open(e.Value, t.ad(name))
	if err != nil {
		// A value sealed under a previous secret is treated as absent.
		return "", nil, nil
	}
	return v, e, nil
}

func (t *SessionTokens) put(ctx context.Context, name, value string, expiresAt time.Time) error {
	sealed, err := t.sealer.Seal(value, t.ad(name))
	if err != nil {
		return fmt.Errorf("seal %s entry: %w", name, err)
	}
	return t.sessions.PutEntry(ctx, t.visitor, domain.SessionEntry{Name: name, Value: sealed, ExpiresAt: expiresAt})
}
