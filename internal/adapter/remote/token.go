package remote

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"storefront/internal/domain"
)

// TokenData is a token as the API sends it.
type TokenData struct {
	Value   string `json:"value"`
	Expires string `json:"expires"`
	MaxAge  *int64 `json:"max_age,omitempty"`
}

// AuthTokens is the access/refresh pair returned by sign-in and sign-up.
type AuthTokens struct {
	Access  TokenData `json:"access"`
	Refresh TokenData `json:"refresh"`
}

// Session converts the wire tokens into a domain session.
func (t AuthTokens) Session(now time.Time) domain.AuthSession {
	return domain.AuthSession{Access: t.Access.Token(now), Refresh: t.Refresh.Token(now)}
}

var expiryLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	http.TimeFormat,
	time.RFC1123,
	time.RFC1123Z,
	"Mon, 02-Jan-2006 15:04:05 MST",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02T15:04:05.999999",
}

// Token resolves the expiry from the expires field, then max_age, then the
// JWT exp claim. A token whose expiry cannot be determined gets none.
func (d TokenData) Token(now time.Time) domain.Token {
	tok := domain.Token{Value: d.Value}
	if exp := strings.TrimSpace(d.Expires); exp != "" {
		for _, layout := range expiryLayouts {
			if ts, err := time.Parse(layout, exp); err == nil {
				tok.ExpiresAt = ts
				return tok
			}
		}
	}
	if d.MaxAge != nil && *d.MaxAge > 0 {
		tok.ExpiresAt = now.Add(time.Duration(*d.MaxAge) * time.Second)
		return tok
	}
	tok.ExpiresAt = jwtExpiry(d.Value)
	return tok
}

// jwtExpiry reads the exp claim without verifying the signature; the API is
// the only party that verifies its own tokens.
func jwtExpiry(raw string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// bearer returns the oauth2 view of a domain token.
func bearer(t domain.Token) *oauth2.Token {
	return &oauth2.Token{AccessToken: t.Value, TokenType: "Bearer", Expiry: t.ExpiresAt}
}

// refreshData is the data (or cookies) payload of the refresh endpoint.
type refreshData struct {
	Access  *TokenData `json:"access"`
	Refresh *TokenData `json:"refresh"`
}

func decodeRefresh(env envelope) (refreshData, bool) {
	for _, raw := range []json.RawMessage{env.Data, env.Cookies} {
		if !hasData(raw) {
			continue
		}
		var rd refreshData
		if err := json.Unmarshal(raw, &rd); err == nil && rd.Access != nil && rd.Access.Value != "" {
			return rd, true
		}
	}
	return refreshData{}, false
}
