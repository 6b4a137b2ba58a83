package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/adapter/remote"
	"storefront/internal/domain"
)

// memTokens is an in-memory TokenStore.
type memTokens struct {
	mu           sync.Mutex
	access       *domain.Token
	refresh      *domain.Token
	cleared      bool
	refreshReads int
	onRefresh    func(reads int)
}

func (m *memTokens) AccessToken(context.Context) (domain.Token, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.access == nil {
		return domain.Token{}, false, nil
	}
	return *m.access, true, nil
}

func (m *memTokens) RefreshToken(context.Context) (domain.Token, bool, error) {
	m.mu.Lock()
	m.refreshReads++
	reads := m.refreshReads
	tok := m.refresh
	hook := m.onRefresh
	m.mu.Unlock()
	if hook != nil {
		hook(reads)
	}
	if tok == nil {
		return domain.Token{}, false, nil
	}
	return *tok, true, nil
}

func (m *memTokens) SetAccessToken(_ context.Context, t domain.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = &t
	return nil
}

func (m *memTokens) SetRefreshToken(_ context.Context, t domain.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh = &t
	return nil
}

func (m *memTokens) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh, m.cleared = nil, nil, true
	return nil
}

func (m *memTokens) accessValue() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.access == nil {
		return ""
	}
	return m.access.Value
}

func tok(v string) *domain.Token {
	return &domain.Token{Value: v, ExpiresAt: time.Now().Add(time.Hour)}
}

func writeEnvelope(w http.ResponseWriter, status int, success bool, code string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": success,
		"message": "msg",
		"code":    code,
		"data":    data,
	})
}

// fakeAPI serves /protected/ (accepts only the current valid token) and the
// refresh endpoint.
type fakeAPI struct {
	mu            sync.Mutex
	validToken    string
	protectedHits int32
	refreshHits   int32
	authHeaders   []string
	refreshFn     func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/protected/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.protectedHits, 1)
		f.mu.Lock()
		f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
		valid := f.validToken
		f.mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer "+valid {
			writeEnvelope(w, http.StatusUnauthorized, false, "AUTH_TOKEN_EXPIRED", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, true, "OK", map[string]any{"answer": 42})
	})
	mux.HandleFunc("/api/v1"+remote.RefreshPath, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.refreshHits, 1)
		f.refreshFn(w, r)
	})
	return mux
}

func refreshOK(newAccess string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["refresh"] != "refresh-1" {
			writeEnvelope(w, http.StatusUnauthorized, false, "AUTH_TOKEN_INVALID", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, true, "REQ_PROCESSED", map[string]any{
			"access": map[string]string{"value": newAccess, "expires": time.Now().Add(time.Hour).UTC().Format(time.RFC3339)},
		})
	}
}

func newClient(t *testing.T, api *fakeAPI) *remote.Client {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	c, err := remote.New(remote.Options{BaseURL: srv.URL + "/api/v1", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return c
}

func getProtected(ctx context.Context, s *remote.Session) (*remote.Response, error) {
	return s.Do(ctx, remote.Request{Method: http.MethodGet, Path: "/protected/"})
}

func TestAttachesBearerWhenAccessTokenValid(t *testing.T) {
	api := &fakeAPI{validToken: "access-1"}
	c := newClient(t, api)
	store := &memTokens{access: tok("access-1")}

	resp, err := getProtected(context.Background(), c.Session(store))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, []string{"Bearer access-1"}, api.authHeaders)
}

func TestSkipsExpiredAccessToken(t *testing.T) {
	api := &fakeAPI{validToken: "access-1"}
	c := newClient(t, api)
	store := &memTokens{access: &domain.Token{Value: "stale", ExpiresAt: time.Now().Add(-time.Minute)}}

	_, err := getProtected(context.Background(), c.Session(store))
	require.Error(t, err)
	assert.Equal(t, []string{""}, api.authHeaders)
}

func TestRefreshesOnceAndRetriesOnce(t *testing.T) {
	api := &fakeAPI{validToken: "access-2", refreshFn: refreshOK("access-2")}
	c := newClient(t, api)
	store := &memTokens{access: tok("access-1"), refresh: tok("refresh-1")}

	resp, err := getProtected(context.Background(), c.Session(store))
	require.NoError(t, err)

	var env struct {
		Data struct {
			Answer int `json:"answer"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body, &env))
	assert.Equal(t, 42, env.Data.Answer)
	assert.EqualValues(t, 1, atomic.LoadInt32(&api.refreshHits), "refresh calls")
	assert.EqualValues(t, 2, atomic.LoadInt32(&api.protectedHits), "original + one retry")
	assert.Equal(t, []string{"Bearer access-1", "Bearer access-2"}, api.authHeaders)
	assert.Equal(t, "access-2", store.accessValue())
}

func TestRetryIsNotRetriedAgain(t *testing.T) {
	// The refresh succeeds but the API still rejects the new token.
	api := &fakeAPI{validToken: "never", refreshFn: refreshOK("access-2")}
	c := newClient(t, api)
	store := &memTokens{access: tok("access-1"), refresh: tok("refresh-1")}

	_, err := getProtected(context.Background(), c.Session(store))
	require.Error(t, err)
	assert.True(t, remote.IsUnauthorized(err))
	assert.False(t, errors.Is(err, remote.ErrSignInRequired))
	assert.EqualValues(t, 1, atomic.LoadInt32(&api.refreshHits))
	assert.EqualValues(t, 2, atomic.LoadInt32(&api.protectedHits))
}

func TestExplicitRetryAttemptSkipsRecovery(t *testing.T) {
	api := &fakeAPI{validToken: "access-2", refreshFn: refreshOK("access-2")}
	c := newClient(t, api)
	store := &memTokens{access: tok("access-1"), refresh: tok("refresh-1")}

	_, err := c.Session(store).Do(context.Background(), remote.Request{Method: http.MethodGet, Path: "/protected/", Attempt: 1})
	assert.True(t, remote.IsUnauthorized(err))
	assert.EqualValues(t, 0, atomic.LoadInt32(&api.refreshHits))
}

func TestNoRefreshTokenPropagatesOriginalError(t *testing.T) {
	api := &fakeAPI{validToken: "access-2", refreshFn: refreshOK("access-2")}
	c := newClient(t, api)
	store := &memTokens{access: tok("access-1")}

	_, err := getProtected(context.Background(), c.Session(store))
	var apiErr *remote.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "AUTH_TOKEN_EXPIRED", apiErr.Code)
	assert.False(t, errors.Is(err, remote.ErrSignInRequired))
	assert.EqualValues(t, 0, atomic.LoadInt32(&api.refreshHits))
	assert.False(t, store.cleared)
}

func TestRefreshFailureRequiresSignIn(t *testing.T) {
	tests := []struct {
		name      string
		refreshFn func(w http.ResponseWriter, r *http.Request)
	}{
		{"rejected", func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusUnauthorized, false, "AUTH_TOKEN_INVALID", nil)
		}},
		{"success false", func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusOK, false, "AUTH_TOKEN_INVALID", nil)
		}},
		{"no token in payload", func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusOK, true, "REQ_PROCESSED", "")
		}},
		{"garbage", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>oops</html>"))
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeAPI{validToken: "access-2", refreshFn: tc.refreshFn}
			c := newClient(t, api)
			store := &memTokens{access: tok("access-1"), refresh: tok("refresh-1")}

			_, err := getProtected(context.Background(), c.Session(store))
			require.ErrorIs(t, err, remote.ErrSignInRequired)
			assert.True(t, remote.IsUnauthorized(err), "original 401 stays in the chain")
			assert.True(t, store.cleared)
			assert.EqualValues(t, 1, atomic.LoadInt32(&api.protectedHits))
		})
	}
}

func TestRefreshFromCookiesPayloadRotatesRefreshToken(t *testing.T) {
	api := &fakeAPI{validToken: "access-2"}
	api.refreshFn = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"message": "Your authentication token is refreshed!",
			"code":    "REQ_PROCESSED",
			"data":    "",
			"cookies": map[string]any{
				"access":  map[string]any{"value": "access-2", "max_age": 300},
				"refresh": map[string]any{"value": "refresh-2", "expires": "Wed, 01 Jan 2031 00:00:00 GMT"},
			},
		})
	}
	c := newClient(t, api)
	store := &memTokens{access: tok("access-1"), refresh: tok("refresh-1")}

	_, err := getProtected(context.Background(), c.Session(store))
	require.NoError(t, err)
	require.NotNil(t, store.refresh)
	assert.Equal(t, "refresh-2", store.refresh.Value)
	assert.Equal(t, 2031, store.refresh.ExpiresAt.Year())
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), store.access.ExpiresAt, time.Minute)
}

func TestOtherErrorsPropagateUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusInternalServerError, false, "SRV_ERROR", nil)
	}))
	defer srv.Close()
	c, err := remote.New(remote.Options{BaseURL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)
	store := &memTokens{access: tok("a"), refresh: tok("refresh-1")}

	_, err = getProtected(context.Background(), c.Session(store))
	var apiErr *remote.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "SRV_ERROR", apiErr.Code)
	assert.Equal(t, 0, store.refreshReads)
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	const n = 8
	api := &fakeAPI{validToken: "access-2"}
	release := make(chan struct{})
	var once sync.Once
	api.refreshFn = func(w http.ResponseWriter, r *http.Request) {
		<-release
		refreshOK("access-2")(w, r)
	}
	c := newClient(t, api)
	store := &memTokens{access: tok("access-1"), refresh: tok("refresh-1")}
	store.onRefresh = func(reads int) {
		if reads == n {
			// Every request has read the refresh token and is about to join
			// the in-flight refresh.
			go func() {
				time.Sleep(100 * time.Millisecond)
				once.Do(func() { close(release) })
			}()
		}
	}
	s := c.Session(store)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := getProtected(context.Background(), s)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&api.refreshHits))
	assert.EqualValues(t, 2*n, atomic.LoadInt32(&api.protectedHits))
}

func TestCancelledCallerDoesNotClearTokens(t *testing.T) {
	api := &fakeAPI{validToken: "access-2"}
	block := make(chan struct{})
	api.refreshFn = func(w http.ResponseWriter, r *http.Request) {
		<-block
		refreshOK("access-2")(w, r)
	}
	c := newClient(t, api)
	defer close(block)
	store := &memTokens{access: tok("access-1"), refresh: tok("refresh-1")}

	ctx, cancel := context.WithCancel(context.Background())
	store.onRefresh = func(int) { cancel() }

	_, err := getProtected(ctx, c.Session(store))
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, remote.ErrSignInRequired))
	assert.False(t, store.cleared)
}

func TestAnonymousSessionSendsNoAuthorization(t *testing.T) {
	api := &fakeAPI{validToken: "x"}
	c := newClient(t, api)

	_, err := getProtected(context.Background(), c.Session(nil))
	assert.True(t, remote.IsUnauthorized(err))
	assert.Equal(t, []string{""}, api.authHeaders)
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := remote.New(remote.Options{BaseURL: "not a url"})
	assert.Error(t, err)
}
