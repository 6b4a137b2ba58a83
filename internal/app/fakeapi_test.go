package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storefront/internal/adapter/memory"
	"storefront/internal/adapter/remote"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/sealer"
)

// fakeAPI is a minimal stand-in for the storefront REST API.
type fakeAPI struct {
	srv *httptest.Server

	mu        sync.Mutex
	access    string
	refreshOK bool
	hits      map[string]int
	placed    []domain.PlaceOrderRequest
	onPlace   func()
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{access: "acc-1", refreshOK: true, hits: map[string]int{}}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/accounts/signin/", f.signIn)
	mux.HandleFunc("GET /api/v1/accounts/profile/", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, domain.UserProfile{ID: 7, Email: "asha@example.com", FullName: "Asha"})
	}))
	mux.HandleFunc("POST /api/v1/accounts/token/refresh/", f.refresh)
	mux.HandleFunc("POST /api/v1/accounts/password/reset/request/", func(w http.ResponseWriter, r *http.Request) {
		f.hit(r)
		writeEnvelope(w, http.StatusOK, true, nil)
	})
	mux.HandleFunc("GET /api/v1/accounts/password/reset/verify-token/", func(w http.ResponseWriter, r *http.Request) {
		f.hit(r)
		writeEnvelope(w, http.StatusOK, true, map[string]bool{"valid": r.URL.Query().Get("token") == "good"})
	})
	mux.HandleFunc("POST /api/v1/accounts/password/reset/", func(w http.ResponseWriter, r *http.Request) {
		f.hit(r)
		var in struct {
			Token       string `json:"token"`
			NewPassword string `json:"new_password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Token != "good" || in.NewPassword == "" {
			writeRaw(w, http.StatusBadRequest, `{"success":false,"message":"Invalid reset request"}`)
			return
		}
		writeEnvelope(w, http.StatusOK, true, nil)
	})
	mux.HandleFunc("GET /api/v1/products/products/{id}/", func(w http.ResponseWriter, r *http.Request) {
		f.hit(r)
		if r.PathValue("id") != "5" {
			writeEnvelope(w, http.StatusNotFound, false, nil)
			return
		}
		writeRaw(w, http.StatusOK, `{"success":true,"data":{"id":5,"name":"Milk","price":"12.50","thumbnail":"milk.png"}}`)
	})
	mux.HandleFunc("POST /api/v1/orders/place/", f.authed(func(w http.ResponseWriter, r *http.Request) {
		var in domain.PlaceOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeEnvelope(w, http.StatusBadRequest, false, nil)
			return
		}
		f.mu.Lock()
		f.placed = append(f.placed, in)
		hook := f.onPlace
		f.mu.Unlock()
		if hook != nil {
			hook()
		}
		writeRaw(w, http.StatusCreated, `{"success":true,"data":{"order":{"id":99,"status":"pending","total_price":"65.00"}}}`)
	}))
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) hit(r *http.Request) {
	f.mu.Lock()
	f.hits[r.Method+" "+r.URL.Path]++
	f.mu.Unlock()
}

func (f *fakeAPI) hitCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[key]
}

func (f *fakeAPI) setAccess(v string, refreshOK bool) {
	f.mu.Lock()
	f.access, f.refreshOK = v, refreshOK
	f.mu.Unlock()
}

func (f *fakeAPI) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.hit(r)
		f.mu.Lock()
		want := "Bearer " + f.access
		f.mu.Unlock()
		if r.Header.Get("Authorization") != want {
			writeRaw(w, http.StatusUnauthorized, `{"success":false,"message":"Token is invalid or expired","code":"token_not_valid"}`)
			return
		}
		next(w, r)
	}
}

func (f *fakeAPI) signIn(w http.ResponseWriter, r *http.Request) {
	f.hit(r)
	var in domain.SignInRequest
	_ = json.NewDecoder(r.Body).Decode(&in)
	if in.Password != "secret-pw" {
		writeRaw(w, http.StatusBadRequest, `{"success":false,"message":"Invalid credentials"}`)
		return
	}
	f.mu.Lock()
	access := f.access
	f.mu.Unlock()
	writeEnvelope(w, http.StatusOK, true, map[string]any{
		"access":  map[string]string{"value": access, "expires": time.Now().Add(time.Hour).UTC().Format(time.RFC3339)},
		"refresh": map[string]string{"value": "ref-1", "expires": time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)},
		"id":      7,
		"email":   in.Email,
	})
}

func (f *fakeAPI) refresh(w http.ResponseWriter, r *http.Request) {
	f.hit(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.refreshOK {
		writeRaw(w, http.StatusUnauthorized, `{"success":false,"message":"Token is blacklisted"}`)
		return
	}
	f.access = "acc-2"
	writeEnvelope(w, http.StatusOK, true, map[string]any{
		"access": map[string]string{"value": "acc-2", "expires": time.Now().Add(time.Hour).UTC().Format(time.RFC3339)},
	})
}

func writeEnvelope(w http.ResponseWriter, status int, success bool, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": success, "message": "", "data": data})
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// testEnv wires every service against the fake API and the memory store.
type testEnv struct {
	api      *fakeAPI
	store    *memory.DB
	auth     *AuthService
	carts    *CartService
	catalog  *CatalogService
	checkout *CheckoutService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	api := newFakeAPI(t)
	client, err := remote.New(remote.Options{BaseURL: api.srv.URL + "/api/v1", HTTPClient: api.srv.Client()})
	require.NoError(t, err)
	seal, err := sealer.New("test-secret-0123456789")
	require.NoError(t, err)

	store := memory.New()
	log := logger.Nop()
	auth := NewAuthService(store, seal, client, log)
	catalog := NewCatalogService(client)
	carts := NewCartService(store, catalog, log)
	return &testEnv{
		api:      api,
		store:    store,
		auth:     auth,
		carts:    carts,
		catalog:  catalog,
		checkout: NewCheckoutService(carts, auth, log),
	}
}
