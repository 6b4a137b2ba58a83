// Package remote is the driven adapter for the storefront REST API. Every
// call goes through the authenticated request pipeline: bearer injection on
// the way out and a single refresh-then-retry on 401.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"storefront/internal/domain"
	"storefront/internal/logger"
)

// RefreshPath is the token refresh endpoint.
const RefreshPath = "/accounts/token/refresh/"

const maxBodyBytes = 4 << 20

// TokenStore holds one visitor's credentials.
type TokenStore interface {
	// AccessToken returns ok=false when no token is stored.
	AccessToken(ctx context.Context) (tok domain.Token, ok bool, err error)
	RefreshToken(ctx context.Context) (tok domain.Token, ok bool, err error)
	SetAccessToken(ctx context.Context, tok domain.Token) error
	SetRefreshToken(ctx context.Context, tok domain.Token) error
	// Clear forgets every credential of the visitor.
	Clear(ctx context.Context) error
}

// Request is one API call. It is a value: the post-refresh retry is a copy
// with Attempt set to 1.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	// Attempt is 0 on first dispatch and 1 on the retry after a refresh.
	Attempt int
	// Bearer, when set, is sent instead of the stored access token.
	Bearer *domain.Token
}

// Response is a 2xx API response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logger.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Client talks to the API. It is safe for concurrent use.
type Client struct {
	baseURL   string
	http      *http.Client
	log       *logger.Logger
	now       func() time.Time
	refreshes singleflight.Group
}

// New creates a Client.
func New(opts Options) (*Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote: invalid base url %q", opts.BaseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		log:     log,
		now:     now,
	}, nil
}

// Session binds the client to one visitor's tokens. A nil store makes
// anonymous calls.
func (c *Client) Session(tokens TokenStore) *Session {
	return &Session{c: c, tokens: tokens}
}

// Session is a Client bound to a TokenStore.
type Session struct {
	c      *Client
	tokens TokenStore
}

// Do dispatches req. A 401 on the first attempt triggers one token refresh
// and one retry; every other failure is returned unchanged.
func (s *Session) Do(ctx context.Context, req Request) (*Response, error) {
	resp, err := s.dispatch(ctx, req)
	if err == nil || req.Attempt > 0 || s.tokens == nil || !IsUnauthorized(err) {
		return resp, err
	}

	refresh, ok, terr := s.tokens.RefreshToken(ctx)
	if terr != nil {
		return nil, errors.Join(err, terr)
	}
	if !ok || refresh.Expired(s.c.now()) {
		return nil, err
	}

	access, ferr := s.refresh(ctx, refresh)
	if ferr != nil && ctx.Err() != nil {
		return nil, errors.Join(err, ctx.Err())
	}
	if ferr != nil {
		s.c.log.Warn("token refresh failed", "path", req.Path, "error", ferr)
		if cerr := s.tokens.Clear(ctx); cerr != nil {
			s.c.log.Error("clear tokens after failed refresh", "error", cerr)
		}
		return nil, fmt.Errorf("%w: %w", ErrSignInRequired, err)
	}

	retry := req
	retry.Attempt = 1
	retry.Bearer = &access
	return s.dispatch(ctx, retry)
}

// refresh exchanges the refresh token for a new access token and stores it.
// Concurrent refreshes of the same refresh token share one call, which is
// detached from the cancellation of whichever caller started it.
func (s *Session) refresh(ctx context.Context, refresh domain.Token) (domain.Token, error) {
	ch := s.c.refreshes.DoChan(refresh.Value, func() (any, error) {
		return s.c.postRefresh(context.WithoutCancel(ctx), refresh.Value)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return domain.Token{}, ctx.Err()
	}
	v, err, shared := res.Val, res.Err, res.Shared
	if err != nil {
		return domain.Token{}, err
	}
	rd := v.(refreshData)
	now := s.c.now()
	access := rd.Access.Token(now)
	if err := s.tokens.SetAccessToken(ctx, access); err != nil {
		return domain.Token{}, fmt.Errorf("store access token: %w", err)
	}
	if rd.Refresh != nil && rd.Refresh.Value != "" && rd.Refresh.Value != refresh.Value {
		if err := s.tokens.SetRefreshToken(ctx, rd.Refresh.Token(now)); err != nil {
			return domain.Token{}, fmt.Errorf("store refresh token: %w", err)
		}
	}
	s.c.log.Debug("access token refreshed", "shared", shared)
	return access, nil
}

// postRefresh calls the refresh endpoint directly, outside the pipeline.
func (c *Client) postRefresh(ctx context.Context, refresh string) (refreshData, error) {
	httpReq, err := c.newHTTPRequest(ctx, Request{
		Method: http.MethodPost,
		Path:   RefreshPath,
		Body:   map[string]string{"refresh": refresh},
	})
	if err != nil {
		return refreshData{}, err
	}
	raw, err := c.send(httpReq)
	if err != nil {
		return refreshData{}, err
	}
	if !raw.ok() {
		return refreshData{}, apiErrorFrom(raw.status, raw.body)
	}
	env, ok := decodeEnvelope(raw.body)
	if !ok || !env.Success {
		return refreshData{}, apiErrorFrom(raw.status, raw.body)
	}
	rd, ok := decodeRefresh(env)
	if !ok {
		return refreshData{}, &APIError{Status: raw.status, Code: env.Code, Message: "refresh response carried no access token"}
	}
	return rd, nil
}

func (s *Session) dispatch(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := s.c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	if tok, ok := s.bearerFor(ctx, req); ok {
		bearer(tok).SetAuthHeader(httpReq)
	}

	start := time.Now()
	raw, err := s.c.send(httpReq)
	if err != nil {
		s.c.log.Warn("api request failed", "method", req.Method, "path", req.Path, "attempt", req.Attempt, "error", err)
		return nil, err
	}
	s.c.log.Debug("api request", "method", req.Method, "path", req.Path, "status", raw.status,
		"attempt", req.Attempt, "duration", time.Since(start))
	if !raw.ok() {
		return nil, apiErrorFrom(raw.status, raw.body)
	}
	return &Response{Status: raw.status, Header: raw.header, Body: raw.body}, nil
}

// bearerFor picks the token to send: the explicit one on a retry, otherwise
// the stored access token when it has not expired.
func (s *Session) bearerFor(ctx context.Context, req Request) (domain.Token, bool) {
	if req.Bearer != nil {
		return *req.Bearer, req.Bearer.Value != ""
	}
	if s.tokens == nil {
		return domain.Token{}, false
	}
	tok, ok, err := s.tokens.AccessToken(ctx)
	if err != nil {
		s.c.log.Warn("read access token", "error", err)
		return domain.Token{}, false
	}
	if !ok || !bearer(tok).Valid() {
		return domain.Token{}, false
	}
	return tok, true
}

func (c *Client) newHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}
	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("remote: encode body: %w", err)
		}
		body = bytes.NewReader(b)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("remote: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	return httpReq, nil
}

type rawResponse struct {
	status int
	header http.Header
	body   []byte
}

func (r rawResponse) ok() bool { return r.status >= 200 && r.status <= 299 }

func (c *Client) send(httpReq *http.Request) (rawResponse, error) {
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return rawResponse{}, fmt.Errorf("remote: %s %s: %w", httpReq.Method, httpReq.URL.Path, err)
	}
	defer resp.Body.Close() //nolint:errcheck
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return rawResponse{}, fmt.Errorf("remote: read body: %w", err)
	}
	return rawResponse{status: resp.StatusCode, header: resp.Header, body: body}, nil
}
