package adapthttp

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const visitorContextKey contextKey = "visitor"

// VisitorCookie names the cookie that identifies a browser.
const VisitorCookie = "sf_visitor"

const visitorCookieMaxAge = 365 * 24 * 60 * 60

// visitorMiddleware attaches the visitor id from the cookie, issuing a new
// one when it is missing or malformed.
func (s *Server) visitorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var visitor string
		if c, err := r.Cookie(VisitorCookie); err == nil {
			if id, err := uuid.Parse(c.Value); err == nil {
				visitor = id.String()
			}
		}
		if visitor == "" {
			visitor = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     VisitorCookie,
				Value:    visitor,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.secureCookies,
				SameSite: http.SameSiteLaxMode,
				MaxAge:   visitorCookieMaxAge,
			})
		}
		ctx := context.WithValue(r.Context(), visitorContextKey, visitor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func visitorFrom(r *http.Request) string {
	v, _ := r.Context().Value(visitorContextKey).(string)
	return v
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// loggingMiddleware logs one line per request.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		s.log.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration", time.Since(start),
		)
	})
}
