package adapthttp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"storefront/internal/logger"
)

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := &Server{log: logger.FromZap(zap.New(core))}

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("OK"))
	})
	handler := s.loggingMiddleware(nextHandler)

	req := httptest.NewRequest("GET", "/test-path", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTeapot {
		t.Errorf("Expected status %d, got %d", http.StatusTeapot, w.Code)
	}

	entries := logs.FilterMessage("http request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["method"] != "GET" || fields["path"] != "/test-path" || fields["status"] != int64(http.StatusTeapot) {
		t.Errorf("Log fields missing expected values. Got: %v", fields)
	}
	if fields["bytes"] != int64(2) {
		t.Errorf("expected 2 bytes, got %v", fields["bytes"])
	}
}

func TestVisitorMiddlewareRejectsForgedID(t *testing.T) {
	s := &Server{log: logger.Nop()}
	var seen string
	handler := s.visitorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = visitorFrom(r)
	}))

	req := httptest.NewRequest("GET", "/cart", nil)
	req.AddCookie(&http.Cookie{Name: VisitorCookie, Value: "../../etc/passwd"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if seen == "" || seen == "../../etc/passwd" {
		t.Fatalf("expected a fresh visitor id, got %q", seen)
	}
	if len(w.Result().Cookies()) != 1 {
		t.Fatal("expected a replacement cookie")
	}
}
