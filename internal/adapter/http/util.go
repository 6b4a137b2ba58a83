package adapthttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"

	"storefront/internal/adapter/remote"
	"storefront/internal/app"
	"storefront/internal/domain"
)

// signInPath is where the UI sends visitors who must authenticate.
const signInPath = "/signin"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// writeServiceError maps an application error onto a response.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *remote.APIError
	var urlErr *url.Error
	switch {
	case errors.Is(err, remote.ErrSignInRequired), errors.Is(err, app.ErrNotSignedIn):
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "sign in required", "redirect": signInPath})
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < 400 {
			status = http.StatusBadRequest
		}
		body := map[string]any{"error": apiErr.Message, "code": apiErr.Code}
		if len(apiErr.Errors) > 0 {
			body["errors"] = apiErr.Errors
		}
		if status == http.StatusUnauthorized {
			body["redirect"] = signInPath
		}
		writeJSON(w, status, body)
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidProductID),
		errors.Is(err, app.ErrEmptyCart),
		errors.Is(err, app.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, context.Canceled):
		w.WriteHeader(499)
	case errors.As(err, &urlErr):
		s.log.Warn("api unreachable", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadGateway, errors.New("storefront api unavailable"))
	default:
		s.log.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

// parseJSON decodes the request body into dst. Numbers landing in interface
// fields stay json.Number so large ids are not rounded.
func parseJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func pathID(r *http.Request) (int64, error) {
	return domain.ParseProductID(r.PathValue("id"))
}

func intQuery(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func withNoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func spaFromDisk(dir string) http.Handler {
	fileServer := http.FileServer(http.Dir(dir))
	indexPath := path.Join(dir, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqPath := path.Clean(r.URL.Path)
		if reqPath == "/" {
			http.ServeFile(w, r, indexPath)
			return
		}

		staticPath := path.Join(dir, reqPath)
		if _, err := os.Stat(staticPath); err == nil {
			fileServer.ServeHTTP(w, r)
			return
		}

		http.ServeFile(w, r, indexPath)
	})
}
