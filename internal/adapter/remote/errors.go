package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrSignInRequired is returned when a 401 could not be recovered by a token
// refresh. The visitor's tokens have been cleared and they must sign in again.
var ErrSignInRequired = errors.New("sign in required")

// APIError is a non-2xx response or a success=false envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Errors  map[string]any
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("remote: %d %s: %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("remote: %d: %s", e.Status, msg)
}

// IsUnauthorized reports whether err carries a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Message is the envelope message. The API sends it as a string, a list of
// strings or an object of lists.
type Message string

func (m *Message) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = Message(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*m = Message(strings.Join(list, " "))
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(b, &obj); err == nil {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %v", k, obj[k]))
		}
		*m = Message(strings.Join(parts, "; "))
		return nil
	}
	*m = ""
	return nil
}

// envelope is the shape of every API response.
type envelope struct {
	Success bool            `json:"success"`
	Message Message         `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
	Cookies json.RawMessage `json:"cookies"`
	Errors  map[string]any  `json:"errors"`
}

func decodeEnvelope(body []byte) (envelope, bool) {
	var env envelope
	if len(body) == 0 || json.Unmarshal(body, &env) != nil {
		return envelope{}, false
	}
	return env, true
}

// hasData reports whether raw holds something other than null or "".
func hasData(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null" && s != `""`
}

func apiErrorFrom(status int, body []byte) *APIError {
	e := &APIError{Status: status}
	if env, ok := decodeEnvelope(body); ok {
		e.Code = env.Code
		e.Message = string(env.Message)
		e.Errors = env.Errors
	}
	return e
}
