package remote

import (
	"context"
	"encoding/json"
	"fmt"
)

// call performs req and decodes the envelope's data into T.
func call[T any](ctx context.Context, s *Session, req Request) Result[T] {
	resp, err := s.Do(ctx, req)
	if err != nil {
		return Err[T](err)
	}
	env, ok := decodeEnvelope(resp.Body)
	if !ok {
		return Err[T](fmt.Errorf("remote: %s %s: response is not an envelope", req.Method, req.Path))
	}
	if !env.Success {
		return Err[T](&APIError{Status: resp.Status, Code: env.Code, Message: string(env.Message), Errors: env.Errors})
	}
	var v T
	if hasData(env.Data) {
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return Err[T](fmt.Errorf("remote: %s %s: decode data: %w", req.Method, req.Path, err))
		}
	}
	return Ok(v, string(env.Message), env.Code)
}

// Empty is the data type of calls that return no payload.
type Empty struct{}
