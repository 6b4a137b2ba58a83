package remote

// Result is the outcome of one API call: either Ok with a value or Err.
type Result[T any] struct {
	Value   T
	Message string
	Code    string
	Err     error
}

// Ok builds a successful result.
func Ok[T any](v T, message, code string) Result[T] {
	return Result[T]{Value: v, Message: message, Code: code}
}

// Err builds a failed result.
func Err[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

func (r Result[T]) IsOk() bool { return r.Err == nil }

// Unwrap returns the value or the error.
func (r Result[T]) Unwrap() (T, error) {
	return r.Value, r.Err
}
