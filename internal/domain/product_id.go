package domain

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidProductID is returned when an id cannot be read as a positive integer.
var ErrInvalidProductID = errors.New("product id must be a positive integer")

// ParseProductID normalizes an id given as a JSON number, a numeric string
// or a Go integer/float into an int64.
func ParseProductID(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return positive(int64(x))
	case int64:
		return positive(x)
	case float64:
		if x != math.Trunc(x) || x > math.MaxInt64 {
			return 0, ErrInvalidProductID
		}
		return positive(int64(x))
	case json.Number:
		return ParseProductID(x.String())
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if ferr != nil {
				return 0, ErrInvalidProductID
			}
			return ParseProductID(f)
		}
		return positive(n)
	default:
		return 0, ErrInvalidProductID
	}
}

func positive(n int64) (int64, error) {
	if n <= 0 {
		return 0, ErrInvalidProductID
	}
	return n, nil
}
