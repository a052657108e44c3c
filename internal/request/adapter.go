package request

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// JSONAdapter decodes a successful response body into T.
type JSONAdapter[T any] func(body io.Reader) (T, error)

// DecodeJSON returns a JSONAdapter using encoding/json.
func DecodeJSON[T any]() JSONAdapter[T] {
	return func(body io.Reader) (T, error) {
		var out T
		if err := json.NewDecoder(body).Decode(&out); err != nil {
			return out, fmt.Errorf("decode response: %w", err)
		}
		return out, nil
	}
}

// ErrorAdapter turns failed exchanges into the caller's error type E.
type ErrorAdapter[E error] interface {
	// FromRawResponse handles a non-2xx response whose body is not JSON.
	FromRawResponse(statusCode int, body string, headers http.Header) E
	// FromJSONResponse handles a non-2xx response with a JSON object body.
	FromJSONResponse(statusCode int, values map[string]any) E
	// FromException handles transport and decoding failures.
	FromException(err error) E
}
