package chargify

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidUsage is returned when a caller violates the request contract,
	// e.g. POST or PUT without a body. No network call is made.
	ErrInvalidUsage = errors.New("chargify: invalid usage")

	// ErrNoResponse is returned by helpers that need a response body when the
	// transport produced none.
	ErrNoResponse = errors.New("chargify: no response")

	// ErrInvalidRedirect marks a Direct redirect whose parameters are malformed.
	ErrInvalidRedirect = errors.New("chargify: invalid direct redirect")
)

// APIError describes a non-2xx response a helper could not decode.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("chargify: http status %d", e.StatusCode)
	}
	return fmt.Sprintf("chargify: http status %d: %s", e.StatusCode, e.Body)
}

func newAPIError(status int, body []byte) *APIError {
	return &APIError{StatusCode: status, Body: bodySnippet(body)}
}

func bodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
