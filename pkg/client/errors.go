package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Common errors returned by the client.
var (
	// ErrNotFound is returned when the addressed resource does not exist.
	// APIError values with status 404 match it via errors.Is.
	ErrNotFound = errors.New("resource not found")

	// ErrBudgetExhausted is returned when the shared request-unit budget
	// blocks a request before it is sent.
	ErrBudgetExhausted = errors.New("request unit budget exhausted")
)

// APIError is the structured error the service returns for a failed request.
// Code and Message carry the remote error envelope verbatim.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	code := e.Code
	if code == "" {
		code = "error"
	}
	return fmt.Sprintf("documentdb %s (status %d): %s", code, e.StatusCode, e.Message)
}

// Is maps 404 responses onto ErrNotFound so callers can test with errors.Is
// without inspecting status codes.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// RateLimitError reports an HTTP 429 from the service. RetryAfter is the
// server-suggested wait parsed from x-ms-retry-after-ms, zero when the
// header is absent. Plain resource operations never retry; the query
// executor consumes this error to drive its backoff loop.
type RateLimitError struct {
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("request rate too large, retry after %s", e.RetryAfter)
	}
	return "request rate too large"
}

// errorEnvelope is the JSON body the service attaches to non-2xx responses.
type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// newAPIError decodes the remote error envelope once at the boundary. Bodies
// that are not the expected envelope are carried as the raw message so no
// diagnostic detail is lost.
func newAPIError(statusCode int, body []byte) *APIError {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || (env.Code == "" && env.Message == "") {
		return &APIError{StatusCode: statusCode, Message: strings.TrimSpace(string(body))}
	}
	return &APIError{StatusCode: statusCode, Code: env.Code, Message: env.Message}
}
