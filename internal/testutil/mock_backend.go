// Package testutil provides testing utilities for the DocumentDB client.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/timoklimmer/documentdb-go/pkg/auth"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockBackend is a configurable mock DocumentDB account for testing.
type MockBackend struct {
	server    *httptest.Server
	mu        sync.RWMutex
	handlers  map[string]func(w http.ResponseWriter, r *http.Request)
	masterKey string

	pendingThrottles int
	retryAfterMS     string

	// Tracking
	RequestCount      int
	ConditionalCount  int
	ThrottledSent     int
	LastRequestHeader http.Header
}

// NewMockBackend creates a new mock DocumentDB server.
func NewMockBackend() *MockBackend {
	mock := &MockBackend{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()

		// Track conditional requests
		if r.Header.Get("If-None-Match") != "" {
			mock.ConditionalCount++
		}

		// Reject requests whose token does not recompute, the way the
		// service itself validates master key tokens.
		if mock.masterKey != "" && !mock.verifyToken(r) {
			mock.mu.Unlock()
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"code": "Unauthorized", "message": "The input authorization token can't serve the request."}`))
			return
		}

		// Injected throttles answer before any handler
		if mock.pendingThrottles > 0 {
			mock.pendingThrottles--
			mock.ThrottledSent++
			retryAfter := mock.retryAfterMS
			mock.mu.Unlock()
			w.Header().Set("x-ms-retry-after-ms", retryAfter)
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"code": "429", "message": "Request rate is large"}`))
			return
		}
		mock.mu.Unlock()

		// Check for custom handler
		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		// Default handler
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockBackend) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockBackend) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.ThrottledSent = 0
	m.pendingThrottles = 0
	m.LastRequestHeader = nil
}

// RequireAuth makes the backend verify the authorization token of every
// request against the given master key.
func (m *MockBackend) RequireAuth(masterKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.masterKey = masterKey
}

// ThrottleNext makes the backend answer the next n requests with 429 and
// the given x-ms-retry-after-ms value before serving normally again.
func (m *MockBackend) ThrottleNext(n int, retryAfterMS string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingThrottles = n
	m.retryAfterMS = retryAfterMS
}

// SetHandler sets a custom handler for a specific path.
func (m *MockBackend) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockBackend) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		// Add delay if specified
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		// Set headers
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		// Write status and body
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockBackend) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockBackend) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetThrottledSent returns the number of 429 answers sent, injected and
// scripted ones combined.
func (m *MockBackend) GetThrottledSent() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ThrottledSent
}

// verifyToken recomputes the token the way the service does and compares.
// Callers hold m.mu.
func (m *MockBackend) verifyToken(r *http.Request) bool {
	date := r.Header.Get("x-ms-date")
	if date == "" {
		return false
	}

	resourceType, resourceLink := resourceFromPath(r.URL.Path)
	want, err := auth.Sign(r.Method, resourceType, resourceLink, date, m.masterKey)
	if err != nil {
		return false
	}
	return r.Header.Get("Authorization") == want
}

// resourceFromPath derives the signed resource type and link from a request
// path, mirroring the server-side derivation: an odd number of segments
// addresses a feed, an even number a single resource.
func resourceFromPath(path string) (resourceType, resourceLink string) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "", ""
	}
	segments := strings.Split(trimmed, "/")
	if len(segments)%2 == 1 {
		resourceType = segments[len(segments)-1]
		resourceLink = strings.Join(segments[:len(segments)-1], "/")
	} else {
		resourceType = segments[len(segments)-2]
		resourceLink = trimmed
	}
	if resourceType == "offers" {
		resourceLink = strings.ToLower(strings.TrimPrefix(resourceLink, "offers/"))
	}
	return resourceType, resourceLink
}

// defaultHandler provides default DocumentDB-like responses.
func (m *MockBackend) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("x-ms-request-charge", "1.0")

	// Handle conditional requests
	if r.Header.Get("If-None-Match") != "" {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	// Default 200 OK response
	w.Header().Set("Etag", `"default-etag"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"id": "default"}`))
}

// NewDocumentResponse creates a standard 200 OK response carrying a document.
func NewDocumentResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Etag":                `"test-etag-123"`,
			"x-ms-request-charge": "1.0",
			"Content-Type":        "application/json",
		},
	}
}

// NewNotModifiedResponse creates a 304 Not Modified response.
func NewNotModifiedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotModified,
		Headers: map[string]string{
			"x-ms-request-charge": "1.0",
		},
	}
}

// NewThrottleResponse creates a 429 response with a suspension hint.
func NewThrottleResponse(retryAfterMS string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"code": "429", "message": "Request rate is large"}`,
		Headers: map[string]string{
			"x-ms-retry-after-ms": retryAfterMS,
			"Content-Type":        "application/json",
		},
	}
}

// NewNotFoundResponse creates a 404 response with the service envelope.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"code": "NotFound", "message": "Resource Not Found"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"code": "InternalServerError", "message": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// NewConditionalHandler creates a handler that responds with 304 when the
// presented etag matches and with the full document otherwise.
func NewConditionalHandler(etag string, data string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("x-ms-request-charge", "1.0")

		// Check If-None-Match header
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		// Full response
		w.Header().Set("Etag", etag)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}
