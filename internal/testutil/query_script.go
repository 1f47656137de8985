package testutil

import (
	"net/http"
	"sync"
)

// QueryScriptPage describes one page of a scripted query feed.
type QueryScriptPage struct {
	// Body is the feed JSON served for this page
	Body string

	// Continuation is the token returned with this page, "" on the last
	Continuation string

	// Charge is the x-ms-request-charge value, "" omits the header
	Charge string

	// SessionToken is the x-ms-session-token value, "" omits the header
	SessionToken string

	// Throttles is how many 429 answers precede this page
	Throttles int

	// RetryAfterMS is the hint sent with this page's 429 answers
	RetryAfterMS string
}

// ScriptQuery serves a scripted sequence of query pages on the given path.
// The page is selected by the continuation token the client presents: no
// token serves the first page, the token returned with page n serves page
// n+1. A request repeating a token replays the same page, matching service
// semantics for retried pages. Scripted 429 answers count into
// ThrottledSent like injected ones.
func (m *MockBackend) ScriptQuery(path string, pages []QueryScriptPage) {
	var mu sync.Mutex
	remaining := make([]int, len(pages))
	for i := range pages {
		remaining[i] = pages[i].Throttles
	}

	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("x-ms-continuation")

		idx := 0
		if token != "" {
			idx = -1
			for i := range pages {
				if pages[i].Continuation == token {
					idx = i + 1
					break
				}
			}
		}
		if idx < 0 || idx >= len(pages) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code": "BadRequest", "message": "Invalid continuation token"}`))
			return
		}

		page := pages[idx]

		mu.Lock()
		if remaining[idx] > 0 {
			remaining[idx]--
			mu.Unlock()
			m.mu.Lock()
			m.ThrottledSent++
			m.mu.Unlock()
			w.Header().Set("x-ms-retry-after-ms", page.RetryAfterMS)
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"code": "429", "message": "Request rate is large"}`))
			return
		}
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if page.Charge != "" {
			w.Header().Set("x-ms-request-charge", page.Charge)
		}
		if page.SessionToken != "" {
			w.Header().Set("x-ms-session-token", page.SessionToken)
		}
		if page.Continuation != "" {
			w.Header().Set("x-ms-continuation", page.Continuation)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(page.Body))
	})
}
