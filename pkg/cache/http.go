package cache

import (
	"net/http"
)

// ShouldRevalidate determines whether a cached document can be checked
// with a conditional read instead of a full transfer.
func ShouldRevalidate(entry *Entry) bool {
	if entry == nil {
		return false
	}
	return entry.HasValidator()
}

// AddConditionalHeaders adds If-None-Match to the request when the cache
// entry carries an ETag. The service answers 304 Not Modified when the
// document is unchanged.
func AddConditionalHeaders(req *http.Request, entry *Entry) {
	if entry == nil || req == nil {
		return
	}

	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	}
}
