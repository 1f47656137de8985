package cache

import (
	"time"
)

// Entry represents a cached document read.
type Entry struct {
	// Data is the raw document body as returned by the service
	Data []byte `json:"data"`

	// ETag is the document's _etag at the time it was cached, used for
	// conditional reads (If-None-Match)
	ETag string `json:"etag"`

	// CachedAt is when the document was cached
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry builds a cache entry for a document body and its ETag.
func NewEntry(data []byte, etag string) *Entry {
	return &Entry{
		Data:     data,
		ETag:     etag,
		CachedAt: time.Now(),
	}
}

// Age returns how long ago the entry was cached.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CachedAt)
}

// HasValidator reports whether the entry can be revalidated with a
// conditional read.
func (e *Entry) HasValidator() bool {
	return e.ETag != ""
}
