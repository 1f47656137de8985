// Package query executes paginated queries and merges their pages
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"github.com/timoklimmer/documentdb-go/pkg/client"
)

// Prometheus metrics for query execution.
var (
	queryPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "documentdb_query_pages_total",
		Help: "Total query pages fetched",
	})

	queryRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "documentdb_query_retries_total",
		Help: "Total page retries after a 429",
	})

	queryChargeUnits = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "documentdb_query_charge_units",
		Help:    "Accumulated request charge per completed query",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
	})

	queryThrottleWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "documentdb_query_throttle_wait_seconds",
		Help:    "Suspension served before retrying a throttled page",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)

// ErrRetriesExhausted marks a query abandoned because a page stayed
// throttled through every allowed retry. The final 429 remains in the
// chain, so errors.As still yields the *client.RateLimitError.
var ErrRetriesExhausted = errors.New("throttling retries exhausted")

// Config holds query executor configuration
type Config struct {
	// MaxRetries429 is the number of retries after a throttled page
	// fetch. The budget applies per page and resets once a page
	// succeeds. 0 disables retrying, -1 retries without bound.
	MaxRetries429 int

	// DefaultSuspension is the wait before retrying a throttled page
	// when the server sends no retry-after hint
	DefaultSuspension time.Duration

	// Sleep waits out a throttling suspension. Defaults to a
	// context-aware wait; tests inject a recording fake.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultConfig returns safe default configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries429:     5,
		DefaultSuspension: 100 * time.Millisecond,
	}
}

// PageFetcher is the interface the client must implement for single-page
// query execution
type PageFetcher interface {
	// FetchQueryPage executes one page of a query. "" selects the first
	// page; any later page is addressed by its predecessor's token.
	FetchQueryPage(ctx context.Context, req client.QueryRequest, continuation string) (*client.QueryPage, error)
}

// Result is the merged outcome of a fully executed query.
type Result struct {
	// Documents holds all records across all pages, outer-joined: every
	// record carries every field seen anywhere in the result, with nil
	// for fields the record never had.
	Documents []client.Document

	// Fields is the union of all field names in deterministic order
	Fields []string

	// RequestCharge is the summed request unit cost of all pages,
	// including pages that contributed no records
	RequestCharge float64

	// SessionToken is the token of the latest page that carried one
	SessionToken string

	// Pages is the number of pages accumulated
	Pages int

	// Retries is the number of throttled fetches that were retried
	Retries int
}

// Executor drives a query across all its pages
type Executor struct {
	fetcher PageFetcher
	config  Config
}

// NewExecutor creates a new query executor
func NewExecutor(fetcher PageFetcher, config Config) *Executor {
	if config.DefaultSuspension <= 0 {
		config.DefaultSuspension = 100 * time.Millisecond
	}
	if config.Sleep == nil {
		config.Sleep = ctxSleep
	}

	return &Executor{
		fetcher: fetcher,
		config:  config,
	}
}

// Execute runs the query to completion and merges all pages.
//
// Pages are fetched sequentially: each page's continuation token
// addresses the next, and the query is done when a page carries none. A
// throttled fetch waits out the server's suspension hint and retries the
// same page with the same continuation token, so no page is skipped or
// fetched twice. Any other error aborts the query and surfaces as is.
func (e *Executor) Execute(ctx context.Context, req client.QueryRequest) (*Result, error) {
	start := time.Now()
	result := &Result{}
	merged := newMerger()

	continuation := ""
	retries := 0

	for {
		page, err := e.fetcher.FetchQueryPage(ctx, req, continuation)
		if err != nil {
			var throttled *client.RateLimitError
			if !errors.As(err, &throttled) {
				return nil, err
			}

			if e.config.MaxRetries429 >= 0 && retries >= e.config.MaxRetries429 {
				log.Warn().
					Str("collection", req.Collection).
					Int("retries", retries).
					Msg("Throttling retries exhausted")
				return nil, fmt.Errorf("%w after %d retries: %w", ErrRetriesExhausted, retries, err)
			}
			retries++
			result.Retries++
			queryRetriesTotal.Inc()

			suspension := throttled.RetryAfter
			if suspension <= 0 {
				suspension = e.config.DefaultSuspension
			}

			log.Debug().
				Str("collection", req.Collection).
				Dur("suspension", suspension).
				Int("attempt", retries).
				Msg("Page throttled, waiting before retry")

			if err := e.config.Sleep(ctx, suspension); err != nil {
				return nil, err
			}
			queryThrottleWaitSeconds.Observe(suspension.Seconds())
			continue
		}

		retries = 0
		merged.addPage(page.Documents)
		result.RequestCharge += page.RequestCharge
		if page.SessionToken != "" {
			result.SessionToken = page.SessionToken
		}
		result.Pages++
		queryPagesTotal.Inc()

		if page.Continuation == "" {
			break
		}
		continuation = page.Continuation
	}

	result.Documents, result.Fields = merged.collect()
	queryChargeUnits.Observe(result.RequestCharge)

	log.Info().
		Str("collection", req.Collection).
		Int("pages", result.Pages).
		Int("records", len(result.Documents)).
		Float64("request_charge", result.RequestCharge).
		Dur("duration", time.Since(start)).
		Msg("Query complete")

	return result, nil
}

// ctxSleep waits for d or until the context is done.
func ctxSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
