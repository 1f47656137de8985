// Package metrics provides the centralized Prometheus metrics registry for
// the DocumentDB client. All metrics are defined in their respective
// packages (client, cache, ratelimit, query) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - documentdb_requests_total{resource, status} (Counter): Total requests by resource type and HTTP status
//   - documentdb_request_duration_seconds{resource} (Histogram): Request duration by resource type
//   - documentdb_request_charge_units{resource} (Histogram): Request charge per request by resource type
//   - documentdb_throttled_requests_total (Counter): Requests answered with 429
//
// Budget Metrics (pkg/ratelimit):
//   - documentdb_budget_used_units (Gauge): Request units spent in the current window
//   - documentdb_budget_blocks_total (Counter): Requests blocked by the request unit budget
//   - documentdb_budget_backoffs_total (Counter): Shared backoff windows opened after a 429
//
// Cache Metrics (pkg/cache):
//   - documentdb_cache_hits_total (Counter): Document cache hits
//   - documentdb_cache_misses_total (Counter): Document cache misses
//   - documentdb_conditional_requests_total (Counter): Conditional reads sent with If-None-Match
//   - documentdb_304_responses_total (Counter): 304 Not Modified responses
//   - documentdb_cache_errors_total{operation} (Counter): Cache operation errors
//
// Query Metrics (pkg/query):
//   - documentdb_query_pages_total (Counter): Query pages fetched
//   - documentdb_query_retries_total (Counter): Page retries after a 429
//   - documentdb_query_charge_units (Histogram): Accumulated request charge per completed query
//   - documentdb_query_throttle_wait_seconds (Histogram): Suspension served before retrying a throttled page
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(documentdb_cache_hits_total[5m])) /
//   (sum(rate(documentdb_cache_hits_total[5m])) + sum(rate(documentdb_cache_misses_total[5m])))
//
//   # Throttling Rate
//   rate(documentdb_throttled_requests_total[5m]) / rate(documentdb_requests_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(documentdb_request_duration_seconds_bucket[5m]))
//
//   # Request Units per Second by Resource
//   sum by (resource) (rate(documentdb_request_charge_units_sum[1m]))
