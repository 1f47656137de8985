package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks document cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "documentdb_cache_hits_total",
			Help: "Total number of document cache hits",
		},
	)

	// CacheMisses tracks document cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "documentdb_cache_misses_total",
			Help: "Total number of document cache misses",
		},
	)

	// ConditionalRequests tracks reads sent with an If-None-Match validator
	ConditionalRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "documentdb_conditional_requests_total",
			Help: "Total number of conditional document reads sent",
		},
	)

	// NotModified tracks 304 answers that reused a cached document
	NotModified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "documentdb_304_responses_total",
			Help: "Total number of 304 Not Modified responses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documentdb_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "touch"
	)
)
