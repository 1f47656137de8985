// Package cache provides a Redis-backed read cache for documents.
//
// The cache manager keeps recently read documents together with their
// ETag so that repeat reads can be answered from Redis after a cheap
// revalidation:
//
// - Entries expire after a configurable TTL (default 5 minutes)
// - ETag support for conditional reads (If-None-Match)
// - 304 Not Modified answers reuse the cached body without a transfer
// - Prometheus metrics for observability
// - Deterministic cache key generation from resource links
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create cache manager with a 5 minute TTL
//	manager := cache.NewManager(redisClient, 5*time.Minute)
//
//	// Create cache key
//	key := cache.Key{
//		ResourceLink: "dbs/shop/colls/orders/docs/order-1",
//	}
//
//	// Get from cache
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// Cache miss - read from the service
//	}
//
// # Conditional Reads
//
//	// Check if the cached document can be revalidated
//	if cache.ShouldRevalidate(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// The service returns 304 when the document is unchanged
//	}
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - documentdb_cache_hits_total - Cache hits
//   - documentdb_cache_misses_total - Cache misses
//   - documentdb_conditional_requests_total - Conditional reads sent
//   - documentdb_304_responses_total - Revalidation successes
//   - documentdb_cache_errors_total{operation} - Cache operation errors
//
// Caching applies to point reads only. Query results carry continuation
// state and request charges that must reflect the live service, so they
// are never cached.
package cache
