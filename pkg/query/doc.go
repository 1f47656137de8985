// Package query executes paginated queries against a collection and merges
// the pages into one result.
//
// The service returns query results page by page: each answer carries an
// x-ms-continuation token that addresses the next page, and the last page
// carries none. This package drives that loop, honors throttling
// suspensions, and outer-joins the records of all pages.
//
// Example usage:
//
//	executor := query.NewExecutor(dbClient, query.DefaultConfig())
//	result, err := executor.Execute(ctx, client.QueryRequest{
//		Database:   "shop",
//		Collection: "orders",
//		Query:      "SELECT * FROM c WHERE c.total > 100",
//	})
//
// The executor:
//   - Fetches pages sequentially along the continuation chain
//   - Waits out 429 suspensions and retries the same page
//   - Sums request charges across pages, throttled fetches included
//   - Keeps the latest session token
//   - Merges heterogeneous records into a uniform field set
//
// Records of one query need not share a shape. The merged result is an
// outer join: every record carries the union of all field names, with nil
// where a record never had the field. Result.Fields lists the union in a
// deterministic order.
package query
