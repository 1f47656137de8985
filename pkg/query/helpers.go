package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/timoklimmer/documentdb-go/pkg/client"
)

// Select runs a query to completion with default executor configuration.
func Select(ctx context.Context, fetcher PageFetcher, req client.QueryRequest) (*Result, error) {
	return NewExecutor(fetcher, DefaultConfig()).Execute(ctx, req)
}

// Count counts the documents of a collection matching an optional filter.
// The filter is a WHERE clause body over alias c, e.g. "c.city = 'hamburg'";
// empty counts everything.
//
// Counting uses an aliased aggregate so that each partition's page decodes
// like any record page; the partial counts are summed here.
func Count(ctx context.Context, fetcher PageFetcher, db, coll, filter string) (int64, error) {
	q := "SELECT COUNT(1) AS n FROM c"
	if strings.TrimSpace(filter) != "" {
		q += " WHERE " + filter
	}

	result, err := Select(ctx, fetcher, client.QueryRequest{
		Database:   db,
		Collection: coll,
		Query:      q,
	})
	if err != nil {
		return 0, err
	}

	var total int64
	for _, doc := range result.Documents {
		n, ok := doc["n"].(float64)
		if !ok {
			return 0, fmt.Errorf("count result carries no numeric n field: %v", doc["n"])
		}
		total += int64(n)
	}
	return total, nil
}
