package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"
)

// QueryRequest describes a SQL query against one collection.
type QueryRequest struct {
	// Database and Collection address the queried collection
	Database   string
	Collection string

	// Query is the SQL text, e.g. "SELECT * FROM c WHERE c.city = @city"
	Query string

	// Parameters bind @name placeholders in the query text
	Parameters []QueryParameter

	// MaxItemCount overrides the client page size hint when positive
	MaxItemCount int

	// PartitionKey pins the query to a single partition. nil runs the
	// query across all partitions.
	PartitionKey any

	// SessionToken resumes session consistency from an earlier
	// operation. Responses carry the token forward regardless.
	SessionToken string
}

// QueryParameter binds a value to a @name placeholder.
type QueryParameter struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// QueryPage is one page of query results.
type QueryPage struct {
	// Documents holds the page's records. A page whose body cannot be
	// decoded yields zero records rather than an error.
	Documents []Document

	// Continuation is the token for the next page, "" on the last page
	Continuation string

	// RequestCharge is the request unit cost of this page
	RequestCharge float64

	// SessionToken is the session consistency token returned with the page
	SessionToken string
}

type queryBody struct {
	Query      string           `json:"query"`
	Parameters []QueryParameter `json:"parameters,omitempty"`
}

// FetchQueryPage executes one page of a query. continuation selects the
// page: "" fetches the first page, any later page is addressed by the
// token returned with its predecessor.
//
// Throttled pages surface as *RateLimitError so that callers can honor
// the server's suspension hint and retry with the same continuation.
func (c *Client) FetchQueryPage(ctx context.Context, req QueryRequest, continuation string) (*QueryPage, error) {
	if req.Database == "" || req.Collection == "" {
		return nil, fmt.Errorf("database and collection are required")
	}
	if req.Query == "" {
		return nil, fmt.Errorf("query text is required")
	}

	body, err := json.Marshal(queryBody{Query: req.Query, Parameters: req.Parameters})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	extra := map[string]string{
		headerContentType: contentTypeQuery,
		headerIsQuery:     "True",
	}

	maxItems := req.MaxItemCount
	if maxItems <= 0 {
		maxItems = c.config.MaxItemCount
	}
	if maxItems > 0 {
		extra[headerMaxItemCount] = strconv.Itoa(maxItems)
	}

	if continuation != "" {
		extra[headerContinuation] = continuation
	}

	if req.SessionToken != "" {
		extra[headerSessionToken] = req.SessionToken
	}

	if req.PartitionKey != nil {
		pk, err := partitionKeyHeader(req.PartitionKey)
		if err != nil {
			return nil, err
		}
		extra[headerPartitionKey] = pk
	} else {
		extra[headerEnableCrossPartition] = "True"
	}

	resp, err := c.do(ctx, http.MethodPost, collectionPath(req.Database, req.Collection)+"/docs", extra, body)
	if err != nil {
		return nil, err
	}

	page := &QueryPage{
		Continuation:  resp.continuation(),
		RequestCharge: resp.charge,
		SessionToken:  resp.sessionToken(),
	}

	var feed documentFeed
	if err := json.Unmarshal(resp.body, &feed); err != nil {
		// A page that does not decode contributes no records. The
		// continuation still advances, so later pages are unaffected.
		c.logger.Warn().
			Err(err).
			Str("collection", req.Collection).
			Msg("Query page body did not decode, treating as empty")
		return page, nil
	}

	page.Documents = feed.Documents
	return page, nil
}
