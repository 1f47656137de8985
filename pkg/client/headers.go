package client

// REST API version implemented by this client.
const apiVersion = "2017-02-22"

// Request headers.
const (
	headerAuthorization        = "Authorization"
	headerAPIVersion           = "x-ms-version"
	headerDate                 = "x-ms-date"
	headerUserAgent            = "User-Agent"
	headerContentType          = "Content-Type"
	headerIfNoneMatch          = "If-None-Match"
	headerIsQuery              = "x-ms-documentdb-isquery"
	headerEnableCrossPartition = "x-ms-documentdb-query-enablecrosspartition"
	headerMaxItemCount         = "x-ms-max-item-count"
	headerContinuation         = "x-ms-continuation"
	headerPartitionKey         = "x-ms-documentdb-partitionkey"
	headerIsUpsert             = "x-ms-documentdb-is-upsert"
	headerOfferThroughput      = "x-ms-offer-throughput"
	headerConsistencyLevel     = "x-ms-consistency-level"
	headerSessionToken         = "x-ms-session-token"
)

// Response headers.
const (
	headerRequestCharge = "x-ms-request-charge"
	headerRetryAfterMS  = "x-ms-retry-after-ms"
	headerETag          = "Etag"
	headerActivityID    = "x-ms-activity-id"
)

// Content types.
const (
	contentTypeJSON  = "application/json"
	contentTypeQuery = "application/query+json"
)
