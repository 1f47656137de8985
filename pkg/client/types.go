package client

// Document is a single stored record. Records are schema-free, so a document
// is a map of field names to values. System properties ("id", "_rid",
// "_etag", "_ts", ...) appear as ordinary fields when present.
type Document map[string]any

// ID returns the "id" field when it is a string, otherwise "".
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// ETag returns the "_etag" system property when present.
func (d Document) ETag() string {
	etag, _ := d["_etag"].(string)
	return etag
}

// Database describes a database resource.
type Database struct {
	ID          string  `json:"id"`
	ResourceID  string  `json:"_rid,omitempty"`
	Self        string  `json:"_self,omitempty"`
	ETag        string  `json:"_etag,omitempty"`
	Timestamp   float64 `json:"_ts,omitempty"`
	Collections string  `json:"_colls,omitempty"`
}

// PartitionKeyDefinition describes how a collection distributes documents.
type PartitionKeyDefinition struct {
	Paths []string `json:"paths"`
	Kind  string   `json:"kind"`
}

// Collection describes a document collection resource.
type Collection struct {
	ID           string                  `json:"id"`
	ResourceID   string                  `json:"_rid,omitempty"`
	Self         string                  `json:"_self,omitempty"`
	ETag         string                  `json:"_etag,omitempty"`
	Timestamp    float64                 `json:"_ts,omitempty"`
	Documents    string                  `json:"_docs,omitempty"`
	PartitionKey *PartitionKeyDefinition `json:"partitionKey,omitempty"`
}

// CollectionSpec describes a collection to create.
type CollectionSpec struct {
	// ID is the collection name
	ID string

	// PartitionKeyPath is the document path used to distribute data,
	// e.g. "/customerId". Empty creates a single-partition collection.
	PartitionKeyPath string

	// Throughput is the provisioned request unit limit per second.
	// 0 uses the service default.
	Throughput int
}

// Offer describes the provisioned throughput attached to a collection.
type Offer struct {
	ID              string       `json:"id"`
	ResourceID      string       `json:"_rid,omitempty"`
	Self            string       `json:"_self,omitempty"`
	OfferVersion    string       `json:"offerVersion"`
	OfferType       string       `json:"offerType,omitempty"`
	Content         OfferContent `json:"content"`
	Resource        string       `json:"resource"`
	OfferResourceID string       `json:"offerResourceId"`
}

// OfferContent carries the throughput setting of a V2 offer.
type OfferContent struct {
	OfferThroughput int `json:"offerThroughput"`
}

// Feed envelopes returned by list and query operations.
type databaseFeed struct {
	ResourceID string     `json:"_rid"`
	Count      int        `json:"_count"`
	Databases  []Database `json:"Databases"`
}

type collectionFeed struct {
	ResourceID  string       `json:"_rid"`
	Count       int          `json:"_count"`
	Collections []Collection `json:"DocumentCollections"`
}

type documentFeed struct {
	ResourceID string     `json:"_rid"`
	Count      int        `json:"_count"`
	Documents  []Document `json:"Documents"`
}

type offerFeed struct {
	ResourceID string  `json:"_rid"`
	Count      int     `json:"_count"`
	Offers     []Offer `json:"Offers"`
}
