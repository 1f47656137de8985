package cache

import (
	"strings"
)

// Key identifies a cached document.
type Key struct {
	// ResourceLink is the document's resource path
	// (e.g. "dbs/shop/colls/orders/docs/order-1")
	ResourceLink string

	// PartitionKey is the serialized partition key header value, empty
	// for single-partition collections. Documents in different
	// partitions may share an id, so the key has to carry it.
	PartitionKey string
}

// String generates a deterministic cache key string.
// Format: docdb:resource/link[:pk=value]
//
// Example:
//
//	docdb:dbs/shop/colls/orders/docs/order-1:pk=["hamburg"]
func (k Key) String() string {
	parts := []string{"docdb"}

	link := strings.Trim(k.ResourceLink, "/")
	if link != "" {
		parts = append(parts, link)
	}

	if k.PartitionKey != "" {
		parts = append(parts, "pk="+k.PartitionKey)
	}

	return strings.Join(parts, ":")
}
