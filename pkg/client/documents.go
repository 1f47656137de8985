package client

import (
	"context"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/timoklimmer/documentdb-go/pkg/cache"
)

// partitionKeyHeader encodes a partition key value for the
// x-ms-documentdb-partitionkey header. The wire format is a JSON array
// holding the single key value.
func partitionKeyHeader(v any) (string, error) {
	encoded, err := json.Marshal([]any{v})
	if err != nil {
		return "", fmt.Errorf("encode partition key: %w", err)
	}
	return string(encoded), nil
}

func (c *Client) documentHeaders(partitionKey any) (map[string]string, error) {
	extra := map[string]string{}
	if partitionKey != nil {
		pk, err := partitionKeyHeader(partitionKey)
		if err != nil {
			return nil, err
		}
		extra[headerPartitionKey] = pk
	}
	return extra, nil
}

// CreateDocument stores a new document in a collection. doc may be any
// JSON-encodable value; the stored document including its system
// properties is returned. partitionKey is the document's partition key
// value, nil for single-partition collections.
func (c *Client) CreateDocument(ctx context.Context, db, coll string, doc any, partitionKey any) (Document, error) {
	return c.writeDocument(ctx, db, coll, doc, partitionKey, false)
}

// UpsertDocument stores a document, replacing an existing one with the
// same id instead of failing with a conflict.
func (c *Client) UpsertDocument(ctx context.Context, db, coll string, doc any, partitionKey any) (Document, error) {
	return c.writeDocument(ctx, db, coll, doc, partitionKey, true)
}

func (c *Client) writeDocument(ctx context.Context, db, coll string, doc any, partitionKey any, upsert bool) (Document, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	extra, err := c.documentHeaders(partitionKey)
	if err != nil {
		return nil, err
	}
	if upsert {
		extra[headerIsUpsert] = "true"
	}

	resp, err := c.do(ctx, http.MethodPost, collectionPath(db, coll)+"/docs", extra, body)
	if err != nil {
		return nil, err
	}

	var stored Document
	if err := json.Unmarshal(resp.body, &stored); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	// A returned upsert or create supersedes any cached read of the same id.
	if c.cache != nil && stored.ID() != "" {
		key := c.documentCacheKey(db, coll, stored.ID(), extra[headerPartitionKey])
		if err := c.cache.Set(ctx, key, cache.NewEntry(resp.body, resp.etag())); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache document")
		}
	}

	return stored, nil
}

// GetDocument reads a document by id. With Redis configured, reads are
// served through the document cache: a cached copy is revalidated with
// If-None-Match and a 304 answer reuses it without transferring the body.
func (c *Client) GetDocument(ctx context.Context, db, coll, id string, partitionKey any) (Document, error) {
	path := documentPath(db, coll, id)

	extra, err := c.documentHeaders(partitionKey)
	if err != nil {
		return nil, err
	}

	var key cache.Key
	var cached *cache.Entry
	if c.cache != nil {
		key = c.documentCacheKey(db, coll, id, extra[headerPartitionKey])
		entry, err := c.cache.Get(ctx, key)
		if err != nil && err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("document", id).Msg("Cache get error")
		}
		if entry != nil && entry.ETag != "" {
			extra[headerIfNoneMatch] = entry.ETag
			cache.ConditionalRequests.Inc()
			cached = entry
		}
	}

	resp, err := c.do(ctx, http.MethodGet, path, extra, nil)
	if err != nil {
		return nil, err
	}

	if resp.status == http.StatusNotModified && cached != nil {
		cache.NotModified.Inc()
		c.logger.Debug().Str("document", id).Msg("304 Not Modified, serving cached document")
		if err := c.cache.Touch(ctx, key); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache TTL")
		}
		var doc Document
		if err := json.Unmarshal(cached.Data, &doc); err != nil {
			return nil, fmt.Errorf("decode cached document: %w", err)
		}
		return doc, nil
	}

	var doc Document
	if err := json.Unmarshal(resp.body, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, cache.NewEntry(resp.body, resp.etag())); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache document")
		}
	}

	return doc, nil
}

// ReplaceDocument replaces an existing document by id.
func (c *Client) ReplaceDocument(ctx context.Context, db, coll, id string, doc any, partitionKey any) (Document, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	extra, err := c.documentHeaders(partitionKey)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, http.MethodPut, documentPath(db, coll, id), extra, body)
	if err != nil {
		return nil, err
	}

	var stored Document
	if err := json.Unmarshal(resp.body, &stored); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	if c.cache != nil {
		key := c.documentCacheKey(db, coll, id, extra[headerPartitionKey])
		if err := c.cache.Set(ctx, key, cache.NewEntry(resp.body, resp.etag())); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache document")
		}
	}

	return stored, nil
}

// DeleteDocument deletes a document by id.
func (c *Client) DeleteDocument(ctx context.Context, db, coll, id string, partitionKey any) error {
	extra, err := c.documentHeaders(partitionKey)
	if err != nil {
		return err
	}

	if _, err := c.do(ctx, http.MethodDelete, documentPath(db, coll, id), extra, nil); err != nil {
		return err
	}

	if c.cache != nil {
		key := c.documentCacheKey(db, coll, id, extra[headerPartitionKey])
		if err := c.cache.Delete(ctx, key); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to invalidate cached document")
		}
	}

	return nil
}

func (c *Client) documentCacheKey(db, coll, id, partitionKey string) cache.Key {
	return cache.Key{
		ResourceLink: documentPath(db, coll, id),
		PartitionKey: partitionKey,
	}
}
