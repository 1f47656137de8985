package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"
)

// CreateCollection creates a collection in the given database. A partition
// key path and provisioned throughput are applied when the spec sets them.
func (c *Client) CreateCollection(ctx context.Context, db string, spec CollectionSpec) (*Collection, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("collection id is required")
	}

	coll := Collection{ID: spec.ID}
	if spec.PartitionKeyPath != "" {
		coll.PartitionKey = &PartitionKeyDefinition{
			Paths: []string{spec.PartitionKeyPath},
			Kind:  "Hash",
		}
	}

	body, err := json.Marshal(coll)
	if err != nil {
		return nil, fmt.Errorf("encode collection: %w", err)
	}

	var extra map[string]string
	if spec.Throughput > 0 {
		extra = map[string]string{headerOfferThroughput: strconv.Itoa(spec.Throughput)}
	}

	resp, err := c.do(ctx, http.MethodPost, databasePath(db)+"/colls", extra, body)
	if err != nil {
		return nil, err
	}

	var created Collection
	if err := json.Unmarshal(resp.body, &created); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}

	c.logger.Info().
		Str("database", db).
		Str("collection", created.ID).
		Int("throughput", spec.Throughput).
		Msg("Collection created")
	return &created, nil
}

// GetCollection reads a collection by id.
func (c *Client) GetCollection(ctx context.Context, db, coll string) (*Collection, error) {
	resp, err := c.do(ctx, http.MethodGet, collectionPath(db, coll), nil, nil)
	if err != nil {
		return nil, err
	}

	var out Collection
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	return &out, nil
}

// DeleteCollection deletes a collection and its documents.
func (c *Client) DeleteCollection(ctx context.Context, db, coll string) error {
	if _, err := c.do(ctx, http.MethodDelete, collectionPath(db, coll), nil, nil); err != nil {
		return err
	}
	c.logger.Info().
		Str("database", db).
		Str("collection", coll).
		Msg("Collection deleted")
	return nil
}

// ListCollections returns all collections of a database.
func (c *Client) ListCollections(ctx context.Context, db string) ([]Collection, error) {
	resp, err := c.do(ctx, http.MethodGet, databasePath(db)+"/colls", nil, nil)
	if err != nil {
		return nil, err
	}

	var feed collectionFeed
	if err := json.Unmarshal(resp.body, &feed); err != nil {
		return nil, fmt.Errorf("decode collection feed: %w", err)
	}
	return feed.Collections, nil
}

// CollectionExists reports whether a collection exists.
func (c *Client) CollectionExists(ctx context.Context, db, coll string) (bool, error) {
	_, err := c.GetCollection(ctx, db, coll)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

// EnsureCollection reads a collection and creates it when missing.
func (c *Client) EnsureCollection(ctx context.Context, db string, spec CollectionSpec) (*Collection, error) {
	coll, err := c.GetCollection(ctx, db, spec.ID)
	if err == nil {
		return coll, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return c.CreateCollection(ctx, db, spec)
}
