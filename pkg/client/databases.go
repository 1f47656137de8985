package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
)

// CreateDatabase creates a database with the given id.
func (c *Client) CreateDatabase(ctx context.Context, id string) (*Database, error) {
	if id == "" {
		return nil, fmt.Errorf("database id is required")
	}

	body, err := json.Marshal(Database{ID: id})
	if err != nil {
		return nil, fmt.Errorf("encode database: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "dbs", nil, body)
	if err != nil {
		return nil, err
	}

	var db Database
	if err := json.Unmarshal(resp.body, &db); err != nil {
		return nil, fmt.Errorf("decode database: %w", err)
	}

	c.logger.Info().Str("database", db.ID).Msg("Database created")
	return &db, nil
}

// GetDatabase reads a database by id.
func (c *Client) GetDatabase(ctx context.Context, id string) (*Database, error) {
	resp, err := c.do(ctx, http.MethodGet, databasePath(id), nil, nil)
	if err != nil {
		return nil, err
	}

	var db Database
	if err := json.Unmarshal(resp.body, &db); err != nil {
		return nil, fmt.Errorf("decode database: %w", err)
	}
	return &db, nil
}

// DeleteDatabase deletes a database and everything in it.
func (c *Client) DeleteDatabase(ctx context.Context, id string) error {
	if _, err := c.do(ctx, http.MethodDelete, databasePath(id), nil, nil); err != nil {
		return err
	}
	c.logger.Info().Str("database", id).Msg("Database deleted")
	return nil
}

// ListDatabases returns all databases of the account.
func (c *Client) ListDatabases(ctx context.Context) ([]Database, error) {
	resp, err := c.do(ctx, http.MethodGet, "dbs", nil, nil)
	if err != nil {
		return nil, err
	}

	var feed databaseFeed
	if err := json.Unmarshal(resp.body, &feed); err != nil {
		return nil, fmt.Errorf("decode database feed: %w", err)
	}
	return feed.Databases, nil
}

// EnsureDatabase reads a database and creates it when missing.
func (c *Client) EnsureDatabase(ctx context.Context, id string) (*Database, error) {
	db, err := c.GetDatabase(ctx, id)
	if err == nil {
		return db, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return c.CreateDatabase(ctx, id)
}
