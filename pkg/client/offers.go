package client

import (
	"context"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
)

// ListOffers returns all throughput offers of the account.
func (c *Client) ListOffers(ctx context.Context) ([]Offer, error) {
	resp, err := c.do(ctx, http.MethodGet, "offers", nil, nil)
	if err != nil {
		return nil, err
	}

	var feed offerFeed
	if err := json.Unmarshal(resp.body, &feed); err != nil {
		return nil, fmt.Errorf("decode offer feed: %w", err)
	}
	return feed.Offers, nil
}

// GetOffer reads an offer by its resource id.
func (c *Client) GetOffer(ctx context.Context, id string) (*Offer, error) {
	resp, err := c.do(ctx, http.MethodGet, "offers/"+id, nil, nil)
	if err != nil {
		return nil, err
	}

	var offer Offer
	if err := json.Unmarshal(resp.body, &offer); err != nil {
		return nil, fmt.Errorf("decode offer: %w", err)
	}
	return &offer, nil
}

// ReplaceOffer replaces an offer, typically to change provisioned throughput.
func (c *Client) ReplaceOffer(ctx context.Context, offer Offer) (*Offer, error) {
	if offer.ID == "" {
		return nil, fmt.Errorf("offer id is required")
	}

	body, err := json.Marshal(offer)
	if err != nil {
		return nil, fmt.Errorf("encode offer: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPut, "offers/"+offer.ID, nil, body)
	if err != nil {
		return nil, err
	}

	var replaced Offer
	if err := json.Unmarshal(resp.body, &replaced); err != nil {
		return nil, fmt.Errorf("decode offer: %w", err)
	}

	c.logger.Info().
		Str("offer", replaced.ID).
		Int("throughput", replaced.Content.OfferThroughput).
		Msg("Offer replaced")
	return &replaced, nil
}

// GetCollectionOffer finds the offer attached to a collection.
func (c *Client) GetCollectionOffer(ctx context.Context, db, coll string) (*Offer, error) {
	collection, err := c.GetCollection(ctx, db, coll)
	if err != nil {
		return nil, err
	}

	offers, err := c.ListOffers(ctx)
	if err != nil {
		return nil, err
	}

	for i := range offers {
		if offers[i].OfferResourceID == collection.ResourceID {
			return &offers[i], nil
		}
	}
	return nil, &APIError{
		StatusCode: http.StatusNotFound,
		Code:       "NotFound",
		Message:    fmt.Sprintf("no offer for collection %s/%s", db, coll),
	}
}

// SetCollectionThroughput changes the provisioned request unit limit of a
// collection by replacing its offer.
func (c *Client) SetCollectionThroughput(ctx context.Context, db, coll string, throughput int) (*Offer, error) {
	if throughput <= 0 {
		return nil, fmt.Errorf("throughput must be positive (got %d)", throughput)
	}

	offer, err := c.GetCollectionOffer(ctx, db, coll)
	if err != nil {
		return nil, err
	}

	offer.Content.OfferThroughput = throughput
	return c.ReplaceOffer(ctx, *offer)
}
