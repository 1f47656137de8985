// Package client provides the core DocumentDB REST client with master key
// authentication, document caching, and request unit budget tracking.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/timoklimmer/documentdb-go/pkg/auth"
	"github.com/timoklimmer/documentdb-go/pkg/cache"
	"github.com/timoklimmer/documentdb-go/pkg/ratelimit"
)

// Prometheus metrics for DocumentDB client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "documentdb_requests_total",
		Help: "Total DocumentDB requests by resource type and status",
	}, []string{"resource", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "documentdb_request_duration_seconds",
		Help:    "DocumentDB request duration in seconds by resource type",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	}, []string{"resource"})

	requestCharge = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "documentdb_request_charge_units",
		Help:    "Request charge in request units by resource type",
		Buckets: []float64{1, 2.5, 5, 10, 25, 50, 100, 250},
	}, []string{"resource"})

	throttledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "documentdb_throttled_requests_total",
		Help: "Total requests rejected by the service with status 429",
	})
)

// Client is the main DocumentDB client.
type Client struct {
	httpClient *http.Client
	endpoint   *url.URL
	redis      *redis.Client
	budget     *ratelimit.Tracker
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
	now        func() time.Time
}

// Config holds the client configuration.
type Config struct {
	// Endpoint is the account endpoint, e.g. "https://myaccount.documents.azure.com".
	Endpoint string

	// MasterKey is the base64-encoded master key of the account.
	MasterKey string

	// Redis client for document caching and request unit budget state.
	// Optional: without it caching and budget tracking are disabled.
	Redis *redis.Client

	// User-Agent header sent with every request
	// Format: "AppName/Version"
	UserAgent string

	// ConsistencyLevel requested per operation, e.g. "Session".
	// Empty uses the account default.
	ConsistencyLevel string

	// MaxItemCount is the page size hint for queries and feed reads
	MaxItemCount int

	// RequestUnitBudget is the shared request unit budget per second.
	// 0 disables budget tracking.
	RequestUnitBudget float64

	// CacheTTL is the Redis TTL for cached document reads
	CacheTTL time.Duration

	// HTTPTimeout per request
	HTTPTimeout time.Duration

	// Now returns the current time, used for signing dates.
	// Defaults to time.Now; tests inject a fixed clock.
	Now func() time.Time
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(endpoint, masterKey string) Config {
	return Config{
		Endpoint:          endpoint,
		MasterKey:         masterKey,
		UserAgent:         "documentdb-go/1.0",
		MaxItemCount:      100,
		RequestUnitBudget: 0,
		CacheTTL:          5 * time.Minute,
		HTTPTimeout:       30 * time.Second,
	}
}

// New creates a new DocumentDB client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}

	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	if cfg.MasterKey == "" {
		return nil, fmt.Errorf("master key is required")
	}

	if _, err := base64.StdEncoding.DecodeString(cfg.MasterKey); err != nil {
		return nil, &auth.AuthenticationError{Reason: "master key is not valid base64", Err: err}
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	// Initialize logger
	logger := log.With().Str("component", "documentdb-client").Logger()

	// Budget tracker and document cache need Redis; both stay nil without it.
	var budget *ratelimit.Tracker
	var cacheManager *cache.Manager
	if cfg.Redis != nil {
		if cfg.RequestUnitBudget > 0 {
			budget = ratelimit.NewTracker(cfg.Redis, cfg.RequestUnitBudget, logger)
		}
		cacheManager = cache.NewManager(cfg.Redis, cfg.CacheTTL)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		endpoint: endpoint,
		redis:    cfg.Redis,
		budget:   budget,
		cache:    cacheManager,
		config:   cfg,
		logger:   logger,
		now:      cfg.Now,
	}, nil
}

// response is the decoded outcome of a single REST round trip.
type response struct {
	status int
	header http.Header
	body   []byte
	charge float64
}

func (r *response) etag() string { return r.header.Get(headerETag) }

func (r *response) sessionToken() string { return r.header.Get(headerSessionToken) }

func (r *response) continuation() string { return r.header.Get(headerContinuation) }

// do signs and executes a single request against the account endpoint.
// path is relative to the account root, e.g. "dbs/MyDB/colls/MyColl/docs".
//
// Responses with status 429 are returned as *RateLimitError carrying the
// server's suspension hint. Other non-2xx statuses (except 304) become
// *APIError with the remote code and message. Retrying is left to the
// caller.
func (c *Client) do(ctx context.Context, method, path string, extra map[string]string, body []byte) (*response, error) {
	resourceType, resourceLink := resourceFromPath(path)

	// Step 1: Check request unit budget
	if c.budget != nil {
		allowed, err := c.budget.Allow(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Budget check failed")
		} else if !allowed {
			c.logger.Warn().
				Str("resource", resourceType).
				Msg("Request blocked by request unit budget")
			requestsTotal.WithLabelValues(resourceType, "budget_exhausted").Inc()
			return nil, ErrBudgetExhausted
		}
	}

	// Step 2: Sign the request
	date := c.now().UTC().Format(http.TimeFormat)
	token, err := auth.Sign(method, resourceType, resourceLink, date, c.config.MasterKey)
	if err != nil {
		return nil, err
	}

	// Step 3: Build the request
	u := *c.endpoint
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + path
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set(headerAuthorization, token)
	req.Header.Set(headerDate, date)
	req.Header.Set(headerAPIVersion, apiVersion)
	req.Header.Set(headerUserAgent, c.config.UserAgent)
	if body != nil {
		req.Header.Set(headerContentType, contentTypeJSON)
	}
	if c.config.ConsistencyLevel != "" {
		req.Header.Set(headerConsistencyLevel, c.config.ConsistencyLevel)
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}

	// Step 4: Execute
	c.logger.Debug().
		Str("method", method).
		Str("resource", resourceType).
		Str("path", path).
		Msg("Executing request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	requestDuration.WithLabelValues(resourceType).Observe(time.Since(start).Seconds())
	if err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("HTTP request failed")
		requestsTotal.WithLabelValues(resourceType, "network_error").Inc()
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		requestsTotal.WithLabelValues(resourceType, "network_error").Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	requestsTotal.WithLabelValues(resourceType, strconv.Itoa(resp.StatusCode)).Inc()

	// Step 5: Account the request charge
	charge := parseCharge(resp.Header)
	if charge > 0 {
		requestCharge.WithLabelValues(resourceType).Observe(charge)
		if c.budget != nil {
			if err := c.budget.RecordCharge(ctx, charge); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to record request charge")
			}
		}
	}

	// Step 6: Map the status
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header)
		throttledTotal.Inc()
		if c.budget != nil {
			if err := c.budget.RecordThrottle(ctx, retryAfter); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to record throttle")
			}
		}
		c.logger.Warn().
			Str("resource", resourceType).
			Dur("retry_after", retryAfter).
			Msg("Request rate too large")
		return nil, &RateLimitError{RetryAfter: retryAfter}

	case resp.StatusCode >= 400:
		apiErr := newAPIError(resp.StatusCode, respBody)
		c.logger.Warn().
			Str("resource", resourceType).
			Int("status", resp.StatusCode).
			Str("code", apiErr.Code).
			Msg("Request failed")
		return nil, apiErr
	}

	return &response{
		status: resp.StatusCode,
		header: resp.Header,
		body:   respBody,
		charge: charge,
	}, nil
}

// parseCharge reads the request charge header. Absent or malformed values
// count as zero.
func parseCharge(h http.Header) float64 {
	v := h.Get(headerRequestCharge)
	if v == "" {
		return 0
	}
	charge, err := strconv.ParseFloat(v, 64)
	if err != nil || charge < 0 {
		return 0
	}
	return charge
}

// parseRetryAfter reads the throttling suspension hint in milliseconds.
func parseRetryAfter(h http.Header) time.Duration {
	v := h.Get(headerRetryAfterMS)
	if v == "" {
		return 0
	}
	ms, err := strconv.ParseFloat(v, 64)
	if err != nil || ms < 0 {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// Close closes the client and releases resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Cache returns the document cache manager, nil when Redis is not configured.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}
