package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for budget tracking.
var (
	budgetUsedUnits = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "documentdb_budget_used_units",
		Help: "Request units spent in the current budget window",
	})

	budgetBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "documentdb_budget_blocks_total",
		Help: "Total number of requests blocked by the request unit budget",
	})

	budgetBackoffsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "documentdb_budget_backoffs_total",
		Help: "Total number of shared backoff windows opened after a 429",
	})
)

// Tracker accounts spent request units against a per-second budget and
// gates requests. All instances sharing the Redis backend share the budget.
type Tracker struct {
	redis  *redis.Client
	budget float64
	logger zerolog.Logger
}

// NewTracker creates a new budget tracker. budget is the number of request
// units available per second across all instances.
func NewTracker(redisClient *redis.Client, budget float64, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		budget: budget,
		logger: logger,
	}
}

// GetState assembles the current budget state from Redis.
// Returns a fresh unspent state when no data exists for this window.
func (t *Tracker) GetState(ctx context.Context) (*BudgetState, error) {
	now := time.Now()

	used, err := t.redis.Get(ctx, WindowKey(now)).Float64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get spent units: %w", err)
	}

	backoffStr, err := t.redis.Get(ctx, RedisKeyBackoffUntil).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get backoff until: %w", err)
	}

	state := &BudgetState{
		Used:       used,
		Budget:     t.budget,
		LastUpdate: now,
	}

	if backoffStr != "" {
		// Stored as UnixNano so that millisecond retry-after hints survive.
		if nanos, err := strconv.ParseInt(backoffStr, 10, 64); err == nil {
			state.BackoffUntil = time.Unix(0, nanos)
		}
	}

	state.UpdateHealth()
	return state, nil
}

// RecordCharge adds a request charge to the current window.
func (t *Tracker) RecordCharge(ctx context.Context, charge float64) error {
	if charge <= 0 {
		return nil
	}

	key := WindowKey(time.Now())

	// The window key outlives its window by one length so that a state
	// read at the boundary still sees it.
	pipe := t.redis.Pipeline()
	incr := pipe.IncrByFloat(ctx, key, charge)
	pipe.Expire(ctx, key, 2*Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record charge: %w", err)
	}

	budgetUsedUnits.Set(incr.Val())

	t.logger.Debug().
		Float64("charge", charge).
		Float64("window_used", incr.Val()).
		Float64("budget", t.budget).
		Msg("Request charge recorded")

	return nil
}

// RecordThrottle opens a shared backoff window after a 429. Every instance
// sharing the Redis backend stops sending until it closes.
func (t *Tracker) RecordThrottle(ctx context.Context, retryAfter time.Duration) error {
	if retryAfter <= 0 {
		return nil
	}

	until := time.Now().Add(retryAfter)
	if err := t.redis.Set(ctx, RedisKeyBackoffUntil, until.UnixNano(), retryAfter).Err(); err != nil {
		return fmt.Errorf("record throttle: %w", err)
	}

	budgetBackoffsTotal.Inc()

	t.logger.Warn().
		Dur("retry_after", retryAfter).
		Time("backoff_until", until).
		Msg("Service throttled - opening shared backoff window")

	return nil
}

// Allow checks if a request should be allowed under the current budget.
// Returns false while the window's budget is spent or a backoff is active.
func (t *Tracker) Allow(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get budget state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Warn().
			Float64("used", state.Used).
			Float64("budget", state.Budget).
			Dur("backoff_remaining", state.TimeUntilBackoffEnds()).
			Msg("Request unit budget exhausted - blocking request")

		budgetBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Float64("used", state.Used).
			Float64("budget", state.Budget).
			Msg("Request unit budget strained")
	}

	return true, nil
}
