//go:build integration

package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestTracker_Integration_GetState(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(redisClient, 400, logger)
	ctx := context.Background()

	// Test 1: Fresh state when Redis is empty
	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}

	if state.Used != 0 {
		t.Errorf("Default Used = %v, want 0", state.Used)
	}
	if state.Budget != 400 {
		t.Errorf("Budget = %v, want 400", state.Budget)
	}
	if !state.IsHealthy {
		t.Error("Default state should be healthy")
	}

	// Test 2: Record charges and retrieve the spent window
	before := time.Now()
	if err := tracker.RecordCharge(ctx, 150.5); err != nil {
		t.Fatalf("RecordCharge() error = %v", err)
	}
	if err := tracker.RecordCharge(ctx, 49.5); err != nil {
		t.Fatalf("RecordCharge() error = %v", err)
	}

	// The two charges may straddle a window boundary, so the total is
	// summed across the candidate windows.
	var total float64
	for offset := time.Duration(0); offset <= Window; offset += Window {
		used, err := redisClient.Get(ctx, WindowKey(before.Add(offset))).Float64()
		if err != nil && err != redis.Nil {
			t.Fatalf("Window read error = %v", err)
		}
		total += used
	}
	if total < 199 || total > 201 {
		t.Errorf("Recorded units = %v, want 200", total)
	}

	state, err = tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() after charges error = %v", err)
	}
	if !state.IsHealthy {
		t.Error("State with half the budget spent should be healthy")
	}
}

func TestTracker_Integration_WindowRollsOver(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(redisClient, 400, logger)
	ctx := context.Background()

	if err := tracker.RecordCharge(ctx, 400); err != nil {
		t.Fatalf("RecordCharge() error = %v", err)
	}

	// Wait into the next window; the spent units must not carry over.
	time.Sleep(Window + 100*time.Millisecond)

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}

	if state.Used != 0 {
		t.Errorf("Used after window rollover = %v, want 0", state.Used)
	}

	allowed, err := tracker.Allow(ctx)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Error("Allow() = false after window rollover, want true")
	}
}

func TestTracker_Integration_Allow_SpentBudget(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(redisClient, 100, logger)
	ctx := context.Background()

	if err := tracker.RecordCharge(ctx, 120); err != nil {
		t.Fatalf("RecordCharge() error = %v", err)
	}

	allowed, err := tracker.Allow(ctx)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}

	// The charge may land on a window boundary; spent budget in the same
	// window must block.
	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Used >= state.Budget && allowed {
		t.Error("Allow() = true with the window budget spent, want false")
	}
}

func TestTracker_Integration_SharedBackoff(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	ctx := context.Background()

	// Two trackers sharing the backend, as two client instances would.
	first := NewTracker(redisClient, 400, logger)
	second := NewTracker(redisClient, 400, logger)

	if err := first.RecordThrottle(ctx, 2*time.Second); err != nil {
		t.Fatalf("RecordThrottle() error = %v", err)
	}

	// Both instances must hold back during the backoff window.
	allowed, err := second.Allow(ctx)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Error("Allow() = true during shared backoff, want false")
	}

	// After the window closes, requests flow again. The key carries the
	// backoff duration as TTL, so it clears itself.
	time.Sleep(2*time.Second + 200*time.Millisecond)

	allowed, err = second.Allow(ctx)
	if err != nil {
		t.Fatalf("Allow() after backoff error = %v", err)
	}
	if !allowed {
		t.Error("Allow() = false after backoff ended, want true")
	}
}
