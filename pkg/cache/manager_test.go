package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client for testing.
// Unit tests talk to a local Redis and skip when none is running; the
// integration suite runs the same paths against a containerized Redis.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewManager(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	manager := NewManager(client, 10*time.Minute)
	if manager == nil {
		t.Fatal("NewManager returned nil")
	}
	if manager.redis != client {
		t.Error("Manager redis client not set correctly")
	}
	if manager.TTL() != 10*time.Minute {
		t.Errorf("TTL() = %v, want 10m", manager.TTL())
	}
}

func TestNewManager_DefaultTTL(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	manager := NewManager(client, 0)
	if manager.TTL() != DefaultTTL {
		t.Errorf("TTL() = %v, want %v", manager.TTL(), DefaultTTL)
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil, time.Minute)
}

func TestManager_SetAndGet(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, 5*time.Minute)
	ctx := context.Background()

	key := Key{
		ResourceLink: "dbs/shop/colls/orders/docs/order-1",
	}

	entry := NewEntry([]byte(`{"id":"order-1","total":9.99}`), `"abc123"`)

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	retrieved, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if string(retrieved.Data) != string(entry.Data) {
		t.Errorf("Data mismatch: got %s, want %s", retrieved.Data, entry.Data)
	}
	if retrieved.ETag != entry.ETag {
		t.Errorf("ETag mismatch: got %s, want %s", retrieved.ETag, entry.ETag)
	}
}

func TestManager_Get_CacheMiss(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, 5*time.Minute)
	ctx := context.Background()

	key := Key{
		ResourceLink: "dbs/shop/colls/orders/docs/nonexistent",
	}

	_, err := manager.Get(ctx, key)
	if err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestManager_EntryExpires(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, 100*time.Millisecond)
	ctx := context.Background()

	key := Key{
		ResourceLink: "dbs/shop/colls/orders/docs/order-1",
	}

	if err := manager.Set(ctx, key, NewEntry([]byte(`{}`), `"e"`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	_, err := manager.Get(ctx, key)
	if err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss after TTL, got %v", err)
	}
}

func TestManager_Delete(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, 5*time.Minute)
	ctx := context.Background()

	key := Key{
		ResourceLink: "dbs/shop/colls/orders/docs/order-1",
	}

	if err := manager.Set(ctx, key, NewEntry([]byte(`{}`), `"e"`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := manager.Get(ctx, key); err != nil {
		t.Fatalf("Get after Set failed: %v", err)
	}

	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, err := manager.Get(ctx, key)
	if err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
	}
}

func TestManager_Touch(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, 5*time.Minute)
	ctx := context.Background()

	key := Key{
		ResourceLink: "dbs/shop/colls/orders/docs/order-1",
	}

	if err := manager.Set(ctx, key, NewEntry([]byte(`{}`), `"e"`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := manager.Touch(ctx, key); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}

	ttl, err := client.TTL(ctx, key.String()).Result()
	if err != nil {
		t.Fatalf("TTL lookup failed: %v", err)
	}
	if ttl < 4*time.Minute {
		t.Errorf("TTL after Touch = %v, want close to 5m", ttl)
	}
}

func TestManager_Touch_MissingKey(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, 5*time.Minute)
	ctx := context.Background()

	key := Key{
		ResourceLink: "dbs/shop/colls/orders/docs/nonexistent",
	}

	if err := manager.Touch(ctx, key); err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestManager_Set_NilEntry(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, 5*time.Minute)
	ctx := context.Background()

	key := Key{
		ResourceLink: "dbs/shop/colls/orders/docs/order-1",
	}

	err := manager.Set(ctx, key, nil)
	if err == nil {
		t.Error("Set with nil entry should return error")
	}
}
