package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
)

func TestCreateDocument(t *testing.T) {
	var captured *http.Request
	var capturedBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(r.Context())
		capturedBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Etag", `"v1"`)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": "o-1", "customerId": "alice", "total": 10, "_rid": "d9RzAJRFKgwBAAAAAAAAAA==", "_etag": "\"v1\""}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	doc, err := client.CreateDocument(context.Background(),
		"shop", "orders",
		map[string]any{"id": "o-1", "customerId": "alice", "total": 10},
		"alice")
	if err != nil {
		t.Fatalf("CreateDocument() failed: %v", err)
	}

	if captured.Method != http.MethodPost {
		t.Errorf("Method = %q, want POST", captured.Method)
	}
	if captured.URL.Path != "/dbs/shop/colls/orders/docs" {
		t.Errorf("Path = %q, want the collection docs feed", captured.URL.Path)
	}
	if got := captured.Header.Get("x-ms-documentdb-partitionkey"); got != `["alice"]` {
		t.Errorf("Partition key header = %q, want %q", got, `["alice"]`)
	}
	if got := captured.Header.Get("x-ms-documentdb-is-upsert"); got != "" {
		t.Errorf("Upsert header = %q, want absent on plain create", got)
	}
	if got := captured.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}

	var sent map[string]any
	if err := json.Unmarshal(capturedBody, &sent); err != nil {
		t.Fatalf("Request body did not decode: %v", err)
	}
	if sent["customerId"] != "alice" {
		t.Errorf("Sent customerId = %v, want alice", sent["customerId"])
	}

	if doc.ID() != "o-1" {
		t.Errorf("Stored document id = %q, want o-1", doc.ID())
	}
	if doc.ETag() != `"v1"` {
		t.Errorf("Stored document etag = %q, want \"v1\"", doc.ETag())
	}
}

func TestUpsertDocument(t *testing.T) {
	var capturedUpsert string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedUpsert = r.Header.Get("x-ms-documentdb-is-upsert")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "o-1", "total": 12}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	doc, err := client.UpsertDocument(context.Background(),
		"shop", "orders", map[string]any{"id": "o-1", "total": 12}, nil)
	if err != nil {
		t.Fatalf("UpsertDocument() failed: %v", err)
	}

	if capturedUpsert != "true" {
		t.Errorf("Upsert header = %q, want %q", capturedUpsert, "true")
	}
	if doc["total"] != float64(12) {
		t.Errorf("Stored total = %v, want 12", doc["total"])
	}
}

func TestGetDocument(t *testing.T) {
	var captured *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(r.Context())
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "o-1", "customerId": "alice", "total": 10}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	doc, err := client.GetDocument(context.Background(), "shop", "orders", "o-1", "alice")
	if err != nil {
		t.Fatalf("GetDocument() failed: %v", err)
	}

	if captured.Method != http.MethodGet {
		t.Errorf("Method = %q, want GET", captured.Method)
	}
	if captured.URL.Path != "/dbs/shop/colls/orders/docs/o-1" {
		t.Errorf("Path = %q, want the document path", captured.URL.Path)
	}
	if doc["customerId"] != "alice" {
		t.Errorf("customerId = %v, want alice", doc["customerId"])
	}
}

func TestReplaceDocument(t *testing.T) {
	var captured *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(r.Context())
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "o-1", "total": 99, "_etag": "\"v2\""}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	doc, err := client.ReplaceDocument(context.Background(),
		"shop", "orders", "o-1", map[string]any{"id": "o-1", "total": 99}, "alice")
	if err != nil {
		t.Fatalf("ReplaceDocument() failed: %v", err)
	}

	if captured.Method != http.MethodPut {
		t.Errorf("Method = %q, want PUT", captured.Method)
	}
	if captured.URL.Path != "/dbs/shop/colls/orders/docs/o-1" {
		t.Errorf("Path = %q, want the document path", captured.URL.Path)
	}
	if doc["total"] != float64(99) {
		t.Errorf("Replaced total = %v, want 99", doc["total"])
	}
}

func TestDeleteDocument(t *testing.T) {
	var captured *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	if err := client.DeleteDocument(context.Background(), "shop", "orders", "o-1", "alice"); err != nil {
		t.Fatalf("DeleteDocument() failed: %v", err)
	}

	if captured.Method != http.MethodDelete {
		t.Errorf("Method = %q, want DELETE", captured.Method)
	}
	if captured.URL.Path != "/dbs/shop/colls/orders/docs/o-1" {
		t.Errorf("Path = %q, want the document path", captured.URL.Path)
	}
}

func TestGetDocument_ServesCachedCopyOn304(t *testing.T) {
	redisClient := setupTestRedis(t)

	requestsMade := 0
	conditionalRequests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestsMade++

		// A revalidation carries the cached document's etag
		if r.Header.Get("If-None-Match") == `"v1"` {
			conditionalRequests++
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("Etag", `"v1"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "o-1", "customerId": "alice", "total": 10, "_etag": "\"v1\""}`))
	}))
	defer server.Close()

	cfg := DefaultConfig(server.URL, testMasterKey)
	cfg.Redis = redisClient
	cfg.Now = testClock
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ctx := context.Background()

	// First read fills the cache
	first, err := client.GetDocument(ctx, "shop", "orders", "o-1", "alice")
	if err != nil {
		t.Fatalf("First GetDocument() failed: %v", err)
	}
	if requestsMade != 1 {
		t.Fatalf("requestsMade = %d, want 1", requestsMade)
	}

	// Second read revalidates and gets the body from the cache
	second, err := client.GetDocument(ctx, "shop", "orders", "o-1", "alice")
	if err != nil {
		t.Fatalf("Second GetDocument() failed: %v", err)
	}

	if requestsMade != 2 {
		t.Errorf("requestsMade = %d, want 2", requestsMade)
	}
	if conditionalRequests != 1 {
		t.Errorf("conditionalRequests = %d, want 1", conditionalRequests)
	}

	if second["total"] != first["total"] || second.ID() != first.ID() {
		t.Errorf("Cached document = %v, want the original %v", second, first)
	}
}

func TestCreateDocument_PrimesCache(t *testing.T) {
	redisClient := setupTestRedis(t)

	conditionalRequests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Header().Set("Etag", `"v1"`)
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id": "o-1", "total": 10, "_etag": "\"v1\""}`))
			return
		}

		// The read after the write must already revalidate
		if r.Header.Get("If-None-Match") == `"v1"` {
			conditionalRequests++
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "o-1", "total": 10}`))
	}))
	defer server.Close()

	cfg := DefaultConfig(server.URL, testMasterKey)
	cfg.Redis = redisClient
	cfg.Now = testClock
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ctx := context.Background()

	created, err := client.CreateDocument(ctx, "shop", "orders",
		map[string]any{"id": "o-1", "total": 10}, "alice")
	if err != nil {
		t.Fatalf("CreateDocument() failed: %v", err)
	}

	got, err := client.GetDocument(ctx, "shop", "orders", "o-1", "alice")
	if err != nil {
		t.Fatalf("GetDocument() failed: %v", err)
	}

	if conditionalRequests != 1 {
		t.Errorf("conditionalRequests = %d, want 1 (write should prime the cache)", conditionalRequests)
	}
	if got["total"] != created["total"] {
		t.Errorf("Read total = %v, want the created %v", got["total"], created["total"])
	}
}

func TestDeleteDocument_InvalidatesCache(t *testing.T) {
	redisClient := setupTestRedis(t)

	conditionalRequests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			if r.Header.Get("If-None-Match") != "" {
				conditionalRequests++
			}
			w.Header().Set("Etag", `"v1"`)
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"id": "o-1", "total": 10, "_etag": "\"v1\""}`))
		}
	}))
	defer server.Close()

	cfg := DefaultConfig(server.URL, testMasterKey)
	cfg.Redis = redisClient
	cfg.Now = testClock
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ctx := context.Background()

	if _, err := client.GetDocument(ctx, "shop", "orders", "o-1", "alice"); err != nil {
		t.Fatalf("GetDocument() failed: %v", err)
	}
	if err := client.DeleteDocument(ctx, "shop", "orders", "o-1", "alice"); err != nil {
		t.Fatalf("DeleteDocument() failed: %v", err)
	}

	// The cached copy is gone, so this read must be unconditional
	if _, err := client.GetDocument(ctx, "shop", "orders", "o-1", "alice"); err != nil {
		t.Fatalf("GetDocument() after delete failed: %v", err)
	}

	if conditionalRequests != 0 {
		t.Errorf("conditionalRequests = %d, want 0 after invalidation", conditionalRequests)
	}
}

func TestPartitionKeyHeader(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"string key", "alice", `["alice"]`},
		{"numeric key", 42, `[42]`},
		{"null key", nil, `[null]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := partitionKeyHeader(tt.value)
			if err != nil {
				t.Fatalf("partitionKeyHeader() failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("partitionKeyHeader() = %q, want %q", got, tt.expected)
			}
		})
	}
}
