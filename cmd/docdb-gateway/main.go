package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/timoklimmer/documentdb-go/pkg/client"
	"github.com/timoklimmer/documentdb-go/pkg/logging"
	"github.com/timoklimmer/documentdb-go/pkg/query"
)

func main() {
	// Configuration from environment
	endpoint := getEnv("DOCUMENTDB_ENDPOINT", "https://localhost:8081")
	masterKey := getEnv("DOCUMENTDB_KEY", "")
	redisURL := getEnv("REDIS_URL", "")
	port := getEnv("PORT", "8080")
	userAgent := getEnv("USER_AGENT", "docdb-gateway/0.1.0")
	budget := getEnvFloat("RU_BUDGET", 0)

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Output: os.Stderr,
	})

	if masterKey == "" {
		log.Fatal().Msg("DOCUMENTDB_KEY is required")
	}

	// Redis is optional; without it the gateway runs with caching and
	// budget tracking disabled.
	var redisClient *redis.Client
	if redisURL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: redisURL,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cancel()
			log.Fatal().Err(err).Str("redis", redisURL).Msg("Failed to connect to Redis")
		}
		cancel()
		log.Info().Str("redis", redisURL).Msg("Connected to Redis")
	}

	// Create DocumentDB client
	cfg := client.DefaultConfig(endpoint, masterKey)
	cfg.Redis = redisClient
	cfg.UserAgent = userAgent
	cfg.RequestUnitBudget = budget

	docClient, err := client.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create DocumentDB client")
	}
	defer docClient.Close()

	executor := query.NewExecutor(docClient, query.DefaultConfig())

	// HTTP Server
	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/ready", readyHandler(redisClient))
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/query", queryHandler(executor))
	http.HandleFunc("/documents/", documentHandler(docClient))

	addr := ":" + port
	log.Info().
		Str("addr", addr).
		Str("endpoint", endpoint).
		Float64("ru_budget", budget).
		Msg("Starting DocumentDB gateway")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// readyHandler reports 503 until every configured backend answers.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

// queryPayload is the request body of POST /query.
type queryPayload struct {
	Database     string                  `json:"database"`
	Collection   string                  `json:"collection"`
	Query        string                  `json:"query"`
	Parameters   []client.QueryParameter `json:"parameters,omitempty"`
	MaxItemCount int                     `json:"maxItemCount,omitempty"`
	PartitionKey any                     `json:"partitionKey,omitempty"`
}

// queryResult is the response body of POST /query.
type queryResult struct {
	Documents     []client.Document `json:"documents"`
	Fields        []string          `json:"fields"`
	RequestCharge float64           `json:"requestCharge"`
	SessionToken  string            `json:"sessionToken,omitempty"`
	Pages         int               `json:"pages"`
	Retries       int               `json:"retries"`
}

func queryHandler(executor *query.Executor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "use POST")
			return
		}

		var payload queryPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "BadRequest", "invalid request body: "+err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		defer cancel()

		result, err := executor.Execute(ctx, client.QueryRequest{
			Database:     payload.Database,
			Collection:   payload.Collection,
			Query:        payload.Query,
			Parameters:   payload.Parameters,
			MaxItemCount: payload.MaxItemCount,
			PartitionKey: payload.PartitionKey,
		})
		if err != nil {
			writeRemoteError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, queryResult{
			Documents:     result.Documents,
			Fields:        result.Fields,
			RequestCharge: result.RequestCharge,
			SessionToken:  result.SessionToken,
			Pages:         result.Pages,
			Retries:       result.Retries,
		})
	}
}

// documentHandler serves GET /documents/{database}/{collection}/{id}.
// The partition key value is passed as the pk query parameter and is
// always treated as a string.
func documentHandler(docClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "use GET")
			return
		}

		parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/documents/"), "/"), "/")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			writeError(w, http.StatusBadRequest, "BadRequest", "path must be /documents/{database}/{collection}/{id}")
			return
		}

		var partitionKey any
		if pk := r.URL.Query().Get("pk"); pk != "" {
			partitionKey = pk
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		doc, err := docClient.GetDocument(ctx, parts[0], parts[1], parts[2], partitionKey)
		if err != nil {
			writeRemoteError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, doc)
	}
}

// writeRemoteError maps client errors onto gateway responses. Remote errors
// keep their status and envelope; throttling and budget blocks answer 429.
func writeRemoteError(w http.ResponseWriter, err error) {
	var apiErr *client.APIError
	var throttled *client.RateLimitError

	switch {
	case errors.As(err, &apiErr):
		writeError(w, apiErr.StatusCode, apiErr.Code, apiErr.Message)
	case errors.As(err, &throttled), errors.Is(err, client.ErrBudgetExhausted):
		writeError(w, http.StatusTooManyRequests, "429", err.Error())
	default:
		writeError(w, http.StatusBadGateway, "BadGateway", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring unparseable environment value")
		return defaultValue
	}
	return parsed
}
