package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/audiofold/spotify-go/internal/testutil"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
)

// setupTestRedis creates a test Redis client.
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

	// Flush test DB
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

// setupTestClient creates a client pointed at a mock API server.
func setupTestClient(t *testing.T) (*Client, *testutil.MockAPI) {
	t.Helper()

	redisClient := setupTestRedis(t)
	mock := testutil.NewMockAPI()
	t.Cleanup(mock.Close)

	cfg := DefaultConfig(redisClient, "TestApp/1.0.0 (test@example.com)")
	cfg.BaseURL = mock.URL()
	cfg.InitialBackoff = 10 * time.Millisecond

	tokens := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-access-token"})
	c, err := New(cfg, tokens)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	return c, mock
}

func TestNew_Validation(t *testing.T) {
	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer redisClient.Close()

	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config",
			config: Config{
				Redis:     redisClient,
				UserAgent: "TestApp/1.0.0 (test@example.com)",
			},
			expectError: false,
		},
		{
			name: "nil redis",
			config: Config{
				UserAgent: "TestApp/1.0.0",
			},
			expectError: true,
			errorMsg:    "redis client is required",
		},
		{
			name: "empty user agent",
			config: Config{
				Redis:     redisClient,
				UserAgent: "",
			},
			expectError: true,
			errorMsg:    "user-agent is required",
		},
		{
			name: "page size too large",
			config: Config{
				Redis:     redisClient,
				UserAgent: "TestApp/1.0.0",
				PageSize:  51,
			},
			expectError: true,
			errorMsg:    "page_size",
		},
		{
			name: "negative page size",
			config: Config{
				Redis:     redisClient,
				UserAgent: "TestApp/1.0.0",
				PageSize:  -1,
			},
			expectError: true,
			errorMsg:    "page_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.config, nil)

			if tt.expectError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("error = %q, want substring %q", err.Error(), tt.errorMsg)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer c.Close()

			if c.config.BaseURL != DefaultBaseURL {
				t.Errorf("BaseURL = %q, want default", c.config.BaseURL)
			}
			if c.config.PageSize != 50 {
				t.Errorf("PageSize = %d, want default 50", c.config.PageSize)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer redisClient.Close()

	cfg := DefaultConfig(redisClient, "TestApp/1.0.0")

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.PageSize != 50 {
		t.Errorf("PageSize = %d, want 50", cfg.PageSize)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
}

func TestDo_StandardHeaders(t *testing.T) {
	c, mock := setupTestClient(t)

	resp, err := c.Get(context.Background(), "/v1/me", nil)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	resp.Body.Close()

	headers := mock.LastRequestHeader
	if got := headers.Get("User-Agent"); got != "TestApp/1.0.0 (test@example.com)" {
		t.Errorf("User-Agent = %q", got)
	}
	if got := headers.Get("Authorization"); got != "Bearer test-access-token" {
		t.Errorf("Authorization = %q, want bearer credential", got)
	}
	if got := headers.Get("Accept"); got != "application/json" {
		t.Errorf("Accept = %q", got)
	}
}

func TestDo_CacheHitWithoutValidator(t *testing.T) {
	c, mock := setupTestClient(t)

	// Cacheable response without an ETag cannot be revalidated, so a
	// fresh entry must be served without touching the network.
	mock.SetResponse("/v1/artists/abc", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"id": "abc", "name": "Test Artist"}`,
		Headers: map[string]string{
			"Cache-Control": "public, max-age=300",
			"Content-Type":  "application/json",
		},
	})

	ctx := context.Background()
	resp, err := c.Get(ctx, "/v1/artists/abc", nil)
	if err != nil {
		t.Fatalf("first Get() error: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	resp, err = c.Get(ctx, "/v1/artists/abc", nil)
	if err != nil {
		t.Fatalf("second Get() error: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if mock.GetRequestCount() != 1 {
		t.Errorf("request count = %d, want 1 (second read from cache)", mock.GetRequestCount())
	}
	if !strings.Contains(string(body), "Test Artist") {
		t.Errorf("cached body = %q", string(body))
	}
}

func TestDo_ConditionalRequest304(t *testing.T) {
	c, mock := setupTestClient(t)

	mock.SetHandler("/v1/albums/xyz", testutil.NewConditionalHandler(`"v1"`, `{"id": "xyz"}`))

	ctx := context.Background()
	resp, err := c.Get(ctx, "/v1/albums/xyz", nil)
	if err != nil {
		t.Fatalf("first Get() error: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	resp, err = c.Get(ctx, "/v1/albums/xyz", nil)
	if err != nil {
		t.Fatalf("second Get() error: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if mock.GetConditionalCount() != 1 {
		t.Errorf("conditional count = %d, want 1", mock.GetConditionalCount())
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 served from cache", resp.StatusCode)
	}
	if !strings.Contains(string(body), "xyz") {
		t.Errorf("body = %q, want cached payload", string(body))
	}
}

func TestDo_ClientErrorNotRetried(t *testing.T) {
	c, mock := setupTestClient(t)

	mock.SetResponse("/v1/artists/bogus", testutil.NewNotFoundResponse("Non existing id"))

	_, err := c.Get(context.Background(), "/v1/artists/bogus", nil)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
	if apiErr.Message != "Non existing id" {
		t.Errorf("Message = %q, want envelope message", apiErr.Message)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("request count = %d, want 1 (no retries on 4xx)", mock.GetRequestCount())
	}
}

func TestDo_RetryOnServerError(t *testing.T) {
	c, mock := setupTestClient(t)

	attempts := 0
	mock.SetHandler("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error": {"status": 500, "message": "oops"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"tracks": null}`))
	})

	resp, err := c.Get(context.Background(), "/v1/search", nil)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	resp.Body.Close()

	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestDo_RetryExhausted(t *testing.T) {
	c, mock := setupTestClient(t)

	mock.SetResponse("/v1/me/tracks", testutil.NewServerErrorResponse())

	_, err := c.Get(context.Background(), "/v1/me/tracks", nil)
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("error = %v, want ErrRetryExhausted", err)
	}
	if mock.GetRequestCount() != 3 {
		t.Errorf("request count = %d, want 3", mock.GetRequestCount())
	}
}

func TestDo_RateLimitRetryAfter(t *testing.T) {
	c, mock := setupTestClient(t)

	attempts := 0
	mock.SetHandler("/v1/me/playlists", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error": {"status": 429, "message": "API rate limit exceeded"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"items": []}`))
	})

	start := time.Now()
	resp, err := c.Get(context.Background(), "/v1/me/playlists", nil)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	resp.Body.Close()

	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if elapsed := time.Since(start); elapsed < 1*time.Second {
		t.Errorf("elapsed = %v, want Retry-After honored (>= 1s)", elapsed)
	}
}

func TestGetJSON(t *testing.T) {
	c, mock := setupTestClient(t)

	mock.SetResponse("/v1/artists/abc", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"id": "abc", "name": "Test Artist", "popularity": 61}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	})

	var artist struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Popularity int    `json:"popularity"`
	}
	if err := c.GetJSON(context.Background(), "/v1/artists/abc", nil, &artist); err != nil {
		t.Fatalf("GetJSON() error: %v", err)
	}

	if artist.Name != "Test Artist" || artist.Popularity != 61 {
		t.Errorf("decoded artist = %+v", artist)
	}
}
