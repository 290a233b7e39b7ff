package integration

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/audiofold/spotify-go/internal/testutil"
	"github.com/audiofold/spotify-go/pkg/client"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/oauth2"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// setupClient creates a client pointed at a fresh mock API server.
func setupClient(t *testing.T, redisClient *redis.Client) (*client.Client, *testutil.MockAPI) {
	t.Helper()

	mock := testutil.NewMockAPI()
	t.Cleanup(mock.Close)

	cfg := client.DefaultConfig(redisClient, "TestApp/1.0.0 (integration@test.com)")
	cfg.BaseURL = mock.URL()
	cfg.InitialBackoff = 10 * time.Millisecond

	tokens := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "integration-token"})
	c, err := client.New(cfg, tokens)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	return c, mock
}

// TestFullRequestFlow tests the complete request flow:
// rate limit gate → cache miss → API request → cache store → revalidation.
func TestFullRequestFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	c, mock := setupClient(t, redisClient)

	etag := `"albums-v1"`
	testData := `{"items": [{"id": "alb1", "name": "First Album"}], "total": 1}`
	mock.SetHandler("/v1/artists/art1/albums", testutil.NewConditionalHandler(etag, testData))

	ctx := context.Background()

	// Request 1: full flow on a cold cache
	t.Log("Request 1: cache miss")
	resp1, err := c.Get(ctx, "/v1/artists/art1/albums", nil)
	if err != nil {
		t.Fatalf("Request 1 failed: %v", err)
	}
	body1, _ := io.ReadAll(resp1.Body)
	resp1.Body.Close()

	if resp1.StatusCode != http.StatusOK {
		t.Errorf("Request 1 status = %d, want %d", resp1.StatusCode, http.StatusOK)
	}
	if string(body1) != testData {
		t.Errorf("Request 1 body = %s", string(body1))
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("After request 1: API requests = %d, want 1", mock.GetRequestCount())
	}

	// Wait for cache write
	time.Sleep(100 * time.Millisecond)

	// Request 2: revalidation answered with 304, body served from cache
	t.Log("Request 2: conditional revalidation")
	resp2, err := c.Get(ctx, "/v1/artists/art1/albums", nil)
	if err != nil {
		t.Fatalf("Request 2 failed: %v", err)
	}
	body2, _ := io.ReadAll(resp2.Body)
	resp2.Body.Close()

	if string(body2) != testData {
		t.Errorf("Request 2 body = %s, want cached payload", string(body2))
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("After request 2: API requests = %d, want 2", mock.GetRequestCount())
	}
	if mock.GetConditionalCount() != 1 {
		t.Errorf("Conditional requests = %d, want 1", mock.GetConditionalCount())
	}
}

// TestStreamingPagination drives a paginator through the full client
// stack across several pages.
func TestStreamingPagination(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	c, mock := setupClient(t, redisClient)

	items := make([]any, 120)
	for i := range items {
		items[i] = map[string]any{
			"added_at": "2024-01-01T00:00:00Z",
			"track":    map[string]any{"id": strconv.Itoa(i), "name": "Track " + strconv.Itoa(i)},
		}
	}
	mock.SetPaginatedResponse("/v1/me/tracks", items)

	ctx := context.Background()
	tracks, err := c.StreamSavedTracks().Collect(ctx)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if len(tracks) != 120 {
		t.Fatalf("collected %d tracks, want 120", len(tracks))
	}
	for i, saved := range tracks {
		if want := "Track " + strconv.Itoa(i); saved.Track.Name != want {
			t.Errorf("tracks[%d] = %q, want %q", i, saved.Track.Name, want)
		}
	}

	// 120 items at the default page size of 50 needs three requests
	if mock.GetRequestCount() != 3 {
		t.Errorf("API requests = %d, want 3", mock.GetRequestCount())
	}
}

// TestRateLimitPenaltyShared tests that a 429 observed by one client
// blocks a second client sharing the same Redis.
func TestRateLimitPenaltyShared(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	c1, mock := setupClient(t, redisClient)

	mock.SetResponse("/v1/search", testutil.NewRateLimitResponse(3))

	ctx := context.Background()
	_, err := c1.Get(ctx, "/v1/search", nil)
	if err == nil {
		t.Fatal("expected rate limit error")
	}

	// A second client sharing the Redis must observe the penalty window
	c2, _ := setupClient(t, redisClient)

	state, err := c2.RateLimiter().State(ctx)
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if !state.InPenalty() {
		t.Error("penalty window not visible to the second client")
	}
}
