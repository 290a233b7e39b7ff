// Package client provides the core Web API HTTP client with rate
// limiting, response caching, and error handling.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/audiofold/spotify-go/pkg/cache"
	"github.com/audiofold/spotify-go/pkg/pagination"
	"github.com/audiofold/spotify-go/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the production Web API endpoint.
const DefaultBaseURL = "https://api.spotify.com"

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spotify_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spotify_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spotify_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

// Client is the main Web API client.
type Client struct {
	httpClient  *http.Client
	tokens      oauth2.TokenSource
	redis       *redis.Client
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Redis client for response caching and shared rate limit state
	Redis *redis.Client

	// User-Agent header sent on every request
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// BaseURL of the API (override for testing/proxying)
	BaseURL string

	// CacheUserID scopes cached responses of user endpoints, so two
	// accounts sharing a Redis never see each other's library
	CacheUserID string

	// PageSize used by the streaming endpoints (1..50)
	PageSize int

	// Timeout per HTTP request
	Timeout time.Duration

	// Retry
	MaxRetries     int
	InitialBackoff time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redis *redis.Client, userAgent string) Config {
	return Config{
		Redis:          redis,
		UserAgent:      userAgent,
		BaseURL:        DefaultBaseURL,
		PageSize:       pagination.DefaultPageSize,
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
	}
}

// New creates a new Web API client. tokens supplies the bearer
// credential for each request and may refresh it transparently; pass nil
// only for unauthenticated testing setups.
func New(cfg Config, tokens oauth2.TokenSource) (*Client, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.PageSize == 0 {
		cfg.PageSize = pagination.DefaultPageSize
	}
	if cfg.PageSize < 1 || cfg.PageSize > 50 {
		return nil, fmt.Errorf("page_size must be in 1..50 (got %d)", cfg.PageSize)
	}

	logger := log.With().Str("component", "api-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		tokens:      tokens,
		redis:       cfg.Redis,
		rateLimiter: ratelimit.NewTracker(cfg.Redis, logger),
		cache:       cache.NewManager(cfg.Redis),
		config:      cfg,
		logger:      logger,
	}, nil
}

// Do performs an HTTP request with rate limiting, caching, and error
// handling. This is the core request method that orchestrates all client
// features. Responses with status >= 400 are returned as *APIError.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Rate limit gate
	allowed, err := c.rateLimiter.ShouldAllow(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Rate limit check failed")
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Msg("Request blocked by rate limiter")
		requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		return nil, fmt.Errorf("%w: request to %s not sent", ErrPenaltyActive, endpoint)
	}

	// Step 2: Cache lookup (GET only)
	var cachedEntry *cache.Entry
	var cacheKey cache.Key
	cacheable := req.Method == http.MethodGet || req.Method == ""
	if cacheable {
		cacheKey = cache.Key{
			Endpoint: endpoint,
			Query:    req.URL.Query(),
			UserID:   c.config.CacheUserID,
		}

		cachedEntry, err = c.cache.Get(ctx, cacheKey)
		if err != nil && err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	if cachedEntry != nil {
		// A fresh entry without a validator cannot be revalidated;
		// serve it without touching the network.
		if !cache.ShouldMakeConditionalRequest(cachedEntry) {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Bool("cache_hit", true).
				Msg("Serving fresh cached response")
			requestsTotal.WithLabelValues(endpoint, "cache").Inc()
			return cache.EntryToResponse(cachedEntry), nil
		}

		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	// Step 3: Standard headers and bearer credential
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("obtain access token: %w", err)
		}
		token.SetAuthHeader(req)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	// Step 4: Execute with retry logic
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing API request")

	var resp *http.Response

	retryCfg := DefaultRetryConfig()
	if c.config.MaxRetries > 0 {
		retryCfg.MaxAttempts = c.config.MaxRetries
	}
	if c.config.InitialBackoff > 0 {
		retryCfg.InitialBackoff = c.config.InitialBackoff
	}

	retryErr := retryWithBackoff(ctx, c.logger, retryCfg, func() error {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)

		// Network errors
		if reqErr != nil {
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return &classified{class: ErrorClassNetwork, err: reqErr}
		}

		// Record 429 penalties in the shared rate limit state
		if err := c.rateLimiter.ObserveResponse(ctx, resp); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to record rate limit state")
		}

		// 304 Not Modified is a success; the cache serves the body
		if resp.StatusCode == http.StatusNotModified {
			return nil
		}

		if resp.StatusCode >= 400 {
			class := classifyStatus(resp.StatusCode)
			errorsTotal.WithLabelValues(string(class)).Inc()
			requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status_code", resp.StatusCode).
				Str("error_class", string(class)).
				Msg("API request error")

			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			apiErr := newAPIError(resp, body)

			if shouldRetry(class) {
				cls := &classified{class: class, err: apiErr}
				if class == ErrorClassRateLimit && apiErr.RetryAfter > 0 {
					cls.retryAfter = time.Duration(apiErr.RetryAfter) * time.Second
				}
				return cls
			}

			// Client errors abort immediately and surface to the caller.
			return apiErr
		}

		// Success
		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}

	// Step 5: 304 Not Modified - serve from cache
	if resp.StatusCode == http.StatusNotModified {
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		requestsTotal.WithLabelValues(endpoint, "304").Inc()
		cache.NotModifiedResponses.Inc()

		// The revalidation response may carry fresh caching headers.
		if newExpires := revalidatedExpiry(resp.Header); !newExpires.IsZero() {
			if err := c.cache.UpdateTTL(ctx, cacheKey, newExpires); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
			}
		}

		resp.Body.Close()
		return cache.EntryToResponse(cachedEntry), nil
	}

	// Step 6: Update cache on success
	if cacheable && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if entry.TTL() > 0 {
			if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				c.logger.Debug().
					Str("endpoint", endpoint).
					Dur("ttl", entry.TTL()).
					Msg("Cached response")
			}
		}
	}

	return resp, nil
}

// revalidatedExpiry derives a fresh expiry from 304 response headers.
// Returns the zero time when no caching headers are present.
func revalidatedExpiry(headers http.Header) time.Time {
	if headers.Get("Cache-Control") == "" && headers.Get("Expires") == "" {
		return time.Time{}
	}

	probe := &http.Response{
		Header: headers,
		Body:   http.NoBody,
	}
	entry, err := cache.ResponseToEntry(probe)
	if err != nil {
		return time.Time{}
	}
	return entry.Expires
}

// Get performs a GET request to an API endpoint with the given query.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	u := c.config.BaseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// GetJSON performs a GET request and decodes the JSON response into v.
func (c *Client) GetJSON(ctx context.Context, endpoint string, query url.Values, v any) error {
	resp, err := c.Get(ctx, endpoint, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// PageSize returns the configured page size for streaming endpoints.
func (c *Client) PageSize() int {
	return c.config.PageSize
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

// Cache returns the cache manager (for testing).
func (c *Client) Cache() *cache.Manager {
	return c.cache
}

// RateLimiter returns the rate limit tracker (for testing).
func (c *Client) RateLimiter() *ratelimit.Tracker {
	return c.rateLimiter
}
