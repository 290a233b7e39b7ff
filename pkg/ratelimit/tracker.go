package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for rate limit tracking.
var (
	penaltySeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spotify_rate_limit_penalty_seconds",
		Help: "Seconds remaining in the current shared penalty window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spotify_rate_limit_blocks_total",
		Help: "Total number of requests blocked by an active penalty window",
	})

	rateLimitPenaltiesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spotify_rate_limit_penalties_total",
		Help: "Total number of penalty windows opened from 429 responses",
	})
)

// Tracker gates requests against the shared penalty window and a local
// token bucket.
type Tracker struct {
	redis        *redis.Client
	local        *rate.Limiter
	localEnabled atomic.Bool
	logger       zerolog.Logger
}

// NewTracker creates a rate limit tracker with the default local budget.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	t := &Tracker{
		redis:  redisClient,
		local:  rate.NewLimiter(rate.Limit(DefaultRequestsPerMinute)/60.0, 30),
		logger: logger,
	}
	t.localEnabled.Store(true)
	return t
}

// SetLocalLimiting enables or disables the local token bucket. Used by
// tests and benchmarks; the shared penalty window is always respected.
func (t *Tracker) SetLocalLimiting(enabled bool) {
	t.localEnabled.Store(enabled)
}

// State retrieves the shared penalty state from Redis.
// Returns a clean state if no data exists.
func (t *Tracker) State(ctx context.Context) (*State, error) {
	penaltyUntil, err := t.redis.Get(ctx, RedisKeyPenaltyUntil).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get penalty until: %w", err)
	}
	if err == redis.Nil {
		t.logger.Debug().Msg("No rate limit state in Redis, assuming no penalty")
		return &State{LastUpdate: time.Now()}, nil
	}

	lastUpdate, err := t.redis.Get(ctx, RedisKeyLastUpdate).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	return &State{
		PenaltyUntil: time.Unix(penaltyUntil, 0),
		LastUpdate:   time.Unix(lastUpdate, 0),
	}, nil
}

// ObserveResponse inspects a response and, on 429, opens a shared penalty
// window sized by the Retry-After header. Non-429 responses are ignored.
func (t *Tracker) ObserveResponse(ctx context.Context, resp *http.Response) error {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}

	retryAfter := parseRetryAfter(resp.Header)
	if retryAfter > MaxRetryAfter {
		t.logger.Warn().
			Dur("retry_after", retryAfter).
			Dur("capped_to", MaxRetryAfter).
			Msg("Server announced implausible Retry-After")
		retryAfter = MaxRetryAfter
	}

	now := time.Now()
	until := now.Add(retryAfter)

	// The keys expire with the window, so a crashed writer cannot leave
	// a stale penalty behind.
	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyPenaltyUntil, until.Unix(), retryAfter+time.Second)
	pipe.Set(ctx, RedisKeyLastUpdate, now.Unix(), retryAfter+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store penalty state in redis: %w", err)
	}

	rateLimitPenaltiesTotal.Inc()
	penaltySeconds.Set(retryAfter.Seconds())

	t.logger.Warn().
		Dur("retry_after", retryAfter).
		Time("penalty_until", until).
		Msg("Rate limit penalty window opened")

	return nil
}

// ShouldAllow checks whether a request may be issued. It returns false
// while a shared penalty window is open; otherwise it waits on the local
// token bucket (respecting ctx) and returns true.
func (t *Tracker) ShouldAllow(ctx context.Context) (bool, error) {
	state, err := t.State(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.InPenalty() {
		remaining := state.PenaltyRemaining()

		t.logger.Warn().
			Dur("penalty_remaining", remaining).
			Msg("Request blocked by active penalty window")

		rateLimitBlocksTotal.Inc()
		penaltySeconds.Set(remaining.Seconds())
		return false, nil
	}

	penaltySeconds.Set(0)

	if t.localEnabled.Load() {
		if err := t.local.Wait(ctx); err != nil {
			return false, fmt.Errorf("local rate limit wait: %w", err)
		}
	}

	return true, nil
}

// parseRetryAfter reads the Retry-After header as delay seconds.
// Falls back to one second when absent or unparseable.
func parseRetryAfter(headers http.Header) time.Duration {
	value := headers.Get("Retry-After")
	if value == "" {
		return time.Second
	}

	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return time.Second
	}

	return time.Duration(seconds) * time.Second
}
