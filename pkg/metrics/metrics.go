// Package metrics provides the central Prometheus registry reference for
// the client. All metrics are defined in their respective packages
// (client, cache, ratelimit) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registerer used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - spotify_rate_limit_penalty_seconds (Gauge): Seconds remaining in the shared penalty window
//   - spotify_rate_limit_blocks_total (Counter): Requests blocked by an active penalty window
//   - spotify_rate_limit_penalties_total (Counter): Penalty windows opened from 429 responses
//
// Cache Metrics (pkg/cache):
//   - spotify_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - spotify_cache_misses_total (Counter): Cache misses
//   - spotify_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the cache
//   - spotify_304_responses_total (Counter): 304 Not Modified responses
//   - spotify_conditional_requests_total (Counter): Conditional requests sent with If-None-Match
//   - spotify_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - spotify_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - spotify_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - spotify_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - spotify_retries_total{error_class} (Counter): Retry attempts by error class
//   - spotify_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - spotify_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(spotify_cache_hits_total[5m])) /
//   (sum(rate(spotify_cache_hits_total[5m])) + sum(rate(spotify_cache_misses_total[5m])))
//
//   # Penalty Status
//   spotify_rate_limit_penalty_seconds > 0
//
//   # Request Error Rate
//   rate(spotify_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(spotify_request_duration_seconds_bucket[5m]))
