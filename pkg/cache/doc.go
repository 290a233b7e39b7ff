// Package cache provides a Redis-backed cache for Web API responses.
//
// Catalog endpoints change slowly and the API announces freshness through
// standard Cache-Control/Expires headers and ETags. The manager stores
// response bodies in Redis keyed deterministically by endpoint, query,
// and user, and revalidates stale-but-tagged entries with conditional
// requests instead of refetching.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{
//		Endpoint: "/v1/artists/4Z8W4fKeB5YxbusRsdQVPb/albums",
//		Query:    url.Values{"limit": []string{"50"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch from the API
//	}
//
// # HTTP Response Caching
//
//	entry, err := cache.ResponseToEntry(resp)
//	if err != nil {
//		return err
//	}
//	if err := manager.Set(ctx, key, entry); err != nil {
//		return err
//	}
//
// # Conditional Requests
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// the server answers 304 if the entry is still current
//	}
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - spotify_cache_hits_total{layer="redis"} - Cache hits
//   - spotify_cache_misses_total - Cache misses
//   - spotify_cache_size_bytes{layer="redis"} - Bytes written
//   - spotify_304_responses_total - Revalidation successes
//   - spotify_conditional_requests_total - Conditional requests sent
//   - spotify_cache_errors_total{operation} - Cache operation errors
package cache
