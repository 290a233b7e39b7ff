package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached API response. User-scoped endpoints carry the
// user ID so responses never leak between accounts sharing a Redis.
type Key struct {
	// Endpoint is the API path (e.g. "/v1/artists/{id}/albums")
	Endpoint string

	// Query are the request's query parameters, including limit/offset
	Query url.Values

	// UserID scopes the entry for user-specific endpoints ("" for public)
	UserID string
}

// String generates a deterministic cache key string.
// Format: spotify:endpoint:query1=val1:query2=val2:user=abc
//
// Example:
//
//	spotify:v1/artists/4Z8W4fKeB5YxbusRsdQVPb/albums:limit=50:offset=0
func (k Key) String() string {
	parts := []string{"spotify"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Query params sorted for determinism.
	if len(k.Query) > 0 {
		queryKeys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.Query.Get(key)))
		}
	}

	if k.UserID != "" {
		parts = append(parts, fmt.Sprintf("user=%s", k.UserID))
	}

	return strings.Join(parts, ":")
}
