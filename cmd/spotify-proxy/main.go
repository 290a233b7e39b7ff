// spotify-proxy is a caching proxy in front of the Web API. It forwards
// /api/* requests through the client core so callers share the response
// cache, rate limit state, and client-credentials token.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/audiofold/spotify-go/pkg/auth"
	"github.com/audiofold/spotify-go/pkg/client"
	"github.com/audiofold/spotify-go/pkg/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2/clientcredentials"
)

func main() {
	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logging.Setup(logCfg)

	// Configuration from environment
	redisURL := getEnv("REDIS_URL", "localhost:6379")
	port := getEnv("PORT", "8080")
	userAgent := getEnv("USER_AGENT", "spotify-proxy/0.1.0")

	creds, err := auth.CredentialsFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Missing API credentials")
	}

	// Setup Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("redis_url", redisURL).Msg("Failed to connect to Redis")
	}
	log.Info().Str("redis_url", redisURL).Msg("Connected to Redis")

	// Client-credentials token source: the proxy serves catalog data
	// only, so no user authorization is involved.
	ccConfig := &clientcredentials.Config{
		ClientID:     creds.ID,
		ClientSecret: creds.Secret,
		TokenURL:     auth.TokenURL,
	}

	apiClient, err := client.New(client.DefaultConfig(redisClient, userAgent), ccConfig.TokenSource(ctx))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create API client")
	}
	defer apiClient.Close()

	// HTTP Server
	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/ready", readyHandler(redisClient))
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/api/", apiProxyHandler(apiClient))

	addr := ":" + port
	log.Info().Str("addr", addr).Str("user_agent", userAgent).Msg("Starting proxy server")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports readiness based on the Redis connection.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			http.Error(w, fmt.Sprintf("Redis unavailable: %v", err), http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

// apiProxyHandler forwards requests to the Web API through the caching
// client. Example: /api/v1/artists/{id}/albums -> /v1/artists/{id}/albums.
func apiProxyHandler(apiClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpoint := strings.TrimPrefix(r.URL.Path, "/api")

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		resp, err := apiClient.Get(ctx, endpoint, r.URL.Query())
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) {
				http.Error(w, apiErr.Message, apiErr.StatusCode)
				return
			}
			http.Error(w, fmt.Sprintf("upstream request failed: %v", err), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()

		for key, values := range resp.Header {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}
		w.WriteHeader(resp.StatusCode)

		if _, err := io.Copy(w, resp.Body); err != nil {
			log.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to write response")
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
