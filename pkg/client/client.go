// Package client layers request-shaping policy on the cache facade: base
// URL prefixing, bearer-token injection, sliding-window rate limiting and
// sequential batch fetching.
package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/epifetch/webcache/pkg/cache"
	"github.com/epifetch/webcache/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// Config holds the API client configuration.
type Config struct {
	// Cache executes the actual cached requests. Required.
	Cache *cache.Cache

	// BaseURL is joined onto relative request paths. Absolute URLs pass
	// through unchanged.
	BaseURL string

	// APIKey, when set, is injected as "Authorization: Bearer <key>"
	// unless the request already carries an Authorization header.
	APIKey string

	// RateLimit is the maximum number of requests per minute. Zero
	// disables rate limiting.
	RateLimit int

	// Logger is the base logger.
	Logger zerolog.Logger
}

// APIClient is a rate-limited, cache-backed client for a single API.
type APIClient struct {
	cache   *cache.Cache
	baseURL string
	apiKey  string
	limiter *ratelimit.SlidingWindow
	logger  zerolog.Logger
}

// New creates an API client.
func New(cfg Config) (*APIClient, error) {
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	return &APIClient{
		cache:   cfg.Cache,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		limiter: ratelimit.NewSlidingWindow(cfg.RateLimit, ratelimit.DefaultWindow, cfg.Logger),
		logger:  cfg.Logger.With().Str("component", "api-client").Logger(),
	}, nil
}

// Request issues a cached request after waiting out the rate limit. The
// request URL may be a path relative to the configured base URL.
func (c *APIClient) Request(ctx context.Context, req cache.Request, opts cache.Options) (any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req.URL = c.resolveURL(req.URL)
	req.Headers = c.authorize(req.Headers)

	return c.cache.Request(ctx, req, opts)
}

// resolveURL joins a relative path onto the base URL. Absolute URLs are
// returned unchanged.
func (c *APIClient) resolveURL(raw string) string {
	if c.baseURL == "" || strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(raw, "/")
}

// authorize returns headers with the bearer token injected. The caller's
// map is copied, never mutated.
func (c *APIClient) authorize(headers map[string]string) map[string]string {
	if c.apiKey == "" {
		return headers
	}
	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	if _, ok := out["Authorization"]; !ok {
		out["Authorization"] = "Bearer " + c.apiKey
	}
	return out
}

// waitDelay sleeps for the inter-request pacing delay, honoring context
// cancellation.
func waitDelay(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
