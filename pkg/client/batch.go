package client

import (
	"context"
	"time"

	"github.com/epifetch/webcache/pkg/cache"
)

// BatchConfig controls a sequential batch fetch.
type BatchConfig struct {
	// Delay is the pause between consecutive requests (not before the
	// first). Cooperative pacing, no concurrency.
	Delay time.Duration

	// PostProcessor is applied to every response.
	PostProcessor string

	// Visited, when set, skips URLs already seen this session and records
	// the ones fetched.
	Visited *VisitedSet
}

// BatchResult is the per-URL outcome of a batch fetch.
type BatchResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
}

// Batch sequentially fetches a list of URLs through the cache, pausing
// between requests. Per-URL failures are collected, not fatal; only context
// cancellation stops the batch early.
func (c *APIClient) Batch(ctx context.Context, urls []string, cfg BatchConfig) (map[string]BatchResult, error) {
	start := time.Now()
	results := make(map[string]BatchResult, len(urls))

	issued := 0
	for _, url := range urls {
		if cfg.Visited != nil && !cfg.Visited.Visit(c.resolveURL(url)) {
			results[url] = BatchResult{Success: true, Skipped: true}
			continue
		}

		if issued > 0 {
			if err := waitDelay(ctx, cfg.Delay); err != nil {
				return results, err
			}
		}
		issued++

		data, err := c.Request(ctx, cache.Request{URL: url}, cache.Options{PostProcessor: cfg.PostProcessor})
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			c.logger.Warn().Err(err).Str("url", url).Msg("Batch fetch failed")
			results[url] = BatchResult{Success: false, Error: err.Error()}
			continue
		}
		results[url] = BatchResult{Success: true, Data: data}
	}

	c.logger.Info().
		Int("urls", len(urls)).
		Int("issued", issued).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return results, nil
}
