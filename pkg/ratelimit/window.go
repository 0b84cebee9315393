// Package ratelimit implements cooperative request pacing via a sliding
// window of recent request timestamps. It exists to keep scrapers polite:
// one process, blocking waits, no token bucket machinery.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit pacing.
var (
	rateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webcache_rate_limit_waits_total",
		Help: "Total number of requests that slept for the rate limit window",
	})

	rateLimitOccupancy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "webcache_rate_limit_window_occupancy",
		Help: "Number of requests currently counted in the sliding window",
	})
)

// DefaultWindow is the sliding window span: limits are "per minute".
const DefaultWindow = 60 * time.Second

// SlidingWindow admits at most limit requests per window. Wait prunes
// timestamps that fell out of the window, sleeps for the remainder of the
// window when the limit is reached, then records the new request.
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	times  []time.Time
	logger zerolog.Logger

	// now is a test hook.
	now func() time.Time
}

// NewSlidingWindow creates a limiter admitting limit requests per window.
// A non-positive window means DefaultWindow; a non-positive limit disables
// the limiter (Wait returns immediately).
func NewSlidingWindow(limit int, window time.Duration, logger zerolog.Logger) *SlidingWindow {
	if window <= 0 {
		window = DefaultWindow
	}
	return &SlidingWindow{
		limit:  limit,
		window: window,
		logger: logger.With().Str("component", "ratelimit").Logger(),
		now:    time.Now,
	}
}

// Wait blocks until a request slot is available, then records the request.
// It returns early with the context's error if the context is cancelled
// while sleeping.
func (w *SlidingWindow) Wait(ctx context.Context) error {
	if w.limit <= 0 {
		return nil
	}

	w.mu.Lock()
	w.prune()

	if len(w.times) >= w.limit {
		oldest := w.times[0]
		wait := w.window - w.now().Sub(oldest)
		w.mu.Unlock()

		if wait > 0 {
			rateLimitWaits.Inc()
			w.logger.Debug().
				Dur("wait", wait).
				Int("limit", w.limit).
				Msg("Rate limit reached, sleeping")

			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}

		w.mu.Lock()
		w.prune()
	}

	w.times = append(w.times, w.now())
	rateLimitOccupancy.Set(float64(len(w.times)))
	w.mu.Unlock()

	return nil
}

// Len returns the number of requests currently inside the window.
func (w *SlidingWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune()
	return len(w.times)
}

// prune drops timestamps older than the window. Caller holds the lock.
func (w *SlidingWindow) prune() {
	cutoff := w.now().Add(-w.window)
	i := 0
	for i < len(w.times) && !w.times[i].After(cutoff) {
		i++
	}
	w.times = w.times[i:]
}
