// Package metrics documents the Prometheus metrics exported by webcache.
// Metrics are defined in their owning packages (cache, ratelimit) via
// promauto to keep the packages self-contained; this package is the single
// reference for what exists and how to query it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the Prometheus registry used by webcache. All metrics are
// automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - webcache_hits_total (Counter): lookups satisfied from the store
//   - webcache_misses_total (Counter): lookups with no valid record
//   - webcache_expired_total (Counter): records deleted by the lazy
//     read-time expiry check
//   - webcache_store_errors_total{operation} (Counter): store operation
//     errors ("get", "put", "delete")
//   - webcache_fetches_total{result} (Counter): transport fetches
//     ("ok", "error")
//   - webcache_processor_applies_total{processor,result} (Counter):
//     post-processor resolutions ("computed", "memoized", "fallback",
//     "error")
//
// Rate Limit Metrics (pkg/ratelimit):
//   - webcache_rate_limit_waits_total (Counter): requests that slept for
//     the sliding window
//   - webcache_rate_limit_window_occupancy (Gauge): requests currently in
//     the window
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(webcache_hits_total[5m])) /
//   (sum(rate(webcache_hits_total[5m])) + sum(rate(webcache_misses_total[5m])))
//
//   # Memoization effectiveness per processor
//   sum by (processor) (rate(webcache_processor_applies_total{result="memoized"}[5m]))
//
//   # Store health
//   rate(webcache_store_errors_total[5m])
