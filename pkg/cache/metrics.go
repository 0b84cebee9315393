package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits tracks lookups satisfied from the store.
	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webcache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	// cacheMisses tracks lookups that found no valid record.
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webcache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// cacheExpired tracks records deleted by the lazy read-time expiry check.
	cacheExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webcache_expired_total",
			Help: "Total number of records expired on read",
		},
	)

	// storeErrors tracks store operation failures by operation.
	storeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webcache_store_errors_total",
			Help: "Total number of store operation errors",
		},
		[]string{"operation"}, // "get", "put", "delete"
	)

	// fetches tracks transport invocations by outcome.
	fetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webcache_fetches_total",
			Help: "Total number of transport fetches",
		},
		[]string{"result"}, // "ok", "error"
	)

	// processorApplies tracks post-processor resolutions by outcome.
	processorApplies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webcache_processor_applies_total",
			Help: "Total number of post-processor applications",
		},
		[]string{"processor", "result"}, // "computed", "memoized", "fallback", "error"
	)
)
