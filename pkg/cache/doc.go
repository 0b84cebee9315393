// Package cache provides a persistent get-or-fetch cache for idempotent
// HTTP requests, with the following features:
//
// - Deterministic cache keys (SHA-256 of a canonical request serialization)
// - Disk-backed store (one JSON file per key) or shared Redis backend
// - TTL staleness with lazy read-time expiration
// - Named post-processors, memoized per record across restarts
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	store, err := cache.NewFileStore("./cache", logger)
//	if err != nil {
//		return err
//	}
//
//	c, err := cache.New(cache.Config{
//		Store:     store,
//		Transport: transport.New(transport.Config{}),
//		TTL:       time.Hour,
//	})
//	if err != nil {
//		return err
//	}
//
//	// Fetch through the cache; repeated calls are served from disk.
//	value, err := c.Request(ctx, cache.Request{URL: "https://example.com"}, cache.Options{})
//
// # Post-Processing
//
//	c.RegisterPostProcessor("word_count", processors.WordCount)
//
//	// The transform runs once; its result is memoized inside the record.
//	// Results round-trip through JSON, so every call returns the decoded
//	// form: numbers as float64, structs as map[string]any.
//	counts, err := c.Request(ctx, cache.Request{URL: "https://example.com"},
//		cache.Options{PostProcessor: "word_count"})
//
// # Failure Model
//
// Storage failures degrade to "always fetch fresh": corrupt records read as
// misses and are removed, write failures are logged and the fetched result
// is still returned. Transport failures (including non-2xx statuses, per the
// injected transport's contract) propagate to the caller and are never
// cached. Requesting an unregistered post-processor returns the raw
// response snapshot rather than an error.
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - webcache_hits_total / webcache_misses_total - lookup outcomes
//   - webcache_expired_total - records expired on read
//   - webcache_store_errors_total{operation} - store operation errors
//   - webcache_fetches_total{result} - transport fetches
//   - webcache_processor_applies_total{processor,result} - post-processing
//
// The store assumes a single-writer process. Concurrent goroutines in one
// process are safe (fetches for the same key are collapsed), but multiple
// processes sharing a cache directory get last-write-wins with no locking.
package cache
