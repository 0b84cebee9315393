package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Processor is a named pure transform from a response snapshot to a derived
// value. Processors must be deterministic for a given snapshot and must not
// mutate it: results are memoized inside the record and reused indefinitely
// until the record itself is invalidated.
type Processor func(resp *Response) (any, error)

// Registry maps processor names to transforms and applies them with
// per-record memoization.
type Registry struct {
	mu         sync.RWMutex
	processors map[string]Processor
	logger     zerolog.Logger
}

// NewRegistry creates an empty processor registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		processors: make(map[string]Processor),
		logger:     logger.With().Str("component", "processors").Logger(),
	}
}

// Register associates a name with a processor. Re-registering a name
// silently overwrites the previous processor; last registration wins.
func (r *Registry) Register(name string, p Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[name] = p
}

// Names returns the registered processor names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.processors))
	for name := range r.processors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) lookup(name string) (Processor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processors[name]
	return p, ok
}

// Apply resolves the value for a processor name against a record.
//
// An empty name returns the raw response snapshot. A memoized value in
// rec.Processed is returned without recomputation. Otherwise the processor
// runs, its result is memoized into the record and the record is re-persisted
// (best effort, so the memoization survives restarts), and the value is
// returned. An unregistered name is not an error: the raw snapshot is
// returned, as if no processing was requested.
//
// Values round-trip through JSON, so every call returns the decoded form:
// numbers as float64, structs as map[string]any, the first call included.
func (r *Registry) Apply(ctx context.Context, store Store, key Key, rec *Record, name string) (any, error) {
	if name == "" {
		return &rec.Response, nil
	}

	if raw, ok := rec.Processed[name]; ok {
		var value any
		if err := json.Unmarshal(raw, &value); err == nil {
			processorApplies.WithLabelValues(name, "memoized").Inc()
			return value, nil
		}
		// Undecodable memo entry: fall through and recompute.
	}

	p, ok := r.lookup(name)
	if !ok {
		processorApplies.WithLabelValues(name, "fallback").Inc()
		r.logger.Debug().Str("processor", name).Msg("Unknown post-processor, returning raw response")
		return &rec.Response, nil
	}

	value, err := p(&rec.Response)
	if err != nil {
		processorApplies.WithLabelValues(name, "error").Inc()
		return nil, fmt.Errorf("post-processor %q: %w", name, err)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		// Non-serializable result: still usable, just not memoizable.
		r.logger.Warn().Err(err).Str("processor", name).Msg("Post-processor result not serializable, skipping memoization")
		processorApplies.WithLabelValues(name, "computed").Inc()
		return value, nil
	}

	if rec.Processed == nil {
		rec.Processed = map[string]json.RawMessage{}
	}
	rec.Processed[name] = raw

	// Decode the stored bytes so the first call returns the same shape as
	// every memoized replay (numbers as float64, structs as maps).
	var stored any
	if err := json.Unmarshal(raw, &stored); err == nil {
		value = stored
	}

	if err := store.Put(ctx, key, rec); err != nil {
		r.logger.Warn().Err(err).Str("processor", name).Msg("Failed to persist memoized result")
	}

	processorApplies.WithLabelValues(name, "computed").Inc()
	return value, nil
}
