package cache

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestRegistry_ApplyMemoizes(t *testing.T) {
	store := newTestStore(t)
	registry := NewRegistry(zerolog.Nop())
	ctx := context.Background()

	calls := 0
	registry.Register("upper_status", func(resp *Response) (any, error) {
		calls++
		return resp.StatusCode * 10, nil
	})

	rec := testRecord("https://example.com")
	key := Key("memo")
	if err := store.Put(ctx, key, rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	first, err := registry.Apply(ctx, store, key, rec, "upper_status")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	second, err := registry.Apply(ctx, store, key, rec, "upper_status")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if calls != 1 {
		t.Errorf("processor ran %d times, want 1", calls)
	}
	// Values round-trip through JSON, so ints come back as float64 on
	// every call, the first included.
	if first.(float64) != 2000 {
		t.Errorf("first = %v, want 2000", first)
	}
	if second.(float64) != 2000 {
		t.Errorf("second = %v, want memoized 2000", second)
	}

	// The memoization must survive a reload from the store.
	reloaded, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, ok := reloaded.Processed["upper_status"]; !ok {
		t.Error("memoized value not persisted to store")
	}
	third, err := registry.Apply(ctx, store, key, reloaded, "upper_status")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("processor re-ran after reload, calls = %d", calls)
	}
	if third.(float64) != 2000 {
		t.Errorf("third = %v, want 2000", third)
	}
}

func TestRegistry_EmptyNameReturnsRaw(t *testing.T) {
	store := newTestStore(t)
	registry := NewRegistry(zerolog.Nop())
	rec := testRecord("https://example.com")

	value, err := registry.Apply(context.Background(), store, Key("k"), rec, "")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	resp, ok := value.(*Response)
	if !ok {
		t.Fatalf("value type = %T, want *Response", value)
	}
	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
}

func TestRegistry_UnknownNameFallsBack(t *testing.T) {
	store := newTestStore(t)
	registry := NewRegistry(zerolog.Nop())
	rec := testRecord("https://example.com")

	value, err := registry.Apply(context.Background(), store, Key("k"), rec, "never_registered")
	if err != nil {
		t.Fatalf("Apply returned error for unknown processor: %v", err)
	}
	if _, ok := value.(*Response); !ok {
		t.Errorf("value type = %T, want raw *Response fallback", value)
	}
}

func TestRegistry_ReRegisterOverwrites(t *testing.T) {
	store := newTestStore(t)
	registry := NewRegistry(zerolog.Nop())
	ctx := context.Background()

	registry.Register("p", func(resp *Response) (any, error) { return "first", nil })
	registry.Register("p", func(resp *Response) (any, error) { return "second", nil })

	rec := testRecord("https://example.com")
	value, err := registry.Apply(ctx, store, Key("k"), rec, "p")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if value != "second" {
		t.Errorf("value = %v, want last registration to win", value)
	}
}

func TestRegistry_Names(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	registry.Register("zeta", func(resp *Response) (any, error) { return nil, nil })
	registry.Register("alpha", func(resp *Response) (any, error) { return nil, nil })

	names := registry.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("Names() = %v, want sorted [alpha zeta]", names)
	}
}
