package cache

import (
	"strings"
	"testing"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	req := Request{
		URL:    "https://example.com/data",
		Method: "get",
		Params: map[string]string{"page": "1", "order": "asc"},
		Body:   map[string]string{"q": "outbreaks"},
	}

	first, err := DeriveKey(req)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		key, err := DeriveKey(req)
		if err != nil {
			t.Fatalf("DeriveKey failed: %v", err)
		}
		if key != first {
			t.Errorf("key %d = %s, want %s (not deterministic)", i, key, first)
		}
	}

	if len(first) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(first))
	}
}

func TestDeriveKey_Sensitivity(t *testing.T) {
	base := Request{
		URL:    "https://example.com/data",
		Method: "GET",
		Params: map[string]string{"page": "1"},
	}
	baseKey, err := DeriveKey(base)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}

	tests := []struct {
		name     string
		req      Request
		wantSame bool
	}{
		{
			name:     "identical request",
			req:      Request{URL: "https://example.com/data", Method: "GET", Params: map[string]string{"page": "1"}},
			wantSame: true,
		},
		{
			name:     "method is case-insensitive",
			req:      Request{URL: "https://example.com/data", Method: "get", Params: map[string]string{"page": "1"}},
			wantSame: true,
		},
		{
			name:     "excluded header does not change key",
			req:      Request{URL: "https://example.com/data", Method: "GET", Params: map[string]string{"page": "1"}, Headers: map[string]string{"X-Custom": "abc"}},
			wantSame: true,
		},
		{
			name:     "different method",
			req:      Request{URL: "https://example.com/data", Method: "POST", Params: map[string]string{"page": "1"}},
			wantSame: false,
		},
		{
			name:     "different url",
			req:      Request{URL: "https://example.com/other", Method: "GET", Params: map[string]string{"page": "1"}},
			wantSame: false,
		},
		{
			name:     "different params",
			req:      Request{URL: "https://example.com/data", Method: "GET", Params: map[string]string{"page": "2"}},
			wantSame: false,
		},
		{
			name:     "included header changes key",
			req:      Request{URL: "https://example.com/data", Method: "GET", Params: map[string]string{"page": "1"}, Headers: map[string]string{"Authorization": "Bearer tok"}},
			wantSame: false,
		},
		{
			name:     "body changes key",
			req:      Request{URL: "https://example.com/data", Method: "GET", Params: map[string]string{"page": "1"}, Body: "payload"},
			wantSame: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := DeriveKey(tt.req)
			if err != nil {
				t.Fatalf("DeriveKey failed: %v", err)
			}
			if (key == baseKey) != tt.wantSame {
				t.Errorf("key = %s, baseKey = %s, wantSame = %v", key, baseKey, tt.wantSame)
			}
		})
	}
}

func TestDeriveKey_AbsentEqualsEmpty(t *testing.T) {
	absent := Request{URL: "https://example.com"}
	empty := Request{
		URL:    "https://example.com",
		Method: "GET",
		Params: map[string]string{},
		Body:   map[string]string{},
	}

	absentKey, err := DeriveKey(absent)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	emptyKey, err := DeriveKey(empty)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}

	if absentKey != emptyKey {
		t.Errorf("absent params/body key %s != empty params/body key %s", absentKey, emptyKey)
	}
}

func TestDeriveKey_EmptyStringBody(t *testing.T) {
	withEmpty := Request{URL: "https://example.com", Body: ""}
	without := Request{URL: "https://example.com"}

	k1, _ := DeriveKey(withEmpty)
	k2, _ := DeriveKey(without)
	if k1 != k2 {
		t.Errorf("empty string body key %s != absent body key %s", k1, k2)
	}
}

func TestDeriveKey_Errors(t *testing.T) {
	if _, err := DeriveKey(Request{}); err == nil {
		t.Error("expected error for empty url")
	}

	// A channel cannot be serialized: derivation must fail fast rather
	// than silently dropping the body.
	_, err := DeriveKey(Request{URL: "https://example.com", Body: make(chan int)})
	if err == nil {
		t.Fatal("expected error for non-serializable body")
	}
	if !strings.Contains(err.Error(), ErrKeyDerivation.Error()) {
		t.Errorf("error %q does not wrap ErrKeyDerivation", err)
	}
}
