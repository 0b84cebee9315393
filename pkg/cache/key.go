package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrKeyDerivation indicates the request could not be canonically serialized
// (for example a body containing channels or funcs).
var ErrKeyDerivation = errors.New("cache key derivation failed")

// keyHeaders are the only request headers that participate in key derivation.
// Everything else (tracing headers, user agents, cookies) is assumed not to
// change the response content.
var keyHeaders = map[string]struct{}{
	"accept":        {},
	"content-type":  {},
	"authorization": {},
}

// Key identifies a request for cache lookup purposes. It is the hex form of
// a SHA-256 digest, so it is safe to use as a file name or Redis key.
type Key string

// Request describes an HTTP request for caching purposes. It is the identity
// input for key derivation and is persisted inside the cache record for
// diagnostics.
type Request struct {
	// URL is the request URL. Required.
	URL string `json:"url"`

	// Method is the HTTP verb. Case-insensitive; empty means GET.
	Method string `json:"method"`

	// Params are query parameters. Order-insensitive; nil and empty are
	// equivalent.
	Params map[string]string `json:"params,omitempty"`

	// Headers are request headers. Only accept, content-type and
	// authorization contribute to the cache key.
	Headers map[string]string `json:"headers,omitempty"`

	// Body is the request body: nil, a string, or a JSON-serializable
	// mapping. Nil and an empty value are equivalent for key purposes.
	Body any `json:"body,omitempty"`
}

// normalizedMethod returns the uppercase HTTP verb, defaulting to GET.
func (r Request) normalizedMethod() string {
	if r.Method == "" {
		return "GET"
	}
	return strings.ToUpper(r.Method)
}

// DeriveKey computes the deterministic cache key for a request.
//
// The key is the SHA-256 hex digest of a canonical JSON serialization of
// {url, method, params, data} plus the whitelisted header subset when
// non-empty. encoding/json sorts map keys at every nesting level, so two
// semantically identical requests built in different field order hash
// identically. Derivation is pure: no I/O, no randomness, stable across
// process restarts.
func DeriveKey(req Request) (Key, error) {
	if req.URL == "" {
		return "", fmt.Errorf("%w: empty url", ErrKeyDerivation)
	}

	params := req.Params
	if params == nil {
		params = map[string]string{}
	}

	var body any = req.Body
	if body == nil || body == "" {
		// Absent body must hash identically to an explicitly empty one.
		body = map[string]string{}
	}

	canonical := map[string]any{
		"url":    req.URL,
		"method": req.normalizedMethod(),
		"params": params,
		"data":   body,
	}

	relevant := map[string]string{}
	for name, value := range req.Headers {
		if _, ok := keyHeaders[strings.ToLower(name)]; ok {
			relevant[strings.ToLower(name)] = value
		}
	}
	if len(relevant) > 0 {
		canonical["headers"] = relevant
	}

	serialized, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyDerivation, err)
	}

	digest := sha256.Sum256(serialized)
	return Key(hex.EncodeToString(digest[:])), nil
}
