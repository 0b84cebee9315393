package cache

import (
	"encoding/json"
	"net/http"
	"time"
)

// SchemaVersion is the on-disk record format version. Records carrying an
// unknown version are treated as corrupt and removed on read.
const SchemaVersion = 1

// NoExpiration disables TTL expiry: records never go stale on their own and
// are only removed by an explicit Clear.
const NoExpiration time.Duration = 0

// Response is a snapshot of an HTTP response, decoupled from net/http so it
// round-trips through JSON (Content is base64-encoded, preserving non-UTF8
// bodies byte for byte).
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int `json:"status_code"`

	// Headers are the response headers.
	Headers http.Header `json:"headers"`

	// Content is the raw response body.
	Content []byte `json:"content"`

	// Text is the body decoded as text.
	Text string `json:"text"`

	// Encoding is the charset reported by the server, if any.
	Encoding string `json:"encoding,omitempty"`

	// FinalURL is the URL after any redirects.
	FinalURL string `json:"final_url,omitempty"`
}

// Record is the persisted unit of the cache: one fetched response plus any
// post-processed values derived from it. A record is created on first
// successful fetch and mutated only to add entries to Processed.
type Record struct {
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Request   Request   `json:"request"`
	Response  Response  `json:"response"`

	// Processed memoizes post-processor results by name. Values live
	// exactly as long as the record itself; there is no independent TTL.
	Processed map[string]json.RawMessage `json:"processed"`
}

// NewRecord builds a fresh record for a request/response pair with an empty
// memoization map.
func NewRecord(req Request, resp Response) *Record {
	return &Record{
		Version:   SchemaVersion,
		Timestamp: time.Now(),
		Request:   req,
		Response:  resp,
		Processed: map[string]json.RawMessage{},
	}
}

// clone returns a copy safe for caller-local memoization. The response
// snapshot is shared (processors must not mutate it); the Processed map is
// copied so two callers never write into the same map.
func (r *Record) clone() *Record {
	out := *r
	out.Processed = make(map[string]json.RawMessage, len(r.Processed))
	for k, v := range r.Processed {
		out.Processed[k] = v
	}
	return &out
}

// Age returns the elapsed wall-clock time since the record was stored.
func (r *Record) Age() time.Duration {
	return time.Since(r.Timestamp)
}

// IsExpired reports whether the record is older than ttl. A ttl of
// NoExpiration (or any non-positive duration) never expires. Negative ages
// from clock skew count as not expired.
func (r *Record) IsExpired(ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return r.Age() > ttl
}
