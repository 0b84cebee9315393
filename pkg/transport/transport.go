// Package transport implements the cache's network collaborator on top of
// net/http. It is deliberately thin: the cache treats it as an opaque
// request/response primitive.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/epifetch/webcache/pkg/cache"
)

// DefaultTimeout bounds a single fetch when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Config holds the transport configuration.
type Config struct {
	// Timeout bounds each request via context deadline. Zero means
	// DefaultTimeout; negative disables the bound.
	Timeout time.Duration

	// UserAgent is sent when the request carries no User-Agent header.
	UserAgent string

	// Client is the underlying HTTP client. Defaults to a plain
	// http.Client.
	Client *http.Client
}

// HTTPClient performs HTTP fetches for the cache. A response with status
// 400 or above is returned as a *StatusError so the cache never stores a
// failed fetch as a valid hit.
type HTTPClient struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// New creates an HTTP transport.
func New(cfg Config) *HTTPClient {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		client:    client,
		timeout:   timeout,
		userAgent: cfg.UserAgent,
	}
}

// Do executes the request and snapshots the response.
func (t *HTTPClient) Do(ctx context.Context, req cache.Request) (*cache.Response, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	httpReq, err := t.build(ctx, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer httpResp.Body.Close()

	content, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return nil, &StatusError{
			StatusCode: httpResp.StatusCode,
			Status:     httpResp.Status,
			URL:        httpResp.Request.URL.String(),
		}
	}

	return &cache.Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header.Clone(),
		Content:    content,
		Text:       string(content),
		Encoding:   charsetOf(httpResp.Header),
		FinalURL:   httpResp.Request.URL.String(),
	}, nil
}

// build assembles the net/http request: query params are merged into the
// URL, the body is encoded per its Go type (string/bytes raw, string map as
// a form, anything else as JSON).
func (t *HTTPClient) build(ctx context.Context, req cache.Request) (*http.Request, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(req.Params) > 0 {
		q := u.Query()
		for k, v := range req.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	var contentType string
	switch b := req.Body.(type) {
	case nil:
	case string:
		if b != "" {
			body = strings.NewReader(b)
		}
	case []byte:
		if len(b) > 0 {
			body = bytes.NewReader(b)
		}
	case map[string]string:
		if len(b) > 0 {
			form := url.Values{}
			for k, v := range b {
				form.Set(k, v)
			}
			body = strings.NewReader(form.Encode())
			contentType = "application/x-www-form-urlencoded"
		}
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if t.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}

	return httpReq, nil
}

// charsetOf extracts the charset parameter from the Content-Type header.
func charsetOf(headers http.Header) string {
	ct := headers.Get("Content-Type")
	if ct == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return params["charset"]
}
