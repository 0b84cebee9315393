package transport

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/epifetch/webcache/internal/testutil"
	"github.com/epifetch/webcache/pkg/cache"
)

func TestHTTPClient_Do(t *testing.T) {
	server := testutil.NewMockServer()
	defer server.Close()
	server.SetResponse("/page", testutil.NewHTMLResponse("<html>hi</html>"))

	tr := New(Config{UserAgent: "webcache-test/1.0"})
	resp, err := tr.Do(context.Background(), cache.Request{URL: server.URL() + "/page"})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if resp.Text != "<html>hi</html>" {
		t.Errorf("Text = %q", resp.Text)
	}
	if string(resp.Content) != resp.Text {
		t.Error("Content and Text disagree")
	}
	if resp.Encoding != "utf-8" {
		t.Errorf("Encoding = %q, want utf-8", resp.Encoding)
	}
	if resp.FinalURL != server.URL()+"/page" {
		t.Errorf("FinalURL = %q", resp.FinalURL)
	}
	if got := server.LastRequestHeader.Get("User-Agent"); got != "webcache-test/1.0" {
		t.Errorf("User-Agent = %q", got)
	}
}

func TestHTTPClient_QueryParams(t *testing.T) {
	server := testutil.NewMockServer()
	defer server.Close()

	var gotQuery string
	server.SetHandler("/q", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	})

	tr := New(Config{})
	_, err := tr.Do(context.Background(), cache.Request{
		URL:    server.URL() + "/q",
		Params: map[string]string{"test": "value"},
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if gotQuery != "test=value" {
		t.Errorf("query = %q, want test=value", gotQuery)
	}
}

func TestHTTPClient_FormBody(t *testing.T) {
	server := testutil.NewMockServer()
	defer server.Close()

	var gotBody, gotContentType string
	server.SetHandler("/form", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotBody = r.PostForm.Get("key")
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	})

	tr := New(Config{})
	_, err := tr.Do(context.Background(), cache.Request{
		URL:    server.URL() + "/form",
		Method: "POST",
		Body:   map[string]string{"key": "value"},
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if gotBody != "value" {
		t.Errorf("form key = %q, want value", gotBody)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
}

func TestHTTPClient_StatusError(t *testing.T) {
	server := testutil.NewMockServer()
	defer server.Close()
	server.SetResponse("/boom", testutil.NewServerErrorResponse())
	server.SetResponse("/gone", testutil.MockResponse{StatusCode: http.StatusNotFound})

	tr := New(Config{})

	_, err := tr.Do(context.Background(), cache.Request{URL: server.URL() + "/boom"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Do = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != 500 || statusErr.Class() != "server" {
		t.Errorf("StatusError = %+v, class %s", statusErr, statusErr.Class())
	}

	_, err = tr.Do(context.Background(), cache.Request{URL: server.URL() + "/gone"})
	if !errors.As(err, &statusErr) {
		t.Fatalf("Do = %v, want *StatusError", err)
	}
	if statusErr.Class() != "client" {
		t.Errorf("Class = %s, want client", statusErr.Class())
	}
}

func TestStatusError_Class(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{429, "rate_limit"},
		{404, "client"},
		{500, "server"},
		{503, "server"},
	}
	for _, tt := range tests {
		e := &StatusError{StatusCode: tt.status}
		if got := e.Class(); got != tt.want {
			t.Errorf("Class(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestHTTPClient_ContextCancelled(t *testing.T) {
	server := testutil.NewMockServer()
	defer server.Close()

	tr := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tr.Do(ctx, cache.Request{URL: server.URL()}); err == nil {
		t.Error("expected error for cancelled context")
	}
}
