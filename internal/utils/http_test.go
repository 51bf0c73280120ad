package utils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestDoPostSync verifies JSON marshalling of the body, auth header
// injection, and decoding of the 2xx response.
func TestDoPostSync(t *testing.T) {
	type echo struct {
		Greeting string `json:"greeting"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("authorization: got %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("content type: got %q", got)
		}
		_, _ = w.Write([]byte(`{"greeting":"hello"}`))
	}))
	defer server.Close()

	_, out, err := DoPostSync[echo](context.Background(), server.Client(), server.URL, "key", map[string]string{"name": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Greeting != "hello" {
		t.Errorf("decoded: got %+v", out)
	}
}

// TestDoPostSync_HTTPError verifies a non-2xx final response surfaces as an
// HTTPError with a truncated body.
func TestDoPostSync_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no such model"))
	}))
	defer server.Close()

	_, _, err := DoPostSync[struct{}](context.Background(), server.Client(), server.URL, "key", struct{}{})

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d", httpErr.StatusCode)
	}
	if !strings.Contains(httpErr.Body, "no such model") {
		t.Errorf("body: got %q", httpErr.Body)
	}
}

// TestDoGetSync verifies the GET path decodes a 2xx response.
func TestDoGetSync(t *testing.T) {
	type listing struct {
		IDs []string `json:"ids"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method: got %q", r.Method)
		}
		_, _ = w.Write([]byte(`{"ids":["a","b"]}`))
	}))
	defer server.Close()

	_, out, err := DoGetSync[listing](context.Background(), server.Client(), server.URL, "key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.IDs) != 2 {
		t.Errorf("decoded: got %+v", out)
	}
}

// TestHTTPError_Error covers both body and body-less renderings.
func TestHTTPError_Error(t *testing.T) {
	withBody := &HTTPError{StatusCode: 429, Status: "429 Too Many Requests", Body: "slow down"}
	if got := withBody.Error(); !strings.Contains(got, "429") || !strings.Contains(got, "slow down") {
		t.Errorf("got %q", got)
	}

	withoutBody := &HTTPError{StatusCode: 502, Status: "502 Bad Gateway"}
	if got := withoutBody.Error(); !strings.Contains(got, "502") {
		t.Errorf("got %q", got)
	}
}

// TestTruncateString verifies long strings gain the omission suffix and
// short ones pass through.
func TestTruncateString(t *testing.T) {
	if got := TruncateString("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}

	long := strings.Repeat("x", 600)
	got := TruncateString(long, 100)
	if !strings.HasPrefix(got, strings.Repeat("x", 100)) {
		t.Errorf("prefix lost: %q", got[:110])
	}
	if !strings.Contains(got, "total: 600") {
		t.Errorf("suffix missing: %q", got)
	}
}

// TestJSONToString verifies compact and indented output plus the marshal
// failure fallback.
func TestJSONToString(t *testing.T) {
	if got := JSONToString(map[string]int{"a": 1}); got != `{"a":1}` {
		t.Errorf("compact: got %q", got)
	}
	if got := JSONToString(map[string]int{"a": 1}, true); !strings.Contains(got, "\n") {
		t.Errorf("indented: got %q", got)
	}
	if got := JSONToString(make(chan int)); !strings.Contains(got, "error") {
		t.Errorf("fallback: got %q", got)
	}
}
