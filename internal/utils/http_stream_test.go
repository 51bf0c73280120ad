package utils

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestSSEScanner_Framing covers payload framing: prefix trimming, comment
// skipping, multi-line joins, and the [DONE] sentinel.
func TestSSEScanner_Framing(t *testing.T) {
	input := ": keep-alive\n" +
		"event: message\n" +
		"data: {\"a\":1}\n" +
		"\n" +
		"data: line one\n" +
		"data: line two\n" +
		"\n" +
		"data: [DONE]\n" +
		"\n" +
		"data: never seen\n" +
		"\n"

	scanner := NewSSEScanner(strings.NewReader(input))

	payload, err := scanner.Next()
	if err != nil || payload != `{"a":1}` {
		t.Fatalf("first payload: got %q, %v", payload, err)
	}

	payload, err = scanner.Next()
	if err != nil || payload != "line one\nline two" {
		t.Fatalf("second payload: got %q, %v", payload, err)
	}

	if _, err = scanner.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF at [DONE], got %v", err)
	}
}

// TestSSEScanner_FlushesResidualAtEOF verifies data pending when the stream
// ends without a final blank line is still delivered.
func TestSSEScanner_FlushesResidualAtEOF(t *testing.T) {
	scanner := NewSSEScanner(strings.NewReader("data: tail payload\n"))

	payload, err := scanner.Next()
	if err != nil || payload != "tail payload" {
		t.Fatalf("residual payload: got %q, %v", payload, err)
	}

	if _, err = scanner.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

// TestSSEScanner_CarriageReturns verifies CRLF-framed streams parse the same
// as LF-framed ones.
func TestSSEScanner_CarriageReturns(t *testing.T) {
	scanner := NewSSEScanner(strings.NewReader("data: hello\r\n\r\n"))

	payload, err := scanner.Next()
	if err != nil || payload != "hello" {
		t.Fatalf("payload: got %q, %v", payload, err)
	}
}

// TestIdleTimeoutReader_StalledStream verifies a body producing no bytes
// within the idle budget fails the read.
func TestIdleTimeoutReader_StalledStream(t *testing.T) {
	pipeReader, pipeWriter := io.Pipe()
	defer func() { _ = pipeWriter.Close() }()

	reader := NewIdleTimeoutReader(pipeReader, 30*time.Millisecond)
	defer CloseWithLog(reader)

	buffer := make([]byte, 16)
	_, err := reader.Read(buffer)
	if err == nil {
		t.Fatal("expected idle timeout error")
	}
	if !strings.Contains(err.Error(), "idle timeout") {
		t.Errorf("error: got %v", err)
	}
}

// TestIdleTimeoutReader_SlowButAliveStream verifies the budget resets on
// each received chunk, so a slow stream survives past its idle window.
func TestIdleTimeoutReader_SlowButAliveStream(t *testing.T) {
	pipeReader, pipeWriter := io.Pipe()

	go func() {
		defer func() { _ = pipeWriter.Close() }()
		for i := 0; i < 5; i++ {
			time.Sleep(20 * time.Millisecond)
			if _, err := pipeWriter.Write([]byte("x")); err != nil {
				return
			}
		}
	}()

	reader := NewIdleTimeoutReader(pipeReader, 60*time.Millisecond)
	defer CloseWithLog(reader)

	// Total stream time (~100ms) exceeds the idle budget, but no single gap
	// does.
	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "xxxxx" {
		t.Errorf("data: got %q", data)
	}
}

// TestNewIdleTimeoutReader_ZeroBudget verifies a zero budget disables the
// wrapper entirely.
func TestNewIdleTimeoutReader_ZeroBudget(t *testing.T) {
	body := io.NopCloser(strings.NewReader("payload"))
	if got := NewIdleTimeoutReader(body, 0); got != body {
		t.Error("zero idle budget should return the body unchanged")
	}
}

// TestDoPostStream_NonOKStatus verifies a non-2xx response is consumed,
// closed, and surfaced as an HTTPError carrying status and body.
func TestDoPostStream_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer server.Close()

	_, err := DoPostStream(context.Background(), server.Client(), server.URL, "key", map[string]string{"q": "hi"})

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d", httpErr.StatusCode)
	}
	if !strings.Contains(httpErr.Body, "model not found") {
		t.Errorf("body: got %q", httpErr.Body)
	}
}

// TestDoPostStream_Success verifies auth and content headers are set and the
// body comes back open for SSE reading.
func TestDoPostStream_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("authorization: got %q", got)
		}
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("accept: got %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: hello\n\n"))
	}))
	defer server.Close()

	response, err := DoPostStream(context.Background(), server.Client(), server.URL, "key", map[string]string{"q": "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer CloseWithLog(response.Body)

	payload, err := NewSSEScanner(response.Body).Next()
	if err != nil || payload != "hello" {
		t.Fatalf("payload: got %q, %v", payload, err)
	}
}

// TestDoPostStream_EmptyAPIKey verifies no Authorization header is injected
// when the key is empty, leaving room for provider-specific auth headers.
func TestDoPostStream_EmptyAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("authorization: got %q", got)
		}
		if got := r.Header.Get("x-api-key"); got != "secret" {
			t.Errorf("x-api-key: got %q", got)
		}
	}))
	defer server.Close()

	response, err := DoPostStream(
		context.Background(), server.Client(), server.URL, "",
		map[string]string{}, HeaderOption{Key: "x-api-key", Value: "secret"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	CloseWithLog(response.Body)
}
