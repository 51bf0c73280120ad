package utils

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mossgowild/unify-chat-provider/providers/observability"
)

// DoPostStream performs an HTTP POST through the retrying transport and
// returns the raw response with its body left open for SSE reading. The
// caller is responsible for closing the response body when done. On error
// paths the body is read and closed before returning.
//
// Retries only ever happen here, before any byte of the streaming body has
// been handed to the caller; a mid-stream failure is a terminal error because
// retrying would duplicate already-emitted events.
func DoPostStream(ctx context.Context, client *http.Client, url string, apiKey string, body any, headers ...HeaderOption) (*http.Response, error) {
	span := observability.SpanFromContext(ctx)

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}

	if span != nil {
		span.AddEvent("http.stream_request.prepared",
			observability.String(observability.AttrHTTPMethod, "POST"),
			observability.String(observability.AttrHTTPURL, url),
			observability.Int(observability.AttrHTTPRequestBodySize, len(jsonBody)),
		)
	}

	buildRequest := func() (*http.Request, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
		if reqErr != nil {
			return nil, fmt.Errorf("error creating request: %w", reqErr)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")
		if apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}
		for _, header := range headers {
			req.Header.Set(header.Key, header.Value)
		}
		return req, nil
	}

	requestStart := time.Now()
	response, err := DoWithRetry(ctx, client, DefaultRetryPolicy(), buildRequest)
	requestDuration := time.Since(requestStart)

	if err != nil {
		if span != nil {
			span.AddEvent("http.stream_request.error",
				observability.Error(err),
				observability.Duration("http.request.duration", requestDuration),
			)
		}
		return response, fmt.Errorf("error sending stream request: %w", err)
	}

	// For non-2xx responses, read the body and close it before returning.
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		defer CloseWithLog(response.Body)
		errorBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodySize))
		if readErr != nil {
			return response, fmt.Errorf("non-2xx status %d (failed to read body: %v)", response.StatusCode, readErr)
		}
		return response, NewHTTPError(response, errorBody)
	}

	if span != nil {
		span.AddEvent("http.stream_response.started",
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
			observability.Duration("http.request.duration", requestDuration),
		)
	}

	response.Body = NewIdleTimeoutReader(response.Body, defaultStreamIdleTimeout)
	return response, nil
}

// defaultStreamIdleTimeout is the "time since last byte" budget applied to
// every streaming response body. It resets on each received chunk.
const defaultStreamIdleTimeout = 90 * time.Second

// maxSSELineSize is the maximum size of a single SSE line (1 MB).
// The default bufio.Scanner limit is 64 KiB, which is too small for large SSE
// events such as tool-call arguments or long completions. If a line exceeds
// this limit the scanner returns a wrapped bufio.ErrTooLong via Next().
const maxSSELineSize = 1 * 1024 * 1024

// SSEScanner frames Server-Sent Events from an io.Reader into discrete data
// payloads. It tolerates partial chunks (framing happens on complete lines),
// strips trailing carriage returns, joins multi-line data fields, skips
// comments, and recognizes the [DONE] sentinel used by OpenAI-compatible APIs.
type SSEScanner struct {
	scanner *bufio.Scanner
}

// NewSSEScanner creates an SSEScanner reading SSE events from reader.
func NewSSEScanner(reader io.Reader) *SSEScanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &SSEScanner{
		scanner: scanner,
	}
}

// Next returns the next SSE data payload as a string.
//
// Lines beginning with "data:" are accumulated (trimmed of the prefix) until
// a blank line flushes them as one payload; consecutive data lines are joined
// with newlines. A payload equal to "[DONE]" terminates the sequence with
// io.EOF. At stream end any residual buffered data is flushed as a final
// payload before io.EOF is reported.
func (sseScanner *SSEScanner) Next() (string, error) {
	var dataLines []string

	for sseScanner.scanner.Scan() {
		// bufio.ScanLines already strips a trailing \r from each line.
		line := sseScanner.scanner.Text()

		// Empty line signals end of an event; flush accumulated data lines.
		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}

		// Skip SSE comments.
		if strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

			// [DONE] sentinel (OpenAI convention) terminates the stream.
			if data == "[DONE]" {
				return "", io.EOF
			}

			dataLines = append(dataLines, data)
			continue
		}

		// Other SSE fields (event:, id:, retry:) carry no payload for us.
	}

	if err := sseScanner.scanner.Err(); err != nil {
		return "", fmt.Errorf("SSE scanner error: %w", err)
	}

	// Flush any residual data lines when the stream ends without a final
	// blank line.
	if len(dataLines) > 0 {
		return strings.Join(dataLines, "\n"), nil
	}

	return "", io.EOF
}

// idleTimeoutReader enforces a "time since last byte" budget on a streaming
// response body. The budget resets on every received chunk, so a slow but
// alive stream is not killed while a stalled one is. This is independent of
// the connection-establishment timeout configured on the http.Client.
type idleTimeoutReader struct {
	body io.ReadCloser
	idle time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
	timedOut bool
}

// NewIdleTimeoutReader wraps body so that reads fail once no byte has been
// received for idle. An idle of zero returns body unchanged.
func NewIdleTimeoutReader(body io.ReadCloser, idle time.Duration) io.ReadCloser {
	if idle <= 0 {
		return body
	}
	reader := &idleTimeoutReader{body: body, idle: idle}
	reader.timer = time.AfterFunc(idle, reader.onTimeout)
	return reader
}

// onTimeout closes the underlying body, which unblocks any in-flight Read
// with an error.
func (r *idleTimeoutReader) onTimeout() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.timedOut = true
	_ = r.body.Close()
}

func (r *idleTimeoutReader) Read(p []byte) (int, error) {
	n, err := r.body.Read(p)

	r.mu.Lock()
	if r.timedOut {
		r.mu.Unlock()
		if n > 0 {
			return n, nil
		}
		return 0, fmt.Errorf("stream idle timeout: no data received for %s", r.idle)
	}
	if !r.closed && n > 0 {
		r.timer.Reset(r.idle)
	}
	r.mu.Unlock()

	return n, err
}

func (r *idleTimeoutReader) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.timer.Stop()
	r.mu.Unlock()
	return r.body.Close()
}
