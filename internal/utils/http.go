package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mossgowild/unify-chat-provider/providers/observability"
)

// HeaderOption is a single HTTP header to set on an outgoing request.
// Options are applied after the defaults, so they can override Authorization
// when a provider uses a different auth scheme.
type HeaderOption struct {
	Key   string
	Value string
}

// HTTPError is returned for non-2xx upstream responses. It carries the status
// code and a truncated body so a caller-side logger can reconstruct what was
// received without the transport owning logging policy.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d (%s)", e.StatusCode, e.Status)
	}
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Body)
}

// NewHTTPError builds an HTTPError from a response and its (already read)
// body. The body is truncated so error values stay log-friendly.
func NewHTTPError(response *http.Response, body []byte) *HTTPError {
	return &HTTPError{
		StatusCode: response.StatusCode,
		Status:     response.Status,
		Body:       TruncateString(string(body), DefaultMaxStringLength),
	}
}

// CloseWithLog closes the given closer and logs a warning on failure.
// Close errors never override a primary error, so they are only logged.
func CloseWithLog(closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err.Error())
	}
}

// maxResponseBodySize is the maximum response body size (10 MB). Enforced via
// io.LimitReader to prevent unbounded memory allocation from rogue responses.
const maxResponseBodySize int64 = 10 * 1024 * 1024

// DoPostSync performs a synchronous HTTP POST with a JSON body through the
// retrying transport and parses the 2xx response body into OutputStruct.
//
// Error handling:
//   - marshalling and request-construction failures return immediately;
//   - network-level failures (including cancellation) propagate unretried;
//   - retryable statuses are handled by DoWithRetry before this function
//     ever sees the response;
//   - a non-2xx final response is returned as an *HTTPError with a
//     truncated body;
//   - JSON decode failures include a response preview for debugging.
func DoPostSync[OutputStruct any](ctx context.Context, client *http.Client, url string, apiKey string, body any, headers ...HeaderOption) (*http.Response, *OutputStruct, error) {
	span := observability.SpanFromContext(ctx)

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("error marshaling body: %w", err)
	}

	if span != nil {
		span.AddEvent("http.request.prepared",
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
			span.AddEvent("http.request.error",
				observability.Error(err),
				observability.Duration("http.request.duration", requestDuration),
			)
		}
		return response, nil, fmt.Errorf("error sending request: %w", err)
	}
	defer CloseWithLog(response.Body)

	respBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBodySize))
	if err != nil {
		return response, nil, fmt.Errorf("error reading response body: %w", err)
	}

	if span != nil {
		span.AddEvent("http.response.received",
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
			observability.Int(observability.AttrHTTPResponseBodySize, len(respBody)),
			observability.Duration("http.request.duration", requestDuration),
		)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return response, nil, NewHTTPError(response, respBody)
	}

	var resStruct OutputStruct
	if err = json.Unmarshal(respBody, &resStruct); err != nil {
		return response, nil, fmt.Errorf("error unmarshaling response body (status %d): %w\nResponse preview: %s", response.StatusCode, err, TruncateString(string(respBody), DefaultMaxStringLength))
	}

	return response, &resStruct, nil
}

// DoGetSync performs a synchronous HTTP GET through the retrying transport
// and parses the 2xx response body into OutputStruct. Used for model-listing
// endpoints.
func DoGetSync[OutputStruct any](ctx context.Context, client *http.Client, url string, apiKey string, headers ...HeaderOption) (*http.Response, *OutputStruct, error) {
	buildRequest := func() (*http.Request, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if reqErr != nil {
			return nil, fmt.Errorf("error creating request: %w", reqErr)
		}
		if apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}
		for _, header := range headers {
			req.Header.Set(header.Key, header.Value)
		}
		return req, nil
	}

	response, err := DoWithRetry(ctx, client, DefaultRetryPolicy(), buildRequest)
	if err != nil {
		return response, nil, fmt.Errorf("error sending request: %w", err)
	}
	defer CloseWithLog(response.Body)

	respBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBodySize))
	if err != nil {
		return response, nil, fmt.Errorf("error reading response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return response, nil, NewHTTPError(response, respBody)
	}

	var resStruct OutputStruct
	if err = json.Unmarshal(respBody, &resStruct); err != nil {
		return response, nil, fmt.Errorf("error unmarshaling response body (status %d): %w\nResponse preview: %s", response.StatusCode, err, TruncateString(string(respBody), DefaultMaxStringLength))
	}

	return response, &resStruct, nil
}
