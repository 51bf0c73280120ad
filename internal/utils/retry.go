package utils

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/mossgowild/unify-chat-provider/providers/observability"
)

// RetryPolicy holds the tuning parameters for the retrying transport. Zero
// values are replaced with the defaults documented below when the policy is
// used, so RetryPolicy{} behaves like DefaultRetryPolicy().
type RetryPolicy struct {
	// MaxRetries is the maximum number of retry attempts after the first
	// request. Default: 10.
	MaxRetries int

	// InitialDelay is the wait before the first retry. Default: 1s.
	InitialDelay time.Duration

	// MaxDelay caps the computed delay. Default: 60s.
	MaxDelay time.Duration

	// Multiplier is the exponential growth factor
	// (delay = min(MaxDelay, InitialDelay * Multiplier^attempt)). Default: 2.
	Multiplier float64

	// JitterFraction randomizes each delay by ±(JitterFraction * delay) to
	// avoid thundering-herd retries. Default: 0.1.
	JitterFraction float64
}

// DefaultRetryPolicy returns the standard policy shared by all adapters.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     10,
		InitialDelay:   time.Second,
		MaxDelay:       60 * time.Second,
		Multiplier:     2,
		JitterFraction: 0.1,
	}
}

// withDefaults fills in zero-valued fields.
func (policy RetryPolicy) withDefaults() RetryPolicy {
	defaults := DefaultRetryPolicy()
	if policy.MaxRetries == 0 {
		policy.MaxRetries = defaults.MaxRetries
	}
	if policy.InitialDelay == 0 {
		policy.InitialDelay = defaults.InitialDelay
	}
	if policy.MaxDelay == 0 {
		policy.MaxDelay = defaults.MaxDelay
	}
	if policy.Multiplier == 0 {
		policy.Multiplier = defaults.Multiplier
	}
	if policy.JitterFraction == 0 {
		policy.JitterFraction = defaults.JitterFraction
	}
	return policy
}

// IsRetryableStatus reports whether an HTTP status code indicates a transient
// upstream condition worth retrying.
func IsRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests, // 429
		http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusServiceUnavailable,  // 503
		http.StatusGatewayTimeout:      // 504
		return true
	}
	return false
}

// Delay returns the backoff duration for the given attempt (0-indexed),
// including jitter. The jittered value stays within
// [delay*(1-JitterFraction), delay*(1+JitterFraction)].
func (policy RetryPolicy) Delay(attempt int) time.Duration {
	policy = policy.withDefaults()

	base := float64(policy.InitialDelay) * math.Pow(policy.Multiplier, float64(attempt))
	if base > float64(policy.MaxDelay) {
		base = float64(policy.MaxDelay)
	}

	jitter := base * policy.JitterFraction * (2*rand.Float64() - 1) //nolint:gosec // non-cryptographic jitter is intentional
	return time.Duration(base + jitter)
}

// DoWithRetry executes an HTTP request with exponential backoff on transient
// status codes (429, 500, 502, 503, 504). buildRequest is invoked once per
// attempt so each retry gets a fresh body reader.
//
// Semantics:
//   - Network-level failures (no HTTP response, including cancellation) are
//     never retried; they typically signal an abort or a fatal connectivity
//     fault rather than a transient server condition.
//   - A 2xx or any non-retryable status returns immediately.
//   - Exhausting retries returns the LAST retryable response unmodified with
//     a nil error; the caller inspects the status itself.
//
// The returned response's body is open; the caller owns closing it.
func DoWithRetry(ctx context.Context, client *http.Client, policy RetryPolicy, buildRequest func() (*http.Request, error)) (*http.Response, error) {
	policy = policy.withDefaults()
	span := observability.SpanFromContext(ctx)

	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	var response *http.Response
	for attempt := 0; ; attempt++ {
		req, err := buildRequest()
		if err != nil {
			return nil, err
		}

		response, err = httpClient.Do(req)
		if err != nil {
			// No HTTP response at all: abort, DNS failure, connection reset.
			return nil, err
		}

		if !IsRetryableStatus(response.StatusCode) || attempt >= policy.MaxRetries {
			return response, nil
		}

		// Drain and close so the connection can be reused for the retry.
		_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxResponseBodySize))
		CloseWithLog(response.Body)

		delay := policy.Delay(attempt)
		if span != nil {
			span.AddEvent(observability.EventHTTPRetry,
				observability.Int(observability.AttrHTTPRetryAttempt, attempt),
				observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
				observability.Duration("http.retry.delay", delay),
			)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}
