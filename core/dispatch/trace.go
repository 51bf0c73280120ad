package dispatch

import (
	"iter"
	"strings"
	"time"

	"github.com/mossgowild/unify-chat-provider/internal/tokencount"
	"github.com/mossgowild/unify-chat-provider/providers/ai"
)

// PerformanceTrace records timing milestones for one chat request. Timestamps
// carry Go's monotonic clock reading, so the derived durations are immune to
// wall-clock adjustments.
//
// The trace is mutated by the stream proxy as wire events are observed and by
// the dispatch service around the initial request. Each stream has a single
// consumer, so no locking is done; read the trace only after the stream has
// been fully consumed.
type PerformanceTrace struct {
	// RequestStart is taken just before the adapter sends the request.
	RequestStart time.Time

	// FirstByte is taken when response headers arrive, before any stream
	// event has been decoded.
	FirstByte time.Time

	// FirstToken is taken when the first content-bearing event (text delta,
	// thinking delta, or completed part) is observed. Zero if the stream
	// produced no content.
	FirstToken time.Time

	// End is taken when the stream iterator finishes, whether by completion,
	// error, or the consumer breaking out.
	End time.Time

	// CompletionTokens is the backend-reported output token count, taken
	// from the last usage event. When the backend reports no usage it is
	// filled with a tokenizer estimate of the streamed text instead, so
	// TokensPerSecond stays meaningful for usage-less backends.
	CompletionTokens int

	// model selects the tokenizer encoding for the estimate.
	model string

	// output accumulates streamed text for the estimate.
	output strings.Builder
}

// TimeToFirstByte is the duration from request start to response headers.
func (t *PerformanceTrace) TimeToFirstByte() time.Duration {
	if t.FirstByte.IsZero() {
		return 0
	}
	return t.FirstByte.Sub(t.RequestStart)
}

// TimeToFirstToken is the duration from request start to the first
// content-bearing stream event.
func (t *PerformanceTrace) TimeToFirstToken() time.Duration {
	if t.FirstToken.IsZero() {
		return 0
	}
	return t.FirstToken.Sub(t.RequestStart)
}

// TotalDuration is the duration from request start to stream end.
func (t *PerformanceTrace) TotalDuration() time.Duration {
	if t.End.IsZero() {
		return 0
	}
	return t.End.Sub(t.RequestStart)
}

// TokensPerSecond is the output throughput over the generation window (first
// token to stream end). Zero when token counts or timestamps are missing.
func (t *PerformanceTrace) TokensPerSecond() float64 {
	if t.CompletionTokens == 0 || t.FirstToken.IsZero() || t.End.IsZero() {
		return 0
	}
	window := t.End.Sub(t.FirstToken).Seconds()
	if window <= 0 {
		return 0
	}
	return float64(t.CompletionTokens) / window
}

// observe wraps a stream iterator so milestones are recorded as events pass
// through. Events and errors are forwarded unchanged.
func (t *PerformanceTrace) observe(inner iter.Seq2[ai.StreamEvent, error]) iter.Seq2[ai.StreamEvent, error] {
	return func(yield func(ai.StreamEvent, error) bool) {
		sawUsage := false
		defer func() {
			t.End = time.Now()
			if !sawUsage {
				t.estimateCompletionTokens()
			}
		}()

		for event, err := range inner {
			if err == nil {
				switch event.Type {
				case ai.StreamEventContent, ai.StreamEventThinkingDelta, ai.StreamEventPart:
					if t.FirstToken.IsZero() {
						t.FirstToken = time.Now()
					}
					if event.Type == ai.StreamEventContent {
						t.output.WriteString(event.Content)
					}
				case ai.StreamEventUsage:
					if event.Usage != nil && event.Usage.CompletionTokens > 0 {
						t.CompletionTokens = event.Usage.CompletionTokens
						sawUsage = true
					}
				}
			}

			if !yield(event, err) {
				return
			}
		}
	}
}

// estimateCompletionTokens fills CompletionTokens from the accumulated
// output text when no usage event supplied a real count. The tokenizer is
// looked up by model id; a missing model or tokenizer error degrades to the
// shared length heuristic via the nil Counter.
func (t *PerformanceTrace) estimateCompletionTokens() {
	if t.output.Len() == 0 {
		return
	}
	var counter *tokencount.Counter
	if t.model != "" {
		if c, err := tokencount.NewCounter(t.model); err == nil {
			counter = c
		}
	}
	t.CompletionTokens = counter.Count(t.output.String())
}
