package dispatch

import (
	"testing"
	"time"

	"github.com/mossgowild/unify-chat-provider/providers/ai"
)

// TestPerformanceTrace_DerivedMetrics verifies the duration and throughput
// computations over fabricated timestamps.
func TestPerformanceTrace_DerivedMetrics(t *testing.T) {
	start := time.Now()
	trace := &PerformanceTrace{
		RequestStart:     start,
		FirstByte:        start.Add(100 * time.Millisecond),
		FirstToken:       start.Add(300 * time.Millisecond),
		End:              start.Add(2300 * time.Millisecond),
		CompletionTokens: 100,
	}

	if got := trace.TimeToFirstByte(); got != 100*time.Millisecond {
		t.Errorf("time to first byte: got %v", got)
	}
	if got := trace.TimeToFirstToken(); got != 300*time.Millisecond {
		t.Errorf("time to first token: got %v", got)
	}
	if got := trace.TotalDuration(); got != 2300*time.Millisecond {
		t.Errorf("total duration: got %v", got)
	}

	// 100 tokens over the 2s generation window.
	if got := trace.TokensPerSecond(); got < 49.9 || got > 50.1 {
		t.Errorf("tokens per second: got %f", got)
	}
}

// TestPerformanceTrace_ZeroValues verifies unpopulated milestones yield zero
// metrics instead of nonsense.
func TestPerformanceTrace_ZeroValues(t *testing.T) {
	trace := &PerformanceTrace{RequestStart: time.Now()}

	if got := trace.TimeToFirstByte(); got != 0 {
		t.Errorf("time to first byte: got %v", got)
	}
	if got := trace.TimeToFirstToken(); got != 0 {
		t.Errorf("time to first token: got %v", got)
	}
	if got := trace.TotalDuration(); got != 0 {
		t.Errorf("total duration: got %v", got)
	}
	if got := trace.TokensPerSecond(); got != 0 {
		t.Errorf("tokens per second: got %f", got)
	}
}

// TestPerformanceTrace_Observe verifies milestones and token counts are
// recorded as stream events pass through, and that events are forwarded
// unchanged.
func TestPerformanceTrace_Observe(t *testing.T) {
	source := func(yield func(ai.StreamEvent, error) bool) {
		events := []ai.StreamEvent{
			{Type: ai.StreamEventContent, Content: "Hel"},
			{Type: ai.StreamEventContent, Content: "lo"},
			{Type: ai.StreamEventUsage, Usage: &ai.Usage{CompletionTokens: 2}},
			{Type: ai.StreamEventDone, FinishReason: "stop"},
		}
		for _, event := range events {
			if !yield(event, nil) {
				return
			}
		}
	}

	trace := &PerformanceTrace{RequestStart: time.Now()}

	response, err := ai.NewChatStream(trace.observe(source)).Collect()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if response.Text() != "Hello" {
		t.Errorf("text: got %q", response.Text())
	}
	if trace.FirstToken.IsZero() {
		t.Error("first token not recorded")
	}
	if trace.End.IsZero() {
		t.Error("end not recorded")
	}
	if trace.CompletionTokens != 2 {
		t.Errorf("completion tokens: got %d", trace.CompletionTokens)
	}
}

// TestPerformanceTrace_Observe_EstimatesTokens verifies that a stream
// without usage events still gets a completion token count, estimated from
// the accumulated text, so throughput stays computable.
func TestPerformanceTrace_Observe_EstimatesTokens(t *testing.T) {
	source := func(yield func(ai.StreamEvent, error) bool) {
		events := []ai.StreamEvent{
			{Type: ai.StreamEventContent, Content: "eight ch"},
			{Type: ai.StreamEventDone, FinishReason: "stop"},
		}
		for _, event := range events {
			if !yield(event, nil) {
				return
			}
		}
	}

	trace := &PerformanceTrace{RequestStart: time.Now()}

	if _, err := ai.NewChatStream(trace.observe(source)).Collect(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 8 characters under the length/4 heuristic.
	if trace.CompletionTokens != 2 {
		t.Errorf("estimated completion tokens: got %d, want 2", trace.CompletionTokens)
	}
	if trace.TokensPerSecond() <= 0 {
		t.Errorf("tokens per second: got %f, want > 0", trace.TokensPerSecond())
	}
}

// TestPerformanceTrace_Observe_UsageWins verifies a backend-reported usage
// count is never overwritten by the estimate.
func TestPerformanceTrace_Observe_UsageWins(t *testing.T) {
	source := func(yield func(ai.StreamEvent, error) bool) {
		events := []ai.StreamEvent{
			{Type: ai.StreamEventContent, Content: "a very long stretch of streamed text"},
			{Type: ai.StreamEventUsage, Usage: &ai.Usage{CompletionTokens: 3}},
			{Type: ai.StreamEventDone, FinishReason: "stop"},
		}
		for _, event := range events {
			if !yield(event, nil) {
				return
			}
		}
	}

	trace := &PerformanceTrace{RequestStart: time.Now()}

	if _, err := ai.NewChatStream(trace.observe(source)).Collect(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trace.CompletionTokens != 3 {
		t.Errorf("completion tokens: got %d, want 3", trace.CompletionTokens)
	}
}

// TestPerformanceTrace_Observe_EarlyBreak verifies the end milestone is still
// recorded when the consumer abandons the stream.
func TestPerformanceTrace_Observe_EarlyBreak(t *testing.T) {
	source := func(yield func(ai.StreamEvent, error) bool) {
		for {
			if !yield(ai.StreamEvent{Type: ai.StreamEventContent, Content: "x"}, nil) {
				return
			}
		}
	}

	trace := &PerformanceTrace{RequestStart: time.Now()}

	seen := 0
	for range trace.observe(source) {
		seen++
		if seen == 3 {
			break
		}
	}

	if trace.End.IsZero() {
		t.Error("end not recorded after early break")
	}
}
