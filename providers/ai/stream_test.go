package ai

import (
	"errors"
	"iter"
	"testing"
)

// eventsToStream builds a ChatStream that replays the given events in order.
func eventsToStream(events ...StreamEvent) *ChatStream {
	return NewChatStream(func(yield func(StreamEvent, error) bool) {
		for _, event := range events {
			if !yield(event, nil) {
				return
			}
		}
	})
}

// TestChatStream_CollectTextAndParts verifies that consecutive text deltas
// collapse into a single text part, completed parts flush pending text
// first, and usage plus finish reason survive collection.
func TestChatStream_CollectTextAndParts(t *testing.T) {
	stream := eventsToStream(
		StreamEvent{Type: StreamEventContent, Content: "Hello"},
		StreamEvent{Type: StreamEventContent, Content: ", world"},
		StreamEvent{Type: StreamEventPart, Part: &ContentPart{
			Type:     ContentTypeToolCall,
			ToolCall: &ToolCall{ID: "call_1", Name: "lookup", Input: []byte(`{}`)},
		}},
		StreamEvent{Type: StreamEventContent, Content: "done"},
		StreamEvent{Type: StreamEventUsage, Usage: &Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}},
		StreamEvent{Type: StreamEventDone, FinishReason: "tool_use"},
	)

	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(response.Parts) != 3 {
		t.Fatalf("expected 3 parts, got %d: %+v", len(response.Parts), response.Parts)
	}
	if response.Parts[0].Text != "Hello, world" {
		t.Errorf("first text part: got %q", response.Parts[0].Text)
	}
	if response.Parts[1].Type != ContentTypeToolCall {
		t.Errorf("second part: got %q, want tool_call", response.Parts[1].Type)
	}
	if response.Parts[2].Text != "done" {
		t.Errorf("trailing text part: got %q", response.Parts[2].Text)
	}
	if response.FinishReason != "tool_use" {
		t.Errorf("finish reason: got %q", response.FinishReason)
	}
	if response.Usage == nil || response.Usage.TotalTokens != 15 {
		t.Errorf("usage: got %+v", response.Usage)
	}
}

// TestChatStream_CollectMidStreamError verifies that a mid-stream error
// returns the partial response accumulated so far together with the error.
func TestChatStream_CollectMidStreamError(t *testing.T) {
	streamErr := errors.New("connection reset")
	stream := NewChatStream(func(yield func(StreamEvent, error) bool) {
		if !yield(StreamEvent{Type: StreamEventContent, Content: "partial"}, nil) {
			return
		}
		yield(StreamEvent{}, streamErr)
	})

	response, err := stream.Collect()
	if !errors.Is(err, streamErr) {
		t.Fatalf("expected stream error, got %v", err)
	}
	if len(response.Parts) != 1 || response.Parts[0].Text != "partial" {
		t.Errorf("partial response: got %+v", response.Parts)
	}
}

// TestChatStream_IterEarlyBreak verifies that breaking out of the range
// loop stops the producer instead of forcing full consumption.
func TestChatStream_IterEarlyBreak(t *testing.T) {
	produced := 0
	var producer iter.Seq2[StreamEvent, error] = func(yield func(StreamEvent, error) bool) {
		for i := 0; i < 100; i++ {
			produced++
			if !yield(StreamEvent{Type: StreamEventContent, Content: "x"}, nil) {
				return
			}
		}
	}

	consumed := 0
	for range NewChatStream(producer).Iter() {
		consumed++
		if consumed == 3 {
			break
		}
	}

	if produced != 3 {
		t.Errorf("producer ran %d times, want 3", produced)
	}
}

// TestChatStream_ThinkingDeltasNotCollected verifies that visible thinking
// deltas do not leak into the collected response text; only the completed
// thinking part does.
func TestChatStream_ThinkingDeltasNotCollected(t *testing.T) {
	thinkingPart := NewThinkingPart("full reasoning", "sig")
	stream := eventsToStream(
		StreamEvent{Type: StreamEventThinkingDelta, Content: "full "},
		StreamEvent{Type: StreamEventThinkingDelta, Content: "reasoning"},
		StreamEvent{Type: StreamEventPart, Part: &thinkingPart},
		StreamEvent{Type: StreamEventContent, Content: "answer"},
		StreamEvent{Type: StreamEventDone, FinishReason: "stop"},
	)

	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(response.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(response.Parts))
	}
	if response.Parts[0].Type != ContentTypeThinking {
		t.Errorf("first part: got %q, want thinking", response.Parts[0].Type)
	}
	if response.Text() != "answer" {
		t.Errorf("text: got %q, want %q", response.Text(), "answer")
	}
}
