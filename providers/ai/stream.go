package ai

import (
	"iter"
	"strings"
)

// StreamEventType identifies the kind of payload carried by a StreamEvent.
type StreamEventType string

const (
	// StreamEventContent indicates a text content delta.
	StreamEventContent StreamEventType = "content"
	// StreamEventThinkingDelta indicates a visible thinking text delta.
	// The completed thinking part (with signature) arrives as a
	// StreamEventPart once the block closes.
	StreamEventThinkingDelta StreamEventType = "thinking_delta"
	// StreamEventPart carries a completed canonical part (tool_call,
	// thinking, redacted_thinking, citation_set).
	StreamEventPart StreamEventType = "part"
	// StreamEventUsage carries token usage metadata (typically late in the stream).
	StreamEventUsage StreamEventType = "usage"
	// StreamEventDone signals that the stream has finished normally.
	StreamEventDone StreamEventType = "done"
	// StreamEventError signals an error that terminated the stream.
	StreamEventError StreamEventType = "error"
)

// StreamEvent represents a single delta yielded during response streaming.
// Each event carries exactly one payload, identified by the Type field.
type StreamEvent struct {
	Type         StreamEventType `json:"type"`
	Content      string          `json:"content,omitempty"`       // Text delta (StreamEventContent / StreamEventThinkingDelta)
	Part         *ContentPart    `json:"part,omitempty"`          // Completed part (StreamEventPart)
	Usage        *Usage          `json:"usage,omitempty"`         // Token usage (StreamEventUsage)
	FinishReason string          `json:"finish_reason,omitempty"` // Present on StreamEventDone
	Error        string          `json:"error,omitempty"`         // Error message (StreamEventError)
}

// ChatStream wraps a streaming iterator and provides automatic accumulation
// of events into a final ChatResponse. It supports range-based iteration for
// real-time processing and a convenience Collect() for callers who want the
// complete response.
//
// Callers must consume the stream, either by iterating Iter() (breaking out
// early is fine) or by calling Collect(). The underlying provider holds open
// resources (an HTTP response body) that are released only when the iterator
// completes or is abandoned via a loop break.
type ChatStream struct {
	iterator iter.Seq2[StreamEvent, error]
}

// NewChatStream creates a ChatStream from a raw streaming iterator.
// The iterator yields StreamEvent values (with nil error) for normal deltas
// and may yield a non-nil error to signal a mid-stream failure.
func NewChatStream(iterator iter.Seq2[StreamEvent, error]) *ChatStream {
	return &ChatStream{iterator: iterator}
}

// Iter returns the underlying iterator for use with range-over-func loops.
//
//	for event, err := range stream.Iter() {
//	    if err != nil { handle error }
//	    ...
//	}
func (stream *ChatStream) Iter() iter.Seq2[StreamEvent, error] {
	return stream.iterator
}

// Collect consumes the entire stream and returns the accumulated
// ChatResponse. Consecutive text deltas collapse into a single text part;
// completed parts are appended in arrival order. A mid-stream error
// terminates collection and returns the partial response with the error.
func (stream *ChatStream) Collect() (*ChatResponse, error) {
	accumulated := &ChatResponse{}
	var textBuilder strings.Builder

	flushText := func() {
		if textBuilder.Len() > 0 {
			accumulated.Parts = append(accumulated.Parts, NewTextPart(textBuilder.String()))
			textBuilder.Reset()
		}
	}

	for event, err := range stream.iterator {
		if err != nil {
			flushText()
			return accumulated, err
		}

		switch event.Type {
		case StreamEventContent:
			textBuilder.WriteString(event.Content)

		case StreamEventThinkingDelta:
			// Transient; the completed thinking part (with its signature)
			// arrives as a StreamEventPart when the block closes.

		case StreamEventPart:
			if event.Part != nil {
				flushText()
				accumulated.Parts = append(accumulated.Parts, *event.Part)
			}

		case StreamEventUsage:
			if event.Usage != nil {
				accumulated.Usage = event.Usage
			}

		case StreamEventDone:
			accumulated.FinishReason = event.FinishReason

		case StreamEventError:
			// Informational; the actual error comes through the iterator's
			// error channel.
		}
	}

	flushText()
	return accumulated, nil
}
