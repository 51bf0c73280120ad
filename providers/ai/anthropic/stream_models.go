package anthropic

import (
	"encoding/json"
	"fmt"
)

/*
	ANTHROPIC SSE STREAMING - WIRE TYPES

	Anthropic streaming uses SSE with "event:" lines naming event types,
	followed by "data:" lines with JSON payloads. The SSEScanner only
	surfaces "data:" payloads, so the "type" field inside the JSON is used
	to discriminate events.
*/

// anthropicStreamEvent is the top-level envelope for all Anthropic SSE
// events. The Type field discriminates which optional fields are populated.
type anthropicStreamEvent struct {
	Type         string                `json:"type"`
	Message      *anthropicResponse    `json:"message,omitempty"`       // For "message_start"
	Index        int                   `json:"index,omitempty"`         // For content_block_start/delta/stop
	ContentBlock *responseContentBlock `json:"content_block,omitempty"` // For "content_block_start"
	Delta        *streamDelta          `json:"delta,omitempty"`         // For "content_block_delta" and "message_delta"
	Usage        *anthropicUsage       `json:"usage,omitempty"`         // For "message_delta"
	Error        *anthropicError       `json:"error,omitempty"`         // For "error" events
}

// streamDelta carries incremental content within a content_block_delta or
// message_delta event. The Type field discriminates the kind of delta:
//   - "text_delta": Text
//   - "thinking_delta": Thinking
//   - "signature_delta": Signature
//   - "input_json_delta": PartialJSON (tool call arguments)
//   - (no type on message_delta): StopReason
type streamDelta struct {
	Type        string `json:"type,omitempty"`
	Text        string `json:"text,omitempty"`
	Thinking    string `json:"thinking,omitempty"`
	Signature   string `json:"signature,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}

// anthropicError represents an error event in the SSE stream.
type anthropicError struct {
	Type    string `json:"type"` // e.g. "overloaded_error", "api_error"
	Message string `json:"message"`
}

// unmarshalStreamEvent parses a JSON payload into an anthropicStreamEvent.
// Returns an error if the JSON is invalid or the type field is missing.
func unmarshalStreamEvent(payload string) (*anthropicStreamEvent, error) {
	var event anthropicStreamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, err
	}
	if event.Type == "" {
		return nil, fmt.Errorf("missing type field in stream event")
	}
	return &event, nil
}
