package ai

import (
	"encoding/json"
	"testing"
)

// TestChatResponse_Accessors verifies Text concatenates only text parts and
// ToolCalls extracts only tool-call parts.
func TestChatResponse_Accessors(t *testing.T) {
	response := &ChatResponse{Parts: []ContentPart{
		NewThinkingPart("hidden", "sig"),
		NewTextPart("first "),
		NewToolCallPart("call_1", "lookup", []byte(`{"q":"x"}`)),
		NewTextPart("second"),
	}}

	if got := response.Text(); got != "first second" {
		t.Errorf("Text(): got %q", got)
	}

	calls := response.ToolCalls()
	if len(calls) != 1 {
		t.Fatalf("ToolCalls(): got %d, want 1", len(calls))
	}
	if calls[0].Name != "lookup" {
		t.Errorf("tool call name: got %q", calls[0].Name)
	}
}

// TestContentPart_JSONRoundTrip verifies that a tool-call part survives
// marshalling, since raw argument JSON must pass through untouched.
func TestContentPart_JSONRoundTrip(t *testing.T) {
	part := NewToolCallPart("call_1", "get_weather", []byte(`{"city":"Paris"}`))

	data, err := json.Marshal(part)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded ContentPart
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Type != ContentTypeToolCall || decoded.ToolCall == nil {
		t.Fatalf("decoded part: %+v", decoded)
	}
	if string(decoded.ToolCall.Input) != `{"city":"Paris"}` {
		t.Errorf("arguments: got %s", decoded.ToolCall.Input)
	}
}

// TestEstimateTokenCount verifies the four-characters-per-token heuristic
// used when no tokenizer is available.
func TestEstimateTokenCount(t *testing.T) {
	if got := EstimateTokenCount(""); got != 0 {
		t.Errorf("empty string: got %d, want 0", got)
	}
	if got := EstimateTokenCount("abcd"); got != 1 {
		t.Errorf("four chars: got %d, want 1", got)
	}
	if got := EstimateTokenCount("abcde"); got != 2 {
		t.Errorf("five chars: got %d, want 2", got)
	}
}
