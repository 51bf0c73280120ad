package openai

import (
	"encoding/json"
	"testing"

	"github.com/mossgowild/unify-chat-provider/providers/ai"
)

// ── requestToOpenAI ───────────────────────────────────────────────────────────

// TestRequestToOpenAI_SystemAndRoles verifies the system prompt becomes a
// leading system message and user/assistant turns map to their roles.
func TestRequestToOpenAI_SystemAndRoles(t *testing.T) {
	request := ai.ChatRequest{
		Model: "gpt-4o",
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Parts: []ai.ContentPart{ai.NewTextPart("be brief")}},
			{Role: ai.RoleUser, Parts: []ai.ContentPart{ai.NewTextPart("hi")}},
			{Role: ai.RoleAssistant, Parts: []ai.ContentPart{ai.NewTextPart("hello")}},
		},
	}

	result, err := requestToOpenAI(request, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(result.Messages))
	}
	if result.Messages[0].Role != "system" {
		t.Errorf("first role: got %q", result.Messages[0].Role)
	}
	var system string
	if err := json.Unmarshal(result.Messages[0].Content, &system); err != nil || system != "be brief" {
		t.Errorf("system content: got %s (err %v)", result.Messages[0].Content, err)
	}
	if result.Messages[1].Role != "user" || result.Messages[2].Role != "assistant" {
		t.Errorf("roles: got %q, %q", result.Messages[1].Role, result.Messages[2].Role)
	}
}

// TestRequestToOpenAI_OutputTokenField verifies the capability-gated choice
// between max_tokens and max_completion_tokens.
func TestRequestToOpenAI_OutputTokenField(t *testing.T) {
	request := ai.ChatRequest{
		Model:            "gpt-4o",
		Messages:         []ai.Message{{Role: ai.RoleUser, Parts: []ai.ContentPart{ai.NewTextPart("hi")}}},
		GenerationConfig: &ai.GenerationConfig{MaxOutputTokens: 1000},
	}

	legacy, err := requestToOpenAI(request, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if legacy.MaxTokens != 1000 || legacy.MaxCompletionTokens != 0 {
		t.Errorf("legacy: max_tokens=%d max_completion_tokens=%d", legacy.MaxTokens, legacy.MaxCompletionTokens)
	}

	reasoning, err := requestToOpenAI(request, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reasoning.MaxCompletionTokens != 1000 || reasoning.MaxTokens != 0 {
		t.Errorf("reasoning: max_tokens=%d max_completion_tokens=%d", reasoning.MaxTokens, reasoning.MaxCompletionTokens)
	}
}

// TestRequestToOpenAI_ToolResultExpansion verifies that tool results expand
// into separate role "tool" messages carrying their call IDs.
func TestRequestToOpenAI_ToolResultExpansion(t *testing.T) {
	request := ai.ChatRequest{
		Model: "gpt-4o",
		Messages: []ai.Message{
			{Role: ai.RoleUser, Parts: []ai.ContentPart{ai.NewTextPart("weather?")}},
			{Role: ai.RoleAssistant, Parts: []ai.ContentPart{
				ai.NewToolCallPart("call_1", "get_weather", []byte(`{"city":"Paris"}`)),
			}},
			{Role: ai.RoleUser, Parts: []ai.ContentPart{
				ai.NewToolResultPart("call_1", "sunny", false),
				ai.NewTextPart("and tomorrow?"),
			}},
		},
	}

	result, err := requestToOpenAI(request, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(result.Messages))
	}

	assistant := result.Messages[1]
	if len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].Function.Name != "get_weather" {
		t.Errorf("assistant tool calls: got %+v", assistant.ToolCalls)
	}

	toolTurn := result.Messages[2]
	if toolTurn.Role != "tool" || toolTurn.ToolCallID != "call_1" {
		t.Errorf("tool turn: got role=%q id=%q", toolTurn.Role, toolTurn.ToolCallID)
	}

	if result.Messages[3].Role != "user" {
		t.Errorf("trailing user turn: got %q", result.Messages[3].Role)
	}
}

// TestRequestToOpenAI_ReasoningEffort verifies thinking maps onto
// reasoning_effort with a medium default.
func TestRequestToOpenAI_ReasoningEffort(t *testing.T) {
	request := ai.ChatRequest{
		Model:    "o3",
		Messages: []ai.Message{{Role: ai.RoleUser, Parts: []ai.ContentPart{ai.NewTextPart("hi")}}},
		Thinking: &ai.ThinkingConfig{Enabled: true},
	}

	result, err := requestToOpenAI(request, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ReasoningEffort != "medium" {
		t.Errorf("default effort: got %q", result.ReasoningEffort)
	}

	request.Thinking.Level = "high"
	result, err = requestToOpenAI(request, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ReasoningEffort != "high" {
		t.Errorf("explicit effort: got %q", result.ReasoningEffort)
	}
}

// ── buildToolChoice ───────────────────────────────────────────────────────────

// TestBuildToolChoice covers the wire encodings for every resolved mode.
func TestBuildToolChoice(t *testing.T) {
	for _, testCase := range []struct {
		resolved ai.ResolvedToolChoice
		want     string
	}{
		{ai.ResolvedToolChoice{Mode: ai.ResolvedChoiceAuto}, `"auto"`},
		{ai.ResolvedToolChoice{Mode: ai.ResolvedChoiceAny}, `"required"`},
		{ai.ResolvedToolChoice{Mode: ai.ResolvedChoiceNone}, `"none"`},
	} {
		got := string(buildToolChoice(testCase.resolved))
		if got != testCase.want {
			t.Errorf("mode %q: got %s, want %s", testCase.resolved.Mode, got, testCase.want)
		}
	}

	forced := buildToolChoice(ai.ResolvedToolChoice{Mode: ai.ResolvedChoiceTool, ForcedName: "get_weather"})
	var decoded struct {
		Type     string `json:"type"`
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	}
	if err := json.Unmarshal(forced, &decoded); err != nil {
		t.Fatalf("forced choice not valid JSON: %v", err)
	}
	if decoded.Type != "function" || decoded.Function.Name != "get_weather" {
		t.Errorf("forced choice: got %s", forced)
	}
}

// TestNormalizeBaseURL covers the /v1 auto-suffix behavior.
func TestNormalizeBaseURL(t *testing.T) {
	for _, testCase := range []struct{ in, want string }{
		{"https://api.openai.com", "https://api.openai.com/v1"},
		{"https://api.openai.com/", "https://api.openai.com/v1"},
		{"https://api.openai.com/v1", "https://api.openai.com/v1"},
		{"http://localhost:8080/v1/", "http://localhost:8080/v1"},
	} {
		if got := normalizeBaseURL(testCase.in); got != testCase.want {
			t.Errorf("normalizeBaseURL(%q): got %q, want %q", testCase.in, got, testCase.want)
		}
	}
}
