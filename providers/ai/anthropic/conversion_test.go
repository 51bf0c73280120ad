package anthropic

import (
	"encoding/json"
	"testing"

	"github.com/mossgowild/unify-chat-provider/internal/jsonschema"
	"github.com/mossgowild/unify-chat-provider/providers/ai"
)

// ── requestToAnthropic ────────────────────────────────────────────────────────

// TestRequestToAnthropic_SystemPrompt verifies that leading system messages
// land in the top-level system field as a JSON string and that an explicit
// SystemPrompt on the request is prepended to them.
func TestRequestToAnthropic_SystemPrompt(t *testing.T) {
	request := ai.ChatRequest{
		Model:        "claude-sonnet-4-5",
		SystemPrompt: "from request",
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Parts: []ai.ContentPart{ai.NewTextPart("from message")}},
			{Role: ai.RoleUser, Parts: []ai.ContentPart{ai.NewTextPart("hi")}},
		},
	}

	result, err := requestToAnthropic(request, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var system string
	if err := json.Unmarshal(result.System, &system); err != nil {
		t.Fatalf("expected JSON string system field: %v", err)
	}
	if system != "from request\nfrom message" {
		t.Errorf("system: got %q", system)
	}
	if len(result.Messages) != 1 || result.Messages[0].Role != "user" {
		t.Errorf("messages: got %+v", result.Messages)
	}
}

// TestRequestToAnthropic_Thinking verifies that enabling thinking sets the
// thinking block with its budget, applies the default budget when none is
// given, and clears sampling parameters that thinking rejects.
func TestRequestToAnthropic_Thinking(t *testing.T) {
	request := ai.ChatRequest{
		Model:    "claude-sonnet-4-5",
		Messages: []ai.Message{{Role: ai.RoleUser, Parts: []ai.ContentPart{ai.NewTextPart("hi")}}},
		Thinking: &ai.ThinkingConfig{Enabled: true, BudgetTokens: 2048},
		GenerationConfig: &ai.GenerationConfig{
			MaxOutputTokens: 8192,
			Temperature:     0.7,
		},
	}

	result, err := requestToAnthropic(request, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Thinking == nil || result.Thinking.Type != "enabled" || result.Thinking.BudgetTokens != 2048 {
		t.Errorf("thinking: got %+v", result.Thinking)
	}
	if result.Temperature != nil {
		t.Error("temperature must be cleared when thinking is enabled")
	}
	if result.MaxTokens != 8192 {
		t.Errorf("max_tokens: got %d", result.MaxTokens)
	}

	request.Thinking.BudgetTokens = 0
	result, err = requestToAnthropic(request, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Thinking.BudgetTokens != defaultThinkingBudget {
		t.Errorf("default budget: got %d, want %d", result.Thinking.BudgetTokens, defaultThinkingBudget)
	}
}

// TestRequestToAnthropic_ToolChoice verifies the tool-choice wire mapping:
// a single required tool forces that tool, and required combined with
// thinking degrades to auto.
func TestRequestToAnthropic_ToolChoice(t *testing.T) {
	baseRequest := ai.ChatRequest{
		Model:      "claude-sonnet-4-5",
		Messages:   []ai.Message{{Role: ai.RoleUser, Parts: []ai.ContentPart{ai.NewTextPart("hi")}}},
		Tools:      []ai.ToolDescription{{Name: "get_weather"}},
		ToolChoice: ai.ToolChoiceRequired,
	}

	t.Run("required single tool → forced tool", func(t *testing.T) {
		result, err := requestToAnthropic(baseRequest, false, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ToolChoice == nil || result.ToolChoice.Type != "tool" || result.ToolChoice.Name != "get_weather" {
			t.Errorf("tool choice: got %+v", result.ToolChoice)
		}
	})

	t.Run("required with thinking → auto", func(t *testing.T) {
		request := baseRequest
		request.Thinking = &ai.ThinkingConfig{Enabled: true}
		result, err := requestToAnthropic(request, false, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.ToolChoice == nil || result.ToolChoice.Type != "auto" {
			t.Errorf("tool choice: got %+v", result.ToolChoice)
		}
	})
}

// TestRequestToAnthropic_ToolSchema verifies that a parameterless tool is
// sent with the sanitized placeholder schema so input_schema stays valid.
func TestRequestToAnthropic_ToolSchema(t *testing.T) {
	request := ai.ChatRequest{
		Model:    "claude-sonnet-4-5",
		Messages: []ai.Message{{Role: ai.RoleUser, Parts: []ai.ContentPart{ai.NewTextPart("hi")}}},
		Tools:    []ai.ToolDescription{{Name: "ping", Description: "health check"}},
	}

	result, err := requestToAnthropic(request, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(result.Tools))
	}

	schema, err := jsonschema.Parse(result.Tools[0].InputSchema)
	if err != nil {
		t.Fatalf("input_schema not parseable: %v", err)
	}
	if schema.Type != "object" || len(schema.Properties) == 0 {
		t.Errorf("expected object schema with placeholder property, got %s", result.Tools[0].InputSchema)
	}
}

// TestBuildTools_NativeServerTools verifies web search and memory tool names
// map onto the versioned server tools when the model supports them, and stay
// plain client tools when it does not.
func TestBuildTools_NativeServerTools(t *testing.T) {
	tools := []ai.ToolDescription{
		{Name: "web_search", Description: "search the web"},
		{Name: "memory", Description: "persistent notes"},
		{Name: "get_weather"},
	}

	t.Run("supported → server tools", func(t *testing.T) {
		result := buildTools(tools, true, true)
		if len(result) != 3 {
			t.Fatalf("expected 3 tools, got %d", len(result))
		}
		if result[0].Type != webSearchToolType || result[0].Name != "web_search" {
			t.Errorf("web search: got %+v", result[0])
		}
		if result[0].InputSchema != nil {
			t.Errorf("server tool must not carry input_schema, got %s", result[0].InputSchema)
		}
		if result[1].Type != memoryToolType || result[1].Name != "memory" {
			t.Errorf("memory: got %+v", result[1])
		}
		if result[2].Type != "" || result[2].Name != "get_weather" {
			t.Errorf("client tool: got %+v", result[2])
		}
	})

	t.Run("google_search alias → web search", func(t *testing.T) {
		result := buildTools([]ai.ToolDescription{{Name: "google_search"}}, true, false)
		if len(result) != 1 || result[0].Type != webSearchToolType || result[0].Name != "web_search" {
			t.Errorf("alias: got %+v", result)
		}
	})

	t.Run("unsupported → client tools", func(t *testing.T) {
		result := buildTools(tools, false, false)
		for _, tool := range result {
			if tool.Type != "" {
				t.Errorf("expected client tool, got %+v", tool)
			}
			if tool.InputSchema == nil {
				t.Errorf("client tool missing input_schema: %+v", tool)
			}
		}
	})
}

// ── buildMessages ─────────────────────────────────────────────────────────────

// TestBuildMessages_CacheHintAndThinkingOrder verifies cache hints become
// cache_control blocks and thinking parts lead assistant content.
func TestBuildMessages_CacheHintAndThinkingOrder(t *testing.T) {
	cached := ai.NewTextPart("big context")
	cached.CacheHint = true

	messages := []ai.Message{
		{Role: ai.RoleUser, Parts: []ai.ContentPart{cached}},
		{Role: ai.RoleAssistant, Parts: []ai.ContentPart{
			ai.NewThinkingPart("reasoning", "sig-1"),
			ai.NewTextPart("answer"),
			ai.NewToolCallPart("call_1", "lookup", []byte(`{"q":1}`)),
		}},
	}

	result := buildMessages(ai.ReorderThinkingFirst(messages))
	if len(result) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(result))
	}

	if result[0].Content[0].CacheControl == nil || result[0].Content[0].CacheControl.Type != "ephemeral" {
		t.Errorf("cache_control: got %+v", result[0].Content[0].CacheControl)
	}

	assistant := result[1].Content
	if assistant[0].Type != "thinking" || assistant[0].Signature != "sig-1" {
		t.Errorf("first assistant block: got %+v", assistant[0])
	}
	if assistant[1].Type != "text" || assistant[2].Type != "tool_use" {
		t.Errorf("block order: got [%s, %s]", assistant[1].Type, assistant[2].Type)
	}
}

// TestBuildMessages_ToolResult verifies tool results become tool_result
// blocks with JSON-encoded content and the error flag preserved.
func TestBuildMessages_ToolResult(t *testing.T) {
	messages := []ai.Message{
		{Role: ai.RoleUser, Parts: []ai.ContentPart{
			ai.NewToolResultPart("call_1", "sunny, 22C", false),
			ai.NewToolResultPart("call_2", "lookup failed", true),
		}},
	}

	result := buildMessages(messages)
	if len(result) != 1 || len(result[0].Content) != 2 {
		t.Fatalf("expected 1 message with 2 blocks, got %+v", result)
	}

	first := result[0].Content[0]
	if first.Type != "tool_result" || first.ToolUseID != "call_1" {
		t.Errorf("first block: got %+v", first)
	}
	var content string
	if err := json.Unmarshal(first.Content, &content); err != nil || content != "sunny, 22C" {
		t.Errorf("content: got %s (err %v)", first.Content, err)
	}
	if !result[0].Content[1].IsError {
		t.Error("expected is_error on second block")
	}
}

// ── mapStopReason ─────────────────────────────────────────────────────────────

// TestMapStopReason covers the stop_reason to finish reason mapping.
func TestMapStopReason(t *testing.T) {
	for _, testCase := range []struct{ in, want string }{
		{"end_turn", "stop"},
		{"stop_sequence", "stop"},
		{"tool_use", "tool_calls"},
		{"max_tokens", "length"},
		{"refusal", "content_filter"},
		{"", "stop"},
	} {
		if got := mapStopReason(testCase.in); got != testCase.want {
			t.Errorf("mapStopReason(%q): got %q, want %q", testCase.in, got, testCase.want)
		}
	}
}
