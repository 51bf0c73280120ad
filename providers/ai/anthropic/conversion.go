package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mossgowild/unify-chat-provider/internal/jsonschema"
	"github.com/mossgowild/unify-chat-provider/internal/utils"
	"github.com/mossgowild/unify-chat-provider/providers/ai"
)

// defaultMaxTokens is used when the caller sets no output limit; Anthropic
// requires max_tokens on every request.
const defaultMaxTokens = 4096

// defaultThinkingBudget is applied when thinking is enabled without an
// explicit budget. Anthropic rejects budgets below 1024.
const defaultThinkingBudget = 4096

// Versioned server tool types for the Messages API.
const (
	webSearchToolType = "web_search_20250305"
	memoryToolType    = "memory_20250818"
)

// nativeSearchNames are canonical tool names that map onto Anthropic's
// built-in web search server tool instead of a client tool definition.
var nativeSearchNames = map[string]bool{
	"google_search": true,
	"web_search":    true,
}

// requestToAnthropic converts an ai.ChatRequest into an anthropicRequest
// ready to POST to the Messages API. The conversation is normalized first
// (system extraction, role merging, cache-marker folding) and thinking
// blocks are reordered to the front of assistant turns so their signatures
// verify on replay.
func requestToAnthropic(request ai.ChatRequest, nativeSearch, nativeMemory bool) (anthropicRequest, error) {
	systemPrompt, messages := ai.NormalizeConversation(request.Messages)
	if request.SystemPrompt != "" {
		if systemPrompt != "" {
			systemPrompt = request.SystemPrompt + "\n" + systemPrompt
		} else {
			systemPrompt = request.SystemPrompt
		}
	}
	messages = ai.ReorderThinkingFirst(messages)

	req := anthropicRequest{
		Model:     request.Model,
		Messages:  buildMessages(messages),
		MaxTokens: defaultMaxTokens,
	}

	if systemPrompt != "" {
		systemBytes, err := json.Marshal(systemPrompt)
		if err != nil {
			return anthropicRequest{}, fmt.Errorf("failed to marshal system prompt: %w", err)
		}
		req.System = systemBytes
	}

	if cfg := request.GenerationConfig; cfg != nil {
		if cfg.MaxOutputTokens > 0 {
			req.MaxTokens = cfg.MaxOutputTokens
		}
		if cfg.Temperature > 0 {
			req.Temperature = utils.Ptr(float64(cfg.Temperature))
		}
		if cfg.TopP > 0 {
			req.TopP = utils.Ptr(float64(cfg.TopP))
		}
		if cfg.TopK > 0 {
			req.TopK = utils.Ptr(cfg.TopK)
		}
	}

	thinkingEnabled := request.Thinking != nil && request.Thinking.Enabled
	if thinkingEnabled {
		budget := request.Thinking.BudgetTokens
		if budget <= 0 {
			budget = defaultThinkingBudget
		}
		req.Thinking = &anthropicThinking{Type: "enabled", BudgetTokens: budget}
		// Thinking rejects temperature adjustments.
		req.Temperature = nil
		req.TopP = nil
		req.TopK = nil
	}

	if len(request.Tools) > 0 {
		req.Tools = buildTools(request.Tools, nativeSearch, nativeMemory)

		resolved, err := ai.ResolveToolChoice(request.ToolChoice, thinkingEnabled, request.Tools)
		if err != nil {
			return anthropicRequest{}, err
		}
		req.ToolChoice = buildToolChoice(resolved)
	}

	return req, nil
}

// buildMessages converts normalized canonical messages into Anthropic wire
// messages. Normalization already guarantees strict user/assistant
// alternation with the user first.
func buildMessages(messages []ai.Message) []anthropicMessage {
	result := make([]anthropicMessage, 0, len(messages))

	for _, message := range messages {
		role := "user"
		if message.Role == ai.RoleAssistant {
			role = "assistant"
		}

		wireMessage := anthropicMessage{Role: role}
		for _, part := range message.Parts {
			if block := partToBlock(part); block != nil {
				wireMessage.Content = append(wireMessage.Content, *block)
			}
		}

		if len(wireMessage.Content) > 0 {
			result = append(result, wireMessage)
		}
	}

	return result
}

// partToBlock converts one canonical content part to its Anthropic block.
// Returns nil for parts with no Anthropic representation (citation sets are
// response-side only).
func partToBlock(part ai.ContentPart) *anthropicContentBlock {
	var cacheControl *anthropicCacheControl
	if part.CacheHint {
		cacheControl = &anthropicCacheControl{Type: "ephemeral"}
	}

	switch part.Type {
	case ai.ContentTypeText:
		return &anthropicContentBlock{Type: "text", Text: part.Text, CacheControl: cacheControl}

	case ai.ContentTypeImage:
		if part.Image == nil {
			return nil
		}
		block := &anthropicContentBlock{Type: "image", CacheControl: cacheControl}
		if part.Image.URI != "" {
			block.Source = &anthropicSource{Type: "url", URL: part.Image.URI}
		} else {
			block.Source = &anthropicSource{
				Type:      "base64",
				MediaType: part.Image.MimeType,
				Data:      part.Image.Data,
			}
		}
		return block

	case ai.ContentTypeToolCall:
		if part.ToolCall == nil {
			return nil
		}
		input := part.ToolCall.Input
		if len(input) == 0 {
			input = json.RawMessage("{}")
		}
		return &anthropicContentBlock{
			Type:         "tool_use",
			ID:           part.ToolCall.ID,
			Name:         part.ToolCall.Name,
			Input:        input,
			CacheControl: cacheControl,
		}

	case ai.ContentTypeToolResult:
		if part.ToolResult == nil {
			return nil
		}
		content, err := json.Marshal(part.ToolResult.Content)
		if err != nil {
			content = []byte(`""`)
		}
		return &anthropicContentBlock{
			Type:         "tool_result",
			ToolUseID:    part.ToolResult.CallID,
			Content:      content,
			IsError:      part.ToolResult.IsError,
			CacheControl: cacheControl,
		}

	case ai.ContentTypeThinking:
		if part.Thinking == nil {
			return nil
		}
		return &anthropicContentBlock{
			Type:      "thinking",
			Thinking:  part.Thinking.Text,
			Signature: part.Thinking.Signature,
		}

	case ai.ContentTypeRedactedThinking:
		if part.RedactedThinking == nil {
			return nil
		}
		return &anthropicContentBlock{Type: "redacted_thinking", Data: part.RedactedThinking.Data}
	}

	return nil
}

// buildTools converts canonical tool descriptions to Anthropic tool
// definitions. Tools named for web search or memory become the versioned
// server tools when the model supports them. Everything else is a client
// tool: names go through sanitization and parameter schemas through the
// shared sanitizer, which guarantees a valid object schema even for
// parameterless tools.
func buildTools(tools []ai.ToolDescription, nativeSearch, nativeMemory bool) []anthropicTool {
	result := make([]anthropicTool, 0, len(tools))

	for _, tool := range tools {
		if nativeSearch && nativeSearchNames[tool.Name] {
			result = append(result, anthropicTool{Type: webSearchToolType, Name: "web_search"})
			continue
		}
		if nativeMemory && tool.Name == "memory" {
			result = append(result, anthropicTool{Type: memoryToolType, Name: "memory"})
			continue
		}

		entry := anthropicTool{
			Name:        jsonschema.SanitizeToolName(tool.Name),
			Description: tool.Description,
		}

		sanitized := jsonschema.Sanitize(tool.Parameters)
		schemaBytes, err := json.Marshal(sanitized)
		if err != nil {
			schemaBytes = []byte(`{"type":"object","properties":{}}`)
		}
		entry.InputSchema = schemaBytes

		result = append(result, entry)
	}

	return result
}

// buildToolChoice maps the resolved tool choice to Anthropic's vocabulary.
func buildToolChoice(resolved ai.ResolvedToolChoice) *anthropicToolChoice {
	switch resolved.Mode {
	case ai.ResolvedChoiceAny:
		return &anthropicToolChoice{Type: "any"}
	case ai.ResolvedChoiceNone:
		return &anthropicToolChoice{Type: "none"}
	case ai.ResolvedChoiceTool:
		return &anthropicToolChoice{Type: "tool", Name: resolved.ForcedName}
	default:
		return &anthropicToolChoice{Type: "auto"}
	}
}

// mapStopReason converts an Anthropic stop_reason value to the canonical
// finish reason.
func mapStopReason(stopReason string) string {
	switch stopReason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "tool_use":
		return "tool_calls"
	case "max_tokens":
		return "length"
	case "refusal":
		return "content_filter"
	default:
		return "stop"
	}
}

// modelFamily extracts the family prefix from an Anthropic model ID, e.g.
// "claude-sonnet-4-5-20250929" → "claude-sonnet".
func modelFamily(modelID string) string {
	segments := strings.Split(modelID, "-")
	if len(segments) >= 2 {
		return segments[0] + "-" + segments[1]
	}
	return modelID
}
