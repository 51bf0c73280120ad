package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mossgowild/unify-chat-provider/internal/jsonschema"
	"github.com/mossgowild/unify-chat-provider/internal/utils"
	"github.com/mossgowild/unify-chat-provider/providers/ai"
)

// requestToOpenAI converts an ai.ChatRequest into an openaiRequest. The
// conversation is normalized first; the system prompt becomes a leading
// system message, tool results become role "tool" turns, and thinking parts
// are dropped because the Chat Completions API has no replay slot for them.
//
// useMaxCompletionTokens selects which output-limit field to populate;
// reasoning models reject the legacy max_tokens field.
func requestToOpenAI(request ai.ChatRequest, useMaxCompletionTokens bool) (openaiRequest, error) {
	systemPrompt, messages := ai.NormalizeConversation(request.Messages)
	if request.SystemPrompt != "" {
		if systemPrompt != "" {
			systemPrompt = request.SystemPrompt + "\n" + systemPrompt
		} else {
			systemPrompt = request.SystemPrompt
		}
	}

	req := openaiRequest{Model: request.Model}

	if systemPrompt != "" {
		content, err := json.Marshal(systemPrompt)
		if err != nil {
			return openaiRequest{}, fmt.Errorf("failed to marshal system prompt: %w", err)
		}
		req.Messages = append(req.Messages, openaiMessage{Role: "system", Content: content})
	}

	for _, message := range messages {
		wireMessages, err := messageToOpenAI(message)
		if err != nil {
			return openaiRequest{}, err
		}
		req.Messages = append(req.Messages, wireMessages...)
	}

	if cfg := request.GenerationConfig; cfg != nil {
		if cfg.MaxOutputTokens > 0 {
			if useMaxCompletionTokens {
				req.MaxCompletionTokens = cfg.MaxOutputTokens
			} else {
				req.MaxTokens = cfg.MaxOutputTokens
			}
		}
		if cfg.Temperature > 0 {
			req.Temperature = utils.Ptr(float64(cfg.Temperature))
		}
		if cfg.TopP > 0 {
			req.TopP = utils.Ptr(float64(cfg.TopP))
		}
		if cfg.FrequencyPenalty != 0 {
			req.FrequencyPenalty = utils.Ptr(float64(cfg.FrequencyPenalty))
		}
		if cfg.PresencePenalty != 0 {
			req.PresencePenalty = utils.Ptr(float64(cfg.PresencePenalty))
		}
	}

	thinkingEnabled := request.Thinking != nil && request.Thinking.Enabled
	if thinkingEnabled {
		effort := request.Thinking.Level
		if effort == "" {
			effort = "medium"
		}
		req.ReasoningEffort = effort
	}

	if len(request.Tools) > 0 {
		req.Tools = buildTools(request.Tools)

		resolved, err := ai.ResolveToolChoice(request.ToolChoice, thinkingEnabled, request.Tools)
		if err != nil {
			return openaiRequest{}, err
		}
		req.ToolChoice = buildToolChoice(resolved)
	}

	return req, nil
}

// messageToOpenAI converts one canonical message into its wire messages.
// A single canonical user message can expand into several wire turns, since
// tool results must each occupy their own role "tool" message.
func messageToOpenAI(message ai.Message) ([]openaiMessage, error) {
	if message.Role == ai.RoleAssistant {
		wireMessage, err := assistantToOpenAI(message)
		if err != nil {
			return nil, err
		}
		if wireMessage == nil {
			return nil, nil
		}
		return []openaiMessage{*wireMessage}, nil
	}

	var result []openaiMessage
	var contentParts []openaiContentPart

	flushContent := func() error {
		if len(contentParts) == 0 {
			return nil
		}
		content, err := marshalUserContent(contentParts)
		if err != nil {
			return err
		}
		result = append(result, openaiMessage{Role: "user", Content: content})
		contentParts = nil
		return nil
	}

	for _, part := range message.Parts {
		switch part.Type {
		case ai.ContentTypeText:
			contentParts = append(contentParts, openaiContentPart{Type: "text", Text: part.Text})

		case ai.ContentTypeImage:
			if part.Image == nil {
				continue
			}
			url := part.Image.URI
			if url == "" {
				url = fmt.Sprintf("data:%s;base64,%s", part.Image.MimeType, part.Image.Data)
			}
			contentParts = append(contentParts, openaiContentPart{
				Type:     "image_url",
				ImageURL: &openaiImageURL{URL: url},
			})

		case ai.ContentTypeToolResult:
			if part.ToolResult == nil {
				continue
			}
			if err := flushContent(); err != nil {
				return nil, err
			}
			content, err := json.Marshal(part.ToolResult.Content)
			if err != nil {
				content = []byte(`""`)
			}
			result = append(result, openaiMessage{
				Role:       "tool",
				ToolCallID: part.ToolResult.CallID,
				Content:    content,
			})
		}
	}

	if err := flushContent(); err != nil {
		return nil, err
	}
	return result, nil
}

// assistantToOpenAI converts an assistant message, folding text parts into
// content and tool-call parts into the tool_calls array. Thinking and
// redacted-thinking parts are skipped.
func assistantToOpenAI(message ai.Message) (*openaiMessage, error) {
	wireMessage := openaiMessage{Role: "assistant"}
	var textParts []string

	for _, part := range message.Parts {
		switch part.Type {
		case ai.ContentTypeText:
			textParts = append(textParts, part.Text)

		case ai.ContentTypeToolCall:
			if part.ToolCall == nil {
				continue
			}
			arguments := string(part.ToolCall.Input)
			if arguments == "" {
				arguments = "{}"
			}
			wireMessage.ToolCalls = append(wireMessage.ToolCalls, openaiToolCall{
				ID:   part.ToolCall.ID,
				Type: "function",
				Function: openaiFunction{
					Name:      part.ToolCall.Name,
					Arguments: arguments,
				},
			})
		}
	}

	if len(textParts) > 0 {
		content, err := json.Marshal(strings.Join(textParts, ""))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal assistant content: %w", err)
		}
		wireMessage.Content = content
	}

	if wireMessage.Content == nil && len(wireMessage.ToolCalls) == 0 {
		return nil, nil
	}
	return &wireMessage, nil
}

// marshalUserContent encodes user content compactly: a single text part
// becomes a plain JSON string, anything else the content-part array form.
func marshalUserContent(parts []openaiContentPart) (json.RawMessage, error) {
	if len(parts) == 1 && parts[0].Type == "text" {
		return json.Marshal(parts[0].Text)
	}
	return json.Marshal(parts)
}

// buildTools converts canonical tool descriptions to OpenAI function
// declarations, sanitizing names and parameter schemas.
func buildTools(tools []ai.ToolDescription) []openaiTool {
	result := make([]openaiTool, 0, len(tools))

	for _, tool := range tools {
		sanitized := jsonschema.Sanitize(tool.Parameters)
		schemaBytes, err := json.Marshal(sanitized)
		if err != nil {
			schemaBytes = []byte(`{"type":"object","properties":{}}`)
		}

		result = append(result, openaiTool{
			Type: "function",
			Function: openaiFunctionDetails{
				Name:        jsonschema.SanitizeToolName(tool.Name),
				Description: tool.Description,
				Parameters:  schemaBytes,
			},
		})
	}

	return result
}

// buildToolChoice maps the resolved tool choice to OpenAI's wire form:
// the string literals "auto" / "required" / "none", or the object form for
// a forced function.
func buildToolChoice(resolved ai.ResolvedToolChoice) json.RawMessage {
	switch resolved.Mode {
	case ai.ResolvedChoiceAny:
		return json.RawMessage(`"required"`)
	case ai.ResolvedChoiceNone:
		return json.RawMessage(`"none"`)
	case ai.ResolvedChoiceTool:
		choice, err := json.Marshal(map[string]any{
			"type":     "function",
			"function": map[string]string{"name": resolved.ForcedName},
		})
		if err != nil {
			return json.RawMessage(`"auto"`)
		}
		return choice
	default:
		return json.RawMessage(`"auto"`)
	}
}

// mapFinishReason converts an OpenAI finish_reason to the canonical form.
func mapFinishReason(finishReason string) string {
	switch finishReason {
	case "stop":
		return "stop"
	case "tool_calls", "function_call":
		return "tool_calls"
	case "length":
		return "length"
	case "content_filter":
		return "content_filter"
	default:
		return "stop"
	}
}
