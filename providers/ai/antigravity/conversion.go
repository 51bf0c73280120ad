package antigravity

import (
	"encoding/json"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/mossgowild/unify-chat-provider/internal/jsonschema"
	"github.com/mossgowild/unify-chat-provider/internal/utils"
	"github.com/mossgowild/unify-chat-provider/providers/ai"
)

// nativeSearchNames are canonical tool names that map onto the backend's
// built-in Google Search tool instead of a function declaration.
var nativeSearchNames = map[string]bool{
	"google_search": true,
	"web_search":    true,
}

// requestToAntigravity converts an ai.ChatRequest into the Gemini-shaped
// inner request. The conversation is normalized first; the wire has no call
// IDs, so tool results are matched back to their function names through the
// tool-call parts seen earlier in the conversation.
func requestToAntigravity(request ai.ChatRequest, nativeSearch bool) (generateContentRequest, error) {
	systemPrompt, messages := ai.NormalizeConversation(request.Messages)
	if request.SystemPrompt != "" {
		if systemPrompt != "" {
			systemPrompt = request.SystemPrompt + "\n" + systemPrompt
		} else {
			systemPrompt = request.SystemPrompt
		}
	}

	req := generateContentRequest{
		Contents: buildContents(messages),
	}

	if systemPrompt != "" {
		req.SystemInstruction = &systemInstruction{Parts: []part{{Text: systemPrompt}}}
	}

	thinkingEnabled := request.Thinking != nil && request.Thinking.Enabled

	genConfig := &generationConfig{}
	if cfg := request.GenerationConfig; cfg != nil {
		if cfg.MaxOutputTokens > 0 {
			genConfig.MaxOutputTokens = utils.Ptr(cfg.MaxOutputTokens)
		}
		if cfg.Temperature > 0 {
			genConfig.Temperature = utils.Ptr(float64(cfg.Temperature))
		}
		if cfg.TopP > 0 {
			genConfig.TopP = utils.Ptr(float64(cfg.TopP))
		}
		if cfg.TopK > 0 {
			genConfig.TopK = utils.Ptr(cfg.TopK)
		}
		if cfg.PresencePenalty != 0 {
			genConfig.PresencePenalty = utils.Ptr(float64(cfg.PresencePenalty))
		}
		if cfg.FrequencyPenalty != 0 {
			genConfig.FrequencyPenalty = utils.Ptr(float64(cfg.FrequencyPenalty))
		}
	}
	if thinkingEnabled {
		thinking := &thinkingConfig{IncludeThoughts: true}
		if request.Thinking.BudgetTokens > 0 {
			thinking.ThinkingBudget = utils.Ptr(request.Thinking.BudgetTokens)
		}
		genConfig.ThinkingConfig = thinking
	}
	if *genConfig != (generationConfig{}) {
		req.GenerationConfig = genConfig
	}

	if len(request.Tools) > 0 {
		req.Tools = buildTools(request.Tools, nativeSearch)

		resolved, err := ai.ResolveToolChoice(request.ToolChoice, thinkingEnabled, request.Tools)
		if err != nil {
			return generateContentRequest{}, err
		}
		req.ToolConfig = buildToolConfig(resolved)
	}

	return req, nil
}

// buildContents converts normalized canonical messages into wire contents.
// Assistant turns use role "model".
func buildContents(messages []ai.Message) []content {
	callNames := collectCallNames(messages)
	contents := make([]content, 0, len(messages))

	for _, message := range messages {
		role := "user"
		if message.Role == ai.RoleAssistant {
			role = "model"
		}

		turn := content{Role: role}
		for _, messagePart := range message.Parts {
			if wirePart := partToWire(messagePart, callNames); wirePart != nil {
				turn.Parts = append(turn.Parts, *wirePart)
			}
		}

		if len(turn.Parts) > 0 {
			contents = append(contents, turn)
		}
	}

	return contents
}

// collectCallNames maps tool-call IDs to function names so tool results can
// be answered by name, which is all the wire format carries.
func collectCallNames(messages []ai.Message) map[string]string {
	names := make(map[string]string)
	for _, message := range messages {
		for _, messagePart := range message.Parts {
			if messagePart.Type == ai.ContentTypeToolCall && messagePart.ToolCall != nil {
				names[messagePart.ToolCall.ID] = messagePart.ToolCall.Name
			}
		}
	}
	return names
}

// partToWire converts one canonical part. Returns nil for parts with no
// wire representation (cache markers are folded away during normalization;
// citation sets are response-side only; redacted thinking has no slot).
func partToWire(messagePart ai.ContentPart, callNames map[string]string) *part {
	switch messagePart.Type {
	case ai.ContentTypeText:
		return &part{Text: messagePart.Text}

	case ai.ContentTypeImage:
		if messagePart.Image == nil {
			return nil
		}
		if messagePart.Image.URI != "" {
			return &part{FileData: &fileData{
				MimeType: messagePart.Image.MimeType,
				FileURI:  messagePart.Image.URI,
			}}
		}
		return &part{InlineData: &inlineData{
			MimeType: messagePart.Image.MimeType,
			Data:     messagePart.Image.Data,
		}}

	case ai.ContentTypeToolCall:
		if messagePart.ToolCall == nil {
			return nil
		}
		args := messagePart.ToolCall.Input
		if len(args) == 0 {
			args = json.RawMessage("{}")
		}
		return &part{FunctionCall: &functionCall{
			Name: messagePart.ToolCall.Name,
			Args: args,
		}}

	case ai.ContentTypeToolResult:
		if messagePart.ToolResult == nil {
			return nil
		}
		name := callNames[messagePart.ToolResult.CallID]
		if name == "" {
			name = messagePart.ToolResult.CallID
		}
		response, err := json.Marshal(map[string]any{"output": messagePart.ToolResult.Content})
		if err != nil {
			response = json.RawMessage(`{"output":""}`)
		}
		return &part{FunctionResponse: &functionResponse{
			Name:     name,
			Response: response,
		}}

	case ai.ContentTypeThinking:
		if messagePart.Thinking == nil {
			return nil
		}
		return &part{
			Text:             messagePart.Thinking.Text,
			Thought:          true,
			ThoughtSignature: messagePart.Thinking.Signature,
		}
	}

	return nil
}

// buildTools converts tool descriptions into wire tool declarations.
// Native search names become the built-in googleSearch tool when the model
// supports it; everything else lands in one functionDeclarations group.
func buildTools(tools []ai.ToolDescription, nativeSearch bool) []tool {
	var declarations []functionDeclaration
	var result []tool

	for _, description := range tools {
		if nativeSearch && nativeSearchNames[description.Name] {
			result = append(result, tool{GoogleSearch: &googleSearchTool{}})
			continue
		}

		sanitized := jsonschema.Sanitize(description.Parameters)
		schemaBytes, err := json.Marshal(sanitized)
		if err != nil {
			schemaBytes = []byte(`{"type":"object","properties":{}}`)
		}

		declarations = append(declarations, functionDeclaration{
			Name:        jsonschema.SanitizeToolName(description.Name),
			Description: description.Description,
			Parameters:  schemaBytes,
		})
	}

	if len(declarations) > 0 {
		result = append(result, tool{FunctionDeclarations: declarations})
	}
	return result
}

// buildToolConfig maps the resolved tool choice onto the function calling
// mode. A forced tool uses ANY restricted to that function, the closest
// the wire vocabulary offers.
func buildToolConfig(resolved ai.ResolvedToolChoice) *toolConfig {
	config := &functionCallingConfig{}
	switch resolved.Mode {
	case ai.ResolvedChoiceAny:
		config.Mode = "ANY"
	case ai.ResolvedChoiceNone:
		config.Mode = "NONE"
	case ai.ResolvedChoiceTool:
		config.Mode = "ANY"
		config.AllowedFunctionNames = []string{resolved.ForcedName}
	default:
		config.Mode = "AUTO"
	}
	return &toolConfig{FunctionCallingConfig: config}
}

// buildCitationPart converts grounding metadata into a citation set.
// Snippets come from grounding supports where available, and the rendered
// search widget HTML is converted to markdown and attached as a trailing
// entry so callers keep the full grounding context.
func buildCitationPart(metadata *groundingMetadata) *ai.ContentPart {
	if metadata == nil {
		return nil
	}

	snippets := make(map[int][]string)
	for _, support := range metadata.GroundingSupports {
		if support.Segment == nil || support.Segment.Text == "" {
			continue
		}
		for _, index := range support.GroundingChunkIndices {
			snippets[index] = append(snippets[index], support.Segment.Text)
		}
	}

	var citations []ai.Citation
	for index, chunk := range metadata.GroundingChunks {
		if chunk.Web == nil {
			continue
		}
		citations = append(citations, ai.Citation{
			URI:     chunk.Web.URI,
			Title:   chunk.Web.Title,
			Snippet: strings.Join(snippets[index], "\n"),
		})
	}

	if metadata.SearchEntryPoint != nil && metadata.SearchEntryPoint.RenderedContent != "" {
		if markdown, err := htmltomarkdown.ConvertString(metadata.SearchEntryPoint.RenderedContent); err == nil {
			markdown = strings.TrimSpace(markdown)
			if markdown != "" {
				citations = append(citations, ai.Citation{
					Title:   "google_search",
					Snippet: markdown,
				})
			}
		}
	}

	if len(citations) == 0 {
		return nil
	}
	citationPart := ai.NewCitationSetPart(citations)
	return &citationPart
}

// mapFinishReason converts a wire finish reason to the canonical form.
// toolCallsSeen wins over the wire value because the backend reports STOP
// even when the turn ended in function calls.
func mapFinishReason(finishReason string, toolCallsSeen bool) string {
	if toolCallsSeen {
		return "tool_calls"
	}
	switch finishReason {
	case "STOP", "":
		return "stop"
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION", "PROHIBITED_CONTENT", "BLOCKLIST":
		return "content_filter"
	default:
		return "stop"
	}
}

// modelFamily extracts the family prefix of a model ID, e.g.
// "gemini-3-pro-high" → "gemini-3".
func modelFamily(modelID string) string {
	segments := strings.Split(modelID, "-")
	if len(segments) >= 2 {
		return segments[0] + "-" + segments[1]
	}
	return modelID
}

// synthesizeCallID builds a deterministic call ID for a function call; the
// wire carries none. The ordinal keeps parallel calls of the same function
// distinct.
func synthesizeCallID(name string, ordinal int) string {
	return fmt.Sprintf("%s-%d", name, ordinal)
}
