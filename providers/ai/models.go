package ai

import (
	"encoding/json"

	"github.com/mossgowild/unify-chat-provider/internal/jsonschema"
	"github.com/mossgowild/unify-chat-provider/internal/tokencount"
)

/*
	##### PROVIDER INPUT #####
*/

// ChatRequest represents a request to send a chat conversation to a backend.
type ChatRequest struct {
	RequestID        string            `json:"request_id,omitempty"`        // Caller-supplied correlation id
	Model            string            `json:"model,omitempty"`             // Model name or identifier
	Messages         []Message         `json:"messages"`                    // Conversation, system prompt excluded
	SystemPrompt     string            `json:"system_prompt,omitempty"`     // Optional system prompt
	Tools            []ToolDescription `json:"tools,omitempty"`             // Tool definitions if any
	ToolChoice       ToolChoiceMode    `json:"tool_choice,omitempty"`       // auto (default), required, or none
	GenerationConfig *GenerationConfig `json:"generation_config,omitempty"` // Optional sampling configuration
	Thinking         *ThinkingConfig   `json:"thinking,omitempty"`          // Optional thinking configuration
	Stream           bool              `json:"stream,omitempty"`            // Request streamed delivery on the wire
}

// ToolDescription defines one callable tool offered to the model.
type ToolDescription struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

// ToolChoiceMode is the caller-facing tool selection contract, resolved into
// per-backend wire values by ResolveToolChoice.
type ToolChoiceMode string

const (
	// ToolChoiceAuto lets the model decide whether to call tools.
	ToolChoiceAuto ToolChoiceMode = "auto"
	// ToolChoiceRequired forces the model to call a tool.
	ToolChoiceRequired ToolChoiceMode = "required"
	// ToolChoiceNone forbids tool calls for this request.
	ToolChoiceNone ToolChoiceMode = "none"
)

// GenerationConfig carries the sampling parameters shared across backends.
// Unsupported fields are dropped silently by the adapter for that backend.
type GenerationConfig struct {
	MaxOutputTokens  int     `json:"max_output_tokens,omitempty"`
	Temperature      float32 `json:"temperature,omitempty"`       // Sampling temperature. Higher => more random.
	TopP             float32 `json:"top_p,omitempty"`             // Nucleus sampling [0..1]
	TopK             int     `json:"top_k,omitempty"`             // Top-K sampling (Anthropic/Gemini)
	FrequencyPenalty float32 `json:"frequency_penalty,omitempty"` // [-2..2], OpenAI-format only
	PresencePenalty  float32 `json:"presence_penalty,omitempty"`  // [-2..2], OpenAI-format only
}

// ThinkingConfig controls extended thinking. BudgetTokens and Level are
// alternative knobs: Anthropic-format backends take a token budget, the
// Antigravity backend takes a level string ("low", "high").
type ThinkingConfig struct {
	Enabled      bool   `json:"enabled"`
	BudgetTokens int    `json:"budget_tokens,omitempty"`
	Level        string `json:"level,omitempty"`
}

/*
	##### MESSAGES AND CONTENT PARTS #####
*/

// MessageRole represents the role of a message; compatible with string
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // System instructions
	RoleUser      MessageRole = "user"      // End-user message (includes tool results)
	RoleAssistant MessageRole = "assistant" // Model response
)

// Message is one conversation turn: a role and an ordered list of parts.
type Message struct {
	Role  MessageRole   `json:"role"`
	Parts []ContentPart `json:"parts"`
}

// ContentType discriminates the ContentPart variant.
type ContentType string

const (
	ContentTypeText             ContentType = "text"
	ContentTypeImage            ContentType = "image"
	ContentTypeToolCall         ContentType = "tool_call"
	ContentTypeToolResult       ContentType = "tool_result"
	ContentTypeThinking         ContentType = "thinking"
	ContentTypeRedactedThinking ContentType = "redacted_thinking"
	ContentTypeCacheMarker      ContentType = "cache_marker"
	ContentTypeCitationSet      ContentType = "citation_set"
)

// ContentPart is one semantic unit of a message. Exactly one payload field is
// populated, identified by Type. CacheHint may additionally be set on any
// payload-bearing part to request ephemeral prompt caching for the prefix
// ending at this part.
type ContentPart struct {
	Type ContentType `json:"type"`

	Text             string         `json:"text,omitempty"`
	Image            *ImageContent  `json:"image,omitempty"`
	ToolCall         *ToolCall      `json:"tool_call,omitempty"`
	ToolResult       *ToolResult    `json:"tool_result,omitempty"`
	Thinking         *Thinking      `json:"thinking,omitempty"`
	RedactedThinking *RedactedBlob  `json:"redacted_thinking,omitempty"`
	Citations        []Citation     `json:"citations,omitempty"`

	CacheHint bool `json:"cache_hint,omitempty"`
}

// ImageContent is inline base64 data or a URI reference.
type ImageContent struct {
	MimeType string `json:"mime_type,omitempty"`
	Data     string `json:"data,omitempty"` // base64
	URI      string `json:"uri,omitempty"`
}

// ToolCall is a model request to invoke a tool with JSON input.
type ToolCall struct {
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input,omitempty"`
}

// ToolResult is the caller-provided outcome of a previous tool call.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Content string `json:"content,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
}

// Thinking is a visible reasoning trace. The signature is opaque provider
// data required to replay the block on a later turn.
type Thinking struct {
	Text      string `json:"text"`
	Signature string `json:"signature,omitempty"`
}

// RedactedBlob is an opaque, provider-encrypted reasoning trace. It is
// suppressed from user-visible surfaces but preserved for follow-up turns.
type RedactedBlob struct {
	Data string `json:"data"`
}

// Citation references one source backing generated content.
type Citation struct {
	URI     string `json:"uri,omitempty"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// NewTextPart creates a text content part.
func NewTextPart(text string) ContentPart {
	return ContentPart{Type: ContentTypeText, Text: text}
}

// NewImagePart creates an inline base64 image part.
func NewImagePart(mimeType, data string) ContentPart {
	return ContentPart{Type: ContentTypeImage, Image: &ImageContent{MimeType: mimeType, Data: data}}
}

// NewImagePartFromURI creates a URI-referenced image part.
func NewImagePartFromURI(mimeType, uri string) ContentPart {
	return ContentPart{Type: ContentTypeImage, Image: &ImageContent{MimeType: mimeType, URI: uri}}
}

// NewToolCallPart creates a tool call part.
func NewToolCallPart(id, name string, input json.RawMessage) ContentPart {
	return ContentPart{Type: ContentTypeToolCall, ToolCall: &ToolCall{ID: id, Name: name, Input: input}}
}

// NewToolResultPart creates a tool result part.
func NewToolResultPart(callID, content string, isError bool) ContentPart {
	return ContentPart{Type: ContentTypeToolResult, ToolResult: &ToolResult{CallID: callID, Content: content, IsError: isError}}
}

// NewThinkingPart creates a visible thinking part.
func NewThinkingPart(text, signature string) ContentPart {
	return ContentPart{Type: ContentTypeThinking, Thinking: &Thinking{Text: text, Signature: signature}}
}

// NewRedactedThinkingPart creates an opaque redacted thinking part.
func NewRedactedThinkingPart(data string) ContentPart {
	return ContentPart{Type: ContentTypeRedactedThinking, RedactedThinking: &RedactedBlob{Data: data}}
}

// NewCacheMarkerPart creates an ephemeral cache-control hint that attaches to
// the preceding part during normalization.
func NewCacheMarkerPart() ContentPart {
	return ContentPart{Type: ContentTypeCacheMarker}
}

// NewCitationSetPart creates a citation set part.
func NewCitationSetPart(citations []Citation) ContentPart {
	return ContentPart{Type: ContentTypeCitationSet, Citations: citations}
}

// IsThinking reports whether the part carries visible or redacted thinking.
func (p ContentPart) IsThinking() bool {
	return p.Type == ContentTypeThinking || p.Type == ContentTypeRedactedThinking
}

/*
	##### PROVIDER OUTPUT #####
*/

// Usage carries token accounting for one exchange.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`

	// Extended token metrics
	ReasoningTokens int `json:"reasoning_tokens,omitempty"` // Tokens spent thinking
	CachedTokens    int `json:"cached_tokens,omitempty"`    // Cached prompt tokens
}

// ChatResponse is a completed model turn assembled from stream events.
type ChatResponse struct {
	Id           string        `json:"id"`
	Model        string        `json:"model"`
	Parts        []ContentPart `json:"parts"`
	FinishReason string        `json:"finish_reason,omitempty"`
	Usage        *Usage        `json:"usage,omitempty"`
}

// Text joins the text parts of the response into one string.
func (r *ChatResponse) Text() string {
	var out string
	for _, part := range r.Parts {
		if part.Type == ContentTypeText {
			out += part.Text
		}
	}
	return out
}

// ToolCalls returns the tool call parts of the response.
func (r *ChatResponse) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, part := range r.Parts {
		if part.Type == ContentTypeToolCall && part.ToolCall != nil {
			calls = append(calls, *part.ToolCall)
		}
	}
	return calls
}

// ModelInfo describes one model exposed by a provider's listing endpoint.
type ModelInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	Family      string `json:"family,omitempty"`
	CreatedAt   int64  `json:"created_at,omitempty"`
}

// EstimateTokenCount returns the fixed fallback estimate shared by all
// adapters when a backend reports no usage: text length / 4, rounded up.
func EstimateTokenCount(text string) int {
	return tokencount.Estimate(text)
}
