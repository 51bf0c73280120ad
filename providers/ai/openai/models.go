package openai

import "encoding/json"

/*
	OPENAI CHAT COMPLETIONS API - REQUEST TYPES
*/

// openaiRequest represents the request body for the Chat Completions API.
// MaxTokens and MaxCompletionTokens are mutually exclusive; reasoning
// models reject the former in favor of the latter.
type openaiRequest struct {
	Model               string               `json:"model"`
	Messages            []openaiMessage      `json:"messages"`
	MaxTokens           int                  `json:"max_tokens,omitempty"`
	MaxCompletionTokens int                  `json:"max_completion_tokens,omitempty"`
	Temperature         *float64             `json:"temperature,omitempty"`
	TopP                *float64             `json:"top_p,omitempty"`
	FrequencyPenalty    *float64             `json:"frequency_penalty,omitempty"`
	PresencePenalty     *float64             `json:"presence_penalty,omitempty"`
	Tools               []openaiTool         `json:"tools,omitempty"`
	ToolChoice          json.RawMessage      `json:"tool_choice,omitempty"` // String or object form
	ReasoningEffort     string               `json:"reasoning_effort,omitempty"`
	Stream              bool                 `json:"stream,omitempty"`
	StreamOptions       *openaiStreamOptions `json:"stream_options,omitempty"`
}

// openaiStreamOptions controls streaming extras; IncludeUsage makes the
// final chunk carry token usage.
type openaiStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// openaiMessage is one conversation turn. Content is either a plain JSON
// string or an array of content parts (for multimodal user turns).
type openaiMessage struct {
	Role       string           `json:"role"` // "system", "user", "assistant", "tool"
	Content    json.RawMessage  `json:"content,omitempty"`
	ToolCalls  []openaiToolCall `json:"tool_calls,omitempty"`   // Assistant turns only
	ToolCallID string           `json:"tool_call_id,omitempty"` // Tool turns only
}

// openaiContentPart is one element of a multimodal content array.
type openaiContentPart struct {
	Type     string          `json:"type"` // "text" or "image_url"
	Text     string          `json:"text,omitempty"`
	ImageURL *openaiImageURL `json:"image_url,omitempty"`
}

// openaiImageURL references an image by URL or data URI.
type openaiImageURL struct {
	URL string `json:"url"`
}

// openaiToolCall is a tool invocation attached to an assistant message.
type openaiToolCall struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"` // "function"
	Function openaiFunction `json:"function"`
}

// openaiFunction carries the function name and its serialized arguments.
type openaiFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// openaiTool declares a callable function.
type openaiTool struct {
	Type     string                `json:"type"` // "function"
	Function openaiFunctionDetails `json:"function"`
}

// openaiFunctionDetails describes a declared function.
type openaiFunctionDetails struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

/*
	OPENAI CHAT COMPLETIONS API - STREAMING RESPONSE TYPES
*/

// openaiStreamChunk is one SSE payload of a streaming completion.
type openaiStreamChunk struct {
	ID      string               `json:"id"`
	Object  string               `json:"object"` // "chat.completion.chunk"
	Model   string               `json:"model"`
	Choices []openaiStreamChoice `json:"choices"`
	Usage   *openaiUsage         `json:"usage,omitempty"` // Final chunk only (include_usage)
	Error   *openaiError         `json:"error,omitempty"`
}

// openaiStreamChoice carries the delta for one choice.
type openaiStreamChoice struct {
	Index        int         `json:"index"`
	Delta        openaiDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

// openaiDelta is the incremental payload inside a stream choice.
type openaiDelta struct {
	Role      string                `json:"role,omitempty"`
	Content   string                `json:"content,omitempty"`
	ToolCalls []openaiToolCallDelta `json:"tool_calls,omitempty"`
}

// openaiToolCallDelta is an incremental tool-call fragment. ID and the
// function name appear only on the first fragment of each index; arguments
// accumulate across fragments.
type openaiToolCallDelta struct {
	Index    int                 `json:"index"`
	ID       string              `json:"id,omitempty"`
	Type     string              `json:"type,omitempty"`
	Function openaiFunctionDelta `json:"function"`
}

// openaiFunctionDelta carries name/argument fragments of a tool call.
type openaiFunctionDelta struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// openaiUsage reports token consumption.
type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	CompletionTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"completion_tokens_details,omitempty"`
	PromptTokensDetails *struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"prompt_tokens_details,omitempty"`
}

// openaiError is an error payload delivered inside a stream chunk.
type openaiError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
}

/*
	OPENAI MODEL LISTING
*/

// openaiModelList is the GET /models response.
type openaiModelList struct {
	Object string             `json:"object"` // "list"
	Data   []openaiModelEntry `json:"data"`
}

// openaiModelEntry is a single model in the listing.
type openaiModelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"` // "model"
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by,omitempty"`
}
