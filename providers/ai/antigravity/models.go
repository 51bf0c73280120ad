package antigravity

import "encoding/json"

/*
	ANTIGRAVITY INTERNAL API - ENVELOPE
*/

// requestEnvelope wraps a Gemini-shaped request with the project scoping
// and discriminators the internal endpoint requires.
type requestEnvelope struct {
	Project     string                 `json:"project,omitempty"`
	Model       string                 `json:"model"`
	Request     generateContentRequest `json:"request"`
	RequestType string                 `json:"requestType"`
	RequestID   string                 `json:"requestId"`
	UserAgent   string                 `json:"userAgent"`
}

// responseEnvelope wraps each SSE payload. Some deployments send the bare
// response instead, so the decoder accepts both forms.
type responseEnvelope struct {
	Response *generateContentResponse `json:"response,omitempty"`
	TraceID  string                   `json:"traceId,omitempty"`

	// Bare-form fields, populated when the payload has no envelope.
	Candidates    []candidate    `json:"candidates,omitempty"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
}

// availableModels is the model listing response, keyed by model ID.
type availableModels struct {
	Models map[string]json.RawMessage `json:"models"`
}

/*
	GEMINI-SHAPED REQUEST TYPES
*/

// generateContentRequest is the inner request body.
type generateContentRequest struct {
	Contents          []content          `json:"contents"`
	SystemInstruction *systemInstruction `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig  `json:"generationConfig,omitempty"`
	Tools             []tool             `json:"tools,omitempty"`
	ToolConfig        *toolConfig        `json:"toolConfig,omitempty"`
	SessionID         string             `json:"sessionId,omitempty"`
}

// systemInstruction carries the system prompt parts.
type systemInstruction struct {
	Parts []part `json:"parts"`
}

// content is one conversation turn with role "user" or "model".
type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

// part is a content part. Thought marks reasoning parts; ThoughtSignature
// is the opaque signature that must be replayed with signed thoughts.
type part struct {
	Text             string            `json:"text,omitempty"`
	Thought          bool              `json:"thought,omitempty"`
	ThoughtSignature string            `json:"thoughtSignature,omitempty"`
	FunctionCall     *functionCall     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
	InlineData       *inlineData       `json:"inlineData,omitempty"`
	FileData         *fileData         `json:"fileData,omitempty"`
}

// inlineData is inline base64 media.
type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// fileData references media by URI.
type fileData struct {
	MimeType string `json:"mimeType"`
	FileURI  string `json:"fileUri"`
}

// functionCall is a tool invocation requested by the model.
type functionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// functionResponse answers a prior function call.
type functionResponse struct {
	Name     string          `json:"name"`
	Response json.RawMessage `json:"response"`
}

// generationConfig carries sampling and thinking parameters.
type generationConfig struct {
	Temperature      *float64        `json:"temperature,omitempty"`
	TopP             *float64        `json:"topP,omitempty"`
	TopK             *int            `json:"topK,omitempty"`
	MaxOutputTokens  *int            `json:"maxOutputTokens,omitempty"`
	PresencePenalty  *float64        `json:"presencePenalty,omitempty"`
	FrequencyPenalty *float64        `json:"frequencyPenalty,omitempty"`
	ThinkingConfig   *thinkingConfig `json:"thinkingConfig,omitempty"`
}

// thinkingConfig controls reasoning output.
type thinkingConfig struct {
	ThinkingBudget  *int `json:"thinkingBudget,omitempty"`
	IncludeThoughts bool `json:"includeThoughts,omitempty"`
}

// tool declares either native tools or user functions.
type tool struct {
	GoogleSearch         *googleSearchTool     `json:"googleSearch,omitempty"`
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations,omitempty"`
}

// googleSearchTool enables native Google Search grounding.
type googleSearchTool struct{}

// functionDeclaration describes one callable function.
type functionDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// toolConfig wraps the function calling mode.
type toolConfig struct {
	FunctionCallingConfig *functionCallingConfig `json:"functionCallingConfig,omitempty"`
}

// functionCallingConfig selects AUTO, ANY, or NONE, optionally restricted
// to named functions.
type functionCallingConfig struct {
	Mode                 string   `json:"mode,omitempty"`
	AllowedFunctionNames []string `json:"allowedFunctionNames,omitempty"`
}

/*
	GEMINI-SHAPED RESPONSE TYPES
*/

// generateContentResponse is the inner response body.
type generateContentResponse struct {
	Candidates    []candidate    `json:"candidates,omitempty"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string         `json:"modelVersion,omitempty"`
	ResponseID    string         `json:"responseId,omitempty"`
}

// candidate is one response alternative; only the first is used.
type candidate struct {
	Content           *content           `json:"content,omitempty"`
	FinishReason      string             `json:"finishReason,omitempty"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata,omitempty"`
	Index             int                `json:"index,omitempty"`
}

// groundingMetadata carries Google Search grounding results.
type groundingMetadata struct {
	SearchEntryPoint  *searchEntryPoint  `json:"searchEntryPoint,omitempty"`
	GroundingChunks   []groundingChunk   `json:"groundingChunks,omitempty"`
	GroundingSupports []groundingSupport `json:"groundingSupports,omitempty"`
	WebSearchQueries  []string           `json:"webSearchQueries,omitempty"`
}

// searchEntryPoint holds the HTML search widget returned with grounded
// answers.
type searchEntryPoint struct {
	RenderedContent string `json:"renderedContent,omitempty"`
}

// groundingChunk is one grounded source.
type groundingChunk struct {
	Web *webChunk `json:"web,omitempty"`
}

// webChunk is a web source reference.
type webChunk struct {
	URI   string `json:"uri,omitempty"`
	Title string `json:"title,omitempty"`
}

// groundingSupport links answer segments to grounding chunks.
type groundingSupport struct {
	Segment               *segment `json:"segment,omitempty"`
	GroundingChunkIndices []int    `json:"groundingChunkIndices,omitempty"`
}

// segment is a span of the answer text.
type segment struct {
	StartIndex int    `json:"startIndex,omitempty"`
	EndIndex   int    `json:"endIndex,omitempty"`
	Text       string `json:"text,omitempty"`
}

// usageMetadata reports token consumption.
type usageMetadata struct {
	PromptTokenCount        int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount    int `json:"candidatesTokenCount,omitempty"`
	TotalTokenCount         int `json:"totalTokenCount,omitempty"`
	ThoughtsTokenCount      int `json:"thoughtsTokenCount,omitempty"`
	CachedContentTokenCount int `json:"cachedContentTokenCount,omitempty"`
}
