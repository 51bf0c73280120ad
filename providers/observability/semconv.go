package observability

// Semantic conventions for attribute and event names. Keeping these as
// constants ensures log lines from different adapters remain greppable
// under a single key set.

// --- LLM provider attributes ---

const (
	// AttrLLMProvider is the wire-protocol family (e.g., "anthropic", "openai")
	AttrLLMProvider = "llm.provider"

	// AttrLLMModel is the model identifier
	AttrLLMModel = "llm.model"

	// AttrLLMEndpoint is the API endpoint URL
	AttrLLMEndpoint = "llm.endpoint"

	// AttrLLMRequestID is the caller-supplied request identifier
	AttrLLMRequestID = "llm.request.id"

	// AttrLLMResponseID is the unique response identifier from the provider
	AttrLLMResponseID = "llm.response.id"

	// AttrLLMFinishReason is the reason the generation finished
	AttrLLMFinishReason = "llm.finish_reason"

	// AttrLLMTokensTotal is the total number of tokens
	AttrLLMTokensTotal = "llm.tokens.total" // #nosec G101 -- Not a credential, token refers to LLM tokens

	// AttrLLMTokensPerSecond is the derived output throughput
	AttrLLMTokensPerSecond = "llm.tokens.per_second" // #nosec G101 -- Not a credential
)

// --- Request attributes ---

const (
	// AttrRequestMessagesCount is the number of messages in the request
	AttrRequestMessagesCount = "request.messages.count"

	// AttrRequestToolsCount is the number of tool definitions in the request
	AttrRequestToolsCount = "request.tools.count"
)

// --- HTTP attributes ---

const (
	// AttrHTTPMethod is the HTTP request method
	AttrHTTPMethod = "http.method"

	// AttrHTTPURL is the full request URL
	AttrHTTPURL = "http.url"

	// AttrHTTPStatusCode is the HTTP response status code
	AttrHTTPStatusCode = "http.status_code"

	// AttrHTTPRequestBodySize is the request body size in bytes
	AttrHTTPRequestBodySize = "http.request.body.size"

	// AttrHTTPResponseBodySize is the response body size in bytes
	AttrHTTPResponseBodySize = "http.response.body.size"

	// AttrHTTPRetryAttempt is the zero-based retry attempt number
	AttrHTTPRetryAttempt = "http.retry.attempt"
)

// --- Event names ---

const (
	// EventLLMRequestStart marks the start of an LLM request
	EventLLMRequestStart = "llm.request.start"

	// EventLLMRequestEnd marks the end of an LLM request
	EventLLMRequestEnd = "llm.request.end"

	// EventLLMFirstByte marks the arrival of the first response byte
	EventLLMFirstByte = "llm.response.first_byte"

	// EventLLMFirstToken marks the first decoded content token
	EventLLMFirstToken = "llm.response.first_token" // #nosec G101 -- Not a credential

	// EventTokensReceived marks receipt of usage accounting
	EventTokensReceived = "llm.tokens.received" // #nosec G101 -- Not a credential

	// EventHTTPRetry marks a transport-level retry wait
	EventHTTPRetry = "http.retry"
)
