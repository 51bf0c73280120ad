package ai

import (
	"context"
	"net/http"
)

// Provider is the adapter contract every backend implementation satisfies.
// A provider instance is stateless aside from its embedded base URL,
// credential, and HTTP client handle, so one instance can serve concurrent
// requests.
type Provider interface {
	// StreamChat sends a chat request and returns a ChatStream that yields
	// canonical response parts as they arrive from the API. Pre-stream errors
	// (credential, validation, non-2xx response, network) are returned as a
	// normal error. Mid-stream errors are yielded through the iterator.
	// Cancelling ctx ends the stream without a terminal failure event.
	StreamChat(ctx context.Context, request ChatRequest) (*ChatStream, error)

	// ListModels returns the model descriptors the backend currently serves.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// WithAPIKey sets the resolved credential used for authenticating
	// requests. The core never refreshes or decrypts credentials itself.
	WithAPIKey(apiKey string) Provider

	// WithBaseURL overrides the default base URL for API requests.
	WithBaseURL(baseURL string) Provider

	// WithHttpClient sets the HTTP client used for outbound requests.
	WithHttpClient(httpClient *http.Client) Provider
}
