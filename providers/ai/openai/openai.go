package openai

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/mossgowild/unify-chat-provider/internal/capability"
	"github.com/mossgowild/unify-chat-provider/internal/utils"
	"github.com/mossgowild/unify-chat-provider/providers/ai"
	"github.com/mossgowild/unify-chat-provider/providers/observability"
)

const (
	defaultBaseURL          = "https://api.openai.com/v1"
	chatCompletionsEndpoint = "/chat/completions"
	modelsEndpoint          = "/models"
)

// OpenAIProvider implements [ai.Provider] for OpenAI's Chat Completions API
// and for the many OpenAI-compatible servers that speak the same wire
// format. Use [New] to construct a ready-to-use instance.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	matrix  *capability.Matrix
}

// New returns an [OpenAIProvider] initialized from environment variables.
// It reads OPENAI_API_KEY for authentication and OPENAI_API_BASE_URL for the
// endpoint base (defaulting to https://api.openai.com/v1 when unset).
func New() *OpenAIProvider {
	baseURL := os.Getenv("OPENAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &OpenAIProvider{
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		baseURL: normalizeBaseURL(baseURL),
		client:  &http.Client{},
		matrix:  capability.Default(),
	}
}

// normalizeBaseURL appends the conventional /v1 segment when the caller
// supplied a bare host. Compatible servers mount the chat endpoint under
// /v1, so "https://host" and "https://host/v1" must behave the same.
func normalizeBaseURL(baseURL string) string {
	trimmed := strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(trimmed, "/v1") {
		return trimmed
	}
	return trimmed + "/v1"
}

// WithAPIKey sets the API key used for authenticating requests and returns
// the provider so calls can be chained. It overrides OPENAI_API_KEY.
func (p *OpenAIProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL overrides the API base URL and returns the provider so calls
// can be chained. A bare host gets the /v1 segment appended.
func (p *OpenAIProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = normalizeBaseURL(baseURL)
	return p
}

// WithHttpClient replaces the default [http.Client] used for API calls and
// returns the provider so calls can be chained.
func (p *OpenAIProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

// WithCapabilityMatrix replaces the capability matrix consulted for
// model-dependent behavior. Returns *OpenAIProvider so the matrix type
// stays accessible without an interface cast.
func (p *OpenAIProvider) WithCapabilityMatrix(matrix *capability.Matrix) *OpenAIProvider {
	p.matrix = matrix
	return p
}

// providerInfo describes this provider instance for capability lookups.
func (p *OpenAIProvider) providerInfo() capability.ProviderInfo {
	return capability.ProviderInfo{Type: "openai", Name: "openai", BaseURL: p.baseURL}
}

// ListModels implements [ai.Provider] via GET /models. OpenAI returns the
// full list in a single page.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]ai.ModelInfo, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}

	httpResponse, list, err := utils.DoGetSync[openaiModelList](ctx, p.client, p.baseURL+modelsEndpoint, p.apiKey)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, fmt.Errorf("empty model list response: %s", httpResponse.Status)
	}

	models := make([]ai.ModelInfo, 0, len(list.Data))
	for _, entry := range list.Data {
		models = append(models, ai.ModelInfo{
			ID:        entry.ID,
			Family:    modelFamily(entry.ID),
			CreatedAt: entry.Created,
		})
	}
	return models, nil
}

// StreamChat implements [ai.Provider] by sending a streaming request
// (stream=true with usage reporting enabled) to the Chat Completions API
// and returning an [ai.ChatStream] that yields deltas as chunks arrive.
//
// Pre-stream errors (invalid request, missing API key, non-2xx HTTP
// response, network failure) are returned immediately; mid-stream errors
// are yielded through the iterator.
func (p *OpenAIProvider) StreamChat(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	span := observability.SpanFromContext(ctx)
	logger := observability.LoggerFromContext(ctx)

	if span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, "openai"),
			observability.String(observability.AttrLLMEndpoint, p.baseURL),
			observability.String(observability.AttrLLMModel, request.Model),
		)
	}

	if logger != nil {
		logger.Trace(ctx, "openai provider preparing streaming request",
			observability.String(observability.AttrLLMProvider, "openai"),
			observability.String(observability.AttrLLMModel, request.Model),
			observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
			observability.Int(observability.AttrRequestToolsCount, len(request.Tools)),
		)
	}

	if err := ai.ValidateRequest(request); err != nil {
		return nil, err
	}
	if p.apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}

	useMaxCompletionTokens := p.matrix.IsSupported(capability.FeatureMaxCompletionTokens, request.Model, p.providerInfo())
	wireRequest, err := requestToOpenAI(request, useMaxCompletionTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to build OpenAI request: %w", err)
	}
	wireRequest.Stream = true
	wireRequest.StreamOptions = &openaiStreamOptions{IncludeUsage: true}

	httpResponse, err := utils.DoPostStream(ctx, p.client, p.baseURL+chatCompletionsEndpoint, p.apiKey, wireRequest)
	if err != nil {
		if logger != nil {
			logger.Trace(ctx, "streaming HTTP request failed", observability.Error(err))
		}
		return nil, err
	}

	return ai.NewChatStream(decodeStream(ctx, httpResponse.Body)), nil
}

// modelFamily extracts the family prefix of an OpenAI model ID, e.g.
// "gpt-4o-mini-2024-07-18" → "gpt-4o".
func modelFamily(modelID string) string {
	segments := strings.Split(modelID, "-")
	if len(segments) >= 2 {
		return segments[0] + "-" + segments[1]
	}
	return modelID
}
