package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/mossgowild/unify-chat-provider/internal/capability"
	"github.com/mossgowild/unify-chat-provider/internal/utils"
	"github.com/mossgowild/unify-chat-provider/providers/ai"
	"github.com/mossgowild/unify-chat-provider/providers/observability"
)

const (
	// defaultBaseURL is the canonical base URL for Anthropic's API.
	defaultBaseURL = "https://api.anthropic.com"

	// messagesEndpoint is the path for the Messages API endpoint.
	messagesEndpoint = "/v1/messages"

	// modelsEndpoint is the path for the paginated model listing endpoint.
	modelsEndpoint = "/v1/models"

	// anthropicVersion is the required anthropic-version header value.
	// Anthropic uses this to version-lock response formats independently of the URL.
	anthropicVersion = "2023-06-01"

	// interleavedThinkingBeta is the anthropic-beta token that lets thinking
	// blocks appear between tool calls instead of only before them.
	interleavedThinkingBeta = "interleaved-thinking-2025-05-14"
)

// AnthropicProvider implements [ai.Provider] for Anthropic's Messages API.
// It supports extended thinking (with signature round-tripping), prompt
// caching hints, vision, and tool use. Use [New] to construct a ready-to-use
// instance.
type AnthropicProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	matrix  *capability.Matrix
}

// New returns an [AnthropicProvider] initialized from environment variables.
// It reads ANTHROPIC_API_KEY for authentication and ANTHROPIC_API_BASE_URL
// for the endpoint base (defaulting to https://api.anthropic.com when unset).
// Use [AnthropicProvider.WithAPIKey] and [AnthropicProvider.WithBaseURL] to
// override these values after construction.
func New() *AnthropicProvider {
	baseURL := os.Getenv("ANTHROPIC_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &AnthropicProvider{
		apiKey:  os.Getenv("ANTHROPIC_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
		matrix:  capability.Default(),
	}
}

// WithAPIKey sets the API key used for authenticating requests and returns
// the provider so calls can be chained. It overrides ANTHROPIC_API_KEY.
func (p *AnthropicProvider) WithAPIKey(apiKey string) ai.Provider {
	p.apiKey = apiKey
	return p
}

// WithBaseURL overrides the API base URL and returns the provider so calls
// can be chained. Use this when targeting a proxy or local testing endpoint.
func (p *AnthropicProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient replaces the default [http.Client] used for API calls and
// returns the provider so calls can be chained.
func (p *AnthropicProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

// WithCapabilityMatrix replaces the capability matrix consulted for
// model-dependent behavior. Returns *AnthropicProvider so the matrix type
// stays accessible without an interface cast.
func (p *AnthropicProvider) WithCapabilityMatrix(matrix *capability.Matrix) *AnthropicProvider {
	p.matrix = matrix
	return p
}

// providerInfo describes this provider instance for capability lookups.
func (p *AnthropicProvider) providerInfo() capability.ProviderInfo {
	return capability.ProviderInfo{Type: "anthropic", Name: "anthropic", BaseURL: p.baseURL}
}

// buildHeaders constructs the HTTP headers required for every Anthropic
// request. x-api-key carries the credential (Anthropic does not use Bearer
// tokens), anthropic-version pins the wire format, and anthropic-beta is
// added only when the capability matrix enables interleaved thinking for
// the request's model and the request actually asks for thinking.
func (p *AnthropicProvider) buildHeaders(request ai.ChatRequest) []utils.HeaderOption {
	headers := []utils.HeaderOption{
		{Key: "x-api-key", Value: p.apiKey},
		{Key: "anthropic-version", Value: anthropicVersion},
	}

	thinkingEnabled := request.Thinking != nil && request.Thinking.Enabled
	if thinkingEnabled && p.matrix.IsSupported(capability.FeatureInterleavedThinking, request.Model, p.providerInfo()) {
		headers = append(headers, utils.HeaderOption{Key: "anthropic-beta", Value: interleavedThinkingBeta})
	}

	return headers
}

// ListModels implements [ai.Provider] by walking Anthropic's paginated model
// listing endpoint until has_more turns false, accumulating every page.
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]ai.ModelInfo, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}

	var models []ai.ModelInfo
	afterID := ""

	for {
		listURL := p.baseURL + modelsEndpoint + "?limit=100"
		if afterID != "" {
			listURL += "&after_id=" + url.QueryEscape(afterID)
		}

		httpResponse, page, err := utils.DoGetSync[anthropicModelList](ctx, p.client, listURL, "", p.buildHeaders(ai.ChatRequest{})...)
		if err != nil {
			return nil, err
		}
		if page == nil {
			return nil, fmt.Errorf("empty model list response: %s", httpResponse.Status)
		}

		for _, entry := range page.Data {
			info := ai.ModelInfo{
				ID:          entry.ID,
				DisplayName: entry.DisplayName,
				Family:      modelFamily(entry.ID),
			}
			if createdAt, parseErr := time.Parse(time.RFC3339, entry.CreatedAt); parseErr == nil {
				info.CreatedAt = createdAt.Unix()
			}
			models = append(models, info)
		}

		if !page.HasMore || len(page.Data) == 0 {
			break
		}
		afterID = page.Data[len(page.Data)-1].ID
	}

	return models, nil
}

// StreamChat implements [ai.Provider] by sending a streaming request
// (stream=true) to the Messages API and returning an [ai.ChatStream] that
// yields incremental deltas as SSE events arrive.
//
// Pre-stream errors (invalid request, missing API key, non-2xx HTTP
// response, network failure) are returned immediately as a non-nil error.
// Mid-stream errors (an Anthropic "error" event, an SSE parse failure) are
// yielded through the iterator.
func (p *AnthropicProvider) StreamChat(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	span := observability.SpanFromContext(ctx)
	logger := observability.LoggerFromContext(ctx)

	if span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, "anthropic"),
			observability.String(observability.AttrLLMEndpoint, p.baseURL),
			observability.String(observability.AttrLLMModel, request.Model),
		)
	}

	if logger != nil {
		logger.Trace(ctx, "anthropic provider preparing streaming request",
			observability.String(observability.AttrLLMProvider, "anthropic"),
			observability.String(observability.AttrLLMModel, request.Model),
			observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
			observability.Int(observability.AttrRequestToolsCount, len(request.Tools)),
		)
	}

	if err := ai.ValidateRequest(request); err != nil {
		return nil, err
	}

	// Guard against missing credentials before making a network call.
	if p.apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}

	nativeSearch := p.matrix.IsSupported(capability.FeatureNativeWebSearch, request.Model, p.providerInfo())
	nativeMemory := p.matrix.IsSupported(capability.FeatureMemoryTool, request.Model, p.providerInfo())
	wireRequest, err := requestToAnthropic(request, nativeSearch, nativeMemory)
	if err != nil {
		return nil, fmt.Errorf("failed to build Anthropic request: %w", err)
	}
	wireRequest.Stream = true

	// Pass empty apiKey so DoPostStream does not inject a Bearer token;
	// Anthropic authenticates via x-api-key set inside buildHeaders.
	streamURL := p.baseURL + messagesEndpoint
	httpResponse, err := utils.DoPostStream(ctx, p.client, streamURL, "", wireRequest, p.buildHeaders(request)...)
	if err != nil {
		if logger != nil {
			logger.Trace(ctx, "streaming HTTP request failed", observability.Error(err))
		}
		return nil, err
	}

	requireSignature := p.matrix.IsSupported(capability.FeatureThinkingSignatures, request.Model, p.providerInfo())
	return ai.NewChatStream(decodeStream(ctx, httpResponse.Body, requireSignature)), nil
}
