package antigravity

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"

	"github.com/mossgowild/unify-chat-provider/internal/capability"
	"github.com/mossgowild/unify-chat-provider/internal/utils"
	"github.com/mossgowild/unify-chat-provider/providers/ai"
	"github.com/mossgowild/unify-chat-provider/providers/observability"
)

const (
	// defaultBaseURL is the production endpoint of the Antigravity internal
	// generation API.
	defaultBaseURL = "https://cloudcode-pa.googleapis.com"

	streamEndpoint = "/v1internal:streamGenerateContent?alt=sse"
	modelsEndpoint = "/v1internal:fetchAvailableModels"

	// envelopeUserAgent and envelopeRequestType are fixed discriminators the
	// backend expects on every request envelope.
	envelopeUserAgent   = "antigravity"
	envelopeRequestType = "agent"
)

// AntigravityProvider implements [ai.Provider] for the Antigravity internal
// generation API, a Gemini-shaped protocol wrapped in a project-scoped
// request envelope and authenticated with an OAuth access token.
type AntigravityProvider struct {
	accessToken string
	project     string
	baseURL     string
	client      *http.Client
	matrix      *capability.Matrix
}

// New returns an [AntigravityProvider] initialized from environment
// variables: ANTIGRAVITY_ACCESS_TOKEN for the OAuth bearer token,
// ANTIGRAVITY_PROJECT_ID for the project, and ANTIGRAVITY_API_BASE_URL for
// the endpoint base.
func New() *AntigravityProvider {
	baseURL := os.Getenv("ANTIGRAVITY_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &AntigravityProvider{
		accessToken: os.Getenv("ANTIGRAVITY_ACCESS_TOKEN"),
		project:     os.Getenv("ANTIGRAVITY_PROJECT_ID"),
		baseURL:     baseURL,
		client:      &http.Client{},
		matrix:      capability.Default(),
	}
}

// WithAPIKey sets the OAuth access token used as the bearer credential and
// returns the provider so calls can be chained.
func (p *AntigravityProvider) WithAPIKey(accessToken string) ai.Provider {
	p.accessToken = accessToken
	return p
}

// WithBaseURL overrides the API base URL and returns the provider so calls
// can be chained.
func (p *AntigravityProvider) WithBaseURL(baseURL string) ai.Provider {
	p.baseURL = baseURL
	return p
}

// WithHttpClient replaces the default [http.Client] used for API calls and
// returns the provider so calls can be chained.
func (p *AntigravityProvider) WithHttpClient(httpClient *http.Client) ai.Provider {
	p.client = httpClient
	return p
}

// WithProject sets the project the request envelope is scoped to. Returns
// *AntigravityProvider so the setter stays reachable without a cast.
func (p *AntigravityProvider) WithProject(project string) *AntigravityProvider {
	p.project = project
	return p
}

// WithCapabilityMatrix replaces the capability matrix consulted for
// model-dependent behavior.
func (p *AntigravityProvider) WithCapabilityMatrix(matrix *capability.Matrix) *AntigravityProvider {
	p.matrix = matrix
	return p
}

// providerInfo describes this provider instance for capability lookups.
func (p *AntigravityProvider) providerInfo() capability.ProviderInfo {
	return capability.ProviderInfo{Type: "antigravity", Name: "antigravity", BaseURL: p.baseURL}
}

// ListModels implements [ai.Provider]. The listing endpoint takes an empty
// POST body and returns the available models keyed by ID.
func (p *AntigravityProvider) ListModels(ctx context.Context) ([]ai.ModelInfo, error) {
	if p.accessToken == "" {
		return nil, fmt.Errorf("ANTIGRAVITY_ACCESS_TOKEN is not set")
	}

	httpResponse, list, err := utils.DoPostSync[availableModels](ctx, p.client, p.baseURL+modelsEndpoint, p.accessToken, struct{}{})
	if err != nil {
		return nil, err
	}
	if list == nil {
		return nil, fmt.Errorf("empty model list response: %s", httpResponse.Status)
	}

	models := make([]ai.ModelInfo, 0, len(list.Models))
	for id := range list.Models {
		models = append(models, ai.ModelInfo{
			ID:     id,
			Family: modelFamily(id),
		})
	}
	return models, nil
}

// StreamChat implements [ai.Provider] by wrapping the converted request in
// the Antigravity envelope and POSTing it to the SSE streaming endpoint.
//
// Pre-stream errors (invalid request, missing token, non-2xx response,
// network failure) are returned immediately; mid-stream errors are yielded
// through the iterator.
func (p *AntigravityProvider) StreamChat(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	span := observability.SpanFromContext(ctx)
	logger := observability.LoggerFromContext(ctx)

	if span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, "antigravity"),
			observability.String(observability.AttrLLMEndpoint, p.baseURL),
			observability.String(observability.AttrLLMModel, request.Model),
		)
	}

	if logger != nil {
		logger.Trace(ctx, "antigravity provider preparing streaming request",
			observability.String(observability.AttrLLMProvider, "antigravity"),
			observability.String(observability.AttrLLMModel, request.Model),
			observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
			observability.Int(observability.AttrRequestToolsCount, len(request.Tools)),
		)
	}

	if err := ai.ValidateRequest(request); err != nil {
		return nil, err
	}
	if p.accessToken == "" {
		return nil, fmt.Errorf("ANTIGRAVITY_ACCESS_TOKEN is not set")
	}

	nativeSearch := p.matrix.IsSupported(capability.FeatureNativeWebSearch, request.Model, p.providerInfo())
	wireRequest, err := requestToAntigravity(request, nativeSearch)
	if err != nil {
		return nil, fmt.Errorf("failed to build Antigravity request: %w", err)
	}

	requestID := request.RequestID
	if requestID == "" {
		requestID = "agent-" + uuid.NewString()
	}

	envelope := requestEnvelope{
		Project:     p.project,
		Model:       request.Model,
		Request:     wireRequest,
		RequestType: envelopeRequestType,
		RequestID:   requestID,
		UserAgent:   envelopeUserAgent,
	}

	httpResponse, err := utils.DoPostStream(ctx, p.client, p.baseURL+streamEndpoint, p.accessToken, envelope)
	if err != nil {
		if logger != nil {
			logger.Trace(ctx, "streaming HTTP request failed", observability.Error(err))
		}
		return nil, err
	}

	return ai.NewChatStream(decodeStream(ctx, httpResponse.Body)), nil
}
