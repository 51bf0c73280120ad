package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mossgowild/unify-chat-provider/providers/ai"
	"github.com/mossgowild/unify-chat-provider/providers/observability"
)

// ProviderConfig describes one configured backend. Configs are produced by an
// external collaborator (a settings store, a config file) and are read-only
// here.
type ProviderConfig struct {
	// Type selects the wire protocol: "anthropic", "openai", or
	// "antigravity". It is the registry lookup key.
	Type string `json:"type"`

	// Name is the human-facing label for this configuration. Two configs may
	// share a Type but differ in Name, base URL, and credential.
	Name string `json:"name"`

	// BaseURL overrides the adapter's default endpoint when non-empty.
	BaseURL string `json:"base_url,omitempty"`

	// Project scopes Antigravity request envelopes. Ignored by other types.
	Project string `json:"project,omitempty"`

	// Models lists the model identifiers this config serves.
	Models []string `json:"models,omitempty"`

	// ModelOverrides holds per-model generation defaults applied when the
	// caller leaves the corresponding request field unset.
	ModelOverrides map[string]ModelOverride `json:"model_overrides,omitempty"`

	// ExtraHeaders are injected into every outbound request for this config,
	// without overriding headers the adapter already sets.
	ExtraHeaders map[string]string `json:"extra_headers,omitempty"`

	// ConnectTimeout bounds connection establishment. Zero means the
	// http.DefaultTransport behavior. This is independent of the per-chunk
	// idle budget the streaming transport applies on its own.
	ConnectTimeout time.Duration `json:"connect_timeout,omitempty"`
}

// ModelOverride carries per-model defaults from the configuration store.
type ModelOverride struct {
	MaxOutputTokens int `json:"max_output_tokens,omitempty"`
	ThinkingBudget  int `json:"thinking_budget,omitempty"`
}

// ServesModel reports whether this config lists the given model.
func (c ProviderConfig) ServesModel(model string) bool {
	for _, m := range c.Models {
		if m == model {
			return true
		}
	}
	return false
}

// ConfigSource resolves a canonical model identifier to the provider config
// that serves it. Implementations are external collaborators; the dispatch
// service never edits or persists configuration.
type ConfigSource interface {
	ConfigForModel(model string) (ProviderConfig, error)
}

// StaticConfigs is a ConfigSource over a fixed list, matching in order.
type StaticConfigs []ProviderConfig

// ConfigForModel returns the first config listing model, or
// ErrNoProviderForModel.
func (s StaticConfigs) ConfigForModel(model string) (ProviderConfig, error) {
	for _, config := range s {
		if config.ServesModel(model) {
			return config, nil
		}
	}
	return ProviderConfig{}, fmt.Errorf("%w: %q", ErrNoProviderForModel, model)
}

// CredentialResolver turns a provider config into a bearer token, API key,
// or equivalent. It is called exactly once per request; a failure is fatal
// for that request and is never retried. Token refresh, device-code polling,
// and secret decryption all live behind this interface, outside the core.
type CredentialResolver interface {
	Resolve(ctx context.Context, config ProviderConfig) (string, error)
}

// CredentialResolverFunc adapts a function to the CredentialResolver
// interface.
type CredentialResolverFunc func(ctx context.Context, config ProviderConfig) (string, error)

// Resolve calls f.
func (f CredentialResolverFunc) Resolve(ctx context.Context, config ProviderConfig) (string, error) {
	return f(ctx, config)
}

var (
	// ErrNoProviderForModel indicates no configured provider serves the
	// requested model.
	ErrNoProviderForModel = errors.New("no provider configured for model")

	// ErrCredentialResolution wraps a credential resolver failure.
	ErrCredentialResolution = errors.New("credential resolution failed")
)

// Service routes canonical chat requests to the configured backend adapter.
// It resolves config and credential, applies per-model overrides, validates
// the request before any network call, and owns the performance trace for
// each proxied stream. A Service is safe for concurrent use.
type Service struct {
	configs  ConfigSource
	resolver CredentialResolver
	registry *Registry
}

// NewService returns a Service using the built-in adapter registry.
func NewService(configs ConfigSource, resolver CredentialResolver) *Service {
	return &Service{
		configs:  configs,
		resolver: resolver,
		registry: NewRegistry(),
	}
}

// WithRegistry replaces the adapter registry. Returns the service so calls
// can be chained.
func (s *Service) WithRegistry(registry *Registry) *Service {
	s.registry = registry
	return s
}

// StreamChat resolves the provider for request.Model, builds its adapter,
// and proxies the stream. The returned PerformanceTrace is mutated as wire
// events are observed and is complete once the stream has been fully
// consumed. Validation failures, unknown models, credential failures, and
// pre-stream transport errors are returned synchronously; after streaming
// has started, failures surface through the stream iterator.
func (s *Service) StreamChat(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, *PerformanceTrace, error) {
	span := observability.SpanFromContext(ctx)
	logger := observability.LoggerFromContext(ctx)

	config, err := s.configs.ConfigForModel(request.Model)
	if err != nil {
		return nil, nil, err
	}

	request = applyOverrides(request, config)

	if err := ai.ValidateRequest(request); err != nil {
		return nil, nil, err
	}

	credential, err := s.resolver.Resolve(ctx, config)
	if err != nil {
		return nil, nil, fmt.Errorf("%w for provider %q: %v", ErrCredentialResolution, config.Name, err)
	}

	provider, err := s.registry.Build(config, credential)
	if err != nil {
		return nil, nil, err
	}

	if span != nil {
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, config.Type),
			observability.String(observability.AttrLLMModel, request.Model),
		)
	}
	if logger != nil {
		logger.Trace(ctx, "dispatching chat request",
			observability.String(observability.AttrLLMProvider, config.Type),
			observability.String(observability.AttrLLMModel, request.Model),
			observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
		)
	}

	trace := &PerformanceTrace{RequestStart: time.Now(), model: request.Model}

	stream, err := provider.StreamChat(ctx, request)
	if err != nil {
		return nil, trace, err
	}

	// StreamChat returning means response headers have arrived.
	trace.FirstByte = time.Now()

	return ai.NewChatStream(trace.observe(stream.Iter())), trace, nil
}

// ListModels resolves the named config and lists the models its backend
// currently serves.
func (s *Service) ListModels(ctx context.Context, config ProviderConfig) ([]ai.ModelInfo, error) {
	credential, err := s.resolver.Resolve(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%w for provider %q: %v", ErrCredentialResolution, config.Name, err)
	}

	provider, err := s.registry.Build(config, credential)
	if err != nil {
		return nil, err
	}

	return provider.ListModels(ctx)
}

// applyOverrides fills unset request fields from the config's per-model
// overrides. The input request is not mutated; nested structs are copied
// before changing them.
func applyOverrides(request ai.ChatRequest, config ProviderConfig) ai.ChatRequest {
	override, ok := config.ModelOverrides[request.Model]
	if !ok {
		return request
	}

	if override.MaxOutputTokens > 0 {
		generation := ai.GenerationConfig{}
		if request.GenerationConfig != nil {
			generation = *request.GenerationConfig
		}
		if generation.MaxOutputTokens == 0 {
			generation.MaxOutputTokens = override.MaxOutputTokens
		}
		request.GenerationConfig = &generation
	}

	if override.ThinkingBudget > 0 && request.Thinking != nil && request.Thinking.Enabled && request.Thinking.BudgetTokens == 0 {
		thinking := *request.Thinking
		thinking.BudgetTokens = override.ThinkingBudget
		request.Thinking = &thinking
	}

	return request
}
