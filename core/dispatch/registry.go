package dispatch

import (
	"fmt"
	"net"
	"net/http"

	"github.com/mossgowild/unify-chat-provider/providers/ai"
	"github.com/mossgowild/unify-chat-provider/providers/ai/anthropic"
	"github.com/mossgowild/unify-chat-provider/providers/ai/antigravity"
	"github.com/mossgowild/unify-chat-provider/providers/ai/openai"
)

// Provider type strings recognized by the built-in registry.
const (
	ProviderTypeAnthropic   = "anthropic"
	ProviderTypeOpenAI      = "openai"
	ProviderTypeAntigravity = "antigravity"
)

// ErrUnknownProviderType indicates a config whose Type has no registered
// adapter constructor.
var ErrUnknownProviderType = fmt.Errorf("unknown provider type")

// AdapterConstructor builds a ready-to-use adapter from a config, a resolved
// credential, and the HTTP client dispatch prepared for this config.
type AdapterConstructor func(config ProviderConfig, credential string, client *http.Client) ai.Provider

// Registry maps provider type strings to adapter constructors. Adding a
// backend means registering one constructor; the dispatch service itself
// never changes.
type Registry struct {
	constructors map[string]AdapterConstructor
}

// NewRegistry returns a registry with the built-in adapters registered.
func NewRegistry() *Registry {
	registry := &Registry{constructors: map[string]AdapterConstructor{}}
	registry.Register(ProviderTypeAnthropic, newAnthropicAdapter)
	registry.Register(ProviderTypeOpenAI, newOpenAIAdapter)
	registry.Register(ProviderTypeAntigravity, newAntigravityAdapter)
	return registry
}

// Register adds or replaces the constructor for a provider type.
func (r *Registry) Register(providerType string, constructor AdapterConstructor) {
	r.constructors[providerType] = constructor
}

// Build constructs the adapter for config with the given credential.
func (r *Registry) Build(config ProviderConfig, credential string) (ai.Provider, error) {
	constructor, ok := r.constructors[config.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProviderType, config.Type)
	}
	return constructor(config, credential, newHTTPClient(config)), nil
}

func newAnthropicAdapter(config ProviderConfig, credential string, client *http.Client) ai.Provider {
	provider := anthropic.New().WithAPIKey(credential).WithHttpClient(client)
	if config.BaseURL != "" {
		provider = provider.WithBaseURL(config.BaseURL)
	}
	return provider
}

func newOpenAIAdapter(config ProviderConfig, credential string, client *http.Client) ai.Provider {
	provider := openai.New().WithAPIKey(credential).WithHttpClient(client)
	if config.BaseURL != "" {
		provider = provider.WithBaseURL(config.BaseURL)
	}
	return provider
}

func newAntigravityAdapter(config ProviderConfig, credential string, client *http.Client) ai.Provider {
	base := antigravity.New()
	if config.Project != "" {
		base = base.WithProject(config.Project)
	}
	provider := base.WithAPIKey(credential).WithHttpClient(client)
	if config.BaseURL != "" {
		provider = provider.WithBaseURL(config.BaseURL)
	}
	return provider
}

// newHTTPClient prepares the HTTP client for one config: a connection
// establishment timeout when configured, and a header-injecting transport
// when the config carries extra headers. No overall request deadline is set
// so long-lived streams are not cut off; the streaming transport applies its
// own idle budget per received chunk.
func newHTTPClient(config ProviderConfig) *http.Client {
	var transport http.RoundTripper = http.DefaultTransport

	if config.ConnectTimeout > 0 {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: config.ConnectTimeout,
			}).DialContext,
		}
	}

	if len(config.ExtraHeaders) > 0 {
		transport = &headerTransport{base: transport, headers: config.ExtraHeaders}
	}

	return &http.Client{Transport: transport}
}

// headerTransport injects configured headers into outbound requests without
// overriding headers the adapter already set.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	cloned := request.Clone(request.Context())
	for key, value := range t.headers {
		if cloned.Header.Get(key) == "" {
			cloned.Header.Set(key, value)
		}
	}
	return t.base.RoundTrip(cloned)
}
