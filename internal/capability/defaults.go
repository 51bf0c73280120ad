package capability

import "strings"

// Feature names consulted by the adapters. The matrix gates request shaping
// only; whether the backend honors the shaped request remains its decision.
const (
	// FeatureInterleavedThinking controls whether the interleaved-thinking
	// beta header is sent on Anthropic-format requests.
	FeatureInterleavedThinking = "interleaved-thinking"

	// FeatureNativeWebSearch controls whether the provider-native web search
	// tool is attached alongside caller tools.
	FeatureNativeWebSearch = "native-web-search"

	// FeatureMemoryTool controls whether the provider-native memory tool is
	// attached.
	FeatureMemoryTool = "memory-tool"

	// FeatureMaxCompletionTokens marks models that reject max_tokens and
	// require max_completion_tokens instead.
	FeatureMaxCompletionTokens = "max-completion-tokens"

	// FeatureThinkingSignatures marks backends that echo thinking signatures
	// and require them on resubmission.
	FeatureThinkingSignatures = "thinking-signatures"
)

// Default returns the built-in capability matrix. Callers needing different
// rules construct their own Matrix; the default covers the stock backends.
func Default() *Matrix {
	return NewMatrix(
		Feature{
			Name:     FeatureInterleavedThinking,
			Families: []string{"claude-opus-4", "claude-sonnet-4", "claude-haiku-4"},
			ModelIDs: []string{"claude-3-7-sonnet"},
		},
		Feature{
			Name:        FeatureNativeWebSearch,
			Families:    []string{"claude-opus-4", "claude-sonnet-4", "gemini-2", "gemini-3"},
			URLPatterns: []string{"*cloudcode-pa*.googleapis.com*"},
		},
		Feature{
			Name:     FeatureMemoryTool,
			Families: []string{"claude-opus-4", "claude-sonnet-4"},
		},
		Feature{
			Name:     FeatureMaxCompletionTokens,
			ModelIDs: []string{"o1", "o3", "o4-mini", "gpt-5"},
			Predicates: []Predicate{
				func(model string, provider ProviderInfo) bool {
					// Azure deployments reject max_tokens on all reasoning models
					// regardless of the deployment alias.
					return strings.Contains(provider.BaseURL, "azure.com") &&
						strings.Contains(strings.ToLower(model), "reason")
				},
			},
		},
		Feature{
			Name:     FeatureThinkingSignatures,
			Families: []string{"claude"},
			ModelIDs: []string{"gemini-3"},
		},
	)
}
