package capability

import (
	"regexp"
	"strings"
)

// ProviderInfo is the provider-side half of a capability query. It carries
// just enough of the provider configuration for URL-pattern and predicate
// matching without coupling this package to the dispatch layer.
type ProviderInfo struct {
	Type    string
	Name    string
	BaseURL string
}

// Predicate is a custom capability rule taking the model id and provider.
// Predicates are the most specific match tier and are evaluated first.
type Predicate func(model string, provider ProviderInfo) bool

// Feature describes one backend capability and the rules that decide which
// model/provider combinations have it. Every rule set is optional; a Feature
// with no rules matches nothing.
type Feature struct {
	// Name identifies the feature in the matrix.
	Name string

	// Families are model-family substrings ("claude-opus-4", "gemini-3").
	// The broadest match tier, checked last.
	Families []string

	// ModelIDs are exact model-id substrings, checked after URL patterns.
	ModelIDs []string

	// URLPatterns match the provider base URL. A pattern is either a
	// wildcard string ("*.googleapis.com*") or a regular expression
	// (recognized by the presence of regex metacharacters beyond '*').
	URLPatterns []string

	// Predicates are custom dynamic rules, checked first.
	Predicates []Predicate
}

// Matches reports whether the feature applies to the given model/provider
// pair. Tiers are checked most-specific first: predicates, then URL
// patterns, then model-id substrings, then family substrings. Any single
// match wins.
func (f Feature) Matches(model string, provider ProviderInfo) bool {
	for _, predicate := range f.Predicates {
		if predicate != nil && predicate(model, provider) {
			return true
		}
	}

	for _, pattern := range f.URLPatterns {
		if matchURLPattern(pattern, provider.BaseURL) {
			return true
		}
	}

	lowerModel := strings.ToLower(model)
	for _, id := range f.ModelIDs {
		if id != "" && strings.Contains(lowerModel, strings.ToLower(id)) {
			return true
		}
	}

	for _, family := range f.Families {
		if family != "" && strings.Contains(lowerModel, strings.ToLower(family)) {
			return true
		}
	}

	return false
}

// regexMetaChars distinguishes a regex pattern from a plain wildcard string.
// '*' alone is wildcard syntax; anything from this set switches the pattern
// to full regex interpretation.
const regexMetaChars = "^$()[]{}|+?\\"

// matchURLPattern matches url against a wildcard or regex pattern.
// Malformed regex patterns match nothing.
func matchURLPattern(pattern, url string) bool {
	if pattern == "" || url == "" {
		return false
	}

	var expr string
	if strings.ContainsAny(pattern, regexMetaChars) {
		expr = pattern
	} else {
		// Wildcard: escape everything, then re-open '*' as '.*'.
		expr = strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, `.*`)
		expr = "^" + expr + "$"
	}

	matched, err := regexp.MatchString(expr, url)
	if err != nil {
		return false
	}
	return matched
}

// Matrix answers "does model/provider X support feature Y". It is built once
// at startup and read-only afterwards, so concurrent requests can consult it
// without locking.
type Matrix struct {
	features map[string]Feature
}

// NewMatrix builds a matrix from the given features. Later features replace
// earlier ones with the same name.
func NewMatrix(features ...Feature) *Matrix {
	matrix := &Matrix{features: make(map[string]Feature, len(features))}
	for _, feature := range features {
		matrix.features[feature.Name] = feature
	}
	return matrix
}

// IsSupported reports whether the named feature applies to the model/provider
// pair. Unknown features are unsupported.
func (m *Matrix) IsSupported(feature string, model string, provider ProviderInfo) bool {
	if m == nil {
		return false
	}
	entry, found := m.features[feature]
	if !found {
		return false
	}
	return entry.Matches(model, provider)
}
