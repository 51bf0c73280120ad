package jsonschema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// maxSanitizeDepth bounds recursion so schemas with pathological nesting or
// ref cycles cannot stack-overflow the sanitizer. Nodes beyond the limit
// degrade to a generic object schema.
const maxSanitizeDepth = 32

// placeholderPropertyName is injected when a tool schema would otherwise have
// no declared properties; several backends reject tools with an empty
// properties map.
const placeholderPropertyName = "placeholder"

// Sanitize transforms an arbitrary tool-parameter schema into a form
// acceptable to the strictest supported backend:
//
//   - internal $ref pointers are resolved against the schema's own
//     $defs/definitions, with sibling keys at the ref site taking precedence
//     over the referenced schema;
//   - allOf members are iteratively merged (required unioned, properties
//     unioned, first-wins on scalar conflicts);
//   - anyOf/oneOf is degraded to a single schema, with a note appended to the
//     description so the degradation stays legible to the model;
//   - unsupported keywords ($schema, title, default, examples) are stripped
//     and const is folded into enum;
//   - the result is guaranteed to be type "object" with a non-empty
//     properties map;
//   - required entries that name undeclared properties are pruned.
//
// The input schema is never mutated; a nil input yields the minimal
// placeholder object schema.
func Sanitize(schema *Schema) *Schema {
	if schema == nil {
		schema = &Schema{}
	}

	root := schema.clone()
	defs := collectDefs(root)

	sanitized := sanitizeNode(root, defs, 0)

	if sanitized.Type == "" {
		sanitized.Type = "object"
	}
	if sanitized.Type == "object" && len(sanitized.Properties) == 0 {
		sanitized.Properties = map[string]*Schema{
			placeholderPropertyName: {
				Type:        "boolean",
				Description: "Unused placeholder; this tool takes no arguments.",
			},
		}
		sanitized.Required = nil
	}

	return sanitized
}

// collectDefs gathers the root's $defs and legacy definitions into one lookup
// table keyed by definition name.
func collectDefs(root *Schema) map[string]*Schema {
	defs := make(map[string]*Schema, len(root.Defs)+len(root.Definitions))
	for name, def := range root.Definitions {
		defs[name] = def
	}
	for name, def := range root.Defs {
		defs[name] = def
	}
	return defs
}

// refDefinitionName extracts the definition name from an internal reference
// such as "#/$defs/person" or "#/definitions/person". Returns "" for
// external or unrecognized refs.
func refDefinitionName(ref string) string {
	for _, prefix := range []string{"#/$defs/", "#/definitions/"} {
		if strings.HasPrefix(ref, prefix) {
			return strings.TrimPrefix(ref, prefix)
		}
	}
	return ""
}

// sanitizeNode applies the full sanitization pipeline to one schema node and
// recurses into its children.
func sanitizeNode(node *Schema, defs map[string]*Schema, depth int) *Schema {
	if node == nil {
		return &Schema{Type: "object"}
	}
	if depth > maxSanitizeDepth {
		return &Schema{Type: "object"}
	}

	node = resolveRef(node, defs)
	node = flattenAllOf(node, defs, depth)
	node = degradeVariants(node, defs, depth)

	// Strip keywords the backends reject.
	node.SchemaURI = ""
	node.Title = ""
	node.Default = nil
	node.Examples = nil
	node.Defs = nil
	node.Definitions = nil

	// Fold const into enum.
	if node.Const != nil {
		if len(node.Enum) == 0 {
			node.Enum = []any{node.Const}
		}
		node.Const = nil
	}

	// Recurse into children.
	for name, property := range node.Properties {
		node.Properties[name] = sanitizeNode(property, defs, depth+1)
	}
	if node.Items != nil {
		node.Items = sanitizeNode(node.Items, defs, depth+1)
	}
	if additional, ok := node.AdditionalProperties.(*Schema); ok {
		node.AdditionalProperties = sanitizeNode(additional, defs, depth+1)
	}

	// Prune required entries that name undeclared properties.
	if len(node.Required) > 0 && node.Properties != nil {
		kept := node.Required[:0]
		for _, name := range node.Required {
			if _, declared := node.Properties[name]; declared {
				kept = append(kept, name)
			}
		}
		if len(kept) == 0 {
			node.Required = nil
		} else {
			node.Required = kept
		}
	}

	return node
}

// resolveRef replaces a $ref node with the referenced definition merged under
// any sibling keys present at the ref site. Chained refs are followed;
// cycles and unresolvable refs degrade to the ref site without the pointer.
func resolveRef(node *Schema, defs map[string]*Schema) *Schema {
	visited := map[string]bool{}

	for node.Ref != "" {
		name := refDefinitionName(node.Ref)
		target, found := defs[name]
		if name == "" || !found || visited[name] {
			node.Ref = ""
			break
		}
		visited[name] = true

		siblings := node
		node = target.clone()
		node.Ref = target.Ref
		mergeSiblings(node, siblings)
	}

	return node
}

// mergeSiblings overlays the sibling keys of a ref site onto the resolved
// schema. Siblings win on conflicts, per the sanitizer contract.
func mergeSiblings(resolved, siblings *Schema) {
	if siblings.Type != "" {
		resolved.Type = siblings.Type
	}
	if siblings.Description != "" {
		resolved.Description = siblings.Description
	}
	if siblings.Title != "" {
		resolved.Title = siblings.Title
	}
	if siblings.Format != "" {
		resolved.Format = siblings.Format
	}
	if len(siblings.Enum) > 0 {
		resolved.Enum = siblings.Enum
	}
	if siblings.Const != nil {
		resolved.Const = siblings.Const
	}
	if siblings.Default != nil {
		resolved.Default = siblings.Default
	}
	if len(siblings.Required) > 0 {
		resolved.Required = unionStrings(resolved.Required, siblings.Required)
	}
	for name, property := range siblings.Properties {
		if resolved.Properties == nil {
			resolved.Properties = map[string]*Schema{}
		}
		resolved.Properties[name] = property
	}
	if siblings.Items != nil {
		resolved.Items = siblings.Items
	}
	if len(siblings.AllOf) > 0 {
		resolved.AllOf = append(resolved.AllOf, siblings.AllOf...)
	}
	if len(siblings.AnyOf) > 0 {
		resolved.AnyOf = siblings.AnyOf
	}
	if len(siblings.OneOf) > 0 {
		resolved.OneOf = siblings.OneOf
	}
}

// flattenAllOf merges every allOf member into the host schema. Required
// arrays are unioned, properties unioned, and scalar keys keep the first
// value seen (host first, then members in order).
func flattenAllOf(node *Schema, defs map[string]*Schema, depth int) *Schema {
	if len(node.AllOf) == 0 {
		return node
	}

	members := node.AllOf
	node.AllOf = nil

	for _, member := range members {
		member = sanitizeNode(member, defs, depth+1)
		mergeMember(node, member)
	}

	return node
}

// mergeMember folds one allOf member into the host, first-wins on scalars.
func mergeMember(host, member *Schema) {
	if host.Type == "" {
		host.Type = member.Type
	}
	if host.Description == "" {
		host.Description = member.Description
	}
	if host.Format == "" {
		host.Format = member.Format
	}
	if host.Items == nil {
		host.Items = member.Items
	}
	if len(host.Enum) == 0 {
		host.Enum = member.Enum
	}
	if host.AdditionalProperties == nil {
		host.AdditionalProperties = member.AdditionalProperties
	}
	host.Required = unionStrings(host.Required, member.Required)
	for name, property := range member.Properties {
		if host.Properties == nil {
			host.Properties = map[string]*Schema{}
		}
		if _, exists := host.Properties[name]; !exists {
			host.Properties[name] = property
		}
	}
}

// degradeVariants simplifies anyOf/oneOf. A single variant is inlined under
// the host's sibling keys. Multiple object variants are merged into one
// object whose required set is the intersection of the variants' required
// sets and whose properties are the union; scalar variants keep the first
// variant's type with enums unioned. Either way a note is appended to the
// description so the degradation is legible to the model.
func degradeVariants(node *Schema, defs map[string]*Schema, depth int) *Schema {
	variants := node.AnyOf
	keyword := "anyOf"
	if len(variants) == 0 {
		variants = node.OneOf
		keyword = "oneOf"
	}
	if len(variants) == 0 {
		return node
	}
	node.AnyOf = nil
	node.OneOf = nil

	sanitizedVariants := make([]*Schema, 0, len(variants))
	for _, variant := range variants {
		sanitizedVariants = append(sanitizedVariants, sanitizeNode(variant, defs, depth+1))
	}

	if len(sanitizedVariants) == 1 {
		variant := sanitizedVariants[0]
		mergeSiblings(variant, node)
		return variant
	}

	isObjectMerge := false
	for _, variant := range sanitizedVariants {
		if len(variant.Properties) > 0 || variant.Type == "object" {
			isObjectMerge = true
			break
		}
	}

	if isObjectMerge {
		mergeObjectVariants(node, sanitizedVariants)
	} else {
		mergeScalarVariants(node, sanitizedVariants)
	}

	note := fmt.Sprintf("Note: simplified from %s of %d alternatives; properties merged, required limited to fields common to all alternatives.", keyword, len(sanitizedVariants))
	if node.Description == "" {
		node.Description = note
	} else {
		node.Description = node.Description + " " + note
	}

	return node
}

// mergeObjectVariants intersects required sets and unions properties across
// object variants.
func mergeObjectVariants(node *Schema, variants []*Schema) {
	node.Type = "object"

	requiredCounts := map[string]int{}
	for _, variant := range variants {
		for _, name := range variant.Required {
			requiredCounts[name]++
		}
		for name, property := range variant.Properties {
			if node.Properties == nil {
				node.Properties = map[string]*Schema{}
			}
			if _, exists := node.Properties[name]; !exists {
				node.Properties[name] = property
			}
		}
	}

	var required []string
	for name, count := range requiredCounts {
		if count == len(variants) {
			required = append(required, name)
		}
	}
	sort.Strings(required)
	node.Required = required
}

// mergeScalarVariants keeps the first variant's type and unions enum values.
func mergeScalarVariants(node *Schema, variants []*Schema) {
	if node.Type == "" {
		node.Type = variants[0].Type
	}
	for _, variant := range variants {
		for _, value := range variant.Enum {
			if !containsValue(node.Enum, value) {
				node.Enum = append(node.Enum, value)
			}
		}
	}
}

func containsValue(values []any, value any) bool {
	for _, existing := range values {
		if existing == value {
			return true
		}
	}
	return false
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, value := range append(append([]string{}, a...), b...) {
		if !seen[value] {
			seen[value] = true
			out = append(out, value)
		}
	}
	return out
}

// toolNamePattern matches characters allowed in backend tool identifiers.
var toolNameInvalidChars = regexp.MustCompile(`[^A-Za-z0-9_.:-]`)

// maxToolNameLength is the identifier length cap shared by all backends.
const maxToolNameLength = 64

// SanitizeToolName rewrites name to the common backend identifier grammar:
// alphanumerics plus "_.:-", at most 64 characters, starting with a letter
// or underscore. Invalid characters become underscores; an empty result
// falls back to "tool".
func SanitizeToolName(name string) string {
	sanitized := toolNameInvalidChars.ReplaceAllString(name, "_")

	if sanitized == "" {
		return "tool"
	}

	first := sanitized[0]
	isLetter := (first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z')
	if !isLetter && first != '_' {
		sanitized = "_" + sanitized
	}

	if len(sanitized) > maxToolNameLength {
		sanitized = sanitized[:maxToolNameLength]
	}

	return sanitized
}
