package jsonschema

import (
	"encoding/json"
	"fmt"
)

// Schema represents the subset of JSON Schema used for tool parameter
// definitions, plus the compositional keywords ($ref, allOf, anyOf, oneOf,
// const) that the sanitizer knows how to flatten away. Keywords outside this
// set are not modeled and therefore never reach a backend.
type Schema struct {
	// SchemaURI is the "$schema" meta keyword. Parsed so the sanitizer can
	// strip it; backends reject it.
	SchemaURI string `json:"$schema,omitempty"`
	// Type specifies the data type (e.g., "object", "array", "string", "number")
	Type        string `json:"type,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Required    []string `json:"required,omitempty"`
	// Properties of the arguments, each with its own schema
	Properties map[string]*Schema `json:"properties,omitempty"`
	// For array types, defines the schema of items in the array
	Items *Schema `json:"items,omitempty"`
	// AdditionalProperties controls whether undeclared properties are allowed
	AdditionalProperties any `json:"additionalProperties,omitempty"`
	// Default value for the parameter
	Default any `json:"default,omitempty"`
	// Examples of valid values
	Examples []any `json:"examples,omitempty"`
	// Enum contains the list of allowed values for the parameter
	Enum []any `json:"enum,omitempty"`
	// Const restricts the value to a single constant
	Const any `json:"const,omitempty"`
	// Format is a semantic hint for string values ("date-time", "uri", ...)
	Format string `json:"format,omitempty"`

	// Ref is an internal JSON Schema reference ("#/$defs/..." or
	// "#/definitions/...")
	Ref string `json:"$ref,omitempty"`
	// Defs contains reusable schema definitions under the modern keyword
	Defs map[string]*Schema `json:"$defs,omitempty"`
	// Definitions is the legacy spelling of Defs
	Definitions map[string]*Schema `json:"definitions,omitempty"`

	// Compositional keywords, flattened away by Sanitize
	AllOf []*Schema `json:"allOf,omitempty"`
	AnyOf []*Schema `json:"anyOf,omitempty"`
	OneOf []*Schema `json:"oneOf,omitempty"`
}

// Parse decodes a raw JSON document into a Schema.
func Parse(raw []byte) (*Schema, error) {
	var schema Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("failed to parse JSON schema: %w", err)
	}
	return &schema, nil
}

// JsonString converts the Schema to its JSON representation.
// indent: optional bool parameter. If true, formats JSON with indentation.
func (s *Schema) JsonString(indent ...bool) (string, error) {
	shouldIndent := false
	if len(indent) > 0 {
		shouldIndent = indent[0]
	}

	var jsonBytes []byte
	var err error

	if shouldIndent {
		jsonBytes, err = json.MarshalIndent(s, "", "  ")
	} else {
		jsonBytes, err = json.Marshal(s)
	}

	if err != nil {
		return "", fmt.Errorf("failed to marshal schema to JSON: %w", err)
	}
	return string(jsonBytes), nil
}

// String returns the compact JSON representation of the schema.
// Returns an error message if marshalling fails.
func (s *Schema) String() string {
	jsonStr, err := s.JsonString()
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return jsonStr
}

// clone returns a deep copy of s. Sanitize works on a clone so a caller's
// schema is never mutated.
func (s *Schema) clone() *Schema {
	if s == nil {
		return nil
	}

	out := *s

	if s.Required != nil {
		out.Required = append([]string(nil), s.Required...)
	}
	if s.Enum != nil {
		out.Enum = append([]any(nil), s.Enum...)
	}
	if s.Examples != nil {
		out.Examples = append([]any(nil), s.Examples...)
	}
	if nested, ok := s.AdditionalProperties.(*Schema); ok {
		out.AdditionalProperties = nested.clone()
	}
	out.Properties = cloneMap(s.Properties)
	out.Defs = cloneMap(s.Defs)
	out.Definitions = cloneMap(s.Definitions)
	out.Items = s.Items.clone()
	out.AllOf = cloneSlice(s.AllOf)
	out.AnyOf = cloneSlice(s.AnyOf)
	out.OneOf = cloneSlice(s.OneOf)

	return &out
}

func cloneMap(in map[string]*Schema) map[string]*Schema {
	if in == nil {
		return nil
	}
	out := make(map[string]*Schema, len(in))
	for key, value := range in {
		out[key] = value.clone()
	}
	return out
}

func cloneSlice(in []*Schema) []*Schema {
	if in == nil {
		return nil
	}
	out := make([]*Schema, len(in))
	for i, value := range in {
		out[i] = value.clone()
	}
	return out
}
