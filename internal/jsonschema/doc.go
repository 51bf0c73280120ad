// Package jsonschema models the tool-parameter JSON Schema dialect shared by
// the supported backends and provides the sanitizer that normalizes arbitrary
// caller schemas (refs, allOf/anyOf/oneOf, const, empty objects) into a form
// every backend accepts.
package jsonschema
