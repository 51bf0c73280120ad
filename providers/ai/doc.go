// Package ai defines the canonical chat model shared by every backend
// adapter: conversation messages built from typed content parts, tool
// descriptions with JSON-schema parameters, streaming events, and the
// normalization, accumulation, and tool-choice logic the adapters share.
//
// Adapters implement the Provider interface and translate between this
// canonical model and their backend's wire format. Callers construct a
// ChatRequest once and send it to any provider.
package ai
