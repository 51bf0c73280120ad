// Package anthropic implements the ai.Provider interface for Anthropic's
// Messages API, including extended thinking with signature round-tripping,
// prompt-cache hints, tool use, and SSE streaming.
package anthropic
