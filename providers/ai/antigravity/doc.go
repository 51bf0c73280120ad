// Package antigravity implements the ai.Provider interface for the
// Antigravity internal generation API: a Gemini-shaped wire protocol
// wrapped in a project-scoped request envelope, with thought signatures,
// native Google Search grounding, and SSE streaming.
package antigravity
