// Package openai implements the ai.Provider interface for OpenAI's Chat
// Completions API and compatible servers, including streaming tool calls
// and reasoning-model parameter handling.
package openai
