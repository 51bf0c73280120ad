package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"

	"github.com/mossgowild/unify-chat-provider/internal/utils"
	"github.com/mossgowild/unify-chat-provider/providers/ai"
)

// decodeStream turns the open SSE response body into a canonical stream
// iterator. It owns the body and closes it when the iterator finishes or
// the caller breaks out of the loop.
//
// The Chat Completions stream delivers choices[].delta chunks, a final
// chunk with finish_reason set (and usage when include_usage is on), and a
// "[DONE]" sentinel that the SSE scanner surfaces as io.EOF. Tool-call
// fragments carry the id and function name only on the first delta of each
// index; arguments accumulate across fragments and each call is emitted as
// soon as its buffered arguments parse, falling back to end of stream.
//
// Context cancellation ends the sequence without a terminal error, and
// payloads that fail to parse are skipped rather than aborting the stream.
func decodeStream(ctx context.Context, body io.ReadCloser) iter.Seq2[ai.StreamEvent, error] {
	return func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(body)

		scanner := utils.NewSSEScanner(body)
		accumulator := ai.NewToolCallAccumulator()
		finishReason := ""
		var usage *ai.Usage

		finish := func() {
			for _, call := range accumulator.FinishAll() {
				part := ai.NewToolCallPart(call.ID, call.Name, call.Input)
				if !yield(ai.StreamEvent{Type: ai.StreamEventPart, Part: &part}, nil) {
					return
				}
			}
			if usage != nil {
				if !yield(ai.StreamEvent{Type: ai.StreamEventUsage, Usage: usage}, nil) {
					return
				}
			}
			yield(ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: mapFinishReason(finishReason)}, nil)
		}

		for {
			if ctx.Err() != nil {
				return
			}

			payload, scanErr := scanner.Next()
			if scanErr == io.EOF {
				finish()
				return
			}
			if scanErr != nil {
				if ctx.Err() != nil {
					return
				}
				yield(ai.StreamEvent{}, fmt.Errorf("SSE read error: %w", scanErr))
				return
			}

			var chunk openaiStreamChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				// Malformed payloads are skipped, not fatal.
				continue
			}

			if chunk.Error != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("openai stream error: %s", chunk.Error.Message))
				return
			}

			if chunk.Usage != nil {
				usage = convertUsage(chunk.Usage)
			}

			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					if !yield(ai.StreamEvent{Type: ai.StreamEventContent, Content: choice.Delta.Content}, nil) {
						return
					}
				}

				for _, toolDelta := range choice.Delta.ToolCalls {
					call := accumulator.AppendDelta(
						toolDelta.Index,
						toolDelta.ID,
						toolDelta.Function.Name,
						toolDelta.Function.Arguments,
					)
					if call != nil {
						part := ai.NewToolCallPart(call.ID, call.Name, call.Input)
						if !yield(ai.StreamEvent{Type: ai.StreamEventPart, Part: &part}, nil) {
							return
						}
					}
				}

				if choice.FinishReason != nil && *choice.FinishReason != "" {
					finishReason = *choice.FinishReason
				}
			}
		}
	}
}

// convertUsage maps OpenAI usage counters onto the canonical form.
func convertUsage(wire *openaiUsage) *ai.Usage {
	usage := &ai.Usage{
		PromptTokens:     wire.PromptTokens,
		CompletionTokens: wire.CompletionTokens,
		TotalTokens:      wire.TotalTokens,
	}
	if wire.CompletionTokensDetails != nil {
		usage.ReasoningTokens = wire.CompletionTokensDetails.ReasoningTokens
	}
	if wire.PromptTokensDetails != nil {
		usage.CachedTokens = wire.PromptTokensDetails.CachedTokens
	}
	return usage
}
