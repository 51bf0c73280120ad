package anthropic

import (
	"context"
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
// Anthropic SSE lifecycle:
//
//	message_start → content_block_start → content_block_delta(s) →
//	content_block_stop → message_delta → message_stop
//
// Tool-call arguments arrive as input_json_delta fragments and are
// reassembled per block index, with the call emitted as soon as the
// fragments parse as JSON; thinking text and its signature arrive as
// separate delta kinds and are reassembled into one thinking part that is
// emitted when the block stops.
//
// Context cancellation ends the sequence without a terminal error, and
// payloads that fail to parse are skipped rather than aborting the stream.
func decodeStream(ctx context.Context, body io.ReadCloser, requireSignature bool) iter.Seq2[ai.StreamEvent, error] {
	return func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(body)

		scanner := utils.NewSSEScanner(body)
		accumulator := ai.NewToolCallAccumulator()
		var thinkingBuilder ai.ThinkingBuilder

		// Block types by index, so content_block_stop knows what is closing.
		blockTypes := map[int]string{}

		// Token counts are spread across events (message_start for input,
		// message_delta for output) and emitted together once complete.
		inputTokens := 0
		cacheCreationTokens := 0
		cacheReadTokens := 0
		finishReason := ""

		for {
			if ctx.Err() != nil {
				return
			}

			payload, scanErr := scanner.Next()
			if scanErr == io.EOF {
				// message_stop already emitted the done event.
				return
			}
			if scanErr != nil {
				if ctx.Err() != nil {
					return
				}
				yield(ai.StreamEvent{}, fmt.Errorf("SSE read error: %w", scanErr))
				return
			}

			event, parseErr := unmarshalStreamEvent(payload)
			if parseErr != nil {
				// Malformed payloads are skipped, not fatal.
				continue
			}

			switch event.Type {

			case "message_start":
				// Carries the initial usage snapshot; output tokens are 0 here.
				if event.Message != nil {
					inputTokens = event.Message.Usage.InputTokens
					cacheCreationTokens = event.Message.Usage.CacheCreationInputTokens
					cacheReadTokens = event.Message.Usage.CacheReadInputTokens
				}

			case "content_block_start":
				if event.ContentBlock == nil {
					continue
				}
				blockTypes[event.Index] = event.ContentBlock.Type

				switch event.ContentBlock.Type {
				case "tool_use":
					accumulator.StartBlock(event.Index, event.ContentBlock.ID, event.ContentBlock.Name)

				case "thinking":
					thinkingBuilder.Start()

				case "redacted_thinking":
					// Redacted blocks arrive complete on the start event.
					part := ai.NewRedactedThinkingPart(event.ContentBlock.Data)
					if !yield(ai.StreamEvent{Type: ai.StreamEventPart, Part: &part}, nil) {
						return
					}
				}

			case "content_block_delta":
				if event.Delta == nil {
					continue
				}

				switch event.Delta.Type {
				case "text_delta":
					if event.Delta.Text != "" {
						if !yield(ai.StreamEvent{Type: ai.StreamEventContent, Content: event.Delta.Text}, nil) {
							return
						}
					}

				case "thinking_delta":
					thinkingBuilder.AppendText(event.Delta.Thinking)
					if event.Delta.Thinking != "" {
						if !yield(ai.StreamEvent{Type: ai.StreamEventThinkingDelta, Content: event.Delta.Thinking}, nil) {
							return
						}
					}

				case "signature_delta":
					thinkingBuilder.AppendSignature(event.Delta.Signature)

				case "input_json_delta":
					if call := accumulator.AppendDelta(event.Index, "", "", event.Delta.PartialJSON); call != nil {
						part := ai.NewToolCallPart(call.ID, call.Name, call.Input)
						if !yield(ai.StreamEvent{Type: ai.StreamEventPart, Part: &part}, nil) {
							return
						}
					}
				}

			case "content_block_stop":
				switch blockTypes[event.Index] {
				case "tool_use":
					if call := accumulator.FinishBlock(event.Index); call != nil {
						part := ai.NewToolCallPart(call.ID, call.Name, call.Input)
						if !yield(ai.StreamEvent{Type: ai.StreamEventPart, Part: &part}, nil) {
							return
						}
					}

				case "thinking":
					if part := thinkingBuilder.Finish(requireSignature); part != nil {
						if !yield(ai.StreamEvent{Type: ai.StreamEventPart, Part: part}, nil) {
							return
						}
					}
				}
				delete(blockTypes, event.Index)

			case "message_delta":
				// Carries the final output token count and stop reason. Emit
				// the consolidated usage event here so callers always receive
				// usage before the done event.
				outputTokens := 0
				if event.Usage != nil {
					outputTokens = event.Usage.OutputTokens
				}
				if event.Delta != nil && event.Delta.StopReason != "" {
					finishReason = event.Delta.StopReason
				}

				if !yield(ai.StreamEvent{
					Type: ai.StreamEventUsage,
					Usage: &ai.Usage{
						PromptTokens:     inputTokens,
						CompletionTokens: outputTokens,
						TotalTokens:      inputTokens + outputTokens,
						CachedTokens:     cacheCreationTokens + cacheReadTokens,
					},
				}, nil) {
					return
				}

			case "message_stop":
				// Flush tool-call blocks that never received a stop event.
				for _, call := range accumulator.FinishAll() {
					part := ai.NewToolCallPart(call.ID, call.Name, call.Input)
					if !yield(ai.StreamEvent{Type: ai.StreamEventPart, Part: &part}, nil) {
						return
					}
				}
				yield(ai.StreamEvent{
					Type:         ai.StreamEventDone,
					FinishReason: mapStopReason(finishReason),
				}, nil)
				return

			case "error":
				message := "unknown stream error"
				if event.Error != nil {
					message = event.Error.Message
				}
				yield(ai.StreamEvent{}, fmt.Errorf("anthropic stream error: %s", message))
				return

			case "ping":
				// Keep-alive; nothing to yield.

			default:
				// Unknown event types are skipped for forward-compatibility.
			}
		}
	}
}
