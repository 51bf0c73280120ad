package antigravity

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
// Each SSE payload is a response envelope (or a bare response) carrying a
// snapshot of candidate parts. Text and thought parts stream as deltas;
// function calls arrive complete and are emitted immediately with a
// synthesized call ID. The stream has no terminal event, so usage,
// grounding citations, and the done event are emitted at EOF.
//
// Context cancellation ends the sequence without a terminal error, and
// payloads that fail to parse are skipped rather than aborting the stream.
func decodeStream(ctx context.Context, body io.ReadCloser) iter.Seq2[ai.StreamEvent, error] {
	return func(yield func(ai.StreamEvent, error) bool) {
		defer utils.CloseWithLog(body)

		scanner := utils.NewSSEScanner(body)
		var thinkingBuilder ai.ThinkingBuilder

		finishReason := ""
		toolCallsSeen := 0
		var usage *usageMetadata
		var grounding *groundingMetadata

		// flushThinking closes an open thought block and emits it. Blocks
		// are emitted unsigned too; not every model signs its thoughts.
		flushThinking := func() bool {
			if !thinkingBuilder.Active() {
				return true
			}
			thinkingPart := thinkingBuilder.Finish(false)
			if thinkingPart == nil {
				return true
			}
			return yield(ai.StreamEvent{Type: ai.StreamEventPart, Part: thinkingPart}, nil)
		}

		finish := func() {
			if !flushThinking() {
				return
			}
			if citationPart := buildCitationPart(grounding); citationPart != nil {
				if !yield(ai.StreamEvent{Type: ai.StreamEventPart, Part: citationPart}, nil) {
					return
				}
			}
			if usage != nil {
				if !yield(ai.StreamEvent{
					Type: ai.StreamEventUsage,
					Usage: &ai.Usage{
						PromptTokens:     usage.PromptTokenCount,
						CompletionTokens: usage.CandidatesTokenCount,
						TotalTokens:      usage.TotalTokenCount,
						ReasoningTokens:  usage.ThoughtsTokenCount,
						CachedTokens:     usage.CachedContentTokenCount,
					},
				}, nil) {
					return
				}
			}
			yield(ai.StreamEvent{
				Type:         ai.StreamEventDone,
				FinishReason: mapFinishReason(finishReason, toolCallsSeen > 0),
			}, nil)
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

			var envelope responseEnvelope
			if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
				// Malformed payloads are skipped, not fatal.
				continue
			}

			response := envelope.Response
			if response == nil {
				response = &generateContentResponse{
					Candidates:    envelope.Candidates,
					UsageMetadata: envelope.UsageMetadata,
				}
			}

			if response.UsageMetadata != nil {
				usage = response.UsageMetadata
			}
			if len(response.Candidates) == 0 {
				continue
			}

			primary := response.Candidates[0]
			if primary.FinishReason != "" {
				finishReason = primary.FinishReason
			}
			if primary.GroundingMetadata != nil {
				grounding = primary.GroundingMetadata
			}
			if primary.Content == nil {
				continue
			}

			for _, wirePart := range primary.Content.Parts {
				switch {
				case wirePart.FunctionCall != nil:
					if !flushThinking() {
						return
					}
					toolCallsSeen++
					args := wirePart.FunctionCall.Args
					if len(args) == 0 {
						args = json.RawMessage("{}")
					}
					callPart := ai.NewToolCallPart(
						synthesizeCallID(wirePart.FunctionCall.Name, toolCallsSeen),
						wirePart.FunctionCall.Name,
						args,
					)
					if !yield(ai.StreamEvent{Type: ai.StreamEventPart, Part: &callPart}, nil) {
						return
					}

				case wirePart.Thought:
					if !thinkingBuilder.Active() {
						thinkingBuilder.Start()
					}
					thinkingBuilder.AppendText(wirePart.Text)
					if wirePart.ThoughtSignature != "" {
						thinkingBuilder.AppendSignature(wirePart.ThoughtSignature)
					}
					if wirePart.Text != "" {
						if !yield(ai.StreamEvent{Type: ai.StreamEventThinkingDelta, Content: wirePart.Text}, nil) {
							return
						}
					}

				case wirePart.Text != "":
					if !flushThinking() {
						return
					}
					if !yield(ai.StreamEvent{Type: ai.StreamEventContent, Content: wirePart.Text}, nil) {
						return
					}
				}
			}
		}
	}
}
