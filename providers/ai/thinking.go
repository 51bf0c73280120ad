package ai

import "strings"

// ThinkingBuilder reconstructs a thinking block from streamed text and
// signature deltas. Backends that sign thinking blocks require the signed
// block to be replayed verbatim on the next turn; an unsigned block cannot
// be replayed and is dropped at finish time.
type ThinkingBuilder struct {
	text      strings.Builder
	signature strings.Builder
	active    bool
}

// Start opens a new thinking block, discarding any in-progress state.
func (b *ThinkingBuilder) Start() {
	b.text.Reset()
	b.signature.Reset()
	b.active = true
}

// Active reports whether a thinking block is currently open.
func (b *ThinkingBuilder) Active() bool { return b.active }

// AppendText adds a visible thinking text delta to the open block.
func (b *ThinkingBuilder) AppendText(delta string) {
	b.text.WriteString(delta)
}

// AppendSignature adds a signature fragment to the open block.
func (b *ThinkingBuilder) AppendSignature(fragment string) {
	b.signature.WriteString(fragment)
}

// Finish closes the block and returns the completed thinking part.
// Blocks that accumulated a signature but no text, or no signature at all
// when requireSignature is set, return nil.
func (b *ThinkingBuilder) Finish(requireSignature bool) *ContentPart {
	if !b.active {
		return nil
	}
	b.active = false

	text := b.text.String()
	signature := b.signature.String()
	b.text.Reset()
	b.signature.Reset()

	if text == "" {
		return nil
	}
	if requireSignature && signature == "" {
		return nil
	}

	part := NewThinkingPart(text, signature)
	return &part
}

// ReorderThinkingFirst stably moves thinking and redacted-thinking parts to
// the front of each assistant message. Backends that sign thinking require
// them to lead the content list when replayed; relative order within each
// group is preserved.
func ReorderThinkingFirst(messages []Message) []Message {
	out := make([]Message, len(messages))
	for i, message := range messages {
		out[i] = message
		if message.Role != RoleAssistant || len(message.Parts) < 2 {
			continue
		}

		thinking := make([]ContentPart, 0, len(message.Parts))
		rest := make([]ContentPart, 0, len(message.Parts))
		for _, part := range message.Parts {
			if part.IsThinking() {
				thinking = append(thinking, part)
			} else {
				rest = append(rest, part)
			}
		}
		if len(thinking) == 0 {
			continue
		}
		out[i].Parts = append(thinking, rest...)
	}
	return out
}
