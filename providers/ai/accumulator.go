package ai

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ToolCallAccumulator assembles tool calls from streamed argument fragments.
// Providers deliver tool arguments as partial JSON deltas keyed by a block
// index; the accumulator buffers them per index and produces a complete
// ToolCall as soon as the buffered arguments parse, or at the latest when
// the block closes.
type ToolCallAccumulator struct {
	pending map[int]*pendingToolCall
}

type pendingToolCall struct {
	id   string
	name string
	args strings.Builder
}

// NewToolCallAccumulator returns an empty accumulator ready for a stream.
func NewToolCallAccumulator() *ToolCallAccumulator {
	return &ToolCallAccumulator{pending: make(map[int]*pendingToolCall)}
}

// StartBlock opens a tool-call block at the given index. Starting an index
// that is already open discards the earlier partial state.
func (a *ToolCallAccumulator) StartBlock(index int, id, name string) {
	a.pending[index] = &pendingToolCall{id: id, name: name}
}

// AppendDelta adds an argument fragment to an open block. Fragments for an
// index that was never started open it implicitly, since some backends omit
// an explicit start for calls whose metadata rides on the first delta.
//
// After appending, the buffered arguments are checked: as soon as they form
// valid JSON for a named call, the completed ToolCall is returned and the
// block is closed, so callers can surface the call without waiting for an
// explicit stop event. Returns nil while the block is still incomplete.
func (a *ToolCallAccumulator) AppendDelta(index int, id, name, fragment string) *ToolCall {
	entry, ok := a.pending[index]
	if !ok {
		entry = &pendingToolCall{}
		a.pending[index] = entry
	}
	if id != "" {
		entry.id = id
	}
	if name != "" {
		entry.name += name
	}
	entry.args.WriteString(fragment)

	if entry.name == "" {
		return nil
	}
	args := strings.TrimSpace(entry.args.String())
	if args == "" || !json.Valid([]byte(args)) {
		return nil
	}

	delete(a.pending, index)
	return &ToolCall{
		ID:    entry.id,
		Name:  entry.name,
		Input: json.RawMessage(args),
	}
}

// FinishBlock closes the block at index and returns the completed tool call.
// Accumulated arguments that are not valid JSON go through a repair pass;
// if repair also fails the input degrades to an empty object so the call
// still reaches the caller. Returns nil if the index was never opened or
// carries no name.
func (a *ToolCallAccumulator) FinishBlock(index int) *ToolCall {
	entry, ok := a.pending[index]
	if !ok {
		return nil
	}
	delete(a.pending, index)
	if entry.name == "" {
		return nil
	}

	return &ToolCall{
		ID:    entry.id,
		Name:  entry.name,
		Input: finalizeArguments(entry.args.String()),
	}
}

// FinishAll closes every open block in ascending index order. Backends that
// end a stream without per-block stop events rely on this at end of stream.
func (a *ToolCallAccumulator) FinishAll() []*ToolCall {
	if len(a.pending) == 0 {
		return nil
	}
	indexes := make([]int, 0, len(a.pending))
	for index := range a.pending {
		indexes = append(indexes, index)
	}
	// Insertion sort; the set is tiny.
	for i := 1; i < len(indexes); i++ {
		for j := i; j > 0 && indexes[j-1] > indexes[j]; j-- {
			indexes[j-1], indexes[j] = indexes[j], indexes[j-1]
		}
	}

	var calls []*ToolCall
	for _, index := range indexes {
		if call := a.FinishBlock(index); call != nil {
			calls = append(calls, call)
		}
	}
	return calls
}

// Reset discards all partial state, e.g. when a stream is abandoned.
func (a *ToolCallAccumulator) Reset() {
	a.pending = make(map[int]*pendingToolCall)
}

// finalizeArguments turns accumulated argument text into a JSON object.
func finalizeArguments(raw string) json.RawMessage {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return json.RawMessage("{}")
	}
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	if repaired, err := jsonrepair.JSONRepair(trimmed); err == nil && json.Valid([]byte(repaired)) {
		return json.RawMessage(repaired)
	}
	return json.RawMessage("{}")
}
