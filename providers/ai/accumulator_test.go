package ai

import (
	"encoding/json"
	"testing"
)

// TestToolCallAccumulator_FragmentedArguments verifies that argument JSON
// split across multiple deltas reassembles into the complete object, which
// is returned by the delta that makes the buffer parse.
func TestToolCallAccumulator_FragmentedArguments(t *testing.T) {
	accumulator := NewToolCallAccumulator()
	accumulator.StartBlock(0, "call_1", "get_weather")
	if call := accumulator.AppendDelta(0, "", "", `{"city":`); call != nil {
		t.Fatalf("incomplete arguments completed early: %+v", call)
	}
	if call := accumulator.AppendDelta(0, "", "", `"Paris","unit"`); call != nil {
		t.Fatalf("incomplete arguments completed early: %+v", call)
	}

	call := accumulator.AppendDelta(0, "", "", `:"celsius"}`)
	if call == nil {
		t.Fatal("expected a completed tool call")
	}
	if call.ID != "call_1" || call.Name != "get_weather" {
		t.Errorf("identity: got id=%q name=%q", call.ID, call.Name)
	}

	var args map[string]string
	if err := json.Unmarshal(call.Input, &args); err != nil {
		t.Fatalf("arguments not valid JSON: %v", err)
	}
	if args["city"] != "Paris" || args["unit"] != "celsius" {
		t.Errorf("arguments: got %v", args)
	}

	if late := accumulator.FinishBlock(0); late != nil {
		t.Errorf("block should be closed after completion, got %+v", late)
	}
}

// TestToolCallAccumulator_MalformedArguments verifies that truncated
// argument JSON is repaired when possible and degrades to an empty object
// when not, so the call still reaches the caller.
func TestToolCallAccumulator_MalformedArguments(t *testing.T) {
	t.Run("truncated object → repaired", func(t *testing.T) {
		accumulator := NewToolCallAccumulator()
		accumulator.StartBlock(0, "call_1", "search")
		if call := accumulator.AppendDelta(0, "", "", `{"query": "go iterators"`); call != nil {
			t.Fatalf("truncated arguments completed early: %+v", call)
		}

		call := accumulator.FinishBlock(0)
		if call == nil {
			t.Fatal("expected a completed tool call")
		}
		var args map[string]string
		if err := json.Unmarshal(call.Input, &args); err != nil {
			t.Fatalf("repaired arguments not valid JSON: %v", err)
		}
		if args["query"] != "go iterators" {
			t.Errorf("repaired arguments: got %v", args)
		}
	})

	t.Run("empty arguments → empty object", func(t *testing.T) {
		accumulator := NewToolCallAccumulator()
		accumulator.StartBlock(0, "call_1", "ping")

		call := accumulator.FinishBlock(0)
		if call == nil {
			t.Fatal("expected a completed tool call")
		}
		if string(call.Input) != "{}" {
			t.Errorf("arguments: got %s, want {}", call.Input)
		}
	})
}

// TestToolCallAccumulator_ImplicitStart verifies that deltas carrying id
// and name fragments open a block implicitly, matching backends that send
// metadata on the first delta instead of a separate start event.
func TestToolCallAccumulator_ImplicitStart(t *testing.T) {
	accumulator := NewToolCallAccumulator()
	if call := accumulator.AppendDelta(2, "call_9", "get_", ""); call != nil {
		t.Fatalf("empty arguments completed early: %+v", call)
	}

	call := accumulator.AppendDelta(2, "", "time", `{"zone":"UTC"}`)
	if call == nil {
		t.Fatal("expected a completed tool call")
	}
	if call.Name != "get_time" {
		t.Errorf("name fragments: got %q, want %q", call.Name, "get_time")
	}
	if call.ID != "call_9" {
		t.Errorf("id: got %q, want %q", call.ID, "call_9")
	}
}

// TestToolCallAccumulator_NamelessDeltaStaysPending verifies valid argument
// JSON does not complete a block before a name has arrived; such blocks are
// dropped at the end if the name never shows up.
func TestToolCallAccumulator_NamelessDeltaStaysPending(t *testing.T) {
	accumulator := NewToolCallAccumulator()
	if call := accumulator.AppendDelta(0, "call_1", "", `{"city":"Paris"}`); call != nil {
		t.Fatalf("nameless block completed: %+v", call)
	}
	if calls := accumulator.FinishAll(); calls != nil {
		t.Errorf("expected nameless block dropped, got %+v", calls)
	}
}

// TestToolCallAccumulator_FinishAll verifies that still-open tool calls
// close in ascending index order at end of stream.
func TestToolCallAccumulator_FinishAll(t *testing.T) {
	accumulator := NewToolCallAccumulator()
	accumulator.StartBlock(1, "call_b", "second")
	accumulator.AppendDelta(1, "", "", `{"b":`)
	accumulator.StartBlock(0, "call_a", "first")
	accumulator.AppendDelta(0, "", "", `{"a":`)

	calls := accumulator.FinishAll()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].Name != "first" || calls[1].Name != "second" {
		t.Errorf("order: got [%q, %q]", calls[0].Name, calls[1].Name)
	}
	if remaining := accumulator.FinishAll(); remaining != nil {
		t.Errorf("expected accumulator drained, got %d calls", len(remaining))
	}
}

// TestToolCallAccumulator_FinishUnknownIndex verifies that finishing an
// index that was never opened returns nil instead of a phantom call.
func TestToolCallAccumulator_FinishUnknownIndex(t *testing.T) {
	accumulator := NewToolCallAccumulator()
	if call := accumulator.FinishBlock(5); call != nil {
		t.Errorf("expected nil for unknown index, got %+v", call)
	}
}
