package ai

import "fmt"

// ResolvedChoiceMode is the backend-neutral outcome of tool-choice
// resolution, mapped by each adapter onto its own wire vocabulary.
type ResolvedChoiceMode string

const (
	ResolvedChoiceAuto ResolvedChoiceMode = "auto"
	ResolvedChoiceAny  ResolvedChoiceMode = "any"
	ResolvedChoiceNone ResolvedChoiceMode = "none"
	ResolvedChoiceTool ResolvedChoiceMode = "tool"
)

// ResolvedToolChoice is the result of resolving a caller's tool-choice mode
// against the request's tool list and thinking setting.
type ResolvedToolChoice struct {
	Mode ResolvedChoiceMode
	// ForcedName is set only when Mode is ResolvedChoiceTool.
	ForcedName string
}

// ResolveToolChoice maps the caller's mode to the backend-neutral form.
//
// Required with exactly one tool becomes a forced call of that tool.
// Required combined with thinking degrades to auto: forced tool use
// disables thinking upstream, and thinking wins. Required with no tools
// is a caller error.
func ResolveToolChoice(mode ToolChoiceMode, thinkingEnabled bool, tools []ToolDescription) (ResolvedToolChoice, error) {
	switch mode {
	case ToolChoiceNone:
		return ResolvedToolChoice{Mode: ResolvedChoiceNone}, nil

	case ToolChoiceRequired:
		if len(tools) == 0 {
			return ResolvedToolChoice{}, fmt.Errorf("%w: tool choice is required", ErrNoToolsForRequiredChoice)
		}
		if thinkingEnabled {
			return ResolvedToolChoice{Mode: ResolvedChoiceAuto}, nil
		}
		if len(tools) == 1 {
			return ResolvedToolChoice{Mode: ResolvedChoiceTool, ForcedName: tools[0].Name}, nil
		}
		return ResolvedToolChoice{Mode: ResolvedChoiceAny}, nil

	case ToolChoiceAuto, "":
		return ResolvedToolChoice{Mode: ResolvedChoiceAuto}, nil

	default:
		return ResolvedToolChoice{}, fmt.Errorf("unknown tool choice mode %q", mode)
	}
}
