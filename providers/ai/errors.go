package ai

import "errors"

var (
	// ErrNoToolsForRequiredChoice is returned when tool choice is set to
	// required but the request carries no tools.
	ErrNoToolsForRequiredChoice = errors.New("no tools available")

	// ErrThinkingBudgetTooLarge is returned when the thinking token budget
	// meets or exceeds the maximum output tokens, which leaves no room for
	// the visible answer.
	ErrThinkingBudgetTooLarge = errors.New("thinking budget must be smaller than max output tokens")

	// ErrNoMessages is returned when a request has no messages after
	// normalization.
	ErrNoMessages = errors.New("request has no messages")

	// ErrMissingModel is returned when a request names no model.
	ErrMissingModel = errors.New("request has no model")
)

// ValidateRequest runs the synchronous checks shared by every adapter.
// Failures here are caller errors and surface before any network traffic.
func ValidateRequest(request ChatRequest) error {
	if request.Model == "" {
		return ErrMissingModel
	}
	if len(request.Messages) == 0 {
		return ErrNoMessages
	}
	if request.Thinking != nil && request.Thinking.Enabled {
		budget := request.Thinking.BudgetTokens
		maxOut := 0
		if request.GenerationConfig != nil {
			maxOut = request.GenerationConfig.MaxOutputTokens
		}
		if budget > 0 && maxOut > 0 && budget >= maxOut {
			return ErrThinkingBudgetTooLarge
		}
	}
	if request.ToolChoice == ToolChoiceRequired && len(request.Tools) == 0 {
		return ErrNoToolsForRequiredChoice
	}
	return nil
}
