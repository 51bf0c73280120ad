// Package tokencount estimates token usage for request budgeting when a
// backend reports no usage accounting of its own. A tiktoken encoding gives a
// close estimate where one is available; the shared length/4 heuristic is the
// universal fallback.
package tokencount

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// fallbackEncoding approximates modern chat models well enough for budget
// estimates when the model id is unknown to tiktoken.
const fallbackEncoding = "cl100k_base"

// Estimate returns the fixed heuristic estimate shared by all adapters:
// text length divided by four, rounded up. It never fails and is the
// fallback when no encoding is available.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// Counter estimates token counts using a tiktoken encoding.
type Counter struct {
	encoding *tiktoken.Tiktoken
}

// NewCounter creates a Counter for the given model id, falling back to the
// cl100k_base encoding for models tiktoken does not know.
func NewCounter(model string) (*Counter, error) {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Counter{encoding: encoding}, nil
}

// Count returns the token count for text under the counter's encoding.
// A nil Counter degrades to the heuristic estimate.
func (c *Counter) Count(text string) int {
	if c == nil || c.encoding == nil {
		return Estimate(text)
	}
	return len(c.encoding.Encode(text, nil, nil))
}
