package ai

import "strings"

// placeholderText stands in wherever a backend would otherwise receive an
// empty text block, which every supported backend rejects.
const placeholderText = "..."

// NormalizeConversation prepares raw caller messages for wire conversion:
//
//  1. leading system messages are extracted into a separate system prompt;
//  2. cache markers are attached to their preceding part, or materialized as
//     a placeholder text part when no compatible part precedes them;
//  3. consecutive same-role messages are merged by concatenating parts;
//  4. if the first remaining message is not from the user, a synthetic user
//     message with a placeholder text part is prepended — every supported
//     backend rejects assistant-first conversations.
//
// The returned slice never has two consecutive entries with the same role
// and, when non-empty, always starts with a user message.
func NormalizeConversation(messages []Message) (systemPrompt string, normalized []Message) {
	rest := messages

	// Extract leading system content.
	var systemParts []string
	for len(rest) > 0 && rest[0].Role == RoleSystem {
		for _, part := range rest[0].Parts {
			if part.Type == ContentTypeText && part.Text != "" {
				systemParts = append(systemParts, part.Text)
			}
		}
		rest = rest[1:]
	}
	systemPrompt = strings.Join(systemParts, "\n")

	for _, message := range rest {
		role := message.Role
		// Non-leading system messages have no wire representation of their
		// own; treat them as user turns rather than dropping them silently.
		if role == RoleSystem {
			role = RoleUser
		}

		parts := attachCacheMarkers(message.Parts)
		if len(parts) == 0 {
			continue
		}

		if len(normalized) > 0 && normalized[len(normalized)-1].Role == role {
			last := &normalized[len(normalized)-1]
			last.Parts = append(last.Parts, parts...)
			continue
		}

		normalized = append(normalized, Message{Role: role, Parts: parts})
	}

	if len(normalized) > 0 && normalized[0].Role != RoleUser {
		normalized = append([]Message{{
			Role:  RoleUser,
			Parts: []ContentPart{NewTextPart(placeholderText)},
		}}, normalized...)
	}

	return systemPrompt, normalized
}

// attachCacheMarkers folds cache_marker parts into a CacheHint on the
// preceding compatible part. A marker with no prior compatible part becomes
// a placeholder text part carrying the hint, never an empty string.
func attachCacheMarkers(parts []ContentPart) []ContentPart {
	var out []ContentPart
	for _, part := range parts {
		if part.Type != ContentTypeCacheMarker {
			out = append(out, part)
			continue
		}

		if last := lastCacheablePart(out); last != nil {
			last.CacheHint = true
			continue
		}

		placeholder := NewTextPart(placeholderText)
		placeholder.CacheHint = true
		out = append(out, placeholder)
	}
	return out
}

// lastCacheablePart returns the most recent part that can carry a cache
// hint, or nil. Thinking blocks cannot: cache_control on them is rejected
// upstream.
func lastCacheablePart(parts []ContentPart) *ContentPart {
	for i := len(parts) - 1; i >= 0; i-- {
		switch parts[i].Type {
		case ContentTypeText, ContentTypeImage, ContentTypeToolCall, ContentTypeToolResult:
			return &parts[i]
		}
	}
	return nil
}
