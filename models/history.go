package models

import "log"

// MaxModelMessages bounds how much history is replayed to the model on each
// turn. Older messages stay in the persisted record for display but are not
// part of the model context.
const MaxModelMessages = 6

// WindowHistory prepares a conversation history for the model pipeline.
// It drops marker messages that carry no model-facing content (end, followup,
// skip), keeps only the most recent max entries, and then fixes up the window
// so truncation never breaks turn structure:
//   - the window must not open on a tool message whose call was cut off
//   - if nothing usable remains, the latest user input alone is kept so the
//     model still sees some context
func WindowHistory(msgs []Message, max int) []Message {
	contextual := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Type {
		case "", TypeEnd, TypeFollowup, TypeSkip:
			continue
		}
		contextual = append(contextual, m)
	}

	if max > 0 && len(contextual) > max {
		contextual = contextual[len(contextual)-max:]
	}

	start := validStartIndex(contextual)
	if start == -1 {
		// No clean opening. Fall back to the most recent user input, if any.
		for i := len(contextual) - 1; i >= 0; i-- {
			if contextual[i].Role == RoleUser {
				log.Printf("[HISTORY] no valid window start; keeping last user message only")
				return []Message{contextual[i]}
			}
		}
		return nil
	}
	if start > 0 {
		log.Printf("[HISTORY] skipping %d orphaned messages at window start (was role: %s)", start, contextual[0].Role)
		contextual = contextual[start:]
	}

	return contextual
}

// validStartIndex finds the first message that can open a model context
// window. Tool results at the front are orphans left behind by truncation;
// skipping them keeps every remaining tool result preceded by the user turn
// that triggered it.
func validStartIndex(msgs []Message) int {
	for i, m := range msgs {
		switch m.Role {
		case RoleUser, RoleAssistant:
			return i
		case RoleTool:
			continue
		default:
			return i
		}
	}
	return -1
}
