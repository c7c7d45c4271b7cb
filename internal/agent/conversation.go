// File: internal/agent/conversation.go
package agent

import "github.com/xkilldash9x/webpilot-cli/api/schemas"

// Conversation holds the ordered history of turns exchanged with the
// oracle. The full history is retained for reporting, but only the most
// recent window of turns is ever transmitted outward, bounding request size
// regardless of session length.
type Conversation struct {
	turns  []schemas.ConversationTurn
	window int
}

// NewConversation creates a conversation with the given transmit window.
func NewConversation(window int) *Conversation {
	if window <= 0 {
		window = 3
	}
	return &Conversation{window: window}
}

// Append adds a user-role turn with optional screenshot attachment.
func (c *Conversation) Append(text, imageB64 string) {
	c.turns = append(c.turns, schemas.ConversationTurn{
		Role:     "user",
		Text:     text,
		ImageB64: imageB64,
	})
}

// Window returns a copy of the most recent turns, capped at the configured
// window size.
func (c *Conversation) Window() []schemas.ConversationTurn {
	start := 0
	if len(c.turns) > c.window {
		start = len(c.turns) - c.window
	}
	out := make([]schemas.ConversationTurn, len(c.turns)-start)
	copy(out, c.turns[start:])
	return out
}

// Len reports the total number of turns retained.
func (c *Conversation) Len() int {
	return len(c.turns)
}
