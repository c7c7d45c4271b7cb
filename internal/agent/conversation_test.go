// File: internal/agent/conversation_test.go
package agent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationWindowBound(t *testing.T) {
	const window = 3
	c := NewConversation(window)

	for i := 0; i < 10; i++ {
		c.Append(fmt.Sprintf("turn %d", i), "")
	}

	got := c.Window()
	require.Len(t, got, window)
	// Exactly the K most recent turns, in order.
	assert.Equal(t, "turn 7", got[0].Text)
	assert.Equal(t, "turn 8", got[1].Text)
	assert.Equal(t, "turn 9", got[2].Text)

	// The full history is still retained for reporting.
	assert.Equal(t, 10, c.Len())
}

func TestConversationWindowShorterHistory(t *testing.T) {
	c := NewConversation(3)
	c.Append("only", "img")

	got := c.Window()
	require.Len(t, got, 1)
	assert.Equal(t, "only", got[0].Text)
	assert.Equal(t, "img", got[0].ImageB64)
	assert.Equal(t, "user", got[0].Role)
}

func TestConversationWindowIsACopy(t *testing.T) {
	c := NewConversation(2)
	c.Append("a", "")
	c.Append("b", "")

	got := c.Window()
	got[0].Text = "mutated"
	assert.Equal(t, "a", c.Window()[0].Text)
}
