package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/shopscout/agent/graph"
)

func TestToContent(t *testing.T) {
	content := ToContent([]Message{
		System("rules"),
		User("question"),
		Assistant("answer"),
	})
	require.Len(t, content, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, content[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, content[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, content[2].Role)
	assert.Equal(t, llms.TextContent{Text: "question"}, content[1].Parts[0])
}

func TestMessagesFromState(t *testing.T) {
	t.Run("typed", func(t *testing.T) {
		state := graph.State{"messages": []Message{User("hi")}}
		msgs := MessagesFromState(state, "messages")
		require.Len(t, msgs, 1)
		assert.Equal(t, "hi", msgs[0].Content)
	})

	t.Run("after store round trip", func(t *testing.T) {
		state := graph.State{"messages": []any{
			map[string]any{"role": "user", "content": "hi"},
			map[string]any{"role": "assistant", "content": "hello"},
		}}
		msgs := MessagesFromState(state, "messages")
		require.Len(t, msgs, 2)
		assert.Equal(t, RoleAssistant, msgs[1].Role)
		assert.Equal(t, "hello", msgs[1].Content)
	})

	t.Run("absent", func(t *testing.T) {
		assert.Nil(t, MessagesFromState(graph.State{}, "messages"))
	})
}

func TestTrimMessages(t *testing.T) {
	msgs := []Message{User("1"), Assistant("2"), User("3")}
	assert.Len(t, TrimMessages(msgs, 2), 2)
	assert.Equal(t, "2", TrimMessages(msgs, 2)[0].Content)
	assert.Len(t, TrimMessages(msgs, 10), 3)
	assert.Len(t, TrimMessages(msgs, 0), 3)
}
