// Package llm provides the language model layer: a JSON-friendly chat message
// model and an invoker that turns free-form model output into validated,
// typed structures.
package llm

import (
	"github.com/tmc/langchaingo/llms"

	"github.com/shopscout/agent/graph"
)

// Chat roles. Stored in session state, so the values are wire-stable.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn. It survives a JSON round trip through a durable
// checkpoint store unchanged, which is why workflows store these rather than
// provider message types.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System builds a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant builds an assistant message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToContent converts messages to the langchaingo form for a model call.
func ToContent(messages []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		var role llms.ChatMessageType
		switch m.Role {
		case RoleSystem:
			role = llms.ChatMessageTypeSystem
		case RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}
		out = append(out, llms.TextParts(role, m.Content))
	}
	return out
}

// MessagesFromState reads a message history field out of session state,
// accepting both the typed form and the generic form a durable store
// produces.
func MessagesFromState(state graph.State, key string) []Message {
	v, ok := state[key]
	if !ok || v == nil {
		return nil
	}
	if typed, ok := v.([]Message); ok {
		return typed
	}
	var out []Message
	if err := graph.Reencode(v, &out); err != nil {
		return nil
	}
	return out
}

// TrimMessages keeps the most recent max messages.
func TrimMessages(messages []Message, max int) []Message {
	if max <= 0 || len(messages) <= max {
		return messages
	}
	return messages[len(messages)-max:]
}

// AppendMessages is the graph reducer for chat history: each update's
// messages are appended, never replaced. Both sides may arrive in the
// generic form a durable store produces.
func AppendMessages(current, incoming any) (any, error) {
	if incoming == nil {
		return current, nil
	}
	merged := append(coerceMessages(current), coerceMessages(incoming)...)
	return merged, nil
}

func coerceMessages(v any) []Message {
	switch m := v.(type) {
	case nil:
		return nil
	case []Message:
		return m
	case Message:
		return []Message{m}
	default:
		var out []Message
		if err := graph.Reencode(v, &out); err != nil {
			return nil
		}
		return out
	}
}
