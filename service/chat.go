package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shopscout/agent/flows"
	"github.com/shopscout/agent/graph"
	"github.com/shopscout/agent/llm"
	"github.com/shopscout/agent/store"
)

// ChatSession is the result of opening a chat session.
type ChatSession struct {
	SessionID string

	// Welcome is the assistant's opening message, already part of the
	// session history.
	Welcome string
}

// ChatReply is the assistant's answer to one message.
type ChatReply struct {
	Answer  string
	Sources []string
}

// ChatEventType discriminates streamed chat events.
type ChatEventType string

const (
	// ChatEventToken carries one streamed answer chunk.
	ChatEventToken ChatEventType = "token"

	// ChatEventDone closes a stream with the full answer and its sources.
	ChatEventDone ChatEventType = "done"

	// ChatEventError closes a stream after a failure.
	ChatEventError ChatEventType = "error"
)

// ChatEvent is one event on a streamed chat reply. A stream is zero or more
// token events followed by exactly one done or error event.
type ChatEvent struct {
	Type    ChatEventType `json:"type"`
	Token   string        `json:"token,omitempty"`
	Answer  string        `json:"answer,omitempty"`
	Sources []string      `json:"sources,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// StartChat opens a chat session over collected products. The welcome
// message is seeded into the history so clients can render it immediately.
func (s *Service) StartChat(ctx context.Context, category string, products []flows.ProductContext) (*ChatSession, error) {
	sessionID := uuid.NewString()
	if category == "" {
		category = "제품"
	}
	welcome := flows.WelcomeMessage(category)

	cp := &store.Checkpoint{
		SessionID: sessionID,
		State: map[string]any{
			flows.KeyCategory: category,
			flows.KeyProducts: products,
			flows.KeyMessages: []llm.Message{llm.Assistant(welcome)},
		},
		PendingNode: flows.NodeChat,
		UpdatedAt:   time.Now(),
		Version:     1,
	}
	if err := s.deps.Store.Put(ctx, cp); err != nil {
		return nil, fmt.Errorf("creating chat session: %w", err)
	}

	s.deps.Logger.Info("chat session %s started with %d products", sessionID, len(products))
	return &ChatSession{SessionID: sessionID, Welcome: welcome}, nil
}

// SendMessage appends the user's message to the session and returns the
// assistant's answer.
func (s *Service) SendMessage(ctx context.Context, sessionID, text string) (*ChatReply, error) {
	if _, err := s.deps.Store.Get(ctx, sessionID); err != nil {
		return nil, sessionErr(sessionID, err)
	}

	result, err := s.chat.Run(ctx, sessionID, graph.State{
		flows.KeyMessages: []llm.Message{llm.User(text)},
	})
	if err != nil {
		return nil, err
	}
	return replyFromResult(result)
}

// SendMessageStream is SendMessage with a streamed answer: token events as
// the model produces them, then one terminal done or error event. The
// channel closes after the terminal event. Cancelling ctx abandons the
// stream; the run itself still finishes and checkpoints the turn.
func (s *Service) SendMessageStream(ctx context.Context, sessionID, text string) (<-chan ChatEvent, error) {
	if _, err := s.deps.Store.Get(ctx, sessionID); err != nil {
		return nil, sessionErr(sessionID, err)
	}

	events := make(chan ChatEvent, 16)

	// Events are dropped once the caller cancels, never blocking the run
	// behind a full buffer.
	emit := func(ev ChatEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	// The run is detached from the caller's cancellation so the turn is
	// checkpointed even when the stream is abandoned mid-answer. The
	// per-run sink keeps the shared chat graph serializing the session.
	runCtx := flows.WithTokenSink(context.WithoutCancel(ctx), func(chunk string) {
		emit(ChatEvent{Type: ChatEventToken, Token: chunk})
	})

	go func() {
		defer close(events)

		result, err := s.chat.Run(runCtx, sessionID, graph.State{
			flows.KeyMessages: []llm.Message{llm.User(text)},
		})
		if err != nil {
			emit(ChatEvent{Type: ChatEventError, Error: err.Error()})
			return
		}
		reply, err := replyFromResult(result)
		if err != nil {
			emit(ChatEvent{Type: ChatEventError, Error: err.Error()})
			return
		}
		emit(ChatEvent{
			Type:    ChatEventDone,
			Answer:  reply.Answer,
			Sources: reply.Sources,
		})
	}()
	return events, nil
}

// ChatHistory returns the full message history of a chat session.
func (s *Service) ChatHistory(ctx context.Context, sessionID string) ([]llm.Message, error) {
	result, err := s.GetState(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return llm.MessagesFromState(result.State, flows.KeyMessages), nil
}

func replyFromResult(result *graph.Result) (*ChatReply, error) {
	messages := llm.MessagesFromState(result.State, flows.KeyMessages)
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleAssistant {
			return &ChatReply{
				Answer:  messages[i].Content,
				Sources: result.State.StringSlice(flows.KeySources),
			}, nil
		}
	}
	return nil, fmt.Errorf("no assistant reply in session %s", result.SessionID)
}
