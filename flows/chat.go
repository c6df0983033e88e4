package flows

import (
	"context"
	"strings"

	"github.com/shopscout/agent/graph"
	"github.com/shopscout/agent/llm"
	"github.com/shopscout/agent/log"
)

// NodeChat is the single node of the chat workflow.
const NodeChat = "chat"

// maxChatHistory bounds the conversation window sent to the model.
const maxChatHistory = 20

// maxChatSources bounds the sources attached to one answer.
const maxChatSources = 10

// ChatDeps are the collaborators of the chat workflow.
type ChatDeps struct {
	Invoker ModelInvoker
	Logger  log.Logger

	// OnToken receives streamed answer chunks when set. A sink installed
	// with WithTokenSink overrides it for that run.
	OnToken func(chunk string)
}

type tokenSinkKey struct{}

// WithTokenSink attaches a per-run token sink to the context. It lets one
// compiled chat graph serve interleaved streaming and non-streaming runs;
// binding the sink into ChatDeps instead would fix it for the graph's
// lifetime.
func WithTokenSink(ctx context.Context, fn func(chunk string)) context.Context {
	return context.WithValue(ctx, tokenSinkKey{}, fn)
}

func tokenSink(ctx context.Context) func(chunk string) {
	fn, _ := ctx.Value(tokenSinkKey{}).(func(chunk string))
	return fn
}

func (d *ChatDeps) fill() {
	if d.Logger == nil {
		d.Logger = log.GetDefaultLogger()
	}
}

// NewChatGraph builds the conversational workflow over collected product
// data. Each run appends the model's answer to the message history and
// replaces sources with the products referenced by the answer. Model
// failures produce a fixed apology message instead of failing the run, so
// the conversation survives transient provider errors.
func NewChatGraph(deps ChatDeps) *graph.StateGraph {
	deps.fill()
	c := &chatFlow{deps: deps}

	g := graph.NewStateGraph()
	g.Schema().RegisterReducer(KeyMessages, llm.AppendMessages)
	g.AddNode(NodeChat, "answers questions about the compared products", c.chat)
	g.SetEntryPoint(NodeChat)
	g.AddEdge(NodeChat, graph.END)
	return g
}

type chatFlow struct {
	deps ChatDeps
}

func (c *chatFlow) chat(ctx context.Context, state graph.State) (graph.State, error) {
	history := llm.MessagesFromState(state, KeyMessages)
	if len(history) == 0 {
		return graph.State{
			KeyMessages: []llm.Message{llm.Assistant(msgChatNoQuestion)},
			KeySources:  []string{},
		}, nil
	}

	products, err := productContextsFromState(state)
	if err != nil {
		c.deps.Logger.Error("reading product context: %v", err)
	}
	category := state.String(KeyCategory)
	if category == "" {
		category = "제품"
	}

	messages := make([]llm.Message, 0, maxChatHistory+1)
	messages = append(messages, llm.System(buildChatSystemPrompt(category, products)))
	messages = append(messages, llm.TrimMessages(history, maxChatHistory)...)

	answer, err := c.generate(ctx, messages)
	if err != nil {
		c.deps.Logger.Error("chat generation failed: %v", err)
		return graph.State{
			KeyMessages: []llm.Message{llm.Assistant(msgChatFailed)},
			KeySources:  []string{},
		}, nil
	}

	return graph.State{
		KeyMessages: []llm.Message{llm.Assistant(answer)},
		KeySources:  referencedProducts(answer, products),
	}, nil
}

func (c *chatFlow) generate(ctx context.Context, messages []llm.Message) (string, error) {
	sink := tokenSink(ctx)
	if sink == nil {
		sink = c.deps.OnToken
	}
	if sink == nil {
		return c.deps.Invoker.Generate(ctx, messages)
	}
	return c.deps.Invoker.GenerateStream(ctx, messages, func(chunk string) error {
		sink(chunk)
		return nil
	})
}

// referencedProducts lists the product names the answer mentions, capped.
// Name matching against the answer text is the only grounding available:
// the completion API carries no citation metadata.
func referencedProducts(answer string, products []ProductContext) []string {
	lower := strings.ToLower(answer)
	sources := []string{}
	for _, p := range products {
		if p.ProductName == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(p.ProductName)) {
			sources = append(sources, p.ProductName)
		}
		if len(sources) == maxChatSources {
			break
		}
	}
	return sources
}

func productContextsFromState(state graph.State) ([]ProductContext, error) {
	v, ok := state[KeyProducts]
	if !ok || v == nil {
		return nil, nil
	}
	if typed, ok := v.([]ProductContext); ok {
		return typed, nil
	}
	var out []ProductContext
	err := graph.Reencode(v, &out)
	return out, err
}
