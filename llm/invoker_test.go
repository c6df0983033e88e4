package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// mockLLM is a mock implementation of llms.Model for testing.
type mockLLM struct {
	response string
	err      error
	requests [][]llms.MessageContent
	options  []llms.CallOptions
}

func (m *mockLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.requests = append(m.requests, messages)
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	m.options = append(m.options, opts)

	if m.err != nil {
		return nil, m.err
	}
	if opts.StreamingFunc != nil {
		for _, r := range m.response {
			if err := opts.StreamingFunc(ctx, []byte(string(r))); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.response}},
	}, nil
}

func (m *mockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

type productOut struct {
	ProductName string   `json:"product_name"`
	Summary     string   `json:"summary"`
	Pros        []string `json:"pros"`
}

func (productOut) RequiredFields() []string {
	return []string{"product_name", "summary"}
}

func TestInvokeDecodesCleanJSON(t *testing.T) {
	model := &mockLLM{response: `{"product_name":"X1","summary":"light laptop","pros":["light"]}`}
	inv := NewInvoker(model, WithModelName("gpt-4o"))

	var out productOut
	require.NoError(t, inv.Invoke(context.Background(), []Message{User("describe")}, &out))
	assert.Equal(t, "X1", out.ProductName)
	assert.Equal(t, []string{"light"}, out.Pros)

	require.Len(t, model.options, 1)
	assert.True(t, model.options[0].JSONMode)
	assert.Equal(t, "gpt-4o", model.options[0].Model)
}

func TestInvokeRepairsFencedJSON(t *testing.T) {
	model := &mockLLM{response: "```json\n{\"product_name\":\"X1\",\"summary\":\"ok\"}\n```"}
	inv := NewInvoker(model)

	var out productOut
	require.NoError(t, inv.Invoke(context.Background(), []Message{User("describe")}, &out))
	assert.Equal(t, "X1", out.ProductName)
}

func TestInvokeRepairsJSONWithProse(t *testing.T) {
	model := &mockLLM{response: `Here is the result: {"product_name":"X1","summary":"ok"} hope it helps`}
	inv := NewInvoker(model)

	var out productOut
	require.NoError(t, inv.Invoke(context.Background(), []Message{User("describe")}, &out))
	assert.Equal(t, "ok", out.Summary)
}

func TestInvokeMissingRequiredField(t *testing.T) {
	model := &mockLLM{response: `{"product_name":"X1","summary":null}`}
	inv := NewInvoker(model, WithProvider("openai"), WithModelName("gpt-4o"))

	var out productOut
	err := inv.Invoke(context.Background(), []Message{User("describe this product page")}, &out)
	require.Error(t, err)

	var invErr *InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, []string{"summary"}, invErr.MissingFields)
	assert.Equal(t, "openai", invErr.Provider)
	assert.Equal(t, "gpt-4o", invErr.Model)
	assert.Equal(t, len("describe this product page"), invErr.PromptChars)
	assert.NotContains(t, err.Error(), "describe this product page", "prompt text stays out of errors")
}

func TestInvokeUnrepairableReply(t *testing.T) {
	model := &mockLLM{response: "I cannot answer that."}
	inv := NewInvoker(model)

	var out productOut
	err := inv.Invoke(context.Background(), []Message{User("describe")}, &out)
	var invErr *InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Empty(t, invErr.MissingFields)
}

func TestInvokeModelError(t *testing.T) {
	boom := errors.New("rate limited")
	model := &mockLLM{err: boom}
	inv := NewInvoker(model)

	var out productOut
	err := inv.Invoke(context.Background(), []Message{User("describe")}, &out)
	assert.ErrorIs(t, err, boom)
}

func TestGenerate(t *testing.T) {
	model := &mockLLM{response: "free text answer"}
	inv := NewInvoker(model, WithTemperature(0.7), WithMaxTokens(256))

	text, err := inv.Generate(context.Background(), []Message{
		System("be brief"),
		User("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "free text answer", text)

	require.Len(t, model.options, 1)
	assert.InDelta(t, 0.7, model.options[0].Temperature, 1e-9)
	assert.Equal(t, 256, model.options[0].MaxTokens)
	assert.False(t, model.options[0].JSONMode)
}

func TestGenerateStream(t *testing.T) {
	model := &mockLLM{response: "hello"}
	inv := NewInvoker(model)

	var chunks []string
	full, err := inv.GenerateStream(context.Background(), []Message{User("hi")}, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", full)
	assert.Equal(t, []string{"h", "e", "l", "l", "o"}, chunks)
}

func TestGenerateStreamConsumerError(t *testing.T) {
	model := &mockLLM{response: "hello"}
	inv := NewInvoker(model)

	stop := errors.New("client gone")
	_, err := inv.GenerateStream(context.Background(), []Message{User("hi")}, func(string) error {
		return stop
	})
	assert.ErrorIs(t, err, stop)
}

func TestRepairJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"already valid", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"embedded in prose", `sure: {"a":1} done`, `{"a":1}`},
		{"hopeless", "no json here", "no json here"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, repairJSON(tc.in))
		})
	}
}
