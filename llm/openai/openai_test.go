package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := New()
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestGenerateContent(t *testing.T) {
	var gotReq goopenai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"choices": [{"message": {"role": "assistant", "content": "hello there"}, "finish_reason": "stop"}]
		}`)
	}))
	defer server.Close()

	llm, err := New(
		WithAPIKey("test-key"),
		WithModel("gpt-4o-mini"),
		WithBaseURL(server.URL+"/v1"),
	)
	require.NoError(t, err)

	resp, err := llm.GenerateContent(context.Background(),
		[]llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, "be brief"),
			llms.TextParts(llms.ChatMessageTypeHuman, "hi"),
		},
		llms.WithTemperature(0.3),
		llms.WithMaxTokens(64),
		llms.WithJSONMode(),
	)
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "hello there", resp.Choices[0].Content)
	assert.Equal(t, "stop", resp.Choices[0].StopReason)

	assert.Equal(t, "gpt-4o-mini", gotReq.Model)
	assert.Equal(t, 64, gotReq.MaxTokens)
	assert.InDelta(t, 0.3, gotReq.Temperature, 1e-6)
	require.NotNil(t, gotReq.ResponseFormat)
	assert.Equal(t, goopenai.ChatCompletionResponseFormatTypeJSONObject, gotReq.ResponseFormat.Type)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, goopenai.ChatMessageRoleSystem, gotReq.Messages[0].Role)
	assert.Equal(t, "hi", gotReq.Messages[1].Content)
}

func TestGenerateContentStreaming(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{"hel", "lo"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	llm, err := New(WithAPIKey("test-key"), WithBaseURL(server.URL+"/v1"))
	require.NoError(t, err)

	var streamed string
	resp, err := llm.GenerateContent(context.Background(),
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, "hi")},
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			streamed += string(chunk)
			return nil
		}),
	)
	require.NoError(t, err)
	assert.Equal(t, "hello", streamed)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "hello", resp.Choices[0].Content)
}

func TestCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices": [{"message": {"role": "assistant", "content": "pong"}}]}`)
	}))
	defer server.Close()

	llm, err := New(WithAPIKey("test-key"), WithBaseURL(server.URL+"/v1"))
	require.NoError(t, err)

	out, err := llm.Call(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", out)
}
