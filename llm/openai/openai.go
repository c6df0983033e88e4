// Package openai implements the langchaingo llms.Model interface on top of
// the sashabaranov/go-openai client, so any OpenAI-compatible endpoint can
// back a workflow.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
)

// ErrNoAPIKey is returned by New when no API key is configured.
var ErrNoAPIKey = errors.New("openai: api key not set")

// LLM is a chat model backed by an OpenAI-compatible API.
type LLM struct {
	client *goopenai.Client
	model  string
}

var _ llms.Model = (*LLM)(nil)

// New creates a client. The API key comes from WithAPIKey or the
// OPENAI_API_KEY environment variable.
func New(opts ...Option) (*LLM, error) {
	o := &options{
		apiKey: getEnvOrDefault("OPENAI_API_KEY", ""),
		model:  goopenai.GPT4o,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	cfg := goopenai.DefaultConfig(o.apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.httpClient != nil {
		cfg.HTTPClient = o.httpClient
	}

	return &LLM{
		client: goopenai.NewClientWithConfig(cfg),
		model:  o.model,
	}, nil
}

// Call generates a response for a single prompt.
func (o *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, o, prompt, options...)
}

// GenerateContent implements the llms.Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := &llms.CallOptions{}
	for _, opt := range options {
		opt(opts)
	}

	req := goopenai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    convertMessages(messages),
		Temperature: float32(opts.Temperature),
	}
	if opts.Model != "" {
		req.Model = opts.Model
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.JSONMode {
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	if opts.StreamingFunc != nil {
		return o.generateStream(ctx, req, opts.StreamingFunc)
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}

	choices := make([]*llms.ContentChoice, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		choices = append(choices, &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: string(c.FinishReason),
		})
	}
	return &llms.ContentResponse{Choices: choices}, nil
}

func (o *LLM) generateStream(ctx context.Context, req goopenai.ChatCompletionRequest, fn func(ctx context.Context, chunk []byte) error) (*llms.ContentResponse, error) {
	req.Stream = true
	stream, err := o.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai chat stream: %w", err)
	}
	defer stream.Close()

	var full []byte
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("openai chat stream recv: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		chunk := []byte(resp.Choices[0].Delta.Content)
		if len(chunk) == 0 {
			continue
		}
		full = append(full, chunk...)
		if err := fn(ctx, chunk); err != nil {
			return nil, err
		}
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: string(full)}},
	}, nil
}

func convertMessages(messages []llms.MessageContent) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		role := goopenai.ChatMessageRoleUser
		switch msg.Role {
		case llms.ChatMessageTypeSystem:
			role = goopenai.ChatMessageRoleSystem
		case llms.ChatMessageTypeAI:
			role = goopenai.ChatMessageRoleAssistant
		case llms.ChatMessageTypeTool:
			role = goopenai.ChatMessageRoleTool
		}

		var content string
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				content += text.Text
			}
		}
		out = append(out, goopenai.ChatCompletionMessage{Role: role, Content: content})
	}
	return out
}
