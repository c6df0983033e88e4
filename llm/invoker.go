package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/shopscout/agent/log"
)

// Schema is implemented by structured output types. RequiredFields names the
// top-level JSON fields the model must produce; an answer missing any of
// them fails the invocation even when it parses.
type Schema interface {
	RequiredFields() []string
}

// Invoker calls a chat model and decodes its answers. It is safe for
// concurrent use.
type Invoker struct {
	model       llms.Model
	provider    string
	modelName   string
	temperature float64
	maxTokens   int
	logger      log.Logger
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithProvider records the provider name used in error context.
func WithProvider(provider string) InvokerOption {
	return func(inv *Invoker) { inv.provider = provider }
}

// WithModelName records the model name used in error context and requests.
func WithModelName(name string) InvokerOption {
	return func(inv *Invoker) { inv.modelName = name }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) InvokerOption {
	return func(inv *Invoker) { inv.temperature = t }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) InvokerOption {
	return func(inv *Invoker) { inv.maxTokens = n }
}

// WithLogger sets the invoker logger.
func WithLogger(logger log.Logger) InvokerOption {
	return func(inv *Invoker) { inv.logger = logger }
}

// NewInvoker wraps a model.
func NewInvoker(model llms.Model, opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		model:       model,
		provider:    "openai",
		temperature: 0.1,
		logger:      log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

func (inv *Invoker) callOptions(extra ...llms.CallOption) []llms.CallOption {
	opts := []llms.CallOption{llms.WithTemperature(inv.temperature)}
	if inv.modelName != "" {
		opts = append(opts, llms.WithModel(inv.modelName))
	}
	if inv.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(inv.maxTokens))
	}
	return append(opts, extra...)
}

// Generate returns the model's free-text answer for a conversation.
func (inv *Invoker) Generate(ctx context.Context, messages []Message) (string, error) {
	resp, err := inv.model.GenerateContent(ctx, ToContent(messages), inv.callOptions()...)
	if err != nil {
		return "", inv.wrap(messages, nil, err)
	}
	if len(resp.Choices) == 0 {
		return "", inv.wrap(messages, nil, ErrEmptyResponse)
	}
	return resp.Choices[0].Content, nil
}

// GenerateStream streams the model's answer chunk by chunk through fn and
// returns the full text. fn returning an error aborts the stream.
func (inv *Invoker) GenerateStream(ctx context.Context, messages []Message, fn func(chunk string) error) (string, error) {
	var full strings.Builder
	streaming := llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		full.Write(chunk)
		return fn(string(chunk))
	})
	resp, err := inv.model.GenerateContent(ctx, ToContent(messages), inv.callOptions(streaming)...)
	if err != nil {
		return "", inv.wrap(messages, nil, err)
	}
	if full.Len() > 0 {
		return full.String(), nil
	}
	// Models without native streaming answer in one piece.
	if len(resp.Choices) == 0 {
		return "", inv.wrap(messages, nil, ErrEmptyResponse)
	}
	content := resp.Choices[0].Content
	if content != "" {
		if err := fn(content); err != nil {
			return "", err
		}
	}
	return content, nil
}

// Invoke asks the model for a JSON answer and decodes it into out. A reply
// that is not valid JSON gets one repair pass (code fences stripped, the
// outermost object extracted) before the invocation fails. Replies missing
// any of the schema's required fields fail with the fields named.
func (inv *Invoker) Invoke(ctx context.Context, messages []Message, out Schema) error {
	resp, err := inv.model.GenerateContent(ctx, ToContent(messages),
		inv.callOptions(llms.WithJSONMode())...)
	if err != nil {
		return inv.wrap(messages, nil, err)
	}
	if len(resp.Choices) == 0 {
		return inv.wrap(messages, nil, ErrEmptyResponse)
	}
	raw := resp.Choices[0].Content

	payload := raw
	if !json.Valid([]byte(payload)) {
		payload = repairJSON(raw)
		if payload != raw {
			inv.logger.Debug("repaired malformed model reply (%d chars)", len(raw))
		}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return inv.wrap(messages, nil, fmt.Errorf("model reply is not a JSON object: %w", err))
	}

	var missing []string
	for _, f := range out.RequiredFields() {
		v, ok := fields[f]
		if !ok || string(v) == "null" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return inv.wrap(messages, missing, fmt.Errorf("incomplete structured reply"))
	}

	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return inv.wrap(messages, nil, fmt.Errorf("failed to decode structured reply: %w", err))
	}
	return nil
}

func (inv *Invoker) wrap(messages []Message, missing []string, err error) error {
	chars := 0
	for _, m := range messages {
		chars += len(m.Content)
	}
	return &InvocationError{
		Provider:      inv.provider,
		Model:         inv.modelName,
		PromptChars:   chars,
		MissingFields: missing,
		Err:           err,
	}
}

// repairJSON recovers a JSON object from a reply wrapped in markdown fences
// or surrounding prose. It returns the input unchanged when no object can be
// isolated.
func repairJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if after, ok := strings.CutPrefix(s, "```json"); ok {
		s = after
	} else if after, ok := strings.CutPrefix(s, "```"); ok {
		s = after
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = strings.TrimSpace(s)
	if json.Valid([]byte(s)) {
		return s
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		candidate := s[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate
		}
	}
	return raw
}
