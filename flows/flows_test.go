package flows

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/shopscout/agent/llm"
)

// fakeInvoker answers structured invocations by matching a marker substring
// of the system prompt against canned replies.
type fakeInvoker struct {
	mu sync.Mutex

	// replies maps a system prompt substring to the value encoded into out.
	replies map[string]any

	// fails maps a system prompt substring to a forced error.
	fails map[string]error

	generateText string
	generateErr  error

	invocations []string
	generated   [][]llm.Message
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{
		replies: make(map[string]any),
		fails:   make(map[string]error),
	}
}

// Marker substrings of the workflow system prompts.
const (
	markValidate = "단일 제품 상세 페이지인지 판단"
	markFilter   = "유용한 이미지만 선별"
	markAnalyze  = "구조화된 제품 분석"
	markCriteria = "비교 가능한 모든 기준을 추출"
	markReport   = "맞춤형 비교 보고서"
)

func (f *fakeInvoker) Invoke(ctx context.Context, messages []llm.Message, out llm.Schema) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	system := messages[0].Content
	for marker, err := range f.fails {
		if strings.Contains(system, marker) {
			f.invocations = append(f.invocations, marker)
			return err
		}
	}
	for marker, reply := range f.replies {
		if strings.Contains(system, marker) {
			f.invocations = append(f.invocations, marker)
			data, err := json.Marshal(reply)
			if err != nil {
				return err
			}
			return json.Unmarshal(data, out)
		}
	}
	return errors.New("no canned reply for prompt")
}

func (f *fakeInvoker) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated = append(f.generated, messages)
	return f.generateText, f.generateErr
}

func (f *fakeInvoker) GenerateStream(ctx context.Context, messages []llm.Message, fn func(chunk string) error) (string, error) {
	f.mu.Lock()
	f.generated = append(f.generated, messages)
	text, err := f.generateText, f.generateErr
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	for _, r := range text {
		if err := fn(string(r)); err != nil {
			return "", err
		}
	}
	return text, nil
}

func (f *fakeInvoker) invoked(marker string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.invocations {
		if m == marker {
			n++
		}
	}
	return n
}

// fakeOCR maps image URLs to canned text.
type fakeOCR struct {
	mu    sync.Mutex
	texts map[string]string
	calls int
	err   error
}

func (f *fakeOCR) Process(ctx context.Context, imageURLs []string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]string, len(imageURLs))
	for _, u := range imageURLs {
		out[u] = f.texts[u]
	}
	return out, nil
}
