package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyResponse is returned when the model produced no choices.
var ErrEmptyResponse = errors.New("model returned no response")

// InvocationError describes a failed structured invocation with enough
// context to debug it without logging the full prompt.
type InvocationError struct {
	Provider    string
	Model       string
	PromptChars int

	// MissingFields is set when the model answered with valid JSON that
	// lacks required fields.
	MissingFields []string

	Err error
}

func (e *InvocationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "llm invocation failed (provider=%s model=%s prompt_chars=%d)",
		e.Provider, e.Model, e.PromptChars)
	if len(e.MissingFields) > 0 {
		fmt.Fprintf(&b, ": missing required fields %v", e.MissingFields)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}
