package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Result is the outcome of one augmentation call: a typed value or the
// reason there is none. Callers branch on OK and supply their own fallback.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether Value holds a real model output.
func (r Result[T]) OK() bool { return r.Err == nil }

// Or returns Value when OK, else fallback.
func (r Result[T]) Or(fallback T) T {
	if r.Err != nil {
		return fallback
	}
	return r.Value
}

// Invoke runs a use case and decodes the schema-checked payload into T. It
// never panics and never returns a partially decoded value: any failure,
// including a nil augmenter, comes back as a failed Result.
func Invoke[T any](ctx context.Context, a Augmenter, uc UseCase, data map[string]string) Result[T] {
	if a == nil {
		return Result[T]{Err: ErrNotConfigured}
	}
	text, err := a.Complete(ctx, uc, data)
	if err != nil {
		return Result[T]{Err: err}
	}
	var v T
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return Result[T]{Err: fmt.Errorf("%s: decode response: %w", uc.Name, err)}
	}
	return Result[T]{Value: v}
}
