// Package ai wraps the text-completion backend used for reply suggestions.
package ai

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no completion credential is available.
var ErrNotConfigured = errors.New("ai: completion backend not configured")

// Completer produces a single completion for a system and user prompt.
// Implementations must honour ctx cancellation.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, system, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}
