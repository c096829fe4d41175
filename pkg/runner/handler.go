package runner

import (
	"context"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
)

// Result is the outcome of one input line.
type Result struct {
	// Line is the 1-based input line number.
	Line int
	// RequestID identifies the run the line belongs to.
	RequestID string
	Row       arbor.Row
	Decision  *domain.Decision
	Err       error
}

// Handler defines the strategy for presenting results.
// This allows switching between Text (CLI) and JSON (Structured) modes.
type Handler interface {
	// Handle presents one result. Results arrive in input order.
	Handle(ctx context.Context, r Result) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, r Result) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, r Result) error {
	return f(ctx, r)
}

// ContentRenderer is a function that transforms text before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)
