package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// DecisionEngine defines the decision surface driven by adapters (e.g., HTTP, MCP).
// Implementations are stateless between calls and safe for concurrent use.
type DecisionEngine interface {
	// Parse decodes and validates a tree document.
	Parse(data []byte) (*domain.Tree, error)

	// Decide evaluates a parsed tree against a partial context at time t (nil means now).
	Decide(ctx context.Context, tree *domain.Tree, partial domain.Context, t *domain.Time) (*domain.Decision, error)

	// DecideByID loads, parses and evaluates the tree stored under id.
	DecideByID(ctx context.Context, id string, partial domain.Context, t *domain.Time) (*domain.Decision, error)

	// DecideGeneratorByID merges the decisions of the stored trees accepted by gen.
	DecideGeneratorByID(ctx context.Context, gen domain.Generator, partial domain.Context, t *domain.Time) (*domain.Decision, error)

	// ListTrees returns the IDs of the stored trees.
	ListTrees(ctx context.Context) ([]string, error)
}
