package runtime

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/arbor/pkg/domain"
)

// Row is one independent decision request of a batch.
type Row struct {
	Context domain.Context `json:"context"`
	Time    *domain.Time   `json:"time,omitempty"`
}

// BatchResult holds the outcome of the row at Index. Exactly one of
// Decision and Err is set.
type BatchResult struct {
	Index    int
	Decision *domain.Decision
	Err      error
}

// DecideFunc evaluates a single row against a fixed tree or generator.
type DecideFunc func(ctx context.Context, c domain.Context, t *domain.Time) (*domain.Decision, error)

// ForTree binds Decide to a tree.
func (e *Engine) ForTree(tree *domain.Tree) DecideFunc {
	return func(ctx context.Context, c domain.Context, t *domain.Time) (*domain.Decision, error) {
		return e.Decide(ctx, tree, c, t)
	}
}

// ForGenerator binds DecideGenerator to a generator and its agent trees.
func (e *Engine) ForGenerator(gen domain.Generator, agents []domain.AgentTree) DecideFunc {
	return func(ctx context.Context, c domain.Context, t *domain.Time) (*domain.Decision, error) {
		return e.DecideGenerator(ctx, gen, agents, c, t)
	}
}

// DecideBatch evaluates rows in parallel, bounded by the engine concurrency.
// Results are reported in input order. A failing row never affects the
// others; once ctx is done, rows that have not started carry ctx.Err().
func (e *Engine) DecideBatch(ctx context.Context, decide DecideFunc, rows []Row) []BatchResult {
	results := make([]BatchResult, len(rows))

	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for i, row := range rows {
		results[i].Index = i
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			d, err := decide(ctx, row.Context, row.Time)
			results[i].Decision, results[i].Err = d, err
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	e.logger.Debug("batch evaluated", "rows", len(rows), "failed", failed)
	return results
}
