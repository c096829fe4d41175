package runtime

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
)

// DefaultConcurrency bounds the number of rows a batch evaluates at once.
const DefaultConcurrency = 8

// Engine evaluates decision trees. It holds no state between calls: trees,
// contexts and times are passed explicitly to every operation, and an Engine
// is safe for concurrent use.
type Engine struct {
	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	now         func() time.Time
	concurrency int
}

// EngineOption defines a functional option for configuring the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithClock replaces the clock used when a decision is requested without a time.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithConcurrency sets how many batch rows are evaluated in parallel.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewEngine creates a new engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:         time.Now,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide resolves t, rebuilds the partial context against the tree
// configuration and evaluates every declared output.
func (e *Engine) Decide(ctx context.Context, tree *domain.Tree, partial domain.Context, t *domain.Time) (*domain.Decision, error) {
	if tree == nil {
		return nil, &domain.MalformedTreeError{Reason: "tree is nil"}
	}

	resolved, err := e.ResolveTime(t)
	if err != nil {
		return nil, err
	}

	rebuilt, err := e.RebuildContext(tree.Configuration, partial, resolved)
	if err != nil {
		return nil, err
	}

	output, err := e.evaluate(ctx, tree, rebuilt, "")
	if err != nil {
		return nil, err
	}

	return &domain.Decision{Context: rebuilt, Output: output}, nil
}

func (e *Engine) emitNode(ctx context.Context, output string, depth int, n domain.Node) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	ev := &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventNodeEnter},
		Output:    output,
		Depth:     depth,
	}
	switch node := n.(type) {
	case *domain.DecisionNode:
		ev.Property = node.Property
	case *domain.Leaf:
		ev.IsLeaf = true
	}
	e.hooks.OnNodeEnter(ctx, ev)
}

func (e *Engine) emitDecision(ctx context.Context, output, agentID string, depth int, err error) {
	if e.hooks.OnDecision == nil {
		return
	}
	e.hooks.OnDecision(ctx, &domain.DecisionEvent{
		EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventDecision},
		Output:    output,
		AgentID:   agentID,
		Depth:     depth,
		Err:       err,
	})
}

func (e *Engine) emitGenerator(ctx context.Context, agents, contributors int, err error) {
	if e.hooks.OnGenerator == nil {
		return
	}
	e.hooks.OnGenerator(ctx, &domain.GeneratorEvent{
		EventBase:    domain.EventBase{Timestamp: e.now(), Type: domain.EventGenerator},
		Agents:       agents,
		Contributors: contributors,
		Err:          err,
	})
}
