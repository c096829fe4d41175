package arbor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/aretw0/loam"

	"github.com/aretw0/arbor/internal/runtime"
	loamAdapter "github.com/aretw0/arbor/pkg/adapters/loam"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
)

// ErrNoLoader is returned by the ID-based operations of an Engine built
// without a tree source.
var ErrNoLoader = errors.New("engine has no tree loader")

// Row is one decision request of a batch.
type Row = runtime.Row

// BatchResult is the outcome of one batch row.
type BatchResult = runtime.BatchResult

// DecideFunc evaluates one row against a fixed tree or generator.
type DecideFunc = runtime.DecideFunc

// Engine is the high-level entry point for the Arbor library.
// It wraps the internal runtime and adds tree loading and caching.
type Engine struct {
	runtime     *runtime.Engine
	loader      ports.TreeLoader
	registry    *registry.Registry
	metrics     *observability.Metrics
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	runtimeOpts []runtime.EngineOption
	Name        string
}

var _ ports.DecisionEngine = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLoader injects a custom TreeLoader, bypassing the default Loam initialization.
func WithLoader(l ports.TreeLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics records decisions and tree cache lookups on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithConcurrency bounds the number of rows a batch evaluates at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithConcurrency(n))
	}
}

// WithClock replaces the clock used when a decision has no explicit time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithClock(now))
	}
}

// New initializes a new Arbor Engine.
// By default, it serves trees from a Loam repository at the given path.
// If WithLoader is provided, repoPath is only used as a label. With neither,
// the engine decides on parsed trees only and the ID-based calls fail with
// ErrNoLoader.
func New(repoPath string, opts ...Option) (*Engine, error) {
	eng := &Engine{}

	for _, opt := range opts {
		opt(eng)
	}

	if eng.loader == nil && repoPath != "" {
		absPath, err := filepath.Abs(repoPath)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		eng.Name = filepath.Base(absPath)

		// Strict mode keeps numbers as json.Number across JSON, YAML and
		// Markdown documents. The engine never writes to the repository.
		repo, err := loam.Init(absPath,
			loam.WithStrict(true),
			loam.WithReadOnly(true),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize loam: %w", err)
		}
		eng.loader = loamAdapter.New(loam.NewTypedRepository[loamAdapter.TreeDocument](repo))
	} else if repoPath != "" {
		eng.Name = filepath.Base(repoPath)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("repo", eng.Name)
	}

	hooks := eng.hooks
	var regOpts []registry.Option
	if eng.metrics != nil {
		hooks = hooks.Merge(eng.metrics.Hooks())
		regOpts = append(regOpts, registry.WithObserver(eng.metrics.CacheLookup))
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(hooks),
		runtime.WithLogger(eng.logger),
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)
	eng.runtime = runtime.NewEngine(runtimeOpts...)

	if eng.loader != nil {
		eng.registry = registry.NewRegistry(eng.loader, regOpts...)
	}
	return eng, nil
}

// Parse decodes and validates a tree document.
func (e *Engine) Parse(data []byte) (*domain.Tree, error) {
	return registry.Parse(data)
}

// Decide evaluates tree against partial at time t. A nil t means now, in UTC.
func (e *Engine) Decide(ctx context.Context, tree *domain.Tree, partial domain.Context, t *domain.Time) (*domain.Decision, error) {
	return e.runtime.Decide(ctx, tree, partial, t)
}

// DecideByID evaluates the stored tree id.
func (e *Engine) DecideByID(ctx context.Context, id string, partial domain.Context, t *domain.Time) (*domain.Decision, error) {
	tree, err := e.Tree(ctx, id)
	if err != nil {
		return nil, err
	}
	d, err := e.runtime.Decide(ctx, tree, partial, t)
	if err != nil {
		return nil, fmt.Errorf("tree %s: %w", id, err)
	}
	return d, nil
}

// DecideGenerator merges the decisions of agents under gen.
func (e *Engine) DecideGenerator(ctx context.Context, gen domain.Generator, agents []domain.AgentTree, partial domain.Context, t *domain.Time) (*domain.Decision, error) {
	return e.runtime.DecideGenerator(ctx, gen, agents, partial, t)
}

// DecideGeneratorByID merges the decisions of the stored trees accepted by gen.
func (e *Engine) DecideGeneratorByID(ctx context.Context, gen domain.Generator, partial domain.Context, t *domain.Time) (*domain.Decision, error) {
	agents, err := e.Agents(ctx, gen)
	if err != nil {
		return nil, err
	}
	return e.runtime.DecideGenerator(ctx, gen, agents, partial, t)
}

// Agents fetches the stored trees a generator works on. Every stored tree is
// listed; only those the filter accepts are loaded. Filter entries with no
// stored tree are reported as failed agents.
func (e *Engine) Agents(ctx context.Context, gen domain.Generator) ([]domain.AgentTree, error) {
	ids, err := e.ListTrees(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	for _, id := range gen.Filter {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	agents := make([]domain.AgentTree, 0, len(ids))
	for _, id := range ids {
		agent := domain.AgentTree{AgentID: id}
		if gen.Accepts(id) {
			agent.Tree, agent.Err = e.Tree(ctx, id)
		}
		agents = append(agents, agent)
	}
	return agents, nil
}

// ForTree binds Decide to tree, for use with DecideBatch.
func (e *Engine) ForTree(tree *domain.Tree) DecideFunc {
	return e.runtime.ForTree(tree)
}

// ForGenerator binds DecideGenerator to gen and agents, for use with DecideBatch.
func (e *Engine) ForGenerator(gen domain.Generator, agents []domain.AgentTree) DecideFunc {
	return e.runtime.ForGenerator(gen, agents)
}

// DecideBatch evaluates rows independently and reports results in input order.
func (e *Engine) DecideBatch(ctx context.Context, decide DecideFunc, rows []Row) []BatchResult {
	return e.runtime.DecideBatch(ctx, decide, rows)
}

// RebuildContext completes partial with the properties derived from t.
func (e *Engine) RebuildContext(cfg domain.Configuration, partial domain.Context, t domain.Time) (domain.Context, error) {
	return e.runtime.RebuildContext(cfg, partial, t)
}

// Tree returns the parsed tree stored under id, from cache when possible.
func (e *Engine) Tree(ctx context.Context, id string) (*domain.Tree, error) {
	if e.registry == nil {
		return nil, ErrNoLoader
	}
	return e.registry.Get(ctx, id)
}

// ListTrees returns the IDs of the stored trees, sorted.
func (e *Engine) ListTrees(ctx context.Context) ([]string, error) {
	if e.loader == nil {
		return nil, ErrNoLoader
	}
	return e.loader.ListTrees(ctx)
}

// Watch returns a channel that receives the ID of every changed tree.
// Returns error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	if w, ok := e.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current loader does not support watching")
}

// Follow keeps the tree cache in sync with the loader until ctx is done.
func (e *Engine) Follow(ctx context.Context) error {
	w, ok := e.loader.(ports.Watchable)
	if !ok || e.registry == nil {
		return fmt.Errorf("current loader does not support watching")
	}
	return e.registry.Follow(ctx, w)
}

// Invalidate drops the cached tree stored under id.
func (e *Engine) Invalidate(id string) {
	if e.registry != nil {
		e.registry.Invalidate(id)
	}
}

// Loader returns the underlying TreeLoader used by the engine.
func (e *Engine) Loader() ports.TreeLoader {
	return e.loader
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}
