package registry

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/aretw0/arbor/internal/compiler"
	"github.com/aretw0/arbor/internal/validator"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// ParseFunc turns a raw tree document into a validated tree.
type ParseFunc func(data []byte) (*domain.Tree, error)

// Parse is the default ParseFunc: it parses the document and checks that
// every decision node partitions its property domain.
func Parse(data []byte) (*domain.Tree, error) {
	tree, err := compiler.NewParser().Parse(data)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateTree(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// Registry caches parsed trees read from a TreeLoader.
// Concurrent misses on the same ID share a single load. A load that
// overlaps an Invalidate of its ID returns its tree but does not cache it.
type Registry struct {
	mu      sync.RWMutex
	trees   map[string]*domain.Tree
	gens    map[string]uint64
	epoch   uint64
	loader  ports.TreeLoader
	parse   ParseFunc
	observe func(hit bool)
	group   singleflight.Group
}

// Option configures a Registry.
type Option func(*Registry)

// WithParser replaces the default ParseFunc.
func WithParser(parse ParseFunc) Option {
	return func(r *Registry) {
		r.parse = parse
	}
}

// WithObserver registers a callback invoked on every lookup with whether it hit the cache.
func WithObserver(observe func(hit bool)) Option {
	return func(r *Registry) {
		r.observe = observe
	}
}

// NewRegistry creates an empty registry over loader.
func NewRegistry(loader ports.TreeLoader, opts ...Option) *Registry {
	r := &Registry{
		trees:  make(map[string]*domain.Tree),
		gens:   make(map[string]uint64),
		loader: loader,
		parse:  Parse,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the parsed tree stored under id, loading it on first use.
func (r *Registry) Get(ctx context.Context, id string) (*domain.Tree, error) {
	r.mu.RLock()
	tree, ok := r.trees[id]
	r.mu.RUnlock()

	if r.observe != nil {
		r.observe(ok)
	}
	if ok {
		return tree, nil
	}

	v, err, _ := r.group.Do(id, func() (any, error) {
		r.mu.RLock()
		gen := r.generation(id)
		r.mu.RUnlock()

		data, err := r.loader.GetTree(ctx, id)
		if err != nil {
			return nil, err
		}
		tree, err := r.parse(data)
		if err != nil {
			return nil, fmt.Errorf("tree %s: %w", id, err)
		}
		r.mu.Lock()
		if r.generation(id) == gen {
			r.trees[id] = tree
		}
		r.mu.Unlock()
		return tree, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Tree), nil
}

// Invalidate drops the cached tree for id, or every cached tree when id is empty.
// Later lookups do not join a load that started before the call.
func (r *Registry) Invalidate(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == "" {
		r.epoch++
		r.trees = make(map[string]*domain.Tree)
		return
	}
	r.gens[id]++
	delete(r.trees, id)
	r.group.Forget(id)
}

// generation changes whenever id is invalidated, alone or with every tree.
// Callers hold r.mu.
func (r *Registry) generation(id string) uint64 {
	return r.epoch + r.gens[id]
}

// Len returns the number of cached trees.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.trees)
}

// Follow invalidates cached trees as w reports changes, until ctx is done.
// It returns once the watch is established.
func (r *Registry) Follow(ctx context.Context, w ports.Watchable) error {
	events, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	go func() {
		for id := range events {
			r.Invalidate(id)
		}
	}()
	return nil
}
