package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/arbor/internal/compiler"
	"github.com/aretw0/arbor/internal/validator"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
)

// Builder manages the tree construction.
type Builder struct {
	version string
	cfg     domain.Configuration
	trees   map[string]Node
	root    Node
	errs    []error
}

// New creates a new tree builder.
func New() *Builder {
	return &Builder{
		version: compiler.DefaultVersion,
		trees:   make(map[string]Node),
	}
}

// Version sets the document version recorded in the tree.
func (b *Builder) Version(v string) *Builder {
	b.version = v
	return b
}

// Context declares a context property. Declaration order is kept.
func (b *Builder) Context(name string, t domain.PropertyType) *Builder {
	return b.Property(name, domain.Property{Type: t})
}

// Property declares a context property with full control over its settings,
// e.g. a time-derived property that must not be generated.
func (b *Builder) Property(name string, p domain.Property) *Builder {
	if !p.Type.Valid() {
		b.errs = append(b.errs, fmt.Errorf("property %s: unsupported type %q", name, p.Type))
	}
	b.cfg.Set(name, p)
	return b
}

// Output appends predicted properties.
func (b *Builder) Output(names ...string) *Builder {
	b.cfg.Output = append(b.cfg.Output, names...)
	return b
}

// TimeQuantum sets the time_of_day quantization step in seconds.
func (b *Builder) TimeQuantum(seconds int64) *Builder {
	b.cfg.TimeQuantum = seconds
	return b
}

// Tree sets the root used to predict output.
func (b *Builder) Tree(output string, root Node) *Builder {
	b.trees[output] = root
	return b
}

// Root sets a single root shared by every output. Leaves under it predict
// the same value for all outputs.
func (b *Builder) Root(root Node) *Builder {
	b.root = root
	return b
}

// Configuration returns the configuration declared so far.
func (b *Builder) Configuration() domain.Configuration {
	return b.cfg
}

// Build compiles the tree. The result goes through the same encoding,
// parsing and validation as a loaded document.
func (b *Builder) Build() (*domain.Tree, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	raw := &domain.Tree{
		Version:       b.version,
		Configuration: b.cfg,
		Roots:         make(map[string]domain.Node, len(b.cfg.Output)),
	}
	for _, output := range b.cfg.Output {
		root := b.trees[output]
		if root == nil {
			root = b.root
		}
		if root == nil {
			return nil, fmt.Errorf("no tree for output %q", output)
		}
		raw.Roots[output] = root.build(output)
	}

	doc, err := compiler.Encode(raw)
	if err != nil {
		return nil, err
	}
	tree, err := compiler.NewParser().Parse(doc)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateTree(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// Document compiles the tree and renders it as a JSON document.
func (b *Builder) Document() ([]byte, error) {
	tree, err := b.Build()
	if err != nil {
		return nil, err
	}
	return compiler.Encode(tree)
}

// Loader compiles the tree into a MemoryLoader holding it under id.
func (b *Builder) Loader(id string) (*memory.Loader, error) {
	tree, err := b.Build()
	if err != nil {
		return nil, err
	}
	loader, err := memory.NewFromTrees(map[string]*domain.Tree{id: tree})
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}
	return loader, nil
}
