package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/arbor/internal/compiler"
	"github.com/aretw0/arbor/pkg/domain"
)

// Loader implements ports.TreeLoader using an in-memory map.
type Loader struct {
	trees map[string][]byte
}

// NewLoader creates a new in-memory loader with the provided raw documents (JSON strings).
func NewLoader(data map[string]string) *Loader {
	trees := make(map[string][]byte, len(data))
	for k, v := range data {
		trees[k] = []byte(v)
	}
	return &Loader{
		trees: trees,
	}
}

// NewFromTrees creates a new in-memory loader from parsed trees.
// This handles serialization automatically, improving DX for tests.
func NewFromTrees(trees map[string]*domain.Tree) (*Loader, error) {
	data := make(map[string][]byte, len(trees))
	for id, tree := range trees {
		if id == "" {
			return nil, fmt.Errorf("tree missing ID")
		}
		bytes, err := compiler.Encode(tree)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tree %s: %w", id, err)
		}
		data[id] = bytes
	}
	return &Loader{trees: data}, nil
}

// GetTree retrieves the raw document of a tree by ID.
func (l *Loader) GetTree(ctx context.Context, id string) ([]byte, error) {
	content, ok := l.trees[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTreeNotFound, id)
	}
	return content, nil
}

// ListTrees returns all available tree IDs.
func (l *Loader) ListTrees(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(l.trees))
	for k := range l.trees {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
