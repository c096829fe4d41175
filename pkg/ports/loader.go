package ports

import "context"

// TreeLoader defines how the engine retrieves tree documents.
// This allows the storage layer (Loam, Redis, Memory) to be decoupled.
type TreeLoader interface {
	// GetTree retrieves the raw JSON document of a tree by ID.
	// It returns domain.ErrTreeNotFound when the ID is unknown.
	GetTree(ctx context.Context, id string) ([]byte, error)

	// ListTrees returns the IDs of all available trees in a stable order.
	// This is used for generators and introspection (e.g. 'arbor graph').
	ListTrees(ctx context.Context) ([]string, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used to invalidate parsed-tree caches.
type Watchable interface {
	// Watch returns a channel that receives the ID of every tree that changed.
	// An empty ID means the change could not be attributed to a single tree.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}
