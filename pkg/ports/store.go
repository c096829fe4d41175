package ports

import "context"

// TreeStore is a TreeLoader that also persists tree documents.
type TreeStore interface {
	TreeLoader

	// SaveTree stores the raw JSON document of a tree under id, replacing any previous one.
	SaveTree(ctx context.Context, id string, data []byte) error

	// DeleteTree removes a tree. Deleting an unknown ID is not an error.
	DeleteTree(ctx context.Context, id string) error
}
