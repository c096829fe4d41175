package loam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"

	"github.com/aretw0/arbor/pkg/domain"
)

// Loader adapts the Loam library to the Arbor TreeLoader interface.
type Loader struct {
	Repo *loam.TypedRepository[TreeDocument]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[TreeDocument]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// GetTree retrieves a tree from the Loam repository and renders it as a JSON
// document. YAML and front matter sources are normalized on the way.
func (l *Loader) GetTree(ctx context.Context, id string) ([]byte, error) {
	// Loam resolves "speed" to speed.json, speed.yaml or speed.md.
	doc, err := l.Repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("%w: %s", domain.ErrTreeNotFound, id)
		}
		return nil, fmt.Errorf("loam get failed for %s: %w", id, err)
	}
	if !doc.Data.IsTree() {
		return nil, fmt.Errorf("%w: %s holds no tree", domain.ErrTreeNotFound, id)
	}

	data := map[string]any{
		"configuration": normalize(doc.Data.Configuration),
	}
	if doc.Data.Version != nil {
		data["_version"] = doc.Data.Version
	}
	if doc.Data.Trees != nil {
		data["trees"] = normalize(doc.Data.Trees)
	}
	if doc.Data.Root != nil {
		data["root"] = normalize(doc.Data.Root)
	}

	bytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tree %s: %w", id, err)
	}
	return bytes, nil
}

// ListTrees lists all tree documents in the repository.
func (l *Loader) ListTrees(ctx context.Context) ([]string, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	ids := make([]string, 0, len(docs))

	for _, doc := range docs {
		if !doc.Data.IsTree() {
			continue
		}
		// Use the ID from the document if available, otherwise the file ID
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				// Loam debounces bursts of writes itself.
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

// normalize turns YAML-decoded values into JSON-encodable ones.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, sub := range val {
			out[k] = normalize(sub)
		}
		return out
	case map[any]any: // YAML often decodes to this
		out := make(map[string]any, len(val))
		for k, sub := range val {
			out[fmt.Sprintf("%v", k)] = normalize(sub)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, sub := range val {
			out[i] = normalize(sub)
		}
		return out
	default:
		return val
	}
}
