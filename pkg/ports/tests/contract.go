package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// TreeLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.TreeLoader.
// setupData maps every tree ID the loader holds to its expected JSON document.
func TreeLoaderContractTest(t *testing.T, loader ports.TreeLoader, setupData map[string][]byte) {
	t.Helper()
	ctx := context.Background()

	// 1. Test GetTree (Success)
	t.Run("GetTree_Success", func(t *testing.T) {
		for id, expected := range setupData {
			content, err := loader.GetTree(ctx, id)
			if err != nil {
				t.Fatalf("unexpected error getting tree %s: %v", id, err)
			}
			if !sameJSON(t, content, expected) {
				t.Errorf("content mismatch for %s. got %s, want %s", id, content, expected)
			}
		}
	})

	// 2. Test GetTree (NotFound)
	t.Run("GetTree_NotFound", func(t *testing.T) {
		_, err := loader.GetTree(ctx, "non-existent-tree")
		if !errors.Is(err, domain.ErrTreeNotFound) {
			t.Errorf("expected ErrTreeNotFound for non-existent tree, got %v", err)
		}
	})

	// 3. Test ListTrees
	t.Run("ListTrees", func(t *testing.T) {
		ids, err := loader.ListTrees(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing trees: %v", err)
		}

		if len(ids) != len(setupData) {
			t.Errorf("expected %d trees, got %d", len(setupData), len(ids))
		}

		lookup := make(map[string]bool)
		for i, id := range ids {
			lookup[id] = true
			if i > 0 && ids[i-1] >= id {
				t.Errorf("ListTrees is not sorted: %q before %q", ids[i-1], id)
			}
		}

		for id := range setupData {
			if !lookup[id] {
				t.Errorf("tree %s missing from list", id)
			}
		}
	})
}
