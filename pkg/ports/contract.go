package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTreeStoreContract runs a suite of tests to verify that a TreeStore implementation
// adheres to the defined interface contract.
func RunTreeStoreContract(t *testing.T, store TreeStore) {
	ctx := context.Background()
	treeID := "contract-test-tree-" + time.Now().Format("20060102150405")
	doc := []byte(`{"configuration":{"context":{"x":{"type":"enum"}},"output":["x"]},"trees":{"x":{"predicted_value":"a"}}}`)

	t.Run("Save and Get", func(t *testing.T) {
		err := store.SaveTree(ctx, treeID, doc)
		require.NoError(t, err, "SaveTree should not return error")

		loaded, err := store.GetTree(ctx, treeID)
		require.NoError(t, err, "GetTree should not return error")
		assert.JSONEq(t, string(doc), string(loaded))
	})

	t.Run("Overwrite", func(t *testing.T) {
		updated := []byte(`{"configuration":{"context":{"x":{"type":"enum"}},"output":["x"]},"trees":{"x":{"predicted_value":"b"}}}`)
		require.NoError(t, store.SaveTree(ctx, treeID, updated))

		loaded, err := store.GetTree(ctx, treeID)
		require.NoError(t, err)
		assert.JSONEq(t, string(updated), string(loaded))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.GetTree(ctx, "non-existent-"+treeID)
		assert.ErrorIs(t, err, domain.ErrTreeNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.SaveTree(ctx, treeID, doc))

		err := store.DeleteTree(ctx, treeID)
		require.NoError(t, err, "DeleteTree should not return error")

		_, err = store.GetTree(ctx, treeID)
		assert.ErrorIs(t, err, domain.ErrTreeNotFound, "GetTree after DeleteTree should return ErrTreeNotFound")

		assert.NoError(t, store.DeleteTree(ctx, treeID), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := treeID + "-1"
		id2 := treeID + "-2"
		require.NoError(t, store.SaveTree(ctx, id2, doc))
		require.NoError(t, store.SaveTree(ctx, id1, doc))

		defer func() {
			_ = store.DeleteTree(ctx, id1)
			_ = store.DeleteTree(ctx, id2)
		}()

		trees, err := store.ListTrees(ctx)
		require.NoError(t, err)
		assert.Contains(t, trees, id1)
		assert.Contains(t, trees, id2)
		assert.IsIncreasing(t, trees, "ListTrees is sorted")
	})
}
