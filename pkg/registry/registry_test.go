package registry_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/registry"
)

func doc(v string) []byte {
	return []byte(`{"configuration":{"context":{"x":{"type":"enum"}},"output":["x"]},"trees":{"x":{"predicted_value":"` + v + `"}}}`)
}

func prediction(t *testing.T, tree *domain.Tree) any {
	t.Helper()
	leaf, ok := tree.Roots["x"].(*domain.Leaf)
	require.True(t, ok)
	return leaf.Predictions["x"].PredictedValue
}

func TestRegistry_CachesParsedTrees(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.SaveTree(ctx, "t", doc("a")))

	var hits, misses atomic.Int32
	reg := registry.NewRegistry(store, registry.WithObserver(func(hit bool) {
		if hit {
			hits.Add(1)
		} else {
			misses.Add(1)
		}
	}))

	first, err := reg.Get(ctx, "t")
	require.NoError(t, err)
	second, err := reg.Get(ctx, "t")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, int32(1), misses.Load())
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_Errors(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.SaveTree(ctx, "broken", []byte(`{"configuration":{}}`)))
	reg := registry.NewRegistry(store)

	_, err := reg.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrTreeNotFound)

	_, err = reg.Get(ctx, "broken")
	assert.ErrorIs(t, err, domain.ErrMalformedTree)
	assert.Equal(t, 0, reg.Len(), "failures are not cached")
}

func TestRegistry_CustomParser(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.SaveTree(ctx, "t", doc("a")))

	boom := errors.New("boom")
	reg := registry.NewRegistry(store, registry.WithParser(func([]byte) (*domain.Tree, error) { return nil, boom }))
	_, err := reg.Get(ctx, "t")
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_ConcurrentMissesLoadOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.SaveTree(ctx, "t", doc("a")))

	var parses atomic.Int32
	release := make(chan struct{})
	reg := registry.NewRegistry(store, registry.WithParser(func(data []byte) (*domain.Tree, error) {
		parses.Add(1)
		<-release
		return registry.Parse(data)
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Get(ctx, "t")
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), parses.Load())
}

func TestRegistry_FollowInvalidates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := memory.NewStore()
	require.NoError(t, store.SaveTree(ctx, "t", doc("a")))
	reg := registry.NewRegistry(store)
	require.NoError(t, reg.Follow(ctx, store))

	tree, err := reg.Get(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, "a", prediction(t, tree))

	require.NoError(t, store.SaveTree(ctx, "t", doc("b")))

	assert.Eventually(t, func() bool {
		tree, err := reg.Get(ctx, "t")
		return err == nil && prediction(t, tree) == "b"
	}, time.Second, 10*time.Millisecond)
}

func TestRegistry_InvalidateAll(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.SaveTree(ctx, "a", doc("a")))
	require.NoError(t, store.SaveTree(ctx, "b", doc("b")))
	reg := registry.NewRegistry(store)

	_, _ = reg.Get(ctx, "a")
	_, _ = reg.Get(ctx, "b")
	require.Equal(t, 2, reg.Len())

	reg.Invalidate("a")
	assert.Equal(t, 1, reg.Len())
	reg.Invalidate("")
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_InvalidateDuringLoadIsNotOverwritten(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"single tree", "t"},
		{"every tree", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.NewStore()
			require.NoError(t, store.SaveTree(ctx, "t", doc("a")))

			started := make(chan struct{}, 1)
			release := make(chan struct{})
			var calls atomic.Int32
			reg := registry.NewRegistry(store, registry.WithParser(func(data []byte) (*domain.Tree, error) {
				if calls.Add(1) == 1 {
					started <- struct{}{}
					<-release
				}
				return registry.Parse(data)
			}))

			done := make(chan *domain.Tree, 1)
			go func() {
				tree, err := reg.Get(ctx, "t")
				assert.NoError(t, err)
				done <- tree
			}()

			<-started
			require.NoError(t, store.SaveTree(ctx, "t", doc("b")))
			reg.Invalidate(tt.id)
			close(release)

			stale := <-done
			assert.Equal(t, "a", prediction(t, stale))
			assert.Equal(t, 0, reg.Len(), "a load overlapping an invalidation is not cached")

			fresh, err := reg.Get(ctx, "t")
			require.NoError(t, err)
			assert.Equal(t, "b", prediction(t, fresh))
			assert.Equal(t, 1, reg.Len())
		})
	}
}
