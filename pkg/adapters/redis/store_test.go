package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

const doc = `{"configuration":{"context":{"x":{"type":"enum"}},"output":["x"]},"trees":{"x":{"predicted_value":"a"}}}`

func setup(t *testing.T, opts ...redis.Option) (*miniredis.Miniredis, *redis.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "Failed to start miniredis")
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	store := redis.NewFromClient(client, opts...)
	t.Cleanup(func() { _ = store.Close() })
	return mr, store
}

func TestRedisStore_Contract(t *testing.T) {
	_, store := setup(t)
	ports.RunTreeStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, store := setup(t, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	require.NoError(t, store.SaveTree(ctx, "tree-ttl", []byte(doc)))

	ids, err := store.ListTrees(ctx)
	assert.NoError(t, err)
	assert.Contains(t, ids, "tree-ttl")

	// Fast forward miniredis time for key expiration.
	mr.FastForward(2 * time.Second)

	_, err = store.GetTree(ctx, "tree-ttl")
	assert.ErrorIs(t, err, domain.ErrTreeNotFound)

	// Index cleanup relies on time.Now(), so wait past the score.
	time.Sleep(1200 * time.Millisecond)

	ids, err = store.ListTrees(ctx)
	assert.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, store := setup(t, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.SaveTree(ctx, "my-tree", []byte(doc)))

	assert.True(t, mr.Exists("custom:app:my-tree"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	ids, err := store.ListTrees(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{"my-tree"}, ids)
}

func TestRedisStore_Watch(t *testing.T) {
	_, store := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := store.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, store.SaveTree(context.Background(), "speed", []byte(doc)))
	require.NoError(t, store.DeleteTree(context.Background(), "speed"))

	for _, want := range []string{"speed", "speed"} {
		select {
		case id := <-events:
			assert.Equal(t, want, id)
		case <-time.After(2 * time.Second):
			t.Fatal("expected a watch event")
		}
	}
}
