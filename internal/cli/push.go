package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/arbor/pkg/registry"
)

// ErrNoStore is returned when a command needs a writable tree store.
var ErrNoStore = errors.New("no tree store configured (set --redis-url or ARBOR_REDIS_URL)")

// RunPush validates a tree document and stores it under id in Redis.
func RunPush(ctx context.Context, cfg Config, id string, data []byte, logger *slog.Logger) error {
	if cfg.RedisURL == "" {
		return ErrNoStore
	}
	if id == "" {
		return fmt.Errorf("a tree ID is required")
	}
	if _, err := registry.Parse(data); err != nil {
		return fmt.Errorf("tree %s: %w", id, err)
	}

	store, closeStore, err := newRedisStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.SaveTree(ctx, id, data); err != nil {
		return fmt.Errorf("failed to store tree %s: %w", id, err)
	}
	logger.Info("Tree stored", "tree", id, "bytes", len(data))
	return nil
}
