package cli

import (
	"encoding/base64"
	"fmt"
	"log/slog"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
)

// NewLogger configures the application logger for cfg.
func NewLogger(cfg Config) *slog.Logger {
	return logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
}

// NewEngine initializes an Arbor engine with standard CLI conventions:
// trees come from Redis when a URL is configured, else from the Loam
// repository at cfg.Dir. metrics may be nil.
func NewEngine(cfg Config, logger *slog.Logger, metrics *observability.Metrics) (*arbor.Engine, error) {
	opts := []arbor.Option{arbor.WithLogger(logger)}
	if cfg.Debug {
		opts = append(opts, arbor.WithLifecycleHooks(createDebugHooks(logger)))
	}
	if cfg.Concurrency > 0 {
		opts = append(opts, arbor.WithConcurrency(cfg.Concurrency))
	}
	if metrics != nil {
		opts = append(opts, arbor.WithMetrics(metrics))
	}

	repoPath := cfg.Dir
	if cfg.RedisURL != "" {
		store, _, err := newRedisStore(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, arbor.WithLoader(store))
		repoPath = "redis"
		logger.Debug("Using redis tree store", "prefix", cfg.RedisPrefix, "encrypted", cfg.EncryptionKey != "")
	} else if !dirExists(repoPath) {
		return nil, fmt.Errorf("tree directory %q does not exist", repoPath)
	}

	engine, err := arbor.New(repoPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

// newRedisStore opens the Redis tree store, encrypted at rest when an
// encryption key is configured. close releases the connection.
func newRedisStore(cfg Config) (store ports.TreeStore, close func() error, err error) {
	redisOpts, err := backend.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rs := redis.NewFromClient(backend.NewClient(redisOpts), redis.WithPrefix(cfg.RedisPrefix))
	store = rs

	if cfg.EncryptionKey != "" {
		encCfg, err := encryptionConfig(cfg)
		if err != nil {
			_ = rs.Close()
			return nil, nil, err
		}
		mw, err := middleware.NewEncryptionMiddleware(encCfg)
		if err != nil {
			_ = rs.Close()
			return nil, nil, err
		}
		store = mw(rs)
	}
	return store, rs.Close, nil
}

func encryptionConfig(cfg Config) (middleware.EncryptionConfig, error) {
	active, err := base64.StdEncoding.DecodeString(cfg.EncryptionKey)
	if err != nil {
		return middleware.EncryptionConfig{}, fmt.Errorf("invalid encryption key: %w", err)
	}
	encCfg := middleware.EncryptionConfig{ActiveKey: active}
	for _, raw := range cfg.EncryptionFallbackKeys {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return middleware.EncryptionConfig{}, fmt.Errorf("invalid fallback key: %w", err)
		}
		encCfg.FallbackKeys = append(encCfg.FallbackKeys, key)
	}
	return encCfg, nil
}
