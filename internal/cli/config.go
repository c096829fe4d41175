package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the CLI.
const EnvPrefix = "ARBOR"

// Config holds the settings shared by every command.
// Precedence: flags, then ARBOR_* environment variables (including a .env
// file in the working directory), then arbor.yaml in the tree directory.
type Config struct {
	Dir         string `mapstructure:"dir"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
	RedisURL    string `mapstructure:"redis_url"`
	RedisPrefix string `mapstructure:"redis_prefix"`

	// EncryptionKey is a base64 AES-256 key; when set, trees stored in
	// Redis are encrypted at rest. Fallback keys still decrypt old trees.
	EncryptionKey          string   `mapstructure:"encryption_key"`
	EncryptionFallbackKeys []string `mapstructure:"encryption_fallback_keys"`

	Concurrency int `mapstructure:"concurrency"`
	ChunkSize   int `mapstructure:"chunk_size"`
	Port        int `mapstructure:"port"`
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"dir":          "dir",
	"debug":        "debug",
	"log-level":    "log_level",
	"log-format":   "log_format",
	"redis-url":    "redis_url",
	"redis-prefix": "redis_prefix",
	"concurrency":  "concurrency",
	"chunk-size":   "chunk_size",
	"port":         "port",
}

// LoadConfig resolves the configuration for a command. flags may be nil.
func LoadConfig(flags *pflag.FlagSet) (Config, error) {
	// Local development convenience; a missing .env is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("dir", ".")
	v.SetDefault("debug", false)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")
	v.SetDefault("redis_url", "")
	v.SetDefault("redis_prefix", "arbor:tree:")
	v.SetDefault("encryption_key", "")
	v.SetDefault("encryption_fallback_keys", []string{})
	v.SetDefault("concurrency", 0)
	v.SetDefault("chunk_size", 0)
	v.SetDefault("port", 8080)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	v.SetConfigName("arbor")
	v.SetConfigType("yaml")
	v.AddConfigPath(v.GetString("dir"))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// dirExists reports whether path is an existing directory.
func dirExists(path string) bool {
	info, err := os.Stat(filepath.Clean(path))
	return err == nil && info.IsDir()
}
