// Package config loads the service configuration from defaults, an optional
// YAML file, and environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces the environment variables the service reads,
// e.g. LMSCACHE_SERVER_PORT=9090 sets server.port.
const envPrefix = "LMSCACHE_"

// Load builds the configuration from, in priority order: environment
// variables, the given YAML file (optional, pass "" to skip), and defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// The file is optional; defaults and env cover a bare deployment.
			fmt.Printf("Warning: could not load %s: %v\n", path, err)
		}
	}

	if err := k.Load(envprovider.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(key, envPrefix)
		return strings.ReplaceAll(strings.ToLower(key), "_", "."), value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name": "lmscache",
		"app.env":  "development",

		"log.level":  "info",
		"log.pretty": false,

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "15s",
		"server.write_timeout":    "30s",
		"server.shutdown_timeout": "10s",

		"database.host":               "localhost",
		"database.port":               5432,
		"database.database":           "lmscache",
		"database.username":           "lmscache",
		"database.ssl_mode":           "disable",
		"database.max_conns":          10,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "15m",

		"cache.cleanup_interval": "5m",
		"cache.top_entries":      10,
		"cache.hit_saving":       "150ms",
		"cache.confirm_token":    "",

		"health.min_hit_rate":         85.0,
		"health.max_avg_read_latency": "100ms",
		"health.max_fallback_events":  10,
		"health.max_store_bytes":      64 << 20,

		"loadtest.workers":       8,
		"loadtest.operations":    1000,
		"loadtest.key_space":     50,
		"loadtest.ttl":           "5m",
		"loadtest.fetch_delay":   "75ms",
		"loadtest.hit_threshold": "50ms",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

// Validate rejects configurations the service cannot run with.
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", cfg.Server.Port)
	}
	if cfg.Cache.CleanupInterval <= 0 {
		return fmt.Errorf("cache.cleanup_interval must be positive")
	}
	if cfg.Cache.TopEntries <= 0 {
		return fmt.Errorf("cache.top_entries must be positive")
	}
	if cfg.Database.ConnectionString == "" && cfg.Database.Database == "" {
		return fmt.Errorf("database.database or database.connection_string is required")
	}
	return nil
}
