package config

import (
	"time"

	"github.com/brightpath/lmscache/cache/postgres"
	"github.com/brightpath/lmscache/maintenance"
	"github.com/brightpath/lmscache/maintenance/loadtest"
)

// Config is the full service configuration.
type Config struct {
	App      AppConfig              `koanf:"app"`
	Log      LogConfig              `koanf:"log"`
	Server   ServerConfig           `koanf:"server"`
	Database postgres.Config        `koanf:"database"`
	Cache    CacheConfig            `koanf:"cache"`
	Health   maintenance.Thresholds `koanf:"health"`
	LoadTest loadtest.Config        `koanf:"loadtest"`
}

type AppConfig struct {
	Name string `koanf:"name"`
	Env  string `koanf:"env"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// CacheConfig holds the cache-layer tunables.
type CacheConfig struct {
	// CleanupInterval is how often the expired-entry sweep runs.
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	// TopEntries is how many hot entries the stats surface reports.
	TopEntries int `koanf:"top_entries"`
	// HitSaving estimates the latency one cache hit saves over the uncached
	// path; the metrics endpoint multiplies it by total hits.
	HitSaving time.Duration `koanf:"hit_saving"`
	// ConfirmToken must be echoed back by callers of the emergency clear.
	ConfirmToken string `koanf:"confirm_token"`
}
