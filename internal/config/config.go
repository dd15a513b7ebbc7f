// Package config defines service configuration structures and loading hooks.
package config

import "runtime"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// PostgresDSN selects the durable store. Empty means the in-memory
	// store, which is what development and tests run on.
	PostgresDSN string `koanf:"postgres_dsn"`

	// RedisAddr selects the cache backend. Empty means the in-memory
	// backend.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`

	// CacheNamespace prefixes every cache key.
	CacheNamespace string `koanf:"cache_namespace"`

	// Per-scope cache TTLs, in seconds.
	GlobalTTLSeconds  int `koanf:"global_ttl_seconds"`
	CountryTTLSeconds int `koanf:"country_ttl_seconds"`
	SessionTTLSeconds int `koanf:"session_ttl_seconds"`

	// RecalcIntervalSeconds sets the cadence of the scheduled global
	// recalculation.
	RecalcIntervalSeconds int `koanf:"recalc_interval_seconds"`

	// BurstThreshold triggers an early recalculation after that many
	// applied matches.
	BurstThreshold int `koanf:"burst_threshold"`

	// QueueSize bounds the in-memory match submission queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of match-applying workers.
	WorkerCount int `koanf:"worker_count"`

	// StreakWindow bounds how far back the current-streak walk looks.
	StreakWindow int `koanf:"streak_window"`

	// Metrics naming, forming the <namespace>_<subsystem>_ metric name
	// prefix on /metrics.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// JWTSecret verifies bearer tokens on /me/rank. Empty disables the
	// route.
	JWTSecret string `koanf:"jwt_secret"`

	// WebsocketEnabled mounts the realtime event endpoint at /ws.
	WebsocketEnabled bool `koanf:"websocket_enabled"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":8080",
		CacheNamespace:        "lb:v1",
		GlobalTTLSeconds:      300,
		CountryTTLSeconds:     120,
		SessionTTLSeconds:     45,
		RecalcIntervalSeconds: 30,
		BurstThreshold:        50,
		QueueSize:             100_000,
		WorkerCount:           runtime.NumCPU() * 4,
		StreakWindow:          100,
		MetricsNamespace:      "rankpulse",
		MetricsSubsystem:      "ranking",
		WebsocketEnabled:      true,
	}
}
