package models

import "time"

// Config represents the application configuration
type Config struct {
	Backend BackendConfig
	Cache   CacheConfig
	Sync    SyncConfig
	Sandbox SandboxConfig
	Status  StatusConfig
}

// BackendConfig holds REST backend connection settings
type BackendConfig struct {
	BaseURL     string        `envconfig:"API_URL" default:"http://localhost:8000" validate:"required,url"`
	AccessToken string        `envconfig:"ACCESS_TOKEN"`
	UserId      int64         `envconfig:"USER_ID" validate:"gte=0"`
	Timeout     time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s" validate:"gt=0"`
}

// CacheConfig holds durable local cache (SQLite) settings
type CacheConfig struct {
	Path            string        `envconfig:"CACHE_PATH" default:"ecogarden.db" validate:"required"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"4" validate:"gt=0"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"2" validate:"gte=0"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"30s"`
	PingTimeout     time.Duration `envconfig:"DB_PING_TIMEOUT" default:"5s" validate:"gt=0"`
}

// SyncConfig holds synchronization layer settings
type SyncConfig struct {
	PollInterval          time.Duration `envconfig:"POLL_INTERVAL" default:"5m" validate:"gt=0"`
	FreshnessWindow       time.Duration `envconfig:"FRESHNESS_WINDOW" default:"5m" validate:"gte=0"`
	WatchFallbackInterval time.Duration `envconfig:"WATCH_FALLBACK_INTERVAL" default:"2s" validate:"gt=0"`
	WaterSettleDelay      time.Duration `envconfig:"WATER_SETTLE_DELAY" default:"100ms" validate:"gte=0"`
	HistoryLimit          int           `envconfig:"HISTORY_LIMIT" default:"50" validate:"gt=0,lte=500"`
	CatalogFile           string        `envconfig:"CATALOG_FILE" default:"catalog.yaml"`
	VerifySchedule        string        `envconfig:"VERIFY_SCHEDULE" default:"@every 1h" validate:"required"`
}

// SandboxConfig holds the local garden sandbox timer settings
type SandboxConfig struct {
	SparkleDuration    time.Duration `envconfig:"SPARKLE_DURATION" default:"2s" validate:"gt=0"`
	EventResetInterval time.Duration `envconfig:"EVENT_RESET_INTERVAL" default:"2500ms" validate:"gt=0"`
}

// StatusConfig holds the local status API settings
type StatusConfig struct {
	Addr string `envconfig:"STATUS_ADDR" default:"127.0.0.1:8089" validate:"required"`
}
