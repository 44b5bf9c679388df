package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every tunable the services need, resolved once at startup
// and passed into components by reference. No package keeps its own global.
type Config struct {
	AppDomain string

	DatabaseURL      string
	GormLogLevel     string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RabbitURL        string
	ClickQueue       string
	GeoIPDatabase    string

	APIAddr     string
	MetricsAddr string

	// Ingestion tuning.
	ChannelCapacity int
	Workers         int
	PersistAttempts int
	PersistBackoff  time.Duration
	PersistTimeout  time.Duration
	ShutdownGrace   time.Duration

	// Read-side tuning.
	ResolveCacheTTL time.Duration
	StatsCacheTTL   time.Duration
	SweepSchedule   string
}

// Load reads the configuration from the environment, applying defaults for
// everything but the external endpoints.
func Load() Config {
	return Config{
		AppDomain: getenvDefault("APP_DOMAIN", "http://localhost:3000"),

		DatabaseURL:   os.Getenv("DB_URL"),
		GormLogLevel:  getenvDefault("GORM_LOG_LEVEL", "warn"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getenvInt("REDIS_DB", 0),
		RabbitURL:     os.Getenv("RABBITMQ_URL"),
		ClickQueue:    getenvDefault("CLICK_QUEUE_NAME", "click_events"),
		GeoIPDatabase: os.Getenv("GEOIP_DB_PATH"),

		APIAddr:     getenvDefault("API_SERVICE_ADDR", ":3000"),
		MetricsAddr: getenvDefault("METRICS_ADDR", ":9091"),

		ChannelCapacity: getenvInt("CLICK_CHANNEL_CAPACITY", 1024),
		Workers:         getenvInt("CLICK_WORKERS", 4),
		PersistAttempts: getenvInt("CLICK_PERSIST_ATTEMPTS", 3),
		PersistBackoff:  getenvDuration("CLICK_PERSIST_BACKOFF", 100*time.Millisecond),
		PersistTimeout:  getenvDuration("CLICK_PERSIST_TIMEOUT", 5*time.Second),
		ShutdownGrace:   getenvDuration("SHUTDOWN_GRACE", 10*time.Second),

		ResolveCacheTTL: getenvDuration("RESOLVE_CACHE_TTL", time.Hour),
		StatsCacheTTL:   getenvDuration("STATS_CACHE_TTL", 30*time.Second),
		SweepSchedule:   getenvDefault("LINK_SWEEP_SCHEDULE", "@hourly"),
	}
}

func getenvDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
