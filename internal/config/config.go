package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the gateway and its workers
type Config struct {
	Env       string
	LogLevel  string
	Server    ServerConfig
	Remote    RemoteConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Worker    WorkerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// RemoteConfig points at the external review and catalog REST APIs
type RemoteConfig struct {
	ReviewAPIURL  string
	CatalogAPIURL string
	Timeout       time.Duration
	MaxAttempts   int
	RetryBackoff  time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host        string
	Port        string
	Password    string
	DB          int
	DialTimeout time.Duration
	IOTimeout   time.Duration
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL string
}

// CacheConfig holds TTLs of the Redis-backed stores
type CacheConfig struct {
	SearchTTL   time.Duration
	IdentityTTL time.Duration
	StatsTTL    time.Duration
}

// RateLimitConfig bounds requests per identity
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// WorkerConfig tunes the stats worker
type WorkerConfig struct {
	Debounce  time.Duration
	BatchSize int
}

// Load reads configuration from environment variables and returns a Config struct
func Load() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_READ_TIMEOUT", "10s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	viper.SetDefault("SERVER_REQUEST_TIMEOUT", "25s")
	viper.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080")

	viper.SetDefault("REVIEW_API_URL", "http://localhost:5000/api")
	viper.SetDefault("CATALOG_API_URL", "http://localhost:5000/api")
	viper.SetDefault("REMOTE_TIMEOUT", "5s")
	viper.SetDefault("REMOTE_MAX_ATTEMPTS", 2)
	viper.SetDefault("REMOTE_RETRY_BACKOFF", "200ms")

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	viper.SetDefault("REDIS_IO_TIMEOUT", "3s")

	viper.SetDefault("NATS_URL", "nats://localhost:4222")

	viper.SetDefault("CACHE_TTL_SEARCH", "300s")
	viper.SetDefault("CACHE_TTL_IDENTITY", "720h")
	viper.SetDefault("CACHE_TTL_STATS", "24h")

	viper.SetDefault("RATE_LIMIT_RPS", 10.0)
	viper.SetDefault("RATE_LIMIT_BURST", 20)

	viper.SetDefault("WORKER_DEBOUNCE", "1s")
	viper.SetDefault("WORKER_BATCH_SIZE", 10)

	keys := []string{
		"SERVER_READ_TIMEOUT",
		"SERVER_WRITE_TIMEOUT",
		"SERVER_REQUEST_TIMEOUT",
		"SERVER_SHUTDOWN_TIMEOUT",
		"REMOTE_TIMEOUT",
		"REMOTE_RETRY_BACKOFF",
		"REDIS_DIAL_TIMEOUT",
		"REDIS_IO_TIMEOUT",
		"CACHE_TTL_SEARCH",
		"CACHE_TTL_IDENTITY",
		"CACHE_TTL_STATS",
		"WORKER_DEBOUNCE",
	}
	d := make(map[string]time.Duration, len(keys))
	for _, key := range keys {
		v, err := time.ParseDuration(viper.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		d[key] = v
	}

	if n := viper.GetInt("REMOTE_MAX_ATTEMPTS"); n < 1 {
		return nil, fmt.Errorf("invalid REMOTE_MAX_ATTEMPTS: %d, must be at least 1", n)
	}

	allowedOrigins := strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ",")
	for i := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
	}

	config := &Config{
		Env:      viper.GetString("ENV"),
		LogLevel: viper.GetString("LOG_LEVEL"),
		Server: ServerConfig{
			Port:            viper.GetString("SERVER_PORT"),
			ReadTimeout:     d["SERVER_READ_TIMEOUT"],
			WriteTimeout:    d["SERVER_WRITE_TIMEOUT"],
			RequestTimeout:  d["SERVER_REQUEST_TIMEOUT"],
			ShutdownTimeout: d["SERVER_SHUTDOWN_TIMEOUT"],
			AllowedOrigins:  allowedOrigins,
		},
		Remote: RemoteConfig{
			ReviewAPIURL:  strings.TrimRight(viper.GetString("REVIEW_API_URL"), "/"),
			CatalogAPIURL: strings.TrimRight(viper.GetString("CATALOG_API_URL"), "/"),
			Timeout:       d["REMOTE_TIMEOUT"],
			MaxAttempts:   viper.GetInt("REMOTE_MAX_ATTEMPTS"),
			RetryBackoff:  d["REMOTE_RETRY_BACKOFF"],
		},
		Redis: RedisConfig{
			Host:        viper.GetString("REDIS_HOST"),
			Port:        viper.GetString("REDIS_PORT"),
			Password:    viper.GetString("REDIS_PASSWORD"),
			DB:          viper.GetInt("REDIS_DB"),
			DialTimeout: d["REDIS_DIAL_TIMEOUT"],
			IOTimeout:   d["REDIS_IO_TIMEOUT"],
		},
		NATS: NATSConfig{
			URL: viper.GetString("NATS_URL"),
		},
		Cache: CacheConfig{
			SearchTTL:   d["CACHE_TTL_SEARCH"],
			IdentityTTL: d["CACHE_TTL_IDENTITY"],
			StatsTTL:    d["CACHE_TTL_STATS"],
		},
		RateLimit: RateLimitConfig{
			RPS:   viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst: viper.GetInt("RATE_LIMIT_BURST"),
		},
		Worker: WorkerConfig{
			Debounce:  d["WORKER_DEBOUNCE"],
			BatchSize: viper.GetInt("WORKER_BATCH_SIZE"),
		},
	}

	return config, nil
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// IsDevelopment reports whether the gateway runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
