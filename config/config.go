package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	// HTTP server
	HTTPAddr       string
	AllowedOrigins []string

	// Fetch layer
	FetchTimeout     time.Duration
	RenderTimeout    time.Duration
	FetchRatePerSec  float64
	FetchBlockTime   time.Duration
	RelayURL         string
	RelayAPIKey      string
	RelayRenderParam string
	ChromeWSURL      string

	// Cache configuration ("memory" or "memcache")
	CacheBackend string
	MemcacheAddr string

	// Tracked items ("memory" or "redis")
	TrackerBackend string

	// Price observations ("memory" or "redis")
	PublisherBackend string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Currency assumed for every parsed price
	Currency string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	streamMaxLength, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "1000"))
	fetchTimeout, _ := strconv.Atoi(getEnv("FETCH_TIMEOUT_SECONDS", "20"))
	renderTimeout, _ := strconv.Atoi(getEnv("RENDER_TIMEOUT_SECONDS", "60"))
	blockSeconds, _ := strconv.Atoi(getEnv("FETCH_BLOCK_SECONDS", "300"))
	ratePerSec, _ := strconv.ParseFloat(getEnv("FETCH_RATE_PER_SECOND", "1"), 64)

	return Config{
		HTTPAddr:             getEnv("HTTP_ADDR", ":8000"),
		AllowedOrigins:       splitList(getEnv("ALLOWED_ORIGINS", "*")),
		FetchTimeout:         time.Duration(fetchTimeout) * time.Second,
		RenderTimeout:        time.Duration(renderTimeout) * time.Second,
		FetchRatePerSec:      ratePerSec,
		FetchBlockTime:       time.Duration(blockSeconds) * time.Second,
		RelayURL:             getEnv("RELAY_URL", "http://api.scraperapi.com"),
		RelayAPIKey:          getEnv("RELAY_API_KEY", ""),
		RelayRenderParam:     getEnv("RELAY_RENDER_PARAM", "render"),
		ChromeWSURL:          getEnv("CHROME_WS_URL", ""),
		CacheBackend:         getEnv("CACHE_BACKEND", "memory"),
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		TrackerBackend:       getEnv("TRACKER_BACKEND", "memory"),
		PublisherBackend:     getEnv("PUBLISHER_BACKEND", "memory"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "price_observations"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMaxLength,
		Currency:             getEnv("CURRENCY", "GBP"),
		Environment:          getEnv("PRICECOMPARE_ENVIRONMENT", "development"),
	}
}

// Validate checks values that would otherwise fail late at request time
func (c Config) Validate() error {
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT_SECONDS must be positive")
	}
	if c.RenderTimeout <= 0 {
		return fmt.Errorf("RENDER_TIMEOUT_SECONDS must be positive")
	}
	if c.FetchRatePerSec <= 0 {
		return fmt.Errorf("FETCH_RATE_PER_SECOND must be positive")
	}
	if c.RedisStreamCount < 1 {
		return fmt.Errorf("REDIS_STREAM_COUNT must be at least 1")
	}
	switch c.CacheBackend {
	case "memory", "memcache":
	default:
		return fmt.Errorf("CACHE_BACKEND must be 'memory' or 'memcache', got: %s", c.CacheBackend)
	}
	switch c.TrackerBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("TRACKER_BACKEND must be 'memory' or 'redis', got: %s", c.TrackerBackend)
	}
	switch c.PublisherBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("PUBLISHER_BACKEND must be 'memory' or 'redis', got: %s", c.PublisherBackend)
	}
	return nil
}

// UsesRedis reports whether any component needs a Redis connection
func (c Config) UsesRedis() bool {
	return c.TrackerBackend == "redis" || c.PublisherBackend == "redis"
}

// RelayEnabled reports whether sources configured for relay fetching can run
func (c Config) RelayEnabled() bool {
	return c.RelayAPIKey != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
