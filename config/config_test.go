package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	// Test with default values
	config := LoadConfig()
	assert.Equal(t, ":8000", config.HTTPAddr)
	assert.Equal(t, "localhost:6379", config.RedisAddr)
	assert.Equal(t, 0, config.RedisDB)
	assert.Equal(t, 1, config.RedisStreamCount)
	assert.Equal(t, "localhost:11211", config.MemcacheAddr)
	assert.Equal(t, 20*time.Second, config.FetchTimeout)
	assert.Equal(t, 60*time.Second, config.RenderTimeout)
	assert.Equal(t, "memory", config.TrackerBackend)
	assert.Equal(t, "memory", config.PublisherBackend)
	assert.False(t, config.UsesRedis())
	assert.Equal(t, "GBP", config.Currency)
	assert.Equal(t, []string{"*"}, config.AllowedOrigins)
	assert.False(t, config.RelayEnabled())

	// Test with environment variables
	t.Setenv("REDIS_ADDR", "redis.example.com:6379")
	t.Setenv("REDIS_DB", "1")
	t.Setenv("MEMCACHE_ADDR", "memcache.example.com:11211")
	t.Setenv("FETCH_TIMEOUT_SECONDS", "5")
	t.Setenv("RELAY_API_KEY", "secret")
	t.Setenv("RELAY_RENDER_PARAM", "render_js")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://app.example.com")
	t.Setenv("PUBLISHER_BACKEND", "redis")

	config = LoadConfig()
	assert.Equal(t, "redis.example.com:6379", config.RedisAddr)
	assert.Equal(t, 1, config.RedisDB)
	assert.Equal(t, "memcache.example.com:11211", config.MemcacheAddr)
	assert.Equal(t, 5*time.Second, config.FetchTimeout)
	assert.Equal(t, "render_js", config.RelayRenderParam)
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, config.AllowedOrigins)
	assert.True(t, config.RelayEnabled())
	assert.True(t, config.UsesRedis())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, LoadConfig().Validate())

	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero fetch timeout", func(c *Config) { c.FetchTimeout = 0 }},
		{"zero render timeout", func(c *Config) { c.RenderTimeout = 0 }},
		{"zero rate", func(c *Config) { c.FetchRatePerSec = 0 }},
		{"unknown cache", func(c *Config) { c.CacheBackend = "disk" }},
		{"unknown tracker", func(c *Config) { c.TrackerBackend = "postgres" }},
		{"unknown publisher", func(c *Config) { c.PublisherBackend = "kafka" }},
		{"no streams", func(c *Config) { c.RedisStreamCount = 0 }},
	}

	for _, tc := range testCases {
		cfg := LoadConfig()
		tc.mutate(&cfg)
		assert.Error(t, cfg.Validate(), tc.name)
	}
}
