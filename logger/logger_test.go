package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWithField(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf)).WithField("source", "argos").WithField("tier", 1)

	l.Info().Str("url", "https://www.argos.co.uk/p/1").Msg("price extracted")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "argos", entry["source"])
	assert.Equal(t, float64(1), entry["tier"])
	assert.Equal(t, "price extracted", entry["message"])
}

func TestGetLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, zerolog.WarnLevel, getLogLevel())

	t.Setenv("LOG_LEVEL", "not-a-level")
	assert.Equal(t, zerolog.InfoLevel, getLogLevel())

	t.Setenv("LOG_LEVEL", "")
	t.Setenv("PRICECOMPARE_ENVIRONMENT", "production")
	assert.Equal(t, zerolog.InfoLevel, getLogLevel())

	t.Setenv("PRICECOMPARE_ENVIRONMENT", "development")
	assert.Equal(t, zerolog.DebugLevel, getLogLevel())
}

func TestComponentLoggers(t *testing.T) {
	Init()
	assert.NotNil(t, ForPipeline())
	assert.NotNil(t, ForFetcher("relay"))
	assert.NotNil(t, ForCrawler("argos"))
	assert.NotNil(t, ForServer())
}
