package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sjsage522/pricecompare/config"
	"sjsage522/pricecompare/internal/api"
	"sjsage522/pricecompare/services/publisher"
	"sjsage522/pricecompare/services/tracker"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A retailer page with no site-specific markup; only the generic scan finds it
const productHTML = `
<!DOCTYPE html>
<html>
<head><title>Cordless Kettle</title></head>
<body>
    <h1>Cordless Kettle 1.7L</h1>
    <script>window.dataLayer = {"price": "£1"};</script>
    <div class="buy-box">
        <span class="label">Our price</span>
        <span class="amount">£24.99</span>
    </div>
</body>
</html>
`

func newRetailer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/kettle":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			io.WriteString(w, productHTML)
		case "/busy":
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig() config.Config {
	cfg := config.LoadConfig()
	cfg.FetchTimeout = 5 * time.Second
	cfg.RenderTimeout = 5 * time.Second
	cfg.FetchRatePerSec = 100
	cfg.FetchBlockTime = time.Minute
	cfg.CacheBackend = "memory"
	cfg.TrackerBackend = "memory"
	cfg.PublisherBackend = "memory"
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	app, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(app.Cleanup)
	return app
}

func get(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

// TestIntegration tests the entire application flow
func TestIntegration(t *testing.T) {
	retailer := newRetailer(t)
	app := newTestApp(t, testConfig())

	// Price lookup through the router and the generic scan
	rec := get(t, app.Handler, "/price?url="+retailer.URL+"/kettle")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var price api.PriceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &price))
	assert.Equal(t, 24.99, price.Amount)
	assert.Equal(t, "GBP", price.Currency)
	assert.Equal(t, "currency-scan", price.Strategy)

	// A 404 from the retailer is an unreachable source
	rec = get(t, app.Handler, "/price?url="+retailer.URL+"/gone")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	// Track the kettle and check it once
	body := fmt.Sprintf(`{"product_name":"Kettle","url":"%s/kettle","target_price":30,"email":"me@example.com"}`, retailer.URL)
	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/track/", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var item tracker.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))

	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/track/"+item.ID+"/check", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var obs tracker.Observation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &obs))
	require.NotNil(t, obs.Price)
	assert.Equal(t, 24.99, *obs.Price)
	assert.True(t, obs.TargetReached)

	memPub, ok := app.Publisher.(*publisher.MemoryPublisher)
	require.True(t, ok)
	require.Len(t, memPub.Messages(), 1)
	assert.Equal(t, item.Source.String(), memPub.Messages()[0].Key)
}

func TestIntegration_RateLimitedSourceIsBlocked(t *testing.T) {
	retailer := newRetailer(t)
	app := newTestApp(t, testConfig())

	rec := get(t, app.Handler, "/price?url="+retailer.URL+"/busy")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	source := app.Catalogue.SourceForURL(retailer.URL)
	assert.True(t, app.Router.Blocked(source))

	// The block applies to every page of the source, without a request
	rec = get(t, app.Handler, "/price?url="+retailer.URL+"/kettle")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	require.NoError(t, app.Router.Unblock(source))
	rec = get(t, app.Handler, "/price?url="+retailer.URL+"/kettle")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIntegration_RedisStreams(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.PublisherBackend = "redis"
	cfg.TrackerBackend = "redis"
	cfg.RedisStream = "test_price_observations"

	// Check if Redis is available by attempting a ping, skip test if not
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis is not available, skipping integration test")
	}
	stream := cfg.RedisStream + ":0"
	client.Del(ctx, stream)
	defer client.Del(ctx, stream)

	retailer := newRetailer(t)
	app := newTestApp(t, cfg)

	item, err := app.Tracker.Create(ctx, tracker.Item{
		ProductName: "Kettle",
		URL:         retailer.URL + "/kettle",
		Source:      app.Catalogue.SourceForURL(retailer.URL),
		TargetPrice: 20,
		Email:       "me@example.com",
		Frequency:   tracker.FrequencyDaily,
	})
	require.NoError(t, err)
	defer app.Tracker.Delete(ctx, item.ID)

	observations, err := app.Worker.CheckAll(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, observations)

	entries, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	// Decode the base64 message payload
	payload, ok := entries[len(entries)-1].Values[item.Source.String()].(string)
	require.True(t, ok)
	decoded, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)

	var obs tracker.Observation
	require.NoError(t, json.Unmarshal(decoded, &obs))
	assert.Equal(t, item.ID, obs.ItemID)
	assert.False(t, obs.TargetReached)
}
