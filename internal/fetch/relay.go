package fetch

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"sjsage522/pricecompare/internal/pricing"
	apperrors "sjsage522/pricecompare/pkg/errors"
)

// RelayConfig describes a ScraperAPI / ScrapingBee style relay
type RelayConfig struct {
	Endpoint    string
	APIKey      string
	RenderParam string // e.g. "render" (ScraperAPI) or "render_js" (ScrapingBee)
	Render      bool
	Timeout     time.Duration
}

// RelayFetcher retrieves pages through a relay that takes the target as a
// query parameter.
type RelayFetcher struct {
	cfg    RelayConfig
	client *http.Client
}

// NewRelayFetcher creates a relay fetcher
func NewRelayFetcher(cfg RelayConfig) *RelayFetcher {
	if cfg.RenderParam == "" {
		cfg.RenderParam = "render"
	}
	return &RelayFetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// RequestURL builds the relay URL for target
func (f *RelayFetcher) RequestURL(target string) (string, error) {
	endpoint, err := url.Parse(f.cfg.Endpoint)
	if err != nil {
		return "", err
	}
	q := endpoint.Query()
	q.Set("api_key", f.cfg.APIKey)
	q.Set("url", target)
	if f.cfg.Render {
		q.Set(f.cfg.RenderParam, "true")
	}
	endpoint.RawQuery = q.Encode()
	return endpoint.String(), nil
}

// Fetch asks the relay for target. The relay's status is the target's status.
func (f *RelayFetcher) Fetch(ctx context.Context, source pricing.Source, target string) (pricing.RawDocument, error) {
	if f.cfg.APIKey == "" {
		return pricing.RawDocument{}, apperrors.NewConfiguration("relay API key not configured", nil)
	}

	relayURL, err := f.RequestURL(target)
	if err != nil {
		return pricing.RawDocument{}, apperrors.NewConfiguration("invalid relay endpoint", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, relayURL, nil)
	if err != nil {
		return pricing.RawDocument{}, apperrors.NewNetwork(source.String(), "failed to create request", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	content, err := get(ctx, f.client, req, source)
	if err != nil {
		return pricing.RawDocument{}, err
	}
	return pricing.RawDocument{Source: source, URL: target, Content: content}, nil
}
