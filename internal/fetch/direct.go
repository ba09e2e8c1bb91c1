package fetch

import (
	"context"
	"net/http"
	"time"

	"sjsage522/pricecompare/helpers"
	"sjsage522/pricecompare/internal/pricing"
	apperrors "sjsage522/pricecompare/pkg/errors"
)

// DirectFetcher requests pages straight from the retailer
type DirectFetcher struct {
	client *http.Client
}

// NewDirectFetcher creates a direct fetcher whose requests time out after timeout
func NewDirectFetcher(timeout time.Duration) *DirectFetcher {
	return &DirectFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch sends a GET with randomized browser headers
func (f *DirectFetcher) Fetch(ctx context.Context, source pricing.Source, url string) (pricing.RawDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return pricing.RawDocument{}, apperrors.NewNetwork(source.String(), "failed to create request", err)
	}
	helpers.SetBrowserHeaders(req)

	content, err := get(ctx, f.client, req, source)
	if err != nil {
		return pricing.RawDocument{}, err
	}
	return pricing.RawDocument{Source: source, URL: url, Content: content}, nil
}
