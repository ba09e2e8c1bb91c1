package crawler

import (
	"context"

	"sjsage522/pricecompare/internal/pricing"
)

// Product is one search result card
type Product struct {
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency,omitempty"`
	Source      string  `json:"source"`
	Link        string  `json:"link"`
	Image       string  `json:"image"`
}

// Crawler searches one retailer's listing pages
type Crawler interface {
	// Search returns the products a retailer lists for query
	Search(ctx context.Context, query string) ([]Product, error)

	// GetName returns the crawler's name for logging and identification
	GetName() string

	// GetSource returns the source key the crawler serves
	GetSource() pricing.Source
}
