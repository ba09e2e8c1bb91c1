package crawler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"sjsage522/pricecompare/helpers"
	"sjsage522/pricecompare/internal/pricing"
	"sjsage522/pricecompare/logger"
	apperrors "sjsage522/pricecompare/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// BaseCrawler provides common functionality for all crawlers
type BaseCrawler struct {
	Source  pricing.Source
	Name    string
	BaseURL string
	Fetcher pricing.Fetcher
	log     *logger.Logger
}

// fetchDocument fetches url through the fetch layer and parses it
func (c *BaseCrawler) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	raw, err := c.Fetcher.Fetch(ctx, c.Source, url)
	if err != nil {
		return nil, apperrors.NewSourceUnreachable(c.Source.String(), err)
	}
	return c.createDocument(raw.Content)
}

// createDocument creates a goquery document from page content
func (c *BaseCrawler) createDocument(content string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("HTML parse error: %w", err)
	}
	return doc, nil
}

// processProducts runs processor on every card in parallel. Results keep the
// page order and nil results are dropped.
func (c *BaseCrawler) processProducts(selections *goquery.Selection, processor func(*goquery.Selection) *Product) []Product {
	results := make([]*Product, selections.Length())
	var wg sync.WaitGroup

	selections.Each(func(i int, s *goquery.Selection) {
		wg.Add(1)
		go func(i int, s *goquery.Selection) {
			defer wg.Done()
			results[i] = processor(s)
		}(i, s)
	})

	wg.Wait()

	products := make([]Product, 0, len(results))
	for _, p := range results {
		if p != nil {
			products = append(products, *p)
		}
	}
	return products
}

// ResolveURL resolves a relative URL against the crawler's base URL
func (c *BaseCrawler) ResolveURL(href string) string {
	return helpers.ResolveURL(c.BaseURL, href)
}

// GetName returns the crawler's display name
func (c *BaseCrawler) GetName() string {
	return c.Name
}

// GetSource returns the source key
func (c *BaseCrawler) GetSource() pricing.Source {
	return c.Source
}
