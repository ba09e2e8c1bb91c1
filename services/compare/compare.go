package compare

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"sjsage522/pricecompare/internal/crawler"
	"sjsage522/pricecompare/internal/pricing"
	"sjsage522/pricecompare/logger"
	apperrors "sjsage522/pricecompare/pkg/errors"
)

// SourceError reports why one source contributed no products
type SourceError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Result is the merged search outcome across sources
type Result struct {
	Query    string                         `json:"query"`
	Products []crawler.Product              `json:"products"`
	Errors   map[pricing.Source]SourceError `json:"errors,omitempty"`
}

// Comparer searches every retailer concurrently and merges the results
type Comparer struct {
	crawlers []crawler.Crawler
	timeout  time.Duration
	log      *logger.Logger
}

// NewComparer creates a comparer over crawlers. timeout bounds each source's
// search; zero leaves it to the caller's context.
func NewComparer(crawlers []crawler.Crawler, timeout time.Duration) *Comparer {
	return &Comparer{
		crawlers: crawlers,
		timeout:  timeout,
		log:      logger.ForCompare(),
	}
}

type sourceResult struct {
	source   pricing.Source
	products []crawler.Product
	err      error
}

// Compare runs the search on every crawler, or only on sources when given.
// One source failing never hides another's products.
func (c *Comparer) Compare(ctx context.Context, query string, sources ...pricing.Source) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, apperrors.NewValidation("", "query is required")
	}

	selected := c.selectCrawlers(sources)
	results := make([]sourceResult, len(selected))

	var wg sync.WaitGroup
	for i, cr := range selected {
		wg.Add(1)
		go func(i int, cr crawler.Crawler) {
			defer wg.Done()
			results[i] = c.search(ctx, cr, query)
		}(i, cr)
	}
	wg.Wait()

	merged := Result{Query: query, Products: []crawler.Product{}}
	for _, r := range results {
		if r.err != nil {
			if merged.Errors == nil {
				merged.Errors = make(map[pricing.Source]SourceError)
			}
			merged.Errors[r.source] = SourceError{
				Kind:    string(apperrors.KindOf(r.err)),
				Message: r.err.Error(),
			}
			continue
		}
		merged.Products = append(merged.Products, r.products...)
	}

	SortByPrice(merged.Products)

	c.log.Info().
		Str("query", query).
		Int("sources", len(selected)).
		Int("products", len(merged.Products)).
		Int("failed", len(merged.Errors)).
		Msg("Comparison finished")

	return merged, nil
}

func (c *Comparer) search(ctx context.Context, cr crawler.Crawler, query string) sourceResult {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	products, err := cr.Search(ctx, query)
	if err != nil {
		logger.LogError(cr.GetName(), err, "search %q failed", query)
		return sourceResult{source: cr.GetSource(), err: err}
	}

	c.log.Debug().
		Str("source", cr.GetSource().String()).
		Int("products", len(products)).
		Dur("elapsed", time.Since(start)).
		Msg("Source searched")
	return sourceResult{source: cr.GetSource(), products: products}
}

func (c *Comparer) selectCrawlers(sources []pricing.Source) []crawler.Crawler {
	if len(sources) == 0 {
		return c.crawlers
	}
	wanted := make(map[pricing.Source]bool, len(sources))
	for _, s := range sources {
		wanted[s] = true
	}
	var out []crawler.Crawler
	for _, cr := range c.crawlers {
		if wanted[cr.GetSource()] {
			out = append(out, cr)
		}
	}
	return out
}

// SortByPrice orders products cheapest first; ties keep source then name order
func SortByPrice(products []crawler.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.ProductName < b.ProductName
	})
}
