package crawler

import (
	"context"
	"strings"

	"sjsage522/pricecompare/internal/pricing"
	"sjsage522/pricecompare/internal/sites"
	"sjsage522/pricecompare/logger"
	apperrors "sjsage522/pricecompare/pkg/errors"

	"github.com/PuerkitoBio/goquery"
)

// imageAttributes are tried in order; lazy-loaded images keep the real URL in data-src
var imageAttributes = []string{"src", "data-src", "data-lazy-src"}

// ListingCrawler is a crawler configured with a site's listing selectors
type ListingCrawler struct {
	BaseCrawler
	site  sites.Site
	parse pricing.ParseOptions
}

// NewListingCrawler creates a crawler for site. Card prices are parsed with
// the site's conventions in currency.
func NewListingCrawler(site sites.Site, fetcher pricing.Fetcher, currency string) *ListingCrawler {
	parse := site.Price.Parse
	if parse.Currency == "" {
		parse.Currency = currency
	}
	return &ListingCrawler{
		BaseCrawler: BaseCrawler{
			Source:  site.Source,
			Name:    site.Name,
			BaseURL: site.BaseURL,
			Fetcher: fetcher,
			log:     logger.ForCrawler(site.Source.String()),
		},
		site:  site,
		parse: parse,
	}
}

// Search fetches the site's search page for query and extracts product cards
func (c *ListingCrawler) Search(ctx context.Context, query string) ([]Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidation(c.Source.String(), "query is required")
	}

	searchURL := c.site.SearchURL(query)
	doc, err := c.fetchDocument(ctx, searchURL)
	if err != nil {
		c.log.Warn().Str("url", searchURL).Err(err).Msg("Search fetch failed")
		return nil, err
	}

	products := c.ParseListing(doc)
	c.log.Debug().
		Str("query", query).
		Int("cards", doc.Find(c.site.Listing.Card).Length()).
		Int("products", len(products)).
		Msg("Search parsed")

	if len(products) == 0 {
		return nil, apperrors.NewNotFound(c.Source.String(), "no products found")
	}
	return products, nil
}

// ParseListing extracts every usable product card from a search page
func (c *ListingCrawler) ParseListing(doc *goquery.Document) []Product {
	return c.processProducts(doc.Find(c.site.Listing.Card), c.processProduct)
}

// processProduct turns one card into a Product. Cards without a title or a
// parseable price are skipped.
func (c *ListingCrawler) processProduct(s *goquery.Selection) *Product {
	listing := c.site.Listing

	titleSel := s.Find(listing.Title).First()
	if titleSel.Length() == 0 {
		return nil
	}
	title := normalizeSpace(titleSel.Text())
	if title == "" {
		if attr, exists := titleSel.Attr("title"); exists {
			title = normalizeSpace(attr)
		}
	}
	if title == "" {
		return nil
	}

	priceSel := s.Find(listing.Price).First()
	if priceSel.Length() == 0 {
		return nil
	}
	money, err := pricing.ParsePrice(priceSel.Text(), c.parse)
	if err != nil {
		c.log.Debug().Str("title", title).Str("price_text", normalizeSpace(priceSel.Text())).Msg("Skipping card without a usable price")
		return nil
	}

	return &Product{
		ProductName: title,
		Price:       money.Amount,
		Currency:    money.Currency,
		Source:      c.Name,
		Link:        c.ResolveURL(c.extractLink(s, titleSel)),
		Image:       c.ResolveURL(c.extractImage(s)),
	}
}

// extractLink prefers the listing's link selector, then an anchor at or inside
// the title, then the card itself
func (c *ListingCrawler) extractLink(card, title *goquery.Selection) string {
	candidates := []*goquery.Selection{}
	if sel := c.site.Listing.Link; sel != "" {
		candidates = append(candidates, card.Find(sel).First())
	}
	candidates = append(candidates,
		title.Closest("a"),
		title.Find("a").First(),
		card.Filter("a"),
	)

	for _, sel := range candidates {
		if href, exists := sel.Attr("href"); exists && strings.TrimSpace(href) != "" {
			return href
		}
	}
	return ""
}

func (c *ListingCrawler) extractImage(card *goquery.Selection) string {
	sel := c.site.Listing.Image
	if sel == "" {
		return ""
	}
	img := card.Find(sel).First()
	for _, attr := range imageAttributes {
		if v, exists := img.Attr(attr); exists && strings.TrimSpace(v) != "" && !strings.HasPrefix(v, "data:") {
			return v
		}
	}
	return ""
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
