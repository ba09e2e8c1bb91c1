package sites

import (
	"net/url"
	"strings"

	"sjsage522/pricecompare/internal/fetch"
	"sjsage522/pricecompare/internal/pricing"
)

// Listing holds the selectors for search result product cards
type Listing struct {
	Card  string
	Title string
	Price string
	// Link is optional; the title's or the card's own href is used otherwise.
	Link  string
	Image string
	// WaitFor is the selector a rendered page waits on before capture.
	WaitFor string
}

// Site describes one retailer
type Site struct {
	Source  pricing.Source
	Name    string
	Domains []string
	BaseURL string
	Mode    fetch.Mode
	Price   pricing.SiteLocators
	Listing Listing

	searchURL func(query string) string
}

// SearchURL builds the retailer's search page URL for query
func (s Site) SearchURL(query string) string {
	query = strings.TrimSpace(query)
	if s.searchURL == nil {
		return s.BaseURL + "/search?q=" + url.QueryEscape(query)
	}
	return s.searchURL(query)
}

// MatchesHost reports whether host belongs to the site
func (s Site) MatchesHost(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for _, d := range s.Domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Argos served through the relay
func Argos() Site {
	return Site{
		Source:  "argos",
		Name:    "Argos",
		Domains: []string{"argos.co.uk"},
		BaseURL: "https://www.argos.co.uk",
		Mode:    fetch.ModeRelay,
		Price: pricing.SiteLocators{
			Primary:        `[data-test="product-price-primary"]`,
			Secondary:      `li[itemprop="price"]`,
			StructuredData: true,
		},
		Listing: Listing{
			Card:  `ul[data-test="component-product-card"] li`,
			Title: `a[data-test="component-product-card-title"]`,
			Price: `div[data-test="component-product-card-price"]`,
			Image: "img",
		},
		searchURL: pathSearch("https://www.argos.co.uk/search/"),
	}
}

// ArgosRendered loads Argos in a headless browser. Card prices on the rendered
// page are pence without a separator.
func ArgosRendered() Site {
	return Site{
		Source:  "argos-rendered",
		Name:    "Argos",
		Domains: nil,
		BaseURL: "https://www.argos.co.uk",
		Mode:    fetch.ModeRender,
		Price: pricing.SiteLocators{
			Primary:        `strong[data-test="product-price"]`,
			Secondary:      `[data-test="product-price-primary"]`,
			StructuredData: true,
			Parse:          pricing.ParseOptions{MinorUnits: true},
		},
		Listing: Listing{
			Card:    `li[data-test="component-product-card"]`,
			Title:   `h2 span[data-test="product-title"]`,
			Price:   `strong[data-test="product-price"]`,
			Link:    `a[data-test="component-product-card-title"]`,
			Image:   "img",
			WaitFor: `li[data-test="component-product-card"]`,
		},
		searchURL: pathSearch("https://www.argos.co.uk/search/"),
	}
}

// Currys needs JavaScript rendering, so it goes through the relay with
// rendering on.
func Currys() Site {
	return Site{
		Source:  "currys",
		Name:    "Currys",
		Domains: []string{"currys.co.uk"},
		BaseURL: "https://www.currys.co.uk",
		Mode:    fetch.ModeRelayJS,
		Price: pricing.SiteLocators{
			Primary:        "p.product-price_price",
			Secondary:      `[data-testid="product-price"]`,
			StructuredData: true,
		},
		Listing: Listing{
			Card:  "li.product",
			Title: "h2.product-title",
			Price: ".product-price",
			Link:  "a",
			Image: "img",
		},
		searchURL: func(q string) string {
			return "https://www.currys.co.uk/search?q=" + url.QueryEscape(q)
		},
	}
}

// PriceSpy is a comparison site rendered client side
func PriceSpy() Site {
	return Site{
		Source:  "pricespy",
		Name:    "PriceSpy",
		Domains: []string{"pricespy.co.uk"},
		BaseURL: "https://www.pricespy.co.uk",
		Mode:    fetch.ModeRender,
		Price: pricing.SiteLocators{
			Primary:        `[data-test="PriceLabel"]`,
			Secondary:      `[data-test="ProductPrice"]`,
			StructuredData: true,
		},
		Listing: Listing{
			Card:    `a[data-test="product-link"]`,
			Title:   `[data-test="ProductName"]`,
			Price:   `[data-test="PriceLabel"]`,
			Image:   "img",
			WaitFor: `a[data-test="product-link"]`,
		},
		searchURL: func(q string) string {
			return "https://www.pricespy.co.uk/search?search=" + url.QueryEscape(q)
		},
	}
}

// pathSearch puts the query in a path segment with spaces as %20
func pathSearch(prefix string) func(string) string {
	return func(q string) string {
		return prefix + url.PathEscape(q) + "/"
	}
}
