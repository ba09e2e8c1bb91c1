package crawler

import (
	"sjsage522/pricecompare/internal/pricing"
	"sjsage522/pricecompare/internal/sites"
	"sjsage522/pricecompare/logger"
)

// CreateCrawlers creates one listing crawler per catalogue site
func CreateCrawlers(catalogue *sites.Catalogue, fetcher pricing.Fetcher, currency string) []Crawler {
	var crawlers []Crawler
	for _, site := range catalogue.Sites() {
		if site.Listing.Card == "" {
			continue
		}
		crawlers = append(crawlers, NewListingCrawler(site, fetcher, currency))
	}

	logger.Debug("Created %d crawlers", len(crawlers))
	return crawlers
}

// BySource indexes crawlers by source key
func BySource(crawlers []Crawler) map[pricing.Source]Crawler {
	out := make(map[pricing.Source]Crawler, len(crawlers))
	for _, c := range crawlers {
		out[c.GetSource()] = c
	}
	return out
}
