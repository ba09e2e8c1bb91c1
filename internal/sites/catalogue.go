package sites

import (
	"fmt"
	"sort"

	"sjsage522/pricecompare/helpers"
	"sjsage522/pricecompare/internal/fetch"
	"sjsage522/pricecompare/internal/pricing"
)

// Catalogue is the set of known retailers
type Catalogue struct {
	sites    []Site
	bySource map[pricing.Source]Site
}

// NewCatalogue creates a catalogue; later sites replace earlier ones with the
// same source.
func NewCatalogue(sites ...Site) *Catalogue {
	c := &Catalogue{bySource: make(map[pricing.Source]Site)}
	index := make(map[pricing.Source]int)
	for _, s := range sites {
		if i, exists := index[s.Source]; exists {
			c.sites[i] = s
		} else {
			index[s.Source] = len(c.sites)
			c.sites = append(c.sites, s)
		}
		c.bySource[s.Source] = s
	}
	return c
}

// Default returns the catalogue of supported UK retailers
func Default() *Catalogue {
	return NewCatalogue(Argos(), ArgosRendered(), Currys(), PriceSpy())
}

// Sites returns every site in registration order
func (c *Catalogue) Sites() []Site {
	out := make([]Site, len(c.sites))
	copy(out, c.sites)
	return out
}

// Sources returns the sorted source keys
func (c *Catalogue) Sources() []pricing.Source {
	out := make([]pricing.Source, 0, len(c.sites))
	for _, s := range c.sites {
		out = append(out, s.Source)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Lookup finds a site by source
func (c *Catalogue) Lookup(source pricing.Source) (Site, bool) {
	s, ok := c.bySource[source]
	return s, ok
}

// SourceForURL determines the source of a product URL once, by domain. Hosts
// no site claims become their own source so the generic scan still runs.
func (c *Catalogue) SourceForURL(rawURL string) pricing.Source {
	host := helpers.HostOf(rawURL)
	if host == "" {
		return ""
	}
	for _, s := range c.sites {
		if s.MatchesHost(host) {
			return s.Source
		}
	}
	return pricing.NewSource(host)
}

// NeedsRelay reports whether any site is fetched through the relay
func (c *Catalogue) NeedsRelay() bool {
	for _, s := range c.sites {
		if s.Mode.UsesRelay() {
			return true
		}
	}
	return false
}

// Register installs every site's locator chain
func (c *Catalogue) Register(registry *pricing.Registry) {
	for _, s := range c.sites {
		registry.RegisterSite(s.Source, s.Price)
	}
}

// Wire routes each site to the fetcher for its mode. Sites whose mode is not
// configured are reported and left on the router's fallback.
func (c *Catalogue) Wire(router *fetch.Router, fetchers fetch.Fetchers) error {
	var missing []string
	for _, s := range c.sites {
		f, err := fetchers.For(s.Mode)
		if err != nil {
			missing = append(missing, fmt.Sprintf("%s (%s)", s.Source, s.Mode))
			continue
		}
		router.Route(s.Source, f)

		if rf, ok := f.(*fetch.RenderFetcher); ok && s.Listing.WaitFor != "" {
			rf.WaitFor(s.Source, s.Listing.WaitFor)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("fetch mode unavailable for %v", missing)
	}
	return nil
}
