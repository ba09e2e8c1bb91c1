package pricing

import (
	"iter"
	"sort"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// SiteLocators describes the site-specific part of a source's chain
type SiteLocators struct {
	Primary        string // CSS selector for the current markup
	Secondary      string // CSS selector for an alternate markup version
	StructuredData bool   // also consult JSON-LD / microdata
	Parse          ParseOptions
}

// Registry maps each Source to its ordered locator chain. Sources without a
// registration fall back to the generic currency scan only.
type Registry struct {
	mu       sync.RWMutex
	chains   map[Source][]Locator
	options  map[Source]ParseOptions
	fallback Locator
	currency string
}

// NewRegistry creates an empty registry; currency is applied to every parse
func NewRegistry(currency string) *Registry {
	return &Registry{
		chains:   make(map[Source][]Locator),
		options:  make(map[Source]ParseOptions),
		fallback: GenericScanLocator(),
		currency: currency,
	}
}

// Register installs a locator chain for a source. Locators are kept sorted
// by tier, and the generic scan is appended when not already present.
func (r *Registry) Register(source Source, opts ParseOptions, locators ...Locator) {
	chain := make([]Locator, 0, len(locators)+1)
	hasFallback := false
	for _, l := range locators {
		if l.Find == nil {
			continue
		}
		if l.Tier == TierFallback {
			hasFallback = true
		}
		chain = append(chain, l)
	}
	if !hasFallback {
		chain = append(chain, r.fallback)
	}
	sort.SliceStable(chain, func(i, j int) bool { return chain[i].Tier < chain[j].Tier })

	if opts.Currency == "" {
		opts.Currency = r.currency
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[source] = chain
	r.options[source] = opts
}

// RegisterSite builds the standard four-tier chain from selectors
func (r *Registry) RegisterSite(source Source, site SiteLocators) {
	var locators []Locator
	if sel := strings.TrimSpace(site.Primary); sel != "" {
		locators = append(locators, SelectorLocator("primary-selector", TierPrimary, sel))
	}
	if sel := strings.TrimSpace(site.Secondary); sel != "" {
		locators = append(locators, SelectorLocator("secondary-selector", TierSecondary, sel))
	}
	if site.StructuredData {
		locators = append(locators, StructuredDataLocator())
	}
	r.Register(source, site.Parse, locators...)
}

// Chain returns the locators that run for source, in order
func (r *Registry) Chain(source Source) []Locator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if chain, ok := r.chains[source]; ok {
		out := make([]Locator, len(chain))
		copy(out, chain)
		return out
	}
	return []Locator{r.fallback}
}

// OptionsFor returns the parsing conventions for source
func (r *Registry) OptionsFor(source Source) ParseOptions {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if opts, ok := r.options[source]; ok {
		return opts
	}
	return ParseOptions{Currency: r.currency}
}

// Candidates lazily yields candidates tier by tier. Each locator runs only
// when the consumer asks for more, and every new iteration starts over.
func (r *Registry) Candidates(doc RawDocument) iter.Seq[Candidate] {
	chain := r.Chain(doc.Source)
	return func(yield func(Candidate) bool) {
		parsed, err := goquery.NewDocumentFromReader(strings.NewReader(doc.Content))
		if err != nil {
			return
		}
		for _, locator := range chain {
			for _, text := range locator.Find(parsed) {
				if !yield(Candidate{Text: text, Tier: locator.Tier, Strategy: locator.Name}) {
					return
				}
			}
		}
	}
}

// Locate returns the highest-ranked candidate for doc
func (r *Registry) Locate(doc RawDocument) (Candidate, bool) {
	for c := range r.Candidates(doc) {
		return c, true
	}
	return Candidate{}, false
}
