package sites

import (
	"context"
	"testing"
	"time"

	"sjsage522/pricecompare/internal/fetch"
	"sjsage522/pricecompare/internal/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchURL(t *testing.T) {
	testCases := []struct {
		site     Site
		query    string
		expected string
	}{
		{Argos(), "air fryer", "https://www.argos.co.uk/search/air%20fryer/"},
		{ArgosRendered(), " lenovo ideapad ", "https://www.argos.co.uk/search/lenovo%20ideapad/"},
		{PriceSpy(), "air fryer", "https://www.pricespy.co.uk/search?search=air+fryer"},
		{Currys(), "tv & stand", "https://www.currys.co.uk/search?q=tv+%26+stand"},
		{Site{BaseURL: "https://shop.test"}, "kettle", "https://shop.test/search?q=kettle"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, tc.site.SearchURL(tc.query))
	}
}

func TestSourceForURL(t *testing.T) {
	c := Default()

	assert.Equal(t, pricing.Source("argos"), c.SourceForURL("https://www.argos.co.uk/product/123"))
	assert.Equal(t, pricing.Source("currys"), c.SourceForURL("https://www.currys.co.uk/products/x.html"))
	assert.Equal(t, pricing.Source("pricespy"), c.SourceForURL("https://pricespy.co.uk/p/1"))
	assert.Equal(t, pricing.Source("shop.example.com"), c.SourceForURL("https://shop.example.com/item"))
	assert.Equal(t, pricing.Source(""), c.SourceForURL("not a url"))
}

func TestCatalogueLookupAndSources(t *testing.T) {
	c := Default()

	s, ok := c.Lookup("argos-rendered")
	require.True(t, ok)
	assert.Equal(t, fetch.ModeRender, s.Mode)
	assert.True(t, s.Price.Parse.MinorUnits)

	_, ok = c.Lookup("amazon")
	assert.False(t, ok)

	assert.Equal(t, []pricing.Source{"argos", "argos-rendered", "currys", "pricespy"}, c.Sources())
	assert.True(t, c.NeedsRelay())
}

func TestNewCatalogueReplacesDuplicates(t *testing.T) {
	custom := Argos()
	custom.Mode = fetch.ModeDirect

	c := NewCatalogue(Argos(), Currys(), custom)
	require.Len(t, c.Sites(), 2)
	assert.Equal(t, fetch.ModeDirect, c.Sites()[0].Mode)
	assert.False(t, NewCatalogue(custom).NeedsRelay())
}

func TestRegisterInstallsChains(t *testing.T) {
	registry := pricing.NewRegistry("GBP")
	Default().Register(registry)

	chain := registry.Chain("currys")
	require.Len(t, chain, 4)
	assert.Equal(t, pricing.TierPrimary, chain[0].Tier)

	assert.True(t, registry.OptionsFor("argos-rendered").MinorUnits)
	assert.False(t, registry.OptionsFor("argos").MinorUnits)
}

func TestCurrysPriceChain(t *testing.T) {
	registry := pricing.NewRegistry("GBP")
	Default().Register(registry)
	p := pricing.NewPipeline(nil, registry, nil)

	html := `<html><body><div data-testid="product-price">£849.99</div></body></html>`
	result, err := p.ExtractFromDocument(pricing.RawDocument{Source: "currys", Content: html})
	require.NoError(t, err)
	assert.Equal(t, 849.99, result.Money.Amount)
	assert.Equal(t, pricing.TierSecondary, result.Tier)
}

func TestWire(t *testing.T) {
	direct := fetch.NewDirectFetcher(time.Second)
	render := fetch.NewRenderFetcher(context.Background(), fetch.RenderConfig{Timeout: time.Second})
	defer render.Close()

	router := fetch.NewRouter(direct, nil, fetch.RouterOptions{})
	err := Default().Wire(router, fetch.Fetchers{Direct: direct, Render: render})

	// relay modes are not configured
	require.Error(t, err)
	assert.Contains(t, err.Error(), "argos (relay)")
	assert.Contains(t, err.Error(), "currys (relay-js)")

	err = NewCatalogue(PriceSpy()).Wire(router, fetch.Fetchers{Render: render})
	assert.NoError(t, err)
}
