package pricing

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Locator finds candidate price texts in a parsed document. Find must be
// pure: no network, no state.
type Locator struct {
	Name string
	Tier Tier
	Find func(doc *goquery.Document) []string
}

// currencyPattern matches a currency symbol followed by a number
var currencyPattern = regexp.MustCompile(`[£$€]\s?\d+(?:,\d{3})*(?:\.\d+)?`)

// priceAttributes are read when a matched element has no text of its own
var priceAttributes = []string{"content", "data-price", "value"}

// SelectorLocator returns the texts of every element matching selector, in
// document order.
func SelectorLocator(name string, tier Tier, selector string) Locator {
	return Locator{
		Name: name,
		Tier: tier,
		Find: func(doc *goquery.Document) []string {
			var texts []string
			doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
				if text := elementText(s); text != "" {
					texts = append(texts, text)
				}
			})
			return texts
		},
	}
}

// StructuredDataLocator reads prices from JSON-LD Product/Offer blocks,
// schema.org microdata and product meta tags.
func StructuredDataLocator() Locator {
	return Locator{
		Name: "structured-data",
		Tier: TierStructured,
		Find: findStructuredPrices,
	}
}

// GenericScanLocator returns the shortest currency-prefixed number found
// anywhere in the body.
func GenericScanLocator() Locator {
	return Locator{
		Name: "currency-scan",
		Tier: TierFallback,
		Find: findShortestCurrencyText,
	}
}

func elementText(s *goquery.Selection) string {
	if text := normalizeSpace(s.Text()); text != "" {
		return text
	}
	for _, attr := range priceAttributes {
		if v, ok := s.Attr(attr); ok {
			if v = normalizeSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

func findStructuredPrices(doc *goquery.Document) []string {
	var prices []string

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var data interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return
		}
		walkJSON(data, func(obj map[string]interface{}) {
			if !isOfferType(obj["@type"]) {
				return
			}
			for _, key := range []string{"price", "lowPrice"} {
				if p := jsonPrice(obj[key]); p != "" {
					prices = append(prices, p)
					return
				}
			}
		})
	})

	doc.Find(`[itemprop="price"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok && strings.TrimSpace(v) != "" {
			prices = append(prices, jsonPrice(v))
			return
		}
		if text := normalizeSpace(s.Text()); text != "" {
			prices = append(prices, text)
		}
	})

	doc.Find(`meta[property="product:price:amount"], meta[property="og:price:amount"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok && strings.TrimSpace(v) != "" {
			prices = append(prices, jsonPrice(v))
		}
	})

	return prices
}

// walkJSON visits every object in a decoded JSON value, depth first, with
// object keys in sorted order so repeated runs agree.
func walkJSON(v interface{}, visit func(map[string]interface{})) {
	switch t := v.(type) {
	case map[string]interface{}:
		visit(t)
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkJSON(t[k], visit)
		}
	case []interface{}:
		for _, child := range t {
			walkJSON(child, visit)
		}
	}
}

func isOfferType(v interface{}) bool {
	switch t := v.(type) {
	case string:
		return t == "Offer" || t == "AggregateOffer"
	case []interface{}:
		for _, item := range t {
			if isOfferType(item) {
				return true
			}
		}
	}
	return false
}

// jsonPrice renders a structured price in major units with an explicit
// decimal point, so a minor-units source never rescales it.
func jsonPrice(v interface{}) string {
	switch t := v.(type) {
	case float64:
		if t < 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', 2, 64)
	case string:
		s := strings.TrimSpace(t)
		if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
			return strconv.FormatFloat(f, 'f', 2, 64)
		}
		return s
	}
	return ""
}

// ignoredElements hold text that is never shown as a price
var ignoredElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// findShortestCurrencyText returns the shortest currency match found in the
// visible text of <body> or any element under it. Text sitting directly in
// <body> counts. Ties go to the element that starts first.
func findShortestCurrencyText(doc *goquery.Document) []string {
	shortest := ""
	for _, body := range doc.Find("body").Nodes {
		for _, text := range elementTexts(body) {
			for _, match := range currencyPattern.FindAllString(normalizeSpace(text), -1) {
				if shortest == "" || len([]rune(match)) < len([]rune(shortest)) {
					shortest = match
				}
			}
		}
	}
	if shortest == "" {
		return nil
	}
	return []string{shortest}
}

// elementTexts returns the visible text of root and of each element below
// it, in document order.
func elementTexts(root *html.Node) []string {
	var texts []string
	var walk func(n *html.Node) string
	walk = func(n *html.Node) string {
		switch n.Type {
		case html.TextNode:
			return n.Data
		case html.ElementNode:
			if ignoredElements[n.DataAtom] {
				return ""
			}
		default:
			return ""
		}

		idx := len(texts)
		texts = append(texts, "")
		var b strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			b.WriteString(walk(c))
		}
		texts[idx] = b.String()
		return texts[idx]
	}
	walk(root)
	return texts
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
