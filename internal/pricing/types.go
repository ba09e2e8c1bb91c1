package pricing

import (
	"context"
	"strconv"
	"strings"
)

// Source identifies a retailer, e.g. "argos"
type Source string

// NewSource normalizes a retailer name or host into a Source
func NewSource(name string) Source {
	return Source(strings.ToLower(strings.TrimSpace(name)))
}

func (s Source) String() string { return string(s) }

// RawDocument is page content obtained from one fetch
type RawDocument struct {
	Source  Source
	URL     string
	Content string
}

// Tier ranks which kind of locator produced a candidate; lower is more specific
type Tier int

const (
	TierPrimary    Tier = 1
	TierSecondary  Tier = 2
	TierStructured Tier = 3
	TierFallback   Tier = 4
)

func (t Tier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierStructured:
		return "structured"
	case TierFallback:
		return "fallback"
	default:
		return "tier" + strconv.Itoa(int(t))
	}
}

// Candidate is a located price text fragment
type Candidate struct {
	Text     string
	Tier     Tier
	Strategy string
}

// Money is a non-negative amount in the deployment's currency
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
}

// String renders the amount with two decimals
func (m Money) String() string {
	return strconv.FormatFloat(m.Amount, 'f', 2, 64)
}

// Extraction is a successful pipeline outcome with its provenance
type Extraction struct {
	Money    Money
	Source   Source
	URL      string
	Tier     Tier
	Strategy string
	Text     string
}

// Fetcher retrieves a document for a source. Implementations decide the
// fetch mode and must honour the context deadline.
type Fetcher interface {
	Fetch(ctx context.Context, source Source, url string) (RawDocument, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, source Source, url string) (RawDocument, error)

// Fetch calls f
func (f FetcherFunc) Fetch(ctx context.Context, source Source, url string) (RawDocument, error) {
	return f(ctx, source, url)
}
