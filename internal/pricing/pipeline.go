package pricing

import (
	"context"

	"sjsage522/pricecompare/logger"
	apperrors "sjsage522/pricecompare/pkg/errors"
)

// Pipeline runs fetch, locate and parse for one (source, url) pair.
// It holds no mutable state and is safe for concurrent use.
type Pipeline struct {
	fetcher  Fetcher
	registry *Registry
	log      *logger.Logger
}

// NewPipeline creates a new pipeline
func NewPipeline(fetcher Fetcher, registry *Registry, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		fetcher:  fetcher,
		registry: registry,
		log:      log,
	}
}

// ExtractPrice performs exactly one fetch and at most one parse. The URL is
// used as given; building it from a search query is the caller's job.
func (p *Pipeline) ExtractPrice(ctx context.Context, source Source, url string) (*Extraction, error) {
	doc, err := p.fetcher.Fetch(ctx, source, url)
	if err != nil {
		p.log.Warn().
			Str("source", source.String()).
			Str("url", url).
			Err(err).
			Msg("Fetch failed")
		return nil, apperrors.NewSourceUnreachable(source.String(), err)
	}
	if doc.Source == "" {
		doc.Source = source
	}
	if doc.URL == "" {
		doc.URL = url
	}

	return p.ExtractFromDocument(doc)
}

// ExtractFromDocument locates the winning candidate and parses it. A winner
// that fails to parse is reported as is; lower tiers are not consulted.
func (p *Pipeline) ExtractFromDocument(doc RawDocument) (*Extraction, error) {
	candidate, ok := p.registry.Locate(doc)
	if !ok {
		p.log.Debug().
			Str("source", doc.Source.String()).
			Str("url", doc.URL).
			Msg("No price candidate")
		return nil, apperrors.NewNoPriceFound(doc.Source.String())
	}

	money, err := ParsePrice(candidate.Text, p.registry.OptionsFor(doc.Source))
	if err != nil {
		p.log.Debug().
			Str("source", doc.Source.String()).
			Str("text", candidate.Text).
			Int("tier", int(candidate.Tier)).
			Msg("Winning candidate is not a price")
		return nil, apperrors.NewUnparseablePrice(doc.Source.String(), candidate.Text, err)
	}

	p.log.Debug().
		Str("source", doc.Source.String()).
		Str("amount", money.String()).
		Str("strategy", candidate.Strategy).
		Int("tier", int(candidate.Tier)).
		Msg("Price extracted")

	return &Extraction{
		Money:    money,
		Source:   doc.Source,
		URL:      doc.URL,
		Tier:     candidate.Tier,
		Strategy: candidate.Strategy,
		Text:     candidate.Text,
	}, nil
}
