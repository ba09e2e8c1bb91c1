package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"sjsage522/pricecompare/internal/pricing"
	"sjsage522/pricecompare/logger"
	apperrors "sjsage522/pricecompare/pkg/errors"
	"sjsage522/pricecompare/services/publisher"
	"sjsage522/pricecompare/services/tracker"
)

// PriceExtractor is the part of the pipeline the worker needs
type PriceExtractor interface {
	ExtractPrice(ctx context.Context, source pricing.Source, url string) (*pricing.Extraction, error)
}

// Worker runs on-demand price checks for tracked items and publishes each
// observation.
type Worker struct {
	extractor PriceExtractor
	repo      tracker.Repository
	publisher publisher.Publisher
	log       *logger.Logger
	now       func() time.Time
}

// NewWorker creates a new worker
func NewWorker(extractor PriceExtractor, repo tracker.Repository, pub publisher.Publisher) *Worker {
	return &Worker{
		extractor: extractor,
		repo:      repo,
		publisher: pub,
		log:       logger.ForTracker(),
		now:       time.Now,
	}
}

// CheckByID loads an item and checks it
func (w *Worker) CheckByID(ctx context.Context, id string) (tracker.Observation, error) {
	item, err := w.repo.Get(ctx, id)
	if err != nil {
		return tracker.Observation{}, err
	}
	return w.Check(ctx, item)
}

// Check runs the pipeline once for item. The observation is published and
// returned even when extraction fails; the extraction error is returned too.
func (w *Worker) Check(ctx context.Context, item tracker.Item) (tracker.Observation, error) {
	checkedAt := w.now().UTC()
	obs := tracker.Observation{
		ItemID:      item.ID,
		Source:      item.Source,
		URL:         item.URL,
		TargetPrice: item.TargetPrice,
		CheckedAt:   checkedAt,
	}

	result, extractErr := w.extractor.ExtractPrice(ctx, item.Source, item.URL)
	if extractErr != nil {
		obs.Error = extractErr.Error()
		obs.ErrorKind = string(apperrors.KindOf(extractErr))
		obs.ErrorType = string(apperrors.TypeOf(extractErr))
		obs.Retryable = apperrors.Retryable(extractErr)
	} else {
		amount := result.Money.Amount
		obs.Price = &amount
		obs.Currency = result.Money.Currency
		obs.Tier = int(result.Tier)
		obs.Strategy = result.Strategy
		obs.TargetReached = amount <= item.TargetPrice

		item.LastPrice = &amount
		item.LastCheckedAt = &checkedAt
		if err := w.repo.Update(ctx, item); err != nil {
			w.log.Warn().Str("item_id", item.ID).Err(err).Msg("Failed to record last price")
		}
	}

	w.publish(ctx, obs)
	return obs, extractErr
}

// CheckAll checks every tracked item in parallel and then trims the streams
func (w *Worker) CheckAll(ctx context.Context) ([]tracker.Observation, error) {
	items, err := w.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	observations := make([]tracker.Observation, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item tracker.Item) {
			defer wg.Done()
			observations[i], _ = w.Check(ctx, item)
		}(i, item)
	}
	wg.Wait()

	// Trim all streams after checking
	if err := w.publisher.TrimStreams(ctx); err != nil {
		w.log.Warn().Err(err).Msg("Stream trimming failed")
	}

	reached := 0
	for _, obs := range observations {
		if obs.TargetReached {
			reached++
		}
	}
	w.log.Info().Int("items", len(items)).Int("target_reached", reached).Msg("Checked tracked items")

	return observations, nil
}

func (w *Worker) publish(ctx context.Context, obs tracker.Observation) {
	data, err := json.Marshal(obs)
	if err != nil {
		w.log.Error().Err(err).Msg("Failed to encode observation")
		return
	}
	if err := w.publisher.Publish(ctx, obs.Source.String(), data); err != nil {
		w.log.Warn().Str("item_id", obs.ItemID).Err(err).Msg("Failed to publish observation")
		return
	}
	if logger.IsDebugEnabled() {
		w.log.Debug().RawJSON("observation", data).Msg("Published observation")
	}
}
