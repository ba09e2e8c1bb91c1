package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"sjsage522/pricecompare/internal/pricing"
	apperrors "sjsage522/pricecompare/pkg/errors"
	"sjsage522/pricecompare/services/publisher"
	"sjsage522/pricecompare/services/tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockExtractor returns a fixed price or error per URL
type MockExtractor struct {
	mu     sync.Mutex
	prices map[string]float64
	errs   map[string]error
	calls  int
}

func NewMockExtractor() *MockExtractor {
	return &MockExtractor{
		prices: make(map[string]float64),
		errs:   make(map[string]error),
	}
}

func (m *MockExtractor) ExtractPrice(ctx context.Context, source pricing.Source, url string) (*pricing.Extraction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err, ok := m.errs[url]; ok {
		return nil, err
	}
	return &pricing.Extraction{
		Money:    pricing.Money{Amount: m.prices[url], Currency: "GBP"},
		Source:   source,
		URL:      url,
		Tier:     pricing.TierPrimary,
		Strategy: "primary-selector",
	}, nil
}

// failingPublisher implements the publisher.Publisher interface for testing
type failingPublisher struct{}

var _ publisher.Publisher = failingPublisher{}

func (failingPublisher) Publish(ctx context.Context, key string, message []byte) error {
	return errors.New("redis down")
}
func (failingPublisher) TrimStreams(ctx context.Context) error { return errors.New("redis down") }
func (failingPublisher) Close() error                          { return nil }

func createItem(t *testing.T, repo tracker.Repository, url string, target float64) tracker.Item {
	item, err := repo.Create(context.Background(), tracker.Normalize(tracker.Item{
		ProductName: "Air Fryer",
		URL:         url,
		Source:      "argos",
		TargetPrice: target,
		Email:       "shopper@example.com",
	}))
	require.NoError(t, err)
	return item
}

func TestWorkerCheck(t *testing.T) {
	ctx := context.Background()
	repo := tracker.NewMemoryRepository()
	pub := publisher.NewMemoryPublisher(10)
	extractor := NewMockExtractor()

	item := createItem(t, repo, "https://www.argos.co.uk/product/1", 80)
	extractor.prices[item.URL] = 79.99

	w := NewWorker(extractor, repo, pub)
	obs, err := w.CheckByID(ctx, item.ID)

	require.NoError(t, err)
	require.NotNil(t, obs.Price)
	assert.Equal(t, 79.99, *obs.Price)
	assert.True(t, obs.TargetReached)
	assert.Equal(t, 1, obs.Tier)

	// the last price is recorded on the item
	stored, err := repo.Get(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastPrice)
	assert.Equal(t, 79.99, *stored.LastPrice)

	// and the observation is published under the source key
	messages := pub.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "argos", messages[0].Key)

	var published tracker.Observation
	require.NoError(t, json.Unmarshal(messages[0].Value, &published))
	assert.Equal(t, item.ID, published.ItemID)
	assert.True(t, published.TargetReached)
}

func TestWorkerCheckExtractionFailure(t *testing.T) {
	ctx := context.Background()
	repo := tracker.NewMemoryRepository()
	pub := publisher.NewMemoryPublisher(10)
	extractor := NewMockExtractor()

	item := createItem(t, repo, "https://www.argos.co.uk/product/2", 80)
	extractor.errs[item.URL] = apperrors.NewNoPriceFound("argos")

	w := NewWorker(extractor, repo, pub)
	obs, err := w.Check(ctx, item)

	require.Error(t, err)
	assert.Nil(t, obs.Price)
	assert.False(t, obs.TargetReached)
	assert.Equal(t, "no_price_found", obs.ErrorKind)
	assert.Equal(t, "no_price_found", obs.ErrorType)
	assert.False(t, obs.Retryable)
	assert.Len(t, pub.Messages(), 1)

	stored, err := repo.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastPrice)
}

func TestWorkerCheckReportsTransportFailure(t *testing.T) {
	ctx := context.Background()
	repo := tracker.NewMemoryRepository()
	extractor := NewMockExtractor()

	timedOut := createItem(t, repo, "https://www.currys.co.uk/products/1", 50)
	limited := createItem(t, repo, "https://www.currys.co.uk/products/2", 50)
	extractor.errs[timedOut.URL] = apperrors.NewSourceUnreachable("currys", apperrors.NewTimeout("currys", context.DeadlineExceeded))
	extractor.errs[limited.URL] = apperrors.NewSourceUnreachable("currys", apperrors.NewRateLimit("currys", time.Minute))

	w := NewWorker(extractor, repo, publisher.NewMemoryPublisher(10))

	obs, err := w.Check(ctx, timedOut)
	require.Error(t, err)
	assert.Equal(t, "source_unreachable", obs.ErrorKind)
	assert.Equal(t, "timeout", obs.ErrorType)
	assert.True(t, obs.Retryable)

	obs, err = w.Check(ctx, limited)
	require.Error(t, err)
	assert.Equal(t, "source_unreachable", obs.ErrorKind)
	assert.Equal(t, "rate_limit", obs.ErrorType)
	assert.False(t, obs.Retryable)
}

func TestWorkerCheckByIDMissing(t *testing.T) {
	w := NewWorker(NewMockExtractor(), tracker.NewMemoryRepository(), publisher.NewMemoryPublisher(10))
	_, err := w.CheckByID(context.Background(), "missing")
	assert.ErrorIs(t, err, tracker.ErrNotFound)
}

func TestWorkerCheckAll(t *testing.T) {
	ctx := context.Background()
	repo := tracker.NewMemoryRepository()
	pub := publisher.NewMemoryPublisher(2)
	extractor := NewMockExtractor()

	cheap := createItem(t, repo, "https://www.argos.co.uk/product/a", 50)
	pricey := createItem(t, repo, "https://www.argos.co.uk/product/b", 50)
	broken := createItem(t, repo, "https://www.argos.co.uk/product/c", 50)
	extractor.prices[cheap.URL] = 45
	extractor.prices[pricey.URL] = 55
	extractor.errs[broken.URL] = apperrors.NewSourceUnreachable("argos", errors.New("timeout"))

	w := NewWorker(extractor, repo, pub)
	observations, err := w.CheckAll(ctx)

	require.NoError(t, err)
	require.Len(t, observations, 3)
	assert.Equal(t, 3, extractor.calls)

	byID := make(map[string]tracker.Observation)
	for _, obs := range observations {
		byID[obs.ItemID] = obs
	}
	assert.True(t, byID[cheap.ID].TargetReached)
	assert.False(t, byID[pricey.ID].TargetReached)
	assert.Equal(t, "source_unreachable", byID[broken.ID].ErrorKind)

	// streams are trimmed after the run
	assert.Len(t, pub.Messages(), 2)
}

func TestWorkerPublishFailureIsNotFatal(t *testing.T) {
	repo := tracker.NewMemoryRepository()
	extractor := NewMockExtractor()
	item := createItem(t, repo, "https://www.argos.co.uk/product/d", 10)
	extractor.prices[item.URL] = 12

	w := NewWorker(extractor, repo, failingPublisher{})
	obs, err := w.Check(context.Background(), item)
	require.NoError(t, err)
	assert.False(t, obs.TargetReached)

	_, err = w.CheckAll(context.Background())
	assert.NoError(t, err)
}
