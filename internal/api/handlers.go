package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"sjsage522/pricecompare/internal/crawler"
	"sjsage522/pricecompare/internal/pricing"
	"sjsage522/pricecompare/logger"
	apperrors "sjsage522/pricecompare/pkg/errors"
	"sjsage522/pricecompare/services/compare"
	"sjsage522/pricecompare/services/tracker"

	"github.com/go-chi/chi/v5"
)

// PriceExtractor runs the price pipeline for one URL
type PriceExtractor interface {
	ExtractPrice(ctx context.Context, source pricing.Source, url string) (*pricing.Extraction, error)
}

// SourceResolver determines a URL's source
type SourceResolver interface {
	SourceForURL(rawURL string) pricing.Source
}

// Comparer searches several sources at once
type Comparer interface {
	Compare(ctx context.Context, query string, sources ...pricing.Source) (compare.Result, error)
}

// Checker runs manual price checks for tracked items
type Checker interface {
	CheckByID(ctx context.Context, id string) (tracker.Observation, error)
	CheckAll(ctx context.Context) ([]tracker.Observation, error)
}

// Handlers serves the HTTP API
type Handlers struct {
	extractor PriceExtractor
	resolver  SourceResolver
	crawlers  map[pricing.Source]crawler.Crawler
	comparer  Comparer
	repo      tracker.Repository
	checker   Checker
	log       *logger.Logger
}

// Dependencies groups what the handlers need
type Dependencies struct {
	Extractor PriceExtractor
	Resolver  SourceResolver
	Crawlers  []crawler.Crawler
	Comparer  Comparer
	Tracker   tracker.Repository
	Checker   Checker
}

// NewHandlers creates the handlers
func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		extractor: deps.Extractor,
		resolver:  deps.Resolver,
		crawlers:  crawler.BySource(deps.Crawlers),
		comparer:  deps.Comparer,
		repo:      deps.Tracker,
		checker:   deps.Checker,
		log:       logger.ForServer(),
	}
}

// PriceResponse is the body of a successful price lookup
type PriceResponse struct {
	Amount   float64        `json:"amount"`
	Currency string         `json:"currency"`
	Source   pricing.Source `json:"source"`
	URL      string         `json:"url"`
	Tier     int            `json:"tier"`
	Strategy string         `json:"strategy"`
}

// Health reports liveness
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "pricecompare",
	})
}

// GetPrice runs the pipeline for ?url=, with an optional ?source= override
func (h *Handlers) GetPrice(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimSpace(r.URL.Query().Get("url"))
	if target == "" {
		h.respondError(w, apperrors.NewValidation("", "url is required"))
		return
	}

	source := pricing.NewSource(r.URL.Query().Get("source"))
	if source == "" {
		source = h.resolver.SourceForURL(target)
	}
	if source == "" {
		h.respondError(w, apperrors.NewValidation("", "url is not a valid absolute URL"))
		return
	}

	result, err := h.extractor.ExtractPrice(r.Context(), source, target)
	if err != nil {
		h.log.Info().Str("source", source.String()).Str("url", target).Str("kind", string(apperrors.KindOf(err))).Msg("Price lookup failed")
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, PriceResponse{
		Amount:   result.Money.Amount,
		Currency: result.Money.Currency,
		Source:   result.Source,
		URL:      result.URL,
		Tier:     int(result.Tier),
		Strategy: result.Strategy,
	})
}

// SearchSource searches one retailer's listings
func (h *Handlers) SearchSource(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, pricing.NewSource(chi.URLParam(r, "source")))
}

// searchAlias serves the legacy /search-<site> routes
func (h *Handlers) searchAlias(source pricing.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.search(w, r, source)
	}
}

func (h *Handlers) search(w http.ResponseWriter, r *http.Request, source pricing.Source) {
	c, ok := h.crawlers[source]
	if !ok {
		h.respondError(w, apperrors.NewNotFound(source.String(), "unknown source"))
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.respondError(w, apperrors.NewValidation(source.String(), "q is required"))
		return
	}

	products, err := c.Search(r.Context(), query)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, products)
}

// SearchPrices searches every retailer and returns products cheapest first
func (h *Handlers) SearchPrices(w http.ResponseWriter, r *http.Request) {
	var sources []pricing.Source
	for _, s := range strings.Split(r.URL.Query().Get("sources"), ",") {
		if src := pricing.NewSource(s); src != "" {
			sources = append(sources, src)
		}
	}

	result, err := h.comparer.Compare(r.Context(), r.URL.Query().Get("q"), sources...)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// TrackRequest is the body of POST /track
type TrackRequest struct {
	ProductName string  `json:"product_name"`
	URL         string  `json:"url"`
	Source      string  `json:"source,omitempty"`
	TargetPrice float64 `json:"target_price"`
	Email       string  `json:"email"`
	Frequency   string  `json:"frequency,omitempty"`
}

// CreateTrackedItem registers a product to watch
func (h *Handlers) CreateTrackedItem(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, apperrors.NewValidation("", "invalid request body"))
		return
	}

	item := tracker.Normalize(tracker.Item{
		ProductName: req.ProductName,
		URL:         req.URL,
		Source:      pricing.NewSource(req.Source),
		TargetPrice: req.TargetPrice,
		Email:       req.Email,
		Frequency:   req.Frequency,
	})
	if err := tracker.Validate(item); err != nil {
		h.respondError(w, err)
		return
	}
	if item.Source == "" {
		item.Source = h.resolver.SourceForURL(item.URL)
	}

	created, err := h.repo.Create(r.Context(), item)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.log.Info().Str("item_id", created.ID).Str("source", created.Source.String()).Msg("Tracked item created")
	h.respondJSON(w, http.StatusCreated, created)
}

// ListTrackedItems lists the items registered for ?email=
func (h *Handlers) ListTrackedItems(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("email")))
	if email == "" {
		h.respondError(w, apperrors.NewValidation("", "email is required"))
		return
	}

	items, err := h.repo.ListByEmail(r.Context(), email)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, items)
}

// DeleteTrackedItem removes an item
func (h *Handlers) DeleteTrackedItem(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CheckTrackedItem runs one price check for an item. The observation is
// returned even when extraction fails, with the status of the failure.
func (h *Handlers) CheckTrackedItem(w http.ResponseWriter, r *http.Request) {
	obs, err := h.checker.CheckByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, tracker.ErrNotFound) {
		h.respondError(w, err)
		return
	}
	if err != nil {
		h.respondJSON(w, statusFor(err), obs)
		return
	}
	h.respondJSON(w, http.StatusOK, obs)
}

// CheckAllTrackedItems runs one price check for every item
func (h *Handlers) CheckAllTrackedItems(w http.ResponseWriter, r *http.Request) {
	observations, err := h.checker.CheckAll(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"checked":      len(observations),
		"observations": observations,
	})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	body := ErrorResponse{Error: err.Error(), Kind: string(apperrors.KindOf(err))}

	var validationErr *tracker.ValidationError
	if errors.As(err, &validationErr) {
		body.Kind = string(apperrors.ErrorTypeValidation)
		body.Details = validationErr.Problems
	}
	if retryAfter := apperrors.RetryAfterOf(err); retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
	}
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Int("status", status).Msg("Request failed")
	}
	h.respondJSON(w, status, body)
}
