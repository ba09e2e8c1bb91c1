package fetch

import (
	"context"
	"errors"
	"sync"
	"time"

	"sjsage522/pricecompare/internal/pricing"
	"sjsage522/pricecompare/logger"
	apperrors "sjsage522/pricecompare/pkg/errors"
	"sjsage522/pricecompare/services/cache"

	"golang.org/x/time/rate"
)

const blockKeyPrefix = "fetch_blocked:"

// RouterOptions configures per-source throttling
type RouterOptions struct {
	// RatePerSecond is the steady request rate allowed per source; zero disables it.
	RatePerSecond float64
	Burst         int
	// BlockTime is how long a source is left alone after it answers 429.
	BlockTime time.Duration
	// Timeout bounds every fetch, including the wait for a rate limiter slot.
	Timeout time.Duration
}

// Router is the Fetcher the pipeline uses. It picks a fetcher per source,
// throttles each source independently and fails fast while a source is
// blocked.
type Router struct {
	fallback pricing.Fetcher
	cache    cache.CacheService
	opts     RouterOptions
	log      *logger.Logger

	mu       sync.Mutex
	routes   map[pricing.Source]pricing.Fetcher
	limiters map[pricing.Source]*rate.Limiter
}

// NewRouter creates a router that sends unrouted sources to fallback.
// cacheSvc may be nil, which disables block markers.
func NewRouter(fallback pricing.Fetcher, cacheSvc cache.CacheService, opts RouterOptions) *Router {
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	return &Router{
		fallback: fallback,
		cache:    cacheSvc,
		opts:     opts,
		log:      logger.ForFetcher("router"),
		routes:   make(map[pricing.Source]pricing.Fetcher),
		limiters: make(map[pricing.Source]*rate.Limiter),
	}
}

// Route sends source's requests to fetcher
func (r *Router) Route(source pricing.Source, fetcher pricing.Fetcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[source] = fetcher
}

func (r *Router) fetcherFor(source pricing.Source) pricing.Fetcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.routes[source]; ok {
		return f
	}
	return r.fallback
}

func (r *Router) limiterFor(source pricing.Source) *rate.Limiter {
	if r.opts.RatePerSecond <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[source]
	if !ok {
		l = rate.NewLimiter(rate.Limit(r.opts.RatePerSecond), r.opts.Burst)
		r.limiters[source] = l
	}
	return l
}

// Fetch implements pricing.Fetcher
func (r *Router) Fetch(ctx context.Context, source pricing.Source, url string) (pricing.RawDocument, error) {
	if r.Blocked(source) {
		return pricing.RawDocument{}, apperrors.NewRateLimit(source.String(), r.opts.BlockTime)
	}

	fetcher := r.fetcherFor(source)
	if fetcher == nil {
		return pricing.RawDocument{}, apperrors.NewConfiguration("no fetcher for source "+source.String(), nil)
	}

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	if limiter := r.limiterFor(source); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return pricing.RawDocument{}, apperrors.NewTimeout(source.String(), err)
		}
	}

	doc, err := fetcher.Fetch(ctx, source, url)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeRateLimit) {
			r.block(source, err)
		}
		return pricing.RawDocument{}, err
	}
	return doc, nil
}

// Blocked reports whether a block marker is set for source
func (r *Router) Blocked(source pricing.Source) bool {
	if r.cache == nil {
		return false
	}
	_, err := r.cache.Get(blockKeyPrefix + source.String())
	return err == nil
}

// block sets source's marker for the source's own Retry-After when it gave
// one, and for BlockTime otherwise. A zero BlockTime disables blocking.
func (r *Router) block(source pricing.Source, cause error) {
	if r.cache == nil || r.opts.BlockTime <= 0 {
		return
	}
	blockTime := r.opts.BlockTime
	if retryAfter := apperrors.RetryAfterOf(cause); retryAfter > 0 {
		blockTime = retryAfter
	}

	if err := r.cache.Set(blockKeyPrefix+source.String(), []byte("1"), blockTime); err != nil {
		r.log.Warn().Str("source", source.String()).Err(err).Msg("Failed to set block marker")
		return
	}
	r.log.Warn().
		Str("source", source.String()).
		Dur("block_time", blockTime).
		Err(cause).
		Msg("Source rate limited, blocking")
}

// Unblock clears a source's block marker
func (r *Router) Unblock(source pricing.Source) error {
	if r.cache == nil {
		return nil
	}
	err := r.cache.Delete(blockKeyPrefix + source.String())
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}
