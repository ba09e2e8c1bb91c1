package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sjsage522/pricecompare/helpers"
	"sjsage522/pricecompare/internal/pricing"
	"sjsage522/pricecompare/logger"
	apperrors "sjsage522/pricecompare/pkg/errors"

	"github.com/chromedp/chromedp"
)

// defaultWaitTimeout bounds how long a tab waits for a source's ready selector
const defaultWaitTimeout = 15 * time.Second

// RenderConfig configures the headless browser
type RenderConfig struct {
	// RemoteURL is a DevTools websocket (ws://host:9222); empty starts a local Chrome.
	RemoteURL   string
	Timeout     time.Duration
	WaitTimeout time.Duration
	MaxTabs     int
}

// RenderFetcher loads pages as tabs of one headless Chrome and returns the
// DOM after scripts have run.
type RenderFetcher struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	timeout     time.Duration
	waitTimeout time.Duration
	semaphore   chan struct{}
	log         *logger.Logger

	browserMu     sync.Mutex
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu      sync.RWMutex
	waitFor map[pricing.Source]string
}

// NewRenderFetcher creates the browser allocator. Chrome is started by the
// first Fetch and shared by every tab after it.
func NewRenderFetcher(ctx context.Context, cfg RenderConfig) *RenderFetcher {
	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, execAllocatorOptions()...)
	}

	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = defaultWaitTimeout
	}
	if cfg.MaxTabs < 1 {
		cfg.MaxTabs = 4
	}

	return &RenderFetcher{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		timeout:     cfg.Timeout,
		waitTimeout: cfg.WaitTimeout,
		semaphore:   make(chan struct{}, cfg.MaxTabs),
		log:         logger.ForFetcher(string(ModeRender)),
		waitFor:     make(map[pricing.Source]string),
	}
}

// browser returns the context of the running browser, starting Chrome when
// there is none yet or the previous one has gone away.
func (f *RenderFetcher) browser() (context.Context, error) {
	f.browserMu.Lock()
	defer f.browserMu.Unlock()

	if f.browserCtx != nil && f.browserCtx.Err() == nil {
		return f.browserCtx, nil
	}
	if err := f.allocCtx.Err(); err != nil {
		return nil, err
	}

	browserCtx, browserCancel := chromedp.NewContext(f.allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	f.browserCtx, f.browserCancel = browserCtx, browserCancel
	f.log.Info().Int("max_tabs", cap(f.semaphore)).Msg("Browser started")
	return browserCtx, nil
}

func execAllocatorOptions() []chromedp.ExecAllocatorOption {
	return append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("window-size", "1366,900"),
		chromedp.UserAgent(helpers.RandomUserAgent()),
	)
}

// WaitFor makes tabs for source wait until selector is present before the
// DOM is captured. A selector that never appears is not an error.
func (f *RenderFetcher) WaitFor(source pricing.Source, selector string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waitFor[source] = selector
}

func (f *RenderFetcher) readySelector(source pricing.Source) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.waitFor[source]
}

// Fetch opens a tab, navigates to url and returns the rendered HTML
func (f *RenderFetcher) Fetch(ctx context.Context, source pricing.Source, url string) (pricing.RawDocument, error) {
	select {
	case f.semaphore <- struct{}{}:
	case <-ctx.Done():
		return pricing.RawDocument{}, apperrors.NewTimeout(source.String(), ctx.Err())
	}
	defer func() { <-f.semaphore }()

	browserCtx, err := f.browser()
	if err != nil {
		return pricing.RawDocument{}, apperrors.NewNetwork(source.String(), "render unavailable", err)
	}

	// a child of the browser context opens a new tab in the same Chrome
	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	defer tabCancel()

	runCtx, runCancel := context.WithTimeout(tabCtx, f.timeout)
	defer runCancel()

	// the browser context is not derived from ctx, so relay its cancellation
	stop := context.AfterFunc(ctx, runCancel)
	defer stop()

	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return pricing.RawDocument{}, f.renderError(ctx, runCtx, source, err)
	}

	if selector := f.readySelector(source); selector != "" {
		waitCtx, waitCancel := context.WithTimeout(runCtx, f.waitTimeout)
		err := chromedp.Run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
		waitCancel()
		if err != nil {
			f.log.Debug().
				Str("source", source.String()).
				Str("selector", selector).
				Err(err).
				Msg("Ready selector did not appear")
		}
	}

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return pricing.RawDocument{}, f.renderError(ctx, runCtx, source, err)
	}

	return pricing.RawDocument{Source: source, URL: url, Content: html}, nil
}

func (f *RenderFetcher) renderError(ctx, runCtx context.Context, source pricing.Source, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) || ctx.Err() != nil {
		return apperrors.NewTimeout(source.String(), err)
	}
	return apperrors.NewNetwork(source.String(), "render failed", err)
}

// Close shuts the browser down
func (f *RenderFetcher) Close() {
	f.browserMu.Lock()
	if f.browserCancel != nil {
		f.browserCancel()
		f.browserCtx, f.browserCancel = nil, nil
	}
	f.browserMu.Unlock()

	if f.allocCancel != nil {
		f.allocCancel()
	}
}
