package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/universal-product-parser/internal/fetch"
	"github.com/maltedev/universal-product-parser/internal/models"
)

// Selectors whose appearance signals the product area has hydrated.
var headingSelectors = "h1, .product-name, .product-title, [data-testid='product-name']"

// hydrationProbeJS pulls well-known framework globals into one
// JSON-serializable object. Unknown or absent globals come back null.
const hydrationProbeJS = `() => {
	const pick = (v) => {
		try { return JSON.parse(JSON.stringify(v)); } catch (e) { return null; }
	};
	return {
		__NEXT_DATA__: typeof __NEXT_DATA__ !== 'undefined' ? pick(__NEXT_DATA__) : null,
		__NUXT__: typeof __NUXT__ !== 'undefined' ? pick(__NUXT__) : null,
		ShopifyAnalytics: typeof ShopifyAnalytics !== 'undefined' ? pick(ShopifyAnalytics) : null,
		dataLayer: typeof dataLayer !== 'undefined' ? pick(dataLayer) : null
	};
}`

// Rendered fetches pages through the shared headless browser. The
// browser launches on first use and lives until Shutdown.
type Rendered struct {
	opts        *Options
	headingWait time.Duration

	mu      sync.Mutex
	browser *Browser
	logger  *slog.Logger
}

func NewRendered(opts *Options, headingWait time.Duration, logger *slog.Logger) *Rendered {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Rendered{
		opts:        opts,
		headingWait: headingWait,
		logger:      logger.With("component", "rendered_fetch"),
	}
}

func (r *Rendered) Strategy() models.Strategy {
	return models.StrategyRendered
}

func (r *Rendered) Fetch(ctx context.Context, url string) (*fetch.Result, error) {
	b, err := r.instance()
	if err != nil {
		return nil, fmt.Errorf("browser unavailable: %w", err)
	}

	page, err := b.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		// A caller deadline must abort the navigation, not just the
		// wait on our side of it.
		select {
		case <-ctx.Done():
			page.Close()
		case <-done:
		}
	}()

	_, err = page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(r.opts.Timeout.Milliseconds())),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if strings.Contains(err.Error(), "Timeout") {
			return nil, fmt.Errorf("%w: %v", fetch.ErrTimeout, err)
		}
		return nil, fmt.Errorf("navigation failed: %w", err)
	}

	// Give client-side rendering a bounded chance to mount the product
	// heading; absence is not an error.
	if r.headingWait > 0 {
		_, _ = page.WaitForSelector(headingSelectors, playwright.PageWaitForSelectorOptions{
			Timeout: playwright.Float(float64(r.headingWait.Milliseconds())),
			State:   playwright.WaitForSelectorStateAttached,
		})
	}

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}

	result := &fetch.Result{
		HTML:       html,
		StatusCode: 200,
		Strategy:   models.StrategyRendered,
	}

	if globals := r.probeHydration(page); globals != nil {
		result.Hydration = ExtractHydration(globals)
	}

	return result, nil
}

func (r *Rendered) probeHydration(page playwright.Page) map[string]any {
	raw, err := page.Evaluate(hydrationProbeJS)
	if err != nil {
		r.logger.Debug("hydration probe failed", "error", err)
		return nil
	}

	globals, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	return globals
}

func (r *Rendered) instance() (*Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	r.logger.Info("launching headless browser")
	b, err := New(r.opts)
	if err != nil {
		return nil, err
	}
	r.browser = b
	return b, nil
}

// Shutdown closes the shared browser. Must be called by the host process
// at shutdown; further fetches relaunch lazily.
func (r *Rendered) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser == nil {
		return nil
	}

	err := r.browser.Close()
	r.browser = nil
	return err
}
