package engine

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/universal-product-parser/internal/cache"
	"github.com/maltedev/universal-product-parser/internal/config"
	"github.com/maltedev/universal-product-parser/internal/fetch"
	"github.com/maltedev/universal-product-parser/internal/images"
	"github.com/maltedev/universal-product-parser/internal/models"
	"github.com/maltedev/universal-product-parser/internal/patterns"
)

const structuredHTML = `<html><head>
	<script type="application/ld+json">
	{"@type": "Product", "name": "Wool Coat",
	 "offers": {"price": "199.00", "priceCurrency": "USD"},
	 "image": ["https://x/a.jpg"]}
	</script>
</head><body></body></html>`

const thinHTML = `<html><body><h1>Wool Coat</h1></body></html>`

const emptyHTML = `<html><body><p>nothing to see</p></body></html>`

type stubFetcher struct {
	strategy models.Strategy
	html     string
	err      error

	mu    sync.Mutex
	calls int
}

func (s *stubFetcher) Strategy() models.Strategy { return s.strategy }

func (s *stubFetcher) Fetch(ctx context.Context, url string) (*fetch.Result, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	return &fetch.Result{HTML: s.html, StatusCode: 200, Strategy: s.strategy}, nil
}

func (s *stubFetcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testConfig() config.EngineConfig {
	return config.EngineConfig{
		MinConfidence:   0.7,
		CacheConfidence: 0.5,
		LearnConfidence: 0.7,
		MaxImages:       10,
	}
}

func newTestEngine(t *testing.T, direct, rendered fetch.Fetcher, domains config.DomainsConfig) (*Engine, patterns.Store) {
	t.Helper()

	store, err := patterns.NewFileStore(filepath.Join(t.TempDir(), "p.json"), slog.Default())
	require.NoError(t, err)

	e := New(testConfig(), domains, Deps{
		Direct:   direct,
		Rendered: rendered,
		Cache:    cache.NewMemoryCache(16, time.Minute, time.Hour),
		Patterns: store,
		Logger:   slog.Default(),
	})
	t.Cleanup(func() { e.Shutdown() })

	return e, store
}

func TestExtractServedFromCacheOnSecondCall(t *testing.T) {
	direct := &stubFetcher{strategy: models.StrategyDirect, html: structuredHTML}
	e, _ := newTestEngine(t, direct, nil, config.DomainsConfig{})

	first := e.Extract(context.Background(), "https://shop.example/p/1", nil)
	require.GreaterOrEqual(t, first.Confidence, 0.7)

	second := e.Extract(context.Background(), "https://shop.example/p/1", nil)

	assert.Same(t, first, second, "second call served from cache, bit-identical")
	assert.Equal(t, 1, direct.callCount(), "no refetch within TTL")
	assert.Equal(t, int64(1), e.Metrics().CacheHits)
}

func TestExtractStructuredDataScenario(t *testing.T) {
	direct := &stubFetcher{strategy: models.StrategyDirect, html: structuredHTML}
	e, _ := newTestEngine(t, direct, nil, config.DomainsConfig{})

	record := e.Extract(context.Background(), "https://shop.example/p/1", nil)

	assert.Equal(t, "Wool Coat", record.Name)
	assert.InDelta(t, 199.0, record.Price, 0.001)
	assert.Equal(t, "USD", record.Currency)
	assert.Equal(t, []string{"https://x/a.jpg"}, record.Images)
	assert.GreaterOrEqual(t, record.Confidence, 0.7)
	assert.Equal(t, models.StrategyDirect, record.Strategy)
}

func TestExtractEscalatesOnLowConfidence(t *testing.T) {
	direct := &stubFetcher{strategy: models.StrategyDirect, html: thinHTML}
	rendered := &stubFetcher{strategy: models.StrategyRendered, html: structuredHTML}

	e, _ := newTestEngine(t, direct, rendered, config.DomainsConfig{
		MaybeRendering: []string{"shop.example"},
	})

	record := e.Extract(context.Background(), "https://shop.example/p/1", nil)

	assert.Equal(t, 1, rendered.callCount(), "rendered strategy attempted")
	assert.Equal(t, models.StrategyRendered, record.Strategy, "higher-confidence result kept")
	assert.Equal(t, "Wool Coat", record.Name)
}

func TestExtractNoEscalationOffList(t *testing.T) {
	direct := &stubFetcher{strategy: models.StrategyDirect, html: thinHTML}
	rendered := &stubFetcher{strategy: models.StrategyRendered, html: structuredHTML}

	e, _ := newTestEngine(t, direct, rendered, config.DomainsConfig{})

	record := e.Extract(context.Background(), "https://shop.example/p/1", nil)

	assert.Equal(t, 0, rendered.callCount(), "low confidence alone does not escalate off-list")
	assert.Equal(t, models.StrategyDirect, record.Strategy)
}

func TestExtractEscalatesOnBlocked(t *testing.T) {
	direct := &stubFetcher{strategy: models.StrategyDirect, err: fetch.ErrBlocked}
	rendered := &stubFetcher{strategy: models.StrategyRendered, html: structuredHTML}

	// Not on any list: blocked status escalates unconditionally.
	e, _ := newTestEngine(t, direct, rendered, config.DomainsConfig{})

	record := e.Extract(context.Background(), "https://shop.example/p/1", nil)

	assert.Equal(t, 1, rendered.callCount())
	assert.Equal(t, "Wool Coat", record.Name)
}

func TestExtractRenderedFirstForRequiresRenderingDomain(t *testing.T) {
	direct := &stubFetcher{strategy: models.StrategyDirect, html: structuredHTML}
	rendered := &stubFetcher{strategy: models.StrategyRendered, html: structuredHTML}

	e, _ := newTestEngine(t, direct, rendered, config.DomainsConfig{
		RequiresRendering: []string{"shop.example"},
	})

	e.Extract(context.Background(), "https://shop.example/p/1", nil)

	assert.Equal(t, 0, direct.callCount())
	assert.Equal(t, 1, rendered.callCount())
}

func TestExtractForceStrategy(t *testing.T) {
	direct := &stubFetcher{strategy: models.StrategyDirect, html: structuredHTML}
	rendered := &stubFetcher{strategy: models.StrategyRendered, html: structuredHTML}

	e, _ := newTestEngine(t, direct, rendered, config.DomainsConfig{})

	e.Extract(context.Background(), "https://shop.example/p/1", &Options{
		ForceStrategy: models.StrategyRendered,
	})

	assert.Equal(t, 0, direct.callCount())
	assert.Equal(t, 1, rendered.callCount())
}

func TestExtractBothStrategiesFail(t *testing.T) {
	direct := &stubFetcher{strategy: models.StrategyDirect, err: fetch.ErrBlocked}
	rendered := &stubFetcher{strategy: models.StrategyRendered, err: fetch.ErrTimeout}

	e, _ := newTestEngine(t, direct, rendered, config.DomainsConfig{})

	record := e.Extract(context.Background(), "https://shop.example/p/1", nil)

	assert.Zero(t, record.Confidence)
	assert.NotEmpty(t, record.Error, "failure carried in the record, not thrown")
	assert.Equal(t, int64(1), e.Metrics().Failures)
}

func TestExtractNoEvidence(t *testing.T) {
	direct := &stubFetcher{strategy: models.StrategyDirect, html: emptyHTML}
	e, _ := newTestEngine(t, direct, nil, config.DomainsConfig{})

	record := e.Extract(context.Background(), "https://shop.example/p/1", nil)

	assert.Zero(t, record.Confidence)
	assert.Empty(t, record.Name)
	assert.Empty(t, record.Images)
	assert.Empty(t, record.Sources)
}

func TestExtractLearnsAndReusesPatterns(t *testing.T) {
	richHTML := `<html><body>
		<h1>Wool Coat</h1>
		<div class="product-price">$199.00</div>
		<div class="brand">Acme</div>
		<div class="product-description">Warm and heavy.</div>
		<div class="product-gallery"><img src="https://x/a.jpg"></div>
	</body></html>`

	direct := &stubFetcher{strategy: models.StrategyDirect, html: richHTML}
	e, store := newTestEngine(t, direct, nil, config.DomainsConfig{})

	first := e.Extract(context.Background(), "https://shop.example/p/1", nil)
	require.Greater(t, first.Confidence, 0.7)

	require.NoError(t, e.Shutdown())

	entry, ok := store.Get("shop.example")
	require.True(t, ok, "high-confidence extraction recorded selectors")
	assert.Equal(t, "h1", entry.Fields[models.FieldName])
	assert.Equal(t, ".product-price", entry.Fields[models.FieldPrice])
	assert.Equal(t, ".product-gallery img", entry.Fields[models.FieldImages])
}

func TestLearnedPatternReuse(t *testing.T) {
	direct := &stubFetcher{strategy: models.StrategyDirect, html: `<html><body>
		<span class="price-x">$49.00</span>
	</body></html>`}

	e, store := newTestEngine(t, direct, nil, config.DomainsConfig{})
	store.RecordSuccess("shop.example", map[string]string{models.FieldPrice: ".price-x"})

	record := e.Extract(context.Background(), "https://shop.example/p/2", nil)

	assert.InDelta(t, 49.0, record.Price, 0.001)
	assert.Equal(t, models.SourceLearnedPattern, record.Sources[models.FieldPrice])
}

func TestMetricsByStrategy(t *testing.T) {
	direct := &stubFetcher{strategy: models.StrategyDirect, html: structuredHTML}
	e, _ := newTestEngine(t, direct, nil, config.DomainsConfig{})

	e.Extract(context.Background(), "https://shop.example/p/1", nil)
	e.Extract(context.Background(), "https://shop.example/p/2", nil)

	m := e.Metrics()
	assert.Equal(t, int64(2), m.Attempts)
	assert.Equal(t, int64(2), m.Successes)
	assert.Equal(t, int64(2), m.ByStrategy[models.StrategyDirect].Attempts)
	assert.Equal(t, int64(2), m.ByStrategy[models.StrategyDirect].Successes)
	assert.Zero(t, m.ByStrategy[models.StrategyRendered].Attempts)
}

func TestExtractWithSmartImages(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">
		{"@type": "Product", "name": "Wool Coat",
		 "offers": {"price": "199.00", "priceCurrency": "USD"},
		 "image": ["https://x/a.jpg"]}
		</script>
		<meta property="og:image" content="https://cdn.x/coat_1.jpg">
		<script>var g = {"images": ["https://cdn.x/mined.jpg"]};</script>
	</head><body></body></html>`

	direct := &stubFetcher{strategy: models.StrategyDirect, html: html}

	store, err := patterns.NewFileStore(filepath.Join(t.TempDir(), "p.json"), slog.Default())
	require.NoError(t, err)

	smart := images.NewSmartExtractor(store, nil, images.DefaultOptions(), slog.Default())

	e := New(testConfig(), config.DomainsConfig{}, Deps{
		Direct:   direct,
		Cache:    cache.NewMemoryCache(16, time.Minute, time.Hour),
		Patterns: store,
		Smart:    smart,
		Logger:   slog.Default(),
	})
	defer e.Shutdown()

	record := e.Extract(context.Background(), "https://shop.example/p/1", nil)

	assert.Equal(t, models.SourceSmartImages, record.Sources[models.FieldImages])
	assert.Contains(t, record.Images, "https://cdn.x/mined.jpg")
	assert.Contains(t, record.Images, "https://cdn.x/coat_1.jpg")
}
