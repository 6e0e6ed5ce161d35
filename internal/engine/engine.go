// Package engine is the fetch orchestrator and merge layer: it picks a
// strategy per domain, runs the evidence extractors over one parsed
// document, reconciles their bundles, and escalates to the rendered
// strategy when the direct result is blocked or unconvincing.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/maltedev/universal-product-parser/internal/cache"
	"github.com/maltedev/universal-product-parser/internal/config"
	"github.com/maltedev/universal-product-parser/internal/extractor"
	"github.com/maltedev/universal-product-parser/internal/fetch"
	"github.com/maltedev/universal-product-parser/internal/images"
	"github.com/maltedev/universal-product-parser/internal/models"
	"github.com/maltedev/universal-product-parser/internal/normalize"
	"github.com/maltedev/universal-product-parser/internal/patterns"
)

var (
	// ErrParseFailure marks HTML that could not be parsed as markup.
	ErrParseFailure = errors.New("document parse failure")
	// ErrNoEvidence marks a parsed page where every extractor came back
	// empty.
	ErrNoEvidence = errors.New("no product evidence found")
)

// Options tune one extraction call.
type Options struct {
	ForceStrategy models.Strategy
	Timeout       time.Duration
}

// Deps are the injected collaborators. Tests swap fetchers and stores
// for fakes; nothing in the engine reaches for process globals.
type Deps struct {
	Direct   fetch.Fetcher
	Rendered fetch.Fetcher
	Cache    cache.Cache
	Patterns patterns.Store
	Smart    *images.SmartExtractor
	Logger   *slog.Logger
}

// Engine owns the cache, the pattern store and the two fetch
// strategies. Construct one per process (or per test).
type Engine struct {
	cfg      config.EngineConfig
	direct   fetch.Fetcher
	rendered fetch.Fetcher
	cache    cache.Cache
	store    patterns.Store
	smart    *images.SmartExtractor
	logger   *slog.Logger

	requiresRendering map[string]bool
	maybeRendering    map[string]bool
	blocksDirect      map[string]bool

	mu        sync.Mutex
	metrics   models.Metrics
	learnWG   sync.WaitGroup
	shutdowns []func() error
}

func New(cfg config.EngineConfig, domains config.DomainsConfig, deps Deps) *Engine {
	e := &Engine{
		cfg:               cfg,
		direct:            deps.Direct,
		rendered:          deps.Rendered,
		cache:             deps.Cache,
		store:             deps.Patterns,
		smart:             deps.Smart,
		logger:            deps.Logger.With("component", "engine"),
		requiresRendering: toSet(domains.RequiresRendering),
		maybeRendering:    toSet(domains.MaybeRendering),
		blocksDirect:      toSet(domains.BlocksDirect),
	}
	e.metrics.ByStrategy = map[models.Strategy]models.StrategyMetrics{}
	return e
}

// RegisterShutdown adds a hook run during Shutdown, after in-flight
// learning finishes.
func (e *Engine) RegisterShutdown(fn func() error) {
	e.shutdowns = append(e.shutdowns, fn)
}

// Extract resolves a URL to a ProductRecord. It never returns an error:
// when both strategies fail the record carries zero confidence and an
// Error string, so callers choose their own fallback policy.
func (e *Engine) Extract(ctx context.Context, url string, opts *Options) *models.ProductRecord {
	if opts == nil {
		opts = &Options{}
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	domain := normalize.Domain(url)
	logger := e.logger.With("extraction_id", uuid.NewString(), "url", url, "domain", domain)

	if cached, ok := e.cache.Get(url); ok {
		e.count(func(m *models.Metrics) { m.CacheHits++ })
		logger.Debug("cache hit", "strategy", cached.Strategy)
		return cached
	}

	e.count(func(m *models.Metrics) { m.Attempts++ })

	strategy := e.initialStrategy(domain, opts)

	record, err := e.attempt(ctx, url, domain, strategy)

	if e.shouldEscalate(record, err, domain, strategy) {
		logger.Info("escalating to rendered strategy",
			"reason", escalationReason(record, err))
		rendered, renderedErr := e.attempt(ctx, url, domain, models.StrategyRendered)
		record, err = betterOf(record, err, rendered, renderedErr)
	}

	if err != nil && record == nil {
		e.count(func(m *models.Metrics) { m.Failures++ })
		logger.Warn("extraction failed", "error", err)
		return models.Failed(url, err)
	}

	if record.Confidence > e.cfg.CacheConfidence {
		e.count(func(m *models.Metrics) { m.Successes++ })
		e.cache.Set(url, record, record.Strategy)
	} else {
		e.count(func(m *models.Metrics) { m.Failures++ })
	}

	logger.Info("extraction finished",
		"confidence", record.Confidence,
		"strategy", record.Strategy,
		"fields", len(record.Sources))

	return record
}

// attempt runs one full fetch-parse-extract-merge pass under a single
// strategy.
func (e *Engine) attempt(ctx context.Context, url, domain string, strategy models.Strategy) (*models.ProductRecord, error) {
	fetcher := e.direct
	if strategy == models.StrategyRendered {
		fetcher = e.rendered
	}
	if fetcher == nil {
		return nil, errors.New("strategy unavailable: " + string(strategy))
	}

	e.count(func(m *models.Metrics) {
		s := m.ByStrategy[strategy]
		s.Attempts++
		m.ByStrategy[strategy] = s
	})

	result, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
	if err != nil {
		return nil, errors.Join(ErrParseFailure, err)
	}

	record, learned := e.extractFromDocument(ctx, doc, result, url, domain)
	record.Strategy = strategy

	if ctx.Err() != nil {
		// Partial evidence gathered before cancellation is discarded.
		return nil, ctx.Err()
	}

	if len(record.Sources) == 0 {
		return record, ErrNoEvidence
	}

	if record.Confidence > e.cfg.CacheConfidence {
		e.count(func(m *models.Metrics) {
			s := m.ByStrategy[strategy]
			s.Successes++
			m.ByStrategy[strategy] = s
		})
	}

	if record.Confidence > e.cfg.LearnConfidence && len(learned) > 0 {
		e.learnAsync(domain, learned)
	}

	return record, nil
}

// extractFromDocument fans out the extractors in priority order over the
// shared parsed document and merges their bundles.
func (e *Engine) extractFromDocument(ctx context.Context, doc *goquery.Document, result *fetch.Result, url, domain string) (*models.ProductRecord, map[string]string) {
	extractors := []extractor.Extractor{
		extractor.NewStructuredData(),
		extractor.NewLearnedPatterns(e.store),
		extractor.NewMetaTags(),
	}
	if extractor.HasDomainTable(domain) {
		extractors = append(extractors, extractor.NewDomainRules())
	}
	extractors = append(extractors,
		extractor.NewMicrodata(),
		extractor.NewGenericSelectors(),
	)

	bundles := extractor.RunAll(doc, domain, extractors)

	// Hydration evidence ranks directly below structured data.
	if result.Hydration != nil {
		bundles = append([]*models.EvidenceBundle{bundles[0], result.Hydration}, bundles[1:]...)
	}

	record, learned := merge(url, domain, bundles, e.cfg.MaxImages)

	if e.smart != nil {
		if smart := e.smart.Extract(ctx, doc, url, domain); len(smart.Images) > 0 {
			record.Images = smart.Images
			record.Sources[models.FieldImages] = models.SourceSmartImages
			record.Confidence = confidence(record)
		}
	}

	return record, learned
}

func (e *Engine) initialStrategy(domain string, opts *Options) models.Strategy {
	if opts.ForceStrategy != "" {
		return opts.ForceStrategy
	}
	if e.rendered != nil && (e.requiresRendering[domain] || e.blocksDirect[domain]) {
		return models.StrategyRendered
	}
	if e.direct == nil {
		return models.StrategyRendered
	}
	return models.StrategyDirect
}

// shouldEscalate applies the two escalation rules: blocked/timed-out
// direct fetches escalate unconditionally; low-confidence direct results
// escalate only for domains on the maybe-rendering list.
func (e *Engine) shouldEscalate(record *models.ProductRecord, err error, domain string, strategy models.Strategy) bool {
	if strategy != models.StrategyDirect || e.rendered == nil {
		return false
	}

	if errors.Is(err, fetch.ErrBlocked) || errors.Is(err, fetch.ErrTimeout) {
		return true
	}

	return record != nil && record.Confidence < e.cfg.MinConfidence && e.maybeRendering[domain]
}

func escalationReason(record *models.ProductRecord, err error) string {
	if err != nil {
		return err.Error()
	}
	return "low confidence"
}

// betterOf keeps whichever attempt produced the higher confidence.
func betterOf(first *models.ProductRecord, firstErr error, second *models.ProductRecord, secondErr error) (*models.ProductRecord, error) {
	switch {
	case second == nil:
		if first == nil {
			return nil, errors.Join(firstErr, secondErr)
		}
		return first, firstErr
	case first == nil:
		return second, secondErr
	case second.Confidence >= first.Confidence:
		return second, secondErr
	default:
		return first, firstErr
	}
}

// learnAsync records winning selectors without blocking the caller.
// Persistence failures are the store's problem to log, never ours to
// surface.
func (e *Engine) learnAsync(domain string, learned map[string]string) {
	e.learnWG.Add(1)
	go func() {
		defer e.learnWG.Done()
		e.store.RecordSuccess(domain, learned)
	}()
}

// Metrics returns a copy of the engine counters.
func (e *Engine) Metrics() models.Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := e.metrics
	snapshot.ByStrategy = make(map[models.Strategy]models.StrategyMetrics, len(e.metrics.ByStrategy))
	for k, v := range e.metrics.ByStrategy {
		snapshot.ByStrategy[k] = v
	}
	return snapshot
}

// Shutdown waits for in-flight learning, then closes the cache, the
// pattern store and any registered hooks (the shared browser among
// them).
func (e *Engine) Shutdown() error {
	e.learnWG.Wait()

	var errs []error
	if err := e.cache.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.store.Close(); err != nil {
		errs = append(errs, err)
	}
	for _, fn := range e.shutdowns {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) count(fn func(*models.Metrics)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.metrics)
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
