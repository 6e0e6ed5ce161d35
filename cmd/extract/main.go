package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maltedev/universal-product-parser/internal/browser"
	"github.com/maltedev/universal-product-parser/internal/cache"
	"github.com/maltedev/universal-product-parser/internal/config"
	"github.com/maltedev/universal-product-parser/internal/engine"
	"github.com/maltedev/universal-product-parser/internal/fetch"
	"github.com/maltedev/universal-product-parser/internal/images"
	"github.com/maltedev/universal-product-parser/internal/models"
	"github.com/maltedev/universal-product-parser/internal/patterns"
)

// One-shot extraction: parse a single product URL and print the record
// as JSON. Meant for ad-hoc runs and selector debugging.
func main() {
	// Command line flags
	var (
		url          = flag.String("url", "", "Product page URL to extract")
		strategy     = flag.String("strategy", "", "Force a fetch strategy: direct or rendered")
		timeout      = flag.Duration("timeout", 60*time.Second, "Overall extraction timeout")
		patternsFile = flag.String("patterns", "patterns.json", "Learned selector patterns file")
		noRender     = flag.Bool("no-render", false, "Disable the headless browser entirely")
		pretty       = flag.Bool("pretty", true, "Indent the JSON output")
	)
	flag.Parse()

	if *url == "" {
		flag.Usage()
		os.Exit(2)
	}

	// Setup logging
	logLevel := slog.LevelWarn
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := patterns.NewFileStore(*patternsFile, logger)
	if err != nil {
		logger.Error("failed to open patterns file", "error", err, "file", *patternsFile)
		os.Exit(1)
	}

	direct := fetch.NewDirect(cfg.Fetch.Timeout, cfg.Fetch.UserAgent)

	var rendered fetch.Fetcher
	if !*noRender {
		r := browser.NewRendered(&browser.Options{
			Headless:       cfg.Browser.Headless,
			Timeout:        cfg.Browser.Timeout,
			UserAgent:      cfg.Fetch.UserAgent,
			ViewportWidth:  cfg.Browser.ViewportWidth,
			ViewportHeight: cfg.Browser.ViewportHeight,
			AcceptLanguage: cfg.Browser.AcceptLanguage,
			TimezoneID:     cfg.Browser.TimezoneID,
			Locale:         cfg.Browser.Locale,
		}, cfg.Browser.HeadingWait, logger)
		defer r.Shutdown()
		rendered = r
	}

	smart := images.NewSmartExtractor(store, images.NewHTTPProber(5*time.Second), images.Options{
		ValidationCeiling: 20,
		ProbeConcurrency:  5,
		MaxImages:         cfg.Engine.MaxImages,
	}, logger)

	eng := engine.New(cfg.Engine, cfg.Domains, engine.Deps{
		Direct:   direct,
		Rendered: rendered,
		Cache:    cache.NewMemoryCache(1, cfg.Cache.DirectTTL, cfg.Cache.RenderedTTL),
		Patterns: store,
		Smart:    smart,
		Logger:   logger,
	})
	defer eng.Shutdown()

	opts := &engine.Options{Timeout: *timeout}
	switch *strategy {
	case "":
	case string(models.StrategyDirect):
		opts.ForceStrategy = models.StrategyDirect
	case string(models.StrategyRendered):
		opts.ForceStrategy = models.StrategyRendered
	default:
		logger.Error("unknown strategy", "strategy", *strategy)
		os.Exit(2)
	}

	record := eng.Extract(ctx, *url, opts)

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(record); err != nil {
		logger.Error("failed to encode record", "error", err)
		os.Exit(1)
	}

	if record.Error != "" {
		os.Exit(1)
	}
}
