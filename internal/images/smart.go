// Package images maximizes recall of product photo URLs. Images are the
// highest-value and most inconsistently marked-up field, so this
// extractor unions several independent strategies and optionally
// validates the result over the network.
package images

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/universal-product-parser/internal/extractor"
	"github.com/maltedev/universal-product-parser/internal/models"
	"github.com/maltedev/universal-product-parser/internal/normalize"
	"github.com/maltedev/universal-product-parser/internal/patterns"
)

// Universal gallery/carousel selectors, tried alongside any learned or
// domain-specific selectors.
var universalGallerySelectors = []string{
	".product-gallery img",
	".product__media img",
	".gallery img",
	".carousel img",
	".swiper-slide img",
	".slick-slide img",
	"[data-gallery] img",
	".thumbnails img",
	".product-images img",
	"picture source",
	".pdp-gallery img",
}

type Options struct {
	// ValidationCeiling bounds the probe cost: candidate sets larger
	// than this skip validation and trust the heuristics.
	ValidationCeiling int
	ProbeConcurrency  int
	MaxImages         int
}

func DefaultOptions() Options {
	return Options{
		ValidationCeiling: 20,
		ProbeConcurrency:  5,
		MaxImages:         10,
	}
}

// Result carries the final image list plus this sub-extractor's own
// confidence, a saturating function of how many strategies contributed
// and how many images survived.
type Result struct {
	Images     []string
	Strategies int
	Confidence float64
}

type SmartExtractor struct {
	store  patterns.Store
	prober Prober
	opts   Options
	logger *slog.Logger
}

func NewSmartExtractor(store patterns.Store, prober Prober, opts Options, logger *slog.Logger) *SmartExtractor {
	return &SmartExtractor{
		store:  store,
		prober: prober,
		opts:   opts,
		logger: logger.With("component", "smart_images"),
	}
}

// Extract unions four strategies in order: inline-script mining, gallery
// selector walk, domain variant generation, and meta-image heuristics.
// Validation happens before domain CDN transforms so probes hit the
// cheaper variant.
func (e *SmartExtractor) Extract(ctx context.Context, doc *goquery.Document, pageURL, domain string) *Result {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	var candidates []string
	strategies := 0

	addAll := func(found []string) {
		contributed := false
		for _, ref := range found {
			abs := normalize.AbsoluteImageURL(base, ref)
			if abs == "" || !normalize.LooksLikeImageURL(abs) {
				continue
			}
			candidates = append(candidates, abs)
			contributed = true
		}
		if contributed {
			strategies++
		}
	}

	addAll(e.mineScripts(doc))

	gallerySelector, galleryImages := e.walkGalleries(doc, domain)
	addAll(galleryImages)

	seed := extractor.MetaImage(doc)
	addAll(generateVariants(domain, seed))

	if seed != "" {
		addAll(append([]string{seed}, heuristicVariants(seed)...))
	}

	candidates = normalize.DedupImages(candidates, 0)

	if e.prober != nil && len(candidates) > 0 && len(candidates) <= e.opts.ValidationCeiling {
		candidates = validateCandidates(ctx, e.prober, candidates, e.opts.ProbeConcurrency)
	}

	candidates = normalize.ApplyDomainTransforms(candidates)
	candidates = normalize.DedupImages(candidates, e.opts.MaxImages)

	result := &Result{
		Images:     candidates,
		Strategies: strategies,
		Confidence: imageConfidence(strategies, len(candidates)),
	}

	if e.store != nil && gallerySelector != "" && len(candidates) > 0 {
		e.store.RecordSuccess(domain, map[string]string{models.FieldImages: gallerySelector})
	}

	return result
}

func (e *SmartExtractor) mineScripts(doc *goquery.Document) []string {
	var mined []string
	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		if typ, _ := sel.Attr("type"); typ == "application/ld+json" {
			return // structured data is its own evidence source
		}
		mined = append(mined, mineInlineScripts(sel.Text())...)
	})
	return mined
}

// walkGalleries applies learned and domain selectors first, then the
// universal list, returning the first selector that produced images.
func (e *SmartExtractor) walkGalleries(doc *goquery.Document, domain string) (string, []string) {
	var selectors []string

	if e.store != nil {
		if entry, ok := e.store.Get(domain); ok {
			if learned := entry.Fields[models.FieldImages]; learned != "" {
				selectors = append(selectors, learned)
			}
		}
	}
	selectors = append(selectors, extractor.GalleryTable(domain)...)
	selectors = append(selectors, universalGallerySelectors...)

	for _, selector := range selectors {
		if images := collectGallery(doc, selector); len(images) > 0 {
			return selector, images
		}
	}

	return "", nil
}

func collectGallery(doc *goquery.Document, selector string) []string {
	var images []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		for _, attr := range []string{"src", "data-src", "data-lazy-src", "data-original", "srcset"} {
			val, ok := sel.Attr(attr)
			if !ok || val == "" {
				continue
			}
			if attr == "srcset" {
				val = firstSrcsetURL(val)
			}
			if val != "" {
				images = append(images, val)
				return
			}
		}
	})
	return images
}

func firstSrcsetURL(srcset string) string {
	for i := 0; i < len(srcset); i++ {
		if srcset[i] == ',' {
			srcset = srcset[:i]
			break
		}
	}
	for i := 0; i < len(srcset); i++ {
		if srcset[i] == ' ' && i > 0 {
			return srcset[:i]
		}
	}
	return srcset
}

// imageConfidence saturates as strategies and image count grow: one
// strategy with one image is weak, three strategies agreeing on a
// handful of images is near certain.
func imageConfidence(strategies, count int) float64 {
	if count == 0 {
		return 0
	}

	conf := 0.25 * float64(strategies)
	images := count
	if images > 8 {
		images = 8
	}
	conf += 0.06 * float64(images)

	if conf > 1 {
		conf = 1
	}
	return conf
}
