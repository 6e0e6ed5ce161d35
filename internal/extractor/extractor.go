// Package extractor contains the independent evidence extractors the
// merge engine reconciles. Each extractor is a pure read over one shared
// parsed document; none may depend on another's output.
package extractor

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/universal-product-parser/internal/models"
)

// Extractor scans a parsed document for one evidence type.
type Extractor interface {
	Source() models.Source
	Extract(doc *goquery.Document, domain string) *models.EvidenceBundle
}

// RunAll fans the extractors out concurrently and returns their bundles
// in the same order they were given, so callers can pass a priority
// order straight through to the merge engine. Nil and empty bundles are
// kept in place; merge skips them.
func RunAll(doc *goquery.Document, domain string, extractors []Extractor) []*models.EvidenceBundle {
	bundles := make([]*models.EvidenceBundle, len(extractors))

	var wg sync.WaitGroup
	for i, ex := range extractors {
		wg.Add(1)
		go func(i int, ex Extractor) {
			defer wg.Done()
			bundles[i] = ex.Extract(doc, domain)
		}(i, ex)
	}
	wg.Wait()

	return bundles
}

// cleanText trims whitespace and collapses internal runs. Whitespace-only
// content counts as "not found", never as an empty-string result.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// firstText returns the cleaned text of the first element matching any
// of the selectors, along with the selector that matched.
func firstText(doc *goquery.Document, selectors []string) (string, string) {
	for _, selector := range selectors {
		text := cleanText(doc.Find(selector).First().Text())
		if text != "" {
			return text, selector
		}
	}
	return "", ""
}

// imageAttrs lists the attributes tried, in order, when reading an image
// element. Lazy-load libraries hide the real URL behind data attributes.
var imageAttrs = []string{"src", "data-src", "data-lazy-src", "data-original", "data-srcset", "srcset"}

// imageURLFrom reads the best image reference off one element.
func imageURLFrom(sel *goquery.Selection) string {
	for _, attr := range imageAttrs {
		val, ok := sel.Attr(attr)
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		// srcset entries are "url width" pairs; take the first URL.
		if attr == "srcset" || attr == "data-srcset" {
			val = strings.TrimSpace(strings.Split(val, ",")[0])
			val = strings.Split(val, " ")[0]
		}
		if val != "" {
			return val
		}
	}
	return ""
}

// collectImages gathers image references matching a selector in document
// order, deduplicated within this pass only.
func collectImages(doc *goquery.Document, selector string) []string {
	seen := make(map[string]struct{})
	var images []string

	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		u := imageURLFrom(sel)
		if u == "" {
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		images = append(images, u)
	})

	return images
}
