package extractor

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/universal-product-parser/internal/models"
	"github.com/maltedev/universal-product-parser/internal/patterns"
)

// LearnedPatterns replays selectors that worked for this domain on a
// previous extraction. Trusted above meta tags: a selector that produced
// a high-confidence result yesterday usually still fits today's markup.
type LearnedPatterns struct {
	store patterns.Store
}

func NewLearnedPatterns(store patterns.Store) *LearnedPatterns {
	return &LearnedPatterns{store: store}
}

func (e *LearnedPatterns) Source() models.Source {
	return models.SourceLearnedPattern
}

func (e *LearnedPatterns) Extract(doc *goquery.Document, domain string) *models.EvidenceBundle {
	bundle := models.NewEvidenceBundle(e.Source())

	entry, ok := e.store.Get(domain)
	if !ok {
		return bundle
	}

	for field, selector := range entry.Fields {
		if field == models.FieldImages {
			if images := collectImages(doc, selector); len(images) > 0 {
				bundle.Images = images
				bundle.Selectors[field] = selector
			}
			continue
		}

		text := cleanText(doc.Find(selector).First().Text())
		if text == "" {
			continue
		}
		bundle.Selectors[field] = selector

		switch field {
		case models.FieldName:
			bundle.Name = text
		case models.FieldPrice:
			bundle.PriceText = text
		case models.FieldBrand:
			bundle.Brand = text
		case models.FieldDescription:
			bundle.Description = text
		case models.FieldSKU:
			bundle.SKU = text
		}
	}

	return bundle
}
