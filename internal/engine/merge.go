package engine

import (
	"net/url"

	"github.com/maltedev/universal-product-parser/internal/models"
	"github.com/maltedev/universal-product-parser/internal/normalize"
)

// Field weights for the confidence score. A field contributes only when
// non-empty; images require length > 0.
var fieldWeights = map[string]float64{
	models.FieldName:        0.25,
	models.FieldPrice:       0.25,
	models.FieldImages:      0.20,
	models.FieldBrand:       0.15,
	models.FieldDescription: 0.10,
}

// Per-source bonus added once per field won by that source. Structured
// data and browser-state extraction earn the largest bonuses; the
// generic fallback earns none.
var sourceBonuses = map[models.Source]float64{
	models.SourceStructuredData: 0.05,
	models.SourceHydration:      0.05,
	models.SourceLearnedPattern: 0.04,
	models.SourceMetaTags:       0.03,
	models.SourceSmartImages:    0.03,
	models.SourceDomainRules:    0.02,
	models.SourceMicrodata:      0.01,
	models.SourceGenericCSS:     0,
}

// merge reconciles extractor bundles, given highest-trust first, into
// one record. For every field independently the first bundle with a
// non-empty value wins and is recorded as that field's source. The
// returned selector map holds the winning selectors, for pattern
// learning.
func merge(pageURL, domain string, bundles []*models.EvidenceBundle, maxImages int) (*models.ProductRecord, map[string]string) {
	record := models.NewProductRecord(pageURL)
	learned := make(map[string]string)

	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	take := func(field string, value string, bundle *models.EvidenceBundle) bool {
		if value == "" || record.Sources[field] != "" {
			return false
		}
		record.Sources[field] = bundle.Source
		if selector := bundle.Selectors[field]; selector != "" {
			learned[field] = selector
		}
		return true
	}

	for _, bundle := range bundles {
		if bundle == nil || bundle.IsEmpty() {
			continue
		}

		if take(models.FieldName, bundle.Name, bundle) {
			record.Name = bundle.Name
		}
		if take(models.FieldBrand, bundle.Brand, bundle) {
			record.Brand = bundle.Brand
		}
		if take(models.FieldDescription, bundle.Description, bundle) {
			record.Description = bundle.Description
		}
		if take(models.FieldSKU, bundle.SKU, bundle) {
			record.SKU = bundle.SKU
		}
		if take(models.FieldAvailability, bundle.Availability, bundle) {
			record.Availability = bundle.Availability
		}

		mergePrice(record, bundle, learned)

		if record.Currency == "" && bundle.Currency != "" {
			record.Currency = bundle.Currency
		}

		// Images are first-match-wins across bundles, not unioned; the
		// smart image extractor may override the pick later. References
		// that cannot be resolved to absolute URLs are dropped, and a
		// bundle whose list resolves to nothing does not win the field.
		if len(bundle.Images) > 0 && record.Sources[models.FieldImages] == "" {
			if images := absoluteImages(base, bundle.Images, maxImages); len(images) > 0 {
				record.Images = images
				record.Sources[models.FieldImages] = bundle.Source
				if selector := bundle.Selectors[models.FieldImages]; selector != "" {
					learned[models.FieldImages] = selector
				}
			}
		}
	}

	if record.Currency == "" && record.Sources[models.FieldPrice] != "" {
		record.Currency = normalize.CurrencyForDomain(domain)
	}

	record.Confidence = confidence(record)
	return record, learned
}

// absoluteImages resolves raw image references against the page URL and
// dedups them on canonical form.
func absoluteImages(base *url.URL, refs []string, maxImages int) []string {
	images := make([]string, 0, len(refs))
	for _, ref := range refs {
		if abs := normalize.AbsoluteImageURL(base, ref); abs != "" {
			images = append(images, abs)
		}
	}
	return normalize.DedupImages(images, maxImages)
}

// mergePrice prefers an already-parsed numeric price; raw price text is
// normalized, and a bundle whose text fails to parse simply does not win
// the field.
func mergePrice(record *models.ProductRecord, bundle *models.EvidenceBundle, learned map[string]string) {
	if record.Sources[models.FieldPrice] != "" {
		return
	}

	if bundle.PriceParsed {
		record.Price = bundle.Price
		record.Sources[models.FieldPrice] = bundle.Source
	} else if bundle.PriceText != "" {
		amount, currency, err := normalize.ParsePrice(bundle.PriceText)
		if err != nil {
			return
		}
		record.Price = amount
		record.Sources[models.FieldPrice] = bundle.Source
		if record.Currency == "" && currency != "" {
			record.Currency = currency
		}
	} else {
		return
	}

	if selector := bundle.Selectors[models.FieldPrice]; selector != "" {
		learned[models.FieldPrice] = selector
	}
}

// confidence sums field weights plus per-source bonuses, clamped to 1.
func confidence(record *models.ProductRecord) float64 {
	found := map[string]bool{
		models.FieldName:        record.Name != "",
		models.FieldPrice:       record.Sources[models.FieldPrice] != "",
		models.FieldImages:      len(record.Images) > 0,
		models.FieldBrand:       record.Brand != "",
		models.FieldDescription: record.Description != "",
	}

	var score float64
	for field, weight := range fieldWeights {
		if !found[field] {
			continue
		}
		score += weight + sourceBonuses[record.Sources[field]]
	}

	if score > 1 {
		score = 1
	}
	return score
}
