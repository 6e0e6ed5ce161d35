package extractor

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/universal-product-parser/internal/models"
)

// Selector heuristics tried in order per field. First non-empty match
// wins. These are the weakest evidence source and carry no confidence
// bonus.
var genericSelectors = map[string][]string{
	models.FieldName: {
		"h1",
		".product-name",
		".product-title",
		".product__title",
		"#product-title",
		"[data-testid='product-name']",
		".pdp-title",
	},
	models.FieldPrice: {
		".price",
		".product-price",
		".product__price",
		".price-current",
		".current-price",
		"[data-testid='product-price']",
		"span.price",
		".pdp-price",
	},
	models.FieldBrand: {
		".brand",
		".product-brand",
		".product__vendor",
		".vendor",
		"[data-testid='product-brand']",
	},
	models.FieldDescription: {
		".product-description",
		".product__description",
		"#description",
		"#product-description",
		".pdp-description",
	},
}

var genericImageSelectors = []string{
	".product-image img",
	".product__media img",
	".product-gallery img",
	".gallery img",
	"#product-image img",
	"img.product-image",
	"picture.product img",
}

// GenericSelectors is the universal fallback extractor: common
// class-name and attribute conventions seen across storefronts.
type GenericSelectors struct{}

func NewGenericSelectors() *GenericSelectors {
	return &GenericSelectors{}
}

func (e *GenericSelectors) Source() models.Source {
	return models.SourceGenericCSS
}

func (e *GenericSelectors) Extract(doc *goquery.Document, domain string) *models.EvidenceBundle {
	bundle := models.NewEvidenceBundle(e.Source())

	for field, selectors := range genericSelectors {
		text, matched := firstText(doc, selectors)
		if text == "" {
			continue
		}
		bundle.Selectors[field] = matched

		switch field {
		case models.FieldName:
			bundle.Name = text
		case models.FieldPrice:
			bundle.PriceText = text
		case models.FieldBrand:
			bundle.Brand = text
		case models.FieldDescription:
			bundle.Description = text
		}
	}

	for _, selector := range genericImageSelectors {
		if images := collectImages(doc, selector); len(images) > 0 {
			bundle.Images = images
			bundle.Selectors[models.FieldImages] = selector
			break
		}
	}

	return bundle
}
