package extractor

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/universal-product-parser/internal/models"
)

// SelectorTable is a hand-written field-to-selector map for one domain.
type SelectorTable map[string][]string

// Built-in tables for sites whose markup is stable enough to hardcode.
var domainTables = map[string]SelectorTable{
	"amazon.com": amazonTable,
	"amazon.de":  amazonTable,
	"etsy.com": {
		models.FieldName:   {"h1[data-buy-box-listing-title]"},
		models.FieldPrice:  {".wt-text-title-larger .currency-value", "p.wt-text-title-03"},
		models.FieldImages: {".image-carousel-container img"},
	},
}

var amazonTable = SelectorTable{
	models.FieldName:   {"#productTitle"},
	models.FieldPrice:  {".a-price .a-offscreen", ".a-price-whole", "#priceblock_ourprice", "#priceblock_dealprice"},
	models.FieldBrand:  {"#bylineInfo"},
	models.FieldImages: {"#altImages img", "#landingImage"},
}

// RegisterDomainTable adds or replaces the selector table for a domain.
func RegisterDomainTable(domain string, table SelectorTable) {
	domainTables[domain] = table
}

// HasDomainTable reports whether a hand-written table exists for the
// domain, so the engine can skip the extractor entirely otherwise.
func HasDomainTable(domain string) bool {
	_, ok := domainTables[domain]
	return ok
}

// DomainRules applies a domain's hand-written selector table. Same shape
// as the generic extractor but domain-scoped and merged with higher
// trust.
type DomainRules struct{}

func NewDomainRules() *DomainRules {
	return &DomainRules{}
}

func (e *DomainRules) Source() models.Source {
	return models.SourceDomainRules
}

func (e *DomainRules) Extract(doc *goquery.Document, domain string) *models.EvidenceBundle {
	bundle := models.NewEvidenceBundle(e.Source())

	table, ok := domainTables[domain]
	if !ok {
		return bundle
	}

	for field, selectors := range table {
		if field == models.FieldImages {
			for _, selector := range selectors {
				if images := collectImages(doc, selector); len(images) > 0 {
					bundle.Images = images
					bundle.Selectors[field] = selector
					break
				}
			}
			continue
		}

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

	return bundle
}

// GalleryTable exposes a domain's image selectors to the smart image
// extractor.
func GalleryTable(domain string) []string {
	table, ok := domainTables[domain]
	if !ok {
		return nil
	}
	return table[models.FieldImages]
}
