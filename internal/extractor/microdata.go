package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/universal-product-parser/internal/models"
)

// Microdata reads schema.org itemprop attributes inline in the markup.
type Microdata struct{}

func NewMicrodata() *Microdata {
	return &Microdata{}
}

func (e *Microdata) Source() models.Source {
	return models.SourceMicrodata
}

func (e *Microdata) Extract(doc *goquery.Document, domain string) *models.EvidenceBundle {
	bundle := models.NewEvidenceBundle(e.Source())

	bundle.Name = itempropValue(doc, "name")
	bundle.Brand = itempropValue(doc, "brand")
	bundle.Description = itempropValue(doc, "description")
	bundle.SKU = itempropValue(doc, "sku")
	bundle.PriceText = itempropValue(doc, "price")
	bundle.Currency = itempropValue(doc, "priceCurrency")

	if availability := doc.Find(`[itemprop="availability"]`).First(); availability.Length() > 0 {
		href := availability.AttrOr("href", availability.AttrOr("content", ""))
		if href != "" {
			parts := strings.Split(href, "/")
			bundle.Availability = cleanText(parts[len(parts)-1])
		}
	}

	bundle.Images = collectImages(doc, `[itemprop="image"]`)
	if len(bundle.Images) == 0 {
		// itemprop=image is sometimes a link or meta element.
		if content := doc.Find(`[itemprop="image"]`).First().AttrOr("content", ""); content != "" {
			bundle.Images = []string{strings.TrimSpace(content)}
		}
	}

	return bundle
}

// itempropValue prefers the content attribute, which carries machine
// values on meta-style markup, falling back to element text.
func itempropValue(doc *goquery.Document, prop string) string {
	sel := doc.Find(`[itemprop="` + prop + `"]`).First()
	if sel.Length() == 0 {
		return ""
	}

	if content := cleanText(sel.AttrOr("content", "")); content != "" {
		return content
	}
	return cleanText(sel.Text())
}
