package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/universal-product-parser/internal/models"
)

// MetaTags reads the social-preview and e-commerce meta properties.
type MetaTags struct{}

func NewMetaTags() *MetaTags {
	return &MetaTags{}
}

func (e *MetaTags) Source() models.Source {
	return models.SourceMetaTags
}

func (e *MetaTags) Extract(doc *goquery.Document, domain string) *models.EvidenceBundle {
	bundle := models.NewEvidenceBundle(e.Source())

	bundle.Name = metaContent(doc, "og:title", "twitter:title")
	bundle.Description = metaContent(doc, "og:description", "twitter:description", "description")
	bundle.Brand = metaContent(doc, "product:brand", "og:brand")
	bundle.PriceText = metaContent(doc, "product:price:amount", "og:price:amount")
	bundle.Currency = metaContent(doc, "product:price:currency", "og:price:currency")
	bundle.Availability = metaContent(doc, "product:availability", "og:availability")

	seen := make(map[string]struct{})
	doc.Find(`meta[property="og:image"], meta[property="og:image:url"], meta[name="twitter:image"]`).
		Each(func(_ int, sel *goquery.Selection) {
			content := strings.TrimSpace(sel.AttrOr("content", ""))
			if content == "" {
				return
			}
			if _, dup := seen[content]; dup {
				return
			}
			seen[content] = struct{}{}
			bundle.Images = append(bundle.Images, content)
		})

	return bundle
}

// MetaImage returns just the primary og:image, the seed for image
// variant generation.
func MetaImage(doc *goquery.Document) string {
	return metaContent(doc, "og:image", "og:image:url", "twitter:image")
}

func metaContent(doc *goquery.Document, keys ...string) string {
	for _, key := range keys {
		content := doc.Find(`meta[property="`+key+`"]`).First().AttrOr("content", "")
		if content == "" {
			content = doc.Find(`meta[name="`+key+`"]`).First().AttrOr("content", "")
		}
		if cleaned := cleanText(content); cleaned != "" {
			return cleaned
		}
	}
	return ""
}
