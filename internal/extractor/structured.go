package extractor

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/universal-product-parser/internal/models"
	"github.com/maltedev/universal-product-parser/internal/normalize"
)

// StructuredData reads JSON-LD product markup, the highest-trust
// evidence source. It accepts Product objects at the top level, inside
// an @graph or array wrapper, or under a mainEntity key.
type StructuredData struct{}

func NewStructuredData() *StructuredData {
	return &StructuredData{}
}

func (e *StructuredData) Source() models.Source {
	return models.SourceStructuredData
}

func (e *StructuredData) Extract(doc *goquery.Document, domain string) *models.EvidenceBundle {
	bundle := models.NewEvidenceBundle(e.Source())

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(sel.Text()), &data); err != nil {
			return true // malformed block, keep scanning
		}

		product := findProduct(data)
		if product == nil {
			return true
		}

		e.readProduct(product, bundle)
		return false
	})

	return bundle
}

// findProduct locates the first Product object, unwrapping one level of
// array, @graph or mainEntity nesting.
func findProduct(data any) map[string]any {
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok && isProductType(obj) {
				return obj
			}
		}
	case map[string]any:
		if isProductType(v) {
			return v
		}
		if graph, ok := v["@graph"].([]any); ok {
			for _, item := range graph {
				if obj, ok := item.(map[string]any); ok && isProductType(obj) {
					return obj
				}
			}
		}
		if main, ok := v["mainEntity"].(map[string]any); ok && isProductType(main) {
			return main
		}
	}
	return nil
}

func isProductType(obj map[string]any) bool {
	switch t := obj["@type"].(type) {
	case string:
		return strings.EqualFold(t, "Product")
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, "Product") {
				return true
			}
		}
	}
	return false
}

func (e *StructuredData) readProduct(product map[string]any, bundle *models.EvidenceBundle) {
	bundle.Name = cleanText(stringValue(product["name"]))
	bundle.Description = cleanText(stringValue(product["description"]))
	bundle.SKU = cleanText(stringValue(product["sku"]))

	switch brand := product["brand"].(type) {
	case string:
		bundle.Brand = cleanText(brand)
	case map[string]any:
		bundle.Brand = cleanText(stringValue(brand["name"]))
	}

	if offer := firstOffer(product["offers"]); offer != nil {
		e.readOffer(offer, bundle)
	}

	bundle.Images = imageList(product["image"])
}

func firstOffer(offers any) map[string]any {
	switch v := offers.(type) {
	case map[string]any:
		return v
	case []any:
		if len(v) > 0 {
			if obj, ok := v[0].(map[string]any); ok {
				return obj
			}
		}
	}
	return nil
}

func (e *StructuredData) readOffer(offer map[string]any, bundle *models.EvidenceBundle) {
	switch price := offer["price"].(type) {
	case float64:
		bundle.Price = price
		bundle.PriceParsed = true
	case string:
		if amount, _, err := normalize.ParsePrice(price); err == nil {
			bundle.Price = amount
			bundle.PriceParsed = true
		}
	}

	bundle.Currency = cleanText(stringValue(offer["priceCurrency"]))

	if availability := stringValue(offer["availability"]); availability != "" {
		// Schema.org availability is a URL; keep the last path segment.
		parts := strings.Split(availability, "/")
		bundle.Availability = parts[len(parts)-1]
	}
}

// imageList normalizes the schema.org image shapes: a bare string, an
// array of strings, or ImageObject maps with a url key.
func imageList(image any) []string {
	var images []string

	appendURL := func(item any) {
		switch v := item.(type) {
		case string:
			if u := strings.TrimSpace(v); u != "" {
				images = append(images, u)
			}
		case map[string]any:
			if u := strings.TrimSpace(stringValue(v["url"])); u != "" {
				images = append(images, u)
			}
		}
	}

	switch v := image.(type) {
	case []any:
		for _, item := range v {
			appendURL(item)
		}
	default:
		appendURL(v)
	}

	return images
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
