package browser

import (
	"strings"

	"github.com/maltedev/universal-product-parser/internal/models"
	"github.com/maltedev/universal-product-parser/internal/normalize"
)

// hydrationShape reads one framework's client-state layout. Shapes are
// tried in order; the first that yields evidence wins. Adding a
// framework means adding a row here, nothing else changes.
type hydrationShape struct {
	name    string
	extract func(globals map[string]any) *models.EvidenceBundle
}

var hydrationShapes = []hydrationShape{
	{"nextjs", extractNextData},
	{"shopify", extractShopifyAnalytics},
	{"nuxt", extractNuxtState},
	{"datalayer", extractDataLayer},
}

// ExtractHydration turns probed JS globals into an evidence bundle.
// Returns nil when no known shape matched.
func ExtractHydration(globals map[string]any) *models.EvidenceBundle {
	for _, shape := range hydrationShapes {
		if bundle := shape.extract(globals); bundle != nil && !bundle.IsEmpty() {
			return bundle
		}
	}
	return nil
}

// extractNextData reads __NEXT_DATA__.props.pageProps.product.
func extractNextData(globals map[string]any) *models.EvidenceBundle {
	product := dig(globals, "__NEXT_DATA__", "props", "pageProps", "product")
	if product == nil {
		return nil
	}

	bundle := models.NewEvidenceBundle(models.SourceHydration)
	bundle.Name = digString(product, "name")
	bundle.Brand = digString(product, "brand")
	bundle.Description = digString(product, "description")
	bundle.SKU = digString(product, "sku")

	// price is either a bare number or {current, currency}.
	if amount, ok := digNumber(product, "price"); ok {
		bundle.Price = amount
		bundle.PriceParsed = true
	} else if price := dig(product, "price"); price != nil {
		if amount, ok := digNumber(price, "current"); ok {
			bundle.Price = amount
			bundle.PriceParsed = true
		}
		bundle.Currency = digString(price, "currency")
	}

	bundle.Images = digStringList(product, "images")
	return bundle
}

// extractShopifyAnalytics reads ShopifyAnalytics.meta.product; variant
// prices there are integer cents.
func extractShopifyAnalytics(globals map[string]any) *models.EvidenceBundle {
	product := dig(globals, "ShopifyAnalytics", "meta", "product")
	if product == nil {
		return nil
	}

	bundle := models.NewEvidenceBundle(models.SourceHydration)
	bundle.Name = digString(product, "name")
	bundle.Brand = digString(product, "vendor")

	if variants, ok := product["variants"].([]any); ok && len(variants) > 0 {
		if variant, ok := variants[0].(map[string]any); ok {
			if cents, ok := digNumber(variant, "price"); ok {
				bundle.Price = cents / 100
				bundle.PriceParsed = true
			}
			if bundle.Name == "" {
				bundle.Name = digString(variant, "name")
			}
			bundle.SKU = digString(variant, "sku")
		}
	}

	bundle.Currency = digString(dig(globals, "ShopifyAnalytics", "meta"), "currency")
	return bundle
}

// extractNuxtState scans __NUXT__.state values for a product-looking
// object.
func extractNuxtState(globals map[string]any) *models.EvidenceBundle {
	state := dig(globals, "__NUXT__", "state")
	if state == nil {
		return nil
	}

	for _, value := range state {
		obj, ok := value.(map[string]any)
		if !ok {
			continue
		}
		product := obj
		if nested := dig(obj, "product"); nested != nil {
			product = nested
		}
		name := digString(product, "name")
		if name == "" {
			continue
		}

		bundle := models.NewEvidenceBundle(models.SourceHydration)
		bundle.Name = name
		bundle.Brand = digString(product, "brand")
		if amount, ok := digNumber(product, "price"); ok {
			bundle.Price = amount
			bundle.PriceParsed = true
		}
		bundle.Images = digStringList(product, "images")
		return bundle
	}
	return nil
}

// extractDataLayer reads GTM ecommerce detail pushes.
func extractDataLayer(globals map[string]any) *models.EvidenceBundle {
	entries, ok := globals["dataLayer"].([]any)
	if !ok {
		return nil
	}

	for _, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		products := dig(obj, "ecommerce", "detail")
		if products == nil {
			continue
		}
		list, ok := products["products"].([]any)
		if !ok || len(list) == 0 {
			continue
		}
		product, ok := list[0].(map[string]any)
		if !ok {
			continue
		}

		bundle := models.NewEvidenceBundle(models.SourceHydration)
		bundle.Name = digString(product, "name")
		bundle.Brand = digString(product, "brand")
		switch price := product["price"].(type) {
		case float64:
			bundle.Price = price
			bundle.PriceParsed = true
		case string:
			if amount, _, err := normalize.ParsePrice(price); err == nil {
				bundle.Price = amount
				bundle.PriceParsed = true
			}
		}
		if !bundle.IsEmpty() {
			return bundle
		}
	}
	return nil
}

func dig(m map[string]any, path ...string) map[string]any {
	current := m
	for _, key := range path {
		if current == nil {
			return nil
		}
		next, ok := current[key].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

func digString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func digNumber(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	f, ok := m[key].(float64)
	return f, ok
}

func digStringList(m map[string]any, key string) []string {
	if m == nil {
		return nil
	}
	items, ok := m[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
