package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/universal-product-parser/internal/models"
)

func TestExtractHydrationNextData(t *testing.T) {
	globals := map[string]any{
		"__NEXT_DATA__": map[string]any{
			"props": map[string]any{
				"pageProps": map[string]any{
					"product": map[string]any{
						"name":  "Wool Coat",
						"brand": "Acme",
						"price": map[string]any{
							"current":  float64(199),
							"currency": "USD",
						},
						"images": []any{"https://x/a.jpg", "https://x/b.jpg"},
					},
				},
			},
		},
	}

	bundle := ExtractHydration(globals)
	require.NotNil(t, bundle)
	assert.Equal(t, models.SourceHydration, bundle.Source)
	assert.Equal(t, "Wool Coat", bundle.Name)
	assert.Equal(t, "Acme", bundle.Brand)
	assert.True(t, bundle.PriceParsed)
	assert.InDelta(t, 199.0, bundle.Price, 0.001)
	assert.Equal(t, "USD", bundle.Currency)
	assert.Len(t, bundle.Images, 2)
}

func TestExtractHydrationShopify(t *testing.T) {
	globals := map[string]any{
		"ShopifyAnalytics": map[string]any{
			"meta": map[string]any{
				"currency": "EUR",
				"product": map[string]any{
					"vendor": "Acme",
					"variants": []any{
						map[string]any{
							"name":  "Wool Coat - M",
							"price": float64(19900),
							"sku":   "WC-100-M",
						},
					},
				},
			},
		},
	}

	bundle := ExtractHydration(globals)
	require.NotNil(t, bundle)
	assert.Equal(t, "Wool Coat - M", bundle.Name)
	assert.InDelta(t, 199.0, bundle.Price, 0.001, "cents converted")
	assert.Equal(t, "EUR", bundle.Currency)
	assert.Equal(t, "WC-100-M", bundle.SKU)
}

func TestExtractHydrationDataLayer(t *testing.T) {
	globals := map[string]any{
		"dataLayer": []any{
			map[string]any{"event": "pageview"},
			map[string]any{
				"ecommerce": map[string]any{
					"detail": map[string]any{
						"products": []any{
							map[string]any{
								"name":  "Wool Coat",
								"brand": "Acme",
								"price": "199.00",
							},
						},
					},
				},
			},
		},
	}

	bundle := ExtractHydration(globals)
	require.NotNil(t, bundle)
	assert.Equal(t, "Wool Coat", bundle.Name)
	assert.InDelta(t, 199.0, bundle.Price, 0.001)
}

func TestExtractHydrationOrderAndMiss(t *testing.T) {
	// Next.js shape is tried first when both are present.
	globals := map[string]any{
		"__NEXT_DATA__": map[string]any{
			"props": map[string]any{
				"pageProps": map[string]any{
					"product": map[string]any{"name": "From Next"},
				},
			},
		},
		"dataLayer": []any{
			map[string]any{
				"ecommerce": map[string]any{
					"detail": map[string]any{
						"products": []any{map[string]any{"name": "From GTM"}},
					},
				},
			},
		},
	}

	bundle := ExtractHydration(globals)
	require.NotNil(t, bundle)
	assert.Equal(t, "From Next", bundle.Name)

	assert.Nil(t, ExtractHydration(map[string]any{}))
	assert.Nil(t, ExtractHydration(map[string]any{"__NEXT_DATA__": "garbage"}))
}
