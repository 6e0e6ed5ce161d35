package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		amount   float64
		currency string
		hasError bool
	}{
		{
			name:     "European thousands and decimal",
			text:     "€1.234,56",
			amount:   1234.56,
			currency: "EUR",
		},
		{
			name:     "US thousands and decimal",
			text:     "$1,234.56",
			amount:   1234.56,
			currency: "USD",
		},
		{
			name:     "Plain decimal with code",
			text:     "199.00 USD",
			amount:   199.00,
			currency: "USD",
		},
		{
			name:     "Comma decimal without thousands",
			text:     "49,99 €",
			amount:   49.99,
			currency: "EUR",
		},
		{
			name:     "Pound with single group",
			text:     "£2,500",
			amount:   2500,
			currency: "GBP",
		},
		{
			name:     "Surrounding label text",
			text:     "Price: $89.95 incl. tax",
			amount:   89.95,
			currency: "USD",
		},
		{
			name:     "No currency signal",
			text:     "1299",
			amount:   1299,
			currency: "",
		},
		{
			name:     "European multi-group",
			text:     "€1.234.567,89",
			amount:   1234567.89,
			currency: "EUR",
		},
		{
			name:     "Trailing separator stripped",
			text:     "150,- €",
			amount:   150,
			currency: "EUR",
		},
		{
			name:     "Empty text",
			text:     "   ",
			hasError: true,
		},
		{
			name:     "No digits",
			text:     "ausverkauft",
			hasError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, currency, err := ParsePrice(tt.text)

			if tt.hasError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.InDelta(t, tt.amount, amount, 0.001)
			assert.Equal(t, tt.currency, currency)
		})
	}
}

func TestDetectCurrency(t *testing.T) {
	assert.Equal(t, "EUR", DetectCurrency("ab 19,99 €"))
	assert.Equal(t, "USD", DetectCurrency("$10"))
	assert.Equal(t, "GBP", DetectCurrency("£10"))
	assert.Equal(t, "CHF", DetectCurrency("CHF 89.00"))
	assert.Equal(t, "USD", DetectCurrency("price is 10 usd"))
	assert.Equal(t, "", DetectCurrency("10"))
}

func TestCurrencyForDomain(t *testing.T) {
	assert.Equal(t, "EUR", CurrencyForDomain("zalando.de"))
	assert.Equal(t, "GBP", CurrencyForDomain("asos.co.uk"))
	assert.Equal(t, "", CurrencyForDomain("example.com"))
}
