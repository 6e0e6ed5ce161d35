package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	priceNumberPattern  = regexp.MustCompile(`[0-9][0-9.,\s\x{00a0}]*`)
	currencyCodePattern = regexp.MustCompile(`\b(EUR|USD|GBP|CHF|JPY|SEK|NOK|DKK|PLN|CAD|AUD)\b`)
)

// ParsePrice canonicalizes a raw price string into a numeric amount and,
// when a currency signal is present in the text, an ISO currency code.
// Both US ("$1,234.56") and European ("€1.234,56") separator conventions
// are handled.
func ParsePrice(text string) (float64, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, "", fmt.Errorf("empty price text")
	}

	currency := DetectCurrency(text)

	raw := priceNumberPattern.FindString(text)
	if raw == "" {
		return 0, "", fmt.Errorf("no numeric value in %q", text)
	}
	raw = strings.ReplaceAll(raw, " ", "")
	raw = strings.ReplaceAll(raw, "\u00a0", "")
	raw = strings.TrimRight(raw, ".,")

	amount, err := strconv.ParseFloat(normalizeSeparators(raw), 64)
	if err != nil {
		return 0, "", fmt.Errorf("unparseable price %q: %w", text, err)
	}

	return amount, currency, nil
}

// normalizeSeparators rewrites locale-specific thousands/decimal
// separators into plain decimal notation.
func normalizeSeparators(raw string) string {
	lastComma := strings.LastIndex(raw, ",")
	lastDot := strings.LastIndex(raw, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		// Whichever separator appears last is the decimal mark.
		if lastComma > lastDot {
			raw = strings.ReplaceAll(raw, ".", "")
			raw = strings.Replace(raw, ",", ".", 1)
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	case lastComma >= 0:
		raw = normalizeSingleSeparator(raw, ",")
	case lastDot >= 0:
		raw = normalizeSingleSeparator(raw, ".")
	}

	return raw
}

// normalizeSingleSeparator decides whether a lone separator kind is a
// decimal mark or thousands grouping. "1,234" groups, "12,34" is decimal,
// "1,234,567" groups.
func normalizeSingleSeparator(raw, sep string) string {
	parts := strings.Split(raw, sep)
	last := parts[len(parts)-1]

	grouping := len(parts) > 2 || (len(last) == 3 && len(parts[0]) <= 3)
	if grouping {
		return strings.Join(parts, "")
	}

	return strings.Join(parts[:len(parts)-1], "") + "." + last
}

// DetectCurrency infers an ISO currency code from symbols or explicit
// codes embedded in the text. Empty string when no signal is present.
func DetectCurrency(text string) string {
	if m := currencyCodePattern.FindString(strings.ToUpper(text)); m != "" {
		return m
	}

	symbols := []struct {
		symbol string
		code   string
	}{
		{"€", "EUR"},
		{"£", "GBP"},
		{"¥", "JPY"},
		{"zł", "PLN"},
		{"kr", "SEK"},
		{"CHF", "CHF"},
		{"$", "USD"},
	}
	for _, s := range symbols {
		if strings.Contains(text, s.symbol) {
			return s.code
		}
	}

	return ""
}

// CurrencyForDomain guesses a currency from a registrable domain's TLD.
// Used as the weakest signal, only when the page itself said nothing.
func CurrencyForDomain(domain string) string {
	tldCurrencies := map[string]string{
		".de": "EUR", ".fr": "EUR", ".it": "EUR", ".es": "EUR",
		".nl": "EUR", ".at": "EUR", ".be": "EUR", ".ie": "EUR",
		".co.uk": "GBP", ".uk": "GBP",
		".ch": "CHF",
		".pl": "PLN",
		".se": "SEK", ".no": "NOK", ".dk": "DKK",
		".jp": "JPY",
		".ca": "CAD", ".au": "AUD", ".com.au": "AUD",
	}

	for tld, code := range tldCurrencies {
		if strings.HasSuffix(domain, tld) {
			return code
		}
	}
	return ""
}
