package normalize

import (
	"net/url"
	"strings"
)

// Domain extracts the registrable domain used as the key for strategy
// sets, learned patterns and domain selector tables.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")

	// Collapse retail subdomains (shop.example.com -> example.com) while
	// keeping two-level country TLDs intact (example.co.uk).
	parts := strings.Split(host, ".")
	if len(parts) > 2 {
		tail := strings.Join(parts[len(parts)-2:], ".")
		if secondLevelTLDs[tail] && len(parts) > 3 {
			return strings.Join(parts[len(parts)-3:], ".")
		}
		if secondLevelTLDs[tail] {
			return host
		}
		return tail
	}

	return host
}

var secondLevelTLDs = map[string]bool{
	"co.uk":  true,
	"com.au": true,
	"co.jp":  true,
	"com.br": true,
	"co.nz":  true,
}
