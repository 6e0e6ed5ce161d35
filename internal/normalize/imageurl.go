package normalize

import (
	"net/url"
	"regexp"
	"strings"
)

var imageExtPattern = regexp.MustCompile(`(?i)\.(jpe?g|png|webp|gif|avif)(\?|$)`)

// LooksLikeImageURL reports whether a URL plausibly points at an image.
// CDN URLs without an extension pass when they carry a format parameter.
func LooksLikeImageURL(raw string) bool {
	if raw == "" {
		return false
	}
	if imageExtPattern.MatchString(raw) {
		return true
	}
	lower := strings.ToLower(raw)
	return strings.Contains(lower, "format=jpg") || strings.Contains(lower, "format=webp") ||
		strings.Contains(lower, "/image/") || strings.Contains(lower, "images.")
}

// AbsoluteImageURL resolves an image reference against the page URL and
// upgrades protocol-relative references to https. Returns "" for
// references that cannot become absolute http(s) URLs.
func AbsoluteImageURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return ""
	}

	if strings.HasPrefix(ref, "//") {
		ref = "https:" + ref
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return ""
	}

	u.Fragment = ""
	return u.String()
}

// canonicalImageKey is the dedup key for an image URL: scheme-insensitive
// so a protocol-relative duplicate of an https URL collapses to one entry.
func canonicalImageKey(raw string) string {
	key := strings.ToLower(raw)
	key = strings.TrimPrefix(key, "https://")
	key = strings.TrimPrefix(key, "http://")
	key = strings.TrimPrefix(key, "//")
	return strings.TrimSuffix(key, "/")
}

// DedupImages removes duplicate canonical URLs preserving first-seen
// order and caps the list at max (0 means no cap).
func DedupImages(urls []string, max int) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))

	for _, u := range urls {
		if u == "" {
			continue
		}
		key := canonicalImageKey(u)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, u)
		if max > 0 && len(out) >= max {
			break
		}
	}

	return out
}

// domainImageTransform rewrites a validated image URL into the variant a
// CDN serves at the highest quality.
type domainImageTransform struct {
	match   *regexp.Regexp
	rewrite func(string) string
}

var domainImageTransforms = map[string][]domainImageTransform{
	// Shopify CDNs encode the variant size as a filename suffix.
	"cdn.shopify.com": {{
		match: regexp.MustCompile(`_(pico|icon|thumb|small|compact|medium|large|grande)(\.[a-z]+)`),
		rewrite: func(u string) string {
			return regexp.MustCompile(`_(pico|icon|thumb|small|compact|medium|large|grande)(\.[a-z]+)`).
				ReplaceAllString(u, "_2048x2048$2")
		},
	}},
	// Amazon media hosts pack crop/size modifiers between dots.
	"media-amazon.com": {{
		match: regexp.MustCompile(`\._[^.]+_\.`),
		rewrite: func(u string) string {
			return regexp.MustCompile(`\._[^.]+_\.`).ReplaceAllString(u, ".")
		},
	}},
}

// ApplyDomainTransforms applies registered CDN rewrites for the host of
// each URL. URLs on hosts without a registered transform pass through.
func ApplyDomainTransforms(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil {
			out = append(out, raw)
			continue
		}
		host := strings.TrimPrefix(u.Host, "www.")
		transformed := raw
		for registered, transforms := range domainImageTransforms {
			if !strings.HasSuffix(host, registered) {
				continue
			}
			for _, t := range transforms {
				if t.match.MatchString(transformed) {
					transformed = t.rewrite(transformed)
				}
			}
		}
		out = append(out, transformed)
	}
	return out
}

// UpgradeSizeParams rewrites common width/size query parameters to a
// large value so the CDN returns the biggest variant it has.
func UpgradeSizeParams(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	q := u.Query()
	changed := false
	for _, param := range []string{"width", "w", "size", "sw"} {
		if q.Has(param) {
			q.Set(param, "1920")
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}
