package images

import (
	"regexp"
	"strings"
)

// Best-effort regex mining of image URLs out of inline script text.
// Deliberately not a JS parser: it may under- and over-match, and the
// rest of the package treats its output as unvalidated candidates. Keep
// the interface narrow so a stricter parser can replace it wholesale.

var (
	arrayFieldPatterns = []*regexp.Regexp{
		regexp.MustCompile(`"images?"\s*:\s*\[([^\]]*)\]`),
		regexp.MustCompile(`"gallery"\s*:\s*\[([^\]]*)\]`),
		regexp.MustCompile(`"thumbnails?"\s*:\s*\[([^\]]*)\]`),
		regexp.MustCompile(`"media"\s*:\s*\[([^\]]*)\]`),
		regexp.MustCompile(`"imageUrls?"\s*:\s*\[([^\]]*)\]`),
	}

	quotedURLPattern = regexp.MustCompile(`"(https?:)?//[^"\\]+"`)
	bareImagePattern = regexp.MustCompile(`https?://[^\s"'<>\\]+?\.(?:jpe?g|png|webp|avif)(?:\?[^\s"'<>\\]*)?`)
)

// mineInlineScripts extracts image URL candidates from one script
// block's text.
func mineInlineScripts(text string) []string {
	if text == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string

	add := func(raw string) {
		raw = strings.TrimSpace(strings.Trim(raw, `"`))
		raw = strings.ReplaceAll(raw, `\/`, `/`)
		if raw == "" {
			return
		}
		if _, dup := seen[raw]; dup {
			return
		}
		seen[raw] = struct{}{}
		out = append(out, raw)
	}

	for _, pattern := range arrayFieldPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			// JSON embedded in script text often escapes slashes.
			content := strings.ReplaceAll(match[1], `\/`, `/`)
			for _, quoted := range quotedURLPattern.FindAllString(content, -1) {
				add(quoted)
			}
		}
	}

	for _, bare := range bareImagePattern.FindAllString(text, -1) {
		add(bare)
	}

	return out
}
