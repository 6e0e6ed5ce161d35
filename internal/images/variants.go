package images

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/maltedev/universal-product-parser/internal/normalize"
)

// VariantRule describes a domain's image numbering convention, so one
// known-good image URL can be expanded into its siblings.
type VariantRule struct {
	// Pattern must capture (prefix)(index)(suffix).
	Pattern *regexp.Regexp
	// Max is the highest index generated.
	Max int
}

var variantRules = map[string]*VariantRule{
	// Common storefront convention: ..._1.jpg, ..._2.jpg, ...
	"*": {
		Pattern: regexp.MustCompile(`^(.+[_-])(\d{1,2})(\.(?:jpe?g|png|webp))$`),
		Max:     6,
	},
}

// RegisterVariantRule installs a numbering rule for a domain.
func RegisterVariantRule(domain string, rule *VariantRule) {
	variantRules[domain] = rule
}

func ruleFor(domain string) *VariantRule {
	if rule, ok := variantRules[domain]; ok {
		return rule
	}
	return variantRules["*"]
}

// generateVariants mechanically expands one known-good image into its
// numbered siblings per the domain's rule. The seed itself is not
// included.
func generateVariants(domain, seed string) []string {
	rule := ruleFor(domain)
	if rule == nil || seed == "" {
		return nil
	}

	m := rule.Pattern.FindStringSubmatch(seed)
	if m == nil {
		return nil
	}

	seedIndex, err := strconv.Atoi(m[2])
	if err != nil {
		return nil
	}

	var variants []string
	for i := 1; i <= rule.Max; i++ {
		if i == seedIndex {
			continue
		}
		variants = append(variants, fmt.Sprintf("%s%d%s", m[1], i, m[3]))
	}

	return variants
}

// heuristicVariants derives larger or additional candidates from the
// meta image without any domain knowledge: upgraded size parameters and
// stripped crop suffixes.
func heuristicVariants(seed string) []string {
	if seed == "" {
		return nil
	}

	var variants []string

	if upgraded := normalize.UpgradeSizeParams(seed); upgraded != seed {
		variants = append(variants, upgraded)
	}

	if stripped := cropSuffixPattern.ReplaceAllString(seed, "$2"); stripped != seed {
		variants = append(variants, stripped)
	}

	return variants
}

// Crop/size suffixes like _600x600, -thumb, _sq before the extension.
var cropSuffixPattern = regexp.MustCompile(`(_\d{2,4}x\d{2,4}|[_-]thumb(?:nail)?|_sq|_crop)(\.(?:jpe?g|png|webp))`)
