package models

import (
	"time"
)

// Field names shared between extractors, the merge engine and the
// pattern store.
const (
	FieldName         = "name"
	FieldPrice        = "price"
	FieldCurrency     = "currency"
	FieldBrand        = "brand"
	FieldDescription  = "description"
	FieldSKU          = "sku"
	FieldAvailability = "availability"
	FieldImages       = "images"
)

// Source identifies which evidence extractor supplied a field.
type Source string

const (
	SourceStructuredData Source = "structured_data"
	SourceLearnedPattern Source = "learned_pattern"
	SourceMetaTags       Source = "meta_tags"
	SourceDomainRules    Source = "domain_rules"
	SourceMicrodata      Source = "microdata"
	SourceGenericCSS     Source = "generic_css"
	SourceHydration      Source = "hydration_state"
	SourceSmartImages    Source = "smart_images"
)

// Strategy is the fetch strategy a result came from.
type Strategy string

const (
	StrategyDirect   Strategy = "direct"
	StrategyRendered Strategy = "rendered"
)

// ProductRecord is the final extraction result for one URL. It is
// constructed fresh per attempt and never mutated after merge.
type ProductRecord struct {
	URL          string            `json:"url"`
	Name         string            `json:"name,omitempty"`
	Price        float64           `json:"price,omitempty"`
	Currency     string            `json:"currency,omitempty"`
	Brand        string            `json:"brand,omitempty"`
	Description  string            `json:"description,omitempty"`
	SKU          string            `json:"sku,omitempty"`
	Availability string            `json:"availability,omitempty"`
	Images       []string          `json:"images,omitempty"`
	Sources      map[string]Source `json:"sources,omitempty"`
	Confidence   float64           `json:"confidence"`
	Strategy     Strategy          `json:"strategy,omitempty"`
	Error        string            `json:"error,omitempty"`
	ExtractedAt  time.Time         `json:"extracted_at"`
}

func NewProductRecord(url string) *ProductRecord {
	return &ProductRecord{
		URL:         url,
		Sources:     make(map[string]Source),
		ExtractedAt: time.Now(),
	}
}

// Failed builds the zero-confidence record returned when every strategy
// has been exhausted.
func Failed(url string, err error) *ProductRecord {
	rec := NewProductRecord(url)
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

func (p *ProductRecord) IsUsable() bool {
	return p.Error == "" && p.Confidence > 0
}

// EvidenceBundle is the sparse partial record one extractor produced.
// Source attribution and confidence are added during merge.
type EvidenceBundle struct {
	Source       Source
	Name         string
	PriceText    string
	Price        float64
	PriceParsed  bool
	Currency     string
	Brand        string
	Description  string
	SKU          string
	Availability string
	Images       []string

	// Selectors that produced each scalar field, when the extractor
	// knows them. Feeds pattern learning.
	Selectors map[string]string
}

func NewEvidenceBundle(source Source) *EvidenceBundle {
	return &EvidenceBundle{
		Source:    source,
		Selectors: make(map[string]string),
	}
}

// IsEmpty reports whether the extractor found nothing at all.
func (b *EvidenceBundle) IsEmpty() bool {
	return b.Name == "" && b.PriceText == "" && !b.PriceParsed &&
		b.Currency == "" && b.Brand == "" && b.Description == "" &&
		b.SKU == "" && b.Availability == "" && len(b.Images) == 0
}

// StrategyMetrics counts attempts and successes for one fetch strategy.
type StrategyMetrics struct {
	Attempts  int64 `json:"attempts"`
	Successes int64 `json:"successes"`
}

// Metrics is a point-in-time snapshot of engine counters.
type Metrics struct {
	Attempts   int64                        `json:"attempts"`
	Successes  int64                        `json:"successes"`
	Failures   int64                        `json:"failures"`
	CacheHits  int64                        `json:"cache_hits"`
	ByStrategy map[Strategy]StrategyMetrics `json:"by_strategy"`
}
