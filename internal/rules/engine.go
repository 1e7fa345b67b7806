// Package rules decides which catalog products are eligible for a set of
// selected facets. Besides plain facet matching it enforces the building
// regulation constraints between usage, fire class, fire resistance, height
// and section area, and it computes the compliance warnings shown on cards
// and in the detail view.
package rules

import (
	"strings"

	"github.com/HerbHall/byggekatalog/internal/facet"
	"github.com/HerbHall/byggekatalog/internal/specparse"
	"github.com/HerbHall/byggekatalog/pkg/models"
)

// Names of the rule that rejected a product, reported in Result.FailedRule.
const (
	RuleUsageRequired        = "usage-required"
	RuleUsageMismatch        = "usage-mismatch"
	RuleMultiStoryFireClass  = "multi-story-fire-class"
	RuleHeightFireResistance = "height-fire-resistance"
	RuleLargeSection         = "large-section"
	RuleFloorRange           = "floor-range"
	facetRulePrefix          = "facet:"
)

// Regulatory thresholds.
const (
	LargeSectionArea     = 600.0
	MaxCombustibleHeight = 12.0
	LowestFireClass      = "BK1"
	SecondFireClass      = "BK2"
)

// Advisory messages for the regulatory rules.
const (
	AdvisoryMultiStoryFireClass  = "Etagebolig skal være minimum brandklasse 2"
	AdvisoryHeightFireResistance = "Ved brandklasse 2 og øverste etage over 12 meter kræves A2-s1-d0"
	AdvisoryLargeSection         = "Over 600 m² kræver brandsektionering eller et ikke-brændbart materiale (A2-s1-d0)"
)

// Result is the outcome of evaluating one product.
type Result struct {
	Eligible   bool      `json:"eligible"`
	Warnings   []Warning `json:"warnings,omitempty"`
	Advisory   string    `json:"advisory,omitempty"`
	FailedRule string    `json:"failed_rule,omitempty"`
}

// Evaluate decides whether p is eligible under c. It is a pure function of
// its inputs and never fails: missing or malformed spec values do not
// constrain the product. Rules run in order and the first failure decides.
func Evaluate(p models.Product, c facet.Criteria) Result {
	usage, ok := c.Usage()
	if !ok {
		return reject(RuleUsageRequired, "")
	}

	if !p.HasUsage(usage) {
		return reject(RuleUsageMismatch, "")
	}

	fireClass, _ := c.Get(facet.KeyFireClass)

	if usage == models.UsageMultiStory && fireClass == LowestFireClass {
		return reject(RuleMultiStoryFireClass, AdvisoryMultiStoryFireClass)
	}

	if fireClass == SecondFireClass && combustibleRequested(c) && heightAbove(c, MaxCombustibleHeight) {
		return reject(RuleHeightFireResistance, AdvisoryHeightFireResistance)
	}

	if areaAbove(c, LargeSectionArea) && (isCombustible(p) || p.WarnIfUsedForLargeSections) {
		return reject(RuleLargeSection, AdvisoryLargeSection)
	}

	if !floorWithinBounds(p, c) {
		return reject(RuleFloorRange, "")
	}

	for _, key := range c.Keys() {
		switch key {
		case facet.KeyUsage, facet.KeyFloor:
			continue
		}
		want, _ := c.Get(key)
		if !matchFacet(p, c, key, want) {
			return reject(facetRulePrefix+key, "")
		}
	}

	return Result{Eligible: true, Warnings: Warnings(p, c)}
}

func reject(rule, advisory string) Result {
	return Result{FailedRule: rule, Advisory: advisory}
}

// floorWithinBounds checks the requested floor count against the product's
// [minEtager, maxEtager]. An unparsable request does not constrain.
func floorWithinBounds(p models.Product, c facet.Criteria) bool {
	raw, ok := c.Get(facet.KeyFloor)
	if !ok {
		return true
	}
	floor, ok := specparse.Int(raw)
	if !ok {
		return true
	}
	lo, hi := p.FloorBounds()
	return lo <= floor && floor <= hi
}

func combustibleRequested(c facet.Criteria) bool {
	v, ok := c.Get(facet.KeyFireResistance)
	return ok && strings.EqualFold(strings.TrimSpace(v), models.FireResistanceCombustible)
}

// heightAbove reports whether the selected top-floor height band reads
// "under N meter" with N above limit.
func heightAbove(c facet.Criteria, limit float64) bool {
	v, ok := c.Get(facet.KeyHeightBand)
	if !ok {
		return false
	}
	n, ok := specparse.UnderMeters(v)
	return ok && n > limit
}

func areaAbove(c facet.Criteria, limit float64) bool {
	m2, ok := c.Area()
	return ok && m2 > limit
}

func isCombustible(p models.Product) bool {
	v, ok := p.Specs.Get(models.SpecFireResistance)
	if !ok {
		return false
	}
	for _, item := range v.Items() {
		if strings.EqualFold(strings.TrimSpace(item), models.FireResistanceCombustible) {
			return true
		}
	}
	return false
}

// Match is an eligible product together with its warnings.
type Match struct {
	Product  models.Product
	Warnings []Warning
}

// FilterResult is the outcome of evaluating a whole catalog.
type FilterResult struct {
	Matches  []Match
	Advisory string
	// Rejections counts rejected products per failed rule.
	Rejections map[string]int
}

// Filter evaluates every product and keeps the eligible ones in catalog
// order. The first advisory message encountered is reported once.
func Filter(products []models.Product, c facet.Criteria) FilterResult {
	res := FilterResult{
		Matches:    make([]Match, 0, len(products)),
		Rejections: make(map[string]int),
	}
	for i := range products {
		r := Evaluate(products[i], c)
		if r.Eligible {
			res.Matches = append(res.Matches, Match{Product: products[i], Warnings: r.Warnings})
			continue
		}
		res.Rejections[r.FailedRule]++
		if res.Advisory == "" && r.Advisory != "" {
			res.Advisory = r.Advisory
		}
	}
	return res
}
