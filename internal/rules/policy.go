package rules

import (
	"strings"

	"github.com/HerbHall/byggekatalog/internal/facet"
	"github.com/HerbHall/byggekatalog/internal/specparse"
	"github.com/HerbHall/byggekatalog/pkg/models"
)

// Strategy names a comparison between a product's spec value and a requested
// facet value.
type Strategy string

const (
	// StrategyContextFireClass compares against the fire class that applies
	// in the selected usage context. Exact match.
	StrategyContextFireClass Strategy = "context-fire-class"
	// StrategyMinimumLeadingInt requires the product's leading integer to be
	// at least the requested one.
	StrategyMinimumLeadingInt Strategy = "minimum-leading-int"
	// StrategyMinimumDigits requires the product's digit value (mm) to be at
	// least the requested one.
	StrategyMinimumDigits Strategy = "minimum-digits"
	// StrategySpanSize matches any listed span by embedded number, falling
	// back to case-insensitive text.
	StrategySpanSize Strategy = "span-size"
	// StrategyFireResistance lets the non-combustible class satisfy a request
	// for the combustible one, never the reverse.
	StrategyFireResistance Strategy = "fire-resistance"
	// StrategySetMembership is case-insensitive membership for lists and
	// case-insensitive equality for scalars.
	StrategySetMembership Strategy = "set-membership"
)

// Policy is how one facet is compared against a product.
type Policy struct {
	SpecKey  string
	Strategy Strategy
}

// policies maps facet keys whose comparison is not plain set membership
// against a spec of the same name. Adding a facet is an entry here.
var policies = map[string]Policy{
	facet.KeyFireClass:       {Strategy: StrategyContextFireClass},
	facet.KeyFireRequirement: {SpecKey: models.SpecFireRequirement, Strategy: StrategyMinimumLeadingInt},
	facet.KeyMinLength:       {SpecKey: models.SpecMaxLength, Strategy: StrategyMinimumDigits},
	facet.KeySpan:            {SpecKey: models.SpecSpan, Strategy: StrategySpanSize},
	facet.KeyFireResistance:  {SpecKey: models.SpecFireResistance, Strategy: StrategyFireResistance},
	facet.KeyAirborneSound:   {SpecKey: models.SpecAirborneSound, Strategy: StrategySetMembership},
	facet.KeyImpactSound:     {SpecKey: models.SpecImpactSound, Strategy: StrategySetMembership},
}

// PolicyFor returns the comparison policy for a facet key.
func PolicyFor(key string) Policy {
	if p, ok := policies[key]; ok {
		return p
	}
	return Policy{SpecKey: key, Strategy: StrategySetMembership}
}

type compareFunc func(have models.SpecValue, want string) bool

var comparers = map[Strategy]compareFunc{
	StrategyContextFireClass:  exactScalar,
	StrategyMinimumLeadingInt: atLeast(specparse.LeadingInt),
	StrategyMinimumDigits:     atLeast(specparse.Digits),
	StrategySpanSize:          spanMatches,
	StrategyFireResistance:    fireResistanceSatisfies,
	StrategySetMembership:     memberOrEqual,
}

// matchFacet applies the facet's policy. A product lacking the relevant
// value, or carrying an empty one, is not constrained by the facet.
func matchFacet(p models.Product, c facet.Criteria, key, want string) bool {
	if want == facet.All {
		return true
	}
	pol := PolicyFor(key)

	var have models.SpecValue
	if pol.Strategy == StrategyContextFireClass {
		usage, _ := c.Usage()
		fc, ok := p.FireClassFor(usage)
		if !ok {
			return true
		}
		have = models.Scalar(fc)
	} else {
		v, ok := p.Specs.Get(pol.SpecKey)
		if !ok || v.IsEmpty() {
			return true
		}
		have = v
	}

	cmp, ok := comparers[pol.Strategy]
	if !ok {
		cmp = memberOrEqual
	}
	return cmp(have, want)
}

func exactScalar(have models.SpecValue, want string) bool {
	return have.String() == want
}

// atLeast builds a minimum-requirement comparison. An unparsable product
// value is a non-match.
func atLeast(extract func(string) (int, bool)) compareFunc {
	return func(have models.SpecValue, want string) bool {
		w, ok := extract(want)
		if !ok {
			return false
		}
		for _, item := range have.Items() {
			if h, ok := extract(item); ok && h >= w {
				return true
			}
		}
		return false
	}
}

func spanMatches(have models.SpecValue, want string) bool {
	w, wantOK := specparse.Measure(want)
	for _, item := range have.Items() {
		if wantOK {
			if h, ok := specparse.Measure(item); ok {
				if h == w {
					return true
				}
				continue
			}
		}
		if strings.EqualFold(strings.TrimSpace(item), strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}

func fireResistanceSatisfies(have models.SpecValue, want string) bool {
	for _, item := range have.Items() {
		item = strings.TrimSpace(item)
		if strings.EqualFold(item, want) {
			return true
		}
		if strings.EqualFold(item, models.FireResistanceNonCombustible) &&
			strings.EqualFold(want, models.FireResistanceCombustible) {
			return true
		}
	}
	return false
}

func memberOrEqual(have models.SpecValue, want string) bool {
	if have.IsList() {
		for _, item := range have.Items() {
			if strings.EqualFold(item, want) {
				return true
			}
		}
		return false
	}
	return strings.EqualFold(have.String(), want)
}
