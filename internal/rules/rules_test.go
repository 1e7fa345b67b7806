package rules

import (
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/byggekatalog/internal/facet"
	"github.com/HerbHall/byggekatalog/internal/testutil"
	pkgcatalog "github.com/HerbHall/byggekatalog/pkg/catalog"
	"github.com/HerbHall/byggekatalog/pkg/models"
)

func criteria(values map[string]string) facet.Criteria {
	return facet.NewCriteria(values)
}

// referenceProduct is the multi-story element used in the worked scenarios.
func referenceProduct() models.Product {
	return testutil.NewProduct(
		testutil.WithUsage(models.UsageMultiStory),
		testutil.WithSpec(models.SpecMinFloors, "2"),
		testutil.WithSpec(models.SpecMaxFloors, "8"),
		testutil.WithSpec(models.SpecFireResistance, models.FireResistanceNonCombustible),
		testutil.WithFireClass(models.UsageMultiStory, "BK2"),
	)
}

func TestEvaluate_Scenarios(t *testing.T) {
	t.Run("floor and fire resistance satisfied", func(t *testing.T) {
		r := Evaluate(referenceProduct(), criteria(map[string]string{
			facet.KeyUsage:          models.UsageMultiStory,
			facet.KeyFloor:          "5",
			facet.KeyFireResistance: models.FireResistanceCombustible,
		}))
		assert.True(t, r.Eligible)
		assert.Empty(t, r.Advisory)
		assert.Empty(t, r.FailedRule)
	})

	t.Run("lowest fire class for multi-story", func(t *testing.T) {
		r := Evaluate(referenceProduct(), criteria(map[string]string{
			facet.KeyUsage:     models.UsageMultiStory,
			facet.KeyFireClass: "BK1",
		}))
		assert.False(t, r.Eligible)
		assert.Equal(t, "Etagebolig skal være minimum brandklasse 2", r.Advisory)
		assert.Equal(t, RuleMultiStoryFireClass, r.FailedRule)
	})

	t.Run("large area with combustible product", func(t *testing.T) {
		p := testutil.NewProduct(
			testutil.WithUsage(models.UsageMultiStory),
			testutil.WithSpec(models.SpecFireResistance, models.FireResistanceCombustible),
		)
		c := criteria(map[string]string{facet.KeyUsage: models.UsageMultiStory}).WithArea(700)

		r := Evaluate(p, c)
		assert.False(t, r.Eligible)
		assert.Equal(t, RuleLargeSection, r.FailedRule)
		assert.Equal(t, AdvisoryLargeSection, r.Advisory)

		ws := Warnings(p, c)
		require.Len(t, ws, 1)
		assert.Equal(t, WarningLargeSection, ws[0].Code)
		assert.Contains(t, ws[0].Long, "BR18")
		assert.Contains(t, ws[0].Long, "700 m²")
	})
}

func TestEvaluate_GatingWithoutUsage(t *testing.T) {
	products := []models.Product{
		referenceProduct(),
		testutil.NewProduct(),
		testutil.NewProduct(testutil.WithoutSpecs()),
	}
	criteriaSet := []facet.Criteria{
		criteria(nil),
		criteria(map[string]string{facet.KeyFloor: "2"}),
		criteria(map[string]string{facet.KeyUsage: facet.All, facet.KeyFireClass: "BK2"}),
		criteria(nil).WithArea(100),
	}

	for _, p := range products {
		for _, c := range criteriaSet {
			r := Evaluate(p, c)
			assert.False(t, r.Eligible, "product %s, criteria %v", p.ID, c.Map())
			assert.Equal(t, RuleUsageRequired, r.FailedRule)
		}
	}
}

func TestEvaluate_UsageContainment(t *testing.T) {
	single := testutil.NewProduct(testutil.WithUsage(models.UsageSingleFamily))

	tests := []struct {
		name  string
		usage string
		want  bool
	}{
		{name: "contained", usage: models.UsageSingleFamily, want: true},
		{name: "other usage", usage: models.UsageMultiStory, want: false},
		{name: "unknown tag", usage: "sommerhus", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Evaluate(single, criteria(map[string]string{facet.KeyUsage: tt.usage}))
			assert.Equal(t, tt.want, r.Eligible)
			if !tt.want {
				assert.Equal(t, RuleUsageMismatch, r.FailedRule)
			}
		})
	}
}

func TestEvaluate_FloorBounds(t *testing.T) {
	p := testutil.NewProduct(
		testutil.WithSpec(models.SpecMinFloors, "2"),
		testutil.WithSpec(models.SpecMaxFloors, "5"),
	)
	for floor := 1; floor <= 8; floor++ {
		c := criteria(map[string]string{
			facet.KeyUsage: models.UsageMultiStory,
			facet.KeyFloor: strconv.Itoa(floor),
		})
		want := floor >= 2 && floor <= 5
		assert.Equal(t, want, Evaluate(p, c).Eligible, "floor %d", floor)
	}
}

func TestEvaluate_FloorDefaults(t *testing.T) {
	p := testutil.NewProduct()
	base := map[string]string{facet.KeyUsage: models.UsageMultiStory}

	for _, tt := range []struct {
		floor string
		want  bool
	}{
		{floor: "1", want: true},
		{floor: "8", want: true},
		{floor: "9", want: false},
		{floor: "mange", want: true},
	} {
		c := criteria(base).With(facet.KeyFloor, tt.floor)
		assert.Equal(t, tt.want, Evaluate(p, c).Eligible, "floor %q", tt.floor)
	}
}

func TestEvaluate_InvertedFloorBoundsMatchNothing(t *testing.T) {
	p := testutil.NewProduct(
		testutil.WithSpec(models.SpecMinFloors, "6"),
		testutil.WithSpec(models.SpecMaxFloors, "2"),
	)
	for floor := 1; floor <= 8; floor++ {
		c := criteria(map[string]string{facet.KeyUsage: models.UsageMultiStory, facet.KeyFloor: strconv.Itoa(floor)})
		assert.False(t, Evaluate(p, c).Eligible, "floor %d", floor)
	}
}

func TestEvaluate_FireResistanceAsymmetry(t *testing.T) {
	nonCombustible := testutil.NewProduct(testutil.WithSpec(models.SpecFireResistance, models.FireResistanceNonCombustible))
	combustible := testutil.NewProduct(testutil.WithSpec(models.SpecFireResistance, models.FireResistanceCombustible))

	tests := []struct {
		name    string
		product models.Product
		want    string
		match   bool
	}{
		{name: "A2 satisfies D1 request", product: nonCombustible, want: models.FireResistanceCombustible, match: true},
		{name: "A2 satisfies A2 request", product: nonCombustible, want: models.FireResistanceNonCombustible, match: true},
		{name: "D1 does not satisfy A2 request", product: combustible, want: models.FireResistanceNonCombustible, match: false},
		{name: "D1 satisfies D1 request", product: combustible, want: models.FireResistanceCombustible, match: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := criteria(map[string]string{
				facet.KeyUsage:          models.UsageSingleFamily,
				facet.KeyFireResistance: tt.want,
			})
			assert.Equal(t, tt.match, Evaluate(tt.product, c).Eligible)
		})
	}
}

func TestEvaluate_MinimumComparisons(t *testing.T) {
	tests := []struct {
		name    string
		specKey string
		have    string
		facet   string
		want    string
		match   bool
	}{
		{name: "fire requirement greater", specKey: models.SpecFireRequirement, have: "REI 120", facet: facet.KeyFireRequirement, want: "REI 60", match: true},
		{name: "fire requirement equal", specKey: models.SpecFireRequirement, have: "REI 60", facet: facet.KeyFireRequirement, want: "REI 60", match: true},
		{name: "fire requirement less", specKey: models.SpecFireRequirement, have: "REI 30", facet: facet.KeyFireRequirement, want: "REI 60", match: false},
		{name: "fire requirement unparsable product", specKey: models.SpecFireRequirement, have: "se datablad", facet: facet.KeyFireRequirement, want: "REI 60", match: false},
		{name: "length greater", specKey: models.SpecMaxLength, have: "12000 mm", facet: facet.KeyMinLength, want: "7200", match: true},
		{name: "length equal", specKey: models.SpecMaxLength, have: "7200 mm", facet: facet.KeyMinLength, want: "7200", match: true},
		{name: "length less", specKey: models.SpecMaxLength, have: "6000 mm", facet: facet.KeyMinLength, want: "7200", match: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testutil.NewProduct(testutil.WithSpec(tt.specKey, tt.have))
			c := criteria(map[string]string{
				facet.KeyUsage: models.UsageSingleFamily,
				tt.facet:       tt.want,
			})
			r := Evaluate(p, c)
			assert.Equal(t, tt.match, r.Eligible)
			if !tt.match {
				assert.Equal(t, "facet:"+tt.facet, r.FailedRule)
			}
		})
	}
}

func TestEvaluate_Span(t *testing.T) {
	listed := testutil.NewProduct(testutil.WithSpecList(models.SpecSpan, "CC300mm", "CC600mm"))
	scalar := testutil.NewProduct(testutil.WithSpec(models.SpecSpan, "CC600mm"))
	textual := testutil.NewProduct(testutil.WithSpec(models.SpecSpan, "Efter aftale"))

	tests := []struct {
		name    string
		product models.Product
		want    string
		match   bool
	}{
		{name: "list contains", product: listed, want: "CC300mm", match: true},
		{name: "list by number", product: listed, want: "600", match: true},
		{name: "list misses", product: listed, want: "CC900mm", match: false},
		{name: "scalar equal", product: scalar, want: "CC600mm", match: true},
		{name: "scalar differs", product: scalar, want: "CC300mm", match: false},
		{name: "text fallback", product: textual, want: "efter aftale", match: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := criteria(map[string]string{facet.KeyUsage: models.UsageSingleFamily, facet.KeySpan: tt.want})
			assert.Equal(t, tt.match, Evaluate(tt.product, c).Eligible)
		})
	}
}

func TestEvaluate_AcousticRemap(t *testing.T) {
	p := testutil.NewProduct(
		testutil.WithSpec(models.SpecAirborneSound, "R'w 55 dB"),
		testutil.WithSpecList(models.SpecImpactSound, "L'n,w 53 dB", "L'n,w 58 dB"),
	)
	base := map[string]string{facet.KeyUsage: models.UsageMultiStory}

	assert.True(t, Evaluate(p, criteria(base).With(facet.KeyAirborneSound, "r'w 55 db")).Eligible)
	assert.False(t, Evaluate(p, criteria(base).With(facet.KeyAirborneSound, "R'w 52 dB")).Eligible)
	assert.True(t, Evaluate(p, criteria(base).With(facet.KeyImpactSound, "L'n,w 58 dB")).Eligible)
	assert.False(t, Evaluate(p, criteria(base).With(facet.KeyImpactSound, "L'n,w 48 dB")).Eligible)
}

func TestEvaluate_ContextFireClass(t *testing.T) {
	p := testutil.NewProduct(
		testutil.WithFireClass(models.UsageSingleFamily, "BK1"),
		testutil.WithFireClass(models.UsageMultiStory, "BK3"),
	)

	assert.True(t, Evaluate(p, criteria(map[string]string{
		facet.KeyUsage: models.UsageMultiStory, facet.KeyFireClass: "BK3",
	})).Eligible)
	assert.False(t, Evaluate(p, criteria(map[string]string{
		facet.KeyUsage: models.UsageSingleFamily, facet.KeyFireClass: "BK3",
	})).Eligible)
	assert.True(t, Evaluate(p, criteria(map[string]string{
		facet.KeyUsage: models.UsageSingleFamily, facet.KeyFireClass: "BK1",
	})).Eligible)
	assert.True(t, Evaluate(p, criteria(map[string]string{
		facet.KeyUsage: models.UsageMultiStory, facet.KeyFireClass: facet.All,
	})).Eligible)
}

func TestEvaluate_HeightFireResistanceRule(t *testing.T) {
	p := testutil.NewProduct()
	c := criteria(map[string]string{
		facet.KeyUsage:          models.UsageMultiStory,
		facet.KeyFireClass:      "BK2",
		facet.KeyFireResistance: models.FireResistanceCombustible,
		facet.KeyHeightBand:     "Under 22 meter",
	})

	r := Evaluate(p, c)
	assert.False(t, r.Eligible)
	assert.Equal(t, RuleHeightFireResistance, r.FailedRule)
	assert.Equal(t, AdvisoryHeightFireResistance, r.Advisory)

	low := c.With(facet.KeyHeightBand, "Under 5,1 meter")
	assert.True(t, Evaluate(p, low).Eligible)

	noncomb := c.With(facet.KeyFireResistance, models.FireResistanceNonCombustible)
	assert.True(t, Evaluate(p, noncomb).Eligible)
}

func TestEvaluate_LargeSectionFlag(t *testing.T) {
	flagged := testutil.NewProduct(testutil.WithLargeSectionWarning())
	plain := testutil.NewProduct()
	c := criteria(map[string]string{facet.KeyUsage: models.UsageSingleFamily}).WithArea(601)

	assert.False(t, Evaluate(flagged, c).Eligible)
	assert.True(t, Evaluate(plain, c).Eligible)

	atLimit := criteria(map[string]string{facet.KeyUsage: models.UsageSingleFamily}).WithArea(600)
	assert.True(t, Evaluate(flagged, atLimit).Eligible)
}

func TestEvaluate_MissingSpecsDoNotConstrain(t *testing.T) {
	p := testutil.NewProduct(testutil.WithoutSpecs())
	c := criteria(map[string]string{
		facet.KeyUsage:           models.UsageMultiStory,
		facet.KeyFloor:           "4",
		facet.KeyFireRequirement: "REI 60",
		facet.KeyFireResistance:  models.FireResistanceNonCombustible,
		facet.KeyFireSection:     "Over 600 m²",
		facet.KeyMinLength:       "7200",
		facet.KeySpan:            "CC600mm",
		facet.KeyAirborneSound:   "R'w 55 dB",
		facet.KeyImpactSound:     "L'n,w 53 dB",
		"ukendtFacet":            "noget",
	}).WithArea(800)

	r := Evaluate(p, c)
	assert.True(t, r.Eligible, "failed rule %q", r.FailedRule)
	assert.Empty(t, r.Warnings)

	bare := models.Product{ID: "bare", Anvendelse: []string{models.UsageMultiStory}}
	assert.NotPanics(t, func() { Evaluate(bare, c) })
	assert.True(t, Evaluate(bare, c).Eligible)
}

func TestEvaluate_DoesNotMutateCriteria(t *testing.T) {
	c := criteria(map[string]string{
		facet.KeyUsage: models.UsageMultiStory,
		facet.KeyFloor: "3",
	}).WithArea(200)
	before := c.Map()

	Evaluate(referenceProduct(), c)
	assert.Equal(t, before, c.Map())
}

func TestWarnings(t *testing.T) {
	combustible := testutil.NewProduct(testutil.WithSpec(models.SpecFireResistance, models.FireResistanceCombustible))
	multi := map[string]string{facet.KeyUsage: models.UsageMultiStory}

	t.Run("height band above limit", func(t *testing.T) {
		c := criteria(multi).With(facet.KeyHeightBand, "Under 22 meter")
		ws := Warnings(combustible, c)
		require.Len(t, ws, 1)
		assert.Equal(t, WarningHeight, ws[0].Code)
		assert.Equal(t, []string{ws[0].Short}, ShortWarnings(ws))
		assert.Equal(t, []string{ws[0].Long}, LongWarnings(ws))
	})

	t.Run("area and height together", func(t *testing.T) {
		c := criteria(multi).With(facet.KeyHeightBand, "Under 22 meter").WithArea(900)
		ws := Warnings(combustible, c)
		require.Len(t, ws, 2)
		assert.Equal(t, WarningLargeSection, ws[0].Code)
		assert.Equal(t, WarningHeight, ws[1].Code)
	})

	t.Run("single family has no warnings", func(t *testing.T) {
		c := criteria(map[string]string{facet.KeyUsage: models.UsageSingleFamily}).
			With(facet.KeyHeightBand, "Under 22 meter").WithArea(900)
		assert.Empty(t, Warnings(combustible, c))
	})

	t.Run("non-combustible has no warnings", func(t *testing.T) {
		c := criteria(multi).With(facet.KeyHeightBand, "Under 22 meter").WithArea(900)
		assert.Empty(t, Warnings(testutil.NewProduct(), c))
	})

	t.Run("eligible result carries warnings", func(t *testing.T) {
		c := criteria(multi).With(facet.KeyHeightBand, "Under 22 meter")
		r := Evaluate(combustible, c)
		require.True(t, r.Eligible)
		require.Len(t, r.Warnings, 1)
		assert.Equal(t, WarningHeight, r.Warnings[0].Code)
	})
}

func TestFilter(t *testing.T) {
	a := testutil.NewProduct(testutil.WithID("a"), testutil.WithUsage(models.UsageMultiStory))
	b := testutil.NewProduct(testutil.WithID("b"), testutil.WithUsage(models.UsageSingleFamily))
	c := testutil.NewProduct(testutil.WithID("c"), testutil.WithUsage(models.UsageMultiStory),
		testutil.WithSpec(models.SpecMaxFloors, "3"))
	d := testutil.NewProduct(testutil.WithID("d"))

	res := Filter([]models.Product{a, b, c, d}, criteria(map[string]string{
		facet.KeyUsage: models.UsageMultiStory,
		facet.KeyFloor: "5",
	}))

	ids := make([]string, 0, len(res.Matches))
	for _, m := range res.Matches {
		ids = append(ids, m.Product.ID)
	}
	assert.Equal(t, []string{"a", "d"}, ids)
	assert.Empty(t, res.Advisory)
	assert.Equal(t, map[string]int{RuleUsageMismatch: 1, RuleFloorRange: 1}, res.Rejections)
}

func TestFilter_ReportsAdvisoryOnce(t *testing.T) {
	products := []models.Product{testutil.NewProduct(), testutil.NewProduct(), testutil.NewProduct()}
	res := Filter(products, criteria(map[string]string{
		facet.KeyUsage:     models.UsageMultiStory,
		facet.KeyFireClass: "BK1",
	}))

	assert.Empty(t, res.Matches)
	assert.Equal(t, AdvisoryMultiStoryFireClass, res.Advisory)
	assert.Equal(t, 3, res.Rejections[RuleMultiStoryFireClass])
}

func TestPolicyFor(t *testing.T) {
	assert.Equal(t, Policy{SpecKey: models.SpecAirborneSound, Strategy: StrategySetMembership}, PolicyFor(facet.KeyAirborneSound))
	assert.Equal(t, Policy{SpecKey: models.SpecImpactSound, Strategy: StrategySetMembership}, PolicyFor(facet.KeyImpactSound))
	assert.Equal(t, StrategyMinimumLeadingInt, PolicyFor(facet.KeyFireRequirement).Strategy)
	assert.Equal(t, Policy{SpecKey: facet.KeyFireSection, Strategy: StrategySetMembership}, PolicyFor(facet.KeyFireSection))
}

func TestEvaluate_AreaFromQuery(t *testing.T) {
	surface, err := pkgcatalog.DefaultSurface()
	require.NoError(t, err)
	p := testutil.NewProduct(
		testutil.WithUsage(models.UsageMultiStory),
		testutil.WithSpec(models.SpecFireResistance, models.FireResistanceCombustible),
	)

	tests := []struct {
		m2       string
		eligible bool
	}{
		{m2: "60.5", eligible: true},
		{m2: "-700", eligible: true},
		{m2: "150", eligible: true},
		{m2: "600", eligible: true},
		{m2: "600,5", eligible: false},
		{m2: "700", eligible: false},
	}

	for _, tt := range tests {
		t.Run(tt.m2, func(t *testing.T) {
			q := url.Values{}
			q.Set(facet.KeyUsage, models.UsageMultiStory)
			q.Set(facet.KeyArea, tt.m2)
			c := facet.Extract(surface, facet.FromQuery(surface, q)).Criteria

			r := Evaluate(p, c)
			assert.Equal(t, tt.eligible, r.Eligible)
			if !tt.eligible {
				assert.Equal(t, RuleLargeSection, r.FailedRule)
			}
			if tt.eligible {
				for _, w := range Warnings(p, c) {
					assert.NotEqual(t, WarningLargeSection, w.Code)
				}
			}
		})
	}
}
