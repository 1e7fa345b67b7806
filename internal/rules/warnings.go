package rules

import (
	"fmt"

	"github.com/HerbHall/byggekatalog/internal/facet"
	"github.com/HerbHall/byggekatalog/pkg/models"
)

// Warning codes.
const (
	WarningLargeSection = "large-section"
	WarningHeight       = "height"
)

// Warning is a compliance note attached to a product. Short is shown on the
// product card, Long in the detail view. Both come from the same condition.
type Warning struct {
	Code  string `json:"code"`
	Short string `json:"short"`
	Long  string `json:"long"`
}

// Warnings computes the compliance warnings for p under c. Warnings apply to
// multi-story residential use only and never affect eligibility.
func Warnings(p models.Product, c facet.Criteria) []Warning {
	usage, _ := c.Usage()
	if usage != models.UsageMultiStory {
		return nil
	}

	var out []Warning
	combustible := isCombustible(p)

	if m2, ok := c.Area(); ok && m2 > LargeSectionArea && (combustible || p.WarnIfUsedForLargeSections) {
		reason := "materialet er klassificeret " + models.FireResistanceCombustible
		if !combustible {
			reason = "produktet er markeret som uegnet til store brandsektioner"
		}
		out = append(out, Warning{
			Code:  WarningLargeSection,
			Short: fmt.Sprintf("Kræver brandsektionering over %.0f m²", LargeSectionArea),
			Long: fmt.Sprintf(
				"Bygningsreglementet BR18 §§ 82-158 og Eksempelsamling om brandsikring af byggeri: "+
					"etageboliger med et areal over %.0f m² (angivet: %.0f m²) skal opdeles i brandsektioner, "+
					"når %s. Alternativt skal der anvendes materialer i klasse %s.",
				LargeSectionArea, m2, reason, models.FireResistanceNonCombustible),
		})
	}

	if combustible && heightAbove(c, MaxCombustibleHeight) {
		band, _ := c.Get(facet.KeyHeightBand)
		out = append(out, Warning{
			Code:  WarningHeight,
			Short: fmt.Sprintf("Ikke tilladt over %.0f m uden %s", MaxCombustibleHeight, models.FireResistanceNonCombustible),
			Long: fmt.Sprintf(
				"Bygningsreglementet BR18 § 89 og Eksempelsamling om brandsikring af byggeri, kapitel 2: "+
					"når gulvet i øverste etage ligger mere end %.0f meter over terræn (valgt: %s), "+
					"skal bærende konstruktioner og etageadskillelser udføres i materiale klasse %s. "+
					"Produktet er klassificeret %s.",
				MaxCombustibleHeight, band, models.FireResistanceNonCombustible, models.FireResistanceCombustible),
		})
	}

	return out
}

// ShortWarnings returns the card texts of ws.
func ShortWarnings(ws []Warning) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Short)
	}
	return out
}

// LongWarnings returns the detail texts of ws.
func LongWarnings(ws []Warning) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Long)
	}
	return out
}
