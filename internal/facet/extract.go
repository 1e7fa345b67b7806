package facet

import (
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/HerbHall/byggekatalog/internal/specparse"
	pkgcatalog "github.com/HerbHall/byggekatalog/pkg/catalog"
	"github.com/HerbHall/byggekatalog/pkg/models"
)

// Floor caps by usage context.
const (
	SingleFamilyFloorCap = 3
	DefaultFloorCap      = 8
)

// ControlState is a snapshot of every filter control, keyed by group key
// (see GroupKey).
type ControlState struct {
	Radios    map[string]string
	Sliders   map[string]float64
	AreaInput string
}

// FloorControl is the adjusted state of the floor-count slider.
type FloorControl struct {
	Max     int    `json:"max"`
	Value   int    `json:"value"`
	Clamped bool   `json:"clamped"`
	Label   string `json:"label"`
}

// Extraction is the result of reading the controls.
type Extraction struct {
	Criteria Criteria
	Floor    FloorControl
}

var danishFold = strings.NewReplacer("æ", "ae", "ø", "oe", "å", "aa")

// GroupKey derives the stable identifier of a control group from its section
// name: lower-cased, Danish letters transliterated, other diacritics
// stripped, and runs of anything but letters and digits collapsed to "-".
func GroupKey(section string) string {
	s := danishFold.Replace(cases.Lower(language.Danish).String(section))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, s); err == nil {
		s = folded
	}

	var b strings.Builder
	dash := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// FloorCap returns the highest selectable floor count for a usage tag.
func FloorCap(usage string) int {
	if usage == models.UsageSingleFamily {
		return SingleFamilyFloorCap
	}
	return DefaultFloorCap
}

// FloorLabel is the display text for a floor count.
func FloorLabel(n int) string {
	if n == 1 {
		return "1 etage"
	}
	return strconv.Itoa(n) + " etager"
}

// Extract reads the control state against the surface definition.
//
// Sliders map straight to their facet key. Radio groups contribute their
// value unless it is "all". The area input becomes advisory state on the
// returned Criteria. When the usage facet lowers the floor cap below the
// slider's value, the value is clamped.
func Extract(surface *pkgcatalog.Surface, state ControlState) Extraction {
	values := make(map[string]string)
	for _, g := range surface.Groups {
		gk := GroupKey(g.Section)
		switch g.Kind {
		case pkgcatalog.KindRadio:
			if v, ok := state.Radios[gk]; ok {
				values[g.Key] = v
			}
		case pkgcatalog.KindSlider:
			if v, ok := state.Sliders[gk]; ok {
				values[g.Key] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}

	c := NewCriteria(values)
	if strings.TrimSpace(state.AreaInput) != "" {
		if m2, ok := specparse.Decimal(state.AreaInput); ok {
			c = c.WithArea(m2)
		}
	}

	usage, _ := c.Usage()
	floor := FloorControl{Max: FloorCap(usage)}
	if raw, ok := c.Get(KeyFloor); ok {
		if n, ok := specparse.Int(raw); ok {
			if n > floor.Max {
				n = floor.Max
				floor.Clamped = true
				c = c.With(KeyFloor, strconv.Itoa(n))
			}
			floor.Value = n
			floor.Label = FloorLabel(n)
		}
	}

	return Extraction{Criteria: c, Floor: floor}
}

// FromQuery reads a ControlState from URL query parameters, one parameter
// per group (Group.QueryParam).
func FromQuery(surface *pkgcatalog.Surface, q url.Values) ControlState {
	state := ControlState{
		Radios:  make(map[string]string),
		Sliders: make(map[string]float64),
	}
	for _, g := range surface.Groups {
		raw := strings.TrimSpace(q.Get(g.QueryParam()))
		if raw == "" {
			continue
		}
		gk := GroupKey(g.Section)
		switch g.Kind {
		case pkgcatalog.KindRadio:
			state.Radios[gk] = raw
		case pkgcatalog.KindSlider:
			if f, ok := specparse.Decimal(raw); ok {
				state.Sliders[gk] = f
			}
		case pkgcatalog.KindNumber:
			state.AreaInput = raw
		}
	}
	return state
}
