package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/HerbHall/byggekatalog/internal/specparse"
)

// Usage tags. Later catalog files use a closed set of two.
const (
	UsageSingleFamily = "enfamiliehus"
	UsageMultiStory   = "etagebolig"
)

// Fire-resistance material classes.
const (
	FireResistanceCombustible    = "D1-s2-d2"
	FireResistanceNonCombustible = "A2-s1-d0"
)

// Spec keys understood by the rule engine and the detail projection.
const (
	SpecFireRequirement = "brandkrav"
	SpecFireResistance  = "brandmodstand"
	SpecFireSection     = "brandsektion"
	SpecTopFloorHeight  = "topEtageHoejde"
	SpecSpan            = "spaendvidde"
	SpecMinFloors       = "minEtager"
	SpecMaxFloors       = "maxEtager"
	SpecMaxLength       = "Max længde"
	SpecTotalThickness  = "samletTykkelse"
	SpecWeight          = "vaegt"
	SpecAirborneSound   = "luftlydKlasse"
	SpecImpactSound     = "trinlydKlasse"
)

// Floor bounds assumed when a product does not state them.
const (
	DefaultMinFloors = 1
	DefaultMaxFloors = 8
)

// KnownUsage reports whether tag is one of the recognized usage contexts.
func KnownUsage(tag string) bool {
	return tag == UsageSingleFamily || tag == UsageMultiStory
}

// Product is an immutable catalog entry.
type Product struct {
	ID                         string            `json:"id"`
	Name                       string            `json:"name"`
	ShortDescription           string            `json:"shortDescription,omitempty"`
	LongDescription            string            `json:"longDescription,omitempty"`
	Image                      string            `json:"image,omitempty"`
	Price                      Price             `json:"price"`
	Anvendelse                 []string          `json:"anvendelse"`
	Specs                      Fields            `json:"specs"`
	Brandklasser               map[string]string `json:"brandklasser,omitempty"`
	Data                       Fields            `json:"data"`
	Features                   []string          `json:"features,omitempty"`
	Components                 []string          `json:"components,omitempty"`
	WarnIfUsedForLargeSections bool              `json:"warnIfUsedForLargeSections,omitempty"`
}

// UnmarshalJSON accepts the legacy field names used by early catalog files
// (madeFor, description) alongside the current ones. A usage list given as a
// single string is one tag; any other malformed usage value is no tags.
func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	aux := struct {
		*plain
		Anvendelse  json.RawMessage `json:"anvendelse"`
		MadeFor     json.RawMessage `json:"madeFor"`
		Description string          `json:"description"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.Anvendelse = usageTags(aux.Anvendelse)
	if len(p.Anvendelse) == 0 {
		p.Anvendelse = usageTags(aux.MadeFor)
	}
	if p.ShortDescription == "" {
		p.ShortDescription = aux.Description
	}
	return nil
}

func usageTags(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err == nil {
		return tags
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err == nil {
		for _, it := range items {
			if s, ok := it.(string); ok {
				tags = append(tags, s)
			}
		}
		return tags
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return []string{single}
	}
	return nil
}

// HasUsage reports whether the product is made for the given usage tag.
// Unrecognized tags never match.
func (p Product) HasUsage(tag string) bool {
	if !KnownUsage(tag) {
		return false
	}
	for _, u := range p.Anvendelse {
		if u == tag {
			return true
		}
	}
	return false
}

// FireClassFor returns the fire class that applies when the product is used
// in the given context.
func (p Product) FireClassFor(usage string) (string, bool) {
	fc, ok := p.Brandklasser[usage]
	if !ok || fc == "" {
		return "", false
	}
	return fc, true
}

// FloorBounds returns the supported [min, max] floor range, falling back to
// the defaults for absent or unparsable values.
func (p Product) FloorBounds() (int, int) {
	lo, hi := DefaultMinFloors, DefaultMaxFloors
	if v, ok := p.Specs.Get(SpecMinFloors); ok {
		if n, ok := specparse.Int(v.String()); ok {
			lo = n
		}
	}
	if v, ok := p.Specs.Get(SpecMaxFloors); ok {
		if n, ok := specparse.Int(v.String()); ok {
			hi = n
		}
	}
	return lo, hi
}

// Price is a product price as found in the catalog: either a formatted
// currency string ("12.495,00 kr.") or a bare number of kroner.
type Price struct {
	Amount float64
	Text   string
	Set    bool
}

// NewPrice returns a numeric price in kroner.
func NewPrice(amount float64) Price {
	return Price{Amount: amount, Set: true}
}

// UnmarshalJSON reads a string or numeric price. Any other JSON value
// (booleans, objects, arrays) is an unset price.
func (p *Price) UnmarshalJSON(data []byte) error {
	*p = Price{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch {
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("price: %w", err)
		}
		*p = Price{Amount: specparse.Number(s), Text: s, Set: s != ""}
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("price: %w", err)
		}
		*p = Price{Amount: f, Set: true}
	}
	return nil
}

func (p Price) MarshalJSON() ([]byte, error) {
	switch {
	case !p.Set:
		return []byte("null"), nil
	case p.Text != "":
		return json.Marshal(p.Text)
	default:
		return json.Marshal(p.Amount)
	}
}
