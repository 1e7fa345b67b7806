// Package facet turns the state of the catalog's filter controls into an
// immutable Criteria value consumed by the rule engine.
package facet

import (
	"sort"
	"strconv"
	"strings"
)

// Facet keys produced by extraction.
const (
	KeyUsage           = "anvendelse"
	KeyFloor           = "etage"
	KeyFireClass       = "brandklasse"
	KeyFireResistance  = "brandmodstand"
	KeyFireRequirement = "brandkrav"
	KeyFireSection     = "brandsektion"
	KeyHeightBand      = "topEtageHoejde"
	KeyMinLength       = "Max længde"
	KeySpan            = "spaendvidde"
	KeyAirborneSound   = "luftlyd"
	KeyImpactSound     = "trinlyd"

	// KeyArea is the advisory area input. It is never a match key.
	KeyArea = "m2"
)

// All is the sentinel selection meaning "no constraint".
const All = "all"

// Criteria is the set of selected facet values plus the advisory area. The
// zero value has no constraints. Criteria is never mutated after
// construction; With and WithArea return modified copies.
type Criteria struct {
	values  map[string]string
	area    float64
	hasArea bool
}

// NewCriteria builds Criteria from a facet-key map. Empty values and the
// "all" sentinel are dropped.
func NewCriteria(values map[string]string) Criteria {
	c := Criteria{values: make(map[string]string, len(values))}
	for k, v := range values {
		if selected(v) {
			c.values[k] = v
		}
	}
	return c
}

func selected(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, All)
}

// With returns a copy of c with key set to value. Setting "all" or an empty
// value removes the facet.
func (c Criteria) With(key, value string) Criteria {
	out := c.clone()
	if selected(value) {
		out.values[key] = value
	} else {
		delete(out.values, key)
	}
	return out
}

// WithArea returns a copy of c carrying the advisory area in m².
func (c Criteria) WithArea(m2 float64) Criteria {
	out := c.clone()
	out.area = m2
	out.hasArea = true
	return out
}

func (c Criteria) clone() Criteria {
	out := Criteria{
		values:  make(map[string]string, len(c.values)+1),
		area:    c.area,
		hasArea: c.hasArea,
	}
	for k, v := range c.values {
		out.values[k] = v
	}
	return out
}

// Get returns the selected value for key.
func (c Criteria) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Has reports whether key is constrained.
func (c Criteria) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Usage returns the selected usage tag, if any.
func (c Criteria) Usage() (string, bool) {
	return c.Get(KeyUsage)
}

// Area returns the advisory area in m², if one was entered.
func (c Criteria) Area() (float64, bool) {
	return c.area, c.hasArea
}

// Keys returns the constrained facet keys in sorted order.
func (c Criteria) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsEmpty reports whether no facet is constrained.
func (c Criteria) IsEmpty() bool {
	return len(c.values) == 0
}

// Map returns a copy of the selected values, with the area under KeyArea.
func (c Criteria) Map() map[string]string {
	m := make(map[string]string, len(c.values)+1)
	for k, v := range c.values {
		m[k] = v
	}
	if c.hasArea {
		m[KeyArea] = strconv.FormatFloat(c.area, 'f', -1, 64)
	}
	return m
}
