// Package sorting orders catalog products by a numeric key parsed from their
// price, data or spec fields.
package sorting

import (
	"slices"
	"strings"

	"github.com/HerbHall/byggekatalog/internal/specparse"
	"github.com/HerbHall/byggekatalog/pkg/models"
)

// FieldPrice is the sort field addressing the product price.
const FieldPrice = "price"

// Spec is a parsed sort selection. The zero Spec means no ordering.
type Spec struct {
	Field string
	Desc  bool
}

// IsZero reports whether s requests no ordering.
func (s Spec) IsZero() bool { return s.Field == "" }

// String renders s in its "<field>-<asc|desc>" form.
func (s Spec) String() string {
	if s.IsZero() {
		return ""
	}
	if s.Desc {
		return s.Field + "-desc"
	}
	return s.Field + "-asc"
}

// ParseSpec parses "<field>-<asc|desc>". The field may itself contain "-",
// so the direction is taken after the last separator. A missing or unknown
// direction means ascending.
func ParseSpec(raw string) Spec {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Spec{}
	}
	i := strings.LastIndex(raw, "-")
	if i < 0 {
		return Spec{Field: raw}
	}
	field, dir := raw[:i], strings.ToLower(raw[i+1:])
	switch dir {
	case "desc":
		return Spec{Field: field, Desc: true}
	case "asc":
		return Spec{Field: field}
	}
	return Spec{Field: raw}
}

// Sort returns a sorted copy of items. Equal keys keep their input order and
// the zero Spec returns the input unchanged.
func Sort[T any](items []T, spec Spec, key func(T, string) float64) []T {
	if spec.IsZero() {
		return items
	}
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int {
		ka, kb := key(a, spec.Field), key(b, spec.Field)
		c := compare(ka, kb)
		if spec.Desc {
			return -c
		}
		return c
	})
	return out
}

func compare(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// ProductKey resolves a sort field on a product: the price, else a data
// entry addressed by its display label, else a spec entry. Absent or
// unparsable values are 0.
func ProductKey(p models.Product, field string) float64 {
	if field == FieldPrice {
		return p.Price.Amount
	}
	if v, ok := p.Data.Get(field); ok {
		return specparse.Number(v.String())
	}
	if v, ok := p.Specs.Get(field); ok {
		return specparse.Number(v.String())
	}
	return 0
}

// Products sorts products by spec using ProductKey.
func Products(products []models.Product, spec Spec) []models.Product {
	return Sort(products, spec, ProductKey)
}
