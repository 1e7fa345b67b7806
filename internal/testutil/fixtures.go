package testutil

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/HerbHall/byggekatalog/pkg/models"
)

var productSeq atomic.Int64

// NewProduct returns a multi-story product with sensible defaults, suitable
// for test fixtures: usable in both contexts, floors 1-8, A2-s1-d0.
// Override individual fields with options.
func NewProduct(opts ...func(*models.Product)) models.Product {
	n := productSeq.Add(1)
	p := models.Product{
		ID:         fmt.Sprintf("prod-%03d", n),
		Name:       fmt.Sprintf("Testelement %d", n),
		Price:      models.NewPrice(1000),
		Anvendelse: []string{models.UsageSingleFamily, models.UsageMultiStory},
		Specs: models.NewFields(
			models.Field{Key: models.SpecFireResistance, Value: models.Scalar(models.FireResistanceNonCombustible)},
		),
		Brandklasser: map[string]string{
			models.UsageSingleFamily: "BK1",
			models.UsageMultiStory:   "BK2",
		},
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// WithID sets the product ID.
func WithID(id string) func(*models.Product) {
	return func(p *models.Product) { p.ID = id }
}

// WithName sets the product name.
func WithName(name string) func(*models.Product) {
	return func(p *models.Product) { p.Name = name }
}

// WithUsage replaces the usage tags.
func WithUsage(tags ...string) func(*models.Product) {
	return func(p *models.Product) { p.Anvendelse = tags }
}

// WithSpec sets a scalar spec value.
func WithSpec(key, value string) func(*models.Product) {
	return func(p *models.Product) { p.Specs = p.Specs.With(key, models.Scalar(value)) }
}

// WithSpecList sets a list spec value.
func WithSpecList(key string, values ...string) func(*models.Product) {
	return func(p *models.Product) { p.Specs = p.Specs.With(key, models.List(values...)) }
}

// WithoutSpecs clears every spec.
func WithoutSpecs() func(*models.Product) {
	return func(p *models.Product) { p.Specs = models.Fields{} }
}

// WithData sets a supplementary data value.
func WithData(key, value string) func(*models.Product) {
	return func(p *models.Product) { p.Data = p.Data.With(key, models.Scalar(value)) }
}

// WithFireClass sets the fire class for one usage context.
func WithFireClass(usage, class string) func(*models.Product) {
	return func(p *models.Product) {
		m := make(map[string]string, len(p.Brandklasser)+1)
		for k, v := range p.Brandklasser {
			m[k] = v
		}
		m[usage] = class
		p.Brandklasser = m
	}
}

// WithPrice sets a formatted price string.
func WithPrice(text string) func(*models.Product) {
	return func(p *models.Product) {
		raw, _ := json.Marshal(text)
		var price models.Price
		_ = price.UnmarshalJSON(raw)
		p.Price = price
	}
}

// WithLargeSectionWarning sets the warnIfUsedForLargeSections flag.
func WithLargeSectionWarning() func(*models.Product) {
	return func(p *models.Product) { p.WarnIfUsedForLargeSections = true }
}
