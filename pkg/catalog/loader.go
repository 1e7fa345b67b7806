package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/HerbHall/byggekatalog/pkg/models"
)

//go:embed products.json
var productsRawData []byte

// Embedded provides lazy-loaded access to the catalog compiled into the
// binary. It is the last-resort tier when neither the configured source nor
// the snapshot cache yields a catalog.
type Embedded struct {
	once     sync.Once
	products []models.Product
	err      error
}

// NewEmbedded creates an Embedded catalog that parses its JSON on first access.
func NewEmbedded() *Embedded {
	return &Embedded{}
}

// Raw returns the embedded JSON document.
func (c *Embedded) Raw() []byte {
	cp := make([]byte, len(productsRawData))
	copy(cp, productsRawData)
	return cp
}

// Products returns a copy of all embedded products.
func (c *Embedded) Products() ([]models.Product, error) {
	c.once.Do(c.load)
	if c.err != nil {
		return nil, c.err
	}
	cp := make([]models.Product, len(c.products))
	copy(cp, c.products)
	return cp, nil
}

// load parses the embedded JSON catalog data.
func (c *Embedded) load() {
	products, err := Normalize(productsRawData)
	if err != nil {
		c.err = fmt.Errorf("catalog: parse embedded products: %w", err)
		return
	}
	c.products = products
}
