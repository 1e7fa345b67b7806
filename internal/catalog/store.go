// Package catalog loads the product catalog through its fallback tiers,
// holds it in memory, and serves the filtering API on top of it.
package catalog

import (
	"sync"
	"time"

	"github.com/HerbHall/byggekatalog/internal/metrics"
	"github.com/HerbHall/byggekatalog/pkg/models"
)

// Store is the in-memory product catalog. It is written once at startup and
// again only when the admin workflow saves a new catalog; all reads return
// copies.
type Store struct {
	mu       sync.RWMutex
	products []models.Product
	index    map[string]int
	source   string
	message  string
	loadedAt time.Time
	metrics  *metrics.Metrics
}

// NewStore creates an empty Store. m may be nil.
func NewStore(m *metrics.Metrics) *Store {
	return &Store{index: map[string]int{}, metrics: m}
}

// Replace swaps in a new product list loaded from source and clears any
// load failure message.
func (s *Store) Replace(products []models.Product, source string) {
	cp := make([]models.Product, len(products))
	copy(cp, products)
	index := make(map[string]int, len(cp))
	for i := range cp {
		if _, dup := index[cp[i].ID]; !dup {
			index[cp[i].ID] = i
		}
	}

	s.mu.Lock()
	s.products = cp
	s.index = index
	s.source = source
	s.message = ""
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.metrics.CatalogSize(len(cp))
}

// Apply stores the outcome of a Load. A failed load leaves an empty catalog
// and its user-facing message.
func (s *Store) Apply(res LoadResult) {
	s.Replace(res.Products, res.Source)
	if res.Message != "" {
		s.mu.Lock()
		s.message = res.Message
		s.mu.Unlock()
	}
}

// Products returns a copy of the catalog in catalog order.
func (s *Store) Products() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]models.Product, len(s.products))
	copy(cp, s.products)
	return cp
}

// Get returns the product with the given ID. The first product wins when
// IDs repeat.
func (s *Store) Get(id string) (models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return models.Product{}, false
	}
	return s.products[i], true
}

// Len returns the number of products.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

// Source names the tier the current catalog came from.
func (s *Store) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Message is the user-facing load failure message, empty when the catalog
// loaded.
func (s *Store) Message() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.message
}

// LoadedAt returns when the catalog was last replaced.
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// UsageTags returns the distinct usage tags in the catalog, in order of
// first appearance.
func (s *Store) UsageTags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var tags []string
	for i := range s.products {
		for _, tag := range s.products[i].Anvendelse {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	return tags
}
