package catalog

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/HerbHall/byggekatalog/internal/facet"
	"github.com/HerbHall/byggekatalog/internal/metrics"
	"github.com/HerbHall/byggekatalog/internal/projection"
	"github.com/HerbHall/byggekatalog/internal/rules"
	"github.com/HerbHall/byggekatalog/internal/server"
	"github.com/HerbHall/byggekatalog/internal/sorting"
	pkgcatalog "github.com/HerbHall/byggekatalog/pkg/catalog"
)

// Empty-list messages.
const (
	MessageNoMatches   = "Ingen produkter matcher filtrene."
	MessageChooseUsage = "Vælg anvendelse for at se produkter."
)

// ListResponse is the response for GET /api/v1/catalog/products.
type ListResponse struct {
	Count      int                   `json:"count"`
	CountLabel string                `json:"count_label"`
	Advisory   string                `json:"advisory,omitempty"`
	Message    string                `json:"message,omitempty"`
	Floor      facet.FloorControl    `json:"floor"`
	Sort       string                `json:"sort,omitempty"`
	Products   []projection.CardView `json:"products"`
}

// DetailResponse is the response for GET /api/v1/catalog/products/{id}.
type DetailResponse struct {
	projection.DetailView
	Eligible bool   `json:"eligible"`
	Advisory string `json:"advisory,omitempty"`
}

// FacetsResponse is the response for GET /api/v1/catalog/facets.
type FacetsResponse struct {
	Groups    []pkgcatalog.Group  `json:"groups"`
	Sort      []pkgcatalog.Option `json:"sort"`
	UsageTags []string            `json:"usage_tags"`
	Floor     facet.FloorControl  `json:"floor"`
}

// Handler serves the catalog filtering API.
type Handler struct {
	store   *Store
	surface *pkgcatalog.Surface
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewHandler creates a catalog API handler. m may be nil.
func NewHandler(store *Store, surface *pkgcatalog.Surface, logger *zap.Logger, m *metrics.Metrics) *Handler {
	return &Handler{store: store, surface: surface, logger: logger, metrics: m}
}

// RegisterRoutes implements server.RouteRegistrar.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/catalog/products", h.handleList)
	mux.HandleFunc("GET /api/v1/catalog/products/{id}", h.handleDetail)
	mux.HandleFunc("GET /api/v1/catalog/facets", h.handleFacets)
}

// handleList returns the eligible products for the facets in the query.
//
//	@Summary		List eligible products
//	@Description	Evaluates every product against the selected facets and returns cards for the eligible ones, optionally sorted.
//	@Tags			catalog
//	@Produce		json
//	@Param			anvendelse query string false "Usage tag (enfamiliehus, etagebolig)"
//	@Param			etage query int false "Requested floor count"
//	@Param			m2 query number false "Section area in m², advisory"
//	@Param			sort query string false "Sort field and direction, e.g. price-asc"
//	@Success		200 {object} ListResponse
//	@Router			/catalog/products [get]
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ex := facet.Extract(h.surface, facet.FromQuery(h.surface, r.URL.Query()))
	products := h.store.Products()

	res := rules.Filter(products, ex.Criteria)
	h.metrics.Evaluations(len(res.Matches), len(products)-len(res.Matches))

	spec := sorting.ParseSpec(r.URL.Query().Get("sort"))
	matches := sorting.Sort(res.Matches, spec, func(m rules.Match, field string) float64 {
		return sorting.ProductKey(m.Product, field)
	})

	cards := make([]projection.CardView, 0, len(matches))
	for _, m := range matches {
		cards = append(cards, projection.Card(m.Product, m.Warnings))
	}

	resp := ListResponse{
		Count:      len(cards),
		CountLabel: projection.CountLabel(len(cards)),
		Advisory:   res.Advisory,
		Floor:      ex.Floor,
		Sort:       spec.String(),
		Products:   cards,
	}
	if len(cards) == 0 {
		resp.Message = h.emptyMessage(ex.Criteria)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) emptyMessage(c facet.Criteria) string {
	if msg := h.store.Message(); msg != "" {
		return msg
	}
	if _, ok := c.Usage(); !ok {
		return MessageChooseUsage
	}
	return MessageNoMatches
}

// handleDetail returns the detail record of one product. Warnings and the
// usage-specific fire class follow the facets in the query.
//
//	@Summary		Get product detail
//	@Tags			catalog
//	@Produce		json
//	@Param			id path string true "Product ID"
//	@Success		200 {object} DetailResponse
//	@Failure		404 {object} server.Problem
//	@Router			/catalog/products/{id} [get]
func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, ok := h.store.Get(id)
	if !ok {
		server.NotFound(w, "product "+id+" not found", r.URL.Path)
		return
	}

	ex := facet.Extract(h.surface, facet.FromQuery(h.surface, r.URL.Query()))
	result := rules.Evaluate(p, ex.Criteria)
	warnings := rules.Warnings(p, ex.Criteria)

	writeJSON(w, http.StatusOK, DetailResponse{
		DetailView: projection.Detail(p, warnings, ex.Criteria),
		Eligible:   result.Eligible,
		Advisory:   result.Advisory,
	})
}

// handleFacets returns the filter-control surface and the usage tags present
// in the loaded catalog.
//
//	@Summary		Get filter controls
//	@Tags			catalog
//	@Produce		json
//	@Success		200 {object} FacetsResponse
//	@Router			/catalog/facets [get]
func (h *Handler) handleFacets(w http.ResponseWriter, r *http.Request) {
	usage := r.URL.Query().Get(facet.KeyUsage)
	tags := h.store.UsageTags()
	if tags == nil {
		tags = []string{}
	}
	groups := h.surface.Groups
	if groups == nil {
		groups = []pkgcatalog.Group{}
	}

	writeJSON(w, http.StatusOK, FacetsResponse{
		Groups:    groups,
		Sort:      h.surface.Sort,
		UsageTags: tags,
		Floor: facet.FloorControl{
			Max: facet.FloorCap(usage),
		},
	})
}

// -- helpers --

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
