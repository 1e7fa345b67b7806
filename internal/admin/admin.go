// Package admin implements the catalog save endpoint used by the admin
// editor. It writes the posted catalog document to the catalog file and
// swaps the new products into the running catalog.
package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/HerbHall/byggekatalog/internal/metrics"
	pkgcatalog "github.com/HerbHall/byggekatalog/pkg/catalog"
	"github.com/HerbHall/byggekatalog/pkg/models"
)

// Response messages.
const (
	MessageMethodNotAllowed = "Kun POST-anmodninger er tilladt"
	MessageInvalidProducts  = "Ugyldige produktdata"
	MessageWriteFailed      = "Kunne ikke skrive til fil: "
	MessageSaved            = "Produkter gemt succesfuldt"
	MessageRateLimited      = "For mange anmodninger. Prøv igen om lidt."
)

// SourceAdmin names catalogs that came from an admin save.
const SourceAdmin = "admin"

// maxBodySize bounds a posted catalog document.
const maxBodySize = 16 << 20

// Response is the envelope of every admin save response.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CatalogUpdater receives the saved products.
type CatalogUpdater interface {
	Replace(products []models.Product, source string)
}

// SnapshotRecorder caches a saved catalog.
type SnapshotRecorder interface {
	Remember(ctx context.Context, source string, products []models.Product, raw []byte)
}

// Writer persists the catalog document.
type Writer interface {
	Write(data []byte) error
	Path() string
}

// FileWriter writes the catalog atomically: a temp file in the same
// directory renamed over the target. Concurrent saves race and the last
// rename wins.
type FileWriter struct {
	path string
}

// NewFileWriter creates a FileWriter for path.
func NewFileWriter(path string) *FileWriter {
	return &FileWriter{path: path}
}

func (w *FileWriter) Path() string { return w.path }

func (w *FileWriter) Write(data []byte) error {
	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		return fmt.Errorf("rename catalog file: %w", err)
	}
	return nil
}

// Handler serves POST /api/v1/admin/products.
type Handler struct {
	writer    Writer
	catalog   CatalogUpdater
	snapshots SnapshotRecorder
	limiter   *rate.Limiter
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// Option configures a Handler.
type Option func(*Handler)

// WithRateLimit throttles saves to perSecond with the given burst. A
// non-positive rate disables throttling.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(h *Handler) {
		if perSecond <= 0 {
			h.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithSnapshots caches every successful save.
func WithSnapshots(r SnapshotRecorder) Option {
	return func(h *Handler) { h.snapshots = r }
}

// WithMetrics records save outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// NewHandler creates the save handler. catalog may be nil, in which case
// only the file is written.
func NewHandler(w Writer, catalog CatalogUpdater, logger *zap.Logger, opts ...Option) *Handler {
	h := &Handler{writer: w, catalog: catalog, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes implements server.RouteRegistrar. The route matches every
// method so that non-POST requests get the endpoint's own 405 envelope.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/admin/products", h.handleSave)
}

// handleSave writes the posted catalog document.
//
//	@Summary		Save catalog
//	@Description	Replaces the catalog file with the posted document. No authentication, no per-record validation.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Success		200 {object} Response
//	@Failure		400 {object} Response
//	@Failure		405 {object} Response
//	@Failure		429 {object} Response
//	@Failure		500 {object} Response
//	@Router			/admin/products [post]
func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if r.Method != http.MethodPost {
		h.metrics.AdminSave(metrics.OutcomeInvalid)
		writeResponse(w, http.StatusMethodNotAllowed, false, MessageMethodNotAllowed)
		return
	}

	if h.limiter != nil && !h.limiter.Allow() {
		h.metrics.AdminSave(metrics.OutcomeLimited)
		writeResponse(w, http.StatusTooManyRequests, false, MessageRateLimited)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.metrics.AdminSave(metrics.OutcomeInvalid)
		writeResponse(w, http.StatusBadRequest, false, MessageInvalidProducts)
		return
	}

	raw, ok := productsField(body)
	if !ok {
		h.metrics.AdminSave(metrics.OutcomeInvalid)
		writeResponse(w, http.StatusBadRequest, false, MessageInvalidProducts)
		return
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "    "); err != nil {
		h.metrics.AdminSave(metrics.OutcomeInvalid)
		writeResponse(w, http.StatusBadRequest, false, MessageInvalidProducts)
		return
	}
	pretty.WriteByte('\n')

	if err := h.writer.Write(pretty.Bytes()); err != nil {
		h.metrics.AdminSave(metrics.OutcomeFailure)
		h.logger.Error("failed to write catalog", zap.String("path", h.writer.Path()), zap.Error(err))
		writeResponse(w, http.StatusInternalServerError, false, MessageWriteFailed+h.writer.Path())
		return
	}

	h.metrics.AdminSave(metrics.OutcomeSuccess)
	h.logger.Info("catalog saved", zap.String("path", h.writer.Path()), zap.Int("bytes", pretty.Len()))
	h.apply(r.Context(), raw)

	writeResponse(w, http.StatusOK, true, MessageSaved)
}

// apply swaps the saved products into the running catalog. Records that do
// not decode are left out; when none decodes the running catalog is kept.
func (h *Handler) apply(ctx context.Context, raw json.RawMessage) {
	if h.catalog == nil {
		return
	}
	decoded, err := pkgcatalog.Decode(raw)
	if err != nil {
		h.logger.Warn("saved catalog does not decode as products, keeping running catalog", zap.Error(err))
		return
	}
	for _, skipped := range decoded.Skipped {
		h.logger.Warn("saved catalog has an undecodable product record",
			zap.Int("index", skipped.Index),
			zap.Error(skipped.Err),
		)
	}
	if decoded.AllSkipped() {
		h.logger.Warn("no saved product record decodes, keeping running catalog",
			zap.Int("records", len(decoded.Skipped)),
		)
		return
	}
	h.catalog.Replace(decoded.Products, SourceAdmin)
	if h.snapshots != nil {
		h.snapshots.Remember(ctx, SourceAdmin, decoded.Products, raw)
	}
}

// productsField returns the "products" member of a JSON object body when it
// is an array.
func productsField(body []byte) (json.RawMessage, bool) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, false
	}
	raw, ok := doc["products"]
	if !ok {
		return nil, false
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	return trimmed, true
}

func writeResponse(w http.ResponseWriter, status int, success bool, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(Response{Success: success, Message: message})
}
