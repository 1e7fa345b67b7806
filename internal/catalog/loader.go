package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/byggekatalog/internal/metrics"
	"github.com/HerbHall/byggekatalog/internal/services"
	"github.com/HerbHall/byggekatalog/internal/version"
	pkgcatalog "github.com/HerbHall/byggekatalog/pkg/catalog"
	"github.com/HerbHall/byggekatalog/pkg/models"
)

// Source tier names.
const (
	SourceHTTP     = "http"
	SourceFile     = "file"
	SourceSnapshot = "snapshot"
	SourceEmbedded = "embedded"
)

// LoadFailedMessage is shown when no tier yields a catalog.
const LoadFailedMessage = "Fejl ved hentning af produktdata. Sørg for at filen findes og at serveren kører."

// maxDocumentSize bounds a fetched catalog document.
const maxDocumentSize = 32 << 20

// ErrNoSource is returned by a source that is not configured.
var ErrNoSource = errors.New("catalog source not configured")

// Source is one tier of the load chain.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
}

// HTTPSource fetches the catalog document from a URL. Any non-2xx status is
// a failure.
type HTTPSource struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

func (s *HTTPSource) Name() string { return SourceHTTP }

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	if s.URL == "" {
		return nil, ErrNoSource
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", s.URL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.URL, err)
	}
	return data, nil
}

// FileSource reads the catalog document from disk. It is the same file the
// admin endpoint writes.
type FileSource struct {
	Path string
}

func (s *FileSource) Name() string { return SourceFile }

func (s *FileSource) Fetch(_ context.Context) ([]byte, error) {
	if s.Path == "" {
		return nil, ErrNoSource
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return data, nil
}

// SnapshotSource returns the most recently cached catalog.
type SnapshotSource struct {
	Repo services.SnapshotRepository
}

func (s *SnapshotSource) Name() string { return SourceSnapshot }

func (s *SnapshotSource) Fetch(ctx context.Context) ([]byte, error) {
	if s.Repo == nil {
		return nil, ErrNoSource
	}
	snap, err := s.Repo.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	return snap.Payload, nil
}

// EmbeddedSource returns the catalog compiled into the binary.
type EmbeddedSource struct {
	Catalog *pkgcatalog.Embedded
}

func (s *EmbeddedSource) Name() string { return SourceEmbedded }

func (s *EmbeddedSource) Fetch(_ context.Context) ([]byte, error) {
	if s.Catalog == nil {
		return nil, ErrNoSource
	}
	return s.Catalog.Raw(), nil
}

// Attempt records the outcome of one tier.
type Attempt struct {
	Source string `json:"source"`
	Err    error  `json:"-"`
}

// LoadResult is the outcome of walking the tiers. When every tier fails,
// Products is empty and Message carries the user-facing text.
type LoadResult struct {
	Products []models.Product
	Source   string
	Message  string
	Attempts []Attempt
}

// OK reports whether some tier produced the catalog.
func (r LoadResult) OK() bool { return r.Source != "" }

// Loader walks the primary, cache and embedded tiers in order and keeps the
// snapshot cache current.
type Loader struct {
	primary   Source
	snapshots services.SnapshotRepository
	embedded  *pkgcatalog.Embedded
	keep      int
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPrimary sets the primary source tier.
func WithPrimary(src Source) LoaderOption {
	return func(l *Loader) { l.primary = src }
}

// WithSnapshots enables the snapshot cache tier. keep bounds how many
// snapshots are retained; zero keeps all.
func WithSnapshots(repo services.SnapshotRepository, keep int) LoaderOption {
	return func(l *Loader) {
		l.snapshots = repo
		l.keep = keep
	}
}

// WithEmbedded sets the embedded tier.
func WithEmbedded(e *pkgcatalog.Embedded) LoaderOption {
	return func(l *Loader) { l.embedded = e }
}

// WithMetrics records per-tier load outcomes.
func WithMetrics(m *metrics.Metrics) LoaderOption {
	return func(l *Loader) { l.metrics = m }
}

// NewLoader creates a Loader. Tiers that are not configured are skipped.
func NewLoader(logger *zap.Logger, opts ...LoaderOption) *Loader {
	l := &Loader{logger: logger}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) sources() []Source {
	var out []Source
	if l.primary != nil {
		out = append(out, l.primary)
	}
	if l.snapshots != nil {
		out = append(out, &SnapshotSource{Repo: l.snapshots})
	}
	if l.embedded != nil {
		out = append(out, &EmbeddedSource{Catalog: l.embedded})
	}
	return out
}

// Load tries each tier once, in order, and returns the first catalog that
// fetches and decodes. It never returns an error: a total failure is an
// empty result with a message.
func (l *Loader) Load(ctx context.Context) LoadResult {
	var res LoadResult
	for _, src := range l.sources() {
		products, raw, err := l.try(ctx, src)
		res.Attempts = append(res.Attempts, Attempt{Source: src.Name(), Err: err})
		if err != nil {
			l.metrics.CatalogLoad(src.Name(), metrics.OutcomeFailure)
			l.logger.Warn("catalog tier failed",
				zap.String("source", src.Name()),
				zap.Error(err),
			)
			continue
		}

		l.metrics.CatalogLoad(src.Name(), metrics.OutcomeSuccess)
		l.logger.Info("catalog loaded",
			zap.String("source", src.Name()),
			zap.Int("products", len(products)),
		)
		if src.Name() != SourceSnapshot {
			l.remember(ctx, src.Name(), raw, len(products))
		}
		res.Products = products
		res.Source = src.Name()
		return res
	}

	l.logger.Error("no catalog tier succeeded", zap.Int("attempts", len(res.Attempts)))
	res.Products = []models.Product{}
	res.Message = LoadFailedMessage
	return res
}

func (l *Loader) try(ctx context.Context, src Source) ([]models.Product, []byte, error) {
	data, err := src.Fetch(ctx)
	if err != nil {
		return nil, nil, err
	}
	raw, err := pkgcatalog.ProductArray(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", src.Name(), err)
	}
	decoded, err := pkgcatalog.Decode(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", src.Name(), err)
	}
	for _, skipped := range decoded.Skipped {
		l.logger.Warn("skipping undecodable product record",
			zap.String("source", src.Name()),
			zap.Int("index", skipped.Index),
			zap.Error(skipped.Err),
		)
	}
	if decoded.AllSkipped() {
		return nil, nil, fmt.Errorf("%s: %w", src.Name(), pkgcatalog.ErrNoValidRecords)
	}
	return decoded.Products, raw, nil
}

// Remember caches a catalog that was obtained outside Load, such as an admin
// save.
func (l *Loader) Remember(ctx context.Context, source string, products []models.Product, raw []byte) {
	l.remember(ctx, source, raw, len(products))
}

func (l *Loader) remember(ctx context.Context, source string, raw []byte, count int) {
	if l.snapshots == nil {
		return
	}
	if _, err := l.snapshots.Save(ctx, source, raw, count); err != nil {
		l.logger.Warn("failed to cache catalog snapshot", zap.String("source", source), zap.Error(err))
		return
	}
	if l.keep > 0 {
		if _, err := l.snapshots.Prune(ctx, l.keep); err != nil {
			l.logger.Warn("failed to prune catalog snapshots", zap.Error(err))
		}
	}
}
