package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/HerbHall/byggekatalog/internal/services"
	"github.com/HerbHall/byggekatalog/internal/testutil"
	pkgcatalog "github.com/HerbHall/byggekatalog/pkg/catalog"
)

type staticSource struct {
	name string
	data []byte
	err  error
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Fetch(context.Context) ([]byte, error) { return s.data, s.err }

func newSnapshots(t *testing.T) services.SnapshotRepository {
	t.Helper()
	repo, err := services.NewSQLiteSnapshotRepository(context.Background(), testutil.NewStore(t))
	if err != nil {
		t.Fatalf("NewSQLiteSnapshotRepository: %v", err)
	}
	return repo
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

func TestLoader_PrimaryFile(t *testing.T) {
	path := writeFile(t, `{"products":[{"id":"prod-100","anvendelse":["etagebolig"]}]}`)
	snaps := newSnapshots(t)

	l := NewLoader(zap.NewNop(),
		WithPrimary(&FileSource{Path: path}),
		WithSnapshots(snaps, 0),
		WithEmbedded(pkgcatalog.NewEmbedded()),
	)
	res := l.Load(context.Background())

	if !res.OK() || res.Source != SourceFile {
		t.Fatalf("Source = %q, want %q", res.Source, SourceFile)
	}
	if len(res.Products) != 1 || res.Products[0].ID != "prod-100" {
		t.Errorf("Products = %+v", res.Products)
	}

	snap, err := snaps.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if snap.Source != SourceFile || snap.ProductCount != 1 {
		t.Errorf("snapshot = %+v, want file with 1 product", snap)
	}
	if string(snap.Payload) != `[{"id":"prod-100","anvendelse":["etagebolig"]}]` {
		t.Errorf("snapshot payload = %s", snap.Payload)
	}
}

func TestLoader_SkipsBadRecords(t *testing.T) {
	path := writeFile(t, `{"products":[
		{"id":"prod-001","anvendelse":["etagebolig"],"specs":{"lyd":{"a":1}}},
		{"id":"prod-002","price":true,"anvendelse":"etagebolig"},
		{"id":"prod-003","name":17},
		{"id":"prod-004","anvendelse":["enfamiliehus"]}
	]}`)
	core, logs := observer.New(zap.WarnLevel)

	l := NewLoader(zap.New(core),
		WithPrimary(&FileSource{Path: path}),
		WithEmbedded(pkgcatalog.NewEmbedded()),
	)
	res := l.Load(context.Background())

	if res.Source != SourceFile {
		t.Fatalf("Source = %q, want %q", res.Source, SourceFile)
	}
	var ids []string
	for _, p := range res.Products {
		ids = append(ids, p.ID)
	}
	if len(ids) != 3 || ids[0] != "prod-001" || ids[1] != "prod-002" || ids[2] != "prod-004" {
		t.Errorf("ids = %v, want [prod-001 prod-002 prod-004]", ids)
	}
	if !res.Products[1].HasUsage("etagebolig") {
		t.Error("single-string usage must be read as one tag")
	}

	skipped := logs.FilterMessage("skipping undecodable product record").All()
	if len(skipped) != 1 {
		t.Fatalf("logged %d skipped records, want 1", len(skipped))
	}
	if idx := skipped[0].ContextMap()["index"]; idx != int64(2) {
		t.Errorf("skipped index = %v, want 2", idx)
	}
}

func TestLoader_NoDecodableRecordsFallsBack(t *testing.T) {
	l := NewLoader(zap.NewNop(),
		WithPrimary(&staticSource{name: SourceHTTP, data: []byte(`{"products":[1,2]}`)}),
		WithEmbedded(pkgcatalog.NewEmbedded()),
	)
	res := l.Load(context.Background())

	if res.Source != SourceEmbedded {
		t.Fatalf("Source = %q, want %q", res.Source, SourceEmbedded)
	}
	if !errors.Is(res.Attempts[0].Err, pkgcatalog.ErrNoValidRecords) {
		t.Errorf("primary err = %v, want ErrNoValidRecords", res.Attempts[0].Err)
	}
}

func TestLoader_FallsBackToSnapshot(t *testing.T) {
	snaps := newSnapshots(t)
	if _, err := snaps.Save(context.Background(), SourceHTTP, []byte(`[{"id":"cached"}]`), 1); err != nil {
		t.Fatalf("Save: %v", err)
	}

	l := NewLoader(zap.NewNop(),
		WithPrimary(&FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}),
		WithSnapshots(snaps, 0),
		WithEmbedded(pkgcatalog.NewEmbedded()),
	)
	res := l.Load(context.Background())

	if res.Source != SourceSnapshot {
		t.Fatalf("Source = %q, want %q", res.Source, SourceSnapshot)
	}
	if len(res.Products) != 1 || res.Products[0].ID != "cached" {
		t.Errorf("Products = %+v", res.Products)
	}
	if len(res.Attempts) != 2 || res.Attempts[0].Err == nil || res.Attempts[1].Err != nil {
		t.Errorf("Attempts = %+v", res.Attempts)
	}

	list, err := snaps.List(context.Background(), services.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list.Total != 1 {
		t.Errorf("snapshot tier must not re-cache itself, Total = %d", list.Total)
	}
}

func TestLoader_FallsBackToEmbedded(t *testing.T) {
	l := NewLoader(zap.NewNop(),
		WithPrimary(&staticSource{name: SourceHTTP, data: []byte(`not json`)}),
		WithSnapshots(newSnapshots(t), 0),
		WithEmbedded(pkgcatalog.NewEmbedded()),
	)
	res := l.Load(context.Background())

	if res.Source != SourceEmbedded {
		t.Fatalf("Source = %q, want %q", res.Source, SourceEmbedded)
	}
	if len(res.Products) == 0 {
		t.Error("embedded catalog is empty")
	}
	if res.Message != "" {
		t.Errorf("Message = %q, want empty", res.Message)
	}
}

func TestLoader_AllTiersFail(t *testing.T) {
	l := NewLoader(zap.NewNop(),
		WithPrimary(&staticSource{name: SourceHTTP, err: errors.New("connection refused")}),
		WithSnapshots(newSnapshots(t), 0),
	)
	res := l.Load(context.Background())

	if res.OK() {
		t.Fatalf("expected failure, got source %q", res.Source)
	}
	if res.Products == nil || len(res.Products) != 0 {
		t.Errorf("Products = %v, want empty non-nil", res.Products)
	}
	if res.Message != LoadFailedMessage {
		t.Errorf("Message = %q, want %q", res.Message, LoadFailedMessage)
	}
}

func TestLoader_PrunesSnapshots(t *testing.T) {
	snaps := newSnapshots(t)
	l := NewLoader(zap.NewNop(),
		WithPrimary(&staticSource{name: SourceHTTP, data: []byte(`[{"id":"a"}]`)}),
		WithSnapshots(snaps, 2),
	)
	for i := 0; i < 4; i++ {
		l.Load(context.Background())
	}

	list, err := snaps.List(context.Background(), services.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list.Total != 2 {
		t.Errorf("Total = %d, want 2", list.Total)
	}
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"id":"remote"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ok := &HTTPSource{URL: srv.URL + "/products.json", Client: srv.Client()}
	data, err := ok.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != `[{"id":"remote"}]` {
		t.Errorf("data = %s", data)
	}

	missing := &HTTPSource{URL: srv.URL + "/missing.json", Client: srv.Client()}
	if _, err := missing.Fetch(context.Background()); err == nil {
		t.Error("expected error for 404 response")
	}

	unset := &HTTPSource{}
	if _, err := unset.Fetch(context.Background()); !errors.Is(err, ErrNoSource) {
		t.Errorf("unset URL err = %v, want ErrNoSource", err)
	}
}
