package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HerbHall/byggekatalog/internal/catalog"
	"github.com/HerbHall/byggekatalog/pkg/models"
)

type failingWriter struct{ path string }

func (w failingWriter) Write([]byte) error { return errors.New("disk full") }
func (w failingWriter) Path() string       { return w.path }

type recorder struct {
	mu       sync.Mutex
	source   string
	products []models.Product
	raw      []byte
}

func (r *recorder) Remember(_ context.Context, source string, products []models.Product, raw []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.source = source
	r.products = products
	r.raw = raw
}

func do(t *testing.T, h *Handler, method, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest(method, "/api/v1/admin/products", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestSave_MethodNotAllowed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	h := NewHandler(NewFileWriter(path), nil, zap.NewNop())

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			rec, resp := do(t, h, method, "")
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.False(t, resp.Success)
			assert.Equal(t, MessageMethodNotAllowed, resp.Message)
		})
	}

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "nothing must be written")
}

func TestSave_InvalidPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "{"},
		{name: "missing products", body: `{"items":[]}`},
		{name: "products not array", body: `{"products":{"id":"x"}}`},
		{name: "products string", body: `{"products":"[]"}`},
		{name: "bare array", body: `[{"id":"x"}]`},
		{name: "empty body", body: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "products.json")
			h := NewHandler(NewFileWriter(path), nil, zap.NewNop())

			rec, resp := do(t, h, http.MethodPost, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, MessageInvalidProducts, resp.Message)

			_, err := os.Stat(path)
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestSave_WriteFailure(t *testing.T) {
	h := NewHandler(failingWriter{path: "/data/products.json"}, nil, zap.NewNop())

	rec, resp := do(t, h, http.MethodPost, `{"products":[]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Kunne ikke skrive til fil: /data/products.json", resp.Message)
}

func TestSave_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "products.json")
	h := NewHandler(NewFileWriter(path), nil, zap.NewNop())

	rec, resp := do(t, h, http.MethodPost, `{"products":[]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, MessageWriteFailed+path, resp.Message)
}

func TestSave_WritesWholeDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	h := NewHandler(NewFileWriter(path), nil, zap.NewNop())

	body := `{"version":2,"products":[{"id":"p1","name":"Æble <træ>"}]}`
	rec, resp := do(t, h, http.MethodPost, body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, MessageSaved, resp.Message)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "{\n" +
		"    \"version\": 2,\n" +
		"    \"products\": [\n" +
		"        {\n" +
		"            \"id\": \"p1\",\n" +
		"            \"name\": \"Æble <træ>\"\n" +
		"        }\n" +
		"    ]\n" +
		"}\n"
	assert.Equal(t, want, string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestSave_ReplacesRunningCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	store := catalog.NewStore(nil)
	store.Replace([]models.Product{{ID: "old"}}, catalog.SourceFile)
	rec := &recorder{}

	h := NewHandler(NewFileWriter(path), store, zap.NewNop(), WithSnapshots(rec))
	resp, body := do(t, h, http.MethodPost, `{"products":[{"id":"new-1","name":"Ny"},{"id":"new-2","name":"Ny 2"}]}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, body.Success)

	assert.Equal(t, 2, store.Len())
	assert.Equal(t, SourceAdmin, store.Source())
	_, ok := store.Get("new-1")
	assert.True(t, ok)
	_, ok = store.Get("old")
	assert.False(t, ok)

	assert.Equal(t, SourceAdmin, rec.source)
	assert.Len(t, rec.products, 2)
	assert.True(t, strings.HasPrefix(string(rec.raw), "["))
}

func TestSave_UndecodableRecordsKeepCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	store := catalog.NewStore(nil)
	store.Replace([]models.Product{{ID: "old"}}, catalog.SourceFile)

	h := NewHandler(NewFileWriter(path), store, zap.NewNop())
	resp, body := do(t, h, http.MethodPost, `{"products":[42]}`)
	require.Equal(t, http.StatusOK, resp.Code, "the file write still succeeds")
	assert.True(t, body.Success)

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, catalog.SourceFile, store.Source())
}

func TestSave_SkipsBadRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	store := catalog.NewStore(nil)
	store.Replace([]models.Product{{ID: "old"}}, catalog.SourceFile)

	h := NewHandler(NewFileWriter(path), store, zap.NewNop())
	resp, _ := do(t, h, http.MethodPost,
		`{"products":[{"id":"good","specs":{"lyd":{"a":1}}},{"id":"bad","features":[1]},{"id":"good-2","price":true}]}`)
	require.Equal(t, http.StatusOK, resp.Code)

	assert.Equal(t, 2, store.Len())
	assert.Equal(t, SourceAdmin, store.Source())
	_, ok := store.Get("bad")
	assert.False(t, ok)
	_, ok = store.Get("good-2")
	assert.True(t, ok)
}

func TestSave_RateLimited(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	h := NewHandler(NewFileWriter(path), nil, zap.NewNop(), WithRateLimit(0.001, 1))

	rec, _ := do(t, h, http.MethodPost, `{"products":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := do(t, h, http.MethodPost, `{"products":[]}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, MessageRateLimited, resp.Message)
}

func TestWithRateLimit_Disabled(t *testing.T) {
	h := NewHandler(NewFileWriter("x"), nil, zap.NewNop(), WithRateLimit(0, 5))
	assert.Nil(t, h.limiter)
}
