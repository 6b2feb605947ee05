package http

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/psytools/normscore/internal/catalog"
	"github.com/psytools/normscore/internal/storage"
)

func TestUploadInstrument(t *testing.T) {
	root := t.TempDir()
	scales := filepath.Join(root, "scales")
	defs, err := storage.NewDefinitionStore(scales)
	if err != nil {
		t.Fatal(err)
	}
	h := UploadInstrumentHandler(defs)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest("POST", "/instruments?category=development",
		strings.NewReader(testInstrument)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}

	// Immediately discoverable by the catalog.
	cat := catalog.New(scales, filepath.Join(root, "bibliography"))
	e, ok := cat.Find("mini_escala")
	if !ok {
		t.Fatal("uploaded instrument not discoverable")
	}
	if e.Category != "development" {
		t.Errorf("category = %q", e.Category)
	}

	// Structurally invalid definitions are rejected.
	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest("POST", "/instruments", strings.NewReader(`{"name": "x"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid upload: status %d, want 400", rec.Code)
	}
}
