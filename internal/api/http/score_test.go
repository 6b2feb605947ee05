package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/psytools/normscore/internal/catalog"
	"github.com/psytools/normscore/internal/session"
)

const testInstrument = `{
	"name": "Mini Escala",
	"response_map": {"Nunca": 0, "Sempre": 3},
	"reverse_items": [2],
	"facets": {
		"geral": {
			"items": [1, 2, 3],
			"norms": {"Clínico": {"mean": 4.5, "sd": 1.5}}
		}
	},
	"classification": [
		{"max_abs_z": 1, "label_above": "Típico alto", "label_below": "Típico baixo"},
		{"label_above": "Elevado", "label_below": "Rebaixado"}
	]
}`

func newTestAPI(t *testing.T) (*chi.Mux, session.Store, *catalog.Catalog) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "scales", "development")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "mini.json"), []byte(testInstrument), 0o644); err != nil {
		t.Fatal(err)
	}

	cat := catalog.New(filepath.Join(root, "scales"), filepath.Join(root, "bibliography"))
	store := session.NewInMemoryStore()

	r := chi.NewRouter()
	r.Get("/instruments", ListInstrumentsHandler(cat))
	r.Get("/instruments/{slug}", GetInstrumentHandler(cat))
	r.Get("/instruments/{slug}/norm-groups", NormGroupsHandler(cat))
	r.Post("/sessions/{sessionID}/answers", SaveAnswersHandler(store))
	r.Post("/sessions/{sessionID}/score", ScoreSessionHandler(cat, store))
	r.Get("/sessions/{sessionID}/report.csv", ReportCSVHandler(cat, store))
	return r, store, cat
}

func TestScoreSessionEndToEnd(t *testing.T) {
	r, store, _ := newTestAPI(t)

	sess, err := store.New("mini_escala", "resp-1")
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/sessions/"+sess.ID+"/answers",
		strings.NewReader(`{"1": "Sempre", "2": "Nunca", "3": "Sempre"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("save answers: status %d: %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/sessions/"+sess.ID+"/score?group=clinico", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("score: status %d: %s", rec.Code, rec.Body)
	}

	var res scoreResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("rows: %d", len(res.Rows))
	}
	row := res.Rows[0]
	if row.Z == nil || *row.Z != -1.0 {
		t.Errorf("z = %v, want -1.0", row.Z)
	}
	if row.Percentile == nil || *row.Percentile != 15.9 {
		t.Errorf("percentile = %v, want 15.9", row.Percentile)
	}
	if res.Completeness.Answered != 3 || res.Completeness.Total != 3 {
		t.Errorf("completeness: %+v", res.Completeness)
	}
	if len(res.Classification) != 1 || res.Classification[0].Label == nil ||
		*res.Classification[0].Label != "Típico baixo" {
		t.Errorf("classification: %+v", res.Classification)
	}
}

func TestScoreEmptySessionDegrades(t *testing.T) {
	r, store, _ := newTestAPI(t)
	sess, _ := store.New("mini_escala", "resp-1")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/sessions/"+sess.ID+"/score", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("score: status %d: %s", rec.Code, rec.Body)
	}
	var res scoreResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	row := res.Rows[0]
	if row.Z != nil || row.Percentile != nil || row.RawSum != nil {
		t.Errorf("empty session should score to nils: %+v", row)
	}
	if res.Classification[0].Label != nil {
		t.Errorf("label should be nil: %+v", res.Classification[0])
	}
	// No group requested and no default: falls back to the single
	// available group.
	if res.NormGroup != "Clínico" {
		t.Errorf("norm group = %q", res.NormGroup)
	}
}

func TestScoreUnknownSession(t *testing.T) {
	r, _, _ := newTestAPI(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/sessions/nope/score", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status %d, want 404", rec.Code)
	}
}

func TestReportCSV(t *testing.T) {
	r, store, _ := newTestAPI(t)
	sess, _ := store.New("mini_escala", "resp-1")
	if _, err := store.SaveAnswers(sess.ID, map[string]any{"1": "Sempre", "2": "Nunca", "3": "Sempre"}); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/sessions/"+sess.ID+"/report.csv?group=Clínico", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "facet,mean_items,z,percentile") {
		t.Errorf("missing header: %q", body)
	}
	if !strings.Contains(body, "geral,3,-1,15.9,9,Clínico,4.5,1.5,Típico baixo") {
		t.Errorf("missing data row: %q", body)
	}
}

func TestNormGroupsEndpoint(t *testing.T) {
	r, _, _ := newTestAPI(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/instruments/mini_escala/norm-groups", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var groups []struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &groups); err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0].ID != "Clínico" || groups[0].Label != "Clínico" {
		t.Errorf("groups: %+v", groups)
	}
}
