package http

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/psytools/normscore/internal/catalog"
	"github.com/psytools/normscore/internal/instrument"
	"github.com/psytools/normscore/internal/normkey"
	"github.com/psytools/normscore/internal/scoring"
	"github.com/psytools/normscore/internal/session"
)

// scoreResult is the full outcome of one scoring pass, rebuilt on every
// request and never persisted.
type scoreResult struct {
	Instrument     string                   `json:"instrument"`
	Study          string                   `json:"study,omitempty"`
	NormGroup      string                   `json:"norm_group"`
	UseItemMean    bool                     `json:"use_item_mean"`
	Rows           []scoring.ResultRow      `json:"rows"`
	Classification []scoring.Classification `json:"classification"`
	Completeness   completeness             `json:"completeness"`
}

type completeness struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

// scoringDefinition picks the definition the engine should score
// against: the named study when requested, otherwise the instrument's
// own definition when it carries norms, otherwise the first matching
// study.
func scoringDefinition(cat *catalog.Catalog, entry catalog.Entry, studyLabel string) (*instrument.Instrument, string, error) {
	def, err := cat.Load(entry)
	if err != nil {
		return nil, "", err
	}

	studies, err := cat.FindStudies(entry.Label)
	if err != nil {
		return nil, "", err
	}
	if studyLabel != "" {
		target := normkey.Key(studyLabel)
		for _, s := range studies {
			if normkey.Key(s.Label) == target {
				return s.Def, s.Label, nil
			}
		}
		return nil, "", fmt.Errorf("study %q not found", studyLabel)
	}
	if !hasNorms(def) && len(studies) > 0 {
		return studies[0].Def, studies[0].Label, nil
	}
	return def, "", nil
}

func hasNorms(in *instrument.Instrument) bool {
	for _, f := range in.Facets {
		if len(f.Norms) > 0 || f.Mean != nil || f.SD != nil {
			return true
		}
	}
	return false
}

func computeScore(cat *catalog.Catalog, store session.Store, sessionID, group, study string) (*scoreResult, int, error) {
	sess, err := store.Get(sessionID)
	if err != nil {
		return nil, http.StatusNotFound, err
	}
	entry, ok := cat.Find(sess.InstrumentID)
	if !ok {
		return nil, http.StatusConflict, fmt.Errorf("instrument %q no longer in catalog", sess.InstrumentID)
	}
	ref, studyLabel, err := scoringDefinition(cat, entry, study)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	if group == "" {
		group = ref.DefaultNormGroup
	}
	if group == "" {
		if groups, _ := scoring.NormGroupOptions(ref); len(groups) > 0 {
			group = groups[0]
		}
	}

	useItemMean := scoring.UseItemMeanForZ(ref)
	stats := scoring.Aggregate(ref, sess.ScoringAnswers(), useItemMean)
	rows := scoring.SummarizeWithNorms(ref, stats, group, useItemMean)

	res := &scoreResult{
		Instrument:     entry.Slug,
		Study:          studyLabel,
		NormGroup:      group,
		UseItemMean:    useItemMean,
		Rows:           rows,
		Classification: scoring.Classify(ref, rows),
	}
	for _, st := range stats {
		res.Completeness.Answered += st.NAnswered
		res.Completeness.Total += st.NItems
	}
	return res, http.StatusOK, nil
}

// ScoreSessionHandler scores a session against a norm group.
// POST /sessions/{sessionID}/score?group=...&study=...
func ScoreSessionHandler(cat *catalog.Catalog, store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		res, status, err := computeScore(cat, store, chi.URLParam(r, "sessionID"), q.Get("group"), q.Get("study"))
		if err != nil {
			http.Error(w, err.Error(), status)
			return
		}
		_ = json.NewEncoder(w).Encode(res)
	}
}

// ReportCSVHandler renders the same scoring pass as a CSV table for
// spreadsheet hand-off.
// GET /sessions/{sessionID}/report.csv?group=...&study=...
func ReportCSVHandler(cat *catalog.Catalog, store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		res, status, err := computeScore(cat, store, chi.URLParam(r, "sessionID"), q.Get("group"), q.Get("study"))
		if err != nil {
			http.Error(w, err.Error(), status)
			return
		}

		labels := make(map[string]*string, len(res.Classification))
		for _, c := range res.Classification {
			labels[c.Facet] = c.Label
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="report.csv"`)
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"facet", "mean_items", "z", "percentile", "raw_sum", "norm_group", "mean_ref", "sd_ref", "classification"})
		for _, row := range res.Rows {
			_ = cw.Write([]string{
				row.Facet,
				fmtPtr(row.MeanItems),
				fmtPtr(row.Z),
				fmtPtr(row.Percentile),
				fmtPtr(row.RawSum),
				row.NormGroup,
				fmtPtr(row.MeanRef),
				fmtPtr(row.SDRef),
				strPtr(labels[row.Facet]),
			})
		}
		cw.Flush()
	}
}

func fmtPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%g", *v)
}

func strPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
