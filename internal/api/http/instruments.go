// Package http exposes the scoring engine over a JSON API. Handlers
// are thin: they translate between wire shapes and the catalog,
// session and scoring packages.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/psytools/normscore/internal/catalog"
	"github.com/psytools/normscore/internal/scoring"
)

// ListInstrumentsHandler returns the discovered instrument catalog.
// GET /instruments
func ListInstrumentsHandler(cat *catalog.Catalog) http.HandlerFunc {
	type entryOut struct {
		Slug          string `json:"slug"`
		Label         string `json:"label"`
		Category      string `json:"category"`
		CategoryLabel string `json:"category_label"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := cat.Discover()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out := make([]entryOut, 0, len(entries))
		for _, e := range entries {
			out = append(out, entryOut{
				Slug:          e.Slug,
				Label:         e.Label,
				Category:      e.Category,
				CategoryLabel: catalog.HumanizeCategory(e.Category),
			})
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}

// GetInstrumentHandler returns the respondent-facing form view of one
// instrument: prompts and answer options only. Norm tables, weights and
// classification rules stay server-side.
// GET /instruments/{slug}
func GetInstrumentHandler(cat *catalog.Catalog) http.HandlerFunc {
	type formView struct {
		Slug          string     `json:"slug"`
		Name          string     `json:"name"`
		Instructions  string     `json:"instructions,omitempty"`
		Traduction    string     `json:"traduction,omitempty"`
		AnswerOptions []string   `json:"answer_options"`
		Items         []itemView `json:"items"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		entry, ok := cat.Find(chi.URLParam(r, "slug"))
		if !ok {
			http.Error(w, "instrument not found", http.StatusNotFound)
			return
		}
		in, err := cat.Load(entry)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		view := formView{
			Slug:          entry.Slug,
			Name:          in.Name,
			Instructions:  in.Instructions,
			Traduction:    in.Traduction,
			AnswerOptions: in.ResponseOrder,
		}
		for _, it := range in.Items {
			view.Items = append(view.Items, itemView{ID: it.ID, Text: it.Text})
		}
		_ = json.NewEncoder(w).Encode(view)
	}
}

type itemView struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// StudiesHandler lists the normative studies whose scale label matches
// the instrument.
// GET /instruments/{slug}/studies
func StudiesHandler(cat *catalog.Catalog) http.HandlerFunc {
	type studyOut struct {
		Label string `json:"label"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		entry, ok := cat.Find(chi.URLParam(r, "slug"))
		if !ok {
			http.Error(w, "instrument not found", http.StatusNotFound)
			return
		}
		studies, err := cat.FindStudies(entry.Label)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out := make([]studyOut, 0, len(studies))
		for _, s := range studies {
			out = append(out, studyOut{Label: s.Label})
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}

// NormGroupsHandler enumerates the selectable norm groups of the
// definition that would be used for scoring, with display labels and
// authored descriptions.
// GET /instruments/{slug}/norm-groups?study=...
func NormGroupsHandler(cat *catalog.Catalog) http.HandlerFunc {
	type groupOut struct {
		ID          string  `json:"id"`
		Label       string  `json:"label"`
		Description *string `json:"description,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		entry, ok := cat.Find(chi.URLParam(r, "slug"))
		if !ok {
			http.Error(w, "instrument not found", http.StatusNotFound)
			return
		}
		ref, _, err := scoringDefinition(cat, entry, r.URL.Query().Get("study"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		groups, labels := scoring.NormGroupOptions(ref)
		out := make([]groupOut, 0, len(groups))
		for i, g := range groups {
			out = append(out, groupOut{
				ID:          g,
				Label:       labels[i],
				Description: scoring.GroupDescription(ref, g),
			})
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
