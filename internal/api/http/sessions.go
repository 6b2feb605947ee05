package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/psytools/normscore/internal/auth"
	"github.com/psytools/normscore/internal/catalog"
	"github.com/psytools/normscore/internal/session"
)

// CreateSessionHandler starts an answer session for an instrument. The
// respondent identity comes from the token.
// POST /sessions  { "instrument": "<slug>" }
func CreateSessionHandler(store session.Store, cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Instrument string `json:"instrument"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		entry, ok := cat.Find(req.Instrument)
		if !ok {
			http.Error(w, "instrument not found", http.StatusNotFound)
			return
		}
		respondent := auth.SubjectFromContext(r.Context())
		s, err := store.New(entry.Slug, respondent)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(s)
	}
}

// SaveAnswersHandler merges a batch of answers into the session.
// POST /sessions/{sessionID}/answers  { "1": "Sempre", "2": 1 }
func SaveAnswersHandler(store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		var answers map[string]any
		if err := json.NewDecoder(r.Body).Decode(&answers); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		s, err := store.SaveAnswers(id, answers)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(s)
	}
}

// SubmitSessionHandler freezes the answer set.
// POST /sessions/{sessionID}/submit
func SubmitSessionHandler(store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := store.Submit(chi.URLParam(r, "sessionID"))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(s)
	}
}

// GetSessionHandler returns a session with its saved answers.
// GET /sessions/{sessionID}
func GetSessionHandler(store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := store.Get(chi.URLParam(r, "sessionID"))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(s)
	}
}

// ListMySessionsHandler lists the caller's sessions.
// GET /sessions
func ListMySessionsHandler(store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := store.ListByRespondent(auth.SubjectFromContext(r.Context()))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if out == nil {
			out = []session.Session{}
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, session.ErrSubmitted):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
