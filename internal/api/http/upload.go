package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/psytools/normscore/internal/instrument"
	"github.com/psytools/normscore/internal/normkey"
	"github.com/psytools/normscore/internal/storage"
)

// UploadInstrumentHandler accepts a raw definition JSON, validates it,
// and files it under the catalog root so it becomes discoverable
// immediately.
// POST /instruments?category=development
func UploadInstrumentHandler(defs *storage.DefinitionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		in, err := instrument.Load(body)
		if err != nil {
			status := http.StatusBadRequest
			if !errors.Is(err, instrument.ErrInvalidInstrument) {
				status = http.StatusInternalServerError
			}
			http.Error(w, err.Error(), status)
			return
		}

		slug := normkey.Slugify(in.Name)
		path, err := defs.Put(r.URL.Query().Get("category"), slug, body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"slug": slug, "path": path})
	}
}
