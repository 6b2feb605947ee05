// Package catalog discovers instrument definitions and normative-study
// files on disk. It is read-only glue in front of the scoring engine:
// files are matched by label, never by path, so studies can live in any
// folder layout.
package catalog

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/psytools/normscore/internal/instrument"
	"github.com/psytools/normscore/internal/normkey"
)

// Entry is one discovered instrument definition file.
type Entry struct {
	Slug     string `json:"slug"`
	Label    string `json:"label"`
	Category string `json:"category"`
	Path     string `json:"-"`
}

// Study is a normative-study JSON matched to an instrument label.
type Study struct {
	Path  string
	Label string
	Def   *instrument.Instrument
}

// Catalog scans a root of category subfolders of instrument JSONs and a
// bibliography folder of norm studies.
type Catalog struct {
	instrumentDir   string
	bibliographyDir string
}

func New(instrumentDir, bibliographyDir string) *Catalog {
	return &Catalog{instrumentDir: instrumentDir, bibliographyDir: bibliographyDir}
}

var categoryLabels = map[string]string{
	"personality": "Personalidade",
	"development": "Desenvolvimento",
	// old category name
	"autism": "Desenvolvimento",
	"scale":  "Escalas",
	"scales": "Escalas",
	"raiz":   "Raiz",
}

// HumanizeCategory maps internal folder names to display labels,
// capitalizing unknown ones.
func HumanizeCategory(folder string) string {
	if label, ok := categoryLabels[normkey.Key(folder)]; ok {
		return label
	}
	if folder == "" {
		return ""
	}
	return strings.ToUpper(folder[:1]) + strings.ToLower(folder[1:])
}

// Discover walks the instrument root for *.json definitions. The
// category is the first-level folder; files at the root fall under
// "Raiz". Labels come from the definition's name when it parses, the
// file stem otherwise. Entries are sorted by category then label.
func (c *Catalog) Discover() ([]Entry, error) {
	var entries []Entry
	root := c.instrumentDir
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		category := "Raiz"
		if parts := strings.Split(filepath.ToSlash(rel), "/"); len(parts) > 1 {
			category = parts[0]
		}

		label := stem(path)
		if raw, readErr := os.ReadFile(path); readErr == nil {
			var meta struct {
				Name   string `json:"name"`
				Titulo string `json:"titulo"`
			}
			if json.Unmarshal(raw, &meta) == nil {
				if name := firstNonEmpty(meta.Name, meta.Titulo); name != "" {
					label = normkey.CollapseWhitespace(name)
				}
			}
		}

		entries = append(entries, Entry{
			Slug:     normkey.Slugify(label),
			Label:    label,
			Category: category,
			Path:     path,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Category != entries[j].Category {
			return entries[i].Category < entries[j].Category
		}
		return strings.ToLower(entries[i].Label) < strings.ToLower(entries[j].Label)
	})
	return entries, nil
}

// Find resolves a slug or label to a discovered entry, insensitively.
func (c *Catalog) Find(idOrLabel string) (Entry, bool) {
	entries, err := c.Discover()
	if err != nil {
		return Entry{}, false
	}
	target := normkey.Key(idOrLabel)
	for _, e := range entries {
		if e.Slug == idOrLabel || normkey.Key(e.Label) == target {
			return e, true
		}
	}
	return Entry{}, false
}

// Load parses the definition behind a discovered entry.
func (c *Catalog) Load(e Entry) (*instrument.Instrument, error) {
	return instrument.Load(e.Path)
}

// FindStudies returns bibliography entries whose scale/name/titulo (or
// file stem, as a fallback) matches the display label insensitively,
// sorted by their study label. A study carries the norm tables and
// classification rules used to score the matching instrument.
func (c *Catalog) FindStudies(displayLabel string) ([]Study, error) {
	target := normkey.Key(displayLabel)
	var out []Study

	err := filepath.WalkDir(c.bibliographyDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			if err != nil && os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		var meta struct {
			Scale   string `json:"scale"`
			Name    string `json:"name"`
			Titulo  string `json:"titulo"`
			Version string `json:"version"`
			Versao  string `json:"versao"`
			Cite    string `json:"cite"`
		}
		if json.Unmarshal(raw, &meta) != nil {
			return nil
		}
		candidate := firstNonEmpty(meta.Scale, meta.Name, meta.Titulo, stem(path))
		if normkey.Key(candidate) != target {
			return nil
		}
		def, loadErr := instrument.Load(raw)
		if loadErr != nil {
			return nil
		}
		out = append(out, Study{
			Path:  path,
			Label: studyLabel(firstNonEmpty(meta.Version, meta.Versao), meta.Cite, firstNonEmpty(meta.Name, meta.Titulo, stem(path))),
			Def:   def,
		})
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Label) < strings.ToLower(out[j].Label)
	})
	return out, nil
}

func studyLabel(bits ...string) string {
	var kept []string
	for _, b := range bits {
		if s := strings.TrimSpace(b); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, " • ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
