// Package storage persists uploaded instrument definition files under
// the catalog root, so new instruments can be added to a running
// service without a redeploy.
package storage

import (
	"errors"
	"os"
	"path/filepath"
)

type DefinitionStore struct{ base string }

// NewDefinitionStore roots the store at the catalog's instrument
// directory; category subfolders are created on demand.
func NewDefinitionStore(base string) (*DefinitionStore, error) {
	if base == "" {
		base = "./scales"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &DefinitionStore{base: base}, nil
}

// Put writes a definition under <base>/<category>/<slug>.json and
// returns the path. Category may be empty for root-level definitions.
func (s *DefinitionStore) Put(category, slug string, data []byte) (string, error) {
	if slug == "" {
		return "", errors.New("empty slug")
	}
	dir := s.base
	if category != "" {
		dir = filepath.Join(s.base, filepath.Clean(category))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, filepath.Clean(slug)+".json")
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", err
	}
	return dst, nil
}
