// Package instrument holds the validated, in-memory representation of a
// questionnaire definition. Definitions are authored as loosely-shaped
// JSON (field aliases, string numbers, optional blocks); Load normalizes
// all of that once so the scoring engine only ever sees this strict form.
package instrument

import "encoding/json"

// NormParams is a reference population's (mean, sd) pair for one facet.
// Either field may be absent in the source data.
type NormParams struct {
	Mean *float64 `json:"mean,omitempty"`
	SD   *float64 `json:"sd,omitempty"`
}

// Facet is a sub-scale: an ordered group of items plus optional
// per-facet weights and normative statistics.
type Facet struct {
	ID          string
	Items       []int
	ItemWeights map[string]float64
	// NormGroups preserves the declaration order of Norms keys; the
	// resolver's "first available group" fallback depends on it.
	NormGroups []string
	Norms      map[string]NormParams
	// Direct mean/sd stored on the facet itself, last resort after all
	// group lookups fail.
	Mean   *float64
	SD     *float64
	NItems *int
}

// Rule is one classification band. Rules are evaluated in authored
// order against abs(z); MaxAbsZ == nil is a catch-all.
type Rule struct {
	MaxAbsZ    *float64 `json:"max_abs_z"`
	LabelAbove string   `json:"label_above"`
	LabelBelow string   `json:"label_below"`
}

// Item is a single questionnaire prompt, kept for form rendering.
type Item struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// Instrument is the strict representation consumed by scoring.
type Instrument struct {
	Name string

	// ResponseMap maps response labels to numeric scores; its maximum
	// value defines the reverse-scoring ceiling. ResponseOrder keeps
	// the authored label order for form rendering.
	ResponseMap   map[string]float64
	ResponseOrder []string

	// FacetOrder preserves facet declaration order for stable output.
	FacetOrder []string
	Facets     map[string]*Facet

	// Domains group facets for presentation only.
	DomainOrder []string
	Domains     map[string][]string

	ReverseItems     map[int]bool
	ApplyItemWeights bool
	ItemWeights      map[string]float64

	// ZFrom is the raw standardization-metric hint (first non-empty of
	// z_from / z_metric / norm_metric in the source JSON).
	ZFrom string

	DefaultNormGroup  string
	Classification    []Rule
	GroupDescriptions map[string]string

	Items        []Item
	Instructions string
	Traduction   string
}

// FacetByID returns the facet record, nil when unknown.
func (in *Instrument) FacetByID(id string) *Facet {
	return in.Facets[id]
}

// MarshalJSON emits the canonical authoring form, so that a serialized
// instrument reloads into an equivalent strict representation.
func (in *Instrument) MarshalJSON() ([]byte, error) {
	facets := make(map[string]map[string]any, len(in.Facets))
	for id, f := range in.Facets {
		fo := map[string]any{"items": f.Items}
		if len(f.ItemWeights) > 0 {
			fo["item_weights"] = f.ItemWeights
		}
		if len(f.Norms) > 0 {
			fo["norms"] = f.Norms
		}
		if f.Mean != nil {
			fo["mean"] = *f.Mean
		}
		if f.SD != nil {
			fo["sd"] = *f.SD
		}
		if f.NItems != nil {
			fo["n_items"] = *f.NItems
		}
		facets[id] = fo
	}

	reverse := make([]int, 0, len(in.ReverseItems))
	for id := range in.ReverseItems {
		reverse = append(reverse, id)
	}

	out := map[string]any{
		"name":         in.Name,
		"response_map": in.ResponseMap,
		"facets":       facets,
	}
	if len(reverse) > 0 {
		out["reverse_items"] = reverse
	}
	if len(in.Domains) > 0 {
		out["domains"] = in.Domains
	}
	if in.ApplyItemWeights {
		out["apply_item_weights"] = true
	}
	if len(in.ItemWeights) > 0 {
		out["item_weights"] = in.ItemWeights
	}
	if in.ZFrom != "" {
		out["z_from"] = in.ZFrom
	}
	if in.DefaultNormGroup != "" {
		out["default_norm_group"] = in.DefaultNormGroup
	}
	if len(in.Classification) > 0 {
		out["classification"] = in.Classification
	}
	if len(in.GroupDescriptions) > 0 {
		out["norm_group_descriptions"] = in.GroupDescriptions
	}
	if len(in.Items) > 0 {
		out["items"] = in.Items
	}
	if in.Instructions != "" {
		out["instructions"] = in.Instructions
	}
	if in.Traduction != "" {
		out["traduction"] = in.Traduction
	}
	return json.Marshal(out)
}
