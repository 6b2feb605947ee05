package scoring

import (
	"sort"
	"strings"

	"github.com/psytools/normscore/internal/instrument"
	"github.com/psytools/normscore/internal/normkey"
)

// resolveStep is one strategy in the norm-resolution fallback chain.
// Returning ok=false passes control to the next step.
type resolveStep func(in *instrument.Instrument, f *instrument.Facet, group string) (mean, sd *float64, ok bool)

// The chain is evaluated in order; keeping it as an explicit list makes
// each fallback testable on its own.
var resolveChain = []resolveStep{
	exactGroupMatch,
	insensitiveGroupMatch,
	defaultGroupMatch,
	firstDeclaredGroup,
	facetDirectParams,
}

// ResolveNormParams returns the (mean, sd) reference pair for a facet
// and requested norm group. It never fails: when every fallback is
// exhausted both values are nil and the caller's z-score degrades to
// nil downstream.
func ResolveNormParams(in *instrument.Instrument, facetID, group string) (*float64, *float64) {
	f := in.FacetByID(facetID)
	if f == nil {
		return nil, nil
	}
	for _, step := range resolveChain {
		if mean, sd, ok := step(in, f, group); ok {
			return mean, sd
		}
	}
	return nil, nil
}

func exactGroupMatch(_ *instrument.Instrument, f *instrument.Facet, group string) (*float64, *float64, bool) {
	if p, ok := f.Norms[group]; ok {
		return p.Mean, p.SD, true
	}
	return nil, nil, false
}

func insensitiveGroupMatch(_ *instrument.Instrument, f *instrument.Facet, group string) (*float64, *float64, bool) {
	target := normkey.Key(group)
	for _, g := range declaredGroups(f) {
		if normkey.Key(g) == target {
			p := f.Norms[g]
			return p.Mean, p.SD, true
		}
	}
	return nil, nil, false
}

func defaultGroupMatch(in *instrument.Instrument, f *instrument.Facet, _ string) (*float64, *float64, bool) {
	if in.DefaultNormGroup == "" {
		return nil, nil, false
	}
	if mean, sd, ok := exactGroupMatch(in, f, in.DefaultNormGroup); ok {
		return mean, sd, true
	}
	return insensitiveGroupMatch(in, f, in.DefaultNormGroup)
}

// firstDeclaredGroup is the "any available group" fallback. The tie-break
// is the first group in declaration order, so resolution stays
// deterministic for a given definition file.
func firstDeclaredGroup(_ *instrument.Instrument, f *instrument.Facet, _ string) (*float64, *float64, bool) {
	gs := declaredGroups(f)
	if len(gs) == 0 {
		return nil, nil, false
	}
	p := f.Norms[gs[0]]
	return p.Mean, p.SD, true
}

func facetDirectParams(_ *instrument.Instrument, f *instrument.Facet, _ string) (*float64, *float64, bool) {
	if f.Mean == nil && f.SD == nil {
		return nil, nil, false
	}
	return f.Mean, f.SD, true
}

// declaredGroups returns the facet's norm groups in declaration order,
// falling back to sorted keys for definitions that arrived through an
// order-less map.
func declaredGroups(f *instrument.Facet) []string {
	if len(f.NormGroups) == len(f.Norms) && len(f.NormGroups) > 0 {
		return f.NormGroups
	}
	gs := make([]string, 0, len(f.Norms))
	for g := range f.Norms {
		gs = append(gs, g)
	}
	sort.Strings(gs)
	return gs
}

/* ---------------- group enumeration ---------------- */

// prettyGroupLabels maps normalized group keys to display labels; the
// source studies are Portuguese-language norm tables.
var prettyGroupLabels = map[string]string{
	"clinico":     "Clínico",
	"comunitario": "Comunitário",
	"total":       "Total",
	"alto risco":  "Alto Risco",
	"normativo":   "Normativo",
	"controle":    "Controle",
	"autistas":    "Autistas",
}

// groupOrderPref fixes the presentation order for the common groups;
// anything unrecognized sorts after them, alphabetically by key.
var groupOrderPref = []string{"clinico", "comunitario", "total", "controle", "autistas"}

// NormGroupOptions collects every norm group declared by any facet,
// deduplicated case/accent/whitespace-insensitively. It returns the
// original group keys alongside human-friendly labels, both in a fixed
// preferred order.
func NormGroupOptions(in *instrument.Instrument) (groups, labels []string) {
	seen := map[string]bool{}
	for _, facetID := range facetOrder(in) {
		f := in.Facets[facetID]
		for _, g := range declaredGroups(f) {
			raw := strings.TrimSpace(g)
			k := normkey.Key(raw)
			if !seen[k] {
				seen[k] = true
				groups = append(groups, raw)
			}
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		ri, rj := prefRank(groups[i]), prefRank(groups[j])
		if ri != rj {
			return ri < rj
		}
		return normkey.Key(groups[i]) < normkey.Key(groups[j])
	})

	labels = make([]string, len(groups))
	for i, g := range groups {
		if pretty, ok := prettyGroupLabels[normkey.Key(g)]; ok {
			labels[i] = pretty
		} else {
			labels[i] = g
		}
	}
	return groups, labels
}

func prefRank(group string) int {
	k := normkey.Key(group)
	for i, p := range groupOrderPref {
		if p == k {
			return i
		}
	}
	return len(groupOrderPref) + 1
}

// GroupDescription returns the free-text description authored for a
// norm group, matching the key exactly first and insensitively second.
// Nil when absent or blank.
func GroupDescription(in *instrument.Instrument, group string) *string {
	if len(in.GroupDescriptions) == 0 {
		return nil
	}
	if txt, ok := in.GroupDescriptions[group]; ok {
		return nonEmpty(txt)
	}
	target := normkey.Key(group)
	for k, txt := range in.GroupDescriptions {
		if normkey.Key(k) == target {
			return nonEmpty(txt)
		}
	}
	return nil
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// facetOrder yields facet ids in declaration order, with a sorted
// fallback for order-less definitions.
func facetOrder(in *instrument.Instrument) []string {
	if len(in.FacetOrder) == len(in.Facets) && len(in.FacetOrder) > 0 {
		return in.FacetOrder
	}
	ids := make([]string, 0, len(in.Facets))
	for id := range in.Facets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
