// Package scoring implements the normative scoring engine: facet
// aggregation, norm-group resolution, z-score/percentile conversion and
// rule-based classification. Everything here is a pure function over an
// instrument definition and an answer set; no state survives a call.
package scoring

import (
	"strconv"

	"github.com/psytools/normscore/internal/instrument"
)

// Answers maps item id to either a numeric score or a response label
// present in the instrument's response map. Absent or nil entries mean
// the item was not answered.
type Answers map[int]any

// FacetStats is the per-facet aggregate produced by Aggregate.
// RawSum and MeanItems are nil when no item of the facet was answered;
// MeanItems is also nil when the caller standardizes on raw sums.
type FacetStats struct {
	RawSum    *float64 `json:"raw_sum"`
	MeanItems *float64 `json:"mean_items"`
	NAnswered int      `json:"n_answered"`
	NItems    int      `json:"n_items"`
}

// Aggregate scores every facet of the instrument against the answer
// set. Unanswered items, unknown response labels and unparsable values
// are excluded rather than reported: a partially completed form still
// scores on its answered subset.
func Aggregate(in *instrument.Instrument, answers Answers, useItemMean bool) map[string]FacetStats {
	maxVal := maxResponseValue(in)

	out := make(map[string]FacetStats, len(in.Facets))
	for id, f := range in.Facets {
		var (
			nAnswered     int
			unweightedSum float64
			weightedSum   float64
		)
		for _, item := range f.Items {
			raw, ok := answers[item]
			if !ok || raw == nil {
				continue
			}
			val, ok := resolveValue(in, raw)
			if !ok {
				continue
			}
			if in.ReverseItems[item] {
				val = maxVal - val
			}
			nAnswered++
			unweightedSum += val
			if in.ApplyItemWeights {
				weightedSum += val * itemWeight(in, f, item)
			} else {
				weightedSum += val
			}
		}

		stats := FacetStats{NAnswered: nAnswered, NItems: len(f.Items)}
		if nAnswered > 0 {
			ws := weightedSum
			stats.RawSum = &ws
			if useItemMean {
				m := unweightedSum / float64(nAnswered)
				stats.MeanItems = &m
			}
		}
		out[id] = stats
	}
	return out
}

// maxResponseValue infers the scale ceiling from the response map,
// supporting binary instruments as well as Likert scales. Defaults to 3
// when the map is empty.
func maxResponseValue(in *instrument.Instrument) float64 {
	max, found := 0.0, false
	for _, v := range in.ResponseMap {
		if !found || v > max {
			max, found = v, true
		}
	}
	if !found {
		return 3
	}
	return max
}

// resolveValue turns an answer into a numeric score. Labels go through
// the response map; unknown labels and non-numeric values are skipped.
func resolveValue(in *instrument.Instrument, raw any) (float64, bool) {
	if label, ok := raw.(string); ok {
		v, ok := in.ResponseMap[label]
		return v, ok
	}
	return toFloat(raw)
}

// itemWeight resolves an item's weight, facet map over global map,
// defaulting to 1.0.
func itemWeight(in *instrument.Instrument, f *instrument.Facet, item int) float64 {
	key := strconv.Itoa(item)
	if w, ok := f.ItemWeights[key]; ok {
		return w
	}
	if w, ok := in.ItemWeights[key]; ok {
		return w
	}
	return 1.0
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
