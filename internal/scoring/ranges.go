package scoring

import (
	"strconv"

	"github.com/psytools/normscore/internal/instrument"
)

// FacetItemWeights merges the global and facet-level weight maps for a
// facet, facet entries winning. Consumers still default missing items
// to 1.0 at use time.
func FacetItemWeights(in *instrument.Instrument, facetID string) map[string]float64 {
	out := map[string]float64{}
	for k, v := range in.ItemWeights {
		out[k] = v
	}
	if f := in.FacetByID(facetID); f != nil {
		for k, v := range f.ItemWeights {
			out[k] = v
		}
	}
	return out
}

// responseRange returns the (min, max) numeric values of the response
// map, or (0, 3) for an empty map.
func responseRange(in *instrument.Instrument) (float64, float64) {
	lo, hi, found := 0.0, 0.0, false
	for _, v := range in.ResponseMap {
		if !found {
			lo, hi, found = v, v, true
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if !found {
		return 0, 3
	}
	return lo, hi
}

// FacetSumRange returns the theoretical (min, max) raw sum for a facet,
// used by chart and report consumers to scale axes. Negative weights
// flip which response bound contributes to which end.
func FacetSumRange(in *instrument.Instrument, facetID string) (float64, float64) {
	f := in.FacetByID(facetID)
	if f == nil {
		return 0, 0
	}
	weights := FacetItemWeights(in, facetID)
	vmin, vmax := responseRange(in)

	var lo, hi float64
	for _, item := range f.Items {
		w, ok := weights[strconv.Itoa(item)]
		if !ok {
			w = 1.0
		}
		if w >= 0 {
			lo += vmin * w
			hi += vmax * w
		} else {
			lo += vmax * w
			hi += vmin * w
		}
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}
