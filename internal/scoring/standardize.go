package scoring

import (
	"math"

	"github.com/psytools/normscore/internal/instrument"
	"github.com/psytools/normscore/internal/normkey"
)

// ResultRow is the per-facet outcome of one scoring pass. Rows are
// rebuilt from scratch on every request and never persisted here.
type ResultRow struct {
	Facet      string   `json:"facet"`
	MeanItems  *float64 `json:"mean_items"`
	Z          *float64 `json:"z"`
	Percentile *float64 `json:"percentile"`
	RawSum     *float64 `json:"raw_sum"`
	NormGroup  string   `json:"norm_group"`
	MeanRef    *float64 `json:"mean_ref"`
	SDRef      *float64 `json:"sd_ref"`
}

var rawMetricTokens = map[string]bool{
	"raw": true, "raw_sum": true, "sum": true,
	"bruta": true, "bruto": true, "weighted_sum": true,
}

var meanMetricTokens = map[string]bool{
	"mean": true, "mean_items": true, "item_mean": true,
	"media": true, "media_itens": true,
	"weighted_mean": true, "weighted_items_mean": true,
}

// UseItemMeanForZ decides whether standardization runs on the item mean
// (the default) or on the raw sum, from the instrument's optional
// z_from/z_metric/norm_metric hint. An absent or unrecognized hint
// deliberately falls back to item mean: most published norm tables for
// these instruments are expressed in item-mean units, and binary-scored
// instruments opt into raw sums explicitly.
func UseItemMeanForZ(in *instrument.Instrument) bool {
	k := normkey.Key(in.ZFrom)
	if rawMetricTokens[k] {
		return false
	}
	if meanMetricTokens[k] {
		return true
	}
	return true
}

// computeZ guards every degenerate input: nil value, nil reference and
// zero sd all yield nil rather than an error or an infinity.
func computeZ(x, mean, sd *float64) *float64 {
	if x == nil || mean == nil || sd == nil || *sd == 0 {
		return nil
	}
	z := (*x - *mean) / *sd
	return &z
}

// ZToPercentile maps a z-score through the standard normal CDF onto
// [0, 100], clamped to absorb floating-point overshoot. Nil in, nil out.
func ZToPercentile(z *float64) *float64 {
	if z == nil {
		return nil
	}
	pct := 50.0 * (1.0 + math.Erf(*z/math.Sqrt2))
	if pct < 0 {
		pct = 0
	} else if pct > 100 {
		pct = 100
	}
	return &pct
}

// SummarizeWithNorms joins facet aggregates with their resolved norm
// parameters, producing one row per facet in declaration order. Facets
// whose norms cannot be resolved still get a row, with nil z and
// percentile.
func SummarizeWithNorms(in *instrument.Instrument, stats map[string]FacetStats, group string, useItemMean bool) []ResultRow {
	rows := make([]ResultRow, 0, len(stats))
	for _, facetID := range facetOrder(in) {
		st, ok := stats[facetID]
		if !ok {
			continue
		}
		meanRef, sdRef := ResolveNormParams(in, facetID, group)

		base := st.MeanItems
		if !useItemMean {
			base = st.RawSum
		}
		z := computeZ(base, meanRef, sdRef)
		pct := ZToPercentile(z)

		rows = append(rows, ResultRow{
			Facet:      facetID,
			MeanItems:  roundPtr(st.MeanItems, 3),
			Z:          roundPtr(z, 3),
			Percentile: roundPtr(pct, 1),
			RawSum:     roundPtr(st.RawSum, 3),
			NormGroup:  group,
			MeanRef:    meanRef,
			SDRef:      sdRef,
		})
	}
	return rows
}

func roundPtr(v *float64, decimals int) *float64 {
	if v == nil {
		return nil
	}
	pow := math.Pow10(decimals)
	r := math.Round(*v*pow) / pow
	return &r
}
