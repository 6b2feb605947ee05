package scoring

import (
	"math"

	"github.com/psytools/normscore/internal/instrument"
)

// Classification labels one facet's z-score. Label is nil when the
// facet could not be scored or no rule applied.
type Classification struct {
	Facet string   `json:"facet"`
	Z     *float64 `json:"z"`
	Label *string  `json:"label"`
}

// Classify applies the instrument's classification rules to each result
// row. Rules run in authored order: the first whose max_abs_z is absent
// or >= |z| wins, then the sign of z picks label_above or label_below.
// Rules are expected in ascending max_abs_z order to form bands; the
// engine does not sort them. An empty rule list is a silent
// "unclassified", never an error.
func Classify(in *instrument.Instrument, rows []ResultRow) []Classification {
	out := make([]Classification, 0, len(rows))
	for _, r := range rows {
		out = append(out, Classification{
			Facet: r.Facet,
			Z:     r.Z,
			Label: labelFor(in.Classification, r.Z),
		})
	}
	return out
}

func labelFor(rules []instrument.Rule, z *float64) *string {
	if z == nil {
		return nil
	}
	absZ := math.Abs(*z)
	for _, rule := range rules {
		if rule.MaxAbsZ != nil && absZ > *rule.MaxAbsZ {
			continue
		}
		label := rule.LabelAbove
		if *z < 0 {
			label = rule.LabelBelow
		}
		if label == "" {
			return nil
		}
		return &label
	}
	return nil
}
