package scoring

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/psytools/normscore/internal/instrument"
)

func mustLoad(t *testing.T, src string) *instrument.Instrument {
	t.Helper()
	in, err := instrument.Load(src)
	if err != nil {
		t.Fatalf("load instrument: %v", err)
	}
	return in
}

const miniScale = `{
	"name": "Mini",
	"response_map": {"Nunca": 0, "Sempre": 3},
	"reverse_items": [2],
	"facets": {
		"geral": {
			"items": [1, 2, 3],
			"norms": {"Clínico": {"mean": 4.5, "sd": 1.5}}
		}
	}
}`

func TestAggregateReverseScoring(t *testing.T) {
	in := mustLoad(t, miniScale)
	answers := Answers{1: "Sempre", 2: "Nunca", 3: "Sempre"}

	stats := Aggregate(in, answers, true)
	st, ok := stats["geral"]
	if !ok {
		t.Fatal("missing facet geral")
	}
	if st.RawSum == nil || *st.RawSum != 9 {
		t.Errorf("raw_sum = %v, want 9 (item 2 reversed 0 -> 3)", st.RawSum)
	}
	if st.MeanItems == nil || *st.MeanItems != 3.0 {
		t.Errorf("mean_items = %v, want 3.0", st.MeanItems)
	}
	if st.NAnswered != 3 || st.NItems != 3 {
		t.Errorf("counts = (%d, %d), want (3, 3)", st.NAnswered, st.NItems)
	}
}

func TestAggregateEmptyAnswerSet(t *testing.T) {
	in := mustLoad(t, miniScale)
	stats := Aggregate(in, Answers{}, true)
	st := stats["geral"]
	if st.RawSum != nil || st.MeanItems != nil {
		t.Errorf("empty answers: raw=%v mean=%v, want nil/nil", st.RawSum, st.MeanItems)
	}
	if st.NAnswered != 0 {
		t.Errorf("n_answered = %d, want 0", st.NAnswered)
	}
}

func TestAggregatePartialData(t *testing.T) {
	in := mustLoad(t, miniScale)
	// Item 2 unanswered, item 3 has an unknown label: both excluded.
	answers := Answers{1: "Sempre", 3: "Talvez"}
	st := Aggregate(in, answers, true)["geral"]
	if st.NAnswered != 1 {
		t.Fatalf("n_answered = %d, want 1", st.NAnswered)
	}
	if st.RawSum == nil || *st.RawSum != 3 {
		t.Errorf("raw_sum = %v, want 3", st.RawSum)
	}
	if st.MeanItems == nil || *st.MeanItems != 3 {
		t.Errorf("mean_items = %v, want 3", st.MeanItems)
	}
}

func TestAggregateNumericAnswers(t *testing.T) {
	in := mustLoad(t, miniScale)
	answers := Answers{1: 2.0, 2: 1.0, 3: 0.0}
	st := Aggregate(in, answers, true)["geral"]
	// item 2 reversed: 3 - 1 = 2; sum = 2 + 2 + 0 = 4
	if st.RawSum == nil || *st.RawSum != 4 {
		t.Errorf("raw_sum = %v, want 4", st.RawSum)
	}
}

func TestAggregateWeights(t *testing.T) {
	in := mustLoad(t, `{
		"response_map": {"Nao": 0, "Sim": 1},
		"apply_item_weights": true,
		"item_weights": {"1": 2.0},
		"facets": {
			"f": {"items": [1, 2], "item_weights": {"2": 0.5}}
		}
	}`)
	answers := Answers{1: "Sim", 2: "Sim"}
	st := Aggregate(in, answers, true)["f"]
	// weighted: 1*2.0 + 1*0.5 = 2.5; unweighted mean: (1+1)/2 = 1
	if st.RawSum == nil || *st.RawSum != 2.5 {
		t.Errorf("raw_sum = %v, want 2.5", st.RawSum)
	}
	if st.MeanItems == nil || *st.MeanItems != 1 {
		t.Errorf("mean_items = %v, want 1", st.MeanItems)
	}
}

func TestAggregateRawSumMetricSkipsMean(t *testing.T) {
	in := mustLoad(t, miniScale)
	st := Aggregate(in, Answers{1: "Sempre"}, false)["geral"]
	if st.MeanItems != nil {
		t.Errorf("mean_items = %v, want nil when standardizing on raw sum", st.MeanItems)
	}
	if st.RawSum == nil {
		t.Error("raw_sum should still be computed")
	}
}

func TestReverseScoringSelfInverse(t *testing.T) {
	const maxVal = 3.0
	for v := 0.0; v <= maxVal; v++ {
		if got := maxVal - (maxVal - v); got != v {
			t.Errorf("double reverse of %v = %v", v, got)
		}
	}
}

func TestAggregateRoundTrip(t *testing.T) {
	in := mustLoad(t, miniScale)
	buf, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	reloaded, err := instrument.Load(buf)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	answers := Answers{1: "Sempre", 2: "Nunca", 3: "Sempre"}
	a := Aggregate(in, answers, true)
	b := Aggregate(reloaded, answers, true)
	if len(a) != len(b) {
		t.Fatalf("facet count %d != %d", len(a), len(b))
	}
	for id, sa := range a {
		sb, ok := b[id]
		if !ok {
			t.Fatalf("facet %q missing after round trip", id)
		}
		if !floatPtrEq(sa.RawSum, sb.RawSum) || !floatPtrEq(sa.MeanItems, sb.MeanItems) ||
			sa.NAnswered != sb.NAnswered || sa.NItems != sb.NItems {
			t.Errorf("facet %q: %+v != %+v", id, sa, sb)
		}
	}
}

func floatPtrEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return math.Abs(*a-*b) < 1e-9
}

func TestFacetSumRange(t *testing.T) {
	in := mustLoad(t, `{
		"response_map": {"Nunca": 0, "Sempre": 3},
		"item_weights": {"2": -1.0},
		"facets": {"f": {"items": [1, 2]}}
	}`)
	lo, hi := FacetSumRange(in, "f")
	// item 1: [0, 3]; item 2 weighted -1: [-3, 0]
	if lo != -3 || hi != 3 {
		t.Errorf("range = (%v, %v), want (-3, 3)", lo, hi)
	}
}
