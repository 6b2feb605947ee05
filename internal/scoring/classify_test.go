package scoring

import "testing"

const classifiedScale = `{
	"response_map": {"Nao": 0, "Sim": 1},
	"facets": {"f": {"items": [1]}},
	"classification": [
		{"max_abs_z": 1, "label_above": "A+", "label_below": "A-"},
		{"max_abs_z": 2, "label_above": "B+", "label_below": "B-"},
		{"label_above": "C+", "label_below": "C-"}
	]
}`

func TestClassifyBands(t *testing.T) {
	in := mustLoad(t, classifiedScale)
	cases := []struct {
		z    float64
		want string
	}{
		{0, "A+"},
		{-0.5, "A-"},
		{1.0, "A+"}, // inclusive threshold
		{1.5, "B+"},
		{-1.5, "B-"},
		{3.7, "C+"}, // nil max_abs_z is a catch-all
		{-9, "C-"},
	}
	for _, tc := range cases {
		rows := []ResultRow{{Facet: "f", Z: f(tc.z)}}
		out := Classify(in, rows)
		if len(out) != 1 {
			t.Fatalf("z=%v: %d results", tc.z, len(out))
		}
		if out[0].Label == nil || *out[0].Label != tc.want {
			t.Errorf("z=%v: label = %v, want %q", tc.z, out[0].Label, tc.want)
		}
	}
}

func TestClassifyNilZ(t *testing.T) {
	in := mustLoad(t, classifiedScale)
	out := Classify(in, []ResultRow{{Facet: "f", Z: nil}})
	if out[0].Label != nil {
		t.Errorf("nil z should stay unclassified, got %q", *out[0].Label)
	}
}

func TestClassifyNoRules(t *testing.T) {
	in := mustLoad(t, miniScale)
	out := Classify(in, []ResultRow{{Facet: "geral", Z: f(1.2)}})
	if out[0].Label != nil {
		t.Errorf("empty rule list should stay unclassified, got %q", *out[0].Label)
	}
}

func TestClassifyRespectsDeclarationOrder(t *testing.T) {
	// Rules authored out of ascending order: the engine must not sort.
	in := mustLoad(t, `{
		"response_map": {"Nao": 0, "Sim": 1},
		"facets": {"f": {"items": [1]}},
		"classification": [
			{"max_abs_z": 5, "label_above": "wide+", "label_below": "wide-"},
			{"max_abs_z": 1, "label_above": "narrow+", "label_below": "narrow-"}
		]
	}`)
	out := Classify(in, []ResultRow{{Facet: "f", Z: f(0.5)}})
	if out[0].Label == nil || *out[0].Label != "wide+" {
		t.Errorf("label = %v, want wide+ (first declared match)", out[0].Label)
	}
}
