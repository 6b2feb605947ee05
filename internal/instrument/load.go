package instrument

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrInvalidInstrument marks a definition that is structurally unusable
// (no facets at all). Data-quality problems inside an otherwise valid
// definition never produce this; they degrade at scoring time instead.
var ErrInvalidInstrument = errors.New("invalid instrument definition")

// Load builds a strict Instrument from any of the shapes callers hand
// us: a decoded JSON object, raw JSON bytes or string, a filesystem
// path, or a reader. A UTF-8 BOM is tolerated on file and raw input.
func Load(src any) (*Instrument, error) {
	data, err := coerceJSON(src)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func coerceJSON(src any) ([]byte, error) {
	switch s := src.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil source", ErrInvalidInstrument)
	case []byte:
		return stripBOM(s), nil
	case json.RawMessage:
		return stripBOM(s), nil
	case map[string]any:
		return json.Marshal(s)
	case io.Reader:
		b, err := io.ReadAll(s)
		if err != nil {
			return nil, err
		}
		return stripBOM(b), nil
	case string:
		if looksLikeJSON(s) {
			return stripBOM([]byte(s)), nil
		}
		b, err := os.ReadFile(s)
		if err != nil {
			return nil, err
		}
		return stripBOM(b), nil
	default:
		return nil, fmt.Errorf("%w: unsupported source type %T", ErrInvalidInstrument, src)
	}
}

func stripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})
}

func looksLikeJSON(s string) bool {
	t := strings.TrimSpace(strings.TrimPrefix(s, "\uFEFF"))
	return strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[")
}

func parse(data []byte) (*Instrument, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInstrument, err)
	}

	in := &Instrument{
		Facets:  map[string]*Facet{},
		Domains: map[string][]string{},
	}

	in.Name = firstString(root, "name", "titulo")
	if in.Name == "" {
		in.Name = "Escala"
	}

	in.ResponseMap, in.ResponseOrder = parseResponseMap(root["response_map"])
	if err := parseFacets(in, root["facets"]); err != nil {
		return nil, err
	}
	parseDomains(in, root["domains"])

	in.ReverseItems = map[int]bool{}
	for _, id := range parseIntList(root["reverse_items"]) {
		in.ReverseItems[id] = true
	}

	in.ApplyItemWeights = parseBool(root["apply_item_weights"])
	in.ItemWeights = parseWeightMap(root["item_weights"])
	in.ZFrom = firstString(root, "z_from", "z_metric", "norm_metric")
	in.DefaultNormGroup = firstString(root, "default_norm_group")
	in.GroupDescriptions = parseStringMap(root["norm_group_descriptions"])
	in.Instructions = firstString(root, "instructions")
	in.Traduction = firstString(root, "traduction", "translation", "traducao", "tradução")

	if raw, ok := root["classification"]; ok {
		var rules []Rule
		if err := json.Unmarshal(raw, &rules); err == nil {
			in.Classification = rules
		}
	}

	parseItems(in, root)
	return in, nil
}

func parseResponseMap(raw json.RawMessage) (map[string]float64, []string) {
	out := map[string]float64{}
	if len(raw) == 0 {
		return out, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return out, nil
	}
	order := objectKeys(raw)
	for label, v := range m {
		if f, ok := toFloat(v); ok {
			out[label] = f
		}
	}
	kept := order[:0]
	for _, k := range order {
		if _, ok := out[k]; ok {
			kept = append(kept, k)
		}
	}
	return out, kept
}

func parseFacets(in *Instrument, raw json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing facets", ErrInvalidInstrument)
	}
	var facets map[string]json.RawMessage
	if err := json.Unmarshal(raw, &facets); err != nil || len(facets) == 0 {
		return fmt.Errorf("%w: missing facets", ErrInvalidInstrument)
	}
	in.FacetOrder = objectKeys(raw)

	for _, id := range in.FacetOrder {
		var fr struct {
			Items       json.RawMessage `json:"items"`
			ItemWeights json.RawMessage `json:"item_weights"`
			Norms       json.RawMessage `json:"norms"`
			Mean        *float64        `json:"mean"`
			SD          *float64        `json:"sd"`
			NItems      *int            `json:"n_items"`
		}
		if err := json.Unmarshal(facets[id], &fr); err != nil {
			continue
		}
		f := &Facet{
			ID:          id,
			Items:       parseIntList(fr.Items),
			ItemWeights: parseWeightMap(fr.ItemWeights),
			Norms:       map[string]NormParams{},
			Mean:        fr.Mean,
			SD:          fr.SD,
			NItems:      fr.NItems,
		}
		if len(fr.Norms) > 0 {
			var norms map[string]NormParams
			if err := json.Unmarshal(fr.Norms, &norms); err == nil {
				f.Norms = norms
				f.NormGroups = objectKeys(fr.Norms)
			}
		}
		in.Facets[id] = f
	}
	if len(in.Facets) == 0 {
		return fmt.Errorf("%w: missing facets", ErrInvalidInstrument)
	}
	return nil
}

func parseDomains(in *Instrument, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var domains map[string][]string
	if err := json.Unmarshal(raw, &domains); err != nil {
		return
	}
	in.Domains = domains
	in.DomainOrder = objectKeys(raw)
}

// parseItems accepts either a list of {id,text}-shaped objects (with
// the usual field aliases) or a list of bare strings, numbering the
// latter by position starting at 1.
func parseItems(in *Instrument, root map[string]json.RawMessage) {
	raw, ok := root["items"]
	if !ok {
		raw = root["itens"]
	}
	if len(raw) == 0 {
		return
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return
	}
	for idx, it := range items {
		switch v := it.(type) {
		case map[string]any:
			id, ok := toInt(firstOf(v, "id", "numero", "index"))
			if !ok {
				id = idx + 1
			}
			text, _ := firstOf(v, "text", "texto", "label").(string)
			in.Items = append(in.Items, Item{ID: id, Text: text})
		default:
			in.Items = append(in.Items, Item{ID: idx + 1, Text: fmt.Sprint(v)})
		}
	}
}

/* ---------------- tolerant value helpers ---------------- */

func firstString(root map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := root[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func parseBool(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	return false
}

func parseIntList(raw json.RawMessage) []int {
	if len(raw) == 0 {
		return nil
	}
	var vals []any
	if err := json.Unmarshal(raw, &vals); err != nil {
		return nil
	}
	out := make([]int, 0, len(vals))
	for _, v := range vals {
		if n, ok := toInt(v); ok {
			out = append(out, n)
		}
	}
	return out
}

// parseWeightMap drops entries whose value is not numeric; the scorer
// treats a missing weight as 1.0.
func parseWeightMap(raw json.RawMessage) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if f, ok := toFloat(v); ok {
			out[k] = f
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseStringMap(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		s := strings.TrimSpace(fmt.Sprint(v))
		if s != "" && v != nil {
			out[k] = s
		}
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

/* ---------------- key-order preservation ---------------- */

// objectKeys returns the keys of a JSON object in declaration order.
// encoding/json maps forget order; the resolver's "first declared
// group" fallback and stable result-row ordering both need it.
func objectKeys(raw json.RawMessage) []string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil
	}
	var keys []string
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil
		}
		k, ok := kt.(string)
		if !ok {
			return nil
		}
		keys = append(keys, k)
		if err := skipValue(dec); err != nil {
			return nil
		}
	}
	return keys
}

func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); ok && (d == '{' || d == '[') {
		for dec.More() {
			if err := skipValue(dec); err != nil {
				return err
			}
		}
		_, err = dec.Token()
		return err
	}
	return nil
}
