package schema

import (
	"encoding/json"
	"sort"
	"strings"
)

// Report lists what Conform changed. Paths use dots for nested fields.
type Report struct {
	Dropped    []string // keys not in the schema
	Backfilled []string // schema keys the input omitted
	Reset      []string // values of the wrong shape replaced by the default
}

// Changed reports whether the input differed from the schema shape.
func (r Report) Changed() bool {
	return len(r.Dropped) > 0 || len(r.Backfilled) > 0 || len(r.Reset) > 0
}

// placeholders are strings models emit for "not present".
var placeholders = map[string]struct{}{
	"null":          {},
	"none":          {},
	"n/a":           {},
	"na":            {},
	"not available": {},
	"not found":     {},
	"not present":   {},
	"not stated":    {},
	"-":             {},
}

// Conform shapes raw into a Record of s. Unknown keys are dropped, missing
// keys are backfilled with defaults, and values of the wrong shape become
// the default. No value is ever produced that was not in raw or a default.
func Conform(s *FieldSchema, raw map[string]any) (Record, Report) {
	var rep Report
	rec := conform(s, raw, "", &rep)
	sort.Strings(rep.Dropped)
	return rec, rep
}

func conform(s *FieldSchema, raw map[string]any, prefix string, rep *Report) Record {
	values := make(map[string]any, len(s.fields))

	for k := range raw {
		if !s.Has(k) {
			rep.Dropped = append(rep.Dropped, prefix+k)
		}
	}

	for _, f := range s.fields {
		path := prefix + f.Name
		v, present := raw[f.Name]
		if !present {
			rep.Backfilled = append(rep.Backfilled, path)
			if f.Kind == KindObject {
				values[f.Name] = DefaultRecord(f.Nested)
			} else {
				values[f.Name] = f.Default()
			}
			continue
		}

		switch f.Kind {
		case KindObject:
			m, ok := v.(map[string]any)
			if !ok {
				if v != nil {
					rep.Reset = append(rep.Reset, path)
				}
				values[f.Name] = DefaultRecord(f.Nested)
				continue
			}
			values[f.Name] = conform(f.Nested, m, path+".", rep)

		case KindSequence:
			values[f.Name] = conformSequence(v, path, rep)

		case KindFalse:
			b, ok := conformFlag(v)
			if !ok {
				rep.Reset = append(rep.Reset, path)
			}
			values[f.Name] = b

		default:
			sv, ok := conformScalar(v)
			if !ok {
				rep.Reset = append(rep.Reset, path)
			}
			values[f.Name] = sv
		}
	}
	return Record{schema: s, values: values}
}

// conformScalar keeps strings, numbers and booleans. Blank strings and
// placeholders become null; a list of strings is joined.
func conformScalar(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case string:
		return cleanString(t), true
	case bool, json.Number, float64, int, int64:
		return t, true
	case []any:
		parts := make([]string, 0, len(t))
		for _, it := range t {
			s, ok := it.(string)
			if !ok {
				return nil, false
			}
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return nil, true
		}
		return strings.Join(parts, "; "), true
	default:
		return nil, false
	}
}

func cleanString(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, ok := placeholders[strings.ToLower(s)]; ok {
		return nil
	}
	return s
}

// conformFlag accepts booleans and unambiguous yes/no strings.
func conformFlag(v any) (bool, bool) {
	switch t := v.(type) {
	case nil:
		return false, true
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "present":
			return true, true
		case "false", "no", "n", "absent", "":
			return false, true
		}
	}
	return false, false
}

// conformSequence drops null and blank elements; a lone scalar is wrapped.
func conformSequence(v any, path string, rep *Report) []any {
	switch t := v.(type) {
	case nil:
		return []any{}
	case []any:
		out := make([]any, 0, len(t))
		for _, it := range t {
			switch e := it.(type) {
			case nil:
				continue
			case string:
				if s := cleanString(e); s != nil {
					out = append(out, s)
				}
			case map[string]any, []any:
				rep.Reset = append(rep.Reset, path)
			default:
				out = append(out, e)
			}
		}
		return out
	case string:
		if s := cleanString(t); s != nil {
			return []any{s}
		}
		return []any{}
	case bool, json.Number, float64:
		return []any{t}
	default:
		rep.Reset = append(rep.Reset, path)
		return []any{}
	}
}
