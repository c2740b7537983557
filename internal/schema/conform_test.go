package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/tradedocs/constants"
	"github.com/joseph-ayodele/tradedocs/internal/llm"
)

func lcSchema(t *testing.T) *FieldSchema {
	t.Helper()
	cfgs, err := Builtin()
	require.NoError(t, err)
	return cfgs[constants.LetterOfCredit].Schema
}

func TestConform_DropsUnknownAndBackfills(t *testing.T) {
	s := lcSchema(t)
	raw := map[string]any{
		"lc_number":       "LC-2026-0042",
		"lc_amount":       "50,000",
		"confidence":      0.93,
		"bank_swift_code": "EBILAEAD",
		"documents_required": map[string]any{
			"certificate_of_origin": true,
			"insurance_policy":      true,
		},
	}

	rec, rep := Conform(s, raw)

	assert.Equal(t, []string{"bank_swift_code", "confidence", "documents_required.insurance_policy"}, rep.Dropped)
	assert.Contains(t, rep.Backfilled, "issuing_bank")
	assert.Contains(t, rep.Backfilled, "documents_required.packing_list")
	assert.True(t, rep.Changed())

	assert.Equal(t, "LC-2026-0042", rec.String("lc_number"))
	v, ok := rec.Get("issuing_bank")
	assert.True(t, ok)
	assert.Nil(t, v)

	docs, ok := rec.Object("documents_required")
	require.True(t, ok)
	assert.True(t, docs.Bool("certificate_of_origin"))
	assert.False(t, docs.Bool("packing_list"))
	assert.Empty(t, docs.Strings("special_certificates"))

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	compiled, err := llm.CompileSchema(JSONSchema(s))
	require.NoError(t, err)
	assert.NoError(t, llm.ValidateJSON(compiled, b))
	assert.NotContains(t, string(b), "confidence")
}

func TestConform_ValueShapes(t *testing.T) {
	s, err := New(
		Field{Name: "name", Kind: KindNull},
		Field{Name: "flag", Kind: KindFalse},
		Field{Name: "list", Kind: KindSequence},
	)
	require.NoError(t, err)

	tests := []struct {
		name      string
		raw       map[string]any
		wantName  any
		wantFlag  bool
		wantList  []string
		wantReset []string
	}{
		{
			name:     "clean",
			raw:      map[string]any{"name": "  ACME  ", "flag": true, "list": []any{"a", "b"}},
			wantName: "ACME", wantFlag: true, wantList: []string{"a", "b"},
		},
		{
			name:     "placeholders",
			raw:      map[string]any{"name": "N/A", "flag": "no", "list": nil},
			wantName: nil, wantFlag: false, wantList: []string{},
		},
		{
			name:     "yes string flag and scalar list",
			raw:      map[string]any{"name": "", "flag": "Yes", "list": "Non-negotiable documents"},
			wantName: nil, wantFlag: true, wantList: []string{"Non-negotiable documents"},
		},
		{
			name:     "string list joins",
			raw:      map[string]any{"name": []any{"Line 1", "Line 2"}, "flag": false, "list": []any{"x", nil, " "}},
			wantName: "Line 1; Line 2", wantFlag: false, wantList: []string{"x"},
		},
		{
			name:      "wrong shapes reset",
			raw:       map[string]any{"name": map[string]any{"a": 1}, "flag": "maybe", "list": map[string]any{}},
			wantName:  nil, wantFlag: false, wantList: []string{},
			wantReset: []string{"name", "flag", "list"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, rep := Conform(s, tt.raw)
			v, _ := rec.Get("name")
			assert.Equal(t, tt.wantName, v)
			assert.Equal(t, tt.wantFlag, rec.Bool("flag"))
			assert.Equal(t, tt.wantList, rec.Strings("list"))
			assert.ElementsMatch(t, tt.wantReset, rep.Reset)
		})
	}
}

func TestConform_NestedNonObjectUsesDefaults(t *testing.T) {
	s := lcSchema(t)
	rec, rep := Conform(s, map[string]any{"documents_required": "Invoice, AWB"})
	assert.Contains(t, rep.Reset, "documents_required")
	docs, ok := rec.Object("documents_required")
	require.True(t, ok)
	assert.False(t, docs.Bool("commercial_invoice"))
}

func TestConform_KeysAreSubsetForEveryType(t *testing.T) {
	cfgs, err := Builtin()
	require.NoError(t, err)
	noisy := map[string]any{"extra": 1, "notes": "inferred", "invoice_number": "INV-1", "lc_number": "LC-1"}
	for dt, c := range cfgs {
		rec, _ := Conform(c.Schema, noisy)
		var m map[string]any
		b, err := json.Marshal(rec)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(b, &m))
		for k := range m {
			assert.True(t, c.Schema.Has(k), "%s: unexpected key %s", dt, k)
		}
		assert.Len(t, m, c.Schema.Len())
	}
}
