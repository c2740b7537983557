package llm

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeObject_RoundTrip(t *testing.T) {
	objects := []map[string]any{
		{"invoice_number": "PI-CB-CHN-00125", "total_amount": "50,000", "hs_code": nil},
		{"documents_required": map[string]any{"certificate_of_origin": true, "special_certificates": []any{}}},
		{"quantity": 20, "unit_price": 2500.5, "flags": []any{true, false}},
		{},
	}
	wrappers := []struct {
		name string
		wrap func(string) string
	}{
		{"bare", func(s string) string { return s }},
		{"fenced json", func(s string) string { return "```json\n" + s + "\n```" }},
		{"fenced upper", func(s string) string { return "```JSON\n" + s + "\n```" }},
		{"prose and fence", func(s string) string {
			return "Here is the extracted data you asked for:\n```json\n" + s + "\n```\nLet me know if you need more."
		}},
		{"plain fence with whitespace", func(s string) string { return "\n\n  ```\n" + s + "```  \n" }},
	}

	for _, obj := range objects {
		raw, err := json.Marshal(obj)
		require.NoError(t, err)

		var want map[string]any
		require.NoError(t, json.Unmarshal(raw, &want))

		for _, w := range wrappers {
			t.Run(w.name, func(t *testing.T) {
				got, err := DecodeObject(w.wrap(string(raw)))
				require.NoError(t, err)

				// compare through a json round trip so json.Number and float64 agree
				gotRaw, err := json.Marshal(got)
				require.NoError(t, err)
				var gotNorm map[string]any
				require.NoError(t, json.Unmarshal(gotRaw, &gotNorm))
				assert.Equal(t, want, gotNorm)
			})
		}
	}
}

func TestDecodeObject_PreservesNumbers(t *testing.T) {
	got, err := DecodeObject(`{"lc_amount": 50000.00}`)
	require.NoError(t, err)
	assert.Equal(t, json.Number("50000.00"), got["lc_amount"])
}

func TestDecodeObject_Failures(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		reason string
	}{
		{"empty", "", ReasonEmpty},
		{"whitespace", " \n\t  ", ReasonEmpty},
		{"no braces", "INVOICE", ReasonNoObject},
		{"only fences", "```json\n```", ReasonNoObject},
		{"reversed braces", "} nothing here {", ReasonNoObject},
		{"invalid span", "{not json}", ReasonInvalidJSON},
		{"two objects", `{"a":1} and also {"b":2}`, ReasonInvalidJSON},
		{"array", `[1,2,3]`, ReasonNoObject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeObject(tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDecode))

			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.reason, de.Reason)
			assert.Equal(t, tt.in, de.Raw)
		})
	}
}
