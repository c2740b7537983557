package summarize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"50,000", 50000, true},
		{"USD 45,000.00", 45000, true},
		{"$1,234.5", 1234.5, true},
		{"50 000 USD", 50000, true},
		{"EUR 1.250.000,00", 1250000, true},
		{"50.000,00 EUR", 50000, true},
		{"1250,00", 1250, true},
		{"CHF 1'250'000.50", 1250000.5, true},
		{"45000.00", 45000, true},
		{"-1,200", -1200, true},
		{"USD 50,000.", 50000, true},
		{"1,2345", 0, false},
		{"1,5", 0, false},
		{"12,34,567", 0, false},
		{"1.250.000.00,5", 0, false},
		{"fifty thousand", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseAmount(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.InDelta(t, tt.want, got, 0.001, tt.in)
	}
}

func TestParseTolerance(t *testing.T) {
	assert.InDelta(t, 5.0, parseTolerance("+/- 5%"), 0.001)
	assert.InDelta(t, 10.0, parseTolerance("10 PCT MORE OR LESS"), 0.001)
	assert.InDelta(t, 2.5, parseTolerance("2.5 %"), 0.001)
	assert.Zero(t, parseTolerance("none"))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "5,000", formatAmount(5000))
	assert.Equal(t, "1,234,567.89", formatAmount(1234567.89))
	assert.Equal(t, "999", formatAmount(999))
	assert.Equal(t, "0.50", formatAmount(0.5))
}

func TestParseDate(t *testing.T) {
	want := time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2026-03-14", "14-Mar-2026", "14-MAR-2026", "14/Mar/2026", "14 March 2026", "March 14, 2026", "14/03/2026", "14.03.2026"} {
		got, ok := parseDate(in)
		if assert.True(t, ok, in) {
			assert.True(t, want.Equal(got), in)
		}
	}
	_, ok := parseDate("sometime")
	assert.False(t, ok)
}

func TestSameParty(t *testing.T) {
	assert.True(t, sameParty("Shenzhen Golden Tech Co., Ltd", "SHENZHEN  golden tech co., ltd."))
	assert.False(t, sameParty("Golden Tech", "Silver Tech"))
}
