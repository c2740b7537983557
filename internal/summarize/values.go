package summarize

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/joseph-ayodele/tradedocs/internal/schema"
)

// text returns the scalar at key as trimmed text. Numbers keep their
// literal form.
func text(r schema.Record, key string) string {
	v, ok := r.Get(key)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

var reAmount = regexp.MustCompile(`-?\d[\d.,\s']*`)

// parseAmount reads "USD 50,000.00", "50 000", "$45,000" or
// "EUR 1.250.000,00" as a number. Digit groups must be well formed; an
// ambiguous form such as "1,5" is rejected rather than guessed.
func parseAmount(s string) (float64, bool) {
	m := strings.TrimRightFunc(reAmount.FindString(s), func(r rune) bool {
		return r == '.' || r == ',' || r == '\'' || unicode.IsSpace(r)
	})
	if m == "" {
		return 0, false
	}
	neg := strings.HasPrefix(m, "-")
	whole, frac, ok := splitDecimal(strings.TrimPrefix(m, "-"))
	if !ok {
		return 0, false
	}
	digits, ok := ungroup(whole)
	if !ok || !allDigits(frac) {
		return 0, false
	}
	if frac != "" {
		digits += "." + frac
	}
	f, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

// splitDecimal separates the fraction. With both marks present the last one
// is decimal. A lone comma is decimal only before exactly two digits; a lone
// dot is always decimal. Repeated marks are grouping.
func splitDecimal(s string) (whole, frac string, ok bool) {
	dot, comma := strings.LastIndexByte(s, '.'), strings.LastIndexByte(s, ',')
	var at int
	switch {
	case dot >= 0 && comma >= 0:
		at = max(dot, comma)
		if strings.Count(s, s[at:at+1]) > 1 {
			return "", "", false
		}
	case comma >= 0:
		if strings.Count(s, ",") > 1 || len(s)-comma-1 == 3 {
			return s, "", true
		}
		if len(s)-comma-1 != 2 {
			return "", "", false
		}
		at = comma
	case dot >= 0:
		if strings.Count(s, ".") > 1 {
			return s, "", true
		}
		at = dot
	default:
		return s, "", true
	}
	return s[:at], s[at+1:], true
}

// ungroup strips thousands separators from the integer part. Only one kind of
// separator may appear; the first group holds one to three digits and every
// later group exactly three.
func ungroup(s string) (string, bool) {
	groups := strings.FieldsFunc(s, isGroupMark)
	if len(groups) == 0 {
		return "", false
	}
	var mark rune
	for _, r := range s {
		if !isGroupMark(r) {
			continue
		}
		if unicode.IsSpace(r) {
			r = ' '
		}
		if mark != 0 && r != mark {
			return "", false
		}
		mark = r
	}
	for i, g := range groups {
		if !allDigits(g) {
			return "", false
		}
		if len(groups) > 1 && ((i == 0 && len(g) > 3) || (i > 0 && len(g) != 3)) {
			return "", false
		}
	}
	return strings.Join(groups, ""), true
}

func isGroupMark(r rune) bool {
	return r == ',' || r == '.' || r == '\'' || unicode.IsSpace(r)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var rePercent = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)

// parseTolerance reads "+/- 5%" or "10 PCT MORE OR LESS" as a percentage.
func parseTolerance(s string) float64 {
	if m := rePercent.FindStringSubmatch(s); m != nil {
		f, _ := strconv.ParseFloat(m[1], 64)
		return f
	}
	up := strings.ToUpper(s)
	if strings.Contains(up, "PCT") || strings.Contains(up, "PERCENT") {
		if f, ok := parseAmount(s); ok {
			return math.Abs(f)
		}
	}
	return 0
}

// formatAmount renders 45000 as "45,000" and 1234.5 as "1,234.50".
func formatAmount(f float64) string {
	neg := f < 0
	f = math.Abs(f)
	whole := int64(f)
	cents := int64(math.Round((f - float64(whole)) * 100))
	if cents == 100 {
		whole++
		cents = 0
	}
	digits := strconv.FormatInt(whole, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if cents > 0 {
		fmt.Fprintf(&b, ".%02d", cents)
	}
	return b.String()
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02-Jan-2006",
	"2-Jan-2006",
	"02/Jan/2006",
	"2/Jan/2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"02-January-2006",
	"2 January 2006",
	"02 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02/01/2006",
	"02.01.2006",
	"02-01-2006",
	"20060102",
	"2006-01-02T15:04:05Z07:00",
}

// parseDate tries the layouts seen on trade documents, day-first for
// numeric forms. Month names match case-insensitively.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// sameParty compares names ignoring case, spacing and trailing punctuation.
func sameParty(a, b string) bool {
	return foldName(a) == foldName(b)
}

func foldName(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	return strings.TrimRight(s, ".,;")
}

// sameReference compares document numbers ignoring case and spacing.
func sameReference(a, b string) bool {
	norm := func(s string) string {
		return strings.ToUpper(strings.Join(strings.Fields(s), ""))
	}
	return norm(a) == norm(b)
}
