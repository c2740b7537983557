package ocr

import (
	"regexp"
	"strings"
)

var (
	whitespace = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\f", "\n", "\u00a0", " ", "\t", " ")
	reRuled    = regexp.MustCompile(`^[_\-=|+ ]{3,}$`)
)

// Normalize cleans raw tool output line by line. Page breaks become line
// breaks, spacing inside a line collapses to single spaces, ruled lines are
// dropped and runs of blank lines collapse to one.
func Normalize(s string) string {
	var b strings.Builder
	blank := false
	for _, line := range strings.Split(whitespace.Replace(s), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		switch {
		case line == "":
			blank = true
			continue
		case reRuled.MatchString(line):
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
			if blank {
				b.WriteByte('\n')
			}
		}
		blank = false
		b.WriteString(line)
	}
	return b.String()
}
