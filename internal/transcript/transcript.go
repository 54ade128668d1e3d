// Package transcript holds the token stream produced when a decoded program is
// rendered for audit logs.
package transcript

import (
	"strconv"
	"strings"
)

// Separator closes one rule or statement.
const Separator = "|"

// Transcript is an ordered list of display tokens.
type Transcript []string

// Append adds tokens in order.
func (t *Transcript) Append(tokens ...string) {
	*t = append(*t, tokens...)
}

// Number appends v with two decimals.
func (t *Transcript) Number(v float64) {
	*t = append(*t, strconv.FormatFloat(v, 'f', 2, 64))
}

// End closes the current line.
func (t *Transcript) End() {
	*t = append(*t, Separator)
}

// Lines groups tokens into one space-joined line per separator. A trailing
// group without separator still forms a line.
func (t Transcript) Lines() []string {
	var lines []string
	var cur []string
	for _, tok := range t {
		if tok == Separator {
			lines = append(lines, strings.Join(cur, " "))
			cur = cur[:0]
			continue
		}
		cur = append(cur, tok)
	}
	if len(cur) > 0 {
		lines = append(lines, strings.Join(cur, " "))
	}
	return lines
}

// Format renders the transcript with one line per rule.
func (t Transcript) Format() string {
	return strings.Join(t.Lines(), "\n")
}
