// Package parser turns raw license daemon activity logs into typed events,
// reconstructed usage sessions and server metadata.
package parser

import (
	"regexp"
	"strings"
)

// ClassifiedLine is one log line that matched the base grammar: a clock time,
// a parenthesized daemon name and the remaining message.
type ClassifiedLine struct {
	Time    string // "H:MM:SS" or "HH:MM:SS"
	Daemon  string
	Message string
	Raw     string
}

// lineRegex is the single fixed pattern of the base grammar. Daemon names may
// contain word characters, spaces, dots and hyphens.
var lineRegex = regexp.MustCompile(`^\s*(\d{1,2}:\d{2}:\d{2})\s+\(([\w .\-]+)\)\s*(.*)$`)

// ClassifyLine applies the base grammar to a single line. Returns false for
// lines that do not match; those are skipped, not errors, since license logs
// interleave banner text with timestamped records.
func ClassifyLine(line string) (ClassifiedLine, bool) {
	line = strings.TrimRight(line, "\r")
	m := lineRegex.FindStringSubmatch(line)
	if m == nil {
		return ClassifiedLine{}, false
	}
	return ClassifiedLine{
		Time:    m[1],
		Daemon:  m[2],
		Message: m[3],
		Raw:     line,
	}, true
}

// ClassifyText splits raw text into classified lines, preserving order.
// Handles both \n and \r\n line endings in one pass with no lookahead.
func ClassifyText(text string) []ClassifiedLine {
	lines := strings.Split(text, "\n")
	out := make([]ClassifiedLine, 0, len(lines))
	for _, line := range lines {
		if cl, ok := ClassifyLine(line); ok {
			out = append(out, cl)
		}
	}
	return out
}
