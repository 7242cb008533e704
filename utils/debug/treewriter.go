// Package debug has helpers for human readable dumps stored in debug reports.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	indent    = "  "
	markOpen  = "[["
	markClose = "]]"
)

// TreeWriter accumulates indented text, one node per line.
type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

func (tw TreeWriter) pad(depth int) {
	tw.w.WriteString(strings.Repeat(indent, max(depth, 0)))
}

func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.pad(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// TextBlock writes labeled value quoted, so control characters and markup
// stay on one line.
func (tw TreeWriter) TextBlock(depth int, label, value string) {
	tw.pad(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

// Highlight writes labeled text with the marked part enclosed in double
// brackets.
func (tw TreeWriter) Highlight(depth int, label, before, mark, after string) {
	tw.TextBlock(depth, label, before+markOpen+mark+markClose+after)
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
