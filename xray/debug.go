package xray

import (
	"xrb/rawml"
	"xrb/utils/debug"
)

// Dump renders record as indented tree with excerpts and highlighted text
// resolved against the book, correction is the one record was built with.
func Dump(rec *Record, doc *rawml.Document, correction int64) string {
	codec := doc.Codec()
	tw := debug.NewTreeWriter()

	tw.Line(0, "record %s (%s:%s) code page %s", rec.ASIN, rec.Database, rec.GUID, codec.Name())
	tw.Line(1, "range: %d - %d", rec.Range.SRL, rec.Range.ERL)
	tw.Line(1, "chapters: %d", len(rec.Chapters))
	for i, c := range rec.Chapters {
		tw.Line(2, "#%d [%d - %d]", i, c.Start, c.End)
		tw.TextBlock(3, "name", c.Name)
	}

	tw.Line(1, "terms: %d", len(rec.Terms))
	for _, e := range rec.Terms {
		tw.Line(2, "%s %q match_case=%t mentions=%d", e.Kind, e.Name, e.MatchCase, len(e.Occurrences))
		for _, a := range e.Aliases {
			tw.TextBlock(3, "alias", a)
		}
		for _, o := range e.Occurrences {
			tw.Line(3, "%s", o)
			start := o.Position - correction
			excerpt := doc.Slice(start, start+int64(o.ExcerptLength))
			if end := o.HighlightOffset + o.HighlightLength; end <= len(excerpt) {
				tw.TextBlock(4, "mention", codec.DecodeString(string(excerpt[o.HighlightOffset:end])))
				tw.Highlight(4, "excerpt",
					codec.DecodeString(string(excerpt[:o.HighlightOffset])),
					codec.DecodeString(string(excerpt[o.HighlightOffset:end])),
					codec.DecodeString(string(excerpt[end:])))
				continue
			}
			// excerpt does not match book, most likely wrong correction
			tw.TextBlock(4, "excerpt", codec.DecodeString(string(excerpt)))
		}
	}
	return tw.String()
}
