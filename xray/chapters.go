package xray

import (
	"errors"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"go.uber.org/zap"

	"xrb/rawml"
)

// Kindle guide reference to TOC page, title is compared case insensitively.
var tocReference = xpath.MustCompile(
	`//reference[translate(@title,'abcdefghijklmnopqrstuvwxyz','ABCDEFGHIJKLMNOPQRSTUVWXYZ')='TABLE OF CONTENTS']`)

var tocLinks = xpath.MustCompile(`//a`)

// Chapter is named byte range of the book.
type Chapter struct {
	Name  string
	Start int64
	End   int64
}

// ScanRange limits which paragraphs are scanned, both ends are inclusive.
type ScanRange struct {
	SRL int64
	ERL int64
}

func (r ScanRange) Contains(pos int64) bool {
	return pos >= r.SRL && pos <= r.ERL
}

// Range returns span of all chapters, or the whole document when there are
// no chapters.
func Range(chapters []Chapter, docLen int64) ScanRange {
	if len(chapters) == 0 {
		return ScanRange{SRL: 1, ERL: docLen}
	}
	// parts may include chapters, so last chapter does not have to end last
	r := ScanRange{SRL: chapters[0].Start}
	for _, c := range chapters {
		r.ERL = max(r.ERL, c.End)
	}
	return r
}

// Fallback returns single unnamed chapter spanning the whole document.
func Fallback(docLen int64) []Chapter {
	return []Chapter{{Start: 1, End: docLen}}
}

// ExtractChapters builds chapter list from table of contents referenced in
// the book guide. Absence of TOC is not an error - empty list is returned.
func ExtractChapters(doc *rawml.Document, log *zap.Logger) ([]Chapter, error) {
	codec := doc.Codec()

	root, err := htmlquery.Parse(strings.NewReader(codec.DecodeString(string(doc.Bytes()))))
	if err != nil {
		return nil, inputError(err, "unable to parse markup")
	}
	ref := htmlquery.QuerySelector(root, tocReference)
	if ref == nil {
		log.Debug("No table of contents reference found")
		return nil, nil
	}

	attr := htmlquery.SelectAttr(ref, "filepos")
	tocPos, err := parseFilePos(attr)
	if err != nil {
		return nil, inputError(err, "table of contents reference has bad filepos %q", attr)
	}
	if tocPos >= doc.Len() {
		return nil, inputError(nil, "table of contents position %d is beyond the end of the book (%d)", tocPos, doc.Len())
	}

	tocEnd := doc.IndexFrom(rawml.PageBreak, tocPos+1)
	if tocEnd < 0 {
		tocEnd = doc.Len()
	}
	block := codec.DecodeString(string(doc.Slice(tocPos, tocEnd)))
	toc, err := htmlquery.Parse(strings.NewReader(block))
	if err != nil {
		return nil, inputError(err, "unable to parse table of contents at %d", tocPos)
	}

	var chapters []Chapter
	for _, a := range htmlquery.QuerySelectorAll(toc, tocLinks) {
		pos, err := parseFilePos(htmlquery.SelectAttr(a, "filepos"))
		if err != nil {
			pos = 0
		}
		chapters = closeLast(chapters, pos, log)
		chapters = append(chapters, Chapter{Name: htmlquery.InnerText(a), Start: pos, End: doc.Len()})
	}
	// links past the end of the book leave nothing to point at
	for n := -1; n != len(chapters); {
		n = len(chapters)
		chapters = closeLast(chapters, doc.Len(), log)
	}
	log.Debug("Table of contents processed", zap.Int64("position", tocPos), zap.Int("chapters", len(chapters)))
	return chapters, nil
}

// closeLast ends last chapter at pos and drops it when it would be inverted.
func closeLast(chapters []Chapter, pos int64, log *zap.Logger) []Chapter {
	n := len(chapters)
	if n == 0 {
		return chapters
	}
	last := &chapters[n-1]
	last.End = pos
	if last.Start > pos {
		log.Warn("Malformed table of contents, dropping chapter",
			zap.String("chapter", last.Name), zap.Int64("start", last.Start), zap.Int64("end", pos))
		return chapters[:n-1]
	}
	return chapters
}

// parseFilePos reads zero padded byte position used by MOBI markup.
func parseFilePos(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty position")
	}
	if t := strings.TrimLeft(s, "0"); t != "" {
		s = t
	} else {
		s = "0"
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, errors.New("negative position")
	}
	return v, nil
}
