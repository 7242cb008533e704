package xray

import (
	"bytes"
	"io"
	"strconv"
	"strings"
)

// RecordVersion is X-Ray record format version understood by the devices.
const RecordVersion = "1"

// Kindle reader expects non-empty arrays, these are used instead of
// empty ones.
const (
	placeholderLocs    = `[[100,100,100,6]]`
	placeholderChapter = `{"name":null,"start":1,"end":9999999}`
)

// Record is the complete X-Ray entities file for a single book.
type Record struct {
	ASIN        string
	Database    string
	GUID        string
	Version     string
	XRayVersion string // informational, ignored by Kindle
	Terms       []*Entity
	Chapters    []Chapter
	Range       ScanRange
}

// FileName returns name Kindle looks for in the book sidecar directory.
func (r *Record) FileName() string {
	return "XRAY.entities." + r.ASIN + ".asc"
}

// Bytes renders the record. Field order and placeholders are significant:
// Kindle parses this positionally in places, so it is not generated with
// encoding/json. Only double quotes in text are escaped.
func (r *Record) Bytes() []byte {
	version := r.Version
	if version == "" {
		version = RecordVersion
	}

	var b bytes.Buffer
	b.WriteString(`{"asin":"`)
	b.WriteString(escape(r.ASIN))
	b.WriteString(`","guid":"`)
	b.WriteString(escape(r.Database))
	b.WriteByte(':')
	b.WriteString(escape(r.GUID))
	b.WriteString(`","version":"`)
	b.WriteString(escape(version))
	b.WriteString(`","xrayversion":"`)
	b.WriteString(escape(r.XRayVersion))
	b.WriteString(`","terms":[`)
	for i, e := range r.Terms {
		if i > 0 {
			b.WriteByte(',')
		}
		writeTerm(&b, e)
	}
	b.WriteString(`],"chapters":[`)

	if len(r.Chapters) == 0 {
		// nothing was scanned
		b.WriteString(placeholderChapter)
		b.WriteString(`]}`)
		return b.Bytes()
	}

	for i, c := range r.Chapters {
		if i > 0 {
			b.WriteByte(',')
		}
		writeChapter(&b, c)
	}
	b.WriteString(`],"assets":{},"srl":`)
	b.WriteString(strconv.FormatInt(r.Range.SRL, 10))
	b.WriteString(`,"erl":`)
	b.WriteString(strconv.FormatInt(r.Range.ERL, 10))
	b.WriteByte('}')
	return b.Bytes()
}

func (r *Record) String() string {
	return string(r.Bytes())
}

// WriteTo implements io.WriterTo.
func (r *Record) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Bytes())
	return int64(n), err
}

func writeTerm(b *bytes.Buffer, e *Entity) {
	b.WriteString(`{"type":"`)
	b.WriteString(escape(e.Kind.String()))
	b.WriteString(`","term":"`)
	b.WriteString(escape(e.Name))
	b.WriteString(`","desc":"`)
	b.WriteString(escape(e.Description))
	b.WriteString(`","descSrc":"`)
	b.WriteString(escape(e.DescriptionSource))
	b.WriteString(`","descUrl":"`)
	b.WriteString(escape(e.DescriptionURL))
	b.WriteString(`","locs":`)
	if len(e.Occurrences) == 0 {
		b.WriteString(placeholderLocs)
	} else {
		buf := make([]byte, 0, 32)
		b.WriteByte('[')
		for i, o := range e.Occurrences {
			if i > 0 {
				b.WriteByte(',')
			}
			b.Write(o.appendTo(buf[:0]))
		}
		b.WriteByte(']')
	}
	b.WriteByte('}')
}

func writeChapter(b *bytes.Buffer, c Chapter) {
	b.WriteString(`{"name":`)
	if c.Name == "" {
		b.WriteString("null")
	} else {
		b.WriteByte('"')
		b.WriteString(escape(c.Name))
		b.WriteByte('"')
	}
	b.WriteString(`,"start":`)
	b.WriteString(strconv.FormatInt(c.Start, 10))
	b.WriteString(`,"end":`)
	b.WriteString(strconv.FormatInt(c.End, 10))
	b.WriteByte('}')
}

var quoteEscaper = strings.NewReplacer(`"`, `\"`)

func escape(s string) string {
	return quoteEscaper.Replace(s)
}
