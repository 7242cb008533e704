// Package rawml indexes decompressed MOBI book markup: paragraph blocks with
// their absolute byte positions, raw markup and text views.
package rawml

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html"
)

// PageBreak is the marker MOBI markup uses between pages.
const PageBreak = "<mbp:pagebreak/>"

// Block is a single paragraph of the book.
type Block struct {
	// Pos is absolute byte offset of the paragraph content (first byte after
	// the opening tag).
	Pos int64
	// Raw is paragraph content with all inline markup preserved.
	Raw string
	// Text is character data of the paragraph with markup stripped,
	// character references are left as they are in the source.
	Text string
}

// Document is parsed book markup.
type Document struct {
	data   []byte
	codec  *Codec
	blocks []Block
}

// these close an open paragraph when their end tag is seen
var paragraphClosers = map[string]bool{
	"body":       true,
	"html":       true,
	"div":        true,
	"blockquote": true,
	"li":         true,
	"td":         true,
	"th":         true,
}

// Parse indexes markup. Data is kept as is and must not be modified by caller
// afterwards.
func Parse(data []byte, codec *Codec) (*Document, error) {
	if codec == nil {
		return nil, errors.New("no code page specified")
	}
	doc := &Document{data: data, codec: codec}

	var (
		offset, start int
		open          bool
		text          bytes.Buffer
	)
	closeBlock := func(end int) {
		if open && end > start {
			doc.blocks = append(doc.blocks, Block{
				Pos:  int64(start),
				Raw:  string(data[start:end]),
				Text: text.String(),
			})
		}
		open = false
		text.Reset()
	}

	z := html.NewTokenizer(bytes.NewReader(data))
	for {
		tt := z.Next()
		// token boundaries are contiguous, raw length is all we need to
		// keep absolute position
		tokStart := offset
		raw := z.Raw()
		offset += len(raw)

		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("unable to tokenize markup at offset %d: %w", tokStart, err)
			}
			closeBlock(tokStart)
			return doc, nil
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) == "p" {
				// nested paragraphs are not allowed, new one closes previous
				closeBlock(tokStart)
				open, start = true, offset
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == "p" || paragraphClosers[string(name)] {
				closeBlock(tokStart)
			}
		case html.TextToken:
			if open {
				text.Write(raw)
			}
		}
	}
}

// Codec returns code page used to interpret the markup.
func (d *Document) Codec() *Codec {
	return d.codec
}

// Len returns markup length in bytes.
func (d *Document) Len() int64 {
	return int64(len(d.data))
}

// Bytes returns underlying markup.
func (d *Document) Bytes() []byte {
	return d.data
}

// Blocks returns paragraphs in document order.
func (d *Document) Blocks() []Block {
	return d.blocks
}

// Slice returns markup between absolute offsets, bounds are clamped.
func (d *Document) Slice(from, to int64) []byte {
	from = max(0, min(from, d.Len()))
	to = max(from, min(to, d.Len()))
	return d.data[from:to]
}

// IndexFrom returns absolute offset of the first occurrence of marker at or
// after offset from or -1.
func (d *Document) IndexFrom(marker string, from int64) int64 {
	if from < 0 {
		from = 0
	}
	if from >= d.Len() {
		return -1
	}
	i := bytes.Index(d.data[from:], []byte(marker))
	if i < 0 {
		return -1
	}
	return from + int64(i)
}
