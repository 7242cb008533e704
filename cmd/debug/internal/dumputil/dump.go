// Package dumputil provides output helpers for rawmldump debug tool. It
// renders paragraph index, table of contents and X-Ray results of a single
// rawml book as text.
package dumputil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"xrb/rawml"
	"xrb/terms"
	"xrb/utils/debug"
	"xrb/xray"
)

// how much of paragraph text goes into the index dump
const previewLen = 80

// Blocks renders paragraph index: position, length and beginning of every
// paragraph text.
func Blocks(doc *rawml.Document) string {
	codec := doc.Codec()
	tw := debug.NewTreeWriter()

	blocks := doc.Blocks()
	tw.Line(0, "document %d bytes, code page %s, %d paragraphs", doc.Len(), codec.Name(), len(blocks))
	for i, b := range blocks {
		tw.Line(1, "#%d pos=%d raw=%d text=%d", i, b.Pos, len(b.Raw), len(b.Text))
		tw.TextBlock(2, "text", Preview(codec.DecodeString(b.Text), previewLen))
	}
	return tw.String()
}

// Chapters renders table of contents and resulting scan range. Malformed
// entries are reported through log.
func Chapters(doc *rawml.Document, log *zap.Logger) (string, error) {
	chapters, err := xray.ExtractChapters(doc, log)
	if err != nil {
		return "", err
	}

	tw := debug.NewTreeWriter()
	rng := xray.Range(chapters, doc.Len())
	tw.Line(0, "chapters: %d, range %d - %d", len(chapters), rng.SRL, rng.ERL)
	for i, c := range chapters {
		tw.Line(1, "#%d [%d - %d] %d bytes", i, c.Start, c.End, c.End-c.Start)
		tw.TextBlock(2, "name", c.Name)
	}
	return tw.String(), nil
}

// XRay builds record for the book with terms and renders it with excerpts.
func XRay(ctx context.Context, doc *rawml.Document, book *terms.Book, correction int64, log *zap.Logger) (string, error) {
	reg, err := book.Registry()
	if err != nil {
		return "", err
	}
	rec, st, err := xray.Build(ctx, doc, reg, xray.Options{
		ASIN:       book.ASIN,
		Database:   book.Database,
		GUID:       book.GUID,
		Correction: correction,
		Shorten:    true,
	}, log)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s\nscanned %d of %d paragraphs, %d mentions (%d shortened), %d unlocated\n",
		xray.Dump(rec, doc, correction), st.Scanned, st.Paragraphs, st.Occurrences, st.Shortened, st.Unlocated), nil
}

// Preview cuts text to at most n runes.
func Preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// WriteOutput writes data to <stem><suffix> in either the input file's directory or outDir.
func WriteOutput(inPath, outDir, suffix string, data []byte, overwrite bool) (string, error) {
	base := filepath.Base(inPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	dir := filepath.Dir(inPath)
	if outDir != "" {
		dir = outDir
	}
	outPath := filepath.Join(dir, stem+suffix)

	if _, err := os.Stat(outPath); err == nil {
		if !overwrite {
			return "", fmt.Errorf("output file already exists: %s (use -overwrite)", outPath)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}
