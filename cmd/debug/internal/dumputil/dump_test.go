package dumputil

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"xrb/rawml"
	"xrb/terms"
)

const book = `<html><head><guide><reference title="Table of Contents" filepos=0000000000 /></guide></head>` +
	`<body><p>Frodo left the Shire.</p><p>Sam followed Frodo.</p></body></html>`

func parse(t *testing.T, markup string) *rawml.Document {
	t.Helper()
	codec, err := rawml.NewCodec("")
	if err != nil {
		t.Fatal(err)
	}
	doc, err := rawml.Parse([]byte(markup), codec)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestBlocks(t *testing.T) {
	out := Blocks(parse(t, book))
	for _, want := range []string{"2 paragraphs", "code page windows-1252", `text: "Frodo left the Shire."`, `text: "Sam followed Frodo."`} {
		if !strings.Contains(out, want) {
			t.Errorf("Blocks() does not contain %q:\n%s", want, out)
		}
	}
}

func TestChapters(t *testing.T) {
	// table of contents without links
	out, err := Chapters(parse(t, book), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Chapters() error = %v", err)
	}
	if !strings.HasPrefix(out, "chapters: 0, range 1 - ") {
		t.Errorf("unexpected chapters dump:\n%s", out)
	}

	bad := strings.Replace(book, "filepos=0000000000", "filepos=junk", 1)
	if _, err := Chapters(parse(t, bad), zaptest.NewLogger(t)); err == nil {
		t.Error("expected error for malformed table of contents")
	}
}

func TestXRay(t *testing.T) {
	b, err := terms.Load(strings.NewReader("asin: B000FC1PJI\nterms:\n  - type: character\n    term: Frodo\n"))
	if err != nil {
		t.Fatal(err)
	}
	out, err := XRay(context.Background(), parse(t, book), b, 0, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("XRay() error = %v", err)
	}
	if !strings.Contains(out, "2 mentions") || !strings.Contains(out, "[[Frodo]]") {
		t.Errorf("unexpected x-ray dump:\n%s", out)
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("Frodo", 10); got != "Frodo" {
		t.Errorf("Preview() = %q", got)
	}
	if got := Preview("Sméagol", 3); got != "Smé..." {
		t.Errorf("Preview() = %q", got)
	}
}

func TestWriteOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "book.rawml")

	name, err := WriteOutput(in, "", "-blocks.txt", []byte("one"), false)
	if err != nil {
		t.Fatalf("WriteOutput() error = %v", err)
	}
	if name != filepath.Join(dir, "book-blocks.txt") {
		t.Errorf("WriteOutput() name = %q", name)
	}
	if _, err := WriteOutput(in, "", "-blocks.txt", []byte("two"), false); err == nil {
		t.Error("expected error for existing output")
	}
	if _, err := WriteOutput(in, "", "-blocks.txt", []byte("two"), true); err != nil {
		t.Errorf("WriteOutput() with overwrite error = %v", err)
	}
	if data, _ := os.ReadFile(name); string(data) != "two" {
		t.Errorf("output = %q", data)
	}

	out := t.TempDir()
	if name, err := WriteOutput(in, out, "-toc.txt", nil, false); err != nil || filepath.Dir(name) != out {
		t.Errorf("WriteOutput() to directory = %q, %v", name, err)
	}
}
