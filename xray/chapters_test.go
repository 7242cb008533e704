package xray

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

const bookHead = `<html><head><guide><reference title="Table of Contents" type="toc" filepos={pos:toc} /></guide></head><body>`

func TestExtractChapters(t *testing.T) {
	markup, at := fixture(t, bookHead+
		`<p>Front matter.</p><mbp:pagebreak/>`+
		`{at:toc}<p><a filepos={pos:c1}>Chapter One</a></p><p><a filepos={pos:c2}>Chapter Two</a></p><mbp:pagebreak/>`+
		`{at:c1}<p>One text.</p><mbp:pagebreak/>`+
		`{at:c2}<p>Two text.</p><mbp:pagebreak/></body></html>`)
	doc := parse(t, markup, "")

	chapters, err := ExtractChapters(doc, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("ExtractChapters() error = %v", err)
	}
	want := []Chapter{
		{Name: "Chapter One", Start: at["c1"], End: at["c2"]},
		{Name: "Chapter Two", Start: at["c2"], End: doc.Len()},
	}
	if len(chapters) != len(want) {
		t.Fatalf("got %d chapters, want %d: %+v", len(chapters), len(want), chapters)
	}
	for i := range want {
		if chapters[i] != want[i] {
			t.Errorf("chapter %d = %+v, want %+v", i, chapters[i], want[i])
		}
	}

	rng := Range(chapters, doc.Len())
	if rng.SRL != at["c1"] || rng.ERL != doc.Len() {
		t.Errorf("Range() = %+v, want [%d, %d]", rng, at["c1"], doc.Len())
	}
}

func TestExtractChapters_NoTOC(t *testing.T) {
	tests := []struct {
		name   string
		markup string
	}{
		{
			name:   "no reference",
			markup: `<html><body><p>Just text.</p></body></html>`,
		},
		{
			name:   "reference with other title",
			markup: `<html><head><guide><reference title="Cover" filepos=0000000010 /></guide></head><body><p>x</p></body></html>`,
		},
		{
			name: "reference without links",
			markup: `<html><head><guide><reference title="TABLE OF CONTENTS" filepos=0000000095 /></guide></head><body>` +
				`<p>Contents are missing here.</p><mbp:pagebreak/></body></html>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, tt.markup, "")
			chapters, err := ExtractChapters(doc, zaptest.NewLogger(t))
			if err != nil {
				t.Fatalf("ExtractChapters() error = %v", err)
			}
			if len(chapters) != 0 {
				t.Errorf("expected no chapters, got %+v", chapters)
			}
			if rng := Range(chapters, doc.Len()); rng.SRL != 1 || rng.ERL != doc.Len() {
				t.Errorf("Range() = %+v, want [1, %d]", rng, doc.Len())
			}
		})
	}
}

func TestExtractChapters_DropsBrokenChapters(t *testing.T) {
	markup, at := fixture(t, bookHead+
		`{at:front}<p>Front matter.</p><mbp:pagebreak/>`+
		`{at:toc}<p><a filepos={pos:c1}>One</a></p><p><a filepos={pos:front}>Foreword</a></p><p><a filepos={pos:c2}>Two</a></p><p><a filepos=0099999999>Appendix</a></p><mbp:pagebreak/>`+
		`{at:c1}<p>One text.</p><mbp:pagebreak/>`+
		`{at:c2}<p>Two text.</p></body></html>`)
	doc := parse(t, markup, "")

	core, logs := observer.New(zap.WarnLevel)
	chapters, err := ExtractChapters(doc, zap.New(core))
	if err != nil {
		t.Fatalf("ExtractChapters() error = %v", err)
	}
	want := []Chapter{
		{Name: "Foreword", Start: at["front"], End: at["c2"]},
		{Name: "Two", Start: at["c2"], End: doc.Len()},
	}
	if len(chapters) != len(want) {
		t.Fatalf("got %+v, want %+v", chapters, want)
	}
	for i := range want {
		if chapters[i] != want[i] {
			t.Errorf("chapter %d = %+v, want %+v", i, chapters[i], want[i])
		}
	}
	for i, c := range chapters {
		if c.Start > c.End || c.End > doc.Len() {
			t.Errorf("chapter %d is inverted or past the end: %+v", i, c)
		}
		if i > 0 && chapters[i-1].End > c.Start {
			t.Errorf("chapters overlap: %+v", chapters)
		}
	}
	if rng := Range(chapters, doc.Len()); rng.ERL != doc.Len() {
		t.Errorf("Range() = %+v, want erl %d", rng, doc.Len())
	}
	if n := logs.FilterMessage("Malformed table of contents, dropping chapter").Len(); n != 2 {
		t.Errorf("expected 2 malformed TOC warnings, got %d", n)
	}
}

func TestExtractChapters_ZeroPosition(t *testing.T) {
	markup, at := fixture(t, bookHead+
		`{at:toc}<p><a filepos={pos:c1}>One</a></p><p><a>Unlinked</a></p><mbp:pagebreak/>`+
		`{at:c1}<p>One text.</p></body></html>`)
	doc := parse(t, markup, "")

	chapters, err := ExtractChapters(doc, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("ExtractChapters() error = %v", err)
	}
	// "One" ends at 0 which is before its start and is dropped, zero is kept
	if len(chapters) != 1 || chapters[0] != (Chapter{Name: "Unlinked", Start: 0, End: doc.Len()}) {
		t.Fatalf("got %+v (c1 at %d)", chapters, at["c1"])
	}
}

func TestExtractChapters_InputErrors(t *testing.T) {
	tests := []struct {
		name   string
		markup string
	}{
		{
			name:   "bad toc position",
			markup: `<html><head><guide><reference title="table of contents" filepos=12ab /></guide></head><body><p>x</p></body></html>`,
		},
		{
			name:   "missing toc position",
			markup: `<html><head><guide><reference title="table of contents" /></guide></head><body><p>x</p></body></html>`,
		},
		{
			name:   "toc beyond the end",
			markup: `<html><head><guide><reference title="table of contents" filepos=0000999999 /></guide></head><body><p>x</p></body></html>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, tt.markup, "")
			chapters, err := ExtractChapters(doc, zaptest.NewLogger(t))
			var ie *InputError
			if !errors.As(err, &ie) {
				t.Fatalf("expected InputError, got %v", err)
			}
			if chapters != nil {
				t.Errorf("expected no chapters on error, got %+v", chapters)
			}
		})
	}
}

func TestParseFilePos(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "0000012345", want: 12345},
		{in: "0000000000", want: 0},
		{in: "42", want: 42},
		{in: " 007 ", want: 7},
		{in: "", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "12x", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseFilePos(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFilePos(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseFilePos(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFallback(t *testing.T) {
	c := Fallback(5000)
	if len(c) != 1 || c[0] != (Chapter{Start: 1, End: 5000}) {
		t.Errorf("Fallback() = %+v", c)
	}
}
