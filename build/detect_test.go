package build

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func TestIsRawML(t *testing.T) {
	tests := []struct {
		name string
		data string
		want bool
	}{
		{name: "plain", data: "<html><head>", want: true},
		{name: "upper case", data: "<HTML>", want: true},
		{name: "bom", data: "\xef\xbb\xbf<html>", want: true},
		{name: "leading space", data: "\r\n  <html>", want: true},
		{name: "too short", data: "<htm", want: false},
		{name: "empty", data: "", want: false},
		{name: "doctype", data: "<!DOCTYPE html><html>", want: false},
		{name: "text", data: "Frodo", want: false},
		{name: "zip", data: "PK\x03\x04", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRawML([]byte(tt.data)); got != tt.want {
				t.Errorf("isRawML(%q) = %v, want %v", tt.data, got, tt.want)
			}
			if got := isBook([]byte(tt.data)); got != tt.want {
				t.Errorf("isBook(%q) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}

func TestIsArchiveFile(t *testing.T) {
	dir := t.TempDir()

	genuine := filepath.Join(dir, "library.zip")
	writeZip(t, genuine, map[string]string{"book.rawml": sampleBook})
	renamed := filepath.Join(dir, "library.bin")
	data, err := os.ReadFile(genuine)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, renamed, string(data))
	fake := filepath.Join(dir, "fake.zip")
	writeFile(t, fake, "not a genuine zip file")

	tests := []struct {
		path string
		want bool
	}{
		{genuine, true},
		{renamed, false},
		{fake, false},
	}
	for _, tt := range tests {
		got, err := isArchiveFile(tt.path)
		if err != nil {
			t.Errorf("isArchiveFile(%s) error = %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("isArchiveFile(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}

	if _, err := isArchiveFile(filepath.Join(dir, "missing.zip")); err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}
}

func TestIsBookFile(t *testing.T) {
	dir := t.TempDir()
	book := filepath.Join(dir, "book.rawml")
	writeFile(t, book, sampleBook)
	html := filepath.Join(dir, "book.html")
	writeFile(t, html, sampleBook)
	text := filepath.Join(dir, "text.rawml")
	writeFile(t, text, "Frodo")
	empty := filepath.Join(dir, "empty.rawml")
	writeFile(t, empty, "")

	tests := []struct {
		path string
		want bool
	}{
		{book, true},
		{html, false},
		{text, false},
		{empty, false},
	}
	for _, tt := range tests {
		got, err := isBookFile(tt.path)
		if err != nil {
			t.Errorf("isBookFile(%s) error = %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("isBookFile(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}

	if _, err := isBookFile(filepath.Join(dir, "missing.rawml")); err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}
}

func TestIsBookInArchive(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "library.zip")
	writeZip(t, zipPath, map[string]string{
		"book.rawml":      sampleBook,
		"book.terms.yaml": sampleTerms,
		"text.rawml":      "Frodo",
	})
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	want := map[string]bool{"book.rawml": true, "book.terms.yaml": false, "text.rawml": false}
	for _, f := range r.File {
		got, err := isBookInArchive(f)
		if err != nil {
			t.Errorf("isBookInArchive(%s) error = %v", f.Name, err)
		}
		if got != want[f.Name] {
			t.Errorf("isBookInArchive(%s) = %v, want %v", f.Name, got, want[f.Name])
		}
	}
}

func TestTermsFor(t *testing.T) {
	tests := []struct {
		book string
		want string
	}{
		{"book.rawml", "book.terms.yaml"},
		{"/books/The.Hobbit.rawml", "/books/The.Hobbit.terms.yaml"},
		{"tolkien/fellowship.RAWML", "tolkien/fellowship.terms.yaml"},
	}
	for _, tt := range tests {
		if got := termsFor(tt.book); got != tt.want {
			t.Errorf("termsFor(%q) = %q, want %q", tt.book, got, tt.want)
		}
	}
}
