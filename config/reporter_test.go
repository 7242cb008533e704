package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readReport(t *testing.T, name string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(name)
	if err != nil {
		t.Fatalf("unable to open report: %v", err)
	}
	defer zr.Close()

	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("unable to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("unable to read %s: %v", f.Name, err)
		}
		out[f.Name] = string(data)
	}
	return out
}

func TestReport(t *testing.T) {
	dir := t.TempDir()
	conf := ReporterConfig{Destination: filepath.Join(dir, "report.zip")}
	r, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if r.Name() != conf.Destination {
		t.Errorf("Name() = %q, want %q", r.Name(), conf.Destination)
	}

	stored := filepath.Join(dir, "book.terms.yaml")
	if err := os.WriteFile(stored, []byte("terms: []\n"), 0644); err != nil {
		t.Fatal(err)
	}
	copied := filepath.Join(dir, "book.rawml")
	if err := os.WriteFile(copied, []byte("<p>original</p>"), 0644); err != nil {
		t.Fatal(err)
	}

	r.Store("terms.yaml", stored)
	r.StoreData("dump.txt", []byte("tree"))
	if err := r.StoreCopy("source", copied); err != nil {
		t.Fatalf("StoreCopy() error = %v", err)
	}
	// copy is taken at the time of the call
	if err := os.WriteFile(copied, []byte("<p>changed</p>"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := r.StoreCopy("source", copied); err != nil {
		t.Fatalf("second StoreCopy() error = %v", err)
	}
	r.Store("gone.log", filepath.Join(dir, "gone.log"))

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	files := readReport(t, conf.Destination)
	if files["terms.yaml"] != "terms: []\n" || files["dump.txt"] != "tree" || files["source"] != "<p>original</p>" {
		t.Errorf("unexpected report content: %v", files)
	}
	versioned := 0
	for name, data := range files {
		if strings.HasPrefix(name, "source-") && data == "<p>changed</p>" {
			versioned++
		}
	}
	if versioned != 1 {
		t.Errorf("expected versioned copy in report, got %v", files)
	}
	if !strings.Contains(files["MANIFEST"], "terms.yaml") {
		t.Errorf("manifest does not list stored file: %s", files["MANIFEST"])
	}

	if _, ok := files["gone.log"]; ok {
		t.Error("absent file should be skipped")
	}
	if !strings.Contains(files["MANIFEST"], copied) {
		t.Errorf("manifest does not list copy source: %s", files["MANIFEST"])
	}
}

func TestReport_StoreCopyDirectory(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.StoreCopy("dir", t.TempDir()); err == nil {
		t.Error("expected error for directory")
	}
}

func TestReportClose_NilReport(t *testing.T) {
	var r *Report
	r.Store("name", "path")
	r.StoreData("name", nil)
	if err := r.StoreCopy("name", "path"); err != nil {
		t.Errorf("StoreCopy on nil report should not error, got: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}
	if r.Name() != "" {
		t.Errorf("Name() on nil report = %q", r.Name())
	}
}

func TestReportClose_NilFile(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close with nil file should not error, got: %v", err)
	}
}
