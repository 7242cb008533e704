package build

import (
	"path/filepath"
	"slices"
	"testing"

	"go.uber.org/zap/zaptest"

	"xrb/config"
	"xrb/terms"
	"xrb/xray"
)

var testIdentity = terms.Identity{ASIN: "B000FC1PJI", GUID: "12D687", Database: "EBOK"}

func documentConfig(template string, transliterate bool) *config.DocumentConfig {
	return &config.DocumentConfig{
		OutputNameTemplate:    template,
		FileNameTransliterate: transliterate,
	}
}

func TestBuildOutputPath(t *testing.T) {
	rec := &xray.Record{ASIN: testIdentity.ASIN}
	dst := filepath.FromSlash("/out")

	tests := []struct {
		name          string
		template      string
		transliterate bool
		src           string
		want          string
	}{
		{
			name:     "default",
			template: "XRAY.entities.{{ .ASIN }}.asc",
			src:      "book.rawml",
			want:     "/out/XRAY.entities.B000FC1PJI.asc",
		},
		{
			name:     "keeps source directory",
			template: "XRAY.entities.{{ .ASIN }}.asc",
			src:      "tolkien/fellowship.rawml",
			want:     "/out/tolkien/XRAY.entities.B000FC1PJI.asc",
		},
		{
			name:     "sidecar directory",
			template: "{{ .Source }}.sdr/XRAY.entities.{{ .ASIN }}.asc",
			src:      "tolkien/fellowship.rawml",
			want:     "/out/tolkien/fellowship.sdr/XRAY.entities.B000FC1PJI.asc",
		},
		{
			name:     "sprig functions",
			template: "{{ .Database | lower }}-{{ .GUID }}.asc",
			src:      "book.rawml",
			want:     "/out/ebok-12D687.asc",
		},
		{
			name:          "transliterated",
			template:      "Café Noir/{{ .ASIN }}.asc",
			transliterate: true,
			src:           "book.rawml",
			want:          "/out/cafe-noir/b000fc1pji.asc",
		},
		{
			name:     "broken template falls back to record name",
			template: "{{ .Missing }",
			src:      "book.rawml",
			want:     "/out/XRAY.entities.B000FC1PJI.asc",
		},
		{
			name:     "unknown field falls back to record name",
			template: "{{ .Title }}.asc",
			src:      "book.rawml",
			want:     "/out/XRAY.entities.B000FC1PJI.asc",
		},
		{
			name:     "empty expansion falls back to record name",
			template: "{{ if false }}x{{ end }}",
			src:      "book.rawml",
			want:     "/out/XRAY.entities.B000FC1PJI.asc",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildOutputPath(rec, testIdentity, filepath.FromSlash(tt.src), dst, documentConfig(tt.template, tt.transliterate), zaptest.NewLogger(t))
			if want := filepath.FromSlash(tt.want); got != want {
				t.Errorf("buildOutputPath() = %q, want %q", got, want)
			}
		})
	}
}

func TestSplitAndCleanPath(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"file.asc", []string{"file.asc"}},
		{"a/b/file.asc", []string{"a", "b", "file.asc"}},
		{"a/b/", []string{"a", "b"}},
		{"/abs/file.asc", []string{"abs", "file.asc"}},
		{"../up/./file.asc", []string{"up", "file.asc"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		got := splitAndCleanPath(filepath.FromSlash(tt.path))
		if !slices.Equal(got, tt.want) {
			t.Errorf("splitAndCleanPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestCleanPathSegment(t *testing.T) {
	tests := []struct {
		segment       string
		transliterate bool
		want          string
	}{
		{"XRAY.entities.B000FC1PJI.asc", false, "XRAY.entities.B000FC1PJI.asc"},
		{"Café.asc", true, "cafe.asc"},
		{"..hidden", false, "hidden"},
		{"...", false, "_bad_file_name_"},
		{"!!!.asc", true, "!!!.asc"},
	}
	for _, tt := range tests {
		if got := cleanPathSegment(tt.segment, documentConfig("", tt.transliterate)); got != tt.want {
			t.Errorf("cleanPathSegment(%q, %v) = %q, want %q", tt.segment, tt.transliterate, got, tt.want)
		}
	}
}

func TestExpandTemplate(t *testing.T) {
	values := newValues(config.OutputNameTemplateFieldName, testIdentity, filepath.FromSlash("dir/The Hobbit.rawml"))

	tests := []struct {
		name    string
		field   string
		want    string
		wantErr bool
	}{
		{name: "text", field: "fixed.asc", want: "fixed.asc"},
		{name: "fields", field: "{{ .ASIN }}|{{ .GUID }}|{{ .Database }}|{{ .Source }}", want: "B000FC1PJI|12D687|EBOK|The Hobbit"},
		{name: "context", field: "{{ .Context }}", want: "output_name_template"},
		{name: "sprig", field: `{{ .Source | replace " " "_" | upper }}`, want: "THE_HOBBIT"},
		{name: "parse error", field: "{{ .ASIN", wantErr: true},
		{name: "unknown field", field: "{{ .Author }}", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandTemplate(config.OutputNameTemplateFieldName, tt.field, values)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expandTemplate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("expandTemplate() = %q, want %q", got, tt.want)
			}
		})
	}
}
