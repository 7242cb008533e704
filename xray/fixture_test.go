package xray

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"xrb/rawml"
)

var fixtureMarker = regexp.MustCompile(`\{(pos|at):([a-z0-9]+)\}`)

// fixture prepares markup template: "{at:name}" marks a place and is removed,
// "{pos:name}" is replaced with zero padded offset of that place, the way
// MOBI markup writes filepos values. Offsets of all places are returned.
func fixture(t *testing.T, tmpl string) (string, map[string]int64) {
	t.Helper()

	const width = 10
	var (
		out   strings.Builder
		at    = make(map[string]int64)
		slots = make(map[int]string)
		last  int
	)
	for _, m := range fixtureMarker.FindAllStringSubmatchIndex(tmpl, -1) {
		out.WriteString(tmpl[last:m[0]])
		last = m[1]
		kind, name := tmpl[m[2]:m[3]], tmpl[m[4]:m[5]]
		if kind == "at" {
			at[name] = int64(out.Len())
			continue
		}
		slots[out.Len()] = name
		out.WriteString(strings.Repeat("#", width))
	}
	out.WriteString(tmpl[last:])

	buf := []byte(out.String())
	for off, name := range slots {
		pos, ok := at[name]
		if !ok {
			t.Fatalf("fixture: no place for %q", name)
		}
		copy(buf[off:], fmt.Sprintf("%0*d", width, pos))
	}
	return string(buf), at
}

func parse(t *testing.T, markup string, codePage string) *rawml.Document {
	t.Helper()
	codec, err := rawml.NewCodec(codePage)
	if err != nil {
		t.Fatalf("NewCodec(%q) error = %v", codePage, err)
	}
	doc, err := rawml.Parse([]byte(markup), codec)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return doc
}
