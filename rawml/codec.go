package rawml

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// DefaultCodePage is what legacy tools used to read unpacked MOBI markup.
const DefaultCodePage = "windows-1252"

// Codec interprets markup bytes. Positions reported to Kindle are byte
// offsets, so all matching is done on bytes and decoding only happens where
// characters matter (tag tolerant search, chapter names, debug output).
type Codec struct {
	name string
	cm   *charmap.Charmap // nil for UTF-8
	fold [256]byte
}

// NewCodec returns codec for IANA character set name. Only UTF-8 and single
// byte code pages are supported since byte offsets have to map to characters
// in predictable way.
func NewCodec(name string) (*Codec, error) {
	if name == "" {
		name = DefaultCodePage
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown code page %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("code page %q is not supported", name)
	}
	// preferred MIME names are what users write in configuration
	canonical, err := ianaindex.MIME.Name(enc)
	if err != nil {
		if canonical, err = ianaindex.IANA.Name(enc); err != nil {
			canonical = name
		}
	}

	c := &Codec{name: canonical}
	if strings.EqualFold(canonical, "UTF-8") {
		return c, nil
	}
	cm, ok := enc.(*charmap.Charmap)
	if !ok {
		return nil, fmt.Errorf("code page %q is not a single byte encoding", name)
	}
	c.cm = cm
	for i := range 256 {
		b := byte(i)
		c.fold[i] = b
		if l, ok := cm.EncodeRune(unicode.ToLower(cm.DecodeByte(b))); ok {
			c.fold[i] = l
		}
	}
	return c, nil
}

// Name returns preferred MIME name of the code page.
func (c *Codec) Name() string {
	return c.name
}

// Encode converts UTF-8 text (names, aliases) into markup bytes.
func (c *Codec) Encode(s string) (string, error) {
	if c.cm == nil {
		if !utf8.ValidString(s) {
			return "", fmt.Errorf("%q is not valid UTF-8", s)
		}
		return s, nil
	}
	out, err := c.cm.NewEncoder().String(s)
	if err != nil {
		return "", fmt.Errorf("%q cannot be represented in %s: %w", s, c.name, err)
	}
	return out, nil
}

// DecodeString converts markup bytes to UTF-8 text.
func (c *Codec) DecodeString(raw string) string {
	if c.cm == nil {
		return raw
	}
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		b.WriteRune(c.cm.DecodeByte(raw[i]))
	}
	return b.String()
}

// Decode splits markup bytes into characters. offs has one more element than
// runes: offs[i] is byte offset of runes[i] and the last element is len(raw).
func (c *Codec) Decode(raw string) (runes []rune, offs []int) {
	runes = make([]rune, 0, len(raw))
	offs = make([]int, 0, len(raw)+1)
	if c.cm != nil {
		for i := 0; i < len(raw); i++ {
			runes = append(runes, c.cm.DecodeByte(raw[i]))
			offs = append(offs, i)
		}
		return runes, append(offs, len(raw))
	}
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRuneInString(raw[i:])
		runes = append(runes, r)
		offs = append(offs, i)
		i += size
	}
	return runes, append(offs, len(raw))
}

// Fold lower-cases markup bytes without changing their length, so offsets
// found in folded text are valid in the original.
func (c *Codec) Fold(s string) string {
	b := []byte(s)
	if c.cm != nil {
		for i := range b {
			b[i] = c.fold[b[i]]
		}
		return string(b)
	}
	for i := 0; i < len(b); {
		if b[i] < utf8.RuneSelf {
			if 'A' <= b[i] && b[i] <= 'Z' {
				b[i] += 'a' - 'A'
			}
			i++
			continue
		}
		r, size := utf8.DecodeRune(b[i:])
		if r != utf8.RuneError {
			if l := unicode.ToLower(r); l != r && utf8.RuneLen(l) == size {
				utf8.EncodeRune(b[i:], l)
			}
		}
		i += size
	}
	return string(b)
}

// Index is strings.Index with optional case folding. Callers searching the
// same text repeatedly should fold it once and use strings.Index directly.
func (c *Codec) Index(s, substr string, matchCase bool) int {
	if matchCase {
		return strings.Index(s, substr)
	}
	return strings.Index(c.Fold(s), c.Fold(substr))
}
