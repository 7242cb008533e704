package xray

import (
	"context"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"

	"xrb/rawml"
)

// DefaultExcerptLimit is how far into the excerpt (in bytes) mention could end
// before Kindle cuts it off when rendering. Value is empirical.
const DefaultExcerptLimit = 135

// DefaultMatchTimeout bounds tag tolerant search in a single paragraph.
const DefaultMatchTimeout = time.Second

// any number of inline tags, provided markup is not malformed
const tagRun = `(?:<[^>]*>)*`

// Scanner locates entity mentions in book paragraphs.
type Scanner struct {
	// Correction is added to every reported position.
	Correction int64
	// ExcerptLimit is used when Shorten is on, see DefaultExcerptLimit.
	ExcerptLimit int
	// Shorten enables moving excerpt start to a later sentence when mention
	// would be cut off otherwise.
	Shorten bool
	// MatchTimeout limits tag tolerant search, mention is reported as not
	// located when it runs out.
	MatchTimeout time.Duration
	// Progress, if set, is called after every paragraph.
	Progress func(done, total int)

	log *zap.Logger
}

// Stats summarizes single scan.
type Stats struct {
	Paragraphs  int
	Scanned     int
	Occurrences int
	Shortened   int
	Unlocated   int
}

func NewScanner(log *zap.Logger) *Scanner {
	return &Scanner{
		ExcerptLimit: DefaultExcerptLimit,
		MatchTimeout: DefaultMatchTimeout,
		Shorten:      true,
		log:          log,
	}
}

// Scan appends occurrences to registry entities. Paragraphs outside of rng
// are ignored. Context is checked between paragraphs.
func (s *Scanner) Scan(ctx context.Context, doc *rawml.Document, reg *Registry, rng ScanRange) (Stats, error) {
	codec := doc.Codec()
	targets := s.prepare(codec, reg)
	blocks := doc.Blocks()

	st := Stats{Paragraphs: len(blocks)}
	for i := range blocks {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		b := &blocks[i]
		if rng.Contains(b.Pos) {
			st.Scanned++
			p := &paragraph{Block: b, codec: codec}
			for _, t := range targets {
				if !t.present(p) {
					continue
				}
				loc, length, ok, err := t.locate(p)
				if !ok {
					st.Unlocated++
					s.log.Warn("Unable to locate mention in paragraph, skipping",
						zap.String("entity", t.entity.Name), zap.Strings("search", t.source),
						zap.Int64("position", b.Pos), zap.String("paragraph", codec.DecodeString(b.Raw)), zap.Error(err))
					continue
				}
				occ, shortened := s.occurrence(b, loc, length)
				if shortened {
					st.Shortened++
				}
				t.entity.Occurrences = append(t.entity.Occurrences, occ)
				st.Occurrences++
			}
		}
		if s.Progress != nil {
			s.Progress(i+1, len(blocks))
		}
	}
	return st, nil
}

func (s *Scanner) prepare(codec *rawml.Codec, reg *Registry) []*target {
	targets := make([]*target, 0, reg.Len())
	for _, e := range reg.Entities() {
		t := &target{entity: e, timeout: s.MatchTimeout}
		for _, term := range e.SearchTerms() {
			enc, err := codec.Encode(term)
			if err != nil {
				s.log.Warn("Search term cannot appear in the book, ignoring", zap.String("entity", e.Name), zap.Error(err))
				continue
			}
			t.source = append(t.source, term)
			t.terms = append(t.terms, enc)
			if !e.MatchCase {
				t.folded = append(t.folded, codec.Fold(enc))
			}
		}
		if len(t.terms) > 0 {
			targets = append(targets, t)
		}
	}
	return targets
}

// occurrence builds location, moving excerpt start forward when the mention
// is too far from the paragraph start.
func (s *Scanner) occurrence(b *rawml.Block, loc, length int) (Occurrence, bool) {
	if s.Shorten && loc+length > s.ExcerptLimit {
		if cut, ok := excerptCut(b.Raw, loc, length, s.ExcerptLimit); ok {
			return Occurrence{
				Position:        b.Pos + int64(cut) + s.Correction,
				ExcerptLength:   len(b.Raw) - cut,
				HighlightOffset: loc - cut,
				HighlightLength: length,
			}, true
		}
	}
	return Occurrence{
		Position:        b.Pos + s.Correction,
		ExcerptLength:   len(b.Raw),
		HighlightOffset: loc,
		HighlightLength: length,
	}, false
}

// excerptCut walks sentence boundaries (". ") backwards starting at the
// mention and returns the earliest excerpt start which still keeps the mention
// within limit. Fit is measured from the space after the period.
func excerptCut(raw string, loc, length, limit int) (int, bool) {
	cut := -1
	for start := loc; start > -1; {
		// boundary must lie entirely within raw[:start+1]
		at := strings.LastIndex(raw[:min(start+1, len(raw))], ". ")
		if at < 0 {
			break
		}
		start = at - 1
		if at+2 > loc {
			// mention starts inside the boundary itself
			continue
		}
		if loc+length-(at+1) > limit {
			break
		}
		cut = at + 2
	}
	return cut, cut >= 0
}

// target is entity prepared for a scan.
type target struct {
	entity *Entity
	source []string // search terms as given
	terms  []string // encoded in book code page
	folded []string // case folded terms, only when case does not matter

	timeout  time.Duration
	compiled bool
	patterns []*regexp2.Regexp
}

func (t *target) present(p *paragraph) bool {
	if t.entity.MatchCase {
		for _, s := range t.terms {
			if strings.Contains(p.Text, s) || strings.Contains(p.Raw, s) {
				return true
			}
		}
		return false
	}
	raw, text := p.folded()
	for _, s := range t.folded {
		if strings.Contains(text, s) || strings.Contains(raw, s) {
			return true
		}
	}
	return false
}

// locate returns byte offset and length of the first mention in paragraph
// markup. Plain search is tried first, then search allowing inline tags
// between characters. Error is only returned when tolerant search times out.
func (t *target) locate(p *paragraph) (int, int, bool, error) {
	raw, terms := p.Raw, t.terms
	if !t.entity.MatchCase {
		raw, _ = p.folded()
		terms = t.folded
	}
	for _, s := range terms {
		if i := strings.Index(raw, s); i >= 0 {
			return i, len(s), true, nil
		}
	}

	runes, offs := p.decoded()
	for _, re := range t.tolerant() {
		m, err := re.FindRunesMatch(runes)
		if err != nil {
			return 0, 0, false, err
		}
		if m == nil {
			continue
		}
		start, end := offs[m.Index], offs[m.Index+m.Length]
		return start, end - start, true, nil
	}
	return 0, 0, false, nil
}

func (t *target) tolerant() []*regexp2.Regexp {
	if t.compiled {
		return t.patterns
	}
	t.compiled = true

	opts := regexp2.None
	if !t.entity.MatchCase {
		opts |= regexp2.IgnoreCase
	}
	for _, term := range t.source {
		chars := make([]string, 0, len(term))
		for _, r := range term {
			chars = append(chars, regexp2.Escape(string(r)))
		}
		// mention must not continue as a longer word
		re, err := regexp2.Compile(tagRun+strings.Join(chars, tagRun)+tagRun+`(?=\W)`, opts)
		if err != nil {
			continue
		}
		if t.timeout > 0 {
			re.MatchTimeout = t.timeout
		}
		t.patterns = append(t.patterns, re)
	}
	return t.patterns
}

// paragraph lazily computes block views needed by some searches only.
type paragraph struct {
	*rawml.Block
	codec *rawml.Codec

	haveFolded bool
	foldedRaw  string
	foldedText string

	runes []rune
	offs  []int
}

func (p *paragraph) folded() (raw, text string) {
	if !p.haveFolded {
		p.foldedRaw, p.foldedText = p.codec.Fold(p.Raw), p.codec.Fold(p.Text)
		p.haveFolded = true
	}
	return p.foldedRaw, p.foldedText
}

func (p *paragraph) decoded() ([]rune, []int) {
	if p.offs == nil {
		p.runes, p.offs = p.codec.Decode(p.Raw)
	}
	return p.runes, p.offs
}
