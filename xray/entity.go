// Package xray builds Kindle X-Ray entity records: it derives chapters from
// the book table of contents, locates every mention of known entities in the
// book markup and renders the result in the format Kindle expects.
package xray

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"xrb/common"
)

// Occurrence is a single located mention of an entity.
type Occurrence struct {
	// Position is absolute byte offset of the excerpt (correction applied).
	Position int64
	// ExcerptLength is excerpt length in bytes.
	ExcerptLength int
	// HighlightOffset is offset of the mention inside the excerpt.
	HighlightOffset int
	// HighlightLength is mention length in bytes.
	HighlightLength int
}

func (o Occurrence) String() string {
	b := make([]byte, 0, 32)
	return string(o.appendTo(b))
}

func (o Occurrence) appendTo(b []byte) []byte {
	b = append(b, '[')
	b = strconv.AppendInt(b, o.Position, 10)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(o.ExcerptLength), 10)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(o.HighlightOffset), 10)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(o.HighlightLength), 10)
	return append(b, ']')
}

// Entity is a character or a term which mentions are highlighted in the book.
type Entity struct {
	Kind              common.EntityKind
	Name              string
	Aliases           []string
	MatchCase         bool
	Description       string
	DescriptionSource string
	DescriptionURL    string
	Occurrences       []Occurrence
}

// NewEntity creates case sensitive entity without aliases.
func NewEntity(kind common.EntityKind, name string) *Entity {
	return &Entity{Kind: kind, Name: name, MatchCase: true}
}

// AddAlias appends aliases keeping them unique, empty strings and canonical
// name are ignored.
func (e *Entity) AddAlias(aliases ...string) {
	for _, a := range aliases {
		if a == "" || a == e.Name || slices.Contains(e.Aliases, a) {
			continue
		}
		e.Aliases = append(e.Aliases, a)
	}
}

// SearchTerms returns strings to look for in the order they are tried.
func (e *Entity) SearchTerms() []string {
	return append([]string{e.Name}, e.Aliases...)
}

// Registry keeps entities in insertion order.
type Registry struct {
	entities []*Entity
	index    map[string]*Entity
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[string]*Entity)}
}

// Add registers entity. Canonical names must be non-empty and unique.
func (r *Registry) Add(e *Entity) error {
	if e == nil || e.Name == "" {
		return errors.New("entity must have a name")
	}
	if !e.Kind.IsValid() {
		return fmt.Errorf("entity %q: %w", e.Name, common.ErrInvalidEntityKind)
	}
	if _, exists := r.index[e.Name]; exists {
		return fmt.Errorf("entity %q already registered", e.Name)
	}
	aliases := e.Aliases
	e.Aliases = nil
	e.AddAlias(aliases...)

	r.entities = append(r.entities, e)
	r.index[e.Name] = e
	return nil
}

// Entities returns registered entities in insertion order.
func (r *Registry) Entities() []*Entity {
	return r.entities
}

func (r *Registry) Len() int {
	return len(r.entities)
}

// Lookup finds entity by canonical name.
func (r *Registry) Lookup(name string) (*Entity, bool) {
	e, ok := r.index[name]
	return e, ok
}

// Reset drops occurrences collected by previous scan.
func (r *Registry) Reset() {
	for _, e := range r.entities {
		e.Occurrences = nil
	}
}

// Clone returns deep copy, so the same set of entities could be used for
// several books independently.
func (r *Registry) Clone() *Registry {
	c := &Registry{
		entities: make([]*Entity, 0, len(r.entities)),
		index:    make(map[string]*Entity, len(r.entities)),
	}
	for _, e := range r.entities {
		n := *e
		n.Aliases = slices.Clone(e.Aliases)
		n.Occurrences = slices.Clone(e.Occurrences)
		c.entities = append(c.entities, &n)
		c.index[n.Name] = &n
	}
	return c
}
