// Package terms reads entity lists prepared for a book. Descriptions and
// aliases are collected elsewhere, file is only decoded and checked here.
package terms

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	validator "github.com/go-playground/validator/v10"
	"github.com/rupor-github/gencfg"
	yaml "gopkg.in/yaml.v3"

	"xrb/common"
	"xrb/xray"
)

// Book is decoded terms file.
type Book struct {
	ASIN     string `yaml:"asin,omitempty"`
	GUID     string `yaml:"guid,omitempty"`
	Database string `yaml:"database,omitempty"`
	Terms    []Term `yaml:"terms" validate:"dive"`
}

// Term describes single entity.
type Term struct {
	Type    common.EntityKind `yaml:"type" validate:"required"`
	Term    string            `yaml:"term" validate:"required"`
	Aliases []string          `yaml:"aliases,omitempty"`
	// nil means true
	MatchCase *bool  `yaml:"match_case,omitempty"`
	Desc      string `yaml:"desc,omitempty"`
	DescSrc   string `yaml:"desc_src,omitempty"`
	DescURL   string `yaml:"desc_url,omitempty" validate:"omitempty,url"`
}

// Identity is what Kindle uses to attach X-Ray record to a book.
type Identity struct {
	ASIN     string
	GUID     string
	Database string
}

// Load decodes terms file. Unknown fields are errors, so are terms without
// type or name.
func Load(r io.Reader) (*Book, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read terms: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var b Book
	if err := dec.Decode(&b); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("terms file is empty")
		}
		return nil, fmt.Errorf("failed to decode terms: %w", err)
	}
	if err := gencfg.Validate(&b, gencfg.WithAdditionalChecks(uniqueTerms)); err != nil {
		return nil, fmt.Errorf("terms are not valid: %w", err)
	}
	return &b, nil
}

// canonical names identify entities in the record
func uniqueTerms(sl validator.StructLevel) {
	b := sl.Current().Interface().(Book)
	seen := make(map[string]bool, len(b.Terms))
	for i, t := range b.Terms {
		if seen[t.Term] {
			sl.ReportError(t.Term, fmt.Sprintf("Terms[%d].Term", i), "Term", "unique", "")
		}
		seen[t.Term] = true
	}
}

// LoadFile is Load for named file.
func LoadFile(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Registry creates new registry with all terms. Every call returns
// independent entities, so the same book could be processed more than once.
func (b *Book) Registry() (*xray.Registry, error) {
	reg := xray.NewRegistry()
	for i, t := range b.Terms {
		e := xray.NewEntity(t.Type, t.Term)
		if t.MatchCase != nil {
			e.MatchCase = *t.MatchCase
		}
		e.Description = t.Desc
		e.DescriptionSource = t.DescSrc
		e.DescriptionURL = t.DescURL
		e.AddAlias(t.Aliases...)
		if err := reg.Add(e); err != nil {
			return nil, fmt.Errorf("term #%d: %w", i+1, err)
		}
	}
	return reg, nil
}

// Resolve combines identity from the file with overrides, non-empty override
// wins. Result is normalized, all parts are required.
func (b *Book) Resolve(over Identity) (Identity, error) {
	id := Identity{ASIN: b.ASIN, GUID: b.GUID, Database: b.Database}
	if over.ASIN != "" {
		id.ASIN = over.ASIN
	}
	if over.GUID != "" {
		id.GUID = over.GUID
	}
	if over.Database != "" {
		id.Database = over.Database
	}

	var err error
	if id.ASIN, err = common.NormalizeASIN(id.ASIN); err != nil {
		return Identity{}, err
	}
	if id.ASIN == "" {
		return Identity{}, errors.New("book asin is not known")
	}
	if id.GUID, err = common.NormalizeGUID(id.GUID); err != nil {
		return Identity{}, err
	}
	if id.Database == "" {
		return Identity{}, errors.New("book database name is not known")
	}
	return id, nil
}
