package xray

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"xrb/rawml"
)

// Options controls building of a single record.
type Options struct {
	ASIN        string
	Database    string
	GUID        string
	XRayVersion string

	Correction   int64
	ExcerptLimit int
	Shorten      bool
	Progress     func(done, total int)
}

// Build derives chapters, scans the book and returns the record. Registry
// entities receive occurrences. On error nothing usable is returned.
func Build(ctx context.Context, doc *rawml.Document, reg *Registry, opts Options, log *zap.Logger) (*Record, Stats, error) {
	chapters, err := ExtractChapters(doc, log.Named("toc"))
	if err != nil {
		return nil, Stats{}, err
	}
	rng := Range(chapters, doc.Len())
	if len(chapters) == 0 {
		log.Info("No chapters detected, using whole book", zap.Int64("length", doc.Len()))
		chapters = Fallback(doc.Len())
	} else {
		log.Debug("Chapters detected", zap.Int("count", len(chapters)), zap.Int64("srl", rng.SRL), zap.Int64("erl", rng.ERL))
	}

	s := NewScanner(log.Named("scan"))
	s.Correction = opts.Correction
	s.Shorten = opts.Shorten
	s.Progress = opts.Progress
	if opts.ExcerptLimit > 0 {
		s.ExcerptLimit = opts.ExcerptLimit
	}
	st, err := s.Scan(ctx, doc, reg, rng)
	if err != nil {
		return nil, st, fmt.Errorf("scan interrupted: %w", err)
	}

	return &Record{
		ASIN:        opts.ASIN,
		Database:    opts.Database,
		GUID:        opts.GUID,
		Version:     RecordVersion,
		XRayVersion: opts.XRayVersion,
		Terms:       reg.Entities(),
		Chapters:    chapters,
		Range:       rng,
	}, st, nil
}
