// Package build is the "build" command: it finds books under the source
// path, pairs each one with its terms and writes X-Ray records.
package build

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"xrb/archive"
	"xrb/misc"
	"xrb/rawml"
	"xrb/state"
	"xrb/terms"
	"xrb/xray"
)

const (
	// rawml of the largest books seen is under 30MB
	maxBookSize  = 256 << 20
	maxTermsSize = 16 << 20
)

// termsLoader returns terms for a single book and the name they were loaded
// from.
type termsLoader func() (*terms.Book, string, error)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("build")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	doc := &env.Cfg.Document
	if cmd.IsSet("offset") {
		doc.Offset = cmd.Int64("offset")
	}
	if cp := cmd.String("codepage"); len(cp) > 0 {
		doc.CodePage = cp
	}
	if cmd.Bool("no-shorten") {
		doc.ShortenExcerpts = false
	}
	if env.Codec, err = rawml.NewCodec(doc.CodePage); err != nil {
		return err
	}

	env.Overwrite = cmd.Bool("overwrite")
	env.Identity = terms.Identity{
		ASIN:     cmd.String("asin"),
		GUID:     cmd.String("guid"),
		Database: cmd.String("db"),
	}
	if name := cmd.String("terms"); len(name) > 0 {
		if env.TermsFile, err = filepath.Abs(name); err != nil {
			return err
		}
	}

	log.Info("Processing starting",
		zap.String("source", src), zap.String("destination", dst), zap.String("run", env.RunID.String()),
		zap.String("codepage", env.Codec.Name()), zap.Int64("offset", doc.Offset))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

// process determines the input type (directory, archive, or single file) and
// processes accordingly. Path may continue inside of the archive.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := processDir(ctx, head, dst, log); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := isArchiveFile(head)
		if err != nil {
			// checking format - but cannot open target file
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			// we need to look inside to see if path makes sense
			tail = filepath.ToSlash(strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator)))
			if err := processArchive(ctx, head, tail, "", dst, log); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		book, err := isBookFile(head)
		if err != nil {
			return fmt.Errorf("unable to check file type: %w", err)
		}
		if book && len(tail) == 0 {
			// we have book, it cannot have tail
			if err := processFile(ctx, head, filepath.Base(head), dst, log); err != nil {
				return fmt.Errorf("unable to process file: %w", err)
			}
			break
		}
		return fmt.Errorf("input was not recognized as rawml book (%s)", head)
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return nil
}

// processDir finds all books under directory tree and processes them in
// natural order. Failed books do not stop processing, their errors are
// returned together.
func processDir(ctx context.Context, dir, dst string, log *zap.Logger) (err error) {
	var books, archives []string

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		isArchive, err := isArchiveFile(path)
		if err != nil {
			// checking format - but cannot open target file
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if isArchive {
			archives = append(archives, path)
			return nil
		}

		book, err := isBookFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if !book {
			log.Debug("Skipping file, not recognized as book or archive", zap.String("file", path))
			return nil
		}
		books = append(books, path)
		return nil
	})
	if err != nil {
		return err
	}

	if len(books) == 0 && len(archives) == 0 {
		log.Debug("Nothing to process", zap.String("dir", dir))
		return nil
	}

	sort.Sort(natural.StringSlice(books))
	sort.Sort(natural.StringSlice(archives))

	for _, path := range books {
		if er := ctx.Err(); er != nil {
			return multierr.Append(err, er)
		}
		src := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		if er := processFile(ctx, path, src, dst, log); er != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(er))
			err = multierr.Append(err, fmt.Errorf("%s: %w", src, er))
		}
	}
	for _, path := range archives {
		if er := ctx.Err(); er != nil {
			return multierr.Append(err, er)
		}
		out := filepath.Dir(strings.TrimPrefix(path, dir))
		if er := processArchive(ctx, path, "", out, dst, log); er != nil {
			log.Error("Unable to process archive", zap.String("file", path), zap.Error(er))
			err = multierr.Append(err, fmt.Errorf("%s: %w", path, er))
		}
	}
	return err
}

// processArchive processes all books inside archive located under "pathIn".
// Terms for each book are looked for inside the same archive unless terms
// file was given explicitly.
func processArchive(ctx context.Context, path, pathIn, pathOut, dst string, log *zap.Logger) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("archive", path))
		}
	}()

	env := state.EnvFromContext(ctx)

	var failed error
	err = archive.Walk(path, pathIn, func(arc string, f *zip.File, entries archive.Entries) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		book, err := isBookInArchive(f)
		if err != nil {
			log.Warn("Skipping file in archive",
				zap.String("archive", arc), zap.String("path", f.Name), zap.Error(err))
			return nil
		}
		if !book {
			log.Debug("Skipping file, not recognized as book", zap.String("archive", arc), zap.String("file", f.Name))
			return nil
		}

		count++

		src := filepath.Join(pathOut, filepath.FromSlash(f.Name))
		data, err := archive.ReadFile(f, maxBookSize)
		if err != nil {
			log.Error("Unable to read file in archive", zap.String("archive", arc), zap.String("file", f.Name), zap.Error(err))
			failed = multierr.Append(failed, fmt.Errorf("%s: %w", f.Name, err))
			return nil
		}

		loader := explicitTerms(env)
		if loader == nil {
			loader = archiveTerms(env, entries, termsFor(f.Name))
		}
		if err := processBook(ctx, data, loader, src, dst, log); err != nil {
			log.Error("Unable to process file in archive",
				zap.String("archive", arc), zap.String("file", f.Name), zap.Error(err))
			failed = multierr.Append(failed, fmt.Errorf("%s: %w", f.Name, err))
		}
		return nil
	})
	return multierr.Append(err, failed)
}

func processFile(ctx context.Context, path, src, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	loader := explicitTerms(env)
	if loader == nil {
		loader = fileTerms(env, termsFor(path))
	}
	return processBook(ctx, data, loader, src, dst, log)
}

func explicitTerms(env *state.LocalEnv) termsLoader {
	if len(env.TermsFile) == 0 {
		return nil
	}
	return fileTerms(env, env.TermsFile)
}

func fileTerms(env *state.LocalEnv, path string) termsLoader {
	return func() (*terms.Book, string, error) {
		b, err := terms.LoadFile(path)
		if err != nil {
			return nil, path, err
		}
		if err := env.Rpt.StoreCopy("terms/"+filepath.Base(path), path); err != nil {
			env.Log.Debug("Unable to store terms in report", zap.String("file", path), zap.Error(err))
		}
		return b, path, nil
	}
}

func archiveTerms(env *state.LocalEnv, entries archive.Entries, name string) termsLoader {
	return func() (*terms.Book, string, error) {
		data, err := entries.ReadFile(name, maxTermsSize)
		if err != nil {
			return nil, name, err
		}
		b, err := terms.Load(bytes.NewReader(data))
		if err != nil {
			return nil, name, fmt.Errorf("unable to load terms from %s: %w", name, err)
		}
		env.Rpt.StoreData(fmt.Sprintf("terms/%s-%d", filepath.Base(name), time.Now().UnixNano()), data)
		return b, name, nil
	}
}

// processBook builds X-Ray record for a single book. "src" is part of the
// source path (always including file name) relative to the original path,
// "dst" is the destination directory. Nothing is written unless the whole
// book was processed successfully.
func processBook(ctx context.Context, data []byte, loadTerms termsLoader, src, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)
	cfg := &env.Cfg.Document

	var (
		outputName string
		stats      xray.Stats
	)

	log.Info("Build starting", zap.String("from", src))
	defer func(start time.Time) {
		// one bad book should not stop the batch
		if r := recover(); r != nil {
			log.Error("Build ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("build panic: %v", r)
		} else if rerr == nil {
			log.Info("Build completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName),
				zap.Int("paragraphs", stats.Paragraphs), zap.Int("mentions", stats.Occurrences), zap.Int("unlocated", stats.Unlocated))
		}
	}(time.Now())

	book, termsName, err := loadTerms()
	if err != nil {
		return fmt.Errorf("unable to load terms (%s): %w", termsName, err)
	}
	id, err := book.Resolve(env.Identity)
	if err != nil {
		return fmt.Errorf("unable to identify book (%s): %w", termsName, err)
	}
	reg, err := book.Registry()
	if err != nil {
		return fmt.Errorf("unable to prepare terms (%s): %w", termsName, err)
	}
	log.Debug("Terms loaded", zap.String("from", termsName), zap.Int("count", reg.Len()),
		zap.String("asin", id.ASIN), zap.String("guid", id.GUID), zap.String("db", id.Database))

	doc, err := rawml.Parse(data, env.Codec)
	if err != nil {
		return fmt.Errorf("unable to parse rawml source (%s): %w", src, err)
	}

	version := cfg.XRayVersion
	if len(version) == 0 {
		version = misc.GetVersion()
	}

	var rec *xray.Record
	rec, stats, err = xray.Build(ctx, doc, reg, xray.Options{
		ASIN:         id.ASIN,
		Database:     id.Database,
		GUID:         id.GUID,
		XRayVersion:  version,
		Correction:   cfg.Offset,
		ExcerptLimit: cfg.ExcerptLimit,
		Shorten:      cfg.ShortenExcerpts,
		Progress:     progressReporter(log, src),
	}, log)
	if err != nil {
		return fmt.Errorf("unable to build x-ray (%s): %w", src, err)
	}

	outputName = buildOutputPath(rec, id, src, dst, cfg, log)
	if err := writeRecord(rec, outputName, env.Overwrite, log); err != nil {
		return err
	}

	if env.Rpt != nil {
		name := strings.TrimPrefix(filepath.ToSlash(src), "/")
		env.Rpt.StoreData("books/"+name+"/dump.txt", []byte(xray.Dump(rec, doc, cfg.Offset)))
		env.Rpt.Store("books/"+name+"/"+filepath.Base(outputName), outputName)
	}
	return nil
}

func writeRecord(rec *xray.Record, outputName string, overwrite bool, log *zap.Logger) (err error) {
	if _, err := os.Stat(outputName); err == nil {
		if !overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
	} else if !os.IsNotExist(err) {
		return err
	}
	dir := filepath.Dir(outputName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	// existing record is replaced only when new one is complete
	f, err := os.CreateTemp(dir, "."+filepath.Base(outputName)+".*")
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if _, err = rec.WriteTo(f); err != nil {
		return fmt.Errorf("unable to write output file: %w", err)
	}
	if err = multierr.Combine(f.Chmod(0644), f.Close()); err != nil {
		return fmt.Errorf("unable to write output file: %w", err)
	}
	if err = os.Rename(f.Name(), outputName); err != nil {
		return fmt.Errorf("unable to replace output file: %w", err)
	}
	return nil
}

// progressReporter logs scan progress in 10% steps.
func progressReporter(log *zap.Logger, src string) func(done, total int) {
	next := 0
	return func(done, total int) {
		if total == 0 {
			return
		}
		percent := done * 100 / total
		if percent < next {
			return
		}
		log.Debug("Scanning", zap.String("book", src), zap.Int("percent", percent), zap.Int("paragraphs", total))
		next = (percent/10 + 1) * 10
	}
}
