package config

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/multierr"

	"xrb/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare creates empty report. When destination cannot be created report
// goes to temporary directory.
func (conf *ReporterConfig) Prepare() (*Report, error) {
	f, err := os.Create(conf.Destination)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip"); err != nil {
			return nil, fmt.Errorf("unable to create report: %w", err)
		}
	}
	return &Report{file: f, entries: make(map[string]entry)}, nil
}

// entry is either a file, read when report is closed, or data captured
// when it was stored.
type entry struct {
	source string
	stamp  time.Time
	data   []byte
}

func (e entry) open() (io.ReadCloser, time.Time, error) {
	if e.source == "" || e.data != nil {
		return io.NopCloser(bytes.NewReader(e.data)), e.stamp, nil
	}
	info, err := os.Stat(e.source)
	if err != nil {
		return nil, time.Time{}, err
	}
	if !info.Mode().IsRegular() {
		return nil, time.Time{}, fmt.Errorf("'%s' is not a regular file", e.source)
	}
	f, err := os.Open(e.source)
	if err != nil {
		return nil, time.Time{}, err
	}
	return f, info.ModTime(), nil
}

// Report collects files and data for debug archive written on Close.
// Not safe for concurrent use. All methods accept nil receiver, which means
// no report has been requested.
type Report struct {
	entries map[string]entry
	file    *os.File
}

// Name returns absolute name of the report file.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	if n, err := filepath.Abs(r.file.Name()); err == nil {
		return n
	}
	return r.file.Name()
}

// Store remembers file to be read when report is closed. Files which
// disappear by then are skipped.
func (r *Report) Store(name, path string) {
	if r == nil {
		return
	}
	if p, err := filepath.Abs(path); err == nil {
		path = p
	}
	if old, exists := r.entries[name]; exists && old.source != path {
		panic(fmt.Sprintf("Attempt to overwrite file in the report for [%s]: was %s, now %s", name, old.source, path))
	}
	r.entries[name] = entry{source: path}
}

// StoreData puts data into report under requested name.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}
	if _, exists := r.entries[name]; exists {
		panic(fmt.Sprintf("Attempt to overwrite data in the report for [%s]", name))
	}
	r.entries[name] = entry{data: slices.Clone(data), stamp: time.Now()}
}

// StoreCopy captures file content at the time of the call. Repeated names
// get timestamp suffix, so the same file may be stored more than once.
func (r *Report) StoreCopy(name, path string) error {
	if r == nil {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	rc, stamp, err := entry{source: abs}.open()
	if err != nil {
		return fmt.Errorf("unable to store copy of '%s': %w", path, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("unable to store copy of '%s': %w", path, err)
	}
	if _, exists := r.entries[name]; exists {
		name = fmt.Sprintf("%s-%d", name, time.Now().UnixNano())
	}
	r.entries[name] = entry{source: abs, data: data, stamp: stamp}
	return nil
}

// Close writes the archive: MANIFEST first, then entries in name order.
func (r *Report) Close() (err error) {
	if r == nil || r.file == nil {
		return nil
	}
	defer func() {
		err = multierr.Append(err, r.file.Close())
	}()

	arc := zip.NewWriter(r.file)
	defer func() {
		err = multierr.Append(err, arc.Close())
	}()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.Sort(names)

	now := time.Now()
	var manifest strings.Builder
	for _, name := range names {
		e := r.entries[name]
		stamp := e.stamp
		if stamp.IsZero() {
			stamp = now
		}
		source := e.source
		if source == "" {
			source = "-"
		}
		fmt.Fprintf(&manifest, "%s\t%s\t%s\n", stamp.UTC().Format(time.UnixDate), name, source)
	}
	if err := saveFile(arc, "MANIFEST", now, strings.NewReader(manifest.String())); err != nil {
		return err
	}

	for _, name := range names {
		rc, stamp, err := r.entries[name].open()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		err = saveFile(arc, name, stamp, rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func saveFile(dst *zip.Writer, name string, t time.Time, src io.Reader) error {
	w, err := dst.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: t})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
