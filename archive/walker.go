// Package archive builds Walk abstraction on top of "archive/zip".
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
)

// ErrTooLarge is returned when archive entry exceeds requested size limit.
var ErrTooLarge = errors.New("archive entry is too large")

// Entries gives access to all regular files of the archive being walked by
// their names, so companion files could be located next to the visited one.
type Entries map[string]*zip.File

// ReadFile returns content of named entry, fs.ErrNotExist wrapped if there is
// no such entry.
func (e Entries) ReadFile(name string, limit int64) ([]byte, error) {
	f, ok := e[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q: %w", name, fs.ErrNotExist)
	}
	return ReadFile(f, limit)
}

// Has reports whether archive contains regular file with this name.
func (e Entries) Has(name string) bool {
	_, ok := e[name]
	return ok
}

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The archive argument contains path to archive passed to
// Walk. The file argument is the zip.File structure for file in archive which
// satisfies match condition. If an error is returned, processing stops.
type WalkFunc func(archive string, file *zip.File, entries Entries) error

// Walk walks all files in the archive with names starting with prefix,
// calling walkFn for each item in archive order. Archives with path traversal
// components ("..") or absolute paths in entry names are rejected before any
// file is visited.
func Walk(archive, prefix string, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	entries := make(Entries, len(r.File))
	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if !f.FileInfo().IsDir() {
			entries[name] = f
		}
	}

	for _, f := range r.File {
		if f.FileInfo().IsDir() || !strings.HasPrefix(f.FileHeader.Name, prefix) {
			continue
		}
		if err := walkFn(archive, f, entries); err != nil {
			return err
		}
	}
	return nil
}

// ReadFile reads whole archive entry refusing anything larger than limit
// bytes. Limit 0 means no limit. Declared size is not trusted.
func ReadFile(f *zip.File, limit int64) ([]byte, error) {
	if limit > 0 && f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("zip entry %q (%d bytes): %w", f.Name, f.UncompressedSize64, ErrTooLarge)
	}
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var src io.Reader = r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("zip entry %q: %w", f.Name, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("zip entry %q: %w", f.Name, ErrTooLarge)
	}
	return data, nil
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	for part := range strings.SplitSeq(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
