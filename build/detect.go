package build

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

const (
	bookExt  = ".rawml"
	termsExt = ".terms.yaml"
	zipExt   = ".zip"

	// enough for every matcher we care about
	headSize = 512
)

var rawmlType = filetype.NewType("rawml", "text/html")

func init() {
	filetype.AddMatcher(rawmlType, isRawML)
}

// isRawML recognizes decompressed MOBI markup: html document with optional
// BOM and leading white space.
func isRawML(buf []byte) bool {
	buf = bytes.TrimPrefix(buf, []byte("\xef\xbb\xbf"))
	buf = bytes.TrimLeft(buf, " \t\r\n")
	const tag = "<html"
	if len(buf) < len(tag) {
		return false
	}
	return bytes.EqualFold(buf[:len(tag)], []byte(tag))
}

func readHead(r io.Reader) ([]byte, error) {
	head := make([]byte, headSize)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return head[:n], nil
}

func headOf(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readHead(f)
}

func isArchiveFile(path string) (bool, error) {
	if !strings.EqualFold(filepath.Ext(path), zipExt) {
		return false, nil
	}
	head, err := headOf(path)
	if err != nil {
		return false, err
	}
	return filetype.Is(head, "zip"), nil
}

func isBookFile(path string) (bool, error) {
	if !hasBookExt(path) {
		return false, nil
	}
	head, err := headOf(path)
	if err != nil {
		return false, err
	}
	return isBook(head), nil
}

func isBookInArchive(f *zip.File) (bool, error) {
	if !hasBookExt(f.Name) {
		return false, nil
	}
	r, err := f.Open()
	if err != nil {
		return false, err
	}
	defer r.Close()

	head, err := readHead(r)
	if err != nil {
		return false, err
	}
	return isBook(head), nil
}

func hasBookExt(name string) bool {
	return strings.EqualFold(filepath.Ext(name), bookExt)
}

func isBook(head []byte) bool {
	return filetype.IsType(head, rawmlType)
}

// termsFor returns name of the terms file expected next to the book.
func termsFor(book string) string {
	return strings.TrimSuffix(book, filepath.Ext(book)) + termsExt
}
