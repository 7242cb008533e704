package build

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"xrb/config"
	"xrb/terms"
	"xrb/xray"
)

// buildOutputPath returns output file path for the record. Relative directory
// of the source (inside processed directory or archive) is kept under
// destination so books with the same ASIN from different places do not
// collide. File name comes from configured template, record default name is
// used when template cannot be expanded.
func buildOutputPath(rec *xray.Record, id terms.Identity, src, dst string, cfg *config.DocumentConfig, log *zap.Logger) string {
	outDir := filepath.Join(dst, filepath.Dir(src))

	expanded, err := expandTemplate(config.OutputNameTemplateFieldName, cfg.OutputNameTemplate, newValues(config.OutputNameTemplateFieldName, id, src))
	if err != nil {
		log.Warn("Unable to prepare output filename", zap.Error(err))
		expanded = ""
	}
	expanded = strings.TrimSpace(filepath.FromSlash(expanded))
	if expanded == "" {
		return filepath.Join(outDir, cleanPathSegment(rec.FileName(), cfg))
	}
	return assemblePathWithSubdirs(outDir, expanded, cfg)
}

// assemblePathWithSubdirs takes an expanded template name (which may contain
// path separators for subdirectories) and assembles it into a full output path,
// cleaning and transliterating segments as needed
func assemblePathWithSubdirs(outDir, expandedName string, cfg *config.DocumentConfig) string {
	pathSegments := splitAndCleanPath(expandedName)
	if len(pathSegments) == 0 {
		return outDir
	}

	dirParts := make([]string, 0, len(pathSegments)+1)
	dirParts = append(dirParts, outDir)
	for _, segment := range pathSegments {
		dirParts = append(dirParts, cleanPathSegment(segment, cfg))
	}
	return filepath.Join(dirParts...)
}

func splitAndCleanPath(path string) []string {
	path = strings.TrimSuffix(path, string(os.PathSeparator))
	segments := make([]string, 0, 8)

	for head, tail := filepath.Split(path); tail != ""; head, tail = filepath.Split(head) {
		if tail != "." && tail != ".." {
			segments = slices.Insert(segments, 0, tail)
		}
		head = strings.TrimSuffix(head, string(os.PathSeparator))
		if head == "" {
			break
		}
	}
	return segments
}

// cleanPathSegment keeps extension intact, slug would otherwise eat the dot.
func cleanPathSegment(segment string, cfg *config.DocumentConfig) string {
	if cfg.FileNameTransliterate {
		ext := filepath.Ext(segment)
		if base := slug.Make(strings.TrimSuffix(segment, ext)); base != "" {
			segment = base + ext
		}
	}
	return config.CleanFileName(segment)
}
