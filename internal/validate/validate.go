// Package validate performs lightweight validation of the settings the CLI
// assembles and of the JSON run report before it is written.
//
// Goals:
//   - Aggregate multiple issues into a single error for better UX
//   - Catch settings that would silently match nothing (an indented start
//     marker, an empty alias, a sentinel that closes its own comment)
package validate

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"loadable-rewriter/internal/emit"
	"loadable-rewriter/internal/manifest"
	"loadable-rewriter/internal/rewrite"
	"loadable-rewriter/internal/textutil"
)

var manifestExts = map[string]struct{}{
	".js": {}, ".jsx": {}, ".mjs": {}, ".cjs": {},
	".ts": {}, ".tsx": {}, ".mts": {}, ".cts": {},
}

// Options validates the driver and manifest settings together with the
// sentinel:
//
//   - Alias and sentinel must be non-empty and free of blanks.
//   - The sentinel must not contain "*/".
//   - ManifestPath must be relative, use forward slashes, carry no ".."
//     segment and end in a JavaScript/TypeScript extension.
//   - Root markers, extensions and the constants base name must be plain names.
//   - The start marker must be a structural (non-indented) line.
func Options(r rewrite.Options, m manifest.Options, sentinel string) error {
	var errs errlist

	if strings.TrimSpace(r.Alias) == "" {
		errs.add("alias must be non-empty")
	} else if strings.ContainsAny(r.Alias, " \t\r\n") {
		errs.add("alias must not contain blanks (got %q)", r.Alias)
	}
	if strings.TrimSpace(r.ConstantsName) == "" {
		errs.add("constants name must be non-empty")
	}
	checkManifestPath(&errs, r.ManifestPath)
	if len(r.RootMarkers) == 0 {
		errs.add("at least one root marker is required")
	}
	for i, mk := range r.RootMarkers {
		if !plainName(mk) {
			errs.add("rootMarkers[%d]: must be a plain file name (got %q)", i, mk)
		}
	}

	if strings.TrimSpace(sentinel) == "" {
		errs.add("sentinel must be non-empty")
	} else {
		if strings.ContainsAny(sentinel, " \t\r\n") {
			errs.add("sentinel must not contain blanks (got %q)", sentinel)
		}
		if strings.Contains(sentinel, "*/") {
			errs.add("sentinel must not contain \"*/\"")
		}
	}

	if m.ChunkNamePlaceholder == "" {
		errs.add("chunk name placeholder must be non-empty")
	}
	if strings.TrimSpace(m.StartMarker) == "" {
		errs.add("start marker must be non-empty")
	} else if textutil.IsIndented(m.StartMarker) {
		errs.add("start marker must not be indented (got %q)", m.StartMarker)
	}
	if len(m.Extensions) == 0 {
		errs.add("at least one template extension is required")
	}
	for i, ext := range m.Extensions {
		if ext == "" || strings.HasPrefix(ext, ".") || !plainName(ext) {
			errs.add("extensions[%d]: want a bare extension like \"ts\" (got %q)", i, ext)
		}
	}
	if !plainName(m.ConstantsBaseName) {
		errs.add("constants base name must be a plain file name (got %q)", m.ConstantsBaseName)
	}

	return errs.err()
}

func checkManifestPath(errs *errlist, p string) {
	if p == "" {
		errs.add("manifest path must be non-empty")
		return
	}
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") {
		errs.add("manifest path must be relative to the project root, got %q", p)
	}
	if strings.Contains(p, `\`) {
		errs.add("manifest path must use forward slashes ('/'), found backslash")
	}
	if hasDotDot(p) {
		errs.add("manifest path must not contain '..' segments (got %q)", p)
	}
	if _, ok := manifestExts[strings.ToLower(path.Ext(p))]; !ok {
		errs.add("manifest path must end in a JavaScript or TypeScript extension (got %q)", p)
	}
}

// Report validates a run report before it is saved:
//
//   - Tool, format version and mode are non-empty.
//   - Every file has a path; paths are unique.
//   - A failed file has no written destination.
//   - Kept manifest entries have exactly one match.
func Report(r *emit.Report) error {
	if r == nil {
		return errors.New("report is nil")
	}
	var errs errlist
	if r.Tool == "" {
		errs.add("report.tool must be non-empty")
	}
	if r.FormatVersion == "" {
		errs.add("report.formatVersion must be non-empty")
	}
	if r.Mode == "" {
		errs.add("report.mode must be non-empty")
	}

	seen := make(map[string]struct{}, len(r.Files))
	for i, f := range r.Files {
		prefix := fmt.Sprintf("files[%d] (%s)", i, f.Path)
		if f.Path == "" {
			errs.add("%s: path must be non-empty", prefix)
		} else if _, dup := seen[f.Path]; dup {
			errs.add("%s: duplicate file path %q", prefix, f.Path)
		} else {
			seen[f.Path] = struct{}{}
		}
		if f.Error != "" && f.Written != "" {
			errs.add("%s: failed file must not record a written destination", prefix)
		}
		for j, imp := range f.ManifestImports {
			for k, e := range imp.Kept {
				if len(e.Matches) != 1 {
					errs.add("%s.manifestImports[%d].kept[%d]: want exactly one match, got %d", prefix, j, k, len(e.Matches))
				}
			}
		}
	}
	return errs.err()
}

// --- helpers -----------------------------------------------------------------

func hasDotDot(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

func plainName(s string) bool {
	return strings.TrimSpace(s) != "" && !strings.ContainsAny(s, `/\`) && s != "." && s != ".."
}

// errlist aggregates multiple validation issues into a single error.
type errlist struct {
	msgs []string
}

func (e *errlist) add(format string, args ...any) {
	e.msgs = append(e.msgs, fmt.Sprintf(format, args...))
}

func (e *errlist) err() error {
	if len(e.msgs) == 0 {
		return nil
	}
	return errors.New(strings.Join(e.msgs, "\n"))
}
