package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"loadable-rewriter/internal/jsast"
	"loadable-rewriter/internal/textutil"
)

// ErrStartMarkerNotFound is returned when the manifest has no line equal to
// the start-of-object marker.
var ErrStartMarkerNotFound = errors.New("manifest start marker not found")

// Entry is one indented manifest line together with its pruning decision.
type Entry struct {
	Line    string   `json:"line"`
	Path    string   `json:"path,omitempty"`    // "./..." as written, "" when the line has none
	Matches []string `json:"matches,omitempty"` // candidate files found on disk
}

// Pruned is the outcome of the textual pass.
type Pruned struct {
	Text    string
	EOL     string
	Kept    []Entry
	Dropped []Entry
}

// ExistsFunc reports whether a path exists.
type ExistsFunc func(path string) bool

// OSExists checks the local filesystem; directories count as existing.
func OSExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Prune runs the textual pass over the manifest source: placeholder
// substitution, stripping of the export keyword and type annotation,
// dropping of everything before the start marker, and removal of entries
// that do not resolve to exactly one file next to referencingFile.
//
// Structural detection is a formatting heuristic: a line whose first byte is
// not whitespace is structural and always kept.
func Prune(raw, componentName, referencingFile string, opts Options, exists ExistsFunc) (*Pruned, error) {
	if exists == nil {
		exists = OSExists
	}
	eol := textutil.DetectLineEnding(raw)

	text := strings.ReplaceAll(raw, opts.ChunkNamePlaceholder, componentName)
	for _, frag := range opts.StripOnce {
		text = strings.Replace(text, frag, "", 1)
	}
	lines := textutil.SplitNonEmpty(text, eol)

	start := -1
	for i, l := range lines {
		if l == opts.StartMarker {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, ErrStartMarkerNotFound
	}
	lines = lines[start:]

	refDir := filepath.Dir(referencingFile)
	out := &Pruned{EOL: eol}
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if !textutil.IsIndented(line) {
			kept = append(kept, line)
			continue
		}
		entry := Entry{Line: line}
		if rel, ok := RelativePath(line); ok {
			entry.Path = rel
			for _, c := range Candidates(rel, refDir, opts.Extensions) {
				if exists(c) {
					entry.Matches = append(entry.Matches, c)
				}
			}
		}
		// Missing and ambiguous entries are both dropped silently.
		if len(entry.Matches) == 1 {
			kept = append(kept, line)
			out.Kept = append(out.Kept, entry)
		} else {
			out.Dropped = append(out.Dropped, entry)
		}
	}
	out.Text = strings.Join(kept, eol)
	return out, nil
}

// RelativePath extracts the relative path of a property line: "./" followed
// by the text between the first "./" and the next "./" or quote character.
func RelativePath(line string) (string, bool) {
	i := strings.Index(line, "./")
	if i < 0 {
		return "", false
	}
	rest := line[i+2:]
	if j := strings.Index(rest, "./"); j >= 0 {
		rest = rest[:j]
	}
	if j := strings.IndexAny(rest, "\"'`"); j >= 0 {
		rest = rest[:j]
	}
	return "./" + rest, true
}

// Candidates lists the flat and index forms of rel for every extension,
// resolved against dir: <rel>.<ext> first, then <rel>/index.<ext>.
func Candidates(rel, dir string, exts []string) []string {
	out := make([]string, 0, 2*len(exts))
	for _, ext := range exts {
		out = append(out, filepath.Join(dir, filepath.FromSlash(rel+"."+ext)))
	}
	for _, ext := range exts {
		out = append(out, filepath.Join(dir, filepath.FromSlash(rel+"/index."+ext)))
	}
	return out
}

// SubstituteConstants replaces every `[NAME]` with `["value"]`, the value
// quoted as a JavaScript string.
func SubstituteConstants(text string, consts Constants) string {
	for _, name := range consts.Names() {
		text = strings.ReplaceAll(text, "["+name+"]", "["+jsast.Quote(consts[name])+"]")
	}
	return text
}
