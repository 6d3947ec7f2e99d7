// Package walkwalk provides a deterministic, filterable filesystem walker
// used by the CLI to gather the modules to transform.
package walkwalk

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// FileInfo describes one collected module.
type FileInfo struct {
	Root    string // absolute walk root the file was found under
	RelPath string // root-relative path with forward slashes
	AbsPath string // absolute filesystem path
	Size    int64  // size in bytes
	Ext     string // lowercase extension including dot (e.g., ".tsx")
}

// Options filters the walk.
type Options struct {
	// Exts lists lowercase extensions with the leading dot. Empty accepts all.
	Exts map[string]struct{}
	// Exclude holds base names (or filepath.Match patterns) of files and
	// directories to skip.
	Exclude        map[string]struct{}
	MaxFileBytes   int64
	UseGitignore   bool
	FollowSymlinks bool
}

type walkState struct {
	opts     Options
	root     string
	patterns []gitPattern
	files    []FileInfo
}

// Collect expands paths into modules. Directories are walked with the
// filters applied; explicitly named files are taken as given. The result is
// sorted by absolute path and free of duplicates.
func Collect(paths []string, opts Options) ([]FileInfo, error) {
	seen := make(map[string]struct{})
	var out []FileInfo
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		st, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		var found []FileInfo
		if st.IsDir() {
			found, err = scanDir(abs, opts)
			if err != nil {
				return nil, err
			}
		} else {
			if !st.Mode().IsRegular() {
				return nil, fmt.Errorf("%s: not a regular file", p)
			}
			found = []FileInfo{{
				Root:    filepath.Dir(abs),
				RelPath: filepath.Base(abs),
				AbsPath: abs,
				Size:    st.Size(),
				Ext:     strings.ToLower(filepath.Ext(abs)),
			}}
		}
		for _, f := range found {
			if _, dup := seen[f.AbsPath]; dup {
				continue
			}
			seen[f.AbsPath] = struct{}{}
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AbsPath < out[j].AbsPath })
	return out, nil
}

func scanDir(root string, opts Options) ([]FileInfo, error) {
	state := &walkState{opts: opts, root: root}
	if opts.UseGitignore {
		// A missing or unreadable .gitignore means no patterns.
		state.patterns, _ = parseGitignore(filepath.Join(root, ".gitignore"))
	}
	if err := filepath.WalkDir(root, state.visit); err != nil {
		return nil, err
	}
	return state.files, nil
}

func (ws *walkState) visit(path string, d fs.DirEntry, err error) error {
	if err != nil {
		return nil
	}
	rel, ok := ws.relative(path)
	if !ok {
		return nil
	}
	if rel != "." && ws.shouldSkip(rel, d) {
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}
	if d.IsDir() {
		if rel != "." && !ws.opts.FollowSymlinks && isSymlink(d) {
			return filepath.SkipDir
		}
		return nil
	}
	return ws.handleFile(path, rel, d)
}

func (ws *walkState) relative(path string) (string, bool) {
	rel, err := filepath.Rel(ws.root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "../") || rel == ".." {
		return "", false
	}
	return rel, true
}

func (ws *walkState) shouldSkip(rel string, d fs.DirEntry) bool {
	if excluded(filepath.Base(rel), ws.opts.Exclude) {
		return true
	}
	return ws.opts.UseGitignore && matchGitignore(ws.patterns, rel, d.IsDir())
}

func (ws *walkState) handleFile(path, rel string, d fs.DirEntry) error {
	if !ws.opts.FollowSymlinks && isSymlink(d) {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	if ws.opts.MaxFileBytes > 0 && info.Size() > ws.opts.MaxFileBytes {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !acceptExt(ext, ws.opts.Exts) {
		return nil
	}
	ws.files = append(ws.files, FileInfo{
		Root:    ws.root,
		RelPath: rel,
		AbsPath: path,
		Size:    info.Size(),
		Ext:     ext,
	})
	return nil
}

func acceptExt(ext string, exts map[string]struct{}) bool {
	if len(exts) == 0 {
		return true
	}
	_, ok := exts[ext]
	return ok
}

// isSymlink reports whether the DirEntry is a symlink (file or directory).
func isSymlink(d fs.DirEntry) bool {
	return d.Type()&fs.ModeSymlink != 0
}

// excluded reports whether base equals an exclude entry or matches it as a
// glob.
func excluded(base string, exclude map[string]struct{}) bool {
	if _, ok := exclude[base]; ok {
		return true
	}
	for pat := range exclude {
		if !strings.ContainsAny(pat, "*?[") {
			continue
		}
		if ok, _ := filepath.Match(pat, base); ok {
			return true
		}
	}
	return false
}

// ---------------- .gitignore support ----------------

type gitPattern struct {
	neg     bool // pattern starts with '!'
	dirOnly bool // pattern ends with '/'
	rx      *regexp.Regexp
}

// parseGitignore reads a .gitignore file and compiles patterns. Minimal support:
//   - '#' comments, blank lines ignored
//   - '!' negation
//   - leading '/' anchors to the walk root
//   - trailing '/' restricts to directories
//   - '**' matches across directories
//   - '*' and '?' behave like shell globs (not crossing '/')
func parseGitignore(path string) ([]gitPattern, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var res []gitPattern
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		neg := strings.HasPrefix(line, "!")
		if neg {
			line = strings.TrimSpace(line[1:])
			if line == "" {
				continue
			}
		}
		dirOnly := strings.HasSuffix(line, "/")
		line = strings.TrimSuffix(line, "/")
		anchored := strings.HasPrefix(line, "/")
		line = strings.TrimPrefix(line, "/")
		res = append(res, gitPattern{neg: neg, dirOnly: dirOnly, rx: compileGitGlob(line, anchored)})
	}
	return res, s.Err()
}

func compileGitGlob(glob string, anchored bool) *regexp.Regexp {
	esc := regexp.QuoteMeta(glob)
	esc = strings.ReplaceAll(esc, `\*\*`, "\x00")
	esc = strings.ReplaceAll(esc, `\*`, "[^/]*")
	esc = strings.ReplaceAll(esc, `\?`, "[^/]")
	esc = strings.ReplaceAll(esc, "\x00", ".*")
	if anchored {
		return regexp.MustCompile("^" + esc + "$")
	}
	return regexp.MustCompile("(^|.*/)" + esc + "$")
}

func matchGitignore(pats []gitPattern, rel string, isDir bool) bool {
	ignored := false
	for _, p := range pats {
		if p.dirOnly && !isDir {
			continue
		}
		if p.rx.MatchString(rel) {
			ignored = !p.neg
		}
	}
	return ignored
}
