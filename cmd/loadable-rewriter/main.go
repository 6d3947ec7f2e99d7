// Package main provides the loadable-rewriter CLI. It walks JavaScript and
// TypeScript sources, inlines aliased manifest imports and turns factories
// marked with the loadable sentinel into lazy-loading descriptors.
//
// Modes (exactly one):
//   - loadable-rewriter -w [flags] <path>...        rewrite files in place
//   - loadable-rewriter -out DIR [flags] <path>...  write results under DIR
//   - loadable-rewriter -diff [flags] <path>...     print unified diffs
//   - loadable-rewriter -check [flags] <path>...    exit 1 if anything would change
//
// Flag defaults come from LOADABLE_* environment variables and an optional
// .env file in the working directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"loadable-rewriter/internal/config"
	"loadable-rewriter/internal/ctxlog"
	"loadable-rewriter/internal/diff"
	"loadable-rewriter/internal/emit"
	"loadable-rewriter/internal/jsast"
	"loadable-rewriter/internal/loadable"
	"loadable-rewriter/internal/manifest"
	"loadable-rewriter/internal/rewrite"
	"loadable-rewriter/internal/sortutil"
	"loadable-rewriter/internal/validate"
	"loadable-rewriter/internal/walkwalk"
)

const toolName = "loadable-rewriter"

// Modes.
const (
	modeWrite = "write"
	modeOut   = "out"
	modeDiff  = "diff"
	modeCheck = "check"
)

// Config is the parsed command line.
type Config struct {
	paths []string

	write  bool
	outDir string
	diff   bool
	check  bool

	exts           string
	exclude        string
	useGitignore   bool
	followSymlinks bool
	maxFileBytes   int64

	alias            string
	manifestPath     string
	sentinel         string
	chunkPlaceholder string

	diffContext  int
	diffNoPrefix bool
	reportPath   string
	explain      bool
	logLevel     string
	logFormat    string
}

// splitCSV converts a comma-separated list into a slice, trimming spaces and
// skipping empty items.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// toSet builds a string->struct{} set from a slice, skipping empty strings.
func toSet(list []string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, v := range list {
		if v != "" {
			m[v] = struct{}{}
		}
	}
	return m
}

// extSet normalizes ".TS, tsx" to {".ts", ".tsx"}.
func extSet(s string) map[string]struct{} {
	list := splitCSV(s)
	for i, e := range list {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		list[i] = e
	}
	return toSet(list)
}

func parseFlags(args []string, def config.Defaults, errW io.Writer) (Config, error) {
	var cfg Config
	fs := flag.NewFlagSet(toolName, flag.ContinueOnError)
	fs.SetOutput(errW)
	fs.Usage = func() {
		fmt.Fprintf(errW, "Usage:\n")
		fmt.Fprintf(errW, "  %s -w|-out DIR|-diff|-check [flags] <path>...\n", toolName)
		fmt.Fprintln(errW, "  (Use -- to separate flags from the positional paths if needed.)")
		fmt.Fprintln(errW, "\nFlags:")
		fs.PrintDefaults()
	}

	// Modes
	fs.BoolVar(&cfg.write, "w", false, "rewrite files in place")
	fs.StringVar(&cfg.outDir, "out", "", "write every processed file under `DIR`, mirroring paths")
	fs.BoolVar(&cfg.diff, "diff", false, "print unified diffs of the changes to stdout")
	fs.BoolVar(&cfg.check, "check", false, "list files that would change and exit 1 if any")

	// Selection & walking
	fs.StringVar(&cfg.exts, "ext", def.Ext, "comma-separated extensions to process")
	fs.StringVar(&cfg.exclude, "exclude", def.Exclude, "comma-separated dir/file names or globs to skip")
	fs.BoolVar(&cfg.useGitignore, "use-gitignore", def.UseGitignore, "honor the root .gitignore of each walked directory")
	fs.BoolVar(&cfg.followSymlinks, "follow-symlinks", def.FollowSymlinks, "follow symlinks during walk")
	fs.Int64Var(&cfg.maxFileBytes, "max-file-bytes", def.MaxFileBytes, "skip files larger than this (0 = no limit)")

	// Transformation
	fs.StringVar(&cfg.alias, "alias", def.Alias, "module specifier prefix of manifest imports")
	fs.StringVar(&cfg.manifestPath, "manifest", def.Manifest, "manifest path relative to the project root")
	fs.StringVar(&cfg.sentinel, "sentinel", def.Sentinel, "comment text marking loadable factories")
	fs.StringVar(&cfg.chunkPlaceholder, "chunk-placeholder", def.ChunkPlaceholder, "manifest placeholder replaced by the component name")

	// Output
	fs.IntVar(&cfg.diffContext, "diff-context", def.DiffContext, "context lines in -diff output")
	fs.BoolVar(&cfg.diffNoPrefix, "diff-no-prefix", false, "omit a/ and b/ prefixes in -diff headers")
	fs.StringVar(&cfg.reportPath, "report", "", "write a JSON run report to `FILE`")
	fs.BoolVar(&cfg.explain, "explain", false, "print kept and dropped manifest entries to stderr")
	fs.StringVar(&cfg.logLevel, "log-level", def.LogLevel, "debug|info|warn|error")
	fs.StringVar(&cfg.logFormat, "log-format", def.LogFormat, "text|json")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return Config{}, errors.New("missing <path>")
	}
	cfg.paths = fs.Args()
	return cfg, nil
}

func selectMode(cfg Config) (string, error) {
	var modes []string
	if cfg.write {
		modes = append(modes, modeWrite)
	}
	if cfg.outDir != "" {
		modes = append(modes, modeOut)
	}
	if cfg.diff {
		modes = append(modes, modeDiff)
	}
	if cfg.check {
		modes = append(modes, modeCheck)
	}
	switch len(modes) {
	case 0:
		return "", errors.New("one of -w, -out, -diff or -check is required")
	case 1:
		return modes[0], nil
	default:
		return "", fmt.Errorf("-w, -out, -diff and -check are mutually exclusive (got %s)", strings.Join(modes, ", "))
	}
}

func newRewriter(cfg Config) (*rewrite.Rewriter, error) {
	kit := jsast.NewKit("")
	synth := loadable.NewSynthesizer(kit, loadable.WithSentinel(cfg.sentinel))
	mopts := manifest.DefaultOptions()
	mopts.ChunkNamePlaceholder = cfg.chunkPlaceholder
	engine := manifest.New(kit, synth, mopts, nil)
	ropts := rewrite.DefaultOptions()
	ropts.Alias = cfg.alias
	ropts.ManifestPath = cfg.manifestPath
	if err := validate.Options(ropts, mopts, cfg.sentinel); err != nil {
		return nil, fmt.Errorf("invalid settings:\n%w", err)
	}
	return rewrite.New(kit, synth, engine, ropts), nil
}

// outputPaths maps every module to its destination under outDir. Explicitly
// named files mirror only their base name, so two inputs can land on the
// same destination; that is rejected before anything is written.
func outputPaths(files []walkwalk.FileInfo, outDir string) (map[string]string, error) {
	dests := make(map[string]string, len(files))
	owner := make(map[string]string, len(files))
	for _, f := range files {
		dest := filepath.Join(outDir, filepath.FromSlash(f.RelPath))
		if prev, taken := owner[dest]; taken {
			return nil, fmt.Errorf("-out: %s and %s both map to %s", displayPath(prev), displayPath(f.AbsPath), dest)
		}
		owner[dest] = f.AbsPath
		dests[f.AbsPath] = dest
	}
	return dests, nil
}

// displayPath is p relative to the working directory when that stays below
// it, else p itself.
func displayPath(p string) string {
	wd, err := os.Getwd()
	if err != nil {
		return p
	}
	rel, err := filepath.Rel(wd, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return filepath.ToSlash(rel)
}

func explain(w io.Writer, name string, res *rewrite.Result) {
	for _, imp := range res.Imports {
		fmt.Fprintf(w, "%s:%d: %s kept=%d dropped=%d descriptors=%d\n",
			name, imp.Line, imp.Specifier, len(imp.Kept), len(imp.Dropped), imp.Descriptors)
		for _, e := range imp.Kept {
			fmt.Fprintf(w, "  kept    %s -> %s\n", e.Path, displayPath(e.Matches[0]))
		}
		for _, e := range imp.Dropped {
			path := e.Path
			if path == "" {
				path = strings.TrimSpace(e.Line)
			}
			fmt.Fprintf(w, "  dropped %s (%d matches)\n", path, len(e.Matches))
			for _, m := range sortutil.Sorted(e.Matches) {
				fmt.Fprintf(w, "          %s\n", displayPath(m))
			}
		}
	}
}

func reportEntry(name string, res *rewrite.Result) emit.FileEntry {
	entry := emit.FileEntry{
		Path:            name,
		Changed:         res.Changed(),
		Descriptors:     res.Descriptors,
		ManifestImports: []emit.ImportEntry{},
	}
	for _, imp := range res.Imports {
		entry.Descriptors += imp.Descriptors
		entry.ManifestImports = append(entry.ManifestImports, emit.ImportEntry{
			Specifier:   imp.Specifier,
			Component:   imp.Component,
			Line:        imp.Line,
			Kept:        imp.Kept,
			Dropped:     imp.Dropped,
			Descriptors: imp.Descriptors,
		})
	}
	return entry
}

func run(ctx context.Context, args []string, outW, errW io.Writer) int {
	def, err := config.Load()
	if err != nil {
		fmt.Fprintln(errW, "ERROR:", err)
		return 2
	}
	cfg, err := parseFlags(args, def, errW)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(errW, "ERROR:", err)
		return 2
	}
	mode, err := selectMode(cfg)
	if err != nil {
		fmt.Fprintln(errW, "ERROR:", err)
		return 2
	}

	rw, err := newRewriter(cfg)
	if err != nil {
		fmt.Fprintln(errW, "ERROR:", err)
		return 2
	}

	ctx = ctxlog.WithLogger(ctx, ctxlog.New(cfg.logLevel, cfg.logFormat, errW))

	files, err := walkwalk.Collect(cfg.paths, walkwalk.Options{
		Exts:           extSet(cfg.exts),
		Exclude:        toSet(splitCSV(cfg.exclude)),
		MaxFileBytes:   cfg.maxFileBytes,
		UseGitignore:   cfg.useGitignore,
		FollowSymlinks: cfg.followSymlinks,
	})
	if err != nil {
		fmt.Fprintln(errW, "ERROR:", err)
		return 1
	}
	if len(files) == 0 {
		fmt.Fprintln(errW, "No files matched filters.")
		return 0
	}

	var dests map[string]string
	if mode == modeOut {
		if dests, err = outputPaths(files, cfg.outDir); err != nil {
			fmt.Fprintln(errW, "ERROR:", err)
			return 2
		}
	}

	report := emit.NewReport(toolName, mode)
	summaryW := outW
	if mode == modeDiff {
		summaryW = errW
	}

	for _, f := range files {
		name := displayPath(f.AbsPath)
		res, err := rw.File(ctx, f.AbsPath)
		if err != nil {
			fmt.Fprintln(errW, "ERROR:", err)
			report.Files = append(report.Files, emit.FileEntry{Path: name, Error: err.Error()})
			continue
		}
		if report.Project == nil && res.Project != nil {
			report.Project = &emit.Project{Root: res.Project.Root, Name: res.Project.Name, Version: res.Project.Version}
		}
		if cfg.explain {
			explain(errW, name, res)
		}
		entry := reportEntry(name, res)

		switch mode {
		case modeWrite:
			if res.Changed() {
				if err := emit.WriteFile(f.AbsPath, res.Output); err != nil {
					fmt.Fprintln(errW, "ERROR:", err)
					entry.Error = err.Error()
					break
				}
				entry.Written = f.AbsPath
			}
		case modeOut:
			dest := dests[f.AbsPath]
			if err := emit.WriteFile(dest, res.Output); err != nil {
				fmt.Fprintln(errW, "ERROR:", err)
				entry.Error = err.Error()
				break
			}
			entry.Written = dest
		case modeDiff:
			patch, _ := diff.Unified(name, res.Source, res.Output, diff.Options{
				Context:  cfg.diffContext,
				NoPrefix: cfg.diffNoPrefix,
			})
			fmt.Fprint(outW, patch)
		case modeCheck:
			if res.Changed() {
				fmt.Fprintln(outW, "would rewrite", name)
			}
		}
		report.Files = append(report.Files, entry)
	}

	if cfg.reportPath != "" {
		if err := validate.Report(report); err != nil {
			fmt.Fprintln(errW, "ERROR: invalid report:", err)
			return 1
		}
		if err := emit.SaveReport(cfg.reportPath, report); err != nil {
			fmt.Fprintln(errW, "ERROR: saving report:", err)
			return 1
		}
	}

	changed, failed := report.Counts()
	fmt.Fprintf(summaryW, "Processed %d files (changed=%d, failed=%d, mode=%s)\n", len(files), changed, failed, mode)
	if failed > 0 || (mode == modeCheck && changed > 0) {
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
