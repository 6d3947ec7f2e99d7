// Package rewrite drives the transformation of one module: aliased manifest
// imports are replaced by the inlined manifest and marked factories by
// descriptor objects.
//
// A module is walked once. Edits are collected first and applied at the
// end, so any failure leaves the module untouched.
package rewrite

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"loadable-rewriter/internal/ctxlog"
	"loadable-rewriter/internal/jsast"
	"loadable-rewriter/internal/loadable"
	"loadable-rewriter/internal/manifest"
	"loadable-rewriter/internal/project"
)

const (
	DefaultAlias         = "@manifest"
	DefaultConstantsName = "constants"
	DefaultManifestPath  = "src/templating/manifest.ts"
)

var componentNameRe = regexp.MustCompile(`^[a-zA-Z0-9-]*$`)

// Options configures the driver.
type Options struct {
	// Alias is the module specifier prefix of manifest imports.
	Alias string
	// ConstantsName is the component name passed through untouched.
	ConstantsName string
	// ManifestPath is the manifest location relative to the project root,
	// with forward slashes.
	ManifestPath string
	RootMarkers  []string
}

// DefaultOptions returns the standard alias and manifest layout.
func DefaultOptions() Options {
	return Options{
		Alias:         DefaultAlias,
		ConstantsName: DefaultConstantsName,
		ManifestPath:  DefaultManifestPath,
		RootMarkers:   append([]string(nil), project.DefaultMarkers...),
	}
}

// BadManifestImportError is returned for a manifest import whose component
// name holds characters outside [a-zA-Z0-9-].
type BadManifestImportError struct {
	Specifier string
}

func (e *BadManifestImportError) Error() string {
	return fmt.Sprintf("bad import of manifest: %s", e.Specifier)
}

// ModuleError wraps any failure with the module being transformed.
type ModuleError struct {
	Path string
	Err  error
}

func (e *ModuleError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e *ModuleError) Unwrap() error { return e.Err }

// ManifestImport records one inlined manifest import.
type ManifestImport struct {
	Specifier   string           `json:"specifier"`
	Component   string           `json:"component"`
	Manifest    string           `json:"manifest"`
	Line        int              `json:"line"`
	Kept        []manifest.Entry `json:"kept"`
	Dropped     []manifest.Entry `json:"dropped"`
	Descriptors int              `json:"descriptors"`
}

// Result is the outcome of a module transformation.
type Result struct {
	Path        string
	Source      []byte
	Output      []byte
	Project     *project.Info
	Imports     []ManifestImport
	Descriptors int
}

// Changed reports whether the output differs from the source.
func (r *Result) Changed() bool { return !bytes.Equal(r.Source, r.Output) }

// Rewriter transforms modules.
type Rewriter struct {
	kit       jsast.Toolkit
	synth     *loadable.Synthesizer
	manifests *manifest.Engine
	opts      Options
}

// New returns a Rewriter.
func New(kit jsast.Toolkit, synth *loadable.Synthesizer, manifests *manifest.Engine, opts Options) *Rewriter {
	return &Rewriter{kit: kit, synth: synth, manifests: manifests, opts: opts}
}

// ComponentName derives the component from a manifest specifier:
// "@manifest/header" → "header". skip is true for the constants module.
func ComponentName(specifier, alias, constantsName string) (name string, skip bool, err error) {
	rest := strings.Replace(specifier, alias, "", 1)
	parts := strings.Split(rest, "/")
	name = strings.Join(parts[1:], "/")
	if name == constantsName {
		return "", true, nil
	}
	if !componentNameRe.MatchString(name) {
		return "", false, &BadManifestImportError{Specifier: specifier}
	}
	return name, false, nil
}

// File reads path and transforms it.
func (r *Rewriter) File(ctx context.Context, path string) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &ModuleError{Path: path, Err: err}
	}
	return r.Module(ctx, path, src)
}

// Module transforms src, the content of the module at path. On failure the
// error is logged with the module path and returned as a *ModuleError.
func (r *Rewriter) Module(ctx context.Context, path string, src []byte) (*Result, error) {
	res, err := r.module(ctx, path, src)
	if err != nil {
		ctxlog.FromContext(ctx).Error("Module transformation failed.",
			slog.String("file", path),
			slog.String("error", err.Error()),
		)
		return nil, &ModuleError{Path: path, Err: err}
	}
	return res, nil
}

type manifestImportSite struct {
	node      jsast.Node
	specifier string
}

func (r *Rewriter) module(ctx context.Context, path string, src []byte) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	lang := jsast.LangForPath(path)
	tree, err := r.kit.Parse(ctx, src, lang)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var imports []manifestImportSite
	var factories []loadable.Factory
	tree.Root().Walk(func(n jsast.Node) bool {
		if n.Type() == "import_statement" {
			if spec, ok := jsast.StringValue(n.Field("source")); ok && strings.HasPrefix(spec, r.opts.Alias) {
				imports = append(imports, manifestImportSite{node: n, specifier: spec})
			}
			return false
		}
		if f, ok := r.synth.Marked(n); ok {
			factories = append(factories, f)
		}
		return true
	})

	res := &Result{Path: path, Source: src, Output: src}
	ed := jsast.NewEditor(src)

	for _, imp := range imports {
		mi, err := r.inlineManifest(ctx, abs, imp, ed, res)
		if err != nil {
			return nil, err
		}
		if mi != nil {
			res.Imports = append(res.Imports, *mi)
		}
	}

	n, err := r.synth.RewriteAll(factories, ed)
	if err != nil {
		return nil, err
	}
	res.Descriptors = n

	if ed.Len() == 0 {
		return res, nil
	}
	out := ed.Apply()
	check, err := r.kit.Parse(ctx, out, lang)
	if err != nil {
		return nil, fmt.Errorf("rewritten module does not parse: %w", err)
	}
	check.Close()
	res.Output = out
	logger.Debug("Module rewritten.",
		slog.String("file", path),
		slog.Int("manifestImports", len(res.Imports)),
		slog.Int("descriptors", res.Descriptors),
	)
	return res, nil
}

func (r *Rewriter) inlineManifest(ctx context.Context, abs string, imp manifestImportSite, ed *jsast.Editor, res *Result) (*ManifestImport, error) {
	name, skip, err := ComponentName(imp.specifier, r.opts.Alias, r.opts.ConstantsName)
	if err != nil || skip {
		return nil, err
	}
	root, err := project.FindRoot(filepath.Dir(abs), r.opts.RootMarkers...)
	if err != nil {
		return nil, err
	}
	if res.Project == nil {
		inf := project.Describe(root)
		res.Project = &inf
	}
	manifestPath := filepath.Join(root, filepath.FromSlash(r.opts.ManifestPath))
	mres, err := r.manifests.Transform(ctx, manifestPath, name, abs)
	if err != nil {
		return nil, err
	}
	defer mres.Fragment.Close()
	if err := ed.ReplaceNode(imp.node, mres.Fragment.Text()); err != nil {
		return nil, err
	}
	return &ManifestImport{
		Specifier:   imp.specifier,
		Component:   name,
		Manifest:    manifestPath,
		Line:        imp.node.Line(),
		Kept:        mres.Pruned.Kept,
		Dropped:     mres.Pruned.Dropped,
		Descriptors: mres.Descriptors,
	}, nil
}
