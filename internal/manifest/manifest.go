// Package manifest inlines the project manifest into a module that imports
// it through the manifest alias.
//
// The manifest is a module exporting a single object literal:
//
//	export const MANIFEST: Components = {
//	    [HEADER]: /* #__LOADABLE__ */ () => import("./{@next/templating-name}/header"),
//	}
//
// Transform works in two explicit passes:
//   - a textual pass (Prune) that keeps only entries resolving to exactly one
//     file relative to the importing module and substitutes constants;
//   - a structural pass that parses the result, rewrites marked factories into
//     descriptors and returns the statement to splice in place of the import.
//
// Nothing is cached: every call rereads the manifest, the constants file and
// the filesystem.
package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"loadable-rewriter/internal/ctxlog"
	"loadable-rewriter/internal/jsast"
	"loadable-rewriter/internal/loadable"
)

const (
	DefaultChunkNamePlaceholder = "{@next/templating-name}"
	DefaultStartMarker          = "const MANIFEST = {"
	DefaultConstantsBaseName    = "constants"
)

// DefaultExtensions are the template file extensions tried during pruning.
var DefaultExtensions = []string{"ts", "tsx", "js", "jsx"}

// Options tunes the textual pass.
type Options struct {
	ChunkNamePlaceholder string
	StartMarker          string
	// StripOnce fragments are removed once each (first occurrence) so the
	// remaining text parses as a bare declaration.
	StripOnce         []string
	Extensions        []string
	ConstantsBaseName string
}

// DefaultOptions returns the options matching the standard manifest layout.
func DefaultOptions() Options {
	return Options{
		ChunkNamePlaceholder: DefaultChunkNamePlaceholder,
		StartMarker:          DefaultStartMarker,
		StripOnce:            []string{"export ", ": Components"},
		Extensions:           append([]string(nil), DefaultExtensions...),
		ConstantsBaseName:    DefaultConstantsBaseName,
	}
}

// Result describes one manifest transformation.
type Result struct {
	Fragment    *jsast.Fragment
	Pruned      *Pruned
	Constants   Constants
	Descriptors int
}

// Engine runs manifest transformations.
type Engine struct {
	kit    jsast.Toolkit
	synth  *loadable.Synthesizer
	opts   Options
	exists ExistsFunc
}

// New returns an Engine. A nil exists function checks the local filesystem.
func New(kit jsast.Toolkit, synth *loadable.Synthesizer, opts Options, exists ExistsFunc) *Engine {
	if exists == nil {
		exists = OSExists
	}
	return &Engine{kit: kit, synth: synth, opts: opts, exists: exists}
}

// Options returns the engine options.
func (e *Engine) Options() Options { return e.opts }

// Transform builds the statement that replaces an import of componentName
// from the manifest at manifestPath inside referencingFile.
func (e *Engine) Transform(ctx context.Context, manifestPath, componentName, referencingFile string) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	constantsPath := ConstantsPath(manifestPath, e.opts.ConstantsBaseName)
	consts, err := LoadConstants(ctx, e.kit, constantsPath)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", manifestPath, err)
	}

	pruned, err := Prune(string(raw), componentName, referencingFile, e.opts, e.exists)
	if err != nil {
		return nil, fmt.Errorf("prune manifest %s: %w", manifestPath, err)
	}
	for _, d := range pruned.Dropped {
		logger.Debug("Manifest entry dropped.", slog.String("path", d.Path), slog.Int("matches", len(d.Matches)))
	}
	text := SubstituteConstants(pruned.Text, consts)

	lang := jsast.LangForPath(manifestPath)
	tree, err := e.kit.Parse(ctx, []byte(text), lang)
	if err != nil {
		return nil, fmt.Errorf("parse pruned manifest %s: %w", manifestPath, err)
	}
	defer tree.Close()

	ed := jsast.NewEditor(tree.Source())
	n, err := e.synth.RewriteAll(e.synth.Find(tree.Root()), ed)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", manifestPath, err)
	}

	frag, err := e.kit.ParseStatement(ctx, ed.Apply(), lang)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", manifestPath, err)
	}
	logger.Debug("Manifest inlined.",
		slog.String("component", componentName),
		slog.Int("kept", len(pruned.Kept)),
		slog.Int("dropped", len(pruned.Dropped)),
		slog.Int("descriptors", n),
	)
	return &Result{Fragment: frag, Pruned: pruned, Constants: consts, Descriptors: n}, nil
}
