// Package jsast is the syntax toolkit used by the rewriting engines. It wraps
// tree-sitter to parse JavaScript/TypeScript modules and exposes:
//   - typed node matching and pre-order traversal (Node, Walk)
//   - text-level node construction (Builder, Template)
//   - byte-range splicing of rewritten nodes into the original source (Editor)
//   - statement fragments that are spliced in place of a node (Fragment)
//
// Notes:
//   - Rewrites never reprint a whole module. Untouched source keeps its exact
//     bytes, comments and formatting.
//   - A tree with ERROR or MISSING nodes is rejected with a *SyntaxError.
package jsast

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Lang selects the grammar used for a source file.
type Lang int

const (
	JavaScript Lang = iota // .js .jsx .mjs .cjs (the grammar includes JSX)
	TypeScript             // .ts .mts .cts
	TSX                    // .tsx
)

func (l Lang) String() string {
	switch l {
	case TypeScript:
		return "typescript"
	case TSX:
		return "tsx"
	default:
		return "javascript"
	}
}

func (l Lang) grammar() *sitter.Language {
	switch l {
	case TypeScript:
		return typescript.GetLanguage()
	case TSX:
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// LangForPath infers the grammar from a file extension.
func LangForPath(path string) Lang {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return TypeScript
	case ".tsx":
		return TSX
	default:
		return JavaScript
	}
}

// SyntaxError reports the first ERROR or MISSING node of a parse.
type SyntaxError struct {
	Lang    Lang
	Line    int // 1-based
	Column  int // 1-based, in bytes
	Snippet string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s syntax error at %d:%d near %q", e.Lang, e.Line, e.Column, e.Snippet)
}

// ErrNotStatement is returned by ParseStatement when the fragment does not
// hold exactly one statement.
var ErrNotStatement = errors.New("fragment must contain exactly one statement")

// Toolkit is the capability set the engines are written against.
type Toolkit interface {
	// Parse parses a complete module.
	Parse(ctx context.Context, src []byte, lang Lang) (*Tree, error)
	// ParseStatement parses a fragment holding exactly one statement.
	ParseStatement(ctx context.Context, src []byte, lang Lang) (*Fragment, error)
	// Builder returns the node construction primitives.
	Builder() *Builder
}

// Kit is the tree-sitter backed Toolkit.
type Kit struct {
	builder *Builder
}

// NewKit returns a Kit whose Builder indents with indent ("  " when empty).
func NewKit(indent string) *Kit {
	return &Kit{builder: NewBuilder(indent)}
}

// Builder returns the shared node builder.
func (k *Kit) Builder() *Builder { return k.builder }

// Parse parses src as a module. A new tree-sitter parser is created per call,
// so a Kit is safe for concurrent use.
func (k *Kit) Parse(ctx context.Context, src []byte, lang Lang) (*Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang.grammar())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	t := &Tree{src: src, tree: tree, lang: lang}
	if err := t.firstError(); err != nil {
		tree.Close()
		return nil, err
	}
	return t, nil
}

// ParseStatement parses src and checks that the program holds exactly one
// statement (comments aside).
func (k *Kit) ParseStatement(ctx context.Context, src []byte, lang Lang) (*Fragment, error) {
	t, err := k.Parse(ctx, src, lang)
	if err != nil {
		return nil, err
	}
	stmts := t.Root().NamedChildren()
	if len(stmts) != 1 {
		t.Close()
		return nil, fmt.Errorf("%w: got %d", ErrNotStatement, len(stmts))
	}
	return &Fragment{tree: t, stmt: stmts[0]}, nil
}

// Tree is a parsed module together with its source bytes.
type Tree struct {
	src  []byte
	tree *sitter.Tree
	lang Lang
}

// Root returns the program node.
func (t *Tree) Root() Node { return wrap(t.tree.RootNode(), t.src) }

// Source returns the bytes the tree was parsed from.
func (t *Tree) Source() []byte { return t.src }

// Lang returns the grammar used for the tree.
func (t *Tree) Lang() Lang { return t.lang }

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	if t != nil && t.tree != nil {
		t.tree.Close()
	}
}

func (t *Tree) firstError() error {
	root := t.Root()
	if !root.n.HasError() {
		return nil
	}
	var bad Node
	root.Walk(func(n Node) bool {
		if !bad.IsZero() {
			return false
		}
		if n.Type() == "ERROR" || n.n.IsMissing() {
			bad = n
			return false
		}
		return n.n.HasError()
	})
	if bad.IsZero() {
		bad = root
	}
	p := bad.n.StartPoint()
	snippet := bad.Text()
	if len(snippet) > 40 {
		snippet = snippet[:40]
	}
	return &SyntaxError{Lang: t.lang, Line: int(p.Row) + 1, Column: int(p.Column) + 1, Snippet: snippet}
}

// Fragment is a single parsed statement ready to be spliced into a module.
type Fragment struct {
	tree *Tree
	stmt Node
}

// Text returns the statement source, without leading or trailing trivia.
func (f *Fragment) Text() string { return f.stmt.Text() }

// Statement returns the statement node.
func (f *Fragment) Statement() Node { return f.stmt }

// Close releases the fragment's tree.
func (f *Fragment) Close() { f.tree.Close() }
