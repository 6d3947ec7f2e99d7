package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"loadable-rewriter/internal/jsast"
	"loadable-rewriter/internal/sortutil"
)

// Constants maps exported constant names to their literal values.
type Constants map[string]string

// Names returns the constant names, sorted.
func (c Constants) Names() []string { return sortutil.Keys(c) }

// ConstantsError is returned when the constants file is missing or one of its
// exported declarations does not have exactly one initialized declarator.
type ConstantsError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ConstantsError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("manifest constants %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("manifest constants %s: %s", e.Path, e.Reason)
}

func (e *ConstantsError) Unwrap() error { return e.Err }

// ConstantsPath returns the constants file next to the manifest, sharing its
// extension: src/templating/manifest.ts → src/templating/constants.ts.
func ConstantsPath(manifestPath, baseName string) string {
	return filepath.Join(filepath.Dir(manifestPath), baseName+filepath.Ext(manifestPath))
}

// LoadConstants parses path and collects its `export const|let|var NAME =
// <literal>` declarations. Non-variable exports (types, functions, export
// clauses) are skipped; declarations with a non-literal initializer are not
// mapped.
func LoadConstants(ctx context.Context, kit jsast.Toolkit, path string) (Constants, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		reason := "cannot read file"
		if errors.Is(err, os.ErrNotExist) {
			reason = "file not found"
		}
		return nil, &ConstantsError{Path: path, Reason: reason, Err: err}
	}
	tree, err := kit.Parse(ctx, src, jsast.LangForPath(path))
	if err != nil {
		return nil, &ConstantsError{Path: path, Reason: "cannot parse", Err: err}
	}
	defer tree.Close()

	consts := Constants{}
	for _, stmt := range tree.Root().NamedChildren() {
		if stmt.Type() != "export_statement" {
			continue
		}
		decl := stmt.Field("declaration")
		if !decl.Is("lexical_declaration", "variable_declaration") {
			continue
		}
		var declarators []jsast.Node
		for _, c := range decl.NamedChildren() {
			if c.Type() == "variable_declarator" {
				declarators = append(declarators, c)
			}
		}
		if len(declarators) != 1 {
			return nil, &ConstantsError{Path: path, Reason: fmt.Sprintf("line %d: expected a single declarator, got %d", decl.Line(), len(declarators))}
		}
		d := declarators[0]
		name := d.Field("name")
		value := d.Field("value")
		if name.Type() != "identifier" || value.IsZero() {
			return nil, &ConstantsError{Path: path, Reason: fmt.Sprintf("line %d: %q has no initializer", d.Line(), name.Text())}
		}
		if v, ok := literalValue(value); ok {
			consts[name.Text()] = v
		}
	}
	return consts, nil
}

// literalValue returns the value of a literal initializer, looking through
// parentheses and TypeScript `as const` / `satisfies` wrappers.
func literalValue(n jsast.Node) (string, bool) {
	for n.Is("parenthesized_expression", "as_expression", "satisfies_expression", "non_null_expression") {
		kids := n.NamedChildren()
		if len(kids) == 0 {
			return "", false
		}
		n = kids[0]
	}
	if v, ok := jsast.StringValue(n); ok {
		return v, true
	}
	switch n.Type() {
	case "number":
		return normalizeNumber(n.Text()), true
	case "true", "false", "null":
		return n.Type(), true
	case "unary_expression":
		if arg := n.Field("argument"); arg.Type() == "number" && strings.HasPrefix(n.Text(), "-") {
			return "-" + normalizeNumber(arg.Text()), true
		}
	}
	return "", false
}

// normalizeNumber prints numeric literals the way a JS runtime would
// stringify them for the simple cases (separators, hex); others are kept.
func normalizeNumber(lit string) string {
	clean := strings.ReplaceAll(lit, "_", "")
	if i, err := strconv.ParseInt(clean, 0, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := strconv.ParseFloat(clean, 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return lit
}
