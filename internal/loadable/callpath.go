package loadable

import (
	"errors"
	"fmt"

	"loadable-rewriter/internal/jsast"
)

// ErrMissingImportArgument is returned for a bare `import()`.
var ErrMissingImportArgument = errors.New("loadable: import() call has no argument")

// UnsupportedImportArgumentError is returned when the import target is not a
// string, template literal or string concatenation.
type UnsupportedImportArgumentError struct {
	Line int
	Kind string
}

func (e *UnsupportedImportArgumentError) Error() string {
	return fmt.Sprintf("loadable: unsupported import() argument %q at line %d", e.Kind, e.Line)
}

// IsImportCall reports whether n is a dynamic `import(...)` call.
func IsImportCall(n jsast.Node) bool {
	return n.Type() == "call_expression" && n.Field("function").Type() == "import"
}

// CollectImportCalls returns the import() call expressions inside fn, in
// source order. Nested functions are searched too.
func CollectImportCalls(fn jsast.Node) []jsast.Node {
	var calls []jsast.Node
	fn.Walk(func(n jsast.Node) bool {
		if IsImportCall(n) {
			calls = append(calls, n)
		}
		return true
	})
	return calls
}

// ImportArgument extracts the module path expression of an import() call.
func ImportArgument(call jsast.Node) (jsast.Node, error) {
	args := call.Field("arguments").NamedChildren()
	if len(args) == 0 {
		return jsast.Node{}, ErrMissingImportArgument
	}
	return args[0], nil
}

// ImportTarget returns the import argument source text verbatim. Only
// string literals, template literals and binary (concatenation) expressions
// are accepted.
func ImportTarget(call jsast.Node) (string, error) {
	arg, err := ImportArgument(call)
	if err != nil {
		return "", err
	}
	switch arg.Type() {
	case "string", "template_string", "binary_expression":
		return arg.Text(), nil
	}
	return "", &UnsupportedImportArgumentError{Line: arg.Line(), Kind: arg.Type()}
}

// importComments returns the comments inside the call's argument list, e.g.
// webpack magic comments.
func importComments(call jsast.Node) []jsast.Node {
	var out []jsast.Node
	for _, c := range call.Field("arguments").Children() {
		if c.IsComment() {
			out = append(out, c)
		}
	}
	return out
}
