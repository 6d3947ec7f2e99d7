// Package loadable turns factory functions marked with the sentinel comment
// into lazy-loading descriptor objects.
//
// A marked factory looks like
//
//	const Header = /* #__LOADABLE__ */ () => import("./header")
//
// and is replaced by an object literal whose members are produced, in a fixed
// order, by the registered property factories (resolved, chunkName, isReady,
// importAsync, requireAsync, requireSync, resolve).
//
// Notes:
//   - A factory with no import() call is left byte-identical, sentinel included.
//   - A factory with more than one import() call is an error; nothing is edited.
//   - All edits go through a jsast.Editor, so a failing module is never
//     partially rewritten.
package loadable

import (
	"fmt"
	"strings"

	"loadable-rewriter/internal/jsast"
)

// DefaultSentinel marks a factory as eligible for descriptor synthesis.
const DefaultSentinel = "#__LOADABLE__"

// Function-like node types that can carry the sentinel.
var functionTypes = []string{
	"arrow_function",
	"function_expression",
	"function",
	"generator_function",
	"method_definition",
}

// Factory is a marked factory: a function-like node plus the sentinel
// comment that precedes it.
type Factory struct {
	Func    jsast.Node
	Comment jsast.Node
}

// IsMethod reports whether the factory is an object method.
func (f Factory) IsMethod() bool { return f.Func.Type() == "method_definition" }

// Async reports whether the factory was declared async.
func (f Factory) Async() bool { return f.Func.HasToken("async") }

// Params returns the parameter list including parentheses. A missing list is
// normalized to "()"; a bare arrow parameter `x => ...` becomes "(x)".
func (f Factory) Params() string {
	if p := f.Func.Field("parameters"); !p.IsZero() {
		return p.Text()
	}
	if p := f.Func.Field("parameter"); !p.IsZero() {
		return "(" + p.Text() + ")"
	}
	return "()"
}

// Body returns the function body node.
func (f Factory) Body() jsast.Node { return f.Func.Field("body") }

// Key returns the method key text (computed keys keep their brackets).
func (f Factory) Key() string { return f.Func.Field("name").Text() }

// MultipleImportCallsError is returned when a marked factory holds more than
// one import() call: it is ambiguous which one should drive the descriptor.
type MultipleImportCallsError struct {
	Line  int
	Count int
}

func (e *MultipleImportCallsError) Error() string {
	return fmt.Sprintf("loadable: multiple import calls inside a marked factory are not supported (line %d, %d calls)", e.Line, e.Count)
}

// Marked reports whether n is a function-like node preceded by a comment
// containing sentinel. Only the run of comments directly before the node is
// inspected. Methods qualify only inside an object literal; class members
// have no value form to replace.
func Marked(n jsast.Node, sentinel string) (Factory, bool) {
	if !n.IsNamed() || !n.Is(functionTypes...) {
		return Factory{}, false
	}
	if n.Type() == "method_definition" && n.Parent().Type() != "object" {
		return Factory{}, false
	}
	for c := n.Prev(); !c.IsZero() && c.IsComment(); c = c.Prev() {
		if strings.Contains(jsast.CommentText(c), sentinel) {
			return Factory{Func: n, Comment: c}, true
		}
	}
	return Factory{}, false
}

// Find returns every marked factory under root in pre-order.
func Find(root jsast.Node, sentinel string) []Factory {
	var out []Factory
	root.Walk(func(n jsast.Node) bool {
		if f, ok := Marked(n, sentinel); ok {
			out = append(out, f)
		}
		return true
	})
	return out
}
