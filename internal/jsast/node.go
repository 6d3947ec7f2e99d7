package jsast

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Node is a syntax node bound to the source it was parsed from. The zero
// value is a "missing" node; every accessor is safe to call on it.
type Node struct {
	n   *sitter.Node
	src []byte
}

func wrap(n *sitter.Node, src []byte) Node {
	if n == nil || n.IsNull() {
		return Node{}
	}
	return Node{n: n, src: src}
}

// IsZero reports whether the node is missing.
func (n Node) IsZero() bool { return n.n == nil }

// Type returns the grammar type, e.g. "arrow_function".
func (n Node) Type() string {
	if n.n == nil {
		return ""
	}
	return n.n.Type()
}

// Is reports whether the node has one of the given types.
func (n Node) Is(types ...string) bool {
	t := n.Type()
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

// IsNamed reports whether the node is a named grammar node (not punctuation
// or a keyword token).
func (n Node) IsNamed() bool { return n.n != nil && n.n.IsNamed() }

// IsComment reports whether the node is a comment.
func (n Node) IsComment() bool { return n.Is("comment", "html_comment") }

// Start returns the start byte offset.
func (n Node) Start() int {
	if n.n == nil {
		return 0
	}
	return int(n.n.StartByte())
}

// End returns the end byte offset (exclusive).
func (n Node) End() int {
	if n.n == nil {
		return 0
	}
	return int(n.n.EndByte())
}

// Line returns the 1-based start line.
func (n Node) Line() int {
	if n.n == nil {
		return 0
	}
	return int(n.n.StartPoint().Row) + 1
}

// Text returns the node's source text.
func (n Node) Text() string {
	if n.n == nil {
		return ""
	}
	return string(n.src[n.Start():n.End()])
}

// Src returns the source buffer the node belongs to.
func (n Node) Src() []byte { return n.src }

// Field returns the child stored under a grammar field name.
func (n Node) Field(name string) Node {
	if n.n == nil {
		return Node{}
	}
	return wrap(n.n.ChildByFieldName(name), n.src)
}

// Children returns every child, including tokens and comments.
func (n Node) Children() []Node {
	if n.n == nil {
		return nil
	}
	count := int(n.n.ChildCount())
	out := make([]Node, 0, count)
	for i := 0; i < count; i++ {
		if c := wrap(n.n.Child(i), n.src); !c.IsZero() {
			out = append(out, c)
		}
	}
	return out
}

// NamedChildren returns named children, skipping comments.
func (n Node) NamedChildren() []Node {
	var out []Node
	for _, c := range n.Children() {
		if c.IsNamed() && !c.IsComment() {
			out = append(out, c)
		}
	}
	return out
}

// HasToken reports whether an anonymous child token (e.g. "async") exists.
func (n Node) HasToken(tok string) bool {
	for _, c := range n.Children() {
		if !c.IsNamed() && c.Type() == tok {
			return true
		}
	}
	return false
}

// Parent returns the parent node.
func (n Node) Parent() Node {
	if n.n == nil {
		return Node{}
	}
	return wrap(n.n.Parent(), n.src)
}

// Prev returns the previous sibling, comments included.
func (n Node) Prev() Node {
	if n.n == nil {
		return Node{}
	}
	return wrap(n.n.PrevSibling(), n.src)
}

// Next returns the next sibling, comments included.
func (n Node) Next() Node {
	if n.n == nil {
		return Node{}
	}
	return wrap(n.n.NextSibling(), n.src)
}

// Contains reports whether o lies within n's byte range.
func (n Node) Contains(o Node) bool {
	return !n.IsZero() && !o.IsZero() && n.Start() <= o.Start() && o.End() <= n.End()
}

// Same reports whether both nodes cover the same range with the same type.
func (n Node) Same(o Node) bool {
	return n.Type() == o.Type() && n.Start() == o.Start() && n.End() == o.End()
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the visited node.
func (n Node) Walk(fn func(Node) bool) {
	if n.IsZero() {
		return
	}
	stack := []Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(cur) {
			continue
		}
		kids := cur.Children()
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
}

// CommentText strips the comment delimiters and surrounding blanks.
func CommentText(c Node) string {
	s := c.Text()
	switch {
	case strings.HasPrefix(s, "//"):
		s = s[2:]
	case strings.HasPrefix(s, "/*"):
		s = strings.TrimSuffix(s[2:], "*/")
	}
	return strings.TrimSpace(s)
}

// StringValue returns the cooked value of a string literal or of a template
// literal without substitutions.
func StringValue(n Node) (string, bool) {
	switch n.Type() {
	case "string":
		return unquote(n.Text()), true
	case "template_string":
		for _, c := range n.Children() {
			if c.Type() == "template_substitution" {
				return "", false
			}
		}
		s := n.Text()
		return strings.TrimSuffix(strings.TrimPrefix(s, "`"), "`"), true
	}
	return "", false
}

func unquote(lit string) string {
	if len(lit) < 2 {
		return lit
	}
	q := lit[0]
	inner := lit[1 : len(lit)-1]
	if q == '"' {
		if v, err := strconv.Unquote(lit); err == nil {
			return v
		}
		return inner
	}
	// Single quotes: re-quote with double quotes so strconv can cook escapes.
	conv := strings.ReplaceAll(inner, `\'`, `'`)
	conv = strings.ReplaceAll(conv, `"`, `\"`)
	if v, err := strconv.Unquote(`"` + conv + `"`); err == nil {
		return v
	}
	return inner
}
