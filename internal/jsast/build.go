package jsast

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"loadable-rewriter/internal/textutil"
)

// Member is one rendered object member. Key is kept alongside the text so
// callers can check assembly order without reparsing.
type Member struct {
	Key  string
	Text string
}

// Builder constructs source text for new nodes. Output always uses "\n" and
// the Builder's indent unit; Reindent-ing to the splice column is up to the
// caller.
type Builder struct {
	indent string
}

// NewBuilder returns a Builder using indent as its indentation unit.
func NewBuilder(indent string) *Builder {
	if indent == "" {
		indent = "  "
	}
	return &Builder{indent: indent}
}

// IndentUnit returns the indentation unit.
func (b *Builder) IndentUnit() string { return b.indent }

// StringLiteral renders a double-quoted string literal.
func (b *Builder) StringLiteral(v string) string { return Quote(v) }

// Quote renders v as a double-quoted JavaScript string literal. Only the
// backslash, the double quote, control characters and the U+2028/U+2029
// line terminators are escaped; everything else is written as is. Invalid
// UTF-8 becomes U+FFFD.
func Quote(v string) string {
	var sb strings.Builder
	sb.Grow(len(v) + 2)
	sb.WriteByte('"')
	for _, r := range strings.ToValidUTF8(v, "\uFFFD") {
		switch {
		case r == '\\':
			sb.WriteString(`\\`)
		case r == '"':
			sb.WriteString(`\"`)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r < 0x20 || r == 0x7f || r == '\u2028' || r == '\u2029':
			fmt.Fprintf(&sb, `\u%04x`, r)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// Property renders `key: value`.
func (b *Builder) Property(key, value string) Member {
	return Member{Key: key, Text: key + ": " + value}
}

// Method renders `[async ]key(params) { body }`. params must include the
// parentheses; body is a statement list separated by newlines.
func (b *Builder) Method(key, params string, async bool, body string) Member {
	var sb strings.Builder
	if async {
		sb.WriteString("async ")
	}
	sb.WriteString(key)
	sb.WriteString(params)
	sb.WriteByte(' ')
	sb.WriteString(b.Block(body))
	return Member{Key: key, Text: sb.String()}
}

// Block renders `{ body }` with body indented one level.
func (b *Builder) Block(body string) string {
	if strings.TrimSpace(body) == "" {
		return "{}"
	}
	return "{\n" + textutil.Indent(body, b.indent) + "\n}"
}

// Arrow renders `[async ]params => body`.
func (b *Builder) Arrow(params, body string, async bool) string {
	s := params + " => " + body
	if async {
		s = "async " + s
	}
	return s
}

// Object renders an object literal, one member per line.
func (b *Builder) Object(members []Member) string {
	if len(members) == 0 {
		return "{}"
	}
	parts := make([]string, len(members))
	for i, m := range members {
		parts[i] = textutil.Indent(m.Text, b.indent)
	}
	return "{\n" + strings.Join(parts, ",\n") + "\n}"
}

var placeholderRe = regexp.MustCompile(`\b[A-Z][A-Z0-9_]*\b`)

// Template is a statement list with upper-case placeholders, e.g.
//
//	if (require.resolveWeak) {
//	  return require.resolveWeak(ID)
//	}
type Template struct {
	src          string
	placeholders []string
}

// Template compiles src. Leading/trailing blank lines and common indentation
// are removed; tabs in the remaining indentation become the Builder's unit.
// names lists the identifiers treated as placeholders.
func (b *Builder) Template(src string, names ...string) *Template {
	body := textutil.TrimBlock(src)
	body = strings.ReplaceAll(body, "\t", b.indent)
	return &Template{src: body, placeholders: names}
}

// Placeholders returns the declared placeholder names, sorted.
func (t *Template) Placeholders() []string {
	out := append([]string(nil), t.placeholders...)
	sort.Strings(out)
	return out
}

// Render substitutes placeholders with the given source text. Placeholders
// without a value are left as written.
func (t *Template) Render(subs map[string]string) string {
	if len(t.placeholders) == 0 {
		return t.src
	}
	declared := make(map[string]struct{}, len(t.placeholders))
	for _, p := range t.placeholders {
		declared[p] = struct{}{}
	}
	return placeholderRe.ReplaceAllStringFunc(t.src, func(id string) string {
		if _, ok := declared[id]; !ok {
			return id
		}
		if v, ok := subs[id]; ok {
			return v
		}
		return id
	})
}
