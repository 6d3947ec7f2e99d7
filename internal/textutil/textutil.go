// Package textutil holds the line-oriented helpers shared by the manifest
// pruner and the descriptor renderer.
package textutil

import "strings"

const (
	LF   = "\n"
	CRLF = "\r\n"
)

// DetectLineEnding returns CRLF when "\r\n" occurs strictly more often than
// a lone "\n", and LF otherwise (ties included).
func DetectLineEnding(s string) string {
	crlf := strings.Count(s, CRLF)
	lf := countLoneLF(s)
	if crlf > lf {
		return CRLF
	}
	return LF
}

func countLoneLF(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' && (i == 0 || s[i-1] != '\r') {
			n++
		}
	}
	return n
}

// SplitNonEmpty splits s on eol and drops empty lines.
func SplitNonEmpty(s, eol string) []string {
	parts := strings.Split(s, eol)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsIndented reports whether the first byte of line is whitespace.
func IsIndented(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return line != ""
	}
	return line[0] != trimmed[0]
}

// LineIndent returns the leading blanks of the line containing offset.
func LineIndent(src []byte, offset int) string {
	if offset > len(src) {
		offset = len(src)
	}
	start := offset
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	end := start
	for end < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return string(src[start:end])
}

// Indent prefixes every non-empty line of text with indent.
func Indent(text, indent string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			lines[i] = indent + l
		}
	}
	return strings.Join(lines, "\n")
}

// Reindent prefixes every non-empty line after the first with indent. It is
// used when a multi-line value is spliced at a column that already carries
// indent on its first line.
func Reindent(text, indent string) string {
	if indent == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			lines[i] = indent + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

// Dedent strips indent from every line after the first; lines that do not
// start with indent are left alone.
func Dedent(text, indent string) string {
	if indent == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = strings.TrimPrefix(lines[i], indent)
	}
	return strings.Join(lines, "\n")
}

// TrimBlock drops leading/trailing blank lines and the indentation common to
// all remaining non-blank lines.
func TrimBlock(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, CRLF, LF), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	common, first := "", true
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		lead := l[:len(l)-len(strings.TrimLeft(l, " \t"))]
		if first {
			common, first = lead, false
			continue
		}
		for !strings.HasPrefix(lead, common) {
			common = common[:len(common)-1]
		}
	}
	for i, l := range lines {
		lines[i] = strings.TrimPrefix(l, common)
	}
	return strings.Join(lines, "\n")
}
