package loadable

import (
	"bytes"
	"errors"
	"strings"

	"loadable-rewriter/internal/jsast"
)

// Newlines inside template literals travel through descriptor rendering as
// these marks, so re-indenting a member never shifts a template's content.
const (
	markLF   = "\x00"
	markCRLF = "\x01"
)

// ErrReservedBytes is returned for a factory whose text holds NUL or SOH
// bytes, which are used internally as newline marks.
var ErrReservedBytes = errors.New("loadable: factory text contains NUL or SOH bytes")

// span is a newline inside a template literal and the mark standing in for it.
type span struct {
	start, end int
	mark       string
}

// templateNewlines returns the newlines inside template literals under fn,
// in source order. Templates nested in a substitution are covered by the
// outer one.
func templateNewlines(fn jsast.Node) []span {
	src := fn.Src()
	var out []span
	fn.Walk(func(n jsast.Node) bool {
		if n.Type() != "template_string" {
			return true
		}
		for p := n.Start(); p < n.End(); p++ {
			if src[p] != '\n' {
				continue
			}
			if p > n.Start() && src[p-1] == '\r' {
				out = append(out, span{start: p - 1, end: p + 1, mark: markCRLF})
			} else {
				out = append(out, span{start: p, end: p + 1, mark: markLF})
			}
		}
		return false
	})
	return out
}

// checkReserved rejects factory text that already holds a mark byte.
func checkReserved(fn jsast.Node) error {
	if bytes.ContainsAny(fn.Src()[fn.Start():fn.End()], markLF+markCRLF) {
		return ErrReservedBytes
	}
	return nil
}

// protect returns src[start:end] with the template newlines in that range
// replaced by their marks.
func protect(src []byte, start, end int, spans []span) string {
	var sb strings.Builder
	pos := start
	for _, s := range spans {
		if s.start < start || s.end > end {
			continue
		}
		sb.Write(src[pos:s.start])
		sb.WriteString(s.mark)
		pos = s.end
	}
	sb.Write(src[pos:end])
	return sb.String()
}

// normalizeLF turns the unprotected CRLFs of text into LF.
func normalizeLF(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}

// finish converts rendered text to eol and restores the protected newlines.
func finish(text, eol string) string {
	if eol != "\n" {
		text = strings.ReplaceAll(text, "\n", eol)
	}
	return restoreMarks(text)
}

func restoreMarks(text string) string {
	if !strings.ContainsAny(text, markLF+markCRLF) {
		return text
	}
	text = strings.ReplaceAll(text, markCRLF, "\r\n")
	return strings.ReplaceAll(text, markLF, "\n")
}
