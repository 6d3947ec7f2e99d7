// Package diff renders the unified patches printed by the CLI's -diff mode.
// It uses github.com/pmezard/go-difflib/difflib to produce classic unified
// patches (---/+++ headers, @@ hunks, lines prefixed with ' ', '-', '+').
package diff

import (
	"fmt"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// DefaultContext is used when Options.Context is not positive.
const DefaultContext = 3

// Options controls patch generation behavior.
type Options struct {
	// MaxBytes is a guardrail on input size (old+new). When exceeded,
	// a placeholder patch is returned and oversize=true. 0 means no limit.
	MaxBytes int

	// Context is the number of context lines around each hunk.
	Context int

	// NoPrefix disables the "a/" and "b/" prefixes on the file headers.
	NoPrefix bool
}

// Unified produces a unified patch turning before into after for the module
// at name. An empty string means the inputs are identical.
func Unified(name string, before, after []byte, opt Options) (body string, oversize bool) {
	aName, bName := "a/"+name, "b/"+name
	if opt.NoPrefix {
		aName, bName = name, name
	}
	if string(before) == string(after) {
		return "", false
	}
	if opt.MaxBytes > 0 && len(before)+len(after) > opt.MaxBytes {
		return omitted(aName, bName), true
	}
	ctx := opt.Context
	if ctx <= 0 {
		ctx = DefaultContext
	}
	u := difflib.UnifiedDiff{
		A:        splitLinesKeepNL(string(before)),
		B:        splitLinesKeepNL(string(after)),
		FromFile: aName,
		ToFile:   bName,
		Context:  ctx,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil || s == "" {
		return omitted(aName, bName), false
	}
	return s, false
}

// splitLinesKeepNL splits into lines and keeps newline characters. A last
// line without "\n" gets one so hunks stay line-aligned.
func splitLinesKeepNL(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	} else {
		lines[len(lines)-1] += "\n"
	}
	return lines
}

func omitted(aName, bName string) string {
	return fmt.Sprintf("--- %s\n+++ %s\n@@\n# diff omitted (oversize)\n", aName, bName)
}
