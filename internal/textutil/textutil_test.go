package textutil

import (
	"reflect"
	"testing"
)

func TestDetectLineEnding(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"a\r\nb\r\nc\n", CRLF},
		{"a\r\nb\nc\n", LF},
		{"a\r\nb\n", LF}, // tie
		{"no newline", LF},
		{"", LF},
	}
	for _, c := range cases {
		if got := DetectLineEnding(c.in); got != c.want {
			t.Fatalf("DetectLineEnding(%q)=%q want %q", c.in, got, c.want)
		}
	}
}

func TestSplitNonEmpty(t *testing.T) {
	got := SplitNonEmpty("a\r\n\r\nb\r\n", CRLF)
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("got %q", got)
	}
}

func TestIsIndented(t *testing.T) {
	if IsIndented("const MANIFEST = {") {
		t.Fatalf("structural line reported indented")
	}
	if !IsIndented("    [HEADER]: x,") || !IsIndented("\tx") {
		t.Fatalf("indented line not detected")
	}
	if IsIndented("") {
		t.Fatalf("empty line reported indented")
	}
}

func TestLineIndent(t *testing.T) {
	src := []byte("a\n    b = c\n")
	if got := LineIndent(src, 8); got != "    " {
		t.Fatalf("got %q", got)
	}
	if got := LineIndent(src, 0); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestIndentReindentDedent(t *testing.T) {
	text := "{\n  a: 1,\n\n}"
	if got := Indent(text, "\t"); got != "\t{\n\t  a: 1,\n\n\t}" {
		t.Fatalf("Indent got %q", got)
	}
	re := Reindent(text, "    ")
	if re != "{\n      a: 1,\n\n    }" {
		t.Fatalf("Reindent got %q", re)
	}
	if got := Dedent(re, "    "); got != text {
		t.Fatalf("Dedent got %q", got)
	}
}

func TestTrimBlock(t *testing.T) {
	in := "\n\t\tif (x) {\n\t\t\ty();\n\t\t}\n\t"
	if got := TrimBlock(in); got != "if (x) {\n\ty();\n}" {
		t.Fatalf("TrimBlock got %q", got)
	}
}
