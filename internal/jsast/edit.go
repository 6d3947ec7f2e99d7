package jsast

import (
	"errors"
	"fmt"
	"sort"
)

// ErrOverlappingEdit is returned when two edits touch the same bytes.
var ErrOverlappingEdit = errors.New("overlapping edit")

type edit struct {
	start, end int
	text       string
	seq        int
}

// Editor collects byte-range replacements against one source buffer and
// applies them in a single pass. Insertions are zero-length replacements;
// several insertions at one offset keep their registration order.
type Editor struct {
	src   []byte
	edits []edit
}

// NewEditor returns an Editor over src. src is never modified.
func NewEditor(src []byte) *Editor {
	return &Editor{src: src}
}

// Source returns the original bytes.
func (e *Editor) Source() []byte { return e.src }

// Len returns the number of registered edits.
func (e *Editor) Len() int { return len(e.edits) }

// Replace registers the replacement of src[start:end] with text.
func (e *Editor) Replace(start, end int, text string) error {
	if start < 0 || end < start || end > len(e.src) {
		return fmt.Errorf("edit range [%d,%d) out of bounds (len %d)", start, end, len(e.src))
	}
	for _, o := range e.edits {
		if start < o.end && o.start < end {
			return fmt.Errorf("%w: [%d,%d) vs [%d,%d)", ErrOverlappingEdit, start, end, o.start, o.end)
		}
		// An insertion strictly inside a replaced range is an overlap too.
		if start == end && o.start < start && start < o.end {
			return fmt.Errorf("%w: insertion at %d inside [%d,%d)", ErrOverlappingEdit, start, o.start, o.end)
		}
	}
	e.edits = append(e.edits, edit{start: start, end: end, text: text, seq: len(e.edits)})
	return nil
}

// ReplaceNode replaces the node's text.
func (e *Editor) ReplaceNode(n Node, text string) error {
	return e.Replace(n.Start(), n.End(), text)
}

// Insert registers text to be inserted at offset at.
func (e *Editor) Insert(at int, text string) error {
	return e.Replace(at, at, text)
}

// Delete registers the removal of src[start:end].
func (e *Editor) Delete(start, end int) error {
	return e.Replace(start, end, "")
}

// Apply returns the source with every edit applied.
func (e *Editor) Apply() []byte {
	return []byte(e.Slice(0, len(e.src)))
}

// Slice returns src[start:end] with the edits that lie entirely inside the
// range applied. Edits crossing the range boundary are ignored.
func (e *Editor) Slice(start, end int) string {
	inside := make([]edit, 0, len(e.edits))
	for _, ed := range e.edits {
		if ed.start >= start && ed.end <= end {
			inside = append(inside, ed)
		}
	}
	sort.SliceStable(inside, func(i, j int) bool {
		a, b := inside[i], inside[j]
		if a.start != b.start {
			return a.start < b.start
		}
		// Insertions go before a replacement starting at the same offset.
		if (a.start == a.end) != (b.start == b.end) {
			return a.start == a.end
		}
		return a.seq < b.seq
	})
	out := make([]byte, 0, end-start)
	pos := start
	for _, ed := range inside {
		out = append(out, e.src[pos:ed.start]...)
		out = append(out, ed.text...)
		pos = ed.end
	}
	out = append(out, e.src[pos:end]...)
	return string(out)
}
