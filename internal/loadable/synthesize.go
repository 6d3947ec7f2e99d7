package loadable

import (
	"fmt"

	"loadable-rewriter/internal/jsast"
	"loadable-rewriter/internal/textutil"
)

// Site is what a property factory sees for one marked factory.
type Site struct {
	Factory Factory
	// Call is the single import() call inside the factory.
	Call jsast.Node
	// Local collects edits inside the factory's own range (e.g. a chunk name
	// comment). They only surface through Local.Slice, never in the module.
	Local *jsast.Editor
	// Indent is the indentation of the line the factory starts on.
	Indent string
	spans  []span
}

// FuncText returns the factory text with local edits applied, its
// continuation lines shifted back to column zero. Newlines inside template
// literals stay marked until the descriptor is spliced.
func (s Site) FuncText(n jsast.Node) string {
	return textutil.Dedent(normalizeLF(s.Local.Slice(n.Start(), n.End())), s.Indent)
}

// Target returns the import argument text, checked by ImportTarget, with
// template newlines marked like FuncText.
func (s Site) Target() (string, error) {
	if _, err := ImportTarget(s.Call); err != nil {
		return "", err
	}
	arg, _ := ImportArgument(s.Call)
	return normalizeLF(protect(arg.Src(), arg.Start(), arg.End(), s.spans)), nil
}

// PropertyFunc produces one descriptor member.
type PropertyFunc func(Site) (jsast.Member, error)

// PropertyFactory binds a PropertyFunc to the node builder.
type PropertyFactory func(b *jsast.Builder) PropertyFunc

// DefaultProperties is the assembly order of descriptor members.
var DefaultProperties = []PropertyFactory{
	StateProperty,
	ChunkNameProperty,
	IsReadyProperty,
	ImportAsyncProperty,
	RequireAsyncProperty,
	RequireSyncProperty,
	ResolveProperty,
}

// Synthesizer rewrites marked factories into descriptor objects.
type Synthesizer struct {
	builder    *jsast.Builder
	sentinel   string
	properties []PropertyFactory
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithSentinel overrides the sentinel comment text.
func WithSentinel(s string) Option {
	return func(sy *Synthesizer) {
		if s != "" {
			sy.sentinel = s
		}
	}
}

// WithProperties replaces the registered property factories.
func WithProperties(props ...PropertyFactory) Option {
	return func(sy *Synthesizer) { sy.properties = props }
}

// NewSynthesizer returns a Synthesizer building nodes with kit's Builder.
func NewSynthesizer(kit jsast.Toolkit, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		builder:    kit.Builder(),
		sentinel:   DefaultSentinel,
		properties: DefaultProperties,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Sentinel returns the sentinel text in use.
func (s *Synthesizer) Sentinel() string { return s.sentinel }

// Find returns the marked factories under root.
func (s *Synthesizer) Find(root jsast.Node) []Factory { return Find(root, s.sentinel) }

// Marked reports whether n is a marked factory.
func (s *Synthesizer) Marked(n jsast.Node) (Factory, bool) { return Marked(n, s.sentinel) }

// Descriptor assembles the descriptor members for f. It reports false when f
// holds no import() call.
func (s *Synthesizer) Descriptor(f Factory) ([]jsast.Member, bool, error) {
	members, ok, err := s.describe(f)
	for i := range members {
		members[i].Text = restoreMarks(members[i].Text)
	}
	return members, ok, err
}

// describe is Descriptor with template newlines left marked.
func (s *Synthesizer) describe(f Factory) ([]jsast.Member, bool, error) {
	calls := CollectImportCalls(f.Func)
	if len(calls) == 0 {
		return nil, false, nil
	}
	if len(calls) > 1 {
		return nil, false, &MultipleImportCallsError{Line: f.Func.Line(), Count: len(calls)}
	}
	if err := checkReserved(f.Func); err != nil {
		return nil, false, fmt.Errorf("line %d: %w", f.Func.Line(), err)
	}
	src := f.Func.Src()
	site := Site{
		Factory: f,
		Call:    calls[0],
		Local:   jsast.NewEditor(src),
		Indent:  textutil.LineIndent(src, f.Func.Start()),
		spans:   templateNewlines(f.Func),
	}
	for _, sp := range site.spans {
		if err := site.Local.Replace(sp.start, sp.end, sp.mark); err != nil {
			return nil, false, err
		}
	}
	members := make([]jsast.Member, 0, len(s.properties))
	for _, newProp := range s.properties {
		m, err := newProp(s.builder)(site)
		if err != nil {
			return nil, false, fmt.Errorf("line %d: %w", f.Func.Line(), err)
		}
		members = append(members, m)
	}
	return members, true, nil
}

// Synthesize registers on ed the edits replacing f with its descriptor. It
// reports false, with no edits, when f holds no import() call. The
// descriptor uses the module's line ending.
func (s *Synthesizer) Synthesize(f Factory, ed *jsast.Editor) (bool, error) {
	return s.synthesize(f, ed, textutil.DetectLineEnding(string(f.Func.Src())))
}

func (s *Synthesizer) synthesize(f Factory, ed *jsast.Editor, eol string) (bool, error) {
	members, ok, err := s.describe(f)
	if err != nil || !ok {
		return false, err
	}
	src := f.Func.Src()
	indent := textutil.LineIndent(src, f.Func.Start())
	object := textutil.Reindent(s.builder.Object(members), indent)
	if f.IsMethod() {
		object = f.Key() + ": " + object
	}
	object = finish(object, eol)

	// The sentinel goes together with the blanks up to the next token.
	end := f.Comment.End()
	if next := f.Comment.Next(); !next.IsZero() {
		end = next.Start()
	}
	if err := ed.Delete(f.Comment.Start(), end); err != nil {
		return false, err
	}
	if err := ed.ReplaceNode(f.Func, object); err != nil {
		return false, err
	}
	return true, nil
}

// RewriteAll synthesizes every factory in pre-order and returns how many
// were rewritten. Factories nested in one already rewritten are skipped:
// their text lives on inside the outer importAsync.
func (s *Synthesizer) RewriteAll(factories []Factory, ed *jsast.Editor) (int, error) {
	if len(factories) == 0 {
		return 0, nil
	}
	eol := textutil.DetectLineEnding(string(factories[0].Func.Src()))
	var done []jsast.Node
	n := 0
outer:
	for _, f := range factories {
		for _, d := range done {
			if d.Contains(f.Func) {
				continue outer
			}
		}
		ok, err := s.synthesize(f, ed, eol)
		if err != nil {
			return n, err
		}
		if ok {
			done = append(done, f.Func)
			n++
		}
	}
	return n, nil
}
