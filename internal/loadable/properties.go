package loadable

import (
	"loadable-rewriter/internal/jsast"
	"loadable-rewriter/internal/textutil"
)

// StateProperty yields `resolved: {}`: per-id load completion, starting
// unresolved.
func StateProperty(b *jsast.Builder) PropertyFunc {
	return func(Site) (jsast.Member, error) {
		return b.Property("resolved", "{}"), nil
	}
}

// ImportAsyncProperty yields the original factory as a value. Methods are
// repackaged as arrow functions since a method cannot be stored as a value.
func ImportAsyncProperty(b *jsast.Builder) PropertyFunc {
	return func(s Site) (jsast.Member, error) {
		f := s.Factory
		if !f.IsMethod() {
			return b.Property("importAsync", s.FuncText(f.Func)), nil
		}
		body := s.FuncText(f.Body())
		return b.Property("importAsync", b.Arrow(f.Params(), body, f.Async())), nil
	}
}

// The eval indirection hides the synchronous require from bundlers that
// statically scan calls.
const requireSyncTemplate = `
	const id = this.resolve(props);
	if (typeof __webpack_require__ !== "undefined") {
		return __webpack_require__(id);
	}
	return eval("module.require")(id);
`

// RequireSyncProperty yields `requireSync(props)`, loading the module
// synchronously through the id from resolve.
func RequireSyncProperty(b *jsast.Builder) PropertyFunc {
	tpl := b.Template(requireSyncTemplate)
	return func(Site) (jsast.Member, error) {
		return b.Method("requireSync", "(props)", false, tpl.Render(nil)), nil
	}
}

const resolveTemplate = `
	if (require.resolveWeak) {
		return require.resolveWeak(ID);
	}
	return eval("require.resolve")(ID);
`

// ResolveProperty yields `resolve(<params>)` returning the module id of the
// import target.
func ResolveProperty(b *jsast.Builder) PropertyFunc {
	tpl := b.Template(resolveTemplate, "ID")
	return func(s Site) (jsast.Member, error) {
		id, err := s.Target()
		if err != nil {
			return jsast.Member{}, err
		}
		id = textutil.Dedent(id, s.Indent)
		return b.Method("resolve", s.Factory.Params(), false, tpl.Render(map[string]string{"ID": id})), nil
	}
}
