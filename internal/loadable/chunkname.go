package loadable

import (
	"fmt"
	"regexp"
	"strings"

	"loadable-rewriter/internal/jsast"
)

var (
	webpackChunkNameRe = regexp.MustCompile(`webpackChunkName:\s*["']([^"']+)["']`)
	chunkEdgesRe       = regexp.MustCompile(`^[./]+|(\.js$)`)
	chunkInvalidRe     = regexp.MustCompile(`[^a-zA-Z0-9_!§$()=\-^°]+`)
	chunkPaddingRe     = regexp.MustCompile(`^-|-$`)
)

// ChunkName turns a module path into a webpack chunk name, e.g.
// "./pages/home.js" → "pages-home".
func ChunkName(path string) string {
	s := chunkEdgesRe.ReplaceAllString(path, "")
	s = chunkInvalidRe.ReplaceAllString(s, "-")
	return chunkPaddingRe.ReplaceAllString(s, "")
}

// runtimeChunkName applies ChunkName at runtime to a dynamic import target.
func runtimeChunkName(expr string) string {
	return fmt.Sprintf(`(%s).replace(/^[./]+|(\.js$)/g, "").replace(/[^a-zA-Z0-9_!§$()=\-^°]+/g, "-").replace(/^-|-$/g, "")`, expr)
}

// existingChunkName returns the webpackChunkName magic comment value of the
// import call, if any.
func existingChunkName(call jsast.Node) (string, bool) {
	for _, c := range importComments(call) {
		if m := webpackChunkNameRe.FindStringSubmatch(c.Text()); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ChunkNameProperty yields `chunkName(<params>)`. A static import target
// without a magic comment gets one, so the bundler emits the same name.
func ChunkNameProperty(b *jsast.Builder) PropertyFunc {
	tpl := b.Template("return NAME;", "NAME")
	return func(s Site) (jsast.Member, error) {
		render := func(name string) jsast.Member {
			return b.Method("chunkName", s.Factory.Params(), false, tpl.Render(map[string]string{"NAME": name}))
		}
		if name, ok := existingChunkName(s.Call); ok {
			return render(b.StringLiteral(name)), nil
		}
		arg, err := ImportArgument(s.Call)
		if err != nil {
			return jsast.Member{}, err
		}
		if path, ok := jsast.StringValue(arg); ok {
			name := ChunkName(path)
			comment := fmt.Sprintf("/* webpackChunkName: %s */ ", b.StringLiteral(name))
			if err := s.Local.Insert(arg.Start(), comment); err != nil {
				return jsast.Member{}, err
			}
			return render(b.StringLiteral(name)), nil
		}
		target, err := s.Target()
		if err != nil {
			return jsast.Member{}, err
		}
		return render(runtimeChunkName(strings.TrimSpace(target))), nil
	}
}

const isReadyTemplate = `
	const key = this.resolve(props);
	if (this.resolved[key] !== true) {
		return false;
	}
	if (typeof __webpack_modules__ !== "undefined") {
		return !!__webpack_modules__[key];
	}
	return false;
`

// IsReadyProperty yields `isReady(props)`: true once the module was loaded
// through requireAsync and is present in the bundler's module table.
func IsReadyProperty(b *jsast.Builder) PropertyFunc {
	tpl := b.Template(isReadyTemplate)
	return func(Site) (jsast.Member, error) {
		return b.Method("isReady", "(props)", false, tpl.Render(nil)), nil
	}
}

const requireAsyncTemplate = `
	const key = this.resolve(props);
	this.resolved[key] = false;
	return this.importAsync(props).then((resolved) => {
		this.resolved[key] = true;
		return resolved;
	});
`

// RequireAsyncProperty yields `requireAsync(props)`, wrapping importAsync
// with the resolved-state bookkeeping.
func RequireAsyncProperty(b *jsast.Builder) PropertyFunc {
	tpl := b.Template(requireAsyncTemplate)
	return func(Site) (jsast.Member, error) {
		return b.Method("requireAsync", "(props)", false, tpl.Render(nil)), nil
	}
}
