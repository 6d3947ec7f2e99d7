package loadable

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"loadable-rewriter/internal/jsast"
)

type fixture struct {
	kit   *jsast.Kit
	synth *Synthesizer
	tree  *jsast.Tree
}

func load(t *testing.T, src string, lang jsast.Lang, opts ...Option) fixture {
	t.Helper()
	kit := jsast.NewKit("")
	tree, err := kit.Parse(context.Background(), []byte(src), lang)
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return fixture{kit: kit, synth: NewSynthesizer(kit, opts...), tree: tree}
}

// rewrite runs every marked factory and returns the edited module.
func (f fixture) rewrite(t *testing.T) (string, int, error) {
	t.Helper()
	ed := jsast.NewEditor(f.tree.Source())
	n, err := f.synth.RewriteAll(f.synth.Find(f.tree.Root()), ed)
	return string(ed.Apply()), n, err
}

const golden = `const Home = {
  resolved: {},
  chunkName() {
    return "pages-home";
  },
  isReady(props) {
    const key = this.resolve(props);
    if (this.resolved[key] !== true) {
      return false;
    }
    if (typeof __webpack_modules__ !== "undefined") {
      return !!__webpack_modules__[key];
    }
    return false;
  },
  importAsync: () => import(/* webpackChunkName: "pages-home" */ "./pages/home"),
  requireAsync(props) {
    const key = this.resolve(props);
    this.resolved[key] = false;
    return this.importAsync(props).then((resolved) => {
      this.resolved[key] = true;
      return resolved;
    });
  },
  requireSync(props) {
    const id = this.resolve(props);
    if (typeof __webpack_require__ !== "undefined") {
      return __webpack_require__(id);
    }
    return eval("module.require")(id);
  },
  resolve() {
    if (require.resolveWeak) {
      return require.resolveWeak("./pages/home");
    }
    return eval("require.resolve")("./pages/home");
  }
};
`

func TestRewriteArrowFactory(t *testing.T) {
	fx := load(t, `const Home = /* #__LOADABLE__ */ () => import("./pages/home");`+"\n", jsast.JavaScript)
	out, n, err := fx.rewrite(t)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	if diff := cmp.Diff(golden, out); diff != "" {
		t.Fatalf("descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestDescriptorKeyOrder(t *testing.T) {
	fx := load(t, `const A = /* #__LOADABLE__ */ function (props) { return import("./a"); };`, jsast.JavaScript)
	fs := fx.synth.Find(fx.tree.Root())
	require.Len(t, fs, 1)
	members, ok, err := fx.synth.Descriptor(fs[0])
	require.NoError(t, err)
	require.True(t, ok)
	keys := make([]string, 0, len(members))
	for _, m := range members {
		keys = append(keys, m.Key)
	}
	want := []string{"resolved", "chunkName", "isReady", "importAsync", "requireAsync", "requireSync", "resolve"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Fatalf("key order (-want +got):\n%s", diff)
	}
	// resolve keeps the factory's own parameters
	require.True(t, strings.HasPrefix(members[6].Text, "resolve(props) {"), members[6].Text)
}

func TestZeroImportsUntouched(t *testing.T) {
	src := "const A = /* #__LOADABLE__ */ () => Promise.resolve(1);\n"
	fx := load(t, src, jsast.JavaScript)
	out, n, err := fx.rewrite(t)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, src, out)
}

func TestMultipleImportsError(t *testing.T) {
	src := "const A = /* #__LOADABLE__ */ () => Promise.all([\n  import(\"./a\"),\n  import(\"./b\"),\n]);\n"
	fx := load(t, src, jsast.JavaScript)
	_, _, err := fx.rewrite(t)
	var me *MultipleImportCallsError
	require.ErrorAs(t, err, &me)
	require.Equal(t, 2, me.Count)
	require.Equal(t, 1, me.Line)
}

func TestUnmarkedFactoryIgnored(t *testing.T) {
	src := "/* other */ const A = () => import(\"./a\");\nconst B = /* note */ () => import(\"./b\");\n"
	fx := load(t, src, jsast.JavaScript)
	require.Empty(t, fx.synth.Find(fx.tree.Root()))
}

func TestCustomSentinel(t *testing.T) {
	src := "const A = /* #__LAZY__ */ () => import(\"./a\");\n"
	fx := load(t, src, jsast.JavaScript, WithSentinel("#__LAZY__"))
	require.Equal(t, "#__LAZY__", fx.synth.Sentinel())
	out, n, err := fx.rewrite(t)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NotContains(t, out, "#__LAZY__")
}

func TestMethodFactoryWithComputedKey(t *testing.T) {
	src := "const M = {\n  /* #__LOADABLE__ */ async [HEADER](props) {\n    return import(`./${props.name}`);\n  },\n};\n"
	fx := load(t, src, jsast.JavaScript)
	out, n, err := fx.rewrite(t)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Contains(t, out, "  [HEADER]: {\n    resolved: {},\n")
	require.Contains(t, out, "    importAsync: async (props) => {\n      return import(`./${props.name}`);\n    },\n")
	require.Contains(t, out, "    resolve(props) {\n")
	require.Contains(t, out, "return require.resolveWeak(`./${props.name}`);")
	// dynamic targets compute the chunk name at runtime
	require.Contains(t, out, "return (`./${props.name}`).replace(")
	require.NotContains(t, out, "#__LOADABLE__")

	_, err = fx.kit.Parse(context.Background(), []byte(out), jsast.JavaScript)
	require.NoError(t, err)
}

func TestExistingChunkNameKept(t *testing.T) {
	src := "const A = /* #__LOADABLE__ */ () => import(/* webpackChunkName: \"custom\" */ \"./a\");\n"
	fx := load(t, src, jsast.JavaScript)
	out, _, err := fx.rewrite(t)
	require.NoError(t, err)
	require.Contains(t, out, `return "custom";`)
	require.Equal(t, 1, strings.Count(out, "webpackChunkName"))
}

func TestBinaryImportArgument(t *testing.T) {
	src := "const A = /* #__LOADABLE__ */ (p) => import(\"./locale/\" + p.lang);\n"
	fx := load(t, src, jsast.JavaScript)
	out, _, err := fx.rewrite(t)
	require.NoError(t, err)
	require.Contains(t, out, `return require.resolveWeak("./locale/" + p.lang);`)
	require.Contains(t, out, "resolve(p) {")
}

func TestUnsupportedImportArgument(t *testing.T) {
	src := "const A = /* #__LOADABLE__ */ (p) => import(p.path);\n"
	fx := load(t, src, jsast.JavaScript)
	_, _, err := fx.rewrite(t)
	var ue *UnsupportedImportArgumentError
	require.ErrorAs(t, err, &ue)
	require.Equal(t, "member_expression", ue.Kind)
}

func TestBareParameterNormalized(t *testing.T) {
	src := "const A = /* #__LOADABLE__ */ props => import(\"./a\");\n"
	fx := load(t, src, jsast.JavaScript)
	fs := fx.synth.Find(fx.tree.Root())
	require.Len(t, fs, 1)
	require.Equal(t, "(props)", fs[0].Params())
}

func TestNestedFactorySkipped(t *testing.T) {
	src := "const A = /* #__LOADABLE__ */ () => import(\"./a\").then(() => {\n" +
		"  const B = /* #__LOADABLE__ */ () => 1;\n" +
		"  return B;\n" +
		"});\n"
	fx := load(t, src, jsast.JavaScript)
	require.Len(t, fx.synth.Find(fx.tree.Root()), 2)
	out, n, err := fx.rewrite(t)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	// the inner factory survives verbatim inside importAsync
	require.Contains(t, out, "const B = /* #__LOADABLE__ */ () => 1;")
}

func TestTypeScriptFactory(t *testing.T) {
	src := "export const Page = /* #__LOADABLE__ */ (): Promise<unknown> => import('./page');\n"
	fx := load(t, src, jsast.TypeScript)
	out, n, err := fx.rewrite(t)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Contains(t, out, "export const Page = {\n")
	require.Contains(t, out, `return "page";`)
	_, err = fx.kit.Parse(context.Background(), []byte(out), jsast.TypeScript)
	require.NoError(t, err)
}

func TestChunkName(t *testing.T) {
	cases := map[string]string{
		"./pages/home":     "pages-home",
		"../lib/util.js":   "lib-util",
		"./a b/c":          "a-b-c",
		"components/Nav/$": "components-Nav-$",
	}
	for in, want := range cases {
		require.Equal(t, want, ChunkName(in), in)
	}
}

func TestMissingImportArgument(t *testing.T) {
	fx := load(t, "const A = () => f();\n", jsast.JavaScript)
	var call jsast.Node
	fx.tree.Root().Walk(func(n jsast.Node) bool {
		if n.Type() == "call_expression" {
			call = n
			return false
		}
		return true
	})
	require.False(t, IsImportCall(call))
	_, err := ImportArgument(call)
	require.ErrorIs(t, err, ErrMissingImportArgument)
}

func TestTemplateLiteralsKeptVerbatim(t *testing.T) {
	src := "function f(n) {\n" +
		"  const A = /* #__LOADABLE__ */ () => {\n" +
		"    log(`one\n  two`);\n" +
		"    return import(`./x/${n}\n`);\n" +
		"  };\n" +
		"}\n"
	fx := load(t, src, jsast.JavaScript)
	out, n, err := fx.rewrite(t)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Contains(t, out, "    importAsync: () => {\n      log(`one\n  two`);\n")
	require.Contains(t, out, "return require.resolveWeak(`./x/${n}\n`);")
	require.Contains(t, out, "return (`./x/${n}\n`).replace(")
	require.NotContains(t, out, "\x00")

	_, err = fx.kit.Parse(context.Background(), []byte(out), jsast.JavaScript)
	require.NoError(t, err)

	members, ok, err := fx.synth.Descriptor(fx.synth.Find(fx.tree.Root())[0])
	require.NoError(t, err)
	require.True(t, ok)
	require.Contains(t, members[3].Text, "log(`one\n  two`);")
}

func TestCRLFModuleKeepsLineEnding(t *testing.T) {
	src := "const A = /* #__LOADABLE__ */ () => import(\"./a\");\r\nexport default A;\r\n"
	fx := load(t, src, jsast.JavaScript)
	out, n, err := fx.rewrite(t)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.True(t, strings.HasPrefix(out, "const A = {\r\n  resolved: {},\r\n  chunkName() {\r\n"), out)
	require.Equal(t, strings.Count(out, "\n"), strings.Count(out, "\r\n"))
	require.True(t, strings.HasSuffix(out, "};\r\nexport default A;\r\n"))
}

func TestClassMethodNotMarked(t *testing.T) {
	src := "class C {\n  /* #__LOADABLE__ */ load() {\n    return import(\"./a\");\n  }\n}\n"
	fx := load(t, src, jsast.JavaScript)
	require.Empty(t, fx.synth.Find(fx.tree.Root()))
	out, n, err := fx.rewrite(t)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, src, out)
}

func TestReservedBytesRejected(t *testing.T) {
	src := "const A = /* #__LOADABLE__ */ () => import(\"./a\\x01\" + \"\x01\");\n"
	fx := load(t, src, jsast.JavaScript)
	_, _, err := fx.rewrite(t)
	require.ErrorIs(t, err, ErrReservedBytes)
}
