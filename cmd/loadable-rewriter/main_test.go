package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"loadable-rewriter/internal/config"
	"loadable-rewriter/internal/emit"
)

func TestParseFlagsBasic(t *testing.T) {
	args := []string{"-diff", "-diff-context", "7", "-diff-no-prefix", "-report", "r.json", "-sentinel", "#__LAZY__", "src"}
	cfg, err := parseFlags(args, config.Builtin(), io.Discard)
	if err != nil {
		t.Fatalf("parseFlags error: %v", err)
	}
	if !cfg.diff {
		t.Fatalf("diff not set")
	}
	if cfg.diffContext != 7 {
		t.Fatalf("diffContext got %d", cfg.diffContext)
	}
	if !cfg.diffNoPrefix {
		t.Fatalf("diffNoPrefix got %v", cfg.diffNoPrefix)
	}
	if cfg.reportPath != "r.json" {
		t.Fatalf("reportPath got %q", cfg.reportPath)
	}
	if cfg.sentinel != "#__LAZY__" {
		t.Fatalf("sentinel got %q", cfg.sentinel)
	}
	if cfg.alias != "@manifest" || cfg.manifestPath != "src/templating/manifest.ts" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.paths, []string{"src"}) {
		t.Fatalf("paths got %v", cfg.paths)
	}
}

func TestParseFlagsDefaultsFromConfig(t *testing.T) {
	def := config.Builtin()
	def.Alias = "@tpl"
	def.DiffContext = 9
	cfg, err := parseFlags([]string{"-check", "a.ts"}, def, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags error: %v", err)
	}
	if cfg.alias != "@tpl" || cfg.diffContext != 9 {
		t.Fatalf("config defaults lost: %+v", cfg)
	}
}

func TestParseFlagsMissingPath(t *testing.T) {
	if _, err := parseFlags([]string{"-w"}, config.Builtin(), io.Discard); err == nil {
		t.Fatalf("expected error for missing <path>")
	}
}

func TestExtSetWithSpaces(t *testing.T) {
	got := extSet(".TS, tsx , ,.js")
	want := map[string]struct{}{".ts": {}, ".tsx": {}, ".js": {}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestSelectMode(t *testing.T) {
	if m, _ := selectMode(Config{write: true}); m != modeWrite {
		t.Fatalf("mode=%s", m)
	}
	if m, _ := selectMode(Config{outDir: "dist"}); m != modeOut {
		t.Fatalf("mode=%s", m)
	}
	if m, _ := selectMode(Config{diff: true}); m != modeDiff {
		t.Fatalf("mode=%s", m)
	}
	if m, _ := selectMode(Config{check: true}); m != modeCheck {
		t.Fatalf("mode=%s", m)
	}
	if _, err := selectMode(Config{write: true, diff: true}); err == nil {
		t.Fatalf("expected error on conflicting modes")
	}
}

func TestSelectModeNoMode(t *testing.T) {
	if _, err := selectMode(Config{}); err == nil {
		t.Fatalf("expected error when no mode is selected")
	}
}

const pageSrc = `const Home = /* #__LOADABLE__ */ () => import("./pages/home");

export default Home;
`

func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for rel, body := range map[string]string{
		"package.json":      `{"name": "web", "version": "1.2.3"}`,
		"src/page.ts":       pageSrc,
		"src/plain.ts":      "export const x = 1;\n",
		"src/pages/home.ts": "export default 1;\n",
	} {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return root
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errb bytes.Buffer
	code := run(context.Background(), args, &out, &errb)
	return code, out.String(), errb.String()
}

func TestRunCheck(t *testing.T) {
	root := newProject(t)
	report := filepath.Join(t.TempDir(), "report.json")

	code, out, errOut := runCLI(t, "-check", "-report", report, filepath.Join(root, "src"))
	if code != 1 {
		t.Fatalf("exit=%d stderr=%s", code, errOut)
	}
	if !strings.Contains(out, "would rewrite") || !strings.Contains(out, "page.ts") {
		t.Fatalf("stdout: %s", out)
	}
	if strings.Contains(out, "plain.ts") {
		t.Fatalf("unchanged file listed: %s", out)
	}

	r, err := emit.LoadReport(report)
	if err != nil {
		t.Fatalf("LoadReport: %v", err)
	}
	if r.Mode != modeCheck || len(r.Files) != 3 {
		t.Fatalf("unexpected report: %+v", r)
	}
	changed, failed := r.Counts()
	if changed != 1 || failed != 0 {
		t.Fatalf("changed=%d failed=%d", changed, failed)
	}

	b, _ := os.ReadFile(filepath.Join(root, "src", "page.ts"))
	if string(b) != pageSrc {
		t.Fatalf("-check must not modify files")
	}
}

func TestRunWrite(t *testing.T) {
	root := newProject(t)
	code, _, errOut := runCLI(t, "-w", filepath.Join(root, "src", "page.ts"))
	if code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, errOut)
	}
	b, err := os.ReadFile(filepath.Join(root, "src", "page.ts"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := string(b)
	for _, want := range []string{"const Home = {", "resolved: {},", "requireSync(props) {", `require.resolveWeak("./pages/home")`} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "#__LOADABLE__") {
		t.Fatalf("sentinel comment left behind:\n%s", got)
	}
}

func TestRunDiffAndOut(t *testing.T) {
	root := newProject(t)
	src := filepath.Join(root, "src")

	code, out, errOut := runCLI(t, "-diff", src)
	if code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, errOut)
	}
	if !strings.Contains(out, "-const Home = /* #__LOADABLE__ */") || !strings.Contains(out, "+const Home = {") {
		t.Fatalf("diff output:\n%s", out)
	}

	dest := t.TempDir()
	code, _, errOut = runCLI(t, "-out", dest, src)
	if code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, errOut)
	}
	for _, rel := range []string{"page.ts", "plain.ts", "pages/home.ts"} {
		if _, err := os.Stat(filepath.Join(dest, filepath.FromSlash(rel))); err != nil {
			t.Fatalf("missing mirrored %s: %v", rel, err)
		}
	}
}

func TestRunReportsFailures(t *testing.T) {
	root := newProject(t)
	bad := filepath.Join(root, "src", "bad.ts")
	body := "const A = /* #__LOADABLE__ */ () => Promise.all([import(\"./a\"), import(\"./b\")]);\n"
	if err := os.WriteFile(bad, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	code, _, errOut := runCLI(t, "-w", "-log-level", "error", filepath.Join(root, "src"))
	if code != 1 {
		t.Fatalf("exit=%d", code)
	}
	if !strings.Contains(errOut, "ERROR:") || !strings.Contains(errOut, "bad.ts") {
		t.Fatalf("stderr: %s", errOut)
	}
	b, _ := os.ReadFile(bad)
	if string(b) != body {
		t.Fatalf("failed module must stay untouched")
	}
	// the good module is still rewritten
	b, _ = os.ReadFile(filepath.Join(root, "src", "page.ts"))
	if !strings.Contains(string(b), "importAsync") {
		t.Fatalf("page.ts not rewritten")
	}
}

func TestRunUsageErrors(t *testing.T) {
	if code, _, _ := runCLI(t, "src"); code != 2 {
		t.Fatalf("no mode: exit=%d", code)
	}
	if code, _, _ := runCLI(t, "-w", "-check", "src"); code != 2 {
		t.Fatalf("two modes: exit=%d", code)
	}
}

func TestRunInvalidSettings(t *testing.T) {
	root := newProject(t)
	code, _, errOut := runCLI(t, "-check", "-manifest", "../manifest.ts", "-sentinel", "", filepath.Join(root, "src"))
	if code != 2 {
		t.Fatalf("exit=%d stderr=%s", code, errOut)
	}
	for _, want := range []string{"invalid settings", "'..' segments", "sentinel must be non-empty"} {
		if !strings.Contains(errOut, want) {
			t.Fatalf("missing %q in stderr: %s", want, errOut)
		}
	}
}

func TestRunOutRejectsCollidingDestinations(t *testing.T) {
	root := newProject(t)
	for _, dir := range []string{"a", "b"} {
		p := filepath.Join(root, "src", dir, "same.ts")
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte("export const "+dir+" = 1;\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	dest := t.TempDir()
	code, _, errOut := runCLI(t, "-out", dest,
		filepath.Join(root, "src", "a", "same.ts"), filepath.Join(root, "src", "b", "same.ts"))
	if code != 2 {
		t.Fatalf("exit=%d stderr=%s", code, errOut)
	}
	if !strings.Contains(errOut, "both map to") {
		t.Fatalf("stderr: %s", errOut)
	}
	entries, _ := os.ReadDir(dest)
	if len(entries) != 0 {
		t.Fatalf("nothing should be written, found %d entries", len(entries))
	}
}
