package diagfmt

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"lumen/internal/diag"
)

func render(t *testing.T, diags []diag.Diagnostic, opts PrettyOpts) string {
	t.Helper()
	var buf bytes.Buffer
	Pretty(&buf, diags, opts)
	return buf.String()
}

func mk(t *testing.T, sev diag.Severity, msg []string, loc diag.Location) diag.Diagnostic {
	t.Helper()
	d, err := diag.New(sev, msg, loc)
	if err != nil {
		t.Fatalf("diag.New: %v", err)
	}
	return d
}

func TestPrettyParseErrorSnippet(t *testing.T) {
	d := mk(t, diag.SevError,
		[]string{"unexpectedly reached end of line"},
		diag.Location{Line: 1, StartColumn: 4},
	).WithSnippet(diag.InlineExcerpt("1 +\n", 4))

	want := strings.Join([]string{
		"    error: unexpectedly reached end of line",
		"    │",
		"  1 │ 1 +",
		"    │    ^",
		"    │",
		"    └─ nofile:1:4",
		"",
	}, "\n")

	if got := render(t, []diag.Diagnostic{d}, PrettyOpts{}); got != want {
		t.Fatalf("unexpected render:\nwant:\n%s\ngot:\n%s", want, got)
	}
}

func TestPrettyGroupedWarnings(t *testing.T) {
	msg := []string{"Unknown.bar/0 is undefined"}
	var diags []diag.Diagnostic
	for line := uint32(3); line <= 6; line++ {
		diags = append(diags, mk(t, diag.SevWarning, msg, diag.Location{
			Line:         line,
			StartColumn:  12,
			ContextLabel: "MyApp.main/0",
		}))
	}

	want := strings.Join([]string{
		"    warning: Unknown.bar/0 is undefined",
		"    └─ nofile:3:12: MyApp.main/0",
		"    └─ nofile:4:12: MyApp.main/0",
		"    └─ nofile:5:12: MyApp.main/0",
		"    └─ nofile:6:12: MyApp.main/0",
		"",
	}, "\n")

	if got := render(t, diags, PrettyOpts{}); got != want {
		t.Fatalf("unexpected render:\nwant:\n%s\ngot:\n%s", want, got)
	}
}

func TestPrettyGroupingAssociative(t *testing.T) {
	msg := []string{"Unknown.bar/0 is undefined"}
	single := mk(t, diag.SevWarning, msg, diag.Location{Line: 3, StartColumn: 12})
	batch := []diag.Diagnostic{
		single,
		mk(t, diag.SevWarning, msg, diag.Location{Line: 4, StartColumn: 12}),
		mk(t, diag.SevWarning, msg, diag.Location{Line: 5, StartColumn: 12}),
	}

	alone := render(t, []diag.Diagnostic{single}, PrettyOpts{})
	grouped := render(t, batch, PrettyOpts{})

	// Same header as the singleton render, plus one trailer per member
	// in emission order.
	if !strings.HasPrefix(grouped, strings.TrimSuffix(alone, "\n")) {
		t.Fatalf("grouped render does not extend the singleton render:\nalone:\n%s\ngrouped:\n%s", alone, grouped)
	}
	for _, trailer := range []string{"└─ nofile:3:12", "└─ nofile:4:12", "└─ nofile:5:12"} {
		if !strings.Contains(grouped, trailer) {
			t.Fatalf("grouped render missing %q:\n%s", trailer, grouped)
		}
	}
	if strings.Count(grouped, "warning:") != 1 {
		t.Fatalf("grouped render has %d headers, want 1:\n%s", strings.Count(grouped, "warning:"), grouped)
	}
}

func TestPrettyUnderlineWidths(t *testing.T) {
	line := "let badbadbadbadbad1 = 1"
	loc := diag.Location{Line: 2, StartColumn: 5, EndColumn: 20}

	errOut := render(t, []diag.Diagnostic{
		mk(t, diag.SevError, []string{"invalid identifier"}, loc).WithSnippet(diag.InlineExcerpt(line, 5)),
	}, PrettyOpts{})
	warnOut := render(t, []diag.Diagnostic{
		mk(t, diag.SevWarning, []string{"suspicious identifier"}, loc).WithSnippet(diag.InlineExcerpt(line, 5)),
	}, PrettyOpts{})

	if !strings.Contains(errOut, "│     "+strings.Repeat("^", 16)) {
		t.Fatalf("error span not underlined with 16 carets:\n%s", errOut)
	}
	if strings.Contains(errOut, strings.Repeat("^", 17)) {
		t.Fatalf("error underline too wide:\n%s", errOut)
	}
	if !strings.Contains(warnOut, "│     "+strings.Repeat("~", 16)) {
		t.Fatalf("warning span not underlined with 16 tildes:\n%s", warnOut)
	}

	// Start without end flags exactly one column.
	one := render(t, []diag.Diagnostic{
		mk(t, diag.SevError, []string{"unexpected token"}, diag.Location{Line: 2, StartColumn: 5}).
			WithSnippet(diag.InlineExcerpt(line, 5)),
	}, PrettyOpts{})
	if !strings.Contains(one, "│     ^\n") {
		t.Fatalf("single-column span not underlined with one caret:\n%s", one)
	}
}

func TestPrettyFullWidthUnderline(t *testing.T) {
	d := mk(t, diag.SevWarning,
		[]string{"this expression is never used"},
		diag.Location{File: "lib/app.lm", Line: 10},
	).WithSnippet(diag.InlineExcerpt("x = compute()   ", 0))

	want := strings.Join([]string{
		"    warning: this expression is never used",
		"    │",
		" 10 │ x = compute()",
		"    │ ~~~~~~~~~~~~~",
		"    │",
		"    └─ lib/app.lm:10",
		"",
	}, "\n")

	if got := render(t, []diag.Diagnostic{d}, PrettyOpts{}); got != want {
		t.Fatalf("unexpected render:\nwant:\n%s\ngot:\n%s", want, got)
	}
}

func TestPrettyReducedMargin(t *testing.T) {
	d := mk(t, diag.SevError, []string{"internal failure"}, diag.Location{Line: 7})

	want := strings.Join([]string{
		" error: internal failure",
		" └─ nofile:7",
		"",
	}, "\n")

	if got := render(t, []diag.Diagnostic{d}, PrettyOpts{}); got != want {
		t.Fatalf("unexpected render:\nwant:\n%s\ngot:\n%s", want, got)
	}
}

func TestPrettyGutterAlignment(t *testing.T) {
	d1 := mk(t, diag.SevError, []string{"first"}, diag.Location{Line: 1, StartColumn: 1}).
		WithSnippet(diag.InlineExcerpt("a", 1))
	d12 := mk(t, diag.SevError, []string{"second"}, diag.Location{Line: 12, StartColumn: 1}).
		WithSnippet(diag.InlineExcerpt("b", 1))

	out := render(t, []diag.Diagnostic{d1, d12}, PrettyOpts{})
	if !strings.Contains(out, "  1 │ a") || !strings.Contains(out, " 12 │ b") {
		t.Fatalf("lines 1 and 12 are not gutter-aligned to equal width:\n%s", out)
	}

	// A line-12-only render still reserves its own two digits.
	solo := render(t, []diag.Diagnostic{d12}, PrettyOpts{})
	if !strings.Contains(solo, " 12 │ b") {
		t.Fatalf("solo line 12 lost its gutter width:\n%s", solo)
	}

	// Three digits widen the whole box.
	d100 := mk(t, diag.SevError, []string{"third"}, diag.Location{Line: 100, StartColumn: 1}).
		WithSnippet(diag.InlineExcerpt("c", 1))
	wide := render(t, []diag.Diagnostic{d100}, PrettyOpts{})
	if !strings.Contains(wide, " 100 │ c") || !strings.Contains(wide, "     │ ^") {
		t.Fatalf("line 100 box not widened:\n%s", wide)
	}
}

func TestPrettyTrailerForms(t *testing.T) {
	// File and line, no column, label appended after colon-space.
	noCol := mk(t, diag.SevWarning, []string{"unused import"}, diag.Location{
		File: "lib/app.lm", Line: 3, ContextLabel: "MyApp.run/1",
	})
	out := render(t, []diag.Diagnostic{noCol}, PrettyOpts{})
	if !strings.Contains(out, "    └─ lib/app.lm:3: MyApp.run/1\n") {
		t.Fatalf("trailer without column malformed:\n%s", out)
	}

	// Column present: file:line:column, label still after colon-space.
	withCol := mk(t, diag.SevWarning, []string{"unused alias"}, diag.Location{
		File: "lib/app.lm", Line: 3, StartColumn: 9, ContextLabel: "MyApp.run/1",
	})
	out = render(t, []diag.Diagnostic{withCol}, PrettyOpts{})
	if !strings.Contains(out, "    └─ lib/app.lm:3:9: MyApp.run/1\n") {
		t.Fatalf("trailer with column malformed:\n%s", out)
	}
}

func TestPrettyStack(t *testing.T) {
	d := mk(t, diag.SevError,
		[]string{"** (RuntimeError) boom"},
		diag.Location{File: "lib/app.lm", Line: 3},
	).
		WithFrame("lib/app.lm", 3, "MyApp.run/1").
		WithFrame("lib/base.lm", 10, "MyApp.main/0")

	want := strings.Join([]string{
		"    error: ** (RuntimeError) boom",
		"    └─ lib/app.lm:3",
		"    lib/app.lm:3: MyApp.run/1",
		"    lib/base.lm:10: MyApp.main/0",
		"",
	}, "\n")

	if got := render(t, []diag.Diagnostic{d}, PrettyOpts{ShowStack: true}); got != want {
		t.Fatalf("unexpected render:\nwant:\n%s\ngot:\n%s", want, got)
	}

	// Without the option no stack section is printed at all.
	plain := render(t, []diag.Diagnostic{d}, PrettyOpts{})
	if strings.Contains(plain, "MyApp.main/0") {
		t.Fatalf("stack rendered although disabled:\n%s", plain)
	}
}

func TestPrettyMultiLineMessage(t *testing.T) {
	d := mk(t, diag.SevError,
		[]string{"mismatched types", "expected integer, got string"},
		diag.Location{File: "lib/app.lm", Line: 8, StartColumn: 5},
	)

	want := strings.Join([]string{
		"    error: mismatched types",
		"           expected integer, got string",
		"    └─ lib/app.lm:8:5",
		"",
	}, "\n")

	if got := render(t, []diag.Diagnostic{d}, PrettyOpts{}); got != want {
		t.Fatalf("unexpected render:\nwant:\n%s\ngot:\n%s", want, got)
	}
}

func TestPrettyTrimsDeepIndent(t *testing.T) {
	line := strings.Repeat(" ", 40) + "foo = bar"
	d := mk(t, diag.SevError,
		[]string{"unexpected token"},
		diag.Location{Line: 7, StartColumn: 43},
	).WithSnippet(diag.InlineExcerpt(line, 43))

	want := strings.Join([]string{
		"    error: unexpected token",
		"    │",
		"  7 │ ..." + strings.Repeat(" ", 8) + "foo = bar",
		"    │ " + strings.Repeat(" ", 13) + "^",
		"    │",
		"    └─ nofile:7:43",
		"",
	}, "\n")

	if got := render(t, []diag.Diagnostic{d}, PrettyOpts{}); got != want {
		t.Fatalf("unexpected render:\nwant:\n%s\ngot:\n%s", want, got)
	}
}

func TestPrettyKeepsShallowIndent(t *testing.T) {
	line := strings.Repeat(" ", 18) + "foo = bar"
	d := mk(t, diag.SevError,
		[]string{"unexpected token"},
		diag.Location{Line: 3, StartColumn: 23},
	).WithSnippet(diag.InlineExcerpt(line, 23))

	want := strings.Join([]string{
		"    error: unexpected token",
		"    │",
		"  3 │ " + line,
		"    │ " + strings.Repeat(" ", 22) + "^",
		"    │",
		"    └─ nofile:3:23",
		"",
	}, "\n")

	if got := render(t, []diag.Diagnostic{d}, PrettyOpts{}); got != want {
		t.Fatalf("unexpected render:\nwant:\n%s\ngot:\n%s", want, got)
	}
}

var ansiEscapes = regexp.MustCompile("\x1b\\[[0-9;]*m")

func TestPrettyColorOnlyStyles(t *testing.T) {
	d := mk(t, diag.SevError,
		[]string{"unexpected token"},
		diag.Location{Line: 1, StartColumn: 4},
	).WithSnippet(diag.InlineExcerpt("1 +", 4))

	plain := render(t, []diag.Diagnostic{d}, PrettyOpts{})
	colored := render(t, []diag.Diagnostic{d}, PrettyOpts{Color: true})

	if !strings.Contains(colored, "\x1b[") {
		t.Fatalf("colored render carries no ANSI styling:\n%q", colored)
	}
	// Styling must not alter text content or alignment.
	if got := ansiEscapes.ReplaceAllString(colored, ""); got != plain {
		t.Fatalf("stripped colored render differs from plain:\nplain:\n%s\nstripped:\n%s", plain, got)
	}
}

func TestPrettyBlockSeparation(t *testing.T) {
	d1 := mk(t, diag.SevError, []string{"first"}, diag.Location{Line: 1})
	d2 := mk(t, diag.SevWarning, []string{"second"}, diag.Location{Line: 2})

	out := render(t, []diag.Diagnostic{d1, d2}, PrettyOpts{})
	if strings.Count(out, "\n\n") != 1 {
		t.Fatalf("blocks not separated by exactly one blank line:\n%q", out)
	}
	if strings.HasSuffix(out, "\n\n") {
		t.Fatalf("output ends with a blank line:\n%q", out)
	}

	if got := render(t, nil, PrettyOpts{}); got != "" {
		t.Fatalf("empty input rendered %q", got)
	}
}

func TestPrettyWidthCap(t *testing.T) {
	line := strings.Repeat("a", 40)
	d := mk(t, diag.SevError, []string{"long line"}, diag.Location{Line: 1, StartColumn: 1}).
		WithSnippet(diag.InlineExcerpt(line, 1))

	out := render(t, []diag.Diagnostic{d}, PrettyOpts{Width: 20})
	rows := strings.Split(out, "\n")
	want := "  1 │ " + strings.Repeat("a", 11) + "..."
	if rows[2] != want {
		t.Fatalf("capped row = %q, want %q", rows[2], want)
	}
}

func TestPrettyWidthCapUnderline(t *testing.T) {
	line := strings.Repeat("a", 40)

	// A span running past the cap keeps only the markers that fit.
	d := mk(t, diag.SevError, []string{"long span"}, diag.Location{Line: 1, StartColumn: 10, EndColumn: 40}).
		WithSnippet(diag.InlineExcerpt(line, 1))
	rows := strings.Split(render(t, []diag.Diagnostic{d}, PrettyOpts{Width: 20}), "\n")
	want := "    │ " + strings.Repeat(" ", 9) + "^^^^^"
	if rows[3] != want {
		t.Fatalf("capped underline = %q, want %q", rows[3], want)
	}

	// A caret entirely past the cap collapses to a bare bar row.
	d = mk(t, diag.SevError, []string{"far caret"}, diag.Location{Line: 1, StartColumn: 20}).
		WithSnippet(diag.InlineExcerpt(line, 1))
	rows = strings.Split(render(t, []diag.Diagnostic{d}, PrettyOpts{Width: 10}), "\n")
	if rows[3] != "    │" {
		t.Fatalf("out-of-cap underline = %q, want bare bar row", rows[3])
	}
}

func TestPrettyPathModes(t *testing.T) {
	loc := diag.Location{File: "/work/src/app.lm", Line: 4, StartColumn: 2}
	d := mk(t, diag.SevWarning, []string{"shadowed variable"}, loc)

	out := render(t, []diag.Diagnostic{d}, PrettyOpts{PathMode: PathModeBasename})
	if !strings.Contains(out, "└─ app.lm:4:2") {
		t.Fatalf("basename mode trailer malformed:\n%s", out)
	}

	out = render(t, []diag.Diagnostic{d}, PrettyOpts{PathMode: PathModeRelative, BaseDir: "/work"})
	if !strings.Contains(out, "└─ src/app.lm:4:2") {
		t.Fatalf("relative mode trailer malformed:\n%s", out)
	}

	// Outside the base dir the path stays as reported.
	out = render(t, []diag.Diagnostic{d}, PrettyOpts{PathMode: PathModeRelative, BaseDir: "/elsewhere"})
	if !strings.Contains(out, "└─ /work/src/app.lm:4:2") {
		t.Fatalf("out-of-base trailer malformed:\n%s", out)
	}

	// The nofile placeholder passes through every mode untouched.
	nd := mk(t, diag.SevError, []string{"boom"}, diag.Location{Line: 7})
	for _, mode := range []PathMode{PathModeAuto, PathModeRelative, PathModeBasename} {
		out = render(t, []diag.Diagnostic{nd}, PrettyOpts{PathMode: mode, BaseDir: "/work"})
		if !strings.Contains(out, "└─ nofile:7") {
			t.Fatalf("nofile trailer malformed in mode %d:\n%s", mode, out)
		}
	}
}

func TestPrettyFileLookupSnippet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.lm")
	if err := os.WriteFile(path, []byte("def run do\n  x = 1\nend\n"), 0o644); err != nil {
		t.Fatalf("write temp source: %v", err)
	}

	d := mk(t, diag.SevWarning,
		[]string{"variable \"x\" is unused"},
		diag.Location{File: path, Line: 2, StartColumn: 3, ContextLabel: "MyApp.run/0"},
	).WithSnippet(diag.FileLookup(path))

	out := render(t, []diag.Diagnostic{d}, PrettyOpts{PathMode: PathModeBasename})
	want := strings.Join([]string{
		"    warning: variable \"x\" is unused",
		"    │",
		"  2 │   x = 1",
		"    │   ~",
		"    │",
		"    └─ app.lm:2:3: MyApp.run/0",
		"",
	}, "\n")
	if out != want {
		t.Fatalf("unexpected render:\nwant:\n%s\ngot:\n%s", want, out)
	}

	// A vanished file degrades to the trailer-only block, never an error.
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove temp source: %v", err)
	}
	degraded := render(t, []diag.Diagnostic{d}, PrettyOpts{PathMode: PathModeBasename})
	wantDegraded := strings.Join([]string{
		"    warning: variable \"x\" is unused",
		"    └─ app.lm:2:3: MyApp.run/0",
		"",
	}, "\n")
	if degraded != wantDegraded {
		t.Fatalf("unexpected degraded render:\nwant:\n%s\ngot:\n%s", wantDegraded, degraded)
	}
}

func TestPrettyBag(t *testing.T) {
	bag := diag.NewBag(4)
	bag.Add(mk(t, diag.SevError, []string{"first"}, diag.Location{Line: 1}))

	var buf bytes.Buffer
	PrettyBag(&buf, bag, PrettyOpts{})
	if !strings.Contains(buf.String(), "error: first") {
		t.Fatalf("PrettyBag lost the bag contents:\n%s", buf.String())
	}
}

func TestPrettyUnicodeCaretAlignment(t *testing.T) {
	// The flagged emoji occupies one codepoint column; the caret sits
	// directly after the three ASCII columns before it.
	line := "x =\U0001F60E"
	d := mk(t, diag.SevError,
		[]string{fmt.Sprintf("unexpected code point %s", DescribeRune('\U0001F60E'))},
		diag.Location{Line: 1, StartColumn: 4},
	).WithSnippet(diag.InlineExcerpt(line, 4))

	out := render(t, []diag.Diagnostic{d}, PrettyOpts{})
	want := strings.Join([]string{
		"    error: unexpected code point U+1F60E",
		"    │",
		"  1 │ x =\U0001F60E",
		"    │    ^",
		"    │",
		"    └─ nofile:1:4",
		"",
	}, "\n")
	if out != want {
		t.Fatalf("unexpected render:\nwant:\n%s\ngot:\n%s", want, out)
	}
}
