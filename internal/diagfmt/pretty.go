package diagfmt

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"lumen/internal/diag"
	"lumen/internal/source"
)

// Pretty форматирует диагностики в человекочитаемый вид.
// Diagnostics are coalesced into groups sharing (severity, message,
// file); each group renders one block:
//
//	    error: unexpected token
//	    │
//	  1 │ 1 +
//	    │    ^
//	    │
//	    └─ nofile:1:4
//
// Blocks are separated by one blank line. Rendering is pure and
// synchronous; the only external access is the optional single-line
// file read behind a FileLookup snippet, and any failure there
// silently degrades the block to its trailer lines.
func Pretty(w io.Writer, diags []diag.Diagnostic, opts PrettyOpts) {
	groups := diag.GroupAll(diags)
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		renderGroup(w, g, opts)
	}
}

// PrettyBag renders the contents of a bag in emission order.
func PrettyBag(w io.Writer, bag *diag.Bag, opts PrettyOpts) {
	Pretty(w, bag.Items(), opts)
}

func renderGroup(w io.Writer, g diag.Group, opts PrettyOpts) {
	first := g.First()
	exc, haveSnippet := source.Resolve(first.Location, first.Snippet)
	if !haveSnippet {
		renderPlain(w, g, opts)
		return
	}

	// The excerpt anchor positions parse-time errors whose location
	// carries no column of its own.
	start := first.Location.StartColumn
	if start == 0 {
		start = exc.Anchor
	}
	end := first.Location.EndColumn

	line := NormalizeLine(exc.Text)
	display, adjStart, adjEnd := trimLine(line, start, end)

	margin := strings.Repeat(" ", gutterWidth(first.Location.Line))

	writeHeader(w, g, margin, opts)
	fmt.Fprintf(w, "%s │\n", margin)
	row := fmt.Sprintf("%*d │ %s", len(margin), first.Location.Line, display)
	fmt.Fprintln(w, truncateRow(row, opts.Width))
	writeUnderline(w, g.Severity, margin, display, adjStart, adjEnd, opts)
	fmt.Fprintf(w, "%s │\n", margin)
	writeTrailers(w, g, margin, opts)
}

// renderPlain emits the minimal, box-less block used when no source
// context is available: the header, then one trailer per member. A
// group with neither file nor column has no numbered-line box to align
// against and drops to a one-space left margin.
func renderPlain(w io.Writer, g diag.Group, opts PrettyOpts) {
	first := g.First()
	margin := strings.Repeat(" ", gutterWidth(0))
	if first.Location.File == "" && first.Location.StartColumn == 0 {
		margin = ""
	}
	writeHeader(w, g, margin, opts)
	writeTrailers(w, g, margin, opts)
}

// gutterWidth is the left margin every decorative row is padded to:
// max(2, digits of the largest gutter-printed line number) plus one
// leading space for right-alignment. Zero means no line number is
// printed in this block.
func gutterWidth(line uint32) int {
	digits := len(strconv.FormatUint(uint64(line), 10))
	if line == 0 || digits < 2 {
		digits = 2
	}
	return digits + 1
}

func writeHeader(w io.Writer, g diag.Group, margin string, opts PrettyOpts) {
	sev := g.Severity.String()
	fmt.Fprintf(w, "%s %s: %s\n", margin, paint(opts.Color, headerAttrs(g.Severity), sev), g.Message[0])
	cont := strings.Repeat(" ", len(sev)+2)
	for _, line := range g.Message[1:] {
		fmt.Fprintf(w, "%s %s%s\n", margin, cont, line)
	}
}

func writeUnderline(w io.Writer, sev diag.Severity, margin, display string, start, end uint32, opts PrettyOpts) {
	var pad, width int
	switch {
	case start == 0:
		// No column at all: the underline spans the full display width
		// of the (possibly trimmed) line.
		width = int(DisplayWidth(display))
	case end == 0:
		pad, width = int(start)-1, 1
	default:
		pad, width = int(start)-1, int(end-start)+1
	}
	if width == 0 {
		width = 1
	}
	// Markers stay inside the same cap the snippet row was cut to.
	if opts.Width != 0 {
		avail := int(opts.Width) - len(margin) - 3
		if pad > avail {
			pad = max(avail, 0)
		}
		if pad+width > avail {
			width = avail - pad
		}
	}
	if width <= 0 {
		fmt.Fprintf(w, "%s │\n", margin)
		return
	}
	marks := strings.Repeat(markerFor(sev), width)
	fmt.Fprintf(w, "%s │ %s%s\n", margin, strings.Repeat(" ", pad), paint(opts.Color, markerAttrs(sev), marks))
}

func writeTrailers(w io.Writer, g diag.Group, margin string, opts PrettyOpts) {
	for _, m := range g.Members {
		loc := m.Location
		var b strings.Builder
		fmt.Fprintf(&b, "%s └─ %s:%d", margin, displayPath(loc, opts), loc.Line)
		if loc.StartColumn != 0 {
			fmt.Fprintf(&b, ":%d", loc.StartColumn)
		}
		if loc.ContextLabel != "" {
			fmt.Fprintf(&b, ": %s", loc.ContextLabel)
		}
		fmt.Fprintln(w, b.String())
	}
	if opts.ShowStack {
		for _, m := range g.Members {
			writeStack(w, m.Stack, margin+" ")
		}
	}
}

// markerFor returns the severity marker: errors underline with carets,
// warnings with tildes.
func markerFor(sev diag.Severity) string {
	if sev == diag.SevError {
		return "^"
	}
	return "~"
}

func displayPath(loc diag.Location, opts PrettyOpts) string {
	p := source.NormalizePath(loc.DisplayFile())
	switch opts.PathMode {
	case PathModeBasename:
		return filepath.Base(p)
	case PathModeRelative:
		if opts.BaseDir != "" && loc.File != "" {
			if rel, err := filepath.Rel(opts.BaseDir, loc.File); err == nil && !strings.HasPrefix(rel, "..") {
				return source.NormalizePath(rel)
			}
		}
	}
	return p
}

// truncateRow caps a snippet row at width display cells, marking the
// cut with an ellipsis tail.
func truncateRow(row string, width uint8) string {
	if width == 0 {
		return row
	}
	w := int(width)
	if runewidth.StringWidth(row) <= w {
		return row
	}
	if w <= 3 {
		return runewidth.Truncate(row, w, "")
	}
	// Truncate budgets the tail inside w, so the result is exactly w
	// cells wide.
	return runewidth.Truncate(row, w, "...")
}

var (
	errHeader  = []color.Attribute{color.FgRed, color.Bold}
	warnHeader = []color.Attribute{color.FgYellow, color.Bold}
	errMarker  = []color.Attribute{color.FgRed}
	warnMarker = []color.Attribute{color.FgYellow}
)

func headerAttrs(sev diag.Severity) []color.Attribute {
	if sev == diag.SevError {
		return errHeader
	}
	return warnHeader
}

func markerAttrs(sev diag.Severity) []color.Attribute {
	if sev == diag.SevError {
		return errMarker
	}
	return warnMarker
}

// paint wraps s in ANSI styling when enabled. Styling never alters
// text content or alignment: disabled output is byte-identical to the
// unstyled text.
func paint(enabled bool, attrs []color.Attribute, s string) string {
	if !enabled {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}
