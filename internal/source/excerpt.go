// Package source resolves the line of text a snippet box displays.
//
// Two provenances exist: an inline excerpt captured by the parser at
// error time (independent of on-disk state), and a one-shot lookup of
// a single line from a file at report time. When neither is available,
// or the lookup fails for any reason, resolution degrades to
// "unavailable" and the renderer falls back to a snippet-less block.
package source

import (
	"bufio"
	"os"
	"path/filepath"

	"lumen/internal/diag"
)

// Excerpt is the resolved source context for one snippet box.
type Excerpt struct {
	Text   string // raw line text, no trailing newline
	Anchor uint32 // 1-based codepoint column of the flagged unit, 0 = none
}

// Resolve returns the line of text to display for a diagnostic, or
// ok=false when no source context can be obtained. Inline excerpts win
// verbatim; file lookups open, scan to the line and close, with no
// caching and no retained handle. Read failures (missing file, line
// out of range, races with concurrent edits) are never fatal.
func Resolve(loc diag.Location, sn diag.Snippet) (Excerpt, bool) {
	switch sn.Kind {
	case diag.SnippetInline:
		anchor := sn.AnchorColumn
		if anchor == 0 {
			anchor = loc.StartColumn
		}
		return Excerpt{Text: trimLineEnding(sn.Text), Anchor: anchor}, true
	case diag.SnippetFile:
		text, ok := readLine(sn.Path, loc.Line)
		if !ok {
			return Excerpt{}, false
		}
		return Excerpt{Text: text, Anchor: loc.StartColumn}, true
	}
	return Excerpt{}, false
}

// readLine fetches exactly one 1-based line from path.
func readLine(path string, line uint32) (string, bool) {
	if path == "" || line == 0 {
		return "", false
	}
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var n uint32
	for sc.Scan() {
		n++
		if n == line {
			return sc.Text(), true
		}
	}
	return "", false
}

// trimLineEnding drops a single trailing newline from parser-captured
// text. The parser hands over the buffer as it held it, which may
// include the terminator.
func trimLineEnding(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\n' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '\r' {
		s = s[:len(s)-1]
	}
	return s
}

// NormalizePath renders a path in a single cross-platform form for
// stable trailer output and golden tests.
func NormalizePath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}
