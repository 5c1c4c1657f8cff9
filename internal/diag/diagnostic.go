package diag

import (
	"errors"
	"fmt"
)

// NoFile is the placeholder shown when a diagnostic carries no path.
// Parse-time errors on in-memory buffers (stdin, eval) have no file but
// may still carry an inline excerpt.
const NoFile = "nofile"

// Location describes where a diagnostic points. Columns are 1-based and
// counted in Unicode codepoints; zero means "absent".
type Location struct {
	File         string // empty = nofile placeholder
	Line         uint32 // 1-based
	StartColumn  uint32 // 0 = no column
	EndColumn    uint32 // 0 = no end column; requires StartColumn, same line
	ContextLabel string // "Module.fun/arity", optional
}

// DisplayFile returns the path or the nofile placeholder.
func (l Location) DisplayFile() string {
	if l.File == "" {
		return NoFile
	}
	return l.File
}

// Frame is one call-stack entry attached to a diagnostic.
type Frame struct {
	File  string
	Line  uint32
	Label string
}

// SnippetKind tags the provenance of snippet text.
type SnippetKind uint8

const (
	// SnippetNone means no source context is available.
	SnippetNone SnippetKind = iota
	// SnippetInline carries text the parser held in memory at error time.
	SnippetInline
	// SnippetFile asks the renderer to fetch the line from disk.
	SnippetFile
)

// Snippet is a tagged variant: InlineExcerpt | FileLookup | None.
// Inline excerpts are produced only by parse-time errors; post-parse
// diagnostics use FileLookup or None.
type Snippet struct {
	Kind         SnippetKind
	Text         string // SnippetInline: exact line text, verbatim
	AnchorColumn uint32 // SnippetInline: 1-based codepoint column of the flagged unit
	Path         string // SnippetFile: path to read one line from
}

// InlineExcerpt builds a Snippet from text captured at parse time.
func InlineExcerpt(text string, anchorColumn uint32) Snippet {
	return Snippet{Kind: SnippetInline, Text: text, AnchorColumn: anchorColumn}
}

// FileLookup builds a Snippet resolved by reading line Location.Line from path.
func FileLookup(path string) Snippet {
	return Snippet{Kind: SnippetFile, Path: path}
}

// Diagnostic is one reported issue, fully formed by the frontend.
// Message holds ordered lines; multi-paragraph explanations keep their
// line structure.
type Diagnostic struct {
	Severity Severity
	Message  []string
	Location Location
	Snippet  Snippet
	Stack    []Frame
}

// New constructs a validated Diagnostic. Contract violations (§ model
// invariants) are construction-time errors, never rendering-time ones.
func New(sev Severity, msg []string, loc Location) (Diagnostic, error) {
	d := Diagnostic{Severity: sev, Message: msg, Location: loc}
	if err := d.Validate(); err != nil {
		return Diagnostic{}, err
	}
	return d, nil
}

// NewError is a shortcut for SevError diagnostics.
func NewError(msg []string, loc Location) (Diagnostic, error) {
	return New(SevError, msg, loc)
}

// NewWarning is a shortcut for SevWarning diagnostics.
func NewWarning(msg []string, loc Location) (Diagnostic, error) {
	return New(SevWarning, msg, loc)
}

// WithSnippet attaches a snippet source.
func (d Diagnostic) WithSnippet(s Snippet) Diagnostic {
	d.Snippet = s
	return d
}

// WithFrame appends one call-stack frame (innermost first).
func (d Diagnostic) WithFrame(file string, line uint32, label string) Diagnostic {
	d.Stack = append(d.Stack, Frame{File: file, Line: line, Label: label})
	return d
}

// Validate reports the first contract violation in the diagnostic.
// A nofile location can never resolve a FileLookup: the parser that
// produced it held no on-disk path.
func (d Diagnostic) Validate() error {
	if len(d.Message) == 0 {
		return errors.New("diagnostic has no message")
	}
	loc := d.Location
	if loc.Line == 0 {
		return errors.New("diagnostic line must be positive")
	}
	if loc.EndColumn != 0 {
		if loc.StartColumn == 0 {
			return errors.New("end column requires a start column")
		}
		if loc.EndColumn < loc.StartColumn {
			return fmt.Errorf("end column %d precedes start column %d", loc.EndColumn, loc.StartColumn)
		}
	}
	if d.Snippet.Kind == SnippetFile && loc.File == "" {
		return errors.New("file lookup snippet on a nofile diagnostic")
	}
	for i, f := range d.Stack {
		if f.Label == "" {
			return fmt.Errorf("stack frame %d has no label", i)
		}
		if f.Line == 0 {
			return fmt.Errorf("stack frame %d line must be positive", i)
		}
	}
	return nil
}
