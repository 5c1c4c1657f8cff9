package diagfmt

// PathMode specifies how file paths are displayed in trailer lines.
type PathMode uint8

const (
	// PathModeAuto shows the path as the frontend reported it, in
	// slash-normalized form.
	PathModeAuto PathMode = iota
	// PathModeRelative shows paths relative to BaseDir when possible.
	PathModeRelative
	PathModeBasename
)

// PrettyOpts configures pretty-printing of diagnostics.
//
// Color is an explicit value rather than ambient process state so a
// render call is deterministic and golden-testable; disabling it never
// changes text content or alignment, only the ANSI styling around the
// severity word and the underline markers.
type PrettyOpts struct {
	Color     bool
	Width     uint8 // максимальная ширина строк сниппета и подчёркивания, 0 - не ограничено
	PathMode  PathMode
	BaseDir   string // base for PathModeRelative
	ShowStack bool   // include call-stack lines beneath the trailers
}
