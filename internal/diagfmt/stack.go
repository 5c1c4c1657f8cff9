package diagfmt

import (
	"fmt"
	"io"

	"lumen/internal/diag"
)

// writeStack prints call-frame lines directly beneath the final
// trailer line, one frame per line in the given (innermost-first)
// order, with no de-duplication, truncation or re-sorting. An empty
// stack prints nothing at all, not even a header.
func writeStack(w io.Writer, frames []diag.Frame, margin string) {
	for _, f := range frames {
		fmt.Fprintf(w, "%s%s:%d: %s\n", margin, f.File, f.Line, f.Label)
	}
}
