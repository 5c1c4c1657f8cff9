package diagfmt

import (
	"fmt"

	"fortio.org/safecast"
)

const (
	// trimLeadBudget is the number of leading display columns (typically
	// indentation) a line may carry before truncation kicks in. The
	// upstream contract only brackets the constant (safe below ~20,
	// trimmed above ~40); 24 is this implementation's choice and both
	// sides of the boundary are covered by tests.
	trimLeadBudget = 24

	// trimLeadWindow is how many columns of lead-in stay visible before
	// the flagged span after truncation.
	trimLeadWindow = 10

	ellipsis = "..."
)

// trimLine truncates long leading content while preserving caret
// alignment. start/end are 1-based display columns into line (already
// NFC-normalized); zero means absent. Only content before the flagged
// span is ever replaced by the ellipsis marker; trailing whitespace
// beyond the span is dropped without any marker, and trailing
// non-whitespace is never removed.
func trimLine(line string, start, end uint32) (display string, adjStart, adjEnd uint32) {
	runes := []rune(line)
	adjStart, adjEnd = start, end

	if start > uint32(trimLeadBudget)+1 {
		lead := int(start) - 1
		keepFrom := lead - trimLeadWindow
		if keepFrom > len(runes) {
			keepFrom = len(runes)
		}
		runes = append([]rune(ellipsis), runes[keepFrom:]...)
		rebased, err := safecast.Conv[uint32](len(ellipsis) + trimLeadWindow + 1)
		if err != nil {
			panic(fmt.Errorf("trim rebase overflow: %w", err))
		}
		adjStart = rebased
		if end != 0 {
			adjEnd = adjStart + (end - start)
		}
	}

	// Tail: whitespace past the flagged span needs no indicator. Never
	// cut back into the span itself (the caret may sit one column past
	// the last glyph, as with an unexpected end of line).
	floor := int(adjStart)
	if adjEnd != 0 {
		floor = int(adjEnd)
	}
	cut := len(runes)
	for cut > floor && isTrailingSpace(runes[cut-1]) {
		cut--
	}
	return string(runes[:cut]), adjStart, adjEnd
}

func isTrailingSpace(r rune) bool {
	return r == ' ' || r == '\t'
}
