package diagfmt

import (
	"fmt"
	"unicode/utf8"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
)

// Display columns are counted in Unicode codepoints, not bytes and not
// terminal cells: one emoji or one accented grapheme occupies exactly
// one column of the snippet box, matching the frontend tokenizer's
// column contract. Lines are NFC-normalized first so a combining
// sequence collapses into a single codepoint.

// NormalizeLine returns the display form of a raw source line.
func NormalizeLine(s string) string {
	return norm.NFC.String(s)
}

// DisplayWidth returns the number of display columns of s.
func DisplayWidth(s string) uint32 {
	n, err := safecast.Conv[uint32](utf8.RuneCountInString(s))
	if err != nil {
		panic(fmt.Errorf("display width overflow: %w", err))
	}
	return n
}

// DisplayColumn maps a byte offset within line to a 1-based display
// column. Offsets beyond the line clamp to one column past its end.
func DisplayColumn(line string, byteOffset int) uint32 {
	if byteOffset < 0 {
		byteOffset = 0
	}
	if byteOffset > len(line) {
		byteOffset = len(line)
	}
	return DisplayWidth(line[:byteOffset]) + 1
}

// DescribeRune formats a codepoint for embedding in message text, e.g.
// "U+1F60E". Messages name non-ASCII codepoints by hex value while the
// snippet box still renders the glyph itself under the caret; the two
// concerns are independent.
func DescribeRune(r rune) string {
	return fmt.Sprintf("U+%04X", r)
}
