package cidfont

import (
	"encoding/binary"
	"fmt"
)

// ErrInvalidFontData is returned if the font is malformed.
var ErrInvalidFontData = fmt.Errorf("invalid font data")

// ErrInvalidFontIndex is returned when the font index is outside the range of the font collection.
var ErrInvalidFontIndex = fmt.Errorf("invalid font index")

// ErrEmbeddingNotPermitted is returned when the OS/2 fsType flags forbid embedding the font.
var ErrEmbeddingNotPermitted = fmt.Errorf("font is not permitted embedding")

// ErrMissingUnicodeCmap is returned when a font has no Unicode cmap subtable.
var ErrMissingUnicodeCmap = fmt.Errorf("missing Unicode cmap subtable")

// ErrNoUnicodeGlyph is returned when a used code point has no glyph in a Unicode cmap subtable.
var ErrNoUnicodeGlyph = fmt.Errorf("no glyph for code point")

// ErrSubsetBuildFailed is returned when the subsetting engine fails. The engine's error is wrapped as well.
var ErrSubsetBuildFailed = fmt.Errorf("subset build failed")

// ErrGIDOverflow is returned when a CIDToGIDMap cannot represent the glyph IDs.
var ErrGIDOverflow = fmt.Errorf("glyph ID overflow")

func calcChecksum(b []byte) uint32 {
	if len(b)%4 != 0 {
		panic("data not multiple of four bytes")
	}
	var sum uint32
	for i := 0; i < len(b); i += 4 {
		sum += binary.BigEndian.Uint32(b[i : i+4])
	}
	return sum
}

// Uint16ToFlags converts a uint16 in 16 booleans from least to most significant.
func Uint16ToFlags(v uint16) (flags [16]bool) {
	for i := 0; i < 16; i++ {
		flags[i] = v&(1<<i) != 0
	}
	return
}

func codePoint(r rune) string {
	return fmt.Sprintf("U+%04X", r)
}
