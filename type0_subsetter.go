package cidfont

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// Subsetter builds a font containing only the glyphs of the given code points. It returns the new font file.
type Subsetter interface {
	Subset(b []byte, index int, codes []rune) ([]byte, error)
}

// GlyfSubsetter subsets TrueType fonts with glyf outlines. Composite glyphs keep their components, all tables that are indexed by glyph ID and not required for embedding are dropped.
type GlyfSubsetter struct {
	Tables []string
}

// Subset returns the subset font of the code points. Glyph 0 (.notdef) is always included and the new cmap maps every code point.
func (s GlyfSubsetter) Subset(b []byte, index int, codes []rune) ([]byte, error) {
	sfnt, err := ParseSFNT(b, index)
	if err != nil {
		return nil, err
	}
	subtable, err := sfnt.Cmap.Unicode()
	if err != nil {
		return nil, err
	}

	glyphs := bitset.New(uint(sfnt.NumGlyphs()))
	for _, r := range codes {
		glyphID, ok := subtable.Get(r)
		if !ok || glyphID == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoUnicodeGlyph, codePoint(r))
		}
		glyphs.Set(uint(glyphID))
	}

	glyphIDs := make([]uint16, 0, glyphs.Count()+1)
	glyphIDs = append(glyphIDs, 0)
	for i, ok := glyphs.NextSet(1); ok; i, ok = glyphs.NextSet(i + 1) {
		glyphIDs = append(glyphIDs, uint16(i))
	}

	tables := s.Tables
	if tables == nil {
		tables = KeepPDFTables
	}
	subset, err := sfnt.Subset(glyphIDs, SubsetOptions{
		Tables: tables,
		Runes:  codes,
	})
	if err != nil {
		return nil, err
	}
	return subset.Write(), nil
}
