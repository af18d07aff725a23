package cidfont

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// GlyphMapper maps a Unicode code point to a glyph ID. It returns false when the code point has no glyph.
type GlyphMapper interface {
	GlyphID(r rune) (int, bool)
}

type cmapGlyphMapper struct {
	subtable cmapSubtable
}

// GlyphID returns false for unmapped code points and for code points mapped to .notdef.
func (m cmapGlyphMapper) GlyphID(r rune) (int, bool) {
	glyphID, ok := m.subtable.Get(r)
	return int(glyphID), ok && glyphID != 0
}

// UnicodeMapper returns the preferred Unicode cmap subtable of the font as a GlyphMapper.
func (sfnt *SFNT) UnicodeMapper() (GlyphMapper, error) {
	subtable, err := sfnt.Cmap.Unicode()
	if err != nil {
		return nil, err
	}
	return cmapGlyphMapper{subtable}, nil
}

// CharMapping is the CID and subset glyph ID of a code point.
type CharMapping struct {
	Code rune
	CID  int
	GID  int
}

// Mapping relates used code points, CIDs and glyph IDs of the subset font.
type Mapping struct {
	Chars    []CharMapping // ascending by code point
	CIDToGID map[int]int
	GIDToCID map[int]int
	GIDs     []int // ascending
	MaxCID   int   // -1 if empty
}

// reconcile computes the CID of each code point through the original font and its glyph ID through the subset font. Both lookups must succeed. When two code points have the same CID, the mapping of the larger code point is kept.
func reconcile(codes []rune, original, subset GlyphMapper, numbering CIDNumbering) (*Mapping, error) {
	m := &Mapping{
		Chars:    make([]CharMapping, 0, len(codes)),
		CIDToGID: make(map[int]int, len(codes)),
		GIDToCID: make(map[int]int, len(codes)),
		MaxCID:   -1,
	}

	gids := &bitset.BitSet{}
	for _, r := range codes {
		glyphID, ok := original.GlyphID(r)
		if !ok {
			return nil, fmt.Errorf("%w: %s in original font", ErrNoUnicodeGlyph, codePoint(r))
		}
		cid, ok := numbering.CID(r, glyphID)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no CID in %v", ErrNoUnicodeGlyph, codePoint(r), numbering.SystemInfo())
		}
		gid, ok := subset.GlyphID(r)
		if !ok {
			return nil, fmt.Errorf("%w: %s in subset font", ErrNoUnicodeGlyph, codePoint(r))
		} else if gid < 0 {
			return nil, fmt.Errorf("%w: negative glyph ID %d for %s", ErrGIDOverflow, gid, codePoint(r))
		}

		m.Chars = append(m.Chars, CharMapping{r, cid, gid})
		m.CIDToGID[cid] = gid
		m.GIDToCID[gid] = cid
		gids.Set(uint(gid))
		if m.MaxCID < cid {
			m.MaxCID = cid
		}
	}

	m.GIDs = make([]int, 0, gids.Count())
	for i, ok := gids.NextSet(0); ok; i, ok = gids.NextSet(i + 1) {
		m.GIDs = append(m.GIDs, int(i))
	}
	return m, nil
}
