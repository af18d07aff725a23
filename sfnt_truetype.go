package cidfont

import (
	"encoding/binary"
	"fmt"

	"github.com/tdewolff/parse/v2"
)

// MaxComponentDepth is the maximum nesting of composite glyphs that will be followed.
const MaxComponentDepth = 8

type glyfTable struct {
	data []byte
	loca *locaTable
}

// Get returns the glyph data corresponding to the passed glyphID. It returns nil if the glyph doesn't exist.
func (glyf *glyfTable) Get(glyphID uint16) []byte {
	start, ok1 := glyf.loca.Get(glyphID)
	end, ok2 := glyf.loca.Get(glyphID + 1)
	if !ok1 || !ok2 || end < start || uint32(len(glyf.data)) < end {
		return nil
	}
	return glyf.data[start:end]
}

// IsComposite returns true if the glyph is a composite glyph
func (glyf *glyfTable) IsComposite(glyphID uint16) bool {
	b := glyf.Get(glyphID)
	if len(b) < 1 {
		return false
	}
	return b[0]&0x80 != 0 // sign bit is set on numberOfContours
}

// Bounds returns the bounding box (xMin, yMin, xMax, yMax) from the glyph header. Empty glyphs have a zero bounding box.
func (glyf *glyfTable) Bounds(glyphID uint16) (int16, int16, int16, int16, error) {
	b := glyf.Get(glyphID)
	if b == nil {
		return 0, 0, 0, 0, fmt.Errorf("glyf: bad glyphID %v", glyphID)
	} else if len(b) == 0 {
		return 0, 0, 0, 0, nil
	} else if len(b) < 10 {
		return 0, 0, 0, 0, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
	}
	r := parse.NewBinaryReader(b)
	_ = r.ReadInt16() // numberOfContours
	return r.ReadInt16(), r.ReadInt16(), r.ReadInt16(), r.ReadInt16(), nil
}

// Dependencies returns the glyph ID followed by all the glyph IDs that a composite glyph uses, recursively.
func (glyf *glyfTable) Dependencies(glyphID uint16) ([]uint16, error) {
	return glyf.dependencies(glyphID, 0)
}

func (glyf *glyfTable) dependencies(glyphID uint16, level int) ([]uint16, error) {
	deps := []uint16{glyphID}
	b := glyf.Get(glyphID)
	if b == nil {
		return nil, fmt.Errorf("glyf: bad glyphID %v", glyphID)
	} else if len(b) == 0 {
		return deps, nil
	}
	r := parse.NewBinaryReader(b)
	if r.Len() < 10 {
		return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
	}
	numberOfContours := r.ReadInt16()
	_ = r.ReadBytes(8)
	if 0 <= numberOfContours {
		return deps, nil
	} else if MaxComponentDepth <= level {
		return nil, fmt.Errorf("glyf: compound glyphs too deeply nested")
	}

	// composite glyph
	for {
		if r.Len() < 4 {
			return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
		}

		flags := r.ReadUint16()
		subGlyphID := r.ReadUint16()
		subDeps, err := glyf.dependencies(subGlyphID, level+1)
		if err != nil {
			return nil, err
		}
		deps = append(deps, subDeps...)

		length, more := glyfCompositeLength(flags)
		if r.Len() < length-4 {
			return nil, fmt.Errorf("glyf: bad table for glyphID %v", glyphID)
		}
		_ = r.ReadBytes(length - 4)
		if !more {
			break
		}
	}
	return deps, nil
}

// glyfCompositeLength returns the length of a component record including flags and glyphIndex, and whether more components follow.
func glyfCompositeLength(flags uint16) (length uint32, more bool) {
	length = 4 + 2
	if flags&0x0001 != 0 { // ARG_1_AND_2_ARE_WORDS
		length += 2
	}
	if flags&0x0008 != 0 { // WE_HAVE_A_SCALE
		length += 2
	} else if flags&0x0040 != 0 { // WE_HAVE_AN_X_AND_Y_SCALE
		length += 4
	} else if flags&0x0080 != 0 { // WE_HAVE_A_TWO_BY_TWO
		length += 8
	}
	more = flags&0x0020 != 0 // MORE_COMPONENTS
	return
}

func (sfnt *SFNT) parseGlyf() error {
	if sfnt.Loca == nil {
		return fmt.Errorf("glyf: missing loca table")
	} else if sfnt.Maxp == nil {
		return fmt.Errorf("glyf: missing maxp table")
	}

	b, ok := sfnt.Tables["glyf"]
	if !ok {
		return fmt.Errorf("glyf: missing table")
	} else if length, _ := sfnt.Loca.Get(sfnt.Maxp.NumGlyphs); uint32(len(b)) < length {
		return fmt.Errorf("glyf: bad table")
	}

	sfnt.Glyf = &glyfTable{
		data: b,
		loca: sfnt.Loca,
	}
	return nil
}

////////////////////////////////////////////////////////////////

type locaTable struct {
	Format int16
	data   []byte
}

func (loca *locaTable) Get(glyphID uint16) (uint32, bool) {
	if loca.Format == 0 && int(glyphID)*2+2 <= len(loca.data) {
		return 2 * uint32(binary.BigEndian.Uint16(loca.data[int(glyphID)*2:])), true
	} else if loca.Format == 1 && int(glyphID)*4+4 <= len(loca.data) {
		return binary.BigEndian.Uint32(loca.data[int(glyphID)*4:]), true
	}
	return 0, false
}

func (sfnt *SFNT) parseLoca() error {
	if sfnt.Head == nil {
		return fmt.Errorf("loca: missing head table")
	} else if sfnt.Maxp == nil {
		return fmt.Errorf("loca: missing maxp table")
	}

	b, ok := sfnt.Tables["loca"]
	if !ok {
		return fmt.Errorf("loca: missing table")
	}

	n := uint32(sfnt.Maxp.NumGlyphs) + 1
	if sfnt.Head.IndexToLocFormat == 0 && uint32(len(b)) < 2*n || sfnt.Head.IndexToLocFormat == 1 && uint32(len(b)) < 4*n {
		return fmt.Errorf("loca: bad table")
	}
	sfnt.Loca = &locaTable{
		Format: sfnt.Head.IndexToLocFormat,
		data:   b,
	}
	return nil
}
