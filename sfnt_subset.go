package cidfont

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/tdewolff/parse/v2"
)

// Table selections for SubsetOptions.
var (
	KeepAllTables = []string{"all"}
	KeepMinTables = []string{"min"}
	KeepPDFTables = []string{"pdf"}
)

// SubsetOptions specifies which tables to keep and which runes the new cmap table maps.
type SubsetOptions struct {
	Tables []string

	// Runes are written to the cmap table when their glyph is part of the subset. Runes that share a glyph each keep their mapping.
	Runes []rune
}

func (sfnt *SFNT) subsetTables(tables []string) []string {
	var tags []string
	if len(tables) == 1 && tables[0] == "min" {
		tags = []string{"cmap", "glyf", "head", "hhea", "hmtx", "loca", "maxp", "name", "OS/2", "post"}
	} else if len(tables) == 1 && tables[0] == "pdf" {
		// cmap, name and post are not required for embedded fonts, but are kept so the subset can be parsed again
		tags = []string{"cmap", "glyf", "head", "hhea", "hmtx", "loca", "maxp", "name", "post"}
		for _, tag := range []string{"cvt ", "fpgm", "OS/2", "prep"} {
			if _, ok := sfnt.Tables[tag]; ok {
				tags = append(tags, tag)
			}
		}
	} else if len(tables) == 1 && tables[0] == "all" {
		for tag := range sfnt.Tables {
			tags = append(tags, tag)
		}
	} else {
		tags = append(tags, tables...)
	}

	i := 0
	for _, tag := range tags {
		if _, ok := sfnt.Tables[tag]; ok {
			tags[i] = tag
			i++
		}
	}
	tags = tags[:i]
	sort.Strings(tags) // so that glyf is before loca
	return tags
}

// Subset trims an SFNT font to contain only the passed glyphIDs, thereby resulting in a significant size reduction. The glyphIDs will appear in the specified order in the file and their dependencies are added to the end. The first glyph ID should be 0 (.notdef).
func (sfnt *SFNT) Subset(glyphIDs []uint16, options SubsetOptions) (*SFNT, error) {
	if len(glyphIDs) == 0 || glyphIDs[0] != 0 {
		glyphIDs = append([]uint16{0}, glyphIDs...)
	} else {
		glyphIDs = append([]uint16{}, glyphIDs...)
	}

	// set up glyph mapping from original to subset
	glyphMap := make(map[uint16]uint16, len(glyphIDs))
	for subsetGlyphID, glyphID := range glyphIDs {
		if sfnt.Maxp.NumGlyphs <= glyphID {
			return nil, fmt.Errorf("glyf: bad glyphID %v", glyphID)
		} else if _, ok := glyphMap[glyphID]; ok {
			return nil, fmt.Errorf("glyf: duplicate glyphID %v", glyphID)
		}
		glyphMap[glyphID] = uint16(subsetGlyphID)
	}

	// add dependencies for composite glyphs add the end
	origLen := len(glyphIDs)
	for i := 0; i < origLen; i++ {
		deps, err := sfnt.Glyf.Dependencies(glyphIDs[i])
		if err != nil {
			return nil, err
		}
		for _, glyphID := range deps[1:] {
			if _, ok := glyphMap[glyphID]; !ok {
				glyphMap[glyphID] = uint16(len(glyphIDs))
				glyphIDs = append(glyphIDs, glyphID)
			}
		}
	}
	if math.MaxUint16 < len(glyphIDs) {
		return nil, fmt.Errorf("maxp: too many glyphs")
	}

	tags := sfnt.subsetTables(options.Tables)

	// preliminary calculations
	indexToLocFormat := int16(1)                   // for head and loca
	glyfOffsets := make([]uint32, len(glyphIDs)+1) // for loca
	numberOfHMetrics := uint16(len(glyphIDs))      // for hhea and hmtx
	if 1 < numberOfHMetrics {
		advance := sfnt.Hmtx.Advance(glyphIDs[numberOfHMetrics-1])
		for 1 < numberOfHMetrics {
			if sfnt.Hmtx.Advance(glyphIDs[numberOfHMetrics-2]) != advance {
				break
			}
			numberOfHMetrics--
		}
	}

	// copy to new SFNT
	sfntOld := sfnt
	sfnt = &SFNT{
		Version: sfntOld.Version,
		Tables:  map[string][]byte{},
	}

	// copy and rewrite tables
	for _, tag := range tags {
		table := sfntOld.Tables[tag]
		switch tag {
		case "cmap":
			subtable, err := sfntOld.Cmap.Unicode()
			if err != nil {
				return nil, err
			}
			rs := make([]rune, 0, len(options.Runes))
			runeMap := make(map[rune]uint16, len(options.Runes))
			for _, r := range options.Runes {
				if _, ok := runeMap[r]; ok {
					continue
				} else if glyphID, ok := subtable.Get(r); ok && glyphID != 0 {
					if subsetGlyphID, ok := glyphMap[glyphID]; ok {
						rs = append(rs, r)
						runeMap[r] = subsetGlyphID
					}
				}
			}
			sfnt.Tables[tag] = cmapWrite(rs, runeMap)
		case "glyf":
			w := parse.NewBinaryWriter([]byte{})
			for i, glyphID := range glyphIDs {
				// update glyphIDs for composite glyphs, make sure not to write to b
				b := sfntOld.Glyf.Get(glyphID)
				start := w.Len()
				w.WriteBytes(b)
				if 10 <= len(b) && int16(binary.BigEndian.Uint16(b)) < 0 {
					buf := w.Bytes()
					offset := uint32(10)
					for offset+4 <= uint32(len(b)) {
						flags := binary.BigEndian.Uint16(b[offset:])
						subGlyphID := binary.BigEndian.Uint16(b[offset+2:])
						binary.BigEndian.PutUint16(buf[start+offset+2:], glyphMap[subGlyphID])

						length, more := glyfCompositeLength(flags)
						if !more {
							break
						}
						offset += length
					}
				}
				if len(b)%2 == 1 {
					// padding to ensure glyph offsets are on even bytes for loca short format
					w.WriteByte(0)
				}
				glyfOffsets[i+1] = w.Len()
			}
			if w.Len() <= 2*math.MaxUint16 {
				indexToLocFormat = 0 // short format
			}
			sfnt.Tables[tag] = w.Bytes()
		case "head":
			w := parse.NewBinaryWriter(make([]byte, 0, len(table)))
			w.WriteBytes(table[:50])
			w.WriteInt16(indexToLocFormat) // indexToLocFormat
			w.WriteBytes(table[52:])
			sfnt.Tables[tag] = w.Bytes()
		case "hhea":
			w := parse.NewBinaryWriter(make([]byte, 0, len(table)))
			w.WriteBytes(table[:34])
			w.WriteUint16(numberOfHMetrics) // numberOfHMetrics
			w.WriteBytes(table[36:])
			sfnt.Tables[tag] = w.Bytes()
		case "hmtx":
			n := 4*int(numberOfHMetrics) + 2*(len(glyphIDs)-int(numberOfHMetrics))
			w := parse.NewBinaryWriter(make([]byte, 0, n))
			for subsetGlyphID, glyphID := range glyphIDs {
				if subsetGlyphID < int(numberOfHMetrics) {
					w.WriteUint16(sfntOld.Hmtx.Advance(glyphID))
				}
				w.WriteInt16(sfntOld.Hmtx.LeftSideBearing(glyphID))
			}
			sfnt.Tables[tag] = w.Bytes()
		case "loca":
			// glyf is always processed before loca
			var w *parse.BinaryWriter
			if indexToLocFormat == 0 {
				// short format
				w = parse.NewBinaryWriter(make([]byte, 0, 2*len(glyfOffsets)))
				for _, offset := range glyfOffsets {
					w.WriteUint16(uint16(offset / 2))
				}
			} else {
				// long format
				w = parse.NewBinaryWriter(make([]byte, 0, 4*len(glyfOffsets)))
				for _, offset := range glyfOffsets {
					w.WriteUint32(offset)
				}
			}
			sfnt.Tables[tag] = w.Bytes()
		case "maxp":
			w := parse.NewBinaryWriter(make([]byte, 0, len(table)))
			w.WriteBytes(table[:4])
			w.WriteUint16(uint16(len(glyphIDs))) // numGlyphs
			w.WriteBytes(table[6:])
			sfnt.Tables[tag] = w.Bytes()
		case "name":
			w := parse.NewBinaryWriter(make([]byte, 0, 6))
			w.WriteUint16(0) // version
			w.WriteUint16(0) // count
			w.WriteUint16(6) // storageOffset
			sfnt.Tables[tag] = w.Bytes()
		case "post":
			w := parse.NewBinaryWriter(make([]byte, 0, 32))
			w.WriteUint32(0x00030000) // version
			w.WriteBytes(table[4:32])
			sfnt.Tables[tag] = w.Bytes()
		case "hdmx", "kern", "LTSH", "VDMX", "vhea", "vmtx", "GDEF", "GPOS", "GSUB":
			// indexed by glyph ID and not rewritten
		default:
			sfnt.Tables[tag] = table
		}
	}

	// parse the written tables to populate the table structures
	return ParseSFNT(sfnt.Write(), 0)
}
