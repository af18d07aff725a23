package cidfont

import (
	"encoding/binary"
	"math"
	"sort"
	"unicode/utf16"

	"github.com/tdewolff/parse/v2"
)

// testGlyph is a glyph of a generated test font. Glyphs without bounds and components are empty.
type testGlyph struct {
	Advance    uint16
	Bounds     [4]int16
	Components []uint16
}

// testFont generates small TrueType fonts with known tables.
type testFont struct {
	UnitsPerEm       uint16
	Glyphs           []testGlyph
	NumberOfHMetrics uint16 // all glyphs when zero
	Cmap             map[rune]uint16
	CmapEncodings    [][2]uint16 // (3,1) and (0,3) when empty
	CmapFormat12     bool

	Name        string
	MacStyle    uint16
	ItalicAngle int32 // 16.16 fixed
	FixedPitch  bool

	NoOS2       bool
	OS2Version  uint16
	FsType      uint16
	FamilyClass int16
	WeightClass uint16
	WidthClass  uint16
	XHeight     int16
	CapHeight   int16
}

func newTestFont() *testFont {
	return &testFont{
		UnitsPerEm: 2048,
		Glyphs: []testGlyph{
			{Advance: 1024, Bounds: [4]int16{100, 0, 924, 1400}},                            // .notdef
			{Advance: 512},                                                                 // space
			{Advance: 1366, Bounds: [4]int16{0, 0, 1366, 1400}},                             // A
			{Advance: 1300, Bounds: [4]int16{150, 0, 1200, 1400}},                           // H
			{Advance: 1000, Bounds: [4]int16{20, 0, 980, 1000}},                             // x
			{Advance: 600, Bounds: [4]int16{50, 1500, 350, 1700}},                           // acute
			{Advance: 1366, Bounds: [4]int16{0, 0, 1366, 1700}, Components: []uint16{2, 5}}, // Aacute
			{Advance: 2048, Bounds: [4]int16{0, -200, 2048, 1800}},                          // emoji
		},
		Cmap: map[rune]uint16{
			' ':      1,
			'A':      2,
			'H':      3,
			'x':      4,
			'\u00B4': 5,
			'\u00C1': 6,
		},
		Name:        "Test-Regular",
		OS2Version:  4,
		WeightClass: 400,
		WidthClass:  5,
		FamilyClass: 8 << 8,
		XHeight:     1000,
		CapHeight:   1400,
	}
}

func (f *testFont) bytes() []byte {
	return f.sfnt().Write()
}

func (f *testFont) sfnt() *SFNT {
	tables := map[string][]byte{
		"cmap": f.cmap(),
		"head": f.head(),
		"hhea": f.hhea(),
		"hmtx": f.hmtx(),
		"maxp": f.maxp(),
		"name": f.name(),
		"post": f.post(),
	}
	tables["glyf"], tables["loca"] = f.glyfLoca()
	if !f.NoOS2 {
		tables["OS/2"] = f.os2()
	}
	return &SFNT{Tables: tables}
}

func (f *testFont) head() []byte {
	xMin, yMin, xMax, yMax := int16(math.MaxInt16), int16(math.MaxInt16), int16(math.MinInt16), int16(math.MinInt16)
	for _, glyph := range f.Glyphs {
		if glyph.Bounds == [4]int16{} {
			continue
		}
		xMin, yMin = min(xMin, glyph.Bounds[0]), min(yMin, glyph.Bounds[1])
		xMax, yMax = max(xMax, glyph.Bounds[2]), max(yMax, glyph.Bounds[3])
	}

	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint16(1)          // majorVersion
	w.WriteUint16(0)          // minorVersion
	w.WriteUint32(0x00010000) // fontRevision
	w.WriteUint32(0)          // checksumAdjustment
	w.WriteUint32(0x5F0F3CF5) // magicNumber
	w.WriteUint16(0)          // flags
	w.WriteUint16(f.UnitsPerEm)
	w.WriteBytes(make([]byte, 16)) // created and modified
	w.WriteInt16(xMin)
	w.WriteInt16(yMin)
	w.WriteInt16(xMax)
	w.WriteInt16(yMax)
	w.WriteUint16(f.MacStyle)
	w.WriteUint16(8) // lowestRecPPEM
	w.WriteInt16(2)  // fontDirectionHint
	w.WriteInt16(1)  // indexToLocFormat
	w.WriteInt16(0)  // glyphDataFormat
	return w.Bytes()
}

func (f *testFont) numberOfHMetrics() uint16 {
	if f.NumberOfHMetrics == 0 {
		return uint16(len(f.Glyphs))
	}
	return f.NumberOfHMetrics
}

func (f *testFont) hhea() []byte {
	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint32(0x00010000) // version
	w.WriteInt16(1900)        // ascender
	w.WriteInt16(-500)        // descender
	w.WriteInt16(0)           // lineGap
	w.WriteUint16(2048)       // advanceWidthMax
	w.WriteBytes(make([]byte, 20))
	w.WriteInt16(0) // metricDataFormat
	w.WriteUint16(f.numberOfHMetrics())
	return w.Bytes()
}

func (f *testFont) hmtx() []byte {
	w := parse.NewBinaryWriter([]byte{})
	for i, glyph := range f.Glyphs {
		if i < int(f.numberOfHMetrics()) {
			w.WriteUint16(glyph.Advance)
		}
		w.WriteInt16(glyph.Bounds[0])
	}
	return w.Bytes()
}

func (f *testFont) maxp() []byte {
	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint32(0x00010000) // version
	w.WriteUint16(uint16(len(f.Glyphs)))
	w.WriteBytes(make([]byte, 22))
	w.WriteUint16(2) // maxComponentElements
	w.WriteUint16(1) // maxComponentDepth
	return w.Bytes()
}

func (f *testFont) cmap() []byte {
	rs := make([]rune, 0, len(f.Cmap))
	for r := range f.Cmap {
		rs = append(rs, r)
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i] < rs[j] })

	encodings := f.CmapEncodings
	if len(encodings) == 0 {
		encodings = [][2]uint16{{0, 3}, {3, 1}}
	}
	offset := uint32(4 + 8*len(encodings))

	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint16(0) // version
	w.WriteUint16(uint16(len(encodings)))
	for _, encoding := range encodings {
		w.WriteUint16(encoding[0])
		w.WriteUint16(encoding[1])
		w.WriteUint32(offset)
	}
	if f.CmapFormat12 {
		cmapWriteFormat12(w, rs, f.Cmap)
	} else {
		cmapWriteFormat4(w, rs, f.Cmap)
	}
	return w.Bytes()
}

func (f *testFont) name() []byte {
	value := utf16.Encode([]rune(f.Name))

	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint16(0)  // version
	w.WriteUint16(1)  // count
	w.WriteUint16(18) // storageOffset
	w.WriteUint16(uint16(PlatformWindows))
	w.WriteUint16(uint16(EncodingWindowsUnicodeBMP))
	w.WriteUint16(0x0409) // languageID
	w.WriteUint16(uint16(NamePostScript))
	w.WriteUint16(uint16(2 * len(value))) // length
	w.WriteUint16(0)                      // offset
	for _, c := range value {
		w.WriteUint16(c)
	}
	return w.Bytes()
}

func (f *testFont) post() []byte {
	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint32(0x00030000) // version
	w.WriteUint32(uint32(f.ItalicAngle))
	w.WriteInt16(-100) // underlinePosition
	w.WriteInt16(50)   // underlineThickness
	if f.FixedPitch {
		w.WriteUint32(1)
	} else {
		w.WriteUint32(0)
	}
	w.WriteBytes(make([]byte, 16))
	return w.Bytes()
}

func (f *testFont) os2() []byte {
	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint16(f.OS2Version)
	w.WriteInt16(1000) // xAvgCharWidth
	w.WriteUint16(f.WeightClass)
	w.WriteUint16(f.WidthClass)
	w.WriteUint16(f.FsType)
	w.WriteBytes(make([]byte, 20))
	w.WriteInt16(f.FamilyClass)
	w.WriteBytes(make([]byte, 30)) // panose, ulUnicodeRange and achVendID
	w.WriteUint16(0x0040)          // fsSelection
	w.WriteUint16(0x0020)          // usFirstCharIndex
	w.WriteUint16(0x00C1)          // usLastCharIndex
	w.WriteInt16(1900)             // sTypoAscender
	w.WriteInt16(-500)             // sTypoDescender
	w.WriteInt16(0)                // sTypoLineGap
	w.WriteUint16(1900)            // usWinAscent
	w.WriteUint16(500)             // usWinDescent
	if f.OS2Version == 0 {
		return w.Bytes()
	}
	w.WriteUint32(1) // ulCodePageRange1
	w.WriteUint32(0) // ulCodePageRange2
	if f.OS2Version == 1 {
		return w.Bytes()
	}
	w.WriteInt16(f.XHeight)
	w.WriteInt16(f.CapHeight)
	w.WriteUint16(0)  // usDefaultChar
	w.WriteUint16(32) // usBreakChar
	w.WriteUint16(2)  // usMaxContext
	return w.Bytes()
}

// glyfLoca writes simple glyphs as a single point and composite glyphs with word offsets.
func (f *testFont) glyfLoca() ([]byte, []byte) {
	glyf := parse.NewBinaryWriter([]byte{})
	loca := parse.NewBinaryWriter([]byte{})
	for _, glyph := range f.Glyphs {
		loca.WriteUint32(glyf.Len())
		if glyph.Bounds == [4]int16{} && len(glyph.Components) == 0 {
			continue
		}

		if len(glyph.Components) == 0 {
			glyf.WriteInt16(1) // numberOfContours
		} else {
			glyf.WriteInt16(-1)
		}
		for _, v := range glyph.Bounds {
			glyf.WriteInt16(v)
		}
		if len(glyph.Components) == 0 {
			glyf.WriteUint16(0)    // endPtsOfContours
			glyf.WriteUint16(0)    // instructionLength
			glyf.WriteByte(0x01)   // flags: on curve
			glyf.WriteInt16(glyph.Bounds[0])
			glyf.WriteInt16(glyph.Bounds[1])
			glyf.WriteByte(0) // padding
		} else {
			for i, component := range glyph.Components {
				flags := uint16(0x0001 | 0x0002) // ARG_1_AND_2_ARE_WORDS, ARGS_ARE_XY_VALUES
				if i+1 < len(glyph.Components) {
					flags |= 0x0020 // MORE_COMPONENTS
				}
				glyf.WriteUint16(flags)
				glyf.WriteUint16(component)
				glyf.WriteInt16(0)
				glyf.WriteInt16(0)
			}
		}
	}
	loca.WriteUint32(glyf.Len())
	return glyf.Bytes(), loca.Bytes()
}

// testCollection wraps fonts in a TrueType collection.
func testCollection(fonts ...[]byte) []byte {
	w := parse.NewBinaryWriter([]byte{})
	w.WriteBytes([]byte("ttcf"))
	w.WriteUint16(1) // majorVersion
	w.WriteUint16(0) // minorVersion
	w.WriteUint32(uint32(len(fonts)))
	offset := uint32(12 + 4*len(fonts))
	for _, b := range fonts {
		w.WriteUint32(offset)
		offset += uint32(len(b))
	}
	b := w.Bytes()
	for _, font := range fonts {
		// table offsets are relative to the start of the collection
		font = append([]byte{}, font...)
		numTables := binary.BigEndian.Uint16(font[4:])
		for i := 0; i < int(numTables); i++ {
			pos := 12 + 16*i + 8
			binary.BigEndian.PutUint32(font[pos:], binary.BigEndian.Uint32(font[pos:])+uint32(len(b)))
		}
		b = append(b, font...)
	}
	return b
}
