package cidfont

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/tdewolff/parse/v2"
)

// unicodeEncodings is the order of preference for Unicode cmap subtables.
var unicodeEncodings = []struct {
	PlatformID
	EncodingID
}{
	{PlatformUnicode, EncodingUnicode2Full},
	{PlatformWindows, EncodingWindowsUnicodeFull},
	{PlatformUnicode, EncodingUnicode2BMP},
	{PlatformWindows, EncodingWindowsUnicodeBMP},
}

type cmapFormat0 struct {
	GlyphIdArray [256]uint8
}

func (subtable *cmapFormat0) Get(r rune) (uint16, bool) {
	if r < 0 || 256 <= r {
		return 0, false
	}
	return uint16(subtable.GlyphIdArray[r]), true
}

type cmapFormat4 struct {
	StartCode     []uint16
	EndCode       []uint16
	IdDelta       []int16
	IdRangeOffset []uint16
	GlyphIdArray  []uint16
}

func (subtable *cmapFormat4) Get(r rune) (uint16, bool) {
	if r < 0 || 65536 <= r {
		return 0, false
	}
	n := len(subtable.StartCode)
	i := sort.Search(n, func(i int) bool { return uint16(r) <= subtable.EndCode[i] })
	if i == n || uint16(r) < subtable.StartCode[i] {
		return 0, false
	} else if subtable.IdRangeOffset[i] == 0 {
		// is modulo 65536 with the idDelta cast and addition overflow
		return uint16(subtable.IdDelta[i]) + uint16(r), true
	}
	// idRangeOffset/2  ->  offset value to index of words
	// r-startCode  ->  difference of rune with startCode
	// -(n-i)  ->  subtract offset from the current idRangeOffset item
	index := int(subtable.IdRangeOffset[i]/2) + int(uint16(r)-subtable.StartCode[i]) - (n - i)
	glyphID := subtable.GlyphIdArray[index] // index is always valid
	if glyphID == 0 {
		return 0, true
	}
	return glyphID + uint16(subtable.IdDelta[i]), true
}

type cmapFormat6 struct {
	FirstCode    uint16
	GlyphIdArray []uint16
}

func (subtable *cmapFormat6) Get(r rune) (uint16, bool) {
	if r < rune(subtable.FirstCode) || uint32(len(subtable.GlyphIdArray)) <= uint32(r)-uint32(subtable.FirstCode) {
		return 0, false
	}
	return subtable.GlyphIdArray[uint32(r)-uint32(subtable.FirstCode)], true
}

type cmapFormat12 struct {
	StartCharCode []uint32
	EndCharCode   []uint32
	StartGlyphID  []uint32
}

func (subtable *cmapFormat12) Get(r rune) (uint16, bool) {
	if r < 0 {
		return 0, false
	}
	n := len(subtable.StartCharCode)
	i := sort.Search(n, func(i int) bool { return uint32(r) <= subtable.EndCharCode[i] })
	if i == n || uint32(r) < subtable.StartCharCode[i] {
		return 0, false
	}
	return uint16((uint32(r) - subtable.StartCharCode[i]) + subtable.StartGlyphID[i]), true
}

// cmapUnsupported is a placeholder for subtables of formats that are not used for Unicode lookups (2, 8, 10, 13, 14).
type cmapUnsupported struct {
	Format uint16
}

func (subtable *cmapUnsupported) Get(r rune) (uint16, bool) {
	return 0, false
}

type cmapEncodingRecord struct {
	PlatformID PlatformID
	EncodingID EncodingID
	Format     uint16
	Subtable   uint16
}

type cmapSubtable interface {
	Get(rune) (uint16, bool)
}

type cmapTable struct {
	EncodingRecords []cmapEncodingRecord
	Subtables       []cmapSubtable
}

// Get returns the glyph ID for the corresponding rune. It looks for each subtable in the order in which they appear and returns the first match, or 0 when no match is found.
func (cmap *cmapTable) Get(r rune) uint16 {
	for _, subtable := range cmap.Subtables {
		if glyphID, ok := subtable.Get(r); ok && glyphID != 0 {
			return glyphID
		}
	}
	return 0
}

// Subtable returns the subtable for the given platform and encoding.
func (cmap *cmapTable) Subtable(platformID PlatformID, encodingID EncodingID) (cmapSubtable, uint16, bool) {
	for _, record := range cmap.EncodingRecords {
		if record.PlatformID == platformID && record.EncodingID == encodingID {
			if _, ok := cmap.Subtables[record.Subtable].(*cmapUnsupported); ok {
				continue
			}
			return cmap.Subtables[record.Subtable], record.Format, true
		}
	}
	return nil, 0, false
}

// Unicode returns the preferred Unicode subtable. It tries the full Unicode 2.0 subtable, then Windows UCS-4, then Unicode 2.0 BMP, and finally Windows Unicode BMP.
func (cmap *cmapTable) Unicode() (cmapSubtable, error) {
	subtable, _, err := cmap.unicode()
	return subtable, err
}

func (cmap *cmapTable) unicode() (cmapSubtable, cmapEncodingRecord, error) {
	for _, enc := range unicodeEncodings {
		if subtable, format, ok := cmap.Subtable(enc.PlatformID, enc.EncodingID); ok {
			return subtable, cmapEncodingRecord{
				PlatformID: enc.PlatformID,
				EncodingID: enc.EncodingID,
				Format:     format,
			}, nil
		}
	}
	return nil, cmapEncodingRecord{}, ErrMissingUnicodeCmap
}

// UnicodeEncoding returns the platform, encoding and format of the Unicode cmap subtable that is used for glyph lookups.
func (sfnt *SFNT) UnicodeEncoding() (PlatformID, EncodingID, uint16, error) {
	_, record, err := sfnt.Cmap.unicode()
	return record.PlatformID, record.EncodingID, record.Format, err
}

func cmapWriteFormat4(w *parse.BinaryWriter, rs []rune, runeMap map[rune]uint16) {
	data := cmapFormat4{}
	contiguousSegments := []bool{}
	addSegment := func(firstCode, lastCode rune, glyphIDs []uint16, contiguous bool) {
		data.EndCode = append(data.EndCode, uint16(lastCode))
		data.StartCode = append(data.StartCode, uint16(firstCode))
		contiguousSegments = append(contiguousSegments, contiguous)
		if contiguous {
			// use idDelta
			firstGlyph := glyphIDs[0]
			delta := int(firstGlyph) - int(firstCode)
			if math.MaxInt16 < delta {
				delta -= 65536
			} else if delta < math.MinInt16 {
				delta += 65536
			}
			data.IdDelta = append(data.IdDelta, int16(delta))
			data.IdRangeOffset = append(data.IdRangeOffset, 0)
		} else {
			// use idRangeOffset
			// set the value of IdRangeOffset to the offset in GlyphIdArray, updated below
			data.IdDelta = append(data.IdDelta, 0)
			data.IdRangeOffset = append(data.IdRangeOffset, uint16(len(data.GlyphIdArray)))
			data.GlyphIdArray = append(data.GlyphIdArray, glyphIDs...)
		}
	}

	if 0 < len(rs) {
		i0 := 0
		glyphIDs := []uint16{runeMap[rs[0]]}
		for i := 1; i <= len(rs); i++ {
			if i == len(rs) || rs[i-1]+1 != rs[i] {
				// Find stretches of at least 9 contiguous glyph IDs that are worth a separate
				// idDelta segment. Glyph IDs before j0 are written, glyph IDs before jc are
				// not contiguous.
				j0, jc := 0, 0
				for j := 1; j <= len(glyphIDs); j++ {
					if j == len(glyphIDs) || glyphIDs[j-1]+1 != glyphIDs[j] && 8 < j-jc {
						if 8 < j-jc && j0 != jc {
							addSegment(rs[i0+j0], rs[i0+(jc-1)], glyphIDs[j0:jc], false)
							addSegment(rs[i0+jc], rs[i0+(j-1)], glyphIDs[jc:j], true)
							j0, jc = j, j
						} else if j == len(glyphIDs) {
							addSegment(rs[i0+j0], rs[i0+(j-1)], glyphIDs[j0:j], j0 == jc)
						}
						if j == len(glyphIDs) {
							break
						}
					} else if glyphIDs[j-1]+1 != glyphIDs[j] {
						jc = j
					}
				}
				if i == len(rs) {
					break
				}
				glyphIDs = glyphIDs[:0]
				i0 = i
			}
			glyphIDs = append(glyphIDs, runeMap[rs[i]])
		}
	}
	if len(rs) == 0 || rs[len(rs)-1] != 0xFFFF {
		addSegment(0xFFFF, 0xFFFF, []uint16{0}, true) // map to .notdef
	}

	start := w.Len()
	w.WriteUint16(4) // format
	w.WriteUint16(0) // length (set later)
	w.WriteUint16(0) // language

	segCount := uint16(len(data.StartCode))
	searchRange := uint16(math.Exp2(math.Floor(math.Log2(float64(segCount)))))
	entrySelector := uint16(math.Log2(float64(searchRange)))
	w.WriteUint16(segCount * 2)                 // segCountX2
	w.WriteUint16(searchRange * 2)              // searchRange
	w.WriteUint16(entrySelector)                // entrySelector
	w.WriteUint16((segCount - searchRange) * 2) // rangeShift

	for _, endCode := range data.EndCode {
		w.WriteUint16(endCode)
	}
	w.WriteUint16(0) // reservedPad
	for _, startCode := range data.StartCode {
		w.WriteUint16(startCode)
	}
	for _, idDelta := range data.IdDelta {
		w.WriteInt16(idDelta)
	}
	for i, idRangeOffset := range data.IdRangeOffset {
		if contiguousSegments[i] {
			w.WriteUint16(0)
		} else {
			glyphIdArrayStart := uint16(len(data.IdRangeOffset) - i)
			w.WriteUint16((glyphIdArrayStart + idRangeOffset) * 2) // times 2 since entries are 16 bit
		}
	}
	for _, glyphID := range data.GlyphIdArray {
		w.WriteUint16(glyphID)
	}

	// TODO: subtable may exceed the range of the length field (16 bits, or 65536 bytes long)
	binary.BigEndian.PutUint16(w.Bytes()[start+2:], uint16(w.Len()-start)) // set length
}

func cmapWriteFormat12(w *parse.BinaryWriter, rs []rune, runeMap map[rune]uint16) {
	start := w.Len()
	w.WriteUint16(12) // format
	w.WriteUint16(0)  // reserved
	w.WriteUint32(0)  // length (set later)
	w.WriteUint32(0)  // language
	w.WriteUint32(0)  // numGroups (set later)

	numGroups := uint32(1)
	startCharCode := uint32(rs[0])
	startGlyphID := uint32(runeMap[rs[0]])
	n := uint32(1)
	for i := 1; i < len(rs); i++ {
		r := rs[i]
		subsetGlyphID := runeMap[r]
		if r == rs[i-1] {
			continue
		} else if uint32(r) == startCharCode+n && uint32(subsetGlyphID) == startGlyphID+n {
			n++
		} else {
			w.WriteUint32(startCharCode)         // startCharCode
			w.WriteUint32(startCharCode + n - 1) // endCharCode
			w.WriteUint32(startGlyphID)          // startGlyphID
			numGroups++
			startCharCode = uint32(r)
			startGlyphID = uint32(subsetGlyphID)
			n = 1
		}
	}
	w.WriteUint32(startCharCode)         // startCharCode
	w.WriteUint32(startCharCode + n - 1) // endCharCode
	w.WriteUint32(startGlyphID)          // startGlyphID

	binary.BigEndian.PutUint32(w.Bytes()[start+4:], w.Len()-start) // set length
	binary.BigEndian.PutUint32(w.Bytes()[start+12:], numGroups)    // set numGroups
}

// cmapWrite writes a cmap table with a single subtable referenced by two encoding records. BMP-only rune sets get a format 4 subtable for (0,3) and (3,1), others a format 12 subtable for (0,4) and (3,10). An empty rune set still yields a valid format 4 subtable.
func cmapWrite(rs []rune, runeMap map[rune]uint16) []byte {
	rs = append([]rune{}, rs...)
	sort.Slice(rs, func(i, j int) bool { return rs[i] < rs[j] })

	w := parse.NewBinaryWriter([]byte{})
	w.WriteUint16(0) // version
	w.WriteUint16(2) // numTables, we specify 2 encodings for the same subtable

	if len(rs) == 0 || rs[len(rs)-1] <= 0xFFFF {
		w.WriteUint16(uint16(PlatformUnicode))
		w.WriteUint16(uint16(EncodingUnicode2BMP))
		w.WriteUint32(20) // subtableOffset
		w.WriteUint16(uint16(PlatformWindows))
		w.WriteUint16(uint16(EncodingWindowsUnicodeBMP))
		w.WriteUint32(20) // subtableOffset
		cmapWriteFormat4(w, rs, runeMap)
	} else {
		w.WriteUint16(uint16(PlatformUnicode))
		w.WriteUint16(uint16(EncodingUnicode2Full))
		w.WriteUint32(20) // subtableOffset
		w.WriteUint16(uint16(PlatformWindows))
		w.WriteUint16(uint16(EncodingWindowsUnicodeFull))
		w.WriteUint32(20) // subtableOffset
		cmapWriteFormat12(w, rs, runeMap)
	}
	return w.Bytes()
}

func (sfnt *SFNT) parseCmap() error {
	if sfnt.Maxp == nil {
		return fmt.Errorf("cmap: missing maxp table")
	}

	b, ok := sfnt.Tables["cmap"]
	if !ok {
		return fmt.Errorf("cmap: missing table")
	} else if len(b) < 4 {
		return fmt.Errorf("cmap: bad table")
	}

	sfnt.Cmap = &cmapTable{}
	r := parse.NewBinaryReader(b)
	if r.ReadUint16() != 0 {
		return fmt.Errorf("cmap: bad version")
	}
	numTables := r.ReadUint16()
	if uint32(len(b)) < 4+8*uint32(numTables) {
		return fmt.Errorf("cmap: bad table")
	}

	// find and extract subtables and make sure they don't overlap each other
	offsets, lengths := []uint32{}, []uint32{}
	for j := 0; j < int(numTables); j++ {
		platformID := PlatformID(r.ReadUint16())
		encodingID := EncodingID(r.ReadUint16())
		subtableID := -1

		offset := r.ReadUint32()
		if offset < 4+8*uint32(numTables) || uint32(len(b))-8 < offset { // to extract the subtable format and length
			return fmt.Errorf("cmap: bad subtable %d", j)
		}

		// extract subtable length
		rs := parse.NewBinaryReader(b[offset:])
		format := rs.ReadUint16()
		var length uint32
		if format == 0 || format == 2 || format == 4 || format == 6 {
			length = uint32(rs.ReadUint16())
		} else if format == 8 || format == 10 || format == 12 || format == 13 {
			_ = rs.ReadUint16() // reserved
			length = rs.ReadUint32()
		} else if format == 14 {
			length = rs.ReadUint32()
		} else {
			return fmt.Errorf("cmap: bad format %d for subtable %d", format, j)
		}
		if length < 8 || uint32(len(b))-offset < length {
			return fmt.Errorf("cmap: bad subtable %d", j)
		}
		for i := 0; i < len(offsets); i++ {
			if offset == offsets[i] && length == lengths[i] {
				subtableID = i
				break
			} else if offset < offsets[i]+lengths[i] && offsets[i] < offset+length {
				return fmt.Errorf("cmap: bad subtable %d", j)
			}
		}
		rs.SetLen(length - rs.Pos())

		if subtableID == -1 {
			subtableID = len(sfnt.Cmap.Subtables)
			offsets = append(offsets, offset)
			lengths = append(lengths, length)

			subtable, err := sfnt.parseCmapSubtable(rs, format, j)
			if err != nil {
				return err
			}
			sfnt.Cmap.Subtables = append(sfnt.Cmap.Subtables, subtable)
		}
		sfnt.Cmap.EncodingRecords = append(sfnt.Cmap.EncodingRecords, cmapEncodingRecord{
			PlatformID: platformID,
			EncodingID: encodingID,
			Format:     format,
			Subtable:   uint16(subtableID),
		})
	}
	return nil
}

// parseCmapSubtable parses a subtable whose format and length have been read already.
func (sfnt *SFNT) parseCmapSubtable(rs *parse.BinaryReader, format uint16, j int) (cmapSubtable, error) {
	switch format {
	case 0:
		if rs.Len() < 258 {
			return nil, fmt.Errorf("cmap: bad subtable %d", j)
		}
		_ = rs.ReadUint16() // languageID

		subtable := &cmapFormat0{}
		copy(subtable.GlyphIdArray[:], rs.ReadBytes(256))
		for _, glyphID := range subtable.GlyphIdArray {
			if sfnt.Maxp.NumGlyphs <= uint16(glyphID) {
				return nil, fmt.Errorf("cmap: bad glyphID in subtable %d", j)
			}
		}
		return subtable, nil
	case 4:
		if rs.Len() < 10 {
			return nil, fmt.Errorf("cmap: bad subtable %d", j)
		}
		_ = rs.ReadUint16() // languageID

		segCount := rs.ReadUint16()
		if segCount%2 != 0 || segCount == 0 {
			return nil, fmt.Errorf("cmap: bad segCount in subtable %d", j)
		}
		segCount /= 2
		if MaxCmapSegments < segCount {
			return nil, fmt.Errorf("cmap: too many segments in subtable %d", j)
		}
		_ = rs.ReadUint16() // searchRange
		_ = rs.ReadUint16() // entrySelector
		_ = rs.ReadUint16() // rangeShift

		subtable := &cmapFormat4{}
		if rs.Len() < 2+8*uint32(segCount) {
			return nil, fmt.Errorf("cmap: bad subtable %d", j)
		}
		subtable.EndCode = make([]uint16, segCount)
		for i := 0; i < int(segCount); i++ {
			endCode := rs.ReadUint16()
			if 0 < i && endCode <= subtable.EndCode[i-1] {
				return nil, fmt.Errorf("cmap: bad endCode in subtable %d", j)
			}
			subtable.EndCode[i] = endCode
		}
		_ = rs.ReadUint16() // reservedPad
		subtable.StartCode = make([]uint16, segCount)
		for i := 0; i < int(segCount); i++ {
			startCode := rs.ReadUint16()
			if subtable.EndCode[i] < startCode || 0 < i && startCode <= subtable.EndCode[i-1] {
				return nil, fmt.Errorf("cmap: bad startCode in subtable %d", j)
			}
			subtable.StartCode[i] = startCode
		}
		if subtable.StartCode[segCount-1] != 0xFFFF || subtable.EndCode[segCount-1] != 0xFFFF {
			return nil, fmt.Errorf("cmap: bad last startCode or endCode in subtable %d", j)
		}

		subtable.IdDelta = make([]int16, segCount)
		for i := 0; i < int(segCount-1); i++ {
			subtable.IdDelta[i] = rs.ReadInt16()
		}
		_ = rs.ReadUint16() // last value may be invalid
		subtable.IdDelta[segCount-1] = 1

		glyphIdArrayLength := rs.Len() - 2*uint32(segCount)
		glyphIdArrayLength /= 2

		subtable.IdRangeOffset = make([]uint16, segCount)
		for i := 0; i < int(segCount-1); i++ {
			idRangeOffset := rs.ReadUint16()
			if idRangeOffset%2 != 0 {
				return nil, fmt.Errorf("cmap: bad idRangeOffset in subtable %d", j)
			} else if idRangeOffset != 0 {
				index := int(idRangeOffset/2) + int(subtable.EndCode[i]-subtable.StartCode[i]) - (int(segCount) - i)
				if index < 0 || glyphIdArrayLength <= uint32(index) {
					return nil, fmt.Errorf("cmap: bad idRangeOffset in subtable %d", j)
				}
			}
			subtable.IdRangeOffset[i] = idRangeOffset
		}
		_ = rs.ReadUint16() // last value may be invalid
		subtable.IdRangeOffset[segCount-1] = 0

		subtable.GlyphIdArray = make([]uint16, glyphIdArrayLength)
		for i := 0; i < int(glyphIdArrayLength); i++ {
			subtable.GlyphIdArray[i] = rs.ReadUint16()
		}
		return subtable, nil
	case 6:
		if rs.Len() < 6 {
			return nil, fmt.Errorf("cmap: bad subtable %d", j)
		}
		_ = rs.ReadUint16() // language

		subtable := &cmapFormat6{}
		subtable.FirstCode = rs.ReadUint16()
		entryCount := rs.ReadUint16()
		if rs.Len() < 2*uint32(entryCount) {
			return nil, fmt.Errorf("cmap: bad subtable %d", j)
		}
		subtable.GlyphIdArray = make([]uint16, entryCount)
		for i := 0; i < int(entryCount); i++ {
			subtable.GlyphIdArray[i] = rs.ReadUint16()
		}
		return subtable, nil
	case 12:
		if rs.Len() < 8 {
			return nil, fmt.Errorf("cmap: bad subtable %d", j)
		}
		_ = rs.ReadUint32() // language
		numGroups := rs.ReadUint32()
		if MaxCmapSegments < numGroups {
			return nil, fmt.Errorf("cmap: too many segments in subtable %d", j)
		} else if rs.Len() < 12*numGroups {
			return nil, fmt.Errorf("cmap: bad subtable %d", j)
		}

		subtable := &cmapFormat12{}
		subtable.StartCharCode = make([]uint32, numGroups)
		subtable.EndCharCode = make([]uint32, numGroups)
		subtable.StartGlyphID = make([]uint32, numGroups)
		for i := 0; i < int(numGroups); i++ {
			startCharCode := rs.ReadUint32()
			endCharCode := rs.ReadUint32()
			startGlyphID := rs.ReadUint32()
			if endCharCode < startCharCode || 0 < i && startCharCode <= subtable.EndCharCode[i-1] {
				return nil, fmt.Errorf("cmap: bad character code range in subtable %d", j)
			} else if uint32(sfnt.Maxp.NumGlyphs) <= endCharCode-startCharCode || uint32(sfnt.Maxp.NumGlyphs)-(endCharCode-startCharCode) <= startGlyphID {
				return nil, fmt.Errorf("cmap: bad glyphID in subtable %d", j)
			}
			subtable.StartCharCode[i] = startCharCode
			subtable.EndCharCode[i] = endCharCode
			subtable.StartGlyphID[i] = startGlyphID
		}
		return subtable, nil
	}
	return &cmapUnsupported{Format: format}, nil
}
