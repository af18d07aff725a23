package cidfont

import (
	"fmt"

	"github.com/tdewolff/parse/v2"
)

const eotMagicNumber = 0x504C

// IsEOT returns true if b starts with an Embedded OpenType header.
func IsEOT(b []byte) bool {
	if 4 <= len(b) {
		switch string(b[:4]) {
		case "\x00\x01\x00\x00", "true", "ttcf", "OTTO":
			return false
		}
	}
	return 36 <= len(b) && uint16(b[34])|uint16(b[35])<<8 == eotMagicNumber
}

// ToSFNT returns the SFNT font data of b, unwrapping it from an EOT container if needed.
func ToSFNT(b []byte) ([]byte, error) {
	if IsEOT(b) {
		return ParseEOT(b)
	}
	return b, nil
}

// ParseEOT parses the EOT font format and returns its contained TrueType font data. See https://www.w3.org/Submission/EOT/
func ParseEOT(b []byte) ([]byte, error) {
	r := parse.NewBinaryReaderLE(b)
	eotSize := r.ReadUint32()
	fontDataSize := r.ReadUint32()
	version := r.ReadUint32()
	if version != 0x00010000 && version != 0x00020001 && version != 0x00020002 {
		return nil, fmt.Errorf("eot: unsupported version 0x%08X", version)
	} else if uint32(len(b)) < eotSize {
		return nil, fmt.Errorf("eot: %w", ErrInvalidFontData)
	}
	flags := r.ReadUint32()
	_ = r.ReadBytes(10) // PANOSE
	_ = r.ReadByte()    // Charset
	_ = r.ReadByte()    // Italic
	_ = r.ReadUint32()  // Weight
	_ = r.ReadUint16()  // fsType, checked in the OS/2 table
	if r.ReadUint16() != eotMagicNumber {
		return nil, fmt.Errorf("eot: bad magic number")
	}
	_ = r.ReadBytes(24) // Unicode and code page ranges
	_ = r.ReadUint32()  // checkSumAdjustment
	_ = r.ReadBytes(16) // reserved
	_ = r.ReadUint16()  // padding

	// family, style, version and full name
	for i := 0; i < 4; i++ {
		if 0 < i {
			_ = r.ReadUint16() // padding
		}
		n := r.ReadUint16()
		_ = r.ReadBytes(uint32(n))
	}
	if version == 0x00020001 || version == 0x00020002 {
		_ = r.ReadUint16() // padding
		n := r.ReadUint16()
		_ = r.ReadBytes(uint32(n)) // root string
	}
	if version == 0x00020002 {
		_ = r.ReadUint32() // root string checksum
		_ = r.ReadUint32() // EUDC code page
		_ = r.ReadUint16() // padding
		n := r.ReadUint16()
		_ = r.ReadBytes(uint32(n)) // signature
		_ = r.ReadUint32()         // EUDC flags
		m := r.ReadUint32()
		_ = r.ReadBytes(m) // EUDC font data
	}

	fontData := r.ReadBytes(fontDataSize)
	if r.EOF() {
		return nil, fmt.Errorf("eot: %w", ErrInvalidFontData)
	}
	if flags&0x00000004 != 0 {
		return nil, fmt.Errorf("eot: MicroType Express compression not supported")
	}

	// never modify the input
	fontData = append([]byte{}, fontData...)
	if flags&0x10000000 != 0 {
		for i := range fontData {
			fontData[i] ^= 0x50
		}
	}
	return fontData, nil
}
