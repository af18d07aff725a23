package cidfont

import (
	"fmt"

	"github.com/tdewolff/parse/v2"
)

// FamilyClass is the class part (high byte) of the OS/2 sFamilyClass field.
type FamilyClass uint8

// see FamilyClass
const (
	FamilyNoClassification   FamilyClass = 0
	FamilyOldstyleSerifs     FamilyClass = 1
	FamilyTransitionalSerifs FamilyClass = 2
	FamilyModernSerifs       FamilyClass = 3
	FamilyClarendonSerifs    FamilyClass = 4
	FamilySlabSerifs         FamilyClass = 5
	FamilyFreeformSerifs     FamilyClass = 7
	FamilySansSerif          FamilyClass = 8
	FamilyOrnamentals        FamilyClass = 9
	FamilyScripts            FamilyClass = 10
	FamilySymbolic           FamilyClass = 12
)

// fsType embedding permission bits
const (
	fsTypeRestricted       = 0x0002
	fsTypePreviewAndPrint  = 0x0004
	fsTypeEditable         = 0x0008
	fsTypeNoSubsetting     = 0x0100
	fsTypeBitmapEmbedOnly  = 0x0200
	fsTypeUsagePermissions = 0x000F
)

type os2Table struct {
	Version        uint16
	XAvgCharWidth  int16
	UsWeightClass  uint16
	UsWidthClass   uint16
	FsType         uint16
	SFamilyClass   int16
	FsSelection    uint16
	STypoAscender  int16
	STypoDescender int16
	STypoLineGap   int16
	UsWinAscent    uint16
	UsWinDescent   uint16
	SxHeight       int16
	SCapHeight     int16
}

// FamilyClass returns the font family class.
func (os2 *os2Table) FamilyClass() FamilyClass {
	return FamilyClass(uint16(os2.SFamilyClass) >> 8)
}

// EmbeddingPermitted returns false if the font has a restricted license or only allows bitmap embedding. The other usage permissions (installable, preview & print, editable) all allow embedding a subset in a document.
func (os2 *os2Table) EmbeddingPermitted() bool {
	if os2.FsType&fsTypeUsagePermissions == fsTypeRestricted {
		return false
	}
	return os2.FsType&fsTypeBitmapEmbedOnly == 0
}

// SubsettingPermitted returns false if the font must be embedded in full.
func (os2 *os2Table) SubsettingPermitted() bool {
	return os2.FsType&fsTypeNoSubsetting == 0
}

func (sfnt *SFNT) parseOS2() error {
	b, ok := sfnt.Tables["OS/2"]
	if !ok {
		return fmt.Errorf("OS/2: missing table")
	} else if len(b) < 68 {
		return fmt.Errorf("OS/2: bad table")
	}

	r := parse.NewBinaryReader(b)
	sfnt.OS2 = &os2Table{}
	sfnt.OS2.Version = r.ReadUint16()
	if 5 < sfnt.OS2.Version {
		return fmt.Errorf("OS/2: bad version")
	} else if sfnt.OS2.Version == 0 && len(b) != 68 && len(b) != 78 ||
		sfnt.OS2.Version == 1 && len(b) < 86 ||
		2 <= sfnt.OS2.Version && len(b) < 96 {
		return fmt.Errorf("OS/2: bad table")
	}
	sfnt.OS2.XAvgCharWidth = r.ReadInt16()
	sfnt.OS2.UsWeightClass = r.ReadUint16()
	sfnt.OS2.UsWidthClass = r.ReadUint16()
	sfnt.OS2.FsType = r.ReadUint16()
	_ = r.ReadBytes(20) // subscript, superscript and strikeout metrics
	sfnt.OS2.SFamilyClass = r.ReadInt16()
	_ = r.ReadBytes(10) // panose
	_ = r.ReadBytes(16) // ulUnicodeRange1-4
	_ = r.ReadBytes(4)  // achVendID
	sfnt.OS2.FsSelection = r.ReadUint16()
	_ = r.ReadUint16() // usFirstCharIndex
	_ = r.ReadUint16() // usLastCharIndex
	if 78 <= len(b) {
		sfnt.OS2.STypoAscender = r.ReadInt16()
		sfnt.OS2.STypoDescender = r.ReadInt16()
		sfnt.OS2.STypoLineGap = r.ReadInt16()
		sfnt.OS2.UsWinAscent = r.ReadUint16()
		sfnt.OS2.UsWinDescent = r.ReadUint16()
	}
	if sfnt.OS2.Version < 2 {
		return nil
	}
	_ = r.ReadUint32() // ulCodePageRange1
	_ = r.ReadUint32() // ulCodePageRange2
	sfnt.OS2.SxHeight = r.ReadInt16()
	sfnt.OS2.SCapHeight = r.ReadInt16()
	return nil
}

// estimateOS2 sets the x-height and cap height from the glyph bounds of 'x' and 'H' for OS/2 versions that lack them.
func (sfnt *SFNT) estimateOS2() {
	if glyphID := sfnt.GlyphIndex('x'); glyphID != 0 {
		if _, _, _, yMax, err := sfnt.Glyf.Bounds(glyphID); err == nil {
			sfnt.OS2.SxHeight = yMax
		}
	}
	if glyphID := sfnt.GlyphIndex('H'); glyphID != 0 {
		if _, _, _, yMax, err := sfnt.Glyf.Bounds(glyphID); err == nil {
			sfnt.OS2.SCapHeight = yMax
		}
	}
}
