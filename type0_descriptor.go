package cidfont

import "math"

// Descriptor flags
const (
	FlagFixedPitch  = 1 << 0
	FlagSerif       = 1 << 1
	FlagSymbolic    = 1 << 2
	FlagScript      = 1 << 3
	FlagNonsymbolic = 1 << 5
	FlagItalic      = 1 << 6
)

var stretchNames = [...]string{
	"UltraCondensed",
	"ExtraCondensed",
	"Condensed",
	"SemiCondensed",
	"Normal",
	"SemiExpanded",
	"Expanded",
	"ExtraExpanded",
	"UltraExpanded",
}

// Descriptor holds the font descriptor values of a font. Lengths are in glyph space units (1000 per em).
type Descriptor struct {
	FontName               string
	Flags                  int
	XMin, YMin, XMax, YMax int
	ItalicAngle            float64
	Ascent                 int
	Descent                int
	CapHeight              int
	XHeight                int
	StemV                  int
	Weight                 int
	Stretch                string
}

// IsItalic returns true if the italic flag is set.
func (d Descriptor) IsItalic() bool {
	return d.Flags&FlagItalic != 0
}

// stretchName returns the font stretch for an OS/2 width class.
func stretchName(widthClass uint16) string {
	if widthClass < 1 || uint16(len(stretchNames)) < widthClass {
		return "Normal"
	}
	return stretchNames[widthClass-1]
}

func descriptorFlags(sfnt *SFNT) int {
	flags := 0
	if sfnt.Post.IsFixedPitch != 0 {
		flags |= FlagFixedPitch
	}
	if sfnt.OS2 != nil {
		switch sfnt.OS2.FamilyClass() {
		case FamilyOldstyleSerifs, FamilyModernSerifs, FamilyClarendonSerifs, FamilySlabSerifs, FamilyFreeformSerifs:
			flags |= FlagSerif
		case FamilyScripts:
			flags |= FlagScript
		}
	}
	if sfnt.OS2 != nil && sfnt.OS2.FamilyClass() == FamilySymbolic {
		flags |= FlagSymbolic
	} else {
		flags |= FlagNonsymbolic
	}
	if sfnt.Post.ItalicAngle != 0.0 || sfnt.Head.MacStyle[1] {
		flags |= FlagItalic
	}
	return flags
}

// deriveDescriptor extracts the font descriptor from the original font.
func deriveDescriptor(sfnt *SFNT, fontName string) Descriptor {
	upem := sfnt.Head.UnitsPerEm
	scale := func(v int16) int {
		return scaleToGlyphSpace(float64(v), upem)
	}

	d := Descriptor{
		FontName:    fontName,
		Flags:       descriptorFlags(sfnt),
		XMin:        scale(sfnt.Head.XMin),
		YMin:        scale(sfnt.Head.YMin),
		XMax:        scale(sfnt.Head.XMax),
		YMax:        scale(sfnt.Head.YMax),
		ItalicAngle: sfnt.Post.ItalicAngle,
		Ascent:      scale(sfnt.Hhea.Ascender),
		Descent:     scale(sfnt.Hhea.Descender),
		Weight:      400,
		Stretch:     "Normal",
	}
	d.StemV = int(math.Round(float64(d.XMax-d.XMin) * 0.13))

	if sfnt.OS2 != nil {
		// estimateOS2 has filled in the heights for older versions
		d.CapHeight = scale(sfnt.OS2.SCapHeight)
		d.XHeight = scale(sfnt.OS2.SxHeight)
		if sfnt.OS2.UsWeightClass != 0 {
			d.Weight = int(sfnt.OS2.UsWeightClass)
		}
		d.Stretch = stretchName(sfnt.OS2.UsWidthClass)
	} else {
		if glyphID := sfnt.GlyphIndex('H'); glyphID != 0 {
			if _, _, _, yMax, err := sfnt.Glyf.Bounds(glyphID); err == nil {
				d.CapHeight = scale(yMax)
			}
		}
		if glyphID := sfnt.GlyphIndex('x'); glyphID != 0 {
			if _, _, _, yMax, err := sfnt.Glyf.Bounds(glyphID); err == nil {
				d.XHeight = scale(yMax)
			}
		}
	}
	return d
}
