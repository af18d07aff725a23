package cidfont

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
)

// Options are the options for New.
type Options struct {
	// Index selects the font in a font collection (TTC).
	Index int

	// Subsetter builds the subset font, GlyfSubsetter by default.
	Subsetter Subsetter

	// Numbering assigns CIDs, IdentityNumbering by default.
	Numbering CIDNumbering

	// Rand generates the subset tags. Each font gets its own generator by default.
	Rand *rand.Rand

	// ForceCIDToGIDMap fails instead of using Identity when no CIDs are used.
	ForceCIDToGIDMap bool

	Logger logrus.FieldLogger
}

// Embedding is the result of a successful Finalize.
type Embedding struct {
	BaseFont     string // tag and PostScript name
	Tag          string
	FontFile     []byte // FontFile2 stream contents
	Length1      int
	SystemInfo   CIDSystemInfo
	Descriptor   Descriptor
	Chars        []CharMapping
	Widths       []Width
	DefaultWidth int
	CIDToGID     []byte // nil means Identity
	ToUnicode    []byte
}

// IsIdentity returns true if CIDs map to glyph IDs by identity.
func (e *Embedding) IsIdentity() bool {
	return e.CIDToGID == nil
}

// Font is a TrueType font used as descendant font of a Type 0 font. It records the code points that are drawn with it and embeds a subset with only their glyphs. A Font is not safe for concurrent use.
type Font struct {
	data      []byte
	index     int
	sfnt      *SFNT
	original  GlyphMapper
	usage     *UsageTracker
	subsetter Subsetter
	numbering CIDNumbering
	rng       *rand.Rand
	force     bool
	log       logrus.FieldLogger

	name         string
	descriptor   Descriptor
	defaultWidth int

	embedding *Embedding
}

// New parses a TrueType font and checks that it may be embedded and has a Unicode cmap subtable.
func New(b []byte, options *Options) (*Font, error) {
	if options == nil {
		options = &Options{}
	}

	sfnt, err := ParseSFNT(b, options.Index)
	if err != nil {
		return nil, err
	}
	if sfnt.OS2 != nil && !sfnt.OS2.EmbeddingPermitted() {
		return nil, fmt.Errorf("%w: fsType 0x%04X", ErrEmbeddingNotPermitted, sfnt.OS2.FsType)
	}
	original, err := sfnt.UnicodeMapper()
	if err != nil {
		return nil, err
	}

	f := &Font{
		data:      b,
		index:     options.Index,
		sfnt:      sfnt,
		original:  original,
		usage:     NewUsageTracker(),
		subsetter: options.Subsetter,
		numbering: options.Numbering,
		rng:       options.Rand,
		force:     options.ForceCIDToGIDMap,
		log:       options.Logger,
	}
	if f.subsetter == nil {
		f.subsetter = GlyfSubsetter{}
	}
	if f.numbering == nil {
		f.numbering = IdentityNumbering{}
	}
	if f.rng == nil {
		f.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if f.log == nil {
		f.log = logrus.StandardLogger()
	}

	f.name = sfnt.PostScriptName()
	if f.name == "" {
		f.name = "Unnamed"
	}
	f.descriptor = deriveDescriptor(sfnt, f.name)
	f.defaultWidth = scaleToGlyphSpace(float64(sfnt.Hmtx.Advance(0)), sfnt.Head.UnitsPerEm)
	if sfnt.OS2 != nil && !sfnt.OS2.SubsettingPermitted() {
		f.log.WithField("font", f.name).Warn("font does not permit subsetting")
	}
	return f, nil
}

// PostScriptName returns the PostScript name of the font without subset tag.
func (f *Font) PostScriptName() string {
	return f.name
}

// Descriptor returns the font descriptor of the original font.
func (f *Font) Descriptor() Descriptor {
	return f.descriptor
}

// DefaultWidth returns the width of .notdef in glyph space units.
func (f *Font) DefaultWidth() int {
	return f.defaultWidth
}

// SystemInfo returns the character collection of the CIDs.
func (f *Font) SystemInfo() CIDSystemInfo {
	return f.numbering.SystemInfo()
}

// Record records the code points of text as used.
func (f *Font) Record(text string) {
	f.usage.Record(text)
}

// RecordUTF16 records the code points of UTF-16 encoded text as used.
func (f *Font) RecordUTF16(text []uint16) {
	f.usage.RecordUTF16(text)
}

// Codes returns the used code points in ascending order.
func (f *Font) Codes() []rune {
	return f.usage.Codes()
}

// Encode returns text as a string of two byte CIDs for the Identity-H encoding and records its code points. Nothing is recorded when a code point has no glyph.
func (f *Font) Encode(text string) ([]byte, error) {
	b := make([]byte, 0, 2*len(text))
	rs := make([]rune, 0, len(text))
	for _, r := range text {
		glyphID, ok := f.original.GlyphID(r)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoUnicodeGlyph, codePoint(r))
		}
		cid, ok := f.numbering.CID(r, glyphID)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no CID in %v", ErrNoUnicodeGlyph, codePoint(r), f.numbering.SystemInfo())
		} else if math.MaxUint16 < cid {
			return nil, fmt.Errorf("%w: CID %d for %s", ErrGIDOverflow, cid, codePoint(r))
		}
		b = binary.BigEndian.AppendUint16(b, uint16(cid))
		rs = append(rs, r)
	}
	for _, r := range rs {
		f.usage.RecordRune(r)
	}
	return b, nil
}

// Advance returns the advance width of the code point in glyph space units, or the default width if the font has no glyph for it.
func (f *Font) Advance(r rune) int {
	glyphID, ok := f.original.GlyphID(r)
	if !ok {
		return f.defaultWidth
	}
	return scaleToGlyphSpace(float64(f.sfnt.Hmtx.Advance(uint16(glyphID))), f.sfnt.Head.UnitsPerEm)
}

// Embedding returns the result of the last successful Finalize, or nil.
func (f *Font) Embedding() *Embedding {
	return f.embedding
}

// Finalize builds the subset font of the used code points and all tables that refer to it. The result replaces the previous embedding only when all steps succeed.
func (f *Font) Finalize() error {
	codes := f.usage.Codes()
	tag := SubsetTag(f.rng)
	log := f.log.WithFields(logrus.Fields{
		"font":  f.name,
		"tag":   tag,
		"codes": len(codes),
	})

	fontFile, err := f.subsetter.Subset(f.data, f.index, codes)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSubsetBuildFailed, err)
	}
	subset, err := ParseSFNT(fontFile, 0)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSubsetBuildFailed, err)
	}
	log.WithFields(logrus.Fields{
		"glyphs": subset.NumGlyphs(),
		"size":   len(fontFile),
	}).Debug("subset built")

	mapper, err := subset.UnicodeMapper()
	if err != nil {
		return err
	}
	m, err := reconcile(codes, f.original, mapper, f.numbering)
	if err != nil {
		return err
	}
	log.WithField("maxCID", m.MaxCID).Debug("CIDs reconciled")

	widths := buildWidths(m, subset.Hmtx.Advances(subset.NumGlyphs()), subset.Head.UnitsPerEm)
	cidToGID, err := buildCIDToGID(m, f.force)
	if err != nil {
		return err
	}
	toUnicode := buildToUnicode(m.Chars)

	descriptor := f.descriptor
	descriptor.FontName = tag + f.name
	f.embedding = &Embedding{
		BaseFont:     tag + f.name,
		Tag:          tag,
		FontFile:     fontFile,
		Length1:      len(fontFile),
		SystemInfo:   f.numbering.SystemInfo(),
		Descriptor:   descriptor,
		Chars:        m.Chars,
		Widths:       widths,
		DefaultWidth: f.defaultWidth,
		CIDToGID:     cidToGID,
		ToUnicode:    toUnicode,
	}
	log.WithFields(logrus.Fields{
		"widths":   len(widths),
		"identity": cidToGID == nil,
	}).Debug("embedding published")
	return nil
}
