package cidfont

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/tdewolff/test"
	"golang.org/x/image/font/gofont/goregular"
	xsfnt "golang.org/x/image/font/sfnt"
)

func newTestOptions() *Options {
	logger, _ := logtest.NewNullLogger()
	return &Options{
		Rand:   rand.New(rand.NewPCG(1, 2)),
		Logger: logger,
	}
}

func TestFont(t *testing.T) {
	f, err := New(newTestFont().bytes(), newTestOptions())
	test.Error(t, err)
	test.T(t, f.PostScriptName(), "Test-Regular")
	test.T(t, f.DefaultWidth(), 500)
	test.T(t, f.SystemInfo(), IdentitySystemInfo)
	test.T(t, f.Embedding() == nil, true)

	f.Record("H Á")
	f.Record("HH")
	test.T(t, f.Codes(), []rune{' ', 'H', 'Á'})
	test.Error(t, f.Finalize())

	e := f.Embedding()
	test.T(t, len(e.Tag), 7)
	test.T(t, e.BaseFont, e.Tag+"Test-Regular")
	test.T(t, e.Descriptor.FontName, e.BaseFont)
	test.T(t, e.Length1, len(e.FontFile))
	test.T(t, e.SystemInfo.String(), "Adobe-Identity-0")
	test.T(t, e.DefaultWidth, 500)

	// CIDs are the glyph IDs of the original font, the subset puts the composite's components at the end
	test.T(t, e.Chars, []CharMapping{{' ', 1, 1}, {'H', 3, 2}, {'Á', 6, 3}})
	test.T(t, e.Widths, []Width{{1, 250}, {3, 635}, {6, 667}})
	test.T(t, e.CIDToGID, []byte{0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0, 0, 0, 3})
	test.T(t, e.IsIdentity(), false)
	test.T(t, string(e.ToUnicode), toUnicodeHeader+"3 beginbfchar\n<0001> <0020>\n<0003> <0048>\n<0006> <00C1>\nendbfchar\n"+toUnicodeTrailer)

	subset, err := ParseSFNT(e.FontFile, 0)
	test.Error(t, err)
	test.T(t, subset.NumGlyphs(), uint16(6))
	test.T(t, subset.GlyphIndex('A'), uint16(0))
	for _, char := range e.Chars {
		gid := binary.BigEndian.Uint16(e.CIDToGID[2*char.CID:])
		test.T(t, subset.GlyphIndex(char.Code), gid)
	}
}

func TestFontIdempotent(t *testing.T) {
	f, err := New(newTestFont().bytes(), newTestOptions())
	test.Error(t, err)

	f.Record("xHÁ ")
	test.Error(t, f.Finalize())
	a := *f.Embedding()
	test.Error(t, f.Finalize())
	b := *f.Embedding()

	test.T(t, a.FontFile, b.FontFile)
	test.T(t, a.Widths, b.Widths)
	test.T(t, a.CIDToGID, b.CIDToGID)
	test.T(t, a.ToUnicode, b.ToUnicode)

	// everything but the tag
	a.Tag, a.BaseFont, a.Descriptor.FontName = b.Tag, b.BaseFont, b.Descriptor.FontName
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("embedding mismatch (-first +second):\n%s", diff)
	}
}

func TestFontSeededTag(t *testing.T) {
	a, err := New(newTestFont().bytes(), newTestOptions())
	test.Error(t, err)
	b, err := New(newTestFont().bytes(), newTestOptions())
	test.Error(t, err)

	test.Error(t, a.Finalize())
	test.Error(t, b.Finalize())
	test.T(t, a.Embedding().Tag, b.Embedding().Tag)
	test.T(t, a.Embedding().Tag, SubsetTag(rand.New(rand.NewPCG(1, 2))))
}

func TestFontEmpty(t *testing.T) {
	f, err := New(newTestFont().bytes(), newTestOptions())
	test.Error(t, err)
	test.Error(t, f.Finalize())

	e := f.Embedding()
	test.T(t, e.IsIdentity(), true)
	test.T(t, len(e.Widths), 0)
	test.T(t, len(e.Chars), 0)
	test.T(t, string(e.ToUnicode), toUnicodeHeader+toUnicodeTrailer)

	subset, err := ParseSFNT(e.FontFile, 0)
	test.Error(t, err)
	test.T(t, subset.NumGlyphs(), uint16(1))

	// forcing an explicit CIDToGIDMap fails and keeps nothing
	options := newTestOptions()
	options.ForceCIDToGIDMap = true
	f, err = New(newTestFont().bytes(), options)
	test.Error(t, err)
	err = f.Finalize()
	test.T(t, errors.Is(err, ErrGIDOverflow), true)
	test.T(t, f.Embedding() == nil, true)
}

func TestFontNoUnicodeGlyph(t *testing.T) {
	f, err := New(newTestFont().bytes(), newTestOptions())
	test.Error(t, err)

	f.Record("H")
	test.Error(t, f.Finalize())
	prev := f.Embedding()

	f.Record("中")
	err = f.Finalize()
	test.T(t, errors.Is(err, ErrNoUnicodeGlyph), true)
	test.T(t, errors.Is(err, ErrSubsetBuildFailed), true)
	test.T(t, f.Embedding() == prev, true)
}

type errSubsetter struct {
	b   []byte
	err error
}

func (s errSubsetter) Subset([]byte, int, []rune) ([]byte, error) {
	return s.b, s.err
}

type droppingSubsetter struct {
	drop rune
}

// Subset leaves out one code point from the subset font.
func (s droppingSubsetter) Subset(b []byte, index int, codes []rune) ([]byte, error) {
	kept := []rune{}
	for _, r := range codes {
		if r != s.drop {
			kept = append(kept, r)
		}
	}
	return GlyfSubsetter{}.Subset(b, index, kept)
}

func TestFontSubsetterErrors(t *testing.T) {
	engineErr := errors.New("engine failure")

	options := newTestOptions()
	options.Subsetter = errSubsetter{nil, engineErr}
	f, err := New(newTestFont().bytes(), options)
	test.Error(t, err)
	f.Record("H")
	err = f.Finalize()
	test.T(t, errors.Is(err, ErrSubsetBuildFailed), true)
	test.T(t, errors.Is(err, engineErr), true)
	test.T(t, f.Embedding() == nil, true)

	// output that cannot be parsed
	options.Subsetter = errSubsetter{[]byte("not a font"), nil}
	f, err = New(newTestFont().bytes(), options)
	test.Error(t, err)
	err = f.Finalize()
	test.T(t, errors.Is(err, ErrSubsetBuildFailed), true)
	test.T(t, errors.Is(err, ErrInvalidFontData), true)

	// subset font misses a code point
	options.Subsetter = droppingSubsetter{'x'}
	f, err = New(newTestFont().bytes(), options)
	test.Error(t, err)
	f.Record("Hx")
	err = f.Finalize()
	test.T(t, errors.Is(err, ErrNoUnicodeGlyph), true)
	test.T(t, errors.Is(err, ErrSubsetBuildFailed), false)
	test.T(t, f.Embedding() == nil, true)
}

func TestFontEmbeddingPermission(t *testing.T) {
	var tests = []struct {
		fsType uint16
		err    error
	}{
		{0x0000, nil},
		{0x0002, ErrEmbeddingNotPermitted},
		{0x0004, nil},
		{0x0008, nil},
		{0x0100, nil},
		{0x0200, ErrEmbeddingNotPermitted},
		{0x0208, ErrEmbeddingNotPermitted},
	}
	for _, tt := range tests {
		font := newTestFont()
		font.FsType = tt.fsType
		_, err := New(font.bytes(), newTestOptions())
		if tt.err == nil {
			test.Error(t, err)
		} else {
			test.T(t, errors.Is(err, tt.err), true)
		}
	}
}

func TestFontErrors(t *testing.T) {
	font := newTestFont()
	font.CmapEncodings = [][2]uint16{{1, 0}}
	_, err := New(font.bytes(), newTestOptions())
	test.T(t, errors.Is(err, ErrMissingUnicodeCmap), true)

	options := newTestOptions()
	options.Index = 3
	_, err = New(testCollection(newTestFont().bytes()), options)
	test.T(t, errors.Is(err, ErrInvalidFontIndex), true)
}

func TestFontCollection(t *testing.T) {
	bold := newTestFont()
	bold.Name = "Test-Bold"
	bold.Glyphs[3].Advance = 1400

	options := newTestOptions()
	options.Index = 1
	f, err := New(testCollection(newTestFont().bytes(), bold.bytes()), options)
	test.Error(t, err)
	test.T(t, f.PostScriptName(), "Test-Bold")

	f.Record("H x")
	test.Error(t, f.Finalize())
	test.T(t, f.Embedding().Widths, []Width{{1, 250}, {3, 684}, {4, 684}}) // last glyph repeats the previous width
}

func TestFontWindowsBMPCmap(t *testing.T) {
	font := newTestFont()
	font.CmapEncodings = [][2]uint16{{3, 1}}
	f, err := New(font.bytes(), newTestOptions())
	test.Error(t, err)

	f.Record("Hx")
	test.Error(t, f.Finalize())
	test.T(t, f.Embedding().Chars, []CharMapping{{'H', 3, 1}, {'x', 4, 2}})
}

func TestFontSupplementary(t *testing.T) {
	font := newTestFont()
	font.Cmap[0x1F600] = 7
	font.CmapEncodings = [][2]uint16{{3, 10}}
	font.CmapFormat12 = true
	f, err := New(font.bytes(), newTestOptions())
	test.Error(t, err)

	f.RecordUTF16([]uint16{0xD83D, 0xDE00})
	f.Record("x")
	test.Error(t, f.Finalize())

	e := f.Embedding()
	test.T(t, e.Chars, []CharMapping{{'x', 4, 1}, {0x1F600, 7, 2}})
	test.T(t, e.Widths, []Width{{4, 488}, {7, 488}}) // last glyph repeats the previous width
	test.T(t, bytes.Contains(e.ToUnicode, []byte("<0007> [<D83D><DE00>]\n")), true)
}

func TestFontOrderingNumbering(t *testing.T) {
	options := newTestOptions()
	options.Numbering = NewOrderingNumbering("Adobe", "Japan1", 6, map[rune]int{'A': 34, 'H': 41, 'x': 89})
	f, err := New(newTestFont().bytes(), options)
	test.Error(t, err)
	test.T(t, f.SystemInfo().String(), "Adobe-Japan1-6")

	b, err := f.Encode("xA")
	test.Error(t, err)
	test.T(t, b, []byte{0, 89, 0, 34})

	_, err = f.Encode(" ")
	test.T(t, errors.Is(err, ErrNoUnicodeGlyph), true)

	test.Error(t, f.Finalize())
	e := f.Embedding()
	test.T(t, e.SystemInfo.String(), "Adobe-Japan1-6")
	test.T(t, e.Chars, []CharMapping{{'A', 34, 1}, {'x', 89, 2}})
	test.T(t, len(e.CIDToGID), 2*90)
	test.T(t, binary.BigEndian.Uint16(e.CIDToGID[2*34:]), uint16(1))
	test.T(t, binary.BigEndian.Uint16(e.CIDToGID[2*89:]), uint16(2))
}

func TestFontEncode(t *testing.T) {
	f, err := New(newTestFont().bytes(), newTestOptions())
	test.Error(t, err)

	b, err := f.Encode("HÁ")
	test.Error(t, err)
	test.T(t, b, []byte{0, 3, 0, 6})
	test.T(t, f.Codes(), []rune{'H', 'Á'})

	// nothing is recorded on failure
	_, err = f.Encode("x中")
	test.T(t, errors.Is(err, ErrNoUnicodeGlyph), true)
	test.T(t, f.Codes(), []rune{'H', 'Á'})
}

func TestFontAdvance(t *testing.T) {
	f, err := New(newTestFont().bytes(), newTestOptions())
	test.Error(t, err)
	test.T(t, f.Advance('H'), 635)
	test.T(t, f.Advance(' '), 250)
	test.T(t, f.Advance('中'), 500)
}

func TestFontLogging(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	options := newTestOptions()
	options.Logger = logger

	f, err := New(newTestFont().bytes(), options)
	test.Error(t, err)
	f.Record("H")
	test.Error(t, f.Finalize())

	messages := []string{}
	for _, entry := range hook.AllEntries() {
		messages = append(messages, entry.Message)
	}
	test.T(t, messages, []string{"subset built", "CIDs reconciled", "embedding published"})
	test.T(t, hook.LastEntry().Data["font"], "Test-Regular")
}

func TestFontGoRegular(t *testing.T) {
	f, err := New(goregular.TTF, newTestOptions())
	test.Error(t, err)

	text := "The quick brown fox jumps over the lazy dog. Àéïõü €"
	f.Record(text)
	test.Error(t, f.Finalize())
	e := f.Embedding()

	original, err := xsfnt.Parse(goregular.TTF)
	test.Error(t, err)
	subset, err := xsfnt.Parse(e.FontFile)
	test.Error(t, err)

	buf := &xsfnt.Buffer{}
	widths := map[int]int{}
	for _, w := range e.Widths {
		widths[w.CID] = w.Width
	}
	lastGlyphID := subset.NumGlyphs() - 1
	test.T(t, len(e.Widths), len(widths))
	for _, char := range e.Chars {
		originalID, err := original.GlyphIndex(buf, char.Code)
		test.Error(t, err)
		test.T(t, char.CID, int(originalID), string(char.Code))

		subsetID, err := subset.GlyphIndex(buf, char.Code)
		test.Error(t, err)
		test.T(t, int(binary.BigEndian.Uint16(e.CIDToGID[2*char.CID:])), int(subsetID), string(char.Code))
		if int(subsetID) != lastGlyphID {
			test.T(t, widths[char.CID], f.Advance(char.Code), string(char.Code))
		}
	}
}
