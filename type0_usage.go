package cidfont

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/bits-and-blooms/bitset"
)

// UsageTracker accumulates the Unicode code points that are drawn with a font. Usage only grows, there is no way to remove code points.
type UsageTracker struct {
	codes *bitset.BitSet
}

// NewUsageTracker returns an empty usage tracker.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{
		codes: bitset.New(0x100),
	}
}

// RecordRune adds a single code point. Values that are not Unicode scalar values (surrogates, negative or beyond U+10FFFF) are ignored.
func (u *UsageTracker) RecordRune(r rune) {
	if !utf8.ValidRune(r) {
		return
	}
	u.codes.Set(uint(r))
}

// Record adds all code points of a UTF-8 string. Invalid UTF-8 bytes are recorded as U+FFFD.
func (u *UsageTracker) Record(text string) {
	for _, r := range text {
		u.RecordRune(r)
	}
}

// RecordUTF16 adds all code points of UTF-16 encoded text, joining surrogate pairs. Unpaired surrogates are recorded as U+FFFD.
func (u *UsageTracker) RecordUTF16(text []uint16) {
	for _, r := range utf16.Decode(text) {
		u.RecordRune(r)
	}
}

// Has returns true if the code point was recorded.
func (u *UsageTracker) Has(r rune) bool {
	return 0 <= r && u.codes.Test(uint(r))
}

// Len returns the number of distinct code points.
func (u *UsageTracker) Len() int {
	return int(u.codes.Count())
}

// Codes returns the recorded code points in ascending order.
func (u *UsageTracker) Codes() []rune {
	rs := make([]rune, 0, u.codes.Count())
	for i, ok := u.codes.NextSet(0); ok; i, ok = u.codes.NextSet(i + 1) {
		rs = append(rs, rune(i))
	}
	return rs
}
