package cidfont

import "fmt"

// CIDSystemInfo identifies the character collection of a CIDFont.
type CIDSystemInfo struct {
	Registry   string
	Ordering   string
	Supplement int
}

func (info CIDSystemInfo) String() string {
	return fmt.Sprintf("%s-%s-%d", info.Registry, info.Ordering, info.Supplement)
}

// IdentitySystemInfo is the Adobe-Identity-0 character collection.
var IdentitySystemInfo = CIDSystemInfo{"Adobe", "Identity", 0}

// CIDNumbering derives the CID of a code point from its glyph ID in the original font.
type CIDNumbering interface {
	SystemInfo() CIDSystemInfo
	CID(r rune, glyphID int) (int, bool)
}

// IdentityNumbering uses the glyph ID of the original font as CID.
type IdentityNumbering struct{}

// SystemInfo returns Adobe-Identity-0.
func (IdentityNumbering) SystemInfo() CIDSystemInfo {
	return IdentitySystemInfo
}

// CID returns the glyph ID. Glyph 0 is .notdef and has no CID.
func (IdentityNumbering) CID(r rune, glyphID int) (int, bool) {
	return glyphID, 0 < glyphID
}

// OrderingNumbering uses the CIDs of a predefined character collection, such as Adobe-Japan1. The original glyph ID must still exist but does not influence the CID.
type OrderingNumbering struct {
	Info CIDSystemInfo
	CIDs map[rune]int
}

// NewOrderingNumbering returns a numbering for the given registry, ordering and supplement with a code point to CID table.
func NewOrderingNumbering(registry, ordering string, supplement int, cids map[rune]int) *OrderingNumbering {
	return &OrderingNumbering{
		Info: CIDSystemInfo{registry, ordering, supplement},
		CIDs: cids,
	}
}

// SystemInfo returns the character collection.
func (numbering *OrderingNumbering) SystemInfo() CIDSystemInfo {
	return numbering.Info
}

// CID returns the CID of the code point in the character collection.
func (numbering *OrderingNumbering) CID(r rune, glyphID int) (int, bool) {
	if glyphID <= 0 {
		return 0, false
	}
	cid, ok := numbering.CIDs[r]
	return cid, ok && 0 < cid
}
