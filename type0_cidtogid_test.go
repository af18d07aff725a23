package cidfont

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/tdewolff/test"
)

func TestBuildCIDToGID(t *testing.T) {
	m := &Mapping{
		CIDToGID: map[int]int{36: 1, 37: 2, 68: 3},
		MaxCID:   68,
	}
	b, err := buildCIDToGID(m, false)
	test.Error(t, err)
	test.T(t, len(b), 2*(68+1))

	for cid := 0; cid <= m.MaxCID; cid++ {
		gid := binary.BigEndian.Uint16(b[2*cid:])
		test.T(t, int(gid), m.CIDToGID[cid])
	}
}

func TestBuildCIDToGIDEmpty(t *testing.T) {
	m := &Mapping{MaxCID: -1}
	b, err := buildCIDToGID(m, false)
	test.Error(t, err)
	test.T(t, b == nil, true)

	_, err = buildCIDToGID(m, true)
	test.T(t, errors.Is(err, ErrGIDOverflow), true)
}

func TestBuildCIDToGIDOverflow(t *testing.T) {
	m := &Mapping{
		CIDToGID: map[int]int{1: 0x10000},
		MaxCID:   1,
	}
	_, err := buildCIDToGID(m, false)
	test.T(t, errors.Is(err, ErrGIDOverflow), true)

	m = &Mapping{
		CIDToGID: map[int]int{0x10000: 1},
		MaxCID:   0x10000,
	}
	_, err = buildCIDToGID(m, false)
	test.T(t, errors.Is(err, ErrGIDOverflow), true)
}
