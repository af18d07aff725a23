package cidfont

import (
	"encoding/binary"
	"fmt"
	"math"
)

// buildCIDToGID returns the CIDToGIDMap stream contents: a big-endian glyph ID for each CID in [0,maxCID], zero for unused CIDs. It returns nil for an empty mapping, which means Identity, unless force is set.
func buildCIDToGID(m *Mapping, force bool) ([]byte, error) {
	if m.MaxCID < 0 {
		if force {
			return nil, fmt.Errorf("%w: no CIDs to map", ErrGIDOverflow)
		}
		return nil, nil
	} else if math.MaxUint16 < m.MaxCID {
		return nil, fmt.Errorf("%w: CID %d", ErrGIDOverflow, m.MaxCID)
	}

	b := make([]byte, 2*(m.MaxCID+1))
	for cid, gid := range m.CIDToGID {
		if gid < 0 || math.MaxUint16 < gid {
			return nil, fmt.Errorf("%w: glyph ID %d for CID %d", ErrGIDOverflow, gid, cid)
		}
		binary.BigEndian.PutUint16(b[2*cid:], uint16(gid))
	}
	return b, nil
}
