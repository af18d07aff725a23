package cidfont

import (
	"math"
	"strconv"
	"strings"
)

// Width is the advance width of a CID in glyph space units (1000 per em).
type Width struct {
	CID   int
	Width int
}

func scaleToGlyphSpace(v float64, unitsPerEm uint16) int {
	return int(math.Round(v * 1000.0 / float64(unitsPerEm)))
}

// buildWidths returns a width for each used glyph ID in ascending order. Glyph IDs beyond the explicit advance widths are clamped to the second to last entry.
func buildWidths(m *Mapping, advances []uint16, unitsPerEm uint16) []Width {
	widths := make([]Width, 0, len(m.GIDs))
	if len(advances) == 0 {
		return widths
	}
	last := max(len(advances)-2, 0)
	for _, gid := range m.GIDs {
		idx := gid
		if last < idx {
			idx = last
		}
		widths = append(widths, Width{
			CID:   m.GIDToCID[gid],
			Width: scaleToGlyphSpace(float64(advances[idx]), unitsPerEm),
		})
	}
	return widths
}

// FormatWidths formats widths as the contents of a W array, grouping consecutive CIDs. For example, CIDs 3, 4 and 9 give "3 [250 300] 9 [500]".
func FormatWidths(widths []Width) string {
	sb := strings.Builder{}
	for i := 0; i < len(widths); {
		if i != 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.Itoa(widths[i].CID))
		sb.WriteString(" [")
		sb.WriteString(strconv.Itoa(widths[i].Width))
		j := i + 1
		for j < len(widths) && widths[j].CID == widths[j-1].CID+1 {
			sb.WriteByte(' ')
			sb.WriteString(strconv.Itoa(widths[j].Width))
			j++
		}
		sb.WriteByte(']')
		i = j
	}
	return sb.String()
}
