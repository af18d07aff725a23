package cidfont

import (
	"bytes"
	"fmt"
)

// MaxBfCharEntries is the maximum number of entries in a single beginbfchar block.
const MaxBfCharEntries = 100

const toUnicodeHeader = `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CIDSystemInfo
<< /Registry (TT1+0)
/Ordering (T42UV)
/Supplement 0
>> def
/CMapName /TT1+0 def
/CMapType 2 def
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
`

const toUnicodeTrailer = `endcmap
CMapName currentdict /CMap defineresource pop
end end
`

// buildToUnicode writes a ToUnicode CMap that maps each CID back to its code point. Characters are written in order.
func buildToUnicode(chars []CharMapping) []byte {
	w := &bytes.Buffer{}
	w.WriteString(toUnicodeHeader)
	for i := 0; i < len(chars); i += MaxBfCharEntries {
		block := chars[i:min(i+MaxBfCharEntries, len(chars))]
		fmt.Fprintf(w, "%d beginbfchar\n", len(block))
		for _, char := range block {
			fmt.Fprintf(w, "<%04X> %s\n", char.CID, toUnicodeHex(char.Code))
		}
		w.WriteString("endbfchar\n")
	}
	w.WriteString(toUnicodeTrailer)
	return w.Bytes()
}

// toUnicodeHex returns <XXXX> for the BMP and [<HHHH><LLLL>] with a UTF-16 surrogate pair otherwise.
func toUnicodeHex(r rune) string {
	if r < 0x10000 {
		return fmt.Sprintf("<%04X>", r)
	}
	r -= 0x10000
	return fmt.Sprintf("[<%04X><%04X>]", 0xD800+r/0x400, 0xDC00+r%0x400)
}
