package cidfont

import "math/rand/v2"

// SubsetTagLength is the number of letters in a subset tag.
const SubsetTagLength = 6

// SubsetTag returns six random uppercase letters followed by a plus sign, such as "EOODIA+". The tag is prepended to the PostScript name of a subset font.
func SubsetTag(rng *rand.Rand) string {
	b := make([]byte, SubsetTagLength+1)
	for i := 0; i < SubsetTagLength; i++ {
		b[i] = 'A' + byte(rng.IntN(26))
	}
	b[SubsetTagLength] = '+'
	return string(b)
}
