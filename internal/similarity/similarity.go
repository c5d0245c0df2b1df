// Package similarity implements the near-duplicate utterance filter used to
// suppress repeated and echoed commands.
package similarity

import (
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// DefaultThreshold is the ratio above which two utterances count as the
// same command.
const DefaultThreshold = 0.8

// IsSimilar reports whether a and b are near-duplicates. The score is the
// normalized longest-common-subsequence ratio 2*LCS/(len(a)+len(b)) in
// [0, 1], and the result is true only when it strictly exceeds threshold.
// Empty input never matches anything.
func IsSimilar(a, b string, threshold float64) bool {
	if a == "" || b == "" {
		return false
	}
	return Ratio(a, b) > threshold
}

// Ratio returns the LCS-based similarity of a and b in [0, 1]. It is
// deterministic and symmetric.
func Ratio(a, b string) float64 {
	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	if la+lb == 0 {
		return 0
	}
	lcs := matchr.LongestCommonSubsequence(a, b)
	return 2 * float64(lcs) / float64(la+lb)
}
