package util

import (
	"regexp"
	"strings"
)

var (
	reCorpToken  = regexp.MustCompile(`㈜|\(주\)|주식회사|\(재\)|재단법인|\(사\)|사단법인`)
	reNonAllowed = regexp.MustCompile(`[^A-Z0-9가-힣()\s]`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// NormalizeName canonicalizes an institution name for similarity comparison:
// incorporation tokens are dropped, anything outside letters, digits, Hangul
// and parentheses becomes a space, whitespace collapses, and the result is
// uppercased.
func NormalizeName(input string) string {
	s := strings.ToUpper(input)
	s = reCorpToken.ReplaceAllString(s, " ")
	s = reNonAllowed.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// SimilarityRatio scores two strings in [0,1] as the longest common
// contiguous run divided by the longer string's length. Symmetric; exact
// match scores 1.
func SimilarityRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	ra := []rune(a)
	rb := []rune(b)
	longer := len(ra)
	if len(rb) > longer {
		longer = len(rb)
	}

	return float64(longestCommonRun(ra, rb)) / float64(longer)
}

func longestCommonRun(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	best := 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > best {
					best = cur[j]
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return best
}

// ContainsAny reports whether s contains any of the markers.
func ContainsAny(s string, markers []string) (string, bool) {
	for _, m := range markers {
		if m != "" && strings.Contains(s, m) {
			return m, true
		}
	}
	return "", false
}
