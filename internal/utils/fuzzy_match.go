package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText folds compatibility characters (full-width digits, ligatures,
// non-breaking spaces), lowercases and collapses whitespace. Byte offsets into
// the result are what extractor spans refer to.
func NormalizeText(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeName reduces a place name to its lookup key: lowercase, no punctuation
// other than inner hyphens and apostrophes, single spaces.
func NormalizeName(s string) string {
	s = NormalizeText(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ' ', r == '-', r == '\'':
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// TitleCase renders a lookup key as a display name ("north yorkshire" -> "North Yorkshire")
func TitleCase(s string) string {
	return cases.Title(language.BritishEnglish).String(s)
}

// FuzzyContains reports whether either string contains the other after normalization
func FuzzyContains(a, b string) bool {
	a, b = NormalizeName(a), NormalizeName(b)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// CommonPrefixLen returns the number of leading runes a and b share
func CommonPrefixLen(a, b string) int {
	ar, br := []rune(a), []rune(b)
	n := 0
	for n < len(ar) && n < len(br) && ar[n] == br[n] {
		n++
	}
	return n
}

// EditDistance is the Levenshtein distance between a and b, counted in runes.
// Computation stops early once every cell in a row exceeds maxDistance; the
// returned value is then maxDistance+1. A negative maxDistance disables the cut-off.
func EditDistance(a, b string, maxDistance int) int {
	ar, br := []rune(a), []rune(b)
	if maxDistance >= 0 && abs(len(ar)-len(br)) > maxDistance {
		return maxDistance + 1
	}
	prev := make([]int, len(br)+1)
	curr := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ar); i++ {
		curr[0] = i
		rowMin := curr[0]
		for j := 1; j <= len(br); j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			rowMin = min(rowMin, curr[j])
		}
		if maxDistance >= 0 && rowMin > maxDistance {
			return maxDistance + 1
		}
		prev, curr = curr, prev
	}
	return prev[len(br)]
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
