package similarity

import (
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mozillazg/go-unidecode"
)

// MinRelevance is the prefix similarity a release title needs to count as
// the same media item as the query.
const MinRelevance = 0.85

// Similarity returns the Levenshtein similarity of two titles in [0, 1]
// after folding case, accents, punctuation and "&".
func Similarity(s1, s2 string) float64 {
	s1 = normalize(s1)
	s2 = normalize(s2)

	if s1 == s2 {
		return 1.0
	}
	if len(s1) == 0 || len(s2) == 0 {
		return 0.0
	}

	r1, r2 := []rune(s1), []rune(s2)
	longest := max(len(r1), len(r2))
	return 1.0 - float64(levenshteinDistance(r1, r2))/float64(longest)
}

// Relevant reports whether a release title plausibly names the expected
// title. Release titles carry year, quality and group noise after the name,
// so only the leading words are compared.
func Relevant(expected, releaseTitle string) bool {
	want := normalize(expected)
	if want == "" {
		return true
	}
	got := normalize(releaseTitle)
	if got == "" {
		return false
	}

	if !fuzzy.MatchNormalizedFold(strings.ReplaceAll(want, " ", ""), got) {
		return false
	}
	if strings.Contains(" "+got+" ", " "+want+" ") {
		return true
	}

	prefix := leadingWords(got, len(strings.Fields(want)))
	return Similarity(want, prefix) >= MinRelevance
}

func leadingWords(s string, n int) string {
	words := strings.Fields(s)
	if n < len(words) {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

// normalize lowercases, transliterates to ASCII and keeps only letters,
// digits and single spaces. "&" becomes "and".
func normalize(s string) string {
	s = strings.ReplaceAll(s, "&", " and ")
	s = unidecode.Unidecode(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '.' || r == '-' || r == '_':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func levenshteinDistance(r1, r2 []rune) int {
	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}
