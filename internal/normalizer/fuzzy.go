package normalizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball"
)

// Fuzzy matching defaults.
const (
	DefaultFuzzyThreshold     = 0.85
	DefaultFuzzyMinWordLength = 4
)

// adjectiveEndings mark adjectival street names such as "омская" or
// "казанский", which share a stem with a city but never name one.
var adjectiveEndings = []string{
	"ая", "яя", "ое", "ее", "ий", "ый", "ые", "ие", "ую", "юю",
	"ого", "его", "ому", "ему", "ыми", "ими", "ых", "их",
}

type fuzzyEntry struct {
	key       string
	stem      string
	canonical string
}

// FuzzyMatcher maps misspelled or inflected city names onto city dictionary
// entries. A word matches an entry when their Russian Snowball stems are
// equal (score 1.0, adjectives excluded) or when the Damerau-Levenshtein similarity reaches the
// threshold. The highest score wins; ties go to the earlier entry.
type FuzzyMatcher struct {
	entries       []fuzzyEntry
	threshold     float64
	minWordLength int
}

// NewFuzzyMatcher builds a matcher over the single-word city keys.
func NewFuzzyMatcher(cities []DictionaryEntry, threshold float64, minWordLength int) *FuzzyMatcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultFuzzyThreshold
	}

	if minWordLength < 1 {
		minWordLength = DefaultFuzzyMinWordLength
	}

	m := &FuzzyMatcher{threshold: threshold, minWordLength: minWordLength}

	for _, e := range cities {
		key := strings.ToLower(strings.TrimSpace(e.Key))
		if key == "" || strings.ContainsAny(key, " \t") {
			continue
		}

		m.entries = append(m.entries, fuzzyEntry{key: key, stem: stemRussian(key), canonical: e.Canonical})
	}

	return m
}

// Match returns the best entry for word and its score.
func (m *FuzzyMatcher) Match(word string) (DictionaryEntry, float64, bool) {
	word = strings.ToLower(word)
	if utf8.RuneCountInString(word) < m.minWordLength {
		return DictionaryEntry{}, 0, false
	}

	wordStem := stemRussian(word)
	if isAdjective(word) {
		wordStem = ""
	}

	best := -1
	bestScore := 0.0

	for i, e := range m.entries {
		score := similarity(word, e.key)
		if wordStem != "" && wordStem == e.stem {
			score = 1
		}

		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 || bestScore < m.threshold {
		return DictionaryEntry{}, bestScore, false
	}

	e := m.entries[best]

	return DictionaryEntry{Key: e.key, Canonical: e.canonical}, bestScore, true
}

// Apply replaces the first free-text word that matches a city with its canonical label.
func (m *FuzzyMatcher) Apply(s string) string {
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !unicode.IsLetter(r) {
			i += size

			continue
		}

		j := i
		for j < len(s) {
			r, size = utf8.DecodeRuneInString(s[j:])
			if !isWordRune(r) {
				break
			}

			j += size
		}

		if entry, _, ok := m.Match(s[i:j]); ok {
			return s[:i] + entry.Canonical + s[j:]
		}

		i = j
	}

	return s
}

// isAdjective reports whether word ends like an adjective. A bare "-ой" only
// counts after "ск" or "цк", so noun forms like "самарой" still stem-match.
func isAdjective(word string) bool {
	for _, end := range adjectiveEndings {
		if strings.HasSuffix(word, end) {
			return true
		}
	}

	base, ok := strings.CutSuffix(word, "ой")

	return ok && (strings.HasSuffix(base, "ск") || strings.HasSuffix(base, "цк"))
}

func stemRussian(word string) string {
	stemmed, err := snowball.Stem(word, "russian", true)
	if err != nil {
		return word
	}

	return stemmed
}

// similarity is 1 - distance/longest, in [0, 1].
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)

	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}

	if longest == 0 {
		return 1
	}

	return 1 - float64(damerauLevenshtein(ra, rb))/float64(longest)
}

// damerauLevenshtein computes the optimal string alignment distance:
// insertions, deletions, substitutions and adjacent transpositions.
func damerauLevenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}

	if len(b) == 0 {
		return len(a)
	}

	d := make([][]int, len(a)+1)
	for i := range d {
		d[i] = make([]int, len(b)+1)
		d[i][0] = i
	}

	for j := 0; j <= len(b); j++ {
		d[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}

			d[i][j] = min(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)

			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				d[i][j] = min(d[i][j], d[i-2][j-2]+1)
			}
		}
	}

	return d[len(a)][len(b)]
}
