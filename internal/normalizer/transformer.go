package normalizer

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// cityPrefix matches a city designator already written in front of a city
// name. It is absorbed into the match so a canonical label rewrites to itself.
const cityPrefix = `(?:(?:г|гор)\.?\s*|город\s+)?`

// houseToken is a house or building number: it must start with a digit.
const houseToken = `(\d[\p{L}\p{N}-]*(?:/[\p{L}\p{N}-]+)?)`

var (
	housePattern    = regexp.MustCompile(`(?i)(?:\s*,)?\s*(дом|д)\.?\s*` + houseToken)
	buildingPattern = regexp.MustCompile(`(?i)(?:\s*,)?\s*(строение|стр)\.?\s*` + houseToken)
	corpusPattern   = regexp.MustCompile(`(?i)(?:\s*,)?\s*(корпус|корп|к)\.?\s*` + houseToken)

	bareHousePattern = regexp.MustCompile(`^\d+\p{L}?(?:/\d+\p{L}?)?$`)
	cityMarker       = regexp.MustCompile(`(?:^|[\s,])г\.`)
	houseMarker      = regexp.MustCompile(`(?:^|[\s,])д\.`)
	buildingMarker   = regexp.MustCompile(`(?:^|[\s,])(?:д|стр|корп)\.`)

	spaceBeforeComma = regexp.MustCompile(`\s+,`)
	repeatedCommas   = regexp.MustCompile(`,(?:\s*,)+`)
	commaSpacing     = regexp.MustCompile(`,\s*`)
	gluedAbbrev      = regexp.MustCompile(`(\p{L})\.(\p{L})`)
)

// homoglyphs maps Latin letters that look like Cyrillic ones inside house numbers.
var homoglyphs = strings.NewReplacer(
	"a", "а", "b", "в", "c", "с", "e", "е", "h", "н", "k", "к",
	"m", "м", "o", "о", "p", "р", "t", "т", "x", "х", "y", "у",
)

type rewriteRule struct {
	pattern   *regexp.Regexp
	canonical string
}

// Transformer rewrites raw address strings into their canonical form.
// It is immutable after construction and safe for concurrent use.
type Transformer struct {
	cities        []rewriteRule
	streets       []rewriteRule
	streetMarkers []string
	cityLabel     *regexp.Regexp
	designators   map[string]bool
	fuzzy         *FuzzyMatcher
}

// NewTransformer compiles the dictionary into ordered rewrite rules.
// fuzzy may be nil to disable approximate city matching.
func NewTransformer(dict Dictionary, fuzzy *FuzzyMatcher) *Transformer {
	t := &Transformer{
		streetMarkers: dict.StreetMarkers(),
		designators:   map[string]bool{"г": true, "д": true, "стр": true, "корп": true},
		fuzzy:         fuzzy,
	}

	for _, e := range dict.Cities {
		t.cities = append(t.cities, rewriteRule{
			pattern:   regexp.MustCompile(`(?i)` + cityPrefix + keyPattern(e.Key)),
			canonical: e.Canonical,
		})
	}

	for _, e := range dict.StreetTypes {
		pattern := keyPattern(e.Key)
		if !strings.HasSuffix(e.Key, ".") {
			pattern += `\.?`
		}

		t.streets = append(t.streets, rewriteRule{
			pattern:   regexp.MustCompile(`(?i)` + pattern),
			canonical: e.Canonical,
		})
	}

	for _, m := range t.streetMarkers {
		t.designators[strings.ToLower(strings.TrimSuffix(m, "."))] = true
	}

	t.cityLabel = compileCityLabel(dict.Cities)

	return t
}

// compileCityLabel matches "г." followed by a known city name, longest first,
// or by a single unknown word.
func compileCityLabel(cities []DictionaryEntry) *regexp.Regexp {
	var names []string

	for _, e := range cities {
		name, ok := strings.CutPrefix(strings.TrimSpace(e.Canonical), "г.")
		if name = strings.TrimSpace(name); ok && name != "" && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	slices.SortStableFunc(names, func(a, b string) int {
		return utf8.RuneCountInString(b) - utf8.RuneCountInString(a)
	})

	alts := make([]string, 0, len(names)+1)
	for _, name := range names {
		alts = append(alts, keyPattern(name))
	}

	alts = append(alts, `[\p{L}-]+`)

	return regexp.MustCompile(`(?i)(?:^|[\s,])г\.\s*(?:` + strings.Join(alts, "|") + `)`)
}

// Normalize returns the canonical form of raw. It is total and deterministic.
func (t *Transformer) Normalize(raw string) string {
	s := norm.NFC.String(raw)

	// 1. Case and outer whitespace
	s = strings.TrimSpace(strings.ToLower(s))

	// 2. City synonyms, in list order
	for _, rule := range t.cities {
		s = applyRule(s, rule)
	}

	if t.fuzzy != nil && !cityMarker.MatchString(s) {
		s = t.fuzzy.Apply(s)
	}

	// 3. Street-type synonyms, in list order
	for _, rule := range t.streets {
		s = applyRule(s, rule)
	}

	// 4-5. House and building markers
	s = rewriteMarker(s, housePattern, "д.")
	s = rewriteMarker(s, buildingPattern, "стр.")
	s = rewriteMarker(s, corpusPattern, "корп.")

	if !houseMarker.MatchString(s) {
		s = t.inferHouse(s)
	}

	// 6. Whitespace and punctuation
	s = tidy(s)

	// 7. Capitalization of free-text words
	return t.capitalize(s)
}

func applyRule(s string, rule rewriteRule) string {
	return scanReplace(s, rule.pattern, 0, func(string, []int) string {
		return rule.canonical
	})
}

// rewriteMarker turns "<designator> <token>" into ", <label> <TOKEN>".
func rewriteMarker(s string, re *regexp.Regexp, label string) string {
	return scanReplace(s, re, 1, func(src string, loc []int) string {
		return ", " + label + " " + canonicalToken(src[loc[4]:loc[5]])
	})
}

// canonicalToken upper-cases a house number and replaces Latin look-alikes.
func canonicalToken(token string) string {
	return strings.ToUpper(homoglyphs.Replace(strings.ToLower(token)))
}

// inferHouse turns a bare number into a "д." segment. The number may end a
// street segment ("ленина 52a" becomes "ул. ленина, д. 52А"), follow the city
// label in the same segment, or stand alone after a segment naming a street type.
func (t *Transformer) inferHouse(s string) string {
	segments := strings.Split(s, ",")

	for i, seg := range segments {
		trimmed := strings.TrimSpace(seg)
		if trimmed == "" || buildingMarker.MatchString(trimmed) {
			continue
		}

		if bareHousePattern.MatchString(trimmed) {
			if t.hasStreetMarker(previousSegment(segments, i)) {
				segments[i] = " д. " + canonicalToken(trimmed)

				return strings.Join(segments, ",")
			}

			continue
		}

		head := ""
		if loc := t.cityLabel.FindStringIndex(seg); loc != nil {
			head, seg = seg[:loc[1]]+",", seg[loc[1]:]
		}

		street, ok := t.splitHouse(seg)
		if !ok {
			continue
		}

		segments[i] = head + street

		return strings.Join(segments, ",")
	}

	return s
}

// splitHouse splits a trailing house token off seg, adding "ул." when the
// remaining words carry no street type.
func (t *Transformer) splitHouse(seg string) (string, bool) {
	tokens := strings.Fields(seg)
	if len(tokens) < 2 || !bareHousePattern.MatchString(tokens[len(tokens)-1]) {
		return "", false
	}

	rest := strings.Join(tokens[:len(tokens)-1], " ")
	if !t.hasStreetMarker(rest) {
		rest = "ул. " + rest
	}

	return " " + rest + ", д. " + canonicalToken(tokens[len(tokens)-1]), true
}

// previousSegment returns the nearest non-blank segment before i.
func previousSegment(segments []string, i int) string {
	for j := i - 1; j >= 0; j-- {
		if strings.TrimSpace(segments[j]) != "" {
			return segments[j]
		}
	}

	return ""
}

func (t *Transformer) hasStreetMarker(s string) bool {
	lower := strings.ToLower(s)
	for _, m := range t.streetMarkers {
		if strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}

	return false
}

func tidy(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = gluedAbbrev.ReplaceAllString(s, "$1. $2")
	s = spaceBeforeComma.ReplaceAllString(s, ",")
	s = repeatedCommas.ReplaceAllString(s, ",")
	s = commaSpacing.ReplaceAllString(s, ", ")

	return strings.Trim(s, " ,")
}

// capitalize upper-cases the first letter of every free-text word. Designators
// (a word followed by "." or a known street marker) keep their canonical case.
func (t *Transformer) capitalize(s string) string {
	var b strings.Builder

	b.Grow(len(s))

	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !isWordRune(r) {
			b.WriteString(s[i : i+size])
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

		word := s[i:j]
		if (j < len(s) && s[j] == '.') || t.designators[strings.ToLower(word)] {
			b.WriteString(word)
		} else {
			b.WriteString(capitalizeFirst(word))
		}

		i = j
	}

	return b.String()
}
