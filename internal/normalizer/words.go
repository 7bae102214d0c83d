package normalizer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// isWordRune reports whether r belongs to a word for boundary purposes.
// Hyphen is included so that compound tokens like "пр-т" or "ростов-на-дону"
// are never split by a shorter key.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-'
}

// replaceFunc builds the replacement for one accepted match. loc is a
// submatch index slice relative to s.
type replaceFunc func(s string, loc []int) string

// scanReplace replaces every match of re in s whose word span is bounded.
// The left boundary is checked at the start of submatch group, the right one
// at the end of the whole match. A rejected match does not hide a later
// overlapping candidate: scanning resumes one rune after the rejected start.
func scanReplace(s string, re *regexp.Regexp, group int, fn replaceFunc) string {
	var b strings.Builder

	pos := 0
	written := 0

	for pos <= len(s) {
		rel := re.FindStringSubmatchIndex(s[pos:])
		if rel == nil {
			break
		}

		loc := make([]int, len(rel))
		for i, v := range rel {
			if v >= 0 {
				loc[i] = v + pos
			} else {
				loc[i] = -1
			}
		}

		left := loc[2*group]
		if left < 0 {
			left = loc[0]
		}

		if loc[1] > loc[0] && boundedLeft(s, left) && boundedRight(s, loc[1]) {
			b.WriteString(s[written:loc[0]])
			b.WriteString(fn(s, loc))

			written = loc[1]
			pos = loc[1]

			continue
		}

		if loc[0] >= len(s) {
			break
		}

		_, size := utf8.DecodeRuneInString(s[loc[0]:])
		pos = loc[0] + size
	}

	if written == 0 {
		return s
	}

	b.WriteString(s[written:])

	return b.String()
}

// boundedLeft reports whether a word starting at i is not glued to a preceding word rune.
func boundedLeft(s string, i int) bool {
	if i <= 0 || i >= len(s) {
		return true
	}

	first, _ := utf8.DecodeRuneInString(s[i:])
	prev, _ := utf8.DecodeLastRuneInString(s[:i])

	return !isWordRune(first) || !isWordRune(prev)
}

// boundedRight reports whether a word ending at i is not glued to a following word rune.
func boundedRight(s string, i int) bool {
	if i <= 0 || i >= len(s) {
		return true
	}

	last, _ := utf8.DecodeLastRuneInString(s[:i])
	next, _ := utf8.DecodeRuneInString(s[i:])

	return !isWordRune(last) || !isWordRune(next)
}

// keyPattern turns a dictionary key into a case-insensitive regexp fragment.
// Runs of spaces inside the key match any run of whitespace.
func keyPattern(key string) string {
	fields := strings.Fields(strings.ToLower(key))
	for i, f := range fields {
		fields[i] = regexp.QuoteMeta(f)
	}

	return strings.Join(fields, `\s+`)
}

// capitalizeFirst upper-cases the first rune of w.
func capitalizeFirst(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	if r == utf8.RuneError || !unicode.IsLower(r) {
		return w
	}

	return string(unicode.ToUpper(r)) + w[size:]
}
