package normalizer

import (
	"regexp"
	"testing"
)

func TestScanReplace(t *testing.T) {
	re := regexp.MustCompile(`(?i)пр`)
	repl := func(string, []int) string { return "пр." }

	tests := map[string]string{
		"невский пр": "невский пр.",
		"проспект":   "проспект",
		"пр-т":       "пр-т",
		"спр пр":     "спр пр.",
		"пр,пр":      "пр.,пр.",
		"":           "",
	}

	for in, want := range tests {
		if got := scanReplace(in, re, 0, repl); got != want {
			t.Errorf("scanReplace(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKeyPattern(t *testing.T) {
	tests := map[string]string{
		"Москва":           "москва",
		"нижний  новгород": `нижний\s+новгород`,
		"ул.":              `ул\.`,
	}

	for in, want := range tests {
		if got := keyPattern(in); got != want {
			t.Errorf("keyPattern(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCapitalizeFirst(t *testing.T) {
	tests := map[string]string{
		"ленина": "Ленина",
		"Ленина": "Ленина",
		"10":     "10",
		"":       "",
	}

	for in, want := range tests {
		if got := capitalizeFirst(in); got != want {
			t.Errorf("capitalizeFirst(%q) = %q, want %q", in, got, want)
		}
	}
}
