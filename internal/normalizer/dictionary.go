package normalizer

import (
	"errors"
	"fmt"
	"strings"
)

// Dictionary errors.
var (
	ErrEmptyDictionaryKey       = errors.New("dictionary entry key is empty")
	ErrEmptyDictionaryCanonical = errors.New("dictionary entry canonical is empty")
)

// DictionaryEntry maps one textual variant to its canonical form.
type DictionaryEntry struct {
	Key       string `yaml:"key" json:"key"`
	Canonical string `yaml:"canonical" json:"canonical"`
}

// Dictionary holds the ordered synonym lists. Entries are applied in list
// order, so a later entry sees the text produced by earlier ones.
type Dictionary struct {
	Cities      []DictionaryEntry `yaml:"cities" json:"cities"`
	StreetTypes []DictionaryEntry `yaml:"street_types" json:"streetTypes"`
}

// DefaultDictionary returns a fresh copy of the built-in dictionary.
func DefaultDictionary() Dictionary {
	return Dictionary{
		Cities: []DictionaryEntry{
			{Key: "спб", Canonical: "г. Санкт-Петербург"},
			{Key: "санкт-петербург", Canonical: "г. Санкт-Петербург"},
			{Key: "питер", Canonical: "г. Санкт-Петербург"},
			{Key: "москва", Canonical: "г. Москва"},
			{Key: "мск", Canonical: "г. Москва"},
			{Key: "екатеринбург", Canonical: "г. Екатеринбург"},
			{Key: "екб", Canonical: "г. Екатеринбург"},
			{Key: "новосибирск", Canonical: "г. Новосибирск"},
			{Key: "нск", Canonical: "г. Новосибирск"},
			{Key: "казань", Canonical: "г. Казань"},
			{Key: "нижний новгород", Canonical: "г. Нижний Новгород"},
			{Key: "челябинск", Canonical: "г. Челябинск"},
			{Key: "самара", Canonical: "г. Самара"},
			{Key: "омск", Canonical: "г. Омск"},
			{Key: "ростов-на-дону", Canonical: "г. Ростов-на-Дону"},
			{Key: "уфа", Canonical: "г. Уфа"},
			{Key: "красноярск", Canonical: "г. Красноярск"},
			{Key: "пермь", Canonical: "г. Пермь"},
			{Key: "воронеж", Canonical: "г. Воронеж"},
			{Key: "волгоград", Canonical: "г. Волгоград"},
		},
		StreetTypes: []DictionaryEntry{
			{Key: "ул", Canonical: "ул."},
			{Key: "улица", Canonical: "ул."},
			{Key: "пр-т", Canonical: "пр."},
			{Key: "проспект", Canonical: "пр."},
			{Key: "пр", Canonical: "пр."},
			{Key: "пер", Canonical: "пер."},
			{Key: "переулок", Canonical: "пер."},
			{Key: "ш", Canonical: "ш."},
			{Key: "шоссе", Canonical: "ш."},
			{Key: "наб", Canonical: "наб."},
			{Key: "набережная", Canonical: "наб."},
			{Key: "пл", Canonical: "пл."},
			{Key: "площадь", Canonical: "пл."},
			{Key: "б-р", Canonical: "б-р"},
			{Key: "бульвар", Canonical: "б-р"},
		},
	}
}

// Validate checks that every entry has a key and a canonical value. Cities
// are checked before street types, so the first bad entry is always reported.
func (d Dictionary) Validate() error {
	lists := []struct {
		name    string
		entries []DictionaryEntry
	}{
		{"cities", d.Cities},
		{"street_types", d.StreetTypes},
	}

	for _, list := range lists {
		for i, e := range list.entries {
			if strings.TrimSpace(e.Key) == "" {
				return fmt.Errorf("%w: %s[%d]", ErrEmptyDictionaryKey, list.name, i)
			}

			if strings.TrimSpace(e.Canonical) == "" {
				return fmt.Errorf("%w: %s[%d]", ErrEmptyDictionaryCanonical, list.name, i)
			}
		}
	}

	return nil
}

// StreetMarkers returns the distinct canonical street-type values in list order.
func (d Dictionary) StreetMarkers() []string {
	seen := make(map[string]bool, len(d.StreetTypes))

	var markers []string

	for _, e := range d.StreetTypes {
		if seen[e.Canonical] {
			continue
		}

		seen[e.Canonical] = true
		markers = append(markers, e.Canonical)
	}

	return markers
}
