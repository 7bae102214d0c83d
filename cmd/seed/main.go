// Package main provides the seed command-line tool that generates sample address files
// for demos and load tests.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/xuri/excelize/v2"

	"addrnorm/internal/ingest"
	"addrnorm/internal/normalizer"
)

var streetNames = []string{
	"Ленина", "Тверская", "Пушкина", "Гагарина", "Мира", "Советская", "Садовая",
	"Лесная", "Школьная", "Невский", "Кирова", "Молодёжная", "Центральная", "Победы",
	"Чехова", "Комсомольская", "Зелёная", "Набережная", "Первомайская", "Строителей",
}

var streetTypes = map[string][]string{
	"ул.":  {"ул.", "ул", "улица", "УЛ"},
	"пр.":  {"пр.", "пр", "пр-т", "проспект"},
	"пер.": {"пер.", "пер", "переулок"},
	"ш.":   {"ш.", "шоссе"},
	"наб.": {"наб.", "наб", "набережная"},
	"пл.":  {"пл.", "площадь"},
	"б-р":  {"б-р", "бульвар"},
}

var canonicalTypes = []string{"ул.", "ул.", "ул.", "пр.", "пер.", "ш.", "наб.", "пл.", "б-р"}

func main() {
	output := flag.String("output", "data/addresses.csv", "Output file; format follows the extension (.csv, .xlsx, .json, .txt)")
	count := flag.Int("count", 1000, "Number of addresses")
	noise := flag.Float64("noise", 0.5, "Share of noisy addresses, 0..1")
	defects := flag.Float64("defects", 0.1, "Share of addresses missing a street type or house number, 0..1")
	seed := flag.Int64("seed", 0, "Random seed (0 = random)")
	flag.Parse()

	if *count <= 0 || *noise < 0 || *noise > 1 || *defects < 0 || *defects > 1 {
		fmt.Println("Usage: seed -output <file> -count N -noise 0..1 -defects 0..1")
		flag.PrintDefaults()
		os.Exit(1)
	}

	format, err := ingest.DetectFormat(*output)
	if err != nil {
		log.Fatalf("❌ %v\n", err)
	}

	gen := newGenerator(*seed, normalizer.DefaultDictionary())
	addresses := make([]string, *count)

	for i := range addresses {
		addresses[i] = gen.address(gen.faker.Float64() < *noise, gen.faker.Float64() < *defects)
	}

	if err := os.MkdirAll(filepath.Dir(*output), 0755); err != nil {
		log.Fatalf("❌ Error creating directory: %v\n", err)
	}

	if err := write(*output, format, addresses); err != nil {
		log.Fatalf("❌ Error writing file: %v\n", err)
	}

	fmt.Printf("✅ Generated %d addresses in %s\n", len(addresses), *output)
}

type generator struct {
	faker  *gofakeit.Faker
	cities map[string][]string
	names  []string
}

func newGenerator(seed int64, dict normalizer.Dictionary) *generator {
	g := &generator{
		faker:  gofakeit.New(seed),
		cities: make(map[string][]string),
	}

	for _, e := range dict.Cities {
		if _, ok := g.cities[e.Canonical]; !ok {
			g.names = append(g.names, e.Canonical)
		}

		g.cities[e.Canonical] = append(g.cities[e.Canonical], e.Key)
	}

	return g
}

// address builds one address. Clean addresses are already canonical; noisy
// ones use aliases, odd casing, missing punctuation and typos.
func (g *generator) address(noisy, defective bool) string {
	city := g.faker.RandomString(g.names)
	street := g.faker.RandomString(streetNames)
	kind := g.faker.RandomString(canonicalTypes)
	house := fmt.Sprint(g.faker.Number(1, 250))

	if g.faker.Number(1, 6) == 1 {
		house += g.faker.RandomString([]string{"а", "б", "к1", "/2"})
	}

	dropType, dropHouse := false, false
	if defective {
		dropType = g.faker.Bool()
		dropHouse = !dropType
	}

	if !noisy {
		parts := []string{city}

		if dropType {
			parts = append(parts, street)
		} else {
			parts = append(parts, kind+" "+street)
		}

		if !dropHouse {
			parts = append(parts, "д. "+house)
		}

		return strings.Join(parts, ", ")
	}

	cityText := g.faker.RandomString(g.cities[city])
	if g.faker.Number(1, 4) == 1 {
		cityText = typo(g.faker, cityText)
	}

	var sb strings.Builder

	sb.WriteString(cityText)
	sb.WriteString(g.faker.RandomString([]string{", ", " ", ",", "  "}))

	if !dropType {
		sb.WriteString(g.faker.RandomString(streetTypes[kind]))
		sb.WriteString(" ")
	}

	sb.WriteString(strings.ToLower(street))

	if !dropHouse {
		sb.WriteString(g.faker.RandomString([]string{" ", ", ", " д ", " д.", ", дом "}))
		sb.WriteString(house)
	}

	out := sb.String()

	switch g.faker.Number(1, 5) {
	case 1:
		out = strings.ToUpper(out)
	case 2:
		out = "  " + out + " "
	}

	return out
}

// typo swaps two adjacent letters in words long enough to be fuzzy-matched back.
func typo(f *gofakeit.Faker, word string) string {
	runes := []rune(word)
	if len(runes) < 6 {
		return word
	}

	i := f.Number(1, len(runes)-3)
	runes[i], runes[i+1] = runes[i+1], runes[i]

	return string(runes)
}

func write(path string, format ingest.Format, addresses []string) error {
	switch format {
	case ingest.FormatCSV:
		return writeCSV(path, addresses)
	case ingest.FormatXLSX:
		return writeXLSX(path, addresses)
	case ingest.FormatJSON:
		data, err := json.MarshalIndent(addresses, "", "  ")
		if err != nil {
			return err
		}

		return os.WriteFile(path, data, 0644)
	}

	return os.WriteFile(path, []byte(strings.Join(addresses, "\n")+"\n"), 0644)
}

func writeCSV(path string, addresses []string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	w.Comma = ';'

	if err := w.Write([]string{"№", "Адрес"}); err != nil {
		return err
	}

	for i, addr := range addresses {
		if err := w.Write([]string{fmt.Sprint(i + 1), addr}); err != nil {
			return err
		}
	}

	w.Flush()

	return w.Error()
}

func writeXLSX(path string, addresses []string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"

	if err := f.SetSheetRow(sheet, "A1", &[]any{"Адрес"}); err != nil {
		return err
	}

	for i, addr := range addresses {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		if err := f.SetCellStr(sheet, cell, addr); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 60); err != nil {
		return err
	}

	return f.SaveAs(path)
}
