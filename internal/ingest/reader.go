// Package ingest reads raw addresses from CSV, XLSX, JSON and plain text
// sources, local or remote.
package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Ingestion errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported input format")
	ErrInputTooLarge     = errors.New("input exceeds size limit")
	ErrNoSheets          = errors.New("workbook has no sheets")
	ErrInvalidJSON       = errors.New("json input must be an array of strings or objects with an address field")
)

// Format is an input file format.
type Format string

// Supported input formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
	FormatTXT  Format = "txt"
)

// DefaultMaxBytes caps inputs when Options.MaxBytes is not set.
const DefaultMaxBytes int64 = 20 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options controls column selection and limits.
type Options struct {
	// Column is the zero-based address column used when no header names one.
	Column int
	// HasHeader skips the first row even when it has no recognizable address header.
	HasHeader bool
	// MaxBytes limits the input size. Zero means DefaultMaxBytes.
	MaxBytes int64
}

func (o Options) maxBytes() int64 {
	if o.MaxBytes > 0 {
		return o.MaxBytes
	}

	return DefaultMaxBytes
}

// ParseFormat maps a format name or file extension to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".") {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	case "json":
		return FormatJSON, nil
	case "txt", "text":
		return FormatTXT, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// DetectFormat infers the format from a file name's extension.
func DetectFormat(name string) (Format, error) {
	return ParseFormat(filepath.Ext(name))
}

// ReadFile reads addresses from a local file, choosing the format by extension.
func ReadFile(path string, opts Options) ([]string, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file %s: %w", path, err)
	}
	defer f.Close()

	return Read(f, format, opts)
}

// Read reads addresses in the given format. Rows without an address are skipped.
func Read(r io.Reader, format Format, opts Options) ([]string, error) {
	limit := opts.maxBytes()

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrInputTooLarge, limit)
	}

	return Parse(data, format, opts)
}

// Parse extracts addresses from an in-memory document.
func Parse(data []byte, format Format, opts Options) ([]string, error) {
	switch format {
	case FormatXLSX:
		return parseXLSX(data, opts)
	case FormatCSV:
		return parseCSV(decodeText(data), opts)
	case FormatJSON:
		return parseJSON(decodeText(data))
	case FormatTXT:
		return parseLines(decodeText(data)), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// decodeText strips a UTF-8 BOM and decodes Windows-1251 input, which is
// what spreadsheet tools on Russian locales usually save.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data)
	}

	decoded, _, err := transform.Bytes(charmap.Windows1251.NewDecoder(), data)
	if err != nil {
		return string(data)
	}

	return string(decoded)
}

func parseXLSX(data []byte, opts Options) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	return selectColumn(rows, opts), nil
}

func parseCSV(text string, opts Options) ([]string, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = detectDelimiter(text, opts)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	return selectColumn(rows, opts), nil
}

// singleColumn never occurs in text input; it makes every line one field.
const singleColumn = '\x1f'

// detectDelimiter picks the separator from the first line. Addresses contain
// commas themselves, so a comma only separates columns when the first line
// is a header naming an address column or a later column is requested.
func detectDelimiter(text string, opts Options) rune {
	first, _, _ := strings.Cut(text, "\n")

	switch {
	case strings.Contains(first, ";"):
		return ';'
	case strings.Contains(first, "\t"):
		return '\t'
	case strings.Contains(first, ","):
		if opts.Column > 0 || headerColumn(strings.Split(first, ",")) >= 0 {
			return ','
		}
	}

	return singleColumn
}

// headerColumn returns the index of the address header cell, or -1.
func headerColumn(row []string) int {
	for i, cell := range row {
		name := strings.ToLower(strings.Trim(strings.TrimSpace(cell), `"`))
		if name == "адрес" || name == "address" ||
			strings.HasPrefix(name, "адрес ") || strings.HasPrefix(name, "address ") {
			return i
		}
	}

	return -1
}

func selectColumn(rows [][]string, opts Options) []string {
	if len(rows) == 0 {
		return nil
	}

	column := opts.Column
	if idx := headerColumn(rows[0]); idx >= 0 {
		column = idx
		rows = rows[1:]
	} else if opts.HasHeader {
		rows = rows[1:]
	}

	addresses := make([]string, 0, len(rows))
	for _, row := range rows {
		if column >= len(row) {
			continue
		}

		if cell := strings.TrimSpace(row[column]); cell != "" {
			addresses = append(addresses, cell)
		}
	}

	return addresses
}

func parseLines(text string) []string {
	lines := strings.Split(text, "\n")

	addresses := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			addresses = append(addresses, line)
		}
	}

	return addresses
}

// parseJSON accepts ["...", ...], [{"address": "..."}, ...] or {"addresses": [...]}.
func parseJSON(text string) ([]string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		var wrapped struct {
			Addresses []json.RawMessage `json:"addresses"`
		}

		if err := json.Unmarshal([]byte(text), &wrapped); err != nil || wrapped.Addresses == nil {
			return nil, ErrInvalidJSON
		}

		items = wrapped.Addresses
	}

	addresses := make([]string, 0, len(items))
	for i, item := range items {
		addr, err := jsonAddress(item)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d", err, i)
		}

		if addr = strings.TrimSpace(addr); addr != "" {
			addresses = append(addresses, addr)
		}
	}

	return addresses, nil
}

func jsonAddress(item json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		return s, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(item, &obj); err != nil {
		return "", ErrInvalidJSON
	}

	for key, v := range obj {
		if headerColumn([]string{key}) == 0 {
			s, _ := v.(string)

			return s, nil
		}
	}

	return "", nil
}
