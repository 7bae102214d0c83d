// Package export writes batch results as CSV, XLSX, JSON and signed markdown reports.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"addrnorm/internal/models"
)

// Export errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrUnknownTable      = errors.New("unknown table")
)

// Format is an export file format.
type Format string

// Supported export formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
	FormatMD   Format = "md"
)

// Table selects which table a single-table format (CSV) writes.
type Table string

// Tables.
const (
	TableResults Table = "results"
	TableErrors  Table = "errors"
)

// Column headers and sheet names of exported reports.
var (
	ResultsHeader = []string{"Исходный адрес", "Нормализованный адрес", "Статус"}
	ErrorsHeader  = []string{"Адрес", "Ошибка", "Критичность"}
)

const (
	sheetResults = "Результаты"
	sheetErrors  = "Ошибки"
	sheetSummary = "Сводка"
)

// ParseFormat maps a format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatCSV, FormatXLSX, FormatJSON, FormatMD:
		return f, nil
	case "excel":
		return FormatXLSX, nil
	case "markdown":
		return FormatMD, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// ParseFormats parses a list of format names, e.g. from a comma-separated flag.
func ParseFormats(names []string) ([]Format, error) {
	formats := make([]Format, 0, len(names))

	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}

		f, err := ParseFormat(name)
		if err != nil {
			return nil, err
		}

		formats = append(formats, f)
	}

	return formats, nil
}

// ParseTable maps a table name to a Table. An empty name selects results.
func ParseTable(name string) (Table, error) {
	switch t := Table(strings.ToLower(strings.TrimSpace(name))); t {
	case "", TableResults:
		return TableResults, nil
	case TableErrors:
		return TableErrors, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownTable, name)
}

// ContentType returns the MIME type of a format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatJSON:
		return "application/json; charset=utf-8"
	case FormatMD:
		return "text/markdown; charset=utf-8"
	}

	return "application/octet-stream"
}

// Extension returns the file extension of a format, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// Option configures an export.
type Option func(*options)

type options struct {
	table   Table
	batchID string
	now     time.Time
}

// WithTable selects the table written by single-table formats.
func WithTable(t Table) Option {
	return func(o *options) {
		o.table = t
	}
}

// WithBatchID records the archive id of the batch in reports.
func WithBatchID(id string) Option {
	return func(o *options) {
		o.batchID = id
	}
}

// WithTime fixes the export timestamp.
func WithTime(t time.Time) Option {
	return func(o *options) {
		o.now = t
	}
}

func newOptions(opts []Option) options {
	o := options{table: TableResults, now: time.Now()}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Write writes result to w in the given format.
func Write(w io.Writer, format Format, result models.BatchResult, opts ...Option) error {
	o := newOptions(opts)

	switch format {
	case FormatCSV:
		return writeCSV(w, o.table, result)
	case FormatXLSX:
		return writeXLSX(w, result)
	case FormatJSON:
		return writeJSON(w, result, o)
	case FormatMD:
		return writeMarkdown(w, result, o)
	}

	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// ExportFiles writes result into dir in every requested format and returns the
// created paths. CSV produces <base>_results.csv and <base>_errors.csv, the
// other formats a single <base>.<ext>.
func ExportFiles(dir, base string, formats []Format, result models.BatchResult, opts ...Option) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var paths []string

	for _, format := range formats {
		if format == FormatCSV {
			for _, table := range []Table{TableResults, TableErrors} {
				path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", base, table))
				if err := writeFile(path, format, result, append(opts, WithTable(table))); err != nil {
					return paths, err
				}

				paths = append(paths, path)
			}

			continue
		}

		path := filepath.Join(dir, base+"."+format.Extension())
		if err := writeFile(path, format, result, opts); err != nil {
			return paths, err
		}

		paths = append(paths, path)
	}

	return paths, nil
}

func writeFile(path string, format Format, result models.BatchResult, opts []Option) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
	}()

	if err := Write(f, format, result, opts...); err != nil {
		return fmt.Errorf("failed to export %s: %w", path, err)
	}

	return nil
}

func resultRows(result models.BatchResult) [][]string {
	rows := make([][]string, 0, len(result.Records))
	for _, rec := range result.Records {
		rows = append(rows, []string{rec.Original, rec.Normalized, rec.Status.Label()})
	}

	return rows
}

func errorRows(result models.BatchResult) [][]string {
	rows := make([][]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		rows = append(rows, []string{e.Address, e.Message, e.Severity.Label()})
	}

	return rows
}

func summaryRows(s models.BatchSummary) [][]any {
	return [][]any{
		{"Всего адресов", s.Total},
		{"Нормализовано", s.NormalizedCount},
		{"Ошибок", s.ErrorCount},
		{"Успешность, %", s.SuccessRate},
	}
}
