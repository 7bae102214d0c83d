package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"addrnorm/internal/formatter"
	"addrnorm/internal/models"
	"addrnorm/pkg/metadata"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// writeCSV writes one table with a BOM so spreadsheet tools detect UTF-8.
func writeCSV(w io.Writer, table Table, result models.BatchResult) error {
	var (
		header []string
		rows   [][]string
	)

	switch table {
	case TableResults:
		header, rows = ResultsHeader, resultRows(result)
	case TableErrors:
		header, rows = ErrorsHeader, errorRows(result)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}

	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(w)

	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}

	return nil
}

func writeXLSX(w io.Writer, result models.BatchResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetResults); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	for _, name := range []string{sheetErrors, sheetSummary} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := fillSheet(f, sheetResults, ResultsHeader, resultRows(result), headerStyle, []float64{45, 50, 18}); err != nil {
		return err
	}

	if err := fillSheet(f, sheetErrors, ErrorsHeader, errorRows(result), headerStyle, []float64{45, 30, 15}); err != nil {
		return err
	}

	for i, row := range summaryRows(result.Summary) {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	if err := f.SetColWidth(sheetSummary, "A", "A", 20); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}

	return nil
}

func fillSheet(f *excelize.File, sheet string, header []string, rows [][]string, headerStyle int, widths []float64) error {
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	return nil
}

type jsonReport struct {
	Batch      string                 `json:"batch,omitempty"`
	ExportedAt string                 `json:"exportedAt"`
	Records    []models.AddressRecord `json:"records"`
	Errors     []models.ErrorRecord   `json:"errors"`
	Summary    models.BatchSummary    `json:"summary"`
}

func writeJSON(w io.Writer, result models.BatchResult, o options) error {
	report := jsonReport{
		Batch:      o.batchID,
		ExportedAt: o.now.UTC().Format(time.RFC3339),
		Records:    result.Records,
		Errors:     result.Errors,
		Summary:    result.Summary,
	}

	if report.Records == nil {
		report.Records = []models.AddressRecord{}
	}

	if report.Errors == nil {
		report.Errors = []models.ErrorRecord{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// writeMarkdown renders a summary and both tables, signed with the batch id.
// The report validates when the batch has no errors.
func writeMarkdown(w io.Writer, result models.BatchResult, o options) error {
	var sb strings.Builder

	s := result.Summary

	sb.WriteString("# Отчёт о нормализации адресов\n\n")
	fmt.Fprintf(&sb, "- Всего адресов: %d\n", s.Total)
	fmt.Fprintf(&sb, "- Нормализовано: %d\n", s.NormalizedCount)
	fmt.Fprintf(&sb, "- Ошибок: %d\n", s.ErrorCount)
	fmt.Fprintf(&sb, "- Успешность: %d%%\n\n", s.SuccessRate)

	fmt.Fprintf(&sb, "## %s\n\n%s\n\n", sheetResults, formatter.RenderTable(ResultsHeader, resultRows(result)))
	fmt.Fprintf(&sb, "## %s\n\n%s\n", sheetErrors, formatter.RenderTable(ErrorsHeader, errorRows(result)))

	signed := metadata.SignAt(sb.String(), len(result.Errors) == 0, o.batchID, o.now)

	if _, err := io.WriteString(w, signed+"\n"); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
