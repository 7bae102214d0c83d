package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"addrnorm/internal/models"
	"addrnorm/pkg/metadata"
)

func sampleResult() models.BatchResult {
	records := []models.AddressRecord{
		{ID: 1, Original: "г. Москва, ул. Тверская д. 10", Normalized: "г. Москва, ул. Тверская, д. 10", Status: models.StatusSuccess},
		{ID: 2, Original: "СПб, Невский пр-т", Normalized: "г. Санкт-Петербург, Невский пр.", Status: models.StatusWarning},
	}
	errs := []models.ErrorRecord{
		{ID: 2, Address: "СПб, Невский пр-т", Message: "house number missing", Severity: models.SeverityMedium},
	}

	return models.BatchResult{Records: records, Errors: errs, Summary: models.Summarize(records, errs)}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"csv": FormatCSV, "XLSX": FormatXLSX, "excel": FormatXLSX, "json": FormatJSON, "markdown": FormatMD} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	formats, err := ParseFormats(strings.Split("csv,,md", ","))
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatCSV, FormatMD}, formats)
}

func TestParseTable(t *testing.T) {
	table, err := ParseTable("")
	require.NoError(t, err)
	assert.Equal(t, TableResults, table)

	table, err = ParseTable("Errors")
	require.NoError(t, err)
	assert.Equal(t, TableErrors, table)

	_, err = ParseTable("summary")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()

	require.True(t, bytes.HasPrefix(data, utf8BOM), "missing BOM")

	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))).ReadAll()
	require.NoError(t, err)

	return rows
}

func TestWrite_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleResult()))

	assert.Equal(t, [][]string{
		ResultsHeader,
		{"г. Москва, ул. Тверская д. 10", "г. Москва, ул. Тверская, д. 10", "Успешно"},
		{"СПб, Невский пр-т", "г. Санкт-Петербург, Невский пр.", "Предупреждение"},
	}, readCSV(t, buf.Bytes()))

	buf.Reset()
	require.NoError(t, Write(&buf, FormatCSV, sampleResult(), WithTable(TableErrors)))

	assert.Equal(t, [][]string{
		ErrorsHeader,
		{"СПб, Невский пр-т", "house number missing", "Средняя"},
	}, readCSV(t, buf.Bytes()))
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, Write(&buf, FormatJSON, sampleResult(), WithBatchID("b1"), WithTime(now)))

	var got struct {
		Batch      string                 `json:"batch"`
		ExportedAt string                 `json:"exportedAt"`
		Records    []models.AddressRecord `json:"records"`
		Errors     []models.ErrorRecord   `json:"errors"`
		Summary    models.BatchSummary    `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "b1", got.Batch)
	assert.Equal(t, "2026-01-02T03:04:05Z", got.ExportedAt)
	assert.Len(t, got.Records, 2)
	assert.Len(t, got.Errors, 1)
	assert.Equal(t, 50, got.Summary.SuccessRate)
}

func TestWrite_JSON_EmptyBatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, models.BatchResult{}))

	assert.Contains(t, buf.String(), `"records": []`)
	assert.Contains(t, buf.String(), `"errors": []`)
}

func TestWrite_XLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, sampleResult()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Результаты", "Ошибки", "Сводка"}, f.GetSheetList())

	rows, err := f.GetRows("Результаты")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ResultsHeader, rows[0])
	assert.Equal(t, "г. Санкт-Петербург, Невский пр.", rows[2][1])

	rows, err = f.GetRows("Ошибки")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"СПб, Невский пр-т", "house number missing", "Средняя"}, rows[1])

	rows, err = f.GetRows("Сводка")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Успешность, %", "50"}, rows[3])
}

func TestWrite_Markdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatMD, sampleResult(), WithBatchID("b7")))

	report := buf.String()
	assert.Contains(t, report, "- Успешность: 50%")
	assert.Contains(t, report, "| Адрес             | Ошибка               | Критичность |")

	ok, err := metadata.Verify(report)
	require.NoError(t, err)
	assert.True(t, ok)

	meta, _ := metadata.Extract(report)
	require.NotNil(t, meta)
	assert.False(t, meta.Validation, "batch with errors must not validate")
	assert.Equal(t, "b7", meta.Batch)
}

func TestWrite_Unsupported(t *testing.T) {
	err := Write(&bytes.Buffer{}, Format("pdf"), sampleResult())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	err = Write(&bytes.Buffer{}, FormatCSV, sampleResult(), WithTable("summary"))
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestExportFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	paths, err := ExportFiles(dir, "addresses", []Format{FormatCSV, FormatXLSX, FormatMD}, sampleResult())
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "addresses_results.csv"),
		filepath.Join(dir, "addresses_errors.csv"),
		filepath.Join(dir, "addresses.xlsx"),
		filepath.Join(dir, "addresses.md"),
	}, paths)

	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size(), p)
	}

	data, err := os.ReadFile(filepath.Join(dir, "addresses_errors.csv"))
	require.NoError(t, err)
	assert.Len(t, readCSV(t, data), 2)
}
