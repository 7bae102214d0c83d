package integration

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"addrnorm/internal/export"
	"addrnorm/internal/ingest"
	"addrnorm/internal/models"
	"addrnorm/internal/normalizer"
	"addrnorm/internal/store"
	"addrnorm/pkg/metadata"
)

var wantNormalized = []string{
	"г. Москва, ул. Тверская, д. 10",
	"г. Санкт-Петербург, Невский пр.",
	"г. Екатеринбург, ул. Ленина, д. 52А",
	"г. Казань Центр",
}

func loadFixture(t *testing.T) []string {
	t.Helper()

	addresses, err := ingest.ReadFile(filepath.Join("..", "fixtures", "addresses.csv"), ingest.Options{})
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	return addresses
}

func normalizedOf(result models.BatchResult) []string {
	out := make([]string, 0, len(result.Records))
	for _, rec := range result.Records {
		out = append(out, rec.Normalized)
	}

	return out
}

func TestPipeline_CSVToReports(t *testing.T) {
	// 1. Ingestion
	addresses := loadFixture(t)
	if len(addresses) != 4 {
		t.Fatalf("Expected 4 addresses, got %d: %q", len(addresses), addresses)
	}

	// 2. Normalization
	result := normalizer.NewProcessor(normalizer.DefaultDictionary(), normalizer.WithWorkers(4)).ProcessBatch(addresses)

	if got := normalizedOf(result); !reflect.DeepEqual(got, wantNormalized) {
		t.Errorf("Normalized = %q, want %q", got, wantNormalized)
	}

	wantSummary := models.BatchSummary{Total: 4, NormalizedCount: 2, ErrorCount: 2, SuccessRate: 50}
	if result.Summary != wantSummary {
		t.Errorf("Summary = %+v, want %+v", result.Summary, wantSummary)
	}

	// 3. Export
	dir := t.TempDir()
	formats := []export.Format{export.FormatCSV, export.FormatXLSX, export.FormatJSON, export.FormatMD}

	paths, err := export.ExportFiles(dir, "addresses", formats, result, export.WithBatchID("batch-1"))
	if err != nil {
		t.Fatalf("ExportFiles failed: %v", err)
	}

	if len(paths) != 5 {
		t.Fatalf("Expected 5 files, got %d: %v", len(paths), paths)
	}

	// 4. The markdown report is signed and carries the batch id
	report, err := os.ReadFile(filepath.Join(dir, "addresses.md"))
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}

	if ok, err := metadata.Verify(string(report)); !ok || err != nil {
		t.Errorf("Verify = %v, %v; want true, nil", ok, err)
	}

	meta, _ := metadata.Extract(string(report))
	if meta == nil {
		t.Fatal("Expected metadata block in report")
	}

	if meta.Validation {
		t.Error("Expected VALIDATION: FALSE for a batch with errors")
	}

	if meta.Batch != "batch-1" {
		t.Errorf("Expected batch id batch-1, got %q", meta.Batch)
	}
}

func TestPipeline_ExportedTablesReadBack(t *testing.T) {
	result := normalizer.NewDefaultProcessor().ProcessBatch(loadFixture(t))

	dir := t.TempDir()

	paths, err := export.ExportFiles(dir, "round", []export.Format{export.FormatCSV, export.FormatXLSX}, result)
	if err != nil {
		t.Fatalf("ExportFiles failed: %v", err)
	}

	// Column 1 of the results table holds the normalized addresses.
	opts := ingest.Options{Column: 1, HasHeader: true}

	for _, name := range []string{"round_results.csv", "round.xlsx"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if !contains(paths, path) {
				t.Fatalf("Expected %s among %v", path, paths)
			}

			normalized, err := ingest.ReadFile(path, opts)
			if err != nil {
				t.Fatalf("ReadFile failed: %v", err)
			}

			if !reflect.DeepEqual(normalized, wantNormalized) {
				t.Errorf("Read back %q, want %q", normalized, wantNormalized)
			}

			// Canonical output normalizes to itself.
			again := normalizer.NewDefaultProcessor().ProcessBatch(normalized)
			if got := normalizedOf(again); !reflect.DeepEqual(got, wantNormalized) {
				t.Errorf("Renormalized = %q, want %q", got, wantNormalized)
			}
		})
	}
}

func TestPipeline_ArchiveRoundTrip(t *testing.T) {
	result := normalizer.NewDefaultProcessor().ProcessBatch(loadFixture(t))

	batches, err := store.Open(filepath.Join(t.TempDir(), "batches.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer batches.Close()

	ctx := context.Background()

	id, err := batches.Save(ctx, "addresses.csv", result)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entry, err := batches.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if !reflect.DeepEqual(entry.Result, result) {
		t.Errorf("Archived result = %+v, want %+v", entry.Result, result)
	}

	if entry.Source != "addresses.csv" {
		t.Errorf("Expected source addresses.csv, got %q", entry.Source)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}

	return false
}
