package normalizer

import (
	"fmt"
	"reflect"
	"testing"

	"addrnorm/internal/models"
)

func TestNewDefaultProcessor(t *testing.T) {
	p := NewDefaultProcessor()
	if p == nil {
		t.Fatal("NewDefaultProcessor returned nil")
	}

	if p.workers != 1 {
		t.Errorf("workers = %d, want 1", p.workers)
	}
}

func TestProcessor_ProcessBatch_Scenarios(t *testing.T) {
	p := NewDefaultProcessor()

	result := p.ProcessBatch([]string{
		"г. Москва, ул. Тверская д. 10",
		"СПб, Невский пр-т",
		"",
		"Екатеринбург, Ленина 52a",
		"Казань центр",
	})

	wantRecords := []models.AddressRecord{
		{ID: 1, Original: "г. Москва, ул. Тверская д. 10", Normalized: "г. Москва, ул. Тверская, д. 10", Status: models.StatusSuccess},
		{ID: 2, Original: "СПб, Невский пр-т", Normalized: "г. Санкт-Петербург, Невский пр.", Status: models.StatusWarning},
		{ID: 3, Original: "Екатеринбург, Ленина 52a", Normalized: "г. Екатеринбург, ул. Ленина, д. 52А", Status: models.StatusSuccess},
		{ID: 4, Original: "Казань центр", Normalized: "г. Казань Центр", Status: models.StatusWarning},
	}

	if !reflect.DeepEqual(result.Records, wantRecords) {
		t.Errorf("Records = %+v, want %+v", result.Records, wantRecords)
	}

	wantErrors := []models.ErrorRecord{
		{ID: 2, Address: "СПб, Невский пр-т", Message: "house number missing", Severity: models.SeverityMedium},
		{ID: 4, Address: "Казань центр", Message: "street type missing", Severity: models.SeverityMedium},
	}

	if !reflect.DeepEqual(result.Errors, wantErrors) {
		t.Errorf("Errors = %+v, want %+v", result.Errors, wantErrors)
	}

	wantSummary := models.BatchSummary{Total: 4, NormalizedCount: 2, ErrorCount: 2, SuccessRate: 50}
	if result.Summary != wantSummary {
		t.Errorf("Summary = %+v, want %+v", result.Summary, wantSummary)
	}
}

func TestProcessor_ProcessBatch_Empty(t *testing.T) {
	p := NewDefaultProcessor()

	tests := map[string][]string{
		"Nil input":  nil,
		"Blank rows": {"", "   ", "\t"},
	}

	for name, raws := range tests {
		t.Run(name, func(t *testing.T) {
			result := p.ProcessBatch(raws)

			if len(result.Records) != 0 {
				t.Errorf("Records = %d, want 0", len(result.Records))
			}

			if result.Errors == nil {
				t.Error("Errors is nil, want empty slice")
			}

			if result.Summary != (models.BatchSummary{}) {
				t.Errorf("Summary = %+v, want zero", result.Summary)
			}
		})
	}
}

func TestProcessor_ProcessBatch_SuccessRateRounding(t *testing.T) {
	p := NewDefaultProcessor()

	result := p.ProcessBatch([]string{
		"г. Москва, ул. Тверская д. 10",
		"Екатеринбург, Ленина 52a",
		"Казань центр",
	})

	if result.Summary.SuccessRate != 67 {
		t.Errorf("SuccessRate = %d, want 67", result.Summary.SuccessRate)
	}
}

func TestProcessor_ProcessBatch_HighSeverityIsError(t *testing.T) {
	p := NewDefaultProcessor()

	result := p.ProcessBatch([]string{"ул. ленина 5"})

	if len(result.Records) != 1 || result.Records[0].Status != models.StatusError {
		t.Fatalf("Records = %+v, want one error record", result.Records)
	}

	if result.Records[0].Normalized != "ул. Ленина, д. 5" {
		t.Errorf("Normalized = %q, want %q", result.Records[0].Normalized, "ул. Ленина, д. 5")
	}

	if len(result.Errors) != 1 || result.Errors[0].Severity != models.SeverityHigh {
		t.Errorf("Errors = %+v, want one high severity error", result.Errors)
	}
}

// Every record is either successful or has exactly one error with the same id.
func TestProcessor_ProcessBatch_Consistency(t *testing.T) {
	p := NewDefaultProcessor()

	result := p.ProcessBatch(sampleAddresses(40))

	for i, rec := range result.Records {
		if rec.ID != i+1 {
			t.Errorf("Records[%d].ID = %d, want %d", i, rec.ID, i+1)
		}

		errRec, hasErr := result.ErrorFor(rec.ID)
		if (rec.Status == models.StatusSuccess) == hasErr {
			t.Errorf("record %d: status %s, has error %v", rec.ID, rec.Status, hasErr)
		}

		if hasErr && errRec.Address != rec.Original {
			t.Errorf("error %d: Address = %q, want %q", rec.ID, errRec.Address, rec.Original)
		}
	}

	counts := result.CountByStatus()
	if counts[models.StatusSuccess]+len(result.Errors) != result.Summary.Total {
		t.Errorf("success %d + errors %d != total %d",
			counts[models.StatusSuccess], len(result.Errors), result.Summary.Total)
	}
}

func TestProcessor_ProcessBatch_ParallelMatchesSequential(t *testing.T) {
	raws := sampleAddresses(200)

	sequential := NewDefaultProcessor().ProcessBatch(raws)
	parallel := NewProcessor(DefaultDictionary(), WithWorkers(8)).ProcessBatch(raws)

	if !reflect.DeepEqual(sequential, parallel) {
		t.Error("parallel result differs from sequential result")
	}
}

func TestProcessor_ProcessBatch_Progress(t *testing.T) {
	var calls []int

	p := NewProcessor(DefaultDictionary(),
		WithWorkers(4),
		WithProgress(func(done, total int) {
			if total != 10 {
				t.Errorf("total = %d, want 10", total)
			}

			calls = append(calls, done)
		}),
	)

	raws := sampleAddresses(10)
	raws = append(raws, "", "  ")

	p.ProcessBatch(raws)

	if len(calls) != 10 {
		t.Fatalf("progress called %d times, want 10", len(calls))
	}

	for i, done := range calls {
		if done != i+1 {
			t.Errorf("call %d: done = %d, want %d", i, done, i+1)
		}
	}
}

func TestProcessor_ProcessOne(t *testing.T) {
	p := NewDefaultProcessor()

	rec, errRec := p.ProcessOne(7, "г. Москва, ул. Тверская д. 10")
	if errRec != nil {
		t.Errorf("ProcessOne() error = %+v, want nil", errRec)
	}

	if rec.ID != 7 || rec.Status != models.StatusSuccess {
		t.Errorf("ProcessOne() = %+v", rec)
	}

	_, errRec = p.ProcessOne(8, "СПб, Невский пр-т")
	if errRec == nil || errRec.ID != 8 {
		t.Errorf("ProcessOne() error = %+v, want record with id 8", errRec)
	}
}

func TestProcessor_WithFuzzyMatching(t *testing.T) {
	raw := "екатеринбурк, ленина 5"

	plain := NewDefaultProcessor()
	if got := plain.Normalize(raw); got == "г. Екатеринбург, ул. Ленина, д. 5" {
		t.Errorf("Normalize(%q) matched a misspelling without fuzzy matching", raw)
	}

	fuzzy := NewProcessor(DefaultDictionary(), WithFuzzyMatching(DefaultFuzzyThreshold, DefaultFuzzyMinWordLength))

	rec, errRec := fuzzy.ProcessOne(1, raw)
	if rec.Normalized != "г. Екатеринбург, ул. Ленина, д. 5" {
		t.Errorf("Normalized = %q, want %q", rec.Normalized, "г. Екатеринбург, ул. Ленина, д. 5")
	}

	if errRec != nil {
		t.Errorf("error = %+v, want nil", errRec)
	}
}

func sampleAddresses(n int) []string {
	templates := []string{
		"г. Москва, ул. Тверская д. %d",
		"СПб, Невский пр-т",
		"Екатеринбург, Ленина %da",
		"Казань центр",
		"ул. ленина %d",
		"мск, проспект мира д %d стр 2",
		"",
	}

	raws := make([]string, 0, n)
	for i := 0; len(raws) < n; i++ {
		tpl := templates[i%len(templates)]
		if tpl == "" {
			continue
		}

		if i%len(templates) == 1 || i%len(templates) == 3 {
			raws = append(raws, tpl)

			continue
		}

		raws = append(raws, fmt.Sprintf(tpl, i+1))
	}

	return raws
}
