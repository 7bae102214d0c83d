package models

import "testing"

func TestSummarize(t *testing.T) {
	tests := []struct {
		name    string
		records []AddressRecord
		errs    []ErrorRecord
		want    BatchSummary
	}{
		{
			name: "Empty batch",
			want: BatchSummary{},
		},
		{
			name: "All successful",
			records: []AddressRecord{
				{ID: 1, Status: StatusSuccess},
				{ID: 2, Status: StatusSuccess},
			},
			want: BatchSummary{Total: 2, NormalizedCount: 2, SuccessRate: 100},
		},
		{
			name: "Two of three rounds up",
			records: []AddressRecord{
				{ID: 1, Status: StatusSuccess},
				{ID: 2, Status: StatusSuccess},
				{ID: 3, Status: StatusWarning},
			},
			errs: []ErrorRecord{{ID: 3, Severity: SeverityMedium}},
			want: BatchSummary{Total: 3, NormalizedCount: 2, ErrorCount: 1, SuccessRate: 67},
		},
		{
			name: "One of three rounds down",
			records: []AddressRecord{
				{ID: 1, Status: StatusSuccess},
				{ID: 2, Status: StatusError},
				{ID: 3, Status: StatusWarning},
			},
			errs: []ErrorRecord{{ID: 2, Severity: SeverityHigh}, {ID: 3, Severity: SeverityLow}},
			want: BatchSummary{Total: 3, NormalizedCount: 1, ErrorCount: 2, SuccessRate: 33},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(tt.records, tt.errs); got != tt.want {
				t.Errorf("Summarize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		outcome ValidationOutcome
		want    Status
	}{
		{ValidationOutcome{Valid: true, Severity: SeverityLow}, StatusSuccess},
		{ValidationOutcome{Message: "city missing", Severity: SeverityHigh}, StatusError},
		{ValidationOutcome{Message: "house number missing", Severity: SeverityMedium}, StatusWarning},
		{ValidationOutcome{Message: "other", Severity: SeverityLow}, StatusWarning},
	}

	for _, tt := range tests {
		if got := StatusOf(tt.outcome); got != tt.want {
			t.Errorf("StatusOf(%+v) = %s, want %s", tt.outcome, got, tt.want)
		}
	}
}

func TestLabels(t *testing.T) {
	if StatusWarning.Label() != "Предупреждение" {
		t.Errorf("StatusWarning.Label() = %q", StatusWarning.Label())
	}

	if SeverityMedium.Label() != "Средняя" {
		t.Errorf("SeverityMedium.Label() = %q", SeverityMedium.Label())
	}

	if SeverityHigh.Label() != "Высокая" {
		t.Errorf("SeverityHigh.Label() = %q", SeverityHigh.Label())
	}
}

func TestBatchResult_ErrorFor(t *testing.T) {
	r := BatchResult{Errors: []ErrorRecord{{ID: 4, Message: "city missing"}}}

	if e, ok := r.ErrorFor(4); !ok || e.Message != "city missing" {
		t.Errorf("ErrorFor(4) = %+v, %v", e, ok)
	}

	if _, ok := r.ErrorFor(1); ok {
		t.Error("ErrorFor(1) found a record")
	}
}
