package models

import "math"

// BatchSummary holds aggregate statistics derived from a batch's records and errors.
type BatchSummary struct {
	Total           int `json:"total"`
	NormalizedCount int `json:"normalizedCount"`
	ErrorCount      int `json:"errorCount"`
	SuccessRate     int `json:"successRate"`
}

// BatchResult is everything one batch run produces.
type BatchResult struct {
	Records []AddressRecord `json:"records"`
	Errors  []ErrorRecord   `json:"errors"`
	Summary BatchSummary    `json:"summary"`
}

// Summarize derives the summary from the collections. SuccessRate is 0 for an empty batch.
func Summarize(records []AddressRecord, errs []ErrorRecord) BatchSummary {
	summary := BatchSummary{
		Total:      len(records),
		ErrorCount: len(errs),
	}

	for _, rec := range records {
		if rec.Status == StatusSuccess {
			summary.NormalizedCount++
		}
	}

	if summary.Total > 0 {
		rate := float64(summary.NormalizedCount) / float64(summary.Total) * 100
		summary.SuccessRate = int(math.Round(rate))
	}

	return summary
}

// CountByStatus returns how many records carry each status.
func (r *BatchResult) CountByStatus() map[Status]int {
	counts := make(map[Status]int, 3)
	for _, rec := range r.Records {
		counts[rec.Status]++
	}

	return counts
}

// ErrorFor returns the error record for the given record id, if any.
func (r *BatchResult) ErrorFor(id int) (ErrorRecord, bool) {
	for _, e := range r.Errors {
		if e.ID == id {
			return e, true
		}
	}

	return ErrorRecord{}, false
}
