// Package models defines data structures shared by the normalizer, exporters and the archive.
package models

// Status is the per-record outcome derived from validation.
type Status string

// Record statuses.
const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Label returns the localized label used in exported reports.
func (s Status) Label() string {
	switch s {
	case StatusSuccess:
		return "Успешно"
	case StatusWarning:
		return "Предупреждение"
	case StatusError:
		return "Ошибка"
	}

	return string(s)
}

// Severity is the ordinal importance of a validation defect.
type Severity string

// Severities, from most to least important.
const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Label returns the localized label used in exported reports.
func (s Severity) Label() string {
	switch s {
	case SeverityHigh:
		return "Высокая"
	case SeverityMedium:
		return "Средняя"
	case SeverityLow:
		return "Низкая"
	}

	return string(s)
}

// AddressRecord is the per-row normalization result.
type AddressRecord struct {
	ID         int    `json:"id"`
	Original   string `json:"original"`
	Normalized string `json:"normalized"`
	Status     Status `json:"status"`
}

// ErrorRecord describes a failed validation. Address holds the original input.
type ErrorRecord struct {
	ID       int      `json:"id"`
	Address  string   `json:"address"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// ValidationOutcome is the transient result of validating one canonical string.
type ValidationOutcome struct {
	Valid    bool     `json:"valid"`
	Message  string   `json:"message,omitempty"`
	Severity Severity `json:"severity"`
}

// StatusOf maps a validation outcome to a record status.
func StatusOf(outcome ValidationOutcome) Status {
	switch {
	case outcome.Valid:
		return StatusSuccess
	case outcome.Severity == SeverityHigh:
		return StatusError
	default:
		return StatusWarning
	}
}
