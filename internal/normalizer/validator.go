package normalizer

import (
	"errors"
	"strings"
	"unicode/utf8"

	"addrnorm/internal/models"
)

// MinAddressLength is the shortest canonical address, in characters, that can pass validation.
const MinAddressLength = 10

// Validation defects, in rule-chain order.
var (
	ErrAddressTooShort    = errors.New("address too short")
	ErrCityMissing        = errors.New("city missing")
	ErrStreetTypeMissing  = errors.New("street type missing")
	ErrHouseNumberMissing = errors.New("house number missing")
)

const (
	canonicalCityPrefix  = "г."
	canonicalCityWord    = "город"
	canonicalHouseMarker = "д."
)

var defaultStreetMarkers = []string{"ул.", "пр.", "пер."}

type rule struct {
	err      error
	severity models.Severity
	fails    func(canonical string) bool
}

// Validator classifies canonical addresses with a fixed, ordered rule chain.
// The first failing rule decides the outcome.
type Validator struct {
	rules []rule
}

// NewValidator creates a validator. streetMarkers are the canonical street-type
// values to look for; nil selects ул., пр. and пер.
func NewValidator(streetMarkers []string) *Validator {
	if len(streetMarkers) == 0 {
		streetMarkers = defaultStreetMarkers
	}

	markers := append([]string(nil), streetMarkers...)

	return &Validator{
		rules: []rule{
			{
				err:      ErrAddressTooShort,
				severity: models.SeverityHigh,
				fails: func(c string) bool {
					return utf8.RuneCountInString(c) < MinAddressLength
				},
			},
			{
				err:      ErrCityMissing,
				severity: models.SeverityHigh,
				fails: func(c string) bool {
					return !strings.Contains(c, canonicalCityPrefix) &&
						!strings.Contains(strings.ToLower(c), canonicalCityWord)
				},
			},
			{
				err:      ErrStreetTypeMissing,
				severity: models.SeverityMedium,
				fails: func(c string) bool {
					for _, m := range markers {
						if strings.Contains(c, m) {
							return false
						}
					}

					return true
				},
			},
			{
				err:      ErrHouseNumberMissing,
				severity: models.SeverityMedium,
				fails: func(c string) bool {
					return !strings.Contains(c, canonicalHouseMarker)
				},
			},
		},
	}
}

// Validate runs the rule chain against a canonical address.
func (v *Validator) Validate(canonical string) models.ValidationOutcome {
	if err := v.Check(canonical); err != nil {
		return models.ValidationOutcome{
			Valid:    false,
			Message:  err.Error(),
			Severity: v.severityOf(err),
		}
	}

	return models.ValidationOutcome{Valid: true, Severity: models.SeverityLow}
}

// Check returns the sentinel error of the first failing rule, or nil.
func (v *Validator) Check(canonical string) error {
	for _, r := range v.rules {
		if r.fails(canonical) {
			return r.err
		}
	}

	return nil
}

func (v *Validator) severityOf(err error) models.Severity {
	for _, r := range v.rules {
		if errors.Is(err, r.err) {
			return r.severity
		}
	}

	return models.SeverityLow
}
