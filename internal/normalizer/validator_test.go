package normalizer

import (
	"errors"
	"testing"

	"addrnorm/internal/models"
)

func TestNewValidator(t *testing.T) {
	v := NewValidator(nil)
	if v == nil {
		t.Fatal("NewValidator returned nil")
	}

	if len(v.rules) != 4 {
		t.Errorf("rule chain length = %d, want 4", len(v.rules))
	}
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(DefaultDictionary().StreetMarkers())

	valid := []string{
		"г. Москва, ул. Тверская, д. 10",
		"г. Екатеринбург, ул. Ленина, д. 52А",
		"город Тула, пер. Садовый, д. 3",
		"г. Москва, Гоголевский б-р, д. 10",
	}

	for _, c := range valid {
		outcome := v.Validate(c)
		if !outcome.Valid {
			t.Errorf("Validate(%q) = %+v, want valid", c, outcome)
		}

		if outcome.Severity != models.SeverityLow {
			t.Errorf("Validate(%q).Severity = %s, want low", c, outcome.Severity)
		}
	}
}

func TestValidator_Validate_Errors(t *testing.T) {
	v := NewValidator(DefaultDictionary().StreetMarkers())

	tests := []struct {
		name         string
		canonical    string
		wantErr      error
		wantMessage  string
		wantSeverity models.Severity
	}{
		{
			name:         "Empty string",
			canonical:    "",
			wantErr:      ErrAddressTooShort,
			wantMessage:  "address too short",
			wantSeverity: models.SeverityHigh,
		},
		{
			name:         "Nine Cyrillic characters",
			canonical:    "г. Тула 1",
			wantErr:      ErrAddressTooShort,
			wantMessage:  "address too short",
			wantSeverity: models.SeverityHigh,
		},
		{
			name:         "No city",
			canonical:    "ул. Ленина, д. 5",
			wantErr:      ErrCityMissing,
			wantMessage:  "city missing",
			wantSeverity: models.SeverityHigh,
		},
		{
			name:         "No street type",
			canonical:    "г. Казань Центр",
			wantErr:      ErrStreetTypeMissing,
			wantMessage:  "street type missing",
			wantSeverity: models.SeverityMedium,
		},
		{
			name:         "Street type checked before house number",
			canonical:    "г. Тула, Ленина",
			wantErr:      ErrStreetTypeMissing,
			wantMessage:  "street type missing",
			wantSeverity: models.SeverityMedium,
		},
		{
			name:         "No house number",
			canonical:    "г. Санкт-Петербург, Невский пр.",
			wantErr:      ErrHouseNumberMissing,
			wantMessage:  "house number missing",
			wantSeverity: models.SeverityMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := v.Validate(tt.canonical)
			if outcome.Valid {
				t.Fatalf("Validate(%q) valid, want %v", tt.canonical, tt.wantErr)
			}

			if outcome.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", outcome.Message, tt.wantMessage)
			}

			if outcome.Severity != tt.wantSeverity {
				t.Errorf("Severity = %s, want %s", outcome.Severity, tt.wantSeverity)
			}

			if err := v.Check(tt.canonical); !errors.Is(err, tt.wantErr) {
				t.Errorf("Check() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidator_DefaultMarkers(t *testing.T) {
	v := NewValidator(nil)

	if outcome := v.Validate("г. Москва, Гоголевский б-р, д. 10"); outcome.Valid {
		t.Error("boulevard accepted without it being a configured marker")
	}

	if outcome := v.Validate("г. Москва, пер. Сивцев Вражек, д. 1"); !outcome.Valid {
		t.Errorf("Validate() = %+v, want valid", outcome)
	}
}

func TestValidator_Deterministic(t *testing.T) {
	v := NewValidator(nil)

	first := v.Validate("г. Москва, ул. Тверская")
	for i := 0; i < 5; i++ {
		if got := v.Validate("г. Москва, ул. Тверская"); got != first {
			t.Fatalf("Validate() run %d = %+v, want %+v", i, got, first)
		}
	}
}
