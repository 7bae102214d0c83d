package main

import (
	"reflect"
	"testing"

	"addrnorm/internal/config"
)

func TestApplyFlags_Formats(t *testing.T) {
	tests := []struct {
		name    string
		formats string
		want    []string
	}{
		{"Plain list", "csv,md", []string{"csv", "md"}},
		{"Spaces around items", " csv , md ,xlsx ", []string{"csv", "md", "xlsx"}},
		{"Empty items dropped", "json,,", []string{"json"}},
		{"Unset keeps config", "", config.Default().Output.Formats},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()

			if err := applyFlags(cfg, "", tt.formats, "", 0, -1, "", false); err != nil {
				t.Fatalf("applyFlags() error = %v", err)
			}

			if !reflect.DeepEqual(cfg.Output.Formats, tt.want) {
				t.Errorf("Formats = %q, want %q", cfg.Output.Formats, tt.want)
			}

			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestApplyFlags_Overrides(t *testing.T) {
	cfg := config.Default()

	if err := applyFlags(cfg, "out", "", "report", 8, 2, "false", true); err != nil {
		t.Fatalf("applyFlags() error = %v", err)
	}

	if cfg.Output.Dir != "out" || cfg.Output.BaseName != "report" {
		t.Errorf("Output = %+v, want dir out and name report", cfg.Output)
	}

	if cfg.Processing.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Processing.Workers)
	}

	if cfg.Input.Column != 2 || cfg.Input.HasHeader {
		t.Errorf("Input = %+v, want column 2 without header", cfg.Input)
	}

	if !cfg.Normalizer.Fuzzy.Enabled {
		t.Error("Fuzzy matching not enabled")
	}
}

func TestApplyFlags_InvalidHeader(t *testing.T) {
	if err := applyFlags(config.Default(), "", "", "", 0, -1, "maybe", false); err == nil {
		t.Error("applyFlags() accepted header value maybe")
	}
}
