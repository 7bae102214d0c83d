// Package config provides configuration management for the address normalizer.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"addrnorm/internal/normalizer"
)

// Configuration validation errors.
var (
	ErrInvalidFuzzyThreshold    = errors.New("normalizer.fuzzy.threshold must be in (0, 1]")
	ErrInvalidFuzzyMinLength    = errors.New("normalizer.fuzzy.min_word_length must be at least 1")
	ErrInvalidWorkers           = errors.New("processing.workers must be at least 1")
	ErrInvalidColumn            = errors.New("input.column must be non-negative")
	ErrInvalidMaxSize           = errors.New("input.max_size_mb must be at least 1")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("retry.timeout_sec must be at least 1")
	ErrMissingOutputDir         = errors.New("output.dir is required")
	ErrInvalidOutputFormat      = errors.New("output.formats must contain only csv, xlsx, json or md")
	ErrMissingServerAddr        = errors.New("server.addr is required")
	ErrInvalidRateLimit         = errors.New("server.rate_limit_rps and rate_limit_burst must be non-negative")
	ErrMissingStorePath         = errors.New("store.path is required")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be 'text' or 'json'")
)

// Environment variables that override file settings.
const (
	EnvLogLevel   = "ADDRNORM_LOG_LEVEL"
	EnvServerAddr = "ADDRNORM_SERVER_ADDR"
	EnvStorePath  = "ADDRNORM_STORE_PATH"
)

// OutputFormats lists the export formats understood by the exporters.
var OutputFormats = []string{"csv", "xlsx", "json", "md"}

// Config represents the complete normalizer configuration.
type Config struct {
	Normalizer NormalizerConfig `yaml:"normalizer"`
	Processing ProcessingConfig `yaml:"processing"`
	Input      InputConfig      `yaml:"input"`
	Retry      RetryPolicy      `yaml:"retry"`
	Output     OutputConfig     `yaml:"output"`
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// NormalizerConfig overrides the built-in dictionary and tunes fuzzy matching.
// An empty list keeps the built-in entries for that list.
type NormalizerConfig struct {
	Cities      []normalizer.DictionaryEntry `yaml:"cities"`
	StreetTypes []normalizer.DictionaryEntry `yaml:"street_types"`
	Fuzzy       FuzzyConfig                  `yaml:"fuzzy"`
}

// FuzzyConfig controls approximate city matching.
type FuzzyConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Threshold     float64 `yaml:"threshold"`
	MinWordLength int     `yaml:"min_word_length"`
}

// ProcessingConfig controls batch execution.
type ProcessingConfig struct {
	Workers int `yaml:"workers"`
}

// InputConfig controls how address files are read.
type InputConfig struct {
	Column    int  `yaml:"column"`
	HasHeader bool `yaml:"has_header"`
	MaxSizeMb int  `yaml:"max_size_mb"`
}

// RetryPolicy defines retry behavior for remote downloads.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// OutputConfig defines where and how results are exported.
type OutputConfig struct {
	Dir      string   `yaml:"dir"`
	Formats  []string `yaml:"formats"`
	BaseName string   `yaml:"base_name"`
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	Addr               string  `yaml:"addr"`
	RateLimitRPS       float64 `yaml:"rate_limit_rps"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`
	ShutdownTimeoutSec int     `yaml:"shutdown_timeout_sec"`
}

// StoreConfig locates the batch archive.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a complete working configuration.
func Default() *Config {
	return &Config{
		Normalizer: NormalizerConfig{
			Fuzzy: FuzzyConfig{
				Threshold:     normalizer.DefaultFuzzyThreshold,
				MinWordLength: normalizer.DefaultFuzzyMinWordLength,
			},
		},
		Processing: ProcessingConfig{Workers: 1},
		Input:      InputConfig{MaxSizeMb: 20},
		Retry: RetryPolicy{
			MaxAttempts:       3,
			InitialDelayMs:    500,
			MaxDelayMs:        30000,
			BackoffMultiplier: 2.0,
			TimeoutSec:        30,
		},
		Output: OutputConfig{
			Dir:      "./out",
			Formats:  []string{"xlsx", "csv"},
			BaseName: "addresses",
		},
		Server: ServerConfig{
			Addr:               ":8080",
			RateLimitRPS:       10,
			RateLimitBurst:     20,
			ShutdownTimeoutSec: 10,
		},
		Store:   StoreConfig{Path: "./data/batches.db"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig loads configuration from a YAML file on top of the defaults,
// applies environment overrides and validates the result.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads filepath when it is set and falls back to the defaults
// (with environment overrides) otherwise.
func LoadOrDefault(filepath string) (*Config, error) {
	if filepath == "" {
		cfg := Default()
		cfg.ApplyEnv()

		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}

		return cfg, nil
	}

	return LoadConfig(filepath)
}

// SaveConfig saves configuration to a YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides file settings with ADDRNORM_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv(EnvServerAddr); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv(EnvStorePath); v != "" {
		c.Store.Path = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Dictionary().Validate(); err != nil {
		return fmt.Errorf("normalizer: %w", err)
	}

	fuzzy := c.Normalizer.Fuzzy
	if fuzzy.Threshold <= 0 || fuzzy.Threshold > 1 {
		return ErrInvalidFuzzyThreshold
	}

	if fuzzy.MinWordLength < 1 {
		return ErrInvalidFuzzyMinLength
	}

	if c.Processing.Workers < 1 {
		return ErrInvalidWorkers
	}

	if c.Input.Column < 0 {
		return ErrInvalidColumn
	}

	if c.Input.MaxSizeMb < 1 {
		return ErrInvalidMaxSize
	}

	// Validate retry policy
	if c.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if c.Retry.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	// Validate output config
	if c.Output.Dir == "" {
		return ErrMissingOutputDir
	}

	for _, f := range c.Output.Formats {
		if !slices.Contains(OutputFormats, strings.ToLower(f)) {
			return fmt.Errorf("%w: %q", ErrInvalidOutputFormat, f)
		}
	}

	if c.Server.Addr == "" {
		return ErrMissingServerAddr
	}

	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		return ErrInvalidRateLimit
	}

	if c.Store.Path == "" {
		return ErrMissingStorePath
	}

	// Validate logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// Dictionary returns the effective dictionary: configured lists replace the
// built-in ones, empty lists keep them.
func (c *Config) Dictionary() normalizer.Dictionary {
	dict := normalizer.DefaultDictionary()

	if len(c.Normalizer.Cities) > 0 {
		dict.Cities = c.Normalizer.Cities
	}

	if len(c.Normalizer.StreetTypes) > 0 {
		dict.StreetTypes = c.Normalizer.StreetTypes
	}

	return dict
}

// ProcessorOptions translates the processing and fuzzy sections into processor options.
func (c *Config) ProcessorOptions() []normalizer.Option {
	opts := []normalizer.Option{normalizer.WithWorkers(c.Processing.Workers)}

	if c.Normalizer.Fuzzy.Enabled {
		opts = append(opts, normalizer.WithFuzzyMatching(c.Normalizer.Fuzzy.Threshold, c.Normalizer.Fuzzy.MinWordLength))
	}

	return opts
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// MaxSizeBytes returns the input size limit in bytes.
func (ic InputConfig) MaxSizeBytes() int64 {
	return int64(ic.MaxSizeMb) << 20
}

// ShutdownTimeout returns the graceful shutdown timeout.
func (sc ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(sc.ShutdownTimeoutSec) * time.Second
}
