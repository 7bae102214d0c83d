// Package normalizer turns raw postal addresses into canonical strings,
// validates them and aggregates batch results.
package normalizer

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"addrnorm/internal/logger"
	"addrnorm/internal/models"
)

// ProgressFunc is called once per finished record with the number of records
// done so far and the batch size. Calls are serialized.
type ProgressFunc func(done, total int)

// Option configures a Processor.
type Option func(*Processor)

// WithWorkers normalizes records on up to n goroutines. Output order is unchanged.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithProgress registers a per-record progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Processor) {
		p.progress = fn
	}
}

// WithFuzzyMatching enables approximate city matching.
func WithFuzzyMatching(threshold float64, minWordLength int) Option {
	return func(p *Processor) {
		p.fuzzyEnabled = true
		p.fuzzyThreshold = threshold
		p.fuzzyMinLength = minWordLength
	}
}

// WithLogger sets the logger used for batch-level diagnostics.
func WithLogger(l *logger.Logger) Option {
	return func(p *Processor) {
		p.log = l
	}
}

// Processor runs the normalize-then-validate chain over batches of addresses.
type Processor struct {
	validator   *Validator
	transformer *Transformer
	log         *logger.Logger
	progress    ProgressFunc
	workers     int

	fuzzyEnabled   bool
	fuzzyThreshold float64
	fuzzyMinLength int
}

// NewProcessor creates a processor over the given dictionary.
func NewProcessor(dict Dictionary, opts ...Option) *Processor {
	p := &Processor{workers: 1}
	for _, opt := range opts {
		opt(p)
	}

	var fuzzy *FuzzyMatcher
	if p.fuzzyEnabled {
		fuzzy = NewFuzzyMatcher(dict.Cities, p.fuzzyThreshold, p.fuzzyMinLength)
	}

	p.transformer = NewTransformer(dict, fuzzy)
	p.validator = NewValidator(dict.StreetMarkers())

	return p
}

// NewDefaultProcessor creates a sequential processor over the built-in dictionary.
func NewDefaultProcessor() *Processor {
	return NewProcessor(DefaultDictionary())
}

// Normalize returns the canonical form of one raw address.
func (p *Processor) Normalize(raw string) string {
	return p.transformer.Normalize(raw)
}

// Validate classifies one canonical address.
func (p *Processor) Validate(canonical string) models.ValidationOutcome {
	return p.validator.Validate(canonical)
}

// ProcessOne normalizes and validates a single address. The error record is
// nil when the address is valid.
func (p *Processor) ProcessOne(id int, raw string) (models.AddressRecord, *models.ErrorRecord) {
	normalized := p.transformer.Normalize(raw)
	outcome := p.validator.Validate(normalized)

	record := models.AddressRecord{
		ID:         id,
		Original:   raw,
		Normalized: normalized,
		Status:     models.StatusOf(outcome),
	}

	if outcome.Valid {
		return record, nil
	}

	return record, &models.ErrorRecord{
		ID:       id,
		Address:  raw,
		Message:  outcome.Message,
		Severity: outcome.Severity,
	}
}

// ProcessBatch processes raw addresses in input order. Blank rows are dropped
// and do not consume an id; ids are 1-based over the remaining rows. A batch
// never fails: every row is classified independently.
func (p *Processor) ProcessBatch(raws []string) models.BatchResult {
	start := time.Now()

	rows := make([]string, 0, len(raws))
	for _, raw := range raws {
		if strings.TrimSpace(raw) != "" {
			rows = append(rows, raw)
		}
	}

	records := make([]models.AddressRecord, len(rows))
	failures := make([]*models.ErrorRecord, len(rows))

	var (
		mu   sync.Mutex
		done int
	)

	finish := func() {
		if p.progress == nil {
			return
		}

		mu.Lock()
		defer mu.Unlock()

		done++
		p.progress(done, len(rows))
	}

	if p.workers <= 1 || len(rows) < 2 {
		for i, raw := range rows {
			records[i], failures[i] = p.ProcessOne(i+1, raw)
			finish()
		}
	} else {
		var g errgroup.Group
		g.SetLimit(p.workers)

		for i, raw := range rows {
			g.Go(func() error {
				records[i], failures[i] = p.ProcessOne(i+1, raw)
				finish()

				return nil
			})
		}

		_ = g.Wait()
	}

	errs := make([]models.ErrorRecord, 0)
	for _, f := range failures {
		if f != nil {
			errs = append(errs, *f)
		}
	}

	result := models.BatchResult{
		Records: records,
		Errors:  errs,
		Summary: models.Summarize(records, errs),
	}

	if p.log != nil {
		p.log.Debug("batch processed",
			"input_rows", len(raws),
			"records", result.Summary.Total,
			"errors", result.Summary.ErrorCount,
			"success_rate", result.Summary.SuccessRate,
			"workers", p.workers,
			"duration", time.Since(start),
		)
	}

	return result
}
