// Package main provides the worker command that ingests address lists, normalizes them and
// archives every batch.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"addrnorm/internal/config"
	"addrnorm/internal/ingest"
	"addrnorm/internal/logger"
	"addrnorm/internal/models"
	"addrnorm/internal/normalizer"
	"addrnorm/internal/store"
)

type batchReport struct {
	source  string
	id      string
	summary models.BatchSummary
	err     error
}

func main() {
	configFile := flag.String("config", "", "Path to YAML configuration file")
	storePath := flag.String("store", "", "Batch archive path (overrides config)")
	parallel := flag.Int("parallel", 2, "Number of inputs processed at once")

	flag.Parse()

	inputs := flag.Args()

	cfg, err := config.LoadOrDefault(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	if len(inputs) == 0 {
		log.Error("Please provide at least one input file or URL")
		fmt.Println("Usage: worker [OPTIONS] <file|url>...")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *storePath != "" {
		cfg.Store.Path = *storePath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("🚀 Starting address pipeline", "inputs", len(inputs), "store", cfg.Store.Path)

	startTime := time.Now()

	batches, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Error("❌ Failed to open archive", "error", err)
		os.Exit(1)
	}
	defer batches.Close()

	reports := run(ctx, cfg, batches, inputs, *parallel, log)

	log.Info("✨ Pipeline Complete!")
	fmt.Println("\n------------------------------------------------")
	fmt.Printf("📊 Summary Report\n")
	fmt.Println("------------------------------------------------")

	failed := 0

	for _, r := range reports {
		if r.err != nil {
			failed++

			fmt.Printf("❌ %s: %v\n", r.source, r.err)

			continue
		}

		fmt.Printf("✅ %s -> batch %s: %d addresses, %d errors, %d%% success\n",
			r.source, r.id, r.summary.Total, r.summary.ErrorCount, r.summary.SuccessRate)
	}

	fmt.Printf("Total Duration: %v\n", time.Since(startTime).Round(time.Millisecond))
	fmt.Println("------------------------------------------------")

	if failed > 0 {
		os.Exit(1)
	}
}

// run processes inputs with bounded parallelism. A failing input does not stop the others.
func run(ctx context.Context, cfg *config.Config, batches *store.Store, inputs []string, parallel int, log *logger.Logger) []batchReport {
	opts := ingest.Options{
		Column:    cfg.Input.Column,
		HasHeader: cfg.Input.HasHeader,
		MaxBytes:  cfg.Input.MaxSizeBytes(),
	}

	fetcher := ingest.NewFetcher(cfg.Retry, opts.MaxBytes, log)
	processor := normalizer.NewProcessor(cfg.Dictionary(), append(cfg.ProcessorOptions(), normalizer.WithLogger(log))...)

	reports := make([]batchReport, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallel, 1))

	for i, src := range inputs {
		g.Go(func() error {
			reports[i] = process(ctx, src, fetcher, processor, batches, opts, log.With("source", src))

			return nil
		})
	}

	_ = g.Wait()

	return reports
}

func process(ctx context.Context, src string, fetcher *ingest.Fetcher, processor *normalizer.Processor,
	batches *store.Store, opts ingest.Options, log *logger.Logger) batchReport {
	report := batchReport{source: src}

	// Phase 1: Ingestion
	log.Info("Phase 1: Ingestion...")

	addresses, err := ingest.Load(ctx, src, fetcher, opts)
	if err != nil {
		report.err = fmt.Errorf("ingestion failed: %w", err)

		return report
	}

	// Phase 2: Normalization
	log.Info("Phase 2: Normalization...", "rows", len(addresses))

	result := processor.ProcessBatch(addresses)
	report.summary = result.Summary

	// Phase 3: Archiving
	log.Info("Phase 3: Archiving...")

	report.id, err = batches.Save(ctx, src, result)
	if err != nil {
		report.err = fmt.Errorf("archiving failed: %w", err)

		return report
	}

	log.Info("✅ Batch archived", "batch", report.id, "total", result.Summary.Total, "errors", result.Summary.ErrorCount)

	return report
}
