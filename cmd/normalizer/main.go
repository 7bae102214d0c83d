// Package main provides the normalizer command-line tool for cleaning address lists.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"addrnorm/internal/config"
	"addrnorm/internal/export"
	"addrnorm/internal/formatter"
	"addrnorm/internal/ingest"
	"addrnorm/internal/logger"
	"addrnorm/internal/models"
	"addrnorm/internal/normalizer"
)

func main() {
	configFile := flag.String("config", "", "Path to YAML configuration file")
	input := flag.String("input", "", "Input file (.csv, .xlsx, .json, .txt) or http(s) URL")
	outputDir := flag.String("output", "", "Output directory (overrides config)")
	formats := flag.String("format", "", "Comma-separated output formats: csv,xlsx,json,md (overrides config)")
	baseName := flag.String("name", "", "Base name of output files (overrides config)")
	workers := flag.Int("workers", 0, "Number of normalization workers (overrides config)")
	column := flag.Int("column", -1, "0-based address column of tabular input (overrides config; an address header wins)")
	header := flag.String("header", "", "Whether tabular input has a header row: true|false (overrides config)")
	fuzzy := flag.Bool("fuzzy", false, "Enable fuzzy city matching")
	quiet := flag.Bool("quiet", false, "Do not print progress")
	showUsage := flag.Bool("help", false, "Show usage information")

	flag.Parse()

	if *showUsage {
		printUsage()
		os.Exit(0)
	}

	if *input == "" {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.LoadOrDefault(*configFile)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v\n", err)
	}

	if err := applyFlags(cfg, *outputDir, *formats, *baseName, *workers, *column, *header, *fuzzy); err != nil {
		log.Fatalf("❌ Invalid arguments: %v\n", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v\n", err)
	}

	logs := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *input, *quiet, logs); err != nil {
		log.Fatalf("❌ %v\n", err)
	}
}

func applyFlags(cfg *config.Config, outputDir, formats, baseName string, workers, column int, header string, fuzzy bool) error {
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}

	if formats != "" {
		var list []string

		for f := range strings.SplitSeq(formats, ",") {
			if f = strings.TrimSpace(f); f != "" {
				list = append(list, f)
			}
		}

		cfg.Output.Formats = list
	}

	if baseName != "" {
		cfg.Output.BaseName = baseName
	}

	if workers > 0 {
		cfg.Processing.Workers = workers
	}

	if column >= 0 {
		cfg.Input.Column = column
	}

	if header != "" {
		v, err := strconv.ParseBool(header)
		if err != nil {
			return fmt.Errorf("invalid -header value %q: %w", header, err)
		}

		cfg.Input.HasHeader = v
	}

	if fuzzy {
		cfg.Normalizer.Fuzzy.Enabled = true
	}

	return nil
}

func run(ctx context.Context, cfg *config.Config, input string, quiet bool, logs *logger.Logger) error {
	formats, err := export.ParseFormats(cfg.Output.Formats)
	if err != nil {
		return err
	}

	fmt.Printf("📂 Reading: %s\n", input)

	opts := ingest.Options{
		Column:    cfg.Input.Column,
		HasHeader: cfg.Input.HasHeader,
		MaxBytes:  cfg.Input.MaxSizeBytes(),
	}

	fetcher := ingest.NewFetcher(cfg.Retry, opts.MaxBytes, logs)

	addresses, err := ingest.Load(ctx, input, fetcher, opts)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	fmt.Printf("🔍 Loaded %d rows\n", len(addresses))

	procOpts := append(cfg.ProcessorOptions(), normalizer.WithLogger(logs))
	if !quiet {
		procOpts = append(procOpts, normalizer.WithProgress(printProgress))
	}

	processor := normalizer.NewProcessor(cfg.Dictionary(), procOpts...)

	start := time.Now()
	result := processor.ProcessBatch(addresses)

	if !quiet && result.Summary.Total > 0 {
		fmt.Println()
	}

	fmt.Printf("✅ Processed %d addresses in %v\n\n", result.Summary.Total, time.Since(start).Round(time.Millisecond))
	fmt.Println(summaryTable(result))

	if len(result.Errors) > 0 {
		fmt.Println(errorTable(result, 10))
	}

	paths, err := export.ExportFiles(cfg.Output.Dir, cfg.Output.BaseName, formats, result, export.WithTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to export results: %w", err)
	}

	for _, path := range paths {
		fmt.Printf("💾 Saved to: %s\n", path)
	}

	return nil
}

func printProgress(done, total int) {
	fmt.Printf("\r⏳ Normalizing: %d/%d", done, total)
}

func summaryTable(result models.BatchResult) string {
	s := result.Summary
	counts := result.CountByStatus()

	return formatter.RenderTable(
		[]string{"Показатель", "Значение"},
		[][]string{
			{"Всего адресов", strconv.Itoa(s.Total)},
			{"Нормализовано", strconv.Itoa(s.NormalizedCount)},
			{models.StatusWarning.Label(), strconv.Itoa(counts[models.StatusWarning])},
			{models.StatusError.Label(), strconv.Itoa(counts[models.StatusError])},
			{"Успешность, %", strconv.Itoa(s.SuccessRate)},
		},
	)
}

func errorTable(result models.BatchResult, limit int) string {
	rows := make([][]string, 0, limit)

	for _, e := range result.Errors {
		if len(rows) == limit {
			break
		}

		rows = append(rows, []string{strconv.Itoa(e.ID), e.Address, e.Message, e.Severity.Label()})
	}

	table := formatter.RenderTable([]string{"#", "Адрес", "Ошибка", "Критичность"}, rows)

	if rest := len(result.Errors) - len(rows); rest > 0 {
		table += fmt.Sprintf("\n... and %d more\n", rest)
	}

	return table
}

func printUsage() {
	fmt.Println("Usage: ./bin/normalizer -input <file|url> [OPTIONS]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  ./bin/normalizer -input addresses.xlsx")
	fmt.Println("  ./bin/normalizer -input addresses.csv -column 2 -header true -format csv,md -output ./out")
	fmt.Println("  ./bin/normalizer -input https://example.com/addresses.csv -config configs/normalizer.yaml")
}
