// Package main provides the HTTP API server for address normalization and the batch archive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"addrnorm/internal/config"
	"addrnorm/internal/logger"
	"addrnorm/internal/normalizer"
	"addrnorm/internal/server"
	"addrnorm/internal/store"
)

func main() {
	configFile := flag.String("config", "", "Path to YAML configuration file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	storePath := flag.String("store", "", "Batch archive path (overrides config)")

	flag.Parse()

	cfg, err := config.LoadOrDefault(*configFile)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v\n", err)
	}

	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	if *storePath != "" {
		cfg.Store.Path = *storePath
	}

	logs := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logs); err != nil {
		logs.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logs *logger.Logger) error {
	batches, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open batch archive: %w", err)
	}
	defer batches.Close()

	logs.Info("batch archive opened", "path", cfg.Store.Path)

	opts := append(cfg.ProcessorOptions(), normalizer.WithLogger(logs))
	processor := normalizer.NewProcessor(cfg.Dictionary(), opts...)

	srv := server.New(cfg.Server, server.Options{
		MaxUploadBytes: cfg.Input.MaxSizeBytes(),
		Column:         cfg.Input.Column,
		HasHeader:      cfg.Input.HasHeader,
	}, processor, batches, logs)

	return srv.Run(ctx)
}
