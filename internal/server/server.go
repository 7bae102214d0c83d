// Package server exposes the normalizer and the batch archive over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"addrnorm/internal/config"
	"addrnorm/internal/logger"
	"addrnorm/internal/models"
	"addrnorm/internal/normalizer"
	"addrnorm/internal/store"
)

// BatchStore archives batch results.
type BatchStore interface {
	Save(ctx context.Context, source string, result models.BatchResult) (string, error)
	Get(ctx context.Context, id string) (*store.Entry, error)
	List(ctx context.Context, limit int) ([]store.Batch, error)
	Delete(ctx context.Context, id string) error
}

// Options holds the server settings that are not part of ServerConfig.
type Options struct {
	// MaxUploadBytes limits request bodies.
	MaxUploadBytes int64
	// Column and HasHeader select the address column of uploaded tables.
	Column    int
	HasHeader bool
}

// Server is the HTTP API.
type Server struct {
	cfg       config.ServerConfig
	opts      Options
	processor *normalizer.Processor
	store     BatchStore
	log       *logger.Logger
	validate  *validator.Validate
	router    *gin.Engine
}

// New creates a server and registers its routes.
func New(cfg config.ServerConfig, opts Options, processor *normalizer.Processor, batches BatchStore, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}

	s := &Server{
		cfg:       cfg,
		opts:      opts,
		processor: processor,
		store:     batches,
		log:       log,
		validate:  validator.New(),
	}

	s.router = s.routes()

	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()

	r.Use(
		requestIDMiddleware(),
		loggerMiddleware(s.log),
		recoveryMiddleware(s.log),
		gzipMiddleware(),
		rateLimitMiddleware(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst),
		bodyLimitMiddleware(s.opts.MaxUploadBytes),
	)

	r.GET("/health", s.handleHealth)

	api := r.Group("/api/v1")
	{
		api.POST("/normalize", s.handleNormalize)

		api.POST("/batches", s.handleCreateBatch)
		api.GET("/batches", s.handleListBatches)
		api.GET("/batches/:id", s.handleGetBatch)
		api.GET("/batches/:id/export", s.handleExportBatch)
		api.DELETE("/batches/:id", s.handleDeleteBatch)
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	s.log.Info("shutting down", "timeout", timeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
