// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

// Package main is the entry point for the Recolibre training service.
//
// Recolibre prepares document corpora for topic-model training. It
// downloads per-title source files from S3, maintains a local DuckDB
// catalog of titles, extracts and vectorizes their text into sparse
// bag-of-words tensors, and launches Neural Topic Model training jobs
// on SageMaker with the prepared data.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: settings from environment variables and config files (Koanf v2)
//  2. Database: DuckDB title catalog
//  3. Object store: S3 client for title downloads and training-data uploads
//  4. Training launcher: SageMaker client for NTM job management
//  5. Content service client (optional): circuit-breaker-wrapped catalog lookups
//  6. Pipeline: download / map / extract / prepare orchestration
//  7. HTTP Server: REST API under a suture supervision tree
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (HTTP_PORT, S3_BUCKET, BOOK_PATH, ...)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Closes the database connection
//
// # Example Usage
//
// Local development against a shared AWS profile:
//
//	export AWS_PROFILE=prod
//	export S3_BUCKET=sagemaker-erecommender
//	export BOOK_PATH=/data/books
//	./recolibre
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/recolibre/recolibre/internal/api"
	"github.com/recolibre/recolibre/internal/config"
	"github.com/recolibre/recolibre/internal/contentsvc"
	"github.com/recolibre/recolibre/internal/database"
	"github.com/recolibre/recolibre/internal/logging"
	"github.com/recolibre/recolibre/internal/objectstore"
	"github.com/recolibre/recolibre/internal/pipeline"
	"github.com/recolibre/recolibre/internal/supervisor"
	"github.com/recolibre/recolibre/internal/supervisor/services"
	"github.com/recolibre/recolibre/internal/training"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Recolibre with supervisor tree")
	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("book_path", cfg.Pipeline.BookPath).
		Str("bucket", cfg.Storage.Bucket).
		Str("region", cfg.Storage.Region).
		Msg("Configuration loaded")

	// Initialize the title catalog
	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Default S3 client for the training-data bucket. The download
	// endpoint builds per-request clients through the store factory.
	store, err := objectstore.New(ctx, cfg.Storage.Region, cfg.Storage.Profile, cfg.Storage.Bucket)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize object store")
	}
	logging.Info().Str("bucket", cfg.Storage.Bucket).Msg("Object store initialized")

	launcher, err := training.New(ctx, cfg.Storage.Region, cfg.Storage.Profile)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize training launcher")
	}

	// Content service is optional; without it, title mapping only
	// accepts inline payloads.
	var content *contentsvc.Client
	if cfg.Content.BaseURL != "" {
		content = contentsvc.New(cfg.Content.BaseURL, cfg.Content.Token, cfg.Content.Timeout)
		logging.Info().Str("base_url", cfg.Content.BaseURL).Msg("Content service client initialized")
	} else {
		logging.Info().Msg("Content service disabled - title mapping accepts inline payloads only")
	}

	pipe := pipeline.New(db, store, content, cfg, objectstore.New)

	handler := api.NewHandler(pipe, launcher, db, cfg)
	router := api.NewRouter(handler, &cfg.Server)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Create structured logger for supervisor using our slog adapter
	// This bridges zerolog to slog for sutureslog compatibility
	slogLogger := logging.NewSlogLogger()

	tree := supervisor.NewTree(slogLogger, supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
