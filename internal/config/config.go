// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

// Package config loads and validates application configuration.
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (HTTP_PORT, S3_BUCKET, BOOK_PATH, ...)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the service.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Storage  StorageConfig  `koanf:"storage"`
	Training TrainingConfig `koanf:"training"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Content  ContentConfig  `koanf:"content"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// DatabaseConfig holds DuckDB settings for the title catalog.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// StorageConfig holds object storage (S3) settings.
//
// Region, bucket and profile can be overridden per request for the
// download endpoint; these values are the defaults and the fixed
// destination for training data uploads.
type StorageConfig struct {
	Region  string `koanf:"region"`
	Bucket  string `koanf:"bucket"`
	Profile string `koanf:"profile"`
	Prefix  string `koanf:"prefix"`
}

// TrainingConfig holds the topic-model training knobs.
//
// The defaults mirror the production NTM setup: a 2000-term vocabulary,
// 50 topics, an 80/20 train/validation split uploaded as 8 train parts
// and 1 validation part.
type TrainingConfig struct {
	VocabSize     int           `koanf:"vocab_size"`
	NumTopics     int           `koanf:"num_topics"`
	MaxDF         float64       `koanf:"max_df"`
	MinDF         int           `koanf:"min_df"`
	TrainFraction float64       `koanf:"train_fraction"`
	TrainParts    int           `koanf:"train_parts"`
	ValParts      int           `koanf:"val_parts"`
	InstanceType  string        `koanf:"instance_type"`
	InstanceCount int           `koanf:"instance_count"`
	RoleARN       string        `koanf:"role_arn"`
	MaxRuntime    time.Duration `koanf:"max_runtime"`
}

// PipelineConfig holds local pipeline settings.
type PipelineConfig struct {
	// BookPath is the directory holding per-title folders of JSON
	// chapter files and the generated training artifacts.
	BookPath string `koanf:"book_path"`

	// DownloadWorkers bounds concurrent S3 downloads.
	DownloadWorkers int `koanf:"download_workers"`
}

// ContentConfig holds the external content service settings.
// The service is optional; when BaseURL is empty, title mapping only
// accepts inline payloads.
type ContentConfig struct {
	BaseURL string        `koanf:"base_url"`
	Token   string        `koanf:"token"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that would break the
// pipeline at runtime. It returns the first problem found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Pipeline.BookPath == "" {
		return fmt.Errorf("pipeline.book_path must not be empty")
	}
	if c.Pipeline.DownloadWorkers < 1 {
		return fmt.Errorf("pipeline.download_workers must be at least 1, got %d", c.Pipeline.DownloadWorkers)
	}
	if c.Training.VocabSize < 1 {
		return fmt.Errorf("training.vocab_size must be positive, got %d", c.Training.VocabSize)
	}
	if c.Training.NumTopics < 1 {
		return fmt.Errorf("training.num_topics must be positive, got %d", c.Training.NumTopics)
	}
	if c.Training.MaxDF <= 0 || c.Training.MaxDF > 1 {
		return fmt.Errorf("training.max_df must be in (0, 1], got %g", c.Training.MaxDF)
	}
	if c.Training.MinDF < 1 {
		return fmt.Errorf("training.min_df must be at least 1, got %d", c.Training.MinDF)
	}
	if c.Training.TrainFraction <= 0 || c.Training.TrainFraction >= 1 {
		return fmt.Errorf("training.train_fraction must be in (0, 1), got %g", c.Training.TrainFraction)
	}
	if c.Training.TrainParts < 1 {
		return fmt.Errorf("training.train_parts must be at least 1, got %d", c.Training.TrainParts)
	}
	if c.Training.ValParts < 1 {
		return fmt.Errorf("training.val_parts must be at least 1, got %d", c.Training.ValParts)
	}
	if c.Training.InstanceCount < 1 {
		return fmt.Errorf("training.instance_count must be at least 1, got %d", c.Training.InstanceCount)
	}
	return nil
}
