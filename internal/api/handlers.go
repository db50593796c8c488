// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

// Package api exposes the HTTP endpoints orchestrating the training
// pipeline: title download, mapping, text extraction, training data
// preparation, and training job management.
package api

import (
	"time"

	"github.com/recolibre/recolibre/internal/config"
	"github.com/recolibre/recolibre/internal/database"
	"github.com/recolibre/recolibre/internal/pipeline"
	"github.com/recolibre/recolibre/internal/training"
)

// Handler carries the dependencies of all endpoint handlers.
type Handler struct {
	pipeline  *pipeline.Service
	launcher  *training.Launcher
	db        *database.DB
	cfg       *config.Config
	startTime time.Time
}

// NewHandler creates the API handler set.
func NewHandler(p *pipeline.Service, l *training.Launcher, db *database.DB, cfg *config.Config) *Handler {
	return &Handler{
		pipeline:  p,
		launcher:  l,
		db:        db,
		cfg:       cfg,
		startTime: time.Now(),
	}
}
