// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/recolibre/recolibre/internal/models"
	"github.com/recolibre/recolibre/internal/pipeline"
	"github.com/recolibre/recolibre/internal/training"
)

// PrepareTrainData handles POST /api/v1/train/prepare.
// It runs the full preparation flow and returns the derived S3 paths
// the job creation endpoint consumes.
func (h *Handler) PrepareTrainData(w http.ResponseWriter, r *http.Request) {
	var req PrepareTrainDataRequest
	if err := decodeRequest(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	result, err := h.pipeline.PrepareTrainData(r.Context(), &pipeline.PrepareRequest{
		BookLimit: req.BookLimit,
		ListKeys:  req.ListKeys,
		Theme:     req.Theme,
	})
	if errors.Is(err, pipeline.ErrNoTrainingTitles) {
		respondError(w, r, http.StatusBadRequest, "NO_TRAINING_TITLES",
			"No titles with extracted text match the training filter", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "PREPARE_FAILED",
			"Training data preparation failed", err)
		return
	}

	respondJSON(w, r, http.StatusOK, result)
}

// trainingJobResponse echoes the submitted job and the paths it trains on.
type trainingJobResponse struct {
	JobName string                `json:"job_name"`
	Paths   models.TrainDataPaths `json:"paths"`
}

// CreateTrainingJob handles POST /api/v1/train/jobs.
func (h *Handler) CreateTrainingJob(w http.ResponseWriter, r *http.Request) {
	var req CreateTrainingJobRequest
	if err := decodeRequest(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	if req.Paths.S3TrainData == "" || req.Paths.S3ValData == "" || req.Paths.OutputPath == "" {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR",
			"paths.s3_train_data, paths.s3_val_data and paths.output_path are required", nil)
		return
	}

	jobName := req.JobName
	if jobName == "" {
		jobName = fmt.Sprintf("ntm-topics-%s", time.Now().UTC().Format("20060102-150405"))
	}

	spec := &training.JobSpec{
		JobName:       jobName,
		RoleARN:       h.cfg.Training.RoleARN,
		TrainDataS3:   req.Paths.S3TrainData,
		ValDataS3:     req.Paths.S3ValData,
		OutputPathS3:  req.Paths.OutputPath,
		VocabSize:     h.cfg.Training.VocabSize,
		NumTopics:     h.cfg.Training.NumTopics,
		InstanceType:  h.cfg.Training.InstanceType,
		InstanceCount: h.cfg.Training.InstanceCount,
		MaxRuntime:    h.cfg.Training.MaxRuntime,
	}
	if err := h.launcher.Launch(r.Context(), spec); err != nil {
		respondError(w, r, http.StatusBadGateway, "JOB_CREATION_FAILED",
			"Training job creation failed", err)
		return
	}

	respondJSON(w, r, http.StatusAccepted, trainingJobResponse{
		JobName: jobName,
		Paths:   req.Paths,
	})
}

// GetTrainingJob handles GET /api/v1/train/jobs/{name}.
func (h *Handler) GetTrainingJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "job name is required", nil)
		return
	}

	status, err := h.launcher.Status(r.Context(), name)
	if err != nil {
		respondError(w, r, http.StatusBadGateway, "JOB_LOOKUP_FAILED",
			"Training job lookup failed", err)
		return
	}

	respondJSON(w, r, http.StatusOK, status)
}
