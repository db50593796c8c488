// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

package models

import "time"

// APIResponse is the standard envelope for all API endpoints.
type APIResponse struct {
	// Status is "success" or "error".
	Status string `json:"status"`

	// Data contains the response payload (null on error).
	Data interface{} `json:"data,omitempty"`

	// Metadata contains response metadata.
	Metadata Metadata `json:"metadata"`

	// Error contains error details (null on success).
	Error *APIError `json:"error,omitempty"`
}

// Metadata contains response metadata.
type Metadata struct {
	Timestamp  time.Time `json:"timestamp"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
}

// APIError represents an error response body.
type APIError struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// Details contains additional error details (optional).
	Details interface{} `json:"details,omitempty"`
}

// TrainDataPaths are the derived S3 locations for a prepared training set.
// They are echoed by the prepare endpoint and consumed by job creation.
type TrainDataPaths struct {
	S3TrainData string `json:"s3_train_data"`
	S3ValData   string `json:"s3_val_data"`
	OutputPath  string `json:"output_path"`
}

// TrainDataArtifacts are the local artifact locations written during
// training-data preparation.
type TrainDataArtifacts struct {
	VectorsPath string `json:"vectors_path"`
	VocabList   string `json:"vocab_list"`
	Index       string `json:"index"`
	NewIndex    string `json:"new_index"`
}
