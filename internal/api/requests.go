// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

package api

import "github.com/recolibre/recolibre/internal/models"

// DownloadTitlesRequest asks for object keys to be fetched into the
// local book path. Bucket, region and profile may differ from the
// configured training storage.
type DownloadTitlesRequest struct {
	ProfileName string   `json:"profile_name" validate:"required"`
	BucketName  string   `json:"bucket_name" validate:"required"`
	RegionName  string   `json:"region_name" validate:"required"`
	ListKeys    []string `json:"list_keys" validate:"required,min=1,dive,required"`
	Workers     int      `json:"workers,omitempty" validate:"omitempty,min=1,max=64"`
}

// MapTitlesRequest creates catalog rows, either by resolving keys
// through the content service or from inline title payloads.
type MapTitlesRequest struct {
	HasService bool                  `json:"has_service"`
	ListKeys   []string              `json:"list_keys,omitempty" validate:"required_if=HasService true,omitempty,dive,required"`
	Titles     []models.TitlePayload `json:"titles,omitempty"`
}

// ExtractTextRequest selects which titles get their text extracted.
type ExtractTextRequest struct {
	FilePath   string `json:"file_path,omitempty"`
	ProcessAll bool   `json:"process_all,omitempty"`
}

// PrepareTrainDataRequest selects the training corpus.
type PrepareTrainDataRequest struct {
	BookLimit int      `json:"book_limit,omitempty" validate:"omitempty,min=1"`
	ListKeys  []string `json:"list_keys,omitempty" validate:"omitempty,dive,required"`
	Theme     string   `json:"theme,omitempty"`
}

// CreateTrainingJobRequest launches a topic-model training job over a
// prepared training set. Paths come from the prepare response; JobName
// is generated when omitted.
type CreateTrainingJobRequest struct {
	JobName string                `json:"job_name,omitempty" validate:"omitempty,max=63"`
	Paths   models.TrainDataPaths `json:"paths" validate:"required"`
}
