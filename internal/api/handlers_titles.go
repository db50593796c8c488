// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

package api

import (
	"errors"
	"net/http"

	"github.com/recolibre/recolibre/internal/pipeline"
)

// DownloadTitles handles POST /api/v1/titles/download.
// It fetches the requested object keys into the local book path through
// a bounded worker pool and reports per-key failures without aborting
// the batch.
func (h *Handler) DownloadTitles(w http.ResponseWriter, r *http.Request) {
	var req DownloadTitlesRequest
	if err := decodeRequest(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	result, err := h.pipeline.DownloadTitles(r.Context(), &pipeline.DownloadRequest{
		ProfileName: req.ProfileName,
		BucketName:  req.BucketName,
		RegionName:  req.RegionName,
		ListKeys:    req.ListKeys,
		Workers:     req.Workers,
	})
	if err != nil {
		respondError(w, r, http.StatusBadGateway, "DOWNLOAD_FAILED", "Batch download failed", err)
		return
	}

	respondJSON(w, r, http.StatusOK, result)
}

// MapTitles handles POST /api/v1/titles/map.
// Rows are created for new identifiers only; existing ones are skipped.
func (h *Handler) MapTitles(w http.ResponseWriter, r *http.Request) {
	var req MapTitlesRequest
	if err := decodeRequest(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	if !req.HasService && len(req.Titles) == 0 {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR",
			"titles must not be empty when has_service is false", nil)
		return
	}

	result, err := h.pipeline.MapTitles(r.Context(), &pipeline.MapRequest{
		HasService: req.HasService,
		ListKeys:   req.ListKeys,
		Titles:     req.Titles,
	})
	if errors.Is(err, pipeline.ErrNoContentService) {
		respondError(w, r, http.StatusBadRequest, "NO_CONTENT_SERVICE",
			"No content service is configured", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusBadGateway, "MAPPING_FAILED", "Title mapping failed", err)
		return
	}

	respondJSON(w, r, http.StatusOK, result)
}

// ExtractText handles POST /api/v1/titles/extract-text.
func (h *Handler) ExtractText(w http.ResponseWriter, r *http.Request) {
	var req ExtractTextRequest
	if err := decodeRequest(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", err)
		return
	}

	result, err := h.pipeline.ExtractText(r.Context(), &pipeline.ExtractRequest{
		FilePath:   req.FilePath,
		ProcessAll: req.ProcessAll,
	})
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "EXTRACTION_FAILED", "Text extraction failed", err)
		return
	}

	respondJSON(w, r, http.StatusOK, result)
}
