// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status   string  `json:"status"`
	Database string  `json:"database"`
	UptimeS  float64 `json:"uptime_seconds"`
	Titles   int     `json:"titles"`
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Database: "ok",
		UptimeS:  time.Since(h.startTime).Seconds(),
	}

	status := http.StatusOK
	if err := h.db.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
		status = http.StatusServiceUnavailable
	} else if count, err := h.db.CountTitles(r.Context()); err == nil {
		resp.Titles = count
	}

	respondJSON(w, r, status, resp)
}

// Ready handles GET /api/v1/health/ready. Readiness only requires the
// database; S3 and SageMaker failures surface per request.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		respondError(w, r, http.StatusServiceUnavailable, "NOT_READY", "Database is not reachable", err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}
