// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/recolibre/recolibre/internal/config"
	"github.com/recolibre/recolibre/internal/middleware"
)

// NewRouter wires the full route tree with the global middleware stack.
func NewRouter(h *Handler, cfg *config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:           300,
		AllowCredentials: false,
	}))

	rateLimit := httprate.LimitByIP(rateLimitDefaults(cfg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimit)
		r.Use(middleware.PrometheusMetrics)

		r.Get("/health", h.Health)
		r.Get("/health/ready", h.Ready)

		r.Route("/titles", func(r chi.Router) {
			r.Post("/download", h.DownloadTitles)
			r.Post("/map", h.MapTitles)
			r.Post("/extract-text", h.ExtractText)
		})

		r.Route("/train", func(r chi.Router) {
			r.Post("/prepare", h.PrepareTrainData)
			r.Post("/jobs", h.CreateTrainingJob)
			r.Get("/jobs/{name}", h.GetTrainingJob)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// rateLimitDefaults returns the request budget and window, falling back
// to 100 requests per minute when unconfigured.
func rateLimitDefaults(cfg *config.ServerConfig) (int, time.Duration) {
	reqs := cfg.RateLimitReqs
	if reqs <= 0 {
		reqs = 100
	}
	window := cfg.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	return reqs, window
}
