// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

// Package pipeline orchestrates the training data flow: download title
// archives, map catalog rows, extract text, vectorize, shuffle, split,
// serialize and upload, then hand the resulting S3 paths to job creation.
package pipeline

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"path"
	"time"

	"github.com/recolibre/recolibre/internal/config"
	"github.com/recolibre/recolibre/internal/contentsvc"
	"github.com/recolibre/recolibre/internal/database"
	"github.com/recolibre/recolibre/internal/logging"
	"github.com/recolibre/recolibre/internal/models"
	"github.com/recolibre/recolibre/internal/objectstore"
)

// StoreFactory builds an object storage client for a caller-specified
// region, profile and bucket. Download requests may target buckets other
// than the configured training bucket.
type StoreFactory func(ctx context.Context, region, profile, bucket string) (*objectstore.Client, error)

// Service runs the pipeline steps against the catalog, local book
// storage and the object store.
type Service struct {
	db       *database.DB
	store    *objectstore.Client
	content  *contentsvc.Client
	cfg      *config.Config
	newStore StoreFactory
	seedFn   func() int64
}

// New wires a pipeline service. content may be nil when no content
// service is configured; store is the client for the training bucket.
func New(db *database.DB, store *objectstore.Client, content *contentsvc.Client, cfg *config.Config, factory StoreFactory) *Service {
	return &Service{
		db:       db,
		store:    store,
		content:  content,
		cfg:      cfg,
		newStore: factory,
		seedFn:   cryptoSeed,
	}
}

// WithSeed overrides the shuffle seed source. Tests use it to make the
// permutation deterministic.
func (s *Service) WithSeed(fn func() int64) *Service {
	s.seedFn = fn
	return s
}

// cryptoSeed draws a shuffle seed from the system entropy source.
func cryptoSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		// Fall back to wall clock; the seed is persisted either way
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:])) // #nosec G115 -- wraparound is fine for a seed
}

// DownloadRequest asks for a batch of object keys to be fetched into the
// local book path. Region, profile and bucket may override the defaults.
type DownloadRequest struct {
	ProfileName string
	BucketName  string
	RegionName  string
	ListKeys    []string
	Workers     int
}

// DownloadResult reports a finished batch download.
type DownloadResult struct {
	Duration   time.Duration `json:"-"`
	DurationS  float64       `json:"duration"`
	Downloaded int           `json:"downloaded"`
	Errors     int           `json:"errors"`
	FailedKeys []string      `json:"failed_keys,omitempty"`
}

// DownloadTitles fetches the requested keys into the book path.
func (s *Service) DownloadTitles(ctx context.Context, req *DownloadRequest) (*DownloadResult, error) {
	store, err := s.newStore(ctx, req.RegionName, req.ProfileName, req.BucketName)
	if err != nil {
		return nil, err
	}

	workers := req.Workers
	if workers <= 0 {
		workers = s.cfg.Pipeline.DownloadWorkers
	}

	start := time.Now()
	batch, err := store.DownloadBatch(ctx, req.ListKeys, s.cfg.Pipeline.BookPath, workers)
	if err != nil {
		return nil, err
	}

	duration := time.Since(start)
	return &DownloadResult{
		Duration:   duration,
		DurationS:  duration.Seconds(),
		Downloaded: batch.Downloaded,
		Errors:     len(batch.Failed),
		FailedKeys: batch.FailedKeys(),
	}, nil
}

// MapRequest describes a title mapping run: either resolve keys through
// the content service, or ingest inline payloads.
type MapRequest struct {
	HasService bool
	ListKeys   []string
	Titles     []models.TitlePayload
}

// MapResult reports how many catalog rows a mapping run touched.
type MapResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Missing []string `json:"missing,omitempty"`
}

// ErrNoContentService is returned when a mapping run requires the
// content service but none is configured.
var ErrNoContentService = errors.New("no content service configured")

// MapTitles creates catalog rows for new titles, skipping identifiers
// that already exist.
func (s *Service) MapTitles(ctx context.Context, req *MapRequest) (*MapResult, error) {
	result := &MapResult{}

	if req.HasService {
		if s.content == nil {
			return nil, ErrNoContentService
		}
		for _, key := range req.ListKeys {
			payload, err := s.content.GetTitle(ctx, key)
			if errors.Is(err, contentsvc.ErrTitleNotFound) {
				result.Missing = append(result.Missing, key)
				continue
			}
			if err != nil {
				return nil, err
			}
			if err := s.upsertTitle(ctx, payload, result); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	for i := range req.Titles {
		if err := s.upsertTitle(ctx, &req.Titles[i], result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Service) upsertTitle(ctx context.Context, payload *models.TitlePayload, result *MapResult) error {
	title := payload.ToTitle()
	inserted, err := s.db.InsertTitle(ctx, &title)
	if err != nil {
		return err
	}
	if inserted {
		result.Created++
		logging.Debug().Str("identifier", title.Identifier).Str("name", title.Name).Msg("Title mapped")
	} else {
		result.Skipped++
	}
	return nil
}

// ExtractRequest selects which titles get their text (re)extracted from
// the downloaded JSON files. FilePath overrides the configured book path.
type ExtractRequest struct {
	FilePath   string
	ProcessAll bool
}

// ExtractResult reports a finished extraction run.
type ExtractResult struct {
	Processed int      `json:"processed"`
	Empty     int      `json:"empty"`
	Failed    []string `json:"failed,omitempty"`
}

// ExtractText merges the per-title JSON content files and stores the
// result on each catalog row. By default only titles without text are
// processed; ProcessAll re-extracts everything.
func (s *Service) ExtractText(ctx context.Context, req *ExtractRequest) (*ExtractResult, error) {
	basePath := req.FilePath
	if basePath == "" {
		basePath = s.cfg.Pipeline.BookPath
	}

	var (
		identifiers []string
		err         error
	)
	if req.ProcessAll {
		identifiers, err = s.db.ListAllIdentifiers(ctx)
	} else {
		identifiers, err = s.db.ListMissingText(ctx)
	}
	if err != nil {
		return nil, err
	}

	result := &ExtractResult{}
	for _, identifier := range identifiers {
		text, err := extractTitleText(basePath, identifier)
		if err != nil {
			logging.Warn().Err(err).Str("identifier", identifier).Msg("Text extraction failed")
			result.Failed = append(result.Failed, identifier)
			continue
		}
		if err := s.db.UpdateCompleteText(ctx, identifier, text); err != nil {
			return nil, err
		}
		result.Processed++
		if text == "" {
			result.Empty++
		}
	}

	logging.Info().
		Int("processed", result.Processed).
		Int("empty", result.Empty).
		Int("failed", len(result.Failed)).
		Msg("Text extraction finished")
	return result, nil
}

// s3URI joins a bucket and key path into an s3:// URI.
func s3URI(bucket string, elem ...string) string {
	return "s3://" + path.Join(append([]string{bucket}, elem...)...)
}
