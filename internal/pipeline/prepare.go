// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/recolibre/recolibre/internal/corpus"
	"github.com/recolibre/recolibre/internal/database"
	"github.com/recolibre/recolibre/internal/logging"
	"github.com/recolibre/recolibre/internal/metrics"
	"github.com/recolibre/recolibre/internal/models"
	"github.com/recolibre/recolibre/internal/recordio"
	"github.com/recolibre/recolibre/internal/trainset"
	"github.com/recolibre/recolibre/internal/vectorize"
)

// ErrNoTrainingTitles is returned when the training filter selects no
// titles with extracted text.
var ErrNoTrainingTitles = errors.New("no titles with extracted text match the training filter")

// PrepareRequest selects the training corpus. ListKeys takes precedence
// over Theme; BookLimit of 0 means no limit.
type PrepareRequest struct {
	BookLimit int
	ListKeys  []string
	Theme     string
}

// PrepareResult reports a finished training data preparation.
type PrepareResult struct {
	Paths       models.TrainDataPaths     `json:"paths"`
	Artifacts   models.TrainDataArtifacts `json:"artifacts"`
	Documents   int                       `json:"documents"`
	VocabSize   int                       `json:"vocab_size"`
	TrainRows   int                       `json:"train_rows"`
	ValRows     int                       `json:"val_rows"`
	DurationS   float64                   `json:"duration"`
	ShuffleSeed int64                     `json:"shuffle_seed"`
}

// PrepareTrainData runs the full preparation flow: vectorize the corpus,
// persist the vocabulary and shuffle indices, attach per-title vectors,
// split train/validation, and upload the serialized parts.
func (s *Service) PrepareTrainData(ctx context.Context, req *PrepareRequest) (*PrepareResult, error) {
	start := time.Now()

	titles, err := s.db.ListForTraining(ctx, database.TrainingFilter{
		Keys:  req.ListKeys,
		Theme: req.Theme,
		Limit: req.BookLimit,
	})
	if err != nil {
		return nil, err
	}
	if len(titles) == 0 {
		return nil, ErrNoTrainingTitles
	}
	logging.Info().Int("titles", len(titles)).Msg("Started token vectorization")

	docs := make([][]string, len(titles))
	for i, title := range titles {
		docs[i] = corpus.Tokenize(title.CompleteText)
	}

	vec := vectorize.New(vectorize.Options{
		MaxFeatures: s.cfg.Training.VocabSize,
		MaxDF:       s.cfg.Training.MaxDF,
		MinDF:       s.cfg.Training.MinDF,
	})
	matrix, err := vec.FitTransform(docs)
	if err != nil {
		return nil, fmt.Errorf("vectorization failed: %w", err)
	}
	metrics.VectorizeDuration.Observe(time.Since(start).Seconds())
	metrics.VectorizedDocuments.Add(float64(matrix.Rows))
	metrics.VocabularySize.Set(float64(matrix.Cols))

	bookPath := s.cfg.Pipeline.BookPath
	artifacts := models.TrainDataArtifacts{
		VectorsPath: filepath.Join(bookPath, "vectors.pbr"),
		VocabList:   filepath.Join(bookPath, "vocab_list.csv"),
		Index:       filepath.Join(bookPath, "index.csv"),
		NewIndex:    filepath.Join(bookPath, "new_index.csv"),
	}

	if err := vec.SaveVocabulary(artifacts.VocabList); err != nil {
		return nil, err
	}

	// Persist the shuffle: the identity index, then the seeded
	// permutation that reorders the rows.
	seed := s.seedFn()
	index := trainset.Identity(matrix.Rows)
	if err := trainset.SaveIndexCSV(artifacts.Index, index); err != nil {
		return nil, err
	}
	newIndex := trainset.Permutation(matrix.Rows, seed)
	if err := trainset.SaveIndexCSV(artifacts.NewIndex, newIndex); err != nil {
		return nil, err
	}

	shuffled, err := matrix.SelectRows(newIndex)
	if err != nil {
		return nil, err
	}

	if err := saveMatrix(artifacts.VectorsPath, shuffled); err != nil {
		return nil, err
	}

	if err := s.mapVectorsToTitles(ctx, shuffled, titles); err != nil {
		return nil, err
	}

	train, val, err := trainset.Split(shuffled, s.cfg.Training.TrainFraction)
	if err != nil {
		return nil, err
	}

	prefix := s.cfg.Storage.Prefix
	trainPrefix := path.Join(prefix, "train")
	valPrefix := path.Join(prefix, "val")

	if err := s.uploadParts(ctx, train, trainPrefix, "train_part%d.pbr", s.cfg.Training.TrainParts, "train"); err != nil {
		return nil, err
	}
	if err := s.uploadParts(ctx, val, valPrefix, "val_part%d.pbr", s.cfg.Training.ValParts, "val"); err != nil {
		return nil, err
	}

	bucket := s.store.Bucket()
	result := &PrepareResult{
		Paths: models.TrainDataPaths{
			S3TrainData: s3URI(bucket, trainPrefix),
			S3ValData:   s3URI(bucket, valPrefix),
			OutputPath:  s3URI(bucket, prefix, "output"),
		},
		Artifacts:   artifacts,
		Documents:   matrix.Rows,
		VocabSize:   matrix.Cols,
		TrainRows:   train.Rows,
		ValRows:     val.Rows,
		DurationS:   time.Since(start).Seconds(),
		ShuffleSeed: seed,
	}

	logging.Info().
		Int("documents", result.Documents).
		Int("vocab_size", result.VocabSize).
		Int("train_rows", result.TrainRows).
		Int("val_rows", result.ValRows).
		Str("train_data", result.Paths.S3TrainData).
		Dur("elapsed", time.Since(start)).
		Msg("Training data prepared")
	return result, nil
}

// mapVectorsToTitles writes each title's dense count row next to its
// source files and records the path on the catalog row. Rows follow the
// shuffled matrix order, matching the persisted new_index file.
func (s *Service) mapVectorsToTitles(ctx context.Context, m *vectorize.CSR, titles []*models.Title) error {
	logging.Info().Msg("Starting vector assignment to titles")
	for i, title := range titles {
		dir := filepath.Join(s.cfg.Pipeline.BookPath, title.Identifier)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create title directory %s: %w", dir, err)
		}

		vectorPath := filepath.Join(dir, "vector_file.csv")
		if err := vectorize.SaveRowCSV(m, i, vectorPath); err != nil {
			return err
		}
		if err := s.db.UpdateVectorFile(ctx, title.ID, vectorPath); err != nil {
			return err
		}
	}
	logging.Info().Int("titles", len(titles)).Msg("Finished vector assignment to titles")
	return nil
}

// uploadParts serializes matrix chunks to the tensor format and uploads
// them under the given prefix.
func (s *Service) uploadParts(ctx context.Context, m *vectorize.CSR, prefix, nameTemplate string, nParts int, channel string) error {
	for i, bounds := range trainset.Chunks(m.Rows, nParts) {
		chunk, err := m.RowRange(bounds[0], bounds[1])
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := recordio.WriteSparseMatrix(&buf, chunk); err != nil {
			return err
		}

		key := path.Join(prefix, fmt.Sprintf(nameTemplate, i))
		if err := s.store.Upload(ctx, key, buf.Bytes()); err != nil {
			return err
		}
		metrics.UploadedParts.WithLabelValues(channel).Inc()
	}
	return nil
}

// saveMatrix persists the full shuffled matrix locally so later scoring
// can reuse it without refitting.
func saveMatrix(dest string, m *vectorize.CSR) error {
	f, err := os.Create(dest) // #nosec G304 -- dest is rooted in the managed data directory
	if err != nil {
		return fmt.Errorf("failed to create vectors file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := recordio.WriteSparseMatrix(f, m); err != nil {
		return err
	}
	return f.Close()
}

// extractTitleText reads the merged content of one title's JSON files.
func extractTitleText(basePath, identifier string) (string, error) {
	return corpus.ExtractTitleText(filepath.Join(basePath, identifier))
}
