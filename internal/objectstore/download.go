// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/panjf2000/ants/v2"

	"github.com/recolibre/recolibre/internal/logging"
	"github.com/recolibre/recolibre/internal/metrics"
)

// BatchResult summarizes a batch download: how many objects landed and
// which keys failed, with their errors.
type BatchResult struct {
	Downloaded int
	Failed     map[string]error
}

// FailedKeys returns the failed keys in no particular order.
func (r *BatchResult) FailedKeys() []string {
	keys := make([]string, 0, len(r.Failed))
	for k := range r.Failed {
		keys = append(keys, k)
	}
	return keys
}

// DownloadOne fetches a single object to destDir, creating any
// intermediate directories the key implies.
func (c *Client) DownloadOne(ctx context.Context, key, destDir string) error {
	start := time.Now()

	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("failed to fetch s3://%s/%s: %w", c.bucket, key, err)
	}
	defer func() { _ = out.Body.Close() }()

	dest := filepath.Join(destDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		metrics.DownloadsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}

	f, err := os.Create(dest) // #nosec G304 -- dest is rooted in the managed data directory
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if _, err := io.Copy(f, out.Body); err != nil {
		_ = f.Close()
		metrics.DownloadsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		metrics.DownloadsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("failed to close %s: %w", dest, err)
	}

	metrics.DownloadsTotal.WithLabelValues("success").Inc()
	metrics.DownloadDuration.Observe(time.Since(start).Seconds())
	return nil
}

// DownloadBatch fetches the given keys concurrently through a bounded
// worker pool. Failures are collected per key; one bad key never aborts
// the rest of the batch.
func (c *Client) DownloadBatch(ctx context.Context, keys []string, destDir string, workers int) (*BatchResult, error) {
	if workers <= 0 {
		workers = 1
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create download pool: %w", err)
	}
	defer pool.Release()

	result := &BatchResult{Failed: make(map[string]error)}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, key := range keys {
		key := key
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			if err := c.DownloadOne(ctx, key, destDir); err != nil {
				logging.Warn().Err(err).Str("key", key).Msg("Object download failed")
				mu.Lock()
				result.Failed[key] = err
				mu.Unlock()
				return
			}
			mu.Lock()
			result.Downloaded++
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			result.Failed[key] = fmt.Errorf("failed to submit download: %w", submitErr)
			mu.Unlock()
		}
	}
	wg.Wait()

	logging.Info().
		Int("downloaded", result.Downloaded).
		Int("failed", len(result.Failed)).
		Str("bucket", c.bucket).
		Msg("Batch download finished")
	return result, nil
}
