// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

package objectstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/recolibre/recolibre/internal/logging"
	"github.com/recolibre/recolibre/internal/metrics"
)

// Upload stores data at the given key.
func (c *Client) Upload(ctx context.Context, key string, data []byte) error {
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload s3://%s/%s: %w", c.bucket, key, err)
	}

	metrics.UploadedBytes.Add(float64(len(data)))
	logging.Info().
		Str("key", key).
		Str("bucket", c.bucket).
		Int("bytes", len(data)).
		Msg("Uploaded object")
	return nil
}
