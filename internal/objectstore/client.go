// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

// Package objectstore wraps the S3 operations the pipeline needs:
// batched download of title archives and upload of serialized training
// parts.
package objectstore

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client the package uses. Narrowing the
// surface keeps tests free of real AWS calls.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client performs object storage transfers against a single bucket.
type Client struct {
	api    S3API
	bucket string
}

// New builds a client from the shared AWS config, honoring the named
// credentials profile and region.
func New(ctx context.Context, region, profile, bucket string) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Client{
		api:    s3.NewFromConfig(cfg),
		bucket: bucket,
	}, nil
}

// NewWithAPI builds a client around an existing S3 API implementation.
func NewWithAPI(api S3API, bucket string) *Client {
	return &Client{api: api, bucket: bucket}
}

// Bucket returns the bucket this client operates on.
func (c *Client) Bucket() string {
	return c.bucket
}
