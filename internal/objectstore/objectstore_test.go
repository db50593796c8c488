// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

package objectstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// fakeS3 serves objects from an in-memory map and records uploads.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	uploads map[string][]byte
}

func newFakeS3(objects map[string][]byte) *fakeS3 {
	return &fakeS3{
		objects: objects,
		uploads: make(map[string][]byte),
	}
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.objects[*params.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader(string(data))),
	}, nil
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.uploads[*params.Key] = data
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func TestDownloadOne(t *testing.T) {
	t.Parallel()

	fake := newFakeS3(map[string][]byte{
		"books/abc/page_01.json": []byte(`{"content": "hola"}`),
	})
	client := NewWithAPI(fake, "test-bucket")
	dest := t.TempDir()

	if err := client.DownloadOne(context.Background(), "books/abc/page_01.json", dest); err != nil {
		t.Fatalf("download failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "books", "abc", "page_01.json"))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != `{"content": "hola"}` {
		t.Errorf("unexpected file contents: %q", string(data))
	}
}

func TestDownloadOneMissingKey(t *testing.T) {
	t.Parallel()

	client := NewWithAPI(newFakeS3(nil), "test-bucket")
	err := client.DownloadOne(context.Background(), "ghost.json", t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing key")
	}
	if !strings.Contains(err.Error(), "ghost.json") {
		t.Errorf("expected error to name the key, got: %v", err)
	}
}

func TestDownloadBatchCollectsFailures(t *testing.T) {
	t.Parallel()

	fake := newFakeS3(map[string][]byte{
		"a.json": []byte("a"),
		"b.json": []byte("b"),
	})
	client := NewWithAPI(fake, "test-bucket")

	result, err := client.DownloadBatch(context.Background(),
		[]string{"a.json", "missing.json", "b.json"}, t.TempDir(), 2)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	if result.Downloaded != 2 {
		t.Errorf("expected 2 downloads, got %d", result.Downloaded)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(result.Failed))
	}
	if _, ok := result.Failed["missing.json"]; !ok {
		t.Errorf("expected missing.json in failures, got %v", result.FailedKeys())
	}
}

func TestDownloadBatchEmptyKeys(t *testing.T) {
	t.Parallel()

	client := NewWithAPI(newFakeS3(nil), "test-bucket")
	result, err := client.DownloadBatch(context.Background(), nil, t.TempDir(), 4)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if result.Downloaded != 0 || len(result.Failed) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestUpload(t *testing.T) {
	t.Parallel()

	fake := newFakeS3(nil)
	client := NewWithAPI(fake, "test-bucket")

	payload := []byte{0xca, 0xfe}
	if err := client.Upload(context.Background(), "recommender/train/train_part0.pbr", payload); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	got, ok := fake.uploads["recommender/train/train_part0.pbr"]
	if !ok {
		t.Fatal("expected uploaded object")
	}
	if string(got) != string(payload) {
		t.Errorf("payload mismatch: %v", got)
	}
}

func TestBucket(t *testing.T) {
	t.Parallel()

	client := NewWithAPI(newFakeS3(nil), "sagemaker-erecommender")
	if client.Bucket() != "sagemaker-erecommender" {
		t.Errorf("unexpected bucket: %s", client.Bucket())
	}
}
