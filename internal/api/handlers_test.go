// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	smtypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/goccy/go-json"

	"github.com/recolibre/recolibre/internal/config"
	"github.com/recolibre/recolibre/internal/database"
	"github.com/recolibre/recolibre/internal/models"
	"github.com/recolibre/recolibre/internal/objectstore"
	"github.com/recolibre/recolibre/internal/pipeline"
	"github.com/recolibre/recolibre/internal/training"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	uploads map[string][]byte
}

func (f *fakeS3) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*params.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(string(data)))}, nil
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

type fakeSageMaker struct {
	createErr   error
	describeOut *sagemaker.DescribeTrainingJobOutput
	describeErr error
}

func (f *fakeSageMaker) CreateTrainingJob(_ context.Context, _ *sagemaker.CreateTrainingJobInput, _ ...func(*sagemaker.Options)) (*sagemaker.CreateTrainingJobOutput, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &sagemaker.CreateTrainingJobOutput{}, nil
}

func (f *fakeSageMaker) DescribeTrainingJob(_ context.Context, _ *sagemaker.DescribeTrainingJobInput, _ ...func(*sagemaker.Options)) (*sagemaker.DescribeTrainingJobOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return f.describeOut, nil
}

type testEnv struct {
	server *httptest.Server
	db     *database.DB
	s3     *fakeS3
	sm     *fakeSageMaker
	cfg    *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:          8642,
			RateLimitReqs: 1000,
		},
		Storage: config.StorageConfig{
			Region: "us-east-1",
			Bucket: "test-bucket",
			Prefix: "recommender",
		},
		Training: config.TrainingConfig{
			VocabSize:     100,
			NumTopics:     5,
			MaxDF:         0.95,
			MinDF:         1,
			TrainFraction: 0.8,
			TrainParts:    2,
			ValParts:      1,
			InstanceType:  "ml.c5.xlarge",
			InstanceCount: 2,
			RoleARN:       "arn:aws:iam::123456789012:role/training",
		},
		Pipeline: config.PipelineConfig{
			BookPath:        t.TempDir(),
			DownloadWorkers: 2,
		},
	}

	db, err := database.New(&config.DatabaseConfig{
		Path:      filepath.Join(t.TempDir(), "titles.db"),
		MaxMemory: "256MB",
		Threads:   1,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	fake := &fakeS3{objects: make(map[string][]byte), uploads: make(map[string][]byte)}
	store := objectstore.NewWithAPI(fake, cfg.Storage.Bucket)
	factory := func(_ context.Context, _, _, bucket string) (*objectstore.Client, error) {
		return objectstore.NewWithAPI(fake, bucket), nil
	}
	svc := pipeline.New(db, store, nil, cfg, factory).WithSeed(func() int64 { return 7 })

	sm := &fakeSageMaker{}
	launcher := training.NewWithAPI(sm, cfg.Storage.Region)

	handler := NewHandler(svc, launcher, db, cfg)
	server := httptest.NewServer(NewRouter(handler, &cfg.Server))
	t.Cleanup(server.Close)

	return &testEnv{server: server, db: db, s3: fake, sm: sm, cfg: cfg}
}

func (e *testEnv) post(t *testing.T, path, body string) (*http.Response, *models.APIResponse) {
	t.Helper()
	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp, decodeEnvelope(t, resp)
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, *models.APIResponse) {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp, decodeEnvelope(t, resp)
}

func decodeEnvelope(t *testing.T, resp *http.Response) *models.APIResponse {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var envelope models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response envelope: %v", err)
	}
	return &envelope
}

func seedTitle(t *testing.T, db *database.DB, identifier, text string) {
	t.Helper()
	ctx := context.Background()
	title := models.Title{Identifier: identifier, Theme: "novela", Name: "Title " + identifier}
	if _, err := db.InsertTitle(ctx, &title); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if text != "" {
		if err := db.UpdateCompleteText(ctx, identifier, text); err != nil {
			t.Fatalf("text update failed: %v", err)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	resp, envelope := env.get(t, "/api/v1/health")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if envelope.Status != "success" {
		t.Errorf("expected success envelope, got %s", envelope.Status)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestReadyEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	resp, envelope := env.get(t, "/api/v1/health/ready")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if envelope.Status != "success" {
		t.Errorf("expected success envelope, got %s", envelope.Status)
	}
}

func TestDownloadTitlesValidation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	resp, envelope := env.post(t, "/api/v1/titles/download", `{"region_name": "us-east-1"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %+v", envelope.Error)
	}
}

func TestDownloadTitlesInvalidJSON(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	resp, envelope := env.post(t, "/api/v1/titles/download", `{"bucket_name": `)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != "INVALID_JSON" {
		t.Errorf("expected INVALID_JSON, got %+v", envelope.Error)
	}
}

func TestDownloadTitlesBatch(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.s3.mu.Lock()
	env.s3.objects["abc/page_01.json"] = []byte(`{"content": "hola"}`)
	env.s3.mu.Unlock()

	resp, envelope := env.post(t, "/api/v1/titles/download", `{
		"profile_name": "prod",
		"bucket_name": "test-bucket",
		"region_name": "us-east-1",
		"list_keys": ["abc/page_01.json", "missing.json"]
	}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	data := envelope.Data.(map[string]interface{})
	if data["downloaded"].(float64) != 1 {
		t.Errorf("expected 1 downloaded, got %v", data["downloaded"])
	}
	if data["errors"].(float64) != 1 {
		t.Errorf("expected 1 error, got %v", data["errors"])
	}
}

func TestMapTitlesInline(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	resp, envelope := env.post(t, "/api/v1/titles/map", `{
		"has_service": false,
		"titles": [
			{"sync_key": "k1", "title_name": "Rayuela", "publisher": {"name": "Sudamericana"}, "theme": [{"name": "novela"}]}
		]
	}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	data := envelope.Data.(map[string]interface{})
	if data["created"].(float64) != 1 {
		t.Errorf("expected 1 created, got %v", data["created"])
	}

	title, err := env.db.GetByIdentifier(context.Background(), "k1")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if title.Name != "Rayuela" {
		t.Errorf("unexpected title name: %s", title.Name)
	}
}

func TestMapTitlesEmptyPayload(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	resp, envelope := env.post(t, "/api/v1/titles/map", `{"has_service": false}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %+v", envelope.Error)
	}
}

func TestExtractTextEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	seedTitle(t, env.db, "abc", "")

	resp, envelope := env.post(t, "/api/v1/titles/extract-text", `{}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	data := envelope.Data.(map[string]interface{})
	// Folder missing on disk, so the title lands in failed
	if failed, ok := data["failed"].([]interface{}); !ok || len(failed) != 1 {
		t.Errorf("expected 1 failed identifier, got %v", data["failed"])
	}
}

func TestPrepareTrainDataNoTitles(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	resp, envelope := env.post(t, "/api/v1/train/prepare", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != "NO_TRAINING_TITLES" {
		t.Errorf("expected NO_TRAINING_TITLES, got %+v", envelope.Error)
	}
}

func TestPrepareAndCreateJobFlow(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	texts := []string{
		"el zorro cruza el bosque oscuro cada noche",
		"la luna ilumina el bosque y el rio callado",
		"un barco cruza el mar hacia puerto lejano",
		"la ciudad despierta entre ruido y mercado",
		"el poeta escribe versos sobre la luna y el mar",
	}
	for i, text := range texts {
		seedTitle(t, env.db, "t"+string(rune('a'+i)), text)
	}

	resp, envelope := env.post(t, "/api/v1/train/prepare", `{}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("prepare: expected 200, got %d", resp.StatusCode)
	}

	data := envelope.Data.(map[string]interface{})
	paths := data["paths"].(map[string]interface{})
	if paths["s3_train_data"] != "s3://test-bucket/recommender/train" {
		t.Errorf("unexpected train path: %v", paths["s3_train_data"])
	}

	jobBody, err := json.Marshal(map[string]interface{}{
		"job_name": "ntm-topics-test",
		"paths":    paths,
	})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	resp, envelope = env.post(t, "/api/v1/train/jobs", string(jobBody))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("create job: expected 202, got %d (error: %+v)", resp.StatusCode, envelope.Error)
	}
	jobData := envelope.Data.(map[string]interface{})
	if jobData["job_name"] != "ntm-topics-test" {
		t.Errorf("unexpected job name: %v", jobData["job_name"])
	}
}

func TestCreateJobMissingPaths(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	resp, envelope := env.post(t, "/api/v1/train/jobs", `{"paths": {"s3_train_data": "s3://b/train"}}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %+v", envelope.Error)
	}
}

func TestCreateJobLaunchFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.sm.createErr = errors.New("AccessDenied")

	resp, envelope := env.post(t, "/api/v1/train/jobs", `{
		"paths": {
			"s3_train_data": "s3://test-bucket/recommender/train",
			"s3_val_data": "s3://test-bucket/recommender/val",
			"output_path": "s3://test-bucket/recommender/output"
		}
	}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != "JOB_CREATION_FAILED" {
		t.Errorf("expected JOB_CREATION_FAILED, got %+v", envelope.Error)
	}
}

func TestGetTrainingJobStatus(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.sm.describeOut = &sagemaker.DescribeTrainingJobOutput{
		TrainingJobStatus: smtypes.TrainingJobStatusInProgress,
		SecondaryStatus:   smtypes.SecondaryStatusTraining,
	}

	resp, envelope := env.get(t, "/api/v1/train/jobs/ntm-topics-test")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	data := envelope.Data.(map[string]interface{})
	if data["status"] != "InProgress" {
		t.Errorf("unexpected status: %v", data["status"])
	}
	if data["job_name"] != "ntm-topics-test" {
		t.Errorf("unexpected job name: %v", data["job_name"])
	}
}

func TestGetTrainingJobLookupFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.sm.describeErr = errors.New("ValidationException")

	resp, envelope := env.get(t, "/api/v1/train/jobs/ghost")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Code != "JOB_LOOKUP_FAILED" {
		t.Errorf("expected JOB_LOOKUP_FAILED, got %+v", envelope.Error)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	resp, err := http.Get(env.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(body), "api_active_requests") {
		t.Error("expected api_active_requests in metrics output")
	}
}
