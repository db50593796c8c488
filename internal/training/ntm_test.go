// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

package training

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
)

type fakeSageMaker struct {
	createInput *sagemaker.CreateTrainingJobInput
	createErr   error

	describeOutput *sagemaker.DescribeTrainingJobOutput
	describeErr    error
}

func (f *fakeSageMaker) CreateTrainingJob(_ context.Context, params *sagemaker.CreateTrainingJobInput, _ ...func(*sagemaker.Options)) (*sagemaker.CreateTrainingJobOutput, error) {
	f.createInput = params
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &sagemaker.CreateTrainingJobOutput{}, nil
}

func (f *fakeSageMaker) DescribeTrainingJob(_ context.Context, _ *sagemaker.DescribeTrainingJobInput, _ ...func(*sagemaker.Options)) (*sagemaker.DescribeTrainingJobOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	return f.describeOutput, nil
}

func testSpec() *JobSpec {
	return &JobSpec{
		JobName:       "ntm-topics-20260826",
		RoleARN:       "arn:aws:iam::123456789012:role/recommender-training",
		TrainDataS3:   "s3://sagemaker-erecommender/recommender/train",
		ValDataS3:     "s3://sagemaker-erecommender/recommender/val",
		OutputPathS3:  "s3://sagemaker-erecommender/recommender/output",
		VocabSize:     2000,
		NumTopics:     50,
		InstanceType:  "ml.c5.xlarge",
		InstanceCount: 2,
		MaxRuntime:    24 * time.Hour,
	}
}

func TestNTMImageURI(t *testing.T) {
	t.Parallel()

	uri, err := NTMImageURI("us-east-1")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if uri != "382416733822.dkr.ecr.us-east-1.amazonaws.com/ntm:1" {
		t.Errorf("unexpected image URI: %s", uri)
	}

	if _, err := NTMImageURI("mars-north-1"); err == nil {
		t.Error("expected error for unknown region")
	}
}

func TestLaunchBuildsJobInput(t *testing.T) {
	t.Parallel()

	fake := &fakeSageMaker{}
	launcher := NewWithAPI(fake, "eu-west-1")

	if err := launcher.Launch(context.Background(), testSpec()); err != nil {
		t.Fatalf("launch failed: %v", err)
	}

	in := fake.createInput
	if in == nil {
		t.Fatal("expected CreateTrainingJob call")
	}
	if *in.TrainingJobName != "ntm-topics-20260826" {
		t.Errorf("unexpected job name: %s", *in.TrainingJobName)
	}
	if !strings.HasPrefix(*in.AlgorithmSpecification.TrainingImage, "438346466558.dkr.ecr.eu-west-1") {
		t.Errorf("unexpected training image: %s", *in.AlgorithmSpecification.TrainingImage)
	}

	hp := in.HyperParameters
	for key, want := range map[string]string{
		"num_topics":          "50",
		"feature_dim":         "2000",
		"mini_batch_size":     "128",
		"epochs":              "100",
		"num_patience_epochs": "5",
		"tolerance":           "0.001",
	} {
		if hp[key] != want {
			t.Errorf("hyperparameter %s = %q, want %q", key, hp[key], want)
		}
	}

	if len(in.InputDataConfig) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(in.InputDataConfig))
	}
	train := in.InputDataConfig[0]
	if *train.ChannelName != "train" {
		t.Errorf("unexpected channel name: %s", *train.ChannelName)
	}
	if train.DataSource.S3DataSource.S3DataDistributionType != types.S3DataDistributionShardedByS3Key {
		t.Error("train channel should be sharded by S3 key")
	}
	test := in.InputDataConfig[1]
	if *test.ChannelName != "test" {
		t.Errorf("unexpected channel name: %s", *test.ChannelName)
	}
	if test.DataSource.S3DataSource.S3DataDistributionType != types.S3DataDistributionFullyReplicated {
		t.Error("validation channel should be fully replicated")
	}

	if *in.ResourceConfig.InstanceCount != 2 {
		t.Errorf("unexpected instance count: %d", *in.ResourceConfig.InstanceCount)
	}
	if in.ResourceConfig.InstanceType != types.TrainingInstanceType("ml.c5.xlarge") {
		t.Errorf("unexpected instance type: %s", in.ResourceConfig.InstanceType)
	}
	if *in.StoppingCondition.MaxRuntimeInSeconds != 86400 {
		t.Errorf("unexpected max runtime: %d", *in.StoppingCondition.MaxRuntimeInSeconds)
	}
}

func TestLaunchUnknownRegion(t *testing.T) {
	t.Parallel()

	launcher := NewWithAPI(&fakeSageMaker{}, "mars-north-1")
	if err := launcher.Launch(context.Background(), testSpec()); err == nil {
		t.Error("expected error for unknown region")
	}
}

func TestLaunchAPIError(t *testing.T) {
	t.Parallel()

	fake := &fakeSageMaker{createErr: errors.New("AccessDenied")}
	launcher := NewWithAPI(fake, "us-east-1")
	if err := launcher.Launch(context.Background(), testSpec()); err == nil {
		t.Error("expected API error to propagate")
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	started := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	fake := &fakeSageMaker{
		describeOutput: &sagemaker.DescribeTrainingJobOutput{
			TrainingJobStatus: types.TrainingJobStatusCompleted,
			SecondaryStatus:   types.SecondaryStatusCompleted,
			TrainingStartTime: &started,
			ModelArtifacts: &types.ModelArtifacts{
				S3ModelArtifacts: aws.String("s3://sagemaker-erecommender/recommender/output/model.tar.gz"),
			},
		},
	}
	launcher := NewWithAPI(fake, "us-east-1")

	status, err := launcher.Status(context.Background(), "ntm-topics-20260826")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.Status != "Completed" {
		t.Errorf("unexpected status: %s", status.Status)
	}
	if status.ModelArtifacts == "" {
		t.Error("expected model artifacts path")
	}
	if status.StartTime == nil || !status.StartTime.Equal(started) {
		t.Errorf("unexpected start time: %v", status.StartTime)
	}
}

func TestStatusError(t *testing.T) {
	t.Parallel()

	fake := &fakeSageMaker{describeErr: errors.New("ValidationException")}
	launcher := NewWithAPI(fake, "us-east-1")
	if _, err := launcher.Status(context.Background(), "ghost"); err == nil {
		t.Error("expected describe error to propagate")
	}
}
