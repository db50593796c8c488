// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

// Package training submits and tracks managed NTM topic-model training
// jobs on SageMaker.
package training

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"

	"github.com/recolibre/recolibre/internal/logging"
	"github.com/recolibre/recolibre/internal/metrics"
)

// ntmImageAccounts maps regions to the AWS accounts hosting the
// first-party algorithm images.
var ntmImageAccounts = map[string]string{
	"us-east-1":      "382416733822",
	"us-east-2":      "404615174143",
	"us-west-1":      "632365934929",
	"us-west-2":      "174872318107",
	"ca-central-1":   "469771592824",
	"eu-west-1":      "438346466558",
	"eu-west-2":      "644912444149",
	"eu-central-1":   "664544806723",
	"ap-northeast-1": "351501993468",
	"ap-northeast-2": "835164637446",
	"ap-southeast-1": "475088953585",
	"ap-southeast-2": "712309505854",
	"ap-south-1":     "991648021394",
	"sa-east-1":      "855470959533",
}

// NTMImageURI returns the NTM algorithm image for the given region.
func NTMImageURI(region string) (string, error) {
	account, ok := ntmImageAccounts[region]
	if !ok {
		return "", fmt.Errorf("no NTM algorithm image registered for region %s", region)
	}
	return fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com/ntm:1", account, region), nil
}

// recordIOContentType is the wire format of the uploaded training parts.
const recordIOContentType = "application/x-recordio-protobuf"

// SageMakerAPI is the subset of the SageMaker client the package uses.
type SageMakerAPI interface {
	CreateTrainingJob(ctx context.Context, params *sagemaker.CreateTrainingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateTrainingJobOutput, error)
	DescribeTrainingJob(ctx context.Context, params *sagemaker.DescribeTrainingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeTrainingJobOutput, error)
}

// Launcher creates and inspects training jobs in one region.
type Launcher struct {
	api    SageMakerAPI
	region string
}

// New builds a launcher from the shared AWS config.
func New(ctx context.Context, region, profile string) (*Launcher, error) {
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

	return &Launcher{api: sagemaker.NewFromConfig(cfg), region: region}, nil
}

// NewWithAPI builds a launcher around an existing SageMaker API implementation.
func NewWithAPI(api SageMakerAPI, region string) *Launcher {
	return &Launcher{api: api, region: region}
}

// JobSpec describes one NTM training job.
type JobSpec struct {
	JobName       string
	RoleARN       string
	TrainDataS3   string
	ValDataS3     string
	OutputPathS3  string
	VocabSize     int
	NumTopics     int
	InstanceType  string
	InstanceCount int
	MaxRuntime    time.Duration
}

// hyperParameters returns the NTM hyperparameter set. Values mirror the
// tuned configuration the model was validated with.
func (s *JobSpec) hyperParameters() map[string]string {
	return map[string]string{
		"num_topics":          strconv.Itoa(s.NumTopics),
		"feature_dim":         strconv.Itoa(s.VocabSize),
		"mini_batch_size":     "128",
		"epochs":              "100",
		"num_patience_epochs": "5",
		"tolerance":           "0.001",
	}
}

// Launch submits the training job. The train channel is sharded by S3
// key so each instance streams a disjoint subset of the uploaded parts;
// the validation channel is fully replicated.
func (l *Launcher) Launch(ctx context.Context, spec *JobSpec) error {
	image, err := NTMImageURI(l.region)
	if err != nil {
		return err
	}

	input := &sagemaker.CreateTrainingJobInput{
		TrainingJobName: aws.String(spec.JobName),
		RoleArn:         aws.String(spec.RoleARN),
		AlgorithmSpecification: &types.AlgorithmSpecification{
			TrainingImage:     aws.String(image),
			TrainingInputMode: types.TrainingInputModeFile,
		},
		HyperParameters: spec.hyperParameters(),
		InputDataConfig: []types.Channel{
			{
				ChannelName: aws.String("train"),
				ContentType: aws.String(recordIOContentType),
				DataSource: &types.DataSource{
					S3DataSource: &types.S3DataSource{
						S3DataType:             types.S3DataTypeS3Prefix,
						S3Uri:                  aws.String(spec.TrainDataS3),
						S3DataDistributionType: types.S3DataDistributionShardedByS3Key,
					},
				},
			},
			{
				ChannelName: aws.String("test"),
				ContentType: aws.String(recordIOContentType),
				DataSource: &types.DataSource{
					S3DataSource: &types.S3DataSource{
						S3DataType:             types.S3DataTypeS3Prefix,
						S3Uri:                  aws.String(spec.ValDataS3),
						S3DataDistributionType: types.S3DataDistributionFullyReplicated,
					},
				},
			},
		},
		OutputDataConfig: &types.OutputDataConfig{
			S3OutputPath: aws.String(spec.OutputPathS3),
		},
		ResourceConfig: &types.ResourceConfig{
			InstanceType:   types.TrainingInstanceType(spec.InstanceType),
			InstanceCount:  aws.Int32(int32(spec.InstanceCount)), // #nosec G115 -- instance count is validated small
			VolumeSizeInGB: aws.Int32(30),
		},
		StoppingCondition: &types.StoppingCondition{
			MaxRuntimeInSeconds: aws.Int32(int32(spec.MaxRuntime.Seconds())), // #nosec G115 -- runtime is validated small
		},
	}

	if _, err := l.api.CreateTrainingJob(ctx, input); err != nil {
		metrics.TrainingJobsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to create training job %s: %w", spec.JobName, err)
	}

	metrics.TrainingJobsTotal.WithLabelValues("submitted").Inc()
	logging.Info().
		Str("job_name", spec.JobName).
		Str("image", image).
		Str("train_data", spec.TrainDataS3).
		Str("output_path", spec.OutputPathS3).
		Msg("Training job submitted")
	return nil
}

// JobStatus is the condensed state of a training job.
type JobStatus struct {
	JobName         string     `json:"job_name"`
	Status          string     `json:"status"`
	SecondaryStatus string     `json:"secondary_status,omitempty"`
	FailureReason   string     `json:"failure_reason,omitempty"`
	ModelArtifacts  string     `json:"model_artifacts,omitempty"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
}

// Status fetches the current state of a training job.
func (l *Launcher) Status(ctx context.Context, jobName string) (*JobStatus, error) {
	out, err := l.api.DescribeTrainingJob(ctx, &sagemaker.DescribeTrainingJobInput{
		TrainingJobName: aws.String(jobName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe training job %s: %w", jobName, err)
	}

	status := &JobStatus{
		JobName:         jobName,
		Status:          string(out.TrainingJobStatus),
		SecondaryStatus: string(out.SecondaryStatus),
		StartTime:       out.TrainingStartTime,
		EndTime:         out.TrainingEndTime,
	}
	if out.FailureReason != nil {
		status.FailureReason = *out.FailureReason
	}
	if out.ModelArtifacts != nil && out.ModelArtifacts.S3ModelArtifacts != nil {
		status.ModelArtifacts = *out.ModelArtifacts.S3ModelArtifacts
	}
	return status, nil
}
