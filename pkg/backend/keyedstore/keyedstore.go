/*
Copyright 2024 The InfraWeave Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package keyedstore is the wide-column keyed-store CloudBackend
// implementation (spec.md §4.C2, §6.4): DynamoDB for the composite-key
// document store, S3 for blobs, ECS for job containers, CloudWatch
// Logs for log reads, SNS for notifications.
package keyedstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/infraweave-io/infraweave-sub001/pkg/apierrors"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
)

// Config wires the AWS resource names this backend needs.
type Config struct {
	Region          string
	Bucket          string
	ECSCluster      string
	ECSTaskTemplate string
	ECSSubnets      []string
	SNSTopicARN     string
	LogGroupName    string
}

// Backend implements backend.CloudBackend on top of AWS.
type Backend struct {
	cfg Config

	ddb *dynamodb.Client
	s3  *s3.Client
	ecs *ecs.Client
	cwl *cloudwatchlogs.Client
	sns *sns.Client
	sts *sts.Client
}

// New builds a Backend from the ambient AWS configuration (environment
// variables, shared config/credentials files, or an attached role).
func New(ctx context.Context, cfg Config) (*Backend, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Backend{
		cfg: cfg,
		ddb: dynamodb.NewFromConfig(awsCfg),
		s3:  s3.NewFromConfig(awsCfg),
		ecs: ecs.NewFromConfig(awsCfg),
		cwl: cloudwatchlogs.NewFromConfig(awsCfg),
		sns: sns.NewFromConfig(awsCfg),
		sts: sts.NewFromConfig(awsCfg),
	}, nil
}

// Read implements backend.CloudBackend via DynamoDB Query.
func (b *Backend) Read(ctx context.Context, table string, q backend.Query) (*backend.Page, error) {
	keyExpr, names, values, err := buildKeyConditionExpression(q)
	if err != nil {
		return nil, apierrors.NewFatal("read", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		KeyConditionExpression:    aws.String(keyExpr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(q.ScanIndexForward),
	}
	if q.Index != "" {
		input.IndexName = aws.String(q.Index)
	}
	if q.Limit > 0 {
		input.Limit = aws.Int32(int32(q.Limit))
	}
	if q.Cursor != "" {
		startKey, err := decodeCursor(q.Cursor)
		if err != nil {
			return nil, apierrors.NewFatal("read", err)
		}
		input.ExclusiveStartKey = startKey
	}

	out, err := b.ddb.Query(ctx, input)
	if err != nil {
		return nil, apierrors.NewFatal("read", err)
	}

	items := make([]backend.Item, 0, len(out.Items))
	for _, raw := range out.Items {
		var item backend.Item
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, apierrors.NewFatal("read", err)
		}
		items = append(items, item)
	}

	page := &backend.Page{Items: items}
	if out.LastEvaluatedKey != nil {
		cursor, err := encodeCursor(out.LastEvaluatedKey)
		if err != nil {
			return nil, apierrors.NewFatal("read", err)
		}
		page.Cursor = cursor
	}
	return page, nil
}

// TransactWrite implements backend.CloudBackend via
// TransactWriteItems, atomic across up to 25 items (spec.md §3).
func (b *Backend) TransactWrite(ctx context.Context, ops []backend.WriteOp) error {
	if len(ops) > 25 {
		return apierrors.NewFatal("transact_write", fmt.Errorf("transaction of %d writes exceeds the 25-item limit", len(ops)))
	}
	items := make([]ddbtypes.TransactWriteItem, 0, len(ops))
	for _, op := range ops {
		switch {
		case op.Put != nil:
			av, err := attributevalue.MarshalMap(op.Put)
			if err != nil {
				return apierrors.NewFatal("transact_write", err)
			}
			items = append(items, ddbtypes.TransactWriteItem{
				Put: &ddbtypes.Put{TableName: aws.String(op.Table), Item: av},
			})
		case op.Delete != nil:
			key, err := attributevalue.MarshalMap(map[string]interface{}{"PK": op.Delete.PK, "SK": op.Delete.SK})
			if err != nil {
				return apierrors.NewFatal("transact_write", err)
			}
			items = append(items, ddbtypes.TransactWriteItem{
				Delete: &ddbtypes.Delete{TableName: aws.String(op.Table), Key: key},
			})
		}
	}
	if _, err := b.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		return apierrors.NewFatal("transact_write", err)
	}
	return nil
}

// UploadBlob implements backend.CloudBackend via S3 PutObject.
func (b *Backend) UploadBlob(ctx context.Context, bucket, key string, data []byte) error {
	_, err := b.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytesReader(data),
	})
	if err != nil {
		return apierrors.NewFatal("upload_blob", err)
	}
	return nil
}

// DownloadBlob implements backend.CloudBackend via S3 GetObject.
func (b *Backend) DownloadBlob(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := b.s3.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, apierrors.NewNotFound("download_blob", err)
	}
	defer out.Body.Close()
	return readAll(out.Body)
}

// PresignDownload implements backend.CloudBackend via an S3 presign client.
func (b *Backend) PresignDownload(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	presigner := s3.NewPresignClient(b.s3)
	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", apierrors.NewFatal("presign_download", err)
	}
	return req.URL, nil
}

// LaunchJob implements backend.CloudBackend via ECS RunTask, retrying
// indefinitely with a fixed 1s backoff on NoAvailableRunner (spec.md §5).
func (b *Backend) LaunchJob(ctx context.Context, payload []byte, cpu, memory string) (string, error) {
	input := &ecs.RunTaskInput{
		Cluster:        aws.String(b.cfg.ECSCluster),
		TaskDefinition: aws.String(b.cfg.ECSTaskTemplate),
		LaunchType:     ecstypes.LaunchTypeFargate,
		NetworkConfiguration: &ecstypes.NetworkConfiguration{
			AwsvpcConfiguration: &ecstypes.AwsVpcConfiguration{
				Subnets:        b.cfg.ECSSubnets,
				AssignPublicIp: ecstypes.AssignPublicIpEnabled,
			},
		},
		Overrides: &ecstypes.TaskOverride{
			Cpu:    aws.String(cpu),
			Memory: aws.String(memory),
			ContainerOverrides: []ecstypes.ContainerOverride{
				{
					Name: aws.String("runner"),
					Environment: []ecstypes.KeyValuePair{
						{Name: aws.String("PAYLOAD"), Value: aws.String(string(payload))},
					},
				},
			},
		},
	}

	for {
		out, err := b.ecs.RunTask(ctx, input)
		if err != nil {
			return "", apierrors.NewFatal("launch_job", err)
		}
		if len(out.Tasks) == 0 {
			if isNoAvailableRunner(out.Failures) {
				select {
				case <-ctx.Done():
					return "", apierrors.NewFatal("launch_job", ctx.Err())
				case <-time.After(time.Second):
					continue
				}
			}
			return "", apierrors.NewFatal("launch_job", fmt.Errorf("no task started and no retryable failure reported"))
		}
		return aws.ToString(out.Tasks[0].TaskArn), nil
	}
}

func isNoAvailableRunner(failures []ecstypes.Failure) bool {
	for _, f := range failures {
		if aws.ToString(f.Reason) == "RESOURCE:FARGATE" || aws.ToString(f.Reason) == "AGENT" {
			return true
		}
	}
	return false
}

// GetJobStatus implements backend.CloudBackend via ECS DescribeTasks.
func (b *Backend) GetJobStatus(ctx context.Context, jobID string) (*backend.JobStatus, error) {
	out, err := b.ecs.DescribeTasks(ctx, &ecs.DescribeTasksInput{
		Cluster: aws.String(b.cfg.ECSCluster),
		Tasks:   []string{jobID},
	})
	if err != nil {
		return nil, apierrors.NewFatal("get_job_status", err)
	}
	if len(out.Tasks) == 0 {
		return nil, apierrors.NewNotFound("get_job_status", fmt.Errorf("job %s not found", jobID))
	}
	task := out.Tasks[0]
	return &backend.JobStatus{
		State:         aws.ToString(task.LastStatus),
		StoppedReason: aws.ToString(task.StoppedReason),
	}, nil
}

// GetCurrentJobID implements backend.CloudBackend by reading the ECS
// task metadata endpoint's task ARN, exposed by the platform at
// $ECS_CONTAINER_METADATA_URI_V4/task.
func (b *Backend) GetCurrentJobID(ctx context.Context) (string, error) {
	return currentECSTaskARN(ctx)
}

// ReadLogs implements backend.CloudBackend via CloudWatch Logs.
func (b *Backend) ReadLogs(ctx context.Context, project, region, jobID, cursor string, limit int) ([]backend.LogLine, string, error) {
	input := &cloudwatchlogs.GetLogEventsInput{
		LogGroupName:  aws.String(b.cfg.LogGroupName),
		LogStreamName: aws.String(fmt.Sprintf("%s/%s/%s", project, region, jobID)),
		StartFromHead: aws.Bool(true),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}
	if cursor != "" {
		input.NextToken = aws.String(cursor)
	}
	out, err := b.cwl.GetLogEvents(ctx, input)
	if err != nil {
		return nil, "", apierrors.NewFatal("read_logs", err)
	}
	lines := make([]backend.LogLine, 0, len(out.Events))
	for _, e := range out.Events {
		lines = append(lines, backend.LogLine{
			Timestamp: time.UnixMilli(aws.ToInt64(e.Timestamp)),
			Message:   aws.ToString(e.Message),
		})
	}
	return lines, aws.ToString(out.NextForwardToken), nil
}

// PublishNotification implements backend.CloudBackend via SNS Publish.
func (b *Backend) PublishNotification(ctx context.Context, message string) error {
	_, err := b.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(b.cfg.SNSTopicARN),
		Message:  aws.String(message),
	})
	if err != nil {
		return apierrors.NewFatal("publish_notification", err)
	}
	return nil
}

// AssumeRole implements backend.CloudBackend via STS AssumeRole.
func (b *Backend) AssumeRole(ctx context.Context, arn string, duration time.Duration) (*backend.Credentials, error) {
	provider := stscreds.NewAssumeRoleProvider(b.sts, arn, func(o *stscreds.AssumeRoleOptions) {
		o.Duration = duration
	})
	creds, err := provider.Retrieve(ctx)
	if err != nil {
		return nil, apierrors.NewFatal("assume_role", err)
	}
	return &backend.Credentials{
		AccessKeyID:     creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		SessionToken:    creds.SessionToken,
		Expiration:      creds.Expires,
	}, nil
}

// GetAllRegions implements backend.CloudBackend by reading the seeded
// Config row (spec.md §3, Config entity).
func (b *Backend) GetAllRegions(ctx context.Context) ([]string, error) {
	page, err := b.Read(ctx, "config", backend.HashEq("all_regions"))
	if err != nil {
		return nil, err
	}
	var regions []string
	for _, item := range page.Items {
		if rs, ok := item["regions"].([]interface{}); ok {
			for _, r := range rs {
				if s, ok := r.(string); ok {
					regions = append(regions, s)
				}
			}
		}
	}
	return regions, nil
}

// GetProjectMap implements backend.CloudBackend by scanning the
// PROJECTS partition (spec.md §3, Project entity).
func (b *Backend) GetProjectMap(ctx context.Context) (map[string][]string, error) {
	page, err := b.Read(ctx, "projects", backend.HashEq("PROJECTS").WithLimit(1000))
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string)
	for _, item := range page.Items {
		id, _ := item["projectId"].(string)
		var regions []string
		if rs, ok := item["regions"].([]interface{}); ok {
			for _, r := range rs {
				if s, ok := r.(string); ok {
					regions = append(regions, s)
				}
			}
		}
		out[id] = regions
	}
	return out, nil
}

var _ backend.CloudBackend = (*Backend)(nil)
