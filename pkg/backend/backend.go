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

// Package backend declares CloudBackend (spec.md §4.C2): the single
// interface the rest of the system consumes for document-store,
// blob-store, job-launch, log-read, secrets and notification
// operations. Two implementations exist — pkg/backend/keyedstore
// (DynamoDB/S3/ECS) and pkg/backend/documentdb (MongoDB) — selected at
// startup from config.CloudProvider. This is a sum type over a single
// interface, not a class hierarchy (spec.md §9 Design Notes).
package backend

import (
	"context"
	"time"
)

// Item is a generic row/document: every backend marshals/unmarshals
// domain entities through this shape at its boundary.
type Item = map[string]interface{}

// WriteOp is one write inside a transaction: either Put or Delete.
type WriteOp struct {
	Table  string
	Put    Item
	Delete *Key
}

// Key identifies a row/document by its composite primary key.
type Key struct {
	PK string
	SK string
}

// PutOp builds a Put WriteOp.
func PutOp(table string, item Item) WriteOp {
	return WriteOp{Table: table, Put: item}
}

// DeleteOp builds a Delete WriteOp.
func DeleteOp(table string, key Key) WriteOp {
	return WriteOp{Table: table, Delete: &key}
}

// Page is the result of a Read call: the matching items plus an opaque
// continuation cursor, present only when more results remain.
type Page struct {
	Items  []Item
	Cursor string
}

// JobStatus is the observed state of a launched job container.
type JobStatus struct {
	State         string
	StoppedReason string
}

// Credentials is the result of AssumeRole.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      time.Time
}

// LogLine is one line read back from a job's container logs.
type LogLine struct {
	Timestamp time.Time
	Message   string
}

// CloudBackend is the capability set the rest of the system consumes
// (spec.md §4.C2). Every operation either succeeds, returns a NotFound
// BackendError, or returns another BackendError; see pkg/apierrors.
type CloudBackend interface {
	// Read executes a Query (see query.go) and returns a page of
	// matching items plus a continuation cursor.
	Read(ctx context.Context, table string, q Query) (*Page, error)

	// TransactWrite performs up to 25 writes atomically.
	TransactWrite(ctx context.Context, ops []WriteOp) error

	// UploadBlob uploads bytes to the blob store under the given key.
	UploadBlob(ctx context.Context, bucket, key string, data []byte) error
	// DownloadBlob fetches bytes previously uploaded under key.
	DownloadBlob(ctx context.Context, bucket, key string) ([]byte, error)
	// PresignDownload returns a time-limited URL for key.
	PresignDownload(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)

	// LaunchJob starts a job container with the given payload and
	// resource request, returning its job id.
	LaunchJob(ctx context.Context, payload []byte, cpu, memory string) (string, error)
	// GetJobStatus returns a launched job's current state.
	GetJobStatus(ctx context.Context, jobID string) (*JobStatus, error)
	// GetCurrentJobID returns the job id of the calling container,
	// read from the container platform's own metadata.
	GetCurrentJobID(ctx context.Context) (string, error)

	// ReadLogs reads a page of a job's container logs.
	ReadLogs(ctx context.Context, project, region, jobID, cursor string, limit int) ([]LogLine, string, error)

	// PublishNotification sends a message to the configured
	// notification sink (e.g. an SNS topic).
	PublishNotification(ctx context.Context, message string) error

	// AssumeRole returns temporary credentials scoped to arn, used to
	// run Terraform against a deployment's own cloud account.
	AssumeRole(ctx context.Context, arn string, duration time.Duration) (*Credentials, error)

	// GetAllRegions returns the regions this control plane operates in.
	GetAllRegions(ctx context.Context) ([]string, error)
	// GetProjectMap returns project id -> allowed regions.
	GetProjectMap(ctx context.Context) (map[string][]string, error)
}
