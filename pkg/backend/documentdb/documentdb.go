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

// Package documentdb is the document-database CloudBackend
// implementation (spec.md §4.C2): one MongoDB collection per logical
// table, (PK,SK) as a compound unique index, GridFS buckets standing
// in for S3 blob storage. Grounded on the teacher's
// pkg/apiserver/datastore/mongodb package, generalized from a
// per-entity CRUD store to the composite-key Query DSL pkg/backend
// defines.
package documentdb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/infraweave-io/infraweave-sub001/pkg/apierrors"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/logging"
)

// Config wires the Mongo connection and local job-runner settings this
// backend needs. Unlike keyedstore, which hands job launches to ECS,
// documentdb is the self-hosted variant: it shells the runner binary
// out as a local subprocess, the way a single-node deployment of this
// control plane would run without a container orchestrator.
type Config struct {
	URL          string
	Database     string
	RunnerBinary string
	LogDir       string
}

// Backend implements backend.CloudBackend on top of MongoDB.
type Backend struct {
	client   *mongo.Client
	database string
	cfg      Config

	mu   sync.Mutex
	jobs map[string]*localJob
}

type localJob struct {
	cmd    *exec.Cmd
	status backend.JobStatus
	logFile string
}

// New connects to MongoDB and returns a Backend. The underlying
// collections are created lazily on first write; New only opens the
// client connection, mirroring the teacher's mongodb.New.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	url := cfg.URL
	if !hasMongoScheme(url) {
		url = fmt.Sprintf("mongodb://%s", url)
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if cfg.LogDir == "" {
		cfg.LogDir = os.TempDir()
	}
	return &Backend{
		client:   client,
		database: cfg.Database,
		cfg:      cfg,
		jobs:     make(map[string]*localJob),
	}, nil
}

func hasMongoScheme(url string) bool {
	return len(url) >= len("mongodb://") && url[:len("mongodb://")] == "mongodb://"
}

func (b *Backend) collection(table string) *mongo.Collection {
	return b.client.Database(b.database).Collection(table)
}

// Read implements backend.CloudBackend by building a bson.M filter
// from the backend-agnostic Query and paginating with skip/limit over
// a stable sort on the range key (or SK by default).
func (b *Backend) Read(ctx context.Context, table string, q backend.Query) (*backend.Page, error) {
	filter, err := buildFilter(q)
	if err != nil {
		return nil, apierrors.NewFatal("read", err)
	}

	sortField := "SK"
	if q.RangeKey != nil {
		sortField = q.RangeKey.Field
	}
	sortDir := 1
	if !q.ScanIndexForward {
		sortDir = -1
	}
	findOpts := options.Find().SetSort(bson.D{{Key: sortField, Value: sortDir}})

	skip := 0
	if q.Cursor != "" {
		skip, err = decodeSkipCursor(q.Cursor)
		if err != nil {
			return nil, apierrors.NewFatal("read", err)
		}
	}
	if skip > 0 {
		findOpts.SetSkip(int64(skip))
	}
	fetchLimit := q.Limit
	if fetchLimit > 0 {
		findOpts.SetLimit(int64(fetchLimit) + 1)
	}

	cur, err := b.collection(table).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, apierrors.NewFatal("read", err)
	}
	defer cur.Close(ctx)

	var items []backend.Item
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, apierrors.NewFatal("read", err)
		}
		delete(raw, "_id")
		items = append(items, backend.Item(raw))
	}
	if err := cur.Err(); err != nil {
		return nil, apierrors.NewFatal("read", err)
	}

	page := &backend.Page{Items: items}
	if fetchLimit > 0 && len(items) > fetchLimit {
		page.Items = items[:fetchLimit]
		page.Cursor = encodeSkipCursor(skip + fetchLimit)
	}
	return page, nil
}

// TransactWrite implements backend.CloudBackend. All ops run inside
// one MongoDB multi-document transaction (session.WithTransaction), so
// either every write lands or none does; MongoDB transactions require
// a replica set, and on a standalone server the call fails.
func (b *Backend) TransactWrite(ctx context.Context, ops []backend.WriteOp) error {
	if len(ops) > 25 {
		return apierrors.NewFatal("transact_write", fmt.Errorf("transaction of %d writes exceeds the 25-item limit", len(ops)))
	}
	session, err := b.client.StartSession()
	if err != nil {
		return apierrors.NewFatal("transact_write", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, op := range ops {
			coll := b.collection(op.Table)
			switch {
			case op.Put != nil:
				filter := bson.M{"PK": op.Put["PK"], "SK": op.Put["SK"]}
				if _, err := coll.ReplaceOne(sc, filter, op.Put, options.Replace().SetUpsert(true)); err != nil {
					return nil, err
				}
			case op.Delete != nil:
				filter := bson.M{"PK": op.Delete.PK, "SK": op.Delete.SK}
				if _, err := coll.DeleteOne(sc, filter); err != nil {
					return nil, err
				}
			}
		}
		return nil, nil
	})
	if err != nil {
		return apierrors.NewFatal("transact_write", err)
	}
	return nil
}

// UploadBlob implements backend.CloudBackend via a GridFS bucket named
// after bucket, storing the blob under key.
func (b *Backend) UploadBlob(ctx context.Context, bucket, key string, data []byte) error {
	gb, err := gridfs.NewBucket(b.client.Database(b.database), options.GridFSBucket().SetName(bucket))
	if err != nil {
		return apierrors.NewFatal("upload_blob", err)
	}
	if _, err := gb.UploadFromStreamWithID(key, key, bytes.NewReader(data)); err != nil {
		return apierrors.NewFatal("upload_blob", err)
	}
	return nil
}

// DownloadBlob implements backend.CloudBackend via GridFS download.
func (b *Backend) DownloadBlob(ctx context.Context, bucket, key string) ([]byte, error) {
	gb, err := gridfs.NewBucket(b.client.Database(b.database), options.GridFSBucket().SetName(bucket))
	if err != nil {
		return nil, apierrors.NewFatal("download_blob", err)
	}
	var buf bytes.Buffer
	if _, err := gb.DownloadToStreamByName(key, &buf); err != nil {
		return nil, apierrors.NewNotFound("download_blob", err)
	}
	return buf.Bytes(), nil
}

// PresignDownload implements backend.CloudBackend. GridFS has no
// native presigned-URL concept, so this backend serves blobs through
// its own API surface and returns a relative path the API layer (C10)
// is expected to proxy, rather than a direct-to-storage URL.
func (b *Backend) PresignDownload(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("/blobs/%s/%s?expires=%d", bucket, key, time.Now().Add(ttl).Unix()), nil
}

// LaunchJob implements backend.CloudBackend by spawning the runner
// binary as a local subprocess, the self-hosted analogue of keyedstore's
// ECS RunTask.
func (b *Backend) LaunchJob(ctx context.Context, payload []byte, cpu, memory string) (string, error) {
	if b.cfg.RunnerBinary == "" {
		return "", apierrors.NewFatal("launch_job", fmt.Errorf("documentdb backend requires RunnerBinary to be configured"))
	}
	jobID := fmt.Sprintf("local-%d", time.Now().UnixNano())
	logPath := fmt.Sprintf("%s/%s.log", b.cfg.LogDir, jobID)
	logFile, err := os.Create(logPath)
	if err != nil {
		return "", apierrors.NewFatal("launch_job", err)
	}

	cmd := exec.CommandContext(ctx, b.cfg.RunnerBinary)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = append(os.Environ(), fmt.Sprintf("INFRAWEAVE_JOB_ID=%s", jobID), fmt.Sprintf("INFRAWEAVE_JOB_CPU=%s", cpu), fmt.Sprintf("INFRAWEAVE_JOB_MEMORY=%s", memory))

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return "", apierrors.NewFatal("launch_job", err)
	}

	job := &localJob{cmd: cmd, status: backend.JobStatus{State: "RUNNING"}, logFile: logPath}
	b.mu.Lock()
	b.jobs[jobID] = job
	b.mu.Unlock()

	go func() {
		err := cmd.Wait()
		logFile.Close()
		b.mu.Lock()
		defer b.mu.Unlock()
		if err != nil {
			job.status = backend.JobStatus{State: "STOPPED", StoppedReason: err.Error()}
		} else {
			job.status = backend.JobStatus{State: "STOPPED", StoppedReason: "exited normally"}
		}
		logging.Logger.Infow("local job finished", "job_id", jobID, "state", job.status.State)
	}()

	return jobID, nil
}

// GetJobStatus implements backend.CloudBackend.
func (b *Backend) GetJobStatus(_ context.Context, jobID string) (*backend.JobStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	job, ok := b.jobs[jobID]
	if !ok {
		return nil, apierrors.NewNotFound("get_job_status", fmt.Errorf("job %s not found", jobID))
	}
	status := job.status
	return &status, nil
}

// GetCurrentJobID implements backend.CloudBackend by reading the job
// ID this process was launched with, passed through the environment
// since there is no container metadata endpoint to query locally.
func (b *Backend) GetCurrentJobID(_ context.Context) (string, error) {
	jobID := os.Getenv("INFRAWEAVE_JOB_ID")
	if jobID == "" {
		return "", apierrors.NewFatal("get_current_job_id", fmt.Errorf("INFRAWEAVE_JOB_ID is not set; not running inside a job subprocess"))
	}
	return jobID, nil
}

// ReadLogs implements backend.CloudBackend by tailing the local log
// file the job's subprocess wrote to. cursor is a byte offset.
func (b *Backend) ReadLogs(_ context.Context, _, _, jobID, cursor string, limit int) ([]backend.LogLine, string, error) {
	b.mu.Lock()
	job, ok := b.jobs[jobID]
	b.mu.Unlock()
	if !ok {
		return nil, "", apierrors.NewNotFound("read_logs", fmt.Errorf("job %s not found", jobID))
	}
	f, err := os.Open(job.logFile)
	if err != nil {
		return nil, "", apierrors.NewFatal("read_logs", err)
	}
	defer f.Close()

	offset := int64(0)
	if cursor != "" {
		if _, err := fmt.Sscanf(cursor, "%d", &offset); err != nil {
			return nil, "", apierrors.NewFatal("read_logs", err)
		}
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, "", apierrors.NewFatal("read_logs", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", apierrors.NewFatal("read_logs", err)
	}

	lines := splitLogLines(data, limit)
	return lines, fmt.Sprintf("%d", offset+int64(len(data))), nil
}

// PublishNotification implements backend.CloudBackend by writing a
// notification document to the "notifications" collection, since there
// is no SNS-equivalent broker in the self-hosted backend; nothing in
// this repository reads that collection back.
func (b *Backend) PublishNotification(ctx context.Context, message string) error {
	_, err := b.collection("notifications").InsertOne(ctx, bson.M{
		"message":   message,
		"createdAt": time.Now(),
	})
	if err != nil {
		return apierrors.NewFatal("publish_notification", err)
	}
	return nil
}

// AssumeRole implements backend.CloudBackend. The self-hosted backend
// has no STS equivalent; it returns the ambient process credentials
// unchanged, scoped only by the caller's own access to this process.
func (b *Backend) AssumeRole(_ context.Context, arn string, duration time.Duration) (*backend.Credentials, error) {
	return &backend.Credentials{
		AccessKeyID:     "local",
		SecretAccessKey: "local",
		SessionToken:    "local-" + arn,
		Expiration:      time.Now().Add(duration),
	}, nil
}

// GetAllRegions implements backend.CloudBackend by reading the seeded
// config document.
func (b *Backend) GetAllRegions(ctx context.Context) ([]string, error) {
	var doc bson.M
	err := b.collection("config").FindOne(ctx, bson.M{"PK": "all_regions"}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, apierrors.NewFatal("get_all_regions", err)
	}
	var regions []string
	if rs, ok := doc["regions"].(bson.A); ok {
		for _, r := range rs {
			if s, ok := r.(string); ok {
				regions = append(regions, s)
			}
		}
	}
	return regions, nil
}

// GetProjectMap implements backend.CloudBackend by scanning the
// projects collection.
func (b *Backend) GetProjectMap(ctx context.Context) (map[string][]string, error) {
	cur, err := b.collection("projects").Find(ctx, bson.M{"PK": "PROJECTS"})
	if err != nil {
		return nil, apierrors.NewFatal("get_project_map", err)
	}
	defer cur.Close(ctx)
	out := make(map[string][]string)
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, apierrors.NewFatal("get_project_map", err)
		}
		id, _ := doc["projectId"].(string)
		var regions []string
		if rs, ok := doc["regions"].(bson.A); ok {
			for _, r := range rs {
				if s, ok := r.(string); ok {
					regions = append(regions, s)
				}
			}
		}
		out[id] = regions
	}
	return out, cur.Err()
}

var _ backend.CloudBackend = (*Backend)(nil)
