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

// Package backendtest provides an in-memory CloudBackend fake for unit
// tests of the packages layered on top of it, mirroring the way the
// teacher's domain-service tests run against a fake/mock datastore
// rather than a live database.
package backendtest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/infraweave-io/infraweave-sub001/pkg/apierrors"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
)

// Fake is an in-memory CloudBackend used by package tests across the
// module. It is not goroutine-optimized; it is correctness-first.
type Fake struct {
	mu sync.Mutex

	tables map[string][]backend.Item
	blobs  map[string][]byte

	jobs      map[string]*backend.JobStatus
	jobSeq    int
	CurrentJobID string

	Notifications []string

	Regions     []string
	ProjectMap  map[string][]string
}

// New constructs an empty Fake.
func New() *Fake {
	return &Fake{
		tables:     make(map[string][]backend.Item),
		blobs:      make(map[string][]byte),
		jobs:       make(map[string]*backend.JobStatus),
		Regions:    []string{"eu-west-1", "us-east-1"},
		ProjectMap: map[string][]string{},
	}
}

func key(item backend.Item) (string, string) {
	pk, _ := item["PK"].(string)
	sk, _ := item["SK"].(string)
	return pk, sk
}

// Read implements backend.CloudBackend.
func (f *Fake) Read(_ context.Context, table string, q backend.Query) (*backend.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	hashField := q.HashKey.Field
	if hashField == "" {
		hashField = "PK"
	}
	var out []backend.Item
	for _, item := range f.tables[table] {
		v, _ := item[hashField].(string)
		if v != q.HashKey.Value {
			continue
		}
		if q.RangeKey != nil {
			rv, _ := item[q.RangeKey.Field].(string)
			if !matchCondition(rv, item[q.RangeKey.Field], *q.RangeKey) {
				continue
			}
		}
		out = append(out, item)
	}

	sortField := "SK"
	if q.RangeKey != nil {
		sortField = q.RangeKey.Field
	}
	sort.SliceStable(out, func(i, j int) bool {
		a := fmt.Sprint(out[i][sortField])
		b := fmt.Sprint(out[j][sortField])
		if q.ScanIndexForward {
			return a < b
		}
		return a > b
	})

	start := 0
	if q.Cursor != "" {
		if n, err := strconv.Atoi(q.Cursor); err == nil {
			start = n
		}
	}
	if start > len(out) {
		start = len(out)
	}
	out = out[start:]

	cursor := ""
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
		cursor = strconv.Itoa(start + q.Limit)
	}
	return &backend.Page{Items: out, Cursor: cursor}, nil
}

func matchCondition(rv string, raw interface{}, c backend.Condition) bool {
	switch c.Op {
	case backend.OpEq:
		return rv == fmt.Sprint(c.Value)
	case backend.OpStartsWith:
		return strings.HasPrefix(rv, fmt.Sprint(c.Value))
	case backend.OpBetween:
		return fmt.Sprint(c.Value) <= rv && rv <= fmt.Sprint(c.Value2)
	case backend.OpGte:
		return compareNumericOrString(raw, c.Value) >= 0
	case backend.OpLte:
		return compareNumericOrString(raw, c.Value) <= 0
	default:
		return true
	}
}

func compareNumericOrString(a, b interface{}) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	return strings.Compare(as, bs)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// TransactWrite implements backend.CloudBackend.
func (f *Fake) TransactWrite(_ context.Context, ops []backend.WriteOp) error {
	if len(ops) > 25 {
		return apierrors.NewFatal("transact_write", fmt.Errorf("transaction exceeds 25 writes"))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, op := range ops {
		if op.Put != nil {
			f.putLocked(op.Table, op.Put)
		}
		if op.Delete != nil {
			f.deleteLocked(op.Table, *op.Delete)
		}
	}
	return nil
}

func (f *Fake) putLocked(table string, item backend.Item) {
	pk, sk := key(item)
	rows := f.tables[table]
	for i, existing := range rows {
		epk, esk := key(existing)
		if epk == pk && esk == sk {
			rows[i] = item
			f.tables[table] = rows
			return
		}
	}
	f.tables[table] = append(rows, item)
}

func (f *Fake) deleteLocked(table string, k backend.Key) {
	rows := f.tables[table]
	filtered := rows[:0]
	for _, existing := range rows {
		epk, esk := key(existing)
		if epk == k.PK && esk == k.SK {
			continue
		}
		filtered = append(filtered, existing)
	}
	f.tables[table] = filtered
}

// Put is a single-item convenience wrapper over TransactWrite, used by
// test setup code.
func (f *Fake) Put(ctx context.Context, table string, item backend.Item) error {
	return f.TransactWrite(ctx, []backend.WriteOp{backend.PutOp(table, item)})
}

// UploadBlob implements backend.CloudBackend.
func (f *Fake) UploadBlob(_ context.Context, bucket, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[bucket+"/"+key] = append([]byte(nil), data...)
	return nil
}

// DownloadBlob implements backend.CloudBackend.
func (f *Fake) DownloadBlob(_ context.Context, bucket, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[bucket+"/"+key]
	if !ok {
		return nil, apierrors.NewNotFound("download_blob", fmt.Errorf("%s/%s not found", bucket, key))
	}
	return append([]byte(nil), data...), nil
}

// PresignDownload implements backend.CloudBackend.
func (f *Fake) PresignDownload(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://fake-blob.test/%s/%s?ttl=%s", bucket, key, ttl), nil
}

// LaunchJob implements backend.CloudBackend.
func (f *Fake) LaunchJob(_ context.Context, _ []byte, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobSeq++
	id := fmt.Sprintf("job-%d", f.jobSeq)
	f.jobs[id] = &backend.JobStatus{State: "RUNNING"}
	f.CurrentJobID = id
	return id, nil
}

// GetJobStatus implements backend.CloudBackend.
func (f *Fake) GetJobStatus(_ context.Context, jobID string) (*backend.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.jobs[jobID]
	if !ok {
		return nil, apierrors.NewNotFound("get_job_status", fmt.Errorf("job %s not found", jobID))
	}
	return st, nil
}

// GetCurrentJobID implements backend.CloudBackend.
func (f *Fake) GetCurrentJobID(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CurrentJobID == "" {
		return "", apierrors.NewFatal("get_current_job_id", fmt.Errorf("not running inside a job container"))
	}
	return f.CurrentJobID, nil
}

// ReadLogs implements backend.CloudBackend.
func (f *Fake) ReadLogs(_ context.Context, _, _, _, _ string, _ int) ([]backend.LogLine, string, error) {
	return nil, "", nil
}

// PublishNotification implements backend.CloudBackend.
func (f *Fake) PublishNotification(_ context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Notifications = append(f.Notifications, message)
	return nil
}

// AssumeRole implements backend.CloudBackend.
func (f *Fake) AssumeRole(_ context.Context, arn string, duration time.Duration) (*backend.Credentials, error) {
	return &backend.Credentials{
		AccessKeyID:     "FAKEKEY",
		SecretAccessKey: "FAKESECRET",
		SessionToken:    "FAKETOKEN-" + arn,
		Expiration:      time.Now().Add(duration),
	}, nil
}

// GetAllRegions implements backend.CloudBackend.
func (f *Fake) GetAllRegions(_ context.Context) ([]string, error) {
	return f.Regions, nil
}

// GetProjectMap implements backend.CloudBackend.
func (f *Fake) GetProjectMap(_ context.Context) (map[string][]string, error) {
	return f.ProjectMap, nil
}

var _ backend.CloudBackend = (*Fake)(nil)
