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

package query

import (
	"context"
	"encoding/json"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/ids"
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

// ListDeploymentsByProject lists a project/region/environment's
// deployments via DeletedIndex, skipping logically-deleted rows
// unless includeDeleted is set. cursor, when non-empty, resumes from
// a previous call's returned cursor.
func ListDeploymentsByProject(ctx context.Context, be backend.CloudBackend, project, region, environment string, includeDeleted bool, limit int, cursor string) ([]*model.Deployment, string, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	q := backend.HashEqOnIndex("DeletedIndex", "deleted_PK_base", ids.DeletedIndexPK(includeDeleted, project, region, environment)).WithLimit(limit)
	if cursor != "" {
		q = q.WithCursor(cursor)
	}
	page, err := be.Read(ctx, "deployments", q)
	if err != nil {
		return nil, "", err
	}
	deployments, err := itemsToDeployments(page.Items)
	if err != nil {
		return nil, "", err
	}
	return deployments, page.Cursor, nil
}

// ListDeploymentsByModule lists every non-deleted deployment running
// (module, track), across projects, via ModuleIndex.
func ListDeploymentsByModule(ctx context.Context, be backend.CloudBackend, module, track string, limit int, cursor string) ([]*model.Deployment, string, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	q := backend.HashEqOnIndex("ModuleIndex", "module_PK_base", ids.ModuleIndexPK(module, track)).
		WithRangeStartsWith("deleted_PK", ids.NotDeletedRangePrefix()).
		WithLimit(limit)
	if cursor != "" {
		q = q.WithCursor(cursor)
	}
	page, err := be.Read(ctx, "deployments", q)
	if err != nil {
		return nil, "", err
	}
	deployments, err := itemsToDeployments(page.Items)
	if err != nil {
		return nil, "", err
	}
	return deployments, page.Cursor, nil
}

// ListDriftDue lists non-deleted deployments whose next_drift_check_epoch
// is at or before nowEpoch, via DriftCheckIndex — the drift-check
// scheduler's entry point.
func ListDriftDue(ctx context.Context, be backend.CloudBackend, nowEpoch int64, limit int, cursor string) ([]*model.Deployment, string, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	q := backend.HashEqOnIndex("DriftCheckIndex", "deleted_SK_base", ids.DriftCheckIndexPK(false))
	q.RangeKey = &backend.Condition{Field: "next_drift_check_epoch", Op: backend.OpLte, Value: nowEpoch}
	q = q.WithLimit(limit)
	if cursor != "" {
		q = q.WithCursor(cursor)
	}
	page, err := be.Read(ctx, "deployments", q)
	if err != nil {
		return nil, "", err
	}
	deployments, err := itemsToDeployments(page.Items)
	if err != nil {
		return nil, "", err
	}
	return deployments, page.Cursor, nil
}

func itemsToDeployments(items []backend.Item) ([]*model.Deployment, error) {
	deployments := make([]*model.Deployment, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		var d model.Deployment
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		deployments = append(deployments, &d)
	}
	return deployments, nil
}
