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

// ListEvents returns one deployment's status trail, newest first
// (spec.md §3: SK = "<epoch>::<job_id>::<status>", monotonic in epoch).
func ListEvents(ctx context.Context, be backend.CloudBackend, project, region, environment, deploymentID string, limit int, cursor string) ([]*model.Event, string, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	q := backend.HashEq(ids.EventPK(project, region, environment, deploymentID)).Descending().WithLimit(limit)
	if cursor != "" {
		q = q.WithCursor(cursor)
	}
	page, err := be.Read(ctx, "events", q)
	if err != nil {
		return nil, "", err
	}
	events, err := itemsToEvents(page.Items)
	if err != nil {
		return nil, "", err
	}
	return events, page.Cursor, nil
}

// ListEventsByRegion supports cross-tenant time-range scans over a
// region's event stream via RegionIndex (spec.md §3), used by
// operational tooling rather than any tenant-facing endpoint.
func ListEventsByRegion(ctx context.Context, be backend.CloudBackend, region string, fromEpoch, toEpoch int64, limit int, cursor string) ([]*model.Event, string, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	q := backend.HashEqOnIndex("RegionIndex", "PK_base_region", ids.EventRegionPK(region)).
		WithRangeBetween("SK", ids.EventSK(fromEpoch, "", ""), ids.EventSK(toEpoch, "", "")).
		WithLimit(limit)
	if cursor != "" {
		q = q.WithCursor(cursor)
	}
	page, err := be.Read(ctx, "events", q)
	if err != nil {
		return nil, "", err
	}
	events, err := itemsToEvents(page.Items)
	if err != nil {
		return nil, "", err
	}
	return events, page.Cursor, nil
}

func itemsToEvents(items []backend.Item) ([]*model.Event, error) {
	events := make([]*model.Event, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		var e model.Event
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, nil
}
