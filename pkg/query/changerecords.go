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

// ListChangeRecords lists one deployment's change records of a single
// kind (mutating apply/destroy history, or plan-only history — spec.md
// §3 keys these under separate PK prefixes), newest first.
func ListChangeRecords(ctx context.Context, be backend.CloudBackend, mutate bool, project, region, environment, deploymentID string, limit int, cursor string) ([]*model.ChangeRecord, string, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	q := backend.HashEq(ids.ChangeRecordPK(mutate, project, region, environment, deploymentID)).Descending().WithLimit(limit)
	if cursor != "" {
		q = q.WithCursor(cursor)
	}
	page, err := be.Read(ctx, "change_records", q)
	if err != nil {
		return nil, "", err
	}
	records := make([]*model.ChangeRecord, 0, len(page.Items))
	for _, item := range page.Items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, "", err
		}
		var c model.ChangeRecord
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, "", err
		}
		records = append(records, &c)
	}
	return records, page.Cursor, nil
}
