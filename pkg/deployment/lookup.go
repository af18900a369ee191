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

// Package deployment implements the Deployment State Machine (spec.md
// §4.C6): the closed set of lifecycle statuses, the single-writer
// DeploymentStatusHandler, the dependency/destroy gates, dependent
// requeue on successful completion, and the dependency-list diff that
// keeps DEPENDENT# sibling rows in sync.
package deployment

import (
	"context"
	"encoding/json"

	"github.com/infraweave-io/infraweave-sub001/pkg/apierrors"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/ids"
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

// Get fetches one deployment's metadata row.
func Get(ctx context.Context, be backend.CloudBackend, project, region, environment, deploymentID string) (*model.Deployment, error) {
	q := backend.HashEq(ids.DeploymentPK(project, region, environment, deploymentID))
	q.RangeKey = &backend.Condition{Field: "SK", Op: backend.OpEq, Value: ids.DeploymentMetadataSK}

	page, err := be.Read(ctx, "deployments", q)
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, apierrors.NewNotFound("get_deployment", errDeploymentNotFound{deploymentID})
	}
	return itemToDeployment(page.Items[0])
}

type errDeploymentNotFound struct{ id string }

func (e errDeploymentNotFound) Error() string { return "deployment " + e.id + " not found" }

// dependentRows lists the DEPENDENT# sibling rows recorded under a
// deployment's own PK on behalf of everything that depends on it.
func dependentRows(ctx context.Context, be backend.CloudBackend, project, region, environment, deploymentID string) ([]string, error) {
	q := backend.HashEq(ids.DeploymentPK(project, region, environment, deploymentID)).WithRangeStartsWith("SK", "DEPENDENT#")
	page, err := be.Read(ctx, "deployments", q)
	if err != nil {
		return nil, err
	}
	dependentIDs := make([]string, 0, len(page.Items))
	for _, item := range page.Items {
		if sk, ok := item["SK"].(string); ok {
			dependentIDs = append(dependentIDs, sk[len("DEPENDENT#"):])
		}
	}
	return dependentIDs, nil
}

// deploymentToItem marshals a Deployment to a generic Item and
// computes the synthetic secondary-index attributes spec.md §3
// requires on every write: DeletedIndex (deleted_PK_base), ModuleIndex
// (module_PK_base, deleted_PK), and DriftCheckIndex (deleted_SK_base).
func deploymentToItem(d *model.Deployment) backend.Item {
	raw, _ := json.Marshal(d)
	var item backend.Item
	_ = json.Unmarshal(raw, &item)
	item["deleted_PK_base"] = ids.DeletedIndexPK(d.Deleted, d.ProjectID, d.Region, d.Environment)
	item["module_PK_base"] = ids.ModuleIndexPK(d.Module, d.ModuleTrack)
	item["deleted_PK"] = ids.DeletedCompositeRangeKey(d.Deleted, d.PK)
	item["deleted_SK_base"] = ids.DriftCheckIndexPK(d.Deleted)
	item["next_drift_check_epoch"] = d.NextDriftCheckEpoch
	return item
}

func itemToDeployment(item backend.Item) (*model.Deployment, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	var d model.Deployment
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func eventToItem(e *model.Event) backend.Item {
	raw, _ := json.Marshal(e)
	var item backend.Item
	_ = json.Unmarshal(raw, &item)
	item["PK_base_region"] = ids.EventRegionPK(e.Region)
	return item
}
