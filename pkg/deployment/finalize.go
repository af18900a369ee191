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

package deployment

import (
	"context"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/ids"
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

// Finalize completes a successful destroy (spec.md §4.C6 "Destroy
// finalization") in one transaction: marks the deployment row deleted,
// removes its DEPENDENT#<self> row from every dependency it declared,
// and removes every DEPENDENT# row recorded under its own PK (any
// dependent must already have been blocked by DestroyGate, but a
// stale row left by a since-deleted dependent is cleaned up here too).
func Finalize(ctx context.Context, be backend.CloudBackend, dep *model.Deployment) error {
	dependentIDs, err := dependentRows(ctx, be, dep.ProjectID, dep.Region, dep.Environment, dep.DeploymentID)
	if err != nil {
		return err
	}

	dep.Deleted = true
	dep.Status = model.StatusDeleted
	dep.PK = ids.DeploymentPK(dep.ProjectID, dep.Region, dep.Environment, dep.DeploymentID)
	dep.SK = ids.DeploymentMetadataSK

	ops := []backend.WriteOp{backend.PutOp("deployments", deploymentToItem(dep))}

	for _, dependency := range dep.Dependencies {
		ops = append(ops, backend.DeleteOp("deployments", backend.Key{
			PK: ids.DeploymentPK(dep.ProjectID, dep.Region, dependency.Environment, dependency.DeploymentID),
			SK: ids.DependentSK(dep.DeploymentID),
		}))
	}
	for _, dependentID := range dependentIDs {
		ops = append(ops, backend.DeleteOp("deployments", backend.Key{
			PK: ids.DeploymentPK(dep.ProjectID, dep.Region, dep.Environment, dep.DeploymentID),
			SK: ids.DependentSK(dependentID),
		}))
	}

	return be.TransactWrite(ctx, ops)
}
