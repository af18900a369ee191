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

// DependencyDiff is the set difference between a deployment's previous
// and new dependency lists (spec.md §4.C6 "Dependency diff on apply").
type DependencyDiff struct {
	Added   []model.Dependency
	Removed []model.Dependency
}

// DiffDependencies computes which dependencies a new apply adds or
// drops relative to the deployment's last-known dependency list.
func DiffDependencies(oldDeps, newDeps []model.Dependency) DependencyDiff {
	oldSet := make(map[model.Dependency]bool, len(oldDeps))
	for _, d := range oldDeps {
		oldSet[d] = true
	}
	newSet := make(map[model.Dependency]bool, len(newDeps))
	for _, d := range newDeps {
		newSet[d] = true
	}

	var diff DependencyDiff
	for _, d := range newDeps {
		if !oldSet[d] {
			diff.Added = append(diff.Added, d)
		}
	}
	for _, d := range oldDeps {
		if !newSet[d] {
			diff.Removed = append(diff.Removed, d)
		}
	}
	return diff
}

// ApplyDependencyDiff writes a DEPENDENT#<self> row under every newly
// added dependency's PK and deletes it from every departed one, in one
// transaction (spec.md §4.C6).
func ApplyDependencyDiff(ctx context.Context, be backend.CloudBackend, dep *model.Deployment, diff DependencyDiff) error {
	if len(diff.Added) == 0 && len(diff.Removed) == 0 {
		return nil
	}

	var ops []backend.WriteOp
	for _, added := range diff.Added {
		ops = append(ops, backend.PutOp("deployments", backend.Item{
			"PK": ids.DeploymentPK(dep.ProjectID, dep.Region, added.Environment, added.DeploymentID),
			"SK": ids.DependentSK(dep.DeploymentID),
		}))
	}
	for _, removed := range diff.Removed {
		ops = append(ops, backend.DeleteOp("deployments", backend.Key{
			PK: ids.DeploymentPK(dep.ProjectID, dep.Region, removed.Environment, removed.DeploymentID),
			SK: ids.DependentSK(dep.DeploymentID),
		}))
	}
	return be.TransactWrite(ctx, ops)
}
