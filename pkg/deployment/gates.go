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

	"github.com/infraweave-io/infraweave-sub001/pkg/apierrors"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

// DependencyGate reports whether every declared dependency of dep has
// reached status=successful (spec.md §4.C6). It is evaluated before a
// job enters the runner for command=apply; on false the caller should
// transition to StatusWaitingOnDependency and return without running
// Terraform.
func DependencyGate(ctx context.Context, be backend.CloudBackend, dep *model.Deployment) (ready bool, err error) {
	for _, depRef := range dep.Dependencies {
		other, err := Get(ctx, be, dep.ProjectID, dep.Region, depRef.Environment, depRef.DeploymentID)
		if err != nil {
			if apierrors.IsNotFound(err) {
				return false, nil
			}
			return false, err
		}
		if other.Status != model.StatusSuccessful {
			return false, nil
		}
	}
	return true, nil
}

// DestroyGate reports whether dep has any active (non-deleted)
// DEPENDENT# sibling; if so a destroy must abort into
// StatusHasDependants rather than proceed (spec.md §4.C6).
func DestroyGate(ctx context.Context, be backend.CloudBackend, dep *model.Deployment) (blocked bool, err error) {
	dependentIDs, err := dependentRows(ctx, be, dep.ProjectID, dep.Region, dep.Environment, dep.DeploymentID)
	if err != nil {
		return false, err
	}
	for _, dependentID := range dependentIDs {
		other, err := Get(ctx, be, dep.ProjectID, dep.Region, dep.Environment, dependentID)
		if err != nil {
			if apierrors.IsNotFound(err) {
				continue
			}
			return false, err
		}
		if !other.Deleted {
			return true, nil
		}
	}
	return false, nil
}
