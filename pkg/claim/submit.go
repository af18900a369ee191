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

package claim

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/infraweave-io/infraweave-sub001/pkg/apierrors"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/catalog"
	"github.com/infraweave-io/infraweave-sub001/pkg/deployment"
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

// Submit is the Claim Processor's single entry point (spec.md §4.C5): a
// claim enters here, consults the catalog (C3/C4) for its target module
// or stack version and the deployment state (C2) for its current row,
// then either dispatches a new job (C6 gates + C7 container) or
// short-circuits with a validation error before any job is launched.
func Submit(ctx context.Context, be backend.CloudBackend, cat *catalog.Catalog, manifest *Manifest, projectID string, command Command) (*model.Deployment, error) {
	version, _ := manifest.Version()
	mod, err := cat.ResolveModuleVersion(ctx, manifest.Kind, version)
	if err != nil {
		return nil, err
	}

	payload, err := BuildPayload(manifest, mod, projectID, command)
	if err != nil {
		return nil, err
	}

	dep, err := deployment.Get(ctx, be, projectID, payload.Region, payload.Environment, payload.DeploymentID)
	existed := true
	if err != nil {
		if !apierrors.IsNotFound(err) {
			return nil, err
		}
		existed = false
		dep = &model.Deployment{
			ProjectID:    projectID,
			Region:       payload.Region,
			Environment:  payload.Environment,
			DeploymentID: payload.DeploymentID,
		}
	}

	if command == CommandDestroy {
		if !existed {
			return nil, apierrors.NewNotFound("submit_claim", fmt.Errorf("deployment %s has no existing state to destroy", payload.DeploymentID))
		}
		blocked, err := deployment.DestroyGate(ctx, be, dep)
		if err != nil {
			return nil, err
		}
		if blocked {
			h := deployment.NewStatusHandler(be, dep, "")
			if err := h.Transition(ctx, model.StatusHasDependants, ""); err != nil {
				return nil, err
			}
			return dep, nil
		}
	}

	diff := deployment.DiffDependencies(dep.Dependencies, payload.Dependencies)

	dep.Name = manifest.Metadata.Name
	dep.Module = payload.Module
	dep.ModuleVersion = payload.ModuleVersion
	dep.ModuleType = payload.ModuleType
	dep.ModuleTrack = payload.ModuleTrack
	dep.Variables = payload.Variables
	dep.Dependencies = payload.Dependencies
	dep.DriftDetection = payload.DriftDetection
	dep.CPU = payload.CPU
	dep.Memory = payload.Memory

	if err := deployment.ApplyDependencyDiff(ctx, be, dep, diff); err != nil {
		return nil, err
	}

	if command == CommandApply {
		ready, err := deployment.DependencyGate(ctx, be, dep)
		if err != nil {
			return nil, err
		}
		if !ready {
			h := deployment.NewStatusHandler(be, dep, "")
			if err := h.Transition(ctx, model.StatusWaitingOnDependency, ""); err != nil {
				return nil, err
			}
			return dep, nil
		}
	}

	h := deployment.NewStatusHandler(be, dep, "")
	if err := h.Transition(ctx, model.StatusReceived, ""); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if _, err := be.LaunchJob(ctx, raw, payload.CPU, payload.Memory); err != nil {
		return nil, err
	}

	return dep, nil
}
