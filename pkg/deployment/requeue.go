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
	"encoding/json"

	"golang.org/x/sync/errgroup"

	"github.com/infraweave-io/infraweave-sub001/pkg/apierrors"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/claim"
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

// RequeueDependents implements spec.md §4.C6 "Dependent requeue": when
// dep's terminal state becomes successful, every deployment that
// declared dep as a dependency gets a remediate=true drift-check job
// launched in parallel, which rewrites its state and cascades to its
// own dependents transitively (each launched job's StatusHandler runs
// this same function again on its own success).
func RequeueDependents(ctx context.Context, be backend.CloudBackend, dep *model.Deployment) error {
	dependentIDs, err := dependentRows(ctx, be, dep.ProjectID, dep.Region, dep.Environment, dep.DeploymentID)
	if err != nil {
		return err
	}
	if len(dependentIDs) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, dependentID := range dependentIDs {
		dependentID := dependentID
		g.Go(func() error {
			dependent, err := Get(gctx, be, dep.ProjectID, dep.Region, dep.Environment, dependentID)
			if err != nil {
				if apierrors.IsNotFound(err) {
					return nil
				}
				return err
			}
			payload := claim.NewDriftCheckPayload(dependent, true)
			raw, err := json.Marshal(payload)
			if err != nil {
				return err
			}
			_, err = be.LaunchJob(gctx, raw, dependent.CPU, dependent.Memory)
			return err
		})
	}
	return g.Wait()
}
