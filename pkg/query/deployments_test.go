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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend/backendtest"
	"github.com/infraweave-io/infraweave-sub001/pkg/ids"
)

// seedDeployment writes a deployment row with the synthetic secondary
// index attributes pkg/deployment.deploymentToItem computes, mirroring
// that unexported helper since tests in this package cannot import it.
func seedDeployment(t *testing.T, be *backendtest.Fake, project, region, environment, deploymentID, module, track string, deleted bool, nextDriftCheckEpoch int64) {
	t.Helper()
	pk := ids.DeploymentPK(project, region, environment, deploymentID)
	item := backend.Item{
		"PK": pk, "SK": ids.DeploymentMetadataSK,
		"projectId": project, "region": region, "environment": environment, "deploymentId": deploymentID,
		"module": module, "moduleTrack": track, "deleted": deleted,
		"nextDriftCheckEpoch":    nextDriftCheckEpoch,
		"deleted_PK_base":        ids.DeletedIndexPK(deleted, project, region, environment),
		"module_PK_base":         ids.ModuleIndexPK(module, track),
		"deleted_PK":             ids.DeletedCompositeRangeKey(deleted, pk),
		"deleted_SK_base":        ids.DriftCheckIndexPK(deleted),
		"next_drift_check_epoch": nextDriftCheckEpoch,
	}
	require.NoError(t, be.Put(context.Background(), "deployments", item), "seeding deployment")
}

func TestListDeploymentsByProjectExcludesDeletedByDefault(t *testing.T) {
	be := backendtest.New()
	seedDeployment(t, be, "proj1", "eu-west-1", "prod/ns", "dep1", "vpc", "stable", false, 0)
	seedDeployment(t, be, "proj1", "eu-west-1", "prod/ns", "dep2", "vpc", "stable", true, 0)
	seedDeployment(t, be, "proj2", "eu-west-1", "prod/ns", "dep3", "vpc", "stable", false, 0)

	deployments, _, err := ListDeploymentsByProject(context.Background(), be, "proj1", "eu-west-1", "prod/ns", false, 0, "")
	require.NoError(t, err)
	if assert.Len(t, deployments, 1, "expected only dep1") {
		assert.Equal(t, "dep1", deployments[0].DeploymentID)
	}
}

func TestListDeploymentsByProjectIncludesDeletedWhenRequested(t *testing.T) {
	be := backendtest.New()
	seedDeployment(t, be, "proj1", "eu-west-1", "prod/ns", "dep1", "vpc", "stable", true, 0)

	deployments, _, err := ListDeploymentsByProject(context.Background(), be, "proj1", "eu-west-1", "prod/ns", true, 0, "")
	require.NoError(t, err)
	assert.Len(t, deployments, 1, "expected the deleted deployment to be returned")
}

func TestListDeploymentsByModuleAcrossProjects(t *testing.T) {
	be := backendtest.New()
	seedDeployment(t, be, "proj1", "eu-west-1", "prod/ns", "dep1", "vpc", "stable", false, 0)
	seedDeployment(t, be, "proj2", "us-east-1", "prod/ns", "dep2", "vpc", "stable", false, 0)
	seedDeployment(t, be, "proj1", "eu-west-1", "prod/ns", "dep3", "database", "stable", false, 0)

	deployments, _, err := ListDeploymentsByModule(context.Background(), be, "vpc", "stable", 0, "")
	require.NoError(t, err)
	assert.Len(t, deployments, 2, "expected 2 deployments running the vpc module")
}

func TestListDriftDueOnlyReturnsDueDeployments(t *testing.T) {
	be := backendtest.New()
	seedDeployment(t, be, "proj1", "eu-west-1", "prod/ns", "dep1", "vpc", "stable", false, 1000)
	seedDeployment(t, be, "proj1", "eu-west-1", "prod/ns", "dep2", "vpc", "stable", false, 5000)
	seedDeployment(t, be, "proj1", "eu-west-1", "prod/ns", "dep3", "vpc", "stable", true, 500)

	deployments, _, err := ListDriftDue(context.Background(), be, 2000, 0, "")
	require.NoError(t, err)
	if assert.Len(t, deployments, 1, "expected only dep1 to be due") {
		assert.Equal(t, "dep1", deployments[0].DeploymentID)
	}
}
