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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend/backendtest"
	"github.com/infraweave-io/infraweave-sub001/pkg/ids"
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

func newDeployment(project, region, environment, id string) *model.Deployment {
	return &model.Deployment{
		ProjectID:    project,
		Region:       region,
		Environment:  environment,
		DeploymentID: id,
		Module:       "s3bucket",
		Status:       model.StatusReceived,
		PK:           ids.DeploymentPK(project, region, environment, id),
		SK:           ids.DeploymentMetadataSK,
	}
}

func putDeployment(t *testing.T, be *backendtest.Fake, dep *model.Deployment) {
	t.Helper()
	require.NoError(t, be.Put(context.Background(), "deployments", deploymentToItem(dep)), "seeding deployment")
}

func TestGetReturnsNotFoundForMissingDeployment(t *testing.T) {
	be := backendtest.New()
	_, err := Get(context.Background(), be, "proj", "eu-west-1", "dev", "missing")
	assert.Error(t, err, "expected not-found error")
}

func TestStatusHandlerTransitionWritesEventAndDeployment(t *testing.T) {
	be := backendtest.New()
	dep := newDeployment("proj", "eu-west-1", "dev", "dep-1")

	h := NewStatusHandler(be, dep, "job-1")
	require.NoError(t, h.Transition(context.Background(), model.StatusPlan, ""), "transition to plan")
	require.NoError(t, h.Transition(context.Background(), model.StatusSuccessful, ""), "transition to successful")

	assert.Equal(t, model.StatusSuccessful, dep.Status)
	assert.True(t, h.IsSuccessfulTerminal(), "expected handler to report successful terminal")

	page, err := be.Read(context.Background(), "events", backend.HashEq(ids.EventPK("proj", "eu-west-1", "dev", "dep-1")))
	require.NoError(t, err, "reading events")
	assert.Len(t, page.Items, 2)

	stored, err := Get(context.Background(), be, "proj", "eu-west-1", "dev", "dep-1")
	require.NoError(t, err, "fetching persisted deployment")
	assert.Equal(t, model.StatusSuccessful, stored.Status)
}

func TestStatusHandlerClearsErrorTextOnSuccess(t *testing.T) {
	be := backendtest.New()
	dep := newDeployment("proj", "eu-west-1", "dev", "dep-1")

	h := NewStatusHandler(be, dep, "job-1")
	require.NoError(t, h.Transition(context.Background(), model.StatusFailedPlan, "boom"), "transition to failed_plan")
	assert.Equal(t, "boom", dep.ErrorText)
	require.NoError(t, h.Transition(context.Background(), model.StatusSuccessful, ""), "transition to successful")
	assert.Empty(t, dep.ErrorText, "expected error text cleared on success")
}

func TestDependencyGateBlocksOnPendingDependency(t *testing.T) {
	be := backendtest.New()
	dependency := newDeployment("proj", "eu-west-1", "dev", "vpc")
	dependency.Status = model.StatusApply
	putDeployment(t, be, dependency)

	dep := newDeployment("proj", "eu-west-1", "dev", "service")
	dep.Dependencies = []model.Dependency{{DeploymentID: "vpc", Environment: "dev"}}

	ready, err := DependencyGate(context.Background(), be, dep)
	require.NoError(t, err, "DependencyGate")
	assert.False(t, ready, "expected gate to report not ready while dependency is still applying")
}

func TestDependencyGateBlocksOnMissingDependency(t *testing.T) {
	be := backendtest.New()
	dep := newDeployment("proj", "eu-west-1", "dev", "service")
	dep.Dependencies = []model.Dependency{{DeploymentID: "vpc", Environment: "dev"}}

	ready, err := DependencyGate(context.Background(), be, dep)
	require.NoError(t, err, "DependencyGate")
	assert.False(t, ready, "expected gate to report not ready when dependency row is absent")
}

func TestDependencyGateAllowsWhenAllDependenciesSuccessful(t *testing.T) {
	be := backendtest.New()
	dependency := newDeployment("proj", "eu-west-1", "dev", "vpc")
	dependency.Status = model.StatusSuccessful
	putDeployment(t, be, dependency)

	dep := newDeployment("proj", "eu-west-1", "dev", "service")
	dep.Dependencies = []model.Dependency{{DeploymentID: "vpc", Environment: "dev"}}

	ready, err := DependencyGate(context.Background(), be, dep)
	require.NoError(t, err, "DependencyGate")
	assert.True(t, ready, "expected gate to report ready when the only dependency is successful")
}

func TestDestroyGateBlocksOnActiveDependent(t *testing.T) {
	be := backendtest.New()
	dep := newDeployment("proj", "eu-west-1", "dev", "vpc")
	putDeployment(t, be, dep)

	dependent := newDeployment("proj", "eu-west-1", "dev", "service")
	dependent.Dependencies = []model.Dependency{{DeploymentID: "vpc", Environment: "dev"}}
	putDeployment(t, be, dependent)

	require.NoError(t, ApplyDependencyDiff(context.Background(), be, dependent, DiffDependencies(nil, dependent.Dependencies)))

	blocked, err := DestroyGate(context.Background(), be, dep)
	require.NoError(t, err, "DestroyGate")
	assert.True(t, blocked, "expected destroy gate to block while an active dependent exists")
}

func TestDestroyGateAllowsWhenDependentDeleted(t *testing.T) {
	be := backendtest.New()
	dep := newDeployment("proj", "eu-west-1", "dev", "vpc")
	putDeployment(t, be, dep)

	dependent := newDeployment("proj", "eu-west-1", "dev", "service")
	dependent.Dependencies = []model.Dependency{{DeploymentID: "vpc", Environment: "dev"}}
	putDeployment(t, be, dependent)
	require.NoError(t, ApplyDependencyDiff(context.Background(), be, dependent, DiffDependencies(nil, dependent.Dependencies)))

	require.NoError(t, Finalize(context.Background(), be, dependent))

	blocked, err := DestroyGate(context.Background(), be, dep)
	require.NoError(t, err, "DestroyGate")
	assert.False(t, blocked, "expected destroy gate to allow once the only dependent is deleted")
}

func TestDiffDependenciesComputesAddedAndRemoved(t *testing.T) {
	old := []model.Dependency{{DeploymentID: "vpc", Environment: "dev"}, {DeploymentID: "db", Environment: "dev"}}
	next := []model.Dependency{{DeploymentID: "vpc", Environment: "dev"}, {DeploymentID: "cache", Environment: "dev"}}

	diff := DiffDependencies(old, next)
	if assert.Len(t, diff.Added, 1) {
		assert.Equal(t, "cache", diff.Added[0].DeploymentID)
	}
	if assert.Len(t, diff.Removed, 1) {
		assert.Equal(t, "db", diff.Removed[0].DeploymentID)
	}
}

func TestApplyDependencyDiffWritesAndRemovesDependentRows(t *testing.T) {
	be := backendtest.New()
	dep := newDeployment("proj", "eu-west-1", "dev", "service")

	add := DiffDependencies(nil, []model.Dependency{{DeploymentID: "vpc", Environment: "dev"}})
	require.NoError(t, ApplyDependencyDiff(context.Background(), be, dep, add), "ApplyDependencyDiff add")

	page, err := be.Read(context.Background(), "deployments", backend.HashEq(ids.DeploymentPK("proj", "eu-west-1", "dev", "vpc")))
	require.NoError(t, err, "reading vpc rows")
	assert.Len(t, page.Items, 1, "expected one DEPENDENT row under vpc")

	remove := DiffDependencies([]model.Dependency{{DeploymentID: "vpc", Environment: "dev"}}, nil)
	require.NoError(t, ApplyDependencyDiff(context.Background(), be, dep, remove), "ApplyDependencyDiff remove")

	page, err = be.Read(context.Background(), "deployments", backend.HashEq(ids.DeploymentPK("proj", "eu-west-1", "dev", "vpc")))
	require.NoError(t, err, "reading vpc rows after removal")
	assert.Empty(t, page.Items, "expected DEPENDENT row removed")
}

func TestFinalizeMarksDeletedAndClearsDependentBookkeeping(t *testing.T) {
	be := backendtest.New()
	vpc := newDeployment("proj", "eu-west-1", "dev", "vpc")
	putDeployment(t, be, vpc)

	service := newDeployment("proj", "eu-west-1", "dev", "service")
	service.Dependencies = []model.Dependency{{DeploymentID: "vpc", Environment: "dev"}}
	putDeployment(t, be, service)
	add := DiffDependencies(nil, service.Dependencies)
	require.NoError(t, ApplyDependencyDiff(context.Background(), be, service, add))

	require.NoError(t, Finalize(context.Background(), be, service))
	assert.True(t, service.Deleted, "expected service marked deleted")
	assert.Equal(t, model.StatusDeleted, service.Status)

	page, err := be.Read(context.Background(), "deployments", backend.HashEq(ids.DeploymentPK("proj", "eu-west-1", "dev", "vpc")).WithRangeStartsWith("SK", "DEPENDENT#"))
	require.NoError(t, err, "reading vpc rows")
	assert.Empty(t, page.Items, "expected DEPENDENT#service row removed from vpc")
}

func TestRequeueDependentsLaunchesJobForEachDependent(t *testing.T) {
	be := backendtest.New()
	vpc := newDeployment("proj", "eu-west-1", "dev", "vpc")
	vpc.Status = model.StatusSuccessful
	putDeployment(t, be, vpc)

	service := newDeployment("proj", "eu-west-1", "dev", "service")
	service.Dependencies = []model.Dependency{{DeploymentID: "vpc", Environment: "dev"}}
	service.Status = model.StatusSuccessful
	putDeployment(t, be, service)
	add := DiffDependencies(nil, service.Dependencies)
	require.NoError(t, ApplyDependencyDiff(context.Background(), be, service, add))

	require.NoError(t, RequeueDependents(context.Background(), be, vpc))
	assert.NotEmpty(t, be.CurrentJobID, "expected a job to have been launched for the dependent")
}

func TestRequeueDependentsNoopWithoutDependents(t *testing.T) {
	be := backendtest.New()
	dep := newDeployment("proj", "eu-west-1", "dev", "standalone")
	putDeployment(t, be, dep)

	require.NoError(t, RequeueDependents(context.Background(), be, dep))
	assert.Empty(t, be.CurrentJobID, "expected no job launched")
}
