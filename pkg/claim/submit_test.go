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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend/backendtest"
	"github.com/infraweave-io/infraweave-sub001/pkg/catalog"
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

const testVPCManifestYAML = `apiVersion: infraweave.io/v1
kind: Module
metadata:
  name: vpc
spec:
  moduleName: vpc
  version: 1.0.0
`

const testVPCClaimYAML = `apiVersion: infraweave.io/v1
kind: vpc
metadata:
  name: net1
  namespace: default
spec:
  moduleVersion: 1.0.0
  region: eu-west-1
  variables: {}
`

func publishTestVPCModule(t *testing.T, cat *catalog.Catalog) {
	t.Helper()
	manifest, err := catalog.ParseManifest([]byte(testVPCManifestYAML))
	require.NoError(t, err, "parsing module manifest")
	_, err = cat.PublishModule(context.Background(), catalog.ModuleSource{
		Manifest: manifest,
		ZipBytes: []byte{},
		TfFiles:  map[string][]byte{},
	}, "stable", "")
	require.NoError(t, err, "publishing vpc module")
}

func TestSubmitApplyLaunchesJobAndSetsReceived(t *testing.T) {
	be := backendtest.New()
	cat := catalog.New(be, "test-modules")
	publishTestVPCModule(t, cat)

	manifest, err := Parse([]byte(testVPCClaimYAML))
	require.NoError(t, err, "parsing claim")

	dep, err := Submit(context.Background(), be, cat, manifest, "proj1", CommandApply)
	require.NoError(t, err, "submit")
	assert.Equal(t, model.StatusReceived, dep.Status)
	assert.Equal(t, "vpc", dep.Module)
	assert.Equal(t, "1.0.0", dep.ModuleVersion)
}

func TestSubmitApplyWaitsOnMissingDependency(t *testing.T) {
	be := backendtest.New()
	cat := catalog.New(be, "test-modules")
	publishTestVPCModule(t, cat)

	claimYAML := `apiVersion: infraweave.io/v1
kind: vpc
metadata:
  name: net2
  namespace: default
spec:
  moduleVersion: 1.0.0
  region: eu-west-1
  variables: {}
  dependsOn:
    - "vpc::nonexistent"
`
	manifest, err := Parse([]byte(claimYAML))
	require.NoError(t, err, "parsing claim")

	dep, err := Submit(context.Background(), be, cat, manifest, "proj1", CommandApply)
	require.NoError(t, err, "submit")
	assert.Equal(t, model.StatusWaitingOnDependency, dep.Status)
}

func TestSubmitDestroyWithoutExistingDeploymentFails(t *testing.T) {
	be := backendtest.New()
	cat := catalog.New(be, "test-modules")
	publishTestVPCModule(t, cat)

	manifest, err := Parse([]byte(testVPCClaimYAML))
	require.NoError(t, err, "parsing claim")

	_, err = Submit(context.Background(), be, cat, manifest, "proj1", CommandDestroy)
	assert.Error(t, err, "expected destroy of a nonexistent deployment to fail")
}
