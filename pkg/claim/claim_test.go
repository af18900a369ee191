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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

func s3BucketModule() *model.Module {
	return &model.Module{
		ModuleName: "s3bucket",
		Version:    "0.1.0",
		Track:      "stable",
		TfVariables: []model.TfVariable{
			{Name: "bucketName", Type: "string"},
			{Name: "enableAcl", Type: "bool"},
			{Name: "tags", Type: "map(string)", DefaultSet: true, Default: map[string]interface{}{}},
			{Name: "nullableWithDefault", Type: "string", Nullable: true, DefaultSet: true, Default: nil},
			{Name: "nullableWithoutDefault", Type: "string", Nullable: true},
		},
	}
}

func TestValidateExistenceAndTypeAccepts(t *testing.T) {
	mod := s3BucketModule()
	vars := map[string]interface{}{
		"bucketName": "my-unique-bucket-name",
		"tags": map[string]interface{}{
			"Name234":       "my-s3bucket",
			"Environment43": "dev",
		},
	}
	assert.NoError(t, ValidateExistenceAndType(mod, vars))
}

func TestValidateExistenceAndTypeAcceptsReference(t *testing.T) {
	mod := s3BucketModule()
	vars := map[string]interface{}{
		"bucketName": "my-unique-bucket-name",
		"tags":       "{{ S3Bucket::bucket2::tags }}",
	}
	assert.NoError(t, ValidateExistenceAndType(mod, vars), "unexpected error for reference value")
}

func TestValidateExistenceAndTypeRejectsUnknownVariable(t *testing.T) {
	mod := s3BucketModule()
	vars := map[string]interface{}{
		"bucketName":               "my-unique-bucket-name",
		"thisVariableDoesNotExist": "some_value",
	}
	assert.Error(t, ValidateExistenceAndType(mod, vars), "expected error for unknown variable")
}

func TestValidateExistenceAndTypeRejectsMismatch(t *testing.T) {
	mod := s3BucketModule()
	vars := map[string]interface{}{
		"bucketName": "my-unique-bucket-name",
		"enableAcl":  float64(123),
	}
	err := ValidateExistenceAndType(mod, vars)
	require.Error(t, err, "expected type mismatch error")
	assert.Contains(t, err.Error(), "number")
	assert.Contains(t, err.Error(), "bool")
}

func TestValidateRequiredAllSet(t *testing.T) {
	mod := s3BucketModule()
	vars := map[string]interface{}{
		"bucketName":             "my-unique-bucket-name",
		"enableAcl":              false,
		"nullableWithoutDefault": "some_value",
	}
	assert.NoError(t, ValidateRequired(mod, vars))
}

func TestValidateRequiredMissingOne(t *testing.T) {
	mod := s3BucketModule()
	vars := map[string]interface{}{
		"bucketName": "my-unique-bucket-name",
		"enableAcl":  false,
	}
	assert.Error(t, ValidateRequired(mod, vars), "expected missing required-variable error")
}

func TestValidateCasingRejectsSnakeCase(t *testing.T) {
	vars := map[string]interface{}{"bucket_name": "x"}
	err := ValidateCasing(vars)
	require.Error(t, err, "expected casing mismatch error")
	assert.Contains(t, err.Error(), "bucketName")
}

func TestValidateCasingAcceptsCamelCase(t *testing.T) {
	vars := map[string]interface{}{"bucketName": "x", "enableAcl": true}
	assert.NoError(t, ValidateCasing(vars))
}

func TestParseRejectsMissingRegion(t *testing.T) {
	raw := []byte(`
apiVersion: infraweave.io/v1
kind: S3Bucket
metadata:
  name: playground
spec:
  moduleVersion: 0.1.0
  variables: {}
`)
	_, err := Parse(raw)
	assert.Error(t, err, "expected schema validation error for missing region")
}

func TestParseRoundTrip(t *testing.T) {
	raw := []byte(`
apiVersion: infraweave.io/v1
kind: S3Bucket
metadata:
  name: playground
  namespace: default
spec:
  moduleVersion: 0.1.0
  region: eu-west-1
  variables:
    bucketName: my-bucket
`)
	m, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "default/playground", m.Environment())
}

func TestBuildPayloadDerivesDeterministicDeploymentID(t *testing.T) {
	manifest := &Manifest{
		APIVersion: "infraweave.io/v1",
		Kind:       "S3Bucket",
		Metadata:   Metadata{Name: "playground", Namespace: "default"},
		Spec: Spec{
			ModuleVersion: "0.1.0",
			Region:        "eu-west-1",
			Variables:     map[string]interface{}{"bucketName": "x", "enableAcl": false, "nullableWithoutDefault": "y"},
		},
	}
	mod := s3BucketModule()

	p1, err := BuildPayload(manifest, mod, "acme", CommandApply)
	require.NoError(t, err)
	p2, err := BuildPayload(manifest, mod, "acme", CommandApply)
	require.NoError(t, err)
	assert.Equal(t, p2.DeploymentID, p1.DeploymentID, "deployment id is not deterministic")
	assert.Equal(t, "S3Bucket/default/playground", p1.DeploymentID)
}
