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

package policyengine

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend/backendtest"
	"github.com/infraweave-io/infraweave-sub001/pkg/ids"
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

func seedPolicy(t *testing.T, be *backendtest.Fake, policy, environment, version, s3Key string) {
	t.Helper()
	p := &model.Policy{
		Policy:      policy,
		Environment: environment,
		Version:     version,
		S3Key:       s3Key,
		PK:          ids.CurrentPolicyPK,
		SK:          ids.CurrentPolicySK(policy, environment),
	}
	raw := backend.Item{
		"policy": p.Policy, "environment": p.Environment, "version": p.Version,
		"s3Key": p.S3Key, "PK": p.PK, "SK": p.SK,
	}
	require.NoError(t, be.Put(context.Background(), "policies", raw), "seeding policy")
}

func TestListActivePoliciesFiltersByEnvironment(t *testing.T) {
	be := backendtest.New()
	seedPolicy(t, be, "no-public-buckets", "stable", "1.0.0", "policies/no-public-buckets/1.0.0.zip")
	seedPolicy(t, be, "require-tags", "stable", "2.1.0", "policies/require-tags/2.1.0.zip")
	seedPolicy(t, be, "staging-only", "staging", "1.0.0", "policies/staging-only/1.0.0.zip")

	e := New(be, "policy-bucket", t.TempDir())
	policies, err := e.ListActivePolicies(context.Background(), "stable")
	require.NoError(t, err)
	assert.Len(t, policies, 2)
	for _, p := range policies {
		assert.Equal(t, "stable", p.Environment, "expected only stable policies")
	}
}

func zipWithRego(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err, "creating zip entry %s", name)
		_, err = w.Write([]byte(content))
		require.NoError(t, err, "writing zip entry %s", name)
	}
	require.NoError(t, zw.Close(), "closing zip writer")
	return buf.Bytes()
}

func TestFetchRegoFilesExtractsOnlyRegoEntries(t *testing.T) {
	be := backendtest.New()
	zipBytes := zipWithRego(t, map[string]string{
		"policy.rego": "package infraweave.test\n\ndeny[msg] { msg := \"x\" }\n",
		"README.md":   "not a policy",
	})
	require.NoError(t, be.UploadBlob(context.Background(), "policy-bucket", "policies/sample/1.0.0.zip", zipBytes), "seeding blob")

	e := New(be, "policy-bucket", t.TempDir())
	paths, err := e.fetchRegoFiles(context.Background(), "sample", "policies/sample/1.0.0.zip")
	require.NoError(t, err)
	assert.Len(t, paths, 1)
}

func TestFetchRegoFilesErrorsWhenBundleHasNoRegoFiles(t *testing.T) {
	be := backendtest.New()
	zipBytes := zipWithRego(t, map[string]string{"README.md": "empty bundle"})
	require.NoError(t, be.UploadBlob(context.Background(), "policy-bucket", "policies/empty/1.0.0.zip", zipBytes), "seeding blob")

	e := New(be, "policy-bucket", t.TempDir())
	_, err := e.fetchRegoFiles(context.Background(), "empty", "policies/empty/1.0.0.zip")
	assert.Error(t, err, "expected an error for a bundle with no .rego files")
}

func TestCollectDenyViolationsWalksNestedPackages(t *testing.T) {
	value := map[string]interface{}{
		"infraweave": map[string]interface{}{
			"buckets": map[string]interface{}{
				"deny": []interface{}{"bucket is public", "bucket lacks encryption"},
			},
			"tags": map[string]interface{}{
				"deny": []interface{}{},
			},
		},
	}
	violations := collectDenyViolations(value)
	assert.Len(t, violations, 2)
}

func TestCollectDenyViolationsEmptyWhenNoDenyKeyPresent(t *testing.T) {
	value := map[string]interface{}{"infraweave": map[string]interface{}{"allow": true}}
	assert.Empty(t, collectDenyViolations(value))
}

func TestEvaluateRunsRealRegoPolicyAndAggregatesAcrossPolicies(t *testing.T) {
	be := backendtest.New()

	denyZip := zipWithRego(t, map[string]string{
		"policy.rego": `package infraweave.publicaccess

deny[msg] {
	input.public_access == true
	msg := "public access must be disabled"
}
`,
	})
	allowZip := zipWithRego(t, map[string]string{
		"policy.rego": `package infraweave.tags

deny[msg] {
	not input.tags_present
	msg := "tags are required"
}
`,
	})

	require.NoError(t, be.UploadBlob(context.Background(), "policy-bucket", "policies/publicaccess/1.0.0.zip", denyZip), "seeding blob")
	require.NoError(t, be.UploadBlob(context.Background(), "policy-bucket", "policies/tags/1.0.0.zip", allowZip), "seeding blob")
	seedPolicy(t, be, "publicaccess", "stable", "1.0.0", "policies/publicaccess/1.0.0.zip")
	seedPolicy(t, be, "tags", "stable", "1.0.0", "policies/tags/1.0.0.zip")

	e := New(be, "policy-bucket", t.TempDir())
	planJSON := map[string]interface{}{
		"public_access": true,
		"tags_present":  true,
	}

	results, failed, err := e.Evaluate(context.Background(), "stable", planJSON)
	require.NoError(t, err)
	assert.True(t, failed, "expected the publicaccess policy to fail evaluation")
	assert.Len(t, results, 2)
	var sawFailure, sawPass bool
	for _, r := range results {
		switch r.Policy {
		case "publicaccess":
			sawFailure = r.Failed && len(r.Violations) == 1
		case "tags":
			sawPass = !r.Failed
		}
	}
	assert.True(t, sawFailure, "expected publicaccess policy result to have failed with 1 violation, got %+v", results)
	assert.True(t, sawPass, "expected tags policy result to have passed, got %+v", results)
}
