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

package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend/backendtest"
	"github.com/infraweave-io/infraweave-sub001/pkg/catalog"
)

func TestStackPublishComposesFromResolvedModule(t *testing.T) {
	be := backendtest.New()
	cat := catalog.New(be, "test-modules")

	vpcZip := zipTfSource(t, map[string]string{
		"main.tf": `variable "cidr" { type = string }` + "\n" + `output "id" { value = "vpc-fake" }` + "\n",
	})
	vpcManifest, err := catalog.ParseManifest([]byte(testVPCManifest))
	require.NoError(t, err, "parsing module manifest")
	tfFiles, err := catalog.ReadTfFilesFromZip(vpcZip)
	require.NoError(t, err, "reading tf files")
	_, err = cat.PublishModule(context.Background(), catalog.ModuleSource{
		Manifest: vpcManifest, ZipBytes: vpcZip, TfFiles: tfFiles,
	}, "stable", "")
	require.NoError(t, err, "publishing vpc module")

	stackManifest := `apiVersion: infraweave.io/v1
kind: Stack
metadata:
  name: platform
spec:
  moduleName: platform
  version: 1.0.0
  description: a test stack
  reference: https://example.test/platform
  modules:
    - moduleName: vpc
      version: "1.0.0"
      instanceName: network
      region: eu-west-1
      variables:
        cidr: "10.0.0.0/16"
`
	secret := []byte("s3cret")
	svc := &Services{Backend: be, Catalog: cat, JWTSecret: secret}
	srv := newTestServer(t, NewStackAPIInterface(svc))

	body := stackPublishRequest{
		ManifestYAMLBase64: base64.StdEncoding.EncodeToString([]byte(stackManifest)),
		Track:              "stable",
	}
	raw, _ := json.Marshal(body)

	token := signToken(t, secret, "user-1", []string{"*"}, time.Hour)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/stacks/publish", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "publish request")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "expected 200 from stack publish")

	resp = doGet(t, srv, "/api/v1/stacks/", token)
	require.Equal(t, http.StatusOK, resp.StatusCode, "expected 200 from listLatest")
	var listed page
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed), "decoding list response")
	items, ok := listed.Items.([]interface{})
	require.True(t, ok && len(items) == 1, "expected exactly one published stack, got %#v", listed.Items)
}

func TestStackPublishFailsOnUnresolvedModuleInstance(t *testing.T) {
	be := backendtest.New()
	cat := catalog.New(be, "test-modules")
	secret := []byte("s3cret")
	svc := &Services{Backend: be, Catalog: cat, JWTSecret: secret}
	srv := newTestServer(t, NewStackAPIInterface(svc))

	stackManifest := `apiVersion: infraweave.io/v1
kind: Stack
metadata:
  name: platform
spec:
  moduleName: platform
  version: 1.0.0
  description: a test stack
  reference: https://example.test/platform
  modules:
    - moduleName: vpc
      version: "9.9.9"
      instanceName: network
      region: eu-west-1
`
	body := stackPublishRequest{
		ManifestYAMLBase64: base64.StdEncoding.EncodeToString([]byte(stackManifest)),
		Track:              "stable",
	}
	raw, _ := json.Marshal(body)

	token := signToken(t, secret, "user-1", []string{"*"}, time.Hour)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/stacks/publish", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "publish request")
	defer resp.Body.Close()
	require.NotEqual(t, http.StatusOK, resp.StatusCode, "expected publish to fail when a module instance cannot be resolved")
}
