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
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend/backendtest"
	"github.com/infraweave-io/infraweave-sub001/pkg/catalog"
)

const testVPCManifest = `apiVersion: infraweave.io/v1
kind: Module
metadata:
  name: vpc
spec:
  moduleName: vpc
  version: 1.0.0
  description: a test vpc module
  reference: https://example.test/vpc
`

func zipTfSource(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err, "zip create %s", name)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err, "zip write %s", name)
	}
	require.NoError(t, w.Close(), "zip close")
	return buf.Bytes()
}

func TestModulePublishThenGetVersion(t *testing.T) {
	be := backendtest.New()
	secret := []byte("s3cret")
	svc := &Services{Backend: be, Catalog: catalog.New(be, "test-modules"), JWTSecret: secret}
	srv := newTestServer(t, NewModuleAPIInterface(svc))

	zipBytes := zipTfSource(t, map[string]string{
		"main.tf": `variable "cidr" { type = string }` + "\n",
	})
	body := publishRequest{
		ManifestYAMLBase64: base64.StdEncoding.EncodeToString([]byte(testVPCManifest)),
		ZipBase64:          base64.StdEncoding.EncodeToString(zipBytes),
		Track:              "stable",
	}
	raw, _ := json.Marshal(body)

	token := signToken(t, secret, "user-1", []string{"*"}, time.Hour)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/modules/publish", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "publish request")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "expected 200 from publish")

	resp = doGet(t, srv, "/api/v1/modules/vpc/stable/1.0.0", token)
	require.Equal(t, http.StatusOK, resp.StatusCode, "expected 200 from getVersion")
}

func TestModulePublishRejectsStackManifest(t *testing.T) {
	be := backendtest.New()
	secret := []byte("s3cret")
	svc := &Services{Backend: be, Catalog: catalog.New(be, "test-modules"), JWTSecret: secret}
	srv := newTestServer(t, NewModuleAPIInterface(svc))

	stackManifest := `apiVersion: infraweave.io/v1
kind: Stack
metadata:
  name: platform
spec:
  moduleName: platform
  version: 1.0.0
  description: a test stack
  reference: https://example.test/platform
`
	body := publishRequest{
		ManifestYAMLBase64: base64.StdEncoding.EncodeToString([]byte(stackManifest)),
		ZipBase64:          base64.StdEncoding.EncodeToString(zipTfSource(t, nil)),
		Track:              "stable",
	}
	raw, _ := json.Marshal(body)

	token := signToken(t, secret, "user-1", []string{"*"}, time.Hour)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/modules/publish", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "publish request")
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, "expected stack manifest on the module endpoint to be rejected with 400")
}
