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

package runner

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend/backendtest"
)

func TestWriteVariablesFileWritesValidJSON(t *testing.T) {
	dir := t.TempDir()
	r := &Runner{WorkDir: dir}

	vars := map[string]interface{}{"region": "eu-west-1", "count": float64(3)}
	require.NoError(t, r.WriteVariablesFile(vars))

	data, err := os.ReadFile(filepath.Join(dir, "terraform.tfvars.json"))
	require.NoError(t, err, "reading written file")
	var roundTrip map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &roundTrip), "written file is not valid JSON")
	assert.Equal(t, "eu-west-1", roundTrip["region"])
}

func TestWriteBackendFileDeclaresConfiguredProvider(t *testing.T) {
	dir := t.TempDir()
	r := &Runner{WorkDir: dir, BackendProvider: "s3"}

	require.NoError(t, r.WriteBackendFile())
	data, err := os.ReadFile(filepath.Join(dir, "backend.tf"))
	require.NoError(t, err, "reading written file")
	assert.Contains(t, string(data), `backend "s3" {}`, "expected an empty s3 backend stanza")
}

func TestDownloadAndUnzipModuleExtractsSourceFiles(t *testing.T) {
	be := backendtest.New()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("main.tf")
	_, _ = w.Write([]byte(`resource "null_resource" "x" {}`))
	w2, _ := zw.Create("modules/child/main.tf")
	_, _ = w2.Write([]byte(`variable "x" {}`))
	_ = zw.Close()

	require.NoError(t, be.UploadBlob(context.Background(), "modules-bucket", "modules/s3bucket/s3bucket-1.0.0.zip", buf.Bytes()), "seeding blob")

	dir := t.TempDir()
	r := &Runner{Backend: be, WorkDir: dir, ModuleBucket: "modules-bucket"}
	require.NoError(t, r.DownloadAndUnzipModule(context.Background(), "modules/s3bucket/s3bucket-1.0.0.zip"))

	_, err := os.Stat(filepath.Join(dir, "main.tf"))
	assert.NoError(t, err, "expected main.tf to be extracted")
	_, err = os.Stat(filepath.Join(dir, "modules", "child", "main.tf"))
	assert.NoError(t, err, "expected nested instance directory to be extracted")
}
