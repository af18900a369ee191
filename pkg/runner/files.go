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
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteVariablesFile writes variables as terraform.tfvars.json in
// r.WorkDir (spec.md §4.C7 step 1).
func (r *Runner) WriteVariablesFile(variables map[string]interface{}) error {
	data, err := json.MarshalIndent(variables, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(r.WorkDir, "terraform.tfvars.json"), data, 0o644)
}

// WriteBackendFile writes backend.tf declaring an empty backend
// stanza for r.BackendProvider; the actual backend configuration
// (bucket, key, region, lock table, ...) is supplied separately via
// `terraform init -backend-config=...` flags so the module source
// itself never hardcodes a specific deployment's state location
// (spec.md §4.C7 step 1; a published module is rejected if it already
// contains a backend block — see pkg/catalog's ErrModuleBackendBlockForbidden).
func (r *Runner) WriteBackendFile() error {
	content := fmt.Sprintf("terraform {\n  backend \"%s\" {}\n}\n", r.BackendProvider)
	return os.WriteFile(filepath.Join(r.WorkDir, "backend.tf"), []byte(content), 0o644)
}

// DownloadAndUnzipModule fetches a module/stack's source zip from the
// blob store and unpacks it into r.WorkDir (spec.md §4.C7 step 4). A
// stack's zip already contains the synthetic root module plus every
// instance subdirectory (written at publish time by pkg/stack.Compose
// + pkg/catalog.PublishStack), so no special-casing is needed here.
func (r *Runner) DownloadAndUnzipModule(ctx context.Context, s3Key string) error {
	data, err := r.Backend.DownloadBlob(ctx, r.ModuleBucket, s3Key)
	if err != nil {
		return err
	}
	return unzipToDir(data, r.WorkDir)
}

func unzipToDir(data []byte, dir string) error {
	rd, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}
	for _, f := range rd.File {
		target := filepath.Join(dir, filepath.FromSlash(f.Name))
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
		if err != nil {
			rc.Close()
			return err
		}
		_, err = io.Copy(out, rc)
		rc.Close()
		out.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
