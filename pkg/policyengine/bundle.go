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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// fetchRegoFiles downloads policyKey's zip and extracts its ".rego"
// entries into a fresh subdirectory of e.WorkDir, returning the
// written file paths for rego.Load. The directory is wiped first so a
// previous policy's modules can never leak into this one's package
// namespace (spec.md §4.C8: "remove rego files between policies").
func (e *Engine) fetchRegoFiles(ctx context.Context, policyName, policyKey string) ([]string, error) {
	dir := filepath.Join(e.WorkDir, "policy-eval", policyName)
	if err := os.RemoveAll(dir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	data, err := e.Backend.DownloadBlob(ctx, e.PolicyBucket, policyKey)
	if err != nil {
		return nil, err
	}

	rd, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, f := range rd.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".rego") {
			continue
		}
		target := filepath.Join(dir, filepath.Base(f.Name))
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			rc.Close()
			return nil, err
		}
		_, err = io.Copy(out, rc)
		rc.Close()
		out.Close()
		if err != nil {
			return nil, err
		}
		paths = append(paths, target)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("policy bundle %s contains no .rego files", policyName)
	}
	return paths, nil
}
