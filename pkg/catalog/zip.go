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

package catalog

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// skip reports whether a module-source path should be excluded from
// the published zip (spec.md §4.C3 step 2): the local .terraform
// cache, lock files it regenerates, and any committed backend
// override, none of which belong in a portable module package.
func skip(relPath string) bool {
	if strings.HasPrefix(relPath, ".terraform"+string(filepath.Separator)) || relPath == ".terraform" {
		return true
	}
	base := filepath.Base(relPath)
	switch base {
	case ".terraform.lock.hcl", "backend.tf", "backend_override.tf":
		return true
	}
	return false
}

// ZipDirectory walks dir and returns both the zip archive bytes and
// the plain-text contents of every ".tf" file it packaged, the latter
// feeding ScanHCL and the version differ without re-reading the
// archive.
func ZipDirectory(dir string) (zipBytes []byte, tfFiles map[string][]byte, err error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	tfFiles = make(map[string][]byte)

	err = filepath.Walk(dir, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if skip(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		zipRel := filepath.ToSlash(rel)
		fw, err := w.Create(zipRel)
		if err != nil {
			return err
		}
		if _, err := fw.Write(data); err != nil {
			return err
		}

		if strings.HasSuffix(zipRel, ".tf") {
			tfFiles[zipRel] = data
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if err := w.Close(); err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), tfFiles, nil
}

// ReadTfFilesFromZip extracts the ".tf" entries of a previously
// published module zip, used to diff against a new publish (spec.md
// §4.C3 step 7).
func ReadTfFilesFromZip(zipBytes []byte) (map[string][]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte)
	for _, f := range r.File {
		if !strings.HasSuffix(f.Name, ".tf") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		out[f.Name] = data
	}
	return out, nil
}
