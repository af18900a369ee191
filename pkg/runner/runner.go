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

// Package runner implements the Job Runner (spec.md §4.C7): the linear
// init/validate/plan/show/policy/apply-destroy/output sequence executed
// once per job container, grounded on original_source's
// terraform_runner/src/main.rs and terraform.rs.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
)

// CommandExecutor runs one subprocess to completion, separating stdout
// from stderr the way kubevela's e2e.ExecCommand captures both
// buffers, so callers can inspect either independently.
type CommandExecutor interface {
	Run(ctx context.Context, dir, name string, args ...string) (stdout, stderr string, err error)
}

// osExecutor is the default CommandExecutor, shelling out via
// os/exec — the same approach the teacher repo uses to wrap external
// CLI tools (e2e/exec.go) rather than reaching for a third-party
// process-exec library; no example repo wraps an external CLI in one.
type osExecutor struct{}

func (osExecutor) Run(ctx context.Context, dir, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		err = fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return stdout.String(), stderr.String(), err
}

// Runner holds everything one job container needs to drive Terraform
// against a single deployment.
type Runner struct {
	Backend backend.CloudBackend
	Exec    CommandExecutor

	// WorkDir is the directory the module source is unzipped into and
	// Terraform is invoked from (cwd in the original container).
	WorkDir string
	// ModuleBucket is the blob-store bucket module/stack zips live in.
	ModuleBucket string
	// BackendProvider names the Terraform backend stanza to declare in
	// backend.tf ("s3" for the keyed-store backend, "azurerm" for the
	// document-db/Azure variant).
	BackendProvider string
	// AccountID is interpolated into change-record blob keys.
	AccountID string
}

// New constructs a Runner with the default os/exec-backed executor.
func New(be backend.CloudBackend, workDir, moduleBucket, backendProvider, accountID string) *Runner {
	return &Runner{
		Backend:         be,
		Exec:            osExecutor{},
		WorkDir:         workDir,
		ModuleBucket:    moduleBucket,
		BackendProvider: backendProvider,
		AccountID:       accountID,
	}
}
