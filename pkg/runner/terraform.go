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
	"context"
)

// tfFlags mirrors the boolean flag set original_source's
// run_terraform_command builds up before invoking the terraform
// binary, kept as named fields here instead of ten positional bools.
type tfFlags struct {
	refreshOnly bool
	noLock      bool
	destroy     bool
	autoApprove bool
	noInput     bool
	json        bool
	planOut     bool
	planIn      bool
}

func (f tfFlags) args() []string {
	var args []string
	if f.refreshOnly {
		args = append(args, "-refresh-only")
	}
	if f.noInput {
		args = append(args, "-input=false")
	}
	if f.autoApprove {
		args = append(args, "-auto-approve")
	}
	if f.destroy {
		args = append(args, "-destroy")
	}
	if f.json {
		args = append(args, "-json")
	}
	if f.planIn {
		args = append(args, "planfile")
	}
	if f.planOut {
		args = append(args, "-out=planfile")
	}
	if f.noLock {
		args = append(args, "-lock=false")
	}
	return args
}

// runTerraform shells out to "terraform <command> -no-color <flags>"
// in r.WorkDir.
func (r *Runner) runTerraform(ctx context.Context, command string, f tfFlags) (stdout, stderr string, err error) {
	args := append([]string{command, "-no-color"}, f.args()...)
	return r.Exec.Run(ctx, r.WorkDir, "terraform", args...)
}

// Init runs terraform init. Backend configuration itself is supplied
// by the caller via -backend-config flags baked into backendConfigArgs
// (spec.md §4.C7 step 1: "backend configuration itself is injected via
// terraform init -backend-config=...").
func (r *Runner) Init(ctx context.Context, backendConfigArgs []string) (stdout, stderr string, err error) {
	args := append([]string{"init", "-no-color"}, backendConfigArgs...)
	return r.Exec.Run(ctx, r.WorkDir, "terraform", args...)
}

// Validate runs terraform validate.
func (r *Runner) Validate(ctx context.Context) (stdout, stderr string, err error) {
	return r.runTerraform(ctx, "validate", tfFlags{})
}

// Plan runs terraform plan. refreshOnly is set for drift checks;
// destroy is set when command=destroy; the plan is always written to
// "planfile" for the subsequent show phase to consume. noLock passes
// -lock=false, which plan-only jobs set so that several plans against
// the same deployment can run concurrently without contending on the
// state lock (a mutate command, apply or destroy, always locks).
func (r *Runner) Plan(ctx context.Context, refreshOnly, destroy, noLock bool) (stdout, stderr string, err error) {
	return r.runTerraform(ctx, "plan", tfFlags{refreshOnly: refreshOnly, destroy: destroy, noLock: noLock, planOut: true})
}

// Show runs terraform show -json planfile, returning the raw JSON text.
func (r *Runner) Show(ctx context.Context) (stdout, stderr string, err error) {
	return r.runTerraform(ctx, "show", tfFlags{json: true, planIn: true})
}

// ApplyDestroy runs terraform apply or terraform destroy, auto-approved
// and non-interactive. No planfile is passed, so Terraform plans again
// before it applies.
func (r *Runner) ApplyDestroy(ctx context.Context, command string) (stdout, stderr string, err error) {
	return r.runTerraform(ctx, command, tfFlags{autoApprove: true, noInput: true})
}

// Output runs terraform output -json.
func (r *Runner) Output(ctx context.Context) (stdout, stderr string, err error) {
	return r.runTerraform(ctx, "output", tfFlags{json: true})
}
