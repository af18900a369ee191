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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/infraweave-io/infraweave-sub001/pkg/claim"
)

// submitClaimFile reads a claim YAML file and runs it through the
// Claim Processor (pkg/claim.Submit) with the given command, printing
// the resulting deployment row's status. Shared by apply/plan/destroy
// since the three differ only in the claim.Command they submit.
func submitClaimFile(ctx context.Context, e *env, path string, command claim.Command) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	manifest, err := claim.Parse(raw)
	if err != nil {
		return err
	}
	dep, err := claim.Submit(ctx, e.backend, e.catalog, manifest, e.projectID, command)
	if err != nil {
		return err
	}
	return printJSON(dep)
}

func newApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <claim-file>",
		Short: "Submit a claim for apply, launching a job unless it is gated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd.Context())
			if err != nil {
				return err
			}
			return submitClaimFile(cmd.Context(), e, args[0], claim.CommandApply)
		},
	}
}

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <claim-file>",
		Short: "Submit a claim for a dry-run plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd.Context())
			if err != nil {
				return err
			}
			return submitClaimFile(cmd.Context(), e, args[0], claim.CommandPlan)
		},
	}
}

func newDestroyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "destroy <claim-file>",
		Short: "Submit a claim for destroy, blocked while dependents still exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd.Context())
			if err != nil {
				return err
			}
			return submitClaimFile(cmd.Context(), e, args[0], claim.CommandDestroy)
		},
	}
}
