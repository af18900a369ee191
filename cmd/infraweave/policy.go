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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/infraweave-io/infraweave-sub001/pkg/query"
)

func newPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Publish and list OPA policy bundles",
	}
	cmd.AddCommand(newPolicyPublishCmd(), newPolicyListCmd())
	return cmd
}

func newPolicyPublishCmd() *cobra.Command {
	var environment, description, version string
	cmd := &cobra.Command{
		Use:   "publish <policy-name> <bundle.zip>",
		Short: "Publish a zip of .rego files as the current policy for an environment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd.Context())
			if err != nil {
				return err
			}
			if environment == "" {
				return fmt.Errorf("--environment is required")
			}
			if version == "" {
				return fmt.Errorf("--version is required")
			}
			bundle, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[1], err)
			}
			published, err := e.catalog.PublishPolicy(cmd.Context(), args[0], environment, version, description, bundle)
			if err != nil {
				return err
			}
			return printJSON(published)
		},
	}
	cmd.Flags().StringVar(&environment, "environment", "", "environment this policy governs (required)")
	cmd.Flags().StringVar(&description, "description", "", "human-readable summary")
	cmd.Flags().StringVar(&version, "version", "", "policy semver, must be newer than the current version (required)")
	return cmd
}

func newPolicyListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list <environment>",
		Short: "List the policies currently active in an environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd.Context())
			if err != nil {
				return err
			}
			policies, _, err := query.ListPolicies(cmd.Context(), e.backend, args[0], limit, "")
			if err != nil {
				return err
			}
			return printJSON(policies)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", query.DefaultPageSize, "maximum rows to return")
	return cmd
}
