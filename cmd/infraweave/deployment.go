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
	"github.com/spf13/cobra"

	"github.com/infraweave-io/infraweave-sub001/pkg/query"
)

func newDeploymentCmd() *cobra.Command {
	var region, environment string
	var includeDeleted bool
	var limit int
	cmd := &cobra.Command{
		Use:   "deployment",
		Short: "Inspect the current project's deployments",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List the current project's deployments in a region/environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd.Context())
			if err != nil {
				return err
			}
			deployments, _, err := query.ListDeploymentsByProject(cmd.Context(), e.backend,
				e.projectID, region, environment, includeDeleted, limit, "")
			if err != nil {
				return err
			}
			return printJSON(deployments)
		},
	}
	list.Flags().StringVar(&region, "region", "", "limit to one region")
	list.Flags().StringVar(&environment, "environment", "", "limit to one environment")
	list.Flags().BoolVar(&includeDeleted, "include-deleted", false, "include deployments already destroyed")
	list.Flags().IntVar(&limit, "limit", query.DefaultPageSize, "maximum rows to return")
	cmd.AddCommand(list)
	return cmd
}
