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

	"github.com/spf13/cobra"
)

// newLogsCmd pages through one job's container log, the CLI
// counterpart of pkg/api/logs.go's read endpoint, fetching directly
// off CloudBackend.ReadLogs instead of over HTTP.
func newLogsCmd() *cobra.Command {
	var region string
	var limit int
	cmd := &cobra.Command{
		Use:   "get-logs <job-id>",
		Short: "Print a job's container log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd.Context())
			if err != nil {
				return err
			}
			if region == "" {
				return fmt.Errorf("--region is required")
			}
			cursor := ""
			for {
				lines, next, err := e.backend.ReadLogs(cmd.Context(), e.projectID, region, args[0], cursor, limit)
				if err != nil {
					return err
				}
				for _, l := range lines {
					fmt.Printf("%s %s\n", l.Timestamp.Format("2006-01-02T15:04:05Z07:00"), l.Message)
				}
				if next == "" {
					return nil
				}
				cursor = next
			}
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "region the job ran in (required)")
	cmd.Flags().IntVar(&limit, "limit", 500, "lines per page fetched from the backend")
	return cmd
}
