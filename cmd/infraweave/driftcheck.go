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
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/infraweave-io/infraweave-sub001/pkg/claim"
	"github.com/infraweave-io/infraweave-sub001/pkg/query"
)

// newDriftCheckCmd dispatches a plan-only job for every deployment
// whose NextDriftCheckEpoch has passed, the CLI-driven equivalent of
// the scheduled drift sweep spec.md §4.C7 describes: this is the
// entrypoint an operator's cron invokes in place of a dedicated
// scheduler service.
func newDriftCheckCmd() *cobra.Command {
	var remediate bool
	var nowEpoch int64
	var limit int
	cmd := &cobra.Command{
		Use:   "drift-check",
		Short: "Launch plan-only jobs for every deployment whose drift interval has elapsed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd.Context())
			if err != nil {
				return err
			}
			return runDriftCheck(cmd.Context(), e, nowEpoch, remediate, limit)
		},
	}
	cmd.Flags().BoolVar(&remediate, "remediate", false, "apply remediation when drift is found, instead of only reporting it")
	cmd.Flags().Int64Var(&nowEpoch, "now", 0, "epoch seconds to evaluate due-ness against (defaults to the current time at submission)")
	cmd.Flags().IntVar(&limit, "limit", query.DefaultPageSize, "maximum due deployments to launch per invocation")
	return cmd
}

func runDriftCheck(ctx context.Context, e *env, nowEpoch int64, remediate bool, limit int) error {
	if nowEpoch == 0 {
		nowEpoch = time.Now().Unix()
	}
	due, _, err := query.ListDriftDue(ctx, e.backend, nowEpoch, limit, "")
	if err != nil {
		return err
	}

	launched := make([]string, 0, len(due))
	for _, dep := range due {
		payload := claim.NewDriftCheckPayload(dep, remediate)
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if _, err := e.backend.LaunchJob(ctx, raw, payload.CPU, payload.Memory); err != nil {
			return err
		}
		launched = append(launched, dep.DeploymentID)
	}
	return printJSON(launched)
}
