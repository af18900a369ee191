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
)

// cli wraps the root cobra.Command the way pkg/apiserver/commands.CLI
// wraps vela's, minus the k8s client this CLI has no use for: every
// subcommand builds its own env (env.go) from INFRAWEAVE_REGION,
// PROJECT_ID and CLOUD_PROVIDER rather than sharing a kubeconfig.
type cli struct {
	root *cobra.Command
}

func newCLI() *cli {
	root := &cobra.Command{
		Use:   "infraweave",
		Short: "Operate the InfraWeave Terraform control plane",
		Long: "infraweave drives module and stack publishing, claim submission, " +
			"drift checks, and log retrieval directly against the configured " +
			"backend store.",
		SilenceUsage: true,
	}
	c := &cli{root: root}
	root.AddCommand(
		newModuleCmd(),
		newStackCmd(),
		newPolicyCmd(),
		newDeploymentCmd(),
		newApplyCmd(),
		newPlanCmd(),
		newDestroyCmd(),
		newDriftCheckCmd(),
		newLogsCmd(),
	)
	return c
}

func (c *cli) run() error {
	return c.root.Execute()
}

func main() {
	if err := newCLI().run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
