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
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/infraweave-io/infraweave-sub001/pkg/catalog"
	"github.com/infraweave-io/infraweave-sub001/pkg/query"
	"github.com/infraweave-io/infraweave-sub001/pkg/stack"
)

func newStackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stack",
		Short: "Compose and publish stacks, or list published ones",
	}
	cmd.AddCommand(newStackPublishCmd(), newStackListCmd())
	return cmd
}

func newStackPublishCmd() *cobra.Command {
	var track, versionOverride string
	cmd := &cobra.Command{
		Use:   "publish <manifest.yaml>",
		Short: "Compose a stack manifest's module instances and publish the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd.Context())
			if err != nil {
				return err
			}
			return publishStackManifest(cmd.Context(), e, args[0], track, versionOverride)
		},
	}
	cmd.Flags().StringVar(&track, "track", "stable", "publish track")
	cmd.Flags().StringVar(&versionOverride, "version", "", "override the manifest's spec.version")
	return cmd
}

// publishStackManifest mirrors pkg/api/stacks.go's publish handler:
// parse the manifest, compose its module instances into a synthetic
// root module (pkg/stack.Compose), zip the generated main.tf, and
// publish through the same Catalog.PublishStack path the API uses.
func publishStackManifest(ctx context.Context, e *env, manifestPath, track, versionOverride string) error {
	manifestRaw, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", manifestPath, err)
	}
	manifest, err := catalog.ParseManifest(manifestRaw)
	if err != nil {
		return err
	}
	if !manifest.IsStack() {
		return fmt.Errorf("%s is not a stack manifest, publish it with 'infraweave module publish'", manifestPath)
	}

	composed, err := stack.Compose(ctx, e.catalog, manifest)
	if err != nil {
		return err
	}

	zipBytes, err := zipSingleFile("main.tf", []byte(composed.RootModuleSource))
	if err != nil {
		return err
	}

	src := catalog.ModuleSource{
		Manifest: manifest,
		ZipBytes: zipBytes,
		TfFiles:  map[string][]byte{"main.tf": []byte(composed.RootModuleSource)},
	}
	scan := &catalog.ScanResult{
		Variables:         composed.Variables,
		Outputs:           composed.Outputs,
		RequiredProviders: composed.RequiredProviders,
	}

	published, err := e.catalog.PublishStack(ctx, src, track, versionOverride, scan, composed.StackData)
	if err != nil {
		return err
	}
	return printJSON(published)
}

func newStackListCmd() *cobra.Command {
	var track string
	var limit int
	cmd := &cobra.Command{
		Use:   "list [stack-name]",
		Short: "List the newest version of every stack, or every version of one stack/track",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 0 {
				stacks, _, err := query.ListLatestModules(cmd.Context(), e.backend, true, limit, "")
				if err != nil {
					return err
				}
				return printJSON(stacks)
			}
			stacks, _, err := query.ListModuleVersions(cmd.Context(), e.backend, args[0], track, limit, "")
			if err != nil {
				return err
			}
			return printJSON(stacks)
		},
	}
	cmd.Flags().StringVar(&track, "track", "stable", "publish track, when a stack name is given")
	cmd.Flags().IntVar(&limit, "limit", query.DefaultPageSize, "maximum rows to return")
	return cmd
}

// zipSingleFile packages one in-memory file into a zip archive, the
// same way pkg/api/stacks.go packages a composed stack's root module.
func zipSingleFile(name string, content []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create(name)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(content); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
