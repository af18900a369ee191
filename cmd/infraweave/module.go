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
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/infraweave-io/infraweave-sub001/pkg/catalog"
	"github.com/infraweave-io/infraweave-sub001/pkg/query"
)

func newModuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "module",
		Short: "Publish and list Terraform modules",
	}
	cmd.AddCommand(newModulePublishCmd(), newModuleListCmd())
	return cmd
}

func newModulePublishCmd() *cobra.Command {
	var track, versionOverride string
	cmd := &cobra.Command{
		Use:   "publish <directory>",
		Short: "Zip a module source tree and publish it to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd.Context())
			if err != nil {
				return err
			}
			return publishModuleDir(cmd.Context(), e, args[0], track, versionOverride)
		},
	}
	cmd.Flags().StringVar(&track, "track", "stable", "publish track")
	cmd.Flags().StringVar(&versionOverride, "version", "", "override the manifest's spec.version")
	return cmd
}

// publishModuleDir reads module.yaml from dir, zips the rest of the
// tree with catalog.ZipDirectory, and publishes it. Grounded on
// pkg/api/catalog.go's decodePublishRequest, minus the base64 framing
// an HTTP body needs: the CLI reads straight off disk.
func publishModuleDir(ctx context.Context, e *env, dir, track, versionOverride string) error {
	manifestPath := filepath.Join(dir, "module.yaml")
	manifestRaw, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", manifestPath, err)
	}
	manifest, err := catalog.ParseManifest(manifestRaw)
	if err != nil {
		return err
	}
	if manifest.IsStack() {
		return fmt.Errorf("%s is a stack manifest, publish it with 'infraweave stack publish'", manifestPath)
	}

	zipBytes, tfFiles, err := catalog.ZipDirectory(dir)
	if err != nil {
		return fmt.Errorf("zipping %s: %w", dir, err)
	}

	published, err := e.catalog.PublishModule(ctx, catalog.ModuleSource{
		Manifest: manifest,
		ZipBytes: zipBytes,
		TfFiles:  tfFiles,
	}, track, versionOverride)
	if err != nil {
		return err
	}
	return printJSON(published)
}

func newModuleListCmd() *cobra.Command {
	var track string
	var stacks bool
	var limit int
	cmd := &cobra.Command{
		Use:   "list [module-name]",
		Short: "List the newest version of every module, or every version of one module/track",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 0 {
				modules, _, err := query.ListLatestModules(cmd.Context(), e.backend, stacks, limit, "")
				if err != nil {
					return err
				}
				return printJSON(modules)
			}
			modules, _, err := query.ListModuleVersions(cmd.Context(), e.backend, args[0], track, limit, "")
			if err != nil {
				return err
			}
			return printJSON(modules)
		},
	}
	cmd.Flags().StringVar(&track, "track", "stable", "publish track, when a module name is given")
	cmd.Flags().BoolVar(&stacks, "stacks", false, "list stacks instead of plain modules")
	cmd.Flags().IntVar(&limit, "limit", query.DefaultPageSize, "maximum rows to return")
	return cmd
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
