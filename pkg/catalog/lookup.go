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

package catalog

import (
	"context"

	"github.com/infraweave-io/infraweave-sub001/pkg/apierrors"
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
	"github.com/infraweave-io/infraweave-sub001/pkg/semverx"
)

// ResolveModuleVersion looks up a published module or stack version by
// its exact version string, deriving the publish track the same way
// PublishModule enforced it (stable, or the version's leading
// prerelease identifier). Used by the Stack Composer (spec.md §4.C4)
// to resolve a stack manifest's pinned module instances.
func (c *Catalog) ResolveModuleVersion(ctx context.Context, moduleName, versionStr string) (*model.Module, error) {
	version, err := semverx.Parse(versionStr)
	if err != nil {
		return nil, apierrors.ErrStackModuleVersionMissing.WithMessage(
			"module %q: invalid version %q: %s", moduleName, versionStr, err)
	}
	track := version.PrereleaseTrack()
	if track == "" {
		track = "stable"
	}

	mod, err := c.GetModuleVersion(ctx, moduleName, track, version.Padded())
	if err != nil {
		return nil, apierrors.ErrStackModuleVersionMissing.WithMessage(
			"module %q version %q does not exist", moduleName, versionStr)
	}
	return mod, nil
}
