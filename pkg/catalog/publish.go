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
	"time"

	"github.com/infraweave-io/infraweave-sub001/pkg/apierrors"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/ids"
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
	"github.com/infraweave-io/infraweave-sub001/pkg/semverx"
)

// Catalog publishes and looks up module/stack/policy/provider catalog
// entries against a CloudBackend (spec.md §4.C3).
type Catalog struct {
	Backend backend.CloudBackend
	Bucket  string
}

// New constructs a Catalog.
func New(b backend.CloudBackend, bucket string) *Catalog {
	return &Catalog{Backend: b, Bucket: bucket}
}

// ModuleSource is the input to PublishModule/PublishStack: the parsed
// manifest plus the already-zipped source and its .tf file contents.
type ModuleSource struct {
	Manifest *Manifest
	ZipBytes []byte
	TfFiles  map[string][]byte
}

// PublishModule implements spec.md §4.C3 publish_module. track selects
// the prerelease channel; versionOverride, if non-empty, replaces the
// manifest's spec.version.
func (c *Catalog) PublishModule(ctx context.Context, src ModuleSource, track, versionOverride string) (*model.Module, error) {
	return c.publish(ctx, src, track, versionOverride, model.ModuleTypeModule, nil)
}

// PublishStack implements spec.md §4.C3 publish_stack: identical to
// PublishModule except the HCL scan is replaced by the stack
// composer's result (pkg/stack), supplied by the caller.
func (c *Catalog) PublishStack(ctx context.Context, src ModuleSource, track, versionOverride string, composed *ScanResult, stackData *model.StackData) (*model.Module, error) {
	return c.publishWithScan(ctx, src, track, versionOverride, model.ModuleTypeStack, composed, stackData)
}

func (c *Catalog) publish(ctx context.Context, src ModuleSource, track, versionOverride string, moduleType model.ModuleType, stackData *model.StackData) (*model.Module, error) {
	scan, err := ScanHCL(src.TfFiles)
	if err != nil {
		return nil, err
	}
	return c.publishWithScan(ctx, src, track, versionOverride, moduleType, scan, stackData)
}

func (c *Catalog) publishWithScan(ctx context.Context, src ModuleSource, track, versionOverride string, moduleType model.ModuleType, scan *ScanResult, stackData *model.StackData) (*model.Module, error) {
	if scan.HasBackendBlock {
		return nil, apierrors.ErrModuleBackendBlockForbidden
	}

	versionStr := src.Manifest.Spec.Version
	if versionOverride != "" {
		versionStr = versionOverride
	}
	version, err := semverx.Parse(versionStr)
	if err != nil {
		return nil, apierrors.ErrClaimSchemaInvalid.WithMessage("invalid version %q: %s", versionStr, err)
	}
	if err := ensureTrackMatchesVersion(version, track); err != nil {
		return nil, err
	}

	isStack := moduleType == model.ModuleTypeStack
	moduleName := src.Manifest.Spec.ModuleName

	latest, err := c.latestVersion(ctx, moduleName, track, isStack)
	if err != nil {
		return nil, err
	}

	var versionDiff *model.VersionDiff
	if latest != nil {
		latestVersion, err := semverx.Parse(latest.Version)
		if err != nil {
			return nil, err
		}
		cmp := version.CompareIgnoringBuild(latestVersion)
		switch {
		case cmp < 0:
			return nil, apierrors.ErrModuleVersionOlderThanLatest
		case cmp == 0 && version.SameBuild(latestVersion):
			return nil, apierrors.ErrModuleVersionExists
		}
		if latest.S3Key != "" {
			oldZip, err := c.Backend.DownloadBlob(ctx, c.Bucket, latest.S3Key)
			if err == nil {
				oldTfFiles, err := ReadTfFilesFromZip(oldZip)
				if err == nil {
					versionDiff = DiffVersions(latest.Version, oldTfFiles, src.TfFiles)
				}
			}
		}
	}

	s3Key := ids.ModuleZipKey(moduleName, versionStr)
	if err := c.Backend.UploadBlob(ctx, c.Bucket, s3Key, src.ZipBytes); err != nil {
		return nil, err
	}

	mod := &model.Module{
		ModuleType:          moduleType,
		Module:              moduleName,
		ModuleName:          moduleName,
		Description:         src.Manifest.Spec.Description,
		Reference:           src.Manifest.Spec.Reference,
		Track:               track,
		Version:             versionStr,
		TrackVersion:        track + "/" + versionStr,
		Timestamp:           time.Now().UTC().Format(time.RFC3339),
		S3Key:               s3Key,
		CPU:                 src.Manifest.Spec.CPU,
		Memory:              src.Manifest.Spec.Memory,
		TfVariables:         scan.Variables,
		TfOutputs:           scan.Outputs,
		TfRequiredProviders: scan.RequiredProviders,
		StackData:           stackData,
		VersionDiff:         versionDiff,
	}
	mod.PK = ids.ModulePK(moduleName, track)
	mod.SK = ids.ModuleVersionSK(version.Padded())

	latestRow := *mod
	latestRow.PK = ids.LatestModulePK(isStack)
	latestRow.SK = ids.LatestModuleSK(moduleName, track)

	ops := []backend.WriteOp{
		backend.PutOp("modules", moduleToItem(mod)),
		backend.PutOp("modules", moduleToItem(&latestRow)),
	}
	if err := c.Backend.TransactWrite(ctx, ops); err != nil {
		return nil, err
	}
	return mod, nil
}

func ensureTrackMatchesVersion(version *semverx.Version, track string) error {
	pre := version.PrereleaseTrack()
	if pre == "" {
		if track != "stable" {
			return apierrors.ErrModuleTrackMismatch.WithMessage(
				"version %s has no prerelease identifier and must be published to track \"stable\", not %q", version.String(), track)
		}
		return nil
	}
	if pre != track {
		return apierrors.ErrModuleTrackMismatch.WithMessage(
			"version %s has prerelease track %q but was published to track %q", version.String(), pre, track)
	}
	return nil
}

// latestVersion fetches the current LATEST_MODULE/LATEST_STACK row
// for (module, track), or nil if this is the first publish.
func (c *Catalog) latestVersion(ctx context.Context, module, track string, isStack bool) (*model.Module, error) {
	q := backend.HashEq(ids.LatestModulePK(isStack))
	q.RangeKey = &backend.Condition{Field: "SK", Op: backend.OpEq, Value: ids.LatestModuleSK(module, track)}

	page, err := c.Backend.Read(ctx, "modules", q)
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, nil
	}
	return itemToModule(page.Items[0])
}

// GetModuleVersion fetches one published module/stack version row.
func (c *Catalog) GetModuleVersion(ctx context.Context, module, track string, paddedVersion string) (*model.Module, error) {
	q := backend.HashEq(ids.ModulePK(module, track))
	q.RangeKey = &backend.Condition{Field: "SK", Op: backend.OpEq, Value: ids.ModuleVersionSK(paddedVersion)}

	page, err := c.Backend.Read(ctx, "modules", q)
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, apierrors.ErrModuleVersionUnknown
	}
	return itemToModule(page.Items[0])
}

// Deprecate flips the Deprecated flag on the latest row without
// deleting any version history (spec.md §4.C3 "Deprecation").
func (c *Catalog) Deprecate(ctx context.Context, module, track string, isStack bool) error {
	latest, err := c.latestVersion(ctx, module, track, isStack)
	if err != nil {
		return err
	}
	if latest == nil {
		return apierrors.ErrModuleVersionUnknown
	}
	latest.Deprecated = true
	return c.Backend.TransactWrite(ctx, []backend.WriteOp{backend.PutOp("modules", moduleToItem(latest))})
}

// PublishPolicy implements spec.md §4.C3 publish_policy: a policy
// bundle is an opaque zip (Rego source, no HCL scan) versioned and
// published the same way as a module, keyed by (policy, environment)
// rather than (module, track).
func (c *Catalog) PublishPolicy(ctx context.Context, policy, environment, versionStr, description string, zipBytes []byte) (*model.Policy, error) {
	version, err := semverx.Parse(versionStr)
	if err != nil {
		return nil, apierrors.ErrClaimSchemaInvalid.WithMessage("invalid policy version %q: %s", versionStr, err)
	}

	current, err := c.currentPolicy(ctx, policy, environment)
	if err != nil {
		return nil, err
	}
	if current != nil {
		currentVersion, err := semverx.Parse(current.Version)
		if err != nil {
			return nil, err
		}
		cmp := version.CompareIgnoringBuild(currentVersion)
		switch {
		case cmp < 0:
			return nil, apierrors.ErrModuleVersionOlderThanLatest
		case cmp == 0 && version.SameBuild(currentVersion):
			return nil, apierrors.ErrModuleVersionExists
		}
	}

	s3Key := ids.PolicyZipKey(policy, versionStr)
	if err := c.Backend.UploadBlob(ctx, c.Bucket, s3Key, zipBytes); err != nil {
		return nil, err
	}

	p := &model.Policy{
		Policy:      policy,
		Environment: environment,
		Version:     versionStr,
		Description: description,
		S3Key:       s3Key,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	p.PK = ids.PolicyPK(policy, environment)
	p.SK = ids.PolicyVersionSK(version.Padded())

	currentRow := *p
	currentRow.PK = ids.CurrentPolicyPK
	currentRow.SK = ids.CurrentPolicySK(policy, environment)

	ops := []backend.WriteOp{
		backend.PutOp("policies", policyToItem(p)),
		backend.PutOp("policies", policyToItem(&currentRow)),
	}
	return p, c.Backend.TransactWrite(ctx, ops)
}

func (c *Catalog) currentPolicy(ctx context.Context, policy, environment string) (*model.Policy, error) {
	q := backend.HashEq(ids.CurrentPolicyPK)
	q.RangeKey = &backend.Condition{Field: "SK", Op: backend.OpEq, Value: ids.CurrentPolicySK(policy, environment)}

	page, err := c.Backend.Read(ctx, "policies", q)
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, nil
	}
	return itemToPolicy(page.Items[0])
}

// PublishProvider implements spec.md §4.C3 publish_provider: a pinned
// Terraform provider lock bundle, versioned independently of any
// module or stack (spec.md §4.C9 resolves these at stack-compose
// time to detect cross-instance provider version conflicts).
func (c *Catalog) PublishProvider(ctx context.Context, provider, versionStr, description string, zipBytes []byte) (*model.Provider, error) {
	version, err := semverx.Parse(versionStr)
	if err != nil {
		return nil, apierrors.ErrClaimSchemaInvalid.WithMessage("invalid provider version %q: %s", versionStr, err)
	}

	current, err := c.latestProvider(ctx, provider)
	if err != nil {
		return nil, err
	}
	if current != nil {
		currentVersion, err := semverx.Parse(current.Version)
		if err != nil {
			return nil, err
		}
		cmp := version.CompareIgnoringBuild(currentVersion)
		switch {
		case cmp < 0:
			return nil, apierrors.ErrModuleVersionOlderThanLatest
		case cmp == 0 && version.SameBuild(currentVersion):
			return nil, apierrors.ErrModuleVersionExists
		}
	}

	s3Key := ids.ProviderZipKey(provider, versionStr)
	if err := c.Backend.UploadBlob(ctx, c.Bucket, s3Key, zipBytes); err != nil {
		return nil, err
	}

	p := &model.Provider{
		Provider:    provider,
		Version:     versionStr,
		Description: description,
		S3Key:       s3Key,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	p.PK = ids.ProviderPK(provider)
	p.SK = ids.ProviderVersionSK(version.Padded())

	latestRow := *p
	latestRow.PK = ids.LatestProviderPK
	latestRow.SK = ids.LatestProviderSK(provider)

	ops := []backend.WriteOp{
		backend.PutOp("providers", providerToItem(p)),
		backend.PutOp("providers", providerToItem(&latestRow)),
	}
	return p, c.Backend.TransactWrite(ctx, ops)
}

func (c *Catalog) latestProvider(ctx context.Context, provider string) (*model.Provider, error) {
	q := backend.HashEq(ids.LatestProviderPK)
	q.RangeKey = &backend.Condition{Field: "SK", Op: backend.OpEq, Value: ids.LatestProviderSK(provider)}

	page, err := c.Backend.Read(ctx, "providers", q)
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, nil
	}
	return itemToProvider(page.Items[0])
}
