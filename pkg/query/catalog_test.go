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

package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend/backendtest"
	"github.com/infraweave-io/infraweave-sub001/pkg/ids"
)

func seedModuleVersion(t *testing.T, be *backendtest.Fake, module, track, paddedVersion string, isStack bool) {
	t.Helper()
	item := backend.Item{
		"PK": ids.ModulePK(module, track), "SK": ids.ModuleVersionSK(paddedVersion),
		"module": module, "track": track, "version": paddedVersion,
	}
	require.NoError(t, be.Put(context.Background(), "modules", item), "seeding module version")
	latest := backend.Item{
		"PK": ids.LatestModulePK(isStack), "SK": ids.LatestModuleSK(module, track),
		"module": module, "track": track, "version": paddedVersion,
	}
	require.NoError(t, be.Put(context.Background(), "modules", latest), "seeding latest module row")
}

func TestListModuleVersionsFiltersToOneModuleTrack(t *testing.T) {
	be := backendtest.New()
	seedModuleVersion(t, be, "vpc", "stable", "00001.00000.00000", false)
	seedModuleVersion(t, be, "vpc", "stable", "00001.00001.00000", false)
	seedModuleVersion(t, be, "database", "stable", "00001.00000.00000", false)

	versions, _, err := ListModuleVersions(context.Background(), be, "vpc", "stable", 0, "")
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestListLatestModulesReturnsOnlyLatestRows(t *testing.T) {
	be := backendtest.New()
	seedModuleVersion(t, be, "vpc", "stable", "00001.00000.00000", false)
	seedModuleVersion(t, be, "database", "stable", "00002.00000.00000", false)
	seedModuleVersion(t, be, "pipeline", "stable", "00001.00000.00000", true)

	modules, _, err := ListLatestModules(context.Background(), be, false, 0, "")
	require.NoError(t, err)
	assert.Len(t, modules, 2, "expected 2 latest non-stack modules")
}

func seedProvider(t *testing.T, be *backendtest.Fake, provider, paddedVersion string) {
	t.Helper()
	item := backend.Item{
		"PK": ids.ProviderPK(provider), "SK": ids.ProviderVersionSK(paddedVersion),
		"provider": provider, "version": paddedVersion,
	}
	require.NoError(t, be.Put(context.Background(), "providers", item), "seeding provider version")
	latest := backend.Item{
		"PK": ids.LatestProviderPK, "SK": ids.LatestProviderSK(provider),
		"provider": provider, "version": paddedVersion,
	}
	require.NoError(t, be.Put(context.Background(), "providers", latest), "seeding latest provider row")
}

func seedCurrentPolicy(t *testing.T, be *backendtest.Fake, policy, environment, version string) {
	t.Helper()
	item := backend.Item{
		"PK": ids.CurrentPolicyPK, "SK": ids.CurrentPolicySK(policy, environment),
		"policy": policy, "environment": environment, "version": version,
	}
	require.NoError(t, be.Put(context.Background(), "policies", item), "seeding current policy row")
}

func TestListPoliciesFiltersByEnvironment(t *testing.T) {
	be := backendtest.New()
	seedCurrentPolicy(t, be, "require-tags", "stable", "00001.00000.00000")
	seedCurrentPolicy(t, be, "no-public-buckets", "stable", "00002.00000.00000")
	seedCurrentPolicy(t, be, "staging-only", "staging", "00001.00000.00000")

	policies, _, err := ListPolicies(context.Background(), be, "stable", 0, "")
	require.NoError(t, err)
	assert.Len(t, policies, 2)
}

func TestListProvidersReturnsLatestRows(t *testing.T) {
	be := backendtest.New()
	seedProvider(t, be, "aws", "00005.00000.00000")
	seedProvider(t, be, "google", "00003.00001.00000")

	providers, _, err := ListProviders(context.Background(), be, 0, "")
	require.NoError(t, err)
	assert.Len(t, providers, 2)
}
