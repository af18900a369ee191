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
	"encoding/json"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/ids"
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

// ListModuleVersions lists every published version of (module, track),
// newest first (zero-padded semver SKs sort lexically in version order).
func ListModuleVersions(ctx context.Context, be backend.CloudBackend, module, track string, limit int, cursor string) ([]*model.Module, string, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	q := backend.HashEq(ids.ModulePK(module, track)).WithRangeStartsWith("SK", "VERSION#").WithLimit(limit)
	if cursor != "" {
		q = q.WithCursor(cursor)
	}
	page, err := be.Read(ctx, "modules", q)
	if err != nil {
		return nil, "", err
	}
	modules, err := itemsToModules(page.Items)
	if err != nil {
		return nil, "", err
	}
	return modules, page.Cursor, nil
}

// ListLatestModules lists the latest-version sibling row for every
// (module, track) of the given kind, the catalog's "browse" view.
func ListLatestModules(ctx context.Context, be backend.CloudBackend, isStack bool, limit int, cursor string) ([]*model.Module, string, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	q := backend.HashEq(ids.LatestModulePK(isStack)).WithLimit(limit)
	if cursor != "" {
		q = q.WithCursor(cursor)
	}
	page, err := be.Read(ctx, "modules", q)
	if err != nil {
		return nil, "", err
	}
	modules, err := itemsToModules(page.Items)
	if err != nil {
		return nil, "", err
	}
	return modules, page.Cursor, nil
}

// ListPolicies lists the current (latest) version of every policy
// active in environment, mirroring pkg/policyengine.ListActivePolicies
// for the HTTP-facing `/policies` listing endpoint.
func ListPolicies(ctx context.Context, be backend.CloudBackend, environment string, limit int, cursor string) ([]*model.Policy, string, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	q := backend.HashEq(ids.CurrentPolicyPK).WithRangeStartsWith("SK", "POLICY#"+environment+"::").WithLimit(limit)
	if cursor != "" {
		q = q.WithCursor(cursor)
	}
	page, err := be.Read(ctx, "policies", q)
	if err != nil {
		return nil, "", err
	}
	policies := make([]*model.Policy, 0, len(page.Items))
	for _, item := range page.Items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, "", err
		}
		var p model.Policy
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, "", err
		}
		policies = append(policies, &p)
	}
	return policies, page.Cursor, nil
}

// ListProviders lists the latest version of every published provider.
func ListProviders(ctx context.Context, be backend.CloudBackend, limit int, cursor string) ([]*model.Provider, string, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	q := backend.HashEq(ids.LatestProviderPK).WithLimit(limit)
	if cursor != "" {
		q = q.WithCursor(cursor)
	}
	page, err := be.Read(ctx, "providers", q)
	if err != nil {
		return nil, "", err
	}
	providers := make([]*model.Provider, 0, len(page.Items))
	for _, item := range page.Items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, "", err
		}
		var p model.Provider
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, "", err
		}
		providers = append(providers, &p)
	}
	return providers, page.Cursor, nil
}

func itemsToModules(items []backend.Item) ([]*model.Module, error) {
	modules := make([]*model.Module, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		var m model.Module
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		modules = append(modules, &m)
	}
	return modules, nil
}
