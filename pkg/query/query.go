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

// Package query implements the Query/Access Layer (spec.md §4.C9):
// typed builders that turn a caller's listing request into a
// backend.Query and execute it through a pkg/backend.CloudBackend,
// plus the server-side `allowed_projects` authorization filter every
// other listing in this package (and pkg/api, C10) is built on.
//
// Each ListXxx function owns its own item-to-model conversion, the
// same JSON round-trip convention used throughout pkg/catalog,
// pkg/deployment and pkg/policyengine, rather than importing those
// packages' unexported helpers.
package query

import "github.com/infraweave-io/infraweave-sub001/pkg/model"

// DefaultPageSize is used when a caller requests a list without
// specifying a limit.
const DefaultPageSize = 50

// AllowedProjects filters candidates down to the projects allowedProjects
// permits (spec.md §4.C9: "filtered server-side against their JWT's
// allowed_projects claim; a missing claim denies all"). An empty or
// nil allowedProjects always yields an empty result, never the
// unfiltered candidate list.
func AllowedProjects(candidates []string, allowedProjects []string) []string {
	if len(allowedProjects) == 0 {
		return nil
	}
	perms := &model.UserPermissions{AllowedProjects: allowedProjects}
	var out []string
	for _, p := range candidates {
		if perms.Allows(p) {
			out = append(out, p)
		}
	}
	return out
}

// Authorized reports whether allowedProjects permits access to a
// single project, the form pkg/api uses for every handler that takes
// a `project` path parameter.
func Authorized(project string, allowedProjects []string) bool {
	if len(allowedProjects) == 0 {
		return false
	}
	return (&model.UserPermissions{AllowedProjects: allowedProjects}).Allows(project)
}
