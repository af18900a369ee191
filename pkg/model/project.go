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

package model

// Project groups deployments under a tenant, scoping regions and
// source repositories it is allowed to draw modules/stacks from.
type Project struct {
	ProjectID    string   `json:"projectId"`
	Regions      []string `json:"regions,omitempty"`
	Repositories []string `json:"repositories,omitempty"`
}

// TableName implements model.Interface.
func (p *Project) TableName() string { return "projects" }

// UserPermissions records the set of projects a user may access,
// mirrored from the JWT's allowed_projects claim at write time for
// server-side enforcement in contexts without a live token (e.g. the
// job runner).
type UserPermissions struct {
	UserID          string   `json:"userId"`
	AllowedProjects []string `json:"allowedProjects"`
}

// TableName implements model.Interface.
func (u *UserPermissions) TableName() string { return "permissions" }

// Allows reports whether the user may access the given project. An
// empty AllowedProjects denies everything.
func (u *UserPermissions) Allows(projectID string) bool {
	for _, p := range u.AllowedProjects {
		if p == projectID || p == "*" {
			return true
		}
	}
	return false
}

// Config holds seeded runtime discovery data (e.g. "all_regions").
type Config struct {
	Key     string   `json:"key"`
	Regions []string `json:"regions,omitempty"`
}

// TableName implements model.Interface.
func (c *Config) TableName() string { return "config" }
