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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedProjectsFiltersToPermittedOnly(t *testing.T) {
	got := AllowedProjects([]string{"p1", "p2", "p3"}, []string{"p1", "p3"})
	assert.Equal(t, []string{"p1", "p3"}, got)
}

func TestAllowedProjectsDeniesAllOnMissingClaim(t *testing.T) {
	got := AllowedProjects([]string{"p1", "p2"}, nil)
	assert.Empty(t, got, "expected empty result for a missing allowed_projects claim")
}

func TestAllowedProjectsWildcard(t *testing.T) {
	got := AllowedProjects([]string{"p1", "p2"}, []string{"*"})
	assert.Len(t, got, 2, "expected wildcard to permit everything")
}

func TestAuthorizedDeniesOnMissingClaim(t *testing.T) {
	assert.False(t, Authorized("p1", nil), "expected a missing allowed_projects claim to deny access")
}

func TestAuthorizedAllowsListedProject(t *testing.T) {
	assert.True(t, Authorized("p1", []string{"p1", "p2"}), "expected p1 to be authorized")
	assert.False(t, Authorized("p3", []string{"p1", "p2"}), "expected p3 to be denied")
}
