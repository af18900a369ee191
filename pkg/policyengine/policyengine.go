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

// Package policyengine implements the Policy Engine Adapter (spec.md
// §4.C8): for every policy bundle active in a given environment,
// evaluate its `deny` rules against a Terraform plan and aggregate the
// violations, satisfying pkg/runner.PolicyEvaluator.
package policyengine

import (
	"context"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/ids"
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

// Engine evaluates active OPA policies against a plan, in-process via
// the open-policy-agent/opa rego package rather than shelling out to
// the opa binary (spec.md §4.C8's original subprocess invocation is
// replaced by rego.New(...).Eval(ctx), see DESIGN.md).
type Engine struct {
	Backend      backend.CloudBackend
	PolicyBucket string
	// WorkDir is scratch space for extracted .rego files; cleared
	// between policies to avoid package-namespace clashes.
	WorkDir string
}

// New constructs an Engine.
func New(be backend.CloudBackend, policyBucket, workDir string) *Engine {
	return &Engine{Backend: be, PolicyBucket: policyBucket, WorkDir: workDir}
}

// ListActivePolicies returns every policy currently published as
// "current" for environment, via the sibling CURRENT row the catalog
// maintains at publish time (spec.md §4.C3, mirrored by
// pkg/catalog.PublishPolicy's currentRow write).
func (e *Engine) ListActivePolicies(ctx context.Context, environment string) ([]*model.Policy, error) {
	q := backend.HashEq(ids.CurrentPolicyPK).WithRangeStartsWith("SK", "POLICY#"+environment+"::")
	var policies []*model.Policy
	for {
		page, err := e.Backend.Read(ctx, "policies", q)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			p, err := itemToPolicy(item)
			if err != nil {
				return nil, err
			}
			policies = append(policies, p)
		}
		if page.Cursor == "" {
			return policies, nil
		}
		q = q.WithCursor(page.Cursor)
	}
}
