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

package policyengine

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

// Evaluate runs every policy active in environment against planJSON,
// implementing pkg/runner.PolicyEvaluator (spec.md §4.C8). A policy
// whose deny set is non-empty anywhere in its package tree is marked
// failed; evaluation keeps going across policies so every violation
// surfaces in one pass rather than stopping at the first failure.
func (e *Engine) Evaluate(ctx context.Context, environment string, planJSON map[string]interface{}) ([]model.PolicyResult, bool, error) {
	policies, err := e.ListActivePolicies(ctx, environment)
	if err != nil {
		return nil, false, err
	}

	var results []model.PolicyResult
	anyFailed := false
	for _, p := range policies {
		result, err := e.evaluateOne(ctx, p, planJSON)
		if err != nil {
			return nil, false, fmt.Errorf("evaluating policy %s: %w", p.Policy, err)
		}
		if result.Failed {
			anyFailed = true
		}
		results = append(results, result)
	}
	return results, anyFailed, nil
}

func (e *Engine) evaluateOne(ctx context.Context, p *model.Policy, planJSON map[string]interface{}) (model.PolicyResult, error) {
	paths, err := e.fetchRegoFiles(ctx, p.Policy, p.S3Key)
	if err != nil {
		return model.PolicyResult{}, err
	}

	r := rego.New(
		rego.Query("data"),
		rego.Load(paths, nil),
		rego.Input(planJSON),
	)
	resultSet, err := r.Eval(ctx)
	if err != nil {
		return model.PolicyResult{}, err
	}

	violations := collectDenyViolations(resultSetValue(resultSet))
	return model.PolicyResult{
		Policy:     p.Policy,
		Version:    p.Version,
		Failed:     len(violations) > 0,
		Violations: violations,
	}, nil
}

func resultSetValue(rs rego.ResultSet) interface{} {
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil
	}
	return rs[0].Expressions[0].Value
}

// collectDenyViolations walks a `data` evaluation result recursively
// looking for "deny" keys holding a non-empty array, accumulating each
// entry's string form as a violation (spec.md §4.C8: "walk each
// package, look for deny array").
func collectDenyViolations(value interface{}) []string {
	var violations []string
	var walk func(interface{})
	walk = func(v interface{}) {
		m, ok := v.(map[string]interface{})
		if !ok {
			return
		}
		for key, child := range m {
			if key == "deny" {
				if arr, ok := child.([]interface{}); ok {
					for _, entry := range arr {
						violations = append(violations, fmt.Sprint(entry))
					}
				}
				continue
			}
			walk(child)
		}
	}
	walk(value)
	return violations
}
