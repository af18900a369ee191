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

package runner

import (
	"reflect"

	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

// ComputeVariableChanges classifies a deployment's variable diff
// between successive applies into added/removed/changed/unchanged,
// returning nil when nothing was added, removed, or changed (spec.md
// §4.C7, grounded on original_source's infra_change_record.rs
// VariableChange::compute).
func ComputeVariableChanges(before, after map[string]interface{}) *model.VariableChanges {
	added := map[string]interface{}{}
	removed := map[string]interface{}{}
	changed := map[string]model.ValueChange{}
	unchanged := map[string]interface{}{}

	for key, afterValue := range after {
		beforeValue, existed := before[key]
		if !existed {
			added[key] = afterValue
			continue
		}
		if !reflect.DeepEqual(beforeValue, afterValue) {
			changed[key] = model.ValueChange{Before: beforeValue, After: afterValue}
		} else {
			unchanged[key] = afterValue
		}
	}
	for key, beforeValue := range before {
		if _, stillPresent := after[key]; !stillPresent {
			removed[key] = beforeValue
		}
	}

	if len(added) == 0 && len(removed) == 0 && len(changed) == 0 {
		return nil
	}

	vc := &model.VariableChanges{}
	if len(added) > 0 {
		vc.Added = added
	}
	if len(removed) > 0 {
		vc.Removed = removed
	}
	if len(changed) > 0 {
		vc.Changed = changed
	}
	if len(unchanged) > 0 {
		vc.Unchanged = unchanged
	}
	return vc
}
