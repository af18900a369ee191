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
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

// SanitizeResourceChanges extracts model.ResourceChange entries from a
// parsed `terraform show -json` document's "resource_changes" array,
// redacting sensitive values per spec.md §4.C7 (grounded on
// original_source's defs/src/resource_change.rs).
func SanitizeResourceChanges(planJSON map[string]interface{}) []model.ResourceChange {
	raw, _ := planJSON["resource_changes"].([]interface{})
	out := make([]model.ResourceChange, 0, len(raw))
	for _, entry := range raw {
		resource, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		rc, ok := sanitizeOne(resource)
		if ok {
			out = append(out, rc)
		}
	}
	return out
}

func sanitizeOne(resource map[string]interface{}) (model.ResourceChange, bool) {
	address, _ := resource["address"].(string)
	resourceType, _ := resource["type"].(string)
	name, _ := resource["name"].(string)
	if address == "" || resourceType == "" {
		return model.ResourceChange{}, false
	}

	change, _ := resource["change"].(map[string]interface{})
	if change == nil {
		return model.ResourceChange{}, false
	}

	rawActions, _ := change["actions"].([]interface{})
	actions := make(map[string]bool, len(rawActions))
	for _, a := range rawActions {
		if s, ok := a.(string); ok {
			actions[s] = true
		}
	}

	action := deriveAction(actions)

	var before, after map[string]interface{}
	if action != model.ResourceActionCreate {
		before = asMap(sanitizeValue(change["before"], change["before_sensitive"]))
	}
	if action != model.ResourceActionDelete {
		after = asMap(sanitizeValue(change["after"], change["after_sensitive"]))
	}

	return model.ResourceChange{
		Address: address,
		Type:    resourceType,
		Name:    name,
		Action:  action,
		Before:  before,
		After:   after,
	}, true
}

// deriveAction implements spec.md §4.C7's action derivation rules:
// delete+create -> Replace, delete -> Delete, create -> Create,
// update -> Update, else NoOp.
func deriveAction(actions map[string]bool) model.ResourceAction {
	switch {
	case actions["delete"] && actions["create"]:
		return model.ResourceActionReplace
	case actions["delete"]:
		return model.ResourceActionDelete
	case actions["create"]:
		return model.ResourceActionCreate
	case actions["update"]:
		return model.ResourceActionUpdate
	default:
		return model.ResourceActionNoOp
	}
}

// sanitizeValue recursively redacts values marked sensitive by the
// parallel *_sensitive tree: a bool true anywhere marks that entire
// subtree sensitive; objects/arrays are walked field-by-field/
// index-by-index against the corresponding sensitivity node.
func sanitizeValue(value, sensitive interface{}) interface{} {
	if value == nil {
		return nil
	}
	if b, ok := sensitive.(bool); ok {
		if b {
			return nil
		}
		// sensitive == false: entire value passes through unredacted.
		return value
	}

	switch v := value.(type) {
	case map[string]interface{}:
		sensMap, _ := sensitive.(map[string]interface{})
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			sensVal, present := sensMap[k]
			if !present {
				out[k] = val
				continue
			}
			if sanitized := sanitizeValue(val, sensVal); sanitized != nil {
				out[k] = sanitized
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []interface{}:
		sensArr, _ := sensitive.([]interface{})
		out := make([]interface{}, 0, len(v))
		for i, val := range v {
			var sensVal interface{}
			if i < len(sensArr) {
				sensVal = sensArr[i]
			}
			if sanitized := sanitizeValue(val, sensVal); sanitized != nil {
				out = append(out, sanitized)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return value
	}
}

func asMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}
