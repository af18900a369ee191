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

// ChangeType is the kind of Terraform action a change record captures.
type ChangeType string

const (
	ChangeTypePlan    ChangeType = "PLAN"
	ChangeTypeApply   ChangeType = "APPLY"
	ChangeTypeDestroy ChangeType = "DESTROY"
)

// ResourceAction is the derived effect of a plan's resource change.
type ResourceAction string

const (
	ResourceActionCreate  ResourceAction = "Create"
	ResourceActionUpdate  ResourceAction = "Update"
	ResourceActionDelete  ResourceAction = "Delete"
	ResourceActionReplace ResourceAction = "Replace"
	ResourceActionNoOp    ResourceAction = "NoOp"
)

// ResourceChange is one sanitized entry from `terraform show -json`,
// with sensitive values redacted per spec.md §4.C7.
type ResourceChange struct {
	Address string                 `json:"address"`
	Type    string                 `json:"type"`
	Name    string                 `json:"name"`
	Action  ResourceAction         `json:"action"`
	Before  map[string]interface{} `json:"before,omitempty"`
	After   map[string]interface{} `json:"after,omitempty"`
}

// VariableChanges is the four-way classification of a deployment's
// variable diff between successive applies. It is omitted entirely
// (nil) when there is no change at all, per original_source's
// infra_change_record.rs.
type VariableChanges struct {
	Added     map[string]interface{} `json:"added,omitempty"`
	Removed   map[string]interface{} `json:"removed,omitempty"`
	Changed   map[string]ValueChange `json:"changed,omitempty"`
	Unchanged map[string]interface{} `json:"unchanged,omitempty"`
}

// ValueChange is a before/after pair for one changed variable.
type ValueChange struct {
	Before interface{} `json:"before"`
	After  interface{} `json:"after"`
}

// IsEmpty reports whether added/removed/changed are all empty (i.e.
// nothing changed but unchanged values, which is not itself a change).
func (v *VariableChanges) IsEmpty() bool {
	if v == nil {
		return true
	}
	return len(v.Added) == 0 && len(v.Removed) == 0 && len(v.Changed) == 0
}

// ChangeRecord persists one job's plan/apply/destroy output.
type ChangeRecord struct {
	ProjectID    string `json:"projectId"`
	Region       string `json:"region"`
	Environment  string `json:"environment"`
	DeploymentID string `json:"deploymentId"`

	JobID          string     `json:"jobId"`
	ChangeType     ChangeType `json:"changeType"`
	PlanStdOutput  string     `json:"planStdOutput"`
	PlanRawJSONKey string     `json:"planRawJsonKey"`

	ResourceChanges []ResourceChange `json:"resourceChanges"`
	VariableChanges *VariableChanges `json:"variableChanges,omitempty"`

	PK string `json:"PK" dynamodbav:"PK" bson:"PK"`
	SK string `json:"SK" dynamodbav:"SK" bson:"SK"`
}

// TableName implements model.Interface.
func (c *ChangeRecord) TableName() string { return "change_records" }

// MaxInlinePlanOutput is the truncation limit for PlanStdOutput
// (spec.md §3, ChangeRecord).
const MaxInlinePlanOutput = 50 * 1024
