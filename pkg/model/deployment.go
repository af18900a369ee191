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

// Status is the closed set of deployment lifecycle states (spec.md §4.C6).
type Status string

const (
	StatusReceived             Status = "received"
	StatusInitiated            Status = "initiated"
	StatusPlan                 Status = "plan"
	StatusApply                Status = "apply"
	StatusDestroy               Status = "destroy"
	StatusFailedInit           Status = "failed_init"
	StatusFailedValidate       Status = "failed_validate"
	StatusFailedPlan           Status = "failed_plan"
	StatusFailedShowPlan       Status = "failed_show_plan"
	StatusFailedPolicy         Status = "failed_policy"
	StatusFailedOutput         Status = "failed_output"
	StatusWaitingOnDependency  Status = "waiting-on-dependency"
	StatusHasDependants        Status = "has-dependants"
	StatusSuccessful           Status = "successful"
	StatusError                Status = "error"
	StatusDeleted              Status = "deleted"
)

// IsTerminal reports whether a deployment in this status requires no
// further automatic action (the job has finished, one way or another).
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccessful, StatusFailedInit, StatusFailedValidate,
		StatusFailedPlan, StatusFailedShowPlan, StatusFailedPolicy,
		StatusFailedOutput, StatusHasDependants, StatusWaitingOnDependency,
		StatusError, StatusDeleted:
		return true
	default:
		return false
	}
}

// IsFailure reports whether this status represents a failed job run.
func (s Status) IsFailure() bool {
	switch s {
	case StatusFailedInit, StatusFailedValidate, StatusFailedPlan,
		StatusFailedShowPlan, StatusFailedPolicy, StatusFailedOutput, StatusError:
		return true
	default:
		return false
	}
}

// Dependency references another deployment this one depends on.
type Dependency struct {
	DeploymentID string `json:"deploymentId"`
	Environment  string `json:"environment"`
}

// DriftDetection configures scheduled refresh-only plans.
type DriftDetection struct {
	Enabled         bool     `json:"enabled"`
	IntervalMinutes int      `json:"intervalMinutes"`
	Webhooks        []string `json:"webhooks,omitempty"`
}

// PolicyResult records one policy's pass/fail outcome for a job.
type PolicyResult struct {
	Policy     string   `json:"policy"`
	Version    string   `json:"version"`
	Failed     bool     `json:"failed"`
	Violations []string `json:"violations,omitempty"`
}

// Deployment is the primary record of a claim bound to a concrete
// module/stack version, including its current lifecycle status.
//
// Deleted is surfaced as a bool at this layer (Open Question #2) and is
// stored as a bool; pkg/deployment's deploymentToItem writes the 0/1
// form only into the synthetic index keys it builds through pkg/ids.
type Deployment struct {
	ProjectID     string `json:"projectId"`
	Region        string `json:"region"`
	Environment   string `json:"environment"`
	DeploymentID  string `json:"deploymentId"`

	Module        string `json:"module"`
	ModuleVersion string `json:"moduleVersion"`
	ModuleType    ModuleType `json:"moduleType"`
	ModuleTrack   string `json:"moduleTrack"`
	Name          string `json:"name"`

	Variables      map[string]interface{} `json:"variables"`
	Dependencies   []Dependency           `json:"dependencies,omitempty"`
	DriftDetection DriftDetection         `json:"driftDetection"`

	NextDriftCheckEpoch int64 `json:"nextDriftCheckEpoch"`
	DriftHasOccurred    bool  `json:"driftHasOccurred"`

	InitiatedBy string `json:"initiatedBy"`
	CPU         string `json:"cpu,omitempty"`
	Memory      string `json:"memory,omitempty"`
	Reference   string `json:"reference,omitempty"`

	Status    Status `json:"status"`
	ErrorText string `json:"errorText,omitempty"`
	JobID     string `json:"jobId,omitempty"`

	Output        map[string]interface{} `json:"output,omitempty"`
	PolicyResults []PolicyResult         `json:"policyResults,omitempty"`

	Deleted bool  `json:"deleted"`
	Epoch   int64 `json:"epoch"`

	PK string `json:"PK" dynamodbav:"PK" bson:"PK"`
	SK string `json:"SK" dynamodbav:"SK" bson:"SK"`
}

// TableName implements model.Interface.
func (d *Deployment) TableName() string { return "deployments" }

// DeletedAsInt normalizes Deleted to the 0/1 form the keyed-store
// secondary indexes require.
func (d *Deployment) DeletedAsInt() int {
	if d.Deleted {
		return 1
	}
	return 0
}
