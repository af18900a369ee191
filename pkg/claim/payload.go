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

package claim

import (
	"strings"

	"github.com/infraweave-io/infraweave-sub001/pkg/ids"
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

// Command is the job runner action this payload requests.
type Command string

const (
	CommandApply   Command = "apply"
	CommandDestroy Command = "destroy"
	CommandPlan    Command = "plan"
)

// InfraPayload is the fully-resolved unit of work handed from the
// Claim Processor to the Deployment State Machine / Job Runner
// (spec.md §4.C5, §6.6). It is serialized as the job container's
// PAYLOAD environment variable.
type InfraPayload struct {
	ProjectID    string `json:"projectId"`
	Region       string `json:"region"`
	Environment  string `json:"environment"`
	DeploymentID string `json:"deploymentId"`

	Module      string          `json:"module"`
	ModuleVersion string        `json:"moduleVersion"`
	ModuleType  model.ModuleType `json:"moduleType"`
	ModuleTrack string          `json:"moduleTrack"`

	Command   Command                `json:"command"`
	Variables map[string]interface{} `json:"variables"`

	// RefreshOnly requests a `terraform plan -refresh-only` run (a
	// drift check) instead of a regular plan (spec.md §4.C6/§4.C7).
	RefreshOnly bool `json:"refreshOnly,omitempty"`
	// Remediate marks a drift-check job as triggered by a dependency's
	// completion, cascading a rewrite-and-requeue to this deployment's
	// own dependents in turn (spec.md §4.C6 "Dependent requeue").
	Remediate bool `json:"remediate,omitempty"`

	Dependencies   []model.Dependency   `json:"dependencies,omitempty"`
	DriftDetection model.DriftDetection `json:"driftDetection"`

	Annotations map[string]string `json:"annotations,omitempty"`

	CPU    string `json:"cpu,omitempty"`
	Memory string `json:"memory,omitempty"`
}

// NewDriftCheckPayload builds the InfraPayload for a scheduled or
// cascaded drift-check job against an already-deployed row, reusing
// its last-known module binding and variables rather than requiring a
// fresh claim submission.
func NewDriftCheckPayload(dep *model.Deployment, remediate bool) *InfraPayload {
	return &InfraPayload{
		ProjectID:      dep.ProjectID,
		Region:         dep.Region,
		Environment:    dep.Environment,
		DeploymentID:   dep.DeploymentID,
		Module:         dep.Module,
		ModuleVersion:  dep.ModuleVersion,
		ModuleType:     dep.ModuleType,
		ModuleTrack:    dep.ModuleTrack,
		Command:        CommandPlan,
		Variables:      dep.Variables,
		RefreshOnly:    true,
		Remediate:      remediate,
		Dependencies:   dep.Dependencies,
		DriftDetection: dep.DriftDetection,
		CPU:            dep.CPU,
		Memory:         dep.Memory,
	}
}

// Environment derives the "<namespace>/<name>" environment string this
// claim's deployment lives under.
func (m *Manifest) Environment() string {
	ns := m.Metadata.Namespace
	if ns == "" {
		ns = "default"
	}
	return ns + "/" + m.Metadata.Name
}

// BuildPayload validates the claim against the resolved module/stack
// version and, on success, constructs its InfraPayload. projectID and
// track are resolved by the caller (they are not present on the claim
// itself) from the authenticated caller's project and the module
// row's track.
func BuildPayload(manifest *Manifest, mod *model.Module, projectID string, command Command) (*InfraPayload, error) {
	if err := Validate(mod, manifest.Spec.Variables); err != nil {
		return nil, err
	}

	deploymentID := ids.ClaimDeploymentID(manifest.Kind, manifest.Metadata.Namespace, manifest.Metadata.Name)

	deps := make([]model.Dependency, 0, len(manifest.Spec.DependsOn))
	for _, d := range manifest.Spec.DependsOn {
		kind, name, ok := splitDependsOn(string(d))
		if !ok {
			continue
		}
		deps = append(deps, model.Dependency{
			DeploymentID: ids.ClaimDeploymentID(kind, manifest.Metadata.Namespace, name),
			Environment:  manifest.Environment(),
		})
	}

	drift := model.DriftDetection{}
	if manifest.Spec.DriftDetection != nil {
		drift.Enabled = manifest.Spec.DriftDetection.Enabled
		drift.IntervalMinutes = manifest.Spec.DriftDetection.IntervalMinutes
		for _, w := range manifest.Spec.DriftDetection.Webhooks {
			drift.Webhooks = append(drift.Webhooks, w.URL)
		}
	}

	version, _ := manifest.Version()

	return &InfraPayload{
		ProjectID:      projectID,
		Region:         manifest.Spec.Region,
		Environment:    manifest.Environment(),
		DeploymentID:   deploymentID,
		Module:         mod.ModuleName,
		ModuleVersion:  version,
		ModuleType:     mod.ModuleType,
		ModuleTrack:    mod.Track,
		Command:        command,
		Variables:      manifest.Spec.Variables,
		Dependencies:   deps,
		DriftDetection: drift,
		CPU:            mod.CPU,
		Memory:         mod.Memory,
	}, nil
}

// splitDependsOn parses one "<Kind>::<name>" dependsOn entry.
func splitDependsOn(s string) (kind, name string, ok bool) {
	parts := strings.SplitN(s, "::", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
