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

// ModuleType distinguishes a plain module from a composed stack.
type ModuleType string

const (
	// ModuleTypeModule is a reusable Terraform package.
	ModuleTypeModule ModuleType = "module"
	// ModuleTypeStack is a composition of module instances.
	ModuleTypeStack ModuleType = "stack"
)

// TfVariable describes one Terraform input variable extracted from a
// module's HCL source, or synthesized by the stack composer.
type TfVariable struct {
	Name string `json:"name"`
	Type string `json:"type"`
	// DefaultSet distinguishes "no default declared" (required) from
	// an explicit default, including an explicit null default, which
	// Default alone (a bare interface{}) cannot express.
	DefaultSet  bool        `json:"defaultSet"`
	Default     interface{} `json:"default,omitempty"`
	Description string      `json:"description,omitempty"`
	Nullable    bool        `json:"nullable"`
	Sensitive   bool        `json:"sensitive"`
}

// Required reports whether a claim must supply this variable.
func (v TfVariable) Required() bool {
	if v.DefaultSet {
		return false
	}
	return true
}

// TfOutput describes one Terraform output.
type TfOutput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Sensitive   bool   `json:"sensitive"`
}

// TfProviderRequirement pins (or constrains) a Terraform provider.
type TfProviderRequirement struct {
	Name    string `json:"name"`
	Source  string `json:"source,omitempty"`
	Version string `json:"version"`
}

// StackModuleInstance is one entry in a stack manifest: a pinned
// module version bound to an instance name, region, and variable
// overrides (literals or `{{ Kind::instance::output }}` references).
type StackModuleInstance struct {
	ModuleName   string                 `json:"moduleName"`
	Version      string                 `json:"version"`
	InstanceName string                 `json:"instanceName"`
	Region       string                 `json:"region"`
	Variables    map[string]interface{} `json:"variables,omitempty"`
}

// StackData records a stack's composition so the job runner can
// reassemble the synthetic root module's source zip at apply time.
type StackData struct {
	Modules []StackModuleInstance `json:"modules"`
}

// VersionDiff is the structured diff between a module's previous and
// new HCL source, attached to every publish after the first.
type VersionDiff struct {
	PreviousVersion string   `json:"previousVersion"`
	Added           []string `json:"added,omitempty"`
	Changed         []string `json:"changed,omitempty"`
	Removed         []string `json:"removed,omitempty"`
}

// Module is the catalog entry for a published module or stack version.
// It is immutable once created; only Deprecated may later flip.
type Module struct {
	ModuleType   ModuleType   `json:"moduleType"`
	Module       string       `json:"module"`
	ModuleName   string       `json:"moduleName"`
	Description  string       `json:"description"`
	Reference    string       `json:"reference"`
	Track        string       `json:"track"`
	Version      string       `json:"version"`
	TrackVersion string       `json:"trackVersion"`
	Deprecated   bool         `json:"deprecated"`
	Timestamp    string       `json:"timestamp"`
	S3Key        string       `json:"s3Key"`
	CPU          string       `json:"cpu,omitempty"`
	Memory       string       `json:"memory,omitempty"`

	TfVariables             []TfVariable             `json:"tfVariables"`
	TfOutputs               []TfOutput               `json:"tfOutputs"`
	TfRequiredProviders     []TfProviderRequirement  `json:"tfRequiredProviders"`
	TfLockProviders         []TfProviderRequirement  `json:"tfLockProviders"`
	TfExtraEnvironmentVars  []string                 `json:"tfExtraEnvironmentVariables,omitempty"`

	StackData   *StackData   `json:"stackData,omitempty"`
	VersionDiff *VersionDiff `json:"versionDiff,omitempty"`

	PK string `json:"PK" dynamodbav:"PK" bson:"PK"`
	SK string `json:"SK" dynamodbav:"SK" bson:"SK"`
}

// TableName implements model.Interface.
func (m *Module) TableName() string { return "modules" }

// IsStack reports whether this catalog entry is a stack composition.
func (m *Module) IsStack() bool { return m.ModuleType == ModuleTypeStack }

// LatestPartition returns the PK used by the sibling LATEST_MODULE/
// LATEST_STACK row for this module's type.
func (m *Module) LatestPartition() string {
	if m.IsStack() {
		return "LATEST_STACK"
	}
	return "LATEST_MODULE"
}

// FindVariable returns the declared variable by name, if any.
func (m *Module) FindVariable(name string) (TfVariable, bool) {
	for _, v := range m.TfVariables {
		if v.Name == name {
			return v, true
		}
	}
	return TfVariable{}, false
}
