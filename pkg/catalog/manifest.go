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

// Package catalog implements the Catalog (spec.md §4.C3): publishing
// modules, stacks, policies, and providers, enforcing version
// monotonicity and track/prerelease agreement, extracting Terraform
// variable/output/provider declarations, and diffing HCL source
// across versions.
package catalog

import (
	"fmt"

	"sigs.k8s.io/yaml"

	"github.com/infraweave-io/infraweave-sub001/pkg/apierrors"
)

// Example is one entry of a module manifest's spec.examples list.
type Example struct {
	Name      string                 `json:"name"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// ManifestModuleRef is one entry of a stack manifest's spec.modules
// list (spec.md §6.2).
type ManifestModuleRef struct {
	ModuleName   string                 `json:"moduleName"`
	Version      string                 `json:"version"`
	InstanceName string                 `json:"instanceName"`
	Region       string                 `json:"region"`
	Variables    map[string]interface{} `json:"variables,omitempty"`
}

// ManifestSpec is the spec block of a module.yaml/stack.yaml.
type ManifestSpec struct {
	ModuleName  string              `json:"moduleName"`
	Version     string              `json:"version,omitempty"`
	Description string              `json:"description"`
	Reference   string              `json:"reference"`
	Examples    []Example           `json:"examples,omitempty"`
	CPU         string              `json:"cpu,omitempty"`
	Memory      string              `json:"memory,omitempty"`
	Modules     []ManifestModuleRef `json:"modules,omitempty"`
}

// Manifest is a parsed module.yaml or stack.yaml (spec.md §6.2). Kind
// distinguishes a plain module from a stack composition.
type Manifest struct {
	APIVersion string       `json:"apiVersion"`
	Kind       string       `json:"kind"`
	Metadata   struct {
		Name string `json:"name"`
	} `json:"metadata"`
	Spec ManifestSpec `json:"spec"`
}

// IsStack reports whether this manifest declares a stack composition.
func (m *Manifest) IsStack() bool { return m.Kind == "Stack" }

// ParseManifest decodes a module/stack manifest from YAML bytes.
func ParseManifest(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, apierrors.ErrClaimSchemaInvalid.WithMessage("invalid module manifest YAML: %s", err)
	}
	if m.Metadata.Name == "" {
		return nil, apierrors.ErrClaimSchemaInvalid.WithMessage("metadata.name is required")
	}
	if m.Spec.ModuleName == "" {
		return nil, apierrors.ErrClaimSchemaInvalid.WithMessage("spec.moduleName is required")
	}
	if m.IsStack() && len(m.Spec.Modules) == 0 {
		return nil, apierrors.ErrClaimSchemaInvalid.WithMessage("stack manifest must declare at least one module instance")
	}
	return &m, nil
}

func (m *Manifest) String() string {
	return fmt.Sprintf("%s/%s", m.Kind, m.Spec.ModuleName)
}
