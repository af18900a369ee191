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

// Package claim implements the Claim Processor (spec.md §4.C5): parse
// a deployment claim, validate its variables against a resolved
// module or stack version, and produce the InfraPayload the job
// runner (pkg/runner) consumes.
package claim

import (
	"fmt"

	"sigs.k8s.io/yaml"

	"github.com/infraweave-io/infraweave-sub001/pkg/apierrors"
)

// DependsOn is one entry of a claim's spec.dependsOn list, of the form
// "<Kind>::<name>".
type DependsOn string

// DriftDetectionSpec is the claim-level drift detection configuration.
type DriftDetectionSpec struct {
	Enabled         bool           `json:"enabled"`
	IntervalMinutes int            `json:"intervalMinutes"`
	Webhooks        []WebhookSpec  `json:"webhooks,omitempty"`
}

// WebhookSpec names a URL to notify when drift is detected.
type WebhookSpec struct {
	URL string `json:"url"`
}

// Spec is the claim's spec block.
type Spec struct {
	ModuleVersion  string                 `json:"moduleVersion,omitempty"`
	StackVersion   string                 `json:"stackVersion,omitempty"`
	Region         string                 `json:"region"`
	Variables      map[string]interface{} `json:"variables"`
	DependsOn      []DependsOn            `json:"dependsOn,omitempty"`
	DriftDetection *DriftDetectionSpec    `json:"driftDetection,omitempty"`
}

// Metadata is the claim's metadata block.
type Metadata struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
}

// Manifest is a parsed claim YAML document (spec.md §6.1). Kind must
// match the target module's ModuleName.
type Manifest struct {
	APIVersion string   `json:"apiVersion"`
	Kind       string   `json:"kind"`
	Metadata   Metadata `json:"metadata"`
	Spec       Spec     `json:"spec"`
}

// Version returns the pinned module or stack version, whichever the
// claim set, and whether it is a stack claim.
func (m *Manifest) Version() (version string, isStack bool) {
	if m.Spec.StackVersion != "" {
		return m.Spec.StackVersion, true
	}
	return m.Spec.ModuleVersion, false
}

// Parse decodes a claim manifest from YAML bytes and checks the
// required structural fields are present.
func Parse(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, apierrors.ErrClaimSchemaInvalid.WithMessage("invalid claim YAML: %s", err)
	}
	if m.APIVersion == "" {
		return nil, apierrors.ErrClaimSchemaInvalid.WithMessage("apiVersion is required")
	}
	if m.Kind == "" {
		return nil, apierrors.ErrClaimSchemaInvalid.WithMessage("kind is required")
	}
	if m.Metadata.Name == "" {
		return nil, apierrors.ErrClaimSchemaInvalid.WithMessage("metadata.name is required")
	}
	if m.Spec.Region == "" {
		return nil, apierrors.ErrClaimSchemaInvalid.WithMessage("spec.region is required")
	}
	if m.Spec.ModuleVersion == "" && m.Spec.StackVersion == "" {
		return nil, apierrors.ErrClaimSchemaInvalid.WithMessage("one of spec.moduleVersion or spec.stackVersion is required")
	}
	if m.Spec.ModuleVersion != "" && m.Spec.StackVersion != "" {
		return nil, apierrors.ErrClaimSchemaInvalid.WithMessage("spec.moduleVersion and spec.stackVersion are mutually exclusive")
	}
	if m.Spec.Variables == nil {
		m.Spec.Variables = map[string]interface{}{}
	}
	return &m, nil
}

func (m *Manifest) String() string {
	return fmt.Sprintf("%s/%s/%s", m.Kind, m.Metadata.Namespace, m.Metadata.Name)
}
