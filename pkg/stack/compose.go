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

package stack

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/imdario/mergo"

	"github.com/infraweave-io/infraweave-sub001/pkg/apierrors"
	"github.com/infraweave-io/infraweave-sub001/pkg/catalog"
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

// ModuleResolver looks up an already-published module/stack version by
// its exact version string. *catalog.Catalog satisfies this.
type ModuleResolver interface {
	ResolveModuleVersion(ctx context.Context, moduleName, version string) (*model.Module, error)
}

// ComposeResult is the synthetic module row produced by Compose
// (spec.md §4.C4), ready to feed into catalog.Catalog.PublishStack
// alongside the generated root module's zip.
type ComposeResult struct {
	Variables         []model.TfVariable
	Outputs           []model.TfOutput
	RequiredProviders []model.TfProviderRequirement
	LockProviders     []model.TfProviderRequirement
	StackData         *model.StackData
	// RootModuleSource is the generated root main.tf: one module block
	// per instance, wiring pinned inputs as literals or
	// `module.<instance>.<output>` references.
	RootModuleSource string
}

// Compose validates and flattens a stack manifest's module instances
// (spec.md §4.C4). resolver must resolve every instance's (module, version)
// to an already-published catalog row.
func Compose(ctx context.Context, resolver ModuleResolver, manifest *catalog.Manifest) (*ComposeResult, error) {
	if !manifest.IsStack() {
		return nil, apierrors.ErrClaimSchemaInvalid.WithMessage("manifest is not a Stack")
	}
	instances := manifest.Spec.Modules
	if len(instances) == 0 {
		return nil, apierrors.ErrClaimSchemaInvalid.WithMessage("stack manifest declares no module instances")
	}

	resolved := make(map[string]*model.Module, len(instances))
	outputsByInstance := make(map[string]map[string]bool, len(instances))

	for _, inst := range instances {
		if inst.InstanceName == "" {
			return nil, apierrors.ErrClaimSchemaInvalid.WithMessage("every stack module instance needs an instanceName")
		}
		if inst.Region == "" {
			return nil, apierrors.ErrStackRegionMissing.WithMessage(
				"stack instance %q does not pin a region", inst.InstanceName)
		}
		if _, dup := resolved[inst.InstanceName]; dup {
			return nil, apierrors.ErrClaimSchemaInvalid.WithMessage("duplicate stack instance name %q", inst.InstanceName)
		}

		mod, err := resolver.ResolveModuleVersion(ctx, inst.ModuleName, inst.Version)
		if err != nil {
			return nil, err
		}
		resolved[inst.InstanceName] = mod

		outs := make(map[string]bool, len(mod.TfOutputs))
		for _, o := range mod.TfOutputs {
			outs[o.Name] = true
		}
		outputsByInstance[inst.InstanceName] = outs
	}

	// Every template reference must resolve before anything else is
	// built, so a bad reference never gets masked by a later error.
	for _, inst := range instances {
		for name, value := range inst.Variables {
			refInstance, output, ok := ParseReference(value)
			if !ok {
				continue
			}
			outs, exists := outputsByInstance[refInstance]
			if !exists || !outs[output] {
				return nil, apierrors.ErrStackReferenceUnresolved.WithMessage(
					"instance %q variable %q references %s.%s, which is not a declared output of a sibling instance",
					inst.InstanceName, name, refInstance, output)
			}
		}
	}

	var variables []model.TfVariable
	var outputs []model.TfOutput
	providerMerge := map[string]model.TfProviderRequirement{}
	lockMerge := map[string]model.TfProviderRequirement{}
	var moduleInstances []model.StackModuleInstance
	var root strings.Builder

	for _, inst := range instances {
		mod := resolved[inst.InstanceName]

		for _, v := range mod.TfVariables {
			if _, pinned := inst.Variables[v.Name]; pinned {
				continue
			}
			flat := v
			flat.Name = inst.InstanceName + "__" + v.Name
			variables = append(variables, flat)
		}
		for _, o := range mod.TfOutputs {
			outputs = append(outputs, model.TfOutput{
				Name:        inst.InstanceName + "__" + o.Name,
				Description: o.Description,
				Sensitive:   o.Sensitive,
			})
		}

		if err := mergeProviders(providerMerge, mod.TfRequiredProviders); err != nil {
			return nil, err
		}
		if err := mergeProviders(lockMerge, mod.TfLockProviders); err != nil {
			return nil, err
		}

		moduleInstances = append(moduleInstances, model.StackModuleInstance{
			ModuleName:   inst.ModuleName,
			Version:      inst.Version,
			InstanceName: inst.InstanceName,
			Region:       inst.Region,
			Variables:    inst.Variables,
		})

		writeModuleBlock(&root, inst)
	}

	sort.Slice(variables, func(i, j int) bool { return variables[i].Name < variables[j].Name })
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Name < outputs[j].Name })

	return &ComposeResult{
		Variables:         variables,
		Outputs:           outputs,
		RequiredProviders: sortedProviders(providerMerge),
		LockProviders:     sortedProviders(lockMerge),
		StackData:         &model.StackData{Modules: moduleInstances},
		RootModuleSource:  root.String(),
	}, nil
}

// mergeProviders folds a sub-module's provider requirements into the
// running merge set, failing the publish on a version conflict
// (spec.md §4.C4). Source/blank fields are filled in via mergo so a
// later instance can supply what an earlier one left unset without
// clobbering a value the earlier instance already pinned.
func mergeProviders(into map[string]model.TfProviderRequirement, reqs []model.TfProviderRequirement) error {
	for _, req := range reqs {
		existing, ok := into[req.Name]
		if !ok {
			into[req.Name] = req
			continue
		}
		if existing.Version != "" && req.Version != "" && existing.Version != req.Version {
			return apierrors.ErrProviderVersionConflict.WithMessage(
				"provider %q required at both %q and %q across stack instances", req.Name, existing.Version, req.Version)
		}
		if err := mergo.Merge(&existing, req); err != nil {
			return apierrors.ErrBackendFatal.WithMessage("merge provider requirement %q: %s", req.Name, err)
		}
		into[req.Name] = existing
	}
	return nil
}

func sortedProviders(m map[string]model.TfProviderRequirement) []model.TfProviderRequirement {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]model.TfProviderRequirement, 0, len(names))
	for _, name := range names {
		out = append(out, m[name])
	}
	return out
}

// writeModuleBlock appends one `module "<instance>" { ... }` block to
// root, wiring each pinned variable as either a literal HCL value or a
// `module.<other>.<output>` reference (spec.md §4.C4).
func writeModuleBlock(root *strings.Builder, inst catalog.ManifestModuleRef) {
	fmt.Fprintf(root, "module %q {\n", inst.InstanceName)
	fmt.Fprintf(root, "  source = \"./%s\"\n", inst.InstanceName)

	names := make([]string, 0, len(inst.Variables))
	for name := range inst.Variables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := inst.Variables[name]
		if refInstance, output, ok := ParseReference(value); ok {
			fmt.Fprintf(root, "  %s = module.%s.%s\n", name, refInstance, output)
			continue
		}
		fmt.Fprintf(root, "  %s = %s\n", name, hclLiteral(value))
	}
	root.WriteString("}\n\n")
}

// hclLiteral renders a plain Go value (the shape a claim's JSON
// variables decode into) as an HCL expression.
func hclLiteral(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", val), "0"), ".")
	case []interface{}:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = hclLiteral(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s = %s", k, hclLiteral(val[k]))
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	default:
		return fmt.Sprintf("%v", val)
	}
}
