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

package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/infraweave-io/infraweave-sub001/pkg/apierrors"
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

// ScanResult is what walking a module's HCL AST (spec.md §4.C3 step 4)
// produces.
type ScanResult struct {
	Variables         []model.TfVariable
	Outputs           []model.TfOutput
	RequiredProviders []model.TfProviderRequirement
	HasBackendBlock   bool
}

// ScanHCL parses every ".tf" file in files (path -> source) and
// extracts variable, output, and required_provider declarations, plus
// whether any file declares a forbidden `terraform { backend ... }`
// block (spec.md §4.C3 step 3; backend configuration is injected at
// runtime by the job runner, never committed to module source).
func ScanHCL(files map[string][]byte) (*ScanResult, error) {
	parser := hclparse.NewParser()
	result := &ScanResult{}

	names := make([]string, 0, len(files))
	for name := range files {
		if strings.HasSuffix(name, ".tf") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		content := files[name]
		f, diags := parser.ParseHCL(content, name)
		if diags.HasErrors() {
			return nil, apierrors.ErrClaimSchemaInvalid.WithMessage("parse %s: %s", name, diags.Error())
		}
		body, ok := f.Body.(*hclsyntax.Body)
		if !ok {
			continue
		}
		for _, block := range body.Blocks {
			switch block.Type {
			case "variable":
				v, err := scanVariableBlock(block, content)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", name, err)
				}
				result.Variables = append(result.Variables, v)
			case "output":
				result.Outputs = append(result.Outputs, scanOutputBlock(block))
			case "terraform":
				providers, hasBackend := scanTerraformBlock(block)
				result.RequiredProviders = append(result.RequiredProviders, providers...)
				if hasBackend {
					result.HasBackendBlock = true
				}
			}
		}
	}
	return result, nil
}

func scanVariableBlock(block *hclsyntax.Block, content []byte) (model.TfVariable, error) {
	if len(block.Labels) == 0 {
		return model.TfVariable{}, fmt.Errorf("variable block is missing its name label")
	}
	v := model.TfVariable{Name: block.Labels[0], Type: "string"}

	for attrName, attr := range block.Body.Attributes {
		switch attrName {
		case "type":
			// The "type" attribute is a type expression (e.g.
			// list(string)), not a value; evaluating it would require
			// the typeexpr extension package, so the declared type
			// name is instead taken verbatim from its source text.
			v.Type = strings.TrimSpace(string(attr.Expr.Range().SliceBytes(content)))
		case "description":
			if s, err := evalString(attr.Expr); err == nil {
				v.Description = s
			}
		case "nullable":
			if b, err := evalBool(attr.Expr); err == nil {
				v.Nullable = b
			}
		case "sensitive":
			if b, err := evalBool(attr.Expr); err == nil {
				v.Sensitive = b
			}
		case "default":
			val, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				continue
			}
			v.DefaultSet = true
			goVal, err := ctyToGo(val)
			if err != nil {
				return v, err
			}
			v.Default = goVal
		}
	}
	return v, nil
}

func scanOutputBlock(block *hclsyntax.Block) model.TfOutput {
	o := model.TfOutput{}
	if len(block.Labels) > 0 {
		o.Name = block.Labels[0]
	}
	for attrName, attr := range block.Body.Attributes {
		switch attrName {
		case "description":
			if s, err := evalString(attr.Expr); err == nil {
				o.Description = s
			}
		case "sensitive":
			if b, err := evalBool(attr.Expr); err == nil {
				o.Sensitive = b
			}
		}
	}
	return o
}

func scanTerraformBlock(block *hclsyntax.Block) (providers []model.TfProviderRequirement, hasBackend bool) {
	for _, nested := range block.Body.Blocks {
		switch nested.Type {
		case "required_providers":
			names := make([]string, 0, len(nested.Body.Attributes))
			for name := range nested.Body.Attributes {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				attr := nested.Body.Attributes[name]
				val, diags := attr.Expr.Value(nil)
				if diags.HasErrors() {
					continue
				}
				req := model.TfProviderRequirement{Name: name}
				if val.Type().IsObjectType() || val.Type().IsMapType() {
					it := val.ElementIterator()
					for it.Next() {
						k, v := it.Element()
						if v.IsNull() || !v.Type().Equals(cty.String) {
							continue
						}
						switch k.AsString() {
						case "source":
							req.Source = v.AsString()
						case "version":
							req.Version = v.AsString()
						}
					}
				}
				providers = append(providers, req)
			}
		case "backend":
			hasBackend = true
		}
	}
	return providers, hasBackend
}

func evalString(expr hclsyntax.Expression) (string, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return "", diags
	}
	if val.Type() != cty.String {
		return "", fmt.Errorf("expected string, got %s", val.Type().FriendlyName())
	}
	return val.AsString(), nil
}

func evalBool(expr hclsyntax.Expression) (bool, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return false, diags
	}
	if val.Type() != cty.Bool {
		return false, fmt.Errorf("expected bool, got %s", val.Type().FriendlyName())
	}
	return val.True(), nil
}

// ctyToGo converts a statically-known cty.Value into the plain Go
// value shape TfVariable.Default stores (the same shape a JSON decode
// of a claim's variables would produce).
func ctyToGo(v cty.Value) (interface{}, error) {
	if !v.IsWhollyKnown() || v.IsNull() {
		return nil, nil
	}
	t := v.Type()
	switch {
	case t == cty.String:
		return v.AsString(), nil
	case t == cty.Bool:
		return v.True(), nil
	case t == cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return f, nil
	case t.IsListType(), t.IsSetType(), t.IsTupleType():
		var out []interface{}
		it := v.ElementIterator()
		for it.Next() {
			_, ev := it.Element()
			goVal, err := ctyToGo(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, goVal)
		}
		return out, nil
	case t.IsMapType(), t.IsObjectType():
		out := map[string]interface{}{}
		it := v.ElementIterator()
		for it.Next() {
			k, ev := it.Element()
			goVal, err := ctyToGo(ev)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = goVal
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported default-value type %s", t.FriendlyName())
	}
}
