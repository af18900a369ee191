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
	"regexp"
	"strings"

	"github.com/fatih/camelcase"

	"github.com/infraweave-io/infraweave-sub001/pkg/apierrors"
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

// referencePattern matches a "{{ Kind::instance::output }}" template
// reference (spec.md §6.1). Values matching it bypass type-checking.
var referencePattern = regexp.MustCompile(`^\{\{\s*\w+::\w+::\w+\s*\}\}$`)

// IsReference reports whether v is a template reference string.
func IsReference(v interface{}) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	return referencePattern.MatchString(s)
}

// expectedCamelCase splits a key on its word boundaries (camelcase
// also finds boundaries inside snake_case runs) and rejoins it in
// camelCase, to quote the form a rejected key should have taken.
func expectedCamelCase(key string) string {
	parts := camelcase.Split(strings.ReplaceAll(key, "_", " "))
	var b strings.Builder
	first := true
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		lower := strings.ToLower(p)
		if first {
			b.WriteString(lower)
			first = false
			continue
		}
		b.WriteString(strings.ToUpper(lower[:1]))
		b.WriteString(lower[1:])
	}
	return b.String()
}

// ValidateCasing checks every provided variable key is already in its
// camelCase form (spec.md §4.C5). snake_case, PascalCase, and
// kebab-case keys are all rejected.
func ValidateCasing(variables map[string]interface{}) error {
	for key := range variables {
		want := expectedCamelCase(key)
		if key != want {
			return apierrors.ErrVariableNameCasingMismatch.WithMessage(
				"variable name casing mismatch: provided %q, expected %q", key, want)
		}
	}
	return nil
}

// typeFamily classifies a JSON-decoded claim value into the families
// declared-type comparison uses: string, number, bool, list, object, null.
func typeFamily(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64, int, int64:
		return "number"
	case bool:
		return "bool"
	case []interface{}:
		return "list"
	case map[string]interface{}:
		return "object"
	default:
		return "unknown"
	}
}

// declaredFamily classifies a TfVariable's Terraform type string into
// the same family space as typeFamily.
func declaredFamily(tfType string) string {
	switch {
	case strings.HasPrefix(tfType, "map(") || strings.HasPrefix(tfType, "object("):
		return "object"
	case strings.HasPrefix(tfType, "list(") || strings.HasPrefix(tfType, "set("):
		return "list"
	case tfType == "bool":
		return "bool"
	case tfType == "number":
		return "number"
	case tfType == "string":
		return "string"
	default:
		return tfType
	}
}

// ValidateExistenceAndType checks every provided variable is declared
// by the module/stack version and its value's type family matches.
func ValidateExistenceAndType(mod *model.Module, variables map[string]interface{}) error {
	for name, value := range variables {
		tfVar, ok := mod.FindVariable(name)
		if !ok {
			return apierrors.ErrVariableUnknown.WithMessage(
				"variable %q is not declared by %s version %s", name, mod.ModuleName, mod.Version)
		}

		if IsReference(value) {
			continue
		}

		got := typeFamily(value)
		want := declaredFamily(tfVar.Type)
		if got == want {
			continue
		}
		if got == "null" && tfVar.Nullable {
			continue
		}
		return apierrors.ErrVariableTypeMismatch.WithMessage(
			"variable %q is of type %s but should be of type %s", name, got, want)
	}
	return nil
}

// ValidateRequired checks every variable the module declares without
// a default (and that isn't nullable-with-null-default) is provided.
func ValidateRequired(mod *model.Module, variables map[string]interface{}) error {
	var missing []string
	for _, tfVar := range mod.TfVariables {
		if !tfVar.Required() {
			continue
		}
		if _, ok := variables[tfVar.Name]; !ok {
			missing = append(missing, tfVar.Name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return apierrors.ErrVariableRequired.WithMessage(
		"missing required variable(s): %q", strings.Join(missing, `", "`))
}

// Validate runs the full claim-validation pipeline of spec.md §4.C5
// (P2): casing, then existence+type, then required-ness.
func Validate(mod *model.Module, variables map[string]interface{}) error {
	if err := ValidateCasing(variables); err != nil {
		return err
	}
	if err := ValidateExistenceAndType(mod, variables); err != nil {
		return err
	}
	if err := ValidateRequired(mod, variables); err != nil {
		return err
	}
	return nil
}
