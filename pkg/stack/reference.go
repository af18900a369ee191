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

// Package stack implements the Stack Composer (spec.md §4.C4):
// merging a stack manifest's pinned module instances into one
// synthetic root module, flattening variables and outputs with an
// instance prefix, and resolving `{{ Kind::instance::output }}`
// template references between sibling instances.
package stack

import "regexp"

// referencePattern captures the three segments of a
// "{{ Kind::instance::output }}" template reference (spec.md §6.1).
// The Kind segment is accepted but not otherwise validated here: at
// stack-compose time the only thing that matters is that the
// referenced instance exists and declares the referenced output.
var referencePattern = regexp.MustCompile(`^\{\{\s*(\w+)::(\w+)::(\w+)\s*\}\}$`)

// ParseReference reports whether v is a template reference string and,
// if so, its instance and output segments.
func ParseReference(v interface{}) (instance, output string, ok bool) {
	s, isString := v.(string)
	if !isString {
		return "", "", false
	}
	m := referencePattern.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	return m[2], m[3], true
}
