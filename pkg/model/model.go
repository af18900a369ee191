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

// Package model holds the entity shapes persisted by the storage layer,
// shared between the catalog, deployment state machine, job runner and
// HTTP API.
package model

// Interface is implemented by every persisted entity so backends can
// generically derive a table/collection name for it.
type Interface interface {
	TableName() string
}

var registeredModels = map[string]Interface{}

// RegisterModel records a model's table name so backends can validate
// there is no collision between entities at startup.
func RegisterModel(models ...Interface) {
	for _, m := range models {
		name := m.TableName()
		if _, exists := registeredModels[name]; exists {
			panic("model table name " + name + " registered twice")
		}
		registeredModels[name] = m
	}
}
