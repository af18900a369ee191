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

// Package api implements spec.md §4.C10: a read-focused REST surface
// over pkg/query, with JWT bearer authentication and project-scope
// authorization that masks denial as 404 rather than 403.
package api

import "github.com/emicklei/go-restful/v3"

// versionPrefix is prepended to every resource's route path.
const versionPrefix = "/api/v1"

// Interface is implemented by one struct per resource; each builds its
// own *restful.WebService with the routes it owns.
type Interface interface {
	GetWebServiceRoute() *restful.WebService
}

var registeredAPIInterface []Interface

// RegisterAPIInterface appends ws to the set returned by
// GetRegisteredAPIInterface.
func RegisterAPIInterface(ws Interface) {
	registeredAPIInterface = append(registeredAPIInterface, ws)
}

// GetRegisteredAPIInterface returns every Interface registered so far.
func GetRegisteredAPIInterface() []Interface {
	return registeredAPIInterface
}

// InitAPIBean constructs and registers one Interface per resource this
// control plane exposes, wired against the given Services.
func InitAPIBean(svc *Services) []Interface {
	RegisterAPIInterface(NewDeploymentAPIInterface(svc))
	RegisterAPIInterface(NewEventAPIInterface(svc))
	RegisterAPIInterface(NewChangeRecordAPIInterface(svc))
	RegisterAPIInterface(NewLogAPIInterface(svc))
	RegisterAPIInterface(NewModuleAPIInterface(svc))
	RegisterAPIInterface(NewStackAPIInterface(svc))
	RegisterAPIInterface(NewPolicyAPIInterface(svc))
	RegisterAPIInterface(NewProviderAPIInterface(svc))
	return registeredAPIInterface
}
