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

package api

import (
	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/catalog"
	"github.com/infraweave-io/infraweave-sub001/pkg/policyengine"
)

// Services bundles everything a resource's Interface needs to serve
// requests: the backend every pkg/query call reads through, plus the
// higher-level packages (catalog publish, policy listing) the
// write-ish and detail endpoints delegate to.
type Services struct {
	Backend      backend.CloudBackend
	Catalog      *catalog.Catalog
	PolicyEngine *policyengine.Engine

	// JWTSecret verifies bearer tokens minted by the identity provider
	// in front of this API (spec.md §4.C10).
	JWTSecret []byte
}
