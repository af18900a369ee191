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
	"errors"

	"github.com/emicklei/go-restful/v3"

	"github.com/infraweave-io/infraweave-sub001/pkg/apierrors"
	"github.com/infraweave-io/infraweave-sub001/pkg/query"
)

const (
	minPageSize     = 1
	maxPageSize     = 200
	defaultPageSize = 50
)

// writeError is this package's equivalent of kubevela's
// bcode.ReturnError: it maps any error to a Bcode (defaulting to an
// opaque 500) and writes it as the response body with the matching
// HTTP status. The pack's retrieved copy of kubevela does not include
// the core bcode.go this pattern comes from (only per-domain
// bcode-variable files were retrieved), so this is grounded on our own
// pre-existing pkg/apierrors.Bcode instead.
func writeError(req *restful.Request, res *restful.Response, err error) {
	var b *apierrors.Bcode
	if errors.As(err, &b) {
		_ = res.WriteHeaderAndEntity(b.HTTPCode, b)
		return
	}
	var be *apierrors.BackendError
	if errors.As(err, &be) {
		if be.Kind == apierrors.BackendErrorNotFound {
			_ = res.WriteHeaderAndEntity(apierrors.ErrNotFound.HTTPCode, apierrors.ErrNotFound)
			return
		}
		_ = res.WriteHeaderAndEntity(apierrors.ErrBackendFatal.HTTPCode, apierrors.ErrBackendFatal)
		return
	}
	_ = res.WriteHeaderAndEntity(apierrors.ErrBackendFatal.HTTPCode, apierrors.ErrBackendFatal.WithMessage("%s", err.Error()))
}

// page is the paginated-list envelope every listing endpoint returns
// (spec.md §4.C10: "returns paginated JSON").
type page struct {
	Items  interface{} `json:"items"`
	Cursor string      `json:"cursor,omitempty"`
}

// pagingParams reads limit/cursor query parameters, clamping limit to
// [minPageSize, maxPageSize] the way kubevela's (unretrieved)
// ExtractPagingParams does.
func pagingParams(req *restful.Request) (limit int, cursor string) {
	limit = defaultPageSize
	if raw := req.QueryParameter("limit"); raw != "" {
		n := 0
		for _, ch := range raw {
			if ch < '0' || ch > '9' {
				n = 0
				break
			}
			n = n*10 + int(ch-'0')
		}
		if n >= minPageSize && n <= maxPageSize {
			limit = n
		}
	}
	return limit, req.QueryParameter("cursor")
}

// requireProjectAccess returns apierrors.ErrProjectNotFound (never a
// 403) when the caller's allowed-projects claim does not include
// project, per spec.md §4.C10's anti-enumeration requirement.
func requireProjectAccess(req *restful.Request, project string) error {
	if query.Authorized(project, allowedProjectsFrom(req)) {
		return nil
	}
	return apierrors.ErrProjectNotFound
}
