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
	"strconv"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"

	"github.com/infraweave-io/infraweave-sub001/pkg/apierrors"
	"github.com/infraweave-io/infraweave-sub001/pkg/query"
)

type eventAPIInterface struct {
	svc *Services
}

// NewEventAPIInterface builds the /api/v1/events resource.
func NewEventAPIInterface(svc *Services) Interface {
	return &eventAPIInterface{svc: svc}
}

func (e *eventAPIInterface) GetWebServiceRoute() *restful.WebService {
	ws := new(restful.WebService)
	ws.Path(versionPrefix+"/events").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON).
		Doc("api for reading a deployment's status trail")

	tags := []string{"events"}

	ws.Route(ws.GET("/{project}/{region}/{environment}/{deploymentId}").To(e.list).
		Operation("listEvents").
		Doc("list a deployment's events, newest first").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Param(ws.PathParameter("project", "project id")).
		Param(ws.PathParameter("region", "region")).
		Param(ws.PathParameter("environment", "cluster-or-tenant/namespace")).
		Param(ws.PathParameter("deploymentId", "deployment id")))

	ws.Route(ws.GET("/by-region/{region}").To(e.listByRegion).
		Operation("listEventsByRegion").
		Doc("cross-tenant time-range scan of events in a region").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Param(ws.PathParameter("region", "region")).
		Param(ws.QueryParameter("fromEpoch", "inclusive lower bound, unix seconds")).
		Param(ws.QueryParameter("toEpoch", "inclusive upper bound, unix seconds")))

	ws.Filter(authFilter(e.svc))
	return ws
}

func (e *eventAPIInterface) list(req *restful.Request, res *restful.Response) {
	project := req.PathParameter("project")
	if err := requireProjectAccess(req, project); err != nil {
		writeError(req, res, err)
		return
	}
	limit, cursor := pagingParams(req)
	events, next, err := query.ListEvents(req.Request.Context(), e.svc.Backend,
		project, req.PathParameter("region"), req.PathParameter("environment"), req.PathParameter("deploymentId"),
		limit, cursor)
	if err != nil {
		writeError(req, res, err)
		return
	}
	_ = res.WriteEntity(page{Items: events, Cursor: next})
}

// listByRegion is restricted to callers with the "*" allowed-projects
// wildcard: it reads across every tenant in the region, so per-project
// claim filtering cannot mask it down to a safe subset.
func (e *eventAPIInterface) listByRegion(req *restful.Request, res *restful.Response) {
	if !query.Authorized("*", allowedProjectsFrom(req)) {
		writeError(req, res, apierrors.ErrProjectNotFound)
		return
	}
	fromEpoch, _ := strconv.ParseInt(req.QueryParameter("fromEpoch"), 10, 64)
	toEpoch, _ := strconv.ParseInt(req.QueryParameter("toEpoch"), 10, 64)
	limit, cursor := pagingParams(req)

	events, next, err := query.ListEventsByRegion(req.Request.Context(), e.svc.Backend,
		req.PathParameter("region"), fromEpoch, toEpoch, limit, cursor)
	if err != nil {
		writeError(req, res, err)
		return
	}
	_ = res.WriteEntity(page{Items: events, Cursor: next})
}
