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

	"github.com/infraweave-io/infraweave-sub001/pkg/deployment"
	"github.com/infraweave-io/infraweave-sub001/pkg/query"
)

type deploymentAPIInterface struct {
	svc *Services
}

// NewDeploymentAPIInterface builds the /api/v1/deployments resource.
func NewDeploymentAPIInterface(svc *Services) Interface {
	return &deploymentAPIInterface{svc: svc}
}

func (d *deploymentAPIInterface) GetWebServiceRoute() *restful.WebService {
	ws := new(restful.WebService)
	ws.Path(versionPrefix+"/deployments").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON).
		Doc("api for reading deployments")

	tags := []string{"deployments"}

	ws.Route(ws.GET("/{project}/{region}/{environment}").To(d.list).
		Operation("listDeployments").
		Doc("list deployments in a project/region/environment").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Param(ws.PathParameter("project", "project id")).
		Param(ws.PathParameter("region", "region")).
		Param(ws.PathParameter("environment", "cluster-or-tenant/namespace")).
		Param(ws.QueryParameter("includeDeleted", "include logically-deleted rows")).
		Param(ws.QueryParameter("limit", "page size")).
		Param(ws.QueryParameter("cursor", "continuation cursor")))

	ws.Route(ws.GET("/{project}/{region}/{environment}/{deploymentId}").To(d.get).
		Operation("getDeployment").
		Doc("get one deployment").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Param(ws.PathParameter("project", "project id")).
		Param(ws.PathParameter("region", "region")).
		Param(ws.PathParameter("environment", "cluster-or-tenant/namespace")).
		Param(ws.PathParameter("deploymentId", "deployment id")))

	ws.Route(ws.GET("/by-module/{module}/{track}").To(d.listByModule).
		Operation("listDeploymentsByModule").
		Doc("list every deployment running a given module/track, across projects").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Param(ws.PathParameter("module", "module slug")).
		Param(ws.PathParameter("track", "publish track")))

	ws.Filter(authFilter(d.svc))
	return ws
}

func (d *deploymentAPIInterface) list(req *restful.Request, res *restful.Response) {
	project := req.PathParameter("project")
	if err := requireProjectAccess(req, project); err != nil {
		writeError(req, res, err)
		return
	}
	limit, cursor := pagingParams(req)
	includeDeleted, _ := strconv.ParseBool(req.QueryParameter("includeDeleted"))

	deployments, next, err := query.ListDeploymentsByProject(
		req.Request.Context(), d.svc.Backend,
		project, req.PathParameter("region"), req.PathParameter("environment"),
		includeDeleted, limit, cursor)
	if err != nil {
		writeError(req, res, err)
		return
	}
	_ = res.WriteEntity(page{Items: deployments, Cursor: next})
}

func (d *deploymentAPIInterface) get(req *restful.Request, res *restful.Response) {
	project := req.PathParameter("project")
	if err := requireProjectAccess(req, project); err != nil {
		writeError(req, res, err)
		return
	}
	dep, err := deployment.Get(req.Request.Context(), d.svc.Backend,
		project, req.PathParameter("region"), req.PathParameter("environment"), req.PathParameter("deploymentId"))
	if err != nil {
		writeError(req, res, err)
		return
	}
	_ = res.WriteEntity(dep)
}

// listByModule spans projects, so it is filtered to the caller's
// allowed set after the fact rather than checked against one path
// parameter (pkg/query.AllowedProjects mirrors the JWT's
// custom:allowed_projects claim through model.UserPermissions.Allows).
func (d *deploymentAPIInterface) listByModule(req *restful.Request, res *restful.Response) {
	limit, cursor := pagingParams(req)
	deployments, next, err := query.ListDeploymentsByModule(
		req.Request.Context(), d.svc.Backend,
		req.PathParameter("module"), req.PathParameter("track"), limit, cursor)
	if err != nil {
		writeError(req, res, err)
		return
	}
	allowed := allowedProjectsFrom(req)
	filtered := deployments[:0:0]
	for _, dep := range deployments {
		if query.Authorized(dep.ProjectID, allowed) {
			filtered = append(filtered, dep)
		}
	}
	_ = res.WriteEntity(page{Items: filtered, Cursor: next})
}
