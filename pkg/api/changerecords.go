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

	"github.com/infraweave-io/infraweave-sub001/pkg/query"
)

type changeRecordAPIInterface struct {
	svc *Services
}

// NewChangeRecordAPIInterface builds the /api/v1/change_record resource.
func NewChangeRecordAPIInterface(svc *Services) Interface {
	return &changeRecordAPIInterface{svc: svc}
}

func (c *changeRecordAPIInterface) GetWebServiceRoute() *restful.WebService {
	ws := new(restful.WebService)
	ws.Path(versionPrefix+"/change_record").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON).
		Doc("api for reading plan/apply/destroy change history")

	tags := []string{"change_record"}

	ws.Route(ws.GET("/{project}/{region}/{environment}/{deploymentId}").To(c.list).
		Operation("listChangeRecords").
		Doc("list a deployment's plan or mutate change records, newest first").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Param(ws.PathParameter("project", "project id")).
		Param(ws.PathParameter("region", "region")).
		Param(ws.PathParameter("environment", "cluster-or-tenant/namespace")).
		Param(ws.PathParameter("deploymentId", "deployment id")).
		Param(ws.QueryParameter("mutate", "true for apply/destroy records, false for plan-only")))

	ws.Filter(authFilter(c.svc))
	return ws
}

func (c *changeRecordAPIInterface) list(req *restful.Request, res *restful.Response) {
	project := req.PathParameter("project")
	if err := requireProjectAccess(req, project); err != nil {
		writeError(req, res, err)
		return
	}
	mutate, _ := strconv.ParseBool(req.QueryParameter("mutate"))
	limit, cursor := pagingParams(req)

	records, next, err := query.ListChangeRecords(req.Request.Context(), c.svc.Backend, mutate,
		project, req.PathParameter("region"), req.PathParameter("environment"), req.PathParameter("deploymentId"),
		limit, cursor)
	if err != nil {
		writeError(req, res, err)
		return
	}
	_ = res.WriteEntity(page{Items: records, Cursor: next})
}
