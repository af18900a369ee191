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
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
)

type logAPIInterface struct {
	svc *Services
}

// NewLogAPIInterface builds the /api/v1/logs resource.
func NewLogAPIInterface(svc *Services) Interface {
	return &logAPIInterface{svc: svc}
}

func (l *logAPIInterface) GetWebServiceRoute() *restful.WebService {
	ws := new(restful.WebService)
	ws.Path(versionPrefix+"/logs").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON).
		Doc("api for reading a job's container logs")

	tags := []string{"logs"}

	ws.Route(ws.GET("/{project}/{region}/{jobId}").To(l.read).
		Operation("readLogs").
		Doc("read a page of a job's container logs").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Param(ws.PathParameter("project", "project id")).
		Param(ws.PathParameter("region", "region")).
		Param(ws.PathParameter("jobId", "job id")).
		Param(ws.QueryParameter("limit", "page size")).
		Param(ws.QueryParameter("cursor", "continuation cursor")))

	ws.Filter(authFilter(l.svc))
	return ws
}

func (l *logAPIInterface) read(req *restful.Request, res *restful.Response) {
	project := req.PathParameter("project")
	if err := requireProjectAccess(req, project); err != nil {
		writeError(req, res, err)
		return
	}
	limit, cursor := pagingParams(req)

	lines, next, err := l.svc.Backend.ReadLogs(req.Request.Context(),
		project, req.PathParameter("region"), req.PathParameter("jobId"), cursor, limit)
	if err != nil {
		writeError(req, res, err)
		return
	}
	_ = res.WriteEntity(page{Items: lines, Cursor: next})
}
