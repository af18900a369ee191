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
	"archive/zip"
	"bytes"
	"encoding/base64"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"

	"github.com/infraweave-io/infraweave-sub001/pkg/catalog"
	"github.com/infraweave-io/infraweave-sub001/pkg/query"
	"github.com/infraweave-io/infraweave-sub001/pkg/stack"
)

// stackPublishRequest carries only the composed manifest: the root
// module source is generated by pkg/stack.Compose rather than
// uploaded, since a stack has no source tree of its own.
type stackPublishRequest struct {
	ManifestYAMLBase64 string `json:"manifestYamlBase64"`
	Track              string `json:"track"`
	VersionOverride    string `json:"versionOverride,omitempty"`
}

type stackAPIInterface struct {
	svc *Services
}

// NewStackAPIInterface builds the /api/v1/stacks resource, the stack
// counterpart of moduleAPIInterface's plain-module listing/publish.
func NewStackAPIInterface(svc *Services) Interface {
	return &stackAPIInterface{svc: svc}
}

func (s *stackAPIInterface) GetWebServiceRoute() *restful.WebService {
	ws := new(restful.WebService)
	ws.Path(versionPrefix+"/stacks").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON).
		Doc("api for the stack catalog")

	tags := []string{"stacks"}

	ws.Route(ws.GET("/").To(s.listLatest).
		Operation("listLatestStacksResource").
		Doc("list the newest version of every stack").
		Metadata(restfulspec.KeyOpenAPITags, tags))

	ws.Route(ws.GET("/{stack}/{track}").To(s.listVersions).
		Operation("listStackVersions").
		Doc("list every published version of one stack/track").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Param(ws.PathParameter("stack", "stack slug")).
		Param(ws.PathParameter("track", "publish track")))

	ws.Route(ws.POST("/publish").To(s.publish).
		Operation("publishStack").
		Doc("compose and publish a new stack version from its manifest").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(stackPublishRequest{}))

	ws.Filter(authFilter(s.svc))
	return ws
}

func (s *stackAPIInterface) listLatest(req *restful.Request, res *restful.Response) {
	limit, cursor := pagingParams(req)
	modules, next, err := query.ListLatestModules(req.Request.Context(), s.svc.Backend, true, limit, cursor)
	if err != nil {
		writeError(req, res, err)
		return
	}
	_ = res.WriteEntity(page{Items: modules, Cursor: next})
}

func (s *stackAPIInterface) listVersions(req *restful.Request, res *restful.Response) {
	limit, cursor := pagingParams(req)
	modules, next, err := query.ListModuleVersions(req.Request.Context(), s.svc.Backend,
		req.PathParameter("stack"), req.PathParameter("track"), limit, cursor)
	if err != nil {
		writeError(req, res, err)
		return
	}
	_ = res.WriteEntity(page{Items: modules, Cursor: next})
}

func (s *stackAPIInterface) publish(req *restful.Request, res *restful.Response) {
	var body stackPublishRequest
	if err := req.ReadEntity(&body); err != nil {
		writeError(req, res, err)
		return
	}
	manifestRaw, err := base64.StdEncoding.DecodeString(body.ManifestYAMLBase64)
	if err != nil {
		writeError(req, res, err)
		return
	}
	manifest, err := catalog.ParseManifest(manifestRaw)
	if err != nil {
		writeError(req, res, err)
		return
	}

	composed, err := stack.Compose(req.Request.Context(), s.svc.Catalog, manifest)
	if err != nil {
		writeError(req, res, err)
		return
	}

	zipBytes, err := zipSingleFile("main.tf", []byte(composed.RootModuleSource))
	if err != nil {
		writeError(req, res, err)
		return
	}

	src := catalog.ModuleSource{
		Manifest: manifest,
		ZipBytes: zipBytes,
		TfFiles:  map[string][]byte{"main.tf": []byte(composed.RootModuleSource)},
	}
	scan := &catalog.ScanResult{
		Variables:         composed.Variables,
		Outputs:           composed.Outputs,
		RequiredProviders: composed.RequiredProviders,
	}

	published, err := s.svc.Catalog.PublishStack(req.Request.Context(), src, body.Track, body.VersionOverride, scan, composed.StackData)
	if err != nil {
		writeError(req, res, err)
		return
	}
	_ = res.WriteEntity(published)
}

// zipSingleFile packages one in-memory file into a zip archive, the
// way catalog.ZipDirectory packages a source tree read from disk.
func zipSingleFile(name string, content []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create(name)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(content); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
