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
	"encoding/base64"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"

	"github.com/infraweave-io/infraweave-sub001/pkg/apierrors"
	"github.com/infraweave-io/infraweave-sub001/pkg/catalog"
	"github.com/infraweave-io/infraweave-sub001/pkg/query"
)

// publishRequest is the body of POST .../publish: the module/stack
// manifest plus its zipped Terraform source, both base64-encoded so
// the request stays a single JSON document.
type publishRequest struct {
	ManifestYAMLBase64 string `json:"manifestYamlBase64"`
	ZipBase64          string `json:"zipBase64"`
	Track              string `json:"track"`
	VersionOverride    string `json:"versionOverride,omitempty"`
}

func decodePublishRequest(req *restful.Request) (catalog.ModuleSource, string, string, error) {
	var body publishRequest
	if err := req.ReadEntity(&body); err != nil {
		return catalog.ModuleSource{}, "", "", err
	}
	manifestRaw, err := base64.StdEncoding.DecodeString(body.ManifestYAMLBase64)
	if err != nil {
		return catalog.ModuleSource{}, "", "", err
	}
	zipBytes, err := base64.StdEncoding.DecodeString(body.ZipBase64)
	if err != nil {
		return catalog.ModuleSource{}, "", "", err
	}
	manifest, err := catalog.ParseManifest(manifestRaw)
	if err != nil {
		return catalog.ModuleSource{}, "", "", err
	}
	tfFiles, err := catalog.ReadTfFilesFromZip(zipBytes)
	if err != nil {
		return catalog.ModuleSource{}, "", "", err
	}
	return catalog.ModuleSource{Manifest: manifest, ZipBytes: zipBytes, TfFiles: tfFiles}, body.Track, body.VersionOverride, nil
}

type moduleAPIInterface struct {
	svc *Services
}

// NewModuleAPIInterface builds the /api/v1/modules (and stacks)
// resource: catalog listing plus the publish write path spec.md
// §4.C10's endpoint list names explicitly ("module/publish").
func NewModuleAPIInterface(svc *Services) Interface {
	return &moduleAPIInterface{svc: svc}
}

func (m *moduleAPIInterface) GetWebServiceRoute() *restful.WebService {
	ws := new(restful.WebService)
	ws.Path(versionPrefix+"/modules").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON).
		Doc("api for the module/stack catalog")

	tags := []string{"modules"}

	ws.Route(ws.GET("/").To(m.listLatest).
		Operation("listLatestModules").
		Doc("list the newest version of every module").
		Metadata(restfulspec.KeyOpenAPITags, tags))

	ws.Route(ws.GET("/{module}/{track}").To(m.listVersions).
		Operation("listModuleVersions").
		Doc("list every published version of one module/track").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Param(ws.PathParameter("module", "module slug")).
		Param(ws.PathParameter("track", "publish track")))

	ws.Route(ws.GET("/{module}/{track}/{version}").To(m.getVersion).
		Operation("getModuleVersion").
		Doc("get one module/stack version").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Param(ws.PathParameter("module", "module slug")).
		Param(ws.PathParameter("track", "publish track")).
		Param(ws.PathParameter("version", "semver")))

	ws.Route(ws.POST("/publish").To(m.publish).
		Operation("publishModule").
		Doc("publish a new module or stack version").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(publishRequest{}))

	ws.Filter(authFilter(m.svc))
	return ws
}

func (m *moduleAPIInterface) listLatest(req *restful.Request, res *restful.Response) {
	m.listLatestOfType(req, res, false)
}

func (m *moduleAPIInterface) listLatestOfType(req *restful.Request, res *restful.Response, isStack bool) {
	limit, cursor := pagingParams(req)
	modules, next, err := query.ListLatestModules(req.Request.Context(), m.svc.Backend, isStack, limit, cursor)
	if err != nil {
		writeError(req, res, err)
		return
	}
	_ = res.WriteEntity(page{Items: modules, Cursor: next})
}

func (m *moduleAPIInterface) listVersions(req *restful.Request, res *restful.Response) {
	limit, cursor := pagingParams(req)
	modules, next, err := query.ListModuleVersions(req.Request.Context(), m.svc.Backend,
		req.PathParameter("module"), req.PathParameter("track"), limit, cursor)
	if err != nil {
		writeError(req, res, err)
		return
	}
	_ = res.WriteEntity(page{Items: modules, Cursor: next})
}

func (m *moduleAPIInterface) getVersion(req *restful.Request, res *restful.Response) {
	mod, err := m.svc.Catalog.GetModuleVersion(req.Request.Context(),
		req.PathParameter("module"), req.PathParameter("track"), req.PathParameter("version"))
	if err != nil {
		writeError(req, res, err)
		return
	}
	_ = res.WriteEntity(mod)
}

func (m *moduleAPIInterface) publish(req *restful.Request, res *restful.Response) {
	src, track, versionOverride, err := decodePublishRequest(req)
	if err != nil {
		writeError(req, res, err)
		return
	}
	if src.Manifest.IsStack() {
		writeError(req, res, apierrors.ErrClaimSchemaInvalid.WithMessage("stack manifests publish through /api/v1/stacks/publish"))
		return
	}
	published, err := m.svc.Catalog.PublishModule(req.Request.Context(), src, track, versionOverride)
	if err != nil {
		writeError(req, res, err)
		return
	}
	_ = res.WriteEntity(published)
}

type policyAPIInterface struct {
	svc *Services
}

// NewPolicyAPIInterface builds the /api/v1/policies resource.
func NewPolicyAPIInterface(svc *Services) Interface {
	return &policyAPIInterface{svc: svc}
}

func (p *policyAPIInterface) GetWebServiceRoute() *restful.WebService {
	ws := new(restful.WebService)
	ws.Path(versionPrefix+"/policies").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON).
		Doc("api for the active-policy catalog")

	tags := []string{"policies"}

	ws.Route(ws.GET("/{environment}").To(p.list).
		Operation("listPolicies").
		Doc("list the current version of every policy active in an environment").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Param(ws.PathParameter("environment", "environment")))

	ws.Filter(authFilter(p.svc))
	return ws
}

func (p *policyAPIInterface) list(req *restful.Request, res *restful.Response) {
	limit, cursor := pagingParams(req)
	policies, next, err := query.ListPolicies(req.Request.Context(), p.svc.Backend,
		req.PathParameter("environment"), limit, cursor)
	if err != nil {
		writeError(req, res, err)
		return
	}
	_ = res.WriteEntity(page{Items: policies, Cursor: next})
}

type providerAPIInterface struct {
	svc *Services
}

// NewProviderAPIInterface builds the /api/v1/providers resource.
func NewProviderAPIInterface(svc *Services) Interface {
	return &providerAPIInterface{svc: svc}
}

func (p *providerAPIInterface) GetWebServiceRoute() *restful.WebService {
	ws := new(restful.WebService)
	ws.Path(versionPrefix+"/providers").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON).
		Doc("api for the Terraform provider mirror catalog")

	tags := []string{"providers"}

	ws.Route(ws.GET("/").To(p.list).
		Operation("listProviders").
		Doc("list the newest version of every mirrored provider").
		Metadata(restfulspec.KeyOpenAPITags, tags))

	ws.Route(ws.GET("/{provider}/{version}").To(p.get).
		Operation("getProvider").
		Doc("get one provider version").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Param(ws.PathParameter("provider", "provider name")).
		Param(ws.PathParameter("version", "semver")))

	ws.Filter(authFilter(p.svc))
	return ws
}

func (p *providerAPIInterface) list(req *restful.Request, res *restful.Response) {
	limit, cursor := pagingParams(req)
	providers, next, err := query.ListProviders(req.Request.Context(), p.svc.Backend, limit, cursor)
	if err != nil {
		writeError(req, res, err)
		return
	}
	_ = res.WriteEntity(page{Items: providers, Cursor: next})
}

func (p *providerAPIInterface) get(req *restful.Request, res *restful.Response) {
	limit, cursor := pagingParams(req)
	providers, _, err := query.ListProviders(req.Request.Context(), p.svc.Backend, limit, cursor)
	if err != nil {
		writeError(req, res, err)
		return
	}
	version := req.PathParameter("version")
	provider := req.PathParameter("provider")
	for _, pr := range providers {
		if pr.Provider == provider && pr.Version == version {
			_ = res.WriteEntity(pr)
			return
		}
	}
	writeError(req, res, apierrors.ErrNotFound)
}
