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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/stretchr/testify/require"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend/backendtest"
	"github.com/infraweave-io/infraweave-sub001/pkg/ids"
)

func seedDeployment(t *testing.T, be *backendtest.Fake, project, region, environment, deploymentID, module, track string) {
	t.Helper()
	pk := ids.DeploymentPK(project, region, environment, deploymentID)
	item := backend.Item{
		"PK": pk, "SK": ids.DeploymentMetadataSK,
		"projectId": project, "region": region, "environment": environment, "deploymentId": deploymentID,
		"module": module, "moduleTrack": track, "deleted": false,
		"deleted_PK_base": ids.DeletedIndexPK(false, project, region, environment),
		"module_PK_base":  ids.ModuleIndexPK(module, track),
		"deleted_PK":      ids.DeletedCompositeRangeKey(false, pk),
		"deleted_SK_base": ids.DriftCheckIndexPK(false),
	}
	require.NoError(t, be.Put(context.Background(), "deployments", item), "seeding deployment")
}

// newTestServer wires one resource's Interface the way cmd/apiserver/main.go
// does for the full set, but scoped to a single resource per test.
func newTestServer(t *testing.T, iface Interface) *httptest.Server {
	t.Helper()
	container := restful.NewContainer()
	container.Add(iface.GetWebServiceRoute())
	srv := httptest.NewServer(container)
	t.Cleanup(srv.Close)
	return srv
}

func doGet(t *testing.T, srv *httptest.Server, path, bearer string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err, "building request")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "performing request")
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestDeploymentsListRejectsMissingToken(t *testing.T) {
	be := backendtest.New()
	svc := &Services{Backend: be, JWTSecret: []byte("s3cret")}
	srv := newTestServer(t, NewDeploymentAPIInterface(svc))

	resp := doGet(t, srv, "/api/v1/deployments/proj1/eu-west-1/prod", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDeploymentsListMasksForbiddenProjectAs404(t *testing.T) {
	be := backendtest.New()
	seedDeployment(t, be, "proj1", "eu-west-1", "prod", "dep1", "vpc", "stable")
	secret := []byte("s3cret")
	svc := &Services{Backend: be, JWTSecret: secret}
	srv := newTestServer(t, NewDeploymentAPIInterface(svc))

	token := signToken(t, secret, "user-1", []string{"proj2"}, time.Hour)
	resp := doGet(t, srv, "/api/v1/deployments/proj1/eu-west-1/prod", token)
	require.Equal(t, http.StatusNotFound, resp.StatusCode, "expected access to an unlisted project to be masked as 404")
}

func TestDeploymentsListReturnsSeededDeployment(t *testing.T) {
	be := backendtest.New()
	seedDeployment(t, be, "proj1", "eu-west-1", "prod", "dep1", "vpc", "stable")
	secret := []byte("s3cret")
	svc := &Services{Backend: be, JWTSecret: secret}
	srv := newTestServer(t, NewDeploymentAPIInterface(svc))

	token := signToken(t, secret, "user-1", []string{"proj1"}, time.Hour)
	resp := doGet(t, srv, "/api/v1/deployments/proj1/eu-west-1/prod", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body page
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body), "decoding response")
	items, ok := body.Items.([]interface{})
	require.True(t, ok && len(items) == 1, "expected exactly one deployment, got %#v", body.Items)
}

func TestDeploymentsListByModuleFiltersToAllowedProjects(t *testing.T) {
	be := backendtest.New()
	seedDeployment(t, be, "proj1", "eu-west-1", "prod", "dep1", "vpc", "stable")
	seedDeployment(t, be, "proj2", "eu-west-1", "prod", "dep2", "vpc", "stable")
	secret := []byte("s3cret")
	svc := &Services{Backend: be, JWTSecret: secret}
	srv := newTestServer(t, NewDeploymentAPIInterface(svc))

	token := signToken(t, secret, "user-1", []string{"proj1"}, time.Hour)
	resp := doGet(t, srv, "/api/v1/deployments/by-module/vpc/stable", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body page
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body), "decoding response")
	items, ok := body.Items.([]interface{})
	require.True(t, ok && len(items) == 1, "expected cross-project scan filtered to proj1's single deployment, got %#v", body.Items)
}
