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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend/backendtest"
	"github.com/infraweave-io/infraweave-sub001/pkg/ids"
)

func seedCurrentPolicy(t *testing.T, be *backendtest.Fake, policy, environment, version string) {
	t.Helper()
	item := backend.Item{
		"PK": ids.CurrentPolicyPK, "SK": ids.CurrentPolicySK(policy, environment),
		"policy": policy, "environment": environment, "version": version,
	}
	require.NoError(t, be.Put(context.Background(), "policies", item), "seeding current policy row")
}

func seedProvider(t *testing.T, be *backendtest.Fake, provider, paddedVersion, rawVersion string) {
	t.Helper()
	item := backend.Item{
		"PK": ids.ProviderPK(provider), "SK": ids.ProviderVersionSK(paddedVersion),
		"provider": provider, "version": rawVersion,
	}
	require.NoError(t, be.Put(context.Background(), "providers", item), "seeding provider version")
	latest := backend.Item{
		"PK": ids.LatestProviderPK, "SK": ids.LatestProviderSK(provider),
		"provider": provider, "version": rawVersion,
	}
	require.NoError(t, be.Put(context.Background(), "providers", latest), "seeding latest provider row")
}

func TestPoliciesListFiltersByEnvironment(t *testing.T) {
	be := backendtest.New()
	seedCurrentPolicy(t, be, "require-tags", "stable", "00001.00000.00000")
	seedCurrentPolicy(t, be, "staging-only", "staging", "00001.00000.00000")
	secret := []byte("s3cret")
	svc := &Services{Backend: be, JWTSecret: secret}
	srv := newTestServer(t, NewPolicyAPIInterface(svc))

	token := signToken(t, secret, "user-1", []string{"*"}, time.Hour)
	resp := doGet(t, srv, "/api/v1/policies/stable", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body page
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body), "decoding response")
	items, ok := body.Items.([]interface{})
	require.True(t, ok && len(items) == 1, "expected exactly one policy active in stable, got %#v", body.Items)
}

func TestProvidersGetFindsExactVersion(t *testing.T) {
	be := backendtest.New()
	seedProvider(t, be, "aws", "00005.00000.00000", "5.0.0")
	secret := []byte("s3cret")
	svc := &Services{Backend: be, JWTSecret: secret}
	srv := newTestServer(t, NewProviderAPIInterface(svc))

	token := signToken(t, secret, "user-1", []string{"*"}, time.Hour)
	resp := doGet(t, srv, "/api/v1/providers/aws/5.0.0", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doGet(t, srv, "/api/v1/providers/aws/9.9.9", token)
	require.Equal(t, http.StatusNotFound, resp.StatusCode, "expected 404 for an unpublished version")
}
