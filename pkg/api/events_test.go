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

func seedEvent(t *testing.T, be *backendtest.Fake, project, region, environment, deploymentID string, epoch int64, jobID, status string) {
	t.Helper()
	item := backend.Item{
		"PK": ids.EventPK(project, region, environment, deploymentID),
		"SK": ids.EventSK(epoch, jobID, status),
		"PK_base_region": ids.EventRegionPK(region),
		"projectId": project, "region": region, "environment": environment, "deploymentId": deploymentID,
		"epoch": epoch, "jobId": jobID, "status": status,
	}
	require.NoError(t, be.Put(context.Background(), "events", item), "seeding event")
}

func TestEventsListReturnsDeploymentTrail(t *testing.T) {
	be := backendtest.New()
	seedEvent(t, be, "proj1", "eu-west-1", "prod", "dep1", 100, "job-1", "received")
	seedEvent(t, be, "proj1", "eu-west-1", "prod", "dep1", 200, "job-1", "successful")
	secret := []byte("s3cret")
	svc := &Services{Backend: be, JWTSecret: secret}
	srv := newTestServer(t, NewEventAPIInterface(svc))

	token := signToken(t, secret, "user-1", []string{"proj1"}, time.Hour)
	resp := doGet(t, srv, "/api/v1/events/proj1/eu-west-1/prod/dep1", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body page
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body), "decoding response")
	items, ok := body.Items.([]interface{})
	require.True(t, ok && len(items) == 2, "expected 2 events, got %#v", body.Items)
}

func TestEventsListByRegionRequiresWildcardClaim(t *testing.T) {
	be := backendtest.New()
	seedEvent(t, be, "proj1", "eu-west-1", "prod", "dep1", 100, "job-1", "received")
	secret := []byte("s3cret")
	svc := &Services{Backend: be, JWTSecret: secret}
	srv := newTestServer(t, NewEventAPIInterface(svc))

	scoped := signToken(t, secret, "user-1", []string{"proj1"}, time.Hour)
	resp := doGet(t, srv, "/api/v1/events/by-region/eu-west-1?fromEpoch=0&toEpoch=1000", scoped)
	require.Equal(t, http.StatusNotFound, resp.StatusCode, "expected a non-wildcard caller to be masked as 404")

	wildcard := signToken(t, secret, "user-2", []string{"*"}, time.Hour)
	resp = doGet(t, srv, "/api/v1/events/by-region/eu-west-1?fromEpoch=0&toEpoch=1000", wildcard)
	require.Equal(t, http.StatusOK, resp.StatusCode, "expected a wildcard caller to be allowed")
}
