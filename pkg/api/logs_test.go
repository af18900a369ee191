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
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend/backendtest"
)

func TestLogsReadMasksDeniedProjectAs404(t *testing.T) {
	be := backendtest.New()
	secret := []byte("s3cret")
	svc := &Services{Backend: be, JWTSecret: secret}
	srv := newTestServer(t, NewLogAPIInterface(svc))

	token := signToken(t, secret, "user-1", []string{"proj2"}, time.Hour)
	resp := doGet(t, srv, "/api/v1/logs/proj1/eu-west-1/job-1", token)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLogsReadReturnsOKForAllowedProject(t *testing.T) {
	be := backendtest.New()
	secret := []byte("s3cret")
	svc := &Services{Backend: be, JWTSecret: secret}
	srv := newTestServer(t, NewLogAPIInterface(svc))

	token := signToken(t, secret, "user-1", []string{"proj1"}, time.Hour)
	resp := doGet(t, srv, "/api/v1/logs/proj1/eu-west-1/job-1", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
