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

// Command apiserver runs the HTTP API of spec.md §4.C10: a read-focused
// REST surface over pkg/query, served on a go-restful container the
// way the teacher's rest_server.go wires one, with OpenAPI doc
// generation, CORS, request logging, and JWT bearer auth per route.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"

	"github.com/infraweave-io/infraweave-sub001/pkg/api"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend/documentdb"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend/keyedstore"
	"github.com/infraweave-io/infraweave-sub001/pkg/catalog"
	"github.com/infraweave-io/infraweave-sub001/pkg/config"
	"github.com/infraweave-io/infraweave-sub001/pkg/logging"
	"github.com/infraweave-io/infraweave-sub001/pkg/policyengine"
)

func main() {
	if err := config.InitFromEnv(); err != nil {
		logging.Logger.Fatalf("config: %s", err)
	}

	ctx := context.Background()
	be, err := newBackend(ctx)
	if err != nil {
		logging.Logger.Fatalf("backend init: %s", err)
	}

	moduleBucket := envOr("MODULE_BUCKET", "infraweave-modules")
	policyBucket := envOr("POLICY_BUCKET", "infraweave-policies")
	policyWorkDir := envOr("POLICY_WORKDIR", "/tmp/infraweave-policy-bundles")

	svc := &api.Services{
		Backend:      be,
		Catalog:      catalog.New(be, moduleBucket),
		PolicyEngine: policyengine.New(be, policyBucket, policyWorkDir),
		JWTSecret:    []byte(mustEnv("JWT_SECRET")),
	}

	container := restful.NewContainer()
	for _, iface := range api.InitAPIBean(svc) {
		container.Add(iface.GetWebServiceRoute())
	}

	cors := restful.CrossOriginResourceSharing{
		ExposeHeaders:  []string{},
		AllowedHeaders: []string{"Content-Type", "Accept", "Authorization"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		Container:      container,
	}
	container.Filter(cors.Filter)
	container.Filter(container.OPTIONSFilter)
	container.Filter(requestLog)

	openAPIConfig := restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       "/apidocs.json",
		PostBuildSwaggerObjectHandler: enrichSwaggerObject,
	}
	container.Add(restfulspec.NewOpenAPIService(openAPIConfig))

	addr := envOr("BIND_ADDR", ":8080")
	logging.Logger.Infof("apiserver listening on %s", addr)
	server := &http.Server{Addr: addr, Handler: container}
	if err := server.ListenAndServe(); err != nil {
		logging.Logger.Fatalf("apiserver: %s", err)
	}
}

func newBackend(ctx context.Context) (backend.CloudBackend, error) {
	switch config.Provider() {
	case config.CloudProviderMongoDB:
		return documentdb.New(ctx, documentdb.Config{
			URL:          mustEnv("MONGODB_URL"),
			Database:     envOr("MONGODB_DATABASE", "infraweave"),
			RunnerBinary: envOr("RUNNER_BINARY", "infraweave-runner"),
			LogDir:       envOr("RUNNER_LOG_DIR", "/tmp/infraweave-runner-logs"),
		})
	default:
		return keyedstore.New(ctx, keyedstore.Config{
			Region:          config.Region(),
			Bucket:          moduleBucketFromEnv(),
			ECSCluster:      mustEnv("ECS_CLUSTER"),
			ECSTaskTemplate: mustEnv("ECS_TASK_TEMPLATE"),
			ECSSubnets:      splitCSV(os.Getenv("ECS_SUBNETS")),
			SNSTopicARN:     os.Getenv("SNS_TOPIC_ARN"),
			LogGroupName:    mustEnv("LOG_GROUP_NAME"),
		})
	}
}

func moduleBucketFromEnv() string { return envOr("MODULE_BUCKET", "infraweave-modules") }

func requestLog(req *restful.Request, res *restful.Response, chain *restful.FilterChain) {
	start := time.Now()
	chain.ProcessFilter(req, res)
	logging.Logger.With(
		"path", req.Request.URL.Path,
		"method", req.Request.Method,
		"status", res.StatusCode(),
		"duration", time.Since(start).String(),
		"user", api.UserIDFrom(req),
	).Infof("request")
}

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "InfraWeave API",
			Description: "Read-focused REST surface over the InfraWeave control plane",
			Version:     "v1",
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		logging.Logger.Fatalf("%s must be set", key)
	}
	return v
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
