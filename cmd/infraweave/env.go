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

// Command infraweave is the operator CLI of spec.md §6.5: it talks to
// the same pkg/backend.CloudBackend the apiserver and runner use,
// directly, rather than over HTTP, the way the teacher's vela CLI
// talks to the Kubernetes API server directly rather than through a
// separate gateway process.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend/documentdb"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend/keyedstore"
	"github.com/infraweave-io/infraweave-sub001/pkg/catalog"
	"github.com/infraweave-io/infraweave-sub001/pkg/config"
	"github.com/infraweave-io/infraweave-sub001/pkg/policyengine"
)

// env bundles the backend handle and catalog every subcommand needs,
// built by newEnv at the start of each subcommand's RunE.
type env struct {
	backend      backend.CloudBackend
	catalog      *catalog.Catalog
	policyEngine *policyengine.Engine
	projectID    string
}

func newEnv(ctx context.Context) (*env, error) {
	if err := config.InitFromEnv(); err != nil {
		return nil, err
	}

	be, err := newBackend(ctx)
	if err != nil {
		return nil, err
	}

	moduleBucket := envOr("MODULE_BUCKET", "infraweave-modules")
	policyBucket := envOr("POLICY_BUCKET", "infraweave-policies")
	policyWorkDir := envOr("POLICY_WORKDIR", "/tmp/infraweave-policy-bundles")

	return &env{
		backend:      be,
		catalog:      catalog.New(be, moduleBucket),
		policyEngine: policyengine.New(be, policyBucket, policyWorkDir),
		projectID:    config.ProjectID(),
	}, nil
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
			Bucket:          envOr("MODULE_BUCKET", "infraweave-modules"),
			ECSCluster:      mustEnv("ECS_CLUSTER"),
			ECSTaskTemplate: mustEnv("ECS_TASK_TEMPLATE"),
			SNSTopicARN:     os.Getenv("SNS_TOPIC_ARN"),
			LogGroupName:    mustEnv("LOG_GROUP_NAME"),
		})
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// mustEnv exits the process immediately when a required variable is
// unset: every subcommand needs its backend fully configured before
// it can do anything useful, so there is no partial-success path to
// preserve by returning an error up through cobra instead.
func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		fmt.Fprintf(os.Stderr, "%s must be set\n", key)
		os.Exit(1)
	}
	return v
}
