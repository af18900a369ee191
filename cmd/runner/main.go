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

// Command runner is the Job Runner container entrypoint of spec.md
// §4.C7: one invocation drives exactly one deployment through
// init/validate/plan/show/policy/apply-destroy/output, then reports the
// outcome back through pkg/deployment so dependents can be requeued.
// Grounded on original_source's terraform_runner/src/main.rs: read the
// job payload, load the current deployment row (falling back to a
// fresh one on its very first apply), and hand both to the runner.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/infraweave-io/infraweave-sub001/pkg/apierrors"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend/documentdb"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend/keyedstore"
	"github.com/infraweave-io/infraweave-sub001/pkg/catalog"
	"github.com/infraweave-io/infraweave-sub001/pkg/claim"
	"github.com/infraweave-io/infraweave-sub001/pkg/config"
	"github.com/infraweave-io/infraweave-sub001/pkg/deployment"
	"github.com/infraweave-io/infraweave-sub001/pkg/ids"
	"github.com/infraweave-io/infraweave-sub001/pkg/logging"
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
	"github.com/infraweave-io/infraweave-sub001/pkg/policyengine"
	"github.com/infraweave-io/infraweave-sub001/pkg/runner"
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

	payload, err := readPayload()
	if err != nil {
		logging.Logger.Fatalf("reading job payload: %s", err)
	}

	log := logging.Logger.With("deployment_id", payload.DeploymentID, "environment", payload.Environment)

	moduleBucket := envOr("MODULE_BUCKET", "infraweave-modules")
	cat := catalog.New(be, moduleBucket)
	mod, err := cat.ResolveModuleVersion(ctx, payload.Module, payload.ModuleVersion)
	if err != nil {
		log.Fatalf("resolving module version: %s", err)
	}

	dep, err := deployment.Get(ctx, be, payload.ProjectID, payload.Region, payload.Environment, payload.DeploymentID)
	if err != nil {
		if !apierrors.IsNotFound(err) {
			log.Fatalf("loading deployment: %s", err)
		}
		dep = &model.Deployment{
			ProjectID:    payload.ProjectID,
			Region:       payload.Region,
			Environment:  payload.Environment,
			DeploymentID: payload.DeploymentID,
		}
	}

	jobID, err := be.GetCurrentJobID(ctx)
	if err != nil {
		log.Fatalf("reading current job id: %s", err)
	}
	log = log.With("job_id", jobID)

	h := deployment.NewStatusHandler(be, dep, jobID)

	policyBucket := envOr("POLICY_BUCKET", "infraweave-policies")
	policyWorkDir := envOr("POLICY_WORKDIR", "/tmp/infraweave-policy-bundles")
	policy := policyengine.New(be, policyBucket, policyWorkDir)

	backendProvider := backendProviderFor(config.Provider())
	backendConfigArgs := backendConfigArgsFor(backendProvider, payload.Environment, payload.DeploymentID)

	workDir := envOr("RUNNER_WORKDIR", "/tmp/infraweave-runner")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		log.Fatalf("creating work dir: %s", err)
	}
	r := runner.New(be, workDir, moduleBucket, backendProvider, mustEnv("ACCOUNT_ID"))

	result, err := r.Run(ctx, h, payload, mod, policy, backendConfigArgs)
	if err != nil {
		log.Fatalf("run: %s", err)
	}

	if !result.Success {
		log.Infof("job finished unsuccessfully, status=%s", h.Deployment.Status)
		os.Exit(1)
	}

	if result.WasDestroy {
		if err := deployment.Finalize(ctx, be, h.Deployment); err != nil {
			log.Fatalf("finalizing destroy: %s", err)
		}
		log.Infof("destroy finalized")
		return
	}

	if h.IsSuccessfulTerminal() && !result.WasDriftOnly {
		if err := deployment.RequeueDependents(ctx, be, h.Deployment); err != nil {
			log.Fatalf("requeuing dependents: %s", err)
		}
	}
	log.Infof("job finished successfully")
}

// readPayload reads the job's InfraPayload from the PAYLOAD environment
// variable (the ECS/keyed-store launch path of spec.md §6.6), falling
// back to stdin for the document-db backend's local subprocess launch
// (pkg/backend/documentdb pipes the payload rather than sizing an
// env var for it).
func readPayload() (*claim.InfraPayload, error) {
	raw := os.Getenv("PAYLOAD")
	var data []byte
	if raw != "" {
		data = []byte(raw)
	} else {
		var err error
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
	}
	var payload claim.InfraPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parsing PAYLOAD: %w", err)
	}
	return &payload, nil
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

// backendProviderFor names the Terraform backend stanza each cloud
// provider's remote state lives under (env_aws/src/provider.rs's
// get_backend_provider: "s3" for AWS; the document-db/Azure variant
// uses "azurerm" blob storage).
func backendProviderFor(p config.CloudProvider) string {
	if p == config.CloudProviderMongoDB {
		return "azurerm"
	}
	return "s3"
}

// backendConfigArgsFor builds the `-backend-config=...` flags Init
// passes to Terraform so a published module never hardcodes its own
// deployment's remote state location (grounded on env_aws/src/provider.rs's
// get_backend_provider_arguments: bucket, dynamodb_table, key, region
// for S3; the equivalent storage-account/container pair for azurerm).
func backendConfigArgsFor(backendProvider, environment, deploymentID string) []string {
	key := ids.TerraformStateKey(environment, deploymentID)
	if backendProvider == "azurerm" {
		return []string{
			"-backend-config=storage_account_name=" + mustEnv("TF_STATE_STORAGE_ACCOUNT"),
			"-backend-config=container_name=" + mustEnv("TF_STATE_CONTAINER"),
			"-backend-config=key=" + key,
		}
	}
	return []string{
		"-backend-config=bucket=" + mustEnv("TF_STATE_BUCKET"),
		"-backend-config=dynamodb_table=" + mustEnv("TF_STATE_LOCK_TABLE"),
		"-backend-config=key=" + key,
		"-backend-config=region=" + config.Region(),
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
