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

package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/infraweave-io/infraweave-sub001/pkg/apierrors"
	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/claim"
	"github.com/infraweave-io/infraweave-sub001/pkg/deployment"
	"github.com/infraweave-io/infraweave-sub001/pkg/ids"
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

const maxPhaseStderrLines = 50

// PolicyEvaluator evaluates every active policy against a plan
// (spec.md §4.C8). Implemented by pkg/policyengine; declared here so
// pkg/runner depends only on the capability it needs.
type PolicyEvaluator interface {
	Evaluate(ctx context.Context, environment string, planJSON map[string]interface{}) (results []model.PolicyResult, failed bool, err error)
}

// Result summarizes one Run: whether it ended successfully, and
// whether a successful run was a destroy (the caller then invokes
// deployment.Finalize and deployment.RequeueDependents — Run itself
// only drives Terraform and status transitions, per the C6/C7 split).
type Result struct {
	Success      bool
	WasDestroy   bool
	WasDriftOnly bool
}

// Run executes the full job sequence of spec.md §4.C7 steps 4-11
// against an already-gated deployment (the caller has already applied
// DependencyGate/DestroyGate via pkg/deployment). h must already be
// primed with the current job id (NewStatusHandler + SetJobID-equivalent
// already applied by the caller). backendConfigArgs are the
// `-backend-config=...` flags identifying this deployment's remote
// state location.
func (r *Runner) Run(ctx context.Context, h *deployment.StatusHandler, payload *claim.InfraPayload, mod *model.Module, policy PolicyEvaluator, backendConfigArgs []string) (*Result, error) {
	beforeVariables := h.Deployment.Variables
	h.Deployment.Variables = payload.Variables

	if err := r.WriteVariablesFile(payload.Variables); err != nil {
		return nil, fmt.Errorf("writing terraform.tfvars.json: %w", err)
	}
	if err := r.WriteBackendFile(); err != nil {
		return nil, fmt.Errorf("writing backend.tf: %w", err)
	}
	if err := r.DownloadAndUnzipModule(ctx, mod.S3Key); err != nil {
		return nil, fmt.Errorf("downloading module: %w", err)
	}

	if _, stderr, err := r.Init(ctx, backendConfigArgs); err != nil {
		return r.failPhase(ctx, h, model.StatusFailedInit, stderr)
	}
	if _, stderr, err := r.Validate(ctx); err != nil {
		return r.failPhase(ctx, h, model.StatusFailedValidate, stderr)
	}

	destroy := payload.Command == claim.CommandDestroy
	noLock := payload.Command == claim.CommandPlan
	if _, stderr, err := r.Plan(ctx, payload.RefreshOnly, destroy, noLock); err != nil {
		return r.failPhase(ctx, h, model.StatusFailedPlan, stderr)
	}

	showStdout, showStderr, err := r.Show(ctx)
	if err != nil {
		return r.failPhase(ctx, h, model.StatusFailedShowPlan, showStderr)
	}

	var planJSON map[string]interface{}
	if err := json.Unmarshal([]byte(showStdout), &planJSON); err != nil {
		return r.failPhase(ctx, h, model.StatusFailedShowPlan, err.Error())
	}

	if payload.RefreshOnly {
		driftOccurred := driftHasOccurred(planJSON)
		h.Deployment.DriftHasOccurred = driftOccurred
		if driftOccurred {
			notifyDriftWebhooks(payload)
		}
	}

	jobID := h.JobID()
	changeType := model.ChangeTypePlan
	switch payload.Command {
	case claim.CommandApply:
		changeType = model.ChangeTypeApply
	case claim.CommandDestroy:
		changeType = model.ChangeTypeDestroy
	}

	if err := r.recordChange(ctx, h, changeType, jobID, showStdout, planJSON, beforeVariables, payload.Variables); err != nil {
		return nil, fmt.Errorf("persisting change record: %w", err)
	}

	results, failed, err := policy.Evaluate(ctx, "stable", planJSON)
	if err != nil {
		return r.failPhase(ctx, h, model.StatusFailedPolicy, err.Error())
	}
	h.Deployment.PolicyResults = results
	if failed {
		if err := h.Transition(ctx, model.StatusFailedPolicy, ""); err != nil {
			return nil, err
		}
		return &Result{Success: false}, nil
	}

	if payload.Command != claim.CommandApply && payload.Command != claim.CommandDestroy {
		if err := h.Transition(ctx, model.StatusSuccessful, ""); err != nil {
			return nil, err
		}
		return &Result{Success: true, WasDriftOnly: payload.RefreshOnly}, nil
	}

	if _, stderr, err := r.ApplyDestroy(ctx, string(payload.Command)); err != nil {
		if err := h.Transition(ctx, model.StatusError, apierrors.TruncateStderr(stderr, maxPhaseStderrLines)); err != nil {
			return nil, err
		}
		return &Result{Success: false}, nil
	}

	if destroy {
		if err := h.Transition(ctx, model.StatusSuccessful, ""); err != nil {
			return nil, err
		}
		return &Result{Success: true, WasDestroy: true}, nil
	}

	outStdout, _, err := r.Output(ctx)
	if err != nil {
		if err := h.Transition(ctx, model.StatusFailedOutput, ""); err != nil {
			return nil, err
		}
		return &Result{Success: false}, nil
	}
	var output map[string]interface{}
	if err := json.Unmarshal([]byte(outStdout), &output); err != nil {
		if err := h.Transition(ctx, model.StatusFailedOutput, ""); err != nil {
			return nil, err
		}
		return &Result{Success: false}, nil
	}
	h.Deployment.Output = output
	if err := h.Transition(ctx, model.StatusSuccessful, ""); err != nil {
		return nil, err
	}
	return &Result{Success: true}, nil
}

func (r *Runner) failPhase(ctx context.Context, h *deployment.StatusHandler, status model.Status, stderr string) (*Result, error) {
	if err := h.Transition(ctx, status, apierrors.TruncateStderr(stderr, maxPhaseStderrLines)); err != nil {
		return nil, err
	}
	return &Result{Success: false}, nil
}

func driftHasOccurred(planJSON map[string]interface{}) bool {
	drift, ok := planJSON["resource_drift"].([]interface{})
	return ok && len(drift) > 0
}

func notifyDriftWebhooks(payload *claim.InfraPayload) {
	message := fmt.Sprintf("Drift has occurred for %s in %s", payload.DeploymentID, payload.Environment)
	for _, url := range payload.DriftDetection.Webhooks {
		if url == "" {
			continue
		}
		body, _ := json.Marshal(map[string]string{"text": message})
		// Best-effort: a webhook failure must never fail the deployment
		// (original_source's terraform.rs explicitly swallows this error).
		_, _ = http.Post(url, "application/json", bytes.NewReader(body))
	}
}

func (r *Runner) recordChange(ctx context.Context, h *deployment.StatusHandler, changeType model.ChangeType, jobID, planStdout string, planJSON map[string]interface{}, beforeVariables, afterVariables map[string]interface{}) error {
	dep := h.Deployment
	now := time.Now().UnixMilli()

	planRawJSONKey := ids.PlanOutputKey(r.AccountID, dep.Environment, dep.DeploymentID, string(changeType), jobID)
	if err := r.Backend.UploadBlob(ctx, r.ModuleBucket, planRawJSONKey, []byte(planStdout)); err != nil {
		return err
	}

	record := &model.ChangeRecord{
		ProjectID:       dep.ProjectID,
		Region:          dep.Region,
		Environment:     dep.Environment,
		DeploymentID:    dep.DeploymentID,
		JobID:           jobID,
		ChangeType:      changeType,
		PlanStdOutput:   truncatePlanOutput(planStdout),
		PlanRawJSONKey:  planRawJSONKey,
		ResourceChanges: SanitizeResourceChanges(planJSON),
		VariableChanges: ComputeVariableChanges(beforeVariables, afterVariables),
	}
	mutate := changeType == model.ChangeTypeApply || changeType == model.ChangeTypeDestroy
	record.PK = ids.ChangeRecordPK(mutate, dep.ProjectID, dep.Region, dep.Environment, dep.DeploymentID)
	record.SK = ids.ChangeRecordSK(now, jobID)

	return r.Backend.TransactWrite(ctx, []backend.WriteOp{backend.PutOp("change_records", changeRecordToItem(record))})
}

func changeRecordToItem(c *model.ChangeRecord) backend.Item {
	raw, _ := json.Marshal(c)
	var item backend.Item
	_ = json.Unmarshal(raw, &item)
	return item
}

func truncatePlanOutput(stdout string) string {
	if len(stdout) <= model.MaxInlinePlanOutput {
		return stdout
	}
	return stdout[:model.MaxInlinePlanOutput]
}
