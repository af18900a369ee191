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

package deployment

import (
	"context"
	"time"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/ids"
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

// StatusHandler is the single writer of a deployment's lifecycle
// during one job run (spec.md §4.C6). It accumulates mutations on the
// in-memory Deployment and, on every Transition, emits an event
// append and the deployment row upsert atomically.
type StatusHandler struct {
	Backend    backend.CloudBackend
	Deployment *model.Deployment

	jobID          string
	lastEventEpoch int64
}

// NewStatusHandler constructs a StatusHandler pre-populated with an
// existing deployment row (if any), so outputs and policy results
// carry across idempotent re-runs (spec.md §4.C7 step 1).
func NewStatusHandler(be backend.CloudBackend, dep *model.Deployment, jobID string) *StatusHandler {
	return &StatusHandler{Backend: be, Deployment: dep, jobID: jobID, lastEventEpoch: time.Now().UnixMilli()}
}

// Transition moves the deployment to newStatus, computing the elapsed
// time since the previous transition as this event's duration, and
// persists both the event and the deployment row in one transaction.
func (h *StatusHandler) Transition(ctx context.Context, newStatus model.Status, errorText string) error {
	now := time.Now().UnixMilli()
	previous := h.Deployment.Status

	event := &model.Event{
		ProjectID:      h.Deployment.ProjectID,
		Region:         h.Deployment.Region,
		Environment:    h.Deployment.Environment,
		DeploymentID:   h.Deployment.DeploymentID,
		Epoch:          now,
		JobID:          h.jobID,
		Status:         newStatus,
		PreviousStatus: previous,
		EventDuration:  now - h.lastEventEpoch,
		ErrorText:      errorText,
	}
	event.PK = ids.EventPK(h.Deployment.ProjectID, h.Deployment.Region, h.Deployment.Environment, h.Deployment.DeploymentID)
	event.SK = ids.EventSK(now, h.jobID, string(newStatus))

	h.Deployment.Status = newStatus
	h.Deployment.ErrorText = errorText
	h.Deployment.JobID = h.jobID
	if newStatus == model.StatusSuccessful || newStatus == model.StatusDeleted {
		h.Deployment.ErrorText = ""
	}
	h.Deployment.PK = ids.DeploymentPK(h.Deployment.ProjectID, h.Deployment.Region, h.Deployment.Environment, h.Deployment.DeploymentID)
	h.Deployment.SK = ids.DeploymentMetadataSK
	h.lastEventEpoch = now

	ops := []backend.WriteOp{
		backend.PutOp("events", eventToItem(event)),
		backend.PutOp("deployments", deploymentToItem(h.Deployment)),
	}
	return h.Backend.TransactWrite(ctx, ops)
}

// IsSuccessfulTerminal reports whether the handler's current status is
// the successful terminal state, the trigger for dependent requeue.
func (h *StatusHandler) IsSuccessfulTerminal() bool {
	return h.Deployment.Status == model.StatusSuccessful
}

// JobID returns the id of the job this handler is writing on behalf
// of, available before any Transition has been recorded (pkg/runner
// needs it to key blobs and change records mid-sequence).
func (h *StatusHandler) JobID() string {
	return h.jobID
}
