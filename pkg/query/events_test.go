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

package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
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

func TestListEventsReturnsNewestFirst(t *testing.T) {
	be := backendtest.New()
	seedEvent(t, be, "proj1", "eu-west-1", "prod/ns", "dep1", 100, "job-1", "received")
	seedEvent(t, be, "proj1", "eu-west-1", "prod/ns", "dep1", 200, "job-1", "apply")
	seedEvent(t, be, "proj1", "eu-west-1", "prod/ns", "dep1", 300, "job-1", "successful")

	events, _, err := ListEvents(context.Background(), be, "proj1", "eu-west-1", "prod/ns", "dep1", 0, "")
	require.NoError(t, err)
	if assert.Len(t, events, 3) {
		assert.Equal(t, int64(300), events[0].Epoch)
		assert.Equal(t, int64(100), events[2].Epoch)
	}
}

func TestListEventsByRegionBoundsToEpochRange(t *testing.T) {
	be := backendtest.New()
	seedEvent(t, be, "proj1", "eu-west-1", "prod/ns", "dep1", 100, "job-1", "received")
	seedEvent(t, be, "proj1", "eu-west-1", "prod/ns", "dep1", 500, "job-2", "apply")
	seedEvent(t, be, "proj2", "eu-west-1", "prod/ns", "dep2", 900, "job-3", "successful")

	events, _, err := ListEventsByRegion(context.Background(), be, "eu-west-1", 400, 600, 0, "")
	require.NoError(t, err)
	if assert.Len(t, events, 1, "expected only the event at epoch 500") {
		assert.Equal(t, int64(500), events[0].Epoch)
	}
}
