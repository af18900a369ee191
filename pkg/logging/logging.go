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

// Package logging provides the single structured logger used across
// the control plane and the job runner.
package logging

import "go.uber.org/zap"

// Logger is the process-wide structured logger.
var Logger *zap.SugaredLogger

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	Logger = l.Sugar()
}

// ForJob returns a logger pre-populated with the fields every job-scoped
// log line must carry (spec.md §7: deployment_id, job_id, op).
func ForJob(deploymentID, jobID, op string) *zap.SugaredLogger {
	return Logger.With("deployment_id", deploymentID, "job_id", jobID, "op", op)
}
