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

package model

// Event is one append-only entry in a deployment's status trail.
type Event struct {
	ProjectID    string `json:"projectId"`
	Region       string `json:"region"`
	Environment  string `json:"environment"`
	DeploymentID string `json:"deploymentId"`

	Epoch          int64  `json:"epoch"`
	JobID          string `json:"jobId"`
	Status         Status `json:"status"`
	PreviousStatus Status `json:"previousStatus,omitempty"`
	EventDuration  int64  `json:"eventDurationMillis"`
	ErrorText      string `json:"errorText,omitempty"`

	PK string `json:"PK" dynamodbav:"PK" bson:"PK"`
	SK string `json:"SK" dynamodbav:"SK" bson:"SK"`
}

// TableName implements model.Interface.
func (e *Event) TableName() string { return "events" }
