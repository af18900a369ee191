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

// Policy is a published OPA rule bundle version.
type Policy struct {
	Policy      string `json:"policy"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	S3Key       string `json:"s3Key"`
	Timestamp   string `json:"timestamp"`

	PK string `json:"PK" dynamodbav:"PK" bson:"PK"`
	SK string `json:"SK" dynamodbav:"SK" bson:"SK"`
}

// TableName implements model.Interface.
func (p *Policy) TableName() string { return "policies" }

// Provider is a published Terraform provider lock-file entry (spec.md §4.C3).
type Provider struct {
	Provider    string `json:"provider"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	S3Key       string `json:"s3Key"`
	Timestamp   string `json:"timestamp"`

	PK string `json:"PK" dynamodbav:"PK" bson:"PK"`
	SK string `json:"SK" dynamodbav:"SK" bson:"SK"`
}

// TableName implements model.Interface.
func (p *Provider) TableName() string { return "providers" }
