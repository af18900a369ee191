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

// Package config holds the write-once process globals (spec.md §9
// Design Notes: "PROJECT_ID and REGION are write-once process globals
// initialized at startup; all other state is request- or job-scoped").
package config

import (
	"fmt"
	"os"
	"sync"
)

// CloudProvider selects which CloudBackend implementation the process
// wires up at startup.
type CloudProvider string

const (
	// CloudProviderAWS selects the DynamoDB/S3/ECS keyed-store backend.
	CloudProviderAWS CloudProvider = "aws"
	// CloudProviderMongoDB selects the document-database backend.
	CloudProviderMongoDB CloudProvider = "mongodb"
)

var (
	mu          sync.Mutex
	initialized bool

	projectID string
	region    string
	provider  CloudProvider
)

// Init sets the write-once process globals. It panics if called more
// than once, since any second call would indicate two conflicting
// startup paths racing each other — exactly the bug class this
// global exists to prevent.
func Init(projectIDValue, regionValue string, cloudProvider CloudProvider) {
	mu.Lock()
	defer mu.Unlock()
	if initialized {
		panic("config: Init called more than once")
	}
	projectID = projectIDValue
	region = regionValue
	provider = cloudProvider
	initialized = true
}

// InitFromEnv populates the globals from INFRAWEAVE_REGION and
// PROJECT_ID (both required) and CLOUD_PROVIDER (default "aws").
func InitFromEnv() error {
	region := os.Getenv("INFRAWEAVE_REGION")
	if region == "" {
		return fmt.Errorf("config: INFRAWEAVE_REGION must be set")
	}
	project := os.Getenv("PROJECT_ID")
	if project == "" {
		return fmt.Errorf("config: PROJECT_ID must be set")
	}
	provider := CloudProvider(os.Getenv("CLOUD_PROVIDER"))
	if provider == "" {
		provider = CloudProviderAWS
	}
	Init(project, region, provider)
	return nil
}

// ProjectID returns the process's own project id.
func ProjectID() string {
	mu.Lock()
	defer mu.Unlock()
	return projectID
}

// Region returns the process's own region.
func Region() string {
	mu.Lock()
	defer mu.Unlock()
	return region
}

// Provider returns the selected CloudBackend implementation.
func Provider() CloudProvider {
	mu.Lock()
	defer mu.Unlock()
	return provider
}

// resetForTest clears the write-once flag so tests can call Init
// repeatedly; the stored values stay until the next Init overwrites them.
// Only exported to _test.go files in this package via the lowercase
// name convention — not part of the public API.
func resetForTest() {
	mu.Lock()
	defer mu.Unlock()
	initialized = false
}
