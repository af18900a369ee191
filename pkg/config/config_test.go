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

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitThenReadBack(t *testing.T) {
	resetForTest()
	Init("acme", "eu-west-1", CloudProviderMongoDB)
	assert.Equal(t, "acme", ProjectID())
	assert.Equal(t, "eu-west-1", Region())
	assert.Equal(t, CloudProviderMongoDB, Provider())
}

func TestInitTwicePanics(t *testing.T) {
	resetForTest()
	Init("acme", "eu-west-1", CloudProviderAWS)
	defer func() {
		assert.NotNil(t, recover(), "expected second Init call to panic")
	}()
	Init("other", "us-east-1", CloudProviderAWS)
}
