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

package catalog

import (
	"encoding/json"

	"github.com/infraweave-io/infraweave-sub001/pkg/backend"
	"github.com/infraweave-io/infraweave-sub001/pkg/model"
)

// moduleToItem and itemToModule round-trip a Module through its JSON
// shape at the CloudBackend boundary (backend.Item is just
// map[string]interface{}; both keyedstore and documentdb marshal from
// there into DynamoDB attribute values or BSON).
func moduleToItem(m *model.Module) backend.Item {
	raw, _ := json.Marshal(m)
	var item backend.Item
	_ = json.Unmarshal(raw, &item)
	return item
}

func itemToModule(item backend.Item) (*model.Module, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	var m model.Module
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func policyToItem(p *model.Policy) backend.Item {
	raw, _ := json.Marshal(p)
	var item backend.Item
	_ = json.Unmarshal(raw, &item)
	return item
}

func itemToPolicy(item backend.Item) (*model.Policy, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	var p model.Policy
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func providerToItem(p *model.Provider) backend.Item {
	raw, _ := json.Marshal(p)
	var item backend.Item
	_ = json.Unmarshal(raw, &item)
	return item
}

func itemToProvider(item backend.Item) (*model.Provider, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	var p model.Provider
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
